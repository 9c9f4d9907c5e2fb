// AngelaMos | 2026
// document.go

package student

import (
	"context"
	"fmt"

	"github.com/gabriel-vasile/mimetype"

	"github.com/carterperez-dev/studentshelf/internal/core"
	"github.com/carterperez-dev/studentshelf/internal/settings"
)

// SniffLen is how much of a document is read for content detection.
const SniffLen = 3072

var documentMIMEs = []string{
	"image/jpeg",
	"image/png",
	"image/webp",
	"application/pdf",
}

// DocumentValidator accepts or rejects a proof-of-enrolment upload from its
// leading bytes and declared size. It returns the detected media type.
type DocumentValidator interface {
	Validate(ctx context.Context, head []byte, size int64) (string, error)
	MaxBytes(ctx context.Context) (int64, error)
}

type UploadLimits interface {
	Int(ctx context.Context, key string) (int, error)
}

type mimeValidator struct {
	limits UploadLimits
}

func NewDocumentValidator(limits UploadLimits) DocumentValidator {
	return &mimeValidator{limits: limits}
}

func (v *mimeValidator) Validate(ctx context.Context, head []byte, size int64) (string, error) {
	if size <= 0 || len(head) == 0 {
		return "", core.ValidationError("document is empty")
	}

	limit, err := v.MaxBytes(ctx)
	if err != nil {
		return "", err
	}

	if size > limit {
		return "", core.ValidationError(fmt.Sprintf("document must be at most %d MB", limit>>20))
	}

	detected := mimetype.Detect(head).String()
	if !mimetype.EqualsAny(detected, documentMIMEs...) {
		return "", core.ValidationError("document must be a JPEG, PNG, WEBP or PDF file")
	}

	return detected, nil
}

func (v *mimeValidator) MaxBytes(ctx context.Context) (int64, error) {
	maxMB, err := v.limits.Int(ctx, settings.KeyMaxUploadSizeMB)
	if err != nil {
		return 0, fmt.Errorf("read upload limit: %w", err)
	}
	return int64(maxMB) << 20, nil
}
