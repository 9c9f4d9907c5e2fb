// AngelaMos | 2026
// credential.go

package credential

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/carterperez-dev/studentshelf/internal/core"
)

const MinSecretLen = 32

// CompletedLookup returns the credentials stored on completed purchases of
// itemID by email. An empty slice means no such purchase.
type CompletedLookup interface {
	CompletedCredentials(ctx context.Context, itemID, email string) ([]string, error)
}

type Service struct {
	key    []byte
	lookup CompletedLookup
	now    func() time.Time
}

func NewService(secret string, lookup CompletedLookup) (*Service, error) {
	if len(secret) < MinSecretLen {
		return nil, fmt.Errorf(
			"credential secret shorter than %d bytes: %w",
			MinSecretLen,
			core.ErrConfiguration,
		)
	}
	return &Service{
		key:    []byte(secret),
		lookup: lookup,
		now:    time.Now,
	}, nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Issue mints the secret stored on a purchase over
// email:itemID:nonce:issuedAt. The random nonce keeps calls within the same
// clock tick distinct.
func (s *Service) Issue(email, itemID string) string {
	issuedAt := s.now().UTC().Format(time.RFC3339Nano)
	payload := NormalizeEmail(email) + ":" + itemID + ":" + rand.Text() + ":" + issuedAt

	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(payload))

	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Verify reports whether secret unlocks itemID for email. Lookup failures
// are returned, never folded into a boolean.
func (s *Service) Verify(
	ctx context.Context,
	itemID, email, secret string,
) (bool, error) {
	email = NormalizeEmail(email)
	if !core.ValidID(itemID) || email == "" || secret == "" {
		return false, nil
	}

	stored, err := s.lookup.CompletedCredentials(ctx, itemID, email)
	if err != nil {
		return false, fmt.Errorf("verify credential: %w", err)
	}

	match := false
	for _, candidate := range stored {
		if core.ConstantTimeEqual(candidate, secret) {
			match = true
		}
	}

	return match, nil
}
