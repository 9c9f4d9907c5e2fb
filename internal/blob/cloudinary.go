// AngelaMos | 2026
// cloudinary.go

package blob

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

const uploadTimeout = 30 * time.Second

// CloudinaryStore uploads as raw resources so PDFs and EPUBs come back
// byte-for-byte. References are the secure delivery URLs.
type CloudinaryStore struct {
	cld    *cloudinary.Cloudinary
	client *http.Client
}

func NewCloudinaryStore(cloudinaryURL string) (*CloudinaryStore, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("init cloudinary: %w", err)
	}

	return &CloudinaryStore{
		cld:    cld,
		client: &http.Client{Timeout: 2 * time.Minute},
	}, nil
}

func (s *CloudinaryStore) Put(
	ctx context.Context,
	folder, name string,
	r io.Reader,
) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	unique := true
	overwrite := false

	res, err := s.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		Folder:         folder,
		PublicID:       name,
		ResourceType:   "raw",
		UniqueFilename: &unique,
		Overwrite:      &overwrite,
	})
	if err != nil {
		return "", fmt.Errorf("cloudinary upload: %w", err)
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("cloudinary upload: %s", res.Error.Message)
	}

	return res.SecureURL, nil
}

func (s *CloudinaryStore) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	u, err := url.Parse(ref)
	if err != nil || u.Scheme != "https" {
		return nil, fmt.Errorf("open blob %q: invalid reference", ref)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("open blob: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("open blob: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_ = resp.Body.Close() //nolint:errcheck // body unused
		return nil, ErrObjectNotFound
	case resp.StatusCode != http.StatusOK:
		_ = resp.Body.Close() //nolint:errcheck // body unused
		return nil, fmt.Errorf("open blob: unexpected status %d", resp.StatusCode)
	}

	return resp.Body, nil
}
