// AngelaMos | 2026
// blob.go

package blob

import (
	"context"
	"errors"
	"io"
)

var ErrObjectNotFound = errors.New("blob object not found")

// Store persists uploaded files and hands back an opaque reference.
type Store interface {
	Put(ctx context.Context, folder, name string, r io.Reader) (string, error)
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
}
