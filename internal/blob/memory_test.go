// AngelaMos | 2026
// memory_test.go

package blob

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	ref, err := store.Put(ctx, "ebooks", "chapter.pdf", strings.NewReader("%PDF-1.7"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "mem://ebooks/"))

	rc, err := store.Open(ctx, ref)
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(data))
}

func TestMemoryStoreMissing(t *testing.T) {
	_, err := NewMemoryStore().Open(context.Background(), "mem://nope")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestCloudinaryOpenRejectsNonHTTPS(t *testing.T) {
	store := &CloudinaryStore{}
	_, err := store.Open(context.Background(), "http://res.cloudinary.com/x/raw/upload/a.pdf")
	assert.Error(t, err)
}
