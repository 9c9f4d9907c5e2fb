// AngelaMos | 2026
// memory.go

package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore keeps objects in process. Used when no cloudinary URL is
// configured and in tests.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

func (m *MemoryStore) Put(
	_ context.Context,
	folder, name string,
	r io.Reader,
) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}

	ref := fmt.Sprintf("mem://%s/%s-%s", folder, uuid.NewString()[:8], name)

	m.mu.Lock()
	m.objects[ref] = data
	m.mu.Unlock()

	return ref, nil
}

func (m *MemoryStore) Open(_ context.Context, ref string) (io.ReadCloser, error) {
	m.mu.RLock()
	data, ok := m.objects[ref]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}
