package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memBlobStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{blobs: make(map[string][]byte)}
}

func (m *memBlobStore) Store(_ context.Context, data []byte, contentType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := fmt.Sprintf("images/%02d", len(m.blobs))
	m.blobs[key] = data
	return key, nil
}

func (m *memBlobStore) Fetch(_ context.Context, key string) ([]byte, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[key]
	if !ok {
		return nil, "", fmt.Errorf("no blob %s", key)
	}
	return data, "image/jpeg", nil
}

func TestExternalizeAllStoresImages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.jpg" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		fmt.Fprint(w, "bytes of "+r.URL.Path)
	}))
	defer srv.Close()

	blob := newMemBlobStore()
	svc := NewImageService(srv.Client(), blob, "test-agent")

	keys := svc.ExternalizeAll(context.Background(), []string{
		srv.URL + "/a.jpg",
		srv.URL + "/missing.jpg",
		srv.URL + "/b.jpg",
	})

	require.Len(t, keys, 2, "failed image must be dropped, not fatal")
	assert.Len(t, blob.blobs, 2)
}

func TestExternalizeAllEmptyInput(t *testing.T) {
	svc := NewImageService(http.DefaultClient, newMemBlobStore(), "")
	assert.Nil(t, svc.ExternalizeAll(context.Background(), nil))
}
