package testsupport

import (
	"path/filepath"
	"testing"

	"factstream/internal/refcache"
)

// MustOpenStore opens an embedding cache in a temp directory and closes it
// when the test finishes.
func MustOpenStore(t testing.TB) *refcache.Store {
	t.Helper()

	store, err := refcache.Open(filepath.Join(t.TempDir(), "embeddings.db"))
	if err != nil {
		t.Fatalf("open embedding cache: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close embedding cache: %v", err)
		}
	})
	return store
}
