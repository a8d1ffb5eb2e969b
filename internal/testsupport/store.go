package testsupport

import (
	"context"
	"testing"

	"dualout/internal/collection"
	"dualout/internal/config"
)

// MustOpenStore opens a collection.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *collection.Store {
	t.Helper()

	store, err := collection.Open(cfg)
	if err != nil {
		t.Fatalf("collection.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SaveDocument stores doc and returns its id.
func SaveDocument(t testing.TB, store *collection.Store, doc *collection.Document) string {
	t.Helper()

	if err := store.Save(context.Background(), doc); err != nil {
		t.Fatalf("store.Save: %v", err)
	}
	return doc.ID
}
