package testsupport

import (
	"context"
	"testing"

	"fontana/internal/config"
	"fontana/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewItem inserts item and returns the stored copy.
func NewItem(t testing.TB, st *store.Store, item store.Item) *store.Item {
	t.Helper()

	if item.Title == "" {
		item.Title = "Untitled"
	}
	if item.Collection == "" {
		item.Collection = store.CollectionEvergreen
	}
	created, err := st.CreateItem(context.Background(), &item)
	if err != nil {
		t.Fatalf("store.CreateItem: %v", err)
	}
	return created
}

// MustTerm creates a taxonomy term.
func MustTerm(t testing.TB, st *store.Store, term store.Term) store.Term {
	t.Helper()

	created, err := st.CreateTerm(context.Background(), term)
	if err != nil {
		t.Fatalf("store.CreateTerm %q: %v", term.Name, err)
	}
	return created
}
