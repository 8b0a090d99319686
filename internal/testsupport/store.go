package testsupport

import (
	"context"
	"path/filepath"
	"testing"

	"postline/internal/config"
	"postline/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// Enqueue creates a media file under the media dir and queues it.
func Enqueue(t testing.TB, store *queue.Store, cfg *config.Config, name, caption string) *queue.Item {
	t.Helper()

	path := filepath.Join(cfg.Paths.MediaDir, name)
	WriteFile(t, path, 1024)
	item, err := store.Enqueue(context.Background(), path, caption)
	if err != nil {
		t.Fatalf("store.Enqueue: %v", err)
	}
	return item
}

// MustGet fetches an item and fails the test when it is missing.
func MustGet(t testing.TB, store *queue.Store, id int64) *queue.Item {
	t.Helper()

	item, err := store.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("store.GetByID(%d): %v", id, err)
	}
	if item == nil {
		t.Fatalf("item %d not found", id)
	}
	return item
}
