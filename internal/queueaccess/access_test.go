package queueaccess_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"postline/internal/api"
	"postline/internal/ipc"
	"postline/internal/queue"
	"postline/internal/queueaccess"
	"postline/internal/testsupport"
)

func TestOpenWithFallbackUsesStoreWhenDaemonOffline(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	dialed := false
	session, err := queueaccess.OpenWithFallback(cfg,
		func() (*ipc.Client, error) {
			dialed = true
			return nil, errors.New("connection refused")
		},
		func() (*queue.Store, error) { return queue.Open(cfg) },
	)
	if err != nil {
		t.Fatalf("OpenWithFallback: %v", err)
	}
	t.Cleanup(func() { session.Close() })

	if !dialed {
		t.Fatal("expected IPC dial attempt")
	}
	if !session.Access.Direct() {
		t.Fatal("expected direct store access")
	}
}

func TestOpenWithFallbackRequiresStoreOpener(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := queueaccess.OpenWithFallback(cfg, nil, nil); err == nil {
		t.Fatal("expected error without store opener")
	}
}

func TestStoreAccessOperations(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	access := queueaccess.NewStoreAccess(cfg, store)
	ctx := context.Background()

	path := filepath.Join(cfg.Paths.MediaDir, "clip.mp4")
	testsupport.WriteFile(t, path, 64)
	added, err := access.Add(ctx, queueaccess.AddRequest{Path: path, Caption: "hello"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if added.Source != "cli" || added.Status != string(queue.StatusPending) {
		t.Fatalf("unexpected added item: %#v", added)
	}
	if _, err := access.Add(ctx, queueaccess.AddRequest{Path: " "}); err == nil {
		t.Fatal("expected blank path to be rejected")
	}

	items, err := access.List(ctx, []string{"pending"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if _, err := access.List(ctx, []string{"unknown"}); err == nil {
		t.Fatal("expected unknown status error")
	}

	if item, err := access.Describe(ctx, 999); err != nil || item != nil {
		t.Fatalf("expected nil for missing item, got %#v, %v", item, err)
	}

	other := testsupport.Enqueue(t, store, cfg, "other.mp4", "")
	if _, err := store.TryClaim(ctx, other.ID); err != nil {
		t.Fatalf("TryClaim: %v", err)
	}
	if err := store.MarkFailed(ctx, other.ID, "rejected"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	reset, err := access.ResetFailed(ctx, nil)
	if err != nil {
		t.Fatalf("ResetFailed: %v", err)
	}
	if reset.UpdatedCount != 1 {
		t.Fatalf("expected 1 reset, got %d", reset.UpdatedCount)
	}

	removed, err := access.Remove(ctx, []int64{added.ID, 12345})
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if removed.RemovedCount != 1 || removed.Items[1].Outcome != api.RemoveItemNotFound {
		t.Fatalf("unexpected remove result: %#v", removed)
	}

	health, err := access.Health(ctx)
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if health.Total != 1 || health.Pending != 1 {
		t.Fatalf("unexpected health: %#v", health)
	}
	stats, err := access.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[string(queue.StatusPending)] != 1 || stats[string(queue.StatusFailed)] != 0 {
		t.Fatalf("unexpected stats: %#v", stats)
	}

	if _, err := access.Clear(ctx, []string{"in-progress"}); err == nil {
		t.Fatal("expected in-progress clear to be rejected")
	}
	cleared, err := access.Clear(ctx, []string{"failed"})
	if err != nil || cleared != 0 {
		t.Fatalf("clear failed = %d %v", cleared, err)
	}
	cleared, err = access.Clear(ctx, []string{"pending"})
	if err != nil || cleared != 1 {
		t.Fatalf("clear pending = %d %v", cleared, err)
	}
}
