package ipc_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"postline/internal/api"
	"postline/internal/daemon"
	"postline/internal/ipc"
	"postline/internal/logging"
	"postline/internal/publisher"
	"postline/internal/queue"
	"postline/internal/schedule"
	"postline/internal/testsupport"
	"postline/internal/upload"
)

type env struct {
	store  *queue.Store
	client *ipc.Client
	media  string
	log    string
}

func newEnv(t *testing.T, outcomes ...publisher.Outcome) *env {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithSchedule("08:30"), testsupport.WithMaxRetry(1))
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()

	coordinator := upload.NewCoordinator(cfg, store, testsupport.NewStaticSession(), testsupport.NewScriptedPublisher(outcomes...))
	scheduler, err := schedule.New(cfg, store, coordinator)
	if err != nil {
		t.Fatalf("schedule.New: %v", err)
	}
	logPath := filepath.Join(cfg.Paths.LogDir, "ipc-test.log")
	d, err := daemon.New(cfg, store, scheduler, logger, daemon.WithLogPath(logPath))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	sockDir, err := os.MkdirTemp("", "pl-ipc")
	if err != nil {
		t.Fatalf("mkdir socket dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(sockDir) })
	socket := filepath.Join(sockDir, "postline.sock")
	srv, err := ipc.NewServer(ctx, socket, d, logger)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)

	client, err := ipc.Dial(socket)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
	})
	return &env{store: store, client: client, media: cfg.Paths.MediaDir, log: logPath}
}

func TestIPCServerClient(t *testing.T) {
	e := newEnv(t, publisher.Success())

	startResp, err := e.client.Start()
	if err != nil {
		t.Fatalf("Start RPC failed: %v", err)
	}
	if !startResp.Started {
		t.Fatalf("expected Started=true, message=%s", startResp.Message)
	}
	again, err := e.client.Start()
	if err != nil {
		t.Fatalf("second Start RPC failed: %v", err)
	}
	if again.Started || again.Message == "" {
		t.Fatalf("expected second start to be refused, got %#v", again)
	}

	status, err := e.client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if !status.Running || !status.Scheduler.Running {
		t.Fatalf("expected daemon running, got %#v", status)
	}

	path := filepath.Join(e.media, "first.mp4")
	testsupport.WriteFile(t, path, 128)
	added, err := e.client.QueueAdd(ipc.QueueAddRequest{Path: path, Caption: "first"})
	if err != nil {
		t.Fatalf("QueueAdd failed: %v", err)
	}
	if added.Item.Status != string(queue.StatusPending) || added.Item.Source != "cli" {
		t.Fatalf("unexpected queued item: %#v", added.Item)
	}
	if _, err := e.client.QueueAdd(ipc.QueueAddRequest{Path: filepath.Join(e.media, "nope.mp4")}); err == nil {
		t.Fatal("expected QueueAdd to fail for missing file")
	}

	list, err := e.client.QueueList([]string{"pending"})
	if err != nil {
		t.Fatalf("QueueList failed: %v", err)
	}
	if len(list.Items) != 1 || list.Items[0].ID != added.Item.ID {
		t.Fatalf("unexpected list: %#v", list.Items)
	}
	if _, err := e.client.QueueList([]string{"bogus"}); err == nil {
		t.Fatal("expected unknown status to be rejected")
	}

	run, err := e.client.RunNow()
	if err != nil {
		t.Fatalf("RunNow failed: %v", err)
	}
	if run.Firing.ItemID != added.Item.ID || run.Firing.Status != string(queue.StatusPosted) {
		t.Fatalf("unexpected firing: %#v", run.Firing)
	}

	desc, err := e.client.QueueDescribe(added.Item.ID)
	if err != nil {
		t.Fatalf("QueueDescribe failed: %v", err)
	}
	if !desc.Found || desc.Item.Status != string(queue.StatusPosted) || desc.Item.PostedAt == "" {
		t.Fatalf("expected posted item, got %#v", desc.Item)
	}

	missing, err := e.client.QueueDescribe(added.Item.ID + 100)
	if err != nil {
		t.Fatalf("QueueDescribe missing: %v", err)
	}
	if missing.Found {
		t.Fatal("expected Found=false for unknown id")
	}

	health, err := e.client.QueueHealth()
	if err != nil {
		t.Fatalf("QueueHealth failed: %v", err)
	}
	if health.Total != 1 || health.Posted != 1 {
		t.Fatalf("unexpected health: %#v", health)
	}
	dbHealth, err := e.client.DatabaseHealth()
	if err != nil {
		t.Fatalf("DatabaseHealth failed: %v", err)
	}
	if !dbHealth.DatabaseReadable || !dbHealth.IntegrityCheck || len(dbHealth.MissingColumns) != 0 {
		t.Fatalf("unexpected db health: %#v", dbHealth)
	}

	cleared, err := e.client.QueueClearPosted(0)
	if err != nil {
		t.Fatalf("QueueClearPosted failed: %v", err)
	}
	if cleared.Removed != 1 {
		t.Fatalf("expected 1 posted item cleared, got %d", cleared.Removed)
	}

	second := filepath.Join(e.media, "second.mp4")
	testsupport.WriteFile(t, second, 128)
	if _, err := e.client.QueueAdd(ipc.QueueAddRequest{Path: second}); err != nil {
		t.Fatalf("QueueAdd second: %v", err)
	}
	if _, err := e.client.QueueClear([]string{"in_progress"}); err == nil {
		t.Fatal("expected in-progress clear to be rejected")
	}
	clearedPending, err := e.client.QueueClear([]string{"pending"})
	if err != nil {
		t.Fatalf("QueueClear failed: %v", err)
	}
	if clearedPending.Removed != 1 {
		t.Fatalf("expected 1 pending item cleared, got %d", clearedPending.Removed)
	}

	sched, err := e.client.Schedule()
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	if len(sched.Entries) != 1 || sched.Entries[0].Time != "08:30" || sched.Timezone != "UTC" {
		t.Fatalf("unexpected schedule: %#v", sched)
	}

	stopResp, err := e.client.Stop()
	if err != nil || !stopResp.Stopped {
		t.Fatalf("Stop RPC failed: %v", err)
	}
	if _, err := e.client.RunNow(); err == nil {
		t.Fatal("expected RunNow to fail after stop")
	}
}

func TestIPCResetAndRemove(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	cfgItem := func(name string) *queue.Item {
		path := filepath.Join(e.media, name)
		testsupport.WriteFile(t, path, 32)
		item, err := e.store.Enqueue(ctx, path, "")
		if err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
		return item
	}
	failed := cfgItem("failed.mp4")
	pending := cfgItem("pending.mp4")
	claimed := cfgItem("claimed.mp4")

	if _, err := e.store.TryClaim(ctx, failed.ID); err != nil {
		t.Fatalf("TryClaim: %v", err)
	}
	if err := e.store.MarkFailed(ctx, failed.ID, "rejected"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	if _, err := e.store.TryClaim(ctx, claimed.ID); err != nil {
		t.Fatalf("TryClaim: %v", err)
	}

	reset, err := e.client.QueueResetFailed([]int64{failed.ID, pending.ID, 999})
	if err != nil {
		t.Fatalf("QueueResetFailed: %v", err)
	}
	if reset.Updated != 1 || len(reset.Items) != 3 {
		t.Fatalf("unexpected reset result: %#v", reset)
	}
	want := []api.ResetItemOutcome{api.ResetItemUpdated, api.ResetItemNotFailed, api.ResetItemNotFound}
	for i, outcome := range want {
		if reset.Items[i].Outcome != outcome {
			t.Fatalf("item %d outcome = %s, want %s", i, reset.Items[i].Outcome, outcome)
		}
	}

	removed, err := e.client.QueueRemove([]int64{pending.ID, claimed.ID})
	if err != nil {
		t.Fatalf("QueueRemove: %v", err)
	}
	if removed.Removed != 1 || removed.Items[1].Outcome != api.RemoveItemInProgress {
		t.Fatalf("unexpected remove result: %#v", removed)
	}
	if _, err := e.client.QueueRemove(nil); err == nil {
		t.Fatal("expected empty remove to be rejected")
	}
}

func TestIPCLogTail(t *testing.T) {
	e := newEnv(t)
	if err := os.MkdirAll(filepath.Dir(e.log), 0o755); err != nil {
		t.Fatalf("mkdir log dir: %v", err)
	}
	content := `{"level":"info","msg":"one","item_id":1}
{"level":"info","msg":"two","item_id":2}
{"level":"warn","msg":"three","item_id":1}
`
	if err := os.WriteFile(e.log, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	resp, err := e.client.LogTail(ipc.LogTailRequest{Offset: -1, Limit: 10, ItemID: 1})
	if err != nil {
		t.Fatalf("LogTail: %v", err)
	}
	if len(resp.Lines) != 2 || !strings.Contains(resp.Lines[1], "three") {
		t.Fatalf("unexpected lines: %#v", resp.Lines)
	}

	start := time.Now()
	follow, err := e.client.LogTail(ipc.LogTailRequest{Offset: resp.Offset, Follow: true, WaitMillis: 300})
	if err != nil {
		t.Fatalf("LogTail follow: %v", err)
	}
	if len(follow.Lines) != 0 || follow.Offset != resp.Offset {
		t.Fatalf("expected no new lines, got %#v", follow)
	}
	if time.Since(start) < 250*time.Millisecond {
		t.Fatal("expected follow to wait for new lines")
	}
}

func TestIPCTestNotificationWithoutTopic(t *testing.T) {
	e := newEnv(t)
	resp, err := e.client.TestNotification()
	if err != nil {
		t.Fatalf("TestNotification: %v", err)
	}
	if resp.Sent {
		t.Fatal("expected notification not sent without a topic")
	}
}
