package upload_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"postline/internal/config"
	"postline/internal/publisher"
	"postline/internal/queue"
	"postline/internal/services"
	"postline/internal/session"
	"postline/internal/testsupport"
	"postline/internal/upload"
)

type harness struct {
	cfg       *config.Config
	store     *queue.Store
	sessions  *testsupport.StaticSession
	publisher *testsupport.ScriptedPublisher
}

func newHarness(t *testing.T, maxRetry int, outcomes ...publisher.Outcome) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithMaxRetry(maxRetry))
	return &harness{
		cfg:       cfg,
		store:     testsupport.MustOpenStore(t, cfg),
		sessions:  testsupport.NewStaticSession(),
		publisher: testsupport.NewScriptedPublisher(outcomes...),
	}
}

func (h *harness) coordinator(store upload.Store, opts ...upload.Option) *upload.Coordinator {
	if store == nil {
		store = h.store
	}
	return upload.NewCoordinator(h.cfg, store, h.sessions, h.publisher, opts...)
}

func (h *harness) claimed(t *testing.T, name, caption string) *queue.Item {
	t.Helper()
	item := testsupport.Enqueue(t, h.store, h.cfg, name, caption)
	ok, err := h.store.TryClaim(context.Background(), item.ID)
	if err != nil || !ok {
		t.Fatalf("TryClaim: %v %v", ok, err)
	}
	return testsupport.MustGet(t, h.store, item.ID)
}

func assertPhases(t *testing.T, got []upload.Phase, want ...upload.Phase) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("phases = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("phases = %v, want %v", got, want)
		}
	}
}

func TestRunSuccessPostsItem(t *testing.T) {
	h := newHarness(t, 1, publisher.Success())
	item := h.claimed(t, "x.mp4", "")

	result, err := h.coordinator(nil).Run(context.Background(), item)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	assertPhases(t, result.Phases,
		upload.PhaseStart, upload.PhaseSessionLoaded, upload.PhaseSubmitted, upload.PhaseVerified, upload.PhaseDone)
	if result.Status != queue.StatusPosted || !result.Outcome.Succeeded() {
		t.Fatalf("unexpected result: %#v", result)
	}

	stored := testsupport.MustGet(t, h.store, item.ID)
	if stored.Status != queue.StatusPosted || stored.AttemptCount != 0 || stored.PostedAt == nil {
		t.Fatalf("unexpected stored item: %#v", stored)
	}

	reqs := h.publisher.Requests()
	if len(reqs) != 1 {
		t.Fatalf("expected one submit, got %d", len(reqs))
	}
	if reqs[0].Caption != h.cfg.Upload.DefaultCaption {
		t.Fatalf("expected default caption %q, got %q", h.cfg.Upload.DefaultCaption, reqs[0].Caption)
	}
	if reqs[0].PayloadRef != item.PayloadRef || reqs[0].Session.Empty() || reqs[0].Timeout != h.cfg.SubmitTimeout() {
		t.Fatalf("unexpected request: %#v", reqs[0])
	}
}

func TestRunKeepsExplicitCaption(t *testing.T) {
	h := newHarness(t, 1)
	item := h.claimed(t, "x.mp4", "  my own words  ")
	if _, err := h.coordinator(nil).Run(context.Background(), item); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := h.publisher.Requests()[0].Caption; got != "my own words" {
		t.Fatalf("caption = %q", got)
	}
}

func TestRunTransientRespectsRetryBound(t *testing.T) {
	h := newHarness(t, 1, publisher.Transient("network reset"))
	coord := h.coordinator(nil)
	item := h.claimed(t, "z.mp4", "")

	result, err := coord.Run(context.Background(), item)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != queue.StatusPending || result.Attempts != 1 {
		t.Fatalf("first transient: %#v", result)
	}

	ok, err := h.store.TryClaim(context.Background(), item.ID)
	if err != nil || !ok {
		t.Fatalf("reclaim: %v %v", ok, err)
	}
	item = testsupport.MustGet(t, h.store, item.ID)
	result, err = coord.Run(context.Background(), item)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != queue.StatusFailed || result.Attempts != 2 {
		t.Fatalf("second transient: %#v", result)
	}
	stored := testsupport.MustGet(t, h.store, item.ID)
	if stored.ErrorMessage != "network reset" {
		t.Fatalf("error message = %q", stored.ErrorMessage)
	}
}

func TestRunPermanentFailsWithoutRetry(t *testing.T) {
	h := newHarness(t, 3, publisher.Permanent("video rejected"))
	item := h.claimed(t, "bad.mp4", "")

	result, err := h.coordinator(nil).Run(context.Background(), item)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != queue.StatusFailed || result.Attempts != 0 {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestRunSessionUnavailableRoutesThroughRetry(t *testing.T) {
	h := newHarness(t, 1)
	h.sessions.LoadErr = services.Wrap(services.ErrSessionUnavailable, "session", "load", "jar missing", nil)
	item := h.claimed(t, "x.mp4", "")

	result, err := h.coordinator(nil).Run(context.Background(), item)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	assertPhases(t, result.Phases, upload.PhaseStart, upload.PhaseVerified, upload.PhaseDone)
	if !result.SessionUnavailable || result.Status != queue.StatusPending || result.Attempts != 1 {
		t.Fatalf("unexpected result: %#v", result)
	}
	if h.publisher.Calls() != 0 {
		t.Fatal("publisher must not be called without a session")
	}
}

func TestRunSessionFailingVerification(t *testing.T) {
	h := newHarness(t, 0)
	h.sessions.Invalid = true
	item := h.claimed(t, "x.mp4", "")

	result, err := h.coordinator(nil).Run(context.Background(), item)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.SessionUnavailable || result.Status != queue.StatusFailed || result.Attempts != 1 {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestRunTimeoutIsTransient(t *testing.T) {
	h := newHarness(t, 1, publisher.Success())
	h.publisher.Delay = 10 * time.Second
	item := h.claimed(t, "slow.mp4", "")

	coord := h.coordinator(nil, upload.WithTimings(100*time.Millisecond, 2*time.Second, 0))
	start := time.Now()
	result, err := coord.Run(context.Background(), item)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Fatalf("timeout path took too long: %s", elapsed)
	}
	if !result.TimedOut || result.Outcome.Reason != publisher.ReasonTimeout {
		t.Fatalf("expected timeout outcome, got %#v", result)
	}
	if result.Status != queue.StatusPending || result.Attempts != 1 {
		t.Fatalf("unexpected result: %#v", result)
	}
	if stored := testsupport.MustGet(t, h.store, item.ID); stored.ErrorMessage != "timeout" {
		t.Fatalf("error message = %q", stored.ErrorMessage)
	}
}

func TestRunPanicIsTransient(t *testing.T) {
	h := newHarness(t, 1)
	h.publisher.Panic = "selector not found"
	item := h.claimed(t, "x.mp4", "")

	result, err := h.coordinator(nil).Run(context.Background(), item)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Outcome.Kind != publisher.KindTransient || result.Status != queue.StatusPending {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestRunMissingPayloadIsPermanent(t *testing.T) {
	h := newHarness(t, 3)
	item := h.claimed(t, "gone.mp4", "")
	if err := os.Remove(item.PayloadRef); err != nil {
		t.Fatalf("remove payload: %v", err)
	}

	result, err := h.coordinator(nil).Run(context.Background(), item)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Outcome.Kind != publisher.KindPermanent || result.Status != queue.StatusFailed {
		t.Fatalf("unexpected result: %#v", result)
	}
	if h.publisher.Calls() != 0 {
		t.Fatal("publisher must not be called for a missing payload")
	}
}

func TestRunDirectoryPayloadKeepsReason(t *testing.T) {
	h := newHarness(t, 3)
	item := h.claimed(t, "folder.mp4", "")
	if err := os.Remove(item.PayloadRef); err != nil {
		t.Fatalf("remove payload: %v", err)
	}
	if err := os.Mkdir(item.PayloadRef, 0o755); err != nil {
		t.Fatalf("mkdir payload: %v", err)
	}

	result, err := h.coordinator(nil).Run(context.Background(), item)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Outcome.Kind != publisher.KindPermanent || result.Status != queue.StatusFailed {
		t.Fatalf("unexpected result: %#v", result)
	}
	if !strings.Contains(result.Outcome.Reason, "is a directory") {
		t.Fatalf("reason = %q, want directory detail", result.Outcome.Reason)
	}
}

type panickingLoader struct{}

func (panickingLoader) Load(context.Context) (session.Handle, error) {
	panic("cookie jar decoder blew up")
}

func (panickingLoader) Verify(context.Context, session.Handle) bool { return true }

func TestRunSessionPanicRoutesThroughRetry(t *testing.T) {
	h := newHarness(t, 1, publisher.Success())
	item := h.claimed(t, "x.mp4", "")

	coord := upload.NewCoordinator(h.cfg, h.store, panickingLoader{}, h.publisher)
	result, err := coord.Run(context.Background(), item)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Outcome.Kind != publisher.KindTransient || !strings.Contains(result.Outcome.Reason, "cookie jar decoder blew up") {
		t.Fatalf("unexpected outcome: %#v", result.Outcome)
	}
	stored := testsupport.MustGet(t, h.store, item.ID)
	if stored.Status != queue.StatusPending || stored.AttemptCount != 1 {
		t.Fatalf("item status = %s attempts=%d, want pending with one attempt", stored.Status, stored.AttemptCount)
	}
	if h.publisher.Calls() != 0 {
		t.Fatal("publisher must not be called after a session panic")
	}
}

func TestRunLoadsSessionAfterCallerCancellation(t *testing.T) {
	h := newHarness(t, 1, publisher.Success())
	testsupport.WriteCookies(t, h.cfg.Session.CookiesPath)
	item := h.claimed(t, "x.mp4", "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	coord := upload.NewCoordinator(h.cfg, h.store, session.NewFileLoader(h.cfg), h.publisher)
	result, err := coord.Run(ctx, item)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.SessionUnavailable {
		t.Fatalf("cancellation must not count as a missing session: %#v", result.Outcome)
	}
	if result.Status != queue.StatusPosted || result.Attempts != 0 {
		t.Fatalf("unexpected result: %#v", result)
	}
}

type failingStore struct {
	upload.Store
	err error
}

func (f failingStore) MarkPosted(context.Context, int64) error { return f.err }

func TestRunReportsStoreWriteFailure(t *testing.T) {
	h := newHarness(t, 1, publisher.Success())
	item := h.claimed(t, "x.mp4", "")
	storeErr := services.Wrap(services.ErrStorage, "queue", "mark posted", "", errors.New("disk I/O error"))

	result, err := h.coordinator(failingStore{Store: h.store, err: storeErr}).Run(context.Background(), item)
	if !errors.Is(err, services.ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if result.Reached(upload.PhaseDone) {
		t.Fatalf("done must not be reached when the write fails: %v", result.Phases)
	}
	if stored := testsupport.MustGet(t, h.store, item.ID); stored.Status != queue.StatusInProgress {
		t.Fatalf("expected item to remain in progress, got %s", stored.Status)
	}
}

func TestRunRefreshesHeartbeat(t *testing.T) {
	h := newHarness(t, 1, publisher.Success())
	h.publisher.Delay = 300 * time.Millisecond
	item := h.claimed(t, "x.mp4", "")

	beats := &countingStore{Store: h.store}
	coord := h.coordinator(beats, upload.WithTimings(5*time.Second, 0, 50*time.Millisecond))
	if _, err := coord.Run(context.Background(), item); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if beats.count() == 0 {
		t.Fatal("expected heartbeat updates during submit")
	}
}

type countingStore struct {
	upload.Store
	mu    sync.Mutex
	beats int
}

func (c *countingStore) UpdateHeartbeat(ctx context.Context, id int64) error {
	c.mu.Lock()
	c.beats++
	c.mu.Unlock()
	return c.Store.UpdateHeartbeat(ctx, id)
}

func (c *countingStore) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.beats
}

func TestRunIgnoresCallerCancellationDuringSubmit(t *testing.T) {
	h := newHarness(t, 1, publisher.Success())
	h.publisher.Delay = 150 * time.Millisecond
	item := h.claimed(t, "x.mp4", "")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	result, err := h.coordinator(nil).Run(ctx, item)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != queue.StatusPosted {
		t.Fatalf("expected in-flight upload to finish, got %#v", result)
	}
}
