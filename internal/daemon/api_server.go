package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"postline/internal/api"
	"postline/internal/config"
	"postline/internal/health"
	"postline/internal/logging"
	"postline/internal/queue"
	"postline/internal/schedule"
	"postline/internal/services"
)

const maxRequestBody = 64 << 10

type apiServer struct {
	bind     string
	logger   *slog.Logger
	daemon   *Daemon
	queueSvc *api.QueueService
	handler  http.Handler

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}

	srv := &apiServer{
		bind:     bind,
		logger:   logger,
		daemon:   d,
		queueSvc: api.NewQueueService(d.store),
	}

	token := cfg.Paths.APIToken
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", authMiddleware(token, srv.handleStatus))
	mux.HandleFunc("GET /api/queue", authMiddleware(token, srv.handleQueue))
	mux.HandleFunc("POST /api/queue", authMiddleware(token, srv.handleEnqueue))
	mux.HandleFunc("GET /api/queue/{id}", authMiddleware(token, srv.handleQueueItem))
	mux.HandleFunc("DELETE /api/queue/{id}", authMiddleware(token, srv.handleQueueRemove))
	mux.HandleFunc("POST /api/queue/{id}/reset", authMiddleware(token, srv.handleQueueReset))
	mux.HandleFunc("POST /api/run", authMiddleware(token, srv.handleRunNow))
	mux.HandleFunc("GET /api/schedule", authMiddleware(token, srv.handleSchedule))
	mux.HandleFunc("GET /healthz", srv.handleHealthz)
	if d.metrics != nil {
		mux.Handle("GET /metrics", authMiddleware(token, d.metrics.Handler().ServeHTTP))
	}
	srv.handler = mux

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.SubmitTimeout() + cfg.AbortGrace() + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// APIAddress returns the bound HTTP address, or "" when the API is disabled
// or not yet listening.
func (d *Daemon) APIAddress() string {
	if d.api == nil || d.api.listener == nil {
		return ""
	}
	return d.api.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, APIStatus(s.daemon.Status(r.Context())))
}

func (s *apiServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	records := health.Collect(r.Context(), s.daemon.checkers...)
	code := http.StatusOK
	if !s.daemon.Running() || !health.AllReady(records) {
		code = http.StatusServiceUnavailable
	}
	s.writeJSON(w, code, map[string]any{
		"running":    s.daemon.Running(),
		"components": api.FromHealth(records),
	})
}

func (s *apiServer) handleQueue(w http.ResponseWriter, r *http.Request) {
	var statuses []queue.Status
	for _, value := range r.URL.Query()["status"] {
		for _, part := range strings.Split(value, ",") {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			status, err := queue.ParseStatus(trimmed)
			if err != nil {
				s.writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			statuses = append(statuses, status)
		}
	}

	items, err := s.queueSvc.List(r.Context(), statuses...)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	if items == nil {
		items = []api.QueueItem{}
	}
	s.writeJSON(w, http.StatusOK, api.QueueListResponse{Items: items})
}

func (s *apiServer) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	var req api.EnqueueRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = "api"
	}
	item, err := s.daemon.Enqueue(r.Context(), req.PayloadRef, req.Caption, source, req.Import)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.QueueItemResponse{Item: api.FromQueueItem(item)})
}

func (s *apiServer) handleQueueItem(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	item, err := s.queueSvc.Describe(r.Context(), id)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	if item == nil {
		s.writeError(w, http.StatusNotFound, "queue item not found")
		return
	}
	s.writeJSON(w, http.StatusOK, api.QueueItemResponse{Item: *item})
}

func (s *apiServer) handleQueueRemove(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	result, err := api.RemoveItemsByID(r.Context(), s.daemon.store, []int64{id})
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	switch result.Items[0].Outcome {
	case api.RemoveItemNotFound:
		s.writeError(w, http.StatusNotFound, "queue item not found")
	case api.RemoveItemInProgress:
		s.writeError(w, http.StatusConflict, "queue item is in progress")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *apiServer) handleQueueReset(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	result, err := api.ResetFailedItemsByID(r.Context(), s.daemon.store, []int64{id})
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	switch result.Items[0].Outcome {
	case api.ResetItemNotFound:
		s.writeError(w, http.StatusNotFound, "queue item not found")
		return
	case api.ResetItemNotFailed:
		s.writeError(w, http.StatusConflict, fmt.Sprintf("queue item is %s, not failed", result.Items[0].PriorStatus))
		return
	}
	s.handleQueueItem(w, r)
}

func (s *apiServer) handleRunNow(w http.ResponseWriter, r *http.Request) {
	report, err := s.daemon.RunNow(r.Context())
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.RunNowResponse{Firing: api.FromFiringReport(report)})
}

func (s *apiServer) handleSchedule(w http.ResponseWriter, _ *http.Request) {
	status := s.daemon.scheduler.Status()
	s.writeJSON(w, http.StatusOK, api.ScheduleResponse{
		Timezone: status.Timezone,
		Entries:  api.FromScheduleEntries(s.daemon.Schedule()),
	})
}

func (s *apiServer) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		s.writeError(w, http.StatusBadRequest, "invalid queue item id")
		return 0, false
	}
	return id, true
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *apiServer) writeFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, schedule.ErrNotRunning):
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.writeError(w, http.StatusGatewayTimeout, err.Error())
	default:
		s.log().Warn("api request failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "api_request_failed"),
		)
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String(logging.FieldComponent, "api-server"))
	}
	return logging.NewNop()
}
