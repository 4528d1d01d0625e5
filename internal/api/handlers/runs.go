package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/gorilla/mux"

	"github.com/wonny/catalyst/internal/api/stream"
	"github.com/wonny/catalyst/internal/backtest"
	"github.com/wonny/catalyst/internal/brain"
	"github.com/wonny/catalyst/internal/results"
	"github.com/wonny/catalyst/pkg/logger"
)

// RunStore reads persisted runs (results.Repository)
type RunStore interface {
	ListRuns(ctx context.Context, limit int) ([]results.RunRecord, error)
	GetRun(ctx context.Context, runID string) (*results.RunRecord, error)
	GetRows(ctx context.Context, runID string) ([]results.Row, error)
	GetSkips(ctx context.Context, runID string) ([]results.SkipRecord, error)
	GetSignals(ctx context.Context, runID string) ([]results.Signal, error)
}

// Launcher executes one backtest run with a per-outcome observer
type Launcher func(ctx context.Context, variant backtest.Variant, observer backtest.Observer) (*brain.RunResult, error)

// RunHandler handles run API endpoints
// ⭐ SSOT: Run API 핸들러는 이 구조체에서만
type RunHandler struct {
	store   RunStore // nil = 결과 저장 비활성
	launch  Launcher
	hub     *stream.Hub
	running atomic.Bool
	baseCtx context.Context
	logger  *logger.Logger
}

// NewRunHandler creates a new run handler. baseCtx bounds API-triggered runs.
func NewRunHandler(baseCtx context.Context, store RunStore, launch Launcher, hub *stream.Hub, log *logger.Logger) *RunHandler {
	return &RunHandler{
		store:   store,
		launch:  launch,
		hub:     hub,
		baseCtx: baseCtx,
		logger:  log.WithField("module", "api"),
	}
}

// StartRunRequest is the body of POST /api/runs
type StartRunRequest struct {
	Variant string `json:"variant"`
}

// ListRuns lists recent runs
// GET /api/runs?limit=50
func (h *RunHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if !h.storeEnabled(w) {
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			respondError(w, http.StatusBadRequest, "limit must be in [1, 500]")
			return
		}
		limit = n
	}

	runs, err := h.store.ListRuns(r.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list runs")
		respondError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []results.RunRecord{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// GetRun returns one run header with its summary
// GET /api/runs/{id}
func (h *RunHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	if !h.storeEnabled(w) {
		return
	}

	run, err := h.store.GetRun(r.Context(), mux.Vars(r)["id"])
	if h.handleLookupError(w, err, "get run") {
		return
	}
	respondJSON(w, http.StatusOK, run)
}

// GetResults returns the simulated trades of a run
// GET /api/runs/{id}/results
func (h *RunHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	if !h.storeEnabled(w) {
		return
	}

	id := mux.Vars(r)["id"]
	if _, err := h.store.GetRun(r.Context(), id); h.handleLookupError(w, err, "get run") {
		return
	}

	rows, err := h.store.GetRows(r.Context(), id)
	if h.handleLookupError(w, err, "get results") {
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"run_id":  id,
		"results": rows,
		"count":   len(rows),
	})
}

// GetSkips returns the skipped candidates of a run
// GET /api/runs/{id}/skips
func (h *RunHandler) GetSkips(w http.ResponseWriter, r *http.Request) {
	if !h.storeEnabled(w) {
		return
	}

	id := mux.Vars(r)["id"]
	if _, err := h.store.GetRun(r.Context(), id); h.handleLookupError(w, err, "get run") {
		return
	}

	skips, err := h.store.GetSkips(r.Context(), id)
	if h.handleLookupError(w, err, "get skips") {
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"run_id": id,
		"skips":  skips,
		"count":  len(skips),
	})
}

// GetSignals returns the signals feed of a run
// GET /api/runs/{id}/signals
func (h *RunHandler) GetSignals(w http.ResponseWriter, r *http.Request) {
	if !h.storeEnabled(w) {
		return
	}

	signals, err := h.store.GetSignals(r.Context(), mux.Vars(r)["id"])
	if h.handleLookupError(w, err, "get signals") {
		return
	}
	respondJSON(w, http.StatusOK, signals)
}

// StartRun launches a backtest in the background. Progress is streamed on /ws/runs.
// POST /api/runs
func (h *RunHandler) StartRun(w http.ResponseWriter, r *http.Request) {
	var req StartRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	variant, err := backtest.ParseVariant(req.Variant)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	// 동시에 하나의 실행만 허용
	if !h.running.CompareAndSwap(false, true) {
		respondError(w, http.StatusConflict, "a run is already in progress")
		return
	}

	go h.execute(variant)

	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"status":  "accepted",
		"variant": variant,
		"stream":  "/ws/runs",
	})
}

// Running reports whether an API-triggered run is in progress
func (h *RunHandler) Running() bool {
	return h.running.Load()
}

func (h *RunHandler) execute(variant backtest.Variant) {
	defer h.running.Store(false)

	log := h.logger.WithField("variant", variant)
	log.Info("API run started")

	result, err := h.launch(h.baseCtx, variant, h.hub.Observe)
	if err != nil {
		log.WithError(err).Error("API run failed")
		msg := stream.Message{Type: stream.TypeRunFailed, Data: map[string]string{"error": err.Error()}}
		if result != nil {
			msg.RunID = result.RunID
		}
		h.hub.Publish(msg)
		return
	}

	h.hub.Publish(stream.Message{
		Type:  stream.TypeRunFinished,
		RunID: result.RunID,
		Data:  result.Backtest.Summary,
	})
	log.WithField("run_id", result.RunID).Info("API run finished")
}

func (h *RunHandler) storeEnabled(w http.ResponseWriter) bool {
	if h.store == nil {
		respondError(w, http.StatusServiceUnavailable, "result persistence disabled (DATABASE_URL not set)")
		return false
	}
	return true
}

// handleLookupError writes the error response and reports whether one was written
func (h *RunHandler) handleLookupError(w http.ResponseWriter, err error, op string) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, results.ErrNotFound) {
		respondError(w, http.StatusNotFound, "run not found")
		return true
	}
	h.logger.WithError(err).WithField("op", op).Error("Lookup failed")
	respondError(w, http.StatusInternalServerError, "failed to "+op)
	return true
}
