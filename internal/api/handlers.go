package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/recipeforge/recipeforge/internal/config"
	"github.com/recipeforge/recipeforge/internal/executor"
	"github.com/recipeforge/recipeforge/internal/notify"
	"github.com/recipeforge/recipeforge/internal/recipectx"
	"github.com/recipeforge/recipeforge/internal/runlog"
)

// Handlers holds the dependencies every route needs: the run store, the
// webhook notifier, the executor recipes run against, and a registry of
// in-flight cancel funcs keyed by run ID. runlog.Store itself only tracks
// status, not live context.CancelFunc values, so SubmitRun/CancelRun share
// this registry the same way the teacher's workflow.Engine keeps a
// runID -> cancel map alongside its run store.
type Handlers struct {
	Store    *runlog.Store
	Notifier *notify.Service
	Executor *executor.Executor
	Cfg      *config.Config

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewHandlers builds a Handlers with its cancel registry initialized.
func NewHandlers(store *runlog.Store, notifier *notify.Service, exec *executor.Executor, cfg *config.Config) *Handlers {
	return &Handlers{
		Store:    store,
		Notifier: notifier,
		Executor: exec,
		Cfg:      cfg,
		cancels:  make(map[string]context.CancelFunc),
	}
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type submitRunRequest struct {
	Recipe  interface{}            `json:"recipe"`
	Context map[string]interface{} `json:"context"`
}

// SubmitRun accepts a recipe document (any of the Executor's accepted
// shapes, marshaled back to a map or string by the JSON decoder) plus
// optional initial context artifacts, starts execution in the
// background, and returns its run ID immediately — the same
// async-start/poll-later contract as the teacher's BakeRecipe handler.
func (h *Handlers) SubmitRun(w http.ResponseWriter, r *http.Request) {
	var req submitRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Recipe == nil {
		respondError(w, http.StatusBadRequest, "recipe is required")
		return
	}

	runID := uuid.New().String()
	rec := h.Store.Create(runID, "")

	rc := recipectx.New()
	for k, v := range req.Context {
		rc.Set(k, v)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	h.mu.Lock()
	h.cancels[runID] = cancel
	h.mu.Unlock()

	h.Store.SetRunning(runID)
	h.Notifier.Dispatch(runCtx, notify.Event{
		Type: notify.EventRunStarted, RunID: runID, OccurredAt: time.Now().UTC(),
	})

	go h.run(runCtx, runID, req.Recipe, rc)

	log.Info().Str("run_id", runID).Msg("run submitted")
	respondJSON(w, http.StatusAccepted, map[string]string{
		"run_id": runID,
		"status": string(rec.Status),
		"poll":   "/runs/" + runID,
	})
}

func (h *Handlers) run(ctx context.Context, runID string, recipe interface{}, rc *recipectx.Context) {
	defer func() {
		h.mu.Lock()
		delete(h.cancels, runID)
		h.mu.Unlock()
	}()

	err := h.Executor.Execute(ctx, recipe, rc)
	h.Store.Complete(runID, rc.AsMapping(), err)

	evt := notify.Event{RunID: runID, OccurredAt: time.Now().UTC()}
	switch {
	case err == nil:
		evt.Type = notify.EventRunCompleted
	case ctx.Err() != nil:
		evt.Type = notify.EventRunCanceled
	default:
		evt.Type = notify.EventRunFailed
		evt.Error = err.Error()
	}
	h.Notifier.Dispatch(context.Background(), evt)
}

func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	rec, err := h.Store.Get(runID)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.Store.List())
}

// CancelRun cancels an in-flight run's context. A run with no registered
// cancel func (already completed, or unknown) reports 404.
func (h *Handlers) CancelRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	h.mu.Lock()
	cancel, ok := h.cancels[runID]
	h.mu.Unlock()
	if !ok {
		respondError(w, http.StatusNotFound, "run not found or already finished: "+runID)
		return
	}
	cancel()

	if err := h.Store.Cancel(runID); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"run_id": runID, "status": "canceled"})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
