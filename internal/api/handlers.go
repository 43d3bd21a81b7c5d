package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"glove-backend/internal/history"
	"glove-backend/internal/interpret"
	"glove-backend/internal/models"
)

// DefaultHistoryLimit is used when ?limit is absent or unusable.
const DefaultHistoryLimit = 20

// Interpreter is the interpretation service as seen by the router.
type Interpreter interface {
	Interpret(ctx context.Context, req *models.InterpretationRequest) (*models.InterpretationResult, error)
}

// ClientCounter reports the realtime registry size.
type ClientCounter interface {
	Count() int
}

// InterpretationObserver records interpretation outcomes. *metrics.Metrics
// satisfies it.
type InterpretationObserver interface {
	ObserveInterpretation(strategy string, err error, d time.Duration)
}

// InterpretationNotifier is told about every saved record. It must not block.
type InterpretationNotifier interface {
	InterpretationSaved(rec *models.InterpretationRecord)
}

// Config holds the optional collaborators and tunables of Handler.
type Config struct {
	DefaultLimit     int           // zero means DefaultHistoryLimit
	InferenceTimeout time.Duration // zero means no deadline
	Observer         InterpretationObserver
	Notifier         InterpretationNotifier
}

// Handler serves the REST endpoints.
type Handler struct {
	store       history.Store
	interpreter Interpreter
	clients     ClientCounter
	logger      *slog.Logger

	defaultLimit int
	timeout      time.Duration
	observer     InterpretationObserver
	notifier     InterpretationNotifier
	now          func() time.Time
}

func NewHandler(store history.Store, interpreter Interpreter, clients ClientCounter, cfg Config, logger *slog.Logger) *Handler {
	limit := cfg.DefaultLimit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &Handler{
		store:        store,
		interpreter:  interpreter,
		clients:      clients,
		logger:       logger,
		defaultLimit: limit,
		timeout:      cfg.InferenceTimeout,
		observer:     cfg.Observer,
		notifier:     cfg.Notifier,
		now:          time.Now,
	}
}

// errorResponse is the body of every non-2xx reply.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// interpretResponse is the interpretation result plus the id it was saved under.
type interpretResponse struct {
	*models.InterpretationResult
	ID string `json:"id"`
}

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status    string          `json:"status"`
	Timestamp string          `json:"timestamp"`
	WebSocket WebSocketHealth `json:"websocket"`
}

type WebSocketHealth struct {
	Clients int `json:"clients"`
}

// InterpretGesture handles POST /api/interpret-gesture. A record is written
// only when interpretation succeeds.
func (h *Handler) InterpretGesture(w http.ResponseWriter, r *http.Request) {
	var req models.InterpretationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body", Message: err.Error()})
		return
	}

	// The call and the history write finish even if the client goes away.
	ctx := context.WithoutCancel(r.Context())
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	strategy := interpret.StrategyFor(&req)
	start := time.Now()
	result, err := h.interpreter.Interpret(ctx, &req)
	if h.observer != nil {
		h.observer.ObserveInterpretation(strategy, err, time.Since(start))
	}
	if err != nil {
		h.logger.Error("interpretation_failed", "strategy", strategy, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to interpret gesture", Message: failureMessage(err)})
		return
	}

	saved, err := h.store.Save(ctx, models.NewRecord(&req, result))
	if err != nil {
		h.logger.Error("interpretation_save_failed", "strategy", strategy, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to interpret gesture", Message: err.Error()})
		return
	}
	if h.notifier != nil {
		h.notifier.InterpretationSaved(saved)
	}

	h.logger.Info("gesture_interpreted",
		"id", saved.ID,
		"strategy", strategy,
		"text", result.InterpretedText,
		"confidence", result.Confidence,
	)
	writeJSON(w, http.StatusOK, interpretResponse{InterpretationResult: result, ID: saved.ID})
}

// GestureHistory handles GET /api/gesture-history?limit=N.
func (h *Handler) GestureHistory(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r.URL.Query().Get("limit"), h.defaultLimit)

	records, err := h.store.List(r.Context(), limit)
	if err != nil {
		h.logger.Error("history_list_failed", "limit", limit, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to fetch gesture history", Message: err.Error()})
		return
	}
	if records == nil {
		records = []*models.InterpretationRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// GetGesture handles GET /api/gesture/{id}.
func (h *Handler) GetGesture(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	rec, found, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.logger.Error("history_get_failed", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to fetch gesture", Message: err.Error()})
		return
	}
	if !found {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Gesture interpretation not found"})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Health handles GET /api/health.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: h.now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		WebSocket: WebSocketHealth{Clients: h.clients.Count()},
	})
}

// parseLimit falls back to def for empty, non-numeric or non-positive input.
func parseLimit(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// failureMessage unwraps an InterpretationFailure to its cause.
func failureMessage(err error) string {
	var failure *interpret.InterpretationFailure
	if errors.As(err, &failure) && failure.Cause != nil {
		return failure.Cause.Error()
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
