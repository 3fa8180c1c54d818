package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/askfolio/chat-backend/internal/entity"
	"github.com/askfolio/chat-backend/internal/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// Estimated average cost of one generated answer, used to report cache
// savings in dollars.
const estimatedCostPerAnswer = 0.001

type Handler struct {
	usecase ChatUsecase
	tracker UsageTracker
}

func NewHandler(usecase ChatUsecase, tracker UsageTracker) *Handler {
	return &Handler{
		usecase: usecase,
		tracker: tracker,
	}
}

// Chat handles POST /v1/chat - Answer one message
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx := logger.AddFields(r.Context(), zap.String("action", "Chat"))

	var req entity.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	ctx = logger.WithSession(ctx, req.SessionID)
	ctxzap.Info(ctx, "handling chat message", zap.Int("message_length", len(req.Message)))

	resp, err := h.usecase.Answer(ctx, &req)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// ChatStream handles POST /v1/chat/stream - Answer one message over SSE
func (h *Handler) ChatStream(w http.ResponseWriter, r *http.Request) {
	ctx := logger.AddFields(r.Context(), zap.String("action", "ChatStream"))

	var req entity.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	ctx = logger.WithSession(ctx, req.SessionID)

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.respondError(ctx, w, http.StatusInternalServerError, "streaming unsupported", nil)
		return
	}

	events, err := h.usecase.AnswerStream(ctx, &req)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for ev := range events {
		switch ev.Type {
		case entity.StreamEventChunk:
			fmt.Fprintf(w, "data: %s\n\n", ev.Text)
			flusher.Flush()
		case entity.StreamEventError:
			ctxzap.Error(ctx, "stream failed", zap.Error(ev.Err))
			fmt.Fprint(w, "data: I encountered an error generating the response.\n\n")
			flusher.Flush()
		}
	}

	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

// Stats handles GET /v1/chat/stats - Token usage and cost statistics
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	if sessionID := r.URL.Query().Get("session_id"); sessionID != "" {
		h.respondJSON(w, http.StatusOK, h.tracker.SessionStats(sessionID))
		return
	}
	h.respondJSON(w, http.StatusOK, h.tracker.TotalStats())
}

// CacheStats handles GET /v1/chat/cache/stats
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	stats, enabled := h.usecase.CacheStats()

	h.respondJSON(w, http.StatusOK, map[string]any{
		"cache_enabled":              enabled,
		"stats":                      stats,
		"estimated_cost_savings_usd": float64(stats.Hits) * estimatedCostPerAnswer,
	})
}

// ClearCache handles POST /v1/chat/cache/clear
func (h *Handler) ClearCache(w http.ResponseWriter, r *http.Request) {
	h.usecase.ClearCache()
	ctxzap.Info(r.Context(), "response cache cleared")

	h.respondJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Response cache cleared",
	})
}

// Transcript handles GET /v1/chat/sessions/{id}/transcript - Export history
func (h *Handler) Transcript(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	ctx := logger.AddFields(r.Context(),
		zap.String("session_id", sessionID),
		zap.String("action", "Transcript"),
	)

	rawFormat := r.URL.Query().Get("format")
	if rawFormat == "" {
		rawFormat = string(entity.FormatMarkdown)
	}
	format, err := entity.ParseExportFormat(rawFormat)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	data, contentType, err := h.usecase.Transcript(ctx, sessionID, format)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=transcript-%s.%s", sessionID, format))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// ClearSession handles DELETE /v1/chat/sessions/{id}
func (h *Handler) ClearSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	ctx := logger.AddFields(r.Context(),
		zap.String("session_id", sessionID),
		zap.String("action", "ClearSession"),
	)

	if err := h.usecase.ClearSession(ctx, sessionID); err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "session cleared",
	})
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) respondError(ctx context.Context, w http.ResponseWriter, status int, message string, err error) {
	ctxzap.Error(ctx, message, zap.Error(err))
	h.respondJSON(w, status, entity.ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}

func (h *Handler) handleUsecaseError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, entity.ErrTooManyRequests):
		w.Header().Set("Retry-After", "1")
		h.respondError(ctx, w, http.StatusTooManyRequests, "server is busy, try again shortly", err)
	case errors.Is(err, entity.ErrEmptyMessage), errors.Is(err, entity.ErrMessageTooLong),
		errors.Is(err, entity.ErrUnsupportedFormat), errors.Is(err, entity.ErrMissingField),
		errors.Is(err, entity.ErrInvalidParameter):
		h.respondError(ctx, w, http.StatusBadRequest, "invalid parameter", err)
	case errors.Is(err, entity.ErrSessionNotFound):
		h.respondError(ctx, w, http.StatusNotFound, "resource not found", err)
	default:
		h.respondError(ctx, w, http.StatusInternalServerError, "internal server error", err)
	}
}
