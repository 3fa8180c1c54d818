package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/askfolio/chat-backend/internal/entity"
	"github.com/askfolio/chat-backend/internal/pkg/cache"
	"github.com/askfolio/chat-backend/internal/pkg/usage"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUsecase struct {
	answerResp    *entity.ChatResponse
	answerErr     error
	streamEvents  []entity.StreamEvent
	streamErr     error
	transcript    []byte
	contentType   string
	transcriptErr error
	clearErr      error
	cacheStats    cache.Stats
	cacheEnabled  bool

	clearedSessions []string
	cacheCleared    bool
}

func (s *stubUsecase) Answer(ctx context.Context, req *entity.ChatRequest) (*entity.ChatResponse, error) {
	return s.answerResp, s.answerErr
}

func (s *stubUsecase) AnswerStream(ctx context.Context, req *entity.ChatRequest) (<-chan entity.StreamEvent, error) {
	if s.streamErr != nil {
		return nil, s.streamErr
	}
	events := make(chan entity.StreamEvent, len(s.streamEvents))
	for _, ev := range s.streamEvents {
		events <- ev
	}
	close(events)
	return events, nil
}

func (s *stubUsecase) Transcript(ctx context.Context, sessionID string, format entity.ExportFormat) ([]byte, string, error) {
	return s.transcript, s.contentType, s.transcriptErr
}

func (s *stubUsecase) ClearSession(ctx context.Context, sessionID string) error {
	if s.clearErr != nil {
		return s.clearErr
	}
	s.clearedSessions = append(s.clearedSessions, sessionID)
	return nil
}

func (s *stubUsecase) CacheStats() (cache.Stats, bool) {
	return s.cacheStats, s.cacheEnabled
}

func (s *stubUsecase) ClearCache() {
	s.cacheCleared = true
}

type stubTracker struct {
	sessionStats usage.Stats
	totalStats   usage.Stats

	lastSessionID string
}

func (s *stubTracker) SessionStats(sessionID string) usage.Stats {
	s.lastSessionID = sessionID
	return s.sessionStats
}

func (s *stubTracker) TotalStats() usage.Stats {
	return s.totalStats
}

func setupTestRouter(uc ChatUsecase, tracker UsageTracker) http.Handler {
	r := chi.NewRouter()
	RegisterRoutes(r, NewHandler(uc, tracker))
	return r
}

func TestHandler_Chat(t *testing.T) {
	uc := &stubUsecase{
		answerResp: &entity.ChatResponse{
			Response:  "He has built several backend systems.",
			Intent:    "experience_query",
			SessionID: "s-1",
			Sources:   []string{"experience.md"},
		},
	}
	router := setupTestRouter(uc, &stubTracker{})

	body, _ := json.Marshal(entity.ChatRequest{Message: "What has he built?", SessionID: "s-1"})
	req := httptest.NewRequest(http.MethodPost, "/v1/chat", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp entity.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "He has built several backend systems.", resp.Response)
	assert.Equal(t, "experience_query", resp.Intent)
}

func TestHandler_Chat_InvalidBody(t *testing.T) {
	router := setupTestRouter(&stubUsecase{}, &stubTracker{})

	req := httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader("not json"))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var errResp entity.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
	assert.Equal(t, "Bad Request", errResp.Error)
}

func TestHandler_Chat_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"empty message", entity.ErrEmptyMessage, http.StatusBadRequest},
		{"message too long", entity.ErrMessageTooLong, http.StatusBadRequest},
		{"pipeline saturated", entity.ErrTooManyRequests, http.StatusTooManyRequests},
		{"internal failure", assert.AnError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupTestRouter(&stubUsecase{answerErr: tt.err}, &stubTracker{})

			body, _ := json.Marshal(entity.ChatRequest{Message: "hello"})
			req := httptest.NewRequest(http.MethodPost, "/v1/chat", bytes.NewReader(body))
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestHandler_Chat_RetryAfterOnSaturation(t *testing.T) {
	router := setupTestRouter(&stubUsecase{answerErr: entity.ErrTooManyRequests}, &stubTracker{})

	body, _ := json.Marshal(entity.ChatRequest{Message: "hello"})
	req := httptest.NewRequest(http.MethodPost, "/v1/chat", bytes.NewReader(body))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestHandler_ChatStream(t *testing.T) {
	uc := &stubUsecase{
		streamEvents: []entity.StreamEvent{
			{Type: entity.StreamEventChunk, Text: "Hello"},
			{Type: entity.StreamEventChunk, Text: " world"},
			{Type: entity.StreamEventDone},
		},
	}
	router := setupTestRouter(uc, &stubTracker{})

	body, _ := json.Marshal(entity.ChatRequest{Message: "hi", SessionID: "s-1"})
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/stream", bytes.NewReader(body))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	streamed := w.Body.String()
	assert.Contains(t, streamed, "data: Hello\n\n")
	assert.Contains(t, streamed, "data:  world\n\n")
	assert.True(t, strings.HasSuffix(streamed, "data: [DONE]\n\n"))
}

func TestHandler_ChatStream_ErrorEvent(t *testing.T) {
	uc := &stubUsecase{
		streamEvents: []entity.StreamEvent{
			{Type: entity.StreamEventError, Err: assert.AnError},
		},
	}
	router := setupTestRouter(uc, &stubTracker{})

	body, _ := json.Marshal(entity.ChatRequest{Message: "hi"})
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/stream", bytes.NewReader(body))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "data: I encountered an error generating the response.\n\n")
	assert.True(t, strings.HasSuffix(w.Body.String(), "data: [DONE]\n\n"))
}

func TestHandler_Stats(t *testing.T) {
	tracker := &stubTracker{
		sessionStats: usage.Stats{TotalTokens: 100, RequestCount: 2},
		totalStats:   usage.Stats{TotalTokens: 500, RequestCount: 10},
	}
	router := setupTestRouter(&stubUsecase{}, tracker)

	t.Run("session scoped", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/chat/stats?session_id=s-1", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "s-1", tracker.lastSessionID)

		var stats usage.Stats
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
		assert.Equal(t, 100, stats.TotalTokens)
	})

	t.Run("global", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/chat/stats", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var stats usage.Stats
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
		assert.Equal(t, 500, stats.TotalTokens)
	})
}

func TestHandler_CacheStats(t *testing.T) {
	uc := &stubUsecase{
		cacheStats:   cache.Stats{Hits: 40, Misses: 60, Entries: 20, HitRatePercent: 40},
		cacheEnabled: true,
	}
	router := setupTestRouter(uc, &stubTracker{})

	req := httptest.NewRequest(http.MethodGet, "/v1/chat/cache/stats", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["cache_enabled"])
	assert.InDelta(t, 0.04, resp["estimated_cost_savings_usd"], 1e-9)
}

func TestHandler_ClearCache(t *testing.T) {
	uc := &stubUsecase{}
	router := setupTestRouter(uc, &stubTracker{})

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/cache/clear", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, uc.cacheCleared)
}

func TestHandler_Transcript(t *testing.T) {
	uc := &stubUsecase{
		transcript:  []byte("# Conversation Transcript\n"),
		contentType: "text/markdown",
	}
	router := setupTestRouter(uc, &stubTracker{})

	req := httptest.NewRequest(http.MethodGet, "/v1/chat/sessions/s-1/transcript?format=md", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/markdown", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename=transcript-s-1.md`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "# Conversation Transcript\n", w.Body.String())
}

func TestHandler_Transcript_Errors(t *testing.T) {
	t.Run("unsupported format", func(t *testing.T) {
		router := setupTestRouter(&stubUsecase{}, &stubTracker{})

		req := httptest.NewRequest(http.MethodGet, "/v1/chat/sessions/s-1/transcript?format=docx", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("session not found", func(t *testing.T) {
		router := setupTestRouter(&stubUsecase{transcriptErr: entity.ErrSessionNotFound}, &stubTracker{})

		req := httptest.NewRequest(http.MethodGet, "/v1/chat/sessions/unknown/transcript", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestHandler_ClearSession(t *testing.T) {
	uc := &stubUsecase{}
	router := setupTestRouter(uc, &stubTracker{})

	req := httptest.NewRequest(http.MethodDelete, "/v1/chat/sessions/s-1", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"s-1"}, uc.clearedSessions)
}
