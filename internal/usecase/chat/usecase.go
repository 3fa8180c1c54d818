package chat

import (
	"context"
	"strings"
	"time"

	"github.com/askfolio/chat-backend/internal/config"
	"github.com/askfolio/chat-backend/internal/entity"
	"github.com/askfolio/chat-backend/internal/pkg/cache"
	"github.com/askfolio/chat-backend/internal/pkg/formatter"
	"github.com/askfolio/chat-backend/internal/repository"
	"github.com/askfolio/chat-backend/internal/usecase/generation"
	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

const maxMessageLength = 1000

// ChatUsecase orchestrates the answer pipeline: admission, classification,
// cache lookup, retrieval, generation and session bookkeeping.
type ChatUsecase struct {
	classifier IntentClassifier
	retriever  Retriever
	generator  Generator
	sessions   repository.SessionRepository
	cache      *cache.ResponseCache
	formats    *formatter.Factory
	logger     *zap.Logger

	gate           *semaphore.Weighted
	requestTimeout time.Duration
	cacheEnabled   bool
}

func NewUsecase(
	classifier IntentClassifier,
	retriever Retriever,
	generator Generator,
	sessions repository.SessionRepository,
	responseCache *cache.ResponseCache,
	pipeline config.PipelineConfig,
	logger *zap.Logger,
) *ChatUsecase {
	return &ChatUsecase{
		classifier:     classifier,
		retriever:      retriever,
		generator:      generator,
		sessions:       sessions,
		cache:          responseCache,
		formats:        formatter.NewFactory(),
		logger:         logger,
		gate:           semaphore.NewWeighted(pipeline.MaxConcurrentRequests),
		requestTimeout: pipeline.RequestTimeout,
		cacheEnabled:   pipeline.CacheEnabled && responseCache != nil,
	}
}

// Answer runs the full pipeline for one message. A saturated gate rejects
// immediately rather than queueing, so the caller can signal backpressure.
func (uc *ChatUsecase) Answer(ctx context.Context, req *entity.ChatRequest) (*entity.ChatResponse, error) {
	message, sessionID, err := uc.admit(req)
	if err != nil {
		return nil, err
	}

	if !uc.gate.TryAcquire(1) {
		ctxzap.Warn(ctx, "pipeline gate saturated, rejecting request")
		return nil, entity.ErrTooManyRequests
	}
	defer uc.gate.Release(1)

	ctx, cancel := context.WithTimeout(ctx, uc.requestTimeout)
	defer cancel()

	history, err := uc.sessions.History(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	qctx := uc.resolveContext(req, history)
	intent := uc.classifier.Classify(ctx, message, qctx, sessionID)

	if uc.cacheEnabled {
		if cached, ok := uc.cache.Get(cache.Key(message, intent)); ok {
			ctxzap.Info(ctx, "cache hit", zap.String("intent", intent.String()))
			uc.appendTurn(ctx, sessionID, message, cached.Text, intent)
			return toChatResponse(cached, intent, sessionID), nil
		}
	}

	// Retrieval failures degrade to an answer without portfolio context.
	docs, err := uc.retriever.Retrieve(ctx, message, intent, sessionID, true)
	if err != nil {
		ctxzap.Warn(ctx, "retrieval failed, answering without context", zap.Error(err))
		docs = nil
	}

	result := uc.generator.Generate(ctx, message, intent, docs, history, sessionID)

	uc.appendTurn(ctx, sessionID, message, result.Text, intent)

	if uc.cacheEnabled && result.Text != generation.FallbackResponse {
		uc.cache.Set(cache.Key(message, intent), *result)
	}

	return toChatResponse(result, intent, sessionID), nil
}

// AnswerStream is the streaming sibling of Answer. Reranking and the
// response cache are skipped to keep time-to-first-chunk low; the session is
// updated once the stream completes.
func (uc *ChatUsecase) AnswerStream(ctx context.Context, req *entity.ChatRequest) (<-chan entity.StreamEvent, error) {
	message, sessionID, err := uc.admit(req)
	if err != nil {
		return nil, err
	}

	if !uc.gate.TryAcquire(1) {
		ctxzap.Warn(ctx, "pipeline gate saturated, rejecting stream request")
		return nil, entity.ErrTooManyRequests
	}

	ctx, cancel := context.WithTimeout(ctx, uc.requestTimeout)

	history, histErr := uc.sessions.History(ctx, sessionID)
	if histErr != nil {
		cancel()
		uc.gate.Release(1)
		return nil, histErr
	}

	qctx := uc.resolveContext(req, history)
	intent := uc.classifier.Classify(ctx, message, qctx, sessionID)

	docs, retErr := uc.retriever.Retrieve(ctx, message, intent, sessionID, false)
	if retErr != nil {
		ctxzap.Warn(ctx, "retrieval failed in stream, answering without context", zap.Error(retErr))
		docs = nil
	}

	out := make(chan entity.StreamEvent)
	go func() {
		defer close(out)
		defer uc.gate.Release(1)
		defer cancel()

		for ev := range uc.generator.GenerateStream(ctx, message, intent, docs, history, sessionID) {
			if ev.Type == entity.StreamEventDone {
				uc.appendTurn(ctx, sessionID, message, ev.Text, intent)
			}

			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// Transcript exports the session history in the requested format. A session
// with no live history is reported as not found.
func (uc *ChatUsecase) Transcript(ctx context.Context, sessionID string, format entity.ExportFormat) ([]byte, string, error) {
	f, err := uc.formats.Create(format)
	if err != nil {
		return nil, "", err
	}

	history, err := uc.sessions.History(ctx, sessionID)
	if err != nil {
		return nil, "", err
	}
	if len(history) == 0 {
		return nil, "", entity.ErrSessionNotFound
	}

	data, err := f.Format(history)
	if err != nil {
		return nil, "", err
	}

	return data, f.ContentType(), nil
}

// ClearSession drops the conversation history of one session.
func (uc *ChatUsecase) ClearSession(ctx context.Context, sessionID string) error {
	return uc.sessions.Clear(ctx, sessionID)
}

// CacheStats reports cache counters and whether caching is active.
func (uc *ChatUsecase) CacheStats() (cache.Stats, bool) {
	if uc.cache == nil {
		return cache.Stats{}, false
	}
	return uc.cache.Stats(), uc.cacheEnabled
}

// ClearCache drops every cached response.
func (uc *ChatUsecase) ClearCache() {
	if uc.cache != nil {
		uc.cache.Clear()
	}
}

func (uc *ChatUsecase) admit(req *entity.ChatRequest) (message, sessionID string, err error) {
	message = strings.TrimSpace(req.Message)
	if message == "" {
		return "", "", entity.ErrEmptyMessage
	}
	if len(message) > maxMessageLength {
		return "", "", entity.ErrMessageTooLong
	}

	sessionID = req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	return message, sessionID, nil
}

// resolveContext fills the previous topic from session history when the
// client did not provide one.
func (uc *ChatUsecase) resolveContext(req *entity.ChatRequest, history []entity.ConversationTurn) entity.QueryContext {
	var qctx entity.QueryContext
	if req.Context != nil {
		qctx = *req.Context
	}
	if qctx.PreviousTopic == "" && len(history) > 0 {
		qctx.PreviousTopic = history[len(history)-1].Intent.String()
	}
	return qctx
}

func (uc *ChatUsecase) appendTurn(ctx context.Context, sessionID, message, response string, intent entity.Intent) {
	err := uc.sessions.Append(ctx, sessionID, entity.ConversationTurn{
		User:      message,
		Assistant: response,
		Intent:    intent,
		Timestamp: time.Now(),
	})
	if err != nil {
		ctxzap.Warn(ctx, "failed to append session turn", zap.Error(err))
	}
}

func toChatResponse(result *entity.GenerationResult, intent entity.Intent, sessionID string) *entity.ChatResponse {
	return &entity.ChatResponse{
		Response:    result.Text,
		Suggestions: result.Suggestions,
		Intent:      intent.String(),
		SessionID:   sessionID,
		Sources:     result.Sources,
		Cached:      result.Cached,
	}
}
