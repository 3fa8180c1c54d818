package generation

import (
	"context"
	"errors"

	"github.com/askfolio/chat-backend/internal/config"
	"github.com/askfolio/chat-backend/internal/entity"
	"github.com/askfolio/chat-backend/internal/pkg/prompts"
	"github.com/askfolio/chat-backend/internal/pkg/tokens"
	"github.com/askfolio/chat-backend/internal/pkg/usage"
	pkghttp "github.com/askfolio/chat-backend/pkg/http"
	"github.com/avast/retry-go/v4"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const contextMessagePrefix = "Relevant information from the portfolio:\n\n"

// FallbackResponse is returned when every generation attempt fails. Callers
// use it to recognize degraded answers (they are never cached).
const FallbackResponse = "I apologize, but I encountered an error. Please try again."

// Generator turns a classified query plus retrieved documents into the final
// answer. Transient upstream failures are retried with backoff; when all
// attempts fail a fixed apology response is returned instead of an error so
// the conversation keeps working.
type Generator struct {
	llm      LLMConnector
	budgeter *tokens.Budgeter
	tracker  *usage.Tracker
	logger   *zap.Logger

	temperature float64
	retryOpts   []retry.Option

	maxContextTokens  int
	maxHistoryTokens  int
	maxResponseTokens int
}

func NewGenerator(
	llm LLMConnector,
	budgeter *tokens.Budgeter,
	openAICfg config.OpenAIConnectorConfig,
	pipeline config.PipelineConfig,
	tracker *usage.Tracker,
	logger *zap.Logger,
) *Generator {
	return &Generator{
		llm:               llm,
		budgeter:          budgeter,
		tracker:           tracker,
		logger:            logger,
		temperature:       openAICfg.Temperature,
		retryOpts:         openAICfg.Retry.ToRetryOptions(),
		maxContextTokens:  pipeline.MaxTokensContext,
		maxHistoryTokens:  pipeline.MaxTokensHistory,
		maxResponseTokens: pipeline.MaxTokensResponse,
	}
}

// Generate produces a complete answer. It never returns an error for
// upstream failures; exhausted retries yield the fallback result.
func (g *Generator) Generate(
	ctx context.Context,
	query string,
	intent entity.Intent,
	docs []entity.RetrievedDocument,
	history []entity.ConversationTurn,
	sessionID string,
) *entity.GenerationResult {
	messages := g.buildMessages(query, intent, docs, history)

	var resp *entity.ChatCompletionResponse

	err := retry.Do(
		func() error {
			var callErr error
			resp, callErr = g.llm.Complete(ctx, &entity.ChatCompletionRequest{
				Model:       g.llm.Model(),
				Messages:    messages,
				Temperature: g.temperature,
				MaxTokens:   g.maxResponseTokens,
			})
			if callErr != nil {
				// A failed attempt still spent prompt tokens upstream; the
				// API reported no usage, so record the local estimate with
				// zero completion tokens.
				g.tracker.Track(g.estimatePromptTokens(messages), 0, g.llm.Model(), usage.TypeChat, sessionID)
			}
			return callErr
		},
		append(g.retryOpts,
			retry.Context(ctx),
			retry.RetryIf(isTransient),
			retry.OnRetry(func(attempt uint, err error) {
				ctxzap.Warn(ctx, "generation attempt failed, retrying",
					zap.Uint("attempt", attempt+1),
					zap.Error(err),
				)
			}),
		)...,
	)
	if err != nil {
		ctxzap.Error(ctx, "generation failed after retries", zap.Error(err))
		return &entity.GenerationResult{
			Text:   FallbackResponse,
			Intent: intent,
		}
	}

	g.tracker.Track(
		resp.Usage.PromptTokens,
		resp.Usage.CompletionTokens,
		g.llm.Model(),
		usage.TypeChat,
		sessionID,
	)

	text := ""
	if len(resp.Choices) > 0 {
		text = resp.Choices[0].Message.Content
	}

	return &entity.GenerationResult{
		Text:             text,
		Intent:           intent,
		Suggestions:      prompts.Suggestions(intent),
		Sources:          collectSources(docs),
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}
}

// GenerateStream produces the answer as a stream of events: one chunk event
// per delta, then a done event carrying the assembled text. Streaming is not
// retried; a failure mid-stream ends with an error event.
func (g *Generator) GenerateStream(
	ctx context.Context,
	query string,
	intent entity.Intent,
	docs []entity.RetrievedDocument,
	history []entity.ConversationTurn,
	sessionID string,
) <-chan entity.StreamEvent {
	events := make(chan entity.StreamEvent)

	go func() {
		defer close(events)

		messages := g.buildMessages(query, intent, docs, history)

		var full []byte
		err := g.llm.CompleteStream(ctx, &entity.ChatCompletionRequest{
			Model:       g.llm.Model(),
			Messages:    messages,
			Temperature: g.temperature,
			MaxTokens:   g.maxResponseTokens,
			Stream:      true,
		}, func(text string) error {
			full = append(full, text...)
			select {
			case events <- entity.StreamEvent{Type: entity.StreamEventChunk, Text: text}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil {
			ctxzap.Error(ctx, "streaming generation failed", zap.Error(err))
			select {
			case events <- entity.StreamEvent{Type: entity.StreamEventError, Err: err}:
			case <-ctx.Done():
			}
			return
		}

		// The streaming API reports no usage; estimate with the local codec.
		completionTokens := g.budgeter.Count(string(full))
		g.tracker.Track(g.estimatePromptTokens(messages), completionTokens, g.llm.Model(), usage.TypeChat, sessionID)

		select {
		case events <- entity.StreamEvent{Type: entity.StreamEventDone, Text: string(full)}:
		case <-ctx.Done():
		}
	}()

	return events
}

func (g *Generator) buildMessages(
	query string,
	intent entity.Intent,
	docs []entity.RetrievedDocument,
	history []entity.ConversationTurn,
) []entity.ChatMessage {
	messages := []entity.ChatMessage{
		{Role: entity.RoleSystem, Content: prompts.SystemPrompt(intent)},
	}

	if ragContext := g.budgeter.PrepareContext(docs, g.maxContextTokens); ragContext != "" {
		messages = append(messages, entity.ChatMessage{
			Role:    entity.RoleSystem,
			Content: contextMessagePrefix + ragContext,
		})
	}

	for _, turn := range g.budgeter.PrepareHistory(history, g.maxHistoryTokens) {
		messages = append(messages,
			entity.ChatMessage{Role: entity.RoleUser, Content: turn.User},
			entity.ChatMessage{Role: entity.RoleAssistant, Content: turn.Assistant},
		)
	}

	return append(messages, entity.ChatMessage{Role: entity.RoleUser, Content: query})
}

func (g *Generator) estimatePromptTokens(messages []entity.ChatMessage) int {
	total := 0
	for _, m := range messages {
		total += g.budgeter.Count(m.Content)
	}
	return total
}

// isTransient reports whether the error is worth another attempt: rate
// limiting, server-side failures, or network-level errors.
func isTransient(err error) bool {
	var httpErr *pkghttp.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == 429 || httpErr.StatusCode >= 500
	}

	var netErr *pkghttp.NetworkError
	return errors.As(err, &netErr)
}

func collectSources(docs []entity.RetrievedDocument) []string {
	var sources []string
	seen := make(map[string]bool, len(docs))

	for _, doc := range docs {
		if doc.Source == "" || seen[doc.Source] {
			continue
		}
		seen[doc.Source] = true
		sources = append(sources, doc.Source)
	}

	return sources
}
