package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/askfolio/chat-backend/internal/config"
	"github.com/askfolio/chat-backend/internal/entity"
	"github.com/askfolio/chat-backend/internal/integration/common"
	pkghttp "github.com/askfolio/chat-backend/pkg/http"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	chatCompletionsEndpoint = "/chat/completions"
	embeddingsEndpoint      = "/embeddings"
)

// Connector speaks the OpenAI-compatible generation and embedding API.
type Connector struct {
	config          config.OpenAIConnectorConfig
	connector       *pkghttp.Connector
	streamConnector *pkghttp.Connector
	logger          *zap.Logger
}

func NewConnector(
	cfg config.OpenAIConnectorConfig,
	logger *zap.Logger,
) *Connector {
	return &Connector{
		connector:       common.NewBaseConnector(cfg.HTTPClientConfig, logger),
		streamConnector: common.NewStreamingConnector(cfg.HTTPClientConfig, logger),
		config:          cfg,
		logger:          logger,
	}
}

// Model returns the chat model this connector targets.
func (c *Connector) Model() string {
	return c.config.Model
}

// EmbeddingModel returns the embedding model this connector targets.
func (c *Connector) EmbeddingModel() string {
	return c.config.EmbeddingModel
}

// Complete performs a single chat completion.
func (c *Connector) Complete(ctx context.Context, req *entity.ChatCompletionRequest) (*entity.ChatCompletionResponse, error) {
	if req.Model == "" {
		req.Model = c.config.Model
	}

	ctxzap.Debug(ctx, "chat completion request",
		zap.String("model", req.Model),
		zap.Int("messages", len(req.Messages)),
		zap.Int("max_tokens", req.MaxTokens),
	)

	var resp entity.ChatCompletionResponse
	if err := c.connector.DoRequest(ctx, http.MethodPost, chatCompletionsEndpoint, req, &resp); err != nil {
		return nil, err
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("completion response has no choices")
	}

	ctxzap.Debug(ctx, "chat completion done",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)

	return &resp, nil
}

// CompleteStream performs a streaming chat completion, invoking onDelta with
// every non-empty content fragment in arrival order.
func (c *Connector) CompleteStream(ctx context.Context, req *entity.ChatCompletionRequest, onDelta func(text string) error) error {
	if req.Model == "" {
		req.Model = c.config.Model
	}
	req.Stream = true

	ctxzap.Debug(ctx, "streaming chat completion request",
		zap.String("model", req.Model),
		zap.Int("messages", len(req.Messages)),
	)

	return c.streamConnector.DoStreamRequest(ctx, http.MethodPost, chatCompletionsEndpoint, req, func(data []byte) error {
		var chunk entity.ChatCompletionChunk
		if err := json.Unmarshal(data, &chunk); err != nil {
			return fmt.Errorf("decode stream chunk: %w", err)
		}
		if len(chunk.Choices) == 0 {
			return nil
		}
		if content := chunk.Choices[0].Delta.Content; content != "" {
			return onDelta(content)
		}
		return nil
	})
}

// Embed turns text into a fixed-length vector using the configured embedding
// model. Dimensionality is assumed stable across calls.
func (c *Connector) Embed(ctx context.Context, text string) ([]float64, error) {
	req := &entity.EmbeddingRequest{
		Model: c.config.EmbeddingModel,
		Input: text,
	}

	var resp entity.EmbeddingResponse
	if err := c.connector.DoRequest(ctx, http.MethodPost, embeddingsEndpoint, req, &resp); err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding response has no data")
	}

	return resp.Data[0].Embedding, nil
}
