package openai

import (
	"context"
	"hash/fnv"
	"strings"

	"github.com/askfolio/chat-backend/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const mockEmbeddingDim = 64

// MockConnector is a deterministic stand-in for the OpenAI API, used when
// ENABLE_MOCKS is set. Classification prompts get a fixed label, rerank
// prompts get the identity ordering, everything else gets canned text.
type MockConnector struct {
	logger *zap.Logger
}

func NewMockConnector(logger *zap.Logger) *MockConnector {
	return &MockConnector{
		logger: logger,
	}
}

func (m *MockConnector) Model() string          { return "mock-chat" }
func (m *MockConnector) EmbeddingModel() string { return "mock-embedding" }

func (m *MockConnector) Complete(ctx context.Context, req *entity.ChatCompletionRequest) (*entity.ChatCompletionResponse, error) {
	ctxzap.Info(ctx, "[MOCK] chat completion", zap.Int("messages", len(req.Messages)))

	content := "This is a mock response. Configure OPENAI_SERVICE_URL to talk to a real model."

	if len(req.Messages) > 0 {
		last := req.Messages[len(req.Messages)-1].Content
		switch {
		case strings.Contains(last, "Respond with ONLY the intent name"):
			content = entity.IntentGeneral.String()
		case strings.Contains(last, "comma-separated list of document indices"):
			content = "0,1,2"
		}
	}

	return &entity.ChatCompletionResponse{
		Choices: []entity.ChatCompletionChoice{
			{Message: entity.ChatMessage{Role: entity.RoleAssistant, Content: content}, FinishReason: "stop"},
		},
		Usage: entity.ChatUsage{PromptTokens: 50, CompletionTokens: 20, TotalTokens: 70},
	}, nil
}

func (m *MockConnector) CompleteStream(ctx context.Context, req *entity.ChatCompletionRequest, onDelta func(text string) error) error {
	ctxzap.Info(ctx, "[MOCK] streaming chat completion")

	for _, word := range strings.SplitAfter("This is a mock streaming response. ", " ") {
		if word == "" {
			continue
		}
		if err := onDelta(word); err != nil {
			return err
		}
	}

	return nil
}

// Embed returns a deterministic pseudo-vector derived from the text hash so
// repeated calls with the same input produce identical embeddings.
func (m *MockConnector) Embed(ctx context.Context, text string) ([]float64, error) {
	ctxzap.Info(ctx, "[MOCK] embedding", zap.Int("text_length", len(text)))

	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float64, mockEmbeddingDim)
	for i := range vec {
		seed = seed*6364136223846793005 + 1442695040888963407
		vec[i] = float64(int64(seed>>33))/float64(1<<30) - 1
	}

	return vec, nil
}
