package retrieval

import (
	"context"

	"github.com/askfolio/chat-backend/internal/entity"
)

type LLMConnector interface {
	Model() string
	Complete(ctx context.Context, req *entity.ChatCompletionRequest) (*entity.ChatCompletionResponse, error)
	Embed(ctx context.Context, text string) ([]float64, error)
}

type VectorStore interface {
	Query(ctx context.Context, embedding []float64, k int, categories []string) ([]entity.VectorMatch, error)
}
