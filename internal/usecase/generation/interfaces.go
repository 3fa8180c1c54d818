package generation

import (
	"context"

	"github.com/askfolio/chat-backend/internal/entity"
)

type LLMConnector interface {
	Model() string
	Complete(ctx context.Context, req *entity.ChatCompletionRequest) (*entity.ChatCompletionResponse, error)
	CompleteStream(ctx context.Context, req *entity.ChatCompletionRequest, onDelta func(text string) error) error
}
