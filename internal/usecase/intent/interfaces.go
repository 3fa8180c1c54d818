package intent

import (
	"context"

	"github.com/askfolio/chat-backend/internal/entity"
)

type LLMConnector interface {
	Model() string
	Complete(ctx context.Context, req *entity.ChatCompletionRequest) (*entity.ChatCompletionResponse, error)
}
