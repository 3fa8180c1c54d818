package telegram

import (
	"context"

	"github.com/askfolio/chat-backend/internal/entity"
)

type ChatUsecase interface {
	Answer(ctx context.Context, req *entity.ChatRequest) (*entity.ChatResponse, error)
	Transcript(ctx context.Context, sessionID string, format entity.ExportFormat) ([]byte, string, error)
	ClearSession(ctx context.Context, sessionID string) error
}
