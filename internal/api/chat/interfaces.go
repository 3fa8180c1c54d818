package chat

import (
	"context"

	"github.com/askfolio/chat-backend/internal/entity"
	"github.com/askfolio/chat-backend/internal/pkg/cache"
	"github.com/askfolio/chat-backend/internal/pkg/usage"
)

type ChatUsecase interface {
	Answer(ctx context.Context, req *entity.ChatRequest) (*entity.ChatResponse, error)
	AnswerStream(ctx context.Context, req *entity.ChatRequest) (<-chan entity.StreamEvent, error)
	Transcript(ctx context.Context, sessionID string, format entity.ExportFormat) ([]byte, string, error)
	ClearSession(ctx context.Context, sessionID string) error
	CacheStats() (cache.Stats, bool)
	ClearCache()
}

type UsageTracker interface {
	SessionStats(sessionID string) usage.Stats
	TotalStats() usage.Stats
}
