package repository

import (
	"context"

	"github.com/askfolio/chat-backend/internal/entity"
)

// SessionRepository defines the interface for conversation history persistence.
// Implementations enforce the turn cap and the idle TTL themselves, so callers
// always see a bounded, live history.
type SessionRepository interface {
	History(ctx context.Context, sessionID string) ([]entity.ConversationTurn, error)
	Append(ctx context.Context, sessionID string, turn entity.ConversationTurn) error
	Clear(ctx context.Context, sessionID string) error
}
