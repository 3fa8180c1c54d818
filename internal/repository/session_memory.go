package repository

import (
	"context"
	"sync"
	"time"

	"github.com/askfolio/chat-backend/internal/entity"
)

var _ SessionRepository = &SessionMemory{}

// SessionMemory keeps conversation history in process memory. This is the
// default when no DATABASE_URL is configured; history is lost on restart.
type SessionMemory struct {
	mu       sync.Mutex
	sessions map[string]*memorySession

	maxTurns int
	ttl      time.Duration
}

type memorySession struct {
	turns      []entity.ConversationTurn
	lastActive time.Time
}

func NewSessionMemory(maxTurns int, ttl time.Duration) *SessionMemory {
	return &SessionMemory{
		sessions: make(map[string]*memorySession),
		maxTurns: maxTurns,
		ttl:      ttl,
	}
}

func (r *SessionMemory) History(ctx context.Context, sessionID string) ([]entity.ConversationTurn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[sessionID]
	if !ok {
		return nil, nil
	}

	if time.Since(session.lastActive) > r.ttl {
		delete(r.sessions, sessionID)
		return nil, nil
	}

	turns := make([]entity.ConversationTurn, len(session.turns))
	copy(turns, session.turns)
	return turns, nil
}

func (r *SessionMemory) Append(ctx context.Context, sessionID string, turn entity.ConversationTurn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[sessionID]
	if !ok || time.Since(session.lastActive) > r.ttl {
		session = &memorySession{}
		r.sessions[sessionID] = session
	}

	session.turns = append(session.turns, turn)
	if len(session.turns) > r.maxTurns {
		session.turns = session.turns[len(session.turns)-r.maxTurns:]
	}
	session.lastActive = time.Now()

	return nil
}

func (r *SessionMemory) Clear(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, sessionID)
	return nil
}
