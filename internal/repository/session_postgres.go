package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/askfolio/chat-backend/internal/entity"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ SessionRepository = &SessionPostgres{}

// SessionPostgres persists conversation history in PostgreSQL. The turn cap
// is enforced on every append; the idle TTL is enforced lazily on read.
type SessionPostgres struct {
	db       *pgxpool.Pool
	maxTurns int
	ttl      time.Duration
}

func NewSessionPostgres(db *pgxpool.Pool, maxTurns int, ttl time.Duration) *SessionPostgres {
	return &SessionPostgres{
		db:       db,
		maxTurns: maxTurns,
		ttl:      ttl,
	}
}

func (r *SessionPostgres) History(ctx context.Context, sessionID string) ([]entity.ConversationTurn, error) {
	var lastActive *time.Time
	err := r.db.QueryRow(ctx,
		`SELECT MAX(created_at) FROM conversation_turns WHERE session_id = $1`,
		sessionID,
	).Scan(&lastActive)
	if err != nil {
		return nil, fmt.Errorf("query session activity: %w", err)
	}

	if lastActive == nil {
		return nil, nil
	}

	if time.Since(*lastActive) > r.ttl {
		if err := r.Clear(ctx, sessionID); err != nil {
			return nil, err
		}
		return nil, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT user_message, assistant_message, intent, created_at
		 FROM conversation_turns
		 WHERE session_id = $1
		 ORDER BY created_at ASC, id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query session history: %w", err)
	}
	defer rows.Close()

	var turns []entity.ConversationTurn
	for rows.Next() {
		var turn entity.ConversationTurn
		var intent string
		if err := rows.Scan(&turn.User, &turn.Assistant, &intent, &turn.Timestamp); err != nil {
			return nil, fmt.Errorf("scan conversation turn: %w", err)
		}
		turn.Intent = entity.Intent(intent)
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversation turns: %w", err)
	}

	return turns, nil
}

func (r *SessionPostgres) Append(ctx context.Context, sessionID string, turn entity.ConversationTurn) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin append transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO conversation_turns (session_id, user_message, assistant_message, intent, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		sessionID, turn.User, turn.Assistant, turn.Intent.String(), turn.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert conversation turn: %w", err)
	}

	// Keep only the newest maxTurns rows per session.
	_, err = tx.Exec(ctx,
		`DELETE FROM conversation_turns
		 WHERE session_id = $1
		   AND id NOT IN (
		       SELECT id FROM conversation_turns
		       WHERE session_id = $1
		       ORDER BY created_at DESC, id DESC
		       LIMIT $2
		   )`,
		sessionID, r.maxTurns,
	)
	if err != nil {
		return fmt.Errorf("trim conversation turns: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *SessionPostgres) Clear(ctx context.Context, sessionID string) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM conversation_turns WHERE session_id = $1`,
		sessionID,
	)
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
