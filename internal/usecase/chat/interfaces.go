package chat

import (
	"context"

	"github.com/askfolio/chat-backend/internal/entity"
)

type IntentClassifier interface {
	Classify(ctx context.Context, message string, qctx entity.QueryContext, sessionID string) entity.Intent
}

type Retriever interface {
	Retrieve(ctx context.Context, query string, intent entity.Intent, sessionID string, useReranking bool) ([]entity.RetrievedDocument, error)
}

type Generator interface {
	Generate(ctx context.Context, query string, intent entity.Intent, docs []entity.RetrievedDocument, history []entity.ConversationTurn, sessionID string) *entity.GenerationResult
	GenerateStream(ctx context.Context, query string, intent entity.Intent, docs []entity.RetrievedDocument, history []entity.ConversationTurn, sessionID string) <-chan entity.StreamEvent
}
