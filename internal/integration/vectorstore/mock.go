package vectorstore

import (
	"context"

	"github.com/askfolio/chat-backend/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// MockConnector serves a tiny fixed corpus so the pipeline runs end to end
// without a vector store.
type MockConnector struct {
	logger *zap.Logger
}

func NewMockConnector(logger *zap.Logger) *MockConnector {
	return &MockConnector{
		logger: logger,
	}
}

var mockCorpus = []entity.VectorMatch{
	{ID: "profile-1", Category: "profile", Source: "about.md", Distance: 0.2,
		Text: "Senior backend engineer with several years of experience building APIs and data pipelines."},
	{ID: "projects-1", Category: "projects", Source: "projects.md", Distance: 0.3,
		Text: "Built a retrieval-augmented chatbot with hybrid search, reranking and token-budgeted prompts."},
	{ID: "skills-1", Category: "skills", Source: "skills.md", Distance: 0.4,
		Text: "Go, Python, PostgreSQL, Kubernetes, and LLM application development."},
	{ID: "experience-1", Category: "experience", Source: "experience.md", Distance: 0.5,
		Text: "Led the platform team through a migration to event-driven microservices."},
}

func (m *MockConnector) Query(ctx context.Context, embedding []float64, k int, categories []string) ([]entity.VectorMatch, error) {
	ctxzap.Info(ctx, "[MOCK] vector query", zap.Int("k", k), zap.Strings("categories", categories))

	allowed := make(map[string]bool, len(categories))
	for _, c := range categories {
		allowed[c] = true
	}

	var matches []entity.VectorMatch
	for _, doc := range mockCorpus {
		if len(categories) > 0 && !allowed[doc.Category] {
			continue
		}
		matches = append(matches, doc)
		if len(matches) == k {
			break
		}
	}

	return matches, nil
}
