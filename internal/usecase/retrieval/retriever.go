package retrieval

import (
	"context"
	"fmt"
	"sort"

	"github.com/askfolio/chat-backend/internal/config"
	"github.com/askfolio/chat-backend/internal/entity"
	"github.com/askfolio/chat-backend/internal/pkg/usage"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// Retriever runs hybrid search: vector similarity fused with lexical term
// matching, threshold-filtered and optionally reranked by the model.
type Retriever struct {
	llm           LLMConnector
	store         VectorStore
	intentConfigs config.IntentConfigs
	tracker       *usage.Tracker
	logger        *zap.Logger

	semanticWeight   float64
	lexicalWeight    float64
	lexicalScale     float64
	rerankCandidates int
}

func NewRetriever(
	llm LLMConnector,
	store VectorStore,
	intentConfigs config.IntentConfigs,
	pipeline config.PipelineConfig,
	tracker *usage.Tracker,
	logger *zap.Logger,
) *Retriever {
	return &Retriever{
		llm:              llm,
		store:            store,
		intentConfigs:    intentConfigs,
		tracker:          tracker,
		logger:           logger,
		semanticWeight:   pipeline.SemanticWeight,
		lexicalWeight:    pipeline.LexicalWeight,
		lexicalScale:     pipeline.LexicalScale,
		rerankCandidates: pipeline.RerankCandidates,
	}
}

// Retrieve returns up to k documents relevant to the query under the
// intent's retrieval config. When useReranking is false (streaming path) the
// hybrid-score order is returned as is.
func (r *Retriever) Retrieve(ctx context.Context, query string, intent entity.Intent, sessionID string, useReranking bool) ([]entity.RetrievedDocument, error) {
	cfg := r.intentConfigs.Resolve(intent)

	expanded := RewriteQuery(query, intent)

	embedding, err := r.llm.Embed(ctx, expanded)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	// Over-fetch so threshold filtering still leaves k candidates.
	matches, err := r.store.Query(ctx, embedding, cfg.K*2, cfg.Categories)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}

	docs := r.score(query, matches)

	filtered := docs[:0]
	for _, doc := range docs {
		if doc.SemanticScore >= cfg.Threshold {
			filtered = append(filtered, doc)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].HybridScore > filtered[j].HybridScore
	})

	if len(filtered) > cfg.K {
		filtered = filtered[:cfg.K]
	}

	if useReranking && len(filtered) > 1 {
		filtered = r.rerank(ctx, query, filtered, sessionID)
	}

	ctxzap.Debug(ctx, "retrieval done",
		zap.String("intent", intent.String()),
		zap.Int("fetched", len(matches)),
		zap.Int("returned", len(filtered)),
		zap.Float64("threshold", cfg.Threshold),
	)

	return filtered, nil
}

// score converts matches to documents with semantic, lexical and hybrid
// scores. Lexical matching runs against the original query, not the
// expanded one, so expansion terms do not reward themselves.
func (r *Retriever) score(query string, matches []entity.VectorMatch) []entity.RetrievedDocument {
	docs := make([]entity.RetrievedDocument, 0, len(matches))

	for _, m := range matches {
		semantic := clamp01(1 - m.Distance)
		lexical := LexicalScore(query, m.Text)

		docs = append(docs, entity.RetrievedDocument{
			ID:            m.ID,
			Text:          m.Text,
			Category:      m.Category,
			Source:        m.Source,
			SemanticScore: semantic,
			LexicalScore:  lexical,
			HybridScore:   r.semanticWeight*semantic + r.lexicalWeight*lexical*r.lexicalScale,
		})
	}

	return docs
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
