package retrieval

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/askfolio/chat-backend/internal/entity"
	"github.com/askfolio/chat-backend/internal/pkg/usage"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	rerankPreviewChars = 200
	rerankMaxTokens    = 50
)

// rerank asks the model to order documents by relevance to the query. It is
// a best-effort refinement: on any failure (call error, unparseable answer)
// the hybrid-score order is kept.
func (r *Retriever) rerank(ctx context.Context, query string, docs []entity.RetrievedDocument, sessionID string) []entity.RetrievedDocument {
	if len(docs) <= 1 {
		return docs
	}

	candidates := docs
	if len(candidates) > r.rerankCandidates {
		candidates = candidates[:r.rerankCandidates]
	}

	prompt := buildRerankPrompt(query, candidates)

	resp, err := r.llm.Complete(ctx, &entity.ChatCompletionRequest{
		Model:       r.llm.Model(),
		Messages:    []entity.ChatMessage{{Role: entity.RoleUser, Content: prompt}},
		Temperature: 0,
		MaxTokens:   rerankMaxTokens,
	})
	if err != nil {
		ctxzap.Warn(ctx, "rerank call failed, keeping hybrid order", zap.Error(err))
		return docs
	}

	r.tracker.Track(
		resp.Usage.PromptTokens,
		resp.Usage.CompletionTokens,
		r.llm.Model(),
		usage.TypeRerank,
		sessionID,
	)

	if len(resp.Choices) == 0 {
		return docs
	}

	indices := parseRanking(resp.Choices[0].Message.Content)
	if len(indices) == 0 {
		ctxzap.Warn(ctx, "rerank returned no usable ordering, keeping hybrid order")
		return docs
	}

	return reorder(candidates, indices)
}

func buildRerankPrompt(query string, docs []entity.RetrievedDocument) string {
	var summaries []string
	for i, doc := range docs {
		preview := doc.Text
		if len(preview) > rerankPreviewChars {
			preview = preview[:rerankPreviewChars]
		}
		preview = strings.ReplaceAll(preview, "\n", " ")
		summaries = append(summaries, fmt.Sprintf("[%d] %s", i, preview))
	}

	return fmt.Sprintf(`Rate the relevance of each document to the query.
Query: %q

Documents:
%s

Return ONLY a comma-separated list of document indices ordered by relevance (most relevant first).
Example: 2,0,1,3`, query, strings.Join(summaries, "\n"))
}

func parseRanking(raw string) []int {
	var indices []int
	for _, part := range strings.Split(strings.TrimSpace(raw), ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 {
			continue
		}
		indices = append(indices, n)
	}
	return indices
}

// reorder applies the ranked indices, then appends documents the model left
// out in their original order. Duplicate and out-of-range indices are
// ignored.
func reorder(docs []entity.RetrievedDocument, indices []int) []entity.RetrievedDocument {
	seen := make(map[int]bool, len(docs))
	reranked := make([]entity.RetrievedDocument, 0, len(docs))

	for _, idx := range indices {
		if idx < 0 || idx >= len(docs) || seen[idx] {
			continue
		}
		seen[idx] = true
		reranked = append(reranked, docs[idx])
	}

	for i, doc := range docs {
		if !seen[i] {
			reranked = append(reranked, doc)
		}
	}

	return reranked
}
