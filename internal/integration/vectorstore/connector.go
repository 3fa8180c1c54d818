package vectorstore

import (
	"context"
	"fmt"
	"net/http"

	"github.com/askfolio/chat-backend/internal/config"
	"github.com/askfolio/chat-backend/internal/entity"
	"github.com/askfolio/chat-backend/internal/integration/common"
	pkghttp "github.com/askfolio/chat-backend/pkg/http"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// Connector queries a Chroma-compatible vector store over its HTTP API.
// Ingestion (upsert) is handled by a separate tool; this service only reads.
type Connector struct {
	config    config.VectorStoreConnectorConfig
	connector *pkghttp.Connector
	logger    *zap.Logger
}

func NewConnector(
	cfg config.VectorStoreConnectorConfig,
	logger *zap.Logger,
) *Connector {
	return &Connector{
		connector: common.NewBaseConnector(cfg.HTTPClientConfig, logger),
		config:    cfg,
		logger:    logger,
	}
}

// Query returns up to k nearest neighbors of the embedding, optionally
// restricted to the given metadata categories.
func (c *Connector) Query(ctx context.Context, embedding []float64, k int, categories []string) ([]entity.VectorMatch, error) {
	req := &entity.VectorQueryRequest{
		QueryEmbeddings: [][]float64{embedding},
		NResults:        k,
		Include:         []string{"documents", "metadatas", "distances"},
	}

	if len(categories) > 0 {
		req.Where = map[string]any{
			"category": map[string]any{"$in": categories},
		}
	}

	endpoint := fmt.Sprintf("/api/v1/collections/%s/query", c.config.Collection)

	var resp entity.VectorQueryResponse
	if err := c.connector.DoRequest(ctx, http.MethodPost, endpoint, req, &resp); err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}

	matches := flattenResponse(&resp)

	ctxzap.Debug(ctx, "vector query done",
		zap.Int("requested", k),
		zap.Int("matches", len(matches)),
	)

	return matches, nil
}

// flattenResponse unpacks the column-oriented wire format into matches.
// The store returns one row per query embedding; we always send exactly one.
func flattenResponse(resp *entity.VectorQueryResponse) []entity.VectorMatch {
	if len(resp.Documents) == 0 {
		return nil
	}

	docs := resp.Documents[0]
	matches := make([]entity.VectorMatch, 0, len(docs))

	for i, text := range docs {
		match := entity.VectorMatch{Text: text}

		if len(resp.IDs) > 0 && i < len(resp.IDs[0]) {
			match.ID = resp.IDs[0][i]
		}
		if len(resp.Distances) > 0 && i < len(resp.Distances[0]) {
			match.Distance = resp.Distances[0][i]
		}
		if len(resp.Metadatas) > 0 && i < len(resp.Metadatas[0]) {
			meta := resp.Metadatas[0][i]
			if category, ok := meta["category"].(string); ok {
				match.Category = category
			}
			if source, ok := meta["source"].(string); ok {
				match.Source = source
			}
		}

		matches = append(matches, match)
	}

	return matches
}
