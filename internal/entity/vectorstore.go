package entity

// Wire types for the vector store HTTP API (Chroma-compatible).
// Distances are cosine distances in [0,2]; the ingestion side creates the
// collection with hnsw:space=cosine, so 1-distance is used as similarity.

type VectorQueryRequest struct {
	QueryEmbeddings [][]float64    `json:"query_embeddings"`
	NResults        int            `json:"n_results"`
	Where           map[string]any `json:"where,omitempty"`
	Include         []string       `json:"include,omitempty"`
}

type VectorQueryResponse struct {
	IDs       [][]string         `json:"ids"`
	Documents [][]string         `json:"documents"`
	Metadatas [][]map[string]any `json:"metadatas"`
	Distances [][]float64        `json:"distances"`
}

// VectorMatch is one nearest neighbor flattened out of the wire response.
type VectorMatch struct {
	ID       string
	Text     string
	Category string
	Source   string
	Distance float64
}
