package repository

import "context"

// VectorSearchHit is one scored match from the vector index. ChunkID points
// back at qa_chunk; Content/MetadataJSON carry whatever the index stored so
// retrieval can still render a passage when the relational row is missing.
type VectorSearchHit struct {
	ID           string
	ChunkID      string
	Content      string
	MetadataJSON string
	Score        float64
}

type VectorStore interface {
	Search(ctx context.Context, collection string, vector []float32, topK int) ([]VectorSearchHit, error)
	HasCollection(ctx context.Context, collection string) (bool, error)
}
