package retrieval

import (
	"context"
	"testing"
	"time"

	"ReviewQA/internal/modules/qa/domain/query"
	"ReviewQA/internal/modules/qa/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVectorStore struct {
	hits []repository.VectorSearchHit
	err  error
}

func (s *stubVectorStore) Search(ctx context.Context, collection string, vector []float32, topK int) ([]repository.VectorSearchHit, error) {
	return s.hits, s.err
}

func (s *stubVectorStore) HasCollection(ctx context.Context, collection string) (bool, error) {
	return true, nil
}

type stubChunkRepo struct {
	rows map[string]*query.Chunk
}

func (s *stubChunkRepo) GetByID(ctx context.Context, id string) (*query.Chunk, error) {
	return s.rows[id], nil
}

func (s *stubChunkRepo) GetByIDs(ctx context.Context, ids []string) (map[string]*query.Chunk, error) {
	out := make(map[string]*query.Chunk)
	for _, id := range ids {
		if row, ok := s.rows[id]; ok {
			out[id] = row
		}
	}
	return out, nil
}

func chunkRow(id, text string) *query.Chunk {
	return &query.Chunk{
		Id:          id,
		TextContent: text,
		CreatedAt:   time.Now(),
	}
}

func TestRetrieveRanksAreContiguous(t *testing.T) {
	store := &stubVectorStore{hits: []repository.VectorSearchHit{
		{ID: "v1", ChunkID: "c1", Score: 0.95},
		{ID: "v2", ChunkID: "c2", Score: 0.85},
		{ID: "v3", ChunkID: "c3", Score: 0.75},
	}}
	chunks := &stubChunkRepo{rows: map[string]*query.Chunk{
		"c1": chunkRow("c1", "first"),
		"c2": chunkRow("c2", "second"),
		"c3": chunkRow("c3", "third"),
	}}

	e := NewEngine(store, chunks)
	passages, err := e.Retrieve(context.Background(), "product_reviews", []float32{0.1}, 10, 0.0)
	require.NoError(t, err)
	require.Len(t, passages, 3)

	for i, p := range passages {
		assert.Equal(t, i+1, p.RankPosition)
		if i > 0 {
			assert.LessOrEqual(t, p.SimilarityScore, passages[i-1].SimilarityScore)
		}
	}
}

func TestRetrieveFiltersByMinScore(t *testing.T) {
	store := &stubVectorStore{hits: []repository.VectorSearchHit{
		{ID: "v1", ChunkID: "c1", Score: 0.9},
		{ID: "v2", ChunkID: "c2", Score: 0.5},
		{ID: "v3", ChunkID: "c3", Score: 0.3},
	}}
	chunks := &stubChunkRepo{rows: map[string]*query.Chunk{
		"c1": chunkRow("c1", "kept"),
		"c2": chunkRow("c2", "dropped"),
		"c3": chunkRow("c3", "dropped"),
	}}

	e := NewEngine(store, chunks)
	passages, err := e.Retrieve(context.Background(), "product_reviews", []float32{0.1}, 10, 0.7)
	require.NoError(t, err)
	require.Len(t, passages, 1)
	assert.Equal(t, "c1", passages[0].ChunkID)
	assert.Equal(t, 1, passages[0].RankPosition)
}

func TestRetrieveEmptyResultIsNotAnError(t *testing.T) {
	e := NewEngine(&stubVectorStore{}, &stubChunkRepo{rows: map[string]*query.Chunk{}})

	passages, err := e.Retrieve(context.Background(), "product_reviews", []float32{0.1}, 10, 0.0)
	require.NoError(t, err)
	assert.Empty(t, passages)
}

func TestRetrieveDropsHitsWithoutChunkRow(t *testing.T) {
	store := &stubVectorStore{hits: []repository.VectorSearchHit{
		{ID: "v1", ChunkID: "c1", Score: 0.9},
		{ID: "v2", ChunkID: "gone", Score: 0.8},
		{ID: "v3", ChunkID: "c3", Score: 0.7},
	}}
	chunks := &stubChunkRepo{rows: map[string]*query.Chunk{
		"c1": chunkRow("c1", "first"),
		"c3": chunkRow("c3", "third"),
	}}

	e := NewEngine(store, chunks)
	passages, err := e.Retrieve(context.Background(), "product_reviews", []float32{0.1}, 10, 0.0)
	require.NoError(t, err)
	require.Len(t, passages, 2)

	// Ranks close up over the dropped hit.
	assert.Equal(t, "c1", passages[0].ChunkID)
	assert.Equal(t, 1, passages[0].RankPosition)
	assert.Equal(t, "c3", passages[1].ChunkID)
	assert.Equal(t, 2, passages[1].RankPosition)
}

func TestRetrievePrefersCanonicalChunkText(t *testing.T) {
	store := &stubVectorStore{hits: []repository.VectorSearchHit{
		{ID: "v1", ChunkID: "c1", Score: 0.9, Content: "stale index copy", MetadataJSON: `{"category":"old"}`},
	}}
	chunks := &stubChunkRepo{rows: map[string]*query.Chunk{
		"c1": &query.Chunk{Id: "c1", TextContent: "canonical text", MetadataJson: `{"category":"electronics"}`},
	}}

	e := NewEngine(store, chunks)
	passages, err := e.Retrieve(context.Background(), "product_reviews", []float32{0.1}, 10, 0.0)
	require.NoError(t, err)
	require.Len(t, passages, 1)

	assert.Equal(t, "canonical text", passages[0].Content)
	assert.Equal(t, "electronics", passages[0].Metadata["category"])
}

func TestRetrieveDropsStaleIndexCopyOfDeletedChunk(t *testing.T) {
	// The index still carries a payload for the deleted chunk; it must not be
	// served once the relational row is gone.
	store := &stubVectorStore{hits: []repository.VectorSearchHit{
		{ID: "v1", ChunkID: "c1", Score: 0.9, Content: "stale index copy"},
	}}
	e := NewEngine(store, &stubChunkRepo{rows: map[string]*query.Chunk{}})

	passages, err := e.Retrieve(context.Background(), "product_reviews", []float32{0.1}, 10, 0.0)
	require.NoError(t, err)
	assert.Empty(t, passages)
}
