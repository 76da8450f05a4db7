package retrieval

import (
	"context"
	"encoding/json"
	"time"

	"ReviewQA/internal/modules/qa/domain/repository"
	"ReviewQA/pkg/zlog"

	"go.uber.org/zap"
)

// Passage is one retrieved chunk with its canonical text, parsed metadata and
// final rank. Ranks are 1-based and contiguous after score filtering.
type Passage struct {
	ChunkID         string
	Content         string
	Metadata        map[string]any
	MetadataJSON    string
	SimilarityScore float64
	RankPosition    int
	RetrievedAt     time.Time
}

type Engine struct {
	store  repository.VectorStore
	chunks repository.ChunkRepository
}

func NewEngine(store repository.VectorStore, chunks repository.ChunkRepository) *Engine {
	return &Engine{store: store, chunks: chunks}
}

// Retrieve searches the vector index, drops hits below minScore, and enriches
// survivors from the relational chunk table. Hits whose chunk row has been
// deleted are dropped with a warning. An empty result is not an error; the
// caller decides what no context means.
func (e *Engine) Retrieve(ctx context.Context, collection string, vector []float32, topK int, minScore float64) ([]Passage, error) {
	hits, err := e.store.Search(ctx, collection, vector, topK)
	if err != nil {
		return nil, err
	}

	filtered := hits[:0]
	for _, h := range hits {
		if h.Score < minScore {
			continue
		}
		filtered = append(filtered, h)
	}
	if len(filtered) == 0 {
		return []Passage{}, nil
	}

	ids := make([]string, 0, len(filtered))
	for _, h := range filtered {
		ids = append(ids, h.ChunkID)
	}
	rows, err := e.chunks.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	passages := make([]Passage, 0, len(filtered))
	for _, h := range filtered {
		p := Passage{
			ChunkID:         h.ChunkID,
			Content:         h.Content,
			MetadataJSON:    h.MetadataJSON,
			SimilarityScore: h.Score,
			RetrievedAt:     now,
		}

		row, ok := rows[h.ChunkID]
		if !ok || row == nil {
			// No chunk row means the chunk was deleted; the index copy is a
			// stale leftover and must not be served.
			zlog.Warn("vector hit has no chunk row, dropping",
				zap.String("chunk_id", h.ChunkID),
				zap.String("collection", collection))
			continue
		}
		// The relational row is canonical; the index copy may be stale.
		p.Content = row.TextContent
		if row.MetadataJson != "" {
			p.MetadataJSON = row.MetadataJson
		}

		if p.MetadataJSON != "" {
			var meta map[string]any
			if err := json.Unmarshal([]byte(p.MetadataJSON), &meta); err == nil {
				p.Metadata = meta
			}
		}

		p.RankPosition = len(passages) + 1
		passages = append(passages, p)
	}

	return passages, nil
}
