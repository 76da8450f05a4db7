package vectordb

import (
	"context"
	"fmt"

	"ReviewQA/internal/modules/qa/domain/repository"

	v1client "github.com/milvus-io/milvus-sdk-go/v2/client"
	v1entity "github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// MilvusStore is a read-only view over the chunk index. Writes belong to the
// ingestion service; this pipeline only searches.
type MilvusStore struct {
	cli         v1client.Client
	vectorDim   int
	vectorField string
}

var _ repository.VectorStore = (*MilvusStore)(nil)

func NewMilvusStore(cli v1client.Client, vectorDim int) (*MilvusStore, error) {
	if cli == nil {
		return nil, fmt.Errorf("milvus client is nil")
	}
	if vectorDim <= 0 {
		return nil, fmt.Errorf("vector dim must be positive, got %d", vectorDim)
	}
	return &MilvusStore{
		cli:         cli,
		vectorDim:   vectorDim,
		vectorField: "vector",
	}, nil
}

func (s *MilvusStore) HasCollection(ctx context.Context, collection string) (bool, error) {
	return s.cli.HasCollection(ctx, collection)
}

func (s *MilvusStore) Search(ctx context.Context, collection string, vector []float32, topK int) ([]repository.VectorSearchHit, error) {
	if len(vector) != s.vectorDim {
		return nil, fmt.Errorf("vector dim mismatch: got %d, want %d", len(vector), s.vectorDim)
	}
	if topK <= 0 {
		topK = 10
	}

	sp, _ := v1entity.NewIndexAUTOINDEXSearchParam(1)

	res, err := s.cli.Search(
		ctx,
		collection,
		nil,
		"",
		[]string{"id", "chunk_id", "content", "metadata"},
		[]v1entity.Vector{v1entity.FloatVector(vector)},
		s.vectorField,
		v1entity.COSINE,
		topK,
		sp,
	)
	if err != nil {
		return nil, err
	}

	hits := make([]repository.VectorSearchHit, 0)
	if len(res) == 0 {
		return hits, nil
	}

	sr := res[0]
	if sr.Err != nil {
		return nil, sr.Err
	}

	getCol := func(name string) v1entity.Column {
		for _, c := range sr.Fields {
			if c.Name() == name {
				return c
			}
		}
		return nil
	}

	chunkIDCol := getCol("chunk_id")
	contentCol := getCol("content")
	metaCol := getCol("metadata")

	for i := 0; i < sr.ResultCount; i++ {
		id, _ := sr.IDs.GetAsString(i)

		hit := repository.VectorSearchHit{
			ID:    id,
			Score: float64(sr.Scores[i]),
		}

		if chunkIDCol != nil {
			v, _ := chunkIDCol.GetAsString(i)
			hit.ChunkID = v
		}
		if contentCol != nil {
			v, _ := contentCol.GetAsString(i)
			hit.Content = v
		}
		if metaCol != nil {
			v, _ := metaCol.Get(i)
			if bs, ok := v.([]byte); ok {
				hit.MetadataJSON = string(bs)
			}
		}

		hits = append(hits, hit)
	}
	return hits, nil
}
