package persistence

import (
	"context"
	"errors"

	"ReviewQA/internal/modules/qa/domain/query"
	"ReviewQA/internal/modules/qa/domain/repository"

	"gorm.io/gorm"
)

type chunkRepositoryImpl struct {
	db *gorm.DB
}

func NewChunkRepository(db *gorm.DB) repository.ChunkRepository {
	return &chunkRepositoryImpl{db: db}
}

func (r *chunkRepositoryImpl) GetByID(ctx context.Context, id string) (*query.Chunk, error) {
	var c query.Chunk
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&c).Error
	if err == nil {
		return &c, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, err
}

func (r *chunkRepositoryImpl) GetByIDs(ctx context.Context, ids []string) (map[string]*query.Chunk, error) {
	out := make(map[string]*query.Chunk, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []query.Chunk
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		out[rows[i].Id] = &rows[i]
	}
	return out, nil
}
