package persistence

import (
	"context"
	"errors"

	"ReviewQA/internal/modules/qa/domain/query"
	"ReviewQA/internal/modules/qa/domain/repository"

	"gorm.io/gorm"
)

type collectionRepositoryImpl struct {
	db *gorm.DB
}

func NewCollectionRepository(db *gorm.DB) repository.CollectionRepository {
	return &collectionRepositoryImpl{db: db}
}

func (r *collectionRepositoryImpl) GetByName(ctx context.Context, name string) (*query.Collection, error) {
	var c query.Collection
	err := r.db.WithContext(ctx).Where("name = ?", name).Take(&c).Error
	if err == nil {
		return &c, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, err
}
