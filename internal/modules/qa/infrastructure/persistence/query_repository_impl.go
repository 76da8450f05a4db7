package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"ReviewQA/internal/modules/qa/domain/query"
	"ReviewQA/internal/modules/qa/domain/repository"

	"gorm.io/gorm"
)

type queryRepositoryImpl struct {
	db *gorm.DB
}

func NewQueryRepository(db *gorm.DB) repository.QueryRepository {
	return &queryRepositoryImpl{db: db}
}

func (r *queryRepositoryImpl) Create(ctx context.Context, q *query.Query) error {
	if q == nil {
		return nil
	}
	return r.db.WithContext(ctx).Create(q).Error
}

func (r *queryRepositoryImpl) GetByID(ctx context.Context, id string) (*query.Query, error) {
	var q query.Query
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&q).Error
	if err == nil {
		return &q, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, err
}

func (r *queryRepositoryImpl) TryMarkProcessing(ctx context.Context, id string, workerID string, now time.Time) (bool, error) {
	// Pending, failed and processing queries are claimable: failed ones
	// re-enter on broker redelivery, and processing ones belong to a worker
	// that died mid-flight (the broker only redelivers after its session is
	// gone).
	res := r.db.WithContext(ctx).Model(&query.Query{}).
		Where("id = ? AND status IN ?", id, []string{query.StatusPending, query.StatusFailed, query.StatusProcessing}).
		Updates(map[string]any{
			"status":     query.StatusProcessing,
			"worker_id":  workerID,
			"attempts":   gorm.Expr("attempts + ?", 1),
			"last_error": "",
		})
	return res.RowsAffected > 0, res.Error
}

func (r *queryRepositoryImpl) MarkCompleted(ctx context.Context, id string, now time.Time) error {
	updates := map[string]any{"status": query.StatusCompleted, "completed_at": now, "last_error": ""}
	return r.db.WithContext(ctx).Model(&query.Query{}).Where("id = ?", id).Updates(updates).Error
}

func (r *queryRepositoryImpl) MarkEscalated(ctx context.Context, id string, now time.Time) error {
	updates := map[string]any{"status": query.StatusEscalated, "completed_at": now, "last_error": ""}
	return r.db.WithContext(ctx).Model(&query.Query{}).Where("id = ?", id).Updates(updates).Error
}

func (r *queryRepositoryImpl) MarkFailed(ctx context.Context, id string, reason string, now time.Time) error {
	reason = strings.TrimSpace(reason)
	if len(reason) > 255 {
		reason = reason[:255]
	}
	updates := map[string]any{"status": query.StatusFailed, "last_error": reason, "completed_at": now}
	return r.db.WithContext(ctx).Model(&query.Query{}).Where("id = ?", id).Updates(updates).Error
}

func (r *queryRepositoryImpl) SaveAnswerWithResults(ctx context.Context, answer *query.Answer, results []query.QueryResult) error {
	if answer == nil {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Replace any rows left behind by an earlier delivery of the same
		// message so retries stay idempotent.
		if err := tx.Where("query_id = ?", answer.QueryId).Delete(&query.QueryResult{}).Error; err != nil {
			return err
		}
		if err := tx.Where("query_id = ?", answer.QueryId).Delete(&query.Answer{}).Error; err != nil {
			return err
		}
		if err := tx.Create(answer).Error; err != nil {
			return err
		}
		if len(results) == 0 {
			return nil
		}
		return tx.Create(&results).Error
	})
}

func (r *queryRepositoryImpl) GetAnswerByQueryID(ctx context.Context, queryID string) (*query.Answer, error) {
	var a query.Answer
	err := r.db.WithContext(ctx).Where("query_id = ?", queryID).Take(&a).Error
	if err == nil {
		return &a, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, err
}

func (r *queryRepositoryImpl) GetResultsByQueryID(ctx context.Context, queryID string) ([]query.QueryResult, error) {
	var rows []query.QueryResult
	err := r.db.WithContext(ctx).Where("query_id = ?", queryID).Order("rank_position ASC").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
