package persistence

import (
	"context"
	"errors"
	"time"

	"ReviewQA/internal/modules/qa/domain/escalation"
	"ReviewQA/internal/modules/qa/domain/repository"

	"gorm.io/gorm"
)

type escalationRepositoryImpl struct {
	db *gorm.DB
}

func NewEscalationRepository(db *gorm.DB) repository.EscalationRepository {
	return &escalationRepositoryImpl{db: db}
}

func (r *escalationRepositoryImpl) Create(ctx context.Context, req *escalation.EscalationRequest) error {
	if req == nil {
		return nil
	}
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *escalationRepositoryImpl) GetByID(ctx context.Context, id string) (*escalation.EscalationRequest, error) {
	var row escalation.EscalationRequest
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *escalationRepositoryImpl) ListQueued(ctx context.Context, limit int) ([]escalation.EscalationRequest, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var rows []escalation.EscalationRequest
	err := r.db.WithContext(ctx).
		Where("status = ?", escalation.StatusQueued).
		Order("priority_score DESC, escalated_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *escalationRepositoryImpl) UpdateStatus(ctx context.Context, id string, status escalation.AssignmentStatus, agentID string, now time.Time) error {
	updates := map[string]any{"status": status}
	switch status {
	case escalation.StatusAssigned:
		updates["assigned_agent_id"] = agentID
		updates["assigned_at"] = now
	case escalation.StatusResolved:
		updates["resolved_at"] = now
	}
	return r.db.WithContext(ctx).Model(&escalation.EscalationRequest{}).Where("id = ?", id).Updates(updates).Error
}
