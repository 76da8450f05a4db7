package service

import (
	"context"
	"testing"
	"time"

	"ReviewQA/internal/modules/qa/application/dto/request"
	"ReviewQA/internal/modules/qa/domain/escalation"
	"ReviewQA/pkg/xerr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEscalationRepo struct {
	row     *escalation.EscalationRequest
	updates []escalation.AssignmentStatus
	agents  []string
}

func (f *fakeEscalationRepo) Create(ctx context.Context, req *escalation.EscalationRequest) error {
	return nil
}
func (f *fakeEscalationRepo) GetByID(ctx context.Context, id string) (*escalation.EscalationRequest, error) {
	if f.row != nil && f.row.Id == id {
		return f.row, nil
	}
	return nil, nil
}
func (f *fakeEscalationRepo) ListQueued(ctx context.Context, limit int) ([]escalation.EscalationRequest, error) {
	return nil, nil
}
func (f *fakeEscalationRepo) UpdateStatus(ctx context.Context, id string, status escalation.AssignmentStatus, agentID string, now time.Time) error {
	f.updates = append(f.updates, status)
	f.agents = append(f.agents, agentID)
	return nil
}

func escalationService(repo *fakeEscalationRepo) QueryService {
	return NewQueryService(nil, nil, repo, nil, nil, "qa.process_query", "product_reviews")
}

func queuedEscalation(id string) *escalation.EscalationRequest {
	return &escalation.EscalationRequest{
		Id:          id,
		QueryId:     "q-1",
		Reason:      escalation.ReasonLowConfidence,
		Status:      escalation.StatusQueued,
		EscalatedAt: time.Now(),
	}
}

func TestUpdateEscalationStatusAssigns(t *testing.T) {
	repo := &fakeEscalationRepo{row: queuedEscalation("e-1")}
	svc := escalationService(repo)

	resp, err := svc.UpdateEscalationStatus(context.Background(), "e-1", request.UpdateEscalationStatusRequest{
		Status:  "assigned",
		AgentID: "agent-7",
	})
	require.NoError(t, err)
	assert.Equal(t, "assigned", resp.Status)

	require.Len(t, repo.updates, 1)
	assert.Equal(t, escalation.StatusAssigned, repo.updates[0])
	assert.Equal(t, "agent-7", repo.agents[0])
}

func TestUpdateEscalationStatusRejectsIllegalTransition(t *testing.T) {
	repo := &fakeEscalationRepo{row: queuedEscalation("e-1")}
	svc := escalationService(repo)

	// Queued cannot jump straight to resolved.
	_, err := svc.UpdateEscalationStatus(context.Background(), "e-1", request.UpdateEscalationStatusRequest{
		Status: "resolved",
	})
	require.Error(t, err)

	ce, ok := err.(*xerr.CodeError)
	require.True(t, ok)
	assert.Equal(t, xerr.BadRequest, ce.Code)
	assert.Contains(t, ce.Message, "illegal escalation transition")
	assert.Empty(t, repo.updates)
}

func TestUpdateEscalationStatusRequiresAgentToAssign(t *testing.T) {
	repo := &fakeEscalationRepo{row: queuedEscalation("e-1")}
	svc := escalationService(repo)

	_, err := svc.UpdateEscalationStatus(context.Background(), "e-1", request.UpdateEscalationStatusRequest{
		Status: "assigned",
	})
	require.Error(t, err)
	assert.Empty(t, repo.updates)
}

func TestUpdateEscalationStatusRejectsUnknownStatus(t *testing.T) {
	repo := &fakeEscalationRepo{row: queuedEscalation("e-1")}
	svc := escalationService(repo)

	_, err := svc.UpdateEscalationStatus(context.Background(), "e-1", request.UpdateEscalationStatusRequest{
		Status: "archived",
	})
	require.Error(t, err)
	assert.Empty(t, repo.updates)
}

func TestUpdateEscalationStatusUnknownIDIsNotFound(t *testing.T) {
	repo := &fakeEscalationRepo{}
	svc := escalationService(repo)

	_, err := svc.UpdateEscalationStatus(context.Background(), "e-missing", request.UpdateEscalationStatusRequest{
		Status: "cancelled",
	})
	require.Error(t, err)

	ce, ok := err.(*xerr.CodeError)
	require.True(t, ok)
	assert.Equal(t, xerr.NotFound, ce.Code)
}
