package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"ReviewQA/internal/modules/qa/application/dto/request"
	"ReviewQA/internal/modules/qa/application/dto/respond"
	"ReviewQA/internal/modules/qa/domain/escalation"
	"ReviewQA/internal/modules/qa/domain/query"
	"ReviewQA/internal/modules/qa/domain/repository"
	"ReviewQA/internal/modules/qa/infrastructure/guardrails"
	"ReviewQA/internal/modules/qa/infrastructure/mq"
	"ReviewQA/internal/modules/qa/infrastructure/queue"
	"ReviewQA/pkg/util"
	"ReviewQA/pkg/xerr"
	"ReviewQA/pkg/zlog"

	"go.uber.org/zap"
)

type QueryService interface {
	SubmitQuery(ctx context.Context, req request.SubmitQueryRequest) (*respond.SubmitQueryRespond, error)
	GetQuery(ctx context.Context, queryID string) (*respond.QueryStatusRespond, error)
	ListEscalations(ctx context.Context, limit int) ([]respond.EscalationRespond, error)
	UpdateEscalationStatus(ctx context.Context, id string, req request.UpdateEscalationStatusRequest) (*respond.EscalationStatusRespond, error)
}

type queryService struct {
	queries           repository.QueryRepository
	collections       repository.CollectionRepository
	escalations       repository.EscalationRepository
	validator         *guardrails.Validator
	publisher         mq.Publisher
	queryTopic        string
	defaultCollection string
}

func NewQueryService(
	queries repository.QueryRepository,
	collections repository.CollectionRepository,
	escalations repository.EscalationRepository,
	validator *guardrails.Validator,
	publisher mq.Publisher,
	queryTopic string,
	defaultCollection string,
) QueryService {
	return &queryService{
		queries:           queries,
		collections:       collections,
		escalations:       escalations,
		validator:         validator,
		publisher:         publisher,
		queryTopic:        queryTopic,
		defaultCollection: defaultCollection,
	}
}

// SubmitQuery validates the request up front, persists a pending query and
// enqueues it for the worker. Validation here fails fast at the API edge; the
// worker re-validates anyway since the queue is also fed by other producers.
func (s *queryService) SubmitQuery(ctx context.Context, req request.SubmitQueryRequest) (*respond.SubmitQueryRespond, error) {
	vr := s.validator.ValidateQuery(req.QueryText)
	if !vr.IsValid {
		return nil, xerr.New(xerr.BadRequest, vr.Reason)
	}

	collection := strings.TrimSpace(req.CollectionName)
	if collection == "" {
		collection = s.defaultCollection
	}
	if cr := s.validator.ValidateCollectionName(collection); !cr.IsValid {
		return nil, xerr.New(xerr.BadRequest, cr.Reason)
	}

	var maxChunks *int
	if req.MaxChunks != 0 {
		maxChunks = &req.MaxChunks
	}
	var threshold *float64
	if req.ConfidenceThreshold != 0 {
		threshold = &req.ConfidenceThreshold
	}
	if pr := s.validator.ValidateParameters(maxChunks, threshold); !pr.IsValid {
		return nil, xerr.New(xerr.BadRequest, pr.Reason)
	}

	if s.collections != nil {
		col, err := s.collections.GetByName(ctx, collection)
		if err != nil {
			zlog.Error("loading collection failed", zap.String("collection", collection), zap.Error(err))
			return nil, xerr.ErrServerError
		}
		if col == nil {
			return nil, xerr.New(xerr.NotFound, "collection not found: "+collection)
		}
	}

	now := time.Now()
	q := &query.Query{
		Id:             util.GenerateUUID(),
		QueryText:      vr.SanitizedInput,
		CollectionName: collection,
		Status:         query.StatusPending,
		SubmittedAt:    now,
	}
	if err := s.queries.Create(ctx, q); err != nil {
		zlog.Error("persisting query failed", zap.Error(err))
		return nil, xerr.ErrServerError
	}

	msg := queue.ProcessQueryMessage{
		MessageID:           util.GenerateUUID(),
		QueryID:             q.Id,
		QueryText:           q.QueryText,
		CollectionName:      collection,
		MaxChunks:           req.MaxChunks,
		ConfidenceThreshold: req.ConfidenceThreshold,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, xerr.ErrServerError
	}

	if _, err := s.publisher.Publish(ctx, mq.Message{
		Topic: s.queryTopic,
		Key:   []byte(q.Id),
		Value: payload,
	}); err != nil {
		zlog.Error("publishing query failed", zap.String("query_id", q.Id), zap.Error(err))
		_ = s.queries.MarkFailed(ctx, q.Id, "enqueue failed", time.Now())
		return nil, xerr.ErrServerError
	}

	zlog.Info("query enqueued",
		zap.String("query_id", q.Id),
		zap.String("message_id", msg.MessageID),
		zap.String("collection", collection))

	return &respond.SubmitQueryRespond{
		QueryID:   q.Id,
		MessageID: msg.MessageID,
		Status:    q.Status,
	}, nil
}

func (s *queryService) GetQuery(ctx context.Context, queryID string) (*respond.QueryStatusRespond, error) {
	queryID = strings.TrimSpace(queryID)
	if queryID == "" {
		return nil, xerr.ErrParam
	}

	q, err := s.queries.GetByID(ctx, queryID)
	if err != nil {
		zlog.Error("loading query failed", zap.String("query_id", queryID), zap.Error(err))
		return nil, xerr.ErrServerError
	}
	if q == nil {
		return nil, xerr.ErrNotFound
	}

	resp := &respond.QueryStatusRespond{
		QueryID:        q.Id,
		QueryText:      q.QueryText,
		CollectionName: q.CollectionName,
		Status:         q.Status,
		SubmittedAt:    q.SubmittedAt,
	}
	if q.CompletedAt.Valid {
		t := q.CompletedAt.Time
		resp.CompletedAt = &t
	}

	if q.Status != query.StatusCompleted && q.Status != query.StatusEscalated {
		return resp, nil
	}

	a, err := s.queries.GetAnswerByQueryID(ctx, queryID)
	if err != nil {
		zlog.Error("loading answer failed", zap.String("query_id", queryID), zap.Error(err))
		return nil, xerr.ErrServerError
	}
	if a != nil {
		resp.Answer = &respond.AnswerRespond{
			AnswerID:         a.Id,
			AnswerText:       a.AnswerText,
			ConfidenceScore:  a.ConfidenceScore,
			ModelName:        a.ModelName,
			PromptTokens:     a.PromptTokens,
			CompletionTokens: a.CompletionTokens,
			RetrievalMs:      a.RetrievalMs,
			GenerationMs:     a.GenerationMs,
			TotalMs:          a.TotalMs,
			CacheHit:         a.CacheHit,
			ValidationStatus: a.ValidationStatus,
			EscalationFlag:   a.EscalationFlag,
		}
	}

	results, err := s.queries.GetResultsByQueryID(ctx, queryID)
	if err != nil {
		zlog.Error("loading query results failed", zap.String("query_id", queryID), zap.Error(err))
		return nil, xerr.ErrServerError
	}
	for _, r := range results {
		resp.Sources = append(resp.Sources, respond.SourceRespond{
			ChunkID:         r.ChunkId,
			SimilarityScore: r.SimilarityScore,
			RankPosition:    r.RankPosition,
		})
	}

	return resp, nil
}

// UpdateEscalationStatus walks an escalation through its assignment state
// machine; jumps the state machine forbids are rejected up front.
func (s *queryService) UpdateEscalationStatus(ctx context.Context, id string, req request.UpdateEscalationStatusRequest) (*respond.EscalationStatusRespond, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, xerr.ErrParam
	}

	to := escalation.AssignmentStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	switch to {
	case escalation.StatusAssigned, escalation.StatusInProgress, escalation.StatusResolved, escalation.StatusCancelled:
	default:
		return nil, xerr.New(xerr.BadRequest, "unknown escalation status: "+req.Status)
	}

	agentID := strings.TrimSpace(req.AgentID)
	if to == escalation.StatusAssigned && agentID == "" {
		return nil, xerr.New(xerr.BadRequest, "agent_id is required to assign an escalation")
	}

	row, err := s.escalations.GetByID(ctx, id)
	if err != nil {
		zlog.Error("loading escalation failed", zap.String("escalation_id", id), zap.Error(err))
		return nil, xerr.ErrServerError
	}
	if row == nil {
		return nil, xerr.ErrNotFound
	}

	if !escalation.CanTransition(row.Status, to) {
		return nil, xerr.New(xerr.BadRequest,
			fmt.Sprintf("illegal escalation transition %s -> %s", row.Status, to))
	}

	if err := s.escalations.UpdateStatus(ctx, id, to, agentID, time.Now()); err != nil {
		zlog.Error("updating escalation failed", zap.String("escalation_id", id), zap.Error(err))
		return nil, xerr.ErrServerError
	}

	zlog.Info("escalation status updated",
		zap.String("escalation_id", id),
		zap.String("from", string(row.Status)),
		zap.String("to", string(to)),
		zap.String("agent_id", agentID))

	return &respond.EscalationStatusRespond{ID: id, Status: string(to)}, nil
}

func (s *queryService) ListEscalations(ctx context.Context, limit int) ([]respond.EscalationRespond, error) {
	rows, err := s.escalations.ListQueued(ctx, limit)
	if err != nil {
		zlog.Error("listing escalations failed", zap.Error(err))
		return nil, xerr.ErrServerError
	}

	out := make([]respond.EscalationRespond, 0, len(rows))
	for _, r := range rows {
		item := respond.EscalationRespond{
			ID:            r.Id,
			QueryID:       r.QueryId,
			Reason:        string(r.Reason),
			PriorityScore: r.PriorityScore,
			Status:        string(r.Status),
			EscalatedAt:   r.EscalatedAt,
		}
		if r.ConfidenceScore.Valid {
			v := r.ConfidenceScore.Float64
			item.ConfidenceScore = &v
		}
		out = append(out, item)
	}
	return out, nil
}
