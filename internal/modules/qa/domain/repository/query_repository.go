package repository

import (
	"context"
	"time"

	"ReviewQA/internal/modules/qa/domain/escalation"
	"ReviewQA/internal/modules/qa/domain/query"
)

type QueryRepository interface {
	Create(ctx context.Context, q *query.Query) error
	GetByID(ctx context.Context, id string) (*query.Query, error)
	// TryMarkProcessing claims the query for a worker. Returns false when the
	// query is already completed or claimed by a concurrent delivery.
	TryMarkProcessing(ctx context.Context, id string, workerID string, now time.Time) (bool, error)
	MarkCompleted(ctx context.Context, id string, now time.Time) error
	MarkEscalated(ctx context.Context, id string, now time.Time) error
	MarkFailed(ctx context.Context, id string, reason string, now time.Time) error
	// SaveAnswerWithResults persists the answer and its retrieved-passage rows
	// as a single transaction. Prior rows for the same query are replaced so
	// broker redelivery cannot stack duplicates.
	SaveAnswerWithResults(ctx context.Context, answer *query.Answer, results []query.QueryResult) error
	GetAnswerByQueryID(ctx context.Context, queryID string) (*query.Answer, error)
	GetResultsByQueryID(ctx context.Context, queryID string) ([]query.QueryResult, error)
}

type ChunkRepository interface {
	GetByID(ctx context.Context, id string) (*query.Chunk, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]*query.Chunk, error)
}

type CollectionRepository interface {
	GetByName(ctx context.Context, name string) (*query.Collection, error)
}

type EscalationRepository interface {
	Create(ctx context.Context, req *escalation.EscalationRequest) error
	GetByID(ctx context.Context, id string) (*escalation.EscalationRequest, error)
	ListQueued(ctx context.Context, limit int) ([]escalation.EscalationRequest, error)
	UpdateStatus(ctx context.Context, id string, status escalation.AssignmentStatus, agentID string, now time.Time) error
}
