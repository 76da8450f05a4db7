package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ReviewQA/internal/modules/qa/domain/escalation"
	"ReviewQA/internal/modules/qa/domain/query"
	"ReviewQA/internal/modules/qa/domain/repository"
	"ReviewQA/internal/modules/qa/infrastructure/cache"
	"ReviewQA/internal/modules/qa/infrastructure/embedding"
	"ReviewQA/internal/modules/qa/infrastructure/generation"
	"ReviewQA/internal/modules/qa/infrastructure/guardrails"
	"ReviewQA/internal/modules/qa/infrastructure/retrieval"
	"ReviewQA/pkg/util"
	"ReviewQA/pkg/zlog"

	"go.uber.org/zap"
)

// ErrKind classifies a stage failure so the worker can decide between
// ack-without-requeue and broker redelivery.
type ErrKind string

const (
	// ErrKindValidation is terminal: guardrail rejection, bad collection.
	ErrKindValidation ErrKind = "validation"
	// ErrKindDependency is transient: an external service failed after the
	// local retry policy was exhausted.
	ErrKindDependency ErrKind = "dependency"
	// ErrKindStructural is terminal: the pipeline ran but found nothing to
	// answer from.
	ErrKindStructural ErrKind = "structural"
	// ErrKindPersistence is terminal for this delivery; the broker redelivers
	// and the answer is regenerated.
	ErrKindPersistence ErrKind = "persistence"
)

type StageError struct {
	Stage  string
	Kind   ErrKind
	Reason string
	Err    error
}

func (e *StageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Stage, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Stage, e.Reason)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage string, kind ErrKind, reason string, err error) *StageError {
	return &StageError{Stage: stage, Kind: kind, Reason: reason, Err: err}
}

// Job is one unit of work after envelope decoding. Zero overrides fall back
// to the pipeline defaults.
type Job struct {
	QueryID             string
	QueryText           string
	CollectionName      string
	MaxChunks           int
	ConfidenceThreshold float64
}

type Outcome struct {
	AnswerID        string
	ConfidenceScore float64
	ChunksRetrieved int
	CacheHit        bool
	Escalated       bool
}

type Defaults struct {
	Collection          string
	MaxChunks           int
	ConfidenceThreshold float64
	MinScore            float64
}

// QueryPipeline runs the five stages for one query: validate, embed,
// retrieve, generate, persist. All dependencies are injected; the pipeline
// holds no connection state of its own.
type QueryPipeline struct {
	validator   *guardrails.Validator
	embedder    *embedding.Client
	retriever   *retrieval.Engine
	generator   *generation.AnswerGenerator
	queries     repository.QueryRepository
	escalations repository.EscalationRepository
	answerCache *cache.AnswerCache
	defaults    Defaults
}

func NewQueryPipeline(
	validator *guardrails.Validator,
	embedder *embedding.Client,
	retriever *retrieval.Engine,
	generator *generation.AnswerGenerator,
	queries repository.QueryRepository,
	escalations repository.EscalationRepository,
	answerCache *cache.AnswerCache,
	defaults Defaults,
) *QueryPipeline {
	if defaults.MaxChunks <= 0 {
		defaults.MaxChunks = 10
	}
	if defaults.ConfidenceThreshold <= 0 {
		defaults.ConfidenceThreshold = 0.7
	}
	return &QueryPipeline{
		validator:   validator,
		embedder:    embedder,
		retriever:   retriever,
		generator:   generator,
		queries:     queries,
		escalations: escalations,
		answerCache: answerCache,
		defaults:    defaults,
	}
}

func (p *QueryPipeline) Execute(ctx context.Context, job Job) (*Outcome, *StageError) {
	started := time.Now()

	collection := job.CollectionName
	if collection == "" {
		collection = p.defaults.Collection
	}
	maxChunks := job.MaxChunks
	if maxChunks <= 0 {
		maxChunks = p.defaults.MaxChunks
	}
	threshold := job.ConfidenceThreshold
	if threshold <= 0 {
		threshold = p.defaults.ConfidenceThreshold
	}

	// Stage 1: guardrails. Downstream stages only ever see the sanitized
	// text.
	vr := p.validator.ValidateQuery(job.QueryText)
	if !vr.IsValid {
		return nil, stageErr("validate", ErrKindValidation, vr.Reason, nil)
	}
	question := vr.SanitizedInput

	if cr := p.validator.ValidateCollectionName(collection); !cr.IsValid {
		return nil, stageErr("validate", ErrKindValidation, cr.Reason, nil)
	}

	if cached, ok := p.answerCache.Get(ctx, collection, question); ok {
		return p.persistCached(ctx, job.QueryID, collection, question, threshold, cached, started)
	}

	// Stage 2: embedding.
	vector, err := p.embedder.Embed(ctx, question)
	if err != nil {
		return nil, stageErr("embed", ErrKindDependency, "embedding failed", err)
	}

	// Stage 3: retrieval.
	retrievalStart := time.Now()
	passages, err := p.retriever.Retrieve(ctx, collection, vector, maxChunks, p.defaults.MinScore)
	if err != nil {
		return nil, stageErr("retrieve", ErrKindDependency, "vector search failed", err)
	}
	retrievalMs := time.Since(retrievalStart).Milliseconds()

	if len(passages) == 0 {
		return nil, stageErr("retrieve", ErrKindStructural, "no relevant documents found", nil)
	}

	// Stage 4: generation.
	generationStart := time.Now()
	gen, err := p.generator.Generate(ctx, question, passages)
	if err != nil {
		return nil, stageErr("generate", ErrKindDependency, "answer generation failed", err)
	}
	generationMs := time.Since(generationStart).Milliseconds()

	escalate := gen.ConfidenceScore < threshold

	validationStatus := query.ValidationPassed
	if gen.SafetyReplaced {
		validationStatus = query.ValidationWarnings
	}

	now := time.Now()
	answer := &query.Answer{
		Id:               util.GenerateUUID(),
		QueryId:          job.QueryID,
		AnswerText:       gen.Answer,
		ConfidenceScore:  gen.ConfidenceScore,
		ModelName:        gen.Model,
		PromptTokens:     gen.PromptTokens,
		CompletionTokens: gen.CompletionTokens,
		RetrievalMs:      retrievalMs,
		GenerationMs:     generationMs,
		TotalMs:          time.Since(started).Milliseconds(),
		CacheHit:         false,
		ValidationStatus: validationStatus,
		EscalationFlag:   escalate,
		RedactionFlag:    gen.SafetyReplaced,
		GeneratedAt:      now,
	}

	results := make([]query.QueryResult, 0, len(passages))
	for _, passage := range passages {
		results = append(results, query.QueryResult{
			Id:              util.GenerateUUID(),
			QueryId:         job.QueryID,
			ChunkId:         passage.ChunkID,
			SimilarityScore: passage.SimilarityScore,
			RankPosition:    passage.RankPosition,
			RetrievedAt:     passage.RetrievedAt,
		})
	}

	// Stage 5: persistence. One attempt; the answer is regenerated on
	// redelivery if the commit fails.
	if err := p.queries.SaveAnswerWithResults(ctx, answer, results); err != nil {
		return nil, stageErr("persist", ErrKindPersistence, "saving answer failed", err)
	}

	if escalate {
		p.createEscalation(ctx, job.QueryID, answer.Id, gen.ConfidenceScore, now)
		if err := p.queries.MarkEscalated(ctx, job.QueryID, now); err != nil {
			return nil, stageErr("persist", ErrKindPersistence, "updating query status failed", err)
		}
	} else {
		if err := p.queries.MarkCompleted(ctx, job.QueryID, now); err != nil {
			return nil, stageErr("persist", ErrKindPersistence, "updating query status failed", err)
		}
	}

	p.answerCache.Set(ctx, collection, question, toCached(answer, results))

	return &Outcome{
		AnswerID:        answer.Id,
		ConfidenceScore: gen.ConfidenceScore,
		ChunksRetrieved: len(passages),
		CacheHit:        false,
		Escalated:       escalate,
	}, nil
}

// persistCached writes a fresh answer row from a cache hit so the query still
// gets its own immutable Answer, skipping the embed/retrieve/generate cost.
func (p *QueryPipeline) persistCached(ctx context.Context, queryID, collection, question string, threshold float64, cached *cache.CachedAnswer, started time.Time) (*Outcome, *StageError) {
	now := time.Now()
	escalate := cached.ConfidenceScore < threshold

	validationStatus := cached.ValidationStatus
	if validationStatus == "" {
		validationStatus = query.ValidationPassed
	}

	answer := &query.Answer{
		Id:               util.GenerateUUID(),
		QueryId:          queryID,
		AnswerText:       cached.AnswerText,
		ConfidenceScore:  cached.ConfidenceScore,
		ModelName:        cached.Model,
		PromptTokens:     cached.PromptTokens,
		CompletionTokens: cached.CompletionTokens,
		TotalMs:          time.Since(started).Milliseconds(),
		CacheHit:         true,
		ValidationStatus: validationStatus,
		EscalationFlag:   escalate,
		GeneratedAt:      now,
	}

	results := make([]query.QueryResult, 0, len(cached.Passages))
	for _, passage := range cached.Passages {
		results = append(results, query.QueryResult{
			Id:              util.GenerateUUID(),
			QueryId:         queryID,
			ChunkId:         passage.ChunkID,
			SimilarityScore: passage.SimilarityScore,
			RankPosition:    passage.RankPosition,
			RetrievedAt:     now,
		})
	}

	if err := p.queries.SaveAnswerWithResults(ctx, answer, results); err != nil {
		return nil, stageErr("persist", ErrKindPersistence, "saving cached answer failed", err)
	}

	if escalate {
		p.createEscalation(ctx, queryID, answer.Id, cached.ConfidenceScore, now)
		if err := p.queries.MarkEscalated(ctx, queryID, now); err != nil {
			return nil, stageErr("persist", ErrKindPersistence, "updating query status failed", err)
		}
	} else {
		if err := p.queries.MarkCompleted(ctx, queryID, now); err != nil {
			return nil, stageErr("persist", ErrKindPersistence, "updating query status failed", err)
		}
	}

	zlog.Info("answer served from cache",
		zap.String("query_id", queryID),
		zap.String("collection", collection),
		zap.Float64("confidence", cached.ConfidenceScore))

	return &Outcome{
		AnswerID:        answer.Id,
		ConfidenceScore: cached.ConfidenceScore,
		ChunksRetrieved: len(results),
		CacheHit:        true,
		Escalated:       escalate,
	}, nil
}

// createEscalation is best-effort; losing the row does not fail the delivery
// since the escalation flag is already on the answer.
func (p *QueryPipeline) createEscalation(ctx context.Context, queryID, answerID string, confidence float64, now time.Time) {
	if p.escalations == nil {
		return
	}
	req := &escalation.EscalationRequest{
		Id:              util.GenerateUUID(),
		QueryId:         queryID,
		AnswerId:        sql.NullString{String: answerID, Valid: true},
		Reason:          escalation.ReasonLowConfidence,
		ConfidenceScore: sql.NullFloat64{Float64: confidence, Valid: true},
		PriorityScore:   escalation.Priority(escalation.ReasonLowConfidence, 0, "standard", &confidence),
		Status:          escalation.StatusQueued,
		EscalatedAt:     now,
	}
	if err := p.escalations.Create(ctx, req); err != nil {
		zlog.Warn("creating escalation request failed",
			zap.String("query_id", queryID),
			zap.Error(err))
	}
}

func toCached(answer *query.Answer, results []query.QueryResult) *cache.CachedAnswer {
	passages := make([]cache.CachedPassage, 0, len(results))
	for _, r := range results {
		passages = append(passages, cache.CachedPassage{
			ChunkID:         r.ChunkId,
			SimilarityScore: r.SimilarityScore,
			RankPosition:    r.RankPosition,
		})
	}
	return &cache.CachedAnswer{
		AnswerText:       answer.AnswerText,
		ConfidenceScore:  answer.ConfidenceScore,
		Model:            answer.ModelName,
		PromptTokens:     answer.PromptTokens,
		CompletionTokens: answer.CompletionTokens,
		ValidationStatus: answer.ValidationStatus,
		Passages:         passages,
	}
}
