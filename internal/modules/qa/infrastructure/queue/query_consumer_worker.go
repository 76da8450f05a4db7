package queue

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"ReviewQA/internal/modules/qa/domain/query"
	"ReviewQA/internal/modules/qa/domain/repository"
	"ReviewQA/internal/modules/qa/infrastructure/mq"
	"ReviewQA/internal/modules/qa/infrastructure/pipeline"
	"ReviewQA/pkg/zlog"

	"go.uber.org/zap"
)

// ProcessQueryMessage is the queue envelope for one query. Zero values for
// the optional fields mean "use the configured default".
type ProcessQueryMessage struct {
	MessageID           string  `json:"message_id"`
	QueryID             string  `json:"query_id"`
	QueryText           string  `json:"query_text"`
	CollectionName      string  `json:"collection_name"`
	MaxChunks           int     `json:"max_chunks"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`
	RetryCount          int     `json:"retry_count"`
}

// QueryConsumerWorker drives the pipeline from the query topic. Handle
// returning nil acknowledges the delivery; returning an error leaves it for
// redelivery. Poison messages are parked on the dead-letter topic and acked;
// terminal failures are acknowledged after the persisted status is updated,
// transient failures are not.
type QueryConsumerWorker struct {
	consumer  mq.Consumer
	queries   repository.QueryRepository
	pipeline  *pipeline.QueryPipeline
	publisher mq.Publisher
	dlqTopic  string
	workerID  string
}

func NewQueryConsumerWorker(consumer mq.Consumer, queries repository.QueryRepository, p *pipeline.QueryPipeline, publisher mq.Publisher, dlqTopic, workerID string) *QueryConsumerWorker {
	return &QueryConsumerWorker{
		consumer:  consumer,
		queries:   queries,
		pipeline:  p,
		publisher: publisher,
		dlqTopic:  dlqTopic,
		workerID:  workerID,
	}
}

func (w *QueryConsumerWorker) Run(ctx context.Context) error {
	if w == nil || w.consumer == nil {
		return errors.New("consumer is nil")
	}
	if w.queries == nil {
		return errors.New("query repo is nil")
	}
	if w.pipeline == nil {
		return errors.New("pipeline is nil")
	}
	return w.consumer.Run(ctx, w)
}

func (w *QueryConsumerWorker) Handle(ctx context.Context, msg mq.Message) error {
	var pm ProcessQueryMessage
	if err := json.Unmarshal(msg.Value, &pm); err != nil {
		// Poison message: no query_id to update, park it on the dead-letter
		// topic instead of requeueing.
		zlog.Warn("query worker got malformed message",
			zap.String("topic", msg.Topic),
			zap.Error(err))
		return w.deadLetter(ctx, msg, "malformed payload")
	}

	queryID := strings.TrimSpace(pm.QueryID)
	if queryID == "" {
		zlog.Warn("query worker got message without query_id",
			zap.String("topic", msg.Topic),
			zap.String("message_id", pm.MessageID))
		return w.deadLetter(ctx, msg, "missing query_id")
	}

	q, err := w.queries.GetByID(ctx, queryID)
	if err != nil {
		zlog.Warn("query worker load query failed", zap.String("query_id", queryID), zap.Error(err))
		return err
	}
	if q == nil {
		zlog.Warn("query worker got message for unknown query", zap.String("query_id", queryID))
		return nil
	}
	if q.Status == query.StatusCompleted || q.Status == query.StatusEscalated {
		// Redelivered after a crash between persistence and ack.
		return nil
	}

	now := time.Now()
	ok, err := w.queries.TryMarkProcessing(ctx, queryID, w.workerID, now)
	if err != nil {
		zlog.Warn("query worker mark processing failed", zap.String("query_id", queryID), zap.Error(err))
		return err
	}
	if !ok {
		return nil
	}

	zlog.Info("processing query",
		zap.String("query_id", queryID),
		zap.String("message_id", pm.MessageID),
		zap.Int("retry_count", pm.RetryCount))

	outcome, stageErr := w.pipeline.Execute(ctx, pipeline.Job{
		QueryID:             queryID,
		QueryText:           pm.QueryText,
		CollectionName:      strings.TrimSpace(pm.CollectionName),
		MaxChunks:           pm.MaxChunks,
		ConfidenceThreshold: pm.ConfidenceThreshold,
	})
	if stageErr != nil {
		return w.handleFailure(ctx, queryID, stageErr)
	}

	zlog.Info("query processed",
		zap.String("query_id", queryID),
		zap.String("answer_id", outcome.AnswerID),
		zap.Float64("confidence", outcome.ConfidenceScore),
		zap.Int("chunks_retrieved", outcome.ChunksRetrieved),
		zap.Bool("cache_hit", outcome.CacheHit),
		zap.Bool("escalated", outcome.Escalated))
	return nil
}

func (w *QueryConsumerWorker) handleFailure(ctx context.Context, queryID string, stageErr *pipeline.StageError) error {
	reason := scrubErrMsg(stageErr.Reason)
	if stageErr.Kind == pipeline.ErrKindValidation || stageErr.Kind == pipeline.ErrKindStructural {
		// Permanently invalid for this input: record and drop.
		if err := w.queries.MarkFailed(ctx, queryID, reason, time.Now()); err != nil {
			zlog.Warn("query worker mark failed failed", zap.String("query_id", queryID), zap.Error(err))
			return err
		}
		zlog.Warn("query rejected",
			zap.String("query_id", queryID),
			zap.String("stage", stageErr.Stage),
			zap.String("kind", string(stageErr.Kind)),
			zap.String("reason", reason))
		return nil
	}

	// Transient dependency or persistence failure: record the failure and
	// leave the delivery unacknowledged so the broker retries it.
	_ = w.queries.MarkFailed(ctx, queryID, scrubErrMsg(stageErr.Error()), time.Now())
	zlog.Error("query processing failed",
		zap.String("query_id", queryID),
		zap.String("stage", stageErr.Stage),
		zap.String("kind", string(stageErr.Kind)),
		zap.Error(stageErr))
	return stageErr
}

// deadLetter parks an undecodable delivery on the dead-letter topic so it can
// be inspected instead of vanishing on ack. A failed park returns the error,
// leaving the delivery unacknowledged rather than losing it.
func (w *QueryConsumerWorker) deadLetter(ctx context.Context, msg mq.Message, reason string) error {
	if w.publisher == nil || w.dlqTopic == "" {
		return nil
	}

	headers := make(map[string]string, len(msg.Headers)+2)
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers["dead-letter-reason"] = reason
	headers["source-topic"] = msg.Topic

	_, err := w.publisher.Publish(ctx, mq.Message{
		Topic:   w.dlqTopic,
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
	})
	if err != nil {
		zlog.Error("dead-letter publish failed",
			zap.String("topic", w.dlqTopic),
			zap.String("reason", reason),
			zap.Error(err))
		return err
	}
	return nil
}

func scrubErrMsg(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	low := strings.ToLower(s)
	if strings.Contains(low, "api_key") || strings.Contains(low, "apikey") || strings.Contains(low, "secret") || strings.Contains(s, "sk-") {
		return "redacted"
	}
	if len(s) > 255 {
		return s[:255]
	}
	return s
}
