package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpServer "ReviewQA/api/http"
	"ReviewQA/internal/config"
	"ReviewQA/internal/initial"
	"ReviewQA/internal/modules/qa/application/service"
	"ReviewQA/internal/modules/qa/infrastructure/cache"
	"ReviewQA/internal/modules/qa/infrastructure/embedding"
	"ReviewQA/internal/modules/qa/infrastructure/generation"
	"ReviewQA/internal/modules/qa/infrastructure/guardrails"
	"ReviewQA/internal/modules/qa/infrastructure/llm"
	"ReviewQA/internal/modules/qa/infrastructure/mq/kafka"
	"ReviewQA/internal/modules/qa/infrastructure/persistence"
	"ReviewQA/internal/modules/qa/infrastructure/pipeline"
	"ReviewQA/internal/modules/qa/infrastructure/queue"
	"ReviewQA/internal/modules/qa/infrastructure/retrieval"
	"ReviewQA/internal/modules/qa/infrastructure/vectordb"
	"ReviewQA/pkg/retry"
	"ReviewQA/pkg/util"
	"ReviewQA/pkg/zlog"

	"go.uber.org/zap"
)

func main() {
	conf := config.GetConfig()
	zlog.Init(conf.LogConfig.LogPath)
	defer zlog.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := initial.InitGorm(conf)
	if err != nil {
		zlog.Fatal("mysql init failed", zap.Error(err))
	}

	milvusCli, err := initial.InitMilvus(ctx, conf)
	if err != nil {
		zlog.Fatal("milvus init failed", zap.Error(err))
	}
	defer milvusCli.Close()

	redisCli, err := initial.InitRedis(conf)
	if err != nil {
		zlog.Warn("redis init failed, answer cache disabled", zap.Error(err))
	}

	topicAdmin := kafka.TopicAdminConfig{
		Brokers:  conf.KafkaConfig.Brokers,
		ClientID: conf.KafkaConfig.ClientID,
	}
	if err := kafka.EnsureTopic(topicAdmin, conf.KafkaConfig.QueryTopic, conf.KafkaConfig.Partitions, conf.KafkaConfig.Replication); err != nil {
		zlog.Fatal("kafka topic setup failed", zap.Error(err))
	}
	if err := kafka.EnsureTopic(topicAdmin, conf.KafkaConfig.DeadLetterTopic, 1, conf.KafkaConfig.Replication); err != nil {
		zlog.Fatal("kafka dead-letter topic setup failed", zap.Error(err))
	}

	// Repositories.
	queryRepo := persistence.NewQueryRepository(db)
	chunkRepo := persistence.NewChunkRepository(db)
	collectionRepo := persistence.NewCollectionRepository(db)
	escalationRepo := persistence.NewEscalationRepository(db)

	// Pipeline stages.
	validator := guardrails.NewValidator(conf.GuardrailsConfig.MinQueryLength, conf.GuardrailsConfig.MaxQueryLength)

	embedder, embedderMeta, err := embedding.NewEmbedderFromConfig(ctx, conf)
	if err != nil {
		zlog.Fatal("embedder init failed", zap.Error(err))
	}
	embeddingClient, err := embedding.NewClient(embedder, embedderMeta, retry.DefaultPolicy())
	if err != nil {
		zlog.Fatal("embedding client init failed", zap.Error(err))
	}

	vectorStore, err := vectordb.NewMilvusStore(milvusCli, embedderMeta.Dim)
	if err != nil {
		zlog.Fatal("vector store init failed", zap.Error(err))
	}
	retriever := retrieval.NewEngine(vectorStore, chunkRepo)

	chatModel, chatMeta, err := llm.NewChatModelFromConfig(ctx, conf)
	if err != nil {
		zlog.Fatal("chat model init failed", zap.Error(err))
	}
	generator, err := generation.NewAnswerGenerator(chatModel, chatMeta.Model, retry.DefaultPolicy())
	if err != nil {
		zlog.Fatal("answer generator init failed", zap.Error(err))
	}

	var answerCache *cache.AnswerCache
	if redisCli != nil {
		answerCache = cache.NewAnswerCache(redisCli, time.Duration(conf.QueryPipelineConfig.CacheTTLSeconds)*time.Second)
	}

	queryPipeline := pipeline.NewQueryPipeline(
		validator,
		embeddingClient,
		retriever,
		generator,
		queryRepo,
		escalationRepo,
		answerCache,
		pipeline.Defaults{
			Collection:          conf.QueryPipelineConfig.DefaultCollection,
			MaxChunks:           conf.QueryPipelineConfig.MaxChunks,
			ConfidenceThreshold: conf.QueryPipelineConfig.ConfidenceThreshold,
			MinScore:            conf.QueryPipelineConfig.MinScore,
		},
	)

	publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:  conf.KafkaConfig.Brokers,
		ClientID: conf.KafkaConfig.ClientID,
	})
	if err != nil {
		zlog.Fatal("kafka publisher init failed", zap.Error(err))
	}
	defer publisher.Close()

	// Queue worker.
	consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:  conf.KafkaConfig.Brokers,
		GroupID:  conf.KafkaConfig.ConsumerGroupID,
		Topics:   []string{conf.KafkaConfig.QueryTopic},
		ClientID: conf.KafkaConfig.ClientID,
		Prefetch: conf.KafkaConfig.Prefetch,
	})
	if err != nil {
		zlog.Fatal("kafka consumer init failed", zap.Error(err))
	}
	defer consumer.Close()

	workerID := fmt.Sprintf("%s-%s", conf.MainConfig.AppName, util.GenerateShortUUID())
	worker := queue.NewQueryConsumerWorker(consumer, queryRepo, queryPipeline, publisher, conf.KafkaConfig.DeadLetterTopic, workerID)

	workerDone := make(chan error, 1)
	go func() {
		zlog.Info("query worker starting",
			zap.String("worker_id", workerID),
			zap.String("topic", conf.KafkaConfig.QueryTopic),
			zap.String("group", conf.KafkaConfig.ConsumerGroupID))
		workerDone <- worker.Run(ctx)
	}()

	// HTTP front door.
	querySvc := service.NewQueryService(
		queryRepo,
		collectionRepo,
		escalationRepo,
		validator,
		publisher,
		conf.KafkaConfig.QueryTopic,
		conf.QueryPipelineConfig.DefaultCollection,
	)

	go func() {
		addr := fmt.Sprintf("%s:%d", conf.MainConfig.Host, conf.MainConfig.Port)
		zlog.Info("http server starting", zap.String("addr", addr))
		if err := httpServer.NewEngine(querySvc).Run(addr); err != nil {
			zlog.Fatal("http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		zlog.Info("shutdown signal received, draining worker")
		cancel()
		select {
		case err := <-workerDone:
			if err != nil && !errors.Is(err, context.Canceled) {
				zlog.Error("worker stopped with error", zap.Error(err))
			}
		case <-time.After(30 * time.Second):
			zlog.Warn("worker drain timed out")
		}
	case err := <-workerDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			zlog.Fatal("worker crashed", zap.Error(err))
		}
	}

	zlog.Info("shutdown complete")
}
