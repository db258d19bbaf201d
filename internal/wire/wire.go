// Package wire 提供依赖注入配置
package wire

import (
	"context"
	"fmt"
	"os"

	"ilka-rag-api/internal/application/ingest"
	"ilka-rag-api/internal/application/method"
	"ilka-rag-api/internal/application/query"
	"ilka-rag-api/internal/application/retrieval"
	"ilka-rag-api/internal/config"
	infraembedding "ilka-rag-api/internal/infrastructure/embedding"
	"ilka-rag-api/internal/infrastructure/eino/callback"
	"ilka-rag-api/internal/infrastructure/llm"
	"ilka-rag-api/internal/infrastructure/messaging"
	"ilka-rag-api/internal/infrastructure/persistence/milvus"
	"ilka-rag-api/internal/infrastructure/persistence/postgres"
	"ilka-rag-api/internal/infrastructure/persistence/redis"
	"ilka-rag-api/internal/interfaces/http/handler"
	"ilka-rag-api/internal/interfaces/http/middleware"
	"ilka-rag-api/internal/interfaces/http/router"
)

// App API 服务依赖容器
type App struct {
	Router       *router.Router
	PgClient     *postgres.Client
	RedisClient  *redis.Client
	MilvusClient *milvus.Client
}

// Worker 摄取工作进程依赖容器
type Worker struct {
	Consumer *messaging.Consumer
	Pipeline *ingest.Pipeline
}

// dataLayer 两个进程共用的数据层依赖
type dataLayer struct {
	pgClient     *postgres.Client
	txManager    *postgres.TxManager
	userRepo     *postgres.UserRepository
	documentRepo *postgres.DocumentRepository
	passageRepo  *postgres.PassageRepository
	termRepo     *postgres.TermIndexRepository
	summaryRepo  *postgres.SummaryRepository

	redisClient *redis.Client
	cache       *redis.Cache
	rateLimiter *redis.RateLimiter
	producer    *messaging.Producer

	milvusClient *milvus.Client
	vectorIndex  *milvus.PassageVectorIndex

	embedClient *infraembedding.Client
	factory     *llm.EinoFactory
	generator   *llm.Generator
}

// cleanupStack 按注册逆序执行清理
type cleanupStack struct {
	fns []func()
}

func (s *cleanupStack) push(fn func()) {
	s.fns = append(s.fns, fn)
}

func (s *cleanupStack) run() {
	for i := len(s.fns) - 1; i >= 0; i-- {
		s.fns[i]()
	}
}

// initDataLayer 初始化数据层，任一必需依赖失败即整体失败
func initDataLayer(ctx context.Context, cfg *config.Config, cleanup *cleanupStack) (*dataLayer, error) {
	pgClient, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	cleanup.push(func() { _ = pgClient.Close() })

	redisClient, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, fmt.Errorf("init redis: %w", err)
	}
	cleanup.push(func() { _ = redisClient.Close() })

	milvusClient, err := milvus.NewClient(ctx, &cfg.Vector.Milvus)
	if err != nil {
		return nil, fmt.Errorf("init milvus: %w", err)
	}
	cleanup.push(func() { _ = milvusClient.Close() })

	vectorRepo := milvus.NewRepository(milvusClient)
	if err := vectorRepo.EnsurePassagesCollection(ctx); err != nil {
		return nil, fmt.Errorf("ensure passages collection: %w", err)
	}

	einoEmbedder, err := infraembedding.NewEinoEmbedder(ctx, &cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("init embedder: %w", err)
	}

	callback.Init()
	factory := llm.NewEinoFactory(cfg)

	maxLen := cfg.Messaging.RedisStream.MaxLen
	return &dataLayer{
		pgClient:     pgClient,
		txManager:    postgres.NewTxManager(pgClient),
		userRepo:     postgres.NewUserRepository(pgClient),
		documentRepo: postgres.NewDocumentRepository(pgClient),
		passageRepo:  postgres.NewPassageRepository(pgClient),
		termRepo:     postgres.NewTermIndexRepository(pgClient),
		summaryRepo:  postgres.NewSummaryRepository(pgClient),
		redisClient:  redisClient,
		cache:        redis.NewCache(redisClient),
		rateLimiter:  redis.NewRateLimiter(redisClient),
		producer:     messaging.NewProducer(redisClient.Redis(), int64(maxLen)),
		milvusClient: milvusClient,
		vectorIndex:  milvus.NewPassageVectorIndex(vectorRepo),
		embedClient:  infraembedding.NewClient(einoEmbedder, cfg.Embedding.BatchSize),
		factory:      factory,
		generator:    llm.NewGenerator(factory, cfg.LLM.DefaultProvider),
	}, nil
}

// InitializeApp 初始化 API 服务
func InitializeApp(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	cleanup := &cleanupStack{}

	data, err := initDataLayer(ctx, cfg, cleanup)
	if err != nil {
		cleanup.run()
		return nil, nil, err
	}

	bm25 := retrieval.NewBM25Engine(data.termRepo, data.passageRepo)
	reranker := retrieval.NewReranker(data.embedClient)
	vectorRetriever := retrieval.NewVectorRetriever(data.vectorIndex, data.embedClient, data.passageRepo)

	engine := method.NewDefaultEngine(
		bm25,
		reranker,
		vectorRetriever,
		data.documentRepo,
		data.summaryRepo,
		data.passageRepo,
		data.generator,
	)

	analyzer := query.NewAnalyzer(data.generator, data.cache)
	queryRouter := query.NewRouter()

	authCfg := middleware.AuthConfig{
		Secret:    cfg.Security.JWT.Secret,
		Issuer:    cfg.Security.JWT.Issuer,
		SkipPaths: middleware.DefaultSkipPaths,
		Enabled:   cfg.Security.JWT.Enabled,
	}

	handlers := router.Handlers{
		Health:   handler.NewHealthHandler(data.pgClient, data.redisClient, data.milvusClient),
		Auth:     handler.NewAuthHandler(authCfg, data.userRepo),
		Document: handler.NewDocumentHandler(data.documentRepo, data.passageRepo, data.termRepo, data.summaryRepo, data.vectorIndex, data.producer),
		Query:    handler.NewQueryHandler(cfg, analyzer, queryRouter, engine, data.factory),
		Stream:   handler.NewStreamHandler(cfg, data.factory),
	}

	app := &App{
		Router:       router.New(cfg, handlers, data.rateLimiter, data.txManager),
		PgClient:     data.pgClient,
		RedisClient:  data.redisClient,
		MilvusClient: data.milvusClient,
	}
	return app, cleanup.run, nil
}

// InitializeWorker 初始化摄取工作进程
func InitializeWorker(ctx context.Context, cfg *config.Config) (*Worker, func(), error) {
	cleanup := &cleanupStack{}

	data, err := initDataLayer(ctx, cfg, cleanup)
	if err != nil {
		cleanup.run()
		return nil, nil, err
	}

	bm25 := retrieval.NewBM25Engine(data.termRepo, data.passageRepo)

	pipeline := ingest.NewPipeline(
		ingest.Config{
			SummaryInputTokens: cfg.Ingest.SummaryInputTokens,
			ContextBatch:       cfg.Ingest.ContextBatch,
			EmbedBatch:         cfg.Embedding.BatchSize,
			EnrichPassages:     cfg.Ingest.EnrichPassages,
		},
		data.documentRepo,
		data.passageRepo,
		data.summaryRepo,
		bm25,
		data.vectorIndex,
		data.embedClient,
		data.generator,
		data.producer,
	)

	consumerName := cfg.Ingest.ConsumerName
	if consumerName == "" {
		host, _ := os.Hostname()
		consumerName = "ingest-" + host
	}

	streamCfg := cfg.Messaging.RedisStream
	consumer := messaging.NewConsumer(data.redisClient.Redis(), messaging.ConsumerConfig{
		Stream:        messaging.StreamIngestDocument,
		Group:         messaging.ConsumerGroupIngestWorker,
		ConsumerName:  consumerName,
		BlockTimeout:  streamCfg.BlockTimeout,
		ClaimInterval: streamCfg.ClaimInterval,
		RetryLimit:    streamCfg.RetryLimit,
		Backoff: messaging.BackoffConfig{
			Initial:    streamCfg.RetryBackoff.Initial,
			Max:        streamCfg.RetryBackoff.Max,
			Multiplier: streamCfg.RetryBackoff.Multiplier,
		},
	})

	registerIngestHandlers(consumer, pipeline, cfg)

	return &Worker{Consumer: consumer, Pipeline: pipeline}, cleanup.run, nil
}

// registerIngestHandlers 把流水线各阶段挂到消费者，消息类型即阶段名
func registerIngestHandlers(consumer *messaging.Consumer, pipeline *ingest.Pipeline, cfg *config.Config) {
	stageTimeout := cfg.Ingest.StageTimeout

	handle := func(ctx context.Context, msg *messaging.Message) error {
		if stageTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, stageTimeout)
			defer cancel()
		}
		return pipeline.HandleStage(ctx, msg.Type, msg.UserID, msg.DocumentID)
	}

	for _, stage := range []string{
		ingest.StageProcessDocument,
		ingest.StageGenerateSummary,
		ingest.StageGenerateContexts,
		ingest.StageGenerateEmbeddings,
	} {
		consumer.RegisterHandler(stage, handle)
	}
}
