// Package ingest 实现文档摄取流水线：切分、索引、摘要、上下文增强与向量化
// 各阶段通过消息队列串联，文档状态字段是阶段间唯一的写入接力棒
package ingest

import (
	"context"
	"fmt"
	"time"

	"ilka-rag-api/internal/application/chunking"
	"ilka-rag-api/internal/application/retrieval"
	"ilka-rag-api/internal/domain/repository"
	"ilka-rag-api/internal/domain/service"
	"ilka-rag-api/pkg/errors"
	"ilka-rag-api/pkg/logger"
	"ilka-rag-api/pkg/metrics"
)

// 流水线阶段，同时也是队列消息类型
const (
	StageProcessDocument    = "process_document"
	StageGenerateSummary    = "generate_summary"
	StageGenerateContexts   = "generate_contexts"
	StageGenerateEmbeddings = "generate_embeddings"
)

// StagePublisher 发布下一阶段任务的端口，由消息队列生产者实现
type StagePublisher interface {
	PublishIngestStage(ctx context.Context, stage, userID, documentID string) (string, error)
}

// Config 流水线参数
type Config struct {
	// SummaryInputTokens 摘要输入正文的 token 上限
	SummaryInputTokens int
	// ContextBatch 上下文增强的每批段落数
	ContextBatch int
	// EmbedBatch 向量化的每批段落数
	EmbedBatch int
	// EnrichPassages 是否启用上下文增强阶段
	EnrichPassages bool
}

// DefaultConfig 默认流水线参数
func DefaultConfig() Config {
	return Config{
		SummaryInputTokens: 50000,
		ContextBatch:       20,
		EmbedBatch:         100,
		EnrichPassages:     true,
	}
}

// Pipeline 摄取流水线
type Pipeline struct {
	cfg       Config
	documents repository.DocumentRepository
	passages  repository.PassageRepository
	summaries repository.SummaryRepository
	chunker   *chunking.HierarchicalChunker
	bm25      *retrieval.BM25Engine
	vectors   retrieval.VectorIndex
	embedder  retrieval.Embedder
	gen       service.TextGenerator
	publisher StagePublisher
}

// NewPipeline 创建摄取流水线
func NewPipeline(
	cfg Config,
	documents repository.DocumentRepository,
	passages repository.PassageRepository,
	summaries repository.SummaryRepository,
	bm25 *retrieval.BM25Engine,
	vectors retrieval.VectorIndex,
	embedder retrieval.Embedder,
	gen service.TextGenerator,
	publisher StagePublisher,
) *Pipeline {
	if cfg.SummaryInputTokens <= 0 {
		cfg.SummaryInputTokens = 50000
	}
	if cfg.ContextBatch <= 0 {
		cfg.ContextBatch = 20
	}
	if cfg.EmbedBatch <= 0 {
		cfg.EmbedBatch = 100
	}
	return &Pipeline{
		cfg:       cfg,
		documents: documents,
		passages:  passages,
		summaries: summaries,
		chunker:   chunking.NewHierarchicalChunker(),
		bm25:      bm25,
		vectors:   vectors,
		embedder:  embedder,
		gen:       gen,
		publisher: publisher,
	}
}

// HandleStage 执行指定阶段
// 失败时把文档标记为 error 并返回错误，交由队列按退避重试；
// 各阶段幂等，重试会重新推进状态
func (p *Pipeline) HandleStage(ctx context.Context, stage, userID, documentID string) error {
	ctx = logger.WithContext(ctx, logger.DocumentIDKey, documentID)
	ctx = logger.WithContext(ctx, logger.UserIDKey, userID)

	start := time.Now()
	var err error
	switch stage {
	case StageProcessDocument:
		err = p.ProcessDocument(ctx, userID, documentID)
	case StageGenerateSummary:
		err = p.GenerateSummary(ctx, userID, documentID)
	case StageGenerateContexts:
		err = p.GenerateContexts(ctx, userID, documentID)
	case StageGenerateEmbeddings:
		err = p.GenerateEmbeddings(ctx, userID, documentID)
	default:
		return errors.New(errors.CodeInvalidParam, fmt.Sprintf("未知的摄取阶段: %s", stage))
	}

	metrics.IngestStageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.IngestStageTotal.WithLabelValues(stage, "error").Inc()
		logger.Error(ctx, "摄取阶段失败", err, "stage", stage)
		if markErr := p.documents.MarkError(ctx, documentID, err.Error()); markErr != nil {
			logger.Error(ctx, "标记文档失败状态出错", markErr)
		}
		return err
	}
	metrics.IngestStageTotal.WithLabelValues(stage, "success").Inc()
	return nil
}

// advance 发布下一阶段任务
func (p *Pipeline) advance(ctx context.Context, stage, userID, documentID string) error {
	if _, err := p.publisher.PublishIngestStage(ctx, stage, userID, documentID); err != nil {
		return errors.Wrap(err, errors.CodeQueueError, "发布下一阶段任务失败")
	}
	return nil
}
