package ingest

import (
	"context"

	"ilka-rag-api/internal/application/retrieval"
	"ilka-rag-api/internal/domain/entity"
	"ilka-rag-api/pkg/errors"
	"ilka-rag-api/pkg/logger"
	"ilka-rag-api/pkg/metrics"
)

// GenerateEmbeddings 向量化全部段落并写入向量索引，完成后文档进入 ready
// 向量 ID 与段落 ID 一致，重跑时覆盖旧向量
func (p *Pipeline) GenerateEmbeddings(ctx context.Context, userID, documentID string) error {
	passages, err := p.passages.GetByDocument(ctx, documentID)
	if err != nil {
		return err
	}
	if len(passages) == 0 {
		return errors.New(errors.CodeEmbeddingFailed, "文档没有可向量化的段落")
	}

	for start := 0; start < len(passages); start += p.cfg.EmbedBatch {
		end := start + p.cfg.EmbedBatch
		if end > len(passages) {
			end = len(passages)
		}
		batch := passages[start:end]

		texts := make([]string, 0, len(batch))
		for _, passage := range batch {
			texts = append(texts, passage.EmbeddingText())
		}
		vectors, err := p.embedder.EmbedStrings(ctx, texts)
		if err != nil {
			return errors.Wrap(err, errors.CodeEmbeddingFailed, "段落向量化失败")
		}
		if len(vectors) != len(batch) {
			return errors.New(errors.CodeEmbeddingFailed, "向量化结果数量与段落数不一致")
		}

		items := make([]retrieval.VectorItem, 0, len(batch))
		for i, passage := range batch {
			items = append(items, retrieval.VectorItem{
				ID:         passage.ID,
				DocumentID: passage.DocumentID,
				Heading:    passage.Heading,
				Vector:     vectors[i],
			})
		}
		if err := p.vectors.Upsert(ctx, userID, items); err != nil {
			return errors.Wrap(err, errors.CodeVectorDBError, "写入向量索引失败")
		}
		metrics.PassagesIndexed.WithLabelValues("vector").Add(float64(len(items)))
	}

	if err := p.documents.UpdateStatus(ctx, documentID, entity.DocumentStatusReady); err != nil {
		return err
	}
	logger.Info(ctx, "文档向量化完成，已进入可检索状态", "passage_count", len(passages))
	return nil
}
