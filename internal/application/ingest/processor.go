package ingest

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"ilka-rag-api/internal/domain/entity"
	"ilka-rag-api/pkg/errors"
	"ilka-rag-api/pkg/logger"
)

// ProcessDocument 切分文档并重建词法索引
// 段落 ID 由文档 ID 与段落序号确定性派生，重试不会产生重复行
func (p *Pipeline) ProcessDocument(ctx context.Context, userID, documentID string) error {
	doc, err := p.documents.GetByID(ctx, userID, documentID)
	if err != nil {
		return err
	}
	if doc == nil {
		return errors.ErrDocumentNotFound
	}
	if doc.Content == "" {
		return errors.New(errors.CodeChunkingFailed, "文档没有可切分的正文")
	}

	if err := p.documents.UpdateStatus(ctx, documentID, entity.DocumentStatusChunking); err != nil {
		return err
	}

	chunks := p.chunker.Chunk(doc.Content)

	// 重试前清掉旧段落，避免残留
	if err := p.passages.DeleteByDocument(ctx, documentID); err != nil {
		return err
	}

	passages := make([]*entity.Passage, 0, len(chunks))
	for i, chunk := range chunks {
		passages = append(passages, &entity.Passage{
			ID:              PassageID(documentID, i),
			DocumentID:      documentID,
			UserID:          userID,
			FileName:        doc.FileName,
			ChunkIndex:      i,
			Text:            chunk.Text,
			Heading:         chunk.Heading,
			HeadingLevel:    chunk.HeadingLevel,
			ParentSectionID: chunk.ParentSectionID,
			StartLine:       chunk.StartLine,
			EndLine:         chunk.EndLine,
			WordCount:       chunk.WordCount,
			TokenCount:      chunk.TokenCount,
		})
	}
	if err := p.passages.CreateBatch(ctx, passages); err != nil {
		return err
	}
	if err := p.documents.SetPassageCount(ctx, documentID, len(passages)); err != nil {
		return err
	}

	if err := p.documents.UpdateStatus(ctx, documentID, entity.DocumentStatusIndexing); err != nil {
		return err
	}
	if err := p.bm25.Index(ctx, userID, documentID, passages); err != nil {
		return errors.Wrap(err, errors.CodeIndexingFailed, "重建词法索引失败")
	}

	if err := p.documents.UpdateStatus(ctx, documentID, entity.DocumentStatusSummarizing); err != nil {
		return err
	}

	logger.Info(ctx, "文档切分与索引完成", "passage_count", len(passages))
	return p.advance(ctx, StageGenerateSummary, userID, documentID)
}

// PassageID 从文档 ID 与段落序号确定性派生段落 ID
func PassageID(documentID string, index int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("%s/passage/%d", documentID, index))).String()
}
