// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ilka-rag-api/internal/domain/entity"
)

// SummaryRepository 文档摘要仓储实现
type SummaryRepository struct {
	client *Client
}

// NewSummaryRepository 创建文档摘要仓储
func NewSummaryRepository(client *Client) *SummaryRepository {
	return &SummaryRepository{client: client}
}

// Upsert 写入或更新文档摘要
// 按 document_id 冲突覆盖，重跑摘要阶段不会产生重复行
func (r *SummaryRepository) Upsert(ctx context.Context, summary *entity.DocumentSummary) error {
	ctx, span := tracer.Start(ctx, "postgres.SummaryRepository.Upsert")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "document_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"summary", "keywords", "updated_at"}),
	}).Create(summary).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to upsert document summary: %w", err)
	}
	return nil
}

// GetByDocument 获取文档摘要
func (r *SummaryRepository) GetByDocument(ctx context.Context, documentID string) (*entity.DocumentSummary, error) {
	ctx, span := tracer.Start(ctx, "postgres.SummaryRepository.GetByDocument")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var summary entity.DocumentSummary
	if err := db.First(&summary, "document_id = ?", documentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get document summary: %w", err)
	}
	return &summary, nil
}

// DeleteByDocument 删除文档摘要
func (r *SummaryRepository) DeleteByDocument(ctx context.Context, documentID string) error {
	ctx, span := tracer.Start(ctx, "postgres.SummaryRepository.DeleteByDocument")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Delete(&entity.DocumentSummary{}, "document_id = ?", documentID).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete document summary: %w", err)
	}
	return nil
}
