// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"ilka-rag-api/internal/domain/entity"
)

// SummaryRepository 文档摘要仓储接口
type SummaryRepository interface {
	// Upsert 写入或更新文档摘要
	Upsert(ctx context.Context, summary *entity.DocumentSummary) error

	// GetByDocument 获取文档摘要
	GetByDocument(ctx context.Context, documentID string) (*entity.DocumentSummary, error)

	// DeleteByDocument 删除文档摘要
	DeleteByDocument(ctx context.Context, documentID string) error
}
