// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"ilka-rag-api/internal/domain/entity"
)

// PassageRepository 段落仓储接口
type PassageRepository interface {
	// CreateBatch 批量创建段落
	CreateBatch(ctx context.Context, passages []*entity.Passage) error

	// GetByID 根据 ID 获取段落
	GetByID(ctx context.Context, id string) (*entity.Passage, error)

	// GetByIDs 批量获取段落
	GetByIDs(ctx context.Context, ids []string) ([]*entity.Passage, error)

	// GetByDocument 获取文档全部段落（按 chunk_index 排序）
	GetByDocument(ctx context.Context, documentID string) ([]*entity.Passage, error)

	// GetBySection 获取文档内同一章节的段落（按 chunk_index 排序）
	// 匹配 parent_section_id 或 heading 等于给定章节键
	GetBySection(ctx context.Context, documentID, sectionKey string) ([]*entity.Passage, error)

	// GetNeighbors 获取段落在文档中的相邻段落（不含自身）
	GetNeighbors(ctx context.Context, documentID string, chunkIndex, window int) ([]*entity.Passage, error)

	// UpdateContext 写入上下文增强文本
	UpdateContext(ctx context.Context, id, context string) error

	// DeleteByDocument 删除文档全部段落
	DeleteByDocument(ctx context.Context, documentID string) error

	// CountByUser 统计用户段落总数
	CountByUser(ctx context.Context, userID string) (int64, error)
}
