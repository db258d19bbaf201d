// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"ilka-rag-api/internal/domain/entity"
)

// DocumentFilter 文档过滤条件
type DocumentFilter struct {
	Status entity.DocumentStatus
}

// DocumentRepository 文档仓储接口
type DocumentRepository interface {
	// Create 创建文档
	Create(ctx context.Context, doc *entity.Document) error

	// GetByID 根据 ID 获取文档（限定用户）
	GetByID(ctx context.Context, userID, id string) (*entity.Document, error)

	// Update 更新文档
	Update(ctx context.Context, doc *entity.Document) error

	// UpdateStatus 更新文档状态
	UpdateStatus(ctx context.Context, id string, status entity.DocumentStatus) error

	// MarkError 标记文档处理失败
	MarkError(ctx context.Context, id string, message string) error

	// SetPassageCount 记录切分后的段落数量
	SetPassageCount(ctx context.Context, id string, count int) error

	// Delete 删除文档
	Delete(ctx context.Context, userID, id string) error

	// ListByUser 获取用户文档列表
	ListByUser(ctx context.Context, userID string, filter *DocumentFilter, pagination Pagination) (*PagedResult[*entity.Document], error)

	// FindByFileName 按文件名子串匹配用户文档
	FindByFileName(ctx context.Context, userID, namePart string) ([]*entity.Document, error)

	// ListReady 获取用户所有可检索文档
	ListReady(ctx context.Context, userID string) ([]*entity.Document, error)
}
