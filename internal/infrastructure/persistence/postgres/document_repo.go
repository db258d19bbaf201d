// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"ilka-rag-api/internal/domain/entity"
	"ilka-rag-api/internal/domain/repository"
)

// DocumentRepository 文档仓储实现
type DocumentRepository struct {
	client *Client
}

// NewDocumentRepository 创建文档仓储
func NewDocumentRepository(client *Client) *DocumentRepository {
	return &DocumentRepository{client: client}
}

// Create 创建文档
func (r *DocumentRepository) Create(ctx context.Context, doc *entity.Document) error {
	ctx, span := tracer.Start(ctx, "postgres.DocumentRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(doc).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取文档（限定用户）
func (r *DocumentRepository) GetByID(ctx context.Context, userID, id string) (*entity.Document, error) {
	ctx, span := tracer.Start(ctx, "postgres.DocumentRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var doc entity.Document
	if err := db.First(&doc, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &doc, nil
}

// Update 更新文档
func (r *DocumentRepository) Update(ctx context.Context, doc *entity.Document) error {
	ctx, span := tracer.Start(ctx, "postgres.DocumentRepository.Update")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Save(doc).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update document: %w", err)
	}
	return nil
}

// UpdateStatus 更新文档状态
func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status entity.DocumentStatus) error {
	ctx, span := tracer.Start(ctx, "postgres.DocumentRepository.UpdateStatus")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Model(&entity.Document{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update document status: %w", err)
	}
	return nil
}

// MarkError 标记文档处理失败
func (r *DocumentRepository) MarkError(ctx context.Context, id string, message string) error {
	ctx, span := tracer.Start(ctx, "postgres.DocumentRepository.MarkError")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Model(&entity.Document{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":        entity.DocumentStatusError,
		"error_message": message,
		"updated_at":    time.Now(),
	}).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to mark document error: %w", err)
	}
	return nil
}

// SetPassageCount 记录切分后的段落数量
func (r *DocumentRepository) SetPassageCount(ctx context.Context, id string, count int) error {
	ctx, span := tracer.Start(ctx, "postgres.DocumentRepository.SetPassageCount")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Model(&entity.Document{}).Where("id = ?", id).
		Update("passage_count", count).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to set passage count: %w", err)
	}
	return nil
}

// Delete 删除文档
func (r *DocumentRepository) Delete(ctx context.Context, userID, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.DocumentRepository.Delete")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Delete(&entity.Document{}, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// ListByUser 获取用户文档列表
func (r *DocumentRepository) ListByUser(ctx context.Context, userID string, filter *repository.DocumentFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.Document], error) {
	ctx, span := tracer.Start(ctx, "postgres.DocumentRepository.ListByUser")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Model(&entity.Document{}).Where("user_id = ?", userID)

	if filter != nil && filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}

	var docs []*entity.Document
	if err := query.Order("created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&docs).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	return repository.NewPagedResult(docs, total, pagination), nil
}

// FindByFileName 按文件名子串匹配用户文档（不区分大小写）
func (r *DocumentRepository) FindByFileName(ctx context.Context, userID, namePart string) ([]*entity.Document, error) {
	ctx, span := tracer.Start(ctx, "postgres.DocumentRepository.FindByFileName")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var docs []*entity.Document
	pattern := "%" + strings.ToLower(namePart) + "%"
	if err := db.Where("user_id = ? AND LOWER(file_name) LIKE ?", userID, pattern).
		Order("created_at DESC").
		Find(&docs).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to find documents by file name: %w", err)
	}
	return docs, nil
}

// ListReady 获取用户所有可检索文档
func (r *DocumentRepository) ListReady(ctx context.Context, userID string) ([]*entity.Document, error) {
	ctx, span := tracer.Start(ctx, "postgres.DocumentRepository.ListReady")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var docs []*entity.Document
	if err := db.Where("user_id = ? AND status = ?", userID, entity.DocumentStatusReady).
		Order("created_at DESC").
		Find(&docs).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list ready documents: %w", err)
	}
	return docs, nil
}
