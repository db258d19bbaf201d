// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"ilka-rag-api/internal/domain/entity"
)

// 批量写入的每批行数
const passageInsertBatch = 200

// PassageRepository 段落仓储实现
type PassageRepository struct {
	client *Client
}

// NewPassageRepository 创建段落仓储
func NewPassageRepository(client *Client) *PassageRepository {
	return &PassageRepository{client: client}
}

// CreateBatch 批量创建段落
func (r *PassageRepository) CreateBatch(ctx context.Context, passages []*entity.Passage) error {
	ctx, span := tracer.Start(ctx, "postgres.PassageRepository.CreateBatch")
	defer span.End()

	if len(passages) == 0 {
		return nil
	}

	db := getDB(ctx, r.client.db)
	if err := db.CreateInBatches(passages, passageInsertBatch).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create passages: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取段落
func (r *PassageRepository) GetByID(ctx context.Context, id string) (*entity.Passage, error) {
	ctx, span := tracer.Start(ctx, "postgres.PassageRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var passage entity.Passage
	if err := db.First(&passage, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get passage: %w", err)
	}
	return &passage, nil
}

// GetByIDs 批量获取段落
func (r *PassageRepository) GetByIDs(ctx context.Context, ids []string) ([]*entity.Passage, error) {
	ctx, span := tracer.Start(ctx, "postgres.PassageRepository.GetByIDs")
	defer span.End()

	if len(ids) == 0 {
		return nil, nil
	}

	db := getDB(ctx, r.client.db)
	var passages []*entity.Passage
	if err := db.Where("id IN ?", ids).Find(&passages).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get passages: %w", err)
	}
	return passages, nil
}

// GetByDocument 获取文档全部段落（按 chunk_index 排序）
func (r *PassageRepository) GetByDocument(ctx context.Context, documentID string) ([]*entity.Passage, error) {
	ctx, span := tracer.Start(ctx, "postgres.PassageRepository.GetByDocument")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var passages []*entity.Passage
	if err := db.Where("document_id = ?", documentID).
		Order("chunk_index ASC").
		Find(&passages).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get passages by document: %w", err)
	}
	return passages, nil
}

// GetBySection 获取文档内同一章节的段落
// 章节键可能是父章节 ID，也可能是标题文本
func (r *PassageRepository) GetBySection(ctx context.Context, documentID, sectionKey string) ([]*entity.Passage, error) {
	ctx, span := tracer.Start(ctx, "postgres.PassageRepository.GetBySection")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var passages []*entity.Passage
	if err := db.Where("document_id = ? AND (parent_section_id = ? OR heading = ?)",
		documentID, sectionKey, sectionKey).
		Order("chunk_index ASC").
		Find(&passages).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get passages by section: %w", err)
	}
	return passages, nil
}

// GetNeighbors 获取段落在文档中的相邻段落（不含自身）
func (r *PassageRepository) GetNeighbors(ctx context.Context, documentID string, chunkIndex, window int) ([]*entity.Passage, error) {
	ctx, span := tracer.Start(ctx, "postgres.PassageRepository.GetNeighbors")
	defer span.End()

	if window <= 0 {
		return nil, nil
	}

	db := getDB(ctx, r.client.db)
	var passages []*entity.Passage
	if err := db.Where("document_id = ? AND chunk_index BETWEEN ? AND ? AND chunk_index <> ?",
		documentID, chunkIndex-window, chunkIndex+window, chunkIndex).
		Order("chunk_index ASC").
		Find(&passages).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get neighbor passages: %w", err)
	}
	return passages, nil
}

// UpdateContext 写入上下文增强文本
func (r *PassageRepository) UpdateContext(ctx context.Context, id, context string) error {
	ctx, span := tracer.Start(ctx, "postgres.PassageRepository.UpdateContext")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Model(&entity.Passage{}).Where("id = ?", id).
		Update("context", context).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update passage context: %w", err)
	}
	return nil
}

// DeleteByDocument 删除文档全部段落
func (r *PassageRepository) DeleteByDocument(ctx context.Context, documentID string) error {
	ctx, span := tracer.Start(ctx, "postgres.PassageRepository.DeleteByDocument")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Delete(&entity.Passage{}, "document_id = ?", documentID).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete passages: %w", err)
	}
	return nil
}

// CountByUser 统计用户段落总数
func (r *PassageRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.PassageRepository.CountByUser")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var count int64
	if err := db.Model(&entity.Passage{}).Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to count passages: %w", err)
	}
	return count, nil
}
