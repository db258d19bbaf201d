// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ilka-rag-api/internal/domain/entity"
)

// 倒排记录批量写入的每批行数
const postingInsertBatch = 500

// TermIndexRepository BM25 倒排索引仓储实现
type TermIndexRepository struct {
	client *Client
}

// NewTermIndexRepository 创建倒排索引仓储
func NewTermIndexRepository(client *Client) *TermIndexRepository {
	return &TermIndexRepository{client: client}
}

// ReplaceDocumentIndex 重建单个文档的索引
// 先删后插加统计重算在一个事务内，失败整体回滚，不会留下半建的索引
func (r *TermIndexRepository) ReplaceDocumentIndex(ctx context.Context, userID, documentID string, postings []*entity.TermPosting) error {
	ctx, span := tracer.Start(ctx, "postgres.TermIndexRepository.ReplaceDocumentIndex")
	defer span.End()

	db := getDB(ctx, r.client.db)
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&entity.TermPosting{},
			"user_id = ? AND document_id = ?", userID, documentID).Error; err != nil {
			return fmt.Errorf("failed to delete old postings: %w", err)
		}

		if len(postings) > 0 {
			if err := tx.CreateInBatches(postings, postingInsertBatch).Error; err != nil {
				return fmt.Errorf("failed to insert postings: %w", err)
			}
		}

		return recomputeStats(tx, userID)
	})
	if err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// Postings 查询一组词项的倒排记录
func (r *TermIndexRepository) Postings(ctx context.Context, userID string, terms []string) ([]*entity.TermPosting, error) {
	ctx, span := tracer.Start(ctx, "postgres.TermIndexRepository.Postings")
	defer span.End()

	if len(terms) == 0 {
		return nil, nil
	}

	db := getDB(ctx, r.client.db)
	var postings []*entity.TermPosting
	if err := db.Where("user_id = ? AND term IN ?", userID, terms).
		Find(&postings).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query postings: %w", err)
	}
	return postings, nil
}

// DocumentFrequency 统计各词项出现过的段落数
func (r *TermIndexRepository) DocumentFrequency(ctx context.Context, userID string, terms []string) (map[string]int64, error) {
	ctx, span := tracer.Start(ctx, "postgres.TermIndexRepository.DocumentFrequency")
	defer span.End()

	if len(terms) == 0 {
		return map[string]int64{}, nil
	}

	db := getDB(ctx, r.client.db)
	var rows []struct {
		Term  string
		Count int64
	}
	if err := db.Model(&entity.TermPosting{}).
		Select("term, COUNT(DISTINCT passage_id) AS count").
		Where("user_id = ? AND term IN ?", userID, terms).
		Group("term").
		Scan(&rows).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query document frequency: %w", err)
	}

	freq := make(map[string]int64, len(rows))
	for _, row := range rows {
		freq[row.Term] = row.Count
	}
	return freq, nil
}

// Stats 获取用户索引统计
func (r *TermIndexRepository) Stats(ctx context.Context, userID string) (*entity.IndexStats, error) {
	ctx, span := tracer.Start(ctx, "postgres.TermIndexRepository.Stats")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var stats entity.IndexStats
	if err := db.First(&stats, "user_id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get index stats: %w", err)
	}
	return &stats, nil
}

// DistinctTerms 获取用户索引中的全部去重词项
func (r *TermIndexRepository) DistinctTerms(ctx context.Context, userID string) ([]string, error) {
	ctx, span := tracer.Start(ctx, "postgres.TermIndexRepository.DistinctTerms")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var terms []string
	if err := db.Model(&entity.TermPosting{}).
		Distinct("term").
		Where("user_id = ?", userID).
		Pluck("term", &terms).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list distinct terms: %w", err)
	}
	return terms, nil
}

// DeleteByDocument 删除文档的词项记录并重算统计
func (r *TermIndexRepository) DeleteByDocument(ctx context.Context, userID, documentID string) error {
	ctx, span := tracer.Start(ctx, "postgres.TermIndexRepository.DeleteByDocument")
	defer span.End()

	db := getDB(ctx, r.client.db)
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&entity.TermPosting{},
			"user_id = ? AND document_id = ?", userID, documentID).Error; err != nil {
			return fmt.Errorf("failed to delete postings: %w", err)
		}
		return recomputeStats(tx, userID)
	})
	if err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// recomputeStats 重算用户索引统计并覆盖写入
func recomputeStats(tx *gorm.DB, userID string) error {
	var passageStats struct {
		TotalPassages    int64
		AvgPassageLength float64
	}
	if err := tx.Model(&entity.Passage{}).
		// 平均长度必须与打分侧的 WordCount 同单位，不能用 token_count
		Select("COUNT(*) AS total_passages, COALESCE(AVG(word_count), 0) AS avg_passage_length").
		Where("user_id = ?", userID).
		Scan(&passageStats).Error; err != nil {
		return fmt.Errorf("failed to compute passage stats: %w", err)
	}

	var termStats struct {
		TotalTerms  int64
		UniqueTerms int64
	}
	if err := tx.Model(&entity.TermPosting{}).
		Select("COALESCE(SUM(frequency), 0) AS total_terms, COUNT(DISTINCT term) AS unique_terms").
		Where("user_id = ?", userID).
		Scan(&termStats).Error; err != nil {
		return fmt.Errorf("failed to compute term stats: %w", err)
	}

	stats := entity.IndexStats{
		UserID:           userID,
		TotalPassages:    passageStats.TotalPassages,
		AvgPassageLength: passageStats.AvgPassageLength,
		TotalTerms:       termStats.TotalTerms,
		UniqueTerms:      termStats.UniqueTerms,
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		UpdateAll: true,
	}).Create(&stats).Error; err != nil {
		return fmt.Errorf("failed to upsert index stats: %w", err)
	}
	return nil
}
