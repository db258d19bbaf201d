// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"ilka-rag-api/internal/domain/entity"
)

// TermIndexRepository BM25 倒排索引仓储接口
// 索引结构（词项记录 + 全局统计）完全由该仓储持有
type TermIndexRepository interface {
	// ReplaceDocumentIndex 重建单个文档的索引
	// 先删除该文档旧的词项记录，再写入新记录并重算用户统计，整体在一个事务内
	ReplaceDocumentIndex(ctx context.Context, userID, documentID string, postings []*entity.TermPosting) error

	// Postings 查询一组词项的倒排记录
	Postings(ctx context.Context, userID string, terms []string) ([]*entity.TermPosting, error)

	// DocumentFrequency 统计各词项出现过的段落数
	DocumentFrequency(ctx context.Context, userID string, terms []string) (map[string]int64, error)

	// Stats 获取用户索引统计
	Stats(ctx context.Context, userID string) (*entity.IndexStats, error)

	// DistinctTerms 获取用户索引中的全部去重词项（模糊回退用）
	DistinctTerms(ctx context.Context, userID string) ([]string, error)

	// DeleteByDocument 删除文档的词项记录并重算统计
	DeleteByDocument(ctx context.Context, userID, documentID string) error
}
