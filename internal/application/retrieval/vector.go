// Package retrieval 提供词法与语义检索能力
package retrieval

import (
	"context"
	"fmt"

	"ilka-rag-api/internal/domain/entity"
	"ilka-rag-api/internal/domain/repository"
)

// Embedder 向量化边界
// 失败必须返回显式错误，不允许静默返回空向量
type Embedder interface {
	EmbedStrings(ctx context.Context, texts []string) ([][]float64, error)
}

// VectorItem 向量索引写入条目
type VectorItem struct {
	ID         string
	DocumentID string
	Heading    string
	Vector     []float64
}

// VectorHit 向量检索命中
type VectorHit struct {
	PassageID string
	Score     float64
}

// VectorIndex 向量索引边界，按用户命名空间隔离
type VectorIndex interface {
	Upsert(ctx context.Context, userID string, items []VectorItem) error
	Query(ctx context.Context, userID string, vector []float64, topK int, documentID string) ([]VectorHit, error)
	DeleteByDocument(ctx context.Context, userID, documentID string) error
}

const defaultVectorTopK = 50

// VectorRetriever 语义检索器：向量化查询文本后查外部向量索引
type VectorRetriever struct {
	index    VectorIndex
	embedder Embedder
	passages repository.PassageRepository
}

// NewVectorRetriever 创建语义检索器
func NewVectorRetriever(index VectorIndex, embedder Embedder, passages repository.PassageRepository) *VectorRetriever {
	return &VectorRetriever{
		index:    index,
		embedder: embedder,
		passages: passages,
	}
}

// Search 向量检索，text 可以是原始问题或假设性答案文本
func (r *VectorRetriever) Search(ctx context.Context, userID, text string, opts SearchOptions) ([]*entity.ScoredPassage, error) {
	topK := opts.TopK
	if topK <= 0 {
		topK = defaultVectorTopK
	}

	vectors, err := r.embedder.EmbedStrings(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embed query: empty embedding result")
	}

	hits, err := r.index.Query(ctx, userID, vectors[0], topK, opts.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}
	if len(hits) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.PassageID)
	}
	passages, err := r.passages.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load passages: %w", err)
	}
	byID := make(map[string]*entity.Passage, len(passages))
	for _, p := range passages {
		byID[p.ID] = p
	}

	results := make([]*entity.ScoredPassage, 0, len(hits))
	for _, h := range hits {
		p, ok := byID[h.PassageID]
		if !ok {
			continue
		}
		results = append(results, &entity.ScoredPassage{
			Passage:     p,
			Score:       h.Score,
			VectorScore: h.Score,
			Source:      "vector",
		})
	}
	return results, nil
}
