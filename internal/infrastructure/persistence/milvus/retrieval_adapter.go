package milvus

import (
	"context"

	"ilka-rag-api/internal/application/retrieval"
)

// PassageVectorIndex 将 Milvus 仓储适配为检索层的向量索引边界
type PassageVectorIndex struct {
	repo *Repository
}

// NewPassageVectorIndex 创建向量索引适配器
func NewPassageVectorIndex(repo *Repository) *PassageVectorIndex {
	return &PassageVectorIndex{repo: repo}
}

var _ retrieval.VectorIndex = (*PassageVectorIndex)(nil)

// Upsert 写入段落向量
func (a *PassageVectorIndex) Upsert(ctx context.Context, userID string, items []retrieval.VectorItem) error {
	if a == nil || a.repo == nil {
		return nil
	}
	if len(items) == 0 {
		return nil
	}

	passages := make([]*PassageVector, 0, len(items))
	for i := range items {
		it := items[i]
		passages = append(passages, &PassageVector{
			ID:         it.ID,
			Vector:     toFloat32(it.Vector),
			UserID:     userID,
			DocumentID: it.DocumentID,
			Heading:    it.Heading,
		})
	}
	return a.repo.UpsertPassages(ctx, userID, passages)
}

// Query 向量检索，documentID 非空时限定单篇文档
func (a *PassageVectorIndex) Query(ctx context.Context, userID string, vector []float64, topK int, documentID string) ([]retrieval.VectorHit, error) {
	if a == nil || a.repo == nil {
		return nil, nil
	}

	out, err := a.repo.SearchPassages(ctx, &SearchParams{
		UserID:      userID,
		QueryVector: toFloat32(vector),
		TopK:        topK,
		DocumentID:  documentID,
	})
	if err != nil {
		return nil, err
	}

	hits := make([]retrieval.VectorHit, 0, len(out))
	for _, res := range out {
		if res == nil {
			continue
		}
		hits = append(hits, retrieval.VectorHit{
			PassageID: res.ID,
			Score:     float64(res.Score),
		})
	}
	return hits, nil
}

// DeleteByDocument 删除文档的全部段落向量
func (a *PassageVectorIndex) DeleteByDocument(ctx context.Context, userID, documentID string) error {
	if a == nil || a.repo == nil {
		return nil
	}
	return a.repo.DeleteByDocument(ctx, userID, documentID)
}

func toFloat32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}
