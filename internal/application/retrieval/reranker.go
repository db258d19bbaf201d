// Package retrieval 提供词法与语义检索能力
package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"

	"ilka-rag-api/internal/domain/entity"
	"ilka-rag-api/pkg/logger"
)

// DefaultBM25Weight 词法得分在融合中的默认权重
const DefaultBM25Weight = 0.7

// 余弦相似度（[-1,1]）放大到与 BM25 分数相近的量级
const cosineScale = 10.0

// PairScorer 交叉编码重排边界：对 (query, text) 逐对打相关性分
type PairScorer interface {
	ScorePairs(ctx context.Context, query string, texts []string) ([]float64, error)
}

// Reranker 融合词法得分与向量相似度
type Reranker struct {
	embedder Embedder
}

// NewReranker 创建重排器
func NewReranker(embedder Embedder) *Reranker {
	return &Reranker{embedder: embedder}
}

// EmbeddingRerank 向量融合重排
// 新分数 = bm25Weight * 原分数 + (1 - bm25Weight) * cos * 10
func (r *Reranker) EmbeddingRerank(ctx context.Context, query string, passages []*entity.ScoredPassage, bm25Weight float64) ([]*entity.ScoredPassage, error) {
	if len(passages) == 0 {
		return passages, nil
	}

	texts := make([]string, 0, len(passages)+1)
	texts = append(texts, query)
	for _, p := range passages {
		texts = append(texts, p.Passage.Text)
	}

	vectors, err := r.embedder.EmbedStrings(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed for rerank: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embed for rerank: got %d vectors for %d texts", len(vectors), len(texts))
	}

	queryVec := vectors[0]
	for i, p := range passages {
		cos := CosineSimilarity(queryVec, vectors[i+1])
		p.VectorScore = cos
		p.Score = bm25Weight*p.Score + (1-bm25Weight)*cos*cosineScale
	}

	sort.SliceStable(passages, func(i, j int) bool {
		return passages[i].Score > passages[j].Score
	})
	return passages, nil
}

// CrossEncoderRerank 交叉编码重排，失败时退化为原始顺序而非让请求失败
func (r *Reranker) CrossEncoderRerank(ctx context.Context, query string, passages []*entity.ScoredPassage, scorer PairScorer) []*entity.ScoredPassage {
	if len(passages) == 0 || scorer == nil {
		return passages
	}

	texts := make([]string, 0, len(passages))
	for _, p := range passages {
		texts = append(texts, p.Passage.Text)
	}

	scores, err := scorer.ScorePairs(ctx, query, texts)
	if err != nil || len(scores) != len(passages) {
		logger.Warn(ctx, "cross-encoder rerank degraded to original order", "error", err)
		return passages
	}

	reranked := make([]*entity.ScoredPassage, len(passages))
	copy(reranked, passages)
	for i, p := range reranked {
		p.Score = scores[i]
	}
	sort.SliceStable(reranked, func(i, j int) bool {
		return reranked[i].Score > reranked[j].Score
	})
	return reranked
}

// CosineSimilarity 余弦相似度，零向量返回 0
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
