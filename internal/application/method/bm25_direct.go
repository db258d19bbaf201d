package method

import (
	"context"
	"time"

	"ilka-rag-api/internal/application/retrieval"
	"ilka-rag-api/internal/domain/entity"
)

// BM25Direct 纯词法管线：BM25 检索 + 重排 + 写作回路
type BM25Direct struct {
	bm25     *retrieval.BM25Engine
	reranker *retrieval.Reranker
	loop     *agentLoop
}

// NewBM25Direct 创建词法直检管线
func NewBM25Direct(bm25 *retrieval.BM25Engine, reranker *retrieval.Reranker, loop *agentLoop) *BM25Direct {
	return &BM25Direct{bm25: bm25, reranker: reranker, loop: loop}
}

// Name 实现 Method
func (m *BM25Direct) Name() string { return "bm25-direct" }

// Execute 实现 Method
func (m *BM25Direct) Execute(ctx context.Context, req *Request) (*entity.Answer, error) {
	start := time.Now()

	passages, err := retrieveLexical(ctx, m.bm25, m.reranker, req.UserID, req.Query, req.Query)
	if err != nil {
		return nil, err
	}

	result, err := m.loop.run(ctx, m.Name(), req.Query, passages)
	if err != nil {
		return nil, err
	}

	answer := result.answer
	answer.Method = m.Name()
	answer.LatencyMs = time.Since(start).Milliseconds()
	answer.Metadata = &entity.AnswerMetadata{
		Rounds:            result.rounds,
		Verification:      result.verification,
		FinalPassageCount: len(result.passages),
	}
	return answer, nil
}

// retrieveLexical BM25 检索共用路径：检索、空结果时模糊回退、重排、截断
// searchQuery 与用于重排的 rerankQuery 可以不同（查询扩展场景）
func retrieveLexical(ctx context.Context, bm25 *retrieval.BM25Engine, reranker *retrieval.Reranker, userID, searchQuery, rerankQuery string) ([]*entity.ScoredPassage, error) {
	results, err := bm25.Search(ctx, userID, searchQuery, retrieval.SearchOptions{TopK: bm25TopK})
	if err != nil {
		return nil, err
	}

	if len(results) == 0 {
		fuzzy, err := bm25.FuzzySearch(ctx, userID, searchQuery, retrieval.SearchOptions{TopK: bm25TopK})
		if err != nil {
			return nil, err
		}
		if fuzzy != nil {
			results = fuzzy.Results
		}
	}
	if len(results) == 0 {
		return nil, nil
	}

	reranked, err := reranker.EmbeddingRerank(ctx, rerankQuery, topN(results, rerankWindow), bm25Weight)
	if err != nil {
		return nil, err
	}
	return topN(reranked, finalTopK), nil
}
