package method

import (
	"context"
	"strings"
	"time"

	"ilka-rag-api/internal/application/retrieval"
	"ilka-rag-api/internal/domain/entity"
)

const (
	maxSynonyms     = 3
	maxRelatedTerms = 2
)

// BM25Agents 带查询扩展的词法管线
// 把分析器给出的同义词与相关词拼进检索查询，写作回路不变
type BM25Agents struct {
	bm25     *retrieval.BM25Engine
	reranker *retrieval.Reranker
	loop     *agentLoop
}

// NewBM25Agents 创建查询扩展词法管线
func NewBM25Agents(bm25 *retrieval.BM25Engine, reranker *retrieval.Reranker, loop *agentLoop) *BM25Agents {
	return &BM25Agents{bm25: bm25, reranker: reranker, loop: loop}
}

// Name 实现 Method
func (m *BM25Agents) Name() string { return "bm25-agents" }

// Execute 实现 Method
func (m *BM25Agents) Execute(ctx context.Context, req *Request) (*entity.Answer, error) {
	start := time.Now()

	expanded := expandQuery(req.Query, req.Analysis)
	passages, err := retrieveLexical(ctx, m.bm25, m.reranker, req.UserID, expanded, req.Query)
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
		ExpandedQuery:     expanded,
	}
	return answer, nil
}

// expandQuery 原始问题 + 前 3 个同义词 + 前 2 个相关词
func expandQuery(query string, analysis *entity.QueryAnalysis) string {
	parts := []string{query}
	if analysis != nil {
		for i, s := range analysis.Synonyms {
			if i >= maxSynonyms {
				break
			}
			parts = append(parts, s)
		}
		for i, r := range analysis.RelatedTerms {
			if i >= maxRelatedTerms {
				break
			}
			parts = append(parts, r)
		}
	}
	return strings.Join(parts, " ")
}
