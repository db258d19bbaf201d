package method

import (
	"context"
	"time"

	"ilka-rag-api/internal/application/retrieval"
	"ilka-rag-api/internal/domain/entity"
)

// VectorAgents 语义检索管线：向量召回 + 写作回路
type VectorAgents struct {
	vector *retrieval.VectorRetriever
	loop   *agentLoop
}

// NewVectorAgents 创建语义检索管线
func NewVectorAgents(vector *retrieval.VectorRetriever, loop *agentLoop) *VectorAgents {
	return &VectorAgents{vector: vector, loop: loop}
}

// Name 实现 Method
func (m *VectorAgents) Name() string { return "vector-agents" }

// Execute 实现 Method
func (m *VectorAgents) Execute(ctx context.Context, req *Request) (*entity.Answer, error) {
	start := time.Now()

	results, err := m.vector.Search(ctx, req.UserID, req.Query, retrieval.SearchOptions{TopK: rerankWindow})
	if err != nil {
		return nil, err
	}
	passages := topN(results, finalTopK)

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
