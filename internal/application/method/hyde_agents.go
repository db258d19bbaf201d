package method

import (
	"context"
	"fmt"
	"time"

	"ilka-rag-api/internal/application/retrieval"
	"ilka-rag-api/internal/domain/entity"
	"ilka-rag-api/internal/domain/service"
)

const (
	hydeTemperature = 0.5
	hydeMaxTokens   = 300
)

// HydeAgents 假设性文档管线
// 先得到一段假设性答案，用它代替原始问题做向量检索
// 前提是假设性答案在语义上比问题本身更接近真实答案段落
type HydeAgents struct {
	vector *retrieval.VectorRetriever
	gen    service.TextGenerator
	loop   *agentLoop
}

// NewHydeAgents 创建假设性文档管线
func NewHydeAgents(vector *retrieval.VectorRetriever, gen service.TextGenerator, loop *agentLoop) *HydeAgents {
	return &HydeAgents{vector: vector, gen: gen, loop: loop}
}

// Name 实现 Method
func (m *HydeAgents) Name() string { return "hyde-agents" }

// Execute 实现 Method
func (m *HydeAgents) Execute(ctx context.Context, req *Request) (*entity.Answer, error) {
	start := time.Now()

	hydeDoc := ""
	if req.Analysis != nil {
		hydeDoc = req.Analysis.HypotheticalAnswer
	}
	if hydeDoc == "" {
		var err error
		hydeDoc, err = m.generateHydeDocument(ctx, req.Query)
		if err != nil {
			return nil, err
		}
	}

	results, err := m.vector.Search(ctx, req.UserID, hydeDoc, retrieval.SearchOptions{TopK: rerankWindow})
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
		HydeDocument:      hydeDoc,
	}
	return answer, nil
}

func (m *HydeAgents) generateHydeDocument(ctx context.Context, query string) (string, error) {
	prompt := fmt.Sprintf(`Generate a 2-3 sentence hypothetical answer to this question:

Question: %s

Write as if you're answering from a real document. Be specific and factual in tone.`, query)

	return m.gen.Generate(ctx, "", prompt, service.GenerateOptions{
		Temperature: hydeTemperature,
		MaxTokens:   hydeMaxTokens,
	})
}
