package method

import (
	"context"

	"ilka-rag-api/internal/application/agent"
	"ilka-rag-api/internal/domain/entity"
	"ilka-rag-api/pkg/logger"
	"ilka-rag-api/pkg/metrics"
)

// maxLoopRounds 答案反馈回路的轮次上限
const maxLoopRounds = 3

// agentLoop 写作-校验-拓宽反馈回路，四条管线共用
// 生成答案并校验；未通过且轮次未满时按监督决策拓宽上下文后重写
type agentLoop struct {
	writer       *agent.Writer
	verifier     *agent.Verifier
	supervisor   *agent.Supervisor
	contextMaker *agent.ContextMaker
}

func newAgentLoop(writer *agent.Writer, verifier *agent.Verifier, supervisor *agent.Supervisor, contextMaker *agent.ContextMaker) *agentLoop {
	return &agentLoop{
		writer:       writer,
		verifier:     verifier,
		supervisor:   supervisor,
		contextMaker: contextMaker,
	}
}

type loopResult struct {
	answer       *entity.Answer
	verification *entity.VerificationResult
	passages     []*entity.ScoredPassage
	rounds       int
}

func (l *agentLoop) run(ctx context.Context, method, query string, passages []*entity.ScoredPassage) (*loopResult, error) {
	answer, err := l.writer.Write(ctx, query, passages)
	if err != nil {
		return nil, err
	}
	verification := l.verifier.Verify(answer, passages)

	round := 0
	for round < maxLoopRounds && !verification.Passed {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		decision := l.supervisor.Decide(ctx, passages, round, verification)
		if decision.Action != entity.ActionWiden || decision.Strategy == "" {
			break
		}

		widened, err := l.contextMaker.Widen(ctx, passages, decision.Strategy)
		if err != nil {
			return nil, err
		}
		passages = widened
		round++

		answer, err = l.writer.Write(ctx, query, passages)
		if err != nil {
			return nil, err
		}
		verification = l.verifier.Verify(answer, passages)
	}

	metrics.QueryRounds.WithLabelValues(method).Observe(float64(round))
	metrics.VerificationTotal.WithLabelValues(verificationLabel(verification)).Inc()
	if !verification.Passed {
		logger.Info(ctx, "校验未通过，按当前最优答案返回",
			"method", method,
			"rounds", round,
			"issues", verification.Issues,
		)
	}

	return &loopResult{
		answer:       answer,
		verification: verification,
		passages:     passages,
		rounds:       round,
	}, nil
}

func verificationLabel(v *entity.VerificationResult) string {
	if v.Passed {
		return "passed"
	}
	return "failed"
}
