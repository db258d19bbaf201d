package agent

import (
	"context"
	"strings"

	"ilka-rag-api/internal/domain/entity"
	"ilka-rag-api/pkg/logger"
)

const (
	// maxWideningRounds 最多允许的上下文拓宽轮次
	maxWideningRounds = 2

	minSufficientPassages = 5
	minTopScore           = 3.0
)

// Supervisor 根据检索结果与校验结论决定下一步动作
// 决策是纯规则的，保证可预测与可测试
type Supervisor struct{}

// NewSupervisor 创建监督智能体
func NewSupervisor() *Supervisor {
	return &Supervisor{}
}

// Decide 评估当前轮次状态，返回 proceed / requery / widen 决策
// verification 在首轮回答生成前可为 nil
func (s *Supervisor) Decide(ctx context.Context, passages []*entity.ScoredPassage, round int, verification *entity.VerificationResult) entity.AgentDecision {
	decision := s.decide(passages, round, verification)
	logger.Debug(ctx, "监督决策",
		"action", string(decision.Action),
		"strategy", string(decision.Strategy),
		"reason", decision.Reason,
		"round", round,
		"passage_count", len(passages),
	)
	return decision
}

func (s *Supervisor) decide(passages []*entity.ScoredPassage, round int, verification *entity.VerificationResult) entity.AgentDecision {
	if len(passages) == 0 {
		return entity.AgentDecision{
			Action: entity.ActionRequery,
			Reason: "no passages retrieved",
		}
	}

	if round >= maxWideningRounds {
		return entity.AgentDecision{
			Action: entity.ActionProceed,
			Reason: "maximum widening rounds reached",
		}
	}

	if verification != nil {
		if verification.Passed {
			return entity.AgentDecision{
				Action: entity.ActionProceed,
				Reason: "verification passed",
			}
		}
		if hasIssue(verification, "No citations found") || hasIssue(verification, "Answer too short") {
			return entity.AgentDecision{
				Action:   entity.ActionWiden,
				Strategy: entity.StrategyHeadingBounded,
				Reason:   "answer lacks citations or substance",
			}
		}
		if hasIssuePrefix(verification, "Low citation rate") {
			return entity.AgentDecision{
				Action:   entity.ActionWiden,
				Strategy: entity.StrategySlidingWindow,
				Reason:   "too few sentences are grounded in evidence",
			}
		}
	}

	if len(passages) < minSufficientPassages || passages[0].Score < minTopScore {
		return entity.AgentDecision{
			Action:   entity.ActionWiden,
			Strategy: entity.StrategyHeadingBounded,
			Reason:   "retrieved evidence looks thin",
		}
	}

	return entity.AgentDecision{
		Action: entity.ActionProceed,
		Reason: "evidence is sufficient",
	}
}

func hasIssue(v *entity.VerificationResult, issue string) bool {
	for _, i := range v.Issues {
		if i == issue {
			return true
		}
	}
	return false
}

func hasIssuePrefix(v *entity.VerificationResult, prefix string) bool {
	for _, i := range v.Issues {
		if strings.HasPrefix(i, prefix) {
			return true
		}
	}
	return false
}
