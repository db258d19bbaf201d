package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"ilka-rag-api/internal/domain/entity"
)

func scoredSet(scores ...float64) []*entity.ScoredPassage {
	out := make([]*entity.ScoredPassage, 0, len(scores))
	for i, s := range scores {
		out = append(out, &entity.ScoredPassage{
			Passage: &entity.Passage{ID: string(rune('a' + i))},
			Score:   s,
		})
	}
	return out
}

func TestSupervisorRequeriesOnEmptyResults(t *testing.T) {
	d := NewSupervisor().Decide(context.Background(), nil, 0, nil)
	assert.Equal(t, entity.ActionRequery, d.Action)
}

func TestSupervisorProceedsAtRoundLimit(t *testing.T) {
	// 即使证据单薄，达到轮次上限也必须收敛
	d := NewSupervisor().Decide(context.Background(), scoredSet(0.5), 2, &entity.VerificationResult{
		Passed: false,
		Issues: []string{"No citations found"},
	})
	assert.Equal(t, entity.ActionProceed, d.Action)
}

func TestSupervisorProceedsWhenVerificationPassed(t *testing.T) {
	d := NewSupervisor().Decide(context.Background(), scoredSet(1.0), 1, &entity.VerificationResult{Passed: true})
	assert.Equal(t, entity.ActionProceed, d.Action)
}

func TestSupervisorWidensHeadingBoundedOnMissingCitations(t *testing.T) {
	d := NewSupervisor().Decide(context.Background(), scoredSet(8, 7, 6, 5, 4), 0, &entity.VerificationResult{
		Passed: false,
		Issues: []string{"No citations found"},
	})
	assert.Equal(t, entity.ActionWiden, d.Action)
	assert.Equal(t, entity.StrategyHeadingBounded, d.Strategy)
}

func TestSupervisorWidensHeadingBoundedOnShortAnswer(t *testing.T) {
	d := NewSupervisor().Decide(context.Background(), scoredSet(8, 7, 6, 5, 4), 1, &entity.VerificationResult{
		Passed: false,
		Issues: []string{"Answer too short"},
	})
	assert.Equal(t, entity.ActionWiden, d.Action)
	assert.Equal(t, entity.StrategyHeadingBounded, d.Strategy)
}

func TestSupervisorWidensSlidingWindowOnLowCitationRate(t *testing.T) {
	d := NewSupervisor().Decide(context.Background(), scoredSet(8, 7, 6, 5, 4), 0, &entity.VerificationResult{
		Passed: false,
		Issues: []string{"Low citation rate: 30%"},
	})
	assert.Equal(t, entity.ActionWiden, d.Action)
	assert.Equal(t, entity.StrategySlidingWindow, d.Strategy)
}

func TestSupervisorWidensOnThinEvidence(t *testing.T) {
	// 校验前，段落数不足
	d := NewSupervisor().Decide(context.Background(), scoredSet(8, 7), 0, nil)
	assert.Equal(t, entity.ActionWiden, d.Action)
	assert.Equal(t, entity.StrategyHeadingBounded, d.Strategy)

	// 段落数够但最高分过低
	d = NewSupervisor().Decide(context.Background(), scoredSet(2.9, 2, 2, 2, 2), 0, nil)
	assert.Equal(t, entity.ActionWiden, d.Action)
}

func TestSupervisorProceedsOnStrongEvidence(t *testing.T) {
	d := NewSupervisor().Decide(context.Background(), scoredSet(8, 7, 6, 5, 4), 0, nil)
	assert.Equal(t, entity.ActionProceed, d.Action)
}
