package agent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"ilka-rag-api/internal/domain/entity"
)

func evidenceOf(n int) []*entity.ScoredPassage {
	out := make([]*entity.ScoredPassage, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, &entity.ScoredPassage{Passage: &entity.Passage{
			ID:       string(rune('a' + i)),
			FileName: "report.txt",
			Text:     "evidence text",
		}})
	}
	return out
}

func TestVerifyWellCitedAnswerPasses(t *testing.T) {
	text := "The budget for 2024 is five hundred dollars [1]. The project ends in June [2]."
	answer := &entity.Answer{
		Text:      text,
		Citations: ExtractCitations(text, evidenceOf(3)),
	}

	result := NewVerifier().Verify(answer, evidenceOf(3))

	assert.True(t, result.Passed)
	assert.Empty(t, result.Issues)
	assert.InDelta(t, 1.0, result.CitationRate, 1e-9)
}

func TestVerifyFlagsMissingCitations(t *testing.T) {
	answer := &entity.Answer{
		Text: "The budget is five hundred dollars and the project ends in June next year.",
	}

	result := NewVerifier().Verify(answer, evidenceOf(3))

	assert.False(t, result.Passed)
	assert.Contains(t, result.Issues, "No citations found")
	assert.Contains(t, result.Issues, "Low citation rate: 0%")
}

func TestVerifyFlagsShortAnswer(t *testing.T) {
	answer := &entity.Answer{Text: "Yes [1]."}

	result := NewVerifier().Verify(answer, evidenceOf(1))

	assert.False(t, result.Passed)
	assert.Contains(t, result.Issues, "Answer too short")
}

func TestVerifyFlagsLowCitationRate(t *testing.T) {
	// 四句中只有一句带引用
	text := "The budget is large [1]. It grew last year. It may grow again. Nobody objected."
	answer := &entity.Answer{
		Text:      text,
		Citations: ExtractCitations(text, evidenceOf(2)),
	}

	result := NewVerifier().Verify(answer, evidenceOf(2))

	assert.False(t, result.Passed)
	assert.Contains(t, result.Issues, "Low citation rate: 25%")
	assert.InDelta(t, 0.25, result.CitationRate, 1e-9)
}

func TestVerifyFlagsLackOfInformation(t *testing.T) {
	answer := &entity.Answer{Text: "I don't know the answer based on the provided evidence."}

	result := NewVerifier().Verify(answer, evidenceOf(2))

	assert.False(t, result.Passed)
	assert.Contains(t, result.Issues, "Answer indicates lack of information")
}

func TestVerifyFlagsInvalidCitationIndices(t *testing.T) {
	text := "The budget is five hundred dollars according to the annual report [99]. " +
		"The timeline was confirmed separately by the steering committee [1]."
	answer := &entity.Answer{
		Text:      text,
		Citations: ExtractCitations(text, evidenceOf(3)),
	}

	result := NewVerifier().Verify(answer, evidenceOf(3))

	assert.False(t, result.Passed)
	found := false
	for _, issue := range result.Issues {
		if strings.Contains(issue, "Invalid citation indices") && strings.Contains(issue, "[99]") {
			found = true
		}
	}
	assert.True(t, found, "expected invalid index issue naming [99], got %v", result.Issues)
}

func TestVerifySkipsIndexCheckWithoutEvidence(t *testing.T) {
	text := "The budget is five hundred dollars according to the annual report [7]. " +
		"The timeline was confirmed by the steering committee [8]."
	answer := &entity.Answer{Text: text, Citations: []entity.Citation{{Index: 7}}}

	result := NewVerifier().Verify(answer, nil)

	for _, issue := range result.Issues {
		assert.NotContains(t, issue, "Invalid citation indices")
	}
}
