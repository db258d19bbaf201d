package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ilka-rag-api/internal/domain/entity"
	"ilka-rag-api/internal/domain/service"
)

// fakeGenerator 返回固定文本的生成器
type fakeGenerator struct {
	text       string
	err        error
	lastPrompt string
}

func (f *fakeGenerator) Generate(_ context.Context, _ string, prompt string, _ service.GenerateOptions) (string, error) {
	f.lastPrompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func evidencePassage(id, file, heading, text string, start, end int) *entity.ScoredPassage {
	return &entity.ScoredPassage{Passage: &entity.Passage{
		ID:        id,
		FileName:  file,
		Heading:   heading,
		Text:      text,
		StartLine: start,
		EndLine:   end,
	}}
}

func TestFormatEvidence(t *testing.T) {
	got := FormatEvidence([]*entity.ScoredPassage{
		evidencePassage("a", "report.txt", "Budget", "The budget is $500.", 10, 14),
		evidencePassage("b", "plan.txt", "", "The project ends in June.", 3, 5),
	})

	want := "[1] report.txt:10-14 - Budget\nThe budget is $500.\n\n---\n\n" +
		"[2] plan.txt:3-5\nThe project ends in June."
	assert.Equal(t, want, got)
}

func TestExtractCitationsDedupesAndFiltersRange(t *testing.T) {
	evidence := []*entity.ScoredPassage{
		evidencePassage("a", "report.txt", "Budget", "The budget is $500.", 10, 14),
		evidencePassage("b", "plan.txt", "Timeline", "The project ends in June.", 3, 5),
	}

	citations := ExtractCitations("Costs are known [1]. Dates too [2][1]. Bogus [9].", evidence)

	require.Len(t, citations, 2)
	assert.Equal(t, 1, citations[0].Index)
	assert.Equal(t, "report.txt", citations[0].FileName)
	assert.Equal(t, 10, citations[0].StartLine)
	assert.Equal(t, 2, citations[1].Index)
}

func TestExtractCitationsTruncatesExcerpt(t *testing.T) {
	long := make([]byte, 500)
	for i := range long {
		long[i] = 'x'
	}
	evidence := []*entity.ScoredPassage{
		evidencePassage("a", "big.txt", "", string(long), 1, 1),
	}

	citations := ExtractCitations("See [1].", evidence)

	require.Len(t, citations, 1)
	assert.Len(t, citations[0].Text, 200)
}

func TestWriteSetsConfidenceFromCitations(t *testing.T) {
	evidence := []*entity.ScoredPassage{
		evidencePassage("a", "report.txt", "Budget", "The budget is $500.", 10, 14),
	}

	gen := &fakeGenerator{text: "The budget is $500 [1]."}
	answer, err := NewWriter(gen).Write(context.Background(), "what is the budget?", evidence)
	require.NoError(t, err)
	assert.Equal(t, entity.ConfidenceHigh, answer.Confidence)
	require.Len(t, answer.Citations, 1)
	assert.Contains(t, gen.lastPrompt, "[1] report.txt:10-14 - Budget")

	gen = &fakeGenerator{text: "I cannot tell from the evidence."}
	answer, err = NewWriter(gen).Write(context.Background(), "what is the budget?", evidence)
	require.NoError(t, err)
	assert.Equal(t, entity.ConfidenceLow, answer.Confidence)
	assert.Empty(t, answer.Citations)
}
