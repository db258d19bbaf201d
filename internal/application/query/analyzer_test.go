package query

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ilka-rag-api/internal/domain/entity"
	"ilka-rag-api/internal/domain/service"
)

type stubGenerator struct {
	text string
	err  error
}

func (s *stubGenerator) Generate(context.Context, string, string, service.GenerateOptions) (string, error) {
	return s.text, s.err
}

func TestAnalyzeParsesModelOutput(t *testing.T) {
	gen := &stubGenerator{text: `Here is the analysis:
{"complexity":"complex","intent":"comparison","scope":"general","synonyms":["spending"],"reasoning":"compares two things"}`}

	analysis, err := NewAnalyzer(gen, nil).Analyze(context.Background(), "how does the 2023 budget compare to 2024?")
	require.NoError(t, err)
	assert.Equal(t, entity.ComplexityComplex, analysis.Complexity)
	assert.Equal(t, entity.IntentComparison, analysis.Intent)
	assert.Equal(t, []string{"spending"}, analysis.Synonyms)
}

func TestAnalyzeDefaultsOnUnparsableOutput(t *testing.T) {
	gen := &stubGenerator{text: "I cannot produce JSON for this."}

	analysis, err := NewAnalyzer(gen, nil).Analyze(context.Background(), "what is the budget?")
	require.NoError(t, err)
	assert.Equal(t, entity.ComplexityModerate, analysis.Complexity)
	assert.Equal(t, entity.IntentFactual, analysis.Intent)
	assert.Equal(t, entity.ScopeGeneral, analysis.Scope)
	assert.Equal(t, []entity.RetrievalMethod{entity.MethodBM25, entity.MethodVector}, analysis.RecommendedMethods)
	assert.Equal(t, "Default analysis due to parse error", analysis.Reasoning)
}

func TestAnalyzeDefaultsOnGeneratorError(t *testing.T) {
	gen := &stubGenerator{err: errors.New("provider down")}

	analysis, err := NewAnalyzer(gen, nil).Analyze(context.Background(), "what is the budget?")
	require.NoError(t, err)
	assert.Equal(t, entity.ComplexityModerate, analysis.Complexity)
}

func TestAnalyzeKeepsExploratoryIntent(t *testing.T) {
	gen := &stubGenerator{text: `{"complexity":"simple","intent":"exploratory","scope":"general",
"rephrasings":["what topics does the report touch on","which areas are discussed"],
"sub_questions":["what is covered in part one"],
"reasoning":"open-ended browsing question"}`}

	analysis, err := NewAnalyzer(gen, nil).Analyze(context.Background(), "what kinds of things are in this report?")
	require.NoError(t, err)
	assert.Equal(t, entity.IntentExploratory, analysis.Intent)
	assert.Len(t, analysis.Rephrasings, 2)
	assert.Equal(t, []string{"what is covered in part one"}, analysis.SubQuestions)
}

func TestAnalyzeNormalizesBadEnums(t *testing.T) {
	gen := &stubGenerator{text: `{"complexity":"extreme","intent":"poetry","scope":"universe"}`}

	analysis, err := NewAnalyzer(gen, nil).Analyze(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, entity.ComplexityModerate, analysis.Complexity)
	assert.Equal(t, entity.IntentFactual, analysis.Intent)
	assert.Equal(t, entity.ScopeGeneral, analysis.Scope)
}

