package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ilka-rag-api/internal/domain/entity"
)

func scoredPassage(id, text string, score float64) *entity.ScoredPassage {
	return &entity.ScoredPassage{
		Passage: &entity.Passage{ID: id, Text: text},
		Score:   score,
	}
}

func TestEmbeddingRerankFusesScores(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float64{
		"query": {1, 0, 0},
		"same":  {1, 0, 0},  // cos = 1
		"ortho": {0, 1, 0},  // cos = 0
	}}
	r := NewReranker(embedder)

	passages := []*entity.ScoredPassage{
		scoredPassage("a", "ortho", 5.0),
		scoredPassage("b", "same", 4.0),
	}

	out, err := r.EmbeddingRerank(context.Background(), "query", passages, 0.7)
	require.NoError(t, err)
	require.Len(t, out, 2)

	// b: 0.7*4 + 0.3*1*10 = 5.8 > a: 0.7*5 + 0.3*0*10 = 3.5
	assert.Equal(t, "b", out[0].Passage.ID)
	assert.InDelta(t, 5.8, out[0].Score, 1e-9)
	assert.InDelta(t, 3.5, out[1].Score, 1e-9)
	assert.InDelta(t, 1.0, out[0].VectorScore, 1e-9)
}

func TestEmbeddingRerankPropagatesEmbedError(t *testing.T) {
	r := NewReranker(&fakeEmbedder{err: errors.New("provider down")})

	_, err := r.EmbeddingRerank(context.Background(), "q", []*entity.ScoredPassage{scoredPassage("a", "x", 1)}, 0.7)
	assert.Error(t, err)
}

type failingPairScorer struct{}

func (failingPairScorer) ScorePairs(context.Context, string, []string) ([]float64, error) {
	return nil, errors.New("scorer unavailable")
}

type fixedPairScorer struct{ scores []float64 }

func (s fixedPairScorer) ScorePairs(context.Context, string, []string) ([]float64, error) {
	return s.scores, nil
}

func TestCrossEncoderRerankDegradesToInputOrder(t *testing.T) {
	r := NewReranker(&fakeEmbedder{})

	passages := []*entity.ScoredPassage{
		scoredPassage("first", "x", 2),
		scoredPassage("second", "y", 1),
	}

	out := r.CrossEncoderRerank(context.Background(), "q", passages, failingPairScorer{})
	require.Len(t, out, 2)
	assert.Equal(t, "first", out[0].Passage.ID)
	assert.Equal(t, "second", out[1].Passage.ID)
}

func TestCrossEncoderRerankReorders(t *testing.T) {
	r := NewReranker(&fakeEmbedder{})

	passages := []*entity.ScoredPassage{
		scoredPassage("first", "x", 2),
		scoredPassage("second", "y", 1),
	}

	out := r.CrossEncoderRerank(context.Background(), "q", passages, fixedPairScorer{scores: []float64{0.1, 0.9}})
	require.Len(t, out, 2)
	assert.Equal(t, "second", out[0].Passage.ID)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float64{1, 2}, []float64{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float64{1, 0}, []float64{-1, 0}), 1e-9)
	assert.Equal(t, 0.0, CosineSimilarity(nil, nil))
	assert.Equal(t, 0.0, CosineSimilarity([]float64{0, 0}, []float64{1, 1}))
}
