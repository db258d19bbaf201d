package retrieval

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ilka-rag-api/internal/domain/entity"
)

const testUser = "u1"

func budgetCorpus(t *testing.T) (*BM25Engine, *fakePassageRepo) {
	t.Helper()

	budget := &entity.Passage{
		ID: "p-budget", DocumentID: "d1", UserID: testUser, ChunkIndex: 0,
		Heading: "Budget", HeadingLevel: 1,
		Text: "The budget is $500", WordCount: 4, StartLine: 0, EndLine: 2,
	}
	timeline := &entity.Passage{
		ID: "p-timeline", DocumentID: "d1", UserID: testUser, ChunkIndex: 1,
		Heading: "Timeline", HeadingLevel: 1,
		Text: "The project ends in June", WordCount: 5, StartLine: 3, EndLine: 5,
	}

	passages := newFakePassageRepo(budget, timeline)
	terms := newFakeTermIndexRepo(passages)
	engine := NewBM25Engine(terms, passages)

	err := engine.Index(context.Background(), testUser, "d1", []*entity.Passage{budget, timeline})
	require.NoError(t, err)

	return engine, passages
}

func TestBM25GoldenScore(t *testing.T) {
	engine, _ := budgetCorpus(t)

	results, err := engine.Search(context.Background(), testUser, "What is the budget?", SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "p-budget", results[0].Passage.ID)

	// 闭式期望值：N=2, df=1, tf=1, k1=1.5, b=0.4, docLen=4, avgDocLen=4.5，标题权重 1.5
	idf := math.Log((2-1+0.5)/(1+0.5) + 1)
	norm := 1 - 0.4 + 0.4*(4.0/4.5)
	expected := idf * (1 * 2.5) / (1 + 1.5*norm) * 1.5

	assert.InDelta(t, expected, results[0].Score, 1e-9)
	assert.Positive(t, results[0].Score)
}

func TestBM25BudgetOutranksTimeline(t *testing.T) {
	engine, _ := budgetCorpus(t)

	results, err := engine.Search(context.Background(), testUser, "What is the budget?", SearchOptions{})
	require.NoError(t, err)

	require.NotEmpty(t, results)
	assert.Equal(t, "p-budget", results[0].Passage.ID)
	for _, r := range results[1:] {
		assert.NotEqual(t, "p-timeline", r.Passage.ID)
	}
}

func TestBM25EmptyQueryReturnsEmpty(t *testing.T) {
	engine, _ := budgetCorpus(t)

	// 全部为停用词/纯数字，分词后为空
	results, err := engine.Search(context.Background(), testUser, "the is 42", SearchOptions{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestBM25DocumentFilter(t *testing.T) {
	engine, _ := budgetCorpus(t)

	results, err := engine.Search(context.Background(), testUser, "budget", SearchOptions{DocumentID: "other-doc"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestBM25ExpandedTermsScoreHalf(t *testing.T) {
	engine, _ := budgetCorpus(t)

	full, err := engine.Search(context.Background(), testUser, "budget", SearchOptions{})
	require.NoError(t, err)
	require.Len(t, full, 1)

	// "budgets" 本身不在索引中，仅通过去复数扩展命中 "budget"，得分折半
	expanded, err := engine.Search(context.Background(), testUser, "budgets", SearchOptions{})
	require.NoError(t, err)
	require.Len(t, expanded, 1)

	assert.InDelta(t, full[0].Score*0.5, expanded[0].Score, 1e-9)
}

func TestFuzzySearchSuggestsClosestTerm(t *testing.T) {
	engine, _ := budgetCorpus(t)

	primary, err := engine.Search(context.Background(), testUser, "budgit", SearchOptions{})
	require.NoError(t, err)
	require.Empty(t, primary)

	fuzzy, err := engine.FuzzySearch(context.Background(), testUser, "budgit", SearchOptions{})
	require.NoError(t, err)
	require.NotNil(t, fuzzy)
	assert.Equal(t, "budget", fuzzy.Suggestion)
	assert.NotEmpty(t, fuzzy.Results)
	assert.LessOrEqual(t, Levenshtein("budgit", fuzzy.Suggestion), 2)
}

func TestFuzzySearchNilWhenNothingClose(t *testing.T) {
	engine, _ := budgetCorpus(t)

	fuzzy, err := engine.FuzzySearch(context.Background(), testUser, "xylophoneqq", SearchOptions{})
	require.NoError(t, err)
	assert.Nil(t, fuzzy)
}

func TestBM25ReindexReplacesOldRows(t *testing.T) {
	engine, passages := budgetCorpus(t)
	ctx := context.Background()

	// 重建同一文档的索引后，旧词项不再命中
	updated := &entity.Passage{
		ID: "p-budget", DocumentID: "d1", UserID: testUser, ChunkIndex: 0,
		Heading: "Revenue", HeadingLevel: 1,
		Text: "The revenue is growing", WordCount: 4,
	}
	require.NoError(t, passages.CreateBatch(ctx, []*entity.Passage{updated}))
	require.NoError(t, engine.Index(ctx, testUser, "d1", []*entity.Passage{updated}))

	old, err := engine.Search(ctx, testUser, "budget", SearchOptions{})
	require.NoError(t, err)
	assert.Empty(t, old)

	fresh, err := engine.Search(ctx, testUser, "revenue", SearchOptions{})
	require.NoError(t, err)
	assert.NotEmpty(t, fresh)
}

// fixedStatsTermRepo 固定返回给定统计行，其余委托内层仓储
type fixedStatsTermRepo struct {
	*fakeTermIndexRepo
	stats *entity.IndexStats
}

func (f *fixedStatsTermRepo) Stats(_ context.Context, _ string) (*entity.IndexStats, error) {
	return f.stats, nil
}

func TestBM25AvgPassageLengthUsesWordUnits(t *testing.T) {
	budget := &entity.Passage{
		ID: "p-budget", DocumentID: "d1", UserID: testUser, ChunkIndex: 0,
		Heading: "Budget", HeadingLevel: 1,
		Text: "The budget is $500", WordCount: 4, TokenCount: 6, StartLine: 0, EndLine: 2,
	}
	timeline := &entity.Passage{
		ID: "p-timeline", DocumentID: "d1", UserID: testUser, ChunkIndex: 1,
		Heading: "Timeline", HeadingLevel: 1,
		Text: "The project ends in June", WordCount: 5, TokenCount: 7, StartLine: 3, EndLine: 5,
	}

	passages := newFakePassageRepo(budget, timeline)
	inner := newFakeTermIndexRepo(passages)
	terms := &fixedStatsTermRepo{fakeTermIndexRepo: inner}
	engine := NewBM25Engine(terms, passages)

	require.NoError(t, engine.Index(context.Background(), testUser, "d1", []*entity.Passage{budget, timeline}))

	// 闭式期望值以词数为单位：docLen=4, avgDocLen=(4+5)/2=4.5
	idf := math.Log((2-1+0.5)/(1+0.5) + 1)
	norm := 1 - 0.4 + 0.4*(4.0/4.5)
	expected := idf * (1 * 2.5) / (1 + 1.5*norm) * 1.5

	terms.stats = &entity.IndexStats{UserID: testUser, TotalPassages: 2, AvgPassageLength: 4.5}
	results, err := engine.Search(context.Background(), testUser, "What is the budget?", SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, expected, results[0].Score, 1e-9)

	// 若统计行误存 token 均值（词数 * 1.3），长度归一化被压低，分数整体偏高
	terms.stats = &entity.IndexStats{UserID: testUser, TotalPassages: 2, AvgPassageLength: 6.5}
	results, err = engine.Search(context.Background(), testUser, "What is the budget?", SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Greater(t, math.Abs(results[0].Score-expected), 1e-6)
	assert.Greater(t, results[0].Score, expected)
}
