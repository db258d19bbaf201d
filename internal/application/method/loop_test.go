package method

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ilka-rag-api/internal/application/agent"
	"ilka-rag-api/internal/domain/entity"
	"ilka-rag-api/internal/domain/service"
)

// seqGenerator 依次返回预置文本的生成器
type seqGenerator struct {
	texts []string
	calls int
}

func (g *seqGenerator) Generate(context.Context, string, string, service.GenerateOptions) (string, error) {
	text := g.texts[len(g.texts)-1]
	if g.calls < len(g.texts) {
		text = g.texts[g.calls]
	}
	g.calls++
	return text, nil
}

// loopPassageStore 只支撑拓宽查询的内存仓储
type loopPassageStore struct {
	passages []*entity.Passage
}

func (f *loopPassageStore) CreateBatch(context.Context, []*entity.Passage) error { return nil }
func (f *loopPassageStore) GetByID(context.Context, string) (*entity.Passage, error) {
	return nil, nil
}
func (f *loopPassageStore) GetByIDs(context.Context, []string) ([]*entity.Passage, error) {
	return nil, nil
}
func (f *loopPassageStore) GetByDocument(context.Context, string) ([]*entity.Passage, error) {
	return nil, nil
}

func (f *loopPassageStore) GetBySection(_ context.Context, documentID, sectionKey string) ([]*entity.Passage, error) {
	var out []*entity.Passage
	for _, p := range f.passages {
		if p.DocumentID == documentID && (p.ParentSectionID == sectionKey || p.Heading == sectionKey) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChunkIndex < out[j].ChunkIndex })
	return out, nil
}

func (f *loopPassageStore) GetNeighbors(_ context.Context, documentID string, chunkIndex, window int) ([]*entity.Passage, error) {
	var out []*entity.Passage
	for _, p := range f.passages {
		if p.DocumentID != documentID || p.ChunkIndex == chunkIndex {
			continue
		}
		if p.ChunkIndex >= chunkIndex-window && p.ChunkIndex <= chunkIndex+window {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *loopPassageStore) UpdateContext(context.Context, string, string) error     { return nil }
func (f *loopPassageStore) DeleteByDocument(context.Context, string) error          { return nil }
func (f *loopPassageStore) CountByUser(context.Context, string) (int64, error)      { return 0, nil }

func loopFixture(gen service.TextGenerator) (*agentLoop, []*entity.ScoredPassage) {
	store := &loopPassageStore{}
	var passages []*entity.ScoredPassage
	for i := 0; i < 5; i++ {
		p := &entity.Passage{
			ID:              string(rune('a' + i)),
			DocumentID:      "d1",
			ChunkIndex:      i,
			ParentSectionID: "Budget",
			FileName:        "report.txt",
			Text:            "budget detail",
			WordCount:       2,
			TokenCount:      3,
		}
		store.passages = append(store.passages, p)
		passages = append(passages, &entity.ScoredPassage{Passage: p, Score: float64(10 - i)})
	}

	loop := newAgentLoop(
		agent.NewWriter(gen),
		agent.NewVerifier(),
		agent.NewSupervisor(),
		agent.NewContextMaker(store),
	)
	return loop, passages
}

func TestLoopStopsWhenVerificationPasses(t *testing.T) {
	gen := &seqGenerator{texts: []string{
		"The budget is five hundred dollars for this fiscal year [1]. It was approved in March [2].",
	}}
	loop, passages := loopFixture(gen)

	result, err := loop.run(context.Background(), "test", "what is the budget?", passages)
	require.NoError(t, err)
	assert.Equal(t, 0, result.rounds)
	assert.True(t, result.verification.Passed)
	assert.Equal(t, 1, gen.calls)
}

func TestLoopTerminatesAtRoundCap(t *testing.T) {
	// 生成器永远不给引用，回路必须在上限处收敛
	gen := &seqGenerator{texts: []string{
		"The budget is probably large and keeps growing every single year without bound.",
	}}
	loop, passages := loopFixture(gen)

	result, err := loop.run(context.Background(), "test", "what is the budget?", passages)
	require.NoError(t, err)
	assert.False(t, result.verification.Passed)
	// 两轮拓宽后监督器强制收敛
	assert.Equal(t, 2, result.rounds)
	assert.Equal(t, 3, gen.calls)
}

func TestLoopWidensThenPasses(t *testing.T) {
	gen := &seqGenerator{texts: []string{
		"The answer is unclear from the passages shown here and needs more context.",
		"The budget is five hundred dollars for the year [1]. The committee also approved it [1].",
	}}
	loop, passages := loopFixture(gen)

	result, err := loop.run(context.Background(), "test", "what is the budget?", passages)
	require.NoError(t, err)
	assert.True(t, result.verification.Passed)
	assert.Equal(t, 1, result.rounds)
	// 拓宽从不把证据清空
	assert.NotEmpty(t, result.passages)
}
