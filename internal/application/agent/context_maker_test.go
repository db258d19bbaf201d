package agent

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ilka-rag-api/internal/domain/entity"
)

// fakePassageStore 内存段落仓储，仅实现拓宽用到的方法
type fakePassageStore struct {
	passages []*entity.Passage
}

func (f *fakePassageStore) CreateBatch(_ context.Context, ps []*entity.Passage) error {
	f.passages = append(f.passages, ps...)
	return nil
}

func (f *fakePassageStore) GetByID(_ context.Context, id string) (*entity.Passage, error) {
	for _, p := range f.passages {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakePassageStore) GetByIDs(_ context.Context, ids []string) ([]*entity.Passage, error) {
	var out []*entity.Passage
	for _, id := range ids {
		for _, p := range f.passages {
			if p.ID == id {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func (f *fakePassageStore) GetByDocument(_ context.Context, documentID string) ([]*entity.Passage, error) {
	var out []*entity.Passage
	for _, p := range f.passages {
		if p.DocumentID == documentID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChunkIndex < out[j].ChunkIndex })
	return out, nil
}

func (f *fakePassageStore) GetBySection(_ context.Context, documentID, sectionKey string) ([]*entity.Passage, error) {
	var out []*entity.Passage
	for _, p := range f.passages {
		if p.DocumentID != documentID {
			continue
		}
		if p.ParentSectionID == sectionKey || p.Heading == sectionKey {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChunkIndex < out[j].ChunkIndex })
	return out, nil
}

func (f *fakePassageStore) GetNeighbors(_ context.Context, documentID string, chunkIndex, window int) ([]*entity.Passage, error) {
	var out []*entity.Passage
	for _, p := range f.passages {
		if p.DocumentID != documentID || p.ChunkIndex == chunkIndex {
			continue
		}
		if p.ChunkIndex >= chunkIndex-window && p.ChunkIndex <= chunkIndex+window {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChunkIndex < out[j].ChunkIndex })
	return out, nil
}

func (f *fakePassageStore) UpdateContext(_ context.Context, id, ctx string) error { return nil }

func (f *fakePassageStore) DeleteByDocument(_ context.Context, documentID string) error { return nil }

func (f *fakePassageStore) CountByUser(_ context.Context, userID string) (int64, error) {
	return int64(len(f.passages)), nil
}

func sectionCorpus() *fakePassageStore {
	store := &fakePassageStore{}
	// 文档 d1 的 Budget 章节有 7 段，编号 0-6
	for i := 0; i < 7; i++ {
		store.passages = append(store.passages, &entity.Passage{
			ID:              fmt.Sprintf("p%d", i),
			DocumentID:      "d1",
			UserID:          "u1",
			ChunkIndex:      i,
			ParentSectionID: "Budget",
			Text:            fmt.Sprintf("budget line %d", i),
			StartLine:       i * 10,
			EndLine:         i*10 + 9,
			WordCount:       3,
			TokenCount:      4,
		})
	}
	// 无章节信息的孤立段落
	store.passages = append(store.passages, &entity.Passage{
		ID:         "lone",
		DocumentID: "d1",
		UserID:     "u1",
		ChunkIndex: 99,
		Text:       "standalone text",
		StartLine:  990,
		EndLine:    991,
		WordCount:  2,
		TokenCount: 3,
	})
	return store
}

func scoredOf(p *entity.Passage, score float64) *entity.ScoredPassage {
	return &entity.ScoredPassage{Passage: p, Score: score}
}

func TestWidenHeadingBoundedMergesAndCapsSection(t *testing.T) {
	store := sectionCorpus()
	m := NewContextMaker(store)

	out, err := m.Widen(context.Background(), []*entity.ScoredPassage{
		scoredOf(store.passages[3], 9.0),
	}, entity.StrategyHeadingBounded)
	require.NoError(t, err)
	require.Len(t, out, 1)

	merged := out[0]
	assert.Equal(t, "merged", merged.Source)
	assert.Equal(t, 9.0, merged.Score)
	// 章节有 7 段，只合并前 5 段
	assert.Equal(t, 0, merged.Passage.StartLine)
	assert.Equal(t, 49, merged.Passage.EndLine)
	assert.Equal(t, 15, merged.Passage.WordCount)
	assert.Equal(t, 20, merged.Passage.TokenCount)
	assert.Contains(t, merged.Passage.Text, "budget line 0")
	assert.Contains(t, merged.Passage.Text, "budget line 4")
	assert.NotContains(t, merged.Passage.Text, "budget line 5")
}

func TestWidenHeadingBoundedDedupesBySection(t *testing.T) {
	store := sectionCorpus()
	m := NewContextMaker(store)

	// 同一章节命中两段，只输出一组
	out, err := m.Widen(context.Background(), []*entity.ScoredPassage{
		scoredOf(store.passages[1], 9.0),
		scoredOf(store.passages[4], 8.0),
	}, entity.StrategyHeadingBounded)
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestWidenKeepsPassageWithoutSection(t *testing.T) {
	store := sectionCorpus()
	m := NewContextMaker(store)
	lone := store.passages[len(store.passages)-1]

	out, err := m.Widen(context.Background(), []*entity.ScoredPassage{
		scoredOf(lone, 2.0),
	}, entity.StrategyHeadingBounded)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "standalone text", out[0].Passage.Text)
}

func TestWidenSlidingWindowMergesNeighbors(t *testing.T) {
	store := sectionCorpus()
	m := NewContextMaker(store)

	out, err := m.Widen(context.Background(), []*entity.ScoredPassage{
		scoredOf(store.passages[3], 9.0),
		scoredOf(store.passages[0], 5.0),
	}, entity.StrategySlidingWindow)
	require.NoError(t, err)
	// 滑动窗口不去重，输出数量与输入一致
	require.Len(t, out, 2)

	// 段落 3 合并了 2、3、4
	assert.Equal(t, 20, out[0].Passage.StartLine)
	assert.Equal(t, 49, out[0].Passage.EndLine)
	// 段落 0 在文档起点，只有右邻居
	assert.Equal(t, 0, out[1].Passage.StartLine)
	assert.Equal(t, 19, out[1].Passage.EndLine)
}

func TestWidenFullSectionHasNoSectionCap(t *testing.T) {
	store := sectionCorpus()
	m := NewContextMaker(store)

	out, err := m.Widen(context.Background(), []*entity.ScoredPassage{
		scoredOf(store.passages[2], 9.0),
	}, entity.StrategyFullSection)
	require.NoError(t, err)
	require.Len(t, out, 1)

	// 全部 7 段都被合并
	assert.Equal(t, 0, out[0].Passage.StartLine)
	assert.Equal(t, 69, out[0].Passage.EndLine)
	assert.Equal(t, 21, out[0].Passage.WordCount)
	assert.Contains(t, out[0].Passage.Text, "budget line 6")
}

func TestWidenRejectsUnknownStrategy(t *testing.T) {
	m := NewContextMaker(&fakePassageStore{})
	_, err := m.Widen(context.Background(), nil, entity.WideningStrategy("bogus"))
	assert.Error(t, err)
}
