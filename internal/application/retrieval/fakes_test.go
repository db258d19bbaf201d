package retrieval

import (
	"context"
	"sort"

	"ilka-rag-api/internal/domain/entity"
)

// fakePassageRepo 内存段落仓储，仅实现检索用到的方法
type fakePassageRepo struct {
	passages map[string]*entity.Passage
}

func newFakePassageRepo(passages ...*entity.Passage) *fakePassageRepo {
	m := make(map[string]*entity.Passage)
	for _, p := range passages {
		m[p.ID] = p
	}
	return &fakePassageRepo{passages: m}
}

func (f *fakePassageRepo) CreateBatch(_ context.Context, passages []*entity.Passage) error {
	for _, p := range passages {
		f.passages[p.ID] = p
	}
	return nil
}

func (f *fakePassageRepo) GetByID(_ context.Context, id string) (*entity.Passage, error) {
	return f.passages[id], nil
}

func (f *fakePassageRepo) GetByIDs(_ context.Context, ids []string) ([]*entity.Passage, error) {
	var out []*entity.Passage
	for _, id := range ids {
		if p, ok := f.passages[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePassageRepo) GetByDocument(_ context.Context, documentID string) ([]*entity.Passage, error) {
	var out []*entity.Passage
	for _, p := range f.passages {
		if p.DocumentID == documentID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChunkIndex < out[j].ChunkIndex })
	return out, nil
}

func (f *fakePassageRepo) GetBySection(_ context.Context, documentID, sectionKey string) ([]*entity.Passage, error) {
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

func (f *fakePassageRepo) GetNeighbors(_ context.Context, documentID string, chunkIndex, window int) ([]*entity.Passage, error) {
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

func (f *fakePassageRepo) UpdateContext(_ context.Context, id, ctx string) error {
	if p, ok := f.passages[id]; ok {
		p.Context = ctx
	}
	return nil
}

func (f *fakePassageRepo) DeleteByDocument(_ context.Context, documentID string) error {
	for id, p := range f.passages {
		if p.DocumentID == documentID {
			delete(f.passages, id)
		}
	}
	return nil
}

func (f *fakePassageRepo) CountByUser(_ context.Context, userID string) (int64, error) {
	var n int64
	for _, p := range f.passages {
		if p.UserID == userID {
			n++
		}
	}
	return n, nil
}

// fakeTermIndexRepo 内存倒排索引仓储
type fakeTermIndexRepo struct {
	postings []*entity.TermPosting
	passages *fakePassageRepo
}

func newFakeTermIndexRepo(passages *fakePassageRepo) *fakeTermIndexRepo {
	return &fakeTermIndexRepo{passages: passages}
}

func (f *fakeTermIndexRepo) ReplaceDocumentIndex(_ context.Context, userID, documentID string, postings []*entity.TermPosting) error {
	kept := f.postings[:0]
	for _, p := range f.postings {
		if p.DocumentID != documentID {
			kept = append(kept, p)
		}
	}
	f.postings = append(kept, postings...)
	return nil
}

func (f *fakeTermIndexRepo) Postings(_ context.Context, userID string, terms []string) ([]*entity.TermPosting, error) {
	want := make(map[string]bool, len(terms))
	for _, t := range terms {
		want[t] = true
	}
	var out []*entity.TermPosting
	for _, p := range f.postings {
		if p.UserID == userID && want[p.Term] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeTermIndexRepo) DocumentFrequency(_ context.Context, userID string, terms []string) (map[string]int64, error) {
	want := make(map[string]bool, len(terms))
	for _, t := range terms {
		want[t] = true
	}
	seen := make(map[string]map[string]bool)
	for _, p := range f.postings {
		if p.UserID != userID || !want[p.Term] {
			continue
		}
		if seen[p.Term] == nil {
			seen[p.Term] = make(map[string]bool)
		}
		seen[p.Term][p.PassageID] = true
	}
	df := make(map[string]int64, len(seen))
	for term, ids := range seen {
		df[term] = int64(len(ids))
	}
	return df, nil
}

func (f *fakeTermIndexRepo) Stats(_ context.Context, userID string) (*entity.IndexStats, error) {
	var total int64
	var words int64
	for _, p := range f.passages.passages {
		if p.UserID == userID {
			total++
			words += int64(p.WordCount)
		}
	}
	stats := &entity.IndexStats{UserID: userID, TotalPassages: total}
	if total > 0 {
		stats.AvgPassageLength = float64(words) / float64(total)
	}
	return stats, nil
}

func (f *fakeTermIndexRepo) DistinctTerms(_ context.Context, userID string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, p := range f.postings {
		if p.UserID == userID && !seen[p.Term] {
			seen[p.Term] = true
			out = append(out, p.Term)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeTermIndexRepo) DeleteByDocument(_ context.Context, userID, documentID string) error {
	kept := f.postings[:0]
	for _, p := range f.postings {
		if p.DocumentID != documentID {
			kept = append(kept, p)
		}
	}
	f.postings = kept
	return nil
}

// fakeEmbedder 确定性向量生成器，便于断言余弦相似度
type fakeEmbedder struct {
	vectors map[string][]float64
	err     error
}

func (f *fakeEmbedder) EmbedStrings(_ context.Context, texts []string) ([][]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float64, 0, len(texts))
	for _, t := range texts {
		if v, ok := f.vectors[t]; ok {
			out = append(out, v)
		} else {
			out = append(out, []float64{1, 0, 0})
		}
	}
	return out, nil
}
