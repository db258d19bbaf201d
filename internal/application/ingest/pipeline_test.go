package ingest

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ilka-rag-api/internal/application/retrieval"
	"ilka-rag-api/internal/domain/entity"
	"ilka-rag-api/internal/domain/repository"
	"ilka-rag-api/internal/domain/service"
)

type memDocumentRepo struct {
	docs map[string]*entity.Document
}

func (f *memDocumentRepo) Create(_ context.Context, d *entity.Document) error {
	f.docs[d.ID] = d
	return nil
}

func (f *memDocumentRepo) GetByID(_ context.Context, userID, id string) (*entity.Document, error) {
	d, ok := f.docs[id]
	if !ok || d.UserID != userID {
		return nil, nil
	}
	return d, nil
}

func (f *memDocumentRepo) Update(_ context.Context, d *entity.Document) error {
	f.docs[d.ID] = d
	return nil
}

func (f *memDocumentRepo) UpdateStatus(_ context.Context, id string, status entity.DocumentStatus) error {
	f.docs[id].Status = status
	return nil
}

func (f *memDocumentRepo) MarkError(_ context.Context, id, msg string) error {
	if d, ok := f.docs[id]; ok {
		d.MarkError(msg)
	}
	return nil
}

func (f *memDocumentRepo) SetPassageCount(_ context.Context, id string, count int) error {
	f.docs[id].PassageCount = count
	return nil
}

func (f *memDocumentRepo) Delete(_ context.Context, userID, id string) error {
	delete(f.docs, id)
	return nil
}

func (f *memDocumentRepo) ListByUser(_ context.Context, userID string, _ *repository.DocumentFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.Document], error) {
	var out []*entity.Document
	for _, d := range f.docs {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return repository.NewPagedResult(out, int64(len(out)), pagination), nil
}

func (f *memDocumentRepo) FindByFileName(context.Context, string, string) ([]*entity.Document, error) {
	return nil, nil
}

func (f *memDocumentRepo) ListReady(context.Context, string) ([]*entity.Document, error) {
	return nil, nil
}

type memPassageRepo struct {
	passages map[string]*entity.Passage
}

func (f *memPassageRepo) CreateBatch(_ context.Context, ps []*entity.Passage) error {
	for _, p := range ps {
		f.passages[p.ID] = p
	}
	return nil
}

func (f *memPassageRepo) GetByID(_ context.Context, id string) (*entity.Passage, error) {
	return f.passages[id], nil
}

func (f *memPassageRepo) GetByIDs(_ context.Context, ids []string) ([]*entity.Passage, error) {
	var out []*entity.Passage
	for _, id := range ids {
		if p, ok := f.passages[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *memPassageRepo) GetByDocument(_ context.Context, documentID string) ([]*entity.Passage, error) {
	var out []*entity.Passage
	for _, p := range f.passages {
		if p.DocumentID == documentID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChunkIndex < out[j].ChunkIndex })
	return out, nil
}

func (f *memPassageRepo) GetBySection(context.Context, string, string) ([]*entity.Passage, error) {
	return nil, nil
}

func (f *memPassageRepo) GetNeighbors(context.Context, string, int, int) ([]*entity.Passage, error) {
	return nil, nil
}

func (f *memPassageRepo) UpdateContext(_ context.Context, id, ctx string) error {
	if p, ok := f.passages[id]; ok {
		p.Context = ctx
	}
	return nil
}

func (f *memPassageRepo) DeleteByDocument(_ context.Context, documentID string) error {
	for id, p := range f.passages {
		if p.DocumentID == documentID {
			delete(f.passages, id)
		}
	}
	return nil
}

func (f *memPassageRepo) CountByUser(context.Context, string) (int64, error) { return 0, nil }

type memSummaryRepo struct {
	byDoc map[string]*entity.DocumentSummary
}

func (f *memSummaryRepo) Upsert(_ context.Context, s *entity.DocumentSummary) error {
	f.byDoc[s.DocumentID] = s
	return nil
}

func (f *memSummaryRepo) GetByDocument(_ context.Context, documentID string) (*entity.DocumentSummary, error) {
	return f.byDoc[documentID], nil
}

func (f *memSummaryRepo) DeleteByDocument(_ context.Context, documentID string) error {
	delete(f.byDoc, documentID)
	return nil
}

type memTermIndexRepo struct {
	postings []*entity.TermPosting
}

func (f *memTermIndexRepo) ReplaceDocumentIndex(_ context.Context, userID, documentID string, postings []*entity.TermPosting) error {
	kept := f.postings[:0]
	for _, p := range f.postings {
		if p.DocumentID != documentID {
			kept = append(kept, p)
		}
	}
	f.postings = append(kept, postings...)
	return nil
}

func (f *memTermIndexRepo) Postings(context.Context, string, []string) ([]*entity.TermPosting, error) {
	return nil, nil
}

func (f *memTermIndexRepo) DocumentFrequency(context.Context, string, []string) (map[string]int64, error) {
	return nil, nil
}

func (f *memTermIndexRepo) Stats(_ context.Context, userID string) (*entity.IndexStats, error) {
	return &entity.IndexStats{UserID: userID}, nil
}

func (f *memTermIndexRepo) DistinctTerms(context.Context, string) ([]string, error) {
	return nil, nil
}

func (f *memTermIndexRepo) DeleteByDocument(context.Context, string, string) error { return nil }

type memVectorIndex struct {
	items map[string][]retrieval.VectorItem
}

func (f *memVectorIndex) Upsert(_ context.Context, userID string, items []retrieval.VectorItem) error {
	if f.items == nil {
		f.items = map[string][]retrieval.VectorItem{}
	}
	f.items[userID] = append(f.items[userID], items...)
	return nil
}

func (f *memVectorIndex) Query(context.Context, string, []float64, int, string) ([]retrieval.VectorHit, error) {
	return nil, nil
}

func (f *memVectorIndex) DeleteByDocument(context.Context, string, string) error { return nil }

type constEmbedder struct{}

func (constEmbedder) EmbedStrings(_ context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i := range out {
		out[i] = []float64{1, 0}
	}
	return out, nil
}

type scriptedGenerator struct{ text string }

func (g *scriptedGenerator) Generate(context.Context, string, string, service.GenerateOptions) (string, error) {
	return g.text, nil
}

type recordingPublisher struct {
	stages []string
}

func (r *recordingPublisher) PublishIngestStage(_ context.Context, stage, userID, documentID string) (string, error) {
	r.stages = append(r.stages, stage)
	return "1-0", nil
}

type fixture struct {
	pipeline  *Pipeline
	docs      *memDocumentRepo
	passages  *memPassageRepo
	summaries *memSummaryRepo
	terms     *memTermIndexRepo
	vectors   *memVectorIndex
	publisher *recordingPublisher
}

func newFixture(genText string) *fixture {
	docs := &memDocumentRepo{docs: map[string]*entity.Document{}}
	passages := &memPassageRepo{passages: map[string]*entity.Passage{}}
	summaries := &memSummaryRepo{byDoc: map[string]*entity.DocumentSummary{}}
	terms := &memTermIndexRepo{}
	vectors := &memVectorIndex{}
	publisher := &recordingPublisher{}

	pipeline := NewPipeline(
		DefaultConfig(),
		docs, passages, summaries,
		retrieval.NewBM25Engine(terms, passages),
		vectors,
		constEmbedder{},
		&scriptedGenerator{text: genText},
		publisher,
	)
	return &fixture{pipeline, docs, passages, summaries, terms, vectors, publisher}
}

const sampleDocument = `PROJECT OVERVIEW

The project delivers a document retrieval service.
It ships in two phases over the next year.

BUDGET

The budget is five hundred thousand dollars.
Spending is reviewed quarterly by the board.`

func TestProcessDocumentChunksAndIndexes(t *testing.T) {
	f := newFixture("")
	f.docs.docs["d1"] = entity.NewDocument("d1", "u1", "plan.txt", "text/plain", 10, sampleDocument)

	err := f.pipeline.ProcessDocument(context.Background(), "u1", "d1")
	require.NoError(t, err)

	assert.Equal(t, entity.DocumentStatusSummarizing, f.docs.docs["d1"].Status)
	assert.Equal(t, len(f.passages.passages), f.docs.docs["d1"].PassageCount)
	assert.NotEmpty(t, f.passages.passages)
	assert.NotEmpty(t, f.terms.postings)
	assert.Equal(t, []string{StageGenerateSummary}, f.publisher.stages)

	for _, p := range f.passages.passages {
		assert.Equal(t, "plan.txt", p.FileName)
		assert.Equal(t, "u1", p.UserID)
	}
}

func TestProcessDocumentIsIdempotent(t *testing.T) {
	f := newFixture("")
	f.docs.docs["d1"] = entity.NewDocument("d1", "u1", "plan.txt", "text/plain", 10, sampleDocument)

	require.NoError(t, f.pipeline.ProcessDocument(context.Background(), "u1", "d1"))
	first := len(f.passages.passages)
	require.NoError(t, f.pipeline.ProcessDocument(context.Background(), "u1", "d1"))

	// 重试不产生重复段落
	assert.Equal(t, first, len(f.passages.passages))
}

func TestGenerateSummaryStoresSummaryAndKeywords(t *testing.T) {
	f := newFixture(`["budget", "timeline"]`)
	f.docs.docs["d1"] = entity.NewDocument("d1", "u1", "plan.txt", "text/plain", 10, sampleDocument)

	err := f.pipeline.GenerateSummary(context.Background(), "u1", "d1")
	require.NoError(t, err)

	stored := f.summaries.byDoc["d1"]
	require.NotNil(t, stored)
	assert.NotEmpty(t, stored.Summary)
	assert.Equal(t, `["budget","timeline"]`, stored.Keywords)
	assert.Equal(t, entity.DocumentStatusContextEnrichment, f.docs.docs["d1"].Status)
	assert.Equal(t, []string{StageGenerateContexts}, f.publisher.stages)
}

func TestGenerateContextsFallsBackOnBadJSON(t *testing.T) {
	f := newFixture("not json at all")
	f.docs.docs["d1"] = entity.NewDocument("d1", "u1", "plan.txt", "text/plain", 10, sampleDocument)
	f.passages.passages["p1"] = &entity.Passage{ID: "p1", DocumentID: "d1", UserID: "u1", ChunkIndex: 0, Text: "budget text"}

	err := f.pipeline.GenerateContexts(context.Background(), "u1", "d1")
	require.NoError(t, err)

	assert.Equal(t, "This passage is from plan.txt.", f.passages.passages["p1"].Context)
	assert.Equal(t, entity.DocumentStatusEmbedding, f.docs.docs["d1"].Status)
}

func TestGenerateContextsAppliesParsedContexts(t *testing.T) {
	f := newFixture(`[{"chunk_index": 1, "context": "Opening section of the plan."}]`)
	f.docs.docs["d1"] = entity.NewDocument("d1", "u1", "plan.txt", "text/plain", 10, sampleDocument)
	f.passages.passages["p1"] = &entity.Passage{ID: "p1", DocumentID: "d1", UserID: "u1", ChunkIndex: 0, Text: "budget text"}

	require.NoError(t, f.pipeline.GenerateContexts(context.Background(), "u1", "d1"))
	assert.Equal(t, "Opening section of the plan.", f.passages.passages["p1"].Context)
}

func TestGenerateEmbeddingsMarksReady(t *testing.T) {
	f := newFixture("")
	f.docs.docs["d1"] = entity.NewDocument("d1", "u1", "plan.txt", "text/plain", 10, sampleDocument)
	f.passages.passages["p1"] = &entity.Passage{ID: "p1", DocumentID: "d1", UserID: "u1", ChunkIndex: 0, Text: "budget text", Context: "ctx"}

	err := f.pipeline.GenerateEmbeddings(context.Background(), "u1", "d1")
	require.NoError(t, err)

	assert.Equal(t, entity.DocumentStatusReady, f.docs.docs["d1"].Status)
	require.Len(t, f.vectors.items["u1"], 1)
	assert.Equal(t, "p1", f.vectors.items["u1"][0].ID)
}

func TestHandleStageMarksDocumentOnFailure(t *testing.T) {
	f := newFixture("")
	f.docs.docs["d1"] = entity.NewDocument("d1", "u1", "empty.txt", "text/plain", 0, "")

	err := f.pipeline.HandleStage(context.Background(), StageProcessDocument, "u1", "d1")
	require.Error(t, err)
	assert.Equal(t, entity.DocumentStatusError, f.docs.docs["d1"].Status)
	assert.NotEmpty(t, f.docs.docs["d1"].ErrorMessage)
}

func TestHandleStageRejectsUnknownStage(t *testing.T) {
	f := newFixture("")
	err := f.pipeline.HandleStage(context.Background(), "reticulate_splines", "u1", "d1")
	assert.Error(t, err)
}

func TestPassageIDIsDeterministic(t *testing.T) {
	assert.Equal(t, PassageID("d1", 3), PassageID("d1", 3))
	assert.NotEqual(t, PassageID("d1", 3), PassageID("d1", 4))
	assert.NotEqual(t, PassageID("d1", 3), PassageID("d2", 3))
}
