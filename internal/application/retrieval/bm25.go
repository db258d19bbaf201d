// Package retrieval 提供词法与语义检索能力
package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"ilka-rag-api/internal/domain/entity"
	"ilka-rag-api/internal/domain/repository"
	"ilka-rag-api/pkg/logger"
	"ilka-rag-api/pkg/metrics"
)

// BM25Params 打分参数
type BM25Params struct {
	K1                   float64
	B                    float64
	RareTermIDFThreshold float64
	RareTermBoost        float64
}

// DefaultBM25Params 默认参数
func DefaultBM25Params() BM25Params {
	return BM25Params{
		K1:                   1.5,
		B:                    0.4,
		RareTermIDFThreshold: 4.0,
		RareTermBoost:        1.5,
	}
}

const (
	defaultTopK = 100
	// 标题段落的词项位置权重
	headingPositionWeight = 1.5
	// 扩展词项的得分折减
	expandedTermWeight = 0.5
	// 模糊回退允许的最大编辑距离
	maxLevenshteinDistance = 2
	// 统计缺失时的平均段落长度兜底值
	fallbackAvgDocLen = 500.0
)

// SearchOptions 检索选项
type SearchOptions struct {
	TopK       int
	DocumentID string
}

// FuzzyResult 模糊回退结果
type FuzzyResult struct {
	Suggestion string
	Results    []*entity.ScoredPassage
}

// BM25Engine 词法检索引擎
// 索引结构完全由 TermIndexRepository 持有，引擎自身无共享可变状态
type BM25Engine struct {
	params   BM25Params
	terms    repository.TermIndexRepository
	passages repository.PassageRepository
}

// NewBM25Engine 创建词法检索引擎
func NewBM25Engine(terms repository.TermIndexRepository, passages repository.PassageRepository) *BM25Engine {
	return &BM25Engine{
		params:   DefaultBM25Params(),
		terms:    terms,
		passages: passages,
	}
}

// Index 重建单个文档的倒排索引（先删后插，事务内完成）
func (e *BM25Engine) Index(ctx context.Context, userID, documentID string, passages []*entity.Passage) error {
	if len(passages) == 0 {
		return nil
	}

	var postings []*entity.TermPosting
	for _, p := range passages {
		counts := countTerms(Tokenize(p.Text))
		inHeading := p.Heading != ""
		for term, freq := range counts {
			postings = append(postings, &entity.TermPosting{
				UserID:     userID,
				Term:       term,
				PassageID:  p.ID,
				DocumentID: documentID,
				Frequency:  freq,
				InHeading:  inHeading,
			})
		}
	}

	if err := e.terms.ReplaceDocumentIndex(ctx, userID, documentID, postings); err != nil {
		return fmt.Errorf("replace document index: %w", err)
	}

	metrics.PassagesIndexed.WithLabelValues("bm25").Add(float64(len(passages)))
	return nil
}

// Search 查询打分，结果按分数降序截断到 topK
// 空查询或分词后为空返回空结果，不视为错误
func (e *BM25Engine) Search(ctx context.Context, userID, query string, opts SearchOptions) ([]*entity.ScoredPassage, error) {
	start := time.Now()
	defer func() {
		metrics.BM25SearchDuration.WithLabelValues("false").Observe(time.Since(start).Seconds())
	}()

	topK := opts.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	queryTerms := Tokenize(PreprocessQuery(query))
	if len(queryTerms) == 0 {
		return nil, nil
	}

	querySet := make(map[string]bool, len(queryTerms))
	for _, t := range queryTerms {
		querySet[t] = true
	}

	allTerms := queryTerms
	for _, t := range ExpandTerms(queryTerms) {
		if !querySet[t] {
			allTerms = append(allTerms, t)
		}
	}
	allTerms = dedupe(allTerms)

	postings, err := e.terms.Postings(ctx, userID, allTerms)
	if err != nil {
		return nil, fmt.Errorf("load postings: %w", err)
	}
	if opts.DocumentID != "" {
		filtered := postings[:0]
		for _, p := range postings {
			if p.DocumentID == opts.DocumentID {
				filtered = append(filtered, p)
			}
		}
		postings = filtered
	}
	if len(postings) == 0 {
		return nil, nil
	}

	matched := make([]string, 0, len(postings))
	for _, p := range postings {
		matched = append(matched, p.Term)
	}
	df, err := e.terms.DocumentFrequency(ctx, userID, dedupe(matched))
	if err != nil {
		return nil, fmt.Errorf("load document frequency: %w", err)
	}

	stats, err := e.terms.Stats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load index stats: %w", err)
	}
	totalPassages := int64(0)
	avgDocLen := fallbackAvgDocLen
	if stats != nil {
		totalPassages = stats.TotalPassages
		if stats.AvgPassageLength > 0 {
			avgDocLen = stats.AvgPassageLength
		}
	}

	scores, err := e.scorePostings(ctx, postings, querySet, df, totalPassages, avgDocLen)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})
	if len(scores) > topK {
		scores = scores[:topK]
	}
	return scores, nil
}

// FuzzySearch 主检索为空时的回退：在全部索引词项上做编辑距离匹配，
// 取最近词项作为建议重新检索；无距离 2 以内的词项返回 nil
func (e *BM25Engine) FuzzySearch(ctx context.Context, userID, query string, opts SearchOptions) (*FuzzyResult, error) {
	start := time.Now()
	defer func() {
		metrics.BM25SearchDuration.WithLabelValues("true").Observe(time.Since(start).Seconds())
	}()

	queryLower := strings.ToLower(strings.TrimSpace(query))
	if queryLower == "" {
		return nil, nil
	}

	terms, err := e.terms.DistinctTerms(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load distinct terms: %w", err)
	}

	type match struct {
		term     string
		distance int
	}
	var matches []match
	for _, term := range terms {
		d := Levenshtein(queryLower, term)
		if d > 0 && d <= maxLevenshteinDistance {
			matches = append(matches, match{term: term, distance: d})
		}
	}
	if len(matches) == 0 {
		return nil, nil
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].distance < matches[j].distance
	})
	if len(matches) > 5 {
		matches = matches[:5]
	}

	suggestion := matches[0].term
	logger.Info(ctx, "bm25 fuzzy fallback", "query", query, "suggestion", suggestion)

	results, err := e.Search(ctx, userID, suggestion, opts)
	if err != nil {
		return nil, err
	}
	return &FuzzyResult{Suggestion: suggestion, Results: results}, nil
}

// scorePostings 逐词累加 BM25 得分
func (e *BM25Engine) scorePostings(
	ctx context.Context,
	postings []*entity.TermPosting,
	querySet map[string]bool,
	df map[string]int64,
	totalPassages int64,
	avgDocLen float64,
) ([]*entity.ScoredPassage, error) {
	passageIDs := make([]string, 0, len(postings))
	seen := make(map[string]bool)
	for _, p := range postings {
		if !seen[p.PassageID] {
			seen[p.PassageID] = true
			passageIDs = append(passageIDs, p.PassageID)
		}
	}

	passages, err := e.passages.GetByIDs(ctx, passageIDs)
	if err != nil {
		return nil, fmt.Errorf("load passages: %w", err)
	}
	byID := make(map[string]*entity.Passage, len(passages))
	for _, p := range passages {
		byID[p.ID] = p
	}

	scored := make(map[string]*entity.ScoredPassage)
	var order []string

	for _, posting := range postings {
		passage, ok := byID[posting.PassageID]
		if !ok {
			continue
		}

		sp, ok := scored[posting.PassageID]
		if !ok {
			sp = &entity.ScoredPassage{Passage: passage, Source: "bm25"}
			scored[posting.PassageID] = sp
			order = append(order, posting.PassageID)
		}

		termScore := e.termScore(posting, df[posting.Term], totalPassages, float64(passage.WordCount), avgDocLen)
		if querySet[posting.Term] {
			sp.Score += termScore
		} else {
			sp.Score += termScore * expandedTermWeight
		}
	}

	result := make([]*entity.ScoredPassage, 0, len(order))
	for _, id := range order {
		sp := scored[id]
		sp.BM25Score = sp.Score
		result = append(result, sp)
	}
	return result, nil
}

// termScore 单个词项对段落的贡献
func (e *BM25Engine) termScore(posting *entity.TermPosting, df, totalPassages int64, docLen, avgDocLen float64) float64 {
	idf := math.Log((float64(totalPassages)-float64(df)+0.5)/(float64(df)+0.5) + 1)
	norm := 1 - e.params.B + e.params.B*(docLen/avgDocLen)
	tf := float64(posting.Frequency)
	base := idf * (tf * (e.params.K1 + 1)) / (tf + e.params.K1*norm)

	if idf > e.params.RareTermIDFThreshold {
		base *= e.params.RareTermBoost
	}
	if posting.InHeading {
		base *= headingPositionWeight
	}
	return base
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := items[:0]
	for _, it := range items {
		if !seen[it] {
			seen[it] = true
			out = append(out, it)
		}
	}
	return out
}
