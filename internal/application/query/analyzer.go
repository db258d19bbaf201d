// Package query 实现问题分析与检索方法路由
package query

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"ilka-rag-api/internal/domain/entity"
	"ilka-rag-api/internal/domain/service"
	"ilka-rag-api/pkg/logger"
	"ilka-rag-api/pkg/utils"
)

const (
	analyzerTemperature = 0.0
	analyzerMaxTokens   = 600
	analysisCacheTTL    = time.Hour
)

const analyzerSystemPrompt = `You are a query analyzer for a document question-answering system. Analyze the user's question and respond with ONLY a JSON object, no other text:

{
  "complexity": "simple" | "moderate" | "complex",
  "intent": "factual" | "exploratory" | "summary" | "analytical" | "comparison",
  "scope": "general" | "specific_document",
  "target_document": "document name if the question names one, else empty",
  "recommended_methods": ["bm25" | "vector" | "hyde" | "summary" | "all"],
  "hypothetical_answer": "a short passage that would plausibly answer the question",
  "synonyms": ["up to 3 synonyms for key terms"],
  "related_terms": ["up to 2 closely related terms"],
  "rephrasings": ["3 alternative phrasings of the question"],
  "sub_questions": ["sub-questions if the query is multi-part, else an empty list"],
  "reasoning": "one sentence explaining the classification"
}`

// AnalysisCache 分析结果缓存端口，由 Redis 缓存实现
type AnalysisCache interface {
	GetOrLoadSafe(ctx context.Context, key string, ttl time.Duration, loader func() (interface{}, error)) ([]byte, error)
}

// Analyzer 用 LLM 对问题做结构化分析，结果按问题哈希缓存
type Analyzer struct {
	gen   service.TextGenerator
	cache AnalysisCache
}

// NewAnalyzer 创建问题分析器，cache 可为 nil（不缓存）
func NewAnalyzer(gen service.TextGenerator, cache AnalysisCache) *Analyzer {
	return &Analyzer{gen: gen, cache: cache}
}

// Analyze 分析问题；LLM 输出无法解析时退回默认分析而非失败
func (a *Analyzer) Analyze(ctx context.Context, query string) (*entity.QueryAnalysis, error) {
	if a.cache == nil {
		return a.analyze(ctx, query), nil
	}

	sum := sha256.Sum256([]byte(query))
	key := "query_analysis:" + hex.EncodeToString(sum[:])

	data, err := a.cache.GetOrLoadSafe(ctx, key, analysisCacheTTL, func() (interface{}, error) {
		return a.analyze(ctx, query), nil
	})
	if err != nil {
		// 缓存故障不阻塞查询
		logger.Warn(ctx, "分析缓存不可用，直接分析", "error", err.Error())
		return a.analyze(ctx, query), nil
	}

	var analysis entity.QueryAnalysis
	if err := json.Unmarshal(data, &analysis); err != nil {
		return defaultAnalysis(), nil
	}
	return &analysis, nil
}

func (a *Analyzer) analyze(ctx context.Context, query string) *entity.QueryAnalysis {
	raw, err := a.gen.Generate(ctx, analyzerSystemPrompt, query, service.GenerateOptions{
		Temperature: analyzerTemperature,
		MaxTokens:   analyzerMaxTokens,
	})
	if err != nil {
		logger.Warn(ctx, "问题分析调用失败，使用默认分析", "error", err.Error())
		return defaultAnalysis()
	}

	var analysis entity.QueryAnalysis
	if err := json.Unmarshal([]byte(utils.ExtractJSONObject(raw)), &analysis); err != nil {
		logger.Warn(ctx, "问题分析结果解析失败，使用默认分析", "error", err.Error())
		return defaultAnalysis()
	}

	normalize(&analysis)
	return &analysis
}

// defaultAnalysis 解析失败时的保守默认值
func defaultAnalysis() *entity.QueryAnalysis {
	return &entity.QueryAnalysis{
		Complexity:         entity.ComplexityModerate,
		Intent:             entity.IntentFactual,
		Scope:              entity.ScopeGeneral,
		RecommendedMethods: []entity.RetrievalMethod{entity.MethodBM25, entity.MethodVector},
		Reasoning:          "Default analysis due to parse error",
	}
}

// normalize 把越界的枚举值收敛到默认值
func normalize(a *entity.QueryAnalysis) {
	switch a.Complexity {
	case entity.ComplexitySimple, entity.ComplexityModerate, entity.ComplexityComplex:
	default:
		a.Complexity = entity.ComplexityModerate
	}
	switch a.Intent {
	case entity.IntentFactual, entity.IntentExploratory, entity.IntentSummary,
		entity.IntentAnalytical, entity.IntentComparison:
	default:
		a.Intent = entity.IntentFactual
	}
	switch a.Scope {
	case entity.ScopeGeneral, entity.ScopeSpecificDocument:
	default:
		a.Scope = entity.ScopeGeneral
	}
}
