// Package entity 定义领域实体
package entity

// QueryComplexity 问题复杂度
type QueryComplexity string

const (
	ComplexitySimple   QueryComplexity = "simple"
	ComplexityModerate QueryComplexity = "moderate"
	ComplexityComplex  QueryComplexity = "complex"
)

// QueryIntent 问题意图
type QueryIntent string

const (
	IntentFactual     QueryIntent = "factual"
	IntentExploratory QueryIntent = "exploratory"
	IntentSummary     QueryIntent = "summary"
	IntentAnalytical  QueryIntent = "analytical"
	IntentComparison  QueryIntent = "comparison"
)

// QueryScope 问题范围
type QueryScope string

const (
	ScopeGeneral          QueryScope = "general"
	ScopeSpecificDocument QueryScope = "specific_document"
)

// RetrievalMethod 检索方法名
type RetrievalMethod string

const (
	MethodBM25    RetrievalMethod = "bm25"
	MethodVector  RetrievalMethod = "vector"
	MethodHyde    RetrievalMethod = "hyde"
	MethodSummary RetrievalMethod = "summary"
)

// KnownMethods 合法的检索方法集合
var KnownMethods = map[RetrievalMethod]bool{
	MethodBM25:    true,
	MethodVector:  true,
	MethodHyde:    true,
	MethodSummary: true,
}

// QueryAnalysis 问题分析结果
type QueryAnalysis struct {
	Complexity         QueryComplexity   `json:"complexity"`
	Intent             QueryIntent       `json:"intent"`
	Scope              QueryScope        `json:"scope"`
	TargetDocument     string            `json:"target_document,omitempty"`
	RecommendedMethods []RetrievalMethod `json:"recommended_methods,omitempty"`
	HypotheticalAnswer string            `json:"hypothetical_answer,omitempty"`
	Synonyms           []string          `json:"synonyms,omitempty"`
	RelatedTerms       []string          `json:"related_terms,omitempty"`
	Rephrasings        []string          `json:"rephrasings,omitempty"`
	SubQuestions       []string          `json:"sub_questions,omitempty"`
	Reasoning          string            `json:"reasoning,omitempty"`
}

// SupervisorAction 监督代理的决策动作
type SupervisorAction string

const (
	ActionProceed SupervisorAction = "proceed"
	ActionRequery SupervisorAction = "requery"
	ActionWiden   SupervisorAction = "widen"
)

// WideningStrategy 上下文拓宽策略
type WideningStrategy string

const (
	StrategyHeadingBounded WideningStrategy = "heading_bounded"
	StrategySlidingWindow  WideningStrategy = "sliding_window"
	StrategyFullSection    WideningStrategy = "full_section"
)

// AgentDecision 监督代理决策
type AgentDecision struct {
	Action   SupervisorAction `json:"action"`
	Strategy WideningStrategy `json:"strategy,omitempty"`
	Reason   string           `json:"reason"`
}

// VerificationResult 答案校验结果
type VerificationResult struct {
	Passed       bool     `json:"passed"`
	Issues       []string `json:"issues,omitempty"`
	CitationRate float64  `json:"citation_rate"`
}
