// Package entity 定义领域实体
package entity

// Confidence 答案置信度
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Citation 答案引用
type Citation struct {
	Index     int    `json:"index"`
	FileName  string `json:"file_name"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	Text      string `json:"text"`
}

// AnswerMetadata 答案生成过程元数据
type AnswerMetadata struct {
	Rounds            int                 `json:"rounds"`
	Verification      *VerificationResult `json:"verification,omitempty"`
	FinalPassageCount int                 `json:"final_passage_count"`
	ExpandedQuery     string              `json:"expanded_query,omitempty"`
	HydeDocument      string              `json:"hyde_document,omitempty"`
	DocumentCount     int                 `json:"document_count,omitempty"`
	FromCache         int                 `json:"from_cache,omitempty"`
	GeneratedOnFly    int                 `json:"generated_on_fly,omitempty"`
}

// Answer 单个检索方法的最终答案
type Answer struct {
	Method     string          `json:"method"`
	Text       string          `json:"text"`
	Citations  []Citation      `json:"citations,omitempty"`
	Confidence Confidence      `json:"confidence"`
	LatencyMs  int64           `json:"latency_ms"`
	Metadata   *AnswerMetadata `json:"metadata,omitempty"`
}
