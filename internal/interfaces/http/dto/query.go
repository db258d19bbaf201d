// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"ilka-rag-api/internal/application/method"
	"ilka-rag-api/internal/domain/entity"
)

// QueryModeModelOnly 绕过检索、直接调用模型的查询模式
const QueryModeModelOnly = "model-only"

// QueryRequest 查询请求
// Methods 显式指定检索方法时跳过路由；Mode 为 model-only 时绕过检索
type QueryRequest struct {
	Question   string   `json:"question" binding:"required,max=4096"`
	Methods    []string `json:"methods" binding:"omitempty,max=4"`
	Mode       string   `json:"mode" binding:"omitempty,oneof=model-only"`
	DocumentID string   `json:"document_id" binding:"omitempty,uuid"`

	Provider    string   `json:"provider,omitempty"`
	Temperature *float32 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
}

// QueryResponse 查询响应
type QueryResponse struct {
	Question     string                `json:"question"`
	Analysis     *entity.QueryAnalysis `json:"analysis,omitempty"`
	Methods      []string              `json:"methods"`
	Answers      []*entity.Answer      `json:"answers"`
	MethodErrors map[string]string     `json:"method_errors,omitempty"`
	LatencyMs    int64                 `json:"latency_ms"`
}

// ModelOnlyResponse model-only 模式的非流式响应
type ModelOnlyResponse struct {
	Question  string `json:"question"`
	Thinking  string `json:"thinking,omitempty"`
	Answer    string `json:"answer"`
	LatencyMs int64  `json:"latency_ms"`
}

// ParseMethods 将请求中的方法名转换为领域类型，非法名称原样返回供报错
func (r *QueryRequest) ParseMethods() ([]entity.RetrievalMethod, string) {
	out := make([]entity.RetrievalMethod, 0, len(r.Methods))
	for _, name := range r.Methods {
		m := entity.RetrievalMethod(name)
		if !entity.KnownMethods[m] {
			return nil, name
		}
		out = append(out, m)
	}
	return out, ""
}

// ToQueryResponse 组装查询响应
func ToQueryResponse(question string, analysis *entity.QueryAnalysis, methods []entity.RetrievalMethod, result *method.QueryResult, latencyMs int64) *QueryResponse {
	names := make([]string, 0, len(methods))
	for _, m := range methods {
		names = append(names, string(m))
	}
	resp := &QueryResponse{
		Question:  question,
		Analysis:  analysis,
		Methods:   names,
		LatencyMs: latencyMs,
	}
	if result != nil {
		resp.Answers = result.Answers
		resp.MethodErrors = result.MethodErrors
	}
	if resp.Answers == nil {
		resp.Answers = []*entity.Answer{}
	}
	return resp
}
