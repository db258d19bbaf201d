package query

import (
	"context"

	"ilka-rag-api/internal/domain/entity"
	"ilka-rag-api/pkg/logger"
)

// methodAll 分析结果中的通配方法名，展开为三种检索方法
const methodAll = entity.RetrievalMethod("all")

// Router 根据问题分析结果选择检索方法组合
// 纯规则路由，不访问外部服务
type Router struct{}

// NewRouter 创建路由器
func NewRouter() *Router {
	return &Router{}
}

// Route 返回应执行的检索方法列表，至少包含一个方法
// 分析结果中的显式推荐优先；非法方法名被丢弃，全部非法时退回规则路由
func (r *Router) Route(ctx context.Context, analysis *entity.QueryAnalysis) []entity.RetrievalMethod {
	if methods := r.validateRecommended(ctx, analysis.RecommendedMethods); len(methods) > 0 {
		return methods
	}

	switch {
	case analysis.Intent == entity.IntentSummary && analysis.Scope == entity.ScopeSpecificDocument:
		return []entity.RetrievalMethod{entity.MethodSummary}
	case analysis.Complexity == entity.ComplexitySimple && analysis.Intent == entity.IntentFactual:
		return []entity.RetrievalMethod{entity.MethodBM25}
	case analysis.Complexity == entity.ComplexityComplex,
		analysis.Intent == entity.IntentAnalytical,
		analysis.Intent == entity.IntentComparison:
		return []entity.RetrievalMethod{entity.MethodBM25, entity.MethodVector, entity.MethodHyde}
	default:
		return []entity.RetrievalMethod{entity.MethodBM25, entity.MethodVector}
	}
}

// validateRecommended 校验显式推荐的方法名，去重并展开 all
func (r *Router) validateRecommended(ctx context.Context, recommended []entity.RetrievalMethod) []entity.RetrievalMethod {
	seen := make(map[entity.RetrievalMethod]bool)
	var out []entity.RetrievalMethod
	for _, m := range recommended {
		if m == methodAll {
			for _, expanded := range []entity.RetrievalMethod{entity.MethodBM25, entity.MethodVector, entity.MethodHyde} {
				if !seen[expanded] {
					seen[expanded] = true
					out = append(out, expanded)
				}
			}
			continue
		}
		if !entity.KnownMethods[m] {
			logger.Warn(ctx, "忽略未知的检索方法推荐", "method", string(m))
			continue
		}
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}
