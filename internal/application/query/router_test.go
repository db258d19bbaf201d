package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"ilka-rag-api/internal/domain/entity"
)

func TestRouteExplicitRecommendationWins(t *testing.T) {
	methods := NewRouter().Route(context.Background(), &entity.QueryAnalysis{
		Complexity:         entity.ComplexityComplex,
		Intent:             entity.IntentAnalytical,
		RecommendedMethods: []entity.RetrievalMethod{entity.MethodHyde},
	})
	assert.Equal(t, []entity.RetrievalMethod{entity.MethodHyde}, methods)
}

func TestRouteExpandsAll(t *testing.T) {
	methods := NewRouter().Route(context.Background(), &entity.QueryAnalysis{
		RecommendedMethods: []entity.RetrievalMethod{"all"},
	})
	assert.Equal(t, []entity.RetrievalMethod{entity.MethodBM25, entity.MethodVector, entity.MethodHyde}, methods)
}

func TestRouteDropsUnknownMethods(t *testing.T) {
	methods := NewRouter().Route(context.Background(), &entity.QueryAnalysis{
		Complexity:         entity.ComplexitySimple,
		Intent:             entity.IntentFactual,
		RecommendedMethods: []entity.RetrievalMethod{"grep", entity.MethodVector},
	})
	assert.Equal(t, []entity.RetrievalMethod{entity.MethodVector}, methods)
}

func TestRouteFallsBackWhenAllRecommendationsUnknown(t *testing.T) {
	methods := NewRouter().Route(context.Background(), &entity.QueryAnalysis{
		Complexity:         entity.ComplexitySimple,
		Intent:             entity.IntentFactual,
		RecommendedMethods: []entity.RetrievalMethod{"grep"},
	})
	assert.Equal(t, []entity.RetrievalMethod{entity.MethodBM25}, methods)
}

func TestRouteByRules(t *testing.T) {
	tests := []struct {
		name     string
		analysis entity.QueryAnalysis
		want     []entity.RetrievalMethod
	}{
		{
			name:     "简单事实题走 bm25",
			analysis: entity.QueryAnalysis{Complexity: entity.ComplexitySimple, Intent: entity.IntentFactual, Scope: entity.ScopeGeneral},
			want:     []entity.RetrievalMethod{entity.MethodBM25},
		},
		{
			name:     "指定文档的摘要题走 summary",
			analysis: entity.QueryAnalysis{Complexity: entity.ComplexitySimple, Intent: entity.IntentSummary, Scope: entity.ScopeSpecificDocument},
			want:     []entity.RetrievalMethod{entity.MethodSummary},
		},
		{
			name:     "简单探索题走 bm25+vector",
			analysis: entity.QueryAnalysis{Complexity: entity.ComplexitySimple, Intent: entity.IntentExploratory, Scope: entity.ScopeGeneral},
			want:     []entity.RetrievalMethod{entity.MethodBM25, entity.MethodVector},
		},
		{
			name:     "中等复杂度走 bm25+vector",
			analysis: entity.QueryAnalysis{Complexity: entity.ComplexityModerate, Intent: entity.IntentFactual, Scope: entity.ScopeGeneral},
			want:     []entity.RetrievalMethod{entity.MethodBM25, entity.MethodVector},
		},
		{
			name:     "复杂题加 hyde",
			analysis: entity.QueryAnalysis{Complexity: entity.ComplexityComplex, Intent: entity.IntentFactual, Scope: entity.ScopeGeneral},
			want:     []entity.RetrievalMethod{entity.MethodBM25, entity.MethodVector, entity.MethodHyde},
		},
		{
			name:     "对比题加 hyde",
			analysis: entity.QueryAnalysis{Complexity: entity.ComplexityModerate, Intent: entity.IntentComparison, Scope: entity.ScopeGeneral},
			want:     []entity.RetrievalMethod{entity.MethodBM25, entity.MethodVector, entity.MethodHyde},
		},
		{
			name:     "泛化摘要题不走 summary",
			analysis: entity.QueryAnalysis{Complexity: entity.ComplexityModerate, Intent: entity.IntentSummary, Scope: entity.ScopeGeneral},
			want:     []entity.RetrievalMethod{entity.MethodBM25, entity.MethodVector},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewRouter().Route(context.Background(), &tt.analysis))
		})
	}
}
