package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ilka-rag-api/internal/domain/entity"
)

func TestQueryRequestParseMethods(t *testing.T) {
	tests := []struct {
		name    string
		methods []string
		want    []entity.RetrievalMethod
		badName string
	}{
		{
			name:    "空列表",
			methods: nil,
			want:    []entity.RetrievalMethod{},
		},
		{
			name:    "已知方法",
			methods: []string{"bm25", "vector"},
			want:    []entity.RetrievalMethod{entity.MethodBM25, entity.MethodVector},
		},
		{
			name:    "未知方法",
			methods: []string{"bm25", "graph"},
			badName: "graph",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := QueryRequest{Question: "q", Methods: tt.methods}
			got, bad := req.ParseMethods()
			assert.Equal(t, tt.badName, bad)
			if tt.badName == "" {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestToQueryResponseEmptyAnswers(t *testing.T) {
	analysis := &entity.QueryAnalysis{Complexity: entity.ComplexitySimple}
	resp := ToQueryResponse("q", analysis, []entity.RetrievalMethod{entity.MethodBM25}, nil, 12)

	require.NotNil(t, resp)
	assert.NotNil(t, resp.Answers, "answers 必须序列化为空数组而非 null")
	assert.Empty(t, resp.Answers)
	assert.Equal(t, int64(12), resp.LatencyMs)
}
