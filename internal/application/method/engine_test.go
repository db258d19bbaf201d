package method

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ilka-rag-api/internal/domain/entity"
)

// stubMethod 返回固定答案或固定错误的管线
type stubMethod struct {
	name string
	err  error
}

func (s *stubMethod) Name() string { return s.name }

func (s *stubMethod) Execute(context.Context, *Request) (*entity.Answer, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &entity.Answer{Method: s.name, Text: "answer from " + s.name}, nil
}

func newStubEngine(failing map[string]error) *Engine {
	mk := func(name string) Method {
		return &stubMethod{name: name, err: failing[name]}
	}
	return NewEngine(
		mk("bm25-direct"),
		mk("bm25-agents"),
		mk("vector-agents"),
		mk("hyde-agents"),
		mk("summary"),
	)
}

func TestEngineRunsRoutedMethods(t *testing.T) {
	e := newStubEngine(nil)

	result := e.Execute(context.Background(), &Request{UserID: "u1", Query: "q"},
		[]entity.RetrievalMethod{entity.MethodBM25, entity.MethodVector}, false)

	require.Len(t, result.Answers, 3)
	names := map[string]bool{}
	for _, a := range result.Answers {
		names[a.Method] = true
	}
	// 非显式指定时 bm25 附带查询扩展管线
	assert.True(t, names["bm25-direct"])
	assert.True(t, names["bm25-agents"])
	assert.True(t, names["vector-agents"])
	assert.Empty(t, result.MethodErrors)
}

func TestEngineExplicitMethodsSkipCompanionPipeline(t *testing.T) {
	e := newStubEngine(nil)

	result := e.Execute(context.Background(), &Request{UserID: "u1", Query: "q"},
		[]entity.RetrievalMethod{entity.MethodBM25}, true)

	require.Len(t, result.Answers, 1)
	assert.Equal(t, "bm25-direct", result.Answers[0].Method)
}

func TestEngineIsolatesMethodFailures(t *testing.T) {
	e := newStubEngine(map[string]error{
		"vector-agents": errors.New("milvus unreachable"),
	})

	result := e.Execute(context.Background(), &Request{UserID: "u1", Query: "q"},
		[]entity.RetrievalMethod{entity.MethodVector, entity.MethodHyde}, true)

	require.Len(t, result.Answers, 1)
	assert.Equal(t, "hyde-agents", result.Answers[0].Method)
	assert.Equal(t, "milvus unreachable", result.MethodErrors["vector-agents"])
}

func TestEnginePreservesTaskOrder(t *testing.T) {
	e := newStubEngine(nil)

	result := e.Execute(context.Background(), &Request{UserID: "u1", Query: "q"},
		[]entity.RetrievalMethod{entity.MethodHyde, entity.MethodSummary}, true)

	require.Len(t, result.Answers, 2)
	assert.Equal(t, "hyde-agents", result.Answers[0].Method)
	assert.Equal(t, "summary", result.Answers[1].Method)
}
