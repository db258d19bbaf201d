package method

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"ilka-rag-api/internal/application/agent"
	"ilka-rag-api/internal/application/retrieval"
	"ilka-rag-api/internal/domain/entity"
	"ilka-rag-api/internal/domain/repository"
	"ilka-rag-api/internal/domain/service"
	"ilka-rag-api/pkg/logger"
	"ilka-rag-api/pkg/metrics"
)

// QueryResult 一次查询的全部方法结果
// 单个方法失败只记入 MethodErrors，不影响其它方法的答案
type QueryResult struct {
	Answers      []*entity.Answer  `json:"answers"`
	MethodErrors map[string]string `json:"method_errors,omitempty"`
}

// Engine 检索方法并发执行引擎
type Engine struct {
	bm25Direct   Method
	bm25Agents   Method
	vectorAgents Method
	hydeAgents   Method
	summary      Method
}

// NewEngine 创建执行引擎
func NewEngine(bm25Direct, bm25Agents, vectorAgents, hydeAgents, summary Method) *Engine {
	return &Engine{
		bm25Direct:   bm25Direct,
		bm25Agents:   bm25Agents,
		vectorAgents: vectorAgents,
		hydeAgents:   hydeAgents,
		summary:      summary,
	}
}

// NewDefaultEngine 组装全部检索方法管线，四条管线共享同一个反馈回路
func NewDefaultEngine(
	bm25 *retrieval.BM25Engine,
	reranker *retrieval.Reranker,
	vector *retrieval.VectorRetriever,
	documents repository.DocumentRepository,
	summaries repository.SummaryRepository,
	passages repository.PassageRepository,
	gen service.TextGenerator,
) *Engine {
	loop := newAgentLoop(
		agent.NewWriter(gen),
		agent.NewVerifier(),
		agent.NewSupervisor(),
		agent.NewContextMaker(passages),
	)
	return NewEngine(
		NewBM25Direct(bm25, reranker, loop),
		NewBM25Agents(bm25, reranker, loop),
		NewVectorAgents(vector, loop),
		NewHydeAgents(vector, gen, loop),
		NewSummary(documents, summaries, gen),
	)
}

// Execute 并发执行路由选出的方法并汇总结果
// explicit 表示方法列表来自请求方显式指定；非显式路由到 bm25 时
// 额外附带查询扩展管线做对照
func (e *Engine) Execute(ctx context.Context, req *Request, methods []entity.RetrievalMethod, explicit bool) *QueryResult {
	tasks := e.plan(methods, explicit)

	answers := make([]*entity.Answer, len(tasks))
	var (
		mu         sync.Mutex
		methodErrs map[string]string
	)

	g, gctx := errgroup.WithContext(ctx)
	for i, task := range tasks {
		g.Go(func() error {
			start := time.Now()
			answer, err := task.Execute(gctx, req)
			metrics.QueryDuration.WithLabelValues(task.Name()).Observe(time.Since(start).Seconds())
			if err != nil {
				metrics.QueryTotal.WithLabelValues(task.Name(), "error").Inc()
				logger.Error(gctx, "检索方法执行失败", err, "method", task.Name())
				mu.Lock()
				if methodErrs == nil {
					methodErrs = make(map[string]string)
				}
				methodErrs[task.Name()] = err.Error()
				mu.Unlock()
				return nil
			}
			metrics.QueryTotal.WithLabelValues(task.Name(), "success").Inc()
			answers[i] = answer
			return nil
		})
	}
	// worker 不返回错误，Wait 只等待全部完成
	_ = g.Wait()

	result := &QueryResult{MethodErrors: methodErrs}
	for _, a := range answers {
		if a != nil {
			result.Answers = append(result.Answers, a)
		}
	}
	return result
}

// plan 把路由结果映射为管线任务列表
func (e *Engine) plan(methods []entity.RetrievalMethod, explicit bool) []Method {
	var tasks []Method
	for _, m := range methods {
		switch m {
		case entity.MethodBM25:
			tasks = append(tasks, e.bm25Direct)
			if !explicit {
				tasks = append(tasks, e.bm25Agents)
			}
		case entity.MethodVector:
			tasks = append(tasks, e.vectorAgents)
		case entity.MethodHyde:
			tasks = append(tasks, e.hydeAgents)
		case entity.MethodSummary:
			tasks = append(tasks, e.summary)
		}
	}
	return tasks
}
