// Package method 实现检索方法编排管线与并发执行引擎
package method

import (
	"context"

	"ilka-rag-api/internal/domain/entity"
)

const (
	// bm25TopK 词法检索候选数
	bm25TopK = 100
	// rerankWindow 参与重排的候选数上限
	rerankWindow = 50
	// finalTopK 进入写作阶段的段落数
	finalTopK = 20
	// bm25Weight 重排融合中词法得分的权重
	bm25Weight = 0.7
)

// Request 单次查询的方法执行请求
type Request struct {
	UserID   string
	Query    string
	Analysis *entity.QueryAnalysis
}

// Method 检索方法编排管线
type Method interface {
	// Name 返回答案中携带的方法名
	Name() string
	// Execute 执行完整管线并返回带引用的答案
	Execute(ctx context.Context, req *Request) (*entity.Answer, error)
}

func topN(passages []*entity.ScoredPassage, n int) []*entity.ScoredPassage {
	if len(passages) > n {
		return passages[:n]
	}
	return passages
}
