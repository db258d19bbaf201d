// Package milvus 提供 Milvus 向量数据库访问层实现
package milvus

import (
	"context"
	"fmt"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ilka-rag-api/pkg/metrics"
)

// Repository 段落向量仓储
type Repository struct {
	client *Client
}

// NewRepository 创建段落向量仓储
func NewRepository(client *Client) *Repository {
	return &Repository{client: client}
}

// SearchParams 检索参数
type SearchParams struct {
	UserID      string
	QueryVector []float32
	TopK        int
	// DocumentID 非空时将检索范围限定到单篇文档
	DocumentID string
}

// SearchResult 检索结果
type SearchResult struct {
	ID    string
	Score float32
}

// CreateCollection 创建集合
func (r *Repository) CreateCollection(ctx context.Context, schema *entity.Schema) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.CreateCollection",
		trace.WithAttributes(attribute.String("collection", schema.CollectionName)))
	defer span.End()

	collName := r.client.CollectionName(schema.CollectionName)
	schema.CollectionName = collName

	err := r.client.milvus.CreateCollection(ctx, schema, entity.DefaultShardNumber)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create collection: %w", err)
	}

	return nil
}

// CreateIndex 创建 HNSW 索引
func (r *Repository) CreateIndex(ctx context.Context, collection string) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.CreateIndex",
		trace.WithAttributes(attribute.String("collection", collection)))
	defer span.End()

	collName := r.client.CollectionName(collection)

	idx, err := entity.NewIndexHNSW(
		entity.COSINE,
		r.client.config.HNSWM,
		r.client.config.HNSWEfConstruction,
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create index: %w", err)
	}

	err = r.client.milvus.CreateIndex(ctx, collName, "vector", idx, false)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

// CreatePartition 创建用户分区
func (r *Repository) CreatePartition(ctx context.Context, collection, userID string) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.CreatePartition",
		trace.WithAttributes(
			attribute.String("collection", collection),
			attribute.String("partition", PartitionName(userID)),
		))
	defer span.End()

	collName := r.client.CollectionName(collection)
	partitionName := PartitionName(userID)

	return r.client.milvus.CreatePartition(ctx, collName, partitionName)
}

// SearchPassages 在用户分区内做向量检索
func (r *Repository) SearchPassages(ctx context.Context, params *SearchParams) ([]*SearchResult, error) {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return nil, fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.SearchPassages",
		trace.WithAttributes(
			attribute.String("user_id", params.UserID),
			attribute.Int("top_k", params.TopK),
		))
	defer span.End()

	start := time.Now()
	results, err := r.searchPassages(ctx, params)
	metrics.MilvusSearchDuration.WithLabelValues(CollectionPassages).Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		metrics.MilvusSearchTotal.WithLabelValues(CollectionPassages, "error").Inc()
		return nil, err
	}

	metrics.MilvusSearchTotal.WithLabelValues(CollectionPassages, "success").Inc()
	span.SetAttributes(attribute.Int("result_count", len(results)))
	return results, nil
}

func (r *Repository) searchPassages(ctx context.Context, params *SearchParams) ([]*SearchResult, error) {
	collName := r.client.CollectionName(CollectionPassages)
	partitionName := PartitionName(params.UserID)

	// 如果分区尚未创建（例如新用户从未上传文档），直接返回空结果，避免 Milvus 报 partition not found。
	if has, err := r.client.milvus.HasPartition(ctx, collName, partitionName); err != nil {
		return nil, fmt.Errorf("failed to check partition: %w", err)
	} else if !has {
		return []*SearchResult{}, nil
	}

	// 构建过滤表达式
	filter := fmt.Sprintf(`user_id == "%s"`, params.UserID)
	if params.DocumentID != "" {
		filter += fmt.Sprintf(` && document_id == "%s"`, params.DocumentID)
	}

	// 搜索参数
	sp, err := entity.NewIndexHNSWSearchParam(128)
	if err != nil {
		return nil, fmt.Errorf("failed to create search param: %w", err)
	}

	// 执行搜索
	results, err := r.client.milvus.Search(ctx,
		collName,
		[]string{partitionName},
		filter,
		[]string{"id"},
		[]entity.Vector{entity.FloatVector(params.QueryVector)},
		"vector",
		entity.COSINE,
		params.TopK,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	// 解析结果
	var searchResults []*SearchResult
	for _, result := range results {
		for i := 0; i < result.ResultCount; i++ {
			sr := &SearchResult{
				Score: result.Scores[i],
			}
			if idCol, ok := result.Fields.GetColumn("id").(*entity.ColumnVarChar); ok {
				sr.ID = idCol.Data()[i]
			}
			searchResults = append(searchResults, sr)
		}
	}

	return searchResults, nil
}

// UpsertPassages 写入段落向量，按主键覆盖已有条目
func (r *Repository) UpsertPassages(ctx context.Context, userID string, passages []*PassageVector) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.UpsertPassages",
		trace.WithAttributes(
			attribute.String("user_id", userID),
			attribute.Int("count", len(passages)),
		))
	defer span.End()

	if len(passages) == 0 {
		return nil
	}

	collName := r.client.CollectionName(CollectionPassages)
	partitionName := PartitionName(userID)

	// 确保分区存在
	has, _ := r.client.milvus.HasPartition(ctx, collName, partitionName)
	if !has {
		if err := r.CreatePartition(ctx, CollectionPassages, userID); err != nil {
			return err
		}
	}

	// 准备数据
	ids := make([]string, len(passages))
	vectors := make([][]float32, len(passages))
	userIDs := make([]string, len(passages))
	documentIDs := make([]string, len(passages))
	headings := make([]string, len(passages))

	for i, p := range passages {
		ids[i] = p.ID
		vectors[i] = p.Vector
		userIDs[i] = p.UserID
		documentIDs[i] = p.DocumentID
		headings[i] = p.Heading
	}

	// 构建列
	idCol := entity.NewColumnVarChar("id", ids)
	vectorCol := entity.NewColumnFloatVector("vector", VectorDimension, vectors)
	userCol := entity.NewColumnVarChar("user_id", userIDs)
	documentCol := entity.NewColumnVarChar("document_id", documentIDs)
	headingCol := entity.NewColumnVarChar("heading", headings)

	// Upsert 保证文档重新入库时不会产生重复向量
	_, err := r.client.milvus.Upsert(ctx, collName, partitionName,
		idCol, vectorCol, userCol, documentCol, headingCol)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to upsert passages: %w", err)
	}

	metrics.PassagesIndexed.WithLabelValues("vector").Add(float64(len(passages)))
	return nil
}

// DeleteByDocument 删除指定文档的全部段落向量
func (r *Repository) DeleteByDocument(ctx context.Context, userID, documentID string) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.DeleteByDocument",
		trace.WithAttributes(
			attribute.String("document_id", documentID),
		))
	defer span.End()

	collName := r.client.CollectionName(CollectionPassages)
	partitionName := PartitionName(userID)

	if has, err := r.client.milvus.HasPartition(ctx, collName, partitionName); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to check partition: %w", err)
	} else if !has {
		return nil
	}

	filter := fmt.Sprintf(`document_id == "%s"`, documentID)

	err := r.client.milvus.Delete(ctx, collName, partitionName, filter)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete passages: %w", err)
	}

	return nil
}

// RebuildIndex 重建索引
func (r *Repository) RebuildIndex(ctx context.Context, collection string) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.RebuildIndex",
		trace.WithAttributes(attribute.String("collection", collection)))
	defer span.End()

	collName := r.client.CollectionName(collection)

	// 1. 释放集合
	if err := r.client.milvus.ReleaseCollection(ctx, collName); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to release collection: %w", err)
	}

	// 2. 删除旧索引
	if err := r.client.milvus.DropIndex(ctx, collName, "vector"); err != nil {
		// 忽略索引不存在的错误
	}

	// 3. 创建新索引
	if err := r.CreateIndex(ctx, collection); err != nil {
		return err
	}

	// 4. 重新加载集合
	return r.client.milvus.LoadCollection(ctx, collName, false)
}

// EnsurePassagesCollection 确保 passages 集合与索引可用（不存在则创建）。
// 约束：不会做 drop/rebuild 等破坏性操作。
func (r *Repository) EnsurePassagesCollection(ctx context.Context) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}

	exists, err := r.client.HasCollection(ctx, CollectionPassages)
	if err != nil {
		return err
	}
	if !exists {
		if err := r.CreateCollection(ctx, PassagesSchema()); err != nil {
			return err
		}
		// 新建集合时创建索引；若失败，允许后续由运维介入。
		_ = r.CreateIndex(ctx, CollectionPassages)
	}

	// 尝试确保集合已加载（若已加载，Milvus 会返回成功）
	return r.client.LoadCollection(ctx, CollectionPassages)
}
