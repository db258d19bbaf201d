// Package milvus 提供 Milvus 向量数据库访问层实现
package milvus

import (
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

const (
	// CollectionPassages 文档段落集合
	CollectionPassages = "passages"

	// VectorDimension 向量维度
	VectorDimension = 1024
)

// PassagesSchema 段落 Collection Schema
func PassagesSchema() *entity.Schema {
	return &entity.Schema{
		CollectionName: CollectionPassages,
		Description:    "Document passages for semantic search",
		Fields: []*entity.Field{
			{
				Name:       "id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "vector",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": "1024",
				},
			},
			{
				Name:     "user_id",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "document_id",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "heading",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "512",
				},
			},
		},
	}
}

// PassageVector 段落向量数据结构
type PassageVector struct {
	ID         string    `json:"id"`
	Vector     []float32 `json:"vector"`
	UserID     string    `json:"user_id"`
	DocumentID string    `json:"document_id"`
	Heading    string    `json:"heading"`
}

// PartitionName 生成用户分区名称
// Milvus 分区名只允许字母、数字和下划线，UUID 中的连字符需要替换
func PartitionName(userID string) string {
	return "user_" + strings.ReplaceAll(userID, "-", "_")
}
