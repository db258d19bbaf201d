// Package entity 定义领域实体
package entity

import (
	"time"
)

// DocumentStatus 文档状态，按摄取流水线阶段推进
type DocumentStatus string

const (
	DocumentStatusUploading         DocumentStatus = "uploading"
	DocumentStatusProcessing        DocumentStatus = "processing"
	DocumentStatusChunking          DocumentStatus = "chunking"
	DocumentStatusIndexing          DocumentStatus = "indexing"
	DocumentStatusSummarizing       DocumentStatus = "summarizing"
	DocumentStatusContextEnrichment DocumentStatus = "context_enrichment"
	DocumentStatusEmbedding         DocumentStatus = "embedding"
	DocumentStatusReady             DocumentStatus = "ready"
	DocumentStatusError             DocumentStatus = "error"
)

// Document 文档实体
type Document struct {
	ID           string         `json:"id" gorm:"type:uuid;primaryKey"`
	UserID       string         `json:"user_id" gorm:"type:varchar(64);index;not null"`
	FileName     string         `json:"file_name" gorm:"type:varchar(512);not null"`
	ContentType  string         `json:"content_type,omitempty" gorm:"type:varchar(128)"`
	SizeBytes    int64          `json:"size_bytes" gorm:"default:0"`
	Content      string         `json:"-" gorm:"type:text"`
	Status       DocumentStatus `json:"status" gorm:"type:varchar(32);default:'uploading';index"`
	ErrorMessage string         `json:"error_message,omitempty" gorm:"type:text"`
	PassageCount int            `json:"passage_count" gorm:"default:0"`
	CreatedAt    time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Document) TableName() string {
	return "documents"
}

// NewDocument 创建新文档
func NewDocument(id, userID, fileName, contentType string, sizeBytes int64, content string) *Document {
	now := time.Now()
	return &Document{
		ID:          id,
		UserID:      userID,
		FileName:    fileName,
		ContentType: contentType,
		SizeBytes:   sizeBytes,
		Content:     content,
		Status:      DocumentStatusUploading,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsReady 检查文档是否可供检索
func (d *Document) IsReady() bool {
	return d.Status == DocumentStatusReady
}

// MarkError 标记文档处理失败
func (d *Document) MarkError(msg string) {
	d.Status = DocumentStatusError
	d.ErrorMessage = msg
	d.UpdatedAt = time.Now()
}
