// Package entity 定义领域实体
package entity

import (
	"time"
)

// DocumentSummary 文档摘要实体，摄取阶段预生成
type DocumentSummary struct {
	ID         string    `json:"id" gorm:"type:uuid;primaryKey"`
	DocumentID string    `json:"document_id" gorm:"type:uuid;uniqueIndex;not null"`
	UserID     string    `json:"user_id" gorm:"type:varchar(64);index;not null"`
	Summary    string    `json:"summary" gorm:"type:text;not null"`
	Keywords   string    `json:"keywords,omitempty" gorm:"type:text"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt  time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (DocumentSummary) TableName() string {
	return "document_summaries"
}
