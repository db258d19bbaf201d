// Package entity 定义领域实体
package entity

import (
	"time"
)

// Passage 文档切分后的段落实体
type Passage struct {
	ID              string    `json:"id" gorm:"type:uuid;primaryKey"`
	DocumentID      string    `json:"document_id" gorm:"type:uuid;index;not null"`
	UserID          string    `json:"user_id" gorm:"type:varchar(64);index;not null"`
	FileName        string    `json:"file_name,omitempty" gorm:"type:varchar(512)"`
	ChunkIndex      int       `json:"chunk_index" gorm:"not null"`
	Text            string    `json:"text" gorm:"type:text;not null"`
	Context         string    `json:"context,omitempty" gorm:"type:text"`
	Heading         string    `json:"heading,omitempty" gorm:"type:varchar(512);index"`
	HeadingLevel    int       `json:"heading_level" gorm:"default:0"`
	ParentSectionID string    `json:"parent_section_id,omitempty" gorm:"type:varchar(512);index"`
	StartLine       int       `json:"start_line"`
	EndLine         int       `json:"end_line"`
	WordCount       int       `json:"word_count" gorm:"default:0"`
	TokenCount      int       `json:"token_count" gorm:"default:0"`
	CreatedAt       time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName 指定表名
func (Passage) TableName() string {
	return "passages"
}

// SectionKey 用于上下文拓宽时的章节去重键
// 优先父章节，其次自身标题，最后回退到段落 ID
func (p *Passage) SectionKey() string {
	if p.ParentSectionID != "" {
		return p.ParentSectionID
	}
	if p.Heading != "" {
		return p.Heading
	}
	return p.ID
}

// EmbeddingText 返回用于向量化的文本（上下文增强后）
func (p *Passage) EmbeddingText() string {
	if p.Context != "" {
		return p.Context + "\n\n" + p.Text
	}
	return p.Text
}

// ScoredPassage 带检索得分的段落
type ScoredPassage struct {
	Passage     *Passage `json:"passage"`
	Score       float64  `json:"score"`
	BM25Score   float64  `json:"bm25_score,omitempty"`
	VectorScore float64  `json:"vector_score,omitempty"`
	Source      string   `json:"source,omitempty"` // bm25 / vector / merged
}
