// Package entity 定义领域实体
package entity

// TermPosting BM25 倒排索引的词项记录
// 一行对应 (词项, 段落) 的一次出现统计
type TermPosting struct {
	ID         uint   `json:"-" gorm:"primaryKey;autoIncrement"`
	UserID     string `json:"user_id" gorm:"type:varchar(64);index:idx_posting_term,priority:1;not null"`
	Term       string `json:"term" gorm:"type:varchar(128);index:idx_posting_term,priority:2;not null"`
	PassageID  string `json:"passage_id" gorm:"type:uuid;index;not null"`
	DocumentID string `json:"document_id" gorm:"type:uuid;index;not null"`
	Frequency  int    `json:"frequency" gorm:"not null"`
	InHeading  bool   `json:"in_heading" gorm:"default:false"`
}

// TableName 指定表名
func (TermPosting) TableName() string {
	return "bm25_postings"
}

// IndexStats BM25 索引的全局统计，按用户一行
type IndexStats struct {
	UserID        string `json:"user_id" gorm:"type:varchar(64);primaryKey"`
	TotalPassages int64  `json:"total_passages" gorm:"default:0"`
	// AvgPassageLength 平均段落词数，与 Passage.WordCount 同单位
	AvgPassageLength float64 `json:"avg_passage_length" gorm:"default:0"`
	TotalTerms       int64   `json:"total_terms" gorm:"default:0"`
	UniqueTerms      int64   `json:"unique_terms" gorm:"default:0"`
}

// TableName 指定表名
func (IndexStats) TableName() string {
	return "bm25_stats"
}
