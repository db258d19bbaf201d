// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"time"

	"ilka-rag-api/internal/domain/entity"
)

// UploadDocumentRequest 文档上传请求
type UploadDocumentRequest struct {
	FileName    string `json:"file_name" binding:"required,max=512"`
	ContentType string `json:"content_type" binding:"omitempty,max=128"`
	Content     string `json:"content" binding:"required"`
}

// DocumentResponse 文档响应
type DocumentResponse struct {
	ID           string    `json:"id"`
	FileName     string    `json:"file_name"`
	ContentType  string    `json:"content_type,omitempty"`
	SizeBytes    int64     `json:"size_bytes"`
	Status       string    `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
	PassageCount int       `json:"passage_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DocumentListResponse 文档列表响应
type DocumentListResponse struct {
	Documents []*DocumentResponse `json:"documents"`
}

// DocumentFilterRequest 文档列表过滤参数
type DocumentFilterRequest struct {
	Status string `form:"status" binding:"omitempty,max=32"`
}

// ToDocumentResponse 将领域实体转换为 DTO
func ToDocumentResponse(d *entity.Document) *DocumentResponse {
	if d == nil {
		return nil
	}
	return &DocumentResponse{
		ID:           d.ID,
		FileName:     d.FileName,
		ContentType:  d.ContentType,
		SizeBytes:    d.SizeBytes,
		Status:       string(d.Status),
		ErrorMessage: d.ErrorMessage,
		PassageCount: d.PassageCount,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

// ToDocumentListResponse 将实体列表转换为 DTO 列表
func ToDocumentListResponse(docs []*entity.Document) *DocumentListResponse {
	out := make([]*DocumentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, ToDocumentResponse(d))
	}
	return &DocumentListResponse{Documents: out}
}
