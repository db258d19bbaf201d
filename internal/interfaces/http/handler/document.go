// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"ilka-rag-api/internal/application/ingest"
	"ilka-rag-api/internal/application/retrieval"
	"ilka-rag-api/internal/domain/entity"
	"ilka-rag-api/internal/domain/repository"
	"ilka-rag-api/internal/interfaces/http/dto"
	"ilka-rag-api/internal/interfaces/http/middleware"
	"ilka-rag-api/pkg/logger"
)

// maxDocumentBytes 单篇文档内容上限
const maxDocumentBytes = 10 << 20

// DocumentHandler 文档管理处理器
type DocumentHandler struct {
	docs      repository.DocumentRepository
	passages  repository.PassageRepository
	terms     repository.TermIndexRepository
	summaries repository.SummaryRepository
	vectors   retrieval.VectorIndex
	publisher ingest.StagePublisher
}

// NewDocumentHandler 创建文档管理处理器
func NewDocumentHandler(
	docs repository.DocumentRepository,
	passages repository.PassageRepository,
	terms repository.TermIndexRepository,
	summaries repository.SummaryRepository,
	vectors retrieval.VectorIndex,
	publisher ingest.StagePublisher,
) *DocumentHandler {
	return &DocumentHandler{
		docs:      docs,
		passages:  passages,
		terms:     terms,
		summaries: summaries,
		vectors:   vectors,
		publisher: publisher,
	}
}

// Upload 上传文档并触发摄取流水线
// @Summary 上传文档
// @Tags Documents
// @Accept json
// @Produce json
// @Param body body dto.UploadDocumentRequest true "文档内容"
// @Success 201 {object} dto.Response[dto.DocumentResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/documents [post]
func (h *DocumentHandler) Upload(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserID(c)

	var req dto.UploadDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if len(req.Content) > maxDocumentBytes {
		dto.BadRequest(c, "document too large")
		return
	}

	doc := entity.NewDocument(uuid.NewString(), userID, req.FileName, req.ContentType, int64(len(req.Content)), req.Content)
	if err := h.docs.Create(ctx, doc); err != nil {
		logger.Error(ctx, "failed to create document", err)
		dto.InternalError(c, "upload failed")
		return
	}

	// 入队第一阶段，失败时标记文档错误而非静默丢弃
	if _, err := h.publisher.PublishIngestStage(ctx, ingest.StageProcessDocument, userID, doc.ID); err != nil {
		logger.Error(ctx, "failed to enqueue ingest stage", err, "document_id", doc.ID)
		_ = h.docs.MarkError(ctx, doc.ID, "failed to enqueue processing")
		dto.InternalError(c, "upload accepted but processing could not be scheduled")
		return
	}

	if err := h.docs.UpdateStatus(ctx, doc.ID, entity.DocumentStatusProcessing); err != nil {
		logger.Warn(ctx, "failed to update document status", "error", err, "document_id", doc.ID)
	}
	doc.Status = entity.DocumentStatusProcessing

	dto.Created(c, dto.ToDocumentResponse(doc))
}

// List 文档列表，支持状态过滤与分页
// @Summary 文档列表
// @Tags Documents
// @Produce json
// @Success 200 {object} dto.Response[dto.DocumentListResponse]
// @Router /v1/documents [get]
func (h *DocumentHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserID(c)
	page := dto.BindPage(c)

	var filterReq dto.DocumentFilterRequest
	if err := c.ShouldBindQuery(&filterReq); err != nil {
		dto.BadRequest(c, "invalid query parameters: "+err.Error())
		return
	}

	var filter *repository.DocumentFilter
	if filterReq.Status != "" {
		filter = &repository.DocumentFilter{Status: entity.DocumentStatus(filterReq.Status)}
	}

	result, err := h.docs.ListByUser(ctx, userID, filter, repository.NewPagination(page.Page, page.PageSize))
	if err != nil {
		logger.Error(ctx, "failed to list documents", err)
		dto.InternalError(c, "failed to list documents")
		return
	}

	dto.SuccessWithPage(c, dto.ToDocumentListResponse(result.Items),
		dto.NewPageMeta(page.Page, page.PageSize, int(result.Total)))
}

// Get 获取单篇文档状态
// @Summary 文档详情
// @Tags Documents
// @Produce json
// @Param id path string true "文档 ID"
// @Success 200 {object} dto.Response[dto.DocumentResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/documents/{id} [get]
func (h *DocumentHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserID(c)
	id := dto.BindDocumentID(c)

	doc, err := h.docs.GetByID(ctx, userID, id)
	if err != nil {
		logger.Error(ctx, "failed to get document", err)
		dto.InternalError(c, "failed to get document")
		return
	}
	if doc == nil {
		dto.NotFound(c, "document not found")
		return
	}

	dto.Success(c, dto.ToDocumentResponse(doc))
}

// Delete 删除文档及其全部索引数据
// 先删向量索引再删关系数据：向量删除失败时保留可重试的完整记录
// @Summary 删除文档
// @Tags Documents
// @Param id path string true "文档 ID"
// @Success 204
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/documents/{id} [delete]
func (h *DocumentHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserID(c)
	id := dto.BindDocumentID(c)

	doc, err := h.docs.GetByID(ctx, userID, id)
	if err != nil {
		logger.Error(ctx, "failed to get document", err)
		dto.InternalError(c, "failed to delete document")
		return
	}
	if doc == nil {
		dto.NotFound(c, "document not found")
		return
	}

	if err := h.vectors.DeleteByDocument(ctx, userID, id); err != nil {
		logger.Error(ctx, "failed to delete document vectors", err, "document_id", id)
		dto.InternalError(c, "failed to delete document vectors")
		return
	}
	if err := h.terms.DeleteByDocument(ctx, userID, id); err != nil {
		logger.Error(ctx, "failed to delete term index", err, "document_id", id)
		dto.InternalError(c, "failed to delete document index")
		return
	}
	if err := h.summaries.DeleteByDocument(ctx, id); err != nil {
		logger.Error(ctx, "failed to delete document summary", err, "document_id", id)
		dto.InternalError(c, "failed to delete document summary")
		return
	}
	if err := h.passages.DeleteByDocument(ctx, id); err != nil {
		logger.Error(ctx, "failed to delete passages", err, "document_id", id)
		dto.InternalError(c, "failed to delete document passages")
		return
	}
	if err := h.docs.Delete(ctx, userID, id); err != nil {
		logger.Error(ctx, "failed to delete document", err, "document_id", id)
		dto.InternalError(c, "failed to delete document")
		return
	}

	dto.NoContent(c)
}
