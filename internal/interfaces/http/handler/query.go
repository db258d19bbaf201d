// Package handler 提供 HTTP 请求处理器
package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"ilka-rag-api/internal/application/method"
	"ilka-rag-api/internal/application/query"
	"ilka-rag-api/internal/application/stream"
	"ilka-rag-api/internal/config"
	"ilka-rag-api/internal/domain/entity"
	"ilka-rag-api/internal/infrastructure/llm"
	"ilka-rag-api/internal/interfaces/http/dto"
	"ilka-rag-api/internal/interfaces/http/middleware"
	"ilka-rag-api/pkg/logger"
)

// QueryHandler 查询处理器
type QueryHandler struct {
	cfg      *config.Config
	analyzer *query.Analyzer
	router   *query.Router
	engine   *method.Engine
	factory  *llm.EinoFactory
}

// NewQueryHandler 创建查询处理器
func NewQueryHandler(cfg *config.Config, analyzer *query.Analyzer, router *query.Router, engine *method.Engine, factory *llm.EinoFactory) *QueryHandler {
	return &QueryHandler{
		cfg:      cfg,
		analyzer: analyzer,
		router:   router,
		engine:   engine,
		factory:  factory,
	}
}

// Query 提交查询
// model-only 模式绕过检索直连模型；否则分析问题、路由检索方法并并发执行
// @Summary 提交查询
// @Tags Query
// @Accept json
// @Produce json
// @Param body body dto.QueryRequest true "查询内容"
// @Success 200 {object} dto.Response[dto.QueryResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/query [post]
func (h *QueryHandler) Query(c *gin.Context) {
	var req dto.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	ctx := logger.WithContext(c.Request.Context(), logger.QueryIDKey, uuid.NewString())
	userID := middleware.GetUserID(c)
	start := time.Now()

	if req.Mode == dto.QueryModeModelOnly {
		provider, err := resolveProvider(h.cfg, req.Provider)
		if err != nil {
			dto.BadRequest(c, err.Error())
			return
		}

		gen := llm.NewGenerator(h.factory, provider)
		text, err := gen.Generate(ctx, modelOnlySystemPrompt, req.Question, modelOnlyOptions(req.Temperature, req.MaxTokens))
		if err != nil {
			logger.Error(ctx, "model-only generation failed", err)
			dto.InternalError(c, "generation failed")
			return
		}

		thinking, answer := splitSections(text)
		dto.Success(c, &dto.ModelOnlyResponse{
			Question:  req.Question,
			Thinking:  thinking,
			Answer:    answer,
			LatencyMs: time.Since(start).Milliseconds(),
		})
		return
	}

	analysis, err := h.analyzer.Analyze(ctx, req.Question)
	if err != nil {
		logger.Error(ctx, "query analysis failed", err)
		dto.InternalError(c, "query analysis failed")
		return
	}
	if req.DocumentID != "" {
		analysis.Scope = entity.ScopeSpecificDocument
		analysis.TargetDocument = req.DocumentID
	}

	methods, badName := req.ParseMethods()
	if badName != "" {
		dto.BadRequest(c, "unknown retrieval method: "+badName)
		return
	}
	explicit := len(methods) > 0
	if !explicit {
		methods = h.router.Route(ctx, analysis)
	}

	result := h.engine.Execute(ctx, &method.Request{
		UserID:   userID,
		Query:    req.Question,
		Analysis: analysis,
	}, methods, explicit)

	dto.Success(c, dto.ToQueryResponse(req.Question, analysis, methods, result, time.Since(start).Milliseconds()))
}

// splitSections 用扫描器把完整输出拆为思考与答案两段
func splitSections(text string) (thinking, answer string) {
	sc := stream.NewScanner()
	events := append(sc.Feed(text), sc.Finish()...)
	for _, ev := range events {
		switch ev.Type {
		case stream.EventThinkingComplete:
			thinking = ev.Text
		case stream.EventAnswer:
			answer += ev.Text
		}
	}
	return thinking, answer
}
