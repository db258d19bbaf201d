// Package handler 提供 HTTP 请求处理器
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/gin-gonic/gin"

	"ilka-rag-api/internal/application/stream"
	"ilka-rag-api/internal/config"
	"ilka-rag-api/internal/infrastructure/llm"
	"ilka-rag-api/internal/interfaces/http/dto"
	"ilka-rag-api/pkg/logger"
)

// StreamHandler SSE 流式查询处理器
type StreamHandler struct {
	cfg     *config.Config
	factory *llm.EinoFactory
}

// NewStreamHandler 创建流式查询处理器
func NewStreamHandler(cfg *config.Config, factory *llm.EinoFactory) *StreamHandler {
	return &StreamHandler{
		cfg:     cfg,
		factory: factory,
	}
}

// QueryStream 流式查询
// 仅支持 model-only 模式；输出按 thinking / thinking_complete / answer / done 分段
// @Summary 流式查询
// @Tags Query
// @Accept json
// @Produce text/event-stream
// @Param body body dto.QueryRequest true "查询内容"
// @Success 200 "SSE stream"
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/query/stream [post]
func (h *StreamHandler) QueryStream(c *gin.Context) {
	var req dto.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	if req.Mode != dto.QueryModeModelOnly {
		dto.BadRequest(c, "streaming only supports model-only mode")
		return
	}

	provider, err := resolveProvider(h.cfg, req.Provider)
	if err != nil {
		dto.BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	gen := llm.NewGenerator(h.factory, provider)
	reader, err := gen.GenerateStream(ctx, modelOnlySystemPrompt, req.Question, modelOnlyOptions(req.Temperature, req.MaxTokens))
	if err != nil {
		logger.Error(ctx, "failed to start model stream", err)
		dto.InternalError(c, "failed to start stream")
		return
	}
	defer reader.Close()

	// 设置 SSE 响应头
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Writer.Flush()

	sc := stream.NewScanner()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		chunk, err := reader.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				writeEvents(c, sc.Finish())
				return
			}
			logger.Error(ctx, "model stream failed", err)
			writeEvents(c, []stream.Event{stream.ErrorEvent(err)})
			return
		}

		writeEvents(c, sc.Feed(chunk))
	}
}

// writeEvents 按 SSE data 帧写出事件并立即刷新
func writeEvents(c *gin.Context, events []stream.Event) {
	for _, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		fmt.Fprintf(c.Writer, "data: %s\n\n", payload)
	}
	if len(events) > 0 {
		c.Writer.Flush()
	}
}
