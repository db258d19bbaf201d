// Package middleware 提供 HTTP 中间件
package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ilka-rag-api/internal/domain/repository"
	"ilka-rag-api/pkg/logger"
)

type rollbackOnlyError struct {
	status int
}

func (e rollbackOnlyError) Error() string {
	return fmt.Sprintf("rollback only: status=%d", e.status)
}

// DBTransaction 为每个写请求自动管理数据库事务。
//
//   - 请求级事务：整个请求的处理过程包裹在一个数据库事务中。
//   - 自动提交/回滚：HTTP 状态码 < 400 且无内部错误时提交，否则回滚。
//   - 流式接口豁免：SSE 等长连接接口不持有事务，避免耗尽连接池，
//     此类请求在 Handler 内部按需创建短事务。
func DBTransaction(tx repository.Transactor) gin.HandlerFunc {
	if tx == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		// 只读请求和流式接口不需要请求级事务
		if c.Request.Method == http.MethodGet || strings.HasSuffix(c.Request.URL.Path, "/stream") {
			c.Next()
			return
		}

		ctx := c.Request.Context()

		err := tx.WithTransaction(ctx, func(txCtx context.Context) error {
			// 将包含事务的 Context 注入 Gin，供后续 Handler 使用
			c.Request = c.Request.WithContext(txCtx)

			c.Next()

			// 业务返回错误状态码或 Gin 记录了错误时回滚
			status := c.Writer.Status()
			if status >= http.StatusBadRequest {
				return rollbackOnlyError{status: status}
			}
			if len(c.Errors) > 0 {
				return rollbackOnlyError{status: status}
			}
			return nil
		})

		if err == nil {
			return
		}

		// rollbackOnlyError 表示业务主动回滚，响应已由 Handler 写入
		var rbErr rollbackOnlyError
		if errors.As(err, &rbErr) {
			return
		}

		// 数据库层面的系统错误（提交失败、死锁等）
		logger.Error(ctx, "db transaction failed", err)
		if !c.Writer.Written() && c.Writer.Status() < http.StatusBadRequest {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"code":     http.StatusInternalServerError,
				"message":  "internal server error",
				"trace_id": c.GetString("trace_id"),
			})
		}
	}
}
