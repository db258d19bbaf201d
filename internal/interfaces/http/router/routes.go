// Package router 提供 HTTP 路由配置
package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(v1 *gin.RouterGroup, h Handlers) {
	// 认证管理
	auth := v1.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.RefreshToken)
		auth.POST("/logout", h.Auth.Logout)
	}

	// 文档管理
	documents := v1.Group("/documents")
	{
		documents.POST("", h.Document.Upload)
		documents.GET("", h.Document.List)
		documents.GET("/:id", h.Document.Get)
		documents.DELETE("/:id", h.Document.Delete)
	}

	// 查询
	query := v1.Group("/query")
	{
		query.POST("", h.Query.Query)
		query.POST("/stream", h.Stream.QueryStream) // SSE
	}
}
