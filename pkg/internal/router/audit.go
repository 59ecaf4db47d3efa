package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/filevault/pkg/internal/handle"
)

// RegisterAuditRoutes 注册审计日志路由.
func RegisterAuditRoutes(g *gin.RouterGroup) {
	g.GET("/logs", handle.ListAuditLogs)
}
