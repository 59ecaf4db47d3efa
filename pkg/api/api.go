// Package api 汇总对外 HTTP 接口的注册入口.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/filevault/pkg/configs"
	"github.com/yeisme/filevault/pkg/internal/router"
	"github.com/yeisme/filevault/pkg/middleware"
)

// RegisterRoutes 将全部业务路由注册到传入的 gin 引擎.
//   - /api/v1 下为认证后的业务接口
//   - /share 为匿名分享入口，认证中间件放行，这里单独套限流.
func RegisterRoutes(e *gin.Engine) *gin.Engine {
	cfg := configs.GetConfig()

	public := e.Group("")
	public.Use(middleware.RateLimitMiddleware(cfg.RateLimit))
	router.RegisterPublicShareRoutes(public)

	apiGroup := e.Group("/api/v1")
	router.RegisterAPIRoutes(apiGroup)

	return e
}
