// Package handle 提供 HTTP 请求处理器实现.
// 处理器只做三件事：取主体、调 service、把哨兵错误映射为状态码，
// 业务规则全部留在 service 层.
package handle

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/filevault/pkg/internal/identity"
	"github.com/yeisme/filevault/pkg/internal/service"
	"github.com/yeisme/filevault/pkg/log"
)

// principal 从请求上下文取出已认证主体，未认证返回 nil.
func principal(c *gin.Context) *identity.Principal {
	return identity.FromContext(c.Request.Context())
}

// mustPrincipal 取主体，缺失时写 401 并返回 nil，调用方应直接 return.
func mustPrincipal(c *gin.Context) *identity.Principal {
	p := principal(c)
	if p == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}

	return p
}

// fileIDParam 解析路径参数中的文件 ID.
func fileIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file id"})

		return 0, false
	}

	return uint(id), true
}

// writeServiceError 将 service 哨兵错误映射为 HTTP 响应.
// 未知错误统一 500，不向客户端泄露内部细节.
func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrStepUpRequired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "OTP required"})
	case errors.Is(err, service.ErrWrongPassword):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid password"})
	case errors.Is(err, service.ErrLocked):
		c.JSON(http.StatusForbidden, gin.H{"error": "file is locked"})
	case errors.Is(err, service.ErrDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, service.ErrTokenNotFound):
		// 面向匿名访问者的措辞，不暴露"文件是否存在"
		c.JSON(http.StatusNotFound, gin.H{"error": "invalid link"})
	case errors.Is(err, service.ErrHasActiveShares):
		c.JSON(http.StatusConflict, gin.H{"error": "file has active public shares"})
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "state conflict"})
	case errors.Is(err, service.ErrTokenExpired):
		c.JSON(http.StatusGone, gin.H{"error": "share link expired"})
	default:
		log.Logger().Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// recordAudit 旁路写审计，任何失败都不影响响应.
func recordAudit(c *gin.Context, action string, fileID *uint, fileName string) {
	svc := service.NewAuditService(c.Request.Context())
	svc.Record(c.Request.Context(), principal(c), action, fileID, fileName)
}
