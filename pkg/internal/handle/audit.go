package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/filevault/pkg/internal/service"
)

// ListAuditLogs 返回最近的审计日志，仅管理员可见.
func ListAuditLogs(c *gin.Context) {
	p := mustPrincipal(c)
	if p == nil {
		return
	}

	svc := service.NewAuditService(c.Request.Context())

	resp, err := svc.List(c.Request.Context(), p)
	if err != nil {
		writeServiceError(c, err)

		return
	}

	c.JSON(http.StatusOK, resp)
}
