package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/filevault/pkg/internal/service"
	"github.com/yeisme/filevault/pkg/internal/types"
	"github.com/yeisme/filevault/pkg/log"
)

// CreateDirectShare 把文件分享给平台内指定用户.
func CreateDirectShare(c *gin.Context) {
	l := log.Logger()

	p := mustPrincipal(c)
	if p == nil {
		return
	}

	id, ok := fileIDParam(c)
	if !ok {
		return
	}

	var req types.CreateDirectShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})

		return
	}

	svc := service.NewShareService(c.Request.Context())

	info, err := svc.CreateDirectShare(c.Request.Context(), p, id, req.UserID)
	if err != nil {
		writeServiceError(c, err)

		return
	}

	recordAudit(c, service.AuditActionShareCreate, &id, "")

	c.JSON(http.StatusCreated, info)
}

// ListDirectShares 列出文件的定向分享.
func ListDirectShares(c *gin.Context) {
	p := mustPrincipal(c)
	if p == nil {
		return
	}

	id, ok := fileIDParam(c)
	if !ok {
		return
	}

	svc := service.NewShareService(c.Request.Context())

	resp, err := svc.ListDirectShares(c.Request.Context(), p, id)
	if err != nil {
		writeServiceError(c, err)

		return
	}

	c.JSON(http.StatusOK, resp)
}

// RemoveDirectShare 取消对指定用户的分享.
func RemoveDirectShare(c *gin.Context) {
	p := mustPrincipal(c)
	if p == nil {
		return
	}

	id, ok := fileIDParam(c)
	if !ok {
		return
	}

	userID := c.Param("userId")

	svc := service.NewShareService(c.Request.Context())

	if err := svc.RemoveDirectShare(c.Request.Context(), p, id, userID); err != nil {
		writeServiceError(c, err)

		return
	}

	recordAudit(c, service.AuditActionShareRevoke, &id, "")

	c.JSON(http.StatusOK, gin.H{"message": "share removed"})
}
