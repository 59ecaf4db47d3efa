package handle

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/filevault/pkg/internal/identity"
	"github.com/yeisme/filevault/pkg/internal/service"
	"github.com/yeisme/filevault/pkg/internal/types"
	"github.com/yeisme/filevault/pkg/log"
	"github.com/yeisme/filevault/pkg/metrics"
	"github.com/yeisme/filevault/pkg/rule"
)

// CreatePublicShare 为文件创建公开分享链接.
func CreatePublicShare(c *gin.Context) {
	l := log.Logger()

	p := mustPrincipal(c)
	if p == nil {
		return
	}

	id, ok := fileIDParam(c)
	if !ok {
		return
	}

	req := types.CreatePublicShareRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})

		return
	}

	// bcrypt 只取前 72 字节，超长密码直接拒绝而不是静默截断
	if err := rule.ValidateVar(req.Password, "omitempty,max=72"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password too long"})

		return
	}

	// 必须为正数，上限 10 年，顺带挡掉 NaN/Inf
	if err := rule.ValidateVar(req.ExpiresInHours, "gt=0,lte=87600"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expires_in_hours out of range"})

		return
	}

	svc := service.NewPublicShareService(c.Request.Context())

	resp, err := svc.CreatePublicShare(c.Request.Context(), p, id, &req)
	if err != nil {
		writeServiceError(c, err)

		return
	}

	recordAudit(c, service.AuditActionShareCreate, &id, "")

	c.JSON(http.StatusCreated, resp)
}

// ListPublicShares 列出文件的公开分享.
func ListPublicShares(c *gin.Context) {
	p := mustPrincipal(c)
	if p == nil {
		return
	}

	id, ok := fileIDParam(c)
	if !ok {
		return
	}

	svc := service.NewPublicShareService(c.Request.Context())

	resp, err := svc.ListPublicShares(c.Request.Context(), p, id)
	if err != nil {
		writeServiceError(c, err)

		return
	}

	c.JSON(http.StatusOK, resp)
}

// RevokePublicShare 撤销公开分享.
func RevokePublicShare(c *gin.Context) {
	p := mustPrincipal(c)
	if p == nil {
		return
	}

	shareID, err := strconv.ParseUint(c.Param("shareId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid share id"})

		return
	}

	svc := service.NewPublicShareService(c.Request.Context())

	if err := svc.RevokePublicShare(c.Request.Context(), p, uint(shareID)); err != nil {
		writeServiceError(c, err)

		return
	}

	recordAudit(c, service.AuditActionShareRevoke, nil, "")

	c.JSON(http.StatusOK, gin.H{"message": "share revoked"})
}

// ResolvePublicShare 匿名查看分享信息（文件名、大小、是否需要密码）.
func ResolvePublicShare(c *gin.Context) {
	svc := service.NewPublicShareService(c.Request.Context())

	view, err := svc.Resolve(c.Request.Context(), c.Param("token"))
	if err != nil {
		writeServiceError(c, err)

		return
	}

	c.JSON(http.StatusOK, view)
}

// RedeemPublicShare 匿名兑换分享并下载文件内容.
// 密码取 POST body，GET 请求退回 query 参数.
func RedeemPublicShare(c *gin.Context) {
	password := c.Query("password")

	if c.Request.Method == http.MethodPost && c.Request.ContentLength > 0 {
		var req types.RedeemPublicShareRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})

			return
		}

		password = req.Password
	}

	svc := service.NewPublicShareService(c.Request.Context())

	share, f, err := svc.Redeem(c.Request.Context(), c.Param("token"), password)
	if err != nil {
		metrics.ShareRedemptions.WithLabelValues("error").Inc()
		writeServiceError(c, err)

		return
	}

	fileSvc := service.NewFileService(c.Request.Context())

	rc, err := fileSvc.OpenStored(c.Request.Context(), f)
	if err != nil {
		metrics.ShareRedemptions.WithLabelValues("error").Inc()
		log.Logger().Error().Err(err).Uint("share_id", share.ID).Msg("open shared object failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})

		return
	}
	defer func() { _ = rc.Close() }()

	metrics.ShareRedemptions.WithLabelValues("ok").Inc()

	// 兑换方未认证，审计以 anonymous 主体落库
	anon := &identity.Principal{SubjectID: "anonymous", Username: "anonymous"}
	service.NewAuditService(c.Request.Context()).
		Record(c.Request.Context(), anon, service.AuditActionShareRedeem, &f.ID, f.OriginalName)

	c.DataFromReader(http.StatusOK, f.Size, f.ContentType, rc, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", f.OriginalName),
	})
}
