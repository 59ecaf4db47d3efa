package handle

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/filevault/pkg/internal/authz"
	"github.com/yeisme/filevault/pkg/internal/service"
	"github.com/yeisme/filevault/pkg/log"
	"github.com/yeisme/filevault/pkg/metrics"
)

// UploadFile 接收 multipart 上传并写入对象存储.
func UploadFile(c *gin.Context) {
	l := log.Logger()

	p := mustPrincipal(c)
	if p == nil {
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		l.Warn().Err(err).Msg("missing upload file")
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})

		return
	}

	src, err := fh.Open()
	if err != nil {
		l.Warn().Err(err).Msg("open upload file failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})

		return
	}
	defer func() { _ = src.Close() }()

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	svc := service.NewFileService(c.Request.Context())

	resp, err := svc.Upload(c.Request.Context(), p, fh.Filename, src, fh.Size, contentType)
	if err != nil {
		metrics.FileOperations.WithLabelValues("upload", "error").Inc()
		writeServiceError(c, err)

		return
	}

	metrics.FileOperations.WithLabelValues("upload", "ok").Inc()
	recordAudit(c, service.AuditActionUpload, &resp.File.ID, resp.File.OriginalName)

	c.JSON(http.StatusCreated, resp)
}

// ListFiles 返回当前用户可见的文件列表.
func ListFiles(c *gin.Context) {
	p := mustPrincipal(c)
	if p == nil {
		return
	}

	svc := service.NewFileService(c.Request.Context())

	resp, err := svc.List(c.Request.Context(), p)
	if err != nil {
		writeServiceError(c, err)

		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListAllFiles 管理视图，返回全部文件.
func ListAllFiles(c *gin.Context) {
	p := mustPrincipal(c)
	if p == nil {
		return
	}

	svc := service.NewFileService(c.Request.Context())

	resp, err := svc.ListAll(c.Request.Context(), p)
	if err != nil {
		writeServiceError(c, err)

		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetFileMeta 返回单个文件的元数据.
func GetFileMeta(c *gin.Context) {
	p := mustPrincipal(c)
	if p == nil {
		return
	}

	id, ok := fileIDParam(c)
	if !ok {
		return
	}

	svc := service.NewFileService(c.Request.Context())

	info, err := svc.Get(c.Request.Context(), p, id)
	if err != nil {
		writeServiceError(c, err)

		return
	}

	c.JSON(http.StatusOK, info)
}

// ViewFile 以内联方式返回文件内容.
func ViewFile(c *gin.Context) {
	streamFile(c, authz.ActionViewContent, "inline", service.AuditActionView)
}

// DownloadFile 以附件方式返回文件内容.
func DownloadFile(c *gin.Context) {
	streamFile(c, authz.ActionDownload, "attachment", service.AuditActionDownload)
}

func streamFile(c *gin.Context, action authz.Action, disposition, auditAction string) {
	p := mustPrincipal(c)
	if p == nil {
		return
	}

	id, ok := fileIDParam(c)
	if !ok {
		return
	}

	svc := service.NewFileService(c.Request.Context())

	f, rc, err := svc.OpenContent(c.Request.Context(), p, id, action)
	if err != nil {
		metrics.FileOperations.WithLabelValues(action.String(), "error").Inc()
		writeServiceError(c, err)

		return
	}
	defer func() { _ = rc.Close() }()

	metrics.FileOperations.WithLabelValues(action.String(), "ok").Inc()
	recordAudit(c, auditAction, &f.ID, f.OriginalName)

	c.DataFromReader(http.StatusOK, f.Size, f.ContentType, rc, map[string]string{
		"Content-Disposition": fmt.Sprintf("%s; filename=%q", disposition, f.OriginalName),
	})
}

// DeleteFile 删除文件及其分享记录.
func DeleteFile(c *gin.Context) {
	p := mustPrincipal(c)
	if p == nil {
		return
	}

	id, ok := fileIDParam(c)
	if !ok {
		return
	}

	svc := service.NewFileService(c.Request.Context())

	// 先取元数据留作审计，删除成功后记录才有文件名可写
	meta, err := svc.Get(c.Request.Context(), p, id)
	if err != nil {
		writeServiceError(c, err)

		return
	}

	if err := svc.Delete(c.Request.Context(), p, id); err != nil {
		metrics.FileOperations.WithLabelValues("delete", "error").Inc()
		writeServiceError(c, err)

		return
	}

	metrics.FileOperations.WithLabelValues("delete", "ok").Inc()
	recordAudit(c, service.AuditActionDelete, &id, meta.OriginalName)

	c.JSON(http.StatusOK, gin.H{"message": "file deleted"})
}

// LockFile 锁定文件.
func LockFile(c *gin.Context) {
	setLock(c, true, service.AuditActionLock)
}

// UnlockFile 解锁文件.
func UnlockFile(c *gin.Context) {
	setLock(c, false, service.AuditActionUnlock)
}

func setLock(c *gin.Context, locked bool, auditAction string) {
	p := mustPrincipal(c)
	if p == nil {
		return
	}

	id, ok := fileIDParam(c)
	if !ok {
		return
	}

	svc := service.NewFileService(c.Request.Context())

	info, err := svc.SetLock(c.Request.Context(), p, id, locked)
	if err != nil {
		writeServiceError(c, err)

		return
	}

	recordAudit(c, auditAction, &info.ID, info.OriginalName)

	c.JSON(http.StatusOK, info)
}
