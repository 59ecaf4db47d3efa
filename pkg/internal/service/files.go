// Package service 实现文件、分享与审计的业务逻辑.
// 授权决策统一走 authz.Evaluate，service 将决策映射为哨兵错误，
// handle 层再映射为 HTTP 状态码.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	minio "github.com/minio/minio-go/v7"
	"gorm.io/gorm"

	"github.com/yeisme/filevault/pkg/configs"
	ctxPkg "github.com/yeisme/filevault/pkg/context"
	"github.com/yeisme/filevault/pkg/internal/authz"
	"github.com/yeisme/filevault/pkg/internal/identity"
	"github.com/yeisme/filevault/pkg/internal/model"
	"github.com/yeisme/filevault/pkg/internal/storage/db"
	"github.com/yeisme/filevault/pkg/internal/storage/mq"
	"github.com/yeisme/filevault/pkg/internal/storage/s3"
	"github.com/yeisme/filevault/pkg/internal/types"
	nlog "github.com/yeisme/filevault/pkg/log"
	"github.com/yeisme/filevault/pkg/queue"
)

// FileService 负责文件生命周期：上传、列表、内容访问与删除.
type FileService struct {
	s3Client *s3.Client
	dbClient *db.Client
	mqClient *mq.Client
}

// NewFileService 创建并返回一个新的 FileService 实例.
func NewFileService(c context.Context) *FileService {
	svc := &FileService{
		s3Client: ctxPkg.GetS3Client(c),
		dbClient: ctxPkg.GetDBClient(c),
		mqClient: ctxPkg.GetMQClient(c),
	}

	if svc.dbClient == nil {
		nlog.Logger().Warn().Msg("DB client not initialized, FileService features limited")
	}

	return svc
}

// decisionError 将授权决策映射为哨兵错误，Allow 返回 nil.
func decisionError(d authz.Decision) error {
	switch d {
	case authz.Allow:
		return nil
	case authz.StepUp:
		return ErrStepUpRequired
	case authz.NotFound:
		return ErrNotFound
	case authz.Locked:
		return ErrLocked
	default:
		return ErrDenied
	}
}

// loadResource 加载文件与授权所需的资源快照.
// 文件不存在时返回 Exists=false 的快照而非错误，由决策表决定对外表现.
func loadResource(gdb *gorm.DB, p *identity.Principal, fileID uint) (*model.File, authz.Resource, error) {
	var f model.File

	if err := gdb.First(&f, fileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, authz.Resource{}, nil
		}

		return nil, authz.Resource{}, fmt.Errorf("load file %d: %w", fileID, err)
	}

	res := authz.Resource{
		Exists:  true,
		OwnerID: f.OwnerID,
		Locked:  f.Locked,
	}

	if p != nil && f.OwnerID != p.SubjectID {
		var n int64
		if err := gdb.Model(&model.DirectShare{}).
			Where("file_id = ? AND user_id = ?", f.ID, p.SubjectID).
			Count(&n).Error; err != nil {
			return nil, authz.Resource{}, fmt.Errorf("check direct share: %w", err)
		}

		res.SharedWithActor = n > 0
	}

	return &f, res, nil
}

// fileInfo 转换为对外的 FileInfo 结构.
func fileInfo(f *model.File) types.FileInfo {
	return types.FileInfo{
		ID:           f.ID,
		OwnerID:      f.OwnerID,
		FileName:     f.FileName,
		OriginalName: f.OriginalName,
		Size:         f.Size,
		ContentType:  f.ContentType,
		Locked:       f.Locked,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

// storedFileName 生成存储名：毫秒时间戳前缀 + 原始文件名（去除路径）.
func storedFileName(now time.Time, originalName string) string {
	return fmt.Sprintf("%d-%s", now.UnixMilli(), filepath.Base(originalName))
}

// Upload 写入文件内容到对象存储并入库元数据.
func (fs *FileService) Upload(ctx context.Context, p *identity.Principal, originalName string, reader io.Reader, size int64, contentType string) (*types.UploadFileResponse, error) {
	if p == nil {
		return nil, ErrDenied
	}

	if originalName == "" || size < 0 {
		return nil, fmt.Errorf("%w: file is required", ErrInvalidRequest)
	}

	if fs.dbClient == nil || fs.s3Client == nil {
		return nil, errors.New("storage not initialized")
	}

	now := time.Now().UTC()

	bucket := configs.GetConfig().S3.DefaultBucket()
	storedName := storedFileName(now, originalName)

	if _, err := fs.s3Client.PutObject(ctx, bucket, storedName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	}); err != nil {
		return nil, fmt.Errorf("store object %s: %w", storedName, err)
	}

	f := &model.File{
		OwnerID:      p.SubjectID,
		FileName:     storedName,
		OriginalName: filepath.Base(originalName),
		Size:         size,
		ContentType:  contentType,
	}

	if err := fs.dbClient.GetDB().WithContext(ctx).Create(f).Error; err != nil {
		// 元数据入库失败时回收已写入的对象，避免孤儿对象
		_ = fs.s3Client.RemoveObject(ctx, bucket, storedName, minio.RemoveObjectOptions{})

		return nil, fmt.Errorf("create file record: %w", err)
	}

	fs.publishFileStored(f)

	return &types.UploadFileResponse{File: fileInfo(f)}, nil
}

// List 返回当前用户可见的文件：自有文件 + 被定向分享的文件.
func (fs *FileService) List(ctx context.Context, p *identity.Principal) (*types.ListFilesResponse, error) {
	if p == nil {
		return nil, ErrDenied
	}

	if fs.dbClient == nil {
		return nil, errors.New("db not initialized")
	}

	var files []model.File
	if err := fs.dbClient.GetDB().WithContext(ctx).
		Where("owner_id = ? OR id IN (?)", p.SubjectID,
			fs.dbClient.GetDB().Model(&model.DirectShare{}).
				Select("file_id").Where("user_id = ?", p.SubjectID)).
		Order("created_at DESC").Find(&files).Error; err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}

	out := make([]types.FileInfo, 0, len(files))
	for i := range files {
		out = append(out, fileInfo(&files[i]))
	}

	return &types.ListFilesResponse{Files: out, Total: len(out)}, nil
}

// ListAll 管理视图：返回全部用户的文件.
func (fs *FileService) ListAll(ctx context.Context, p *identity.Principal) (*types.ListAllFilesResponse, error) {
	if err := decisionError(authz.Evaluate(p, authz.ActionListAllFiles, authz.Resource{})); err != nil {
		return nil, err
	}

	if fs.dbClient == nil {
		return nil, errors.New("db not initialized")
	}

	var files []model.File
	if err := fs.dbClient.GetDB().WithContext(ctx).
		Order("created_at DESC").Find(&files).Error; err != nil {
		return nil, fmt.Errorf("list all files: %w", err)
	}

	out := make([]types.FileInfo, 0, len(files))
	for i := range files {
		out = append(out, fileInfo(&files[i]))
	}

	return &types.ListAllFilesResponse{Files: out, Total: len(out)}, nil
}

// Get 返回单个文件的元数据.
func (fs *FileService) Get(ctx context.Context, p *identity.Principal, fileID uint) (*types.FileInfo, error) {
	if fs.dbClient == nil {
		return nil, errors.New("db not initialized")
	}

	f, res, err := loadResource(fs.dbClient.GetDB().WithContext(ctx), p, fileID)
	if err != nil {
		return nil, err
	}

	if err := decisionError(authz.Evaluate(p, authz.ActionViewMetadata, res)); err != nil {
		return nil, err
	}

	info := fileInfo(f)

	return &info, nil
}

// Authorize 仅执行授权判定并返回文件记录，供内容访问前置检查.
func (fs *FileService) Authorize(ctx context.Context, p *identity.Principal, fileID uint, action authz.Action) (*model.File, error) {
	if fs.dbClient == nil {
		return nil, errors.New("db not initialized")
	}

	f, res, err := loadResource(fs.dbClient.GetDB().WithContext(ctx), p, fileID)
	if err != nil {
		return nil, err
	}

	if err := decisionError(authz.Evaluate(p, action, res)); err != nil {
		return nil, err
	}

	return f, nil
}

// OpenContent 授权通过后打开文件内容流，调用方负责关闭.
func (fs *FileService) OpenContent(ctx context.Context, p *identity.Principal, fileID uint, action authz.Action) (*model.File, io.ReadCloser, error) {
	f, err := fs.Authorize(ctx, p, fileID, action)
	if err != nil {
		return nil, nil, err
	}

	rc, err := fs.OpenStored(ctx, f)
	if err != nil {
		return nil, nil, err
	}

	return f, rc, nil
}

// OpenStored 按存储名打开对象内容流.
func (fs *FileService) OpenStored(ctx context.Context, f *model.File) (io.ReadCloser, error) {
	if fs.s3Client == nil {
		return nil, errors.New("s3 not initialized")
	}

	bucket := configs.GetConfig().S3.DefaultBucket()

	obj, err := fs.s3Client.GetObject(ctx, bucket, f.FileName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("open object %s: %w", f.FileName, err)
	}

	return obj, nil
}

// Delete 删除文件：仅属主可删，锁定文件与存在未过期公开分享的文件拒绝删除.
// 元数据、定向分享与公开分享行在同一事务内删除，对象存储清理为尽力而为.
func (fs *FileService) Delete(ctx context.Context, p *identity.Principal, fileID uint) error {
	if fs.dbClient == nil {
		return errors.New("db not initialized")
	}

	gdb := fs.dbClient.GetDB().WithContext(ctx)

	f, res, err := loadResource(gdb, p, fileID)
	if err != nil {
		return err
	}

	if err := decisionError(authz.Evaluate(p, authz.ActionDelete, res)); err != nil {
		return err
	}

	now := time.Now().UTC()

	txErr := gdb.Transaction(func(tx *gorm.DB) error {
		if f.Locked {
			return ErrLocked
		}

		var active int64
		if err := tx.Model(&model.PublicShare{}).
			Where("file_id = ? AND (expires_at IS NULL OR expires_at > ?)", f.ID, now).
			Count(&active).Error; err != nil {
			return fmt.Errorf("count active shares: %w", err)
		}

		if active > 0 {
			return ErrHasActiveShares
		}

		result := tx.Where("id = ? AND owner_id = ?", f.ID, p.SubjectID).Delete(&model.File{})
		if result.Error != nil {
			return fmt.Errorf("delete file: %w", result.Error)
		}

		if result.RowsAffected == 0 {
			return ErrNotFound
		}

		if err := tx.Where("file_id = ?", f.ID).Delete(&model.DirectShare{}).Error; err != nil {
			return fmt.Errorf("delete direct shares: %w", err)
		}

		if err := tx.Where("file_id = ?", f.ID).Delete(&model.PublicShare{}).Error; err != nil {
			return fmt.Errorf("delete public shares: %w", err)
		}

		return nil
	})
	if txErr != nil {
		return txErr
	}

	// 对象清理失败不回滚，留给后台任务兜底
	if fs.s3Client != nil {
		bucket := configs.GetConfig().S3.DefaultBucket()
		if err := fs.s3Client.RemoveObject(ctx, bucket, f.FileName, minio.RemoveObjectOptions{}); err != nil {
			nlog.Logger().Warn().Err(err).Str("object", f.FileName).Msg("remove object failed")
		}
	}

	fs.publishFileDeleted(f, p.SubjectID)

	return nil
}

// ---- 事件发布（尽力而为） ----

func fileRef(f *model.File) queue.FileRef {
	return queue.FileRef{
		FileID:      f.ID,
		Bucket:      configs.GetConfig().S3.DefaultBucket(),
		FileName:    f.FileName,
		OwnerID:     f.OwnerID,
		Size:        f.Size,
		ContentType: f.ContentType,
	}
}

func (fs *FileService) publishFileStored(f *model.File) {
	ev := configs.GetConfig().Events

	pub := fs.mqClient.Publisher()
	if pub == nil || !ev.Enabled || !ev.File.Stored {
		return
	}

	if err := queue.PublishFileStored(pub, queue.FileStoredPayload{
		File:         fileRef(f),
		OriginalName: f.OriginalName,
	}, queue.WithProducer(configs.AppName)); err != nil {
		nlog.Logger().Warn().Err(err).Msg("publish file stored event failed")
	}
}

func (fs *FileService) publishFileDeleted(f *model.File, deletedBy string) {
	ev := configs.GetConfig().Events

	pub := fs.mqClient.Publisher()
	if pub == nil || !ev.Enabled || !ev.File.Deleted {
		return
	}

	if err := queue.PublishFileDeleted(pub, queue.FileDeletedPayload{
		File:      fileRef(f),
		DeletedBy: deletedBy,
	}, queue.WithProducer(configs.AppName)); err != nil {
		nlog.Logger().Warn().Err(err).Msg("publish file deleted event failed")
	}
}
