package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	ctxPkg "github.com/yeisme/filevault/pkg/context"
	"github.com/yeisme/filevault/pkg/internal/identity"
	"github.com/yeisme/filevault/pkg/internal/model"
	"github.com/yeisme/filevault/pkg/internal/storage/db"
	"github.com/yeisme/filevault/pkg/internal/types"
	nlog "github.com/yeisme/filevault/pkg/log"
)

// ShareService 负责定向分享：把文件分享给平台内指定用户.
type ShareService struct {
	dbClient *db.Client
}

// NewShareService 创建并返回一个新的 ShareService 实例.
func NewShareService(c context.Context) *ShareService {
	svc := &ShareService{
		dbClient: ctxPkg.GetDBClient(c),
	}

	if svc.dbClient == nil {
		nlog.Logger().Warn().Msg("DB client not initialized, ShareService features limited")
	}

	return svc
}

// loadOwnedFile 加载文件并要求 p 为属主，其他人一律 ErrDenied，
// 文件不存在返回 ErrNotFound.
func loadOwnedFile(gdb *gorm.DB, p *identity.Principal, fileID uint) (*model.File, error) {
	if p == nil {
		return nil, ErrDenied
	}

	var f model.File

	if err := gdb.First(&f, fileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("load file %d: %w", fileID, err)
	}

	if f.OwnerID != p.SubjectID {
		return nil, ErrDenied
	}

	return &f, nil
}

// CreateDirectShare 把文件分享给指定用户，重复分享幂等.
func (s *ShareService) CreateDirectShare(ctx context.Context, p *identity.Principal, fileID uint, userID string) (*types.DirectShareInfo, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidRequest)
	}

	if s.dbClient == nil {
		return nil, errors.New("db not initialized")
	}

	gdb := s.dbClient.GetDB().WithContext(ctx)

	f, err := loadOwnedFile(gdb, p, fileID)
	if err != nil {
		return nil, err
	}

	if userID == p.SubjectID {
		return nil, fmt.Errorf("%w: cannot share with yourself", ErrInvalidRequest)
	}

	// 锁定中的文件不允许新建分享
	if f.Locked {
		return nil, ErrLocked
	}

	share := model.DirectShare{FileID: f.ID, UserID: userID}
	if err := gdb.Where("file_id = ? AND user_id = ?", f.ID, userID).
		FirstOrCreate(&share).Error; err != nil {
		return nil, fmt.Errorf("create direct share: %w", err)
	}

	return &types.DirectShareInfo{
		ID:        share.ID,
		FileID:    share.FileID,
		UserID:    share.UserID,
		CreatedAt: share.CreatedAt,
	}, nil
}

// ListDirectShares 列出文件的定向分享（仅属主可见）.
func (s *ShareService) ListDirectShares(ctx context.Context, p *identity.Principal, fileID uint) (*types.ListDirectSharesResponse, error) {
	if s.dbClient == nil {
		return nil, errors.New("db not initialized")
	}

	gdb := s.dbClient.GetDB().WithContext(ctx)

	f, err := loadOwnedFile(gdb, p, fileID)
	if err != nil {
		return nil, err
	}

	var shares []model.DirectShare
	if err := gdb.Where("file_id = ?", f.ID).
		Order("created_at ASC").Find(&shares).Error; err != nil {
		return nil, fmt.Errorf("list direct shares: %w", err)
	}

	out := make([]types.DirectShareInfo, 0, len(shares))
	for _, sh := range shares {
		out = append(out, types.DirectShareInfo{
			ID:        sh.ID,
			FileID:    sh.FileID,
			UserID:    sh.UserID,
			CreatedAt: sh.CreatedAt,
		})
	}

	return &types.ListDirectSharesResponse{Shares: out}, nil
}

// RemoveDirectShare 移除对指定用户的分享（仅属主可操作）.
func (s *ShareService) RemoveDirectShare(ctx context.Context, p *identity.Principal, fileID uint, userID string) error {
	if s.dbClient == nil {
		return errors.New("db not initialized")
	}

	gdb := s.dbClient.GetDB().WithContext(ctx)

	f, err := loadOwnedFile(gdb, p, fileID)
	if err != nil {
		return err
	}

	result := gdb.Where("file_id = ? AND user_id = ?", f.ID, userID).
		Delete(&model.DirectShare{})
	if result.Error != nil {
		return fmt.Errorf("remove direct share: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
