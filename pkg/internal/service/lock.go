package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yeisme/filevault/pkg/configs"
	"github.com/yeisme/filevault/pkg/internal/authz"
	"github.com/yeisme/filevault/pkg/internal/identity"
	"github.com/yeisme/filevault/pkg/internal/model"
	"github.com/yeisme/filevault/pkg/internal/types"
	nlog "github.com/yeisme/filevault/pkg/log"
	"github.com/yeisme/filevault/pkg/queue"
)

// SetLock 切换文件锁状态.
// 状态变更通过条件 UPDATE 实现：WHERE 携带期望的当前状态，
// 并发竞争或重复操作只会有一方命中，未命中返回 ErrConflict.
func (fs *FileService) SetLock(ctx context.Context, p *identity.Principal, fileID uint, locked bool) (*types.FileInfo, error) {
	if fs.dbClient == nil {
		return nil, errors.New("db not initialized")
	}

	gdb := fs.dbClient.GetDB().WithContext(ctx)

	f, res, err := loadResource(gdb, p, fileID)
	if err != nil {
		return nil, err
	}

	action := authz.ActionLock
	if !locked {
		action = authz.ActionUnlock
	}

	if err := decisionError(authz.Evaluate(p, action, res)); err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	result := gdb.Model(&model.File{}).
		Where("id = ? AND locked = ?", fileID, !locked).
		Updates(map[string]any{"locked": locked, "updated_at": now})
	if result.Error != nil {
		return nil, fmt.Errorf("update lock state: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		// 已处于目标状态（或并发方先到），视为状态冲突
		return nil, ErrConflict
	}

	f.Locked = locked
	f.UpdatedAt = now

	fs.publishLockChanged(f, p.SubjectID)

	info := fileInfo(f)

	return &info, nil
}

func (fs *FileService) publishLockChanged(f *model.File, changedBy string) {
	ev := configs.GetConfig().Events

	pub := fs.mqClient.Publisher()
	if pub == nil || !ev.Enabled || !ev.File.LockChanged {
		return
	}

	if err := queue.PublishFileLockChanged(pub, queue.FileLockChangedPayload{
		File:      fileRef(f),
		Locked:    f.Locked,
		ChangedBy: changedBy,
	}, queue.WithProducer(configs.AppName)); err != nil {
		nlog.Logger().Warn().Err(err).Msg("publish lock changed event failed")
	}
}
