package service

import (
	"context"
	crand "crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid"

	"github.com/yeisme/filevault/pkg/configs"
	ctxPkg "github.com/yeisme/filevault/pkg/context"
	"github.com/yeisme/filevault/pkg/internal/identity"
	"github.com/yeisme/filevault/pkg/internal/model"
	"github.com/yeisme/filevault/pkg/internal/storage/db"
	"github.com/yeisme/filevault/pkg/internal/storage/mq"
	"github.com/yeisme/filevault/pkg/internal/types"
	nlog "github.com/yeisme/filevault/pkg/log"
	"github.com/yeisme/filevault/pkg/queue"
)

// auditListLimit 审计查询单次返回的最大条数.
const auditListLimit = 500

// 审计动作名，落库与事件载荷共用.
const (
	AuditActionUpload      = "file.upload"
	AuditActionDownload    = "file.download"
	AuditActionView        = "file.view"
	AuditActionDelete      = "file.delete"
	AuditActionLock        = "file.lock"
	AuditActionUnlock      = "file.unlock"
	AuditActionShareCreate = "share.create"
	AuditActionShareRevoke = "share.revoke"
	AuditActionShareRedeem = "share.redeem"
)

var (
	ulidMu      sync.Mutex
	ulidEntropy = ulid.Monotonic(crand.Reader, 0)
)

// newAuditID 生成单调递增的 ULID，天然按时间排序.
func newAuditID(now time.Time) string {
	ulidMu.Lock()
	defer ulidMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(now), ulidEntropy).String()
}

// AuditService 记录与查询操作审计日志.
type AuditService struct {
	dbClient *db.Client
	mqClient *mq.Client
}

// NewAuditService 创建并返回一个新的 AuditService 实例.
func NewAuditService(c context.Context) *AuditService {
	svc := &AuditService{
		dbClient: ctxPkg.GetDBClient(c),
		mqClient: ctxPkg.GetMQClient(c),
	}

	if svc.dbClient == nil {
		nlog.Logger().Warn().Msg("DB client not initialized, AuditService features limited")
	}

	return svc
}

// Record 写入一条审计日志.
// 审计是尽力而为的旁路：任何失败只记日志，绝不影响主操作的结果.
func (s *AuditService) Record(ctx context.Context, p *identity.Principal, action string, fileID *uint, fileName string) {
	if s.dbClient == nil || p == nil {
		return
	}

	now := time.Now().UTC()

	entry := model.AuditLog{
		ID:       newAuditID(now),
		UserID:   p.SubjectID,
		Username: p.Username,
		Action:   action,
		FileID:   fileID,
		FileName: fileName,
	}

	if err := s.dbClient.GetDB().WithContext(ctx).Create(&entry).Error; err != nil {
		nlog.Logger().Warn().Err(err).
			Str("action", action).
			Str("user_id", p.SubjectID).
			Msg("record audit log failed")

		return
	}

	s.publishAuditRecorded(&entry)
}

// List 查询最近的审计日志，仅 workspace_admin / platform_super 可见.
func (s *AuditService) List(ctx context.Context, p *identity.Principal) (*types.ListAuditLogsResponse, error) {
	if p == nil || (!p.IsAdmin() && !p.IsSuper()) {
		return nil, ErrDenied
	}

	if s.dbClient == nil {
		return nil, errors.New("db not initialized")
	}

	var logs []model.AuditLog
	if err := s.dbClient.GetDB().WithContext(ctx).
		Order("created_at DESC").
		Limit(auditListLimit).
		Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}

	out := make([]types.AuditEntry, 0, len(logs))
	for _, l := range logs {
		out = append(out, types.AuditEntry{
			ID:        l.ID,
			UserID:    l.UserID,
			Username:  l.Username,
			Action:    l.Action,
			FileID:    l.FileID,
			FileName:  l.FileName,
			CreatedAt: l.CreatedAt,
		})
	}

	return &types.ListAuditLogsResponse{Logs: out, Total: len(out)}, nil
}

// Prune 删除早于保留期的审计日志，返回删除数量.
func (s *AuditService) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if s.dbClient == nil {
		return 0, errors.New("db not initialized")
	}

	cutoff := time.Now().UTC().Add(-olderThan)

	result := s.dbClient.GetDB().WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&model.AuditLog{})
	if result.Error != nil {
		return 0, fmt.Errorf("prune audit logs: %w", result.Error)
	}

	return result.RowsAffected, nil
}

func (s *AuditService) publishAuditRecorded(entry *model.AuditLog) {
	ev := configs.GetConfig().Events

	pub := s.mqClient.Publisher()
	if pub == nil || !ev.Enabled || !ev.Audit.Recorded {
		return
	}

	if err := queue.PublishAuditRecorded(pub, queue.AuditRecordedPayload{
		AuditID:  entry.ID,
		UserID:   entry.UserID,
		Username: entry.Username,
		Action:   entry.Action,
		FileID:   entry.FileID,
		FileName: entry.FileName,
	}, queue.WithProducer(configs.AppName)); err != nil {
		nlog.Logger().Warn().Err(err).Msg("publish audit recorded event failed")
	}
}
