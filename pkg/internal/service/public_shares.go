package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/yeisme/filevault/pkg/configs"
	ctxPkg "github.com/yeisme/filevault/pkg/context"
	"github.com/yeisme/filevault/pkg/internal/authz"
	"github.com/yeisme/filevault/pkg/internal/identity"
	"github.com/yeisme/filevault/pkg/internal/model"
	"github.com/yeisme/filevault/pkg/internal/storage/db"
	"github.com/yeisme/filevault/pkg/internal/storage/kv"
	"github.com/yeisme/filevault/pkg/internal/storage/mq"
	"github.com/yeisme/filevault/pkg/internal/types"
	nlog "github.com/yeisme/filevault/pkg/log"
	"github.com/yeisme/filevault/pkg/queue"
)

// 缓存 TTL 策略常量：集中管理，避免魔数.
const (
	shareCacheDefaultTTL = 10 * time.Minute // 未设置过期时间时的默认缓存时长
	shareCacheMaxTTL     = 30 * time.Minute // 单条分享缓存的最长缓存时间上限
)

const pshareKeyPrefix = "pshare:v1:"

// shareLoadGroup 合并同一 token 的并发回源，避免缓存击穿.
var shareLoadGroup singleflight.Group

// PublicShareService 负责公开分享链接：创建、撤销与匿名兑换.
type PublicShareService struct {
	dbClient *db.Client
	kvClient *kv.Client
	mqClient *mq.Client
}

// NewPublicShareService 创建并返回一个新的 PublicShareService 实例.
func NewPublicShareService(c context.Context) *PublicShareService {
	svc := &PublicShareService{
		dbClient: ctxPkg.GetDBClient(c),
		kvClient: ctxPkg.GetKVClient(c),
		mqClient: ctxPkg.GetMQClient(c),
	}

	if svc.dbClient == nil {
		nlog.Logger().Warn().Msg("DB client not initialized, PublicShareService features limited")
	}

	return svc
}

// newShareToken 生成不可猜测的 32 位十六进制访问令牌.
func newShareToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// pshareKey 构造缓存键，token 先哈希避免把原始令牌写进 KV 的键空间.
func pshareKey(token string) string {
	return fmt.Sprintf("%s%016x", pshareKeyPrefix, xxhash.Sum64String(token))
}

// validExpiresInHours 过期小时数必须是正的有限数.
// 写成 !(h > 0) 而不是 h <= 0，NaN 才会被拦下.
func validExpiresInHours(h float64) bool {
	return h > 0 && !math.IsInf(h, 1)
}

// expiryFromHours 将小时数（支持小数）换算为过期时刻.
func expiryFromHours(now time.Time, hours float64) *time.Time {
	e := now.Add(time.Duration(float64(time.Hour) * hours))

	return &e
}

// ttlFromExpiry 根据过期时间计算缓存 TTL：
//   - 未设置过期：返回默认 TTL；
//   - 已设置过期：返回 [0, shareCacheMaxTTL] 范围内的值，避免缓存活过分享本身.
func ttlFromExpiry(exp *time.Time) time.Duration {
	if exp == nil {
		return shareCacheDefaultTTL
	}

	d := time.Until(*exp)
	if d <= 0 {
		return 0
	}

	if d > shareCacheMaxTTL {
		return shareCacheMaxTTL
	}

	return d
}

// cachedShare 是缓存与回源共用的载体：分享行 + 文件元数据快照.
type cachedShare struct {
	Share model.PublicShare `json:"share"`
	File  model.File        `json:"file"`
}

func publicShareInfo(s *model.PublicShare) types.PublicShareInfo {
	return types.PublicShareInfo{
		ID:            s.ID,
		FileID:        s.FileID,
		Token:         s.Token,
		HasPassword:   s.HasPassword(),
		ExpiresAt:     s.ExpiresAt,
		DownloadCount: s.DownloadCount,
		CreatedAt:     s.CreatedAt,
	}
}

// CreatePublicShare 为文件创建公开分享链接，锁定文件拒绝创建.
func (s *PublicShareService) CreatePublicShare(ctx context.Context, p *identity.Principal, fileID uint, req *types.CreatePublicShareRequest) (*types.CreatePublicShareResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: request body is required", ErrInvalidRequest)
	}

	if !validExpiresInHours(req.ExpiresInHours) {
		return nil, fmt.Errorf("%w: expires_in_hours must be a positive number", ErrInvalidRequest)
	}

	if s.dbClient == nil {
		return nil, errors.New("db not initialized")
	}

	gdb := s.dbClient.GetDB().WithContext(ctx)

	f, res, err := loadResource(gdb, p, fileID)
	if err != nil {
		return nil, err
	}

	if err := decisionError(authz.Evaluate(p, authz.ActionCreatePublicShare, res)); err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	share := &model.PublicShare{
		FileID:    f.ID,
		Token:     newShareToken(),
		ExpiresAt: expiryFromHours(now, req.ExpiresInHours),
		CreatedBy: p.SubjectID,
	}

	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash share password: %w", err)
		}

		share.PasswordHash = string(hash)
	}

	if err := gdb.Create(share).Error; err != nil {
		return nil, fmt.Errorf("create public share: %w", err)
	}

	s.cacheShare(ctx, &cachedShare{Share: *share, File: *f})
	s.publishShareIssued(share, f)

	return &types.CreatePublicShareResponse{Share: publicShareInfo(share)}, nil
}

// ListPublicShares 列出文件的公开分享（仅属主可见）.
func (s *PublicShareService) ListPublicShares(ctx context.Context, p *identity.Principal, fileID uint) (*types.ListPublicSharesResponse, error) {
	if s.dbClient == nil {
		return nil, errors.New("db not initialized")
	}

	gdb := s.dbClient.GetDB().WithContext(ctx)

	f, err := loadOwnedFile(gdb, p, fileID)
	if err != nil {
		return nil, err
	}

	var shares []model.PublicShare
	if err := gdb.Where("file_id = ?", f.ID).
		Order("created_at DESC").Find(&shares).Error; err != nil {
		return nil, fmt.Errorf("list public shares: %w", err)
	}

	out := make([]types.PublicShareInfo, 0, len(shares))
	for i := range shares {
		out = append(out, publicShareInfo(&shares[i]))
	}

	return &types.ListPublicSharesResponse{Shares: out}, nil
}

// RevokePublicShare 撤销公开分享（仅文件属主可操作）.
func (s *PublicShareService) RevokePublicShare(ctx context.Context, p *identity.Principal, shareID uint) error {
	if p == nil {
		return ErrDenied
	}

	if s.dbClient == nil {
		return errors.New("db not initialized")
	}

	gdb := s.dbClient.GetDB().WithContext(ctx)

	var share model.PublicShare
	if err := gdb.First(&share, shareID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}

		return fmt.Errorf("load public share %d: %w", shareID, err)
	}

	f, err := loadOwnedFile(gdb, p, share.FileID)
	if err != nil {
		// 非属主不应探知分享是否存在，统一按不存在处理
		if errors.Is(err, ErrDenied) {
			return ErrNotFound
		}

		return err
	}

	if err := gdb.Delete(&share).Error; err != nil {
		return fmt.Errorf("revoke public share: %w", err)
	}

	s.invalidateShare(ctx, share.Token)
	s.publishShareRevoked(&share, f, p.SubjectID)

	return nil
}

// Resolve 匿名解析分享 token，返回访问者可见的元数据.
func (s *PublicShareService) Resolve(ctx context.Context, token string) (*types.PublicShareView, error) {
	rec, err := s.getShareCached(ctx, token)
	if err != nil {
		return nil, err
	}

	if rec.Share.ExpiredAt(time.Now().UTC()) {
		return nil, ErrTokenExpired
	}

	return &types.PublicShareView{
		FileName:         rec.File.OriginalName,
		Size:             rec.File.Size,
		ContentType:      rec.File.ContentType,
		RequiresPassword: rec.Share.HasPassword(),
		ExpiresAt:        rec.Share.ExpiresAt,
	}, nil
}

// Redeem 兑换公开分享：校验密码后原子递增下载计数，返回文件记录供调用方取流.
// 计数递增与过期判断在同一条 UPDATE 中完成，并发兑换不会丢失计数.
func (s *PublicShareService) Redeem(ctx context.Context, token, password string) (*model.PublicShare, *model.File, error) {
	if s.dbClient == nil {
		return nil, nil, errors.New("db not initialized")
	}

	rec, err := s.getShareCached(ctx, token)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()

	if rec.Share.ExpiredAt(now) {
		return nil, nil, ErrTokenExpired
	}

	if rec.Share.HasPassword() {
		if err := bcrypt.CompareHashAndPassword([]byte(rec.Share.PasswordHash), []byte(password)); err != nil {
			return nil, nil, ErrWrongPassword
		}
	}

	gdb := s.dbClient.GetDB().WithContext(ctx)

	result := gdb.Model(&model.PublicShare{}).
		Where("token = ? AND (expires_at IS NULL OR expires_at > ?)", token, now).
		UpdateColumn("download_count", gorm.Expr("download_count + 1"))
	if result.Error != nil {
		return nil, nil, fmt.Errorf("increment download count: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		// 缓存可能落后于真实状态：重查分辨"已撤销"与"刚过期"
		var check model.PublicShare
		if err := gdb.Where("token = ?", token).First(&check).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				s.invalidateShare(ctx, token)
				return nil, nil, ErrTokenNotFound
			}

			return nil, nil, fmt.Errorf("recheck share: %w", err)
		}

		return nil, nil, ErrTokenExpired
	}

	var share model.PublicShare
	if err := gdb.Where("token = ?", token).First(&share).Error; err != nil {
		return nil, nil, fmt.Errorf("reload share: %w", err)
	}

	file := rec.File

	s.publishShareRedeemed(&share, &file)

	return &share, &file, nil
}

// PurgeExpired 清理过期超过 olderThan 的公开分享行，返回删除数量.
func (s *PublicShareService) PurgeExpired(ctx context.Context, olderThan time.Duration) (int64, error) {
	if s.dbClient == nil {
		return 0, errors.New("db not initialized")
	}

	cutoff := time.Now().UTC().Add(-olderThan)

	result := s.dbClient.GetDB().WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at < ?", cutoff).
		Delete(&model.PublicShare{})
	if result.Error != nil {
		return 0, fmt.Errorf("purge expired shares: %w", result.Error)
	}

	return result.RowsAffected, nil
}

// ---- 缓存：KV 为旁路，DB 为真源 ----

// getShareCached 按 token 获取分享与文件快照，优先缓存，其次 singleflight 回源.
func (s *PublicShareService) getShareCached(ctx context.Context, token string) (*cachedShare, error) {
	if token == "" {
		return nil, ErrTokenNotFound
	}

	key := pshareKey(token)

	if s.kvClient != nil {
		if b, err := s.kvClient.Get(ctx, key); err == nil {
			var rec cachedShare
			if err := sonic.Unmarshal(b, &rec); err == nil && rec.Share.Token == token {
				return &rec, nil
			}
		}
	}

	v, err, _ := shareLoadGroup.Do(key, func() (any, error) {
		return s.loadShare(ctx, token)
	})
	if err != nil {
		return nil, err
	}

	rec, ok := v.(*cachedShare)
	if !ok {
		return nil, errors.New("unexpected share cache type")
	}

	return rec, nil
}

// loadShare 从 DB 加载分享与文件并回填缓存.
func (s *PublicShareService) loadShare(ctx context.Context, token string) (*cachedShare, error) {
	if s.dbClient == nil {
		return nil, errors.New("db not initialized")
	}

	gdb := s.dbClient.GetDB().WithContext(ctx)

	var share model.PublicShare
	if err := gdb.Where("token = ?", token).First(&share).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}

		return nil, fmt.Errorf("load share by token: %w", err)
	}

	var f model.File
	if err := gdb.First(&f, share.FileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}

		return nil, fmt.Errorf("load shared file: %w", err)
	}

	rec := &cachedShare{Share: share, File: f}

	s.cacheShare(ctx, rec)

	return rec, nil
}

// cacheShare 将快照写入 KV，失败仅记录日志.
func (s *PublicShareService) cacheShare(ctx context.Context, rec *cachedShare) {
	if s.kvClient == nil || rec == nil {
		return
	}

	b, err := sonic.Marshal(rec)
	if err != nil {
		nlog.Logger().Warn().Err(err).Msg("marshal share cache failed")
		return
	}

	if err := s.kvClient.Set(ctx, pshareKey(rec.Share.Token), b, ttlFromExpiry(rec.Share.ExpiresAt)); err != nil {
		nlog.Logger().Warn().Err(err).Msg("write share cache failed")
	}
}

// invalidateShare 删除 token 对应的缓存.
func (s *PublicShareService) invalidateShare(ctx context.Context, token string) {
	if s.kvClient == nil {
		return
	}

	_ = s.kvClient.Delete(ctx, pshareKey(token))
}

// ---- 事件发布（尽力而为） ----

func (s *PublicShareService) publishShareIssued(share *model.PublicShare, f *model.File) {
	ev := configs.GetConfig().Events

	pub := s.mqClient.Publisher()
	if pub == nil || !ev.Enabled || !ev.Share.Issued {
		return
	}

	if err := queue.PublishShareIssued(pub, queue.ShareIssuedPayload{
		File:        fileRef(f),
		ShareID:     share.ID,
		HasPassword: share.HasPassword(),
		ExpiresAt:   share.ExpiresAt,
		IssuedBy:    share.CreatedBy,
	}, queue.WithProducer(configs.AppName)); err != nil {
		nlog.Logger().Warn().Err(err).Msg("publish share issued event failed")
	}
}

func (s *PublicShareService) publishShareRevoked(share *model.PublicShare, f *model.File, revokedBy string) {
	ev := configs.GetConfig().Events

	pub := s.mqClient.Publisher()
	if pub == nil || !ev.Enabled || !ev.Share.Revoked {
		return
	}

	if err := queue.PublishShareRevoked(pub, queue.ShareRevokedPayload{
		File:      fileRef(f),
		ShareID:   share.ID,
		RevokedBy: revokedBy,
	}, queue.WithProducer(configs.AppName)); err != nil {
		nlog.Logger().Warn().Err(err).Msg("publish share revoked event failed")
	}
}

func (s *PublicShareService) publishShareRedeemed(share *model.PublicShare, f *model.File) {
	ev := configs.GetConfig().Events

	pub := s.mqClient.Publisher()
	if pub == nil || !ev.Enabled || !ev.Share.Redeemed {
		return
	}

	if err := queue.PublishShareRedeemed(pub, queue.ShareRedeemedPayload{
		File:          fileRef(f),
		ShareID:       share.ID,
		DownloadCount: share.DownloadCount,
	}, queue.WithProducer(configs.AppName)); err != nil {
		nlog.Logger().Warn().Err(err).Msg("publish share redeemed event failed")
	}
}
