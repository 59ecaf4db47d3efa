// Package jobs 负责注册与实现业务定时任务（基于 scheduler）。
package jobs

import (
	"context"
	"fmt"
	"time"

	ctxPkg "github.com/yeisme/filevault/pkg/context"
	"github.com/yeisme/filevault/pkg/internal/service"
	"github.com/yeisme/filevault/pkg/internal/storage"
	"github.com/yeisme/filevault/pkg/log"
	"github.com/yeisme/filevault/pkg/scheduler"
)

// 保留期：过期分享行留 30 天便于排查，审计日志留 90 天.
const (
	expiredShareRetention = 30 * 24 * time.Hour
	auditLogRetention     = 90 * 24 * time.Hour
)

// RegisterCronJobs 配置业务定时任务：
//   - 每天 03:30 清理过期超过 30 天的公开分享行
//   - 每周日 04:50 清理超过保留期的审计日志
func RegisterCronJobs(sched *scheduler.Scheduler, mgr *storage.Manager) error {
	if sched == nil {
		return fmt.Errorf("scheduler is nil")
	}

	if mgr == nil {
		return fmt.Errorf("storage manager is nil")
	}

	// 将 storage manager 注入到 context，便于 service 使用
	baseCtx := ctxPkg.WithStorageManager(context.Background(), mgr)

	if err := sched.AddCron(JobPurgeExpiredShares, CronPurgeExpiredShares, runPurgeExpiredShares, baseCtx); err != nil {
		return fmt.Errorf("register %s: %w", JobPurgeExpiredShares, err)
	}

	if err := sched.AddCron(JobPruneAuditLogs, CronPruneAuditLogs, runPruneAuditLogs, baseCtx); err != nil {
		return fmt.Errorf("register %s: %w", JobPruneAuditLogs, err)
	}

	return nil
}

func runPurgeExpiredShares(ctx context.Context) {
	l := log.Logger().With().Str("job", JobPurgeExpiredShares).Logger()

	svc := service.NewPublicShareService(ctx)

	n, err := svc.PurgeExpired(ctx, expiredShareRetention)
	if err != nil {
		l.Error().Err(err).Msg("purge expired shares failed")
		return
	}

	if n > 0 {
		l.Info().Int64("purged", n).Msg("purged expired public shares")
	}
}

func runPruneAuditLogs(ctx context.Context) {
	l := log.Logger().With().Str("job", JobPruneAuditLogs).Logger()

	svc := service.NewAuditService(ctx)

	n, err := svc.Prune(ctx, auditLogRetention)
	if err != nil {
		l.Error().Err(err).Msg("prune audit logs failed")
		return
	}

	if n > 0 {
		l.Info().Int64("pruned", n).Msg("pruned audit logs")
	}
}
