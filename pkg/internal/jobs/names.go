package jobs

// 任务名称常量，便于统一管理与引用.
const (
	JobPurgeExpiredShares = "shares.purge_expired"
	JobPruneAuditLogs     = "audit.prune"
)

// Cron 表达式常量（可选，但推荐一并集中管理）.
const (
	CronPurgeExpiredShares = "30 3 * * *"
	CronPruneAuditLogs     = "50 4 * * 0"
)
