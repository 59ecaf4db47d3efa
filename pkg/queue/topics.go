// Package queue 定义消息主题常量与通配模式，供发布/订阅使用.
package queue

// 主题命名规范：fv.<域>.<动作>[.<状态>]，尽量稳定且向后兼容.
// 域：file(文件生命周期)、share(分享)、audit(审计)
// 动作：存储相关(stored/deleted)、锁相关(lock.changed)、分享相关(issued/revoked/redeemed)

const (
	// 文件生命周期领域.
	TopicFileStored      = "fv.file.stored"       // 文件内容已写入对象存储且元数据已入库
	TopicFileDeleted     = "fv.file.deleted"      // 文件元数据与内容已删除
	TopicFileLockChanged = "fv.file.lock.changed" // 文件锁状态变更（locked/unlocked）

	// 分享领域.
	TopicShareIssued   = "fv.share.issued"   // 公开分享链接创建
	TopicShareRevoked  = "fv.share.revoked"  // 公开分享链接撤销
	TopicShareRedeemed = "fv.share.redeemed" // 公开分享被匿名兑换下载

	// 审计领域.
	TopicAuditRecorded = "fv.audit.recorded" // 审计日志写入，供下游消费审计流
)

// 主题分组，用于批量操作或权限控制.
var (
	// 文件相关主题集合.
	FileTopics = []string{
		TopicFileStored, TopicFileDeleted, TopicFileLockChanged,
	}

	// 分享相关主题集合.
	ShareTopics = []string{
		TopicShareIssued, TopicShareRevoked, TopicShareRedeemed,
	}

	// 审计相关主题集合.
	AuditTopics = []string{
		TopicAuditRecorded,
	}
)
