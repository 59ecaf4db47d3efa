package queue

import "time"

// EventHeader 定义所有事件的通用头部元数据.
// 建议在发布消息时填充 TraceID、OccurredAt、Producer 等，便于追踪链路与审计.
type EventHeader struct {
	// Topic 冗余记录消息主题，便于离线处理或转储后定位来源主题.
	Topic string `json:"topic"`
	// TraceID 分布式追踪/关联 ID，可来自中间件或业务生成.
	TraceID string `json:"trace_id,omitempty"`
	// Producer 生产者服务名或节点标识.
	Producer string `json:"producer,omitempty"`
	// OccurredAt 事件发生时间（UTC，RFC3339）.
	OccurredAt time.Time `json:"occurred_at"`
	// Version 事件负载版本，便于向后兼容演进.
	Version string `json:"version,omitempty"`
}

// Message 是统一的消息封装，Header + Payload.
// T 即不同主题对应的负载结构体.
type Message[T any] struct {
	Header  EventHeader `json:"header"`
	Payload T           `json:"payload"`
}

// -------------------------- 文件生命周期领域 --------------------------

// FileRef 标识一个文件及其在对象存储中的位置.
type FileRef struct {
	FileID      uint   `json:"file_id"`
	Bucket      string `json:"bucket,omitempty"`
	FileName    string `json:"file_name"`
	OwnerID     string `json:"owner_id,omitempty"`
	Size        int64  `json:"size,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}

// FileStoredPayload 文件内容已写入对象存储且元数据已入库.
type FileStoredPayload struct {
	File FileRef `json:"file"`
	// OriginalName 上传时的原始文件名.
	OriginalName string `json:"original_name,omitempty"`
}

// FileDeletedPayload 文件被删除.
type FileDeletedPayload struct {
	File FileRef `json:"file"`
	// DeletedBy 执行删除的用户 subject ID.
	DeletedBy string `json:"deleted_by,omitempty"`
}

// FileLockChangedPayload 文件锁状态变更.
type FileLockChangedPayload struct {
	File   FileRef `json:"file"`
	Locked bool    `json:"locked"`
	// ChangedBy 执行操作的用户 subject ID.
	ChangedBy string `json:"changed_by,omitempty"`
}

// -------------------------- 分享领域 --------------------------

// ShareIssuedPayload 公开分享链接创建.
type ShareIssuedPayload struct {
	File    FileRef `json:"file"`
	ShareID uint    `json:"share_id"`
	// HasPassword 是否设置了访问密码，不携带密码本身.
	HasPassword bool       `json:"has_password"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	IssuedBy    string     `json:"issued_by,omitempty"`
}

// ShareRevokedPayload 公开分享链接撤销.
type ShareRevokedPayload struct {
	File      FileRef `json:"file"`
	ShareID   uint    `json:"share_id"`
	RevokedBy string  `json:"revoked_by,omitempty"`
}

// ShareRedeemedPayload 公开分享被匿名兑换下载.
type ShareRedeemedPayload struct {
	File    FileRef `json:"file"`
	ShareID uint    `json:"share_id"`
	// DownloadCount 兑换后的累计下载次数.
	DownloadCount int64 `json:"download_count,omitempty"`
}

// -------------------------- 审计领域 --------------------------

// AuditRecordedPayload 审计日志写入.
type AuditRecordedPayload struct {
	// AuditID 审计记录 ID（ULID，按时间有序）.
	AuditID  string `json:"audit_id"`
	UserID   string `json:"user_id"`
	Username string `json:"username,omitempty"`
	Action   string `json:"action"`
	FileID   *uint  `json:"file_id,omitempty"`
	FileName string `json:"file_name,omitempty"`
}
