package types

import "time"

// AuditEntry 审计日志条目的 API 视图.
type AuditEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Action    string    `json:"action"`
	FileID    *uint     `json:"file_id,omitempty"`
	FileName  string    `json:"file_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ListAuditLogsResponse 审计日志列表（按时间倒序）.
type ListAuditLogsResponse struct {
	Logs  []AuditEntry `json:"logs"`
	Total int          `json:"total"`
}
