package model

import (
	"time"
)

// AuditLog 审计日志：记录谁在何时对哪个文件做了什么.
// 写入为尽力而为，审计失败不影响业务操作.
type AuditLog struct {
	// ULID，按时间有序
	ID       string `gorm:"primaryKey;size:32" json:"id"`
	UserID   string `gorm:"size:255;index"     json:"user_id"`
	Username string `gorm:"size:255"           json:"username"`
	Action   string `gorm:"size:64;index"      json:"action"`
	// 文件可能已被删除，留空指针
	FileID    *uint     `gorm:"index"     json:"file_id,omitempty"`
	FileName  string    `gorm:"size:512"  json:"file_name"`
	CreatedAt time.Time `gorm:"index"     json:"created_at"`
}

// Models 返回需要迁移的全部模型.
func Models() []any {
	return []any{
		&File{},
		&DirectShare{},
		&PublicShare{},
		&AuditLog{},
	}
}
