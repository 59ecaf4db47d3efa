package model

import (
	"time"
)

// DirectShare 定向分享：把文件分享给平台内指定用户.
// (file_id, user_id) 唯一，重复分享视为幂等.
type DirectShare struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	FileID uint `gorm:"index:idx_file_user,unique;index" json:"file_id"`
	// 被分享用户的 subject ID
	UserID    string    `gorm:"size:255;index:idx_file_user,unique;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// PublicShare 公开分享链接：凭 token 匿名访问，可选密码与过期时间.
type PublicShare struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	FileID uint `gorm:"index"      json:"file_id"`
	// 不可猜测的访问令牌，32 位十六进制
	Token string `gorm:"size:64;uniqueIndex" json:"token"`
	// bcrypt 哈希，空串表示无密码
	PasswordHash  string     `gorm:"size:128" json:"-"`
	ExpiresAt     *time.Time `gorm:"index"    json:"expires_at,omitempty"`
	DownloadCount int64      `json:"download_count"`
	// 创建者的 subject ID
	CreatedBy string    `gorm:"size:255" json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// HasPassword 判断分享是否设置了访问密码.
func (s *PublicShare) HasPassword() bool {
	return s.PasswordHash != ""
}

// ExpiredAt 判断分享在给定时刻是否已过期，未设过期时间视为永久有效.
func (s *PublicShare) ExpiredAt(now time.Time) bool {
	return s.ExpiresAt != nil && !s.ExpiresAt.After(now)
}
