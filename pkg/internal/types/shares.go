package types

import "time"

// CreateDirectShareRequest 把文件分享给平台内指定用户.
type CreateDirectShareRequest struct {
	// UserID 被分享用户的 subject ID
	UserID string `binding:"required" form:"user_id" json:"user_id"`
}

// DirectShareInfo 定向分享的 API 视图.
type DirectShareInfo struct {
	ID        uint      `json:"id"`
	FileID    uint      `json:"file_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ListDirectSharesResponse 文件的定向分享列表.
type ListDirectSharesResponse struct {
	Shares []DirectShareInfo `json:"shares"`
}

// CreatePublicShareRequest 创建公开分享链接.
type CreatePublicShareRequest struct {
	// Password 可选访问密码，服务端仅存哈希
	Password string `form:"password" json:"password"`
	// ExpiresInHours 有效小时数，支持小数，必须为正数
	ExpiresInHours float64 `form:"expires_in_hours" json:"expires_in_hours"`
}

// PublicShareInfo 公开分享的 API 视图（面向创建者）.
type PublicShareInfo struct {
	ID            uint       `json:"id"`
	FileID        uint       `json:"file_id"`
	Token         string     `json:"token"`
	HasPassword   bool       `json:"has_password"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	DownloadCount int64      `json:"download_count"`
	CreatedAt     time.Time  `json:"created_at"`
}

// CreatePublicShareResponse 创建公开分享的响应体.
type CreatePublicShareResponse struct {
	Share PublicShareInfo `json:"share"`
}

// ListPublicSharesResponse 文件的公开分享列表.
type ListPublicSharesResponse struct {
	Shares []PublicShareInfo `json:"shares"`
}

// PublicShareView 匿名访问者可见的分享信息，不泄露属主与 token 之外的内部标识.
type PublicShareView struct {
	FileName         string     `json:"file_name"`
	Size             int64      `json:"size"`
	ContentType      string     `json:"content_type"`
	RequiresPassword bool       `json:"requires_password"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
}

// RedeemPublicShareRequest 兑换公开分享（下载）请求，密码可经 form 或 JSON 提交.
type RedeemPublicShareRequest struct {
	Password string `form:"password" json:"password"`
}
