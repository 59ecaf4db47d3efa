package types

import "time"

// FileInfo 文件元数据的 API 视图.
type FileInfo struct {
	ID uint `json:"id"`
	// OwnerID 属主 subject ID（管理视图下有意义）
	OwnerID string `json:"owner_id"`
	// FileName 存储名（时间戳前缀）
	FileName string `json:"file_name"`
	// OriginalName 上传时的原始文件名
	OriginalName string    `json:"original_name"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type"`
	Locked       bool      `json:"locked"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UploadFileResponse 上传成功响应体.
type UploadFileResponse struct {
	File FileInfo `json:"file"`
}

// ListFilesResponse 当前用户可见的文件列表（自有 + 被分享）.
type ListFilesResponse struct {
	Files []FileInfo `json:"files"`
	Total int        `json:"total"`
}

// ListAllFilesResponse 管理视图：全部用户的文件列表.
type ListAllFilesResponse struct {
	Files []FileInfo `json:"files"`
	Total int        `json:"total"`
}
