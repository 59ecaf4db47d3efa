package model

import (
	"time"
)

// File 文件模型：元数据入库，内容存对象存储.
type File struct {
	ID uint `gorm:"primaryKey" json:"id"`
	// 属主的 subject ID，来自认证 token
	OwnerID string `gorm:"size:255;index" json:"owner_id"`
	// 存储名（时间戳前缀），同时作为对象存储的 key
	FileName string `gorm:"size:512;uniqueIndex" json:"file_name"`
	// 用户上传时的原始文件名
	OriginalName string    `gorm:"size:512"       json:"original_name"`
	Size         int64     `json:"size"`
	ContentType  string    `gorm:"size:255"       json:"content_type"`
	Locked       bool      `gorm:"index"          json:"locked"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
