package service

import "errors"

// service 层的哨兵错误，handle 层据此映射 HTTP 状态码.
var (
	// ErrNotFound 资源不存在，或对无权探测方隐藏.
	ErrNotFound = errors.New("resource not found")
	// ErrDenied 主体无权执行该操作.
	ErrDenied = errors.New("permission denied")
	// ErrStepUpRequired 需要二次认证（OTP/MFA）后重试.
	ErrStepUpRequired = errors.New("step-up authentication required")
	// ErrLocked 文件处于锁定状态，内容操作被阻止.
	ErrLocked = errors.New("file is locked")
	// ErrConflict 状态冲突，如重复加锁/解锁.
	ErrConflict = errors.New("state conflict")
	// ErrHasActiveShares 文件存在未过期的公开分享，需先撤销.
	ErrHasActiveShares = errors.New("file has active public shares")
	// ErrInvalidRequest 请求参数不合法.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrTokenNotFound 分享 token 不存在或已撤销.
	ErrTokenNotFound = errors.New("share token not found")
	// ErrTokenExpired 分享已过期.
	ErrTokenExpired = errors.New("share expired")
	// ErrWrongPassword 分享密码错误.
	ErrWrongPassword = errors.New("wrong share password")
)
