// Package authz 实现文件操作的权限决策表.
// Evaluate 是纯函数：输入主体与资源快照，输出决策，不做任何 IO，
// 便于表驱动测试穷举所有策略分支.
package authz

import (
	"github.com/yeisme/filevault/pkg/internal/identity"
)

// Action 表示一次待授权的操作.
type Action int

const (
	// ActionListAllFiles 列出全部用户的文件（管理视图）.
	ActionListAllFiles Action = iota
	// ActionViewMetadata 查看文件元数据.
	ActionViewMetadata
	// ActionViewContent 在线预览文件内容.
	ActionViewContent
	// ActionDownload 下载文件.
	ActionDownload
	// ActionDelete 删除文件.
	ActionDelete
	// ActionLock 锁定文件.
	ActionLock
	// ActionUnlock 解锁文件.
	ActionUnlock
	// ActionCreatePublicShare 创建公开分享链接.
	ActionCreatePublicShare
)

// String 返回动作名，用于日志与指标标签.
func (a Action) String() string {
	switch a {
	case ActionListAllFiles:
		return "list_all_files"
	case ActionViewMetadata:
		return "view_metadata"
	case ActionViewContent:
		return "view_content"
	case ActionDownload:
		return "download"
	case ActionDelete:
		return "delete"
	case ActionLock:
		return "lock"
	case ActionUnlock:
		return "unlock"
	case ActionCreatePublicShare:
		return "create_public_share"
	default:
		return "unknown"
	}
}

// Decision 是授权判定结果.
type Decision int

const (
	// Deny 主体无权执行该操作.
	Deny Decision = iota
	// Allow 允许执行.
	Allow
	// StepUp 主体具备角色但本次会话缺少二次认证（OTP/MFA）.
	StepUp
	// NotFound 资源不存在，对无权探测方与不存在一视同仁.
	NotFound
	// Locked 资源处于锁定状态，操作被锁阻止.
	Locked
)

// String 返回决策名，用于日志与指标标签.
func (d Decision) String() string {
	switch d {
	case Deny:
		return "deny"
	case Allow:
		return "allow"
	case StepUp:
		return "step_up"
	case NotFound:
		return "not_found"
	case Locked:
		return "locked"
	default:
		return "unknown"
	}
}

// Resource 是被操作文件在决策时刻的快照.
type Resource struct {
	// Exists 为 false 时所有针对具体资源的动作均返回 NotFound.
	Exists bool
	// OwnerID 文件属主的 subject ID.
	OwnerID string
	// Locked 文件是否处于锁定状态.
	Locked bool
	// SharedWithActor 文件是否已定向分享给当前主体.
	SharedWithActor bool
}

// Evaluate 按策略表判定 p 能否对 res 执行 action.
// p 为 nil 或没有任何可用依据时一律 Deny；
// ActionListAllFiles 不针对具体资源，忽略 res.
func Evaluate(p *identity.Principal, action Action, res Resource) Decision {
	if p == nil {
		return Deny
	}

	if action == ActionListAllFiles {
		return evaluateListAll(p)
	}

	if !res.Exists {
		return NotFound
	}

	isOwner := res.OwnerID != "" && res.OwnerID == p.SubjectID

	switch action {
	case ActionViewMetadata:
		if p.IsSuper() || p.IsAdmin() || isOwner || res.SharedWithActor {
			return Allow
		}

		return Deny

	case ActionViewContent, ActionDownload:
		if !(p.IsSuper() || p.IsAdmin() || isOwner || res.SharedWithActor) {
			return Deny
		}

		if res.Locked {
			return Locked
		}

		return Allow

	case ActionDelete:
		// 删除只允许属主本人，管理员也不能删除他人文件.
		if !isOwner {
			return Deny
		}

		if !p.IsSuper() && !p.StepUpSatisfied {
			return StepUp
		}

		return Allow

	case ActionLock, ActionUnlock:
		return evaluateLockToggle(p, isOwner)

	case ActionCreatePublicShare:
		if !isOwner {
			return Deny
		}

		if res.Locked {
			return Locked
		}

		return Allow
	}

	return Deny
}

// evaluateListAll 判定管理视图访问：超级管理员直接放行，
// 工作区管理员需要已完成二次认证，普通用户拒绝.
func evaluateListAll(p *identity.Principal) Decision {
	if p.IsSuper() {
		return Allow
	}

	if p.IsAdmin() {
		if p.StepUpSatisfied {
			return Allow
		}

		return StepUp
	}

	return Deny
}

// evaluateLockToggle 判定加锁/解锁：属主、管理员、超级管理员可操作；
// 二次认证只约束属主本人，非属主的管理员和超级管理员豁免.
func evaluateLockToggle(p *identity.Principal, isOwner bool) Decision {
	if !isOwner && !p.IsAdmin() && !p.IsSuper() {
		return Deny
	}

	if p.IsSuper() {
		return Allow
	}

	if isOwner && (p.HasRole(identity.RoleUser) || p.IsAdmin()) && !p.StepUpSatisfied {
		return StepUp
	}

	return Allow
}
