// Package identity 将已验证的 token claims 解析为请求主体（Principal），
// 角色合并与 step-up（OTP/MFA）判定都在这里完成，签名校验由 Verifier 负责.
package identity

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

// 平台内已知角色常量，未知角色原样保留在 Roles 中.
const (
	RolePlatformSuper  = "platform_super"
	RoleWorkspaceAdmin = "workspace_admin"
	RoleUser           = "user"
)

// ErrInvalidPrincipal 表示 claims 缺少必要的主体信息（如 sub），一律拒绝.
var ErrInvalidPrincipal = errors.New("identity: invalid principal")

// stepUpPattern 匹配 acr/aal 中表示已完成多因素认证的取值.
var stepUpPattern = regexp.MustCompile(`(?i)aal2|mfa`)

// Principal 表示一次请求的已认证主体，逐请求构建，不做任何跨请求缓存.
type Principal struct {
	SubjectID       string
	Username        string
	Roles           map[string]struct{}
	StepUpSatisfied bool
}

// HasRole 判断主体是否携带指定角色（区分大小写）.
func (p *Principal) HasRole(role string) bool {
	if p == nil {
		return false
	}

	_, ok := p.Roles[role]

	return ok
}

// IsSuper 判断是否为平台超级管理员.
func (p *Principal) IsSuper() bool { return p.HasRole(RolePlatformSuper) }

// IsAdmin 判断是否为工作区管理员.
func (p *Principal) IsAdmin() bool { return p.HasRole(RoleWorkspaceAdmin) }

// Resolve 从已验证的 claims 构建 Principal.
// 角色为 realm_access.roles 与 resource_access[clientID].roles 的并集；
// step-up 满足条件：amr 含 "otp"，或 acr/aal 匹配 aal2/mfa（大小写不敏感）.
// 缺失的角色或认证方式 claims 不视为错误，只会得到更少的权限.
func Resolve(claims map[string]any, clientID string) (*Principal, error) {
	sub, _ := claims["sub"].(string)
	if strings.TrimSpace(sub) == "" {
		return nil, ErrInvalidPrincipal
	}

	username, _ := claims["preferred_username"].(string)
	if username == "" {
		username, _ = claims["email"].(string)
	}

	if username == "" {
		username = sub
	}

	p := &Principal{
		SubjectID:       sub,
		Username:        username,
		Roles:           make(map[string]struct{}),
		StepUpSatisfied: hasStepUp(claims),
	}

	for _, r := range realmRoles(claims) {
		p.Roles[r] = struct{}{}
	}

	for _, r := range clientRoles(claims, clientID) {
		p.Roles[r] = struct{}{}
	}

	return p, nil
}

// realmRoles 提取 realm_access.roles.
func realmRoles(claims map[string]any) []string {
	access, _ := claims["realm_access"].(map[string]any)
	return stringSlice(access["roles"])
}

// clientRoles 提取 resource_access[clientID].roles.
func clientRoles(claims map[string]any, clientID string) []string {
	if clientID == "" {
		return nil
	}

	access, _ := claims["resource_access"].(map[string]any)
	client, _ := access[clientID].(map[string]any)

	return stringSlice(client["roles"])
}

// hasStepUp 判断 claims 是否证明本请求已完成二次认证.
func hasStepUp(claims map[string]any) bool {
	for _, m := range stringSlice(claims["amr"]) {
		if m == "otp" {
			return true
		}
	}

	if acr, _ := claims["acr"].(string); stepUpPattern.MatchString(acr) {
		return true
	}

	if aal, _ := claims["aal"].(string); stepUpPattern.MatchString(aal) {
		return true
	}

	return false
}

// stringSlice 将 JSON 解码产生的 []any 转为 []string，忽略非字符串元素.
func stringSlice(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}

	out := make([]string, 0, len(raw))

	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}

	return out
}

type principalKey struct{}

// WithPrincipal 将 Principal 注入 context，供下游 service 获取.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext 从 context 获取 Principal，未认证时返回 nil.
func FromContext(ctx context.Context) *Principal {
	if p, ok := ctx.Value(principalKey{}).(*Principal); ok {
		return p
	}

	return nil
}
