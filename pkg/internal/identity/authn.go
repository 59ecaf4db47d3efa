package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// 认证相关的哨兵错误.
var (
	ErrNoToken      = errors.New("identity: no bearer token")
	ErrInvalidToken = errors.New("identity: invalid token")
)

// Verifier 校验原始 token 并返回其 claims，签名与签发方策略由实现决定.
// 实现应尊重 ctx 的取消与超时（如需要远程获取公钥时）.
type Verifier interface {
	Verify(ctx context.Context, raw string) (map[string]any, error)
}

// FromBearer 从 Authorization 头提取 bearer token.
func FromBearer(header string) (string, error) {
	const prefix = "Bearer "
	if header == "" || !strings.HasPrefix(header, prefix) {
		return "", ErrNoToken
	}

	raw := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if raw == "" {
		return "", ErrNoToken
	}

	return raw, nil
}

// HMACVerifier 使用共享密钥（HS256）校验 JWT，可选校验 issuer.
type HMACVerifier struct {
	secret []byte
	issuer string
}

// NewHMACVerifier 创建 HMACVerifier.
func NewHMACVerifier(secret, issuer string) *HMACVerifier {
	return &HMACVerifier{secret: []byte(secret), issuer: issuer}
}

// Verify 实现 Verifier.
func (v *HMACVerifier) Verify(_ context.Context, raw string) (map[string]any, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := jwt.MapClaims{}

	if _, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	return claims, nil
}

// UnverifiedVerifier 仅解码不校验签名，只用于本地开发调试.
type UnverifiedVerifier struct{}

// Verify 实现 Verifier.
func (UnverifiedVerifier) Verify(_ context.Context, raw string) (map[string]any, error) {
	claims := jwt.MapClaims{}

	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	return claims, nil
}

// Authenticate 提取 bearer token，经 verifier 校验后解析为 Principal.
func Authenticate(ctx context.Context, verifier Verifier, authorization, clientID string) (*Principal, error) {
	raw, err := FromBearer(authorization)
	if err != nil {
		return nil, err
	}

	claims, err := verifier.Verify(ctx, raw)
	if err != nil {
		return nil, err
	}

	return Resolve(claims, clientID)
}
