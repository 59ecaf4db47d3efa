package configs

import "github.com/spf13/viper"

// AuthConfig 控制统一身份认证（bearer JWT）.
type AuthConfig struct {
	Enabled   bool     `mapstructure:"enabled"`    // 开启认证校验
	SkipPaths []string `mapstructure:"skip_paths"` // 跳过认证的路径前缀（如 /metrics、/api/v1/health、/share）
	// ClientID 用于提取 resource_access 中对应客户端的角色
	ClientID string `mapstructure:"client_id"`
	// HMACSecret HS256 共享密钥，为空且未开启 dev 模式时启动失败
	HMACSecret string `mapstructure:"hmac_secret"`
	// Issuer 非空时校验 token 的 iss
	Issuer string `mapstructure:"issuer"`
	// DevAllowUnverified 开发模式只解码不校验签名，生产环境禁止开启
	DevAllowUnverified bool `mapstructure:"dev_allow_unverified"`
}

func (c *AuthConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("auth.enabled", true)
	v.SetDefault("auth.client_id", "file-service")
	v.SetDefault("auth.dev_allow_unverified", false)
	v.SetDefault("auth.skip_paths", []string{
		"/metrics",
		"/debug/pprof",
		"/api/v1/health",
		"/share",
	})
}
