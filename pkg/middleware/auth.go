package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/filevault/pkg/configs"
	"github.com/yeisme/filevault/pkg/internal/identity"
	nlog "github.com/yeisme/filevault/pkg/log"
)

// AuthMiddleware 校验 Bearer token 并把解析出的 Principal 注入请求上下文.
//   - skip_paths 中的路径直接放行（健康检查、指标、匿名分享入口）
//   - dev_allow_unverified 只解码不验签，仅供本地调试，切勿用于生产.
func AuthMiddleware(conf configs.AuthConfig) gin.HandlerFunc {
	var verifier identity.Verifier = identity.NewHMACVerifier(conf.HMACSecret, conf.Issuer)

	if conf.DevAllowUnverified {
		verifier = identity.UnverifiedVerifier{}

		nlog.Logger().Warn().Msg("auth running in unverified mode, tokens are NOT validated")
	}

	return func(c *gin.Context) {
		if !conf.Enabled || isSkippedPath(c.Request.URL.Path, conf.SkipPaths) {
			c.Next()
			return
		}

		p, err := identity.Authenticate(c.Request.Context(), verifier, c.GetHeader("Authorization"), conf.ClientID)
		if err != nil {
			nlog.Logger().Debug().Err(err).Str("path", c.Request.URL.Path).Msg("authentication failed")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})

			return
		}

		c.Request = c.Request.WithContext(identity.WithPrincipal(c.Request.Context(), p))

		c.Next()
	}
}

func isSkippedPath(path string, skips []string) bool {
	if path == "" || len(skips) == 0 {
		return false
	}

	for _, p := range skips {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		if strings.HasPrefix(path, p) {
			return true
		}
	}

	return false
}
