package gate

import (
	"errors"
	"net/http"

	"github.com/SlpAus/space-notes-backend/internal/platform/logging"
	"github.com/gin-gonic/gin"
)

const (
	// CookieName 保存已签名的口令门会话令牌
	CookieName    = "space-notes-gate"
	ctxSessionKey = "gateSession"
)

// HealthReporter 报告口令门依赖的Redis是否可用
type HealthReporter interface {
	IsHealthy() bool
}

// RequireUnlocked 要求请求携带有效的口令门会话，并把会话放入上下文
func RequireUnlocked(g *Gate, health HealthReporter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !g.Enabled() {
			c.Next()
			return
		}
		if health != nil && !health.IsHealthy() {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "服务暂时不可用，请稍后重试"})
			return
		}

		signed, _ := c.Cookie(CookieName)
		session, err := g.Check(c.Request.Context(), signed)
		if err != nil {
			if errors.Is(err, ErrLocked) {
				c.AbortWithStatusJSON(http.StatusLocked, gin.H{"error": "请先输入访问口令"})
				return
			}
			logging.Log.Error().Err(err).Msg("口令门检查失败")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "服务暂时不可用，请稍后重试"})
			return
		}
		c.Set(ctxSessionKey, session)
		c.Next()
	}
}

// SessionFrom 返回 RequireUnlocked 放入上下文的会话
func SessionFrom(c *gin.Context) (*Session, bool) {
	v, ok := c.Get(ctxSessionKey)
	if !ok {
		return nil, false
	}
	s, ok := v.(*Session)
	return s, ok
}
