package user

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// CookieName 是浏览器端保存访问令牌的cookie
	CookieName = "space-notes-token"
	// currentUserKey 是当前用户在gin上下文中的键
	currentUserKey = "currentUser"
)

// tokenFromRequest 优先读取 Authorization: Bearer，其次读取cookie
func tokenFromRequest(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	token, _ := c.Cookie(CookieName)
	return token
}

// RequireUser 解析当前用户，没有有效令牌时返回401
func RequireUser(tokens *TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := tokenFromRequest(c)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "请先登录"})
			return
		}
		current, err := tokens.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "登录已失效，请重新登录"})
			return
		}
		SetCurrentUser(c, current)
		c.Next()
	}
}

// SetCurrentUser 把已认证的用户放入上下文
func SetCurrentUser(c *gin.Context, current *CurrentUser) {
	c.Set(currentUserKey, current)
}

// CurrentUserFrom 返回 RequireUser 放入上下文的用户
func CurrentUserFrom(c *gin.Context) (*CurrentUser, bool) {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return nil, false
	}
	current, ok := v.(*CurrentUser)
	return current, ok && current != nil
}
