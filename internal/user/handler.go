package user

import (
	"errors"
	"net/http"

	"github.com/SlpAus/space-notes-backend/internal/platform/logging"
	"github.com/gin-gonic/gin"
)

// Handler 暴露注册、登录、登出和当前用户接口
type Handler struct {
	svc          *Service
	secureCookie bool
}

func NewHandler(svc *Service, secureCookie bool) *Handler {
	return &Handler{svc: svc, secureCookie: secureCookie}
}

// Register 把路由挂到 /api/auth 下
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/register", h.SignUp)
	rg.POST("/login", h.Login)
	rg.POST("/logout", h.Logout)
	rg.GET("/me", RequireUser(h.svc.Tokens()), h.Me)
}

type authResponse struct {
	Token string      `json:"token,omitempty"`
	User  CurrentUser `json:"user"`
}

// SignUp 创建账户
func (h *Handler) SignUp(c *gin.Context) {
	var body Credentials
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误: " + err.Error()})
		return
	}

	u, err := h.svc.Register(c.Request.Context(), body)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, authResponse{User: CurrentUser{ID: u.ID, Email: u.Email}})
	case errors.Is(err, ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logging.Log.Error().Err(err).Msg("注册失败")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "注册失败，请稍后重试"})
	}
}

// Login 认证后签发令牌，同时写入cookie
func (h *Handler) Login(c *gin.Context) {
	var body Credentials
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误: " + err.Error()})
		return
	}

	token, u, err := h.svc.Login(c.Request.Context(), body)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		logging.Log.Error().Err(err).Msg("登录失败")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "登录失败，请稍后重试"})
		return
	}

	maxAge := int(h.svc.Tokens().ttl.Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, token, maxAge, "/", "", h.secureCookie, true)
	c.JSON(http.StatusOK, authResponse{Token: token, User: CurrentUser{ID: u.ID, Email: u.Email}})
}

// Logout 清除令牌cookie。令牌本身无状态，过期前仍然有效。
func (h *Handler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, "", -1, "/", "", h.secureCookie, true)
	c.Status(http.StatusNoContent)
}

// Me 返回当前用户
func (h *Handler) Me(c *gin.Context) {
	current, ok := CurrentUserFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "请先登录"})
		return
	}
	c.JSON(http.StatusOK, current)
}
