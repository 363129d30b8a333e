package gate

import (
	"errors"
	"net/http"

	"github.com/SlpAus/space-notes-backend/internal/platform/logging"
	"github.com/gin-gonic/gin"
)

// Handler 暴露口令门的状态、解锁和上锁接口
type Handler struct {
	gate         *Gate
	secureCookie bool
}

func NewHandler(g *Gate, secureCookie bool) *Handler {
	return &Handler{gate: g, secureCookie: secureCookie}
}

// Register 把路由挂到 /api/gate 下
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("", h.Status)
	rg.POST("/unlock", h.Unlock)
	rg.DELETE("", h.Lock)
}

type unlockRequest struct {
	Password string `json:"password" binding:"required"`
}

type statusResponse struct {
	Enabled  bool `json:"enabled"`
	Unlocked bool `json:"unlocked"`
}

// Status 检查cookie中持久化的会话
func (h *Handler) Status(c *gin.Context) {
	if !h.gate.Enabled() {
		c.JSON(http.StatusOK, statusResponse{Enabled: false, Unlocked: true})
		return
	}
	signed, _ := c.Cookie(CookieName)
	_, err := h.gate.Check(c.Request.Context(), signed)
	if err != nil && !errors.Is(err, ErrLocked) {
		logging.Log.Error().Err(err).Msg("口令门检查失败")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "服务暂时不可用，请稍后重试"})
		return
	}
	c.JSON(http.StatusOK, statusResponse{Enabled: true, Unlocked: err == nil})
}

// Unlock 校验口令，成功后写入会话cookie
func (h *Handler) Unlock(c *gin.Context) {
	var body unlockRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误: " + err.Error()})
		return
	}

	session, err := h.gate.Unlock(c.Request.Context(), body.Password)
	if err != nil {
		if errors.Is(err, ErrWrongPassword) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		logging.Log.Error().Err(err).Msg("口令门解锁失败")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "服务暂时不可用，请稍后重试"})
		return
	}

	if session.Token != "" {
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(CookieName, session.Token, int(h.gate.ttl.Seconds()), "/", "", h.secureCookie, true)
	}
	c.JSON(http.StatusOK, statusResponse{Enabled: h.gate.Enabled(), Unlocked: true})
}

// Lock 销毁会话并清除cookie
func (h *Handler) Lock(c *gin.Context) {
	signed, _ := c.Cookie(CookieName)
	if err := h.gate.Lock(c.Request.Context(), signed); err != nil {
		logging.Log.Error().Err(err).Msg("口令门上锁失败")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "服务暂时不可用，请稍后重试"})
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, "", -1, "/", "", h.secureCookie, true)
	c.Status(http.StatusNoContent)
}
