// Package api 组装HTTP路由
package api

import (
	"net/http"
	"time"

	"github.com/SlpAus/space-notes-backend/internal/gate"
	"github.com/SlpAus/space-notes-backend/internal/note"
	"github.com/SlpAus/space-notes-backend/internal/platform/logging"
	"github.com/SlpAus/space-notes-backend/internal/platform/metadata"
	"github.com/SlpAus/space-notes-backend/internal/platform/metrics"
	"github.com/SlpAus/space-notes-backend/internal/platform/startup"
	"github.com/SlpAus/space-notes-backend/internal/user"
	"github.com/SlpAus/space-notes-backend/pkg/markdown"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter 创建挂载了全局中间件的gin引擎
func NewRouter(app *startup.App) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logging.RequestLogger(), metrics.Middleware())
	// 未配置来源时不启用CORS，前端需与API同源
	if origins := app.Config.Server.Cors.AllowedOrigins; len(origins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	SetupRoutes(r, app)
	return r
}

// SetupRoutes 注册项目的所有API路由
func SetupRoutes(router *gin.Engine, app *startup.App) {
	router.GET("/healthz", healthz(app))
	router.GET("/metrics", metrics.Handler())

	secure := app.Config.Auth.SecureCookie
	var gateHealth gate.HealthReporter
	if app.Health != nil {
		gateHealth = app.Health
	}

	api := router.Group("/api")
	{
		// 口令门 /api/gate
		gate.NewHandler(app.Gate, secure).Register(api.Group("/gate"))

		// 身份 /api/auth
		user.NewHandler(app.Users, secure).Register(api.Group("/auth"))

		// 笔记 /api/notes，需要先通过口令门再登录
		noteRoutes := api.Group("/notes",
			gate.RequireUnlocked(app.Gate, gateHealth),
			user.RequireUser(app.Users.Tokens()),
		)
		note.NewHandler(app.Notes, markdown.NewRenderer()).Register(noteRoutes)
	}
}

type healthResponse struct {
	Status          string     `json:"status"`
	Database        string     `json:"database"`
	Redis           string     `json:"redis,omitempty"`
	LastReconcileAt *time.Time `json:"lastReconcileAt,omitempty"`
}

func healthz(app *startup.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := healthResponse{Status: "ok", Database: "ok"}
		code := http.StatusOK

		sqlDB, err := app.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			resp.Status, resp.Database = "unavailable", "unavailable"
			code = http.StatusServiceUnavailable
		}
		if app.Health != nil {
			resp.Redis = app.Health.State().String()
			if !app.Health.IsHealthy() && code == http.StatusOK {
				resp.Status = "degraded"
			}
		}
		if err == nil {
			if at, err := metadata.GetTime(c.Request.Context(), app.DB, metadata.LastReconcileAtKey); err == nil && !at.IsZero() {
				resp.LastReconcileAt = &at
			}
		}
		c.JSON(code, resp)
	}
}
