// Package shutdown 编排应用的两阶段停机
package shutdown

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SlpAus/space-notes-backend/internal/platform/logging"
	"github.com/SlpAus/space-notes-backend/pkg/lifecycle"
)

const (
	defaultHTTPTimeout     = 15 * time.Second
	defaultGracefulTimeout = 30 * time.Second
	defaultForcefulTimeout = 1 * time.Second
)

// Coordinator 负责编排应用程序的优雅停机流程。
// 它接收外部创建的生命周期管理器，并使用它们来协调停机。
type Coordinator struct {
	GracefulManager *lifecycle.Manager
	ForcefulManager *lifecycle.Manager

	HTTPTimeout     time.Duration
	GracefulTimeout time.Duration
	ForcefulTimeout time.Duration

	// Finalizers 在后台服务全部退出后按顺序执行，例如关闭数据库连接
	Finalizers []func()
}

// NewCoordinator 创建一个新的停机协调器。
func NewCoordinator(gracefulMgr, forcefulMgr *lifecycle.Manager) *Coordinator {
	return &Coordinator{
		GracefulManager: gracefulMgr,
		ForcefulManager: forcefulMgr,
		HTTPTimeout:     defaultHTTPTimeout,
		GracefulTimeout: defaultGracefulTimeout,
		ForcefulTimeout: defaultForcefulTimeout,
	}
}

// ListenForSignalsAndShutdown 阻塞直到收到 SIGINT/SIGTERM 或 ctx 被取消，然后执行停机。
func (c *Coordinator) ListenForSignalsAndShutdown(ctx context.Context, server *http.Server) {
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	<-sigCtx.Done()
	logging.Log.Info().Msg("收到关闭信号，开始优雅停机...")
	c.Shutdown(server)
}

// Shutdown 关闭HTTP服务器，然后分两个阶段停止后台服务
func (c *Coordinator) Shutdown(server *http.Server) {
	// 关闭HTTP服务器，允许正在进行的请求完成
	if server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), c.HTTPTimeout)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logging.Log.Error().Err(err).Msg("HTTP服务器关闭错误")
		} else {
			logging.Log.Info().Msg("HTTP服务器已关闭。")
		}
	}

	// --- 阶段一: 优雅停机 ---
	logging.Log.Info().Dur("timeout", c.GracefulTimeout).Msg("第一阶段停机：等待后台任务完成...")
	c.GracefulManager.Shutdown()

	remaining := c.GracefulManager.WaitWithTimeout(c.GracefulTimeout)
	if len(remaining) == 0 {
		logging.Log.Info().Msg("所有服务已在第一阶段优雅关闭。")
	} else {
		// --- 阶段二: 强制停机 ---
		logging.Log.Warn().Strs("remaining", remaining).Dur("timeout", c.ForcefulTimeout).Msg("第一阶段超时，发送第二停机信号。")
		c.ForcefulManager.Shutdown()
		if left := c.ForcefulManager.WaitWithTimeout(c.ForcefulTimeout); len(left) > 0 {
			logging.Log.Error().Strs("remaining", left).Msg("强制停机后仍有服务未退出")
		}
	}

	for _, fn := range c.Finalizers {
		fn()
	}
	logging.Log.Info().Msg("优雅停机完成。")
}
