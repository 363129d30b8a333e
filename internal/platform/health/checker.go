package health

import (
	"context"
	"regexp"
	"time"

	"github.com/SlpAus/space-notes-backend/internal/platform/logging"
	"github.com/SlpAus/space-notes-backend/pkg/lifecycle"
	"github.com/redis/go-redis/v9"
)

const (
	defaultCheckInterval = 5 * time.Second
	pingTimeout          = 2 * time.Second
)

var runIDPattern = regexp.MustCompile(`run_id:([a-f0-9]+)`)

// Checker 定期探测Redis，并把结果写入Status
type Checker struct {
	rdb      *redis.Client
	status   *Status
	interval time.Duration
	// OnRestart 在检测到Redis重启时调用，例如记录口令门会话已失效
	OnRestart func()
}

func NewChecker(rdb *redis.Client, status *Status) *Checker {
	return &Checker{rdb: rdb, status: status, interval: defaultCheckInterval}
}

// runID 从Redis INFO中提取run_id，取不到时返回空串
func (c *Checker) runID(ctx context.Context) string {
	info, err := c.rdb.Info(ctx, "server").Result()
	if err != nil {
		return ""
	}
	matches := runIDPattern.FindStringSubmatch(info)
	if len(matches) < 2 {
		return ""
	}
	return matches[1]
}

// InitializeRunID 在应用启动时执行一次，记录初始的run_id
func (c *Checker) InitializeRunID(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	runID := c.runID(ctx)
	c.status.SetInitialRunID(runID)
	logging.Log.Info().Str("run_id", runID).Msg("已记录初始Redis Run ID")
}

// PerformCheck 执行一次完整的健康检查
func (c *Checker) PerformCheck(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := c.rdb.Ping(ctx).Err(); err != nil {
		c.status.Assess(false, "")
		return
	}
	if c.status.Assess(true, c.runID(ctx)) && c.OnRestart != nil {
		c.OnRestart()
	}
}

// Run 阻塞式地周期执行健康检查，直到生命周期句柄发出停机信号
func (c *Checker) Run(handle *lifecycle.Handle) {
	defer handle.Close()
	logging.Log.Info().Msg("Redis健康检查器已启动。")

	for {
		if err := handle.Sleep(c.interval); err != nil {
			logging.Log.Info().Msg("Redis健康检查器: 收到停机信号，正在退出。")
			return
		}
		c.PerformCheck(handle.Ctx())
	}
}
