package logging

import (
	"io"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const defaultPerms = 0o600

// Log 是全局日志实例，Init之前输出到stdout
var Log = zerolog.New(os.Stdout).With().Timestamp().Logger()

// Init 根据日志级别和输出位置初始化全局日志。output为空时写入stdout。
// 返回实际使用的writer，供gorm日志复用。
func Init(level, output string) (io.Writer, error) {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zerolog.SetGlobalLevel(lvl)

	var w io.Writer = os.Stdout
	if output != "" {
		file, err := os.OpenFile(output, os.O_APPEND|os.O_WRONLY|os.O_CREATE, defaultPerms)
		if err != nil {
			return nil, err
		}
		w = file
	}

	Log = zerolog.New(w).With().Timestamp().Caller().Logger()
	return w, nil
}

// RequestLogger 记录每个请求的方法、路由、状态码和耗时
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := Log.Info()
		if status >= 500 {
			event = Log.Error()
		} else if status >= 400 {
			event = Log.Warn()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client", c.ClientIP()).
			Msg("请求完成")
	}
}
