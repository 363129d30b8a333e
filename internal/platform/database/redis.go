package database

import (
	"context"
	"fmt"

	"github.com/SlpAus/space-notes-backend/internal/platform/config"
	"github.com/redis/go-redis/v9"
)

// InitRedis 初始化与Redis数据库的连接
func InitRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// 使用Ping命令来测试连接是否成功
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("无法连接到Redis: %w", err)
	}

	return client, nil
}
