// Package gate 实现访问口令门。
// 口令门只是一道体验上的门槛，不是身份认证边界，身份由 user 包负责。
package gate

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/SlpAus/space-notes-backend/pkg/token"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "gate:session:"
	// scanBatchSize 是 RevokeAll 每次SCAN和DEL的数量
	scanBatchSize = 500
)

var (
	// ErrWrongPassword 表示口令不正确
	ErrWrongPassword = errors.New("口令错误")
	// ErrLocked 表示没有有效的口令门会话
	ErrLocked = errors.New("口令门未解锁")
)

// Session 是一次已解锁的口令门会话，通过请求上下文显式传递
type Session struct {
	ID        string
	Token     string
	ExpiresAt time.Time
}

// Gate 管理口令门会话的创建(Unlock)、检查(Check)和销毁(Lock)
type Gate struct {
	password []byte
	ttl      time.Duration
	rdb      *redis.Client
	signer   *token.Signer
	now      func() time.Time
}

// New 创建口令门。password 为空时口令门关闭，所有请求直接放行。
func New(password string, ttl time.Duration, rdb *redis.Client, signer *token.Signer) *Gate {
	return &Gate{
		password: []byte(password),
		ttl:      ttl,
		rdb:      rdb,
		signer:   signer,
		now:      time.Now,
	}
}

// Enabled 报告口令门是否开启
func (g *Gate) Enabled() bool {
	return len(g.password) > 0
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

// Unlock 校验口令并创建新会话
func (g *Gate) Unlock(ctx context.Context, password string) (*Session, error) {
	if !g.Enabled() {
		return &Session{}, nil
	}
	if subtle.ConstantTimeCompare([]byte(password), g.password) != 1 {
		return nil, ErrWrongPassword
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("无法生成会话ID: %w", err)
	}
	expiresAt := g.now().Add(g.ttl)
	if err := g.rdb.Set(ctx, sessionKey(id.String()), expiresAt.Unix(), g.ttl).Err(); err != nil {
		return nil, fmt.Errorf("无法保存口令门会话: %w", err)
	}
	return &Session{ID: id.String(), Token: g.signer.Sign(id.String()), ExpiresAt: expiresAt}, nil
}

// Check 检查客户端持久化的令牌是否仍对应一个有效会话
func (g *Gate) Check(ctx context.Context, signed string) (*Session, error) {
	if !g.Enabled() {
		return &Session{}, nil
	}
	if signed == "" {
		return nil, ErrLocked
	}
	id, err := g.signer.Verify(signed)
	if err != nil {
		return nil, ErrLocked
	}

	expiresUnix, err := g.rdb.Get(ctx, sessionKey(id)).Int64()
	if errors.Is(err, redis.Nil) {
		return nil, ErrLocked
	}
	if err != nil {
		return nil, fmt.Errorf("无法读取口令门会话: %w", err)
	}
	return &Session{ID: id, Token: signed, ExpiresAt: time.Unix(expiresUnix, 0)}, nil
}

// Lock 销毁会话。令牌无效或会话已不存在时同样视为成功。
func (g *Gate) Lock(ctx context.Context, signed string) error {
	if !g.Enabled() || signed == "" {
		return nil
	}
	id, err := g.signer.Verify(signed)
	if err != nil {
		return nil
	}
	if err := g.rdb.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("无法删除口令门会话: %w", err)
	}
	return nil
}

// RevokeAll 删除全部口令门会话，返回删除的数量。用于更换口令之后。
func (g *Gate) RevokeAll(ctx context.Context) (int, error) {
	var (
		cursor  uint64
		removed int
	)
	for {
		keys, next, err := g.rdb.Scan(ctx, cursor, sessionKeyPrefix+"*", scanBatchSize).Result()
		if err != nil {
			return removed, fmt.Errorf("无法扫描口令门会话: %w", err)
		}
		if len(keys) > 0 {
			n, err := g.rdb.Del(ctx, keys...).Result()
			if err != nil {
				return removed, fmt.Errorf("无法删除口令门会话: %w", err)
			}
			removed += int(n)
		}
		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}
