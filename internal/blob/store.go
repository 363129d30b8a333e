// Package blob 提供按路径寻址的笔记内容存储。
// 路径由调用方决定，存储本身不理解路径的含义。
package blob

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SlpAus/space-notes-backend/internal/platform/config"
)

var (
	// ErrNotFound 表示路径下没有内容
	ErrNotFound = errors.New("blob: 对象不存在")
	// ErrExists 表示Upload的目标路径已被占用
	ErrExists = errors.New("blob: 对象已存在")
	// ErrInvalidPath 表示路径不合法
	ErrInvalidPath = errors.New("blob: 路径无效")
)

// Object 描述一个已存储的对象
type Object struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Store 是对象存储的最小接口。
// 每个方法只作用于给定路径，不提供跨路径的原子性。
type Store interface {
	// Upload 在新路径上写入内容，路径已存在时返回 ErrExists
	Upload(ctx context.Context, path string, data []byte) error
	// Update 覆盖写入，路径不存在时创建
	Update(ctx context.Context, path string, data []byte) error
	// Download 读取内容，不存在时返回 ErrNotFound
	Download(ctx context.Context, path string) ([]byte, error)
	// Remove 删除若干路径，删除不存在的路径不算错误
	Remove(ctx context.Context, paths ...string) error
	// List 列出给定前缀下的全部对象
	List(ctx context.Context, prefix string) ([]Object, error)
}

// ValidatePath 检查路径是否是安全的相对路径
func ValidatePath(path string) error {
	if path == "" || strings.HasPrefix(path, "/") || strings.Contains(path, "\\") {
		return fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	for _, seg := range strings.Split(path, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
	}
	return nil
}

// New 根据配置创建对应驱动的存储
func New(ctx context.Context, cfg config.BlobConfig) (Store, error) {
	switch cfg.Driver {
	case "", "local":
		return NewLocalStore(cfg.Local.Root)
	case "s3":
		return NewS3Store(ctx, cfg.S3)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("未知的blob驱动: %s", cfg.Driver)
	}
}
