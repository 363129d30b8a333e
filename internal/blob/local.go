package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

const (
	// tempFilePrefix 是原子写入时临时文件的前缀，List 会跳过它们
	tempFilePrefix = ".blob-tmp-"

	dirPerm  = 0o750
	filePerm = 0o640
)

// LocalStore 把对象存放在本地目录中，每个路径对应一个文件
type LocalStore struct {
	root string
	// mu 只保证同一进程内 Upload 的“检查-写入”不被并发穿插
	mu sync.Mutex
}

func NewLocalStore(root string) (*LocalStore, error) {
	if root == "" {
		return nil, errors.New("blob.local.root 未配置")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("无法解析存储目录 %s: %w", root, err)
	}
	if err := os.MkdirAll(abs, dirPerm); err != nil {
		return nil, fmt.Errorf("无法创建存储目录 %s: %w", abs, err)
	}
	return &LocalStore{root: abs}, nil
}

func (s *LocalStore) fullPath(path string) (string, error) {
	if err := ValidatePath(path); err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(path)), nil
}

func (s *LocalStore) Upload(ctx context.Context, path string, data []byte) error {
	full, err := s.fullPath(path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(full); err == nil {
		return ErrExists
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("无法检查对象 %s: %w", path, err)
	}
	return writeFileAtomic(full, data)
}

func (s *LocalStore) Update(ctx context.Context, path string, data []byte) error {
	full, err := s.fullPath(path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeFileAtomic(full, data)
}

func (s *LocalStore) Download(ctx context.Context, path string) ([]byte, error) {
	full, err := s.fullPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("无法读取对象 %s: %w", path, err)
	}
	return data, nil
}

func (s *LocalStore) Remove(ctx context.Context, paths ...string) error {
	for _, p := range paths {
		full, err := s.fullPath(p)
		if err != nil {
			return err
		}
		if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("无法删除对象 %s: %w", p, err)
		}
	}
	return nil
}

func (s *LocalStore) List(ctx context.Context, prefix string) ([]Object, error) {
	var out []Object
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), tempFilePrefix) {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !strings.HasPrefix(rel, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		out = append(out, Object{Path: rel, Size: info.Size(), ModTime: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("无法遍历存储目录: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// writeFileAtomic 先写入同目录下的临时文件，再重命名到目标路径
func writeFileAtomic(filename string, data []byte) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("无法创建目录 %s: %w", dir, err)
	}

	tmpFile, err := os.CreateTemp(dir, tempFilePrefix+"*")
	if err != nil {
		return fmt.Errorf("无法创建临时文件: %w", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("无法写入临时文件: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("无法同步临时文件: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("无法关闭临时文件: %w", err)
	}
	if err := os.Chmod(tmpFile.Name(), filePerm); err != nil {
		return fmt.Errorf("无法设置临时文件权限: %w", err)
	}
	if err := os.Rename(tmpFile.Name(), filename); err != nil {
		return fmt.Errorf("无法将临时文件重命名为 %s: %w", filename, err)
	}
	return nil
}
