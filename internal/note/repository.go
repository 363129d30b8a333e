package note

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// ErrRowNotFound 表示按 id+owner 找不到对应的行
var ErrRowNotFound = errors.New("笔记记录不存在")

// MetadataStore 是编排层对元数据表的全部依赖。
// 除 FilePaths 外，每个方法都同时按笔记ID和所有者过滤。
type MetadataStore interface {
	Insert(ctx context.Context, n *Note) error
	FindOwned(ctx context.Context, id, ownerID string) (*Note, error)
	UpdateOwned(ctx context.Context, id, ownerID, title string, updatedAt time.Time) error
	DeleteOwned(ctx context.Context, id, ownerID string) error
	// ListByOwner 按 updated_at 降序返回，updated_at 相同时按ID降序
	ListByOwner(ctx context.Context, ownerID string) ([]Note, error)
	// FilePaths 返回全部行引用的blob路径，只供对账使用
	FilePaths(ctx context.Context) ([]string, error)
}

// GormStore 是基于gorm的 MetadataStore 实现
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Insert(ctx context.Context, n *Note) error {
	return s.db.WithContext(ctx).Create(n).Error
}

func (s *GormStore) FindOwned(ctx context.Context, id, ownerID string) (*Note, error) {
	var n Note
	err := s.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&n).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRowNotFound
		}
		return nil, err
	}
	return &n, nil
}

func (s *GormStore) UpdateOwned(ctx context.Context, id, ownerID, title string, updatedAt time.Time) error {
	result := s.db.WithContext(ctx).Model(&Note{}).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Updates(map[string]any{"title": title, "updated_at": updatedAt})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRowNotFound
	}
	return nil
}

func (s *GormStore) DeleteOwned(ctx context.Context, id, ownerID string) error {
	result := s.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Delete(&Note{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRowNotFound
	}
	return nil
}

func (s *GormStore) ListByOwner(ctx context.Context, ownerID string) ([]Note, error) {
	var notes []Note
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("updated_at DESC").
		Order("id DESC").
		Find(&notes).Error
	return notes, err
}

func (s *GormStore) FilePaths(ctx context.Context) ([]string, error) {
	var paths []string
	err := s.db.WithContext(ctx).Model(&Note{}).Pluck("file_path", &paths).Error
	return paths, err
}
