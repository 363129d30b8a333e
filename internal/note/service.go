// Package note 是笔记编排层：让元数据表和blob存储始终按固定顺序一起变化。
//
// 两个存储之间没有事务。每个写操作都是一个两步的saga：
//   - Create: 先上传正文，再插入行；插入失败时可选地回收刚上传的正文
//   - Update: 先覆盖正文，再更新标题和 updated_at
//   - Delete: 先删除正文，再删除行
//
// 中间失败会留下不一致窗口，由调用方看到对应的错误，编排层不做重试。
package note

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/SlpAus/space-notes-backend/internal/blob"
	"github.com/SlpAus/space-notes-backend/internal/platform/logging"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	// MaxTitleRunes 是标题的最大字符数
	MaxTitleRunes = 200
	// DefaultMaxContentBytes 是正文的默认大小上限
	DefaultMaxContentBytes = 1 << 20
	// DefaultListConcurrency 是批量读取正文时的默认并发数
	DefaultListConcurrency = 8

	fileExt = ".md"
)

// ownerIDPattern 限制所有者ID只能作为单个路径段使用
var ownerIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Service 编排元数据存储和blob存储
type Service struct {
	meta  MetadataStore
	blobs blob.Store

	now              func() time.Time
	compensateCreate bool
	maxContentBytes  int
	listConcurrency  int
	observe          func(op, outcome string)
}

// Option 调整 Service 的可选行为
type Option func(*Service)

// WithClock 替换时间来源
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithCreateCompensation 控制元数据插入失败后是否回收已上传的正文
func WithCreateCompensation(enabled bool) Option {
	return func(s *Service) { s.compensateCreate = enabled }
}

func WithMaxContentBytes(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxContentBytes = n
		}
	}
}

func WithListConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.listConcurrency = n
		}
	}
}

// WithObserver 在每次操作结束时回调，用于指标统计
func WithObserver(fn func(op, outcome string)) Option {
	return func(s *Service) { s.observe = fn }
}

func NewService(meta MetadataStore, blobs blob.Store, opts ...Option) *Service {
	s := &Service{
		meta:             meta,
		blobs:            blobs,
		now:              time.Now,
		compensateCreate: true,
		maxContentBytes:  DefaultMaxContentBytes,
		listConcurrency:  DefaultListConcurrency,
		observe:          func(string, string) {},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxContentBytes 返回正文大小上限，供HTTP层限制请求体
func (s *Service) MaxContentBytes() int {
	return s.maxContentBytes
}

// clock 返回截断到微秒的UTC时间，与postgres的时间精度一致
func (s *Service) clock() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// nextUpdatedAt 保证同一笔记的 updated_at 严格递增
func nextUpdatedAt(prev, now time.Time) time.Time {
	floor := prev.UTC().Truncate(time.Microsecond).Add(time.Microsecond)
	if now.Before(floor) {
		return floor
	}
	return now
}

func (s *Service) validate(ownerID, title string, content []byte) error {
	if err := validation.Validate(ownerID, validation.Required, validation.Match(ownerIDPattern)); err != nil {
		return fmt.Errorf("%w: 所有者无效: %w", ErrValidation, err)
	}
	if err := validation.Validate(title, validation.Required, validation.RuneLength(1, MaxTitleRunes)); err != nil {
		return fmt.Errorf("%w: 标题: %w", ErrValidation, err)
	}
	if len(content) > s.maxContentBytes {
		return fmt.Errorf("%w: 正文超过 %d 字节", ErrValidation, s.maxContentBytes)
	}
	return nil
}

// derivePath 为一次创建生成新的blob路径，所有者ID作为第一段
func derivePath(ownerID string) (string, error) {
	token, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return ownerID + "/" + token.String() + fileExt, nil
}

func (s *Service) findOwned(ctx context.Context, id, ownerID string) (*Note, error) {
	n, err := s.meta.FindOwned(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, ErrRowNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: 无法查询笔记: %w", ErrMetadata, err)
	}
	return n, nil
}

// Create 上传正文后插入元数据行
func (s *Service) Create(ctx context.Context, ownerID, title string, content []byte) (n *Note, err error) {
	defer func() { s.observe(OpCreate, Outcome(err)) }()

	title = strings.TrimSpace(title)
	if err := s.validate(ownerID, title, content); err != nil {
		return nil, err
	}

	path, err := derivePath(ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: 无法生成存储路径: %w", ErrStorage, err)
	}
	if err := s.blobs.Upload(ctx, path, content); err != nil {
		return nil, fmt.Errorf("%w: 无法上传笔记内容: %w", ErrStorage, err)
	}

	comp := newUploadCompensator(ctx, s.blobs, path, s.compensateCreate)
	defer comp.RollbackUnlessCommitted()

	now := s.clock()
	n = &Note{OwnerID: ownerID, Title: title, FilePath: path, CreatedAt: now, UpdatedAt: now}
	if err := s.meta.Insert(ctx, n); err != nil {
		return nil, fmt.Errorf("%w: 无法写入笔记记录: %w", ErrMetadata, err)
	}
	comp.Commit()
	return n, nil
}

// Update 覆盖正文后更新标题和 updated_at。正文路径保持不变。
func (s *Service) Update(ctx context.Context, id, ownerID, title string, content []byte) (n *Note, err error) {
	defer func() { s.observe(OpUpdate, Outcome(err)) }()

	title = strings.TrimSpace(title)
	if err := s.validate(ownerID, title, content); err != nil {
		return nil, err
	}

	n, err = s.findOwned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if err := s.blobs.Update(ctx, n.FilePath, content); err != nil {
		return nil, fmt.Errorf("%w: 无法覆盖笔记内容: %w", ErrStorage, err)
	}

	updatedAt := nextUpdatedAt(n.UpdatedAt, s.clock())
	if err := s.meta.UpdateOwned(ctx, id, ownerID, title, updatedAt); err != nil {
		if errors.Is(err, ErrRowNotFound) {
			// 行在两步之间被并发删除
			logging.Log.Warn().Str("note", id).Str("path", n.FilePath).Msg("更新时笔记已被删除，正文可能成为孤儿")
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: 无法更新笔记记录: %w", ErrMetadata, err)
	}
	n.Title = title
	n.UpdatedAt = updatedAt
	return n, nil
}

// Delete 先删除正文，再删除元数据行
func (s *Service) Delete(ctx context.Context, id, ownerID string) (err error) {
	defer func() { s.observe(OpDelete, Outcome(err)) }()

	n, err := s.findOwned(ctx, id, ownerID)
	if err != nil {
		return err
	}
	if err := s.blobs.Remove(ctx, n.FilePath); err != nil {
		return fmt.Errorf("%w: 无法删除笔记内容: %w", ErrStorage, err)
	}
	if err := s.meta.DeleteOwned(ctx, id, ownerID); err != nil {
		if errors.Is(err, ErrRowNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: 无法删除笔记记录: %w", ErrMetadata, err)
	}
	return nil
}

// Read 返回笔记和正文。正文缺失时返回空内容而不是错误。
func (s *Service) Read(ctx context.Context, id, ownerID string) (res *WithContent, err error) {
	defer func() { s.observe(OpRead, Outcome(err)) }()

	n, err := s.findOwned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	content, err := s.blobs.Download(ctx, n.FilePath)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			logging.Log.Warn().Str("note", n.ID).Str("path", n.FilePath).Msg("笔记正文缺失，按空内容返回")
			return &WithContent{Note: *n, Content: []byte{}, ContentMissing: true}, nil
		}
		return nil, fmt.Errorf("%w: 无法读取笔记内容: %w", ErrStorage, err)
	}
	return &WithContent{Note: *n, Content: content}, nil
}

// List 返回所有者的全部笔记，不含正文，最近修改的在前
func (s *Service) List(ctx context.Context, ownerID string) (notes []Note, err error) {
	defer func() { s.observe(OpList, Outcome(err)) }()

	notes, err = s.meta.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: 无法列出笔记: %w", ErrMetadata, err)
	}
	return notes, nil
}

// ListWithContent 在 List 的基础上并发读取正文。
// 单篇正文读取失败只会让该笔记带上占位内容，不会中断整个列表。
func (s *Service) ListWithContent(ctx context.Context, ownerID string) ([]WithContent, error) {
	notes, err := s.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	out := make([]WithContent, len(notes))
	var g errgroup.Group
	g.SetLimit(s.listConcurrency)
	for i := range notes {
		i := i
		out[i].Note = notes[i]
		g.Go(func() error {
			content, err := s.blobs.Download(ctx, notes[i].FilePath)
			if err != nil {
				if !errors.Is(err, blob.ErrNotFound) {
					logging.Log.Warn().Err(err).Str("note", notes[i].ID).Msg("批量读取正文失败，使用占位内容")
				}
				out[i].Content = []byte{}
				out[i].ContentMissing = true
				return nil
			}
			out[i].Content = content
			return nil
		})
	}
	_ = g.Wait()
	return out, nil
}
