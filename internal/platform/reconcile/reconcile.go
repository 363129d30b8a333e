// Package reconcile 定期清理没有元数据引用的孤儿正文。
// 正文缺失的笔记只做报告，读取路径已经能容忍这种情况。
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/SlpAus/space-notes-backend/internal/blob"
	"github.com/SlpAus/space-notes-backend/internal/platform/logging"
	"github.com/SlpAus/space-notes-backend/internal/platform/metadata"
	"github.com/SlpAus/space-notes-backend/internal/platform/metrics"
	"github.com/SlpAus/space-notes-backend/pkg/lifecycle"
	"gorm.io/gorm"
)

// PathSource 提供全部被引用的正文路径
type PathSource interface {
	FilePaths(ctx context.Context) ([]string, error)
}

// Report 是一次对账的结果
type Report struct {
	Scanned    int
	Referenced int
	// Orphans 是超过宽限期且没有被引用的正文
	Orphans []string
	// Removed 是实际删除的数量，DryRun时为0
	Removed int
	// Dangling 是指向缺失正文的路径
	Dangling   []string
	DryRun     bool
	FinishedAt time.Time
}

// Sweeper 执行对账
type Sweeper struct {
	blobs       blob.Store
	paths       PathSource
	db          *gorm.DB
	gracePeriod time.Duration
	dryRun      bool
	now         func() time.Time

	mu sync.Mutex // 避免两次对账重叠
}

// NewSweeper 创建对账器。db 用于记录最近一次结果，可以为nil。
func NewSweeper(blobs blob.Store, paths PathSource, db *gorm.DB, gracePeriod time.Duration, dryRun bool) *Sweeper {
	return &Sweeper{
		blobs:       blobs,
		paths:       paths,
		db:          db,
		gracePeriod: gracePeriod,
		dryRun:      dryRun,
		now:         time.Now,
	}
}

// Sweep 执行一次对账。
// 先列出正文再读取引用，这样在列出正文之前已插入行的创建不会被误判为孤儿；
// 其余正在进行的创建由宽限期保护。
func (s *Sweeper) Sweep(ctx context.Context) (*Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	objects, err := s.blobs.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("无法列出正文: %w", err)
	}
	paths, err := s.paths.FilePaths(ctx)
	if err != nil {
		return nil, fmt.Errorf("无法读取引用路径: %w", err)
	}

	referenced := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		referenced[p] = struct{}{}
	}
	stored := make(map[string]struct{}, len(objects))

	report := &Report{Scanned: len(objects), Referenced: len(paths), DryRun: s.dryRun}
	cutoff := s.now().Add(-s.gracePeriod)
	for _, obj := range objects {
		stored[obj.Path] = struct{}{}
		if _, ok := referenced[obj.Path]; ok {
			continue
		}
		if obj.ModTime.After(cutoff) {
			continue
		}
		report.Orphans = append(report.Orphans, obj.Path)
	}
	for _, p := range paths {
		if _, ok := stored[p]; !ok {
			report.Dangling = append(report.Dangling, p)
		}
	}
	sort.Strings(report.Dangling)

	if len(report.Orphans) > 0 && !s.dryRun {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.blobs.Remove(ctx, report.Orphans...); err != nil {
			return nil, fmt.Errorf("无法删除孤儿正文: %w", err)
		}
		report.Removed = len(report.Orphans)
		metrics.ReconcileRemoved.Add(float64(report.Removed))
	}
	metrics.ReconcileDangling.Set(float64(len(report.Dangling)))

	report.FinishedAt = s.now()
	if s.db != nil {
		if err := s.record(ctx, report); err != nil {
			logging.Log.Warn().Err(err).Msg("对账: 无法记录本次结果")
		}
	}
	return report, nil
}

func (s *Sweeper) record(ctx context.Context, report *Report) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := metadata.SetTime(ctx, tx, metadata.LastReconcileAtKey, report.FinishedAt); err != nil {
			return err
		}
		if err := metadata.SetInt(ctx, tx, metadata.LastReconcileRemovedKey, int64(report.Removed)); err != nil {
			return err
		}
		return metadata.SetInt(ctx, tx, metadata.LastReconcileDanglingKey, int64(len(report.Dangling)))
	})
}

// Run 按固定间隔执行对账，直到收到停机信号
func (s *Sweeper) Run(handle *lifecycle.Handle, interval time.Duration) {
	defer handle.Close()
	logging.Log.Info().Dur("interval", interval).Bool("dry_run", s.dryRun).Msg("对账调度器已启动。")

	for {
		if err := handle.Sleep(interval); err != nil {
			logging.Log.Info().Msg("对账调度器: 休眠被中断，正在关闭...")
			return
		}

		report, err := s.Sweep(handle.Ctx())
		if err != nil {
			if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				logging.Log.Error().Err(err).Msg("对账调度器: 执行对账失败")
			}
			continue
		}
		LogReport(report)
	}
}

// LogReport 输出对账结果
func LogReport(report *Report) {
	event := logging.Log.Info()
	if len(report.Dangling) > 0 {
		event = logging.Log.Warn().Strs("dangling", report.Dangling)
	}
	event.
		Int("scanned", report.Scanned).
		Int("referenced", report.Referenced).
		Int("orphans", len(report.Orphans)).
		Int("removed", report.Removed).
		Bool("dry_run", report.DryRun).
		Msg("对账完成")
}
