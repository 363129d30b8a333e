// Package startup 负责按顺序初始化应用的全部依赖
package startup

import (
	"context"
	"fmt"
	"io"

	"github.com/SlpAus/space-notes-backend/internal/blob"
	"github.com/SlpAus/space-notes-backend/internal/gate"
	"github.com/SlpAus/space-notes-backend/internal/note"
	"github.com/SlpAus/space-notes-backend/internal/platform/config"
	"github.com/SlpAus/space-notes-backend/internal/platform/database"
	"github.com/SlpAus/space-notes-backend/internal/platform/health"
	"github.com/SlpAus/space-notes-backend/internal/platform/logging"
	"github.com/SlpAus/space-notes-backend/internal/platform/metadata"
	"github.com/SlpAus/space-notes-backend/internal/platform/metrics"
	"github.com/SlpAus/space-notes-backend/internal/platform/reconcile"
	"github.com/SlpAus/space-notes-backend/internal/user"
	"github.com/SlpAus/space-notes-backend/pkg/token"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// gateKeyContext 区分口令门签名密钥和JWT密钥
const gateKeyContext = "space-notes/gate:"

// App 持有已初始化的全部依赖
type App struct {
	Config *config.Config
	DB     *gorm.DB
	Blobs  blob.Store

	// RDB 和 Checker 只在口令门开启时存在
	RDB     *redis.Client
	Health  *health.Status
	Checker *health.Checker

	Users   *user.Service
	Notes   *note.Service
	Gate    *gate.Gate
	Sweeper *reconcile.Sweeper
}

// Migrate 迁移全部表结构
func Migrate(db *gorm.DB) error {
	if err := metadata.Migrate(db); err != nil {
		return err
	}
	if err := user.Migrate(db); err != nil {
		return err
	}
	return note.Migrate(db)
}

// InitLogging 初始化日志并返回gorm复用的writer
func InitLogging(cfg *config.Config) (io.Writer, error) {
	w, err := logging.Init(cfg.Log.Level, cfg.Log.Output)
	if err != nil {
		return nil, fmt.Errorf("无法初始化日志: %w", err)
	}
	return w, nil
}

// OpenStores 打开元数据库并完成迁移，然后打开blob存储
func OpenStores(ctx context.Context, cfg *config.Config, logOutput io.Writer) (*gorm.DB, blob.Store, error) {
	db, err := database.InitDB(cfg.Database, logOutput)
	if err != nil {
		return nil, nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, nil, err
	}
	logging.Log.Info().Str("driver", cfg.Database.Driver).Msg("数据库表迁移成功。")

	blobs, err := blob.New(ctx, cfg.Blob)
	if err != nil {
		return nil, nil, fmt.Errorf("无法打开blob存储: %w", err)
	}
	logging.Log.Info().Str("driver", cfg.Blob.Driver).Msg("blob存储已就绪。")
	return db, blobs, nil
}

// NewSweeper 使用配置创建对账器
func NewSweeper(cfg *config.Config, db *gorm.DB, blobs blob.Store, dryRun bool) *reconcile.Sweeper {
	return reconcile.NewSweeper(blobs, note.NewGormStore(db), db, cfg.Reconcile.GracePeriod, dryRun || cfg.Reconcile.DryRun)
}

// ConnectGate 连接Redis并创建口令门
func ConnectGate(ctx context.Context, cfg *config.Config) (*gate.Gate, *redis.Client, error) {
	signer := token.NewSigner([]byte(gateKeyContext + cfg.Auth.JWTSecret))
	if cfg.Gate.Password == "" {
		return gate.New("", cfg.Gate.TTL, nil, signer), nil, nil
	}
	rdb, err := database.InitRedis(ctx, cfg.Database.Redis)
	if err != nil {
		return nil, nil, err
	}
	return gate.New(cfg.Gate.Password, cfg.Gate.TTL, rdb, signer), rdb, nil
}

// InitializeApplication 是 serve 命令的初始化总入口
func InitializeApplication(ctx context.Context, cfg *config.Config, logOutput io.Writer) (*App, error) {
	logging.Log.Info().Msg("开始应用初始化...")

	db, blobs, err := OpenStores(ctx, cfg, logOutput)
	if err != nil {
		return nil, err
	}

	app := &App{Config: cfg, DB: db, Blobs: blobs}

	app.Gate, app.RDB, err = ConnectGate(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if app.RDB != nil {
		app.Health = health.NewStatus()
		app.Checker = health.NewChecker(app.RDB, app.Health)
		app.Checker.OnRestart = HandleRedisRestart
		app.Checker.InitializeRunID(ctx)
		app.Checker.PerformCheck(ctx)
		logging.Log.Info().Msg("口令门已开启。")
	} else {
		logging.Log.Info().Msg("未配置口令，口令门关闭。")
	}

	app.Users = user.NewService(db, user.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL))
	app.Notes = note.NewService(note.NewGormStore(db), blobs,
		note.WithCreateCompensation(cfg.Notes.CompensateCreate),
		note.WithMaxContentBytes(cfg.Notes.MaxContentBytes),
		note.WithListConcurrency(cfg.Notes.ListConcurrency),
		note.WithObserver(metrics.ObserveNoteOperation),
	)
	if cfg.Reconcile.Enabled {
		app.Sweeper = NewSweeper(cfg, db, blobs, false)
	}

	logging.Log.Info().Msg("应用初始化完成！")
	return app, nil
}

// HandleRedisRestart 在检测到Redis重启后调用。会话随Redis一起丢失，用户需要重新输入口令。
func HandleRedisRestart() {
	logging.Log.Warn().Msg("检测到Redis已重启，所有口令门会话已失效。")
}

// Close 释放连接
func (a *App) Close() {
	if a.RDB != nil {
		if err := a.RDB.Close(); err != nil {
			logging.Log.Warn().Err(err).Msg("关闭Redis连接失败")
		}
	}
	if a.DB != nil {
		if err := CloseDB(a.DB); err != nil {
			logging.Log.Warn().Err(err).Msg("关闭数据库连接失败")
		}
	}
}

// CloseDB 关闭 gorm 底层的连接池
func CloseDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
