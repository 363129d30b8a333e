package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/SlpAus/space-notes-backend/api"
	"github.com/SlpAus/space-notes-backend/internal/platform/config"
	"github.com/SlpAus/space-notes-backend/internal/platform/logging"
	"github.com/SlpAus/space-notes-backend/internal/platform/reconcile"
	"github.com/SlpAus/space-notes-backend/internal/platform/shutdown"
	"github.com/SlpAus/space-notes-backend/internal/platform/startup"
	"github.com/SlpAus/space-notes-backend/pkg/lifecycle"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

// NewRootCmd 创建 space-notes 命令。不带子命令时等同于 serve。
func NewRootCmd() *cobra.Command {
	var configDir string

	load := func() (*config.Config, io.Writer, error) {
		var paths []string
		if configDir != "" {
			paths = append(paths, configDir)
		}
		cfg, err := config.LoadConfig(paths...)
		if err != nil {
			return nil, nil, fmt.Errorf("无法加载配置: %w", err)
		}
		w, err := startup.InitLogging(cfg)
		if err != nil {
			return nil, nil, err
		}
		return cfg, w, nil
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "启动HTTP服务",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, w, err := load()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, w)
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "迁移数据库表结构后退出",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, w, err := load()
			if err != nil {
				return err
			}
			db, _, err := startup.OpenStores(cmd.Context(), cfg, w)
			if err != nil {
				return err
			}
			return startup.CloseDB(db)
		},
	}

	var dryRun bool
	reconcileCmd := &cobra.Command{
		Use:   "reconcile",
		Short: "执行一次对账，删除没有被引用的孤儿正文",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, w, err := load()
			if err != nil {
				return err
			}
			db, blobs, err := startup.OpenStores(cmd.Context(), cfg, w)
			if err != nil {
				return err
			}
			defer startup.CloseDB(db)
			report, err := startup.NewSweeper(cfg, db, blobs, dryRun).Sweep(cmd.Context())
			if err != nil {
				return err
			}
			reconcile.LogReport(report)
			for _, p := range report.Orphans {
				fmt.Fprintln(cmd.OutOrStdout(), "orphan", p)
			}
			for _, p := range report.Dangling {
				fmt.Fprintln(cmd.OutOrStdout(), "dangling", p)
			}
			return nil
		},
	}
	reconcileCmd.Flags().BoolVar(&dryRun, "dry-run", false, "只报告，不删除")

	gateCmd := &cobra.Command{
		Use:   "gate",
		Short: "管理口令门会话",
	}
	gateCmd.AddCommand(&cobra.Command{
		Use:   "revoke",
		Short: "使全部口令门会话失效",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := load()
			if err != nil {
				return err
			}
			g, rdb, err := startup.ConnectGate(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			if rdb == nil {
				return errors.New("未配置 gate.password，口令门关闭")
			}
			defer rdb.Close()
			n, err := g.RevokeAll(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "已删除 %d 个会话\n", n)
			return nil
		},
	})

	rootCmd := &cobra.Command{
		Use:          "space-notes",
		Short:        "带访问口令的多用户Markdown笔记服务",
		SilenceUsage: true,
		RunE:         serveCmd.RunE,
	}
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "config.yaml 所在目录")
	rootCmd.AddCommand(serveCmd, migrateCmd, reconcileCmd, gateCmd)
	return rootCmd
}

func serve(ctx context.Context, cfg *config.Config, logOutput io.Writer) error {
	gin.SetMode(cfg.Server.Mode)

	app, err := startup.InitializeApplication(ctx, cfg, logOutput)
	if err != nil {
		return fmt.Errorf("应用初始化失败，无法启动: %w", err)
	}

	gracefulMgr := lifecycle.NewManager("graceful", logging.Log)
	forcefulMgr := lifecycle.NewManager("forceful", logging.Log)

	if app.Checker != nil {
		if err := gracefulMgr.Go("redis-health", app.Checker.Run); err != nil {
			return err
		}
	}
	if app.Sweeper != nil {
		interval := cfg.Reconcile.Interval
		if err := gracefulMgr.Go("reconcile", func(h *lifecycle.Handle) { app.Sweeper.Run(h, interval) }); err != nil {
			return err
		}
	}

	server := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: api.NewRouter(app),
	}
	serverErr := make(chan error, 1)
	go func() {
		logging.Log.Info().Str("address", cfg.Server.Address).Msg("服务器已准备就绪，开始监听")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	coordinator := shutdown.NewCoordinator(gracefulMgr, forcefulMgr)
	coordinator.Finalizers = append(coordinator.Finalizers, app.Close)

	listenCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	var listenErr error
	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		select {
		case err := <-serverErr:
			logging.Log.Error().Err(err).Msg("HTTP服务器异常退出")
			listenErr = err
			cancel()
		case <-listenCtx.Done():
		}
	}()
	coordinator.ListenForSignalsAndShutdown(listenCtx, server)
	cancel()
	<-watchDone
	if listenErr != nil {
		return fmt.Errorf("HTTP服务器异常退出: %w", listenErr)
	}
	return nil
}
