package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recipe-nutrition/internal/api"
	"recipe-nutrition/internal/api/handlers/health"
	"recipe-nutrition/internal/api/middleware"
	"recipe-nutrition/internal/core/batch"
	"recipe-nutrition/internal/core/cache"
	"recipe-nutrition/internal/core/fdc"
	"recipe-nutrition/internal/core/nutrition"
	"recipe-nutrition/internal/core/verify"
	"recipe-nutrition/internal/infrastructure/config"
	"recipe-nutrition/internal/infrastructure/metrics"
	"recipe-nutrition/internal/infrastructure/persistence"
	"recipe-nutrition/internal/pkg/common"

	"go.uber.org/zap"
)

func main() {
	// 載入設定（含 .env）
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel, cfg.App.Name); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("載入設定",
		zap.String("database_driver", cfg.Database.Driver),
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.Bool("fdc_enabled", cfg.FDC.Enabled),
		zap.String("fdc_api_key", cfg.FDC.APIKey),
	)

	// 資料庫
	db, err := persistence.Open(cfg.Database, cfg.App.Debug)
	if err != nil {
		common.LogFatal("Failed to open database", zap.Error(err))
	}
	defer func() {
		if err := persistence.Close(db); err != nil {
			common.LogWarn("Failed to close database", zap.Error(err))
		}
	}()
	if cfg.Database.SeedConversions {
		if err := persistence.SeedConversions(context.Background(), db); err != nil {
			common.LogFatal("Failed to seed conversions", zap.Error(err))
		}
	}

	// 快取
	lookupCache, err := cache.New(cfg)
	if err != nil {
		common.LogFatal("Failed to initialize cache", zap.Error(err))
	}
	if lookupCache != nil {
		defer lookupCache.Close()
	}

	// 監控
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		if mgr, ok := lookupCache.(*cache.CacheManager); ok {
			m.RegisterCacheStats(mgr.GetStats)
		}
	}

	// 換算與估算
	conversionRepo := persistence.NewConversionRepository(db)
	conversionStore := cache.NewCachedConversionStore(conversionRepo, lookupCache)

	resolverOpts := []nutrition.ResolverOption{nutrition.WithConversionStore(conversionStore)}
	if m != nil {
		resolverOpts = append(resolverOpts, nutrition.WithObserver(m.ObserveConversion))
	}
	resolver := nutrition.NewResolver(resolverOpts...)
	estimator := nutrition.NewEstimator(resolver, cfg.Nutrition)
	reconciler := nutrition.NewReconciler(cfg.Verification.ThresholdPercent, cfg.Verification.Source)

	// 外部營養來源
	fdcOpts := []fdc.Option{fdc.WithCache(lookupCache)}
	var verifyOpts []verify.Option
	var batchOpts []batch.Option
	if m != nil {
		fdcOpts = append(fdcOpts, fdc.WithObserver(m.ObserveFDCLookup))
		verifyOpts = append(verifyOpts, verify.WithObserver(m.ObserveVerification))
		batchOpts = append(batchOpts, batch.WithObserver(m.ObserveBatchRow))
	}
	fdcClient := fdc.NewClient(cfg.FDC, fdcOpts...)
	verifier := verify.NewService(fdcClient, resolver, reconciler, verify.Config{
		BatchSize:  cfg.FDC.BatchSize,
		BatchDelay: cfg.FDC.BatchDelay,
	}, verifyOpts...)

	// 批次隊列
	recipes := persistence.NewRecipeRepository(db)
	queueCtx, stopQueue := context.WithCancel(context.Background())
	defer stopQueue()
	queue := batch.NewQueue(cfg.Queue, batch.NewService(recipes, batchOpts...))
	queue.Start(queueCtx)

	dedup := middleware.NewDeduplicator(cfg.DedupWindow)
	defer dedup.Stop()

	checks := map[string]health.Check{
		"database": func(ctx context.Context) error { return persistence.Ping(ctx, db) },
	}
	if pinger, ok := lookupCache.(*cache.Service); ok {
		checks["redis"] = pinger.Ping
	}

	router := api.SetupRouter(cfg, api.Services{
		Estimator:    estimator,
		Reconciler:   reconciler,
		Verifier:     verifier,
		Queue:        queue,
		Conversions:  api.ConversionAdmin{Writer: conversionStore, Lister: conversionRepo},
		Recipes:      recipes,
		Metrics:      m,
		Deduplicator: dedup,
		Checks:       checks,
	})

	// 設置 HTTP 服務器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 啟動服務器
	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Int("port", cfg.Server.Port),
			zap.Bool("debug", cfg.App.Debug),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			common.LogFatal("Failed to start server", zap.Error(err))
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	// 設置關閉超時
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
	}

	// 等待已排入的批次工作完成
	queue.Close()

	common.LogInfo("Server exited")
}
