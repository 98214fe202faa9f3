package api

import (
	"context"
	"time"

	"recipe-nutrition/internal/api/handlers/health"
	nutritionHandler "recipe-nutrition/internal/api/handlers/nutrition"
	recipeHandler "recipe-nutrition/internal/api/handlers/recipe"
	"recipe-nutrition/internal/api/middleware"
	"recipe-nutrition/internal/core/batch"
	"recipe-nutrition/internal/core/nutrition"
	"recipe-nutrition/internal/core/verify"
	"recipe-nutrition/internal/infrastructure/config"
	"recipe-nutrition/internal/infrastructure/metrics"
	"recipe-nutrition/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// 預設超時
	defaultTimeout = 30 * time.Second
	// 請求體大小限制 (1MB)
	defaultMaxBodySize = 1 << 20
)

// Services 路由需要的服務
type Services struct {
	Estimator    *nutrition.Estimator
	Reconciler   *nutrition.Reconciler
	Verifier     *verify.Service
	Queue        *batch.Queue
	Conversions  nutritionHandler.ConversionAdmin
	Recipes      recipeHandler.Store
	Metrics      *metrics.Metrics
	Deduplicator *middleware.Deduplicator
	Checks       map[string]health.Check
}

// ConversionAdmin 寫入走快取層（清除快取），列表直接查資料庫
type ConversionAdmin struct {
	Writer interface {
		UpsertConversionFactor(ctx context.Context, factor *nutrition.ConversionFactor) error
	}
	Lister interface {
		ListConversionFactors(ctx context.Context, key string) ([]nutrition.ConversionFactor, error)
	}
}

// UpsertConversionFactor 新增或覆寫換算係數
func (a ConversionAdmin) UpsertConversionFactor(ctx context.Context, factor *nutrition.ConversionFactor) error {
	return a.Writer.UpsertConversionFactor(ctx, factor)
}

// ListConversionFactors 列出換算係數
func (a ConversionAdmin) ListConversionFactors(ctx context.Context, key string) ([]nutrition.ConversionFactor, error) {
	return a.Lister.ListConversionFactors(ctx, key)
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, svc Services) *gin.Engine {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	timeout := cfg.Server.RequestTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxBodySize := cfg.Server.MaxBodyBytes
	if maxBodySize <= 0 {
		maxBodySize = defaultMaxBodySize
	}

	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(requestid.New())
	if svc.Metrics != nil {
		router.Use(svc.Metrics.Middleware())
	}

	// CORS 設置
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	router.Use(middleware.BodySizeLimit(maxBodySize))

	// 健康檢查路由
	var queueStatus func() *batch.Status
	if svc.Queue != nil {
		queueStatus = svc.Queue.GetQueueStatus
	}
	health.NewHandler(cfg.App.Version, queueStatus, svc.Checks).Register(router)

	if svc.Metrics != nil && cfg.Metrics.Enabled {
		path := cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		router.GET(path, gin.WrapH(svc.Metrics.Handler()))
	}

	// API 路由組
	api := router.Group("/api/v1")
	if cfg.RateLimit.Enabled {
		api.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}
	if svc.Deduplicator != nil {
		api.Use(svc.Deduplicator.Middleware())
	}
	api.Use(middleware.Timeout(timeout))
	{
		nutritionHandler.NewHandler(
			svc.Estimator,
			svc.Reconciler,
			svc.Verifier,
			svc.Queue,
			svc.Conversions,
		).Register(api.Group("/nutrition"))

		recipeHandler.NewHandler(
			svc.Recipes,
			svc.Estimator,
			svc.Verifier,
		).Register(api.Group("/recipes"))
	}

	common.LogInfo("Router setup completed successfully",
		zap.Bool("metrics_enabled", svc.Metrics != nil),
		zap.Bool("rate_limit_enabled", cfg.RateLimit.Enabled),
		zap.Duration("timeout", timeout),
		zap.Int64("max_body_size", maxBodySize),
	)

	return router
}
