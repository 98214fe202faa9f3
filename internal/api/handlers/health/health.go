package health

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"recipe-nutrition/internal/core/batch"
	"recipe-nutrition/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const checkTimeout = 2 * time.Second

// Check 依賴檢查
type Check func(ctx context.Context) error

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status       string                 `json:"status"`
	Timestamp    time.Time              `json:"timestamp"`
	Version      string                 `json:"version"`
	Runtime      map[string]interface{} `json:"runtime"`
	Queue        *batch.Status          `json:"queue,omitempty"`
	Dependencies map[string]string      `json:"dependencies,omitempty"`
}

// Handler 健康檢查
type Handler struct {
	version string
	queue   func() *batch.Status
	checks  map[string]Check
}

// NewHandler 創建健康檢查處理程序，queue 可為 nil
func NewHandler(version string, queue func() *batch.Status, checks map[string]Check) *Handler {
	return &Handler{version: version, queue: queue, checks: checks}
}

// Register 註冊路由
func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/health", h.HealthCheck)
	r.GET("/ready", h.ReadinessCheck)
	r.GET("/live", h.LivenessCheck)
}

// HealthCheck 健康檢查處理器
func (h *Handler) HealthCheck(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	deps, healthy := h.runChecks(c.Request.Context())
	status := "ok"
	if !healthy {
		status = "degraded"
	}

	resp := HealthResponse{
		Status:    status,
		Timestamp: time.Now(),
		Version:   h.version,
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":       m.Alloc,
				"total_alloc": m.TotalAlloc,
				"sys":         m.Sys,
				"num_gc":      m.NumGC,
			},
		},
		Dependencies: deps,
	}
	if h.queue != nil {
		resp.Queue = h.queue()
	}

	common.LogDebug("Health check request",
		zap.String("client_ip", c.ClientIP()),
		zap.String("status", status),
	)
	c.JSON(http.StatusOK, resp)
}

// ReadinessCheck 就緒檢查處理器，任一依賴失敗回 503
func (h *Handler) ReadinessCheck(c *gin.Context) {
	deps, healthy := h.runChecks(c.Request.Context())
	if !healthy {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":       "not_ready",
			"dependencies": deps,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":       "ready",
		"dependencies": deps,
	})
}

// LivenessCheck 存活檢查處理器
func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}

func (h *Handler) runChecks(ctx context.Context) (map[string]string, bool) {
	if len(h.checks) == 0 {
		return nil, true
	}
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	healthy := true
	out := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			healthy = false
			out[name] = "error: " + err.Error()
			common.LogWarn("Dependency check failed", zap.String("dependency", name), zap.Error(err))
			continue
		}
		out[name] = "ok"
	}
	return out, healthy
}
