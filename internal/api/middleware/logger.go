package middleware

import (
	"net/http"
	"time"

	"recipe-nutrition/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 探測類路由只在 debug 級別記錄
var quietRoutes = map[string]bool{
	"/health":  true,
	"/ready":   true,
	"/live":    true,
	"/metrics": true,
}

// routeOf 路由模板（/recipes/:id），未匹配時為 unmatched，與 metrics 標籤一致
func routeOf(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unmatched"
}

// Logger 以路由模板記錄每個請求；有處理錯誤時附上錯誤代碼
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := routeOf(c)
		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("route", route),
			zap.String("method", c.Request.Method),
			zap.Int("status", status),
			zap.Float64("latency_ms", float64(time.Since(start).Microseconds())/1000),
			zap.Int("bytes", c.Writer.Size()),
			zap.String("request_id", requestid.Get(c)),
		}
		if route == "unmatched" || route != c.Request.URL.Path {
			fields = append(fields, zap.String("path", c.Request.URL.Path))
		}
		if last := c.Errors.Last(); last != nil {
			ce := common.AsCustomError(last.Err)
			fields = append(fields, zap.String("error_code", ce.Code), zap.Error(last.Err))
		}

		switch {
		case status >= http.StatusInternalServerError:
			common.LogError("請求失敗", fields...)
		case status >= http.StatusBadRequest:
			common.LogWarn("請求被拒", fields...)
		case quietRoutes[route]:
			common.LogDebug("請求完成", fields...)
		default:
			common.LogInfo("請求完成", fields...)
		}
	}
}

// Recovery 攔截 panic，回傳與 response.Error 相同格式的 500
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				common.LogError("Panic recovered",
					zap.Any("panic", rec),
					zap.String("route", routeOf(c)),
					zap.String("method", c.Request.Method),
					zap.String("request_id", requestid.Get(c)),
					zap.Stack("stack"),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, common.ErrInternalError.ToResponse(false))
			}
		}()

		c.Next()
	}
}
