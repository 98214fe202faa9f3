package response

import (
	"errors"
	"net/http"

	"recipe-nutrition/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Error 將錯誤轉為統一格式回應
func Error(c *gin.Context, err error) {
	ce := common.AsCustomError(err)
	if ce.Status >= http.StatusInternalServerError {
		common.LogError("請求處理失敗",
			zap.String("code", ce.Code),
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", requestid.Get(c)),
			zap.Error(err),
		)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(ce.Status, ce.ToResponse(gin.IsDebugging()))
}

// BadRequest 請求格式錯誤
func BadRequest(c *gin.Context, err error) {
	if err == nil {
		err = errors.New("invalid request")
	}
	Error(c, common.ErrInvalidRequest.Wrap(err))
}
