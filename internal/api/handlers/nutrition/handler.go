package nutrition

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"recipe-nutrition/internal/api/response"
	"recipe-nutrition/internal/core/batch"
	core "recipe-nutrition/internal/core/nutrition"
	"recipe-nutrition/internal/core/verify"
	"recipe-nutrition/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ConversionAdmin 換算表維護
type ConversionAdmin interface {
	UpsertConversionFactor(ctx context.Context, factor *core.ConversionFactor) error
	ListConversionFactors(ctx context.Context, key string) ([]core.ConversionFactor, error)
}

// BatchQueue 批次隊列
type BatchQueue interface {
	Enqueue(rows []batch.Row) (string, <-chan batch.Outcome, error)
	Job(id string) (batch.JobStatus, bool)
}

// Handler 營養計算相關 API
type Handler struct {
	estimator   *core.Estimator
	reconciler  *core.Reconciler
	verifier    *verify.Service
	queue       BatchQueue
	conversions ConversionAdmin
}

// NewHandler 創建營養處理程序
func NewHandler(estimator *core.Estimator, reconciler *core.Reconciler, verifier *verify.Service, queue BatchQueue, conversions ConversionAdmin) *Handler {
	return &Handler{
		estimator:   estimator,
		reconciler:  reconciler,
		verifier:    verifier,
		queue:       queue,
		conversions: conversions,
	}
}

// Register 註冊路由
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/estimate", h.HandleEstimate)
	rg.POST("/contribution", h.HandleContribution)
	rg.POST("/grams", h.HandleGrams)
	rg.GET("/classify", h.HandleClassify)
	rg.GET("/density", h.HandleDensity)
	rg.POST("/standardize", h.HandleStandardize)
	rg.POST("/reconcile", h.HandleReconcile)
	rg.POST("/verify", h.HandleVerify)
	rg.POST("/batch-update", h.HandleBatchUpdate)
	rg.GET("/batch-update/:id", h.HandleBatchStatus)
	rg.POST("/conversions", h.HandleUpsertConversion)
	rg.GET("/conversions", h.HandleListConversions)
}

// EstimateRequest 整份食譜估算；ingredients 接受字串或物件陣列
type EstimateRequest struct {
	Ingredients json.RawMessage `json:"ingredients" binding:"required"`
	Servings    float64         `json:"servings"`
}

// HandleEstimate 估算每份營養值
func (h *Handler) HandleEstimate(c *gin.Context) {
	var req EstimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	ingredients := core.NormalizeIngredients(req.Ingredients)
	result := h.estimator.EstimateNutrition(c.Request.Context(), ingredients, req.Servings)

	common.LogInfo("營養估算完成",
		zap.Int("ingredients", len(ingredients)),
		zap.Float64("servings", req.Servings),
		zap.Float64("calories", result.Calories),
		zap.String("request_id", requestid.Get(c)),
	)
	c.JSON(http.StatusOK, result)
}

// ContributionRequest 單一食材估算
type ContributionRequest struct {
	Ingredient json.RawMessage `json:"ingredient" binding:"required"`
}

// HandleContribution 估算單一食材的營養貢獻
func (h *Handler) HandleContribution(c *gin.Context) {
	var req ContributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	ing := core.NormalizeIngredient(req.Ingredient)
	if ing.Item == "" {
		response.BadRequest(c, errors.New("ingredient item is required"))
		return
	}
	c.JSON(http.StatusOK, h.estimator.EstimateIngredientContribution(c.Request.Context(), ing))
}

// GramsRequest 數量換算公克；quantity 可為數字或 "1 1/2" 之類的字串
type GramsRequest struct {
	Quantity   interface{} `json:"quantity"`
	Unit       string      `json:"unit"`
	Ingredient string      `json:"ingredient"`
}

// GramsResponse 換算結果
type GramsResponse struct {
	core.GramsResult
	Category core.Category `json:"category"`
	Unit     string        `json:"normalized_unit"`
}

// HandleGrams 數量換算公克
func (h *Handler) HandleGrams(c *gin.Context) {
	var req GramsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	qty := core.ParseQuantity(req.Quantity)
	result := h.estimator.Resolver().ResolveGrams(c.Request.Context(), qty, req.Unit, req.Ingredient)
	c.JSON(http.StatusOK, GramsResponse{
		GramsResult: result,
		Category:    core.Classify(req.Ingredient),
		Unit:        core.NormalizeUnit(req.Unit),
	})
}

// HandleClassify 食材分類
func (h *Handler) HandleClassify(c *gin.Context) {
	name := strings.TrimSpace(c.Query("ingredient"))
	if name == "" {
		response.BadRequest(c, errors.New("query parameter ingredient is required"))
		return
	}

	category := core.Classify(name)
	c.JSON(http.StatusOK, gin.H{
		"ingredient": name,
		"category":   category,
		"department": core.Department(category),
	})
}

// HandleDensity 密度估計
func (h *Handler) HandleDensity(c *gin.Context) {
	name := strings.TrimSpace(c.Query("ingredient"))
	if name == "" {
		response.BadRequest(c, errors.New("query parameter ingredient is required"))
		return
	}

	d := core.EstimateDensity(name)
	c.JSON(http.StatusOK, gin.H{
		"ingredient":     name,
		"value_g_per_ml": d.GramsPerML,
		"confidence":     d.Confidence,
	})
}

// StandardizeRequest 標準化請求，兩個欄位皆可省略
type StandardizeRequest struct {
	Nutrition    json.RawMessage `json:"nutrition"`
	ScienceNotes json.RawMessage `json:"science_notes"`
}

// StandardizeResponse 標準化結果
type StandardizeResponse struct {
	Nutrition    *core.Nutrition `json:"nutrition,omitempty"`
	Valid        bool            `json:"valid"`
	ScienceNotes []string        `json:"science_notes"`
}

// HandleStandardize 標準化營養物件與科學筆記
func (h *Handler) HandleStandardize(c *gin.Context) {
	var req StandardizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	resp := StandardizeResponse{
		ScienceNotes: core.StandardizeScienceNotes(req.ScienceNotes),
	}
	if !common.IsJSONNull(req.Nutrition) {
		n := core.StandardizeNutrition(req.Nutrition)
		resp.Nutrition = &n
		resp.Valid = core.ValidateNutrition(req.Nutrition)
	}
	c.JSON(http.StatusOK, resp)
}

// ReconcileRequest 以已查得的權威資料校正
type ReconcileRequest struct {
	Nutrition        json.RawMessage           `json:"nutrition" binding:"required"`
	Verified         []core.VerifiedIngredient `json:"verified"`
	ThresholdPercent *float64                  `json:"threshold_percent"`
}

// HandleReconcile 校正營養值
func (h *Handler) HandleReconcile(c *gin.Context) {
	var req ReconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	reconciler := h.reconciler
	if req.ThresholdPercent != nil {
		if *req.ThresholdPercent < 0 || !common.IsFinite(*req.ThresholdPercent) {
			response.BadRequest(c, errors.New("threshold_percent must be a non-negative number"))
			return
		}
		override := *h.reconciler
		override.Threshold = *req.ThresholdPercent
		reconciler = &override
	}

	existing := core.StandardizeNutrition(req.Nutrition)
	c.JSON(http.StatusOK, reconciler.Reconcile(existing, req.Verified))
}

// VerifyRequest 向外部來源查詢並校正
type VerifyRequest struct {
	Ingredients json.RawMessage `json:"ingredients" binding:"required"`
	Servings    float64         `json:"servings"`
	Nutrition   json.RawMessage `json:"nutrition" binding:"required"`
}

// HandleVerify 查詢外部來源並校正
func (h *Handler) HandleVerify(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	result, err := h.verifier.Verify(c.Request.Context(), verify.VerifyRequest{
		Ingredients: core.NormalizeIngredients(req.Ingredients),
		Servings:    req.Servings,
		Nutrition:   core.StandardizeNutrition(req.Nutrition),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// BatchUpdateRequest 批次更新請求
type BatchUpdateRequest struct {
	Rows  []batch.Row `json:"rows" binding:"required,dive"`
	Async bool        `json:"async"`
}

// HandleBatchUpdate 排入批次隊列；同步模式在請求逾時前等待結果
func (h *Handler) HandleBatchUpdate(c *gin.Context) {
	var req BatchUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	id, done, err := h.queue.Enqueue(req.Rows)
	if err != nil {
		response.Error(c, err)
		return
	}

	if req.Async {
		c.JSON(http.StatusAccepted, gin.H{"job_id": id, "state": batch.JobQueued})
		return
	}

	select {
	case out := <-done:
		if out.Error != nil {
			response.Error(c, out.Error)
			return
		}
		c.JSON(http.StatusOK, gin.H{"job_id": id, "result": out.Result})
	case <-c.Request.Context().Done():
		c.JSON(http.StatusAccepted, gin.H{"job_id": id, "state": batch.JobRunning})
	}
}

// HandleBatchStatus 查詢批次工作狀態
func (h *Handler) HandleBatchStatus(c *gin.Context) {
	status, ok := h.queue.Job(c.Param("id"))
	if !ok {
		response.Error(c, common.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, status)
}

// HandleUpsertConversion 新增或覆寫換算係數
func (h *Handler) HandleUpsertConversion(c *gin.Context) {
	var factor core.ConversionFactor
	if err := c.ShouldBindJSON(&factor); err != nil {
		response.BadRequest(c, err)
		return
	}

	if err := h.conversions.UpsertConversionFactor(c.Request.Context(), &factor); err != nil {
		response.Error(c, err)
		return
	}

	common.LogInfo("換算係數已更新",
		zap.String("from_unit", factor.FromUnit),
		zap.String("food_category", factor.Key),
		zap.Float64("conversion_factor", factor.Factor),
	)
	c.JSON(http.StatusCreated, factor)
}

// HandleListConversions 列出換算係數
func (h *Handler) HandleListConversions(c *gin.Context) {
	factors, err := h.conversions.ListConversionFactors(c.Request.Context(), c.Query("key"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversions": factors})
}
