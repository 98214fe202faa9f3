package recipe

import (
	"context"
	"encoding/json"
	"net/http"

	"recipe-nutrition/internal/api/response"
	core "recipe-nutrition/internal/core/nutrition"
	"recipe-nutrition/internal/core/verify"
	"recipe-nutrition/internal/infrastructure/persistence"
	"recipe-nutrition/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Store 食譜存取
type Store interface {
	Create(ctx context.Context, recipe *persistence.Recipe) error
	FindByID(ctx context.Context, id string) (*persistence.Recipe, error)
	UpdateNutrition(ctx context.Context, id string, n core.Nutrition) error
}

// Handler 以食譜為單位的營養計算
type Handler struct {
	store     Store
	estimator *core.Estimator
	verifier  *verify.Service
}

// NewHandler 創建食譜處理程序
func NewHandler(store Store, estimator *core.Estimator, verifier *verify.Service) *Handler {
	return &Handler{
		store:     store,
		estimator: estimator,
		verifier:  verifier,
	}
}

// Register 註冊路由
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("", h.HandleCreate)
	rg.GET("/:id", h.HandleGet)
	rg.POST("/:id/nutrition", h.HandleEstimate)
	rg.POST("/:id/verify", h.HandleVerify)
}

// CreateRequest 新增食譜；ingredients 接受字串或物件陣列
type CreateRequest struct {
	Title        string          `json:"title" binding:"required"`
	Servings     float64         `json:"servings"`
	Ingredients  json.RawMessage `json:"ingredients"`
	ScienceNotes json.RawMessage `json:"science_notes"`
}

// HandleCreate 新增食譜
func (h *Handler) HandleCreate(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	recipe := &persistence.Recipe{
		Title:        req.Title,
		Servings:     req.Servings,
		Ingredients:  core.NormalizeIngredients(req.Ingredients),
		ScienceNotes: core.StandardizeScienceNotes(req.ScienceNotes),
	}
	if err := h.store.Create(c.Request.Context(), recipe); err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, recipe)
}

// HandleGet 取得食譜
func (h *Handler) HandleGet(c *gin.Context) {
	recipe, err := h.store.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

// HandleEstimate 以儲存的食材重新估算並寫回
func (h *Handler) HandleEstimate(c *gin.Context) {
	ctx := c.Request.Context()
	recipe, err := h.store.FindByID(ctx, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	result := h.estimator.EstimateNutrition(ctx, recipe.Ingredients, recipe.Servings)
	if err := h.store.UpdateNutrition(ctx, recipe.ID, result); err != nil {
		response.Error(c, err)
		return
	}

	common.LogInfo("食譜營養已更新",
		zap.String("recipe_id", recipe.ID),
		zap.Float64("calories", result.Calories),
		zap.String("request_id", requestid.Get(c)),
	)
	c.JSON(http.StatusOK, result)
}

// HandleVerify 校正儲存的營養值，有欄位被覆寫時寫回
func (h *Handler) HandleVerify(c *gin.Context) {
	ctx := c.Request.Context()
	recipe, err := h.store.FindByID(ctx, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	existing := recipe.Nutrition
	if existing == nil {
		estimated := h.estimator.EstimateNutrition(ctx, recipe.Ingredients, recipe.Servings)
		existing = &estimated
	}

	result, err := h.verifier.Verify(ctx, verify.VerifyRequest{
		Ingredients: recipe.Ingredients,
		Servings:    recipe.Servings,
		Nutrition:   *existing,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	if result.Verified {
		if err := h.store.UpdateNutrition(ctx, recipe.ID, result.UpdatedNutrition); err != nil {
			response.Error(c, err)
			return
		}
		common.LogInfo("食譜營養已校正",
			zap.String("recipe_id", recipe.ID),
			zap.Strings("updated", result.VerificationDetails.VerifiedNutrients),
		)
	}
	c.JSON(http.StatusOK, result)
}
