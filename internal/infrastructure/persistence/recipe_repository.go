package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"recipe-nutrition/internal/core/nutrition"
	"recipe-nutrition/internal/pkg/common"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Recipe 食譜（營養相關欄位）
type Recipe struct {
	ID           string                 `json:"id"`
	Title        string                 `json:"title"`
	Servings     float64                `json:"servings"`
	Ingredients  []nutrition.Ingredient `json:"ingredients"`
	Nutrition    *nutrition.Nutrition   `json:"nutrition,omitempty"`
	ScienceNotes []string               `json:"science_notes"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// RecipeRepository 食譜存取
type RecipeRepository struct {
	db *gorm.DB
}

// NewRecipeRepository 創建食譜存取
func NewRecipeRepository(db *gorm.DB) *RecipeRepository {
	return &RecipeRepository{db: db}
}

// Create 新增食譜，未指定 ID 時自動產生
func (r *RecipeRepository) Create(ctx context.Context, recipe *Recipe) error {
	if recipe == nil || strings.TrimSpace(recipe.Title) == "" {
		return common.ErrInvalidRequest.Wrap(errors.New("recipe title is required"))
	}
	if recipe.ID == "" {
		recipe.ID = common.GenerateUUID()
	}
	if recipe.Servings <= 0 {
		recipe.Servings = 1
	}

	model, err := toRecipeModel(recipe)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("create recipe: %w", err)
	}
	recipe.CreatedAt = model.CreatedAt
	recipe.UpdatedAt = model.UpdatedAt
	return nil
}

// FindByID 依 ID 取得食譜
func (r *RecipeRepository) FindByID(ctx context.Context, id string) (*Recipe, error) {
	var model RecipeModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.ErrRecipeNotFound.Wrap(fmt.Errorf("recipe %s not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("find recipe: %w", err)
	}
	return fromRecipeModel(&model), nil
}

// UpdateNutrition 覆寫營養欄位
func (r *RecipeRepository) UpdateNutrition(ctx context.Context, id string, n nutrition.Nutrition) error {
	b, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal nutrition: %w", err)
	}
	return r.updateColumn(ctx, id, "nutrition", datatypes.JSON(b))
}

// UpdateScienceNotes 覆寫科學筆記欄位
func (r *RecipeRepository) UpdateScienceNotes(ctx context.Context, id string, notes []string) error {
	if notes == nil {
		notes = []string{}
	}
	b, err := json.Marshal(notes)
	if err != nil {
		return fmt.Errorf("marshal science notes: %w", err)
	}
	return r.updateColumn(ctx, id, "science_notes", datatypes.JSON(b))
}

func (r *RecipeRepository) updateColumn(ctx context.Context, id, column string, value datatypes.JSON) error {
	result := r.db.WithContext(ctx).
		Model(&RecipeModel{}).
		Where("id = ?", id).
		Update(column, value)
	if result.Error != nil {
		return fmt.Errorf("update recipe %s: %w", column, result.Error)
	}
	if result.RowsAffected == 0 {
		return common.ErrRecipeNotFound.Wrap(fmt.Errorf("recipe %s not found", id))
	}
	return nil
}

// ListRaw 分頁取出原始營養與筆記欄位，供批次處理
func (r *RecipeRepository) ListRaw(ctx context.Context, offset, limit int) ([]RecipeModel, error) {
	var models []RecipeModel
	err := r.db.WithContext(ctx).
		Select("id", "nutrition", "science_notes").
		Order("id").
		Offset(offset).
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	return models, nil
}

func toRecipeModel(recipe *Recipe) (*RecipeModel, error) {
	ingredients := recipe.Ingredients
	if ingredients == nil {
		ingredients = []nutrition.Ingredient{}
	}
	ingJSON, err := json.Marshal(ingredients)
	if err != nil {
		return nil, fmt.Errorf("marshal ingredients: %w", err)
	}

	notes := recipe.ScienceNotes
	if notes == nil {
		notes = []string{}
	}
	notesJSON, err := json.Marshal(notes)
	if err != nil {
		return nil, fmt.Errorf("marshal science notes: %w", err)
	}

	model := &RecipeModel{
		ID:           recipe.ID,
		Title:        recipe.Title,
		Servings:     recipe.Servings,
		Ingredients:  datatypes.JSON(ingJSON),
		ScienceNotes: datatypes.JSON(notesJSON),
	}
	if recipe.Nutrition != nil {
		nJSON, err := json.Marshal(recipe.Nutrition)
		if err != nil {
			return nil, fmt.Errorf("marshal nutrition: %w", err)
		}
		model.Nutrition = datatypes.JSON(nJSON)
	}
	return model, nil
}

// fromRecipeModel 讀取時一律經過正規化，舊資料格式不一致也能使用
func fromRecipeModel(m *RecipeModel) *Recipe {
	recipe := &Recipe{
		ID:           m.ID,
		Title:        m.Title,
		Servings:     m.Servings,
		Ingredients:  nutrition.NormalizeIngredients(json.RawMessage(m.Ingredients)),
		ScienceNotes: nutrition.StandardizeScienceNotes(json.RawMessage(m.ScienceNotes)),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
	if len(m.Nutrition) > 0 && !common.IsJSONNull(json.RawMessage(m.Nutrition)) {
		if !nutrition.ValidateNutrition(json.RawMessage(m.Nutrition)) {
			common.LogWarn("Stored nutrition is incomplete", zap.String("recipe_id", m.ID))
		}
		n := nutrition.StandardizeNutrition(json.RawMessage(m.Nutrition))
		recipe.Nutrition = &n
	}
	return recipe
}
