package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"recipe-nutrition/internal/core/nutrition"
	"recipe-nutrition/internal/pkg/common"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultToUnit = "g"

// ConversionRepository 單位換算表存取
type ConversionRepository struct {
	db *gorm.DB
}

// NewConversionRepository 創建換算表存取
func NewConversionRepository(db *gorm.DB) *ConversionRepository {
	return &ConversionRepository{db: db}
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// normalizeToUnit 空字串視為公克（NormalizeUnit 會把空字串當成 each）
func normalizeToUnit(unit string) string {
	if strings.TrimSpace(unit) == "" {
		return defaultToUnit
	}
	return nutrition.NormalizeUnit(unit)
}

// LookupConversionFactor 依單位與食材名稱（或分類）查詢，查無資料回傳 nil, nil
func (r *ConversionRepository) LookupConversionFactor(ctx context.Context, fromUnit, toUnit, key string) (*nutrition.ConversionFactor, error) {
	from := nutrition.NormalizeUnit(fromUnit)
	k := normalizeKey(key)
	if from == "" || k == "" {
		return nil, nil
	}

	var model UnitConversionModel
	err := r.db.WithContext(ctx).
		Where("from_unit = ? AND to_unit = ? AND food_category = ?", from, normalizeToUnit(toUnit), k).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup conversion factor: %w", err)
	}
	return toConversionFactor(&model), nil
}

// UpsertConversionFactor 新增或覆寫換算係數
func (r *ConversionRepository) UpsertConversionFactor(ctx context.Context, factor *nutrition.ConversionFactor) error {
	if factor == nil {
		return common.ErrInvalidConversion.Wrap(errors.New("conversion factor is required"))
	}
	model := UnitConversionModel{
		FromUnit:         nutrition.NormalizeUnit(factor.FromUnit),
		ToUnit:           normalizeToUnit(factor.ToUnit),
		FoodCategory:     normalizeKey(factor.Key),
		ConversionFactor: factor.Factor,
		Confidence:       factor.Confidence,
		Notes:            factor.Notes,
		Source:           factor.Source,
	}
	switch {
	case model.FromUnit == "":
		return common.ErrInvalidConversion.Wrap(errors.New("from_unit is required"))
	case model.FoodCategory == "":
		return common.ErrInvalidConversion.Wrap(errors.New("food_category is required"))
	case !common.IsFinite(model.ConversionFactor) || model.ConversionFactor <= 0:
		return common.ErrInvalidConversion.Wrap(fmt.Errorf("conversion_factor must be positive, got %v", model.ConversionFactor))
	case !common.IsFinite(model.Confidence) || model.Confidence < 0 || model.Confidence > 1:
		return common.ErrInvalidConversion.Wrap(fmt.Errorf("confidence must be within [0, 1], got %v", model.Confidence))
	}
	if model.Source == "" {
		model.Source = "manual"
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "from_unit"}, {Name: "to_unit"}, {Name: "food_category"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"conversion_factor", "confidence", "notes", "source", "updated_at",
		}),
	}).Create(&model).Error
	if err != nil {
		return fmt.Errorf("upsert conversion factor: %w", err)
	}
	return nil
}

// ListConversionFactors 列出換算係數，key 為空時列出全部
func (r *ConversionRepository) ListConversionFactors(ctx context.Context, key string) ([]nutrition.ConversionFactor, error) {
	var models []UnitConversionModel
	q := r.db.WithContext(ctx).Order("food_category, from_unit")
	if k := normalizeKey(key); k != "" {
		q = q.Where("food_category = ?", k)
	}
	if err := q.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list conversion factors: %w", err)
	}

	out := make([]nutrition.ConversionFactor, 0, len(models))
	for i := range models {
		out = append(out, *toConversionFactor(&models[i]))
	}
	return out, nil
}

func toConversionFactor(m *UnitConversionModel) *nutrition.ConversionFactor {
	return &nutrition.ConversionFactor{
		FromUnit:   m.FromUnit,
		ToUnit:     m.ToUnit,
		Key:        m.FoodCategory,
		Factor:     m.ConversionFactor,
		Source:     m.Source,
		Confidence: m.Confidence,
		Notes:      m.Notes,
	}
}
