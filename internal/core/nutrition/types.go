package nutrition

import (
	"context"
	"encoding/json"
	"time"
)

// Category 食材分類
type Category string

const (
	CategorySpice    Category = "spice"
	CategoryOil      Category = "oil"
	CategoryFlour    Category = "flour"
	CategorySugar    Category = "sugar"
	CategoryDairy    Category = "dairy"
	CategoryProduce  Category = "produce"
	CategoryMeat     Category = "meat"
	CategoryGrain    Category = "grain"
	CategoryCanned   Category = "canned"
	CategoryFrozen   Category = "frozen"
	CategoryBeverage Category = "beverage"
	CategoryOther    Category = "other"
)

// 換算方式標籤
const (
	MethodDatabase        = "database"
	MethodCategoryTable   = "category_table"
	MethodUnitEquivalence = "unit_equivalence"
	MethodDensityEstimate = "density_estimate"
	MethodGenericFallback = "generic_fallback"
	MethodError           = "error"
	MethodErrorFallback   = "error_fallback"
)

// Ingredient 食譜中的一行食材
type Ingredient struct {
	Item         string  `json:"item"`
	Qty          float64 `json:"qty"`
	Unit         string  `json:"unit"`
	QtyMetric    float64 `json:"qty_metric"`
	UnitMetric   string  `json:"unit_metric"`
	QtyImperial  float64 `json:"qty_imperial"`
	UnitImperial string  `json:"unit_imperial"`
	Notes        string  `json:"notes,omitempty"`
}

// Measure 取出用於換算的數量與單位，優先公制
func (i Ingredient) Measure() (float64, string) {
	switch {
	case i.QtyMetric > 0:
		return i.QtyMetric, i.UnitMetric
	case i.Qty > 0:
		return i.Qty, i.Unit
	case i.QtyImperial > 0:
		return i.QtyImperial, i.UnitImperial
	}
	return 0, ""
}

// IsStructured 是否帶有可用的數量
func (i Ingredient) IsStructured() bool {
	q, _ := i.Measure()
	return q > 0
}

// ConversionFactor 單位換算係數
type ConversionFactor struct {
	FromUnit   string  `json:"from_unit"`
	ToUnit     string  `json:"to_unit"`
	Key        string  `json:"food_category"` // 食材名稱或分類
	Factor     float64 `json:"conversion_factor"`
	Source     string  `json:"source,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Notes      string  `json:"notes,omitempty"`
}

// ConversionStore 持久化換算表查詢介面，查無資料時回傳 nil, nil
type ConversionStore interface {
	LookupConversionFactor(ctx context.Context, fromUnit, toUnit, key string) (*ConversionFactor, error)
}

// AuthoritativeNutrients 外部權威營養資料（已依重量換算）
type AuthoritativeNutrients struct {
	SourceID    string             `json:"source_id"`
	Description string             `json:"description"`
	Grams       float64            `json:"grams"`
	Confidence  float64            `json:"confidence"`
	Nutrients   map[string]float64 `json:"nutrients"`
}

// NutrientSource 外部權威營養資料來源；查無資料應回傳錯誤而非 nil 結果
type NutrientSource interface {
	LookupAuthoritativeNutrients(ctx context.Context, ingredient string, grams float64) (*AuthoritativeNutrients, error)
}

// GramsResult 重量換算結果
type GramsResult struct {
	Grams      float64 `json:"grams"`
	Confidence float64 `json:"confidence"`
	Method     string  `json:"method"`
}

// Density 密度估計（g/ml）
type Density struct {
	GramsPerML float64 `json:"value_g_per_ml"`
	Confidence float64 `json:"confidence"`
}

// Nutrition 標準營養物件，所有數值皆為有限且非負
type Nutrition struct {
	Calories     float64 `json:"calories"`
	Kcal         float64 `json:"kcal"`
	Protein      float64 `json:"protein"`
	Carbs        float64 `json:"carbs"`
	Fat          float64 `json:"fat"`
	Fiber        float64 `json:"fiber"`
	Sugar        float64 `json:"sugar"`
	Sodium       float64 `json:"sodium"`
	VitaminA     float64 `json:"vitamin_a"`
	VitaminC     float64 `json:"vitamin_c"`
	VitaminD     float64 `json:"vitamin_d"`
	Calcium      float64 `json:"calcium"`
	Iron         float64 `json:"iron"`
	Potassium    float64 `json:"potassium"`
	Cholesterol  float64 `json:"cholesterol"`
	SaturatedFat float64 `json:"saturated_fat"`

	DataQuality   json.RawMessage `json:"data_quality,omitempty"`
	PerIngredient json.RawMessage `json:"per_ingredient,omitempty"`
	AuditLog      json.RawMessage `json:"audit_log,omitempty"`
	Verification  *Verification   `json:"verification,omitempty"`
}

// Difference 單一欄位的校正差異
type Difference struct {
	Old               float64 `json:"old"`
	New               float64 `json:"new"`
	DifferencePercent float64 `json:"difference_percent"`
}

// Verification 校正稽核紀錄
type Verification struct {
	VerifiedAt             time.Time             `json:"verified_at"`
	VerifiedNutrients      []string              `json:"verified_nutrients"`
	VerificationSource     string                `json:"verification_source"`
	VerificationConfidence float64               `json:"verification_confidence"`
	Differences            map[string]Difference `json:"differences,omitempty"`
}

// DataQuality 估算結果的資料品質說明
type DataQuality struct {
	Source            string   `json:"source"`
	Method            string   `json:"method"`
	Confidence        float64  `json:"confidence"`
	PlaceholderFields []string `json:"placeholder_fields,omitempty"`
	Note              string   `json:"note,omitempty"`
	CaloriesCapped    bool     `json:"calories_capped,omitempty"`
}
