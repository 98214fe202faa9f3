package nutrition

import (
	"context"
	"encoding/json"
	"math"
	"strings"

	"recipe-nutrition/internal/pkg/common"

	"go.uber.org/zap"
)

// Placeholders 未實際計算的微量營養素佔位值
type Placeholders struct {
	VitaminA  float64 `mapstructure:"vitamin_a"`
	VitaminC  float64 `mapstructure:"vitamin_c"`
	VitaminD  float64 `mapstructure:"vitamin_d"`
	Calcium   float64 `mapstructure:"calcium"`
	Iron      float64 `mapstructure:"iron"`
	Potassium float64 `mapstructure:"potassium"`
}

// Baseline 空食材清單時的最低營養值
type Baseline struct {
	Calories float64 `mapstructure:"calories"`
	Protein  float64 `mapstructure:"protein"`
	Carbs    float64 `mapstructure:"carbs"`
	Fat      float64 `mapstructure:"fat"`
}

// Settings 估算參數
type Settings struct {
	DampingFactor    float64      `mapstructure:"damping_factor"`
	CalorieCap       float64      `mapstructure:"calorie_cap"`
	SodiumPerCalorie float64      `mapstructure:"sodium_per_calorie"`
	StringOnlyFactor float64      `mapstructure:"string_only_factor"`
	Placeholders     Placeholders `mapstructure:"placeholders"`
	Baseline         Baseline     `mapstructure:"baseline"`
}

// DefaultSettings 預設估算參數
func DefaultSettings() Settings {
	return Settings{
		DampingFactor:    0.6,
		CalorieCap:       800,
		SodiumPerCalorie: 0.8,
		StringOnlyFactor: 0.5,
		Placeholders: Placeholders{
			VitaminA:  50,
			VitaminC:  5,
			VitaminD:  20,
			Calcium:   50,
			Iron:      1,
			Potassium: 150,
		},
		Baseline: Baseline{Calories: 100, Protein: 5, Carbs: 10, Fat: 5},
	}
}

// referenceRow 每 100g 的參考營養值
type referenceRow struct {
	name     string
	calories float64
	protein  float64
	carbs    float64
	fat      float64
	fiber    float64
	sugar    float64
}

const defaultReference = "default"

// 依序比對，第一個命中者勝出
var referenceTable = []referenceRow{
	{"chicken", 165, 31, 0, 3.6, 0, 0},
	{"beef", 250, 26, 0, 15, 0, 0},
	{"fish", 206, 22, 0, 12, 0, 0},
	{"pork", 242, 27, 0, 14, 0, 0},
	{"tofu", 76, 8, 1.9, 4.8, 0.3, 0.6},
	{"pasta", 131, 5, 25, 1.1, 1.8, 0.6},
	{"rice", 130, 2.7, 28, 0.3, 0.4, 0.1},
	{"potato", 77, 2, 17, 0.1, 2.2, 0.8},
	{"bread", 265, 9, 49, 3.2, 2.7, 5},
	{"carrot", 41, 0.9, 10, 0.2, 2.8, 4.7},
	{"broccoli", 34, 2.8, 7, 0.4, 2.6, 1.7},
	{"spinach", 23, 2.9, 3.6, 0.4, 2.2, 0.4},
	{"onion", 40, 1.1, 9.3, 0.1, 1.7, 4.2},
	{"garlic", 149, 6.4, 33, 0.5, 2.1, 1},
	{"olive oil", 884, 0, 0, 100, 0, 0},
	{"butter", 717, 0.9, 0.1, 81, 0, 0.1},
	{"cheese", 402, 25, 1.3, 33, 0, 0.5},
	{"milk", 61, 3.2, 4.8, 3.3, 0, 5},
	{"cream", 340, 2.8, 2.8, 36, 0, 2.9},
}

var defaultRow = referenceRow{defaultReference, 50, 2, 5, 2, 0, 0}

// lookupReference 依食材名稱取得參考列，未命中回傳 default
func lookupReference(name string) referenceRow {
	lower := strings.ToLower(name)
	for _, row := range referenceTable {
		if strings.Contains(lower, row.name) {
			return row
		}
	}
	return defaultRow
}

// ConfidenceStringOnly 純文字食材的信心值
const ConfidenceStringOnly = 0.2

// MethodStringOnly 純文字食材（沒有可用數量）
const MethodStringOnly = "string_only"

// Contribution 單一食材的營養貢獻
type Contribution struct {
	Item       string  `json:"item"`
	Grams      float64 `json:"grams"`
	Method     string  `json:"method"`
	Confidence float64 `json:"confidence"`
	Reference  string  `json:"reference"`
	Calories   float64 `json:"calories"`
	Protein    float64 `json:"protein"`
	Carbs      float64 `json:"carbs"`
	Fat        float64 `json:"fat"`
	Fiber      float64 `json:"fiber"`
	Sugar      float64 `json:"sugar"`
}

// Estimator 食材營養估算器
type Estimator struct {
	resolver *Resolver
	settings Settings
}

// NewEstimator 創建估算器，resolver 為 nil 時使用不含資料庫的換算器
func NewEstimator(resolver *Resolver, settings Settings) *Estimator {
	if resolver == nil {
		resolver = NewResolver()
	}
	return &Estimator{resolver: resolver, settings: settings}
}

// Settings 取得目前參數
func (e *Estimator) Settings() Settings {
	return e.settings
}

// Resolver 取得換算器
func (e *Estimator) Resolver() *Resolver {
	return e.resolver
}

// EstimateIngredientContribution 估算單一食材的營養貢獻，永不失敗
func (e *Estimator) EstimateIngredientContribution(ctx context.Context, ing Ingredient) Contribution {
	item := strings.TrimSpace(ing.Item)

	if !ing.IsStructured() {
		f := e.settings.StringOnlyFactor
		return Contribution{
			Item:       item,
			Method:     MethodStringOnly,
			Confidence: ConfidenceStringOnly,
			Reference:  defaultReference,
			Calories:   defaultRow.calories * f,
			Protein:    defaultRow.protein * f,
			Carbs:      defaultRow.carbs * f,
			Fat:        defaultRow.fat * f,
			Fiber:      defaultRow.fiber * f,
			Sugar:      defaultRow.sugar * f,
		}
	}

	qty, unit := ing.Measure()
	res := e.resolver.ResolveGrams(ctx, qty, unit, item)
	if res.Method == MethodError {
		res = GramsResult{
			Grams:      qty * genericFactor(NormalizeUnit(unit)),
			Confidence: ConfidenceGenericFallback,
			Method:     MethodGenericFallback,
		}
	}

	res.Grams = clampFinite(res.Grams)

	row := lookupReference(item)
	scale := res.Grams / 100 * e.settings.DampingFactor

	return Contribution{
		Item:       item,
		Grams:      res.Grams,
		Method:     res.Method,
		Confidence: res.Confidence,
		Reference:  row.name,
		Calories:   clampFinite(row.calories * scale),
		Protein:    clampFinite(row.protein * scale),
		Carbs:      clampFinite(row.carbs * scale),
		Fat:        clampFinite(row.fat * scale),
		Fiber:      clampFinite(row.fiber * scale),
		Sugar:      clampFinite(row.sugar * scale),
	}
}

// clampFinite 溢位時夾在最大有限值，NaN 視為 0
func clampFinite(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case math.IsInf(v, 1):
		return math.MaxFloat64
	case math.IsInf(v, -1):
		return -math.MaxFloat64
	}
	return v
}

// EstimateNutrition 彙總食材營養並換算為每份數值
func (e *Estimator) EstimateNutrition(ctx context.Context, ingredients []Ingredient, servings float64) Nutrition {
	contributions := make([]Contribution, 0, len(ingredients))
	for _, ing := range ingredients {
		if strings.TrimSpace(ing.Item) == "" {
			continue
		}
		contributions = append(contributions, e.EstimateIngredientContribution(ctx, ing))
	}

	if len(contributions) == 0 {
		b := e.settings.Baseline
		n := Nutrition{
			Calories: b.Calories,
			Protein:  b.Protein,
			Carbs:    b.Carbs,
			Fat:      b.Fat,
		}
		return e.finish(n, DataQuality{
			Source:     "baseline",
			Method:     "baseline",
			Confidence: 0,
			Note:       "no usable ingredients; minimal baseline values",
		}, nil)
	}

	var n Nutrition
	var confidence float64
	for _, c := range contributions {
		n.Calories = clampFinite(n.Calories + c.Calories)
		n.Protein = clampFinite(n.Protein + c.Protein)
		n.Carbs = clampFinite(n.Carbs + c.Carbs)
		n.Fat = clampFinite(n.Fat + c.Fat)
		n.Fiber = clampFinite(n.Fiber + c.Fiber)
		n.Sugar = clampFinite(n.Sugar + c.Sugar)
		confidence += c.Confidence
	}

	if servings > 0 && common.IsFinite(servings) {
		n.Calories = clampFinite(n.Calories / servings)
		n.Protein = clampFinite(n.Protein / servings)
		n.Carbs = clampFinite(n.Carbs / servings)
		n.Fat = clampFinite(n.Fat / servings)
		n.Fiber = clampFinite(n.Fiber / servings)
		n.Sugar = clampFinite(n.Sugar / servings)
	}

	n.Calories = common.Round(n.Calories, 0)
	n.Protein = common.Round(n.Protein, 0)
	n.Carbs = common.Round(n.Carbs, 0)
	n.Fat = common.Round(n.Fat, 0)
	n.Fiber = common.Round(n.Fiber, 0)
	n.Sugar = common.Round(n.Sugar, 0)

	quality := DataQuality{
		Source:     "estimate",
		Method:     "reference_table",
		Confidence: common.Round(confidence/float64(len(contributions)), 2),
	}

	if limit := e.settings.CalorieCap; limit > 0 && n.Calories > limit {
		scale := limit / n.Calories
		common.LogDebug("Calories capped",
			zap.Float64("calories", n.Calories),
			zap.Float64("cap", limit),
		)
		n.Calories = limit
		n.Protein = common.Round(n.Protein*scale, 0)
		n.Carbs = common.Round(n.Carbs*scale, 0)
		n.Fat = common.Round(n.Fat*scale, 0)
		quality.CaloriesCapped = true
	}

	return e.finish(n, quality, contributions)
}

// finish 同步 kcal、填入佔位微量營養素並記錄資料品質
func (e *Estimator) finish(n Nutrition, quality DataQuality, contributions []Contribution) Nutrition {
	p := e.settings.Placeholders
	n.Kcal = n.Calories
	n.Sodium = common.Round(n.Calories*e.settings.SodiumPerCalorie, 0)
	n.VitaminA = p.VitaminA
	n.VitaminC = p.VitaminC
	n.VitaminD = p.VitaminD
	n.Calcium = p.Calcium
	n.Iron = p.Iron
	n.Potassium = p.Potassium

	quality.PlaceholderFields = []string{"sodium", "vitamin_a", "vitamin_c", "vitamin_d", "calcium", "iron", "potassium"}
	if quality.Note == "" {
		quality.Note = "micronutrient values are approximate placeholders, not measured values"
	}

	if raw, err := json.Marshal(quality); err == nil {
		n.DataQuality = raw
	}
	if len(contributions) > 0 {
		if raw, err := json.Marshal(contributions); err == nil {
			n.PerIngredient = raw
		}
	}
	return n
}
