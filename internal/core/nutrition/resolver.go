package nutrition

import (
	"context"
	"fmt"
	"strings"

	"recipe-nutrition/internal/pkg/common"

	"go.uber.org/zap"
)

// 各層級信心值
const (
	ConfidenceDatabase         = 0.95
	ConfidenceDatabaseCategory = 0.90
	ConfidenceCategoryTable    = 0.85
	ConfidenceUnitEquivalence  = 0.75
	ConfidenceGenericFallback  = 0.3
	ConfidenceErrorFallback    = 0.1
)

// Resolver 數量轉公克，依序嘗試五個層級
type Resolver struct {
	store    ConversionStore
	observer func(GramsResult)
}

// ResolverOption 設定選項
type ResolverOption func(*Resolver)

// WithConversionStore 指定持久化換算表
func WithConversionStore(store ConversionStore) ResolverOption {
	return func(r *Resolver) {
		r.store = store
	}
}

// WithObserver 每次換算完成後回呼（例如統計各層級命中次數）
func WithObserver(fn func(GramsResult)) ResolverOption {
	return func(r *Resolver) {
		r.observer = fn
	}
}

// NewResolver 創建換算器，未指定 store 時略過資料庫層級
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveGrams 將數量與單位換算成公克，永不回傳錯誤
func (r *Resolver) ResolveGrams(ctx context.Context, quantity float64, unit string, ingredientName string) (result GramsResult) {
	defer func() {
		if rec := recover(); rec != nil {
			common.LogError("Grams resolution panic recovered",
				zap.Any("error", rec),
				zap.String("unit", unit),
				zap.String("ingredient", ingredientName),
			)
			result = GramsResult{Grams: quantity, Confidence: ConfidenceErrorFallback, Method: MethodErrorFallback}
		}
		// 極大數量乘上係數可能溢位成 Inf
		if !common.IsFinite(result.Grams) {
			common.LogWarn("Grams resolution overflowed",
				zap.Float64("quantity", quantity),
				zap.String("unit", unit),
				zap.String("ingredient", ingredientName),
			)
			result = GramsResult{Grams: 0, Confidence: 0, Method: MethodError}
		}
		if r != nil && r.observer != nil {
			r.observer(result)
		}
	}()

	if !common.IsFinite(quantity) || quantity <= 0 {
		return GramsResult{Grams: 0, Confidence: 0, Method: MethodError}
	}

	normalized := NormalizeUnit(unit)
	name := strings.ToLower(strings.TrimSpace(ingredientName))
	category := Classify(name)

	// 1. 持久化換算表
	if res, ok := r.lookupStore(ctx, quantity, unit, normalized, name, category); ok {
		return res
	}

	// 2. 內建分類表
	if f, ok := categoryFactor(category, normalized); ok {
		return GramsResult{Grams: quantity * f, Confidence: ConfidenceCategoryTable, Method: MethodCategoryTable}
	}

	// 3. 單位等價 + 分類表
	if eq, ok := unitEquivalences[normalized]; ok {
		if f, ok := categoryFactor(category, eq.to); ok {
			return GramsResult{Grams: quantity * eq.multiplier * f, Confidence: ConfidenceUnitEquivalence, Method: MethodUnitEquivalence}
		}
		if ml, ok := volumeToML(eq.to); ok {
			d := EstimateDensity(name)
			return GramsResult{Grams: quantity * eq.multiplier * ml * d.GramsPerML, Confidence: d.Confidence, Method: MethodDensityEstimate}
		}
		return GramsResult{Grams: quantity * eq.multiplier * genericFactor(eq.to), Confidence: ConfidenceGenericFallback, Method: MethodGenericFallback}
	}

	// 4. 容量單位 × 密度
	if ml, ok := volumeToML(normalized); ok {
		d := EstimateDensity(name)
		return GramsResult{Grams: quantity * ml * d.GramsPerML, Confidence: d.Confidence, Method: MethodDensityEstimate}
	}

	// 5. 通用換算
	return GramsResult{Grams: quantity * genericFactor(normalized), Confidence: ConfidenceGenericFallback, Method: MethodGenericFallback}
}

// lookupStore 先查食材專屬列，再查分類列；查詢錯誤視為未命中
func (r *Resolver) lookupStore(ctx context.Context, quantity float64, rawUnit, unit, name string, category Category) (GramsResult, bool) {
	if r == nil || r.store == nil {
		return GramsResult{}, false
	}

	candidates := []struct {
		key        string
		confidence float64
	}{
		{name, ConfidenceDatabase},
		{string(category), ConfidenceDatabaseCategory},
	}

	type storeUnit struct {
		unit       string
		multiplier float64
	}
	units := []storeUnit{{unit, 1}}
	if raw := strings.ToLower(strings.TrimSpace(rawUnit)); raw != unit && raw != "" {
		units = append(units, storeUnit{raw, 1})
	}
	// 等價單位也查換算表，讓 1 stick 與 8 tbsp 使用同一筆資料
	if eq, ok := unitEquivalences[unit]; ok && eq.to != "g" {
		units = append(units, storeUnit{eq.to, eq.multiplier})
	}

	for _, c := range candidates {
		if c.key == "" {
			continue
		}
		for _, su := range units {
			u := su.unit
			factor, err := r.store.LookupConversionFactor(ctx, u, "g", c.key)
			if err != nil {
				common.LogWarn("Conversion factor lookup failed",
					zap.Error(err),
					zap.String("unit", u),
					zap.String("key", c.key),
				)
				continue
			}
			if factor == nil || !common.IsFinite(factor.Factor) || factor.Factor <= 0 {
				continue
			}
			confidence := c.confidence
			if factor.Confidence > 0 && factor.Confidence < confidence {
				confidence = factor.Confidence
			}
			return GramsResult{Grams: quantity * su.multiplier * factor.Factor, Confidence: confidence, Method: MethodDatabase}, true
		}
	}
	return GramsResult{}, false
}

// String 方便日誌輸出
func (g GramsResult) String() string {
	return fmt.Sprintf("%.2fg (%s, %.2f)", g.Grams, g.Method, g.Confidence)
}
