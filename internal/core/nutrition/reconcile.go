package nutrition

import (
	"math"
	"time"

	"recipe-nutrition/internal/pkg/common"
)

// 校正預設值
const (
	DefaultThresholdPercent   = 15.0
	DefaultVerificationSource = "fdc_api"
)

// VerifiedIngredient 外部來源查得的單一食材營養值
type VerifiedIngredient struct {
	Name       string             `json:"name"`
	Nutrients  map[string]float64 `json:"nutrients"`
	Confidence float64            `json:"confidence"`
}

// ReconcileResult 校正結果
type ReconcileResult struct {
	Verified            bool          `json:"verified"`
	UpdatedNutrition    Nutrition     `json:"updated_nutrition"`
	VerificationDetails *Verification `json:"verification_details,omitempty"`
}

// Reconciler 以外部權威資料校正既有營養值
type Reconciler struct {
	Threshold float64
	Source    string
	Clock     func() time.Time
}

// NewReconciler 創建校正器，threshold 小於 0 時使用預設值
func NewReconciler(threshold float64, source string) *Reconciler {
	if threshold < 0 || !common.IsFinite(threshold) {
		threshold = DefaultThresholdPercent
	}
	if source == "" {
		source = DefaultVerificationSource
	}
	return &Reconciler{
		Threshold: threshold,
		Source:    source,
		Clock:     time.Now,
	}
}

// Reconcile 差異超過門檻的欄位才覆寫，不修改輸入
func (r *Reconciler) Reconcile(existing Nutrition, verified []VerifiedIngredient) ReconcileResult {
	out := existing
	if len(verified) == 0 {
		return ReconcileResult{Verified: false, UpdatedNutrition: out}
	}

	sums := SumVerifiedNutrients(verified)

	updated := []string{}
	differences := map[string]Difference{}
	for _, f := range canonicalFields {
		next, ok := sums[f.name]
		if !ok {
			continue
		}
		prev := f.get(&existing)
		if f.name == "calories" && prev == 0 {
			prev = existing.Kcal
		}

		// 以寫入值比較，避免列為已校正卻寫入相同數值
		value := common.Round(next, 1)
		pct := DifferencePercent(prev, value)
		carryOver := f.name == "saturated_fat" && prev == 0 && value > 0
		if !carryOver && pct <= r.Threshold {
			continue
		}

		f.set(&out, value)
		updated = append(updated, f.name)
		differences[f.name] = Difference{
			Old:               prev,
			New:               value,
			DifferencePercent: common.Round(pct, 1),
		}
	}

	details := &Verification{
		VerifiedAt:             r.now(),
		VerifiedNutrients:      updated,
		VerificationSource:     r.source(),
		VerificationConfidence: meanConfidence(verified),
	}
	if len(differences) > 0 {
		details.Differences = differences
	}
	out.Verification = details

	return ReconcileResult{
		Verified:            len(updated) > 0,
		UpdatedNutrition:    out,
		VerificationDetails: details,
	}
}

// SumVerifiedNutrients 依標準欄位加總，未知欄位略過
func SumVerifiedNutrients(verified []VerifiedIngredient) map[string]float64 {
	sums := make(map[string]float64)
	for _, v := range verified {
		for key, amount := range v.Nutrients {
			name := CanonicalFieldName(key)
			if name == "" || !common.IsFinite(amount) {
				continue
			}
			sums[name] += math.Max(amount, 0)
		}
	}
	return sums
}

// DifferencePercent |new-old|/old × 100；old 為 0 時，new 也為 0 則 0，否則 100
func DifferencePercent(prev, next float64) float64 {
	if prev == 0 {
		if next == 0 {
			return 0
		}
		return 100
	}
	return math.Abs(next-prev) / prev * 100
}

func meanConfidence(verified []VerifiedIngredient) float64 {
	if len(verified) == 0 {
		return 0
	}
	var total float64
	for _, v := range verified {
		total += v.Confidence
	}
	return common.Round(total/float64(len(verified)), 2)
}

func (r *Reconciler) now() time.Time {
	if r.Clock == nil {
		return time.Now().UTC()
	}
	return r.Clock().UTC()
}

func (r *Reconciler) source() string {
	if r.Source == "" {
		return DefaultVerificationSource
	}
	return r.Source
}
