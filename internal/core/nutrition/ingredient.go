package nutrition

import (
	"encoding/json"
	"strconv"
	"strings"

	"recipe-nutrition/internal/pkg/common"
)

var unicodeFractions = map[rune]float64{
	'½': 0.5, '⅓': 1.0 / 3, '⅔': 2.0 / 3, '¼': 0.25, '¾': 0.75, '⅛': 0.125,
}

// NormalizeIngredients 將任意輸入轉為食材清單，非陣列輸入回傳空清單，略過沒有名稱的項目
func NormalizeIngredients(raw interface{}) []Ingredient {
	out := []Ingredient{}

	generic, err := common.ToGeneric(raw)
	if err != nil {
		return out
	}
	items, ok := generic.([]interface{})
	if !ok {
		return out
	}

	for _, item := range items {
		ing := normalizeGeneric(item)
		if ing.Item == "" {
			continue
		}
		out = append(out, ing)
	}
	return out
}

// NormalizeIngredient 將單一輸入轉為食材；純字串視為沒有數量的食材
func NormalizeIngredient(raw interface{}) Ingredient {
	switch t := raw.(type) {
	case Ingredient:
		return sanitizeIngredient(t)
	case *Ingredient:
		if t == nil {
			return Ingredient{}
		}
		return sanitizeIngredient(*t)
	case string:
		trimmed := strings.TrimSpace(t)
		if !strings.HasPrefix(trimmed, "{") {
			return Ingredient{Item: trimmed}
		}
	}

	generic, err := common.ToGeneric(raw)
	if err != nil {
		return Ingredient{}
	}
	return normalizeGeneric(generic)
}

func sanitizeIngredient(ing Ingredient) Ingredient {
	ing.Item = strings.TrimSpace(ing.Item)
	ing.Unit = strings.TrimSpace(ing.Unit)
	ing.UnitMetric = strings.TrimSpace(ing.UnitMetric)
	ing.UnitImperial = strings.TrimSpace(ing.UnitImperial)
	ing.Qty = nonNegative(ing.Qty)
	ing.QtyMetric = nonNegative(ing.QtyMetric)
	ing.QtyImperial = nonNegative(ing.QtyImperial)
	return ing
}

func normalizeGeneric(v interface{}) Ingredient {
	switch t := v.(type) {
	case string:
		return Ingredient{Item: strings.TrimSpace(t)}
	case map[string]interface{}:
		item := coerceText(t["item"])
		if item == "" {
			item = coerceText(t["name"])
		}
		if item == "" {
			item = coerceText(t["ingredient"])
		}
		return Ingredient{
			Item:         item,
			Qty:          ParseQuantity(firstPresent(t, "qty", "quantity", "amount")),
			Unit:         coerceText(t["unit"]),
			QtyMetric:    ParseQuantity(t["qty_metric"]),
			UnitMetric:   coerceText(t["unit_metric"]),
			QtyImperial:  ParseQuantity(t["qty_imperial"]),
			UnitImperial: coerceText(t["unit_imperial"]),
			Notes:        coerceText(t["notes"]),
		}
	}
	return Ingredient{}
}

func firstPresent(obj map[string]interface{}, keys ...string) interface{} {
	for _, k := range keys {
		if v, ok := obj[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// coerceText 將任意值轉為字串；巢狀物件優先取 name / item
func coerceText(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case map[string]interface{}:
		for _, k := range []string{"name", "item"} {
			if s, ok := t[k].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// ParseQuantity 解析數量：數字、數字字串、分數（"1/2"、"1 1/2"、"½"），無法解析或負數回傳 0
func ParseQuantity(v interface{}) float64 {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0
		}
		return nonNegative(f)
	case float64:
		return nonNegative(t)
	case int:
		return nonNegative(float64(t))
	case string:
		return parseQuantityString(t)
	}
	return 0
}

func parseQuantityString(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	// 範圍取下限，例如 "2-3"
	if i := strings.Index(s, "-"); i > 0 {
		s = strings.TrimSpace(s[:i])
	}

	var total float64
	for _, part := range strings.Fields(s) {
		v, ok := parseQuantityPart(part)
		if !ok {
			break
		}
		total += v
	}
	return nonNegative(total)
}

func parseQuantityPart(part string) (float64, bool) {
	var extra float64
	runes := []rune(part)
	if len(runes) > 0 {
		if f, ok := unicodeFractions[runes[len(runes)-1]]; ok {
			extra = f
			part = string(runes[:len(runes)-1])
			if part == "" {
				return extra, true
			}
		}
	}

	if num, den, ok := strings.Cut(part, "/"); ok {
		n, err1 := strconv.ParseFloat(num, 64)
		d, err2 := strconv.ParseFloat(den, 64)
		if err1 != nil || err2 != nil || d == 0 {
			return 0, false
		}
		return n/d + extra, true
	}

	if m := leadingNumber.FindString(part); m != "" {
		f, err := strconv.ParseFloat(m, 64)
		if err != nil {
			return 0, false
		}
		return f + extra, true
	}
	return 0, false
}

func nonNegative(v float64) float64 {
	if !common.IsFinite(v) || v < 0 {
		return 0
	}
	return v
}
