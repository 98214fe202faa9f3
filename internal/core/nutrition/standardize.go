package nutrition

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"recipe-nutrition/internal/pkg/common"

	"go.uber.org/zap"
)

// 原樣保留的欄位
const (
	fieldDataQuality   = "data_quality"
	fieldPerIngredient = "per_ingredient"
	fieldAuditLog      = "audit_log"
	fieldVerification  = "verification"
)

// 驗證時必須存在的欄位
var requiredFields = []string{"calories", "protein", "carbs", "fat"}

var leadingNumber = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// StandardizeNutrition 將任意形狀的營養物件轉為標準欄位，nil 或無法解析時回傳全零物件
func StandardizeNutrition(raw interface{}) Nutrition {
	var out Nutrition

	obj := toObject(raw)
	if obj == nil {
		return out
	}

	lookup := newKeyLookup(obj)
	for _, f := range canonicalFields {
		if v, ok := lookup.first(f.aliases); ok {
			f.set(&out, v)
		}
	}

	out.DataQuality = passThrough(obj, fieldDataQuality)
	out.PerIngredient = passThrough(obj, fieldPerIngredient)
	out.AuditLog = passThrough(obj, fieldAuditLog)
	out.Verification = decodeVerification(obj[fieldVerification])

	return out
}

// ValidateNutrition calories、protein、carbs、fat 皆存在且可解析為數值時回傳 true
func ValidateNutrition(raw interface{}) bool {
	switch t := raw.(type) {
	case Nutrition:
		return true
	case *Nutrition:
		return t != nil
	}

	obj := toObject(raw)
	if obj == nil {
		return false
	}

	lookup := newKeyLookup(obj)
	for _, name := range requiredFields {
		f := canonicalFields[aliasIndex[name]]
		if _, ok := lookup.first(f.aliases); !ok {
			return false
		}
	}
	return true
}

// StandardizeScienceNotes 將筆記陣列轉為去除空白的字串陣列，非陣列輸入回傳空陣列
func StandardizeScienceNotes(raw interface{}) []string {
	notes := []string{}

	generic, err := common.ToGeneric(raw)
	if err != nil {
		return notes
	}
	items, ok := generic.([]interface{})
	if !ok {
		return notes
	}

	for _, item := range items {
		var s string
		switch t := item.(type) {
		case nil:
			continue
		case string:
			s = t
		case json.Number:
			s = t.String()
		case bool:
			s = strconv.FormatBool(t)
		default:
			b, err := json.Marshal(t)
			if err != nil {
				continue
			}
			s = string(b)
		}
		if s = strings.TrimSpace(s); s != "" {
			notes = append(notes, s)
		}
	}
	return notes
}

// toObject 將輸入轉為 JSON 物件，非物件時回傳 nil
func toObject(raw interface{}) map[string]interface{} {
	if obj, ok := raw.(map[string]interface{}); ok {
		return obj
	}
	generic, err := common.ToGeneric(raw)
	if err != nil {
		common.LogDebug("Nutrition input is not valid JSON", zap.Error(err))
		return nil
	}
	obj, ok := generic.(map[string]interface{})
	if !ok {
		return nil
	}
	return obj
}

// keyLookup 先比對原始鍵名，再以小寫比對
type keyLookup struct {
	exact map[string]interface{}
	lower map[string]interface{}
}

func newKeyLookup(obj map[string]interface{}) keyLookup {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lower := make(map[string]interface{}, len(obj))
	for _, k := range keys {
		lk := strings.ToLower(k)
		if _, exists := lower[lk]; !exists {
			lower[lk] = obj[k]
		}
	}
	return keyLookup{exact: obj, lower: lower}
}

// first 依別名順序取第一個存在且可解析的數值
func (l keyLookup) first(aliases []string) (float64, bool) {
	for _, a := range aliases {
		if v, ok := l.exact[a]; ok {
			if n, ok := parseNumber(v); ok {
				return n, true
			}
		}
	}
	for _, a := range aliases {
		if v, ok := l.lower[strings.ToLower(a)]; ok {
			if n, ok := parseNumber(v); ok {
				return n, true
			}
		}
	}
	return 0, false
}

// parseNumber 解析數值，負數視為 0，NaN/Inf 視為無法解析
func parseNumber(v interface{}) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case string:
		m := leadingNumber.FindString(strings.TrimSpace(t))
		if m == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(m, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if !common.IsFinite(f) {
		return 0, false
	}
	if f < 0 {
		return 0, true
	}
	return f, true
}

// passThrough 原樣保留欄位內容
func passThrough(obj map[string]interface{}, key string) json.RawMessage {
	v, ok := obj[key]
	if !ok || v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

// decodeVerification 解析 verification 子物件，格式不符時捨棄
func decodeVerification(v interface{}) *Verification {
	if v == nil {
		return nil
	}
	if _, ok := v.(map[string]interface{}); !ok {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out Verification
	if err := json.Unmarshal(b, &out); err != nil {
		common.LogDebug("Dropping malformed verification block", zap.Error(fmt.Errorf("decode verification: %w", err)))
		return nil
	}
	return &out
}
