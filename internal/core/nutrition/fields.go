package nutrition

import "strings"

// field 標準欄位定義：名稱、可接受的別名（依序）、存取器
type field struct {
	name    string
	aliases []string
	get     func(n *Nutrition) float64
	set     func(n *Nutrition, v float64)
}

// 標準欄位，順序即輸出與比對順序
var canonicalFields = []field{
	{"calories", []string{"calories", "kcal", "energy", "calories_kcal", "energy_kcal"},
		func(n *Nutrition) float64 { return n.Calories },
		func(n *Nutrition, v float64) { n.Calories = v; n.Kcal = v }},
	{"protein", []string{"protein", "protein_g"},
		func(n *Nutrition) float64 { return n.Protein },
		func(n *Nutrition, v float64) { n.Protein = v }},
	{"carbs", []string{"carbs", "carbs_g", "carbohydrates", "carbohydrates_g", "carbohydrate"},
		func(n *Nutrition) float64 { return n.Carbs },
		func(n *Nutrition, v float64) { n.Carbs = v }},
	{"fat", []string{"fat", "fat_g", "total_fat", "total_fat_g"},
		func(n *Nutrition) float64 { return n.Fat },
		func(n *Nutrition, v float64) { n.Fat = v }},
	{"fiber", []string{"fiber", "fiber_g", "fibre", "fibre_g"},
		func(n *Nutrition) float64 { return n.Fiber },
		func(n *Nutrition, v float64) { n.Fiber = v }},
	{"sugar", []string{"sugar", "sugar_g", "sugars", "sugars_g"},
		func(n *Nutrition) float64 { return n.Sugar },
		func(n *Nutrition, v float64) { n.Sugar = v }},
	{"sodium", []string{"sodium", "sodium_mg"},
		func(n *Nutrition) float64 { return n.Sodium },
		func(n *Nutrition, v float64) { n.Sodium = v }},
	{"vitamin_a", []string{"vitamin_a", "vitamin_a_mcg", "vitamin_a_iu", "vitaminA"},
		func(n *Nutrition) float64 { return n.VitaminA },
		func(n *Nutrition, v float64) { n.VitaminA = v }},
	{"vitamin_c", []string{"vitamin_c", "vitamin_c_mg", "vitaminC"},
		func(n *Nutrition) float64 { return n.VitaminC },
		func(n *Nutrition, v float64) { n.VitaminC = v }},
	{"vitamin_d", []string{"vitamin_d", "vitamin_d_mcg", "vitamin_d_iu", "vitaminD"},
		func(n *Nutrition) float64 { return n.VitaminD },
		func(n *Nutrition, v float64) { n.VitaminD = v }},
	{"calcium", []string{"calcium", "calcium_mg"},
		func(n *Nutrition) float64 { return n.Calcium },
		func(n *Nutrition, v float64) { n.Calcium = v }},
	{"iron", []string{"iron", "iron_mg"},
		func(n *Nutrition) float64 { return n.Iron },
		func(n *Nutrition, v float64) { n.Iron = v }},
	{"potassium", []string{"potassium", "potassium_mg"},
		func(n *Nutrition) float64 { return n.Potassium },
		func(n *Nutrition, v float64) { n.Potassium = v }},
	{"cholesterol", []string{"cholesterol", "cholesterol_mg"},
		func(n *Nutrition) float64 { return n.Cholesterol },
		func(n *Nutrition, v float64) { n.Cholesterol = v }},
	{"saturated_fat", []string{"saturated_fat", "saturatedFat", "saturated_fat_g", "saturatedFat_g", "sat_fat"},
		func(n *Nutrition) float64 { return n.SaturatedFat },
		func(n *Nutrition, v float64) { n.SaturatedFat = v }},
}

var aliasIndex = buildAliasIndex()

func buildAliasIndex() map[string]int {
	idx := make(map[string]int)
	for i, f := range canonicalFields {
		for _, a := range f.aliases {
			idx[strings.ToLower(a)] = i
		}
	}
	return idx
}

// CanonicalFieldName 將任意欄位拼法對應到標準欄位名稱，未知時回傳空字串
func CanonicalFieldName(key string) string {
	if i, ok := aliasIndex[strings.ToLower(strings.TrimSpace(key))]; ok {
		return canonicalFields[i].name
	}
	return ""
}

// FieldNames 回傳所有標準欄位名稱
func FieldNames() []string {
	names := make([]string, len(canonicalFields))
	for i, f := range canonicalFields {
		names[i] = f.name
	}
	return names
}

// Get 依標準欄位名稱讀取數值
func (n Nutrition) Get(name string) (float64, bool) {
	i, ok := aliasIndex[strings.ToLower(name)]
	if !ok {
		return 0, false
	}
	return canonicalFields[i].get(&n), true
}

// Set 依標準欄位名稱寫入數值，calories 會同步 kcal
func (n *Nutrition) Set(name string, v float64) bool {
	i, ok := aliasIndex[strings.ToLower(name)]
	if !ok {
		return false
	}
	canonicalFields[i].set(n, v)
	return true
}
