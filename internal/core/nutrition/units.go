package nutrition

import "strings"

// 質量單位，所有分類共用（g/單位）
var massUnits = map[string]float64{
	"mg": 0.001,
	"g":  1,
	"kg": 1000,
	"oz": 28.349523125,
	"lb": 453.59237,
}

// 各分類內建換算表（g/單位）
var categoryUnitTable = map[Category]map[string]float64{
	CategorySpice: {
		"tsp": 2.5, "tbsp": 7, "cup": 112, "pinch": 0.36, "dash": 0.6,
	},
	CategoryOil: {
		"tsp": 4.5, "tbsp": 13.6, "cup": 218, "ml": 0.92, "l": 920,
	},
	CategoryFlour: {
		"tsp": 2.6, "tbsp": 7.8, "cup": 125,
	},
	CategorySugar: {
		"tsp": 4.2, "tbsp": 12.5, "cup": 200,
	},
	CategoryDairy: {
		"tsp": 5, "tbsp": 15, "cup": 240, "ml": 1.03, "l": 1030, "slice": 21, "each": 50,
	},
	CategoryProduce: {
		"cup": 150, "each": 120, "piece": 120, "medium": 120, "small": 80, "large": 180,
		"head": 500, "bunch": 150, "slice": 10,
	},
	CategoryMeat: {
		"each": 150, "piece": 150, "fillet": 150, "breast": 175, "slice": 30, "cup": 140,
	},
	CategoryGrain: {
		"cup": 185, "tbsp": 12, "tsp": 4, "slice": 28,
	},
	CategoryCanned: {
		"can": 400, "cup": 240,
	},
	CategoryFrozen: {
		"cup": 140, "package": 283,
	},
	CategoryBeverage: {
		"cup": 240, "ml": 1, "l": 1000, "tbsp": 15, "tsp": 5,
	},
}

// 單位別名：大小寫、複數、全拼（倍率皆為 1）
var unitAliases = map[string]string{
	"":             "each",
	"whole":        "each",
	"ea":           "each",
	"unit":         "each",
	"units":        "each",
	"gram":         "g",
	"grams":        "g",
	"gr":           "g",
	"gm":           "g",
	"kilogram":     "kg",
	"kilograms":    "kg",
	"kilo":         "kg",
	"kilos":        "kg",
	"milligram":    "mg",
	"milligrams":   "mg",
	"ounce":        "oz",
	"ounces":       "oz",
	"pound":        "lb",
	"pounds":       "lb",
	"lbs":          "lb",
	"milliliter":   "ml",
	"milliliters":  "ml",
	"millilitre":   "ml",
	"millilitres":  "ml",
	"mls":          "ml",
	"liter":        "l",
	"liters":       "l",
	"litre":        "l",
	"litres":       "l",
	"ltr":          "l",
	"teaspoon":     "tsp",
	"teaspoons":    "tsp",
	"tsps":         "tsp",
	"tablespoon":   "tbsp",
	"tablespoons":  "tbsp",
	"tbsps":        "tbsp",
	"tbs":          "tbsp",
	"tbl":          "tbsp",
	"cups":         "cup",
	"c":            "cup",
	"fluid ounce":  "fl oz",
	"fluid ounces": "fl oz",
	"fl. oz":       "fl oz",
	"floz":         "fl oz",
	"gallons":      "gallon",
	"gal":          "gallon",
	"quarts":       "quart",
	"qt":           "quart",
	"pints":        "pint",
	"pt":           "pint",
	"pinches":      "pinch",
	"dashes":       "dash",
	"slices":       "slice",
	"pieces":       "piece",
	"pcs":          "piece",
	"pc":           "piece",
	"cans":         "can",
	"tin":          "can",
	"tins":         "can",
	"heads":        "head",
	"bunches":      "bunch",
	"fillets":      "fillet",
	"breasts":      "breast",
	"packages":     "package",
	"pkg":          "package",
	"sticks":       "stick",
	"cloves":       "clove",
	"knobs":        "knob",
	"handfuls":     "handful",
	"sprigs":       "sprig",
}

// equivalence 單位等價：1 個 from = multiplier 個 to
type equivalence struct {
	to         string
	multiplier float64
}

var unitEquivalences = map[string]equivalence{
	"stick":   {to: "tbsp", multiplier: 8},
	"clove":   {to: "g", multiplier: 3},
	"dozen":   {to: "each", multiplier: 12},
	"knob":    {to: "tbsp", multiplier: 1},
	"sprig":   {to: "g", multiplier: 1},
	"handful": {to: "g", multiplier: 30},
	"cube":    {to: "tsp", multiplier: 2},
	"scoop":   {to: "cup", multiplier: 0.5},
}

// 容量單位（ml/單位），依比對順序排列
var volumeUnits = []struct {
	unit string
	ml   float64
}{
	{"fl oz", 29.5735295625},
	{"gallon", 3785.411784},
	{"quart", 946.352946},
	{"pint", 473.176473},
	{"cup", 236.5882365},
	{"tbsp", 14.78676478125},
	{"tsp", 4.92892159375},
	{"ml", 1},
	{"l", 1000},
}

// 通用換算（g/單位），未知單位為 1
var genericFactors = map[string]float64{
	"each":    50,
	"piece":   50,
	"slice":   25,
	"pinch":   0.36,
	"dash":    0.6,
	"serving": 100,
	"portion": 100,
	"package": 250,
	"bunch":   100,
	"can":     400,
	"head":    400,
	"small":   60,
	"medium":  100,
	"large":   150,
}

// NormalizeUnit 單位字串正規化：小寫、去空白與句點、套用別名
func NormalizeUnit(unit string) string {
	u := strings.ToLower(strings.TrimSpace(unit))
	u = strings.TrimSuffix(u, ".")
	u = strings.Join(strings.Fields(u), " ")
	if alias, ok := unitAliases[u]; ok {
		return alias
	}
	return u
}

// categoryFactor 在分類表（含質量單位）中查詢
func categoryFactor(category Category, unit string) (float64, bool) {
	if f, ok := massUnits[unit]; ok {
		return f, true
	}
	if table, ok := categoryUnitTable[category]; ok {
		if f, ok := table[unit]; ok {
			return f, true
		}
	}
	return 0, false
}

// volumeToML 判斷是否為容量單位並回傳 ml 倍率；除單字母 "l" 外允許子字串比對
func volumeToML(unit string) (float64, bool) {
	for _, v := range volumeUnits {
		if unit == v.unit {
			return v.ml, true
		}
	}
	for _, v := range volumeUnits {
		if len(v.unit) > 1 && strings.Contains(unit, v.unit) {
			return v.ml, true
		}
	}
	return 0, false
}

// IsVolumeUnit 是否為容量單位
func IsVolumeUnit(unit string) bool {
	_, ok := volumeToML(NormalizeUnit(unit))
	return ok
}

// genericFactor 通用換算係數
func genericFactor(unit string) float64 {
	if f, ok := genericFactors[unit]; ok {
		return f
	}
	return 1
}
