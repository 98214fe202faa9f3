package nutrition

import "strings"

// 常見食材密度（g/ml），較具體的名稱排在前面
var densityTable = []struct {
	keyword string
	density float64
}{
	{"olive oil", 0.91},
	{"peanut butter", 1.09},
	{"maple syrup", 1.32},
	{"brown sugar", 0.72},
	{"powdered sugar", 0.56},
	{"heavy cream", 0.99},
	{"sour cream", 0.96},
	{"soy sauce", 1.16},
	{"water", 1.0},
	{"milk", 1.03},
	{"oil", 0.92},
	{"butter", 0.911},
	{"honey", 1.42},
	{"molasses", 1.4},
	{"syrup", 1.37},
	{"flour", 0.53},
	{"sugar", 0.85},
	{"salt", 1.2},
	{"rice", 0.85},
	{"oats", 0.41},
	{"cocoa", 0.42},
	{"yogurt", 1.03},
	{"vinegar", 1.01},
	{"ketchup", 1.14},
	{"juice", 1.04},
	{"broth", 1.0},
}

// 液體類關鍵字
var liquidKeywords = []string{
	"juice", "broth", "stock", "sauce", "milk", "water", "wine", "vinegar", "liquid", "cream", "beer",
}

const (
	directDensityConfidence  = 0.8
	genericDensity           = 0.8
	genericDensityConfidence = 0.4
)

// EstimateDensity 依食材名稱估計密度與信心值
func EstimateDensity(ingredientName string) Density {
	name := strings.ToLower(strings.TrimSpace(ingredientName))

	if name != "" {
		for _, d := range densityTable {
			if strings.Contains(name, d.keyword) {
				return Density{GramsPerML: d.density, Confidence: directDensityConfidence}
			}
		}
	}

	category := Classify(name)
	switch {
	case category == CategoryOil || strings.Contains(name, "oil"):
		return Density{GramsPerML: 0.92, Confidence: 0.7}
	case category == CategoryFlour || strings.Contains(name, "flour") || strings.Contains(name, "powder"):
		return Density{GramsPerML: 0.55, Confidence: 0.6}
	case category == CategorySugar || strings.Contains(name, "sugar"):
		return Density{GramsPerML: 0.85, Confidence: 0.6}
	case category == CategoryBeverage || containsAny(name, liquidKeywords):
		return Density{GramsPerML: 1.0, Confidence: 0.7}
	}

	return Density{GramsPerML: genericDensity, Confidence: genericDensityConfidence}
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
