package fdc

// FoodData Central 營養素編號
const (
	NutrientIDEnergy        = 1008 // kcal
	NutrientIDProtein       = 1003 // g
	NutrientIDCarbohydrate  = 1005 // g
	NutrientIDTotalFat      = 1004 // g
	NutrientIDSaturatedFat  = 1258 // g
	NutrientIDSugars        = 2000 // g
	NutrientIDFiber         = 1079 // g
	NutrientIDSodium        = 1093 // mg
	NutrientIDCalcium       = 1087 // mg
	NutrientIDIron          = 1089 // mg
	NutrientIDPotassium     = 1092 // mg
	NutrientIDVitaminA      = 1106 // µg RAE
	NutrientIDVitaminC      = 1162 // mg
	NutrientIDVitaminD      = 1114 // µg
	NutrientIDCholesterol   = 1253 // mg
	NutrientIDEnergyAtwater = 2047 // kcal，Foundation 資料常缺 1008
)

// nutrientFields 營養素編號對應標準欄位
var nutrientFields = map[int]string{
	NutrientIDEnergy:       "calories",
	NutrientIDProtein:      "protein",
	NutrientIDCarbohydrate: "carbs",
	NutrientIDTotalFat:     "fat",
	NutrientIDSaturatedFat: "saturated_fat",
	NutrientIDSugars:       "sugar",
	NutrientIDFiber:        "fiber",
	NutrientIDSodium:       "sodium",
	NutrientIDCalcium:      "calcium",
	NutrientIDIron:         "iron",
	NutrientIDPotassium:    "potassium",
	NutrientIDVitaminA:     "vitamin_a",
	NutrientIDVitaminC:     "vitamin_c",
	NutrientIDVitaminD:     "vitamin_d",
	NutrientIDCholesterol:  "cholesterol",
}

// SearchResponse /foods/search 回應
type SearchResponse struct {
	TotalHits int    `json:"totalHits"`
	Foods     []Food `json:"foods"`
}

// Food 搜尋結果中的食品（營養值為每 100g）
type Food struct {
	FdcID         int            `json:"fdcId"`
	Description   string         `json:"description"`
	DataType      string         `json:"dataType"`
	FoodNutrients []FoodNutrient `json:"foodNutrients"`
}

// FoodNutrient 單一營養素
type FoodNutrient struct {
	NutrientID   int     `json:"nutrientId"`
	NutrientName string  `json:"nutrientName"`
	UnitName     string  `json:"unitName"`
	Value        float64 `json:"value"`
}

// PerHundredGrams 轉為標準欄位的每 100g 營養值
func (f Food) PerHundredGrams() map[string]float64 {
	out := make(map[string]float64)
	var atwater float64
	hasAtwater := false

	for _, n := range f.FoodNutrients {
		if n.NutrientID == NutrientIDEnergy && n.UnitName != "" && n.UnitName != "KCAL" && n.UnitName != "kcal" {
			continue
		}
		if n.NutrientID == NutrientIDEnergyAtwater {
			atwater = n.Value
			hasAtwater = true
			continue
		}
		if name, ok := nutrientFields[n.NutrientID]; ok {
			out[name] = n.Value
		}
	}

	if _, ok := out["calories"]; !ok && hasAtwater {
		out["calories"] = atwater
	}
	return out
}
