package nutrition

import "strings"

type categoryKeywords struct {
	category Category
	keywords []string
}

// 依序比對，第一個命中的分類勝出；前後帶空白的關鍵字只比對字首/整字
var categoryTable = []categoryKeywords{
	{CategorySpice, []string{
		" salt ", "black pepper", "white pepper", "peppercorn", "cayenne", "paprika", "cumin",
		"cinnamon", "nutmeg", "oregano", "thyme", "rosemary", "basil", "chili powder",
		"curry powder", "garlic powder", "onion powder", "turmeric", "cardamom",
		"coriander", "bay leaf", "allspice", "seasoning", "spice", "vanilla", "ginger powder",
		"ground clove",
	}},
	{CategoryOil, []string{"oil", "shortening", "lard", "cooking spray", "ghee"}},
	{CategoryFlour, []string{
		"flour", "cornstarch", "corn starch", "starch", "baking powder", "baking soda",
		"cornmeal", "semolina", "breadcrumb", "panko", "cocoa",
	}},
	{CategorySugar, []string{"sugar", "honey", "syrup", "molasses", "agave", "sweetener", "jam", "jelly"}},
	{CategoryDairy, []string{
		"milk", "cheese", "butter", "cream", "yogurt", "yoghurt", " egg ", " eggs", "parmesan",
		"mozzarella", "cheddar", "ricotta", "buttermilk",
	}},
	{CategoryProduce, []string{
		"apple", "banana", "tomato", "onion", "garlic", "carrot", "potato", "lettuce",
		"spinach", "broccoli", "bell pepper", "celery", "cucumber", "lemon", "lime", "berry",
		"berries", "cilantro", "parsley", "mushroom", "zucchini", "avocado", "cabbage", "kale",
		"melon", "orange", "pear", "peach", "ginger", "scallion", "shallot", "leek", "squash",
		"pumpkin", " corn", " pea", "herb", "mint", "chive", "eggplant", "cauliflower", "asparagus",
	}},
	{CategoryMeat, []string{
		"chicken", "beef", "pork", "lamb", "turkey", "bacon", "sausage", " ham", "steak",
		"fish", "salmon", "tuna", "shrimp", "prawn", "cod", "tilapia", "crab", "lobster",
		"mince", "ground meat", "veal", "duck", "anchov", "scallop", "mussel", "clam",
	}},
	{CategoryGrain, []string{
		"rice", "pasta", "noodle", "spaghetti", "macaroni", " oat", "quinoa", "bread", "barley",
		"couscous", "tortilla", "cereal", "bulgur", "farro",
	}},
	{CategoryCanned, []string{
		"canned", "can of", "tinned", "tomato paste", "tomato sauce", "broth", "stock",
		"beans", "chickpea", "lentil",
	}},
	{CategoryFrozen, []string{"frozen", "ice cream", "sorbet"}},
	{CategoryBeverage, []string{
		"water", "juice", "wine", "beer", "coffee", " tea", "soda", "vodka", " rum",
		"whiskey", "brandy", "sake", "liqueur",
	}},
}

// 標點視為字詞分隔，讓 " salt " 這類整字關鍵字也能比對 "salt," 或 "(salt)"
var wordSeparators = strings.NewReplacer(",", " ", ";", " ", "(", " ", ")", " ", "/", " ", ".", " ")

// 分類對應的購物區
var departments = map[Category]string{
	CategorySpice:    "Spices & Seasonings",
	CategoryOil:      "Oils & Vinegars",
	CategoryFlour:    "Baking",
	CategorySugar:    "Baking",
	CategoryDairy:    "Dairy & Eggs",
	CategoryProduce:  "Produce",
	CategoryMeat:     "Meat & Seafood",
	CategoryGrain:    "Grains & Pasta",
	CategoryCanned:   "Canned Goods",
	CategoryFrozen:   "Frozen",
	CategoryBeverage: "Beverages",
	CategoryOther:    "Other",
}

// Classify 依食材名稱判斷分類，純函式
func Classify(ingredientName string) Category {
	name := strings.ToLower(strings.TrimSpace(ingredientName))
	if name == "" {
		return CategoryOther
	}
	name = " " + wordSeparators.Replace(name) + " "
	for _, c := range categoryTable {
		for _, kw := range c.keywords {
			if strings.Contains(name, kw) {
				return c.category
			}
		}
	}
	return CategoryOther
}

// Department 分類對應的購物區名稱
func Department(c Category) string {
	if d, ok := departments[c]; ok {
		return d
	}
	return departments[CategoryOther]
}

// Categories 回傳所有分類（宣告順序）
func Categories() []Category {
	out := make([]Category, 0, len(categoryTable)+1)
	for _, c := range categoryTable {
		out = append(out, c.category)
	}
	return append(out, CategoryOther)
}
