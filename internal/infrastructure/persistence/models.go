package persistence

import (
	"time"

	"gorm.io/datatypes"
)

// UnitConversionModel 單位換算表
type UnitConversionModel struct {
	ID               uint      `gorm:"primaryKey"`
	FromUnit         string    `gorm:"size:64;not null;uniqueIndex:idx_unit_conversion_lookup,priority:1"`
	ToUnit           string    `gorm:"size:16;not null;default:g;uniqueIndex:idx_unit_conversion_lookup,priority:2"`
	FoodCategory     string    `gorm:"column:food_category;size:128;not null;uniqueIndex:idx_unit_conversion_lookup,priority:3"`
	ConversionFactor float64   `gorm:"not null"`
	Confidence       float64   `gorm:"not null;default:0"`
	Notes            string    `gorm:"type:text"`
	Source           string    `gorm:"size:64"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TableName 資料表名稱
func (UnitConversionModel) TableName() string {
	return "unit_conversions"
}

// RecipeModel 食譜（只保存營養計算需要的欄位）
type RecipeModel struct {
	ID           string         `gorm:"primaryKey;size:36"`
	Title        string         `gorm:"size:255;not null"`
	Servings     float64        `gorm:"not null;default:1"`
	Ingredients  datatypes.JSON `gorm:"not null"`
	Nutrition    datatypes.JSON
	ScienceNotes datatypes.JSON
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName 資料表名稱
func (RecipeModel) TableName() string {
	return "recipes"
}

// Models 需要自動遷移的模型
func Models() []interface{} {
	return []interface{}{
		&UnitConversionModel{},
		&RecipeModel{},
	}
}
