package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"recipe-nutrition/internal/core/nutrition"
	"recipe-nutrition/internal/infrastructure/config"
	"recipe-nutrition/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(config.DatabaseConfig{
		Driver:       "sqlite",
		DSN:          fmt.Sprintf("file:%s?mode=memory&cache=shared", common.GenerateUUID()),
		MaxOpenConns: 1,
		AutoMigrate:  true,
	}, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })
	return db
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Driver: "oracle"}, false)
	assert.Error(t, err)
}

func TestConversionRepository_LookupMissReturnsNil(t *testing.T) {
	repo := NewConversionRepository(openTestDB(t))

	got, err := repo.LookupConversionFactor(context.Background(), "cup", "g", "unobtainium")

	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestConversionRepository_UpsertAndLookupNormalizes(t *testing.T) {
	ctx := context.Background()
	repo := NewConversionRepository(openTestDB(t))

	require.NoError(t, repo.UpsertConversionFactor(ctx, &nutrition.ConversionFactor{
		FromUnit: "Cups", Key: "  Almond Flour ", Factor: 96, Confidence: 0.9,
	}))

	got, err := repo.LookupConversionFactor(ctx, "cup", "grams", "almond flour")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "cup", got.FromUnit)
	assert.Equal(t, "g", got.ToUnit)
	assert.Equal(t, "almond flour", got.Key)
	assert.Equal(t, 96.0, got.Factor)
	assert.Equal(t, "manual", got.Source)
}

func TestConversionRepository_UpsertOverwrites(t *testing.T) {
	ctx := context.Background()
	repo := NewConversionRepository(openTestDB(t))

	require.NoError(t, repo.UpsertConversionFactor(ctx, &nutrition.ConversionFactor{FromUnit: "tbsp", Key: "honey", Factor: 20}))
	require.NoError(t, repo.UpsertConversionFactor(ctx, &nutrition.ConversionFactor{FromUnit: "tbsp", Key: "honey", Factor: 21, Source: "lab"}))

	all, err := repo.ListConversionFactors(ctx, "honey")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 21.0, all[0].Factor)
	assert.Equal(t, "lab", all[0].Source)
}

func TestConversionRepository_UpsertRejectsInvalid(t *testing.T) {
	repo := NewConversionRepository(openTestDB(t))

	cases := []struct {
		name   string
		factor *nutrition.ConversionFactor
	}{
		{"nil", nil},
		{"missing unit", &nutrition.ConversionFactor{Key: "rice", Factor: 1}},
		{"missing key", &nutrition.ConversionFactor{FromUnit: "cup", Factor: 1}},
		{"zero factor", &nutrition.ConversionFactor{FromUnit: "cup", Key: "rice"}},
		{"bad confidence", &nutrition.ConversionFactor{FromUnit: "cup", Key: "rice", Factor: 1, Confidence: 2}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := repo.UpsertConversionFactor(context.Background(), tc.factor)
			assert.ErrorIs(t, err, common.ErrInvalidConversion)
		})
	}
}

func TestSeedConversions_Idempotent(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewConversionRepository(db)

	require.NoError(t, SeedConversions(ctx, db))
	require.NoError(t, SeedConversions(ctx, db))

	all, err := repo.ListConversionFactors(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, len(seedConversions))

	butter, err := repo.LookupConversionFactor(ctx, "tablespoons", "g", "butter")
	require.NoError(t, err)
	require.NotNil(t, butter)
	assert.Equal(t, 14.2, butter.Factor)
}

func TestSeededStoreFeedsResolver(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	require.NoError(t, SeedConversions(ctx, db))

	resolver := nutrition.NewResolver(nutrition.WithConversionStore(NewConversionRepository(db)))
	got := resolver.ResolveGrams(ctx, 2, "tbsp", "butter")

	assert.Equal(t, nutrition.MethodDatabase, got.Method)
	assert.InDelta(t, 28.4, got.Grams, 1e-9)
}

func TestSeededStoreKeepsUnitEquivalences(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	require.NoError(t, SeedConversions(ctx, db))
	resolver := nutrition.NewResolver(nutrition.WithConversionStore(NewConversionRepository(db)))

	tests := []struct {
		ingredient string
		unit       string
		qty        float64
		baseUnit   string
		baseQty    float64
	}{
		{"butter", "stick", 1, "tbsp", 8},
		{"egg", "dozen", 1, "each", 12},
	}

	for _, tt := range tests {
		t.Run(tt.ingredient+" "+tt.unit, func(t *testing.T) {
			got := resolver.ResolveGrams(ctx, tt.qty, tt.unit, tt.ingredient)
			base := resolver.ResolveGrams(ctx, tt.baseQty, tt.baseUnit, tt.ingredient)

			assert.Equal(t, nutrition.MethodDatabase, got.Method)
			assert.Equal(t, nutrition.MethodDatabase, base.Method)
			assert.InDelta(t, base.Grams, got.Grams, 1e-9)
		})
	}
}

func TestRecipeRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewRecipeRepository(openTestDB(t))

	recipe := &Recipe{
		Title:       "Pancakes",
		Servings:    4,
		Ingredients: []nutrition.Ingredient{{Item: "flour", Qty: 2, Unit: "cup"}},
	}
	require.NoError(t, repo.Create(ctx, recipe))
	require.NotEmpty(t, recipe.ID)

	got, err := repo.FindByID(ctx, recipe.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pancakes", got.Title)
	assert.Equal(t, 4.0, got.Servings)
	require.Len(t, got.Ingredients, 1)
	assert.Equal(t, "flour", got.Ingredients[0].Item)
	assert.Nil(t, got.Nutrition)
	assert.Equal(t, []string{}, got.ScienceNotes)
}

func TestRecipeRepository_CreateRequiresTitle(t *testing.T) {
	repo := NewRecipeRepository(openTestDB(t))

	err := repo.Create(context.Background(), &Recipe{})

	assert.ErrorIs(t, err, common.ErrInvalidRequest)
}

func TestRecipeRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewRecipeRepository(openTestDB(t))

	_, err := repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrRecipeNotFound)

	err = repo.UpdateNutrition(ctx, "missing", nutrition.Nutrition{Calories: 1})
	assert.ErrorIs(t, err, common.ErrRecipeNotFound)

	err = repo.UpdateScienceNotes(ctx, "missing", nil)
	assert.ErrorIs(t, err, common.ErrRecipeNotFound)
}

func TestRecipeRepository_UpdateNutritionAndNotes(t *testing.T) {
	ctx := context.Background()
	repo := NewRecipeRepository(openTestDB(t))
	recipe := &Recipe{Title: "Toast"}
	require.NoError(t, repo.Create(ctx, recipe))

	require.NoError(t, repo.UpdateNutrition(ctx, recipe.ID, nutrition.Nutrition{Calories: 250, Kcal: 250, Protein: 8}))
	require.NoError(t, repo.UpdateScienceNotes(ctx, recipe.ID, []string{"Maillard reaction"}))

	got, err := repo.FindByID(ctx, recipe.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Nutrition)
	assert.Equal(t, 250.0, got.Nutrition.Calories)
	assert.Equal(t, 8.0, got.Nutrition.Protein)
	assert.Equal(t, []string{"Maillard reaction"}, got.ScienceNotes)
}

func TestRecipeRepository_ReadsLegacyShapes(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewRecipeRepository(db)

	legacy := RecipeModel{
		ID:           "legacy-1",
		Title:        "Old stew",
		Servings:     2,
		Ingredients:  datatypes.JSON(`["2 carrots", {"name": "beef", "quantity": "1/2", "unit": "lb"}]`),
		Nutrition:    datatypes.JSON(`{"Calories": "410 kcal", "protein_g": 30, "carbohydrates": 12, "total_fat": 20}`),
		ScienceNotes: datatypes.JSON(`[" braise slowly ", null, ""]`),
	}
	require.NoError(t, db.Create(&legacy).Error)

	got, err := repo.FindByID(ctx, "legacy-1")
	require.NoError(t, err)

	require.Len(t, got.Ingredients, 2)
	assert.Equal(t, "beef", got.Ingredients[1].Item)
	assert.Equal(t, 0.5, got.Ingredients[1].Qty)
	require.NotNil(t, got.Nutrition)
	assert.Equal(t, 410.0, got.Nutrition.Calories)
	assert.Equal(t, 30.0, got.Nutrition.Protein)
	assert.Equal(t, []string{"braise slowly"}, got.ScienceNotes)
}

func TestRecipeRepository_ListRaw(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewRecipeRepository(db)
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, &Recipe{ID: fmt.Sprintf("r%d", i), Title: "x"}))
	}

	page, err := repo.ListRaw(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "r1", page[0].ID)

	var notes []string
	require.NoError(t, json.Unmarshal(page[0].ScienceNotes, &notes))
	assert.Empty(t, notes)
}
