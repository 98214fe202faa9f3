package nutrition

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	rows  map[string]float64
	err   error
	panic bool
	calls int
}

func (s *fakeStore) LookupConversionFactor(_ context.Context, fromUnit, toUnit, key string) (*ConversionFactor, error) {
	s.calls++
	if s.panic {
		panic("store exploded")
	}
	if s.err != nil {
		return nil, s.err
	}
	f, ok := s.rows[fromUnit+"|"+toUnit+"|"+key]
	if !ok {
		return nil, nil
	}
	return &ConversionFactor{FromUnit: fromUnit, ToUnit: toUnit, Key: key, Factor: f}, nil
}

func TestResolveGrams_Tiers(t *testing.T) {
	ctx := context.Background()
	r := NewResolver()

	tests := []struct {
		name       string
		qty        float64
		unit       string
		ingredient string
		wantGrams  float64
		wantMethod string
		wantConf   float64
	}{
		{"mass unit", 200, "g", "chicken breast", 200, MethodCategoryTable, ConfidenceCategoryTable},
		{"plural alias", 2, "Tablespoons", "butter", 30, MethodCategoryTable, ConfidenceCategoryTable},
		{"category cup", 1, "cup", "honey", 200, MethodCategoryTable, ConfidenceCategoryTable},
		{"stick equivalence", 1, "stick", "butter", 120, MethodUnitEquivalence, ConfidenceUnitEquivalence},
		{"clove equivalence", 2, "cloves", "garlic", 6, MethodUnitEquivalence, ConfidenceUnitEquivalence},
		{"volume with density", 2, "fl oz", "water", 2 * 29.5735295625, MethodDensityEstimate, 0.8},
		{"generic pinch", 2, "pinch", "xyzzy", 0.72, MethodGenericFallback, ConfidenceGenericFallback},
		{"generic unknown unit", 3, "bag", "xyzzy", 3, MethodGenericFallback, ConfidenceGenericFallback},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.ResolveGrams(ctx, tt.qty, tt.unit, tt.ingredient)
			assert.InDelta(t, tt.wantGrams, got.Grams, 1e-9)
			assert.Equal(t, tt.wantMethod, got.Method)
			assert.InDelta(t, tt.wantConf, got.Confidence, 1e-9)
		})
	}
}

func TestResolveGrams_StickEqualsEightTablespoons(t *testing.T) {
	r := NewResolver()
	ctx := context.Background()

	stick := r.ResolveGrams(ctx, 1, "stick", "butter")
	tbsp := r.ResolveGrams(ctx, 8, "tbsp", "butter")

	assert.InDelta(t, tbsp.Grams, stick.Grams, 1e-9)
}

func TestResolveGrams_StickUsesStoredTablespoon(t *testing.T) {
	store := &fakeStore{rows: map[string]float64{"tbsp|g|butter": 14.2}}
	r := NewResolver(WithConversionStore(store))
	ctx := context.Background()

	stick := r.ResolveGrams(ctx, 1, "stick", "butter")
	tbsp := r.ResolveGrams(ctx, 8, "tbsp", "butter")

	assert.Equal(t, MethodDatabase, stick.Method)
	assert.InDelta(t, 113.6, stick.Grams, 1e-9)
	assert.InDelta(t, tbsp.Grams, stick.Grams, 1e-9)
}

func TestResolveGrams_LinearInQuantity(t *testing.T) {
	store := &fakeStore{rows: map[string]float64{"cup|g|almond flour": 96}}
	r := NewResolver(WithConversionStore(store))
	ctx := context.Background()

	cases := []struct{ unit, ingredient string }{
		{"cup", "almond flour"},
		{"g", "chicken"},
		{"stick", "butter"},
		{"fl oz", "water"},
		{"cup", "xyzzy"},
		{"pinch", "xyzzy"},
		{"bag", "xyzzy"},
	}

	for _, c := range cases {
		for _, q := range []float64{0.25, 1, 3.5} {
			one := r.ResolveGrams(ctx, q, c.unit, c.ingredient)
			two := r.ResolveGrams(ctx, 2*q, c.unit, c.ingredient)
			assert.Equal(t, one.Method, two.Method, "%s %s", c.unit, c.ingredient)
			assert.InDelta(t, 2*one.Grams, two.Grams, 1e-9, "%s %s", c.unit, c.ingredient)
		}
	}
}

func TestResolveGrams_InvalidQuantity(t *testing.T) {
	r := NewResolver()
	for _, q := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		got := r.ResolveGrams(context.Background(), q, "cup", "flour")
		assert.Equal(t, GramsResult{Grams: 0, Confidence: 0, Method: MethodError}, got)
	}
}

func TestResolveGrams_OverflowIsError(t *testing.T) {
	r := NewResolver()

	got := r.ResolveGrams(context.Background(), 1e307, "cup", "flour")

	assert.Equal(t, GramsResult{Grams: 0, Confidence: 0, Method: MethodError}, got)
}

func TestResolveGrams_StoreTier(t *testing.T) {
	store := &fakeStore{rows: map[string]float64{
		"cup|g|bread flour": 127,
		"cup|g|flour":       120,
	}}
	r := NewResolver(WithConversionStore(store))
	ctx := context.Background()

	exact := r.ResolveGrams(ctx, 2, "cups", "Bread Flour")
	assert.Equal(t, MethodDatabase, exact.Method)
	assert.InDelta(t, 254, exact.Grams, 1e-9)
	assert.InDelta(t, ConfidenceDatabase, exact.Confidence, 1e-9)

	byCategory := r.ResolveGrams(ctx, 1, "cup", "almond flour")
	assert.Equal(t, MethodDatabase, byCategory.Method)
	assert.InDelta(t, 120, byCategory.Grams, 1e-9)
	assert.InDelta(t, ConfidenceDatabaseCategory, byCategory.Confidence, 1e-9)
}

func TestResolveGrams_StoreErrorFallsThrough(t *testing.T) {
	store := &fakeStore{err: errors.New("connection refused")}
	r := NewResolver(WithConversionStore(store))

	got := r.ResolveGrams(context.Background(), 1, "cup", "all-purpose flour")

	assert.Equal(t, MethodCategoryTable, got.Method)
	assert.InDelta(t, 125, got.Grams, 1e-9)
	assert.Greater(t, store.calls, 0)
}

func TestResolveGrams_PanicRecovered(t *testing.T) {
	store := &fakeStore{panic: true}
	r := NewResolver(WithConversionStore(store))

	got := r.ResolveGrams(context.Background(), 4, "cup", "flour")

	assert.Equal(t, GramsResult{Grams: 4, Confidence: ConfidenceErrorFallback, Method: MethodErrorFallback}, got)
}

func TestResolveGrams_Observer(t *testing.T) {
	var seen []string
	r := NewResolver(WithObserver(func(res GramsResult) {
		seen = append(seen, res.Method)
	}))

	r.ResolveGrams(context.Background(), 1, "g", "rice")
	r.ResolveGrams(context.Background(), 0, "g", "rice")

	require.Len(t, seen, 2)
	assert.Equal(t, []string{MethodCategoryTable, MethodError}, seen)
}

func TestNormalizeUnit(t *testing.T) {
	assert.Equal(t, "tbsp", NormalizeUnit(" Tablespoons "))
	assert.Equal(t, "g", NormalizeUnit("grams"))
	assert.Equal(t, "each", NormalizeUnit(""))
	assert.Equal(t, "fl oz", NormalizeUnit("Fluid  Ounces"))
	assert.Equal(t, "tsp", NormalizeUnit("tsp."))
	assert.True(t, IsVolumeUnit("cups"))
	assert.False(t, IsVolumeUnit("lb"))
}
