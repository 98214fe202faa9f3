package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"recipe-nutrition/internal/core/nutrition"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) LookupConversionFactor(ctx context.Context, fromUnit, toUnit, key string) (*nutrition.ConversionFactor, error) {
	args := m.Called(ctx, fromUnit, toUnit, key)
	f, _ := args.Get(0).(*nutrition.ConversionFactor)
	return f, args.Error(1)
}

func (m *mockRepository) UpsertConversionFactor(ctx context.Context, factor *nutrition.ConversionFactor) error {
	args := m.Called(ctx, factor)
	return args.Error(0)
}

func TestCachedConversionStore_ServesHitsFromCache(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepository)
	factor := &nutrition.ConversionFactor{FromUnit: "cup", ToUnit: "g", Key: "flour", Factor: 120}
	repo.On("LookupConversionFactor", ctx, "cup", "g", "flour").Return(factor, nil).Once()

	m := newTestManager(10, time.Minute)
	defer m.Close()
	store := NewCachedConversionStore(repo, m)

	for i := 0; i < 3; i++ {
		got, err := store.LookupConversionFactor(ctx, "cup", "g", "flour")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, 120.0, got.Factor)
	}
	repo.AssertNumberOfCalls(t, "LookupConversionFactor", 1)
}

func TestCachedConversionStore_CachesMissesUntilWrite(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepository)
	factor := &nutrition.ConversionFactor{FromUnit: "cup", ToUnit: "g", Key: "oats", Factor: 90}
	repo.On("LookupConversionFactor", ctx, "cup", "g", "oats").Return(nil, nil).Once()
	repo.On("UpsertConversionFactor", ctx, mock.Anything).Return(nil).Once()

	m := newTestManager(10, time.Minute)
	defer m.Close()
	store := NewCachedConversionStore(repo, m)

	got, err := store.LookupConversionFactor(ctx, "cup", "g", "oats")
	require.NoError(t, err)
	assert.Nil(t, got)
	got, err = store.LookupConversionFactor(ctx, "cup", "g", "oats")
	require.NoError(t, err)
	assert.Nil(t, got)
	repo.AssertNumberOfCalls(t, "LookupConversionFactor", 1)

	require.NoError(t, store.UpsertConversionFactor(ctx, &nutrition.ConversionFactor{FromUnit: "Cups", ToUnit: "g", Key: "oats", Factor: 90}))

	repo.ExpectedCalls = nil
	repo.On("LookupConversionFactor", ctx, "cup", "g", "oats").Return(factor, nil).Once()

	got, err = store.LookupConversionFactor(ctx, "cup", "g", "oats")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 90.0, got.Factor)
}

func TestCachedConversionStore_WithoutCache(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepository)
	repo.On("LookupConversionFactor", ctx, "tbsp", "g", "butter").Return(&nutrition.ConversionFactor{Factor: 14.2}, nil).Times(2)

	store := NewCachedConversionStore(repo, nil)
	for i := 0; i < 2; i++ {
		got, err := store.LookupConversionFactor(ctx, "tbsp", "g", "butter")
		require.NoError(t, err)
		assert.Equal(t, 14.2, got.Factor)
	}
	repo.AssertExpectations(t)
}

func TestCachedConversionStore_FeedsResolver(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepository)
	repo.On("LookupConversionFactor", mock.Anything, "cup", "g", mock.MatchedBy(func(k string) bool {
		return strings.Contains(k, "bread flour")
	})).Return(&nutrition.ConversionFactor{Factor: 127}, nil)

	m := newTestManager(10, time.Minute)
	defer m.Close()
	r := nutrition.NewResolver(nutrition.WithConversionStore(NewCachedConversionStore(repo, m)))

	got := r.ResolveGrams(ctx, 2, "cup", "bread flour")

	assert.Equal(t, nutrition.MethodDatabase, got.Method)
	assert.InDelta(t, 254, got.Grams, 1e-9)
}
