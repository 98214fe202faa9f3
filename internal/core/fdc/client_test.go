package fdc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"recipe-nutrition/internal/core/cache"
	"recipe-nutrition/internal/infrastructure/config"
	"recipe-nutrition/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chickenResponse = `{
  "totalHits": 1,
  "foods": [{
    "fdcId": 171077,
    "description": "Chicken, broilers or fryers, breast, meat only, raw",
    "dataType": "SR Legacy",
    "foodNutrients": [
      {"nutrientId": 1008, "nutrientName": "Energy", "unitName": "KCAL", "value": 120},
      {"nutrientId": 1003, "nutrientName": "Protein", "unitName": "G", "value": 22.5},
      {"nutrientId": 1004, "nutrientName": "Total lipid (fat)", "unitName": "G", "value": 2.62},
      {"nutrientId": 1258, "nutrientName": "Fatty acids, total saturated", "unitName": "G", "value": 0.56},
      {"nutrientId": 1093, "nutrientName": "Sodium, Na", "unitName": "MG", "value": 45},
      {"nutrientId": 9999, "nutrientName": "Unmapped", "unitName": "G", "value": 7}
    ]
  }]
}`

func newTestServer(t *testing.T, status int, body string, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		assert.Equal(t, "/foods/search", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))
		assert.Equal(t, "1", r.URL.Query().Get("pageSize"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(baseURL string) config.FDCConfig {
	return config.FDCConfig{
		Enabled:           true,
		APIKey:            "test-key",
		BaseURL:           baseURL,
		Timeout:           5 * time.Second,
		BatchSize:         3,
		RequestsPerSecond: 100,
		Burst:             10,
	}
}

func TestLookupAuthoritativeNutrients_ScalesByGrams(t *testing.T) {
	var hits int32
	srv := newTestServer(t, http.StatusOK, chickenResponse, &hits)
	client := NewClient(testConfig(srv.URL))

	got, err := client.LookupAuthoritativeNutrients(context.Background(), "chicken breast", 200)
	require.NoError(t, err)

	assert.Equal(t, "171077", got.SourceID)
	assert.Equal(t, 200.0, got.Grams)
	assert.Equal(t, 240.0, got.Nutrients["calories"])
	assert.Equal(t, 45.0, got.Nutrients["protein"])
	assert.Equal(t, 5.24, got.Nutrients["fat"])
	assert.Equal(t, 1.12, got.Nutrients["saturated_fat"])
	assert.Equal(t, 90.0, got.Nutrients["sodium"])
	assert.NotContains(t, got.Nutrients, "carbs")
	assert.Len(t, got.Nutrients, 5)
	assert.Equal(t, 0.9, got.Confidence)
}

func TestLookupAuthoritativeNutrients_NotFound(t *testing.T) {
	var hits int32
	srv := newTestServer(t, http.StatusOK, `{"totalHits":0,"foods":[]}`, &hits)
	client := NewClient(testConfig(srv.URL))

	_, err := client.LookupAuthoritativeNutrients(context.Background(), "xyzzy", 100)

	assert.ErrorIs(t, err, common.ErrNutrientNotFound)
}

func TestLookupAuthoritativeNutrients_UpstreamError(t *testing.T) {
	var hits int32
	srv := newTestServer(t, http.StatusInternalServerError, `{"error":"boom"}`, &hits)
	client := NewClient(testConfig(srv.URL))

	_, err := client.LookupAuthoritativeNutrients(context.Background(), "rice", 100)

	assert.ErrorIs(t, err, common.ErrNutrientSourceFailed)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestLookupAuthoritativeNutrients_Disabled(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Enabled = false

	_, err := NewClient(cfg).LookupAuthoritativeNutrients(context.Background(), "rice", 100)

	assert.ErrorIs(t, err, common.ErrSourceDisabled)
}

func TestLookupAuthoritativeNutrients_InvalidGrams(t *testing.T) {
	_, err := NewClient(testConfig("http://127.0.0.1:1")).LookupAuthoritativeNutrients(context.Background(), "rice", 0)

	assert.ErrorIs(t, err, common.ErrInvalidRequest)
}

func TestSearchFood_UsesCache(t *testing.T) {
	var hits int32
	srv := newTestServer(t, http.StatusOK, chickenResponse, &hits)
	m := cache.NewManager(config.CacheConfig{MaxSize: 10, TTL: time.Minute})
	defer m.Close()

	var outcomes []string
	client := NewClient(testConfig(srv.URL), WithCache(m), WithObserver(func(outcome string, _ time.Duration) {
		outcomes = append(outcomes, outcome)
	}))

	for _, grams := range []float64{100, 50} {
		got, err := client.LookupAuthoritativeNutrients(context.Background(), "Chicken Breast", grams)
		require.NoError(t, err)
		assert.Equal(t, 120*grams/100, got.Nutrients["calories"])
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assert.Equal(t, []string{OutcomeHit, OutcomeCached}, outcomes)
}

func TestFood_PerHundredGramsAtwaterFallback(t *testing.T) {
	food := Food{FoodNutrients: []FoodNutrient{
		{NutrientID: NutrientIDEnergy, UnitName: "kJ", Value: 500},
		{NutrientID: NutrientIDEnergyAtwater, UnitName: "KCAL", Value: 119},
		{NutrientID: NutrientIDProtein, UnitName: "G", Value: 20},
	}}

	got := food.PerHundredGrams()

	assert.Equal(t, map[string]float64{"calories": 119, "protein": 20}, got)
}

func TestMatchConfidence(t *testing.T) {
	assert.Equal(t, 0.9, MatchConfidence("chicken breast", "Chicken, breast, raw"))
	assert.Equal(t, 0.7, MatchConfidence("chicken thigh", "Chicken, breast, raw"))
	assert.Equal(t, 0.5, MatchConfidence("", "anything"))
}
