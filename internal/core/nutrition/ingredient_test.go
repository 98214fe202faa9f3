package nutrition

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeIngredient(t *testing.T) {
	t.Run("bare string", func(t *testing.T) {
		got := NormalizeIngredient("  flour ")
		assert.Equal(t, Ingredient{Item: "flour"}, got)
		assert.False(t, got.IsStructured())
	})

	t.Run("nested item object", func(t *testing.T) {
		got := NormalizeIngredient(map[string]interface{}{
			"item": map[string]interface{}{"name": "tomato"},
			"qty":  "1 1/2",
			"unit": " cup ",
		})
		assert.Equal(t, "tomato", got.Item)
		assert.Equal(t, 1.5, got.Qty)
		assert.Equal(t, "cup", got.Unit)
		assert.True(t, got.IsStructured())
	})

	t.Run("json object string", func(t *testing.T) {
		got := NormalizeIngredient(`{"item":"milk","qty_metric":250,"unit_metric":"ml","qty_imperial":1,"unit_imperial":"cup"}`)
		assert.Equal(t, "milk", got.Item)
		qty, unit := got.Measure()
		assert.Equal(t, 250.0, qty)
		assert.Equal(t, "ml", unit)
	})

	t.Run("negative quantities clamp", func(t *testing.T) {
		got := NormalizeIngredient(Ingredient{Item: " egg ", Qty: -2, QtyMetric: -1})
		assert.Equal(t, "egg", got.Item)
		assert.Equal(t, 0.0, got.Qty)
		assert.Equal(t, 0.0, got.QtyMetric)
	})
}

func TestNormalizeIngredients(t *testing.T) {
	got := NormalizeIngredients([]interface{}{
		"salt",
		map[string]interface{}{"item": "", "qty": 1},
		map[string]interface{}{"item": "egg", "qty": -2},
		map[string]interface{}{"name": "rice", "quantity": "2", "unit": "cups", "notes": "rinsed"},
		42,
	})

	require.Len(t, got, 3)
	assert.Equal(t, "salt", got[0].Item)
	assert.Equal(t, Ingredient{Item: "egg"}, got[1])
	assert.Equal(t, Ingredient{Item: "rice", Qty: 2, Unit: "cups", Notes: "rinsed"}, got[2])

	for _, in := range []interface{}{nil, "not json", map[string]interface{}{"item": "x"}, json.RawMessage(`{}`)} {
		out := NormalizeIngredients(in)
		assert.NotNil(t, out)
		assert.Empty(t, out)
	}
}

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		in   interface{}
		want float64
	}{
		{"1/2", 0.5},
		{"1 1/2", 1.5},
		{"½", 0.5},
		{"1½", 1.5},
		{"2-3", 2},
		{"2 cups", 2},
		{"abc", 0},
		{"1/0", 0},
		{"", 0},
		{-1.0, 0},
		{json.Number("3"), 3},
		{4, 4},
		{nil, 0},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, ParseQuantity(tt.in), 1e-9, "%v", tt.in)
	}
}
