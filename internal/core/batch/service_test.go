package batch

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"recipe-nutrition/internal/core/nutrition"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) UpdateNutrition(ctx context.Context, id string, n nutrition.Nutrition) error {
	return m.Called(ctx, id, n).Error(0)
}

func (m *mockStore) UpdateScienceNotes(ctx context.Context, id string, notes []string) error {
	return m.Called(ctx, id, notes).Error(0)
}

func TestProcess_ValidNutritionIsStandardizedAndPersisted(t *testing.T) {
	store := new(mockStore)
	store.On("UpdateNutrition", mock.Anything, "r1", mock.MatchedBy(func(n nutrition.Nutrition) bool {
		return n.Calories == 420 && n.Protein == 12 && n.Carbs == 50 && n.Fat == 18
	})).Return(nil).Once()

	res, err := NewService(store).Process(context.Background(), []Row{{
		ID:        "r1",
		Nutrition: json.RawMessage(`{"Calories": "420", "protein_g": 12, "carbohydrates": 50, "fat": 18}`),
	}})

	require.NoError(t, err)
	assert.Equal(t, Result{Processed: 1, NutritionUpdated: 1}, res)
	store.AssertExpectations(t)
}

func TestProcess_IncompleteNutritionIsSkipped(t *testing.T) {
	store := new(mockStore)

	res, err := NewService(store).Process(context.Background(), []Row{
		{ID: "r1", Nutrition: json.RawMessage(`{"calories": 100}`)},
		{ID: "r2", Nutrition: json.RawMessage(`"not an object"`)},
	})

	require.NoError(t, err)
	assert.Equal(t, 2, res.Processed)
	assert.Equal(t, 2, res.NutritionSkipped)
	assert.Zero(t, res.Errors)
	store.AssertNotCalled(t, "UpdateNutrition", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcess_NotesAlwaysPersisted(t *testing.T) {
	store := new(mockStore)
	store.On("UpdateScienceNotes", mock.Anything, "r1", []string{"emulsion", "42"}).Return(nil).Once()
	store.On("UpdateScienceNotes", mock.Anything, "r2", []string{}).Return(nil).Once()

	res, err := NewService(store).Process(context.Background(), []Row{
		{ID: "r1", ScienceNotes: json.RawMessage(`[" emulsion ", "", 42, null]`)},
		{ID: "r2", ScienceNotes: json.RawMessage(`{"oops": true}`)},
		{ID: "r3", ScienceNotes: json.RawMessage(`null`)},
	})

	require.NoError(t, err)
	assert.Equal(t, 3, res.Processed)
	assert.Equal(t, 2, res.NotesUpdated)
	store.AssertExpectations(t)
}

func TestProcess_StoreErrorsAreCountedNotFatal(t *testing.T) {
	store := new(mockStore)
	store.On("UpdateNutrition", mock.Anything, "bad", mock.Anything).Return(errors.New("db down")).Once()
	store.On("UpdateNutrition", mock.Anything, "good", mock.Anything).Return(nil).Once()

	var observed []string
	svc := NewService(store, WithObserver(func(r string) { observed = append(observed, r) }))

	valid := json.RawMessage(`{"calories": 1, "protein": 1, "carbs": 1, "fat": 1}`)
	res, err := svc.Process(context.Background(), []Row{
		{ID: "bad", Nutrition: valid},
		{ID: "good", Nutrition: valid},
		{ID: "  "},
	})

	require.NoError(t, err)
	assert.Equal(t, 2, res.Processed)
	assert.Equal(t, 1, res.NutritionUpdated)
	assert.Equal(t, 2, res.Errors)
	require.Len(t, res.Failures, 2)
	assert.Equal(t, RowError{ID: "bad", Field: "nutrition", Error: "db down"}, res.Failures[0])
	assert.Equal(t, "id", res.Failures[1].Field)
	assert.Equal(t, []string{ResultError, ResultNutritionUpdated, ResultError}, observed)
	store.AssertExpectations(t)
}

func TestProcess_CanceledContextStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := NewService(new(mockStore)).Process(ctx, []Row{{ID: "r1"}})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, res.Processed)
}
