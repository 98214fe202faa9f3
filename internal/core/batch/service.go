package batch

import (
	"context"
	"encoding/json"
	"strings"

	"recipe-nutrition/internal/core/nutrition"
	"recipe-nutrition/internal/pkg/common"

	"go.uber.org/zap"
)

// 單列處理結果標籤
const (
	ResultNutritionUpdated = "nutrition_updated"
	ResultNutritionSkipped = "nutrition_skipped"
	ResultNotesUpdated     = "notes_updated"
	ResultError            = "error"
)

// Row 一筆待更新的食譜
type Row struct {
	ID           string          `json:"id" binding:"required"`
	Nutrition    json.RawMessage `json:"nutrition,omitempty"`
	ScienceNotes json.RawMessage `json:"science_notes,omitempty"`
}

// RowError 單列寫入失敗
type RowError struct {
	ID    string `json:"id"`
	Field string `json:"field"`
	Error string `json:"error"`
}

// Result 批次統計
type Result struct {
	Processed        int        `json:"processed"`
	NutritionUpdated int        `json:"nutrition_updated"`
	NutritionSkipped int        `json:"nutrition_skipped"`
	NotesUpdated     int        `json:"notes_updated"`
	Errors           int        `json:"errors"`
	Failures         []RowError `json:"failures,omitempty"`
}

// Store 食譜寫入介面
type Store interface {
	UpdateNutrition(ctx context.Context, id string, n nutrition.Nutrition) error
	UpdateScienceNotes(ctx context.Context, id string, notes []string) error
}

// Service 批次更新
type Service struct {
	store    Store
	observer func(result string)
}

// Option 服務選項
type Option func(*Service)

// WithObserver 每個欄位處理完成後回呼（監控用）
func WithObserver(fn func(result string)) Option {
	return func(s *Service) {
		s.observer = fn
	}
}

// NewService 創建批次更新服務
func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Process 逐列標準化並寫入；營養值不完整時略過，寫入失敗只記錄不中斷
func (s *Service) Process(ctx context.Context, rows []Row) (Result, error) {
	var result Result

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		id := strings.TrimSpace(row.ID)
		if id == "" {
			result.Errors++
			result.Failures = append(result.Failures, RowError{Field: "id", Error: "id is required"})
			s.observe(ResultError)
			continue
		}
		result.Processed++

		if !common.IsJSONNull(row.Nutrition) {
			s.processNutrition(ctx, id, row.Nutrition, &result)
		}
		if !common.IsJSONNull(row.ScienceNotes) {
			s.processNotes(ctx, id, row.ScienceNotes, &result)
		}
	}

	common.LogInfo("批次更新完成",
		zap.Int("processed", result.Processed),
		zap.Int("nutrition_updated", result.NutritionUpdated),
		zap.Int("nutrition_skipped", result.NutritionSkipped),
		zap.Int("notes_updated", result.NotesUpdated),
		zap.Int("errors", result.Errors),
	)
	return result, nil
}

func (s *Service) processNutrition(ctx context.Context, id string, raw json.RawMessage, result *Result) {
	if !nutrition.ValidateNutrition(raw) {
		result.NutritionSkipped++
		s.observe(ResultNutritionSkipped)
		common.LogDebug("Skipping incomplete nutrition", zap.String("recipe_id", id))
		return
	}

	std := nutrition.StandardizeNutrition(raw)
	if err := s.store.UpdateNutrition(ctx, id, std); err != nil {
		s.fail(id, "nutrition", err, result)
		return
	}
	result.NutritionUpdated++
	s.observe(ResultNutritionUpdated)
}

func (s *Service) processNotes(ctx context.Context, id string, raw json.RawMessage, result *Result) {
	notes := nutrition.StandardizeScienceNotes(raw)
	if err := s.store.UpdateScienceNotes(ctx, id, notes); err != nil {
		s.fail(id, "science_notes", err, result)
		return
	}
	result.NotesUpdated++
	s.observe(ResultNotesUpdated)
}

func (s *Service) fail(id, field string, err error, result *Result) {
	result.Errors++
	result.Failures = append(result.Failures, RowError{ID: id, Field: field, Error: err.Error()})
	s.observe(ResultError)
	common.LogWarn("Batch row update failed",
		zap.String("recipe_id", id),
		zap.String("field", field),
		zap.Error(err),
	)
}

func (s *Service) observe(result string) {
	if s.observer != nil {
		s.observer(result)
	}
}
