package verify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"recipe-nutrition/internal/core/nutrition"
	"recipe-nutrition/internal/pkg/common"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultBatchSize = 3

// 單一食材查詢結果標籤
const (
	LookupVerified = "verified"
	LookupFailed   = "failed"
	LookupSkipped  = "skipped"
)

// VerifyRequest 校正請求，Nutrition 為每份營養值
type VerifyRequest struct {
	Ingredients []nutrition.Ingredient `json:"ingredients"`
	Servings    float64                `json:"servings"`
	Nutrition   nutrition.Nutrition    `json:"nutrition"`
}

// Lookup 單一食材的查詢紀錄
type Lookup struct {
	Ingredient  string  `json:"ingredient"`
	Grams       float64 `json:"grams"`
	GramsMethod string  `json:"grams_method"`
	Status      string  `json:"status"`
	SourceID    string  `json:"source_id,omitempty"`
	Description string  `json:"description,omitempty"`
	Error       string  `json:"error,omitempty"`
}

// VerifyResult 校正結果與查詢紀錄
type VerifyResult struct {
	nutrition.ReconcileResult
	Lookups []Lookup `json:"lookups"`
}

// Config 批次查詢設定
type Config struct {
	BatchSize  int
	BatchDelay time.Duration
}

// Service 以外部權威來源校正營養值
type Service struct {
	source     nutrition.NutrientSource
	resolver   *nutrition.Resolver
	reconciler *nutrition.Reconciler
	config     Config
	observer   func(status string)
}

// Option 服務選項
type Option func(*Service)

// WithObserver 每筆食材查詢完成後回呼（監控用）
func WithObserver(fn func(status string)) Option {
	return func(s *Service) {
		s.observer = fn
	}
}

// NewService 創建校正服務
func NewService(source nutrition.NutrientSource, resolver *nutrition.Resolver, reconciler *nutrition.Reconciler, cfg Config, opts ...Option) *Service {
	if resolver == nil {
		resolver = nutrition.NewResolver()
	}
	if reconciler == nil {
		reconciler = nutrition.NewReconciler(nutrition.DefaultThresholdPercent, nutrition.DefaultVerificationSource)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	s := &Service{
		source:     source,
		resolver:   resolver,
		reconciler: reconciler,
		config:     cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Available 來源是否可用
func (s *Service) Available() bool {
	if s == nil || s.source == nil {
		return false
	}
	if e, ok := s.source.(interface{ Enabled() bool }); ok {
		return e.Enabled()
	}
	return true
}

// Verify 分批查詢每項食材，查詢失敗的食材不列入校正
func (s *Service) Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	if !s.Available() {
		return nil, common.ErrSourceDisabled
	}

	lookups := make([]Lookup, len(req.Ingredients))
	verified := make([]*nutrition.VerifiedIngredient, len(req.Ingredients))

	for start := 0; start < len(req.Ingredients); start += s.config.BatchSize {
		if start > 0 && s.config.BatchDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.config.BatchDelay):
			}
		}

		end := start + s.config.BatchSize
		if end > len(req.Ingredients) {
			end = len(req.Ingredients)
		}

		g, grpCtx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				lookups[i], verified[i] = s.lookup(grpCtx, req.Ingredients[i], req.Servings)
				s.observe(lookups[i].Status)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	found := make([]nutrition.VerifiedIngredient, 0, len(verified))
	for _, v := range verified {
		if v != nil {
			found = append(found, *v)
		}
	}

	common.LogInfo("營養校正完成",
		zap.Int("ingredients", len(req.Ingredients)),
		zap.Int("verified", len(found)),
	)

	return &VerifyResult{
		ReconcileResult: s.reconciler.Reconcile(req.Nutrition, found),
		Lookups:         lookups,
	}, nil
}

func (s *Service) lookup(ctx context.Context, ing nutrition.Ingredient, servings float64) (Lookup, *nutrition.VerifiedIngredient) {
	entry := Lookup{Ingredient: ing.Item}
	if !ing.IsStructured() {
		entry.Status = LookupSkipped
		entry.Error = "no quantity"
		return entry, nil
	}

	qty, unit := ing.Measure()
	grams := s.resolver.ResolveGrams(ctx, qty, unit, ing.Item)
	entry.Grams = common.Round(grams.Grams, 2)
	entry.GramsMethod = grams.Method
	if !common.IsFinite(grams.Grams) || grams.Grams <= 0 {
		entry.Status = LookupSkipped
		entry.Error = "unresolved grams"
		return entry, nil
	}

	found, err := s.source.LookupAuthoritativeNutrients(ctx, ing.Item, grams.Grams)
	if err == nil && found == nil {
		err = common.ErrNutrientNotFound.Wrap(fmt.Errorf("no nutrients returned for %q", ing.Item))
	}
	if err != nil {
		entry.Status = LookupFailed
		entry.Error = describe(err)
		common.LogWarn("Nutrient source lookup failed",
			zap.String("ingredient", ing.Item),
			zap.Error(err),
		)
		return entry, nil
	}

	nutrients := make(map[string]float64, len(found.Nutrients))
	for name, v := range found.Nutrients {
		if servings > 0 {
			v = v / servings
		}
		nutrients[name] = v
	}

	confidence := found.Confidence
	if confidence <= 0 {
		confidence = 0.5
	}

	entry.Status = LookupVerified
	entry.SourceID = found.SourceID
	entry.Description = found.Description
	return entry, &nutrition.VerifiedIngredient{
		Name:       ing.Item,
		Nutrients:  nutrients,
		Confidence: confidence,
	}
}

func (s *Service) observe(status string) {
	if s.observer != nil {
		s.observer(status)
	}
}

func describe(err error) string {
	var ce *common.CustomError
	if errors.As(err, &ce) {
		return fmt.Sprintf("%s: %s", ce.Code, ce.Message)
	}
	return err.Error()
}
