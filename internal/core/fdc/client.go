package fdc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"recipe-nutrition/internal/core/cache"
	"recipe-nutrition/internal/core/nutrition"
	"recipe-nutrition/internal/infrastructure/config"
	"recipe-nutrition/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	sourceName     = "fdc_api"
	cacheNamespace = "fdc"
)

// 查詢結果標籤
const (
	OutcomeHit      = "hit"
	OutcomeCached   = "cached"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// Client FoodData Central API 客戶端
type Client struct {
	config   config.FDCConfig
	client   *resty.Client
	limiter  *rate.Limiter
	cache    cache.Cache
	observer func(outcome string, duration time.Duration)
}

// Option 客戶端選項
type Option func(*Client)

// WithCache 快取每 100g 查詢結果
func WithCache(c cache.Cache) Option {
	return func(cl *Client) {
		cl.cache = c
	}
}

// WithObserver 查詢完成後回呼（監控用）
func WithObserver(fn func(outcome string, duration time.Duration)) Option {
	return func(cl *Client) {
		cl.observer = fn
	}
}

// NewClient 創建 FoodData Central 客戶端
func NewClient(cfg config.FDCConfig, opts ...Option) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError
		})

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	c := &Client{
		config:  cfg,
		client:  client,
		limiter: rate.NewLimiter(limit, burst),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enabled 是否啟用
func (c *Client) Enabled() bool {
	return c != nil && c.config.Enabled
}

// LookupAuthoritativeNutrients 查詢食材並依重量換算營養值
func (c *Client) LookupAuthoritativeNutrients(ctx context.Context, ingredient string, grams float64) (*nutrition.AuthoritativeNutrients, error) {
	if !c.Enabled() {
		return nil, common.ErrSourceDisabled
	}
	if !common.IsFinite(grams) || grams <= 0 {
		return nil, common.ErrInvalidRequest.Wrap(fmt.Errorf("grams must be positive, got %v", grams))
	}

	food, err := c.SearchFood(ctx, ingredient)
	if err != nil {
		return nil, err
	}

	scale := grams / 100
	scaled := make(map[string]float64)
	for name, v := range food.PerHundredGrams() {
		scaled[name] = common.Round(v*scale, 2)
	}

	return &nutrition.AuthoritativeNutrients{
		SourceID:    strconv.Itoa(food.FdcID),
		Description: food.Description,
		Grams:       grams,
		Confidence:  MatchConfidence(ingredient, food.Description),
		Nutrients:   scaled,
	}, nil
}

// SearchFood 搜尋食材並回傳第一筆結果（每 100g）
func (c *Client) SearchFood(ctx context.Context, ingredient string) (*Food, error) {
	query := strings.TrimSpace(ingredient)
	if query == "" {
		return nil, common.ErrInvalidRequest.Wrap(errors.New("ingredient name is required"))
	}

	start := time.Now()
	key := cache.Key(cacheNamespace, query, c.config.DataType)

	if food, ok := c.fromCache(ctx, key); ok {
		c.observe(OutcomeCached, start)
		return food, nil
	}

	food, err := c.search(ctx, query)
	common.LogLookup(sourceName, query, time.Since(start), err)
	if err != nil {
		if errors.Is(err, common.ErrNutrientNotFound) {
			c.observe(OutcomeNotFound, start)
		} else {
			c.observe(OutcomeError, start)
		}
		return nil, err
	}
	c.observe(OutcomeHit, start)

	if c.cache != nil {
		if b, err := json.Marshal(food); err == nil {
			if err := c.cache.Set(ctx, key, string(b)); err != nil {
				common.LogWarn("FDC cache store failed", zap.Error(err))
			}
		}
	}
	return food, nil
}

func (c *Client) search(ctx context.Context, query string) (*Food, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, common.ErrRequestTimeout.Wrap(fmt.Errorf("rate limiter wait: %w", err))
	}

	params := map[string]string{
		"query":    query,
		"pageSize": "1",
		"api_key":  c.config.APIKey,
	}
	if c.config.DataType != "" {
		params["dataType"] = c.config.DataType
	}

	var result SearchResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&result).
		Get("/foods/search")
	if err != nil {
		return nil, common.ErrNutrientSourceFailed.Wrap(fmt.Errorf("failed to send request to FoodData Central: %w", err))
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, common.ErrNutrientSourceFailed.Wrap(fmt.Errorf("FoodData Central returned status %d", resp.StatusCode()))
	}

	if len(result.Foods) == 0 {
		return nil, common.ErrNutrientNotFound.Wrap(fmt.Errorf("no FoodData Central match for %q", query))
	}

	food := result.Foods[0]
	return &food, nil
}

func (c *Client) fromCache(ctx context.Context, key string) (*Food, bool) {
	if c.cache == nil {
		return nil, false
	}
	cached, err := c.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, common.ErrCacheMiss) {
			common.LogWarn("FDC cache lookup failed", zap.Error(err))
		}
		return nil, false
	}
	var food Food
	if err := json.Unmarshal([]byte(cached), &food); err != nil {
		return nil, false
	}
	return &food, true
}

func (c *Client) observe(outcome string, start time.Time) {
	if c.observer != nil {
		c.observer(outcome, time.Since(start))
	}
}

// MatchConfidence 依查詢字詞出現在描述中的比例給分（0.5 ~ 0.9）
func MatchConfidence(query, description string) float64 {
	tokens := strings.Fields(strings.ToLower(query))
	if len(tokens) == 0 {
		return 0.5
	}
	desc := strings.ToLower(description)
	matched := 0
	for _, t := range tokens {
		if strings.Contains(desc, strings.Trim(t, ",.()")) {
			matched++
		}
	}
	return common.Round(0.5+0.4*float64(matched)/float64(len(tokens)), 2)
}
