package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"recipe-nutrition/internal/core/nutrition"
	"recipe-nutrition/internal/pkg/common"

	"go.uber.org/zap"
)

const (
	conversionNamespace = "conversion"
	missSentinel        = "null"
	defaultToUnit       = "g"
)

// ConversionRepository 可寫入的換算表
type ConversionRepository interface {
	nutrition.ConversionStore
	UpsertConversionFactor(ctx context.Context, factor *nutrition.ConversionFactor) error
}

// CachedConversionStore 換算表查詢快取，寫入時清除對應鍵
type CachedConversionStore struct {
	repo  ConversionRepository
	cache Cache
}

// NewCachedConversionStore 創建快取換算表，cache 為 nil 時直接查詢
func NewCachedConversionStore(repo ConversionRepository, c Cache) *CachedConversionStore {
	return &CachedConversionStore{repo: repo, cache: c}
}

// LookupConversionFactor 先查快取，未命中再查資料庫；查無資料也會快取
func (s *CachedConversionStore) LookupConversionFactor(ctx context.Context, fromUnit, toUnit, key string) (*nutrition.ConversionFactor, error) {
	if s.cache == nil {
		return s.repo.LookupConversionFactor(ctx, fromUnit, toUnit, key)
	}

	cacheKey := conversionKey(fromUnit, toUnit, key)
	if cached, err := s.cache.Get(ctx, cacheKey); err == nil {
		if cached == missSentinel {
			return nil, nil
		}
		var factor nutrition.ConversionFactor
		if err := json.Unmarshal([]byte(cached), &factor); err == nil {
			return &factor, nil
		}
		common.LogWarn("Discarding unreadable cached conversion", zap.String("key", cacheKey))
	} else if !errors.Is(err, common.ErrCacheMiss) {
		common.LogWarn("Conversion cache lookup failed", zap.Error(err))
	}

	factor, err := s.repo.LookupConversionFactor(ctx, fromUnit, toUnit, key)
	if err != nil {
		return nil, err
	}

	value := missSentinel
	if factor != nil {
		b, err := json.Marshal(factor)
		if err != nil {
			return factor, nil
		}
		value = string(b)
	}
	if err := s.cache.Set(ctx, cacheKey, value); err != nil {
		common.LogWarn("Conversion cache store failed", zap.Error(err))
	}
	return factor, nil
}

// UpsertConversionFactor 寫入資料庫並清除快取
func (s *CachedConversionStore) UpsertConversionFactor(ctx context.Context, factor *nutrition.ConversionFactor) error {
	if err := s.repo.UpsertConversionFactor(ctx, factor); err != nil {
		return err
	}
	if s.cache == nil {
		return nil
	}

	toUnit := factor.ToUnit
	if strings.TrimSpace(toUnit) == "" {
		toUnit = defaultToUnit
	}
	units := []string{factor.FromUnit}
	if normalized := nutrition.NormalizeUnit(factor.FromUnit); normalized != factor.FromUnit {
		units = append(units, normalized)
	}
	for _, u := range units {
		if err := s.cache.Delete(ctx, conversionKey(u, toUnit, factor.Key)); err != nil {
			common.LogWarn("Conversion cache invalidation failed", zap.Error(err))
		}
	}
	return nil
}

func conversionKey(fromUnit, toUnit, key string) string {
	return Key(conversionNamespace, fromUnit, toUnit, key)
}
