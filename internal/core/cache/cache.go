package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"recipe-nutrition/internal/infrastructure/config"
	"recipe-nutrition/internal/pkg/common"

	"go.uber.org/zap"
)

// Cache 快取介面，未命中時回傳 common.ErrCacheMiss
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// 後端類型
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// New 依設定建立快取，停用時回傳 nil
func New(cfg *config.Config) (Cache, error) {
	if !cfg.Cache.Enabled {
		common.LogInfo("Cache disabled")
		return nil, nil
	}

	switch cfg.Cache.Backend {
	case BackendRedis:
		svc, err := NewService(&cfg.Redis, &cfg.Cache)
		if err != nil {
			return nil, err
		}
		return svc, nil
	case BackendMemory, "":
		return NewManager(cfg.Cache), nil
	default:
		common.LogWarn("Unknown cache backend", zap.String("backend", cfg.Cache.Backend))
		return nil, fmt.Errorf("unknown cache backend: %s", cfg.Cache.Backend)
	}
}

// Key 產生命名空間快取鍵，各部分不分大小寫
func Key(namespace string, parts ...string) string {
	normalized := make([]string, len(parts))
	for i, p := range parts {
		normalized[i] = strings.ToLower(strings.TrimSpace(p))
	}
	return fmt.Sprintf("%s:%s", namespace, hashString(strings.Join(normalized, "\x1f")))
}

// hashString 計算字符串的 SHA-256 哈希值
func hashString(s string) string {
	hash := sha256.Sum256([]byte(s))
	return hex.EncodeToString(hash[:])
}
