package cache

import (
	"testing"
	"time"

	"recipe-nutrition/internal/infrastructure/config"

	"github.com/stretchr/testify/assert"
)

func TestNewService_Unreachable(t *testing.T) {
	svc, err := NewService(
		&config.RedisConfig{Addr: "127.0.0.1:1"},
		&config.CacheConfig{Enabled: true, Backend: BackendRedis, TTL: time.Minute},
	)

	assert.Error(t, err)
	assert.Nil(t, svc)
}
