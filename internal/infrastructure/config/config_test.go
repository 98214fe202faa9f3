package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 3, cfg.FDC.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.FDC.BatchDelay)
	assert.Equal(t, 0.6, cfg.Nutrition.DampingFactor)
	assert.Equal(t, 800.0, cfg.Nutrition.CalorieCap)
	assert.Equal(t, 150.0, cfg.Nutrition.Placeholders.Potassium)
	assert.Equal(t, 15.0, cfg.Verification.ThresholdPercent)
	assert.Equal(t, "fdc_api", cfg.Verification.Source)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("NUTRITION_CALORIE_CAP", "650")
	t.Setenv("VERIFICATION_THRESHOLD_PERCENT", "20")
	t.Setenv("CACHE_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "cache:6379")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 650.0, cfg.Nutrition.CalorieCap)
	assert.Equal(t, 20.0, cfg.Verification.ThresholdPercent)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
}

func TestLoadConfig_InvalidDriver(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "oracle")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		return &Config{
			App:          AppConfig{Env: "test", Name: "recipe-nutrition"},
			Server:       ServerConfig{Port: 8080},
			Database:     DatabaseConfig{Driver: "sqlite", DSN: ":memory:"},
			Cache:        CacheConfig{Enabled: true, Backend: "memory", MaxSize: 10, TTL: time.Minute, CleanupInterval: time.Minute},
			FDC:          FDCConfig{BatchSize: 3, RequestsPerSecond: 1, Burst: 1},
			Verification: VerificationConfig{ThresholdPercent: 15, Source: "fdc_api"},
			Queue:        QueueConfig{Workers: 1, MaxSize: 1},
		}
	}

	cfg := valid()
	cfg.Nutrition.DampingFactor = 0.6
	assert.NoError(t, validateConfig(cfg))

	cases := map[string]func(c *Config){
		"zero damping":       func(c *Config) { c.Nutrition.DampingFactor = 0 },
		"no queue workers":   func(c *Config) { c.Nutrition.DampingFactor = 0.6; c.Queue.Workers = 0 },
		"cache without ttl":  func(c *Config) { c.Nutrition.DampingFactor = 0.6; c.Cache.TTL = 0 },
		"redis without addr": func(c *Config) { c.Nutrition.DampingFactor = 0.6; c.Cache.Backend = "redis" },
		"fdc without key":    func(c *Config) { c.Nutrition.DampingFactor = 0.6; c.FDC.Enabled = true },
		"bad port":           func(c *Config) { c.Nutrition.DampingFactor = 0.6; c.Server.Port = 70000 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(c)
			assert.Error(t, validateConfig(c))
		})
	}
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "****", maskAPIKey("short"))
	assert.Equal(t, "abcd...wxyz", maskAPIKey("abcdefghijklmnopqrstuvwxyz"))
}
