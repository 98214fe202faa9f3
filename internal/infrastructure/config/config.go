package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"recipe-nutrition/internal/core/nutrition"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App          AppConfig          `mapstructure:"app"`
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Redis        RedisConfig        `mapstructure:"redis"`
	FDC          FDCConfig          `mapstructure:"fdc"`
	Nutrition    nutrition.Settings `mapstructure:"nutrition"`
	Verification VerificationConfig `mapstructure:"verification"`
	Queue        QueueConfig        `mapstructure:"queue"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
	DedupWindow  time.Duration      `mapstructure:"dedup_window"`
	LogLevel     string             `mapstructure:"log_level"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env      string `mapstructure:"env" validate:"required"`
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
	Version  string `mapstructure:"version"`
	Name     string `mapstructure:"name" validate:"required"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port           int           `mapstructure:"port" validate:"required,min=1,max=65535"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes" validate:"min=0"`
}

// DatabaseConfig 資料庫設定
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver" validate:"oneof=sqlite postgres"`
	DSN             string        `mapstructure:"dsn" validate:"required"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"min=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"min=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	SeedConversions bool          `mapstructure:"seed_conversions"`
}

// CacheConfig 緩存配置
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Backend         string        `mapstructure:"backend" validate:"oneof=memory redis"`
	MaxSize         int           `mapstructure:"max_size"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// RedisConfig Redis 連線設定
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"min=0"`
}

// FDCConfig FoodData Central 設定
type FDCConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url" validate:"omitempty,url"`
	DataType          string        `mapstructure:"data_type"`
	Timeout           time.Duration `mapstructure:"timeout"`
	BatchSize         int           `mapstructure:"batch_size" validate:"min=1"`
	BatchDelay        time.Duration `mapstructure:"batch_delay"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" validate:"gt=0"`
	Burst             int           `mapstructure:"burst" validate:"min=1"`
	RetryCount        int           `mapstructure:"retry_count" validate:"min=0"`
}

// VerificationConfig 校正設定
type VerificationConfig struct {
	ThresholdPercent float64 `mapstructure:"threshold_percent" validate:"min=0"`
	Source           string  `mapstructure:"source" validate:"required"`
}

// QueueConfig 批次隊列設定
type QueueConfig struct {
	Workers int `mapstructure:"workers"`
	MaxSize int `mapstructure:"max_size"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// MetricsConfig 監控指標設定
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// 加載 .env 文件（可選）
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	// 設定預設值
	setDefaults()

	// 設定環境變數前綴
	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 綁定環境變量
	viper.BindEnv("database.driver", "DATABASE_DRIVER")
	viper.BindEnv("database.dsn", "DATABASE_DSN", "DATABASE_URL")
	viper.BindEnv("cache.enabled", "CACHE_ENABLED")
	viper.BindEnv("cache.backend", "CACHE_BACKEND")
	viper.BindEnv("redis.addr", "REDIS_ADDR")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("fdc.enabled", "FDC_ENABLED")
	viper.BindEnv("fdc.api_key", "FDC_API_KEY", "USDA_API_KEY")
	viper.BindEnv("fdc.base_url", "FDC_BASE_URL")
	viper.BindEnv("nutrition.damping_factor", "NUTRITION_DAMPING_FACTOR")
	viper.BindEnv("nutrition.calorie_cap", "NUTRITION_CALORIE_CAP")
	viper.BindEnv("verification.threshold_percent", "VERIFICATION_THRESHOLD_PERCENT")
	viper.BindEnv("rate_limit.enabled", "RATE_LIMIT_ENABLED")
	viper.BindEnv("rate_limit.requests", "RATE_LIMIT_REQUESTS")
	viper.BindEnv("rate_limit.window", "RATE_LIMIT_WINDOW")
	viper.BindEnv("metrics.enabled", "METRICS_ENABLED")
	viper.BindEnv("dedup_window", "DEDUP_WINDOW")
	viper.BindEnv("log_level", "LOG_LEVEL")

	// 設定設定檔名稱和路徑
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	// 讀取設定檔
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// logger 尚未初始化，改用 fmt.Println
	fmt.Println("Loading configuration",
		"database_driver:", viper.GetString("database.driver"),
		"cache_backend:", viper.GetString("cache.backend"),
		"fdc_api_key:", maskAPIKey(viper.GetString("fdc.api_key")),
	)

	// 解析設定
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 驗證必要設定
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// maskAPIKey 遮罩 API Key，只顯示前後各 4 個字符
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// setDefaults 設定預設值
func setDefaults() {
	// 應用程式設定
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.debug", true)
	viper.SetDefault("app.log_level", "info")
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("app.name", "recipe-nutrition")

	// 伺服器設定
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "60s")
	viper.SetDefault("server.idle_timeout", "120s")
	viper.SetDefault("server.request_timeout", "45s")
	viper.SetDefault("server.max_body_bytes", 2*1024*1024) // 2MB

	// 資料庫設定
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.dsn", "file:nutrition.db?cache=shared&_fk=1")
	viper.SetDefault("database.max_open_conns", 10)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "30m")
	viper.SetDefault("database.auto_migrate", true)
	viper.SetDefault("database.seed_conversions", true)

	// 快取設定
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.backend", "memory")
	viper.SetDefault("cache.max_size", 1000)
	viper.SetDefault("cache.ttl", "24h")
	viper.SetDefault("cache.cleanup_interval", "10m")

	// Redis 設定
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)

	// FoodData Central 設定
	viper.SetDefault("fdc.enabled", true)
	viper.SetDefault("fdc.api_key", "DEMO_KEY")
	viper.SetDefault("fdc.base_url", "https://api.nal.usda.gov/fdc/v1")
	viper.SetDefault("fdc.data_type", "Foundation,SR Legacy")
	viper.SetDefault("fdc.timeout", "15s")
	viper.SetDefault("fdc.batch_size", 3)
	viper.SetDefault("fdc.batch_delay", "500ms")
	viper.SetDefault("fdc.requests_per_second", 5)
	viper.SetDefault("fdc.burst", 3)
	viper.SetDefault("fdc.retry_count", 2)

	// 營養估算設定
	defaults := nutrition.DefaultSettings()
	viper.SetDefault("nutrition.damping_factor", defaults.DampingFactor)
	viper.SetDefault("nutrition.calorie_cap", defaults.CalorieCap)
	viper.SetDefault("nutrition.sodium_per_calorie", defaults.SodiumPerCalorie)
	viper.SetDefault("nutrition.string_only_factor", defaults.StringOnlyFactor)
	viper.SetDefault("nutrition.placeholders.vitamin_a", defaults.Placeholders.VitaminA)
	viper.SetDefault("nutrition.placeholders.vitamin_c", defaults.Placeholders.VitaminC)
	viper.SetDefault("nutrition.placeholders.vitamin_d", defaults.Placeholders.VitaminD)
	viper.SetDefault("nutrition.placeholders.calcium", defaults.Placeholders.Calcium)
	viper.SetDefault("nutrition.placeholders.iron", defaults.Placeholders.Iron)
	viper.SetDefault("nutrition.placeholders.potassium", defaults.Placeholders.Potassium)
	viper.SetDefault("nutrition.baseline.calories", defaults.Baseline.Calories)
	viper.SetDefault("nutrition.baseline.protein", defaults.Baseline.Protein)
	viper.SetDefault("nutrition.baseline.carbs", defaults.Baseline.Carbs)
	viper.SetDefault("nutrition.baseline.fat", defaults.Baseline.Fat)

	// 校正設定
	viper.SetDefault("verification.threshold_percent", nutrition.DefaultThresholdPercent)
	viper.SetDefault("verification.source", nutrition.DefaultVerificationSource)

	// 隊列設定
	viper.SetDefault("queue.workers", 4)
	viper.SetDefault("queue.max_size", 100)

	// 限流設定
	viper.SetDefault("rate_limit.enabled", true)
	viper.SetDefault("rate_limit.requests", 100)
	viper.SetDefault("rate_limit.window", "1m")

	// 監控設定
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")

	viper.SetDefault("dedup_window", "1s")
	viper.SetDefault("log_level", "info")
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	if err := validator.New().Struct(config); err != nil {
		return err
	}

	// 驗證快取設定
	if config.Cache.Enabled {
		if config.Cache.MaxSize <= 0 {
			return fmt.Errorf("invalid cache max size")
		}
		if config.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
		if config.Cache.Backend == "memory" && config.Cache.CleanupInterval <= 0 {
			return fmt.Errorf("invalid cache cleanup interval")
		}
		if config.Cache.Backend == "redis" && config.Redis.Addr == "" {
			return fmt.Errorf("redis address is required for redis cache backend")
		}
	}

	// 驗證估算設定
	if config.Nutrition.DampingFactor <= 0 {
		return fmt.Errorf("invalid nutrition damping factor")
	}
	if config.Nutrition.CalorieCap < 0 {
		return fmt.Errorf("invalid nutrition calorie cap")
	}

	// 驗證 FDC 設定
	if config.FDC.Enabled && config.FDC.APIKey == "" {
		return fmt.Errorf("fdc api key is required when fdc is enabled")
	}

	// 驗證隊列設定
	if config.Queue.Workers <= 0 {
		return fmt.Errorf("invalid queue workers")
	}
	if config.Queue.MaxSize <= 0 {
		return fmt.Errorf("invalid queue max size")
	}

	return nil
}
