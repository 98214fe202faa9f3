package persistence

import (
	"context"
	"fmt"
	"time"

	"recipe-nutrition/internal/infrastructure/config"
	"recipe-nutrition/internal/pkg/common"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// zapWriter 將 gorm 日誌導向 zap
type zapWriter struct {
	debug bool
}

func (w zapWriter) Printf(format string, args ...interface{}) {
	if w.debug {
		common.LogDebug("gorm", zap.String("sql", fmt.Sprintf(format, args...)))
		return
	}
	common.LogWarn("gorm", zap.String("sql", fmt.Sprintf(format, args...)))
}

func newGormLogger(debug bool) logger.Interface {
	level := logger.Warn
	if debug {
		level = logger.Info
	}
	return logger.New(zapWriter{debug: debug}, logger.Config{
		SlowThreshold:             500 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

// Open 依設定建立資料庫連線並執行遷移
func Open(cfg config.DatabaseConfig, debug bool) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite", "":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = ":memory:"
		}
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: newGormLogger(debug),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if cfg.AutoMigrate {
		if err := db.AutoMigrate(Models()...); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	common.LogInfo("資料庫已連線",
		zap.String("driver", cfg.Driver),
		zap.Bool("auto_migrate", cfg.AutoMigrate),
	)
	return db, nil
}

// Ping 檢查資料庫連線
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close 關閉資料庫連線
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// 常見食材的實測換算值
var seedConversions = []UnitConversionModel{
	{FromUnit: "cup", ToUnit: "g", FoodCategory: "all-purpose flour", ConversionFactor: 120, Confidence: 0.95, Source: "seed"},
	{FromUnit: "cup", ToUnit: "g", FoodCategory: "bread flour", ConversionFactor: 127, Confidence: 0.95, Source: "seed"},
	{FromUnit: "cup", ToUnit: "g", FoodCategory: "granulated sugar", ConversionFactor: 200, Confidence: 0.95, Source: "seed"},
	{FromUnit: "cup", ToUnit: "g", FoodCategory: "brown sugar", ConversionFactor: 213, Confidence: 0.95, Source: "seed", Notes: "packed"},
	{FromUnit: "cup", ToUnit: "g", FoodCategory: "rolled oats", ConversionFactor: 90, Confidence: 0.95, Source: "seed"},
	{FromUnit: "tbsp", ToUnit: "g", FoodCategory: "butter", ConversionFactor: 14.2, Confidence: 0.95, Source: "seed"},
	{FromUnit: "each", ToUnit: "g", FoodCategory: "egg", ConversionFactor: 50, Confidence: 0.95, Source: "seed", Notes: "large, without shell"},
	{FromUnit: "clove", ToUnit: "g", FoodCategory: "garlic", ConversionFactor: 3, Confidence: 0.95, Source: "seed"},
	{FromUnit: "cup", ToUnit: "g", FoodCategory: "grain", ConversionFactor: 185, Confidence: 0.9, Source: "seed"},
}

// SeedConversions 寫入預設換算值，已存在的列不覆寫
func SeedConversions(ctx context.Context, db *gorm.DB) error {
	rows := make([]UnitConversionModel, len(seedConversions))
	copy(rows, seedConversions)

	result := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows)
	if result.Error != nil {
		return fmt.Errorf("failed to seed conversions: %w", result.Error)
	}
	common.LogInfo("換算表種子資料已寫入", zap.Int64("rows", result.RowsAffected))
	return nil
}
