package database

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tradedesk/src/model"
)

// CacheDB backs the local read cache of server state. It keeps the last
// fetched transactions and bot settings renderable through server
// outages; it is never the source of truth for anything.
var CacheDB *gorm.DB

// InitCacheDB opens the cache database and runs migrations. Called once
// at startup; a disabled cache leaves CacheDB nil and callers degrade.
func InitCacheDB() error {
	if CacheDB != nil {
		return nil
	}

	config := GetConfig()
	if !config.EnableCache {
		logrus.Info("[database] local cache disabled")
		return nil
	}

	var dialector gorm.Dialector
	switch config.Dialect {
	case "postgres":
		dialector = postgres.Open(config.PostgresDSN)
	case "sqlite":
		dialector = sqlite.Open(config.SQLitePath)
	default:
		return fmt.Errorf("unsupported cache dialect %q", config.Dialect)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.LogLevel(config.GormLogLevel)),
	})
	if err != nil {
		return fmt.Errorf("failed to open cache database: %w", err)
	}

	if err := db.AutoMigrate(
		&model.Transaction{},
		&model.BotSettings{},
	); err != nil {
		return fmt.Errorf("failed to migrate cache database: %w", err)
	}

	CacheDB = db
	logrus.WithField("dialect", config.Dialect).Info("[database] cache connection established")
	return nil
}
