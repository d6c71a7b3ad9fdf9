package psql

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"studybuddy/studybuddy/config"
	"studybuddy/studybuddy/sources/psql/models"
	"studybuddy/studybuddy/types"
	"studybuddy/studybuddy/utils/logging"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Database struct {
	DB *gorm.DB
}

// NewDatabase opens the planner database named by cfg.DBDriver and migrates
// the schema.
func NewDatabase(ctx context.Context, cfg config.Config) (*Database, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "postgres":
		connStr := fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			cfg.DBHost,
			cfg.DBPort,
			cfg.DBUser,
			cfg.DBPassword,
			cfg.DBName,
		)
		logging.AppLogger.Info("connecting to postgres",
			zap.String("host", cfg.DBHost), zap.String("db", cfg.DBName))
		dialector = postgres.Open(connStr)
	case "sqlite":
		if cfg.DBPath != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
				return nil, err
			}
		}
		logging.AppLogger.Info("opening sqlite", zap.String("path", cfg.DBPath))
		dialector = sqlite.Open(cfg.DBPath)
	default:
		return nil, fmt.Errorf("%w: unknown db_driver %q", types.ErrConfiguration, cfg.DBDriver)
	}
	return Open(ctx, dialector)
}

func Open(ctx context.Context, dialector gorm.Dialector) (*Database, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	// Every pooled connection to an in-memory sqlite database would get its
	// own empty database.
	if dialector.Name() == "sqlite" {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}

	if err := db.WithContext(ctx).AutoMigrate(&models.StudyTask{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate: %w", err)
	}
	return &Database{DB: db}, nil
}

func (db *Database) Close() {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return
	}
	sqlDB.Close()
}
