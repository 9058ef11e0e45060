// Package database opens and manages the relational store backing the
// product catalogue.
package database

import (
	"fmt"
	"log"
	"time"

	"productmanager/internal/config"
	"productmanager/internal/models"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to the database described by cfg, verifies the connection
// and migrates the schema.
func Open(cfg config.DatabaseConfig, logger zerolog.Logger) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: newGormLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", cfg.Driver, err)
	}

	if err := Migrate(db); err != nil {
		sqlDB.Close()
		return nil, err
	}

	logger.Info().Str("driver", cfg.Driver).Msg("database connection established")
	return db, nil
}

// Migrate creates or updates the products table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Product{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Clear drops the products table and recreates it empty.
func Clear(db *gorm.DB) error {
	if err := db.Migrator().DropTable(&models.Product{}); err != nil {
		return fmt.Errorf("failed to drop products table: %w", err)
	}
	return Migrate(db)
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}
	return sqlDB.Close()
}

func dialectorFor(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return postgres.Open(cfg.DSN), nil
	case config.DriverSQLite:
		return sqlite.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}

// newGormLogger routes GORM logs through logger. Missing records are an
// expected outcome and are not reported.
func newGormLogger(logger zerolog.Logger) gormlogger.Interface {
	return gormlogger.New(log.New(logger, "", 0), gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormLogLevel(logger),
		IgnoreRecordNotFoundError: true,
	})
}

// gormLogLevel keeps GORM quiet unless the application logs at debug level.
func gormLogLevel(logger zerolog.Logger) gormlogger.LogLevel {
	switch {
	case logger.GetLevel() == zerolog.Disabled:
		return gormlogger.Silent
	case logger.GetLevel() <= zerolog.DebugLevel && zerolog.GlobalLevel() <= zerolog.DebugLevel:
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
