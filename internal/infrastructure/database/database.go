package database

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sangkips/dinein-api/internal/config"
	"github.com/sangkips/dinein-api/internal/domain/entity"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// zerologWriter routes gorm log lines through the global zerolog logger
type zerologWriter struct{}

func (zerologWriter) Printf(format string, args ...interface{}) {
	log.Warn().Str("component", "gorm").Msgf(format, args...)
}

// newGormLogger logs slow queries and errors. Missing rows are an expected
// outcome of lookups and are not logged.
func newGormLogger(w logger.Writer) logger.Interface {
	return logger.New(w, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

// NewDB opens the database selected by cfg.Driver (postgres or sqlite)
func NewDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	return openDB(cfg, newGormLogger(zerologWriter{}))
}

func openDB(cfg *config.DatabaseConfig, gormLogger logger.Interface) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "", "postgres":
		dialector = postgres.New(postgres.Config{
			DSN:                  cfg.DSN(),
			PreferSimpleProtocol: true, // disables implicit prepared statement usage
		})
	case "sqlite":
		dialector = sqlite.Open(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying SQL DB to set connection pool settings
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if cfg.Driver == "sqlite" {
		// sqlite serializes writers; a single connection avoids SQLITE_BUSY
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
	}

	log.Info().Str("driver", dialector.Name()).Msg("connected to database")
	return db, nil
}

// AutoMigrate runs GORM auto-migration for all entities
func AutoMigrate(db *gorm.DB) error {
	log.Info().Msg("running database migrations")

	err := db.AutoMigrate(
		&entity.Restaurant{},
		&entity.Table{},
		&entity.TableSession{},
		&entity.Order{},
		&entity.OrderItem{},
		&entity.IdempotencyRecord{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info().Msg("database migrations completed")
	return nil
}

// SeedDefaultData creates a demo restaurant with a few tables when none exists
func SeedDefaultData(db *gorm.DB) error {
	var existing entity.Restaurant
	err := db.Where("slug = ?", "demo").First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to look up demo restaurant: %w", err)
	}

	restaurant := entity.Restaurant{
		Name:     "Demo Bistro",
		Slug:     "demo",
		Settings: entity.DefaultRestaurantSettings(),
	}
	if err := db.Create(&restaurant).Error; err != nil {
		return fmt.Errorf("failed to create demo restaurant: %w", err)
	}

	for _, identifier := range []string{"T1", "T2", "T3", "T4"} {
		table := entity.Table{RestaurantID: restaurant.ID, Identifier: identifier, Seats: 4}
		if err := db.Create(&table).Error; err != nil {
			log.Warn().Err(err).Str("table", identifier).Msg("failed to create demo table")
		}
	}

	log.Info().Str("slug", restaurant.Slug).Msg("seeded demo restaurant")
	return nil
}
