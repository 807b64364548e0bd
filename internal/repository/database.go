// Package repository provides data access layer using GORM for database operations.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // postgres:// migration driver
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/bitelog/bitelog-api/internal/apperr"
	"github.com/bitelog/bitelog-api/internal/config"
	"github.com/bitelog/bitelog-api/internal/models"
	"github.com/bitelog/bitelog-api/pkg/logger"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// DB holds the database connection.
type DB struct {
	*gorm.DB
}

// NewDB creates a new database connection.
func NewDB(cfg *config.PostgresConfig, log *logger.Logger) (*DB, error) {
	gormLogLevel := gormlogger.Warn
	if log.IsDebug() {
		gormLogLevel = gormlogger.Info
	}

	gormConfig := &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormLogLevel),
		TranslateError: true,
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	// Set connection pool settings
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Msg("Connected to PostgreSQL")

	return &DB{db}, nil
}

// AutoMigrate runs GORM schema migration for all models.
func (db *DB) AutoMigrate() error {
	return db.DB.AutoMigrate(
		&models.User{},
		&models.Meal{},
		&models.MealLike{},
		&models.MealRating{},
		&models.Review{},
		&models.MealRequest{},
		&models.UpcomingMeal{},
		&models.UpcomingLike{},
		&models.MembershipPackage{},
		&models.Payment{},
	)
}

// Migrate applies the embedded SQL migrations with golang-migrate.
func Migrate(cfg *config.PostgresConfig, log *logger.Logger) error {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, cfg.URL())
	if err != nil {
		return fmt.Errorf("failed to initialise migrations: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil || dbErr != nil {
			log.Warn().AnErr("source_error", srcErr).AnErr("db_error", dbErr).Msg("Failed to close migrator")
		}
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to read migration version: %w", err)
	}
	log.Info().Uint("version", version).Bool("dirty", dirty).Msg("Database migrations applied")

	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health checks if the database is healthy.
func (db *DB) Health(ctx context.Context) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// translateError converts GORM sentinel errors into the application taxonomy.
// Anything else is returned unchanged and ends up as an internal error.
func translateError(err error, entity string, id interface{}) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.NotFound(entity, id)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperr.Conflict("%s already exists", entity)
	default:
		return err
	}
}

// adjustMealsAdded shifts a distributor's meal counter, never below zero.
func adjustMealsAdded(tx *gorm.DB, email string, delta int) error {
	if email == "" {
		return nil
	}
	err := tx.Model(&models.User{}).
		Where("email = ?", email).
		UpdateColumn("meals_added", gorm.Expr("CASE WHEN meals_added + ? < 0 THEN 0 ELSE meals_added + ? END", delta, delta)).
		Error
	if err != nil {
		return fmt.Errorf("failed to adjust meals_added for %s: %w", email, err)
	}
	return nil
}

// clampedDecrement is the SQL expression for "column - 1, floored at zero".
func clampedDecrement(column string) clause.Expr {
	return gorm.Expr(fmt.Sprintf("CASE WHEN %s > 0 THEN %s - 1 ELSE 0 END", column, column))
}

// increment is the SQL expression for "column + n".
func increment(column string, n int) clause.Expr {
	return gorm.Expr(fmt.Sprintf("%s + ?", column), n)
}
