package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"xenith/internal/config"
	"xenith/internal/logging"
	"xenith/internal/models"
)

const pingTimeout = 5 * time.Second

// Open connects to PostgreSQL, sizes the pool and pings the server before
// returning. Constraint errors are translated into GORM's portable errors.
func Open(cfg config.Database, log *slog.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), GormConfig(cfg.LogSQL, log))
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get generic DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database %s@%s:%s: %w", cfg.Name, cfg.Host, cfg.Port, err)
	}

	log.Info("database connected", "host", cfg.Host, "port", cfg.Port, "database", cfg.Name)
	return db, nil
}

// GormConfig is shared by the PostgreSQL connection and test databases.
func GormConfig(logSQL bool, log *slog.Logger) *gorm.Config {
	gormLogger := logger.Discard
	if logSQL && log != nil {
		gormLogger = logger.New(logging.StdLogger(log, slog.LevelDebug), logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Info,
			IgnoreRecordNotFoundError: true,
		})
	}
	return &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	}
}

// EnsureDatabase creates cfg.Name on the server when it does not exist yet.
func EnsureDatabase(ctx context.Context, cfg config.Database, log *slog.Logger) error {
	admin, err := gorm.Open(postgres.Open(cfg.MaintenanceDSN()), GormConfig(cfg.LogSQL, log))
	if err != nil {
		return fmt.Errorf("failed to connect maintenance database: %w", err)
	}
	defer Close(admin)

	var exists bool
	err = admin.WithContext(ctx).
		Raw("SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = ?)", cfg.Name).
		Scan(&exists).Error
	if err != nil {
		return fmt.Errorf("failed to look up database %s: %w", cfg.Name, err)
	}
	if exists {
		log.Info("database detected", "database", cfg.Name)
		return nil
	}

	quoted := admin.Statement.Quote(cfg.Name)
	if err := admin.WithContext(ctx).Exec("CREATE DATABASE " + quoted).Error; err != nil {
		return fmt.Errorf("failed to create database %s: %w", cfg.Name, err)
	}
	log.Info("database created", "database", cfg.Name)
	return nil
}

// Migrate creates or updates all library tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
