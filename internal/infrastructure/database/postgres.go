package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/offcuttrack/offcut-service/internal/core/domain"
	"github.com/offcuttrack/offcut-service/internal/pkg/config"
)

// PostgresDB wraps the GORM database connection
type PostgresDB struct {
	DB     *gorm.DB
	logger *slog.Logger
}

// NewPostgresDB creates a new PostgreSQL connection using GORM
func NewPostgresDB(cfg *config.DatabaseConfig, appLogger *slog.Logger) (*PostgresDB, error) {
	gormLogger := logger.Default.LogMode(logger.Silent)
	if cfg.LogLevel == "debug" {
		gormLogger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:      gormLogger,
		PrepareStmt: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxConnections)
	sqlDB.SetMaxIdleConns(cfg.MinConnections)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxConnLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.MaxConnIdleTime) * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	appLogger.Info("database connection established",
		slog.String("host", cfg.Host),
		slog.Int("port", cfg.Port),
		slog.String("database", cfg.Database),
	)

	return &PostgresDB{
		DB:     db,
		logger: appLogger,
	}, nil
}

// Close closes the database connection
func (db *PostgresDB) Close() error {
	db.logger.Info("closing database connection")
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks if the database is reachable
func (db *PostgresDB) Ping(ctx context.Context) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Migrate runs automatic migrations for all entities
func (db *PostgresDB) Migrate() error {
	db.logger.Info("running auto migrations")
	if err := db.DB.AutoMigrate(domain.AllModels()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	db.logger.Info("migrations completed successfully")
	return nil
}
