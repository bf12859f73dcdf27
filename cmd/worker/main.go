package main

import (
	"log"
	"log/slog"

	"github.com/offcuttrack/offcut-service/internal/core/services/derive"
	"github.com/offcuttrack/offcut-service/internal/core/services/ingest"
	"github.com/offcuttrack/offcut-service/internal/core/services/reportparse"
	"github.com/offcuttrack/offcut-service/internal/core/services/reports"
	"github.com/offcuttrack/offcut-service/internal/infrastructure/cache"
	"github.com/offcuttrack/offcut-service/internal/infrastructure/database"
	"github.com/offcuttrack/offcut-service/internal/infrastructure/database/repositories"
	"github.com/offcuttrack/offcut-service/internal/infrastructure/queue"
	"github.com/offcuttrack/offcut-service/internal/infrastructure/storage"
	"github.com/offcuttrack/offcut-service/internal/pkg/config"
	"github.com/offcuttrack/offcut-service/internal/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	cfg.LogConfig()

	appLogger := logger.Initialize(cfg.Environment)

	db, err := database.NewPostgresDB(&cfg.Database, appLogger)
	if err != nil {
		appLogger.Error("failed to connect to database", slog.Any("error", err))
		return
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		appLogger.Error("failed to run migrations", slog.Any("error", err))
		return
	}

	redisCache, err := cache.NewRedisCache(&cfg.Cache, appLogger)
	if err != nil {
		appLogger.Error("failed to connect to redis", slog.Any("error", err))
		return
	}
	defer redisCache.Close()

	reportStorage, err := storage.NewLocalStorage(&cfg.Storage, logger.NewServiceLogger("storage"))
	if err != nil {
		appLogger.Error("failed to initialize storage", slog.Any("error", err))
		return
	}

	reportsRepo := repositories.NewReportsRepository(db.DB, logger.NewServiceLogger("reports-repository"))
	reportsSvc := reports.NewService(reportsRepo, redisCache, logger.NewServiceLogger("reports"))

	parser := reportparse.NewParser(logger.NewServiceLogger("report-parser"))
	deriver := derive.NewDeriver(logger.NewServiceLogger("record-deriver"))
	ingester := ingest.NewService(db.DB, logger.NewServiceLogger("ingestion"))

	handler := queue.NewReportIngestHandler(
		reportStorage, parser, deriver, ingester, reportsSvc,
		logger.NewServiceLogger("report-ingest-handler"))

	server := queue.NewAsynqServer(&cfg.Queue, logger.NewServiceLogger("queue"))
	server.HandleFunc(queue.TaskTypeReportIngest, handler.ProcessTask)

	if err := server.Start(); err != nil {
		appLogger.Error("worker stopped", slog.Any("error", err))
	}
}
