// Command enqueue stores a report text file and queues it for
// background ingestion. Usage: enqueue <report-file> <batch-date>
// where batch-date is YYYY-MM-DD.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/offcuttrack/offcut-service/internal/infrastructure/queue"
	"github.com/offcuttrack/offcut-service/internal/infrastructure/storage"
	"github.com/offcuttrack/offcut-service/internal/pkg/config"
	"github.com/offcuttrack/offcut-service/internal/pkg/logger"
)

func main() {
	if len(os.Args) != 3 {
		log.Fatalf("usage: %s <report-file> <batch-date YYYY-MM-DD>", filepath.Base(os.Args[0]))
	}
	reportPath := os.Args[1]

	batchDate, err := time.Parse("2006-01-02", os.Args[2])
	if err != nil {
		log.Fatalf("invalid batch date %q: %v", os.Args[2], err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	appLogger := logger.Initialize(cfg.Environment)

	reportStorage, err := storage.NewLocalStorage(&cfg.Storage, logger.NewServiceLogger("storage"))
	if err != nil {
		appLogger.Error("failed to initialize storage", slog.Any("error", err))
		return
	}

	client := queue.NewAsynqClient(&cfg.Queue, logger.NewServiceLogger("queue"))
	defer client.Close()

	file, err := os.Open(reportPath)
	if err != nil {
		appLogger.Error("failed to open report file", slog.Any("error", err))
		return
	}
	defer file.Close()

	ctx := context.Background()
	reportID := uuid.NewString()
	filename := filepath.Base(reportPath)

	metadata, err := reportStorage.SaveReport(ctx, reportID, filename, file)
	if err != nil {
		appLogger.Error("failed to store report", slog.Any("error", err))
		return
	}

	info, err := client.EnqueueReportIngest(ctx, reportID, filename, batchDate)
	if err != nil {
		appLogger.Error("failed to enqueue ingestion", slog.Any("error", err))
		return
	}

	appLogger.Info("report queued for ingestion",
		slog.String("report_id", reportID),
		slog.String("task_id", info.ID),
		slog.String("hash", metadata.Hash),
		slog.Int64("size", metadata.Size))
}
