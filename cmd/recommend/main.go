// Command recommend matches a batch's cutting instructions against the
// available offcut inventory. Usage: recommend <batch-code> [confirm]
// where the optional confirm argument persists the matches.
package main

import (
	"context"
	"encoding/json"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/offcuttrack/offcut-service/internal/core/services/recommend"
	"github.com/offcuttrack/offcut-service/internal/infrastructure/database"
	"github.com/offcuttrack/offcut-service/internal/infrastructure/database/repositories"
	"github.com/offcuttrack/offcut-service/internal/pkg/config"
	"github.com/offcuttrack/offcut-service/internal/pkg/logger"
)

func main() {
	if len(os.Args) < 2 || len(os.Args) > 3 {
		log.Fatalf("usage: %s <batch-code> [confirm]", filepath.Base(os.Args[0]))
	}
	batchCode := os.Args[1]
	confirm := len(os.Args) == 3 && os.Args[2] == "confirm"

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	appLogger := logger.Initialize(cfg.Environment)

	db, err := database.NewPostgresDB(&cfg.Database, appLogger)
	if err != nil {
		appLogger.Error("failed to connect to database", slog.Any("error", err))
		return
	}
	defer db.Close()

	offcutRepo := repositories.NewOffcutRepository(db.DB, logger.NewServiceLogger("offcut-repository"))
	batchRepo := repositories.NewBatchRepository(db.DB, logger.NewServiceLogger("batch-repository"))
	svc := recommend.NewService(offcutRepo, batchRepo, offcutRepo, logger.NewServiceLogger("recommend"))

	ctx := context.Background()

	batchRecs, err := svc.RecommendForBatch(ctx, batchCode)
	if err != nil {
		appLogger.Error("recommendation failed",
			slog.String("batch_code", batchCode),
			slog.Any("error", err))
		return
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(batchRecs); err != nil {
		appLogger.Error("failed to encode recommendations", slog.Any("error", err))
		return
	}

	if !confirm {
		return
	}
	if len(batchRecs.Recommendations) == 0 {
		appLogger.Info("nothing to confirm", slog.String("batch_code", batchCode))
		return
	}

	outcome, err := svc.Confirm(ctx, batchRecs.BatchID, batchRecs.Recommendations)
	if err != nil {
		appLogger.Error("confirmation failed",
			slog.String("batch_code", batchCode),
			slog.Any("error", err))
		return
	}

	appLogger.Info("confirmation persisted",
		slog.String("batch_code", batchCode),
		slog.Int("confirmed", len(outcome.Suggestions)),
		slog.Int("conflicts", len(outcome.Conflicts)))
}
