package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/offcuttrack/offcut-service/internal/core/services/derive"
	"github.com/offcuttrack/offcut-service/internal/core/services/ingest"
	"github.com/offcuttrack/offcut-service/internal/core/services/reportparse"
	"github.com/offcuttrack/offcut-service/internal/core/services/reports"
	"github.com/offcuttrack/offcut-service/internal/infrastructure/storage"
	apperrors "github.com/offcuttrack/offcut-service/internal/pkg/errors"
)

// Task types
const (
	TaskTypeReportIngest = "report:ingest"
)

const batchDateLayout = "2006-01-02"

// ReportIngestPayload carries one stored report through the background
// ingestion pipeline
type ReportIngestPayload struct {
	ReportID  string `json:"report_id"`
	Filename  string `json:"filename"`
	BatchDate string `json:"batch_date"` // YYYY-MM-DD
}

// NewReportIngestTask builds a report ingestion task for a stored
// report file
func NewReportIngestTask(reportID, filename string, batchDate time.Time) (*asynq.Task, error) {
	payload, err := json.Marshal(ReportIngestPayload{
		ReportID:  reportID,
		Filename:  filename,
		BatchDate: batchDate.Format(batchDateLayout),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TaskTypeReportIngest, payload, asynq.TaskID(uuid.NewString())), nil
}

// EnqueueReportIngest stores nothing itself; it queues ingestion of an
// already-stored report so the upload call can return immediately
func (a *AsynqClient) EnqueueReportIngest(ctx context.Context, reportID, filename string, batchDate time.Time) (*asynq.TaskInfo, error) {
	task, err := NewReportIngestTask(reportID, filename, batchDate)
	if err != nil {
		return nil, err
	}
	return a.EnqueueContext(ctx, task, asynq.Queue("default"), asynq.MaxRetry(3))
}

// ReportIngestHandler runs the parse, derive and ingest pipeline for
// queued report files
type ReportIngestHandler struct {
	storage  *storage.LocalStorage
	parser   *reportparse.Parser
	deriver  *derive.Deriver
	ingester *ingest.Service
	reports  *reports.Service
	logger   *slog.Logger
}

// NewReportIngestHandler creates a new handler
func NewReportIngestHandler(
	st *storage.LocalStorage,
	parser *reportparse.Parser,
	deriver *derive.Deriver,
	ingester *ingest.Service,
	reportsSvc *reports.Service,
	logger *slog.Logger,
) *ReportIngestHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportIngestHandler{
		storage:  st,
		parser:   parser,
		deriver:  deriver,
		ingester: ingester,
		reports:  reportsSvc,
		logger:   logger,
	}
}

// ProcessTask handles one report:ingest task. Parse, validation and
// duplicate-batch failures are permanent and skip retries; only
// infrastructure failures are retried.
func (h *ReportIngestHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload ReportIngestPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return errors.Join(fmt.Errorf("invalid payload: %w", err), asynq.SkipRetry)
	}

	batchDate, err := time.Parse(batchDateLayout, payload.BatchDate)
	if err != nil {
		return errors.Join(fmt.Errorf("invalid batch date %q: %w", payload.BatchDate, err), asynq.SkipRetry)
	}

	text, err := h.storage.ReadReport(ctx, payload.ReportID, payload.Filename)
	if err != nil {
		return err
	}

	parsed, err := h.parser.Parse(ctx, text)
	if err != nil {
		return h.permanentIfAppError(err)
	}

	enriched, err := h.deriver.DeriveAll(parsed.Records)
	if err != nil {
		return h.permanentIfAppError(err)
	}

	result, err := h.ingester.Ingest(ctx, enriched, batchDate, payload.Filename)
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrCodeDuplicateBatch) ||
			apperrors.IsCode(err, apperrors.ErrCodeValidationError) {
			return errors.Join(err, asynq.SkipRetry)
		}
		return err
	}

	if h.reports != nil {
		h.reports.InvalidateSummary(ctx)
	}

	h.logger.Info("report ingested",
		slog.String("report_id", payload.ReportID),
		slog.String("batch_code", result.BatchCode),
		slog.Int("record_count", result.RecordCount))

	return nil
}

// permanentIfAppError marks structured pipeline errors as permanent so
// the queue does not retry unrecoverable reports
func (h *ReportIngestHandler) permanentIfAppError(err error) error {
	if apperrors.IsAppError(err) {
		return errors.Join(err, asynq.SkipRetry)
	}
	return err
}
