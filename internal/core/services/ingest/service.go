package ingest

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/offcuttrack/offcut-service/internal/core/domain"
	"github.com/offcuttrack/offcut-service/internal/core/services/derive"
	"github.com/offcuttrack/offcut-service/internal/core/services/reportparse"
	apperrors "github.com/offcuttrack/offcut-service/internal/pkg/errors"
)

// Service maps enriched cutting records into normalized entities inside
// one all-or-nothing transaction. A duplicate batch code is rejected
// before the transaction opens; any failure while creating entities
// rolls back the whole batch. The sole exception is a malformed
// suggested-offcut id, which is logged and skipped per id.
type Service struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewService creates a new ingestion coordinator
func NewService(db *gorm.DB, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		db:     db,
		logger: logger,
	}
}

// Result summarises one completed ingestion
type Result struct {
	BatchCode           string `json:"created_batch_code"`
	RecordCount         int    `json:"record_count"`
	OffcutsCreated      int    `json:"offcuts_created"`
	SuggestionsRecorded int    `json:"suggestions_recorded"`
	FilteredRecords     int    `json:"filtered_records"`
}

// Ingest persists the full record collection of one upload. Records
// from non-productive saws are dropped first; the remainder is grouped
// by batch code (normally one group per report) and written atomically.
func (s *Service) Ingest(ctx context.Context, records []derive.EnrichedRecord, batchDate time.Time, sourceFile string) (*Result, error) {
	kept := make([]derive.EnrichedRecord, 0, len(records))
	for _, rec := range records {
		if domain.IsProductiveSaw(rec.SawName) {
			kept = append(kept, rec)
		}
	}

	result := &Result{FilteredRecords: len(records) - len(kept)}

	groups, codes := groupByBatchCode(kept)

	for _, code := range codes {
		exists, err := s.batchCodeExists(ctx, code)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, apperrors.DuplicateBatch(code)
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, code := range codes {
			if err := s.ingestGroup(tx, code, groups[code], batchDate, sourceFile, result); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if apperrors.IsAppError(err) {
			return nil, err
		}
		return nil, apperrors.IngestionError(err, "data ingestion failed")
	}

	if len(codes) > 0 {
		result.BatchCode = codes[0]
	}
	result.RecordCount = len(kept)

	s.logger.Info("ingestion completed",
		slog.String("batch_code", result.BatchCode),
		slog.Int("record_count", result.RecordCount),
		slog.Int("offcuts_created", result.OffcutsCreated),
		slog.Int("suggestions_recorded", result.SuggestionsRecorded),
		slog.Int("filtered_records", result.FilteredRecords))

	return result, nil
}

// batchCodeExists checks the duplicate-batch invariant before the
// transaction opens
func (s *Service) batchCodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&domain.Batch{}).
		Where("batch_code = ?", code).
		Count(&count).
		Error
	if err != nil {
		return false, apperrors.DatabaseError(err)
	}
	return count > 0, nil
}

// ingestGroup writes one batch group: batch, detail, then every item
// row with its created offcuts and recorded suggestions
func (s *Service) ingestGroup(tx *gorm.DB, code string, records []derive.EnrichedRecord, batchDate time.Time, sourceFile string, result *Result) error {
	batch := domain.Batch{
		BatchCode: code,
		BatchDate: batchDate,
	}
	if err := tx.Create(&batch).Error; err != nil {
		return apperrors.IngestionError(err, "failed to create batch")
	}

	detail := domain.BatchDetail{
		BatchID:    batch.ID,
		SawName:    records[0].SawName,
		SourceFile: sourceFile,
	}
	if err := tx.Create(&detail).Error; err != nil {
		return apperrors.IngestionError(err, "failed to create batch detail")
	}

	for _, rec := range records {
		item, err := s.findOrCreateItem(tx, rec)
		if err != nil {
			return err
		}

		batchItem := domain.BatchItem{
			BatchID:                    batch.ID,
			ItemID:                     item.ID,
			Quantity:                   rec.Quantity,
			InputBarLengthMM:           rec.InputBarLength,
			BarLengthUsedMM:            rec.BarLengthUsed,
			TotalLengthUsedMM:          rec.TotalLengthUsed,
			OffcutLengthCreatedMM:      rec.OffcutLengthCreated,
			TotalOffcutLengthCreatedMM: rec.TotalOffcutLengthCreated,
			DoubleCut:                  rec.DoubleCut,
			WastePercentage:            rec.WastePercentage,
			UsageEfficiency:            rec.UsageEfficiency,
		}
		if err := tx.Create(&batchItem).Error; err != nil {
			return apperrors.IngestionError(err, "failed to create batch item")
		}

		if err := s.createOffcuts(tx, rec, detail.ID, result); err != nil {
			return err
		}

		if err := s.recordSuggestions(tx, rec, batch.ID, detail.ID, batchDate, result); err != nil {
			return err
		}
	}

	return nil
}

// findOrCreateItem resolves the canonical item by exact description
// match, creating it on first sighting
func (s *Service) findOrCreateItem(tx *gorm.DB, rec derive.EnrichedRecord) (*domain.Item, error) {
	var item domain.Item
	err := tx.Where("item_description = ?", rec.ItemDescription).First(&item).Error
	if err == nil {
		return &item, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.IngestionError(err, "failed to look up item")
	}

	item = domain.Item{
		ItemCode:        rec.ItemCode,
		ItemDescription: rec.ItemDescription,
	}
	if err := tx.Create(&item).Error; err != nil {
		return nil, apperrors.IngestionError(err, "failed to create item")
	}
	return &item, nil
}

// createOffcuts persists one offcut row per created id. For a double
// cut, each id after the first links back to its immediate predecessor,
// pairing the two remnants of the same bar. A malformed created id
// aborts the transaction.
func (s *Service) createOffcuts(tx *gorm.DB, rec derive.EnrichedRecord, detailID uint, result *Result) error {
	ids := reportparse.SplitIDList(rec.CreatedOffcutIDs)

	var prevID int
	for i, raw := range ids {
		legacyID, err := strconv.Atoi(raw)
		if err != nil {
			return apperrors.IngestionError(err, "malformed created offcut id "+raw)
		}

		var relatedID *int
		if rec.DoubleCut && i > 0 {
			related := prevID
			relatedID = &related
		}

		offcut := domain.Offcut{
			LegacyOffcutID:         legacyID,
			LengthMM:               rec.OffcutLengthCreated,
			MaterialProfile:        rec.ItemDescription,
			CreatedInBatchDetailID: &detailID,
			RelatedLegacyOffcutID:  relatedID,
			IsAvailable:            true,
			ReuseCount:             0,
		}
		if err := tx.Create(&offcut).Error; err != nil {
			return apperrors.IngestionError(err, "failed to create offcut")
		}

		prevID = legacyID
		result.OffcutsCreated++
	}

	return nil
}

// recordSuggestions persists the report's own offcut suggestion for a
// record and consumes any suggested offcut that exists in the store.
// Malformed ids are logged and skipped; they must not abort the batch.
func (s *Service) recordSuggestions(tx *gorm.DB, rec derive.EnrichedRecord, batchID, detailID uint, batchDate time.Time, result *Result) error {
	raw := reportparse.SplitIDList(rec.SuggestedOffcutIDs)
	if len(raw) == 0 {
		return nil
	}

	ids := make([]int, 0, len(raw))
	for _, r := range raw {
		id, err := strconv.Atoi(r)
		if err != nil {
			s.logger.Warn("skipping malformed suggested offcut id",
				slog.String("raw_id", r),
				slog.String("item_code", rec.ItemCode))
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil
	}

	suggestion := domain.BatchOffcutSuggestion{
		BatchID:           batchID,
		OffcutLegacyID1:   ids[0],
		MatchedProfile:    rec.ItemDescription,
		SuggestedLengthMM: rec.OffcutLengthCreated,
		BatchDetailID:     &detailID,
	}
	if len(ids) > 1 {
		suggestion.OffcutLegacyID2 = &ids[1]
	}
	if err := tx.Create(&suggestion).Error; err != nil {
		return apperrors.IngestionError(err, "failed to create offcut suggestion")
	}
	result.SuggestionsRecorded++

	for _, legacyID := range ids {
		var offcut domain.Offcut
		err := tx.Where("legacy_offcut_id = ?", legacyID).First(&offcut).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return apperrors.IngestionError(err, "failed to look up suggested offcut")
		}

		history := domain.OffcutUsageHistory{
			OffcutID:     offcut.ID,
			BatchID:      batchID,
			ReuseSuccess: true,
			ReuseDate:    batchDate,
		}
		if err := tx.Create(&history).Error; err != nil {
			return apperrors.IngestionError(err, "failed to create usage history")
		}

		err = tx.Model(&domain.Offcut{}).
			Where("id = ?", offcut.ID).
			Updates(map[string]interface{}{
				"is_available": false,
				"reuse_count":  gorm.Expr("reuse_count + 1"),
			}).
			Error
		if err != nil {
			return apperrors.IngestionError(err, "failed to consume suggested offcut")
		}
	}

	return nil
}

// groupByBatchCode groups records by batch code preserving first-seen
// order
func groupByBatchCode(records []derive.EnrichedRecord) (map[string][]derive.EnrichedRecord, []string) {
	groups := make(map[string][]derive.EnrichedRecord)
	codes := make([]string, 0, 1)

	for _, rec := range records {
		if _, ok := groups[rec.BatchCode]; !ok {
			codes = append(codes, rec.BatchCode)
		}
		groups[rec.BatchCode] = append(groups[rec.BatchCode], rec)
	}
	return groups, codes
}
