package repositories

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/offcuttrack/offcut-service/internal/core/domain"
	"github.com/offcuttrack/offcut-service/internal/core/services/recommend"
	apperrors "github.com/offcuttrack/offcut-service/internal/pkg/errors"
)

// OffcutRepository implements offcut inventory queries and the
// confirmation write path over GORM
type OffcutRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewOffcutRepository creates a new repository instance
func NewOffcutRepository(db *gorm.DB, logger *slog.Logger) *OffcutRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &OffcutRepository{
		db:     db,
		logger: logger,
	}
}

// FindAvailable returns available offcuts of the given profile with at
// least the required length, excluding the given legacy ids, ordered by
// length then legacy id ascending. The smallest sufficient piece comes
// first.
func (r *OffcutRepository) FindAvailable(ctx context.Context, profile string, minLength int, excluded []int, limit int) ([]domain.Offcut, error) {
	var offcuts []domain.Offcut

	query := r.db.WithContext(ctx).
		Where("is_available = ?", true).
		Where("material_profile = ?", profile).
		Where("length_mm >= ?", minLength)

	if len(excluded) > 0 {
		query = query.Where("legacy_offcut_id NOT IN ?", excluded)
	}

	err := query.
		Order("length_mm ASC, legacy_offcut_id ASC").
		Limit(limit).
		Find(&offcuts).
		Error
	if err != nil {
		return nil, fmt.Errorf("database query failed: %w", err)
	}
	return offcuts, nil
}

// GetByLegacyID returns one offcut by its report-assigned id
func (r *OffcutRepository) GetByLegacyID(ctx context.Context, legacyID int) (*domain.Offcut, error) {
	var offcut domain.Offcut

	err := r.db.WithContext(ctx).
		Where("legacy_offcut_id = ?", legacyID).
		First(&offcut).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.RecordNotFound(fmt.Sprintf("offcut %d", legacyID))
	}
	if err != nil {
		return nil, fmt.Errorf("database query failed: %w", err)
	}
	return &offcut, nil
}

// ConfirmUsage persists accepted recommendations in one transaction.
// Every referenced offcut row is locked FOR UPDATE and its availability
// re-checked, closing the race between recommendation and confirmation:
// a recommendation whose offcut was consumed by a concurrent
// confirmation is reported in the outcome's conflicts and skipped, the
// rest are persisted.
func (r *OffcutRepository) ConfirmUsage(ctx context.Context, batchID uint, recs []recommend.Recommendation, reuseDate time.Time) (*recommend.ConfirmOutcome, error) {
	outcome := &recommend.ConfirmOutcome{
		Suggestions: make([]domain.BatchOffcutSuggestion, 0, len(recs)),
	}

	allIDs := make([]int, 0, 2*len(recs))
	for _, rec := range recs {
		allIDs = append(allIDs, rec.LegacyOffcutID)
		if rec.RelatedLegacyOffcutID != nil {
			allIDs = append(allIDs, *rec.RelatedLegacyOffcutID)
		}
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var locked []domain.Offcut
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("legacy_offcut_id IN ?", allIDs).
			Find(&locked).
			Error
		if err != nil {
			return fmt.Errorf("failed to lock offcuts: %w", err)
		}

		available := make(map[int]*domain.Offcut, len(locked))
		for i := range locked {
			if locked[i].IsAvailable {
				available[locked[i].LegacyOffcutID] = &locked[i]
			}
		}

		for _, rec := range recs {
			recIDs := []int{rec.LegacyOffcutID}
			if rec.RelatedLegacyOffcutID != nil {
				recIDs = append(recIDs, *rec.RelatedLegacyOffcutID)
			}

			conflicted := false
			for _, id := range recIDs {
				if _, ok := available[id]; !ok {
					outcome.Conflicts = append(outcome.Conflicts, id)
					conflicted = true
				}
			}
			if conflicted {
				continue
			}

			suggestion := domain.BatchOffcutSuggestion{
				BatchID:           batchID,
				OffcutLegacyID1:   rec.LegacyOffcutID,
				OffcutLegacyID2:   rec.RelatedLegacyOffcutID,
				MatchedProfile:    rec.MatchedProfile,
				SuggestedLengthMM: rec.SuggestedLength,
			}
			if err := tx.Create(&suggestion).Error; err != nil {
				return fmt.Errorf("failed to create suggestion: %w", err)
			}
			outcome.Suggestions = append(outcome.Suggestions, suggestion)

			for _, id := range recIDs {
				offcut := available[id]

				history := domain.OffcutUsageHistory{
					OffcutID:     offcut.ID,
					BatchID:      batchID,
					ReuseSuccess: true,
					ReuseDate:    reuseDate,
				}
				if err := tx.Create(&history).Error; err != nil {
					return fmt.Errorf("failed to create usage history: %w", err)
				}

				err := tx.Model(&domain.Offcut{}).
					Where("id = ?", offcut.ID).
					Updates(map[string]interface{}{
						"is_available": false,
						"reuse_count":  gorm.Expr("reuse_count + 1"),
					}).
					Error
				if err != nil {
					return fmt.Errorf("failed to consume offcut: %w", err)
				}

				// consumed within this confirmation; a later
				// recommendation referencing it conflicts
				delete(available, id)
			}
		}

		return nil
	})
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}

	r.logger.Info("confirmation persisted",
		slog.Uint64("batch_id", uint64(batchID)),
		slog.Int("confirmed", len(outcome.Suggestions)),
		slog.Int("conflicts", len(outcome.Conflicts)))

	return outcome, nil
}
