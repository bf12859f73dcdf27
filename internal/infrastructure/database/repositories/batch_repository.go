package repositories

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/offcuttrack/offcut-service/internal/core/domain"
	"github.com/offcuttrack/offcut-service/internal/core/services/recommend"
	apperrors "github.com/offcuttrack/offcut-service/internal/pkg/errors"
)

// BatchRepository implements batch reads over GORM
type BatchRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewBatchRepository creates a new repository instance
func NewBatchRepository(db *gorm.DB, logger *slog.Logger) *BatchRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchRepository{
		db:     db,
		logger: logger,
	}
}

// List returns all batches ordered by date descending
func (r *BatchRepository) List(ctx context.Context) ([]domain.Batch, error) {
	var batches []domain.Batch

	err := r.db.WithContext(ctx).
		Order("batch_date DESC, id DESC").
		Find(&batches).
		Error
	if err != nil {
		return nil, fmt.Errorf("database query failed: %w", err)
	}
	return batches, nil
}

// GetByCode returns one batch by its unique batch code
func (r *BatchRepository) GetByCode(ctx context.Context, batchCode string) (*domain.Batch, error) {
	var batch domain.Batch

	err := r.db.WithContext(ctx).
		Where("batch_code = ?", batchCode).
		First(&batch).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.RecordNotFound("batch " + batchCode)
	}
	if err != nil {
		return nil, fmt.Errorf("database query failed: %w", err)
	}
	return &batch, nil
}

// CodeExists reports whether a batch code is already present
func (r *BatchRepository) CodeExists(ctx context.Context, batchCode string) (bool, error) {
	var count int64

	err := r.db.WithContext(ctx).
		Model(&domain.Batch{}).
		Where("batch_code = ?", batchCode).
		Count(&count).
		Error
	if err != nil {
		return false, fmt.Errorf("database query failed: %w", err)
	}
	return count > 0, nil
}

// CuttingInstructions resolves a batch's items into the cutting
// instructions fed to the recommendation engine: the profile is the
// item description and the required length the input bar length. Items
// without a positive input length are dropped.
func (r *BatchRepository) CuttingInstructions(ctx context.Context, batchCode string) (uint, []recommend.Instruction, error) {
	batch, err := r.GetByCode(ctx, batchCode)
	if err != nil {
		return 0, nil, err
	}

	var items []domain.BatchItem
	err = r.db.WithContext(ctx).
		Preload("Item").
		Where("batch_id = ?", batch.ID).
		Order("id ASC").
		Find(&items).
		Error
	if err != nil {
		return 0, nil, fmt.Errorf("database query failed: %w", err)
	}

	instructions := make([]recommend.Instruction, 0, len(items))
	for _, item := range items {
		if item.InputBarLengthMM <= 0 || item.Item == nil {
			continue
		}
		instructions = append(instructions, recommend.Instruction{
			MaterialProfile: item.Item.ItemDescription,
			RequiredLength:  item.InputBarLengthMM,
			DoubleCut:       item.DoubleCut,
		})
	}

	r.logger.Debug("cutting instructions resolved",
		slog.String("batch_code", batchCode),
		slog.Int("instruction_count", len(instructions)))

	return batch.ID, instructions, nil
}
