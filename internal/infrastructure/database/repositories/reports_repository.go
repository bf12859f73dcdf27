package repositories

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/offcuttrack/offcut-service/internal/core/domain"
	"github.com/offcuttrack/offcut-service/internal/core/services/reports"
)

// ReportsRepository implements the aggregate queries behind the usage
// reports
type ReportsRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewReportsRepository creates a new repository instance
func NewReportsRepository(db *gorm.DB, logger *slog.Logger) *ReportsRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportsRepository{
		db:     db,
		logger: logger,
	}
}

// MaterialSummary aggregates input, used and offcut lengths plus
// average efficiency and waste per material across all batches
func (r *ReportsRepository) MaterialSummary(ctx context.Context) ([]reports.MaterialSummary, error) {
	var rows []reports.MaterialSummary

	err := r.db.WithContext(ctx).
		Model(&domain.BatchItem{}).
		Select(`items.item_description,
			items.item_code,
			COALESCE(SUM(batch_items.input_bar_length_mm * batch_items.quantity), 0) AS total_input_length,
			COALESCE(SUM(batch_items.total_length_used_mm), 0) AS total_used_length,
			COALESCE(SUM(batch_items.total_offcut_length_created_mm), 0) AS total_offcut_length,
			COALESCE(AVG(batch_items.usage_efficiency), 0) AS avg_efficiency,
			COALESCE(AVG(batch_items.waste_percentage), 0) AS avg_waste`).
		Joins("JOIN items ON items.id = batch_items.item_id").
		Group("items.item_description, items.item_code").
		Scan(&rows).
		Error
	if err != nil {
		return nil, fmt.Errorf("database query failed: %w", err)
	}
	return rows, nil
}

// OffcutInventory buckets the available offcuts by profile and length
func (r *ReportsRepository) OffcutInventory(ctx context.Context) ([]reports.InventoryLine, error) {
	var lines []reports.InventoryLine

	err := r.db.WithContext(ctx).
		Model(&domain.Offcut{}).
		Select("material_profile, length_mm, COUNT(id) AS quantity").
		Where("is_available = ?", true).
		Group("material_profile, length_mm").
		Order("material_profile ASC, length_mm DESC").
		Scan(&lines).
		Error
	if err != nil {
		return nil, fmt.Errorf("database query failed: %w", err)
	}
	return lines, nil
}

// ReuseHistory returns the reuse log for one offcut, oldest first
func (r *ReportsRepository) ReuseHistory(ctx context.Context, offcutID uint) ([]domain.OffcutUsageHistory, error) {
	var history []domain.OffcutUsageHistory

	err := r.db.WithContext(ctx).
		Where("offcut_id = ?", offcutID).
		Order("id ASC").
		Find(&history).
		Error
	if err != nil {
		return nil, fmt.Errorf("database query failed: %w", err)
	}
	return history, nil
}
