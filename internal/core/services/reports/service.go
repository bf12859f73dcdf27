package reports

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/offcuttrack/offcut-service/internal/core/domain"
)

const (
	summaryCacheKey = "reports:material_summary"
	summaryCacheTTL = 5 * time.Minute
)

// MaterialSummary aggregates usage across all batches for one material
type MaterialSummary struct {
	ItemDescription   string  `json:"item_description"`
	ItemCode          string  `json:"item_code"`
	TotalInputLength  float64 `json:"total_input_length"`
	TotalUsedLength   float64 `json:"total_used_length"`
	TotalOffcutLength float64 `json:"total_offcut_length"`
	AvgEfficiency     float64 `json:"avg_efficiency"`
	AvgWaste          float64 `json:"avg_waste"`
}

// InventoryLine is one (profile, length) bucket of available offcuts
type InventoryLine struct {
	MaterialProfile string `json:"material_profile"`
	LengthMM        int    `json:"length_mm"`
	Quantity        int64  `json:"quantity"`
}

// Store provides the aggregate queries behind the reports
type Store interface {
	MaterialSummary(ctx context.Context) ([]MaterialSummary, error)
	OffcutInventory(ctx context.Context) ([]InventoryLine, error)
	ReuseHistory(ctx context.Context, offcutID uint) ([]domain.OffcutUsageHistory, error)
}

// Cache is the subset of the redis cache the reports service uses
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Service serves usage reports over the persisted entities, caching the
// material summary between ingestions
type Service struct {
	store  Store
	cache  Cache
	logger *slog.Logger
}

// NewService creates a new reports service. The cache is optional.
func NewService(store Store, cache Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		cache:  cache,
		logger: logger,
	}
}

// Summary returns per-material usage aggregates, from cache when fresh
func (s *Service) Summary(ctx context.Context) ([]MaterialSummary, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, summaryCacheKey); err == nil && cached != "" {
			var summary []MaterialSummary
			if err := json.Unmarshal([]byte(cached), &summary); err == nil {
				return summary, nil
			}
		}
	}

	summary, err := s.store.MaterialSummary(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if payload, err := json.Marshal(summary); err == nil {
			if err := s.cache.Set(ctx, summaryCacheKey, payload, summaryCacheTTL); err != nil {
				s.logger.Warn("failed to cache material summary", slog.Any("error", err))
			}
		}
	}

	return summary, nil
}

// InvalidateSummary drops the cached summary; called after ingestion or
// confirmation changes the underlying data
func (s *Service) InvalidateSummary(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, summaryCacheKey); err != nil {
		s.logger.Warn("failed to invalidate summary cache", slog.Any("error", err))
	}
}

// Inventory returns the available offcut inventory grouped by profile
// and length
func (s *Service) Inventory(ctx context.Context) ([]InventoryLine, error) {
	return s.store.OffcutInventory(ctx)
}

// SuccessRate computes the historical reuse success rate for one
// offcut. Offcuts with no history default to 1.0.
func (s *Service) SuccessRate(ctx context.Context, offcutID uint) (float64, error) {
	history, err := s.store.ReuseHistory(ctx, offcutID)
	if err != nil {
		return 0, err
	}
	if len(history) == 0 {
		return 1.0, nil
	}

	successes := 0
	for _, h := range history {
		if h.ReuseSuccess {
			successes++
		}
	}
	return float64(successes) / float64(len(history)), nil
}
