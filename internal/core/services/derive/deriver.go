package derive

import (
	"log/slog"

	"github.com/offcuttrack/offcut-service/internal/core/services/reportparse"
	apperrors "github.com/offcuttrack/offcut-service/internal/pkg/errors"
)

// EnrichedRecord is a raw cutting record plus its derived quantities.
// All lengths are millimetres.
type EnrichedRecord struct {
	reportparse.RawRecord

	Quantity                 int     `json:"quantity"`
	TotalInputLength         int     `json:"total_input_length"`
	TotalLengthUsed          int     `json:"total_length_used"`
	OffcutLengthCreated      int     `json:"offcut_length_created"`
	TotalOffcutLengthCreated int     `json:"total_offcut_length_created"`
	WastePercentage          float64 `json:"waste_percentage"`
	UsageEfficiency          float64 `json:"usage_efficiency"`
}

// Deriver computes derived quantities for raw cutting records and
// validates schema completeness before ingestion
type Deriver struct {
	logger *slog.Logger
}

// NewDeriver creates a new record deriver
func NewDeriver(logger *slog.Logger) *Deriver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Deriver{logger: logger}
}

// Derive validates one raw record and computes its derived fields.
// A double cut yields two pieces from one bar, so quantity-derived
// totals double; the created offcut length is per piece and is not
// multiplied by quantity.
func (d *Deriver) Derive(rec reportparse.RawRecord) (*EnrichedRecord, error) {
	if err := d.validate(rec); err != nil {
		return nil, err
	}

	quantity := 1
	if rec.DoubleCut {
		quantity = 2
	}

	offcutLength := rec.InputBarLength - rec.BarLengthUsed
	totalUsed := rec.BarLengthUsed * quantity
	totalOffcut := offcutLength * quantity

	return &EnrichedRecord{
		RawRecord:                rec,
		Quantity:                 quantity,
		TotalInputLength:         rec.InputBarLength * quantity,
		TotalLengthUsed:          totalUsed,
		OffcutLengthCreated:      offcutLength,
		TotalOffcutLengthCreated: totalOffcut,
		WastePercentage:          float64(totalOffcut) / float64(rec.InputBarLength) * 100,
		UsageEfficiency:          float64(totalUsed) / float64(rec.InputBarLength) * 100,
	}, nil
}

// DeriveAll derives every record in order, failing on the first invalid
// record
func (d *Deriver) DeriveAll(records []reportparse.RawRecord) ([]EnrichedRecord, error) {
	enriched := make([]EnrichedRecord, 0, len(records))
	for i, rec := range records {
		e, err := d.Derive(rec)
		if err != nil {
			if appErr, ok := apperrors.GetAppError(err); ok {
				return nil, appErr.WithDetails("record_index", i)
			}
			return nil, err
		}
		enriched = append(enriched, *e)
	}
	return enriched, nil
}

// validate checks the critical fields the derivations depend on. The
// input bar length guards the percentage denominators and must be
// strictly positive.
func (d *Deriver) validate(rec reportparse.RawRecord) error {
	if rec.BatchCode == "" {
		return apperrors.ValidationError("record has no batch code")
	}
	if rec.ItemCode == "" {
		return apperrors.ValidationError("record has no item code")
	}
	if rec.ItemDescription == "" {
		return apperrors.ValidationError("record has no item description")
	}
	if rec.InputBarLength <= 0 {
		return apperrors.ValidationErrorf(
			"input bar length must be positive, got %d (item %s)",
			rec.InputBarLength, rec.ItemCode)
	}
	return nil
}
