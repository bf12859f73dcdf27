package derive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/offcuttrack/offcut-service/internal/core/services/reportparse"
	apperrors "github.com/offcuttrack/offcut-service/internal/pkg/errors"
)

func validRecord() reportparse.RawRecord {
	return reportparse.RawRecord{
		BatchCode:          "B10234",
		SawName:            "Alu Mitre Saw",
		ItemCode:           "ALU-201",
		ItemDescription:    "45x45 Aluminium Box Section",
		InputBarLength:     3000,
		BarLengthUsed:      2700,
		SuggestedOffcutIDs: reportparse.NoneSentinel,
		CreatedOffcutIDs:   reportparse.NoneSentinel,
	}
}

func TestDeriver_Derive_SingleCut(t *testing.T) {
	deriver := NewDeriver(nil)

	enriched, err := deriver.Derive(validRecord())
	require.NoError(t, err)

	assert.Equal(t, 1, enriched.Quantity)
	assert.Equal(t, 3000, enriched.TotalInputLength)
	assert.Equal(t, 2700, enriched.TotalLengthUsed)
	assert.Equal(t, 300, enriched.OffcutLengthCreated)
	assert.Equal(t, 300, enriched.TotalOffcutLengthCreated)
	assert.InDelta(t, 10.0, enriched.WastePercentage, 0.001)
	assert.InDelta(t, 90.0, enriched.UsageEfficiency, 0.001)
}

func TestDeriver_Derive_DoubleCut(t *testing.T) {
	deriver := NewDeriver(nil)

	rec := validRecord()
	rec.InputBarLength = 6000
	rec.BarLengthUsed = 2900
	rec.DoubleCut = true

	enriched, err := deriver.Derive(rec)
	require.NoError(t, err)

	assert.Equal(t, 2, enriched.Quantity)
	assert.Equal(t, 12000, enriched.TotalInputLength)
	assert.Equal(t, 5800, enriched.TotalLengthUsed)
	// per-piece waste, not multiplied by quantity
	assert.Equal(t, 3100, enriched.OffcutLengthCreated)
	assert.Equal(t, 6200, enriched.TotalOffcutLengthCreated)
	// denominator stays the single input bar length
	assert.InDelta(t, 6200.0/6000.0*100, enriched.WastePercentage, 0.001)
	assert.InDelta(t, 5800.0/6000.0*100, enriched.UsageEfficiency, 0.001)
}

func TestDeriver_Derive_WasteDenominator(t *testing.T) {
	deriver := NewDeriver(nil)

	rec := validRecord()
	rec.InputBarLength = 6000
	rec.BarLengthUsed = 5800
	rec.DoubleCut = true

	enriched, err := deriver.Derive(rec)
	require.NoError(t, err)

	assert.Equal(t, 200, enriched.OffcutLengthCreated)
	assert.Equal(t, 400, enriched.TotalOffcutLengthCreated)
	assert.InDelta(t, 400.0/6000.0*100, enriched.WastePercentage, 0.001)
}

func TestDeriver_Derive_ValidationErrors(t *testing.T) {
	deriver := NewDeriver(nil)

	tests := []struct {
		name   string
		mutate func(*reportparse.RawRecord)
	}{
		{"missing batch code", func(r *reportparse.RawRecord) { r.BatchCode = "" }},
		{"missing item code", func(r *reportparse.RawRecord) { r.ItemCode = "" }},
		{"missing description", func(r *reportparse.RawRecord) { r.ItemDescription = "" }},
		{"zero bar length", func(r *reportparse.RawRecord) { r.InputBarLength = 0 }},
		{"negative bar length", func(r *reportparse.RawRecord) { r.InputBarLength = -100 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := validRecord()
			tt.mutate(&rec)

			_, err := deriver.Derive(rec)
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidationError))
		})
	}
}

func TestDeriver_DeriveAll(t *testing.T) {
	deriver := NewDeriver(nil)

	good := validRecord()
	bad := validRecord()
	bad.InputBarLength = 0

	enriched, err := deriver.DeriveAll([]reportparse.RawRecord{good, good})
	require.NoError(t, err)
	assert.Len(t, enriched, 2)

	_, err = deriver.DeriveAll([]reportparse.RawRecord{good, bad})
	require.Error(t, err)

	appErr, ok := apperrors.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, 1, appErr.Details["record_index"])
}
