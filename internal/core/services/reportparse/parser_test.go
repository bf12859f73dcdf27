package reportparse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/offcuttrack/offcut-service/internal/pkg/errors"
)

const sampleReport = `BAR OPTIMISING
BATCH: B10234
Saw: Alu Mitre Saw

Product Code: ALU-201
Description: 45x45 Aluminium Box Section
Bar Length: 6000
Total Used: 5400
Use Offcut: None
Save Offcut: 9001

Product Code: ALU-305
Description: 60x40 Aluminium Channel
Bar Length: 6000
Total Used: 2900
*** Double Cut Bars ***
Use Offcuts: 8101 & 8102
Save Offcuts: 9002 & 9003

BAR OPTIMISING

Product Code: ALU-407
Description: 25x25 Aluminium Angle
Bar Length: 3000
Use Offcut: None
Save Offcut: None
`

func TestParser_Parse(t *testing.T) {
	parser := NewParser(nil)

	result, err := parser.Parse(context.Background(), sampleReport)
	require.NoError(t, err)
	require.Len(t, result.Records, 3)

	first := result.Records[0]
	assert.Equal(t, "B10234", first.BatchCode)
	assert.Equal(t, "Alu Mitre Saw", first.SawName)
	assert.Equal(t, "ALU-201", first.ItemCode)
	assert.Equal(t, "45x45 Aluminium Box Section", first.ItemDescription)
	assert.Equal(t, 6000, first.InputBarLength)
	assert.Equal(t, 5400, first.BarLengthUsed)
	assert.False(t, first.DoubleCut)
	assert.Equal(t, NoneSentinel, first.SuggestedOffcutIDs)
	assert.Equal(t, "9001", first.CreatedOffcutIDs)

	second := result.Records[1]
	assert.True(t, second.DoubleCut)
	assert.Equal(t, "8101 & 8102", second.SuggestedOffcutIDs)
	assert.Equal(t, "9002 & 9003", second.CreatedOffcutIDs)
}

func TestParser_Parse_ContextCarryForward(t *testing.T) {
	parser := NewParser(nil)

	result, err := parser.Parse(context.Background(), sampleReport)
	require.NoError(t, err)
	require.Len(t, result.Records, 3)

	// The second section omits both the batch code and the saw name;
	// its product inherits the values from the first section.
	third := result.Records[2]
	assert.Equal(t, "B10234", third.BatchCode)
	assert.Equal(t, "Alu Mitre Saw", third.SawName)
	assert.Equal(t, "ALU-407", third.ItemCode)
}

func TestParser_Parse_MissingUsedLengthDefaultsToZero(t *testing.T) {
	parser := NewParser(nil)

	result, err := parser.Parse(context.Background(), sampleReport)
	require.NoError(t, err)

	assert.Equal(t, 0, result.Records[2].BarLengthUsed)
}

func TestParser_Parse_NoBatchCode(t *testing.T) {
	parser := NewParser(nil)

	text := `BAR OPTIMISING
Saw: Alu Mitre Saw

Product Code: ALU-201
Description: 45x45 Aluminium Box Section
Bar Length: 6000
Total Used: 5400
`
	result, err := parser.Parse(context.Background(), text)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeParseError))
}

func TestParser_Parse_NoProducts(t *testing.T) {
	parser := NewParser(nil)

	text := `BAR OPTIMISING
BATCH: B55555
Saw: Alu Mitre Saw
`
	result, err := parser.Parse(context.Background(), text)
	require.NoError(t, err)
	assert.Empty(t, result.Records)
}

func TestParser_Parse_Cancelled(t *testing.T) {
	parser := NewParser(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := parser.Parse(ctx, sampleReport)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSplitIDList(t *testing.T) {
	tests := []struct {
		name  string
		field string
		want  []string
	}{
		{"none sentinel", "None", nil},
		{"empty", "", nil},
		{"whitespace", "   ", nil},
		{"single id", "9001", []string{"9001"}},
		{"pair", "9001 & 9002", []string{"9001", "9002"}},
		{"unspaced pair", "9001&9002", []string{"9001", "9002"}},
		{"trailing delimiter", "9001 &", []string{"9001"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitIDList(tt.field))
		})
	}
}
