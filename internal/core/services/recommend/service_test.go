package recommend

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/offcuttrack/offcut-service/internal/core/domain"
	apperrors "github.com/offcuttrack/offcut-service/internal/pkg/errors"
)

// mockOffcutFinder implements OffcutFinder over an in-memory inventory
type mockOffcutFinder struct {
	offcuts []domain.Offcut
}

func (m *mockOffcutFinder) FindAvailable(ctx context.Context, profile string, minLength int, excluded []int, limit int) ([]domain.Offcut, error) {
	skip := make(map[int]bool, len(excluded))
	for _, id := range excluded {
		skip[id] = true
	}

	var matches []domain.Offcut
	for _, o := range m.offcuts {
		if o.IsAvailable && o.MaterialProfile == profile && o.LengthMM >= minLength && !skip[o.LegacyOffcutID] {
			matches = append(matches, o)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].LengthMM != matches[j].LengthMM {
			return matches[i].LengthMM < matches[j].LengthMM
		}
		return matches[i].LegacyOffcutID < matches[j].LegacyOffcutID
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

type mockInstructionSource struct {
	batchID      uint
	instructions []Instruction
}

func (m *mockInstructionSource) CuttingInstructions(ctx context.Context, batchCode string) (uint, []Instruction, error) {
	return m.batchID, m.instructions, nil
}

type mockConfirmationStore struct {
	outcome *ConfirmOutcome
	gotRecs []Recommendation
}

func (m *mockConfirmationStore) ConfirmUsage(ctx context.Context, batchID uint, recs []Recommendation, reuseDate time.Time) (*ConfirmOutcome, error) {
	m.gotRecs = recs
	return m.outcome, nil
}

func availableOffcut(legacyID, length int, profile string) domain.Offcut {
	return domain.Offcut{
		LegacyOffcutID:  legacyID,
		LengthMM:        length,
		MaterialProfile: profile,
		IsAvailable:     true,
	}
}

func TestService_Recommend_BestFit(t *testing.T) {
	finder := &mockOffcutFinder{offcuts: []domain.Offcut{
		availableOffcut(1, 1200, "45x45 Box"),
		availableOffcut(2, 1500, "45x45 Box"),
		availableOffcut(3, 2000, "45x45 Box"),
	}}
	svc := NewService(finder, nil, nil, nil)

	recs, err := svc.Recommend(context.Background(), []Instruction{
		{MaterialProfile: "45x45 Box", RequiredLength: 1300},
	})
	require.NoError(t, err)
	require.Len(t, recs, 1)

	// smallest sufficient piece, not the largest
	assert.Equal(t, 2, recs[0].LegacyOffcutID)
	assert.Equal(t, 1500, recs[0].SuggestedLength)
	assert.False(t, recs[0].IsDoubleCut)
	assert.NotEmpty(t, recs[0].Reasoning)
}

func TestService_Recommend_ExclusionWithinCall(t *testing.T) {
	finder := &mockOffcutFinder{offcuts: []domain.Offcut{
		availableOffcut(1, 1500, "45x45 Box"),
		availableOffcut(2, 1600, "45x45 Box"),
	}}
	svc := NewService(finder, nil, nil, nil)

	instr := Instruction{MaterialProfile: "45x45 Box", RequiredLength: 1000}
	recs, err := svc.Recommend(context.Background(), []Instruction{instr, instr, instr})
	require.NoError(t, err)

	// third instruction finds nothing and is skipped
	require.Len(t, recs, 2)
	assert.NotEqual(t, recs[0].LegacyOffcutID, recs[1].LegacyOffcutID)
}

func TestService_Recommend_DoubleCut(t *testing.T) {
	finder := &mockOffcutFinder{offcuts: []domain.Offcut{
		availableOffcut(1, 1500, "45x45 Box"),
		availableOffcut(2, 1800, "45x45 Box"),
		availableOffcut(3, 2500, "45x45 Box"),
	}}
	svc := NewService(finder, nil, nil, nil)

	recs, err := svc.Recommend(context.Background(), []Instruction{
		{MaterialProfile: "45x45 Box", RequiredLength: 1400, DoubleCut: true},
	})
	require.NoError(t, err)
	require.Len(t, recs, 1)

	rec := recs[0]
	assert.True(t, rec.IsDoubleCut)
	assert.Equal(t, 1, rec.LegacyOffcutID)
	require.NotNil(t, rec.RelatedLegacyOffcutID)
	assert.Equal(t, 2, *rec.RelatedLegacyOffcutID)
}

func TestService_Recommend_DoubleCutNeedsPair(t *testing.T) {
	finder := &mockOffcutFinder{offcuts: []domain.Offcut{
		availableOffcut(1, 1500, "45x45 Box"),
	}}
	svc := NewService(finder, nil, nil, nil)

	recs, err := svc.Recommend(context.Background(), []Instruction{
		{MaterialProfile: "45x45 Box", RequiredLength: 1400, DoubleCut: true},
	})
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestService_Recommend_DoubleCutClaimsBoth(t *testing.T) {
	finder := &mockOffcutFinder{offcuts: []domain.Offcut{
		availableOffcut(1, 1500, "45x45 Box"),
		availableOffcut(2, 1800, "45x45 Box"),
		availableOffcut(3, 2500, "45x45 Box"),
	}}
	svc := NewService(finder, nil, nil, nil)

	recs, err := svc.Recommend(context.Background(), []Instruction{
		{MaterialProfile: "45x45 Box", RequiredLength: 1400, DoubleCut: true},
		{MaterialProfile: "45x45 Box", RequiredLength: 1400},
	})
	require.NoError(t, err)
	require.Len(t, recs, 2)

	// the single cut cannot reuse either half of the double-cut pair
	assert.Equal(t, 3, recs[1].LegacyOffcutID)
}

func TestService_Recommend_NoMatchIsSkipped(t *testing.T) {
	finder := &mockOffcutFinder{offcuts: []domain.Offcut{
		availableOffcut(1, 900, "45x45 Box"),
	}}
	svc := NewService(finder, nil, nil, nil)

	recs, err := svc.Recommend(context.Background(), []Instruction{
		{MaterialProfile: "45x45 Box", RequiredLength: 2000},
		{MaterialProfile: "60x40 Channel", RequiredLength: 500},
	})
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestService_RecommendForBatch(t *testing.T) {
	finder := &mockOffcutFinder{offcuts: []domain.Offcut{
		availableOffcut(1, 3200, "45x45 Box"),
	}}
	source := &mockInstructionSource{
		batchID: 7,
		instructions: []Instruction{
			{MaterialProfile: "45x45 Box", RequiredLength: 3000},
		},
	}
	svc := NewService(finder, source, nil, nil)

	batchRecs, err := svc.RecommendForBatch(context.Background(), "B10234")
	require.NoError(t, err)

	assert.Equal(t, uint(7), batchRecs.BatchID)
	assert.Equal(t, "B10234", batchRecs.BatchCode)
	require.Len(t, batchRecs.Recommendations, 1)
	assert.Equal(t, 1, batchRecs.Recommendations[0].LegacyOffcutID)
}

func TestService_Confirm(t *testing.T) {
	store := &mockConfirmationStore{
		outcome: &ConfirmOutcome{
			Suggestions: []domain.BatchOffcutSuggestion{{BatchID: 7, OffcutLegacyID1: 42}},
			Conflicts:   []int{43},
		},
	}
	svc := NewService(nil, nil, store, nil)

	recs := []Recommendation{
		{LegacyOffcutID: 42, MatchedProfile: "45x45 Box", SuggestedLength: 1500},
		{LegacyOffcutID: 43, MatchedProfile: "45x45 Box", SuggestedLength: 1600},
	}
	outcome, err := svc.Confirm(context.Background(), 7, recs)
	require.NoError(t, err)

	assert.Len(t, store.gotRecs, 2)
	assert.Len(t, outcome.Suggestions, 1)
	assert.Equal(t, []int{43}, outcome.Conflicts)
}

func TestService_Confirm_AllConflicted(t *testing.T) {
	store := &mockConfirmationStore{
		outcome: &ConfirmOutcome{Conflicts: []int{42, 43}},
	}
	svc := NewService(nil, nil, store, nil)

	_, err := svc.Confirm(context.Background(), 7, []Recommendation{
		{LegacyOffcutID: 42}, {LegacyOffcutID: 43},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeOffcutUnavailable))
}

func TestService_Confirm_EmptyRejected(t *testing.T) {
	svc := NewService(nil, nil, &mockConfirmationStore{}, nil)

	_, err := svc.Confirm(context.Background(), 7, nil)
	assert.Error(t, err)
}
