package recommend

import (
	"context"
	"time"

	"github.com/offcuttrack/offcut-service/internal/core/domain"
)

// Instruction is one required cut: the material profile to match, the
// minimum usable length and whether the cut consumes two pieces
type Instruction struct {
	MaterialProfile string `json:"material_profile"`
	RequiredLength  int    `json:"required_length"`
	DoubleCut       bool   `json:"double_cut"`
}

// Recommendation is one ranked offcut match for an instruction. A
// double-cut recommendation references the paired offcut through
// RelatedLegacyOffcutID.
type Recommendation struct {
	LegacyOffcutID        int    `json:"legacy_offcut_id"`
	RelatedLegacyOffcutID *int   `json:"related_legacy_offcut_id,omitempty"`
	MatchedProfile        string `json:"matched_profile"`
	SuggestedLength       int    `json:"suggested_length"`
	IsDoubleCut           bool   `json:"is_double_cut"`
	Reasoning             string `json:"reasoning"`
}

// BatchRecommendations carries the recommendations resolved for one
// batch's cutting instructions
type BatchRecommendations struct {
	BatchID         uint             `json:"batch_id"`
	BatchCode       string           `json:"batch_code"`
	Recommendations []Recommendation `json:"recommendations"`
}

// ConfirmOutcome reports what a confirmation persisted and which
// offcuts lost the availability race. Conflicted recommendations are
// not persisted; the caller re-requests recommendations for them.
type ConfirmOutcome struct {
	Suggestions []domain.BatchOffcutSuggestion `json:"suggestions"`
	Conflicts   []int                          `json:"conflicts,omitempty"`
}

// OffcutFinder queries available offcut inventory. Results are ordered
// ascending by length then legacy id so the smallest sufficient piece
// wins deterministically.
type OffcutFinder interface {
	FindAvailable(ctx context.Context, profile string, minLength int, excluded []int, limit int) ([]domain.Offcut, error)
}

// InstructionSource resolves a batch identifier into the cutting
// instructions derived from its batch items
type InstructionSource interface {
	CuttingInstructions(ctx context.Context, batchCode string) (uint, []Instruction, error)
}

// ConfirmationStore persists accepted recommendations under row-level
// locking, re-checking availability so two clients cannot consume the
// same physical offcut
type ConfirmationStore interface {
	ConfirmUsage(ctx context.Context, batchID uint, recs []Recommendation, reuseDate time.Time) (*ConfirmOutcome, error)
}
