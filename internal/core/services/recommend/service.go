package recommend

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	apperrors "github.com/offcuttrack/offcut-service/internal/pkg/errors"
)

// Service matches cutting instructions against available offcut
// inventory. Matching is pure reads plus in-call exclusion bookkeeping;
// nothing is reserved in the store until the caller confirms.
type Service struct {
	offcuts      OffcutFinder
	instructions InstructionSource
	confirmStore ConfirmationStore
	logger       *slog.Logger
	printer      *message.Printer
}

// NewService creates a new recommendation service
func NewService(offcuts OffcutFinder, instructions InstructionSource, confirmStore ConfirmationStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		offcuts:      offcuts,
		instructions: instructions,
		confirmStore: confirmStore,
		logger:       logger,
		printer:      message.NewPrinter(language.English),
	}
}

// Recommend processes instructions in order, greedily taking the
// smallest sufficient offcut per instruction. An offcut claimed by an
// earlier instruction is excluded for the rest of the call. An
// instruction with no qualifying match is skipped without error, so the
// returned list may be shorter than the instruction list.
func (s *Service) Recommend(ctx context.Context, instructions []Instruction) ([]Recommendation, error) {
	recommendations := make([]Recommendation, 0, len(instructions))
	excluded := make([]int, 0)

	for _, instr := range instructions {
		if instr.DoubleCut {
			rec, err := s.matchDouble(ctx, instr, excluded)
			if err != nil {
				return nil, err
			}
			if rec != nil {
				excluded = append(excluded, rec.LegacyOffcutID, *rec.RelatedLegacyOffcutID)
				recommendations = append(recommendations, *rec)
			}
			continue
		}

		rec, err := s.matchSingle(ctx, instr, excluded)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			excluded = append(excluded, rec.LegacyOffcutID)
			recommendations = append(recommendations, *rec)
		}
	}

	s.logger.Info("recommendations computed",
		slog.Int("instruction_count", len(instructions)),
		slog.Int("recommendation_count", len(recommendations)))

	return recommendations, nil
}

// matchSingle finds the best-fit available offcut for a single cut
func (s *Service) matchSingle(ctx context.Context, instr Instruction, excluded []int) (*Recommendation, error) {
	offcuts, err := s.offcuts.FindAvailable(ctx, instr.MaterialProfile, instr.RequiredLength, excluded, 1)
	if err != nil {
		return nil, err
	}
	if len(offcuts) == 0 {
		return nil, nil
	}

	best := offcuts[0]
	return &Recommendation{
		LegacyOffcutID:  best.LegacyOffcutID,
		MatchedProfile:  best.MaterialProfile,
		SuggestedLength: best.LengthMM,
		Reasoning: s.printer.Sprintf("Best matching offcut for %s with required length %dmm",
			instr.MaterialProfile, instr.RequiredLength),
	}, nil
}

// matchDouble finds the two smallest qualifying distinct offcuts for a
// double cut. Both must be found or the instruction yields no
// recommendation.
func (s *Service) matchDouble(ctx context.Context, instr Instruction, excluded []int) (*Recommendation, error) {
	offcuts, err := s.offcuts.FindAvailable(ctx, instr.MaterialProfile, instr.RequiredLength, excluded, 2)
	if err != nil {
		return nil, err
	}
	if len(offcuts) < 2 {
		return nil, nil
	}

	related := offcuts[1].LegacyOffcutID
	return &Recommendation{
		LegacyOffcutID:        offcuts[0].LegacyOffcutID,
		RelatedLegacyOffcutID: &related,
		MatchedProfile:        offcuts[0].MaterialProfile,
		SuggestedLength:       offcuts[0].LengthMM,
		IsDoubleCut:           true,
		Reasoning: s.printer.Sprintf("Matched pair of offcuts for double cut %s with required length %dmm",
			instr.MaterialProfile, instr.RequiredLength),
	}, nil
}

// RecommendForBatch resolves a batch's cutting instructions from its
// persisted batch items and matches them against inventory
func (s *Service) RecommendForBatch(ctx context.Context, batchCode string) (*BatchRecommendations, error) {
	batchID, instructions, err := s.instructions.CuttingInstructions(ctx, batchCode)
	if err != nil {
		return nil, err
	}
	if len(instructions) == 0 {
		return nil, apperrors.NotFound("no cutting instructions for batch " + batchCode)
	}

	recommendations, err := s.Recommend(ctx, instructions)
	if err != nil {
		return nil, err
	}

	return &BatchRecommendations{
		BatchID:         batchID,
		BatchCode:       batchCode,
		Recommendations: recommendations,
	}, nil
}

// Confirm persists the accepted recommendations for a batch. The store
// re-checks availability under row locks; recommendations that lost the
// race to another confirmation are reported in the outcome's conflicts
// and left unpersisted. If every recommendation conflicted the
// confirmation fails with an offcut-unavailable error.
func (s *Service) Confirm(ctx context.Context, batchID uint, recs []Recommendation) (*ConfirmOutcome, error) {
	if len(recs) == 0 {
		return nil, apperrors.BadRequest("no recommendations to confirm")
	}

	outcome, err := s.confirmStore.ConfirmUsage(ctx, batchID, recs, time.Now())
	if err != nil {
		return nil, err
	}

	if len(outcome.Conflicts) > 0 {
		s.logger.Warn("confirmation lost availability race for some offcuts",
			slog.Uint64("batch_id", uint64(batchID)),
			slog.Any("legacy_offcut_ids", outcome.Conflicts))
	}
	if len(outcome.Suggestions) == 0 {
		return nil, apperrors.OffcutUnavailable(outcome.Conflicts)
	}

	return outcome, nil
}
