package usecase

import (
	"github.com/medscribe-lab/medscribe/pkg/domain/model"
	"github.com/medscribe-lab/medscribe/pkg/domain/types"
)

// resolveConfidence maps an evaluation outcome to a confidence decision.
// Evaluation errors and missing evaluations are handled here, before the
// cascade runs: both block persistence and require review.
func (uc *UseCases) resolveConfidence(summary *model.EvaluationSummary, evalErr error) model.ConfidenceDecision {
	if evalErr != nil || summary == nil || summary.Strategy == types.StrategyError {
		return model.ConfidenceDecision{
			Tier:           types.ConfidenceLow,
			ShouldPersist:  false,
			ReviewRequired: true,
		}
	}

	if summary.Strategy == types.StrategyNone || summary.StandardsUsed == 0 {
		return model.ConfidenceDecision{
			Tier:           types.ConfidenceNoEvaluation,
			ShouldPersist:  false,
			ReviewRequired: true,
		}
	}

	return uc.rules.Resolve(summary)
}
