package usecase

import "github.com/mkravets/docqa/internal/core/domain"

const defaultRelevanceThreshold = 0.7

// RelevanceGate decides whether fused results are good enough to ground
// an answer. Distances are lower-is-better; a top distance at or above
// the threshold means the corpus has nothing close enough.
type RelevanceGate struct {
	Threshold float64
}

func NewRelevanceGate(threshold float64) RelevanceGate {
	if threshold <= 0 {
		threshold = defaultRelevanceThreshold
	}
	return RelevanceGate{Threshold: threshold}
}

// Evaluate routes the result set. indexEmpty distinguishes "nothing
// indexed yet" from "indexed but nothing matched".
func (g RelevanceGate) Evaluate(results []domain.FusedResult, indexEmpty bool) domain.RelevanceDecision {
	if indexEmpty {
		return domain.RelevanceDecision{Status: domain.RelevanceNoDocuments}
	}
	if len(results) == 0 {
		return domain.RelevanceDecision{Status: domain.RelevanceLow}
	}
	top := results[0]
	if top.HasDistance && top.Distance >= g.Threshold {
		return domain.RelevanceDecision{Status: domain.RelevanceLow, TopDistance: top.Distance, HasDistance: true}
	}
	return domain.RelevanceDecision{Status: domain.RelevanceUsable, TopDistance: top.Distance, HasDistance: top.HasDistance}
}
