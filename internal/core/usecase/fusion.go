package usecase

import (
	"sort"

	"github.com/mkravets/docqa/internal/core/domain"
)

const defaultRRFConstant = 60

type fusedAccumulator struct {
	candidate   domain.RetrievalCandidate
	score       float64
	rankerCount int
	minRank     int
	distance    float64
	hasDistance bool
}

// fuseCandidatesRRF merges the keyword and vector rankings with
// reciprocal rank fusion: each appearance contributes 1/(k+rank).
// Ties order by presence in both rankings, then lower best rank, then
// source id, so the output is deterministic for identical inputs.
func fuseCandidatesRRF(keyword, vector []domain.RetrievalCandidate, k, topK int) []domain.FusedResult {
	if k <= 0 {
		k = defaultRRFConstant
	}
	acc := make(map[string]*fusedAccumulator)

	merge := func(list []domain.RetrievalCandidate, isVector bool) {
		for _, c := range list {
			if c.SourceID == "" || c.Rank <= 0 {
				continue
			}
			a, ok := acc[c.SourceID]
			if !ok {
				a = &fusedAccumulator{candidate: c, minRank: c.Rank}
				acc[c.SourceID] = a
			}
			a.score += 1.0 / float64(k+c.Rank)
			a.rankerCount++
			if c.Rank < a.minRank {
				a.minRank = c.Rank
			}
			if isVector {
				if !a.hasDistance || c.Score < a.distance {
					a.distance = c.Score
					a.hasDistance = true
				}
			}
		}
	}
	merge(keyword, false)
	merge(vector, true)

	out := make([]domain.FusedResult, 0, len(acc))
	for _, a := range acc {
		out = append(out, domain.FusedResult{
			SourceID:    a.candidate.SourceID,
			DocumentID:  a.candidate.DocumentID,
			Filename:    a.candidate.Filename,
			Text:        a.candidate.Text,
			FusedScore:  a.score,
			RankerCount: a.rankerCount,
			Distance:    a.distance,
			HasDistance: a.hasDistance,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FusedScore != out[j].FusedScore {
			return out[i].FusedScore > out[j].FusedScore
		}
		if out[i].RankerCount != out[j].RankerCount {
			return out[i].RankerCount > out[j].RankerCount
		}
		ri, rj := acc[out[i].SourceID].minRank, acc[out[j].SourceID].minRank
		if ri != rj {
			return ri < rj
		}
		return out[i].SourceID < out[j].SourceID
	})

	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	for n := range out {
		out[n].Rank = n + 1
	}
	return out
}
