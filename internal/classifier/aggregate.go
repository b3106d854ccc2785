package classifier

import (
	"slices"

	"intentrouter/internal/domain"
)

// rating is one category's statistics across the chunks folded so far.
type rating struct {
	maxConfidence     float64
	secondaryCoverage float64
	wins              []int
	totalScore        float64
	positionWeighted  float64
}

// ratings is an accumulator value: fold returns a new one and never
// modifies its receiver.
type ratings [domain.NumCategories]rating

func (r ratings) fold(index int, cc domain.ChunkClassification, p Params) ratings {
	winner, best := cc.Scores.Top()
	hasWinner := best >= p.ChunkSignificanceThreshold
	weight := 1 + cc.Position*p.PositionBoost

	next := r
	for i, score := range cc.Scores {
		c := domain.Category(i)
		st := next[c]
		st.maxConfidence = max(st.maxConfidence, score)
		switch {
		case hasWinner && c == winner:
			st.wins = append(slices.Clip(st.wins), index)
		case score >= p.ChunkSignificanceThreshold && score >= p.CloseToWinnerThreshold*best:
			st.secondaryCoverage += p.SecondaryCoverageWeight
		}
		st.totalScore += score
		st.positionWeighted += score * weight
		next[c] = st
	}
	return next
}

// finalScores blends each category's statistics into one score.
func (r ratings) finalScores(chunks int, p Params) domain.Scores {
	var out domain.Scores
	if chunks == 0 {
		return out
	}
	n := float64(chunks)
	for c, st := range r {
		coverage := (float64(len(st.wins)) + st.secondaryCoverage) / n
		avgPositionWeighted := st.positionWeighted / n
		out[c] = st.maxConfidence*p.CoefMaxConfidence +
			avgPositionWeighted*p.CoefPositionWeighted +
			coverage*p.CoefCoverage
	}
	return out
}

func aggregate(classified []domain.ChunkClassification, p Params) (domain.Scores, []domain.Decision) {
	var acc ratings
	for i, cc := range classified {
		acc = acc.fold(i, cc, p)
	}
	final := acc.finalScores(len(classified), p)
	return final, decide(final, p.DecisionThreshold)
}

// decide keeps every category at or above threshold, in category order.
// When none qualifies it returns the fallback category alone, scored
// 1 - max(final) and clamped to [0, 1].
func decide(final domain.Scores, threshold float64) []domain.Decision {
	var out []domain.Decision
	for i, score := range final {
		if score >= threshold {
			out = append(out, domain.Decision{Category: domain.Category(i), Score: score})
		}
	}
	if len(out) > 0 {
		return out
	}
	fallback := min(max(1-final.Max(), 0), 1)
	return []domain.Decision{{Category: domain.FallbackCategory, Score: fallback}}
}
