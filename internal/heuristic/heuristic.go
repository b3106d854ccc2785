package heuristic

import (
	"math"
	"strings"

	"intentrouter/internal/domain"
	"intentrouter/internal/logger"
	"intentrouter/internal/profile"
)

type Params struct {
	MinBoostScore   float64 `yaml:"min_boost_score"`
	MinBoostDelta   float64 `yaml:"min_boost_delta"`
	MaxBoost        float64 `yaml:"max_boost"`
	Epsilon         float64 `yaml:"epsilon"`
	OverlapMinScore float64 `yaml:"overlap_min_score"`
	OverlapPerHit   float64 `yaml:"overlap_per_hit"`
	OverlapMaxHits  int     `yaml:"overlap_max_hits"`
}

func DefaultParams() Params {
	return Params{
		MinBoostScore:   0.45,
		MinBoostDelta:   0.04,
		MaxBoost:        0.08,
		Epsilon:         1e-6,
		OverlapMinScore: 0.40,
		OverlapPerHit:   0.02,
		OverlapMaxHits:  3,
	}
}

// Heuristic nudges category scores toward the categories a role usually
// asks for, plus a small lexical bonus. It never lets a boosted category
// catch up with the category that led before boosting.
type Heuristic struct {
	params Params
	log    *logger.Logger
}

func New(params Params, log *logger.Logger) *Heuristic {
	if log == nil {
		log = logger.Nop()
	}
	return &Heuristic{params: params, log: log}
}

func (h *Heuristic) Params() Params { return h.params }

// Apply returns adjusted scores. An empty or unknown role leaves scores
// untouched. text may be empty, which disables the lexical bonus.
func (h *Heuristic) Apply(scores domain.Scores, role string, text string, tokens profile.TokenSets) domain.Scores {
	role = strings.TrimSpace(role)
	if role == "" {
		return scores
	}
	r, ok := ParseRole(role)
	if !ok {
		h.log.Warn("unrecognized role, skipping role heuristic", "role", role)
		return scores
	}
	p := h.params
	desired := h.desiredBoosts(scores, r.Coefficients())
	lexical := h.lexicalBoosts(scores, text, tokens)

	top, topScore := scores.Top()
	topAllowed := desired[top]
	topBoosted := topScore + topAllowed
	topFinal := topBoosted + lexical[top]

	out := scores
	out[top] = topFinal
	for i := range scores {
		c := domain.Category(i)
		if c == top {
			continue
		}
		boost := math.Min(desired[c], topAllowed)
		if bound := math.Max(0, topBoosted-scores[c]-p.Epsilon); boost > bound {
			boost = bound
		}
		total := boost + lexical[c]
		if bound := math.Max(0, topFinal-scores[c]-p.Epsilon); total > bound {
			total = bound
		}
		out[c] = scores[c] + total
	}
	return out
}

// desiredBoosts maps a positive coefficient linearly onto
// [MinBoostDelta, MaxBoost] for categories scoring at least MinBoostScore.
func (h *Heuristic) desiredBoosts(scores, coef domain.Scores) domain.Scores {
	p := h.params
	var out domain.Scores
	for c := range scores {
		if coef[c] > 0 && scores[c] >= p.MinBoostScore {
			out[c] = p.MinBoostDelta + (p.MaxBoost-p.MinBoostDelta)*coef[c]
		}
	}
	return out
}

func (h *Heuristic) lexicalBoosts(scores domain.Scores, text string, tokens profile.TokenSets) domain.Scores {
	p := h.params
	var out domain.Scores
	if strings.TrimSpace(text) == "" {
		return out
	}
	words := make(map[string]struct{})
	for _, w := range profile.Tokenize(text) {
		words[w] = struct{}{}
	}
	for c := range scores {
		if scores[c] < p.OverlapMinScore || tokens[c] == nil {
			continue
		}
		hits := 0
		for w := range words {
			if hits >= p.OverlapMaxHits {
				break
			}
			if _, ok := tokens[c][w]; ok {
				hits++
			}
		}
		out[c] = float64(hits) * p.OverlapPerHit
	}
	return out
}
