package classifier

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var ErrInvalidParams = errors.New("classifier: invalid parameters")

// Params are the classifier's tunables. The zero value is not usable; start
// from DefaultParams.
type Params struct {
	MinSentenceLength          int     `yaml:"min_sentence_length"`
	ChunkSimilarityThreshold   float64 `yaml:"chunk_similarity_threshold"`
	ChunkSignificanceThreshold float64 `yaml:"chunk_significance_threshold"`
	SecondaryCoverageWeight    float64 `yaml:"secondary_coverage_weight"`
	CloseToWinnerThreshold     float64 `yaml:"close_to_winner_threshold"`
	PositionBoost              float64 `yaml:"position_boost"`
	DecisionThreshold          float64 `yaml:"decision_threshold"`
	CoefMaxConfidence          float64 `yaml:"coef_max_confidence"`
	CoefPositionWeighted       float64 `yaml:"coef_position_weighted"`
	CoefCoverage               float64 `yaml:"coef_coverage"`
	// NoAgencyRole is routed straight to the fallback category. Empty disables the short-circuit.
	NoAgencyRole string `yaml:"no_agency_role"`
}

func DefaultParams() Params {
	return Params{
		MinSentenceLength:          5,
		ChunkSimilarityThreshold:   0.4,
		ChunkSignificanceThreshold: 0.45,
		SecondaryCoverageWeight:    0.4,
		CloseToWinnerThreshold:     0.92,
		PositionBoost:              0.5,
		DecisionThreshold:          0.5,
		CoefMaxConfidence:          0.5,
		CoefPositionWeighted:       0.2,
		CoefCoverage:               0.3,
		NoAgencyRole:               "student",
	}
}

// Validate rejects NaN and infinite values, negative weights and similarity
// thresholds outside [-1, 1]. The decision threshold may exceed 1, which
// forces the fallback path.
func (p Params) Validate() error {
	if p.MinSentenceLength < 1 {
		return fmt.Errorf("%w: min_sentence_length must be at least 1, got %d", ErrInvalidParams, p.MinSentenceLength)
	}
	fields := []struct {
		name     string
		v        float64
		min, max float64
	}{
		{"chunk_similarity_threshold", p.ChunkSimilarityThreshold, -1, 1},
		{"chunk_significance_threshold", p.ChunkSignificanceThreshold, -1, 1},
		{"secondary_coverage_weight", p.SecondaryCoverageWeight, 0, 1},
		{"close_to_winner_threshold", p.CloseToWinnerThreshold, 0, 1},
		{"position_boost", p.PositionBoost, 0, math.MaxFloat64},
		{"decision_threshold", p.DecisionThreshold, 0, math.MaxFloat64},
		{"coef_max_confidence", p.CoefMaxConfidence, 0, math.MaxFloat64},
		{"coef_position_weighted", p.CoefPositionWeighted, 0, math.MaxFloat64},
		{"coef_coverage", p.CoefCoverage, 0, math.MaxFloat64},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s is not finite", ErrInvalidParams, f.name)
		}
		if f.v < f.min || f.v > f.max {
			return fmt.Errorf("%w: %s=%v out of range", ErrInvalidParams, f.name, f.v)
		}
	}
	return nil
}

func (p Params) isNoAgency(role string) bool {
	return p.NoAgencyRole != "" && strings.EqualFold(strings.TrimSpace(role), p.NoAgencyRole)
}
