package domain

import (
	"context"
	"fmt"
	"strings"
)

// Category identifies the service pipeline a message is routed to.
// The set is closed; tables indexed by Category have NumCategories entries.
type Category int

const (
	SystemConfiguration Category = iota
	DataAnalysis
	QuizCreation
	OuterAPI

	NumCategories = 4
)

// FallbackCategory is returned when nothing else clears the decision threshold.
const FallbackCategory = OuterAPI

var categoryNames = [NumCategories]string{
	SystemConfiguration: "system_configuration",
	DataAnalysis:        "data_analysis",
	QuizCreation:        "quiz_creation",
	OuterAPI:            "outer_api",
}

// Categories lists every category in iteration order.
func Categories() []Category {
	out := make([]Category, NumCategories)
	for i := range out {
		out[i] = Category(i)
	}
	return out
}

func (c Category) String() string {
	if !c.Valid() {
		return fmt.Sprintf("category(%d)", int(c))
	}
	return categoryNames[c]
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool { return c >= 0 && int(c) < NumCategories }

// ParseCategory resolves a category identifier such as "quiz_creation".
func ParseCategory(s string) (Category, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range categoryNames {
		if name == s {
			return Category(i), true
		}
	}
	return 0, false
}

func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid category %d", int(c))
	}
	return []byte(categoryNames[c]), nil
}

func (c *Category) UnmarshalText(b []byte) error {
	v, ok := ParseCategory(string(b))
	if !ok {
		return fmt.Errorf("unknown category %q", string(b))
	}
	*c = v
	return nil
}

// Scores holds one value per category.
type Scores [NumCategories]float64

// Top returns the first category holding the maximum score.
func (s Scores) Top() (Category, float64) {
	best := Category(0)
	for i := 1; i < NumCategories; i++ {
		if s[i] > s[best] {
			best = Category(i)
		}
	}
	return best, s[best]
}

// Max returns the highest score.
func (s Scores) Max() float64 {
	_, v := s.Top()
	return v
}

// Decision is one routing outcome.
type Decision struct {
	Category Category `json:"category"`
	Score    float64  `json:"score"`
}

// Chunk is a contiguous run of sentences scored as one unit.
// Position is 0 for the first chunk and 1 for the last.
type Chunk struct {
	Sentences []int
	Text      string
	Position  float64
}

// ChunkClassification is a chunk's boosted per-category scores.
type ChunkClassification struct {
	Scores   Scores
	Position float64
}

// Embedder converts free text into a numeric vector representation.
// Implementations may require a preparation phase over the corpus.
type Embedder interface {
	Name() string
	Prepare(ctx context.Context, corpus []string) error
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
}

// CentroidStore keeps one centroid per category and scores vectors against them.
type CentroidStore interface {
	Init(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, categories []Category, vectors [][]float64) error
	Score(ctx context.Context, vector []float64) (Scores, error)
	Clear(ctx context.Context) error
}
