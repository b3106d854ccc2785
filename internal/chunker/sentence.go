package chunker

import (
	"regexp"
	"strings"
)

var sentenceBoundary = regexp.MustCompile(`[.!?]+`)

// Segmenter splits text into sentences and drops fragments shorter than
// MinWords whitespace-delimited words.
type Segmenter struct {
	MinWords int
}

func NewSegmenter(minWords int) *Segmenter {
	if minWords < 1 {
		minWords = 1
	}
	return &Segmenter{MinWords: minWords}
}

// Segment returns the qualifying sentences of text in order, with the
// terminating punctuation removed.
func (s *Segmenter) Segment(text string) []string {
	parts := sentenceBoundary.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if len(strings.Fields(p)) < s.MinWords {
			continue
		}
		out = append(out, p)
	}
	return out
}
