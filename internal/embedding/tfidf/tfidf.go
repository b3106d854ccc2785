package tfidf

import (
	"context"
	"errors"
	"maps"
	"math"
	"regexp"
	"slices"
	"strings"
	"sync"
)

// Embedder implements a simple TF-IDF vectorizer.
// It builds a vocabulary from the corpus and computes IDF values. The last
// axis is reserved for text that contains no vocabulary term, so every
// returned vector has unit length.
type Embedder struct {
	mu           sync.RWMutex
	vocabulary   map[string]int
	idf          []float64
	dimension    int
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

// NewEmbedder creates an unprepared TF-IDF embedder.
func NewEmbedder() *Embedder {
	return &Embedder{
		vocabulary:   make(map[string]int),
		tokenPattern: regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}\p{N}]+)*`),
		stopwords:    defaultStopwords(),
	}
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "tfidf" }

// Prepare builds the vocabulary and IDF values from the provided corpus.
func (e *Embedder) Prepare(_ context.Context, corpus []string) error {
	if len(corpus) == 0 {
		return errors.New("empty corpus for TF-IDF prepare")
	}
	df := make(map[string]int)
	for _, text := range corpus {
		seen := make(map[string]struct{})
		for _, tok := range e.tokenize(text) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}
	terms := slices.Sorted(maps.Keys(df))
	if len(terms) == 0 {
		return errors.New("no tokens found in corpus; ensure tokenizer supports your language")
	}
	vocabulary := make(map[string]int, len(terms))
	idf := make([]float64, len(terms))
	n := float64(len(corpus))
	for i, term := range terms {
		vocabulary[term] = i
		idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.vocabulary = vocabulary
	e.idf = idf
	e.dimension = len(terms) + 1
	return nil
}

// Dimension returns the dimensionality of the produced embedding vectors.
func (e *Embedder) Dimension() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dimension
}

// Embed returns the unit-length TF-IDF vector of text. Term frequency is
// sublinear (1 + ln count) so a repeated word does not swamp a short message.
func (e *Embedder) Embed(_ context.Context, text string) ([]float64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.dimension == 0 {
		return nil, errors.New("tfidf embedder not prepared")
	}
	counts := make(map[int]int)
	for _, tok := range e.tokenize(text) {
		if idx, ok := e.vocabulary[tok]; ok {
			counts[idx]++
		}
	}
	vec := make([]float64, e.dimension)
	if len(counts) == 0 {
		vec[e.oovAxis()] = 1
		return vec, nil
	}
	var sum float64
	for idx, n := range counts {
		w := (1 + math.Log(float64(n))) * e.idf[idx]
		vec[idx] = w
		sum += w * w
	}
	norm := math.Sqrt(sum)
	for idx := range counts {
		vec[idx] /= norm
	}
	return vec, nil
}

// oovAxis is the slot used by text without any vocabulary term.
func (e *Embedder) oovAxis() int { return e.dimension - 1 }

func (e *Embedder) tokenize(text string) []string {
	return slices.DeleteFunc(e.tokenPattern.FindAllString(strings.ToLower(text), -1), func(t string) bool {
		_, stop := e.stopwords[t]
		return stop
	})
}

func defaultStopwords() map[string]struct{} {
	m := make(map[string]struct{})
	for _, w := range strings.Fields(stopwords) {
		m[w] = struct{}{}
	}
	return m
}

// Request phrasing ("please", "could you", "I need") carries no intent.
const stopwords = `
a an the and or but if then else for to of in on at by with as is are was were be been being
it its this that these those from up down over under again further than so such into about
between through during before after above below out off own same too very can will just don
should now i me my we our you your please would could do does want need let us some any
`
