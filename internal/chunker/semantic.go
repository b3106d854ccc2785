package chunker

import (
	"fmt"
	"strings"

	"intentrouter/internal/domain"
	"intentrouter/internal/embedding"
)

// SemanticChunker merges adjacent sentences while their embeddings stay
// similar. Boundaries only fall between sentences.
type SemanticChunker struct {
	threshold float64
}

func NewSemanticChunker(similarityThreshold float64) *SemanticChunker {
	return &SemanticChunker{threshold: similarityThreshold}
}

// Chunk partitions sentences into contiguous chunks. embeddings[i] must be
// the unit-length embedding of sentences[i].
func (c *SemanticChunker) Chunk(sentences []string, embeddings [][]float64) ([]domain.Chunk, error) {
	if len(sentences) != len(embeddings) {
		return nil, fmt.Errorf("chunker: %d sentences but %d embeddings", len(sentences), len(embeddings))
	}
	if len(sentences) == 0 {
		return nil, nil
	}
	var groups [][]int
	current := []int{0}
	for i := 1; i < len(sentences); i++ {
		if embedding.Dot(embeddings[i-1], embeddings[i]) >= c.threshold {
			current = append(current, i)
			continue
		}
		groups = append(groups, current)
		current = []int{i}
	}
	groups = append(groups, current)

	chunks := make([]domain.Chunk, len(groups))
	for k, idxs := range groups {
		texts := make([]string, len(idxs))
		for j, idx := range idxs {
			texts[j] = sentences[idx]
		}
		chunks[k] = domain.Chunk{
			Sentences: idxs,
			Text:      strings.Join(texts, ". "),
			Position:  position(k, len(groups)),
		}
	}
	return chunks, nil
}

func position(k, n int) float64 {
	if n <= 1 {
		return 0
	}
	return float64(k) / float64(n-1)
}
