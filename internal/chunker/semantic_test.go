package chunker

import (
	"math"
	"testing"
)

// pair returns two unit vectors whose dot product is cos.
func pair(cos float64) ([]float64, []float64) {
	return []float64{1, 0}, []float64{cos, math.Sqrt(1 - cos*cos)}
}

func TestChunkMergesSimilarSentences(t *testing.T) {
	a, b := pair(0.9)
	chunks, err := NewSemanticChunker(0.4).Chunk([]string{"first one", "second one"}, [][]float64{a, b})
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("chunks: want=1 got=%d", len(chunks))
	}
	if len(chunks[0].Sentences) != 2 || chunks[0].Position != 0 {
		t.Fatalf("chunk: got=%+v", chunks[0])
	}
}

func TestChunkSplitsDissimilarSentences(t *testing.T) {
	a, b := pair(0.1)
	chunks, err := NewSemanticChunker(0.4).Chunk([]string{"first one", "second one"}, [][]float64{a, b})
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("chunks: want=2 got=%d", len(chunks))
	}
	if chunks[0].Position != 0 || chunks[1].Position != 1 {
		t.Fatalf("positions: want=0,1 got=%v,%v", chunks[0].Position, chunks[1].Position)
	}
	if chunks[0].Text != "first one" || chunks[1].Text != "second one" {
		t.Fatalf("texts: got=%q,%q", chunks[0].Text, chunks[1].Text)
	}
}

func TestChunkPartition(t *testing.T) {
	// alternate between two orthogonal directions with occasional repeats
	x := []float64{1, 0}
	y := []float64{0, 1}
	embs := [][]float64{x, x, y, y, y, x, y, y}
	sentences := make([]string, len(embs))
	for i := range sentences {
		sentences[i] = "sentence"
	}
	chunks, err := NewSemanticChunker(0.4).Chunk(sentences, embs)
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	next := 0
	prevPos := -1.0
	for k, ch := range chunks {
		if len(ch.Sentences) == 0 {
			t.Fatalf("chunk %d empty", k)
		}
		for _, idx := range ch.Sentences {
			if idx != next {
				t.Fatalf("chunk %d: want index %d got %d", k, next, idx)
			}
			next++
		}
		if ch.Position < prevPos {
			t.Fatalf("positions not monotonic at chunk %d", k)
		}
		prevPos = ch.Position
	}
	if next != len(embs) {
		t.Fatalf("covered %d of %d sentences", next, len(embs))
	}
	if len(chunks) != 4 {
		t.Fatalf("chunks: want=4 got=%d", len(chunks))
	}
	if chunks[len(chunks)-1].Position != 1 {
		t.Fatalf("last position: want=1 got=%v", chunks[len(chunks)-1].Position)
	}
}

func TestChunkLengthMismatch(t *testing.T) {
	if _, err := NewSemanticChunker(0.4).Chunk([]string{"a", "b"}, [][]float64{{1}}); err == nil {
		t.Fatalf("Chunk: expected mismatch error")
	}
}
