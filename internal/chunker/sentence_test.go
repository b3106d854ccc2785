package chunker

import (
	"reflect"
	"testing"
)

func TestSegmentDropsShortFragments(t *testing.T) {
	s := NewSegmenter(5)
	got := s.Segment("Hi! Please configure the backup server tonight. Ok?? Then build a short quiz about fractions for class...")
	want := []string{
		"Please configure the backup server tonight",
		"Then build a short quiz about fractions for class",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Segment: want=%q got=%q", want, got)
	}
}

func TestSegmentEmptyAndShort(t *testing.T) {
	s := NewSegmenter(5)
	for _, text := range []string{"", "   ", "hi", "hi. there!"} {
		if got := s.Segment(text); len(got) != 0 {
			t.Fatalf("Segment(%q): want none got=%q", text, got)
		}
	}
}

func TestSegmentMinWordsFloor(t *testing.T) {
	s := NewSegmenter(0)
	if s.MinWords != 1 {
		t.Fatalf("MinWords: want=1 got=%d", s.MinWords)
	}
	if got := s.Segment("hi. yes"); len(got) != 2 {
		t.Fatalf("Segment: want 2 got=%q", got)
	}
}
