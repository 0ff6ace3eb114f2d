package textmatch

import (
	"math"
	"testing"
)

func TestSimilarityIdentical(t *testing.T) {
	for _, s := range []string{"", "a", "kitten", "what is the capital of France?"} {
		if got := Similarity(s, s); got != 1.0 {
			t.Errorf("Similarity(%q, %q) = %f, want 1.0", s, s, got)
		}
	}
}

func TestSimilarityEmpty(t *testing.T) {
	if got := Similarity("", ""); got != 1.0 {
		t.Errorf("both empty = %f, want 1.0", got)
	}
	if got := Similarity("", "x"); got != 0.0 {
		t.Errorf("one empty = %f, want 0.0", got)
	}
	if got := Similarity("x", ""); got != 0.0 {
		t.Errorf("one empty = %f, want 0.0", got)
	}
}

func TestSimilarityKittenSitting(t *testing.T) {
	// 3 edits over 7 characters.
	got := Similarity("kitten", "sitting")
	want := 1.0 - 3.0/7.0
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("Similarity(kitten, sitting) = %f, want %f", got, want)
	}
}

func TestSimilaritySymmetric(t *testing.T) {
	pairs := [][2]string{
		{"nile", "amazon"},
		{"tropic of cancer", "tropic of capricorn"},
		{"usa, ussr", "usa and ussr"},
	}
	for _, p := range pairs {
		if Similarity(p[0], p[1]) != Similarity(p[1], p[0]) {
			t.Errorf("similarity not symmetric for %q / %q", p[0], p[1])
		}
	}
}

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
		{"same", "same", 0},
	}
	for _, tt := range tests {
		if got := LevenshteinDistance(tt.a, tt.b); got != tt.want {
			t.Errorf("LevenshteinDistance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSimilarityBounds(t *testing.T) {
	pairs := [][2]string{
		{"a", "completely different text"},
		{"short", "much longer string with lots of extra characters"},
	}
	for _, p := range pairs {
		got := Similarity(p[0], p[1])
		if got < 0.0 || got > 1.0 {
			t.Errorf("Similarity(%q, %q) = %f out of [0,1]", p[0], p[1], got)
		}
	}
}
