package quiz

import (
	"math"
	"strings"
	"unicode"
)

// SplitIntoTwoParts attempts to split a merged two-phrase string back into
// its phrases. Strategies, in order: a repeated leading word ("Tropic of
// Cancer Tropic of Capricorn" splits at the second "Tropic"), a lowercase to
// uppercase transition between adjacent words nearest the midpoint, and
// finally an exact midpoint split for even word counts of four or more.
// Returns ok=false when none apply.
func SplitIntoTwoParts(s string) (string, string, bool) {
	words := strings.Fields(s)
	if len(words) < 2 {
		return "", "", false
	}

	// Repeated leading word.
	first := words[0]
	for j := 1; j < len(words); j++ {
		if words[j] == first {
			return strings.Join(words[:j], " "), strings.Join(words[j:], " "), true
		}
	}

	// Case transition closest to the midpoint of the word sequence.
	mid := float64(len(words)) / 2.0
	best := -1
	bestDist := math.MaxFloat64
	for i := 1; i < len(words); i++ {
		prev := []rune(words[i-1])
		next := []rune(words[i])
		if !unicode.IsLower(prev[len(prev)-1]) || !unicode.IsUpper(next[0]) {
			continue
		}
		if d := math.Abs(float64(i) - mid); d < bestDist {
			bestDist = d
			best = i
		}
	}
	if best > 0 {
		return strings.Join(words[:best], " "), strings.Join(words[best:], " "), true
	}

	// Last resort: even word count splits at the midpoint.
	if len(words) >= 4 && len(words)%2 == 0 {
		h := len(words) / 2
		return strings.Join(words[:h], " "), strings.Join(words[h:], " "), true
	}

	return "", "", false
}
