// Package quiz recovers a structured question and lettered options from a
// single undifferentiated OCR blob of the quiz overlay.
package quiz

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/quizzard/quizzard/internal/textmatch"
)

// Letters are the option markers in display order.
var Letters = []string{"A", "B", "C", "D"}

// Option is one recovered lettered answer option.
type Option struct {
	Letter string `json:"letter"`
	Text   string `json:"text"`
}

// Parsed is the result of parsing one OCR blob. Recomputed per capture.
type Parsed struct {
	Question string   `json:"question"`
	Options  []Option `json:"options"`
	RawText  string   `json:"raw_text"`
	ParseErr string   `json:"parse_error,omitempty"`
}

// IsValid reports whether exactly four options A-D were recovered.
func (p Parsed) IsValid() bool {
	return p.ParseErr == "" && len(p.Options) == 4
}

// OptionTexts returns the option texts in letter order.
func (p Parsed) OptionTexts() []string {
	out := make([]string, 0, len(p.Options))
	for _, o := range p.Options {
		out = append(out, o.Text)
	}
	return out
}

// marker is one located option letter in the cleaned text.
type marker struct {
	letter     string
	matchStart int // offset of the letter itself
	textStart  int // offset where the option's text begins
}

// Marker patterns per letter, tried in order. The letter must be bounded by
// start-of-space or a non-letter on the left and whitespace on the right;
// OCR spacing quirks mean a single pattern misses real markers.
var markerPatterns = buildMarkerPatterns()

type letterPatterns struct {
	letter   string
	patterns []*regexp.Regexp
	// letterAt gives the letter's offset within a match for each pattern.
	letterAt []int
}

func buildMarkerPatterns() []letterPatterns {
	out := make([]letterPatterns, 0, len(Letters))
	for _, l := range Letters {
		out = append(out, letterPatterns{
			letter: l,
			patterns: []*regexp.Regexp{
				regexp.MustCompile(`^` + l + `[ \t]`),
				regexp.MustCompile(`[^A-Za-z]` + l + `[ \t]`),
				regexp.MustCompile(`[^A-Za-z]` + l + `\s`),
			},
			letterAt: []int{0, 1, 1},
		})
	}
	return out
}

// vote-count artifacts trail option texts as bare digit runs
var trailingDigitsRe = regexp.MustCompile(`(?:\s+\d+)+$`)

func stripTrailingDigits(s string) string {
	return trailingDigitsRe.ReplaceAllString(s, "")
}

// Parse cleans the OCR blob and recovers a question plus up to four lettered
// options, applying merged-cell recovery when the marker set is incomplete.
func Parse(raw string) Parsed {
	p := Parsed{RawText: raw}

	s := textmatch.StripQuestionNumberPrefix(raw)
	s = textmatch.StripTelemetryNoise(s)
	s = textmatch.CollapseWhitespace(s)
	if s == "" {
		p.ParseErr = "no text after cleanup"
		return p
	}

	// Everything up to the last '?' is the provisional question; the rest is
	// the options search space. Without a '?' the whole text is searched and
	// the question defaults to the full text.
	question := s
	searchFrom := 0
	if q := strings.LastIndex(s, "?"); q >= 0 {
		question = s[:q+1]
		searchFrom = q + 1
	}

	markers := findMarkers(s, searchFrom)

	var opts []Option
	if len(markers) > 0 {
		question = strings.TrimSpace(s[:markers[0].matchStart])
		for i, m := range markers {
			end := len(s)
			if i+1 < len(markers) {
				end = markers[i+1].matchStart
			}
			text := stripTrailingDigits(strings.TrimSpace(s[m.textStart:end]))
			opts = append(opts, Option{Letter: m.letter, Text: text})
		}
	}

	question, opts = recoverOptions(question, opts)

	sort.Slice(opts, func(i, j int) bool { return opts[i].Letter < opts[j].Letter })
	p.Question = strings.TrimSpace(question)
	p.Options = opts

	if missing := missingLetters(opts); len(missing) > 0 {
		p.ParseErr = fmt.Sprintf("could not locate options: %s", strings.Join(missing, ", "))
	}
	return p
}

// findMarkers locates each letter's first marker occurrence at or after
// the given offset. A letter already found is not re-searched.
func findMarkers(s string, from int) []marker {
	space := s[from:]
	var found []marker
	for _, lp := range markerPatterns {
		for pi, re := range lp.patterns {
			loc := re.FindStringIndex(space)
			if loc == nil {
				continue
			}
			letterPos := from + loc[0] + lp.letterAt[pi]
			textStart := letterPos + 1
			for textStart < len(s) && (s[textStart] == ' ' || s[textStart] == '\t') {
				textStart++
			}
			found = append(found, marker{letter: lp.letter, matchStart: letterPos, textStart: textStart})
			break
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].matchStart < found[j].matchStart })
	return found
}

// recoverOptions applies the merged-cell fallbacks for the marker sets the
// overlay's 2x2 grid is known to produce. Each fallback applies only while
// its exact pattern holds.
func recoverOptions(question string, opts []Option) (string, []Option) {
	if len(opts) == 4 {
		return question, opts
	}

	byLetter := make(map[string]string, len(opts))
	for _, o := range opts {
		byLetter[o.Letter] = o.Text
	}
	has := func(letters ...string) bool {
		if len(byLetter) != len(letters) {
			return false
		}
		for _, l := range letters {
			if _, ok := byLetter[l]; !ok {
				return false
			}
		}
		return true
	}

	switch {
	case has("A", "C"):
		// OCR merged each grid row into one cell: A carries B's text, C
		// carries D's. Apply only if both texts split cleanly.
		a1, a2, okA := SplitIntoTwoParts(byLetter["A"])
		c1, c2, okC := SplitIntoTwoParts(byLetter["C"])
		if okA && okC {
			return question, []Option{
				{Letter: "A", Text: a1}, {Letter: "B", Text: a2},
				{Letter: "C", Text: c1}, {Letter: "D", Text: c2},
			}
		}

	case has("B", "D"):
		// A's text was swallowed into the question tail and B carries a
		// B+C merge.
		q := strings.LastIndex(question, "?")
		if q < 0 {
			break
		}
		aText := strings.TrimSpace(question[q+1:])
		b1, b2, okB := SplitIntoTwoParts(byLetter["B"])
		if aText != "" && okB {
			return strings.TrimSpace(question[:q+1]), []Option{
				{Letter: "A", Text: stripTrailingDigits(aText)},
				{Letter: "B", Text: b1},
				{Letter: "C", Text: b2},
				{Letter: "D", Text: byLetter["D"]},
			}
		}

	case has("B", "C", "D"):
		// A's text is the tail of the question after its '?'.
		q := strings.LastIndex(question, "?")
		if q < 0 {
			break
		}
		aText := strings.TrimSpace(question[q+1:])
		if aText != "" {
			return strings.TrimSpace(question[:q+1]), []Option{
				{Letter: "A", Text: stripTrailingDigits(aText)},
				{Letter: "B", Text: byLetter["B"]},
				{Letter: "C", Text: byLetter["C"]},
				{Letter: "D", Text: byLetter["D"]},
			}
		}

	case has("A", "B", "D"):
		// B carries a B+C merge.
		b1, b2, okB := SplitIntoTwoParts(byLetter["B"])
		if okB {
			return question, []Option{
				{Letter: "A", Text: byLetter["A"]},
				{Letter: "B", Text: b1},
				{Letter: "C", Text: b2},
				{Letter: "D", Text: byLetter["D"]},
			}
		}
	}

	return question, opts
}

func missingLetters(opts []Option) []string {
	present := make(map[string]bool, len(opts))
	for _, o := range opts {
		present[o.Letter] = true
	}
	var missing []string
	for _, l := range Letters {
		if !present[l] {
			missing = append(missing, l)
		}
	}
	return missing
}
