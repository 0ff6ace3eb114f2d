package textmatch

import (
	"regexp"
	"strings"
)

var (
	questionNumberRe = regexp.MustCompile(`(?i)^q\d+\s*`)
	telemetryRe      = regexp.MustCompile(`(?i)\d+\s*chose this`)
	whitespaceRe     = regexp.MustCompile(`[\s\t\n\r]+`)
	doubleSpaceRe    = regexp.MustCompile(`  +`)
)

// StripQuestionNumberPrefix removes a leading "Q<digits>" token plus
// following whitespace. The overlay renders question numbers that carry no
// semantic content.
func StripQuestionNumberPrefix(s string) string {
	return questionNumberRe.ReplaceAllString(s, "")
}

// StripTelemetryNoise removes "<digits> chose this" vote-count artifacts
// picked up from the game UI.
func StripTelemetryNoise(s string) string {
	return telemetryRe.ReplaceAllString(s, "")
}

// CollapseWhitespace turns any whitespace run into a single space and trims.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// NormalizeForComparison maps " and " / " & " to ", " so that answers joining
// two proper nouns compare equal regardless of how the game rendered the
// conjunction, then collapses double spaces.
func NormalizeForComparison(s string) string {
	s = strings.ReplaceAll(s, " and ", ", ")
	s = strings.ReplaceAll(s, " & ", ", ")
	return doubleSpaceRe.ReplaceAllString(s, " ")
}

// StripLabelPrefix removes a leading option label ("A".."D") followed by
// whitespace, case-insensitively. OCR of an answer zone often captures the
// letter marker together with the answer text.
func StripLabelPrefix(text, label string) string {
	if label == "" {
		return text
	}
	if len(text) <= len(label) {
		return text
	}
	if !strings.EqualFold(text[:len(label)], label) {
		return text
	}
	rest := text[len(label):]
	trimmed := strings.TrimLeft(rest, " \t\n\r")
	if trimmed == rest {
		// No whitespace after the label; the letter is part of the word.
		return text
	}
	return trimmed
}

// Fold lowercases and trims, the canonical form for map keys and scoring.
func Fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
