// Package assist suggests answers for questions the database does not know,
// by sending the captured question to an LLM provider. Suggestions feed the
// unknown-question review workflow; they never drive clicks directly.
package assist

import (
	"context"
	"fmt"
	"strings"

	"github.com/quizzard/quizzard/internal/textmatch"
)

// Provider is one LLM backend able to pick an answer option.
type Provider interface {
	Name() string
	// Answer returns the chosen option text. img may be nil when only the
	// recognized text is available.
	Answer(ctx context.Context, img []byte, question string, options []string) (string, error)
}

// buildPrompt renders the question and its options for a text-capable model.
func buildPrompt(question string, options []string) string {
	var sb strings.Builder
	sb.WriteString("You are answering a multiple-choice quiz question.\n\n")
	sb.WriteString("QUESTION: " + question + "\n\nOPTIONS:\n")
	for i, opt := range options {
		sb.WriteString(fmt.Sprintf("%c. %s\n", 'A'+i, opt))
	}
	sb.WriteString("\nRespond with ONLY the text of the correct option, nothing else.")
	return sb.String()
}

// matchOption maps a model reply back onto one of the offered options. Models
// answer with the letter, the option text, or both; anything else is an error.
func matchOption(reply string, options []string) (string, error) {
	reply = strings.Trim(strings.TrimSpace(reply), `"'.`)
	if reply == "" {
		return "", fmt.Errorf("empty model reply")
	}

	if len(reply) >= 1 {
		upper := strings.ToUpper(reply)
		for i, opt := range options {
			letter := string(rune('A' + i))
			if upper == letter || strings.HasPrefix(upper, letter+".") || strings.HasPrefix(upper, letter+" ") {
				if len(reply) <= 2 || strings.Contains(textmatch.Fold(reply), textmatch.Fold(opt)) {
					return opt, nil
				}
			}
		}
	}

	normReply := textmatch.Fold(reply)
	for _, opt := range options {
		if textmatch.Fold(opt) == normReply {
			return opt, nil
		}
	}

	best := ""
	bestSim := 0.5
	for _, opt := range options {
		if sim := textmatch.Similarity(textmatch.Fold(opt), normReply); sim > bestSim {
			bestSim = sim
			best = opt
		}
	}
	if best == "" {
		return "", fmt.Errorf("model reply %q matches no option", reply)
	}
	return best, nil
}
