package store

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/quizzard/quizzard/internal/question"
)

// LoadQuestionFile reads a question set from a JSON array of
// {"text": ..., "answer": ...} objects. Entries with an empty text or
// answer are dropped.
func LoadQuestionFile(path string) ([]question.QuestionAnswer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read question file: %w", err)
	}
	var raw []question.QuestionAnswer
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse question file %s: %w", path, err)
	}
	out := make([]question.QuestionAnswer, 0, len(raw))
	for _, q := range raw {
		if q.Text == "" || q.Answer == "" {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

// ImportQuestionFile merges a JSON question file into the user overlay and
// returns the number of imported entries.
func (s *Store) ImportQuestionFile(path string) (int, error) {
	qs, err := LoadQuestionFile(path)
	if err != nil {
		return 0, err
	}
	for _, q := range qs {
		if err := s.UpsertUserQuestion(q); err != nil {
			return 0, err
		}
	}
	return len(qs), nil
}

// ExportUserQuestions writes the user overlay to a JSON file compatible
// with LoadQuestionFile.
func (s *Store) ExportUserQuestions(path string) error {
	qs, err := s.ListUserQuestions()
	if err != nil {
		return err
	}
	if qs == nil {
		qs = []question.QuestionAnswer{}
	}
	data, err := json.MarshalIndent(qs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write question file: %w", err)
	}
	return nil
}
