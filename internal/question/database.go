// Package question holds the two-tier question database: an immutable
// built-in set plus a user-editable overlay, and the unknown-question queue.
package question

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quizzard/quizzard/internal/textmatch"
)

// AnswerSeparator joins multiple acceptable answers in one stored string.
// The first segment is the primary/display answer; all segments match.
const AnswerSeparator = "|"

// Default matching thresholds. Empirically tuned against the overlay's OCR
// output; configurable, not re-derived.
const (
	DefaultFuzzyThreshold  = 0.65
	DefaultUnknownDedupSim = 0.8
	MinQuestionLength      = 10
)

// QuestionAnswer is one known question. Identity is the lowercase-trimmed
// text; immutable once created.
type QuestionAnswer struct {
	Text   string `json:"text"`
	Answer string `json:"answer"`
}

// Answers splits the stored answer string into its acceptable segments.
func (q QuestionAnswer) Answers() []string {
	parts := strings.Split(q.Answer, AnswerSeparator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// PrimaryAnswer returns the display answer.
func (q QuestionAnswer) PrimaryAnswer() string {
	if a := q.Answers(); len(a) > 0 {
		return a[0]
	}
	return ""
}

// UnknownQuestion is an OCR-derived question that failed to match, queued
// for manual or assisted resolution.
type UnknownQuestion struct {
	ID              uuid.UUID `json:"id"`
	QuestionText    string    `json:"question_text"`
	DetectedOptions []string  `json:"detected_options"`
	Timestamp       time.Time `json:"timestamp"`
	SelectedAnswer  string    `json:"selected_answer,omitempty"`
}

// MatchResult is the outcome of a database lookup.
type MatchResult struct {
	Question    QuestionAnswer `json:"question"`
	Confidence  float64        `json:"confidence"`
	MatchedText string         `json:"matched_text"`
}

// Config carries the tunable thresholds.
type Config struct {
	FuzzyThreshold  float64
	UnknownDedupSim float64
}

func (c Config) withDefaults() Config {
	if c.FuzzyThreshold <= 0 {
		c.FuzzyThreshold = DefaultFuzzyThreshold
	}
	if c.UnknownDedupSim <= 0 {
		c.UnknownDedupSim = DefaultUnknownDedupSim
	}
	return c
}

// Database merges the built-in set with the user overlay at lookup time.
// The built-in map is fixed for the process lifetime; only the overlay and
// the unknown queue mutate. Safe for concurrent use.
type Database struct {
	cfg Config

	mu       sync.RWMutex
	builtin  map[string]string // normalized question -> answer
	user     map[string]string
	unknowns []UnknownQuestion
}

// New creates a database over the given built-in question set.
func New(builtin []QuestionAnswer, cfg Config) *Database {
	b := make(map[string]string, len(builtin))
	for _, q := range builtin {
		key := textmatch.Fold(q.Text)
		if key == "" {
			continue
		}
		if _, exists := b[key]; exists {
			continue
		}
		b[key] = q.Answer
	}
	return &Database{
		cfg:     cfg.withDefaults(),
		builtin: b,
		user:    make(map[string]string),
	}
}

// LoadUserQuestions replaces the user overlay, skipping entries that would
// shadow a built-in question.
func (d *Database) LoadUserQuestions(qs []QuestionAnswer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.user = make(map[string]string, len(qs))
	for _, q := range qs {
		key := textmatch.Fold(q.Text)
		if key == "" {
			continue
		}
		if _, exists := d.builtin[key]; exists {
			continue
		}
		d.user[key] = q.Answer
	}
}

// LoadUnknowns replaces the unknown queue (startup restore).
func (d *Database) LoadUnknowns(us []UnknownQuestion) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.unknowns = append([]UnknownQuestion(nil), us...)
}

func cleanQuestionText(text string) string {
	return textmatch.CollapseWhitespace(textmatch.StripQuestionNumberPrefix(text))
}

// FindBestMatch resolves OCR question text against the merged sets.
// Passes: exact lookup (confidence 1.0), substring containment (0.95),
// fuzzy nearest-match at or above the configured threshold. Text at or
// below ten characters after cleanup is rejected outright: too short to be
// a real question, and OCR noise would otherwise false-positive.
func (d *Database) FindBestMatch(text string) *MatchResult {
	cleaned := cleanQuestionText(text)
	if len(cleaned) <= MinQuestionLength {
		return nil
	}
	key := textmatch.Fold(cleaned)

	d.mu.RLock()
	defer d.mu.RUnlock()

	// Exact, built-in first.
	if answer, ok := d.builtin[key]; ok {
		return &MatchResult{Question: QuestionAnswer{Text: key, Answer: answer}, Confidence: 1.0, MatchedText: key}
	}
	if answer, ok := d.user[key]; ok {
		return &MatchResult{Question: QuestionAnswer{Text: key, Answer: answer}, Confidence: 1.0, MatchedText: key}
	}

	// Containment tolerates extra captured text around a known question.
	// O(n) over the sets, reached only when the exact lookup misses.
	for _, set := range []map[string]string{d.builtin, d.user} {
		for known, answer := range set {
			if strings.Contains(key, known) || strings.Contains(known, key) {
				return &MatchResult{Question: QuestionAnswer{Text: known, Answer: answer}, Confidence: 0.95, MatchedText: known}
			}
		}
	}

	// Fuzzy fallback. Comparison normalization keeps "X and Y" scoring
	// against "X, Y". First encountered wins ties.
	normKey := textmatch.NormalizeForComparison(key)
	var best *MatchResult
	for _, set := range []map[string]string{d.builtin, d.user} {
		for known, answer := range set {
			sim := textmatch.Similarity(normKey, textmatch.NormalizeForComparison(known))
			if best == nil || sim > best.Confidence {
				best = &MatchResult{Question: QuestionAnswer{Text: known, Answer: answer}, Confidence: sim, MatchedText: known}
			}
		}
	}
	if best != nil && best.Confidence >= d.cfg.FuzzyThreshold {
		return best
	}
	return nil
}

// AddQuestion inserts into the user overlay. Returns false without
// mutation if the normalized text already exists in either tier; duplicate
// keys must not silently overwrite curated answers.
func (d *Database) AddQuestion(q QuestionAnswer) bool {
	key := textmatch.Fold(cleanQuestionText(q.Text))
	if key == "" {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.builtin[key]; exists {
		return false
	}
	if _, exists := d.user[key]; exists {
		return false
	}
	d.user[key] = q.Answer
	return true
}

// UpdateUserQuestion changes the answer of an existing overlay entry. The
// built-in tier can never be mutated at runtime.
func (d *Database) UpdateUserQuestion(text, answer string) bool {
	key := textmatch.Fold(cleanQuestionText(text))
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.user[key]; !exists {
		return false
	}
	d.user[key] = answer
	return true
}

// DeleteUserQuestion removes an overlay entry.
func (d *Database) DeleteUserQuestion(text string) bool {
	key := textmatch.Fold(cleanQuestionText(text))
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.user[key]; !exists {
		return false
	}
	delete(d.user, key)
	return true
}

// UserQuestions returns a snapshot of the overlay.
func (d *Database) UserQuestions() []QuestionAnswer {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]QuestionAnswer, 0, len(d.user))
	for text, answer := range d.user {
		out = append(out, QuestionAnswer{Text: text, Answer: answer})
	}
	return out
}

// AddUnknown queues unmatched question text. Rejected when the text
// normalizes to a known question or is a near-duplicate of an already
// queued unknown; OCR noise must not flood the queue with variants of the
// same miss.
func (d *Database) AddUnknown(text string, options []string) (*UnknownQuestion, bool) {
	cleaned := cleanQuestionText(text)
	if cleaned == "" {
		return nil, false
	}
	key := textmatch.Fold(cleaned)

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.builtin[key]; exists {
		return nil, false
	}
	if _, exists := d.user[key]; exists {
		return nil, false
	}
	for _, u := range d.unknowns {
		if textmatch.Similarity(key, textmatch.Fold(u.QuestionText)) > d.cfg.UnknownDedupSim {
			return nil, false
		}
	}

	u := UnknownQuestion{
		ID:              uuid.New(),
		QuestionText:    cleaned,
		DetectedOptions: append([]string(nil), options...),
		Timestamp:       time.Now(),
	}
	d.unknowns = append(d.unknowns, u)
	return &u, true
}

// Unknowns returns a snapshot of the pending queue.
func (d *Database) Unknowns() []UnknownQuestion {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]UnknownQuestion(nil), d.unknowns...)
}

// ResolveUnknown promotes a queued unknown to a user question with the
// given answer, then removes it from the queue.
func (d *Database) ResolveUnknown(id uuid.UUID, answer string) bool {
	return d.resolve(id, "", answer)
}

// ResolveUnknownWithCleanText promotes using user-edited question text in
// place of the raw OCR text.
func (d *Database) ResolveUnknownWithCleanText(id uuid.UUID, cleanText, answer string) bool {
	return d.resolve(id, cleanText, answer)
}

// resolve adds before removing: if the add is rejected as a duplicate the
// entry is still dequeued, since a duplicate means it is already
// answerable. Removal never happens for an id that was not found.
func (d *Database) resolve(id uuid.UUID, cleanText, answer string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	idx := -1
	for i, u := range d.unknowns {
		if u.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}

	text := d.unknowns[idx].QuestionText
	if cleanText != "" {
		text = cleanText
	}
	key := textmatch.Fold(cleanQuestionText(text))
	if key != "" {
		_, inBuiltin := d.builtin[key]
		_, inUser := d.user[key]
		if !inBuiltin && !inUser {
			d.user[key] = answer
		}
	}

	d.unknowns = append(d.unknowns[:idx], d.unknowns[idx+1:]...)
	return true
}

// DeleteUnknown drops a queued unknown without promotion.
func (d *Database) DeleteUnknown(id uuid.UUID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, u := range d.unknowns {
		if u.ID == id {
			d.unknowns = append(d.unknowns[:i], d.unknowns[i+1:]...)
			return true
		}
	}
	return false
}

// Counts returns the built-in, user, and unknown entry counts.
func (d *Database) Counts() (builtin, user, unknowns int) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.builtin), len(d.user), len(d.unknowns)
}
