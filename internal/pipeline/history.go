package pipeline

import (
	"sync"
	"time"

	"github.com/quizzard/quizzard/internal/resolve"
)

// Outcome classifies how a solve cycle ended.
type Outcome string

const (
	OutcomeClicked         Outcome = "clicked"
	OutcomeMatchedNoClick  Outcome = "matched_no_click" // matched but no on-screen location
	OutcomeSuppressed      Outcome = "suppressed"       // location found, click withheld
	OutcomeUnknownRecorded Outcome = "unknown_recorded"
	OutcomeParseFailed     Outcome = "parse_failed"
	OutcomeNoText          Outcome = "no_text"
)

// CycleRecord is the result of one solve cycle.
type CycleRecord struct {
	Timestamp  time.Time         `json:"timestamp"`
	Duration   time.Duration     `json:"duration"`
	Outcome    Outcome           `json:"outcome"`
	Question   string            `json:"question,omitempty"`
	Answer     string            `json:"answer,omitempty"`
	Confidence float64           `json:"confidence,omitempty"`
	Location   *resolve.Location `json:"location,omitempty"`
	Detail     string            `json:"detail,omitempty"`
}

// History keeps a bounded ring of cycle records and fans them out to one
// event consumer (the control server's broadcaster).
type History struct {
	mu       sync.RWMutex
	records  []CycleRecord
	maxSize  int
	eventsCh chan CycleRecord
}

// NewHistory creates a history ring.
func NewHistory(maxRecords, eventBuffer int) *History {
	return &History{
		records:  make([]CycleRecord, 0, maxRecords),
		maxSize:  maxRecords,
		eventsCh: make(chan CycleRecord, eventBuffer),
	}
}

// Add stores a record, evicting the oldest past capacity.
func (h *History) Add(r CycleRecord) {
	h.mu.Lock()
	h.records = append(h.records, r)
	if len(h.records) > h.maxSize {
		h.records = h.records[len(h.records)-h.maxSize:]
	}
	h.mu.Unlock()

	// Emit without blocking the solve path.
	select {
	case h.eventsCh <- r:
	default:
	}
}

// Recent returns up to n records, newest first.
func (h *History) Recent(n int) []CycleRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if n <= 0 || n > len(h.records) {
		n = len(h.records)
	}
	out := make([]CycleRecord, n)
	for i := 0; i < n; i++ {
		out[i] = h.records[len(h.records)-1-i]
	}
	return out
}

// Events returns the cycle event channel.
func (h *History) Events() <-chan CycleRecord {
	return h.eventsCh
}
