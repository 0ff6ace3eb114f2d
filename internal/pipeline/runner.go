package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/quizzard/quizzard/internal/input"
	"github.com/quizzard/quizzard/internal/layout"
	"github.com/quizzard/quizzard/internal/ocr"
	"github.com/quizzard/quizzard/internal/question"
	"github.com/quizzard/quizzard/internal/quiz"
	"github.com/quizzard/quizzard/internal/resolve"
	"github.com/quizzard/quizzard/internal/syncx"
	"github.com/quizzard/quizzard/internal/trace"
)

// ErrBusy is returned when a solve cycle is already running; the trigger is
// dropped, not queued.
var ErrBusy = errors.New("solve cycle already in flight")

// Recorder persists unknowns found during cycles. Nil disables persistence.
type Recorder interface {
	InsertUnknown(u question.UnknownQuestion) error
}

// Config carries the runner's operational settings.
type Config struct {
	CaptureRect layout.Rect // flat-mode fallback region
	DryRun      bool
}

// Runner executes one full solve cycle at a time.
type Runner struct {
	capturer ocr.RegionCapturer
	engine   ocr.Engine
	db       *question.Database
	resolver *resolve.Resolver
	clicker  input.Clicker
	gate     *Gate
	history  *History
	recorder Recorder
	cfg      Config

	active *syncx.RWGuard[*layout.Layout]

	inFlight atomic.Bool
	attempts atomic.Int64
	matches  atomic.Int64
	clicks   atomic.Int64
	unknowns atomic.Int64
}

// NewRunner wires a runner. recorder may be nil.
func NewRunner(capturer ocr.RegionCapturer, engine ocr.Engine, db *question.Database,
	resolver *resolve.Resolver, clicker input.Clicker, gate *Gate, history *History,
	recorder Recorder, cfg Config) *Runner {
	return &Runner{
		capturer: capturer,
		engine:   engine,
		db:       db,
		resolver: resolver,
		clicker:  clicker,
		gate:     gate,
		history:  history,
		recorder: recorder,
		cfg:      cfg,
		active:   syncx.NewGuard[*layout.Layout](nil),
	}
}

// SetLayout swaps the active layout; nil selects flat mode.
func (r *Runner) SetLayout(l *layout.Layout) {
	r.active.Set(l)
}

// Layout returns the active layout, or nil in flat mode.
func (r *Runner) Layout() *layout.Layout {
	return r.active.Get()
}

// Gate returns the click gate.
func (r *Runner) Gate() *Gate {
	return r.gate
}

// History returns the cycle history ring.
func (r *Runner) History() *History {
	return r.history
}

// Stats is a counter snapshot.
type Stats struct {
	Attempts int64 `json:"attempts"`
	Matches  int64 `json:"matches"`
	Clicks   int64 `json:"clicks"`
	Unknowns int64 `json:"unknowns"`
}

// Stats returns current counters.
func (r *Runner) Stats() Stats {
	return Stats{
		Attempts: r.attempts.Load(),
		Matches:  r.matches.Load(),
		Clicks:   r.clicks.Load(),
		Unknowns: r.unknowns.Load(),
	}
}

// Solve runs one cycle: capture, recognize, parse, match, resolve, click.
// Concurrent triggers get ErrBusy while a cycle is in flight. Every other
// ending, including misses, produces a history record.
func (r *Runner) Solve(ctx context.Context) (*CycleRecord, error) {
	if !r.inFlight.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer r.inFlight.Store(false)

	ctx, span := trace.StartSpan(ctx, "solve_cycle")
	defer span.End()
	log := trace.Logger(ctx)

	r.attempts.Add(1)
	start := time.Now()
	rec := r.solve(ctx)
	rec.Timestamp = start
	rec.Duration = time.Since(start)

	span.SetAttr("outcome", string(rec.Outcome))
	log.Info("solve cycle finished",
		"outcome", rec.Outcome, "question", rec.Question,
		"answer", rec.Answer, "duration", rec.Duration)

	r.history.Add(*rec)
	return rec, nil
}

func (r *Runner) solve(ctx context.Context) *CycleRecord {
	l := r.active.Get()
	if l.IsValid() {
		return r.solveZones(ctx, l)
	}
	return r.solveFlat(ctx)
}

func (r *Runner) solveZones(ctx context.Context, l *layout.Layout) *CycleRecord {
	zones := ocr.RecognizeZones(ctx, r.capturer, r.engine, l)
	if zones.Question == "" {
		return &CycleRecord{Outcome: OutcomeNoText, Detail: "question zone produced no text"}
	}

	options := make([]string, 0, len(l.Answers))
	for _, z := range l.Answers {
		options = append(options, zones.Answers[z.Label])
	}

	match := r.db.FindBestMatch(zones.Question)
	if match == nil {
		return r.recordUnknown(zones.Question, options)
	}
	r.matches.Add(1)

	loc := r.resolver.ResolveZones(match.Question.Answer, zones.Answers, l)
	return r.finish(ctx, match, loc)
}

func (r *Runner) solveFlat(ctx context.Context) *CycleRecord {
	img, err := r.capturer.CaptureRegion(ctx, r.cfg.CaptureRect)
	if err != nil {
		return &CycleRecord{Outcome: OutcomeNoText, Detail: fmt.Sprintf("capture: %v", err)}
	}
	result, err := r.engine.Recognize(ctx, img)
	if err != nil {
		return &CycleRecord{Outcome: OutcomeNoText, Detail: fmt.Sprintf("ocr: %v", err)}
	}
	if result.FullText == "" {
		return &CycleRecord{Outcome: OutcomeNoText, Detail: "ocr produced no text"}
	}

	parsed := quiz.Parse(result.FullText)
	if parsed.Question == "" {
		detail := "no question found"
		if parsed.ParseErr != "" {
			detail = parsed.ParseErr
		}
		return &CycleRecord{Outcome: OutcomeParseFailed, Detail: detail}
	}

	options := make([]string, 0, len(parsed.Options))
	for _, o := range parsed.Options {
		options = append(options, o.Text)
	}

	match := r.db.FindBestMatch(parsed.Question)
	if match == nil {
		rec := r.recordUnknown(parsed.Question, options)
		if !parsed.IsValid() && parsed.ParseErr != "" {
			rec.Detail = parsed.ParseErr
		}
		return rec
	}
	r.matches.Add(1)

	loc := r.resolver.ResolveBlocks(match.Question.Answer, result.Blocks, r.cfg.CaptureRect)
	return r.finish(ctx, match, loc)
}

func (r *Runner) recordUnknown(text string, options []string) *CycleRecord {
	rec := &CycleRecord{Outcome: OutcomeUnknownRecorded, Question: text}
	u, added := r.db.AddUnknown(text, options)
	if !added {
		rec.Detail = "already queued or too similar to a known question"
		return rec
	}
	r.unknowns.Add(1)
	if r.recorder != nil {
		if err := r.recorder.InsertUnknown(*u); err != nil {
			rec.Detail = fmt.Sprintf("persist unknown: %v", err)
		}
	}
	return rec
}

func (r *Runner) finish(ctx context.Context, match *question.MatchResult, loc *resolve.Location) *CycleRecord {
	rec := &CycleRecord{
		Question:   match.MatchedText,
		Answer:     match.Question.PrimaryAnswer(),
		Confidence: match.Confidence,
		Location:   loc,
	}
	if loc == nil {
		rec.Outcome = OutcomeMatchedNoClick
		rec.Detail = "answer not located on screen"
		return rec
	}
	if r.cfg.DryRun {
		rec.Outcome = OutcomeSuppressed
		rec.Detail = "dry run"
		return rec
	}
	if !r.gate.AllowClick() {
		rec.Outcome = OutcomeSuppressed
		rec.Detail = "click cooldown active"
		return rec
	}

	if err := r.clicker.Click(ctx, loc.ClickPoint); err != nil {
		rec.Outcome = OutcomeSuppressed
		rec.Detail = fmt.Sprintf("click: %v", err)
		return rec
	}
	r.gate.RecordClick()
	r.clicks.Add(1)
	rec.Outcome = OutcomeClicked
	return rec
}
