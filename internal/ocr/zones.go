package ocr

import (
	"context"
	"log/slog"
	"sync"

	"github.com/quizzard/quizzard/internal/layout"
	"github.com/quizzard/quizzard/internal/textmatch"
)

// RegionCapturer captures an absolute screen rectangle as image bytes.
type RegionCapturer interface {
	CaptureRegion(ctx context.Context, rect layout.Rect) ([]byte, error)
}

// ZoneResult is the completed per-zone recognition for one capture cycle.
// Answers maps zone label ("A".."D") to its detected text with the letter
// prefix already stripped.
type ZoneResult struct {
	Question string
	Answers  map[string]string
}

// RecognizeZones captures and recognizes every zone of a layout
// concurrently and returns only once all zones have completed; the matching
// stage never sees partial zone results. A zone whose capture or OCR fails
// contributes empty text and a log line, not an error: resolution degrades
// to the remaining zones.
func RecognizeZones(ctx context.Context, cap RegionCapturer, engine Engine, l *layout.Layout) *ZoneResult {
	res := &ZoneResult{Answers: make(map[string]string, len(l.Answers))}

	type zoneJob struct {
		label    string
		rect     layout.Rect
		question bool
	}
	jobs := make([]zoneJob, 0, len(l.Answers)+1)
	if l.Question != nil {
		jobs = append(jobs, zoneJob{label: l.Question.Label, rect: l.Question.ScreenRect(l.CaptureRect), question: true})
	}
	for _, z := range l.Answers {
		jobs = append(jobs, zoneJob{label: z.Label, rect: z.ScreenRect(l.CaptureRect)})
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, job := range jobs {
		wg.Add(1)
		go func(job zoneJob) {
			defer wg.Done()
			text := recognizeZone(ctx, cap, engine, job.rect)
			if !job.question {
				text = textmatch.StripLabelPrefix(text, job.label)
			}
			mu.Lock()
			defer mu.Unlock()
			if job.question {
				res.Question = text
			} else {
				res.Answers[job.label] = text
			}
		}(job)
	}
	wg.Wait()

	return res
}

func recognizeZone(ctx context.Context, cap RegionCapturer, engine Engine, rect layout.Rect) string {
	img, err := cap.CaptureRegion(ctx, rect)
	if err != nil {
		slog.Warn("zone capture failed", "error", err)
		return ""
	}
	result, err := engine.Recognize(ctx, img)
	if err != nil {
		slog.Warn("zone ocr failed", "error", err)
		return ""
	}
	return textmatch.CollapseWhitespace(result.FullText)
}
