// Package layout models the named rectangular sub-regions of a capture area
// and their conversion between normalized and screen coordinate spaces.
package layout

import (
	"time"

	"github.com/google/uuid"
)

// MinZoneSize is the smallest allowed normalized width/height for a zone.
const MinZoneSize = 0.05

// ZoneType distinguishes the question region from answer regions.
type ZoneType int

const (
	ZoneQuestion ZoneType = iota
	ZoneAnswer
)

func (z ZoneType) String() string {
	if z == ZoneQuestion {
		return "question"
	}
	return "answer"
}

// Rect is an axis-aligned rectangle. Normalized rects use [0,1] coordinates
// with origin top-left, y-down, matching on-screen drag editing. Screen
// rects are absolute pixels, same orientation.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Point is an absolute screen coordinate, origin top-left, y-down.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Center returns the rect's midpoint.
func (r Rect) Center() Point {
	return Point{X: r.X + r.W/2, Y: r.Y + r.H/2}
}

// Zone is a named sub-region of the capture rectangle in normalized
// coordinates. Labels are "Question" or "A".."D".
type Zone struct {
	ID    uuid.UUID `json:"id"`
	Label string    `json:"label"`
	Type  ZoneType  `json:"type"`
	Rect  Rect      `json:"rect"`
}

// NewZone creates a zone with a fresh ID.
func NewZone(label string, typ ZoneType, rect Rect) Zone {
	return Zone{ID: uuid.New(), Label: label, Type: typ, Rect: rect}
}

// IsValid reports whether the zone's normalized rect fits inside the unit
// square and meets the minimum size.
func (z Zone) IsValid() bool {
	r := z.Rect
	return r.X >= 0 && r.Y >= 0 &&
		r.W >= MinZoneSize && r.H >= MinZoneSize &&
		r.X+r.W <= 1.0 && r.Y+r.H <= 1.0
}

// ScreenRect maps the zone into the capture rectangle's coordinate space.
func (z Zone) ScreenRect(capture Rect) Rect {
	return Rect{
		X: capture.X + z.Rect.X*capture.W,
		Y: capture.Y + z.Rect.Y*capture.H,
		W: z.Rect.W * capture.W,
		H: z.Rect.H * capture.H,
	}
}

// ClickPoint returns the zone center in absolute screen coordinates.
func (z Zone) ClickPoint(capture Rect) Point {
	return Point{
		X: capture.X + (z.Rect.X+z.Rect.W/2)*capture.W,
		Y: capture.Y + (z.Rect.Y+z.Rect.H/2)*capture.H,
	}
}

// FlipFromOCR converts an OCR bounding box (normalized [0,1], origin
// bottom-left, y-up) into a normalized y-down rect. OCR engines report boxes
// in the image convention; zones and screen space are y-down, so the bridge
// must flip: screenY = origin + (1 - boxY - boxH) * height.
func FlipFromOCR(box Rect) Rect {
	return Rect{X: box.X, Y: 1.0 - box.Y - box.H, W: box.W, H: box.H}
}

// ScreenRectFromOCR maps an OCR bounding box into the capture rectangle,
// performing the y-flip.
func ScreenRectFromOCR(box Rect, capture Rect) Rect {
	flipped := FlipFromOCR(box)
	return Rect{
		X: capture.X + flipped.X*capture.W,
		Y: capture.Y + flipped.Y*capture.H,
		W: flipped.W * capture.W,
		H: flipped.H * capture.H,
	}
}

// Layout is a named zone configuration. Exactly one layout is active at a
// time; ownership of storage belongs to the persistence layer.
type Layout struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Question    *Zone     `json:"question,omitempty"`
	Answers     []Zone    `json:"answers"`
	CaptureRect Rect      `json:"capture_rect"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewLayout creates an empty named layout over a capture rectangle.
func NewLayout(name string, capture Rect) *Layout {
	now := time.Now()
	return &Layout{
		ID:          uuid.New(),
		Name:        name,
		CaptureRect: capture,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsValid reports whether the layout is usable for zone-mode resolution:
// a question zone and at least two answer zones. Fewer than two answers
// makes the quiz structurally unsolvable.
func (l *Layout) IsValid() bool {
	return l != nil && l.Question != nil && len(l.Answers) >= 2
}

// AnswerZone returns the answer zone with the given label.
func (l *Layout) AnswerZone(label string) (Zone, bool) {
	for _, z := range l.Answers {
		if z.Label == label {
			return z, true
		}
	}
	return Zone{}, false
}
