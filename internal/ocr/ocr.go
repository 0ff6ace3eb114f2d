// Package ocr defines the text-recognition boundary: result types shared
// with the pipeline and an engine backed by an external recognizer.
package ocr

import (
	"context"

	"github.com/quizzard/quizzard/internal/layout"
)

// TextBlock is one recognized text region. The bounding box is normalized
// to [0,1] with origin bottom-left, y-up; consumers converting to screen
// space must flip (see layout.FlipFromOCR).
type TextBlock struct {
	Text        string      `json:"text"`
	BoundingBox layout.Rect `json:"bounding_box"`
	Confidence  float64     `json:"confidence"`
}

// Result is the outcome of recognizing one image.
type Result struct {
	FullText string      `json:"full_text"`
	Blocks   []TextBlock `json:"blocks"`
}

// Engine recognizes text in an image. Implementations own any internal
// concurrency; callers receive a completed result.
type Engine interface {
	Recognize(ctx context.Context, image []byte) (*Result, error)
}
