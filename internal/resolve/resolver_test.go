package resolve

import (
	"math"
	"testing"

	"github.com/quizzard/quizzard/internal/layout"
	"github.com/quizzard/quizzard/internal/ocr"
)

func testLayout() *layout.Layout {
	capture := layout.Rect{X: 100, Y: 100, W: 800, H: 600}
	q := layout.NewZone("Question", layout.ZoneQuestion, layout.Rect{X: 0, Y: 0, W: 1, H: 0.3})
	l := layout.NewLayout("test", capture)
	l.Question = &q
	l.Answers = []layout.Zone{
		layout.NewZone("A", layout.ZoneAnswer, layout.Rect{X: 0, Y: 0.4, W: 0.5, H: 0.3}),
		layout.NewZone("B", layout.ZoneAnswer, layout.Rect{X: 0.5, Y: 0.4, W: 0.5, H: 0.3}),
		layout.NewZone("C", layout.ZoneAnswer, layout.Rect{X: 0, Y: 0.7, W: 0.5, H: 0.3}),
		layout.NewZone("D", layout.ZoneAnswer, layout.Rect{X: 0.5, Y: 0.7, W: 0.5, H: 0.3}),
	}
	return l
}

func TestZoneAnswerByLetter(t *testing.T) {
	r := New(Config{})
	l := testLayout()
	zoneTexts := map[string]string{"A": "Nile", "B": "Amazon", "C": "Yangtze", "D": "Mississippi"}

	// The stored answer is the zone label itself; zone text is irrelevant.
	loc := r.ResolveZones("B", zoneTexts, l)
	if loc == nil {
		t.Fatal("expected direct zone hit for letter answer")
	}
	b, _ := l.AnswerZone("B")
	want := b.ClickPoint(l.CaptureRect)
	if loc.ClickPoint != want {
		t.Errorf("click point = %+v, want %+v", loc.ClickPoint, want)
	}
}

func TestZoneExactMatch(t *testing.T) {
	r := New(Config{})
	l := testLayout()
	zoneTexts := map[string]string{"A": "Nile", "B": "Amazon", "C": "Yangtze", "D": "Mississippi"}

	loc := r.ResolveZones("Yangtze", zoneTexts, l)
	if loc == nil {
		t.Fatal("expected exact zone match")
	}
	c, _ := l.AnswerZone("C")
	if loc.ClickPoint != c.ClickPoint(l.CaptureRect) {
		t.Errorf("click point = %+v", loc.ClickPoint)
	}
}

func TestZoneFuzzyMatch(t *testing.T) {
	r := New(Config{})
	l := testLayout()
	// OCR mangled one character of the winning zone.
	zoneTexts := map[string]string{"A": "Nile", "B": "Amazon", "C": "Yangtze", "D": "Mississlppi"}

	loc := r.ResolveZones("Mississippi", zoneTexts, l)
	if loc == nil {
		t.Fatal("expected fuzzy zone match")
	}
	d, _ := l.AnswerZone("D")
	if loc.ClickPoint != d.ClickPoint(l.CaptureRect) {
		t.Errorf("click point = %+v", loc.ClickPoint)
	}
}

func TestZoneNoMatchBelowThreshold(t *testing.T) {
	r := New(Config{})
	l := testLayout()
	zoneTexts := map[string]string{"A": "garbled", "B": "nonsense", "C": "noise", "D": "static"}

	if loc := r.ResolveZones("Mississippi", zoneTexts, l); loc != nil {
		t.Errorf("expected no zone to clear the threshold, got %+v", loc)
	}
}

func TestZoneInvalidLayout(t *testing.T) {
	r := New(Config{})
	l := layout.NewLayout("empty", layout.Rect{X: 0, Y: 0, W: 800, H: 600})
	if loc := r.ResolveZones("Nile", map[string]string{}, l); loc != nil {
		t.Error("invalid layout must not resolve")
	}
}

func TestZoneMultiAnswerSegments(t *testing.T) {
	r := New(Config{})
	l := testLayout()
	zoneTexts := map[string]string{"A": "USA and USSR", "B": "France", "C": "China", "D": "Japan"}

	// Second segment matches zone A after conjunction normalization.
	loc := r.ResolveZones("USA, USSR|USA and USSR", zoneTexts, l)
	if loc == nil {
		t.Fatal("expected segment match")
	}
	a, _ := l.AnswerZone("A")
	if loc.ClickPoint != a.ClickPoint(l.CaptureRect) {
		t.Errorf("click point = %+v", loc.ClickPoint)
	}
}

func blocksFixture() []ocr.TextBlock {
	// Boxes in bottom-left normalized coordinates: "A Nile" top-left,
	// "B Amazon" top-right, "C Yangtze" bottom-left, "D Mississippi"
	// bottom-right of the capture area.
	return []ocr.TextBlock{
		{Text: "Which river is the longest?", BoundingBox: layout.Rect{X: 0.1, Y: 0.8, W: 0.8, H: 0.1}},
		{Text: "A Nile", BoundingBox: layout.Rect{X: 0.05, Y: 0.5, W: 0.4, H: 0.1}},
		{Text: "B Amazon", BoundingBox: layout.Rect{X: 0.55, Y: 0.5, W: 0.4, H: 0.1}},
		{Text: "C Yangtze", BoundingBox: layout.Rect{X: 0.05, Y: 0.2, W: 0.4, H: 0.1}},
		{Text: "D Mississippi", BoundingBox: layout.Rect{X: 0.55, Y: 0.2, W: 0.4, H: 0.1}},
	}
}

func TestFlatInlineMarkerMatch(t *testing.T) {
	r := New(Config{})
	capture := layout.Rect{X: 0, Y: 0, W: 1000, H: 500}

	loc := r.ResolveBlocks("Nile", blocksFixture(), capture)
	if loc == nil {
		t.Fatal("expected pass 1 match on inline marker block")
	}
	if loc.AnswerText != "Nile" {
		t.Errorf("answer text = %q", loc.AnswerText)
	}
	// Block "A Nile" at bottom-left box {0.05, 0.5, 0.4, 0.1}: flipped
	// y-down Y = 1 - 0.5 - 0.1 = 0.4; center = (0.25, 0.45) normalized.
	wantX, wantY := 250.0, 225.0
	if math.Abs(loc.ClickPoint.X-wantX) > 1e-6 || math.Abs(loc.ClickPoint.Y-wantY) > 1e-6 {
		t.Errorf("click point = %+v, want (%f, %f)", loc.ClickPoint, wantX, wantY)
	}
}

func TestFlatExactBlockMatch(t *testing.T) {
	r := New(Config{})
	capture := layout.Rect{X: 0, Y: 0, W: 1000, H: 500}
	blocks := []ocr.TextBlock{
		{Text: "Nile", BoundingBox: layout.Rect{X: 0.05, Y: 0.5, W: 0.4, H: 0.1}},
		{Text: "Amazon", BoundingBox: layout.Rect{X: 0.55, Y: 0.5, W: 0.4, H: 0.1}},
	}

	loc := r.ResolveBlocks("Amazon", blocks, capture)
	if loc == nil {
		t.Fatal("expected exact block match")
	}
	if math.Abs(loc.ClickPoint.X-750.0) > 1e-6 {
		t.Errorf("click X = %f, want 750", loc.ClickPoint.X)
	}
}

func TestFlatSubstringPositionEstimate(t *testing.T) {
	r := New(Config{})
	capture := layout.Rect{X: 0, Y: 0, W: 1000, H: 500}
	// OCR merged two options into one wide block.
	blocks := []ocr.TextBlock{
		{Text: "Question text without the answer?", BoundingBox: layout.Rect{X: 0.1, Y: 0.8, W: 0.8, H: 0.1}},
		{Text: "Nile Amazon", BoundingBox: layout.Rect{X: 0.0, Y: 0.5, W: 1.0, H: 0.1}},
	}

	loc := r.ResolveBlocks("Amazon", blocks, capture)
	if loc == nil {
		t.Fatal("expected substring position estimate")
	}
	// "nile amazon": "amazon" at offset 5, mid char 5 + 3 = 8 of 11 chars;
	// relativeX = 8/11 over a full-width block.
	wantX := 1000.0 * 8.0 / 11.0
	if math.Abs(loc.ClickPoint.X-wantX) > 1e-6 {
		t.Errorf("click X = %f, want %f", loc.ClickPoint.X, wantX)
	}
}

func TestFlatLengthGuard(t *testing.T) {
	r := New(Config{})
	capture := layout.Rect{X: 0, Y: 0, W: 1000, H: 500}

	// A lone "USA" block must not catch a three-part answer in pass 3.
	decoy := []ocr.TextBlock{
		{Text: "USA", BoundingBox: layout.Rect{X: 0.05, Y: 0.5, W: 0.2, H: 0.1}},
	}
	if loc := r.ResolveBlocks("USA and USSR", decoy, capture); loc != nil {
		t.Errorf("length guard should reject the decoy, got %+v", loc)
	}

	// A block containing the normalized full phrase resolves via the
	// substring pass.
	full := []ocr.TextBlock{
		{Text: "1 USA, USSR 2", BoundingBox: layout.Rect{X: 0.05, Y: 0.5, W: 0.6, H: 0.1}},
	}
	loc := r.ResolveBlocks("USA and USSR", full, capture)
	if loc == nil {
		t.Fatal("full phrase should resolve")
	}
}

func TestFlatFuzzyFallback(t *testing.T) {
	r := New(Config{})
	capture := layout.Rect{X: 0, Y: 0, W: 1000, H: 500}
	// Two OCR errors in eleven characters: similarity ~0.818 is below the
	// single-block floor but above the fallback threshold.
	blocks := []ocr.TextBlock{
		{Text: "Mlssisslppi", BoundingBox: layout.Rect{X: 0.55, Y: 0.2, W: 0.4, H: 0.1}},
	}

	loc := r.ResolveBlocks("Mississippi", blocks, capture)
	if loc == nil {
		t.Fatal("expected fuzzy fallback match")
	}
}

func TestFlatNoBlocks(t *testing.T) {
	r := New(Config{})
	if loc := r.ResolveBlocks("Nile", nil, layout.Rect{X: 0, Y: 0, W: 100, H: 100}); loc != nil {
		t.Error("no blocks should yield no location")
	}
}
