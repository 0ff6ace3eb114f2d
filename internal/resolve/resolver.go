// Package resolve maps a matched answer string onto an on-screen click
// location, from per-zone OCR text or from flat OCR text blocks.
package resolve

import (
	"regexp"
	"strings"

	"github.com/quizzard/quizzard/internal/layout"
	"github.com/quizzard/quizzard/internal/ocr"
	"github.com/quizzard/quizzard/internal/question"
	"github.com/quizzard/quizzard/internal/textmatch"
)

// Default thresholds, empirically tuned; configurable, not re-derived.
const (
	DefaultZoneThreshold  = 0.75
	DefaultBlockScore     = 0.8
	DefaultBlockSim       = 0.85
	DefaultFuzzyThreshold = 0.75
	DefaultLengthGuard    = 0.7
)

// Config carries the resolver thresholds.
type Config struct {
	ZoneThreshold  float64 // zone-mode similarity floor
	BlockScore     float64 // flat pass 1 overall acceptance
	BlockSim       float64 // flat pass 1 per-block similarity floor
	FuzzyThreshold float64 // flat pass 3 similarity floor
	LengthGuard    float64 // flat pass 3 minimum block/answer length ratio
}

func (c Config) withDefaults() Config {
	if c.ZoneThreshold <= 0 {
		c.ZoneThreshold = DefaultZoneThreshold
	}
	if c.BlockScore <= 0 {
		c.BlockScore = DefaultBlockScore
	}
	if c.BlockSim <= 0 {
		c.BlockSim = DefaultBlockSim
	}
	if c.FuzzyThreshold <= 0 {
		c.FuzzyThreshold = DefaultFuzzyThreshold
	}
	if c.LengthGuard <= 0 {
		c.LengthGuard = DefaultLengthGuard
	}
	return c
}

// Location is the final resolver output, consumed by the click dispatcher.
type Location struct {
	AnswerText string       `json:"answer_text"`
	ScreenRect layout.Rect  `json:"screen_rect"`
	ClickPoint layout.Point `json:"click_point"`
}

// Resolver holds the matching thresholds.
type Resolver struct {
	cfg Config
}

// New creates a resolver; zero-value config fields take the defaults.
func New(cfg Config) *Resolver {
	return &Resolver{cfg: cfg.withDefaults()}
}

func normalize(s string) string {
	return textmatch.NormalizeForComparison(textmatch.Fold(textmatch.CollapseWhitespace(s)))
}

func isZoneLabel(s string) bool {
	if len(s) != 1 {
		return false
	}
	u := strings.ToUpper(s)
	return u >= "A" && u <= "D"
}

func splitAnswers(answer string) []string {
	return question.QuestionAnswer{Answer: answer}.Answers()
}

// ResolveZones picks the answer zone for a stored answer. Priority: the
// answer is itself a zone label; exact normalized equality with a zone's
// text; highest similarity above the zone threshold. Returns nil when no
// zone clears the threshold; the caller logs a miss and issues no click.
func (r *Resolver) ResolveZones(answer string, zoneTexts map[string]string, l *layout.Layout) *Location {
	if !l.IsValid() {
		return nil
	}

	for _, ans := range splitAnswers(answer) {
		// Datasets sometimes record the answer as the option letter.
		if isZoneLabel(ans) {
			if z, ok := l.AnswerZone(strings.ToUpper(ans)); ok {
				return r.zoneLocation(ans, z, l)
			}
		}
	}

	for _, ans := range splitAnswers(answer) {
		normAns := normalize(ans)
		for _, z := range l.Answers {
			if normalize(zoneTexts[z.Label]) == normAns {
				return r.zoneLocation(ans, z, l)
			}
		}
	}

	var bestZone *layout.Zone
	var bestAns string
	bestSim := r.cfg.ZoneThreshold
	for _, ans := range splitAnswers(answer) {
		normAns := normalize(ans)
		for i := range l.Answers {
			z := l.Answers[i]
			sim := textmatch.Similarity(normalize(zoneTexts[z.Label]), normAns)
			// Strictly-highest wins; first seen keeps ties.
			if sim > bestSim {
				bestSim = sim
				bestZone = &l.Answers[i]
				bestAns = ans
			}
		}
	}
	if bestZone != nil {
		return r.zoneLocation(bestAns, *bestZone, l)
	}
	return nil
}

func (r *Resolver) zoneLocation(answer string, z layout.Zone, l *layout.Layout) *Location {
	return &Location{
		AnswerText: answer,
		ScreenRect: z.ScreenRect(l.CaptureRect),
		ClickPoint: z.ClickPoint(l.CaptureRect),
	}
}

// inlineMarkerRe matches a block that begins with its option letter.
var inlineMarkerRe = regexp.MustCompile(`^[A-D]\s+(.+)$`)

// ResolveBlocks locates the answer within flat OCR text blocks. Three
// passes, each tried only when the previous yields nothing: a scored
// single-block match, a substring position estimate for merged blocks, and
// a length-guarded fuzzy fallback. Returns nil when all passes fail; a
// matched question with no clickable location is reported but not clicked.
func (r *Resolver) ResolveBlocks(answer string, blocks []ocr.TextBlock, capture layout.Rect) *Location {
	answers := splitAnswers(answer)
	if len(answers) == 0 || len(blocks) == 0 {
		return nil
	}

	if loc := r.scoredBlockPass(answers, blocks, capture); loc != nil {
		return loc
	}
	if loc := r.substringPass(answers, blocks, capture); loc != nil {
		return loc
	}
	return r.fuzzyPass(answers, blocks, capture)
}

// scoredBlockPass scores every block against every acceptable answer and
// returns the single best block if it clears the acceptance floor.
func (r *Resolver) scoredBlockPass(answers []string, blocks []ocr.TextBlock, capture layout.Rect) *Location {
	bestScore := 0.0
	bestIdx := -1
	bestAns := ""
	for i, b := range blocks {
		normBlock := normalize(b.Text)
		for _, ans := range answers {
			score := r.blockScore(b.Text, normBlock, normalize(ans))
			if score > bestScore {
				bestScore = score
				bestIdx = i
				bestAns = ans
			}
		}
	}
	if bestIdx < 0 || bestScore <= r.cfg.BlockScore {
		return nil
	}
	return blockLocation(bestAns, blocks[bestIdx].BoundingBox, capture)
}

func (r *Resolver) blockScore(rawBlock, normBlock, normAns string) float64 {
	if normBlock == normAns {
		return 1.0
	}
	score := 0.0
	if sim := textmatch.Similarity(normBlock, normAns); sim > r.cfg.BlockSim {
		score = sim
	}
	// An inline option marker: compare the text after the letter.
	if m := inlineMarkerRe.FindStringSubmatch(strings.TrimSpace(rawBlock)); m != nil {
		rest := normalize(m[1])
		if rest == normAns {
			if 0.99 > score {
				score = 0.99
			}
		} else if sim := textmatch.Similarity(rest, normAns); sim > r.cfg.BlockSim && sim > score {
			score = sim
		}
	}
	return score
}

// substringPass handles OCR merging several options into one block: the
// answer's horizontal position is estimated proportionally to its
// character offset within the block.
func (r *Resolver) substringPass(answers []string, blocks []ocr.TextBlock, capture layout.Rect) *Location {
	for _, b := range blocks {
		normBlock := normalize(b.Text)
		if normBlock == "" {
			continue
		}
		for _, ans := range answers {
			normAns := normalize(ans)
			idx := strings.Index(normBlock, normAns)
			if idx < 0 || normAns == "" {
				continue
			}
			midChar := float64(idx) + float64(len(normAns))/2.0
			relativeX := midChar / float64(len(normBlock))

			flipped := layout.FlipFromOCR(b.BoundingBox)
			return &Location{
				AnswerText: ans,
				ScreenRect: layout.ScreenRectFromOCR(b.BoundingBox, capture),
				ClickPoint: layout.Point{
					X: capture.X + (flipped.X+flipped.W*relativeX)*capture.W,
					Y: capture.Y + (flipped.Y+flipped.H/2)*capture.H,
				},
			}
		}
	}
	return nil
}

// fuzzyPass is the last resort. The length guard keeps short decoy blocks
// ("USA") from matching inside a long multi-part answer.
func (r *Resolver) fuzzyPass(answers []string, blocks []ocr.TextBlock, capture layout.Rect) *Location {
	for _, b := range blocks {
		normBlock := normalize(b.Text)
		for _, ans := range answers {
			normAns := normalize(ans)
			if normAns == "" {
				continue
			}
			if float64(len(normBlock)) < r.cfg.LengthGuard*float64(len(normAns)) {
				continue
			}
			if textmatch.Similarity(normBlock, normAns) > r.cfg.FuzzyThreshold {
				return blockLocation(ans, b.BoundingBox, capture)
			}
		}
	}
	return nil
}

func blockLocation(answer string, box layout.Rect, capture layout.Rect) *Location {
	screenRect := layout.ScreenRectFromOCR(box, capture)
	return &Location{
		AnswerText: answer,
		ScreenRect: screenRect,
		ClickPoint: screenRect.Center(),
	}
}
