package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	_ "image/jpeg"
	_ "image/png"

	"github.com/quizzard/quizzard/internal/layout"
)

// Tesseract runs the tesseract binary in TSV mode and converts its
// top-left pixel boxes into the normalized bottom-left convention.
type Tesseract struct {
	binary   string
	language string
	psm      string
}

// NewTesseract creates an engine. Empty arguments select the defaults
// (binary "tesseract", language "eng").
func NewTesseract(binary, language string) *Tesseract {
	if binary == "" {
		binary = "tesseract"
	}
	if language == "" {
		language = "eng"
	}
	// PSM 6: a single uniform block of text, which is what a quiz overlay
	// region looks like.
	return &Tesseract{binary: binary, language: language, psm: "6"}
}

// Recognize runs OCR on image bytes and returns line-level text blocks.
func (t *Tesseract) Recognize(ctx context.Context, img []byte) (*Result, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(img))
	if err != nil {
		return nil, fmt.Errorf("decode image dimensions: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("degenerate image %dx%d", cfg.Width, cfg.Height)
	}

	cmd := exec.CommandContext(ctx, t.binary, "stdin", "stdout", "-l", t.language, "--psm", t.psm, "tsv")
	cmd.Stdin = bytes.NewReader(img)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("tesseract: %w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}

	result := ParseTSV(stdout.String(), cfg.Width, cfg.Height)
	slog.Debug("ocr complete", "blocks", len(result.Blocks), "chars", len(result.FullText))
	return result, nil
}

// tsvWord is one level-5 row of tesseract TSV output.
type tsvWord struct {
	lineKey                  string
	left, top, width, height int
	conf                     float64
	text                     string
}

// ParseTSV merges word rows into line blocks with normalized bottom-left
// bounding boxes. Exported for fixture-driven tests.
func ParseTSV(tsv string, imgWidth, imgHeight int) *Result {
	var words []tsvWord
	for i, line := range strings.Split(tsv, "\n") {
		if i == 0 || strings.TrimSpace(line) == "" {
			continue // header
		}
		cols := strings.Split(line, "\t")
		if len(cols) < 12 {
			continue
		}
		level, err := strconv.Atoi(cols[0])
		if err != nil || level != 5 {
			continue
		}
		text := strings.TrimSpace(cols[11])
		if text == "" {
			continue
		}
		conf, _ := strconv.ParseFloat(cols[10], 64)
		if conf < 0 {
			continue
		}
		left, _ := strconv.Atoi(cols[6])
		top, _ := strconv.Atoi(cols[7])
		width, _ := strconv.Atoi(cols[8])
		height, _ := strconv.Atoi(cols[9])
		words = append(words, tsvWord{
			lineKey: strings.Join(cols[2:5], "/"),
			left:    left, top: top, width: width, height: height,
			conf: conf / 100.0,
			text: text,
		})
	}

	result := &Result{}
	var lines []string
	i := 0
	for i < len(words) {
		j := i
		minL, minT := words[i].left, words[i].top
		maxR, maxB := words[i].left+words[i].width, words[i].top+words[i].height
		confSum := 0.0
		var parts []string
		for j < len(words) && words[j].lineKey == words[i].lineKey {
			w := words[j]
			minL = min(minL, w.left)
			minT = min(minT, w.top)
			maxR = max(maxR, w.left+w.width)
			maxB = max(maxB, w.top+w.height)
			confSum += w.conf
			parts = append(parts, w.text)
			j++
		}
		text := strings.Join(parts, " ")
		lines = append(lines, text)

		fw, fh := float64(imgWidth), float64(imgHeight)
		result.Blocks = append(result.Blocks, TextBlock{
			Text: text,
			BoundingBox: layout.Rect{
				X: float64(minL) / fw,
				Y: 1.0 - float64(maxB)/fh, // flip to bottom-left origin
				W: float64(maxR-minL) / fw,
				H: float64(maxB-minT) / fh,
			},
			Confidence: confSum / float64(j-i),
		})
		i = j
	}

	result.FullText = strings.Join(lines, "\n")
	return result
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
