package screen

import (
	"bytes"
	"image"
	"log/slog"

	"github.com/corona10/goimagehash"
	"github.com/nfnt/resize"

	_ "image/jpeg"
	_ "image/png"
)

// DefaultDiffDistance is the hamming distance between perceptual hashes
// above which two captures count as different.
const DefaultDiffDistance = 5

// Differ detects whether a capture differs meaningfully from the previous
// one. Perceptual hashing tolerates compression noise and cursor blinking
// that byte-level hashing would flag as change.
type Differ struct {
	distance int
	last     *goimagehash.ImageHash
}

// NewDiffer creates a differ; distance <= 0 selects the default.
func NewDiffer(distance int) *Differ {
	if distance <= 0 {
		distance = DefaultDiffDistance
	}
	return &Differ{distance: distance}
}

// Changed reports whether img differs from the last seen capture and
// records it as the new baseline when it does. Undecodable input counts as
// changed so a transient capture glitch never stalls the loop.
func (d *Differ) Changed(img []byte) bool {
	decoded, _, err := image.Decode(bytes.NewReader(img))
	if err != nil {
		slog.Warn("change detection decode failed", "error", err)
		d.last = nil
		return true
	}

	// Downscale before hashing; full captures can be several megapixels.
	thumb := resize.Thumbnail(256, 256, decoded, resize.NearestNeighbor)
	hash, err := goimagehash.DifferenceHash(thumb)
	if err != nil {
		slog.Warn("change detection hash failed", "error", err)
		d.last = nil
		return true
	}

	if d.last != nil {
		dist, err := d.last.Distance(hash)
		if err == nil && dist <= d.distance {
			return false
		}
	}
	d.last = hash
	return true
}

// Reset clears the baseline so the next capture always counts as changed.
func (d *Differ) Reset() {
	d.last = nil
}
