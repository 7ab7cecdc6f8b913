//go:build !opencv

package cascade

import (
	"encoding/binary"
	"fmt"
	"image"
	"os"

	pigo "github.com/esimov/pigo/core"

	"github.com/kozaktomas/face-detection/internal/facematch"
)

const (
	// pigoShiftFactor is the sliding window step relative to the window size.
	pigoShiftFactor = 0.1
	// pigoMinWindow keeps tiny minimum sizes from scanning every pixel.
	pigoMinWindow = 8
	// pigoHeaderSize covers the 8 skipped bytes, tree depth and tree count.
	pigoHeaderSize = 16
	pigoMaxDepth   = 16

	facefinderURL = "https://github.com/esimov/pigo/raw/master/cascade/facefinder"
)

// Pigo is a pure-Go pixel-intensity-comparison cascade.
type Pigo struct {
	cls        *pigo.Pigo
	minQuality float32
}

// Load reads a pigo cascade from path. The stock face cascade is "facefinder"
// from https://github.com/esimov/pigo/tree/master/cascade.
func Load(path string) (Classifier, error) {
	if path == "" {
		return nil, ErrNoCascade
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cascade file (the facefinder cascade is at %s): %w", facefinderURL, err)
	}
	return NewPigo(data, 0)
}

// NewPigo unpacks a pigo cascade. Windows with a score below minQuality are
// ignored before grouping.
func NewPigo(data []byte, minQuality float32) (*Pigo, error) {
	if err := checkPigoSize(data); err != nil {
		return nil, err
	}
	cls, err := pigo.NewPigo().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack cascade: %w", err)
	}
	return &Pigo{cls: cls, minQuality: minQuality}, nil
}

// checkPigoSize verifies data holds every tree its header announces. Unpack
// indexes the buffer without bounds checks.
func checkPigoSize(data []byte) error {
	if len(data) < pigoHeaderSize {
		return fmt.Errorf("cascade too short: %d bytes", len(data))
	}
	depth := binary.LittleEndian.Uint32(data[8:])
	trees := binary.LittleEndian.Uint32(data[12:])
	if depth == 0 || depth > pigoMaxDepth {
		return fmt.Errorf("cascade tree depth %d out of range", depth)
	}
	leaves := uint64(1) << depth
	perTree := (4*leaves - 4) + 4*leaves + 4
	if want := pigoHeaderSize + uint64(trees)*perTree; uint64(len(data)) < want {
		return fmt.Errorf("cascade truncated: %d trees need %d bytes, have %d", trees, want, len(data))
	}
	return nil
}

func (p *Pigo) Name() string { return "pigo" }

func (p *Pigo) Close() error { return nil }

// DetectMultiScale scans window sizes from pass.MinSize upward, growing by
// pass.ScaleFactor, then groups the raw hits with pass.MinNeighbors.
func (p *Pigo) DetectMultiScale(gray *image.Gray, pass facematch.Pass) []facematch.BoundingBox {
	b := gray.Bounds()
	rows, cols := b.Dy(), b.Dx()
	pixels := packPixels(gray)
	maxSize := min(rows, cols)

	var raw []facematch.BoundingBox
	for size := max(pass.MinSize, pigoMinWindow); size <= maxSize; size = nextScale(size, pass.ScaleFactor) {
		// One scale per call; the scale loop lives here so it always advances.
		dets := p.cls.RunCascade(pigo.CascadeParams{
			MinSize:     size,
			MaxSize:     size,
			ShiftFactor: pigoShiftFactor,
			ScaleFactor: 2,
			ImageParams: pigo.ImageParams{
				Pixels: pixels,
				Rows:   rows,
				Cols:   cols,
				Dim:    cols,
			},
		}, 0.0)
		for _, d := range dets {
			if d.Q <= p.minQuality {
				continue
			}
			raw = append(raw, facematch.BoundingBox{
				X: d.Col - d.Scale/2,
				Y: d.Row - d.Scale/2,
				W: d.Scale,
				H: d.Scale,
			})
		}
	}
	return GroupRectangles(raw, pass.MinNeighbors, GroupEps)
}

// packPixels returns the gray pixels as a contiguous row-major slice.
func packPixels(gray *image.Gray) []uint8 {
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	if gray.Stride == w {
		return gray.Pix[:w*h]
	}
	out := make([]uint8, w*h)
	for y := range h {
		copy(out[y*w:(y+1)*w], gray.Pix[y*gray.Stride:y*gray.Stride+w])
	}
	return out
}
