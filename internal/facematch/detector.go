package facematch

import (
	"fmt"
	"image"
)

// Pass is one parameter set of the detection cascade.
type Pass struct {
	ScaleFactor  float64 `yaml:"scale_factor" json:"scale_factor"`
	MinNeighbors int     `yaml:"min_neighbors" json:"min_neighbors"`
	MinSize      int     `yaml:"min_size" json:"min_size"`
}

func (p Pass) String() string {
	return fmt.Sprintf("scale=%.2f neighbors=%d min=%dx%d", p.ScaleFactor, p.MinNeighbors, p.MinSize, p.MinSize)
}

// DefaultCascade returns the detection passes in evaluation order:
// strict, lenient, large-face, very lenient.
func DefaultCascade() []Pass {
	return []Pass{
		{ScaleFactor: 1.1, MinNeighbors: 5, MinSize: 30},
		{ScaleFactor: 1.05, MinNeighbors: 4, MinSize: 20},
		{ScaleFactor: 1.2, MinNeighbors: 6, MinSize: 40},
		{ScaleFactor: 1.3, MinNeighbors: 3, MinSize: 15},
	}
}

// Classifier runs a single multi-scale detection pass over an already
// equalized grayscale image. Implementations must be deterministic.
type Classifier interface {
	DetectMultiScale(gray *image.Gray, p Pass) []BoundingBox
}

// Detector runs a cascade of passes and keeps the first non-empty result.
type Detector struct {
	classifier Classifier
	passes     []Pass
}

// NewDetector creates a detector. An empty passes list means DefaultCascade.
func NewDetector(c Classifier, passes []Pass) *Detector {
	if len(passes) == 0 {
		passes = DefaultCascade()
	}
	cp := make([]Pass, len(passes))
	copy(cp, passes)
	return &Detector{classifier: c, passes: cp}
}

// Passes returns a copy of the configured cascade.
func (d *Detector) Passes() []Pass {
	cp := make([]Pass, len(d.passes))
	copy(cp, d.passes)
	return cp
}

// Detect converts img to grayscale and runs the cascade.
func (d *Detector) Detect(img image.Image) DetectionResult {
	res, _ := d.DetectGray(ToGray(img))
	return res
}

// DetectGray equalizes gray and runs the passes in order. Later passes are
// never evaluated once one returns faces. The returned index is the winning
// pass, or -1 when every pass came back empty.
func (d *Detector) DetectGray(gray *image.Gray) (DetectionResult, int) {
	eq := EqualizeHist(gray)
	for i, p := range d.passes {
		boxes := d.classifier.DetectMultiScale(eq, p)
		if len(boxes) > 0 {
			out := make(DetectionResult, len(boxes))
			copy(out, boxes)
			return out, i
		}
	}
	return DetectionResult{}, -1
}

// DetectBytes decodes data and runs Detect. Decode failures wrap ErrDecode.
func (d *Detector) DetectBytes(data []byte) (DetectionResult, error) {
	img, err := DecodeImage(data)
	if err != nil {
		return nil, err
	}
	return d.Detect(img.Decoded), nil
}
