// Package facematch is the face identification decision engine: cascade
// detection, the two encoding strategies, nearest-match selection and the
// storage codec for encodings.
//
// Everything in this package is synchronous and stateless per call. The only
// shared input is the known-encoding snapshot the caller passes to the Matcher.
package facematch

import "image"

// Variant identifies which encoding strategy produced a FaceEncoding.
type Variant string

const (
	VariantEmbedding Variant = "embedding"
	VariantHistogram Variant = "histogram"
)

// FaceEncoding is a compact numeric face signature. It has exactly two
// implementations, Embedding and Histogram.
type FaceEncoding interface {
	Variant() Variant
	sealed()
}

// Embedding is a fixed-length vector produced by an external face embedding
// model. Values are kept at float64 so stored vectors decode without loss.
type Embedding []float64

func (Embedding) Variant() Variant { return VariantEmbedding }
func (Embedding) sealed()          {}

// HistogramBins is the number of intensity bins of a histogram encoding.
const HistogramBins = 256

// PatchSize is the side of the canonical grayscale face patch.
const PatchSize = 100

// Histogram is an intensity-distribution signature computed from a face patch.
// Bins sums to 1.0 (within epsilon) for any non-degenerate patch.
type Histogram struct {
	Bins   [HistogramBins]float64
	Region BoundingBox
	Patch  *image.Gray // optional PatchSize x PatchSize patch, kept for diagnostics
}

func (Histogram) Variant() Variant { return VariantHistogram }
func (Histogram) sealed()          {}

// KnownEncoding pairs an enrolled identity name with its encoding.
type KnownEncoding struct {
	Name     string
	Encoding FaceEncoding
}

// MatchResult is the selected nearest match. Confidence is 1 - Distance and is
// not clamped, so histogram distances above 1 give negative confidences.
type MatchResult struct {
	MatchedName string  `json:"user_name"`
	Distance    float64 `json:"distance"`
	Confidence  float64 `json:"confidence"`
	Index       int     `json:"-"`
}
