package facematch

import (
	"fmt"
	"math"
)

// DistanceFunc compares two encodings of the same variant.
type DistanceFunc func(known, unknown FaceEncoding) (float64, error)

// Strategy is the active encoding strategy: a variant with its distance
// function and default tolerance. The two strategies' tolerances are not
// comparable with each other.
type Strategy struct {
	Variant          Variant
	DefaultTolerance float64
	Distance         DistanceFunc
}

// EmbeddingStrategy compares embeddings by Euclidean distance.
func EmbeddingStrategy() Strategy {
	return Strategy{Variant: VariantEmbedding, DefaultTolerance: 0.6, Distance: embeddingDistance}
}

// HistogramStrategy compares histograms by 1 - correlation.
func HistogramStrategy() Strategy {
	return Strategy{Variant: VariantHistogram, DefaultTolerance: 0.5, Distance: histogramDistance}
}

// StrategyFor returns the strategy of the given variant.
func StrategyFor(v Variant) (Strategy, error) {
	switch v {
	case VariantEmbedding:
		return EmbeddingStrategy(), nil
	case VariantHistogram:
		return HistogramStrategy(), nil
	}
	return Strategy{}, fmt.Errorf("%w: %q", ErrInvalidEncodingVariant, v)
}

// IsMatch reports whether distance d is within tolerance t. The boundary
// d == t is not a match.
func IsMatch(d, t float64) bool {
	return d < t
}

// EuclideanDistance returns the L2 distance between two vectors. Vectors of
// different length never match and get +Inf.
func EuclideanDistance(a, b []float64) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// HistogramCorrelation is the Pearson correlation of two histograms. A flat
// histogram has zero variance, in which case the result is 1.
func HistogramCorrelation(h1, h2 *[HistogramBins]float64) float64 {
	var s1, s2, s11, s12, s22 float64
	for i := range h1 {
		a, b := h1[i], h2[i]
		s1 += a
		s2 += b
		s11 += a * a
		s12 += a * b
		s22 += b * b
	}
	const n = float64(HistogramBins)
	num := s12 - s1*s2/n
	denom2 := (s11 - s1*s1/n) * (s22 - s2*s2/n)
	if math.Abs(denom2) <= 2.220446049250313e-16 {
		return 1
	}
	return num / math.Sqrt(denom2)
}

func embeddingDistance(known, unknown FaceEncoding) (float64, error) {
	a, ok := known.(Embedding)
	if !ok {
		return 0, variantError(VariantEmbedding, known)
	}
	b, ok := unknown.(Embedding)
	if !ok {
		return 0, variantError(VariantEmbedding, unknown)
	}
	return EuclideanDistance(a, b), nil
}

func histogramDistance(known, unknown FaceEncoding) (float64, error) {
	a, ok := known.(Histogram)
	if !ok {
		return 0, variantError(VariantHistogram, known)
	}
	b, ok := unknown.(Histogram)
	if !ok {
		return 0, variantError(VariantHistogram, unknown)
	}
	return 1 - HistogramCorrelation(&a.Bins, &b.Bins), nil
}

func variantError(want Variant, got FaceEncoding) error {
	if got == nil {
		return fmt.Errorf("%w: want %s, got nil encoding", ErrInvalidEncodingVariant, want)
	}
	return fmt.Errorf("%w: want %s, got %s", ErrInvalidEncodingVariant, want, got.Variant())
}

// Matcher selects the nearest known encoding under a strategy.
type Matcher struct {
	strategy Strategy
}

// NewMatcher creates a matcher for the given strategy.
func NewMatcher(s Strategy) *Matcher {
	return &Matcher{strategy: s}
}

// Strategy returns the matcher's strategy.
func (m *Matcher) Strategy() Strategy {
	return m.strategy
}

// Distances computes the distance from unknown to every known encoding, in
// the order of known.
func (m *Matcher) Distances(known []KnownEncoding, unknown FaceEncoding) ([]float64, error) {
	if len(known) == 0 {
		return nil, nil
	}
	if unknown == nil || unknown.Variant() != m.strategy.Variant {
		return nil, variantError(m.strategy.Variant, unknown)
	}
	out := make([]float64, len(known))
	for i, k := range known {
		d, err := m.strategy.Distance(k.Encoding, unknown)
		if err != nil {
			return nil, fmt.Errorf("known encoding %d (%s): %w", i, k.Name, err)
		}
		out[i] = d
	}
	return out, nil
}

// FindBestMatch returns the known encoding with the smallest distance among
// those within tolerance, the earliest one on ties. It returns nil when no
// candidate matches, including when known is empty. Tolerance is used as
// given: with a tolerance of zero or below nothing matches.
func (m *Matcher) FindBestMatch(known []KnownEncoding, unknown FaceEncoding, tolerance float64) (*MatchResult, error) {
	distances, err := m.Distances(known, unknown)
	if err != nil {
		return nil, err
	}

	best := -1
	for i, d := range distances {
		if !IsMatch(d, tolerance) {
			continue
		}
		if best < 0 || d < distances[best] {
			best = i
		}
	}
	if best < 0 {
		return nil, nil
	}

	return &MatchResult{
		MatchedName: known[best].Name,
		Distance:    distances[best],
		Confidence:  1 - distances[best],
		Index:       best,
	}, nil
}
