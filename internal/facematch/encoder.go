package facematch

import (
	"context"
	"errors"
	"fmt"
	"image"
)

// SelectionPolicy names how an encoder picks one face out of several.
type SelectionPolicy string

const (
	// PolicyFirstFace uses the first face the extractor reports.
	PolicyFirstFace SelectionPolicy = "first_face"
	// PolicyLargestFace uses the face with the largest area, earliest on ties.
	PolicyLargestFace SelectionPolicy = "largest_face"
)

// Encoder derives a FaceEncoding from an image. A nil encoding with a nil
// error means no face was found.
type Encoder interface {
	Encode(ctx context.Context, img *Image) (FaceEncoding, error)
	Variant() Variant
	Policy() SelectionPolicy
}

// ExtractedFace is one face reported by an embedding extractor.
type ExtractedFace struct {
	Region     BoundingBox
	Descriptor []float64
}

// Extractor is a face embedding model. It performs its own detection and may
// legitimately return an empty list.
type Extractor interface {
	Extract(ctx context.Context, data []byte) ([]ExtractedFace, error)
}

// EmbeddingEncoder delegates to an Extractor and keeps the first vector.
type EmbeddingEncoder struct {
	extractor Extractor
}

// NewEmbeddingEncoder creates an encoder backed by the given extractor.
func NewEmbeddingEncoder(e Extractor) *EmbeddingEncoder {
	return &EmbeddingEncoder{extractor: e}
}

func (e *EmbeddingEncoder) Variant() Variant        { return VariantEmbedding }
func (e *EmbeddingEncoder) Policy() SelectionPolicy { return PolicyFirstFace }

// Encode runs the extractor on the whole image. ErrExtractionFailed from the
// extractor is treated the same as an empty result.
func (e *EmbeddingEncoder) Encode(ctx context.Context, img *Image) (FaceEncoding, error) {
	faces, err := e.extractor.Extract(ctx, img.Data)
	if err != nil {
		if errors.Is(err, ErrExtractionFailed) {
			return nil, nil
		}
		return nil, fmt.Errorf("extract embeddings: %w", err)
	}
	for _, f := range faces {
		if len(f.Descriptor) == 0 {
			continue
		}
		out := make(Embedding, len(f.Descriptor))
		copy(out, f.Descriptor)
		return out, nil
	}
	return nil, nil
}

// HistogramEncoder computes an intensity histogram of the largest detected face.
type HistogramEncoder struct {
	detector  *Detector
	keepPatch bool
}

// NewHistogramEncoder creates a histogram encoder. When keepPatch is set the
// resized grayscale patch is attached to every encoding.
func NewHistogramEncoder(d *Detector, keepPatch bool) *HistogramEncoder {
	return &HistogramEncoder{detector: d, keepPatch: keepPatch}
}

func (e *HistogramEncoder) Variant() Variant        { return VariantHistogram }
func (e *HistogramEncoder) Policy() SelectionPolicy { return PolicyLargestFace }

// Encode detects faces, crops the largest one from the grayscale image and
// returns its normalized histogram.
func (e *HistogramEncoder) Encode(_ context.Context, img *Image) (FaceEncoding, error) {
	gray := ToGray(img.Decoded)
	faces, _ := e.detector.DetectGray(gray)
	idx := LargestFace(faces)
	if idx < 0 {
		return nil, nil
	}
	region := faces[idx]
	patch := ResizeGray(CropGray(gray, region), PatchSize, PatchSize)

	h := HistogramFromPatch(patch)
	h.Region = region
	if e.keepPatch {
		h.Patch = patch
	}
	return h, nil
}

// LargestFace returns the index of the box with the largest area. Ties go to
// the earliest box. It returns -1 for an empty list.
func LargestFace(faces []BoundingBox) int {
	best := -1
	bestArea := 0
	for i, f := range faces {
		if a := f.Area(); best < 0 || a > bestArea {
			best, bestArea = i, a
		}
	}
	return best
}

// HistogramFromPatch computes the 256-bin histogram of patch and divides
// every bin by sum+1e-7, so an all-zero input stays finite.
func HistogramFromPatch(patch *image.Gray) Histogram {
	var counts [HistogramBins]float64
	b := patch.Bounds()
	for y := 0; y < b.Dy(); y++ {
		row := patch.Pix[y*patch.Stride:]
		for x := 0; x < b.Dx(); x++ {
			counts[row[x]]++
		}
	}
	return normalizeHistogram(counts)
}

func normalizeHistogram(counts [HistogramBins]float64) Histogram {
	var sum float64
	for _, c := range counts {
		sum += c
	}
	denom := sum + 1e-7

	var h Histogram
	for i, c := range counts {
		h.Bins[i] = c / denom
	}
	return h
}
