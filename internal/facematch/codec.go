package facematch

import (
	"encoding/json"
	"fmt"
	"image"
	"math"
)

// Storage keys of a histogram encoding.
const (
	keyHistogram = "histogram"
	keyRegion    = "region"
	keyPatch     = "patch"

	// Keys written by the previous service generation, accepted on decode.
	legacyKeyRegion = "coordinates"
	legacyKeyPatch  = "face_region"
)

// ToStorable converts an encoding to a neutral value made of numbers, slices
// and maps. Embeddings become []float64; histograms become a map with
// "histogram", "region" and an optional "patch".
func ToStorable(enc FaceEncoding) (any, error) {
	switch e := enc.(type) {
	case Embedding:
		return []float64(e), nil
	case Histogram:
		m := map[string]any{
			keyHistogram: e.Bins[:],
			keyRegion:    e.Region.Slice(),
		}
		if e.Patch != nil {
			m[keyPatch] = patchToRows(e.Patch)
		}
		return m, nil
	case nil:
		return nil, fmt.Errorf("%w: nil encoding", ErrInvalidEncodingVariant)
	}
	return nil, fmt.Errorf("%w: %T", ErrInvalidEncodingVariant, enc)
}

// FromStorable rebuilds an encoding from a neutral value. The hint decides
// the variant; the shape of v is never used to guess it.
func FromStorable(v any, hint Variant) (FaceEncoding, error) {
	switch hint {
	case VariantEmbedding:
		vals, ok := toFloats(v)
		if !ok {
			return nil, fmt.Errorf("%w: embedding must be a list of numbers, got %T", ErrMalformedEncoding, v)
		}
		return Embedding(vals), nil
	case VariantHistogram:
		return histogramFromStorable(v)
	}
	return nil, fmt.Errorf("%w: unknown hint %q", ErrInvalidEncodingVariant, hint)
}

func histogramFromStorable(v any) (FaceEncoding, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: histogram must be a map, got %T", ErrMalformedEncoding, v)
	}

	bins, ok := toFloats(m[keyHistogram])
	if !ok || len(bins) != HistogramBins {
		return nil, fmt.Errorf("%w: histogram must have %d bins", ErrMalformedEncoding, HistogramBins)
	}
	var h Histogram
	copy(h.Bins[:], bins)

	rawRegion, ok := m[keyRegion]
	if !ok {
		rawRegion, ok = m[legacyKeyRegion]
	}
	if ok && rawRegion != nil {
		r, ok := toFloats(rawRegion)
		if !ok || len(r) != 4 {
			return nil, fmt.Errorf("%w: region must be 4 integers", ErrMalformedEncoding)
		}
		h.Region = BoundingBox{X: int(r[0]), Y: int(r[1]), W: int(r[2]), H: int(r[3])}
	}

	rawPatch, ok := m[keyPatch]
	if !ok {
		rawPatch, ok = m[legacyKeyPatch]
	}
	if ok && rawPatch != nil {
		p, err := rowsToPatch(rawPatch)
		if err != nil {
			return nil, err
		}
		h.Patch = p
	}
	return h, nil
}

// MarshalEncoding encodes enc as JSON in its storable form.
func MarshalEncoding(enc FaceEncoding) ([]byte, error) {
	v, err := ToStorable(enc)
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

// UnmarshalEncoding decodes JSON written by MarshalEncoding.
func UnmarshalEncoding(data []byte, hint Variant) (FaceEncoding, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEncoding, err)
	}
	return FromStorable(v, hint)
}

func patchToRows(p *image.Gray) [][]int {
	b := p.Bounds()
	rows := make([][]int, b.Dy())
	for y := 0; y < b.Dy(); y++ {
		row := make([]int, b.Dx())
		src := p.Pix[y*p.Stride:]
		for x := range row {
			row[x] = int(src[x])
		}
		rows[y] = row
	}
	return rows
}

func rowsToPatch(v any) (*image.Gray, error) {
	var rows []any
	switch r := v.(type) {
	case []any:
		rows = r
	case [][]int:
		rows = make([]any, len(r))
		for i := range r {
			rows[i] = r[i]
		}
	default:
		return nil, fmt.Errorf("%w: patch must be a list of rows, got %T", ErrMalformedEncoding, v)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	var p *image.Gray
	for y, raw := range rows {
		vals, ok := toFloats(raw)
		if !ok {
			return nil, fmt.Errorf("%w: patch row %d is not numeric", ErrMalformedEncoding, y)
		}
		if p == nil {
			p = image.NewGray(image.Rect(0, 0, len(vals), len(rows)))
		}
		if len(vals) != p.Bounds().Dx() {
			return nil, fmt.Errorf("%w: patch row %d has %d columns, want %d", ErrMalformedEncoding, y, len(vals), p.Bounds().Dx())
		}
		for x, f := range vals {
			p.Pix[y*p.Stride+x] = saturate(f)
		}
	}
	return p, nil
}

func toFloats(v any) ([]float64, bool) {
	switch s := v.(type) {
	case []float64:
		return s, true
	case []float32:
		out := make([]float64, len(s))
		for i, f := range s {
			out[i] = float64(f)
		}
		return out, true
	case []int:
		out := make([]float64, len(s))
		for i, n := range s {
			out[i] = float64(n)
		}
		return out, true
	case []any:
		out := make([]float64, len(s))
		for i, e := range s {
			f, ok := toFloat(e)
			if !ok {
				return nil, false
			}
			out[i] = f
		}
		return out, true
	}
	return nil, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n)
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
