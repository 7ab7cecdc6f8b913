package facematch

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"testing"
)

// fakeClassifier returns canned boxes per pass index and records every call.
type fakeClassifier struct {
	byPass map[int][]BoundingBox
	passes []Pass
	calls  []Pass
}

func newFakeClassifier(passes []Pass, byPass map[int][]BoundingBox) *fakeClassifier {
	return &fakeClassifier{byPass: byPass, passes: passes}
}

func (f *fakeClassifier) DetectMultiScale(_ *image.Gray, p Pass) []BoundingBox {
	f.calls = append(f.calls, p)
	for i, known := range f.passes {
		if known == p {
			return f.byPass[i]
		}
	}
	return nil
}

// fakeExtractor returns fixed faces or an error.
type fakeExtractor struct {
	faces []ExtractedFace
	err   error
}

func (f *fakeExtractor) Extract(_ context.Context, _ []byte) ([]ExtractedFace, error) {
	return f.faces, f.err
}

// gradientPNG builds a w x h grayscale gradient and encodes it as PNG.
func gradientPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Pix[y*img.Stride+x] = uint8((x + y) % 256)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func decodeForTest(t *testing.T, data []byte) *Image {
	t.Helper()
	img, err := DecodeImage(data)
	if err != nil {
		t.Fatalf("DecodeImage: %v", err)
	}
	return img
}
