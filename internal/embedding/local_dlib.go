//go:build dlib

package embedding

import (
	"context"
	"fmt"
	"sync"

	face "github.com/Kagami/go-face"

	"github.com/kozaktomas/face-detection/internal/facematch"
)

// LocalAvailable reports whether this build carries the in-process extractor.
const LocalAvailable = true

// Local runs the dlib ResNet face model in process.
type Local struct {
	mu  sync.Mutex
	rec *face.Recognizer
}

// NewLocal loads the dlib models (shape predictor and ResNet descriptor) from modelsDir.
func NewLocal(modelsDir string) (*Local, error) {
	if modelsDir == "" {
		return nil, ErrLocalUnavailable
	}
	rec, err := face.NewRecognizer(modelsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load face models: %w", err)
	}
	return &Local{rec: rec}, nil
}

// Extract implements facematch.Extractor.
func (l *Local) Extract(_ context.Context, data []byte) ([]facematch.ExtractedFace, error) {
	jpg, err := toJPEG(data)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	faces, err := l.rec.Recognize(jpg)
	l.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("recognize: %w", err)
	}
	if len(faces) == 0 {
		return nil, facematch.ErrExtractionFailed
	}

	out := make([]facematch.ExtractedFace, len(faces))
	for i, f := range faces {
		desc := make([]float64, len(f.Descriptor))
		for j, v := range f.Descriptor {
			desc[j] = float64(v)
		}
		out[i] = facematch.ExtractedFace{
			Region:     facematch.BoxFromRect(f.Rectangle),
			Descriptor: desc,
		}
	}
	return out, nil
}

// Close releases the dlib models.
func (l *Local) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rec.Close()
	return nil
}
