//go:build !dlib

package embedding

import (
	"context"

	"github.com/kozaktomas/face-detection/internal/facematch"
)

// LocalAvailable reports whether this build carries the in-process extractor.
const LocalAvailable = false

// Local is unavailable in builds without the dlib tag.
type Local struct{}

// NewLocal always fails without the dlib build tag.
func NewLocal(string) (*Local, error) {
	return nil, ErrLocalUnavailable
}

func (l *Local) Extract(context.Context, []byte) ([]facematch.ExtractedFace, error) {
	return nil, ErrLocalUnavailable
}

func (l *Local) Close() error { return nil }
