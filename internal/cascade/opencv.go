//go:build opencv

package cascade

import (
	"fmt"
	"image"
	"log/slog"
	"sync"

	"gocv.io/x/gocv"

	"github.com/kozaktomas/face-detection/internal/facematch"
)

// OpenCV wraps a Haar cascade classifier. The underlying classifier is not
// safe for concurrent use, so calls are serialized.
type OpenCV struct {
	mu  sync.Mutex
	cls gocv.CascadeClassifier
}

// Load reads a Haar cascade XML file such as haarcascade_frontalface_default.xml.
func Load(path string) (Classifier, error) {
	if path == "" {
		return nil, ErrNoCascade
	}
	cls := gocv.NewCascadeClassifier()
	if !cls.Load(path) {
		cls.Close()
		return nil, fmt.Errorf("failed to load cascade classifier from %s", path)
	}
	return &OpenCV{cls: cls}, nil
}

func (c *OpenCV) Name() string { return "opencv" }

func (c *OpenCV) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cls.Close()
}

func (c *OpenCV) DetectMultiScale(gray *image.Gray, pass facematch.Pass) []facematch.BoundingBox {
	mat, err := gocv.ImageGrayToMatGray(gray)
	if err != nil {
		slog.Warn("cascade: failed to convert image", "error", err)
		return nil
	}
	defer mat.Close()

	c.mu.Lock()
	rects := c.cls.DetectMultiScaleWithParams(
		mat,
		pass.ScaleFactor,
		pass.MinNeighbors,
		0,
		image.Pt(pass.MinSize, pass.MinSize),
		image.Pt(0, 0),
	)
	c.mu.Unlock()

	out := make([]facematch.BoundingBox, 0, len(rects))
	for _, r := range rects {
		out = append(out, facematch.BoxFromRect(r))
	}
	return out
}
