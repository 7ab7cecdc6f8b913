package embedding

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"

	"github.com/kozaktomas/face-detection/internal/facematch"
)

// ResizeImage fits the image within maxSize while keeping the aspect ratio and
// returns it JPEG-encoded, together with the applied scale. Images that
// already fit are returned unchanged with scale 1.
func ResizeImage(data []byte, maxSize int) ([]byte, float64, error) {
	img, err := facematch.DecodeImage(data)
	if err != nil {
		return nil, 0, err
	}

	bounds := img.Decoded.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= maxSize && height <= maxSize {
		return data, 1, nil
	}

	var newWidth, newHeight int
	var scale float64
	if width > height {
		scale = float64(maxSize) / float64(width)
		newWidth = maxSize
		newHeight = int(float64(height) * scale)
	} else {
		scale = float64(maxSize) / float64(height)
		newHeight = maxSize
		newWidth = int(float64(width) * scale)
	}

	resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img.Decoded, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 85}); err != nil {
		return nil, 0, fmt.Errorf("failed to encode resized image: %w", err)
	}
	return buf.Bytes(), scale, nil
}

// toJPEG re-encodes non-JPEG input as JPEG. JPEG input is returned unchanged.
func toJPEG(data []byte) ([]byte, error) {
	if detectMIMEType(data) == "image/jpeg" {
		return data, nil
	}
	img, err := facematch.DecodeImage(data)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img.Decoded, &jpeg.Options{Quality: 95}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
