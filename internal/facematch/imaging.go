package facematch

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Image is raw image bytes together with their decoded form.
type Image struct {
	Data    []byte
	Decoded image.Image
	Format  string
}

// DecodeImage decodes raw image bytes. Any failure is reported as ErrDecode.
func DecodeImage(data []byte) (*Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrDecode)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%w: empty image", ErrDecode)
	}
	return &Image{Data: data, Decoded: img, Format: format}, nil
}

// ToGray converts an image to 8-bit grayscale with BT.601 luma weights.
// The result always has its origin at (0, 0).
func ToGray(img image.Image) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	return gray
}

// EqualizeHist spreads the intensity distribution of a grayscale image over
// the full 0-255 range. The lookup table matches the common cumulative
// histogram formulation: the first occupied bin maps to 0 and the rest scale
// by 255 / (total - firstBinCount).
func EqualizeHist(src *image.Gray) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(b)
	total := b.Dx() * b.Dy()
	if total == 0 {
		return dst
	}

	var hist [256]int
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := src.Pix[(y-b.Min.Y)*src.Stride:]
		for x := 0; x < b.Dx(); x++ {
			hist[row[x]]++
		}
	}

	first := 0
	for first < 255 && hist[first] == 0 {
		first++
	}

	var lut [256]uint8
	if hist[first] == total {
		for i := range lut {
			lut[i] = uint8(first)
		}
	} else {
		scale := 255.0 / float64(total-hist[first])
		sum := 0
		for i := first + 1; i < 256; i++ {
			sum += hist[i]
			lut[i] = saturate(float64(sum) * scale)
		}
	}

	for y := b.Min.Y; y < b.Max.Y; y++ {
		srcRow := src.Pix[(y-b.Min.Y)*src.Stride:]
		dstRow := dst.Pix[(y-b.Min.Y)*dst.Stride:]
		for x := 0; x < b.Dx(); x++ {
			dstRow[x] = lut[srcRow[x]]
		}
	}
	return dst
}

// CropGray returns the part of gray covered by box, clipped to the image.
// The result is a copy with origin (0, 0).
func CropGray(gray *image.Gray, box BoundingBox) *image.Gray {
	r := box.Rect().Intersect(gray.Bounds())
	out := image.NewGray(image.Rect(0, 0, r.Dx(), r.Dy()))
	if r.Empty() {
		return out
	}
	draw.Draw(out, out.Bounds(), gray, r.Min, draw.Src)
	return out
}

// ResizeGray scales a grayscale image to w x h with bilinear interpolation.
func ResizeGray(src *image.Gray, w, h int) *image.Gray {
	dst := image.NewGray(image.Rect(0, 0, w, h))
	if src.Bounds().Empty() {
		return dst
	}
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

func saturate(v float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
