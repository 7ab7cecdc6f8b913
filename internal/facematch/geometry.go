package facematch

import "image"

// BoundingBox is a detected face region in pixel coordinates relative to the
// source image origin.
type BoundingBox struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// DetectionResult is the ordered output of a detection call. The order is the
// classifier's raw output order, not a spatial sort.
type DetectionResult []BoundingBox

// BoxFromCorners converts a pixel bbox [x1, y1, x2, y2] to a BoundingBox.
func BoxFromCorners(x1, y1, x2, y2 int) BoundingBox {
	return BoundingBox{X: x1, Y: y1, W: x2 - x1, H: y2 - y1}
}

// BoxFromRect converts an image.Rectangle to a BoundingBox.
func BoxFromRect(r image.Rectangle) BoundingBox {
	return BoxFromCorners(r.Min.X, r.Min.Y, r.Max.X, r.Max.Y)
}

// Area returns w*h.
func (b BoundingBox) Area() int {
	return b.W * b.H
}

// Valid reports whether the box has a positive width and height.
func (b BoundingBox) Valid() bool {
	return b.W > 0 && b.H > 0
}

// Rect returns the box as an image.Rectangle.
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.W, b.Y+b.H)
}

// Slice returns the box as [x, y, w, h].
func (b BoundingBox) Slice() []int {
	return []int{b.X, b.Y, b.W, b.H}
}
