// Package cascade provides the multi-scale face classifiers used by the
// detector. The default build uses the pure-Go pigo classifier; building with
// the opencv tag switches to an OpenCV Haar cascade through gocv.
package cascade

import (
	"errors"
	"math"

	"github.com/kozaktomas/face-detection/internal/facematch"
)

// ErrNoCascade is returned when no cascade file is configured.
var ErrNoCascade = errors.New("cascade file not configured")

// GroupEps is the relative tolerance used when grouping raw windows.
const GroupEps = 0.2

// Classifier is a loaded cascade that must be closed after use.
type Classifier interface {
	facematch.Classifier
	Name() string
	Close() error
}

// nextScale advances a window size by factor, by at least one pixel.
func nextScale(size int, factor float64) int {
	return max(size+1, int(float64(size)*factor))
}

// similar reports whether two windows describe the same object.
func similar(a, b facematch.BoundingBox, eps float64) bool {
	delta := eps * float64(min(a.W, b.W)+min(a.H, b.H)) * 0.5
	return math.Abs(float64(a.X-b.X)) <= delta &&
		math.Abs(float64(a.Y-b.Y)) <= delta &&
		math.Abs(float64(a.X+a.W-b.X-b.W)) <= delta &&
		math.Abs(float64(a.Y+a.H-b.Y-b.H)) <= delta
}

// GroupRectangles clusters raw detection windows and keeps clusters with more
// than minNeighbors members, averaged into one box each. Clusters nested inside
// a stronger cluster are dropped. Output order follows the first window of
// each cluster. With minNeighbors <= 0 the input is returned unchanged.
func GroupRectangles(rects []facematch.BoundingBox, minNeighbors int, eps float64) []facematch.BoundingBox {
	if minNeighbors <= 0 || len(rects) == 0 {
		return rects
	}

	parent := make([]int, len(rects))
	for i := range parent {
		parent[i] = i
	}
	find := func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	for i := range rects {
		for j := i + 1; j < len(rects); j++ {
			if similar(rects[i], rects[j], eps) {
				ri, rj := find(i), find(j)
				if ri != rj {
					parent[max(ri, rj)] = min(ri, rj)
				}
			}
		}
	}

	type cluster struct {
		x, y, w, h float64
		n          int
	}
	index := map[int]int{}
	var clusters []cluster
	for i, r := range rects {
		root := find(i)
		ci, ok := index[root]
		if !ok {
			ci = len(clusters)
			index[root] = ci
			clusters = append(clusters, cluster{})
		}
		c := &clusters[ci]
		c.x += float64(r.X)
		c.y += float64(r.Y)
		c.w += float64(r.W)
		c.h += float64(r.H)
		c.n++
	}

	avg := make([]facematch.BoundingBox, len(clusters))
	for i, c := range clusters {
		s := 1 / float64(c.n)
		avg[i] = facematch.BoundingBox{
			X: int(math.Round(c.x * s)),
			Y: int(math.Round(c.y * s)),
			W: int(math.Round(c.w * s)),
			H: int(math.Round(c.h * s)),
		}
	}

	var out []facematch.BoundingBox
	for i, r1 := range avg {
		n1 := clusters[i].n
		if n1 <= minNeighbors {
			continue
		}
		nested := false
		for j, r2 := range avg {
			n2 := clusters[j].n
			if j == i || n2 <= minNeighbors {
				continue
			}
			dx := int(math.Round(float64(r2.W) * eps))
			dy := int(math.Round(float64(r2.H) * eps))
			if r1.X >= r2.X-dx && r1.Y >= r2.Y-dy &&
				r1.X+r1.W <= r2.X+r2.W+dx && r1.Y+r1.H <= r2.Y+r2.H+dy &&
				(n2 > max(3, n1) || n1 < 3) {
				nested = true
				break
			}
		}
		if !nested {
			out = append(out, r1)
		}
	}
	return out
}
