package cascade

import (
	"image"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kozaktomas/face-detection/internal/facematch"
)

func box(x, y, w, h int) facematch.BoundingBox {
	return facematch.BoundingBox{X: x, Y: y, W: w, H: h}
}

func TestNextScale(t *testing.T) {
	require.Equal(t, 33, nextScale(30, 1.1))
	// 15 * 1.05 truncates back to 15, the step must still advance.
	require.Equal(t, 16, nextScale(15, 1.05))
	require.Equal(t, 19, nextScale(15, 1.3))
}

func TestGroupRectangles(t *testing.T) {
	t.Run("no grouping without neighbors", func(t *testing.T) {
		in := []facematch.BoundingBox{box(0, 0, 10, 10)}
		require.Equal(t, in, GroupRectangles(in, 0, GroupEps))
	})

	t.Run("cluster averaged when above threshold", func(t *testing.T) {
		in := []facematch.BoundingBox{
			box(10, 10, 40, 40),
			box(12, 11, 40, 40),
			box(11, 12, 42, 42),
			box(200, 200, 30, 30), // lone window
		}
		got := GroupRectangles(in, 2, GroupEps)
		require.Equal(t, []facematch.BoundingBox{box(11, 11, 41, 41)}, got)
	})

	t.Run("cluster at threshold is dropped", func(t *testing.T) {
		in := []facematch.BoundingBox{box(10, 10, 40, 40), box(11, 10, 40, 40)}
		require.Empty(t, GroupRectangles(in, 2, GroupEps))
	})

	t.Run("order follows first window of each cluster", func(t *testing.T) {
		in := []facematch.BoundingBox{
			box(300, 0, 50, 50),
			box(0, 0, 50, 50),
			box(301, 1, 50, 50),
			box(1, 1, 50, 50),
		}
		got := GroupRectangles(in, 1, GroupEps)
		require.Len(t, got, 2)
		require.Greater(t, got[0].X, got[1].X)
	})

	t.Run("weak nested cluster is removed", func(t *testing.T) {
		var in []facematch.BoundingBox
		for i := range 5 {
			in = append(in, box(100+i, 100, 100, 100))
		}
		in = append(in, box(140, 140, 20, 20), box(141, 140, 20, 20))
		got := GroupRectangles(in, 1, GroupEps)
		require.Equal(t, []facematch.BoundingBox{box(102, 100, 100, 100)}, got)
	})
}

func TestPackPixels(t *testing.T) {
	full := image.NewGray(image.Rect(0, 0, 4, 3))
	for i := range full.Pix {
		full.Pix[i] = uint8(i)
	}
	sub := full.SubImage(image.Rect(1, 1, 3, 3)).(*image.Gray)
	require.Equal(t, []uint8{5, 6, 9, 10}, packPixels(sub))
	require.Equal(t, full.Pix, packPixels(full))
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load("")
	require.ErrorIs(t, err, ErrNoCascade)

	_, err = Load(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}
