// Package frametest builds synthetic grayscale frames for tests.
package frametest

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

// Pixels returns a smooth textured w×h image shifted horizontally by shift pixels.
func Pixels(w, h, shift int) []byte {
	data := make([]byte, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			fx := float64(x - shift)
			v := 128 + 50*math.Sin(fx/3.0) + 40*math.Cos(float64(y)/4.0)
			data[y*w+x] = byte(math.Max(0, math.Min(255, v)))
		}
	}
	return data
}

// Mat returns the Pixels image as an 8-bit single-channel Mat. The caller closes it.
func Mat(t testing.TB, w, h, shift int) gocv.Mat {
	t.Helper()
	m, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8U, Pixels(w, h, shift))
	require.NoError(t, err)
	return m
}

// Write stores the Pixels image as dir/name and returns the path.
func Write(t testing.TB, dir, name string, w, h, shift int) string {
	t.Helper()
	m := Mat(t, w, h, shift)
	defer m.Close()
	path := filepath.Join(dir, name)
	require.True(t, gocv.IMWrite(path, m), "write %s", path)
	return path
}
