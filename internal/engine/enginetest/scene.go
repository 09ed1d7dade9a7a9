// Package enginetest provides synthetic inputs for tests that exercise the
// reference engine.
package enginetest

import (
	"image"
	"image/color"
	"image/png"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"
)

// Scene is a smooth, non-repeating test picture made of coloured blobs.
type Scene struct {
	W, H  int
	blobs []blob
}

type blob struct {
	x, y, sigma float64
	amp         [3]float64
}

// NewScene creates a deterministic scene of the given size.
func NewScene(w, h int, seed uint64) *Scene {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	s := &Scene{W: w, H: h}
	n := max(8, w*h/600)
	for range n {
		s.blobs = append(s.blobs, blob{
			x:     r.Float64() * float64(w),
			y:     r.Float64() * float64(h),
			sigma: 6 + r.Float64()*8,
			amp:   [3]float64{r.Float64() - 0.5, r.Float64() - 0.5, r.Float64() - 0.5},
		})
	}
	return s
}

// At returns the colour of the scene at (x, y), each channel in [0, 1].
func (s *Scene) At(x, y int) [3]float64 {
	v := [3]float64{0.5, 0.5, 0.5}
	for _, b := range s.blobs {
		dx, dy := float64(x)-b.x, float64(y)-b.y
		g := math.Exp(-(dx*dx + dy*dy) / (2 * b.sigma * b.sigma))
		for c := range 3 {
			v[c] += b.amp[c] * g
		}
	}
	for c := range 3 {
		v[c] = min(1, max(0, v[c]))
	}
	return v
}

// Crop renders the part of the scene inside r.
func (s *Scene) Crop(r image.Rectangle) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			v := s.At(x, y)
			img.SetNRGBA(x-r.Min.X, y-r.Min.Y, color.NRGBA{
				R: uint8(v[0]*255 + 0.5),
				G: uint8(v[1]*255 + 0.5),
				B: uint8(v[2]*255 + 0.5),
				A: 0xff,
			})
		}
	}
	return img
}

// WritePNG renders r into dir/name and returns the path.
func (s *Scene) WritePNG(t testing.TB, dir, name string, r image.Rectangle) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, s.Crop(r)); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
	return path
}

// OverlappingPair is the layout most tests use: a 240x120 scene split into
// two 160x100 views, the second shifted by (80, 10).
var OverlappingPair = [2]image.Rectangle{
	image.Rect(0, 0, 160, 100),
	image.Rect(80, 10, 240, 110),
}

// WritePair writes the OverlappingPair views of a fresh scene into a
// temporary directory and returns the scene and both paths.
func WritePair(t testing.TB) (*Scene, []string) {
	t.Helper()
	dir := t.TempDir()
	s := NewScene(240, 120, 7)
	return s, []string{
		s.WritePNG(t, dir, "left.png", OverlappingPair[0]),
		s.WritePNG(t, dir, "right.png", OverlappingPair[1]),
	}
}
