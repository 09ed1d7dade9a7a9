// Package engine is the reference panorama engine behind the bridge. It
// reads images, estimates how they overlap, composes them on a common canvas
// and hands back a floating-point image.
//
// Pixels are float32 channel values in [0, 1]. A negative value marks a hole
// (no source image covered that pixel).
package engine

import (
	"fmt"
	"image"
	"image/color"
	"math"
)

// NoData is the sentinel stored in every channel of a hole.
const NoData float32 = -1

// FloatImage is a row-major, channel-interleaved float image.
type FloatImage struct {
	W, H, C int
	Pix     []float32
}

// NewFloatImage allocates a zeroed image.
func NewFloatImage(w, h, c int) *FloatImage {
	return &FloatImage{W: w, H: h, C: c, Pix: make([]float32, w*h*c)}
}

// Width returns the width in pixels.
func (m *FloatImage) Width() int { return m.W }

// Height returns the height in pixels.
func (m *FloatImage) Height() int { return m.H }

// Channels returns the number of channels per pixel.
func (m *FloatImage) Channels() int { return m.C }

// At returns the channels of pixel (x, y). The slice aliases Pix.
func (m *FloatImage) At(x, y int) []float32 {
	i := (y*m.W + x) * m.C
	return m.Pix[i : i+m.C : i+m.C]
}

// IsHole reports whether pixel (x, y) carries the hole sentinel.
func (m *FloatImage) IsHole(x, y int) bool {
	for _, v := range m.At(x, y) {
		if v < 0 {
			return true
		}
	}
	return false
}

// Fill sets every channel of every pixel to v.
func (m *FloatImage) Fill(v float32) {
	for i := range m.Pix {
		m.Pix[i] = v
	}
}

// SubImage copies the pixels inside r into a new image.
func (m *FloatImage) SubImage(r image.Rectangle) (*FloatImage, error) {
	r = r.Intersect(image.Rect(0, 0, m.W, m.H))
	if r.Empty() {
		return nil, fmt.Errorf("engine: empty sub-image %v of %dx%d", r, m.W, m.H)
	}
	out := NewFloatImage(r.Dx(), r.Dy(), m.C)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		src := m.Pix[(y*m.W+r.Min.X)*m.C : (y*m.W+r.Max.X)*m.C]
		copy(out.Pix[(y-r.Min.Y)*out.W*m.C:], src)
	}
	return out, nil
}

// Sample returns the bilinear interpolation at (fx, fy) into dst. Points
// within half a pixel of the border are clamped onto it. It reports false
// when the point falls outside the image or touches a hole.
func (m *FloatImage) Sample(fx, fy float64, dst []float32) bool {
	if fx < -0.5 || fy < -0.5 || fx > float64(m.W)-0.5 || fy > float64(m.H)-0.5 {
		return false
	}
	fx = min(max(fx, 0), float64(m.W-1))
	fy = min(max(fy, 0), float64(m.H-1))
	x0, y0 := int(fx), int(fy)
	x1, y1 := min(x0+1, m.W-1), min(y0+1, m.H-1)
	ax, ay := float32(fx-float64(x0)), float32(fy-float64(y0))

	p00, p10 := m.At(x0, y0), m.At(x1, y0)
	p01, p11 := m.At(x0, y1), m.At(x1, y1)
	for c := range m.C {
		if p00[c] < 0 || p10[c] < 0 || p01[c] < 0 || p11[c] < 0 {
			return false
		}
		top := p00[c]*(1-ax) + p10[c]*ax
		bottom := p01[c]*(1-ax) + p11[c]*ax
		dst[c] = top*(1-ay) + bottom*ay
	}
	return true
}

// FromImage converts a decoded image into a 3-channel float image.
func FromImage(img image.Image) *FloatImage {
	b := img.Bounds()
	out := NewFloatImage(b.Dx(), b.Dy(), 3)
	for y := range out.H {
		for x := range out.W {
			c := color.NRGBA64Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA64)
			p := out.At(x, y)
			p[0] = float32(c.R) / 0xffff
			p[1] = float32(c.G) / 0xffff
			p[2] = float32(c.B) / 0xffff
		}
	}
	return out
}

// ToNRGBA converts the image for encoding. Holes become opaque black.
func (m *FloatImage) ToNRGBA() *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, m.W, m.H))
	for y := range m.H {
		for x := range m.W {
			p := m.At(x, y)
			i := out.PixOffset(x, y)
			for c := range 3 {
				v := p[0]
				if c < m.C {
					v = p[c]
				}
				out.Pix[i+c] = to8(v)
			}
			out.Pix[i+3] = 0xff
		}
	}
	return out
}

// toRGBA64 converts the image for resampling. Holes become transparent so
// that the scaler does not smear them into valid pixels.
func (m *FloatImage) toRGBA64() *image.RGBA64 {
	out := image.NewRGBA64(image.Rect(0, 0, m.W, m.H))
	for y := range m.H {
		for x := range m.W {
			if m.IsHole(x, y) {
				continue
			}
			p := m.At(x, y)
			out.SetRGBA64(x, y, color.RGBA64{
				R: to16(p[0]),
				G: to16(p[min(1, m.C-1)]),
				B: to16(p[min(2, m.C-1)]),
				A: 0xffff,
			})
		}
	}
	return out
}

func to8(v float32) uint8 {
	if v < 0 || math.IsNaN(float64(v)) {
		return 0
	}
	return uint8(min(255, math.Floor(float64(v)*255+0.5)))
}

func to16(v float32) uint16 {
	if v <= 0 {
		return 0
	}
	return uint16(min(0xffff, math.Floor(float64(v)*0xffff+0.5)))
}
