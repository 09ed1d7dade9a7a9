package engine

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

const (
	// minLevelSide is the smallest side length a pyramid level may have.
	minLevelSide = 24
	// coarseSide bounds the coarsest level, which is searched exhaustively.
	coarseSide = 64
)

// grayLevel is a single-channel working image with a validity mask.
type grayLevel struct {
	w, h  int
	v     []float64
	valid []bool
}

func (g *grayLevel) at(x, y int) (float64, bool) {
	i := y*g.w + x
	return g.v[i], g.valid[i]
}

// pyramid holds grayscale copies of one image from fine (index 0, at most
// the working size) to coarse.
type pyramid struct {
	levels []*grayLevel
	// scale maps level-0 coordinates to full resolution.
	scale float64
}

// workingFactor is the downsampling factor that brings the longest side of
// any image to at most workingSize. All pyramids of one panorama share it so
// that their levels are comparable.
func workingFactor(sizes []image.Point, workingSize int) float64 {
	longest := 1
	for _, s := range sizes {
		longest = max(longest, s.X, s.Y)
	}
	if workingSize <= 0 || workingSize >= longest {
		return 1
	}
	return float64(workingSize) / float64(longest)
}

// buildPyramid downsamples img by factor, then keeps halving it. It produces
// at least levels levels and continues until the coarsest one fits in
// coarseSide.
func buildPyramid(img *FloatImage, factor float64, levels int) *pyramid {
	src := img.toRGBA64()

	p := &pyramid{}
	for {
		dw := max(1, int(math.Round(float64(img.W)*factor)))
		dh := max(1, int(math.Round(float64(img.H)*factor)))
		p.levels = append(p.levels, scaleGray(src, dw, dh))
		side := max(dw, dh)
		if len(p.levels) >= levels && side <= coarseSide {
			break
		}
		if side/2 < minLevelSide {
			break
		}
		factor /= 2
	}
	p.scale = float64(img.W) / float64(p.levels[0].w)
	return p
}

// scaleGray resamples src to dw x dh and converts it to luminance. Pixels
// that are mostly transparent are marked invalid.
func scaleGray(src *image.RGBA64, dw, dh int) *grayLevel {
	dst := image.NewRGBA64(image.Rect(0, 0, dw, dh))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	g := &grayLevel{w: dw, h: dh, v: make([]float64, dw*dh), valid: make([]bool, dw*dh)}
	for y := range dh {
		for x := range dw {
			c := dst.RGBA64At(x, y)
			if c.A < 0xf000 {
				continue
			}
			a := float64(c.A)
			lum := (0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)) / a
			i := y*dw + x
			g.v[i] = lum
			g.valid[i] = true
		}
	}
	return g
}
