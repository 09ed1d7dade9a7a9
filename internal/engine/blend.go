package engine

import (
	"errors"
	"fmt"
	"image"
	"math"
)

// ErrTooLarge is returned when the composed panorama exceeds the configured
// maximum output size.
var ErrTooLarge = errors.New("engine: panorama too large")

// compose blends the images onto one canvas. Each image is weighted by its
// distance to its own border so seams fade out. load is called once per
// image, in order.
func compose(sizes []image.Point, pos []point, load func(int) (*FloatImage, error), maxSide int) (*FloatImage, error) {
	minX, minY := math.Inf(1), math.Inf(1)
	for _, p := range pos {
		minX = math.Min(minX, p.x)
		minY = math.Min(minY, p.y)
	}

	origins := make([]image.Point, len(pos))
	width, height := 0, 0
	for k, p := range pos {
		o := image.Pt(int(math.Round(p.x-minX)), int(math.Round(p.y-minY)))
		origins[k] = o
		width = max(width, o.X+sizes[k].X)
		height = max(height, o.Y+sizes[k].Y)
	}
	if maxSide > 0 && (width > maxSide || height > maxSide) {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d", ErrTooLarge, width, height, maxSide)
	}

	acc := make([]float32, width*height*3)
	weight := make([]float32, width*height)
	for k, o := range origins {
		img, err := load(k)
		if err != nil {
			return nil, err
		}
		for y := range img.H {
			for x := range img.W {
				if img.IsHole(x, y) {
					continue
				}
				w := float32(min(x+1, img.W-x, y+1, img.H-y))
				p := img.At(x, y)
				i := (o.Y+y)*width + o.X + x
				for c := range 3 {
					acc[i*3+c] += w * p[min(c, img.C-1)]
				}
				weight[i] += w
			}
		}
	}

	out := NewFloatImage(width, height, 3)
	for i, w := range weight {
		for c := range 3 {
			if w == 0 {
				out.Pix[i*3+c] = NoData
			} else {
				out.Pix[i*3+c] = acc[i*3+c] / w
			}
		}
	}
	return out, nil
}

// driftSlope is the vertical drift per horizontal pixel between the first
// and last image origins.
func driftSlope(pos []point) float64 {
	first, last := pos[0], pos[len(pos)-1]
	dx := last.x - first.x
	if math.Abs(dx) < 1 {
		return 0
	}
	return (last.y - first.y) / dx
}

// shear shifts every column of img vertically by -slope*x, which levels a
// panorama that drifts up or down along its length. Uncovered pixels become
// holes.
func shear(img *FloatImage, slope float64) *FloatImage {
	extra := int(math.Ceil(math.Abs(slope) * float64(img.W-1)))
	out := NewFloatImage(img.W, img.H+extra, img.C)
	out.Fill(NoData)

	// base keeps every shift non-negative.
	base := 0.0
	if slope > 0 {
		base = slope * float64(img.W-1)
	}
	for x := range img.W {
		shift := int(math.Round(-slope*float64(x) + base))
		for y := range img.H {
			ty := y + shift
			if ty < 0 || ty >= out.H {
				continue
			}
			copy(out.At(x, ty), img.At(x, y))
		}
	}
	return out
}
