package engine

import "math"

// sensorWidth is the 35mm-equivalent sensor width focal lengths refer to.
const sensorWidth = 36.0

// focalPixels converts a 35mm-equivalent focal length to pixels for an image
// of the given width.
func focalPixels(focalLength float64, width int) float64 {
	return focalLength / sensorWidth * float64(width)
}

// warpCylinder projects img onto a cylinder of radius f pixels centred on
// the optical axis. Points with no source pixel become holes.
func warpCylinder(img *FloatImage, f float64) *FloatImage {
	cx := float64(img.W-1) / 2
	cy := float64(img.H-1) / 2

	halfAngle := math.Atan(float64(img.W) / 2 / f)
	outW := max(1, int(math.Round(2*f*halfAngle)))
	ocx := float64(outW-1) / 2

	out := NewFloatImage(outW, img.H, img.C)
	out.Fill(NoData)
	px := make([]float32, img.C)
	for y := range out.H {
		for x := range out.W {
			theta := (float64(x) - ocx) / f
			sx := f*math.Tan(theta) + cx
			sy := (float64(y)-cy)/math.Cos(theta) + cy
			if img.Sample(sx, sy, px) {
				copy(out.At(x, y), px)
			}
		}
	}
	return out
}
