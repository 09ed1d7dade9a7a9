// Package pixel converts float panoramas into interleaved 8-bit RGB buffers
// that can be handed across a language boundary.
package pixel

import (
	"errors"
	"fmt"
	"math"
)

// Channels is the number of bytes per converted pixel.
const Channels = 3

// ErrChannels is returned for images that are not 3-channel.
var ErrChannels = errors.New("pixel: unsupported channel count")

// Image is the read-only view Convert needs.
type Image interface {
	Width() int
	Height() int
	Channels() int
	At(x, y int) []float32
}

// Convert returns a new buffer of exactly Width*Height*3 bytes in row-major
// RGB order.
func Convert(img Image) ([]byte, error) {
	return ConvertInto(nil, img)
}

// ConvertInto is Convert writing into dst when it is large enough. The
// returned slice has exactly Width*Height*3 bytes.
func ConvertInto(dst []byte, img Image) ([]byte, error) {
	if c := img.Channels(); c != Channels {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrChannels, c, Channels)
	}
	w, h := img.Width(), img.Height()
	n := w * h * Channels
	if cap(dst) < n {
		dst = make([]byte, n)
	}
	dst = dst[:n]

	for y := range h {
		for x := range w {
			i := (y*w + x) * Channels
			p := img.At(x, y)
			dst[i] = Byte(p[0])
			dst[i+1] = Byte(p[1])
			dst[i+2] = Byte(p[2])
		}
	}
	return dst, nil
}

// Byte maps a channel value in [0, 1] to 0..255. Negative values (holes) and
// NaN become 0; values above 1 saturate.
func Byte(v float32) byte {
	f := float64(v)
	if f < 0 || math.IsNaN(f) {
		return 0
	}
	return byte(min(255, math.Floor(f*255+0.5)))
}
