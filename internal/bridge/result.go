package bridge

import (
	"sync"

	"github.com/kiesman99/pano/internal/pixel"
	"github.com/kiesman99/pano/internal/stitch"
)

// Result is the outcome of one stitch as seen by a foreign caller. Success
// and Error may both be set, in which case Error is a warning.
type Result struct {
	// Data holds Width*Height*Channels bytes of interleaved RGB, or nothing
	// on failure.
	Data     []byte
	Width    int
	Height   int
	Channels int
	Success  bool
	Error    string
	// Kind classifies Error when Success is false.
	Kind       stitch.Kind
	OutputPath string
	// Mode names the configuration mode the stitch ran with. It is empty
	// when no configuration could be loaded.
	Mode string
}

// Package builds a Result that owns buf.
func Package(buf []byte, width, height, channels int, success bool, errText string) *Result {
	return &Result{
		Data:     buf,
		Width:    width,
		Height:   height,
		Channels: channels,
		Success:  success,
		Error:    errText,
	}
}

// failure packages an error with no pixel data.
func failure(kind stitch.Kind, errText string) *Result {
	r := Package(nil, 0, 0, pixel.Channels, false, errText)
	r.Kind = kind
	return r
}

// Release hands the pixel buffer back for reuse and clears r. It is safe on
// a nil Result. r must not be used afterwards.
func (r *Result) Release() {
	if r == nil {
		return
	}
	putBuffer(r.Data)
	*r = Result{}
}

// buffers recycles pixel buffers between stitches.
var buffers sync.Pool

func getBuffer(n int) []byte {
	if p, ok := buffers.Get().(*[]byte); ok && cap(*p) >= n {
		return (*p)[:n]
	}
	return make([]byte, n)
}

func putBuffer(b []byte) {
	if cap(b) == 0 {
		return
	}
	b = b[:0]
	buffers.Put(&b)
}
