// Package stitch runs one stitching request: it picks the engine variant for
// the configuration, builds the panorama, crops and converts it, and writes
// the optional output file.
package stitch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kiesman99/pano/internal/config"
	"github.com/kiesman99/pano/internal/engine"
	"github.com/kiesman99/pano/internal/logging"
	"github.com/kiesman99/pano/internal/pixel"
)

// Output is a successful stitch.
type Output struct {
	// Image is the panorama before conversion, after cropping.
	Image *engine.FloatImage
	// Data is the interleaved RGB buffer, Width*Height*3 bytes.
	Data          []byte
	Width, Height int
	// Warning is set when the output file could not be written.
	Warning    string
	OutputPath string
	Elapsed    time.Duration
}

// Orchestrator runs stitching requests. It holds no configuration of its
// own; every call receives the snapshot to use.
type Orchestrator struct {
	factory Factory
	logger  *slog.Logger
	write   func(path string, img *engine.FloatImage) error
	alloc   func(n int) []byte
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithEngine replaces the reference engine.
func WithEngine(f Factory) Option {
	return func(o *Orchestrator) { o.factory = f }
}

// WithLogger sets the logger. The process-wide logger from package logging
// is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithWriter replaces the function that writes the output file.
func WithWriter(fn func(path string, img *engine.FloatImage) error) Option {
	return func(o *Orchestrator) { o.write = fn }
}

// WithBuffers makes the converter fill buffers returned by alloc, which may
// be longer or shorter than requested.
func WithBuffers(alloc func(n int) []byte) Option {
	return func(o *Orchestrator) { o.alloc = alloc }
}

// New creates an Orchestrator backed by the reference engine unless
// WithEngine says otherwise.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		write: engine.WriteImage,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.factory == nil {
		o.factory = EngineFactory{Logger: o.logger}
	}
	return o
}

func (o *Orchestrator) log() *slog.Logger {
	if o.logger != nil {
		return o.logger
	}
	return logging.Logger()
}

// Stitch builds a panorama from paths using cfg. When out is not empty the
// cropped float image is also written there; a failed write is reported as
// Output.Warning and does not fail the call. Errors are always *Error.
func (o *Orchestrator) Stitch(ctx context.Context, cfg *config.Config, paths []string, out string) (*Output, error) {
	start := time.Now()
	if cfg == nil {
		return nil, newError(KindConfiguration, "no configuration loaded", nil)
	}
	if len(paths) < 2 {
		return nil, newError(KindInput, "need at least two images to stitch", nil)
	}

	var builder engine.Builder
	if cfg.Mode == config.ModeCylindrical {
		builder = o.factory.Cylinder(cfg)
	} else {
		builder = o.factory.General(cfg)
	}

	o.log().Info("stitching images", "count", len(paths), "mode", cfg.Mode.String())
	img, err := o.build(ctx, builder, paths)
	if err != nil {
		return nil, err
	}

	if cfg.Crop {
		img = engine.Crop(img)
	}

	var dst []byte
	if o.alloc != nil {
		dst = o.alloc(img.Width() * img.Height() * pixel.Channels)
	}
	data, err := pixel.ConvertInto(dst, img)
	if err != nil {
		return nil, newError(KindEngine, "convert panorama", err)
	}

	res := &Output{
		Image:      img,
		Data:       data,
		Width:      img.Width(),
		Height:     img.Height(),
		OutputPath: out,
	}
	if out != "" {
		if err := o.write(out, img); err != nil {
			res.Warning = fmt.Sprintf("Warning: Failed to write output file: %v", err)
			o.log().Warn("failed to write output file", "path", out, "error", err)
		}
	}
	res.Elapsed = time.Since(start)
	o.log().Info("stitched panorama", "width", res.Width, "height", res.Height, "elapsed", res.Elapsed)
	return res, nil
}

// build runs the engine and turns a panic into a KindUnknown error.
func (o *Orchestrator) build(ctx context.Context, b engine.Builder, paths []string) (img *engine.FloatImage, err error) {
	defer func() {
		if r := recover(); r != nil {
			o.log().Error("engine panicked", "panic", r)
			img, err = nil, newError(KindUnknown, "unknown error occurred during stitching", fmt.Errorf("%v", r))
		}
	}()

	img, err = b.Build(ctx, paths)
	if err != nil {
		return nil, newError(KindEngine, "stitching failed", err)
	}
	if img == nil {
		return nil, newError(KindEngine, "engine returned no image", nil)
	}
	return img, nil
}
