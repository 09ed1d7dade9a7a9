package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/kiesman99/pano/internal/logging"
)

// ErrTooFewImages is returned when Build is given fewer than two images.
var ErrTooFewImages = errors.New("engine: need at least two images")

// ErrWorkerPanic wraps a panic raised inside a parallel worker.
var ErrWorkerPanic = errors.New("engine: worker panicked")

// Builder turns a list of image paths into one panorama.
type Builder interface {
	Build(ctx context.Context, paths []string) (*FloatImage, error)
}

// Options tunes the reference engine.
type Options struct {
	// Ordered restricts matching to consecutive images.
	Ordered bool
	// WorkingSize bounds the longest side used for alignment.
	WorkingSize int
	// Levels is the minimum number of pyramid levels.
	Levels int
	// MinOverlap is the smallest overlap, as a fraction of the smaller
	// working image, a pair may have.
	MinOverlap float64
	// MinCorrelation rejects pairs that match worse than this.
	MinCorrelation float64
	// Multipass drops pairs whose residual exceeds InlierThreshold (working
	// pixels) and solves the placement again.
	Multipass       bool
	InlierThreshold float64
	// FocalLength is the 35mm-equivalent focal length for the cylinder.
	FocalLength float64
	// Straighten levels a drifting panorama when the drift slope exceeds
	// SlopePlain.
	Straighten bool
	SlopePlain float64
	// MaxOutputSize bounds both sides of the canvas. Zero disables it.
	MaxOutputSize int
	// LazyRead keeps only the working pyramids in memory and decodes each
	// image again when blending.
	LazyRead bool
	Logger   *slog.Logger
}

// DefaultOptions returns the options used when nothing else is configured.
func DefaultOptions() Options {
	return Options{
		WorkingSize:     800,
		Levels:          3,
		MinOverlap:      0.1,
		MinCorrelation:  0.5,
		Multipass:       true,
		InlierThreshold: 3.5,
		FocalLength:     37,
		Straighten:      true,
		SlopePlain:      8e-3,
		MaxOutputSize:   8000,
		LazyRead:        true,
	}
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return logging.Logger()
}

// Stitcher composes images that differ by a planar translation.
type Stitcher struct {
	opts Options
}

// NewStitcher creates a planar stitcher.
func NewStitcher(opts Options) *Stitcher {
	return &Stitcher{opts: opts}
}

// Build implements Builder.
func (s *Stitcher) Build(ctx context.Context, paths []string) (*FloatImage, error) {
	return build(ctx, paths, s.opts, nil)
}

// CylinderStitcher projects every image onto a cylinder before composing,
// which suits panoramas taken by rotating the camera in place.
type CylinderStitcher struct {
	opts Options
}

// NewCylinderStitcher creates a cylindrical stitcher.
func NewCylinderStitcher(opts Options) *CylinderStitcher {
	return &CylinderStitcher{opts: opts}
}

// Build implements Builder.
func (s *CylinderStitcher) Build(ctx context.Context, paths []string) (*FloatImage, error) {
	return build(ctx, paths, s.opts, func(img *FloatImage) *FloatImage {
		return warpCylinder(img, focalPixels(s.opts.FocalLength, img.W))
	})
}

// build is the shared pipeline: load, align, place, blend, straighten.
func build(ctx context.Context, paths []string, opts Options, warp func(*FloatImage) *FloatImage) (*FloatImage, error) {
	if len(paths) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewImages, len(paths))
	}
	if warp == nil {
		warp = func(img *FloatImage) *FloatImage { return img }
	}
	log := opts.logger()
	var err error

	load := func(k int) (*FloatImage, error) {
		img, err := ReadImage(paths[k])
		if err != nil {
			return nil, err
		}
		return warp(img), nil
	}

	// Warping never grows an image, so the decoded sizes bound the working
	// factor for every variant.
	dims := make([]image.Point, len(paths))
	for k, path := range paths {
		if dims[k], err = ReadSize(path); err != nil {
			return nil, err
		}
	}
	factor := workingFactor(dims, opts.WorkingSize)

	images := make([]*FloatImage, len(paths))
	sizes := make([]image.Point, len(paths))
	pyrs := make([]*pyramid, len(paths))
	err = forEach(ctx, len(paths), !opts.LazyRead, func(k int) error {
		img, err := load(k)
		if err != nil {
			return err
		}
		sizes[k] = image.Pt(img.W, img.H)
		pyrs[k] = buildPyramid(img, factor, max(1, opts.Levels))
		if !opts.LazyRead {
			images[k] = img
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	matches, err := matchPairs(ctx, pyrs, opts)
	if err != nil {
		return nil, err
	}
	log.Debug("matched image pairs", "images", len(paths), "pairs", len(matches))

	pos, err := solvePositions(len(paths), matches, opts.Multipass, opts.InlierThreshold/factor)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	canvas, err := compose(sizes, pos, func(k int) (*FloatImage, error) {
		if images[k] != nil {
			img := images[k]
			images[k] = nil
			return img, nil
		}
		return load(k)
	}, opts.MaxOutputSize)
	if err != nil {
		return nil, err
	}

	if opts.Straighten {
		if slope := driftSlope(pos); math.Abs(slope) > opts.SlopePlain {
			log.Debug("straightening panorama", "slope", slope)
			canvas = shear(canvas, slope)
			if opts.MaxOutputSize > 0 && canvas.H > opts.MaxOutputSize {
				return nil, fmt.Errorf("%w: %dx%d exceeds %d", ErrTooLarge, canvas.W, canvas.H, opts.MaxOutputSize)
			}
		}
	}
	log.Debug("composed panorama", "width", canvas.W, "height", canvas.H)
	return canvas, nil
}

// forEach calls fn for 0..n-1, concurrently when parallel is set.
func forEach(ctx context.Context, n int, parallel bool, fn func(int) error) error {
	if !parallel {
		for k := range n {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := guard(fn, k); err != nil {
				return err
			}
		}
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for k := range n {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return guard(fn, k)
		})
	}
	return g.Wait()
}

// guard runs fn(k) and turns a panic into an ErrWorkerPanic error. errgroup
// does not carry panics back to Wait, so every worker body goes through it.
func guard(fn func(int) error, k int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrWorkerPanic, r)
		}
	}()
	return fn(k)
}
