package stitch

import (
	"log/slog"
	"math"

	"github.com/kiesman99/pano/internal/config"
	"github.com/kiesman99/pano/internal/engine"
)

// minOverlapFloor is the smallest overlap fraction the reference engine is
// asked to accept, whatever INLIER_IN_POINTS_RATIO says.
const minOverlapFloor = 0.2

// Factory builds the engine variant for a configuration.
type Factory interface {
	// Cylinder returns the cylindrical variant.
	Cylinder(cfg *config.Config) engine.Builder
	// General returns the variant used by every other mode.
	General(cfg *config.Config) engine.Builder
}

// EngineFactory builds the reference engine.
type EngineFactory struct {
	Logger *slog.Logger
}

// Cylinder implements Factory.
func (f EngineFactory) Cylinder(cfg *config.Config) engine.Builder {
	return engine.NewCylinderStitcher(f.options(cfg))
}

// General implements Factory.
func (f EngineFactory) General(cfg *config.Config) engine.Builder {
	return engine.NewStitcher(f.options(cfg))
}

func (f EngineFactory) options(cfg *config.Config) engine.Options {
	opts := EngineOptions(cfg)
	opts.Logger = f.Logger
	return opts
}

// EngineOptions maps a configuration onto the reference engine's options.
func EngineOptions(cfg *config.Config) engine.Options {
	opts := engine.DefaultOptions()
	opts.Ordered = cfg.OrderedInput
	opts.WorkingSize = cfg.Tuning.SiftWorkingSize
	opts.Levels = cfg.Tuning.NumOctave
	opts.MinOverlap = math.Max(minOverlapFloor, cfg.Tuning.InlierInPointsRatio)
	opts.Multipass = cfg.Tuning.MultipassBA > 0
	opts.InlierThreshold = cfg.Tuning.RansacInlierThres
	opts.FocalLength = cfg.FocalLength
	opts.Straighten = cfg.Straighten
	opts.SlopePlain = cfg.Tuning.SlopePlain
	opts.MaxOutputSize = cfg.MaxOutputSize
	opts.LazyRead = cfg.LazyRead
	return opts
}
