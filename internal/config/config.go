// Package config loads and validates the stitching configuration.
//
// A Config is immutable once Load returns it. Callers that need a
// process-wide configuration keep a pointer to the last successfully
// loaded value and swap it only when a new Load succeeds, so a failed
// reload never leaves a half-applied configuration behind.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// DefaultPath is the configuration file used when no path is given.
const DefaultPath = "config.cfg"

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Mode selects the stitching strategy. Exactly one mode is active in a
// loaded Config.
type Mode int

const (
	// ModeCameraEstimation estimates camera parameters and accepts
	// unordered input.
	ModeCameraEstimation Mode = iota
	// ModeCylindrical projects every image onto a cylinder first.
	ModeCylindrical
	// ModePlanar composes ordered images on a flat plane.
	ModePlanar
)

func (m Mode) String() string {
	switch m {
	case ModeCameraEstimation:
		return "camera"
	case ModeCylindrical:
		return "cylinder"
	case ModePlanar:
		return "planar"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Tuning carries the engine's detection, matching and optimization
// constants.
type Tuning struct {
	SiftWorkingSize       int
	NumOctave             int
	NumScale              int
	ScaleFactor           float64
	GaussSigma            float64
	GaussWindowFactor     float64
	JudgeExtremaDiffThres float64
	ContrastThres         float64
	PreColorThres         float64
	EdgeRatio             float64
	CalcOffsetDepth       int
	OffsetThres           float64
	OriRadius             float64
	OriHistSmoothCount    int
	DescHistScaleFactor   float64
	DescIntFactor         float64
	MatchRejectNextRatio  float64
	RansacIterations      int
	RansacInlierThres     float64
	InlierInMatchRatio    float64
	InlierInPointsRatio   float64
	SlopePlain            float64
	LMLambda              float64
	MultipassBA           int
}

// Config is a validated configuration set.
type Config struct {
	Mode Mode
	// Translation restricts planar mode to a pure translation model.
	Translation   bool
	OrderedInput  bool
	Crop          bool
	Straighten    bool
	FocalLength   float64
	MaxOutputSize int
	LazyRead      bool
	Multiband     int
	Tuning        Tuning

	// Source is the file the configuration was read from, empty for
	// built-in defaults.
	Source string
}

type loadOptions struct {
	envPrefix string
}

// Option customizes Load.
type Option func(*loadOptions)

// WithEnv lets environment variables named PREFIX_KEY override values from
// the file.
func WithEnv(prefix string) Option {
	return func(o *loadOptions) {
		o.envPrefix = prefix
	}
}

// Load reads the configuration at path, or DefaultPath when path is empty.
// Keys missing from the source keep their built-in defaults and unknown keys
// are ignored. The result is validated before it is returned.
func Load(path string, opts ...Option) (*Config, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}
	if path == "" {
		path = DefaultPath
	}

	v := newViper(o)
	if err := readSource(v, path); err != nil {
		return nil, err
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	cfg.Source = path
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg, err := decode(newViper(loadOptions{}))
	if err != nil {
		panic("config: built-in defaults are invalid: " + err.Error())
	}
	return cfg
}

func newViper(o loadOptions) *viper.Viper {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(strings.ToLower(k), val)
	}
	if o.envPrefix != "" {
		v.SetEnvPrefix(o.envPrefix)
		v.AutomaticEnv()
	}
	return v
}

// decoder converts viper values with cast and keeps the first error.
type decoder struct {
	v   *viper.Viper
	err error
}

func (d *decoder) fail(key string, err error) {
	if d.err == nil {
		d.err = fmt.Errorf("%w: %s: %v", ErrInvalid, key, err)
	}
}

func (d *decoder) boolean(key string) bool {
	b, err := cast.ToBoolE(d.v.Get(strings.ToLower(key)))
	if err != nil {
		d.fail(key, err)
	}
	return b
}

func (d *decoder) integer(key string) int {
	i, err := cast.ToIntE(d.v.Get(strings.ToLower(key)))
	if err != nil {
		d.fail(key, err)
	}
	return i
}

func (d *decoder) float(key string) float64 {
	f, err := cast.ToFloat64E(d.v.Get(strings.ToLower(key)))
	if err != nil {
		d.fail(key, err)
	}
	return f
}

func decode(v *viper.Viper) (*Config, error) {
	d := &decoder{v: v}

	cylinder := d.boolean(KeyCylinder)
	trans := d.boolean(KeyTrans)
	estimate := d.boolean(KeyEstimateCamera)
	ordered := d.boolean(KeyOrderedInput)

	cfg := &Config{
		Translation:   trans,
		OrderedInput:  ordered,
		Crop:          d.boolean(KeyCrop),
		Straighten:    d.boolean(KeyStraighten),
		FocalLength:   d.float(KeyFocalLength),
		MaxOutputSize: d.integer(KeyMaxOutputSize),
		LazyRead:      d.boolean(KeyLazyRead),
		Multiband:     d.integer(KeyMultiband),
		Tuning: Tuning{
			SiftWorkingSize:       d.integer(KeySiftWorkingSize),
			NumOctave:             d.integer(KeyNumOctave),
			NumScale:              d.integer(KeyNumScale),
			ScaleFactor:           d.float(KeyScaleFactor),
			GaussSigma:            d.float(KeyGaussSigma),
			GaussWindowFactor:     d.float(KeyGaussWindowFactor),
			JudgeExtremaDiffThres: d.float(KeyJudgeExtremaDiffThres),
			ContrastThres:         d.float(KeyContrastThres),
			PreColorThres:         d.float(KeyPreColorThres),
			EdgeRatio:             d.float(KeyEdgeRatio),
			CalcOffsetDepth:       d.integer(KeyCalcOffsetDepth),
			OffsetThres:           d.float(KeyOffsetThres),
			OriRadius:             d.float(KeyOriRadius),
			OriHistSmoothCount:    d.integer(KeyOriHistSmoothCount),
			DescHistScaleFactor:   d.float(KeyDescHistScaleFactor),
			DescIntFactor:         d.float(KeyDescIntFactor),
			MatchRejectNextRatio:  d.float(KeyMatchRejectNextRatio),
			RansacIterations:      d.integer(KeyRansacIterations),
			RansacInlierThres:     d.float(KeyRansacInlierThres),
			InlierInMatchRatio:    d.float(KeyInlierInMatchRatio),
			InlierInPointsRatio:   d.float(KeyInlierInPointsRatio),
			SlopePlain:            d.float(KeySlopePlain),
			LMLambda:              d.float(KeyLMLambda),
			MultipassBA:           d.integer(KeyMultipassBA),
		},
	}
	if d.err != nil {
		return nil, d.err
	}

	mode, err := resolveMode(cylinder, trans, estimate, ordered)
	if err != nil {
		return nil, err
	}
	cfg.Mode = mode

	if err := cfg.validateRanges(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveMode turns the raw mode flags into a Mode, rejecting conflicting
// combinations.
func resolveMode(cylinder, trans, estimate, ordered bool) (Mode, error) {
	set := 0
	for _, flag := range []bool{cylinder, trans, estimate} {
		if flag {
			set++
		}
	}
	if set >= 2 {
		return 0, fmt.Errorf("%w: at most one of %s, %s and %s may be set",
			ErrInvalid, KeyCylinder, KeyTrans, KeyEstimateCamera)
	}
	if !estimate && !ordered {
		return 0, fmt.Errorf("%w: %s is required when %s is off",
			ErrInvalid, KeyOrderedInput, KeyEstimateCamera)
	}

	switch {
	case cylinder:
		return ModeCylindrical, nil
	case estimate:
		return ModeCameraEstimation, nil
	default:
		return ModePlanar, nil
	}
}

func (c *Config) validateRanges() error {
	if c.Mode == ModeCylindrical && c.FocalLength <= 0 {
		return fmt.Errorf("%w: %s must be positive in cylinder mode", ErrInvalid, KeyFocalLength)
	}
	if c.MaxOutputSize <= 0 {
		return fmt.Errorf("%w: %s must be positive", ErrInvalid, KeyMaxOutputSize)
	}
	if c.Tuning.SiftWorkingSize <= 0 {
		return fmt.Errorf("%w: %s must be positive", ErrInvalid, KeySiftWorkingSize)
	}
	if c.Tuning.NumOctave < 1 {
		return fmt.Errorf("%w: %s must be at least 1", ErrInvalid, KeyNumOctave)
	}
	if c.Tuning.InlierInPointsRatio < 0 || c.Tuning.InlierInPointsRatio >= 1 {
		return fmt.Errorf("%w: %s must be in [0, 1)", ErrInvalid, KeyInlierInPointsRatio)
	}
	if c.Multiband < 0 {
		return fmt.Errorf("%w: %s must not be negative", ErrInvalid, KeyMultiband)
	}
	return nil
}

// Map returns the configuration as recognized keys and values. Loading the
// returned map yields an equal Config.
func (c *Config) Map() map[string]any {
	t := c.Tuning
	return map[string]any{
		KeyCylinder:       btoi(c.Mode == ModeCylindrical),
		KeyTrans:          btoi(c.Translation),
		KeyEstimateCamera: btoi(c.Mode == ModeCameraEstimation),
		KeyOrderedInput:   btoi(c.OrderedInput),
		KeyCrop:           btoi(c.Crop),
		KeyStraighten:     btoi(c.Straighten),
		KeyFocalLength:    c.FocalLength,
		KeyMaxOutputSize:  c.MaxOutputSize,
		KeyLazyRead:       btoi(c.LazyRead),
		KeyMultiband:      c.Multiband,

		KeySiftWorkingSize:       t.SiftWorkingSize,
		KeyNumOctave:             t.NumOctave,
		KeyNumScale:              t.NumScale,
		KeyScaleFactor:           t.ScaleFactor,
		KeyGaussSigma:            t.GaussSigma,
		KeyGaussWindowFactor:     t.GaussWindowFactor,
		KeyJudgeExtremaDiffThres: t.JudgeExtremaDiffThres,
		KeyContrastThres:         t.ContrastThres,
		KeyPreColorThres:         t.PreColorThres,
		KeyEdgeRatio:             t.EdgeRatio,
		KeyCalcOffsetDepth:       t.CalcOffsetDepth,
		KeyOffsetThres:           t.OffsetThres,
		KeyOriRadius:             t.OriRadius,
		KeyOriHistSmoothCount:    t.OriHistSmoothCount,
		KeyDescHistScaleFactor:   t.DescHistScaleFactor,
		KeyDescIntFactor:         t.DescIntFactor,
		KeyMatchRejectNextRatio:  t.MatchRejectNextRatio,
		KeyRansacIterations:      t.RansacIterations,
		KeyRansacInlierThres:     t.RansacInlierThres,
		KeyInlierInMatchRatio:    t.InlierInMatchRatio,
		KeyInlierInPointsRatio:   t.InlierInPointsRatio,
		KeySlopePlain:            t.SlopePlain,
		KeyLMLambda:              t.LMLambda,
		KeyMultipassBA:           t.MultipassBA,
	}
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}
