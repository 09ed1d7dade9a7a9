// Package bridge holds the process-wide stitching state behind the C and
// mobile entry points and turns every outcome into a Result.
//
// A Bridge keeps the last successfully loaded configuration. InitConfig
// replaces it only when the new file loads and validates, and Stitch loads
// config.DefaultPath on first use when nothing was committed. Concurrent
// calls are safe: each Stitch works on one configuration snapshot.
package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/kiesman99/pano/internal/config"
	"github.com/kiesman99/pano/internal/logging"
	"github.com/kiesman99/pano/internal/pixel"
	"github.com/kiesman99/pano/internal/stitch"
	"github.com/kiesman99/pano/internal/version"
)

// Bridge is the state shared by every boundary call.
type Bridge struct {
	cfg     atomic.Pointer[config.Config]
	orch    *stitch.Orchestrator
	logger  *slog.Logger
	cfgOpts []config.Option
}

// Option customizes a Bridge.
type Option func(*bridgeOptions)

type bridgeOptions struct {
	stitch []stitch.Option
	config []config.Option
	logger *slog.Logger
}

// WithStitchOptions passes options to the underlying Orchestrator.
func WithStitchOptions(opts ...stitch.Option) Option {
	return func(o *bridgeOptions) { o.stitch = append(o.stitch, opts...) }
}

// WithConfigOptions passes options to every config.Load.
func WithConfigOptions(opts ...config.Option) Option {
	return func(o *bridgeOptions) { o.config = append(o.config, opts...) }
}

// WithLogger sets the logger for the bridge and its Orchestrator.
func WithLogger(l *slog.Logger) Option {
	return func(o *bridgeOptions) { o.logger = l }
}

// New creates a Bridge with no committed configuration.
func New(opts ...Option) *Bridge {
	var o bridgeOptions
	for _, opt := range opts {
		opt(&o)
	}
	so := []stitch.Option{stitch.WithBuffers(getBuffer)}
	if o.logger != nil {
		so = append(so, stitch.WithLogger(o.logger))
	}
	return &Bridge{
		orch:    stitch.New(append(so, o.stitch...)...),
		logger:  o.logger,
		cfgOpts: o.config,
	}
}

func (b *Bridge) log() *slog.Logger {
	if b.logger != nil {
		return b.logger
	}
	return logging.Logger()
}

// Default is the Bridge used by the C and mobile entry points.
var Default = New()

// InitConfig loads path (config.DefaultPath when empty) and commits it. On
// failure the previously committed configuration stays in effect.
func (b *Bridge) InitConfig(path string) bool {
	_, err := b.load(path)
	return err == nil
}

// LoadConfig is InitConfig reporting why a load failed.
func (b *Bridge) LoadConfig(path string) (*config.Config, error) {
	return b.load(path)
}

func (b *Bridge) load(path string) (*config.Config, error) {
	cfg, err := config.Load(path, b.cfgOpts...)
	if err != nil {
		b.log().Warn("configuration rejected", "path", path, "error", err)
		return nil, err
	}
	b.cfg.Store(cfg)
	b.log().Info("configuration loaded", "path", cfg.Source, "mode", cfg.Mode.String())
	return cfg, nil
}

// SetConfig commits an already validated configuration.
func (b *Bridge) SetConfig(cfg *config.Config) {
	if cfg != nil {
		b.cfg.Store(cfg)
	}
}

// Config returns the committed configuration, or nil.
func (b *Bridge) Config() *config.Config {
	return b.cfg.Load()
}

// Stitch stitches paths and writes the panorama to out when it is not
// empty. It never returns nil and never panics.
func (b *Bridge) Stitch(paths []string, out string) *Result {
	return b.StitchContext(context.Background(), paths, out)
}

// StitchContext is Stitch with a context for cancellation.
func (b *Bridge) StitchContext(ctx context.Context, paths []string, out string) (res *Result) {
	defer func() {
		if r := recover(); r != nil {
			b.log().Error("stitch panicked", "panic", r)
			res = failure(stitch.KindUnknown, fmt.Sprintf("unknown error occurred during stitching: %v", r))
		}
	}()

	cfg := b.cfg.Load()
	if cfg == nil {
		var err error
		if cfg, err = b.load(""); err != nil {
			return failure(stitch.KindConfiguration, "Failed to initialize configuration: "+err.Error())
		}
	}

	o, err := b.orch.Stitch(ctx, cfg, paths, out)
	if err != nil {
		r := failure(stitch.KindOf(err), err.Error())
		r.Mode = cfg.Mode.String()
		return r
	}
	r := Package(o.Data, o.Width, o.Height, pixel.Channels, true, o.Warning)
	if o.Warning != "" {
		r.Kind = stitch.KindOutputWrite
	}
	r.OutputPath = o.OutputPath
	r.Mode = cfg.Mode.String()
	return r
}

// Release releases r. It is the same as r.Release.
func (b *Bridge) Release(r *Result) {
	r.Release()
}

// Version returns the library version.
func (b *Bridge) Version() string {
	return version.Version
}

// Greeting returns a short greeting used to check that a binding works.
func (b *Bridge) Greeting(name string) string {
	if name == "" {
		name = "World"
	}
	return fmt.Sprintf("Hello, %s!", name)
}

// WithResult stitches with b, calls fn with the result and releases the
// result when fn returns, whatever fn does.
func WithResult(b *Bridge, paths []string, out string, fn func(*Result) error) error {
	r := b.Stitch(paths, out)
	defer r.Release()
	return fn(r)
}
