package engine_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiesman99/pano/internal/engine"
	"github.com/kiesman99/pano/internal/engine/enginetest"
)

func testOptions() engine.Options {
	opts := engine.DefaultOptions()
	opts.Straighten = false
	opts.MinOverlap = 0.2
	return opts
}

func TestStitcherBuildsOverlappingPair(t *testing.T) {
	for _, lazy := range []bool{true, false} {
		name := "eager"
		if lazy {
			name = "lazy"
		}
		t.Run(name, func(t *testing.T) {
			scene, paths := enginetest.WritePair(t)
			opts := testOptions()
			opts.LazyRead = lazy

			pano, err := engine.NewStitcher(opts).Build(context.Background(), paths)
			require.NoError(t, err)
			assert.Equal(t, 240, pano.Width())
			assert.Equal(t, 110, pano.Height())
			assert.Equal(t, 3, pano.Channels())

			// Top right and bottom left corners are not covered.
			assert.True(t, pano.IsHole(239, 0))
			assert.True(t, pano.IsHole(0, 109))

			cropped := engine.Crop(pano)
			require.Equal(t, 240, cropped.Width())
			require.Equal(t, 90, cropped.Height())
			for _, pt := range [][2]int{{5, 5}, {120, 40}, {200, 80}} {
				want := scene.At(pt[0], pt[1]+10)
				got := cropped.At(pt[0], pt[1])
				for c := range 3 {
					assert.InDelta(t, want[c], float64(got[c]), 0.01, "pixel %v channel %d", pt, c)
				}
			}
		})
	}
}

func TestStitcherRejectsTooFewImages(t *testing.T) {
	_, paths := enginetest.WritePair(t)
	_, err := engine.NewStitcher(testOptions()).Build(context.Background(), paths[:1])
	assert.ErrorIs(t, err, engine.ErrTooFewImages)
}

func TestStitcherMissingFile(t *testing.T) {
	_, paths := enginetest.WritePair(t)
	paths[1] = filepath.Join(t.TempDir(), "missing.png")
	_, err := engine.NewStitcher(testOptions()).Build(context.Background(), paths)
	assert.Error(t, err)
}

func TestStitcherMaxOutputSize(t *testing.T) {
	_, paths := enginetest.WritePair(t)
	opts := testOptions()
	opts.MaxOutputSize = 200

	_, err := engine.NewStitcher(opts).Build(context.Background(), paths)
	assert.ErrorIs(t, err, engine.ErrTooLarge)
}

func TestStitcherUnrelatedImages(t *testing.T) {
	dir := t.TempDir()
	a := enginetest.NewScene(160, 100, 1).WritePNG(t, dir, "a.png", enginetest.OverlappingPair[0])
	b := enginetest.NewScene(160, 100, 99).WritePNG(t, dir, "b.png", enginetest.OverlappingPair[0])
	opts := testOptions()
	opts.MinCorrelation = 0.95

	_, err := engine.NewStitcher(opts).Build(context.Background(), []string{a, b})
	assert.ErrorIs(t, err, engine.ErrNoOverlap)
}

func TestStitcherCancelled(t *testing.T) {
	_, paths := enginetest.WritePair(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.NewStitcher(testOptions()).Build(ctx, paths)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCylinderStitcherProducesImage(t *testing.T) {
	_, paths := enginetest.WritePair(t)
	opts := testOptions()
	opts.MinCorrelation = 0.3
	opts.FocalLength = 200

	pano, err := engine.NewCylinderStitcher(opts).Build(context.Background(), paths)
	require.NoError(t, err)
	assert.Greater(t, pano.Width(), 160)
	assert.GreaterOrEqual(t, pano.Height(), 100)

	valid := 0
	for y := range pano.Height() {
		for x := range pano.Width() {
			if !pano.IsHole(x, y) {
				valid++
			}
		}
	}
	assert.Greater(t, valid, 160*100)
}

func TestCrop(t *testing.T) {
	testCases := []struct {
		name          string
		w, h          int
		holes         func(x, y int) bool
		wantW, wantH  int
		wantUnchanged bool
	}{
		{
			name: "no holes",
			w:    10, h: 6,
			holes:         func(x, y int) bool { return false },
			wantW:         10,
			wantH:         6,
			wantUnchanged: true,
		},
		{
			name: "ragged top",
			w:    10, h: 6,
			holes: func(x, y int) bool { return y == 0 && x > 3 },
			wantW: 10,
			wantH: 5,
		},
		{
			name: "staggered pair",
			w:    12, h: 8,
			holes: func(x, y int) bool { return (x >= 4 && y < 2) || (x < 8 && y >= 6) },
			wantW: 12,
			wantH: 4,
		},
		{
			name: "all holes",
			w:    4, h: 4,
			holes:         func(x, y int) bool { return true },
			wantW:         4,
			wantH:         4,
			wantUnchanged: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			img := engine.NewFloatImage(tc.w, tc.h, 3)
			for y := range tc.h {
				for x := range tc.w {
					if tc.holes(x, y) {
						img.At(x, y)[0] = engine.NoData
					} else {
						img.At(x, y)[0] = 0.5
					}
				}
			}

			got := engine.Crop(img)
			assert.Equal(t, tc.wantW, got.Width())
			assert.Equal(t, tc.wantH, got.Height())
			if tc.wantUnchanged {
				assert.Same(t, img, got)
				return
			}
			for y := range got.Height() {
				for x := range got.Width() {
					assert.False(t, got.IsHole(x, y), "hole at %d,%d", x, y)
				}
			}
		})
	}
}

func TestFloatImageSample(t *testing.T) {
	img := engine.NewFloatImage(2, 2, 1)
	copy(img.Pix, []float32{0, 1, 1, 0})
	px := make([]float32, 1)

	require.True(t, img.Sample(0.5, 0.5, px))
	assert.InDelta(t, 0.5, px[0], 1e-6)
	assert.True(t, img.Sample(-0.4, 0, px))
	assert.InDelta(t, 0, px[0], 1e-6)
	assert.False(t, img.Sample(-0.6, 0, px))
	assert.False(t, img.Sample(0, 1.6, px))

	img.Pix[3] = engine.NoData
	assert.False(t, img.Sample(0.5, 0.5, px))
}
