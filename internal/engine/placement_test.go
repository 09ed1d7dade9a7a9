package engine

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidatePairs(t *testing.T) {
	assert.Equal(t, [][2]int{{0, 1}, {1, 2}, {2, 3}}, candidatePairs(4, true))
	assert.Equal(t, [][2]int{{0, 1}, {0, 2}, {1, 2}}, candidatePairs(3, false))
	assert.Empty(t, candidatePairs(1, false))
}

func TestSolvePositions(t *testing.T) {
	matches := []match{
		{i: 0, j: 1, dx: 100, dy: 5, score: 0.9},
		{i: 1, j: 2, dx: 100, dy: -5, score: 0.9},
		{i: 0, j: 2, dx: 200, dy: 0, score: 0.9},
	}

	pos, err := solvePositions(3, matches, false, 0)
	require.NoError(t, err)
	want := []point{{0, 0}, {100, 5}, {200, 0}}
	opt := cmp.Comparer(func(a, b point) bool {
		return math.Abs(a.x-b.x) < 1e-6 && math.Abs(a.y-b.y) < 1e-6
	})
	if diff := cmp.Diff(want, pos, cmp.AllowUnexported(point{}), opt); diff != "" {
		t.Errorf("positions mismatch (-want +got):\n%s", diff)
	}
}

func TestSolvePositionsDropsOutlier(t *testing.T) {
	matches := []match{
		{i: 0, j: 1, dx: 100, dy: 0, score: 0.9},
		{i: 1, j: 2, dx: 100, dy: 0, score: 0.9},
		{i: 2, j: 3, dx: 100, dy: 0, score: 0.9},
		{i: 0, j: 3, dx: 300, dy: 0, score: 0.9},
		{i: 0, j: 2, dx: 260, dy: 40, score: 0.9},
	}

	single, err := solvePositions(4, matches, false, 3.5)
	require.NoError(t, err)
	assert.Greater(t, math.Abs(single[2].x-200)+math.Abs(single[2].y), 1.0)

	pos, err := solvePositions(4, matches, true, 3.5)
	require.NoError(t, err)
	assert.InDelta(t, 200, pos[2].x, 1e-6)
	assert.InDelta(t, 0, pos[2].y, 1e-6)
	assert.InDelta(t, 300, pos[3].x, 1e-6)
}

func TestSolvePositionsDisconnected(t *testing.T) {
	matches := []match{{i: 0, j: 1, dx: 10, dy: 0, score: 1}}
	_, err := solvePositions(3, matches, true, 3.5)
	assert.ErrorIs(t, err, ErrNoOverlap)
}

func TestWarpCylinder(t *testing.T) {
	img := NewFloatImage(101, 60, 3)
	for y := range img.H {
		for x := range img.W {
			p := img.At(x, y)
			p[0], p[1], p[2] = float32(x)/100, float32(y)/59, 0.5
		}
	}

	f := focalPixels(36, img.W)
	out := warpCylinder(img, f)
	assert.Less(t, out.W, img.W)
	assert.Equal(t, img.H, out.H)

	// The centre column maps onto itself.
	cx := (out.W - 1) / 2
	for y := range out.H {
		assert.InDelta(t, 0.5, out.At(cx, y)[0], 0.01)
		assert.InDelta(t, float32(y)/59, out.At(cx, y)[1], 1e-4)
	}
	// Corners stretch vertically past the source and become holes.
	assert.True(t, out.IsHole(0, 0))
	assert.True(t, out.IsHole(out.W-1, out.H-1))
}

func TestShear(t *testing.T) {
	img := NewFloatImage(11, 4, 3)
	img.Fill(0.5)

	down := shear(img, 0.2)
	assert.Equal(t, 11, down.W)
	assert.Equal(t, 6, down.H)
	// Columns at the left move down, columns at the right stay put.
	assert.True(t, down.IsHole(0, 0))
	assert.False(t, down.IsHole(0, 2))
	assert.False(t, down.IsHole(10, 0))
	assert.True(t, down.IsHole(10, 5))

	up := shear(img, -0.2)
	assert.Equal(t, 6, up.H)
	assert.False(t, up.IsHole(0, 0))
	assert.True(t, up.IsHole(10, 0))
}

func TestDriftSlope(t *testing.T) {
	assert.InDelta(t, 0.05, driftSlope([]point{{0, 0}, {100, 2}, {200, 10}}), 1e-9)
	assert.Zero(t, driftSlope([]point{{0, 0}, {0.5, 10}}))
}
