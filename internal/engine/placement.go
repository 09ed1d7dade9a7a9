package engine

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// ErrNoOverlap is returned when an image could not be tied to the rest of
// the panorama.
var ErrNoOverlap = errors.New("engine: insufficient overlap")

type point struct{ x, y float64 }

// connected reports whether the matches link all n images, and the first
// image that is unreachable from image 0 otherwise.
func connected(n int, matches []match) (bool, int) {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	for _, m := range matches {
		parent[find(m.i)] = find(m.j)
	}
	root := find(0)
	for i := 1; i < n; i++ {
		if find(i) != root {
			return false, i
		}
	}
	return true, -1
}

// solvePositions places image 0 at the origin and finds the other origins
// as the weighted least-squares solution of all pairwise offsets. With
// multipass enabled, matches whose residual exceeds threshold are dropped
// (as long as the images stay connected) and the system is solved again.
func solvePositions(n int, matches []match, multipass bool, threshold float64) ([]point, error) {
	if ok, missing := connected(n, matches); !ok {
		return nil, fmt.Errorf("%w: image %d does not match any connected image", ErrNoOverlap, missing)
	}

	pos, err := leastSquares(n, matches)
	if err != nil || !multipass || threshold <= 0 {
		return pos, err
	}

	type outlier struct {
		idx      int
		residual float64
	}
	var outliers []outlier
	for k, m := range matches {
		r := math.Hypot(pos[m.j].x-pos[m.i].x-m.dx, pos[m.j].y-pos[m.i].y-m.dy)
		if r > threshold {
			outliers = append(outliers, outlier{k, r})
		}
	}
	if len(outliers) == 0 {
		return pos, nil
	}
	sort.Slice(outliers, func(a, b int) bool { return outliers[a].residual > outliers[b].residual })

	drop := make(map[int]bool, len(outliers))
	for _, o := range outliers {
		drop[o.idx] = true
		if ok, _ := connected(n, keep(matches, drop)); !ok {
			delete(drop, o.idx)
		}
	}
	if len(drop) == 0 {
		return pos, nil
	}
	return leastSquares(n, keep(matches, drop))
}

func keep(matches []match, drop map[int]bool) []match {
	out := make([]match, 0, len(matches))
	for k, m := range matches {
		if !drop[k] {
			out = append(out, m)
		}
	}
	return out
}

func leastSquares(n int, matches []match) ([]point, error) {
	a := mat.NewDense(len(matches), n-1, nil)
	b := mat.NewDense(len(matches), 2, nil)
	for r, m := range matches {
		w := m.score
		if m.j > 0 {
			a.Set(r, m.j-1, w)
		}
		if m.i > 0 {
			a.Set(r, m.i-1, -w)
		}
		b.Set(r, 0, w*m.dx)
		b.Set(r, 1, w*m.dy)
	}

	var x mat.Dense
	if err := x.Solve(a, b); err != nil {
		return nil, fmt.Errorf("engine: solve placement: %w", err)
	}

	pos := make([]point, n)
	for k := 1; k < n; k++ {
		pos[k] = point{x.At(k-1, 0), x.At(k-1, 1)}
	}
	return pos, nil
}
