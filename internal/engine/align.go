package engine

import (
	"context"
	"math"

	"gonum.org/v1/gonum/stat"
)

// refineRadius is the search radius, in pixels, when an offset found on a
// coarse level is carried to the next finer one.
const refineRadius = 2

// match is the estimated translation between images i and j: the origin of
// j sits at (dx, dy) in i's full-resolution coordinates.
type match struct {
	i, j   int
	dx, dy float64
	score  float64
}

// candidatePairs lists the image pairs to compare. Ordered input only
// compares neighbours.
func candidatePairs(n int, ordered bool) [][2]int {
	var pairs [][2]int
	for i := range n {
		for j := i + 1; j < n; j++ {
			if ordered && j != i+1 {
				break
			}
			pairs = append(pairs, [2]int{i, j})
		}
	}
	return pairs
}

// matchPairs estimates every candidate pair concurrently and returns the
// pairs whose correlation reaches opts.MinCorrelation.
func matchPairs(ctx context.Context, pyrs []*pyramid, opts Options) ([]match, error) {
	pairs := candidatePairs(len(pyrs), opts.Ordered)
	found := make([]*match, len(pairs))

	err := forEach(ctx, len(pairs), true, func(k int) error {
		pair := pairs[k]
		m, ok := estimatePair(pyrs[pair[0]], pyrs[pair[1]], opts)
		if ok {
			m.i, m.j = pair[0], pair[1]
			found[k] = &m
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var matches []match
	for _, m := range found {
		if m != nil {
			matches = append(matches, *m)
		}
	}
	return matches, nil
}

// estimatePair searches the coarsest level exhaustively, then refines the
// best offset level by level.
func estimatePair(pa, pb *pyramid, opts Options) (match, bool) {
	top := min(len(pa.levels), len(pb.levels)) - 1
	a, b := pa.levels[top], pb.levels[top]

	bestRank, bestScore := math.Inf(-1), 0.0
	bestX, bestY := 0, 0
	for dy := -(b.h - 1); dy < a.h; dy++ {
		for dx := -(b.w - 1); dx < a.w; dx++ {
			if overlapArea(a, b, dx, dy) < minOverlapPixels(a, b, opts.MinOverlap) {
				continue
			}
			score, n := correlate(a, b, dx, dy)
			if r := rank(score, n); r > bestRank {
				bestRank, bestScore, bestX, bestY = r, score, dx, dy
			}
		}
	}
	if math.IsInf(bestRank, -1) {
		return match{}, false
	}

	for k := top - 1; k >= 0; k-- {
		coarse := pa.levels[k+1]
		a, b = pa.levels[k], pb.levels[k]
		cx := int(math.Round(float64(bestX) * float64(a.w) / float64(coarse.w)))
		cy := int(math.Round(float64(bestY) * float64(a.h) / float64(coarse.h)))

		bestRank = math.Inf(-1)
		fineX, fineY := bestX, bestY
		for dy := cy - refineRadius; dy <= cy+refineRadius; dy++ {
			for dx := cx - refineRadius; dx <= cx+refineRadius; dx++ {
				if overlapArea(a, b, dx, dy) < minOverlapPixels(a, b, opts.MinOverlap) {
					continue
				}
				score, n := correlateStat(a, b, dx, dy)
				if r := rank(score, n); r > bestRank {
					bestRank, bestScore, fineX, fineY = r, score, dx, dy
				}
			}
		}
		bestX, bestY = fineX, fineY
		if math.IsInf(bestRank, -1) {
			return match{}, false
		}
	}

	if bestScore < opts.MinCorrelation {
		return match{}, false
	}
	return match{
		dx:    float64(bestX) * pa.scale,
		dy:    float64(bestY) * pa.scale,
		score: bestScore,
	}, true
}

// rank orders candidate offsets by the lower bound of their correlation, so
// that a tiny overlap cannot win on a lucky score.
func rank(score float64, n int) float64 {
	if n < 2 || math.IsInf(score, -1) {
		return math.Inf(-1)
	}
	return score - 1/math.Sqrt(float64(n))
}

func overlapArea(a, b *grayLevel, dx, dy int) int {
	w := min(a.w, dx+b.w) - max(0, dx)
	h := min(a.h, dy+b.h) - max(0, dy)
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

func minOverlapPixels(a, b *grayLevel, fraction float64) int {
	return int(math.Ceil(fraction * float64(min(a.w*a.h, b.w*b.h))))
}

// correlate returns the Pearson correlation of the valid pixels shared by a
// and b when b is placed at (dx, dy), and the number of such pixels. It
// returns -Inf when the overlap has no contrast.
func correlate(a, b *grayLevel, dx, dy int) (float64, int) {
	var n, sa, sb, saa, sbb, sab float64
	for y := max(0, dy); y < min(a.h, dy+b.h); y++ {
		for x := max(0, dx); x < min(a.w, dx+b.w); x++ {
			va, oka := a.at(x, y)
			vb, okb := b.at(x-dx, y-dy)
			if !oka || !okb {
				continue
			}
			n++
			sa += va
			sb += vb
			saa += va * va
			sbb += vb * vb
			sab += va * vb
		}
	}
	den := (n*saa - sa*sa) * (n*sbb - sb*sb)
	if n < 2 || den <= 1e-12 {
		return math.Inf(-1), int(n)
	}
	return (n*sab - sa*sb) / math.Sqrt(den), int(n)
}

// correlateStat is correlate computed with gonum on the gathered samples.
func correlateStat(a, b *grayLevel, dx, dy int) (float64, int) {
	var xs, ys []float64
	for y := max(0, dy); y < min(a.h, dy+b.h); y++ {
		for x := max(0, dx); x < min(a.w, dx+b.w); x++ {
			va, oka := a.at(x, y)
			vb, okb := b.at(x-dx, y-dy)
			if oka && okb {
				xs = append(xs, va)
				ys = append(ys, vb)
			}
		}
	}
	if len(xs) < 2 {
		return math.Inf(-1), len(xs)
	}
	r := stat.Correlation(xs, ys, nil)
	if math.IsNaN(r) {
		return math.Inf(-1), len(xs)
	}
	return r, len(xs)
}
