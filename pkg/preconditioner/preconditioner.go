package preconditioner

import (
	"math"
	"sort"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"rbfinterp/pkg/config"
	"rbfinterp/pkg/errs"
	"rbfinterp/pkg/geometry"
	"rbfinterp/pkg/polynomial"
	"rbfinterp/pkg/rbf"
)

// Preconditioner is a two-level additive Schwarz preconditioner over a
// center set. The polynomial degrees of freedom are fixed by one Lagrange
// basis built on the reference points; every grid contains those points
// and shares the basis.
type Preconditioner struct {
	numPoints int
	reference []int
	grids     []*Grid
	workers   int
}

// New builds the grids over points. reference are the indices of the
// Lagrange basis' reference points, in the basis' order.
func New(model rbf.Model, points geometry.Points, lagrange *polynomial.LagrangeBasis, reference []int, cfg config.SolverConfig) (*Preconditioner, error) {
	if len(reference) != lagrange.Size() {
		return nil, errs.InvalidArgument("got %d reference points for a basis of size %d", len(reference), lagrange.Size())
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Preconditioner{
		numPoints: len(points),
		reference: append([]int(nil), reference...),
		workers:   cfg.NumWorkers,
	}

	if len(points) <= cfg.DirectSolveThreshold {
		grid, err := NewGrid(model, lagrange, lo.Range(len(points)), points, true)
		if err != nil {
			return nil, err
		}
		p.grids = []*Grid{grid}
		return p, nil
	}

	rest := restIndices(len(points), reference)
	index := geometry.NewIndex(points, rest)
	var layouts [][]int
	for _, leaf := range bisect(points, rest, cfg.FineGridSize) {
		layouts = append(layouts, fineGridIndices(points, index, leaf, reference, cfg.GridOverlap))
	}
	coarse := append(append([]int(nil), reference...), farthestPointSample(points, index, rest, reference, cfg.CoarseGridSize)...)
	sort.Ints(coarse)
	if len(coarse) > 0 {
		layouts = append(layouts, coarse)
	}

	p.grids = make([]*Grid, len(layouts))
	var g errgroup.Group
	g.SetLimit(p.workers)
	for i, indices := range layouts {
		i, indices := i, indices
		isCoarse := len(coarse) > 0 && i == len(layouts)-1
		g.Go(func() error {
			grid, err := NewGrid(model, lagrange, indices, points, isCoarse)
			p.grids[i] = grid
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return p, nil
}

// Grids returns the local grids; the coarse grid, if any, is last.
func (p *Preconditioner) Grids() []*Grid { return p.grids }

// Apply returns the sum of every grid's correction for residual, which
// must be zero at the reference points. The result is a full weight
// vector: its entries at the reference points are the ones that keep it
// orthogonal to the polynomials.
func (p *Preconditioner) Apply(residual []float64) ([]float64, error) {
	if len(residual) != p.numPoints {
		return nil, errs.InvalidArgument("residual has length %d, expected %d", len(residual), p.numPoints)
	}

	var g errgroup.Group
	g.SetLimit(p.workers)
	for _, grid := range p.grids {
		grid := grid
		g.Go(func() error {
			return grid.Solve(residual)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Each grid keeps its own solution; summing them sequentially avoids
	// racing on indices shared by overlapping grids.
	out := make([]float64, p.numPoints)
	for _, grid := range p.grids {
		grid.SetSolutionTo(out)
	}
	return out, nil
}

func restIndices(n int, reference []int) []int {
	isRef := make([]bool, n)
	for _, i := range reference {
		isRef[i] = true
	}
	rest := make([]int, 0, n-len(reference))
	for i := 0; i < n; i++ {
		if !isRef[i] {
			rest = append(rest, i)
		}
	}
	return rest
}

// bisect splits indices by recursive coordinate bisection along the
// longest box axis until every leaf has at most leafSize points.
func bisect(points geometry.Points, indices []int, leafSize int) [][]int {
	if len(indices) <= leafSize {
		if len(indices) == 0 {
			return nil
		}
		return [][]int{indices}
	}

	size := geometry.BBoxFromPoints(points.Take(indices)).Size()
	axis := 0
	if size.Y > geometry.Component(size, axis) {
		axis = 1
	}
	if size.Z > geometry.Component(size, axis) {
		axis = 2
	}

	sorted := append([]int(nil), indices...)
	sort.SliceStable(sorted, func(a, b int) bool {
		return geometry.Component(points[sorted[a]], axis) < geometry.Component(points[sorted[b]], axis)
	})
	mid := len(sorted) / 2
	return append(bisect(points, sorted[:mid], leafSize), bisect(points, sorted[mid:], leafSize)...)
}

// fineGridIndices enlarges a leaf with the rest points within
// (1+overlap) times its half-diagonal of its center, plus the reference
// points. The result is sorted.
func fineGridIndices(points geometry.Points, index *geometry.Index, leaf, reference []int, overlap float64) []int {
	bbox := geometry.BBoxFromPoints(points.Take(leaf))
	radius := bbox.Size().Norm() / 2 * (1 + overlap)

	seen := make(map[int]bool, len(leaf))
	indices := make([]int, 0, len(leaf)+len(reference))
	for _, group := range [][]int{leaf, index.RadiusSearch(bbox.Center(), radius), reference} {
		for _, i := range group {
			if !seen[i] {
				seen[i] = true
				indices = append(indices, i)
			}
		}
	}
	sort.Ints(indices)
	return indices
}

// farthestPointSample greedily picks up to k candidates, each the one
// farthest from the points already chosen. It starts from the reference
// points, or from the candidate nearest the candidates' box center when
// there are none. index covers the candidates, which are sorted.
func farthestPointSample(points geometry.Points, index *geometry.Index, candidates, reference []int, k int) []int {
	k = min(k, len(candidates))
	if k == 0 {
		return nil
	}

	dist := make([]float64, len(candidates))
	for i := range dist {
		dist[i] = math.Inf(1)
	}
	update := func(p geometry.Point) {
		for i, c := range candidates {
			dist[i] = math.Min(dist[i], points[c].Sub(p).Norm2())
		}
	}

	chosen := make([]int, 0, k)
	next := 0
	if len(reference) > 0 {
		for _, r := range reference {
			update(points[r])
		}
		next = argmax(dist)
	} else if nearest := index.Nearest(geometry.BBoxFromPoints(points.Take(candidates)).Center(), 1); len(nearest) == 1 {
		next = sort.SearchInts(candidates, nearest[0])
	}
	for len(chosen) < k {
		chosen = append(chosen, candidates[next])
		update(points[candidates[next]])
		dist[next] = -1
		next = argmax(dist)
	}
	return chosen
}

func argmax(values []float64) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}
