// Package evaluator evaluates fitted RBF sums
//
//	value(x) = sum_i w_i * kernel(|x - c_i|) + sum_j l_j * monomial_j(x)
//
// either pairwise or through a uniform cell grid that skips center cells
// beyond the kernel's support.
package evaluator

import (
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"rbfinterp/pkg/errs"
	"rbfinterp/pkg/geometry"
	"rbfinterp/pkg/polynomial"
	"rbfinterp/pkg/rbf"
)

const (
	// centersPerCell is the target occupancy of a grid cell.
	centersPerCell = 32

	// maxCellsPerAxis caps the grid resolution.
	maxCellsPerAxis = 64

	queryChunk = 256
)

// Evaluator holds a model, a center set and its weights. It is safe for
// concurrent EvaluatePoints calls once the weights are set.
type Evaluator struct {
	model   rbf.Model
	centers geometry.Points
	bbox    geometry.BBox
	workers int

	weights []float64
	coeffs  []float64

	grid cellGrid
}

// New creates an evaluator over centers whose accelerated structure
// covers bbox. bbox must contain every center. Weights start at zero.
func New(model rbf.Model, centers geometry.Points, bbox geometry.BBox) (*Evaluator, error) {
	if !bbox.ContainsBBox(geometry.BBoxFromPoints(centers)) {
		return nil, errs.InvalidArgument("evaluator bbox does not contain the centers")
	}
	e := &Evaluator{
		model:   model,
		centers: centers,
		bbox:    bbox,
		workers: runtime.NumCPU(),
		weights: make([]float64, len(centers)),
		coeffs:  make([]float64, model.PolyBasisSize()),
	}
	e.grid = newCellGrid(bbox, centers)
	return e, nil
}

// SetNumWorkers bounds the goroutines used per evaluation.
func (e *Evaluator) SetNumWorkers(n int) {
	e.workers = max(1, n)
}

// BBox returns the box covered by the accelerated structure.
func (e *Evaluator) BBox() geometry.BBox { return e.bbox }

// SetWeights sets the RBF weights followed by the monomial coefficients.
func (e *Evaluator) SetWeights(weights []float64) error {
	n, m := len(e.centers), e.model.PolyBasisSize()
	if len(weights) != n+m {
		return errs.InvalidArgument("weights have length %d, expected %d", len(weights), n+m)
	}
	copy(e.weights, weights[:n])
	copy(e.coeffs, weights[n:])
	return nil
}

// EvaluatePointsDirect evaluates every (query, center) pair. It accepts
// queries anywhere in space.
func (e *Evaluator) EvaluatePointsDirect(points geometry.Points) []float64 {
	values := e.polynomialValues(points)
	kernel := e.model.Kernel()

	var g errgroup.Group
	g.SetLimit(e.workers)
	for lo := 0; lo < len(points); lo += queryChunk {
		lo, hi := lo, min(lo+queryChunk, len(points))
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				sum := 0.0
				for j, c := range e.centers {
					sum += e.weights[j] * kernel.Evaluate(points[i].Sub(c).Norm())
				}
				values[i] += sum
			}
			return nil
		})
	}
	// The workers never fail; Wait only joins them.
	_ = g.Wait()
	return values
}

// EvaluatePoints evaluates the queries through the cell grid. Every query
// must lie in BBox().
func (e *Evaluator) EvaluatePoints(points geometry.Points) ([]float64, error) {
	for i, p := range points {
		if !e.bbox.Contains(p) {
			return nil, errs.InvalidArgument("query point %d %v lies outside the evaluator bbox", i, p)
		}
	}

	support := e.model.Kernel().SupportRadius()
	if math.IsInf(support, 1) {
		// No cell pair can be skipped: globally supported kernels are
		// evaluated pairwise.
		return e.EvaluatePointsDirect(points), nil
	}

	values := e.polynomialValues(points)
	kernel := e.model.Kernel()
	queryCells := e.grid.bucket(points)

	var g errgroup.Group
	g.SetLimit(e.workers)
	for qc, queries := range queryCells {
		if len(queries) == 0 {
			continue
		}
		qc, queries := qc, queries
		g.Go(func() error {
			near := e.grid.cellsWithin(qc, support)
			for _, qi := range queries {
				q := points[qi]
				sum := 0.0
				for _, cc := range near {
					for _, j := range e.grid.members[cc] {
						sum += e.weights[j] * kernel.Evaluate(q.Sub(e.centers[j]).Norm())
					}
				}
				values[qi] += sum
			}
			return nil
		})
	}
	// The workers never fail; Wait only joins them.
	_ = g.Wait()
	return values, nil
}

func (e *Evaluator) polynomialValues(points geometry.Points) []float64 {
	poly := polynomial.NewEvaluator(e.model.PolyDegree())
	if err := poly.SetWeights(e.coeffs); err != nil {
		// coeffs is sized from the same model
		panic(err)
	}
	poly.SetFieldPoints(points)
	return poly.Evaluate()
}

// cellGrid buckets points into uniform cubic cells over a box.
type cellGrid struct {
	origin  geometry.Point
	size    float64
	dims    [3]int
	members [][]int
}

func newCellGrid(bbox geometry.BBox, centers geometry.Points) cellGrid {
	g := cellGrid{dims: [3]int{1, 1, 1}, size: 1}
	if bbox.IsEmpty() {
		g.members = make([][]int, 1)
		return g
	}
	g.origin = bbox.Min

	extent := bbox.Size()
	longest := math.Max(extent.X, math.Max(extent.Y, extent.Z))
	if longest > 0 {
		perAxis := math.Cbrt(float64(len(centers)) / centersPerCell)
		perAxis = math.Max(1, math.Min(maxCellsPerAxis, math.Ceil(perAxis)))
		g.size = longest / perAxis
		for d := 0; d < 3; d++ {
			g.dims[d] = max(1, int(math.Ceil(geometry.Component(extent, d)/g.size)))
		}
	}
	g.members = make([][]int, g.dims[0]*g.dims[1]*g.dims[2])
	for i, c := range centers {
		cell := g.cellOf(c)
		g.members[cell] = append(g.members[cell], i)
	}
	return g
}

func (g cellGrid) coords(p geometry.Point) [3]int {
	var idx [3]int
	for d := 0; d < 3; d++ {
		k := int(math.Floor((geometry.Component(p, d) - geometry.Component(g.origin, d)) / g.size))
		idx[d] = min(max(k, 0), g.dims[d]-1)
	}
	return idx
}

func (g cellGrid) cellOf(p geometry.Point) int {
	idx := g.coords(p)
	return (idx[2]*g.dims[1]+idx[1])*g.dims[0] + idx[0]
}

func (g cellGrid) cellBox(cell int) geometry.BBox {
	idx := [3]int{cell % g.dims[0], (cell / g.dims[0]) % g.dims[1], cell / (g.dims[0] * g.dims[1])}
	lo := g.origin.Add(geometry.Point{X: float64(idx[0]), Y: float64(idx[1]), Z: float64(idx[2])}.Mul(g.size))
	return geometry.BBox{Min: lo, Max: lo.Add(geometry.Point{X: g.size, Y: g.size, Z: g.size})}
}

// bucket groups point indices by cell.
func (g cellGrid) bucket(points geometry.Points) [][]int {
	cells := make([][]int, len(g.members))
	for i, p := range points {
		cell := g.cellOf(p)
		cells[cell] = append(cells[cell], i)
	}
	return cells
}

// cellsWithin returns the non-empty center cells whose box is closer than
// radius to the box of cell.
func (g cellGrid) cellsWithin(cell int, radius float64) []int {
	box := g.cellBox(cell)
	var near []int
	for c, members := range g.members {
		if len(members) == 0 {
			continue
		}
		if box.Distance(g.cellBox(c)) < radius {
			near = append(near, c)
		}
	}
	return near
}
