// Package linsys provides the matrix-free saddle-point operator of an RBF
// interpolation problem:
//
//	[K + nugget*I  P] [w]   [v]
//	[P^T           0] [l] = [0]
//
// K is never stored. Each product recomputes its rows from the model and
// the center coordinates.
package linsys

import (
	"math"

	"golang.org/x/sync/errgroup"

	"rbfinterp/pkg/errs"
	"rbfinterp/pkg/geometry"
	"rbfinterp/pkg/polynomial"
	"rbfinterp/pkg/rbf"
)

// rowChunk is the number of rows handed to one goroutine.
const rowChunk = 64

// Operator applies the saddle-point system over a fixed center set.
type Operator struct {
	model   rbf.Model
	centers geometry.Points
	mono    *polynomial.MonomialBasis
	workers int
}

// NewOperator creates an operator over centers. workers bounds the number
// of goroutines used per product; values below 1 mean one.
func NewOperator(model rbf.Model, centers geometry.Points, workers int) *Operator {
	if workers < 1 {
		workers = 1
	}
	return &Operator{
		model:   model,
		centers: centers,
		mono:    polynomial.NewMonomialBasis(model.PolyDegree()),
		workers: workers,
	}
}

// N is the number of centers.
func (o *Operator) N() int { return len(o.centers) }

// M is the polynomial basis size.
func (o *Operator) M() int { return o.mono.Size() }

// Size is the dimension of the full system, N() + M().
func (o *Operator) Size() int { return o.N() + o.M() }

// forRows runs fn over [0, n) in chunks on at most o.workers goroutines.
func (o *Operator) forRows(n int, fn func(lo, hi int)) {
	var g errgroup.Group
	g.SetLimit(o.workers)
	for lo := 0; lo < n; lo += rowChunk {
		lo, hi := lo, min(lo+rowChunk, n)
		g.Go(func() error {
			fn(lo, hi)
			return nil
		})
	}
	// fn cannot fail; Wait only joins the workers.
	_ = g.Wait()
}

// ApplyKernel returns (K + nugget*I) w.
func (o *Operator) ApplyKernel(w []float64) []float64 {
	kernel := o.model.Kernel()
	nugget := o.model.Nugget()
	out := make([]float64, len(o.centers))
	o.forRows(len(o.centers), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			ci := o.centers[i]
			sum := nugget * w[i]
			for j, cj := range o.centers {
				sum += kernel.Evaluate(ci.Sub(cj).Norm()) * w[j]
			}
			out[i] = sum
		}
	})
	return out
}

// MonomialsT returns P^T w.
func (o *Operator) MonomialsT(w []float64) []float64 {
	m := o.M()
	out := make([]float64, m)
	row := make([]float64, m)
	for i, c := range o.centers {
		o.mono.EvaluatePoint(c, row)
		for j := range out {
			out[j] += row[j] * w[i]
		}
	}
	return out
}

// Apply returns the product of the full system with x = [w; l].
func (o *Operator) Apply(x []float64) ([]float64, error) {
	if len(x) != o.Size() {
		return nil, errs.InvalidArgument("operand has length %d, expected %d", len(x), o.Size())
	}
	n, m := o.N(), o.M()
	w, l := x[:n], x[n:]

	out := append(o.ApplyKernel(w), o.MonomialsT(w)...)
	if m > 0 {
		row := make([]float64, m)
		for i, c := range o.centers {
			o.mono.EvaluatePoint(c, row)
			for j := range row {
				out[i] += row[j] * l[j]
			}
		}
	}
	return out, nil
}

// Residuals returns the max-norms of the main-equation residual
// v - (K + nugget*I) w - P l and of the orthogonality residual P^T w.
func (o *Operator) Residuals(x, values []float64) (main, ortho float64, err error) {
	if len(values) != o.N() {
		return 0, 0, errs.InvalidArgument("values have length %d, expected %d", len(values), o.N())
	}
	ax, err := o.Apply(x)
	if err != nil {
		return 0, 0, err
	}
	for i, v := range values {
		main = math.Max(main, math.Abs(v-ax[i]))
	}
	for _, r := range ax[o.N():] {
		ortho = math.Max(ortho, math.Abs(r))
	}
	return main, ortho, nil
}
