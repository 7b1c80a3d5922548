// Package preconditioner implements the two-level additive Schwarz
// preconditioner used by the iterative solver. The center set is covered by
// overlapping fine grids and one coarse grid; each grid solves the
// saddle-point system restricted to its centers with dense factorizations.
package preconditioner

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"rbfinterp/pkg/errs"
	"rbfinterp/pkg/geometry"
	"rbfinterp/pkg/polynomial"
	"rbfinterp/pkg/rbf"
)

// refinementSteps is the number of iterative refinement passes per solve.
const refinementSteps = 3

// Grid is a local-solve unit. It owns the factorization of
//
//	[K_JJ + nugget*I  E] [w]   [t_J]
//	[E^T              0] [c] = [0  ]
//
// where J are the grid's indices and E holds the shared Lagrange basis
// evaluated at them, so c are Lagrange coefficients. When the Lagrange
// basis is nonempty J must contain its reference points.
type Grid struct {
	lagrange  *polynomial.LagrangeBasis
	indices   []int
	numPoints int
	coarse    bool

	kmat *mat.SymDense
	e    *mat.Dense

	qr mat.QR
	q2 *mat.Dense

	chol  mat.Cholesky
	lu    mat.LU
	useLU bool

	w []float64
	c []float64
}

// NewGrid factorizes the local system of the centers points[indices]. The
// coarse grid also contributes its polynomial part in SetSolutionTo.
func NewGrid(model rbf.Model, lagrange *polynomial.LagrangeBasis, indices []int, points geometry.Points, coarse bool) (*Grid, error) {
	nl, m := len(indices), lagrange.Size()
	if nl < max(1, m) {
		return nil, errs.InvalidArgument("grid needs at least %d points, got %d", max(1, m), nl)
	}

	g := &Grid{
		lagrange:  lagrange,
		indices:   append([]int(nil), indices...),
		numPoints: len(points),
		coarse:    coarse,
		w:         make([]float64, nl),
		c:         make([]float64, m),
	}
	local := points.Take(indices)

	kernel := model.Kernel()
	g.kmat = mat.NewSymDense(nl, nil)
	for i := 0; i < nl; i++ {
		g.kmat.SetSym(i, i, kernel.Evaluate(0)+model.Nugget())
		for j := i + 1; j < nl; j++ {
			g.kmat.SetSym(i, j, kernel.Evaluate(local[i].Sub(local[j]).Norm()))
		}
	}

	k := nl - m
	if m == 0 {
		g.factorize(g.kmat)
		return g, nil
	}

	g.e = lagrange.EvaluatePoints(local)
	g.qr.Factorize(g.e)
	if k == 0 {
		return g, nil
	}

	// The last k columns of Q span the null space of E^T.
	var q mat.Dense
	g.qr.QTo(&q)
	g.q2 = mat.DenseCopyOf(q.Slice(0, nl, m, nl))

	var kq, a mat.Dense
	kq.Mul(g.kmat, g.q2)
	a.Mul(g.q2.T(), &kq)
	sym := mat.NewSymDense(k, nil)
	for i := 0; i < k; i++ {
		for j := i; j < k; j++ {
			sym.SetSym(i, j, (a.At(i, j)+a.At(j, i))/2)
		}
	}
	g.factorize(sym)
	return g, nil
}

// factorize prefers Cholesky and falls back to LU when the projected
// matrix is not numerically positive definite.
func (g *Grid) factorize(a *mat.SymDense) {
	if g.chol.Factorize(a) {
		return
	}
	g.useLU = true
	g.lu.Factorize(a)
}

// Indices returns the global indices of the grid's centers.
func (g *Grid) Indices() []int { return g.indices }

// Coarse reports whether the grid is the coarse grid.
func (g *Grid) Coarse() bool { return g.coarse }

// Solve solves the local system for the restriction of values to the
// grid's indices and keeps the solution for SetSolutionTo.
func (g *Grid) Solve(values []float64) error {
	t := make([]float64, len(g.indices))
	for i, idx := range g.indices {
		t[i] = values[idx]
	}

	w, c, err := g.solve(t)
	if err != nil {
		return err
	}

	scale := math.Max(1, floats.Norm(t, math.Inf(1)))
	for step := 0; step < refinementSteps; step++ {
		r := g.residual(t, w, c)
		if floats.Norm(r, math.Inf(1)) <= 1e-15*scale {
			break
		}
		dw, dc, err := g.solve(r)
		if err != nil {
			return err
		}
		floats.Add(w, dw)
		floats.Add(c, dc)
	}

	copy(g.w, w)
	copy(g.c, c)
	return nil
}

// SetSolutionTo adds the local weights into weights at the grid's
// indices. For the coarse grid, when weights also has room for the
// polynomial tail (len = number of points + basis size), the monomial
// coefficients are added there as well.
func (g *Grid) SetSolutionTo(weights []float64) {
	for i, idx := range g.indices {
		weights[idx] += g.w[i]
	}
	m := g.lagrange.Size()
	if g.coarse && m > 0 && len(weights) == g.numPoints+m {
		floats.Add(weights[g.numPoints:], g.lagrange.ToMonomial(g.c))
	}
}

// solve solves the local system for a right-hand side t with a zero
// constraint block.
func (g *Grid) solve(t []float64) (w, c []float64, err error) {
	nl, m := len(g.indices), g.lagrange.Size()
	w = make([]float64, nl)
	c = make([]float64, m)

	if m == 0 {
		err = g.solveReduced(mat.NewVecDense(nl, w), mat.NewVecDense(nl, append([]float64(nil), t...)))
		return w, c, err
	}

	if g.q2 != nil {
		k := nl - m
		var b mat.VecDense
		b.MulVec(g.q2.T(), mat.NewVecDense(nl, append([]float64(nil), t...)))
		y := mat.NewVecDense(k, nil)
		if err := g.solveReduced(y, &b); err != nil {
			return nil, nil, err
		}
		mat.NewVecDense(nl, w).MulVec(g.q2, y)
	}

	// t - K w lies in the range of E; the least-squares solution is exact.
	var kw mat.VecDense
	kw.MulVec(g.kmat, mat.NewVecDense(nl, w))
	s := make([]float64, nl)
	floats.SubTo(s, t, kw.RawVector().Data)
	if err := g.qr.SolveVecTo(mat.NewVecDense(m, c), false, mat.NewVecDense(nl, s)); singular(err) {
		return nil, nil, errs.InvalidArgument("grid polynomial block is singular: %v", err)
	}
	return w, c, nil
}

func (g *Grid) solveReduced(dst *mat.VecDense, b mat.Vector) error {
	var err error
	if g.useLU {
		err = g.lu.SolveVecTo(dst, false, b)
	} else {
		err = g.chol.SolveVecTo(dst, b)
	}
	if singular(err) {
		return errs.InvalidArgument("grid kernel matrix is singular: %v", err)
	}
	return nil
}

// singular reports whether a gonum solve failed. A finite mat.Condition
// only warns about conditioning; the solution is still written.
func singular(err error) bool {
	if err == nil {
		return false
	}
	cond, ok := err.(mat.Condition)
	return !ok || math.IsInf(float64(cond), 1)
}

// residual returns t - K w - E c.
func (g *Grid) residual(t, w, c []float64) []float64 {
	nl := len(g.indices)
	var kw mat.VecDense
	kw.MulVec(g.kmat, mat.NewVecDense(nl, w))
	r := make([]float64, nl)
	floats.SubTo(r, t, kw.RawVector().Data)
	if g.e != nil {
		var ec mat.VecDense
		ec.MulVec(g.e, mat.NewVecDense(len(c), c))
		floats.Sub(r, ec.RawVector().Data)
	}
	return r
}
