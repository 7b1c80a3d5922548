// Package polynomial provides the monomial and Lagrange representations of
// the polynomial trend added to an RBF sum.
package polynomial

import (
	"gonum.org/v1/gonum/mat"

	"rbfinterp/pkg/geometry"
	"rbfinterp/pkg/rbf"
)

// MonomialBasis is the set of monomials x^a y^b z^c with a+b+c <= degree,
// ordered by total degree and then lexicographically:
// 1; x, y, z; x^2, xy, xz, y^2, yz, z^2; ...
type MonomialBasis struct {
	degree    int
	exponents [][3]int
}

// NewMonomialBasis creates the basis of the given degree. A negative
// degree gives an empty basis.
func NewMonomialBasis(degree int) *MonomialBasis {
	b := &MonomialBasis{degree: degree}
	for d := 0; d <= degree; d++ {
		for a := d; a >= 0; a-- {
			for c := 0; c <= d-a; c++ {
				b.exponents = append(b.exponents, [3]int{a, d - a - c, c})
			}
		}
	}
	return b
}

func (b *MonomialBasis) Degree() int { return b.degree }
func (b *MonomialBasis) Size() int   { return len(b.exponents) }

// Exponents returns the (a, b, c) exponents of the j-th monomial.
func (b *MonomialBasis) Exponents(j int) [3]int { return b.exponents[j] }

// EvaluatePoint writes the value of every monomial at p into dst, which
// must have length Size().
func (b *MonomialBasis) EvaluatePoint(p geometry.Point, dst []float64) {
	if b.degree < 0 {
		return
	}
	var pow [3][]float64
	for d, x := range [3]float64{p.X, p.Y, p.Z} {
		pow[d] = make([]float64, b.degree+1)
		pow[d][0] = 1
		for k := 1; k <= b.degree; k++ {
			pow[d][k] = pow[d][k-1] * x
		}
	}
	for j, e := range b.exponents {
		dst[j] = pow[0][e[0]] * pow[1][e[1]] * pow[2][e[2]]
	}
}

// EvaluatePoints returns the len(points) x Size() matrix of monomial
// values, or nil when the basis or the point set is empty.
func (b *MonomialBasis) EvaluatePoints(points geometry.Points) *mat.Dense {
	m := b.Size()
	if m == 0 || len(points) == 0 {
		return nil
	}
	out := mat.NewDense(len(points), m, nil)
	row := make([]float64, m)
	for i, p := range points {
		b.EvaluatePoint(p, row)
		out.SetRow(i, row)
	}
	return out
}

// Evaluator evaluates a polynomial given by monomial coefficients at a set
// of field points.
type Evaluator struct {
	basis   *MonomialBasis
	points  geometry.Points
	weights []float64
}

// NewEvaluator creates an evaluator with all-zero coefficients.
func NewEvaluator(degree int) *Evaluator {
	basis := NewMonomialBasis(degree)
	return &Evaluator{basis: basis, weights: make([]float64, basis.Size())}
}

// SetFieldPoints sets the points Evaluate works on.
func (e *Evaluator) SetFieldPoints(points geometry.Points) {
	e.points = points
}

// SetWeights sets the monomial coefficients.
func (e *Evaluator) SetWeights(weights []float64) error {
	if len(weights) != e.basis.Size() {
		return invalidWeights(len(weights), e.basis.Size())
	}
	e.weights = append(e.weights[:0], weights...)
	return nil
}

// Evaluate returns the polynomial value at every field point.
func (e *Evaluator) Evaluate() []float64 {
	values := make([]float64, len(e.points))
	if e.basis.Size() == 0 {
		return values
	}
	row := make([]float64, e.basis.Size())
	for i, p := range e.points {
		e.basis.EvaluatePoint(p, row)
		for j, w := range e.weights {
			values[i] += w * row[j]
		}
	}
	return values
}

// BasisSize is a shorthand for rbf.PolyBasisSize in three dimensions.
func BasisSize(degree int) int {
	return rbf.PolyBasisSize(rbf.Dimension, degree)
}
