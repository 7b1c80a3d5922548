package polynomial

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"rbfinterp/pkg/errs"
	"rbfinterp/pkg/geometry"
)

// LagrangeBasis is the polynomial basis {L_k} of a given degree with
// L_k(p_i) = delta_ik at its reference points p_i. It is immutable once
// built and meant to be shared by pointer.
type LagrangeBasis struct {
	mono   *MonomialBasis
	points geometry.Points

	// coeffs holds the monomial coefficients of each Lagrange function in
	// its columns: L_k(x) = sum_j coeffs(j, k) * monomial_j(x).
	coeffs *mat.Dense
}

// NewLagrangeBasis builds the Lagrange basis of the given degree from
// exactly BasisSize(degree) reference points. It fails with
// ErrInvalidArgument if the points are not unisolvent.
func NewLagrangeBasis(degree int, points geometry.Points) (*LagrangeBasis, error) {
	mono := NewMonomialBasis(degree)
	m := mono.Size()
	if len(points) != m {
		return nil, errs.InvalidArgument("lagrange basis of degree %d needs %d points, got %d", degree, m, len(points))
	}

	l := &LagrangeBasis{mono: mono, points: append(geometry.Points(nil), points...)}
	if m == 0 {
		return l, nil
	}

	var inv mat.Dense
	if err := inv.Inverse(mono.EvaluatePoints(points)); err != nil {
		return nil, errs.InvalidArgument("reference points are not unisolvent for degree %d: %v", degree, err)
	}
	l.coeffs = &inv
	return l, nil
}

func (l *LagrangeBasis) Degree() int { return l.mono.Degree() }
func (l *LagrangeBasis) Size() int   { return l.mono.Size() }

// Points returns the reference points.
func (l *LagrangeBasis) Points() geometry.Points { return l.points }

// EvaluatePoints returns the len(points) x Size() matrix with entry (i, k)
// equal to L_k(points[i]), or nil when the basis or points are empty.
func (l *LagrangeBasis) EvaluatePoints(points geometry.Points) *mat.Dense {
	p := l.mono.EvaluatePoints(points)
	if p == nil {
		return nil
	}
	var out mat.Dense
	out.Mul(p, l.coeffs)
	return &out
}

// ToMonomial converts coefficients with respect to the Lagrange basis into
// monomial coefficients.
func (l *LagrangeBasis) ToMonomial(c []float64) []float64 {
	m := l.Size()
	out := make([]float64, m)
	if m == 0 {
		return out
	}
	dst := mat.NewVecDense(m, out)
	dst.MulVec(l.coeffs, mat.NewVecDense(m, append([]float64(nil), c...)))
	return out
}

// SelectUnisolvent picks BasisSize(degree) points among candidates (all
// points when candidates is nil) on which the polynomial space of the given
// degree is unisolvent. The greedy pivoting on monomial rows is
// deterministic and tends to pick well-spread points.
func SelectUnisolvent(degree int, points geometry.Points, candidates []int) ([]int, error) {
	mono := NewMonomialBasis(degree)
	m := mono.Size()
	if m == 0 {
		return []int{}, nil
	}
	if candidates == nil {
		candidates = make([]int, len(points))
		for i := range candidates {
			candidates[i] = i
		}
	}
	if len(candidates) < m {
		return nil, errs.InvalidArgument("need at least %d points for degree %d, got %d", m, degree, len(candidates))
	}

	// Rows are built on normalized coordinates so the pivoting does not
	// depend on the data's offset and scale.
	bbox := geometry.BBoxFromPoints(points.Take(candidates))
	center := bbox.Center()
	size := bbox.Size()
	scale := math.Max(size.X, math.Max(size.Y, size.Z)) / 2
	if scale == 0 {
		scale = 1
	}

	residual := make([][]float64, len(candidates))
	maxNorm2 := 0.0
	for i, idx := range candidates {
		residual[i] = make([]float64, m)
		mono.EvaluatePoint(points[idx].Sub(center).Mul(1/scale), residual[i])
		maxNorm2 = math.Max(maxNorm2, floats.Dot(residual[i], residual[i]))
	}

	selected := make([]int, 0, m)
	taken := make([]bool, len(candidates))
	for len(selected) < m {
		best, bestNorm2 := -1, 0.0
		for i := range candidates {
			if taken[i] {
				continue
			}
			if n2 := floats.Dot(residual[i], residual[i]); n2 > bestNorm2 {
				best, bestNorm2 = i, n2
			}
		}
		if best < 0 || bestNorm2 <= 1e-10*maxNorm2 {
			return nil, errs.InvalidArgument("points are not unisolvent for polynomial degree %d", degree)
		}

		taken[best] = true
		selected = append(selected, candidates[best])

		q := append([]float64(nil), residual[best]...)
		floats.Scale(1/math.Sqrt(bestNorm2), q)
		for i := range candidates {
			if taken[i] {
				continue
			}
			floats.AddScaled(residual[i], -floats.Dot(residual[i], q), q)
		}
	}
	return selected, nil
}

func invalidWeights(got, want int) error {
	return errs.InvalidArgument("weights have length %d, expected %d", got, want)
}
