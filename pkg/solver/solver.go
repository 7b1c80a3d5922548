// Package solver solves the RBF interpolation system with preconditioned
// conjugate gradients.
//
// The RBF weights are parameterized in the null space of P^T: the weights
// at the Lagrange reference points are determined by the others,
//
//	w_ref[k] = -sum_i w_i L_k(c_i),
//
// which turns the saddle-point system into a symmetric positive definite
// one for conditionally positive definite kernels. The polynomial
// coefficients are recovered from the residual at the reference points.
package solver

import (
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"rbfinterp/pkg/config"
	"rbfinterp/pkg/errs"
	"rbfinterp/pkg/geometry"
	"rbfinterp/pkg/linsys"
	"rbfinterp/pkg/logging"
	"rbfinterp/pkg/polynomial"
	"rbfinterp/pkg/preconditioner"
	"rbfinterp/pkg/rbf"
)

// maxRestarts bounds the restarts triggered by a true residual above the
// tolerance.
const maxRestarts = 8

// ProgressCallback is called after every iteration with the iteration
// count and the iteration budget.
type ProgressCallback func(completed, total int, message string)

// Solver solves the system of one model over one center set. Factorizing
// the preconditioner happens in New; Solve may be called repeatedly.
type Solver struct {
	model  rbf.Model
	cfg    config.SolverConfig
	logger *zap.Logger

	op        *linsys.Operator
	lagrange  *polynomial.LagrangeBasis
	reference []int
	isRef     []bool

	// lagrangeAt holds L_k(c_i) in row i.
	lagrangeAt *mat.Dense

	precond  *preconditioner.Preconditioner
	progress ProgressCallback
}

// New prepares a solver for centers. It fails with invalid-argument when
// there are fewer than max(1, basis size) centers or when no unisolvent
// subset exists.
func New(model rbf.Model, centers geometry.Points, cfg config.SolverConfig, logger *zap.Logger) (*Solver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := model.PolyBasisSize()
	if len(centers) < max(1, m) {
		return nil, errs.InvalidArgument("need at least %d centers, got %d", max(1, m), len(centers))
	}

	reference, err := polynomial.SelectUnisolvent(model.PolyDegree(), centers, nil)
	if err != nil {
		return nil, err
	}
	lagrange, err := polynomial.NewLagrangeBasis(model.PolyDegree(), centers.Take(reference))
	if err != nil {
		return nil, err
	}
	precond, err := preconditioner.New(model, centers, lagrange, reference, cfg)
	if err != nil {
		return nil, err
	}

	s := &Solver{
		model:      model,
		cfg:        cfg,
		logger:     logging.OrNop(logger),
		op:         linsys.NewOperator(model, centers, cfg.NumWorkers),
		lagrange:   lagrange,
		reference:  reference,
		isRef:      make([]bool, len(centers)),
		lagrangeAt: lagrange.EvaluatePoints(centers),
		precond:    precond,
	}
	for _, i := range reference {
		s.isRef[i] = true
	}
	s.logger.Debug("solver ready",
		zap.Int("centers", len(centers)),
		zap.Int("grids", len(precond.Grids())))
	return s, nil
}

// SetProgressCallback sets a function to be called after each iteration
func (s *Solver) SetProgressCallback(callback ProgressCallback) {
	s.progress = callback
}

// Solve returns [w; l] such that the main residual and the orthogonality
// residual are both at most tolerance in max-norm. Running out of
// iterations fails with not-converged.
func (s *Solver) Solve(values []float64, tolerance float64) ([]float64, error) {
	n := s.op.N()
	if len(values) != n {
		return nil, errs.InvalidArgument("values have length %d, expected %d", len(values), n)
	}
	if !(tolerance > 0) {
		return nil, errs.InvalidArgument("tolerance must be positive, got %g", tolerance)
	}

	x := make([]float64, n)
	r := s.reduce(values)
	target := tolerance
	iteration := 0

	for restart := 0; ; restart++ {
		if err := s.iterate(x, r, target, &iteration); err != nil {
			return nil, err
		}

		raw := s.rawResidual(values, x)
		solution := append(append([]float64(nil), x...), s.coefficients(raw)...)
		main, ortho, err := s.op.Residuals(solution, values)
		if err != nil {
			return nil, err
		}
		if main <= tolerance && ortho <= tolerance {
			s.logger.Debug("converged",
				zap.Int("iterations", iteration),
				zap.Float64("residual", main),
				zap.Float64("orthogonality", ortho))
			return solution, nil
		}

		// The recursive residual drifted from the true one; restart from
		// the true residual with a tighter target.
		if iteration >= s.cfg.MaxIterations || restart == maxRestarts {
			return nil, errs.NotConverged("residual %g after %d iterations", main, iteration)
		}
		target /= 10
		r = s.reduce(raw)
		s.logger.Debug("restarting", zap.Float64("residual", main), zap.Float64("orthogonality", ortho))
	}
}

// iterate runs conjugate gradients on x until the reduced residual r is at
// most target in max-norm. x and r are updated in place.
func (s *Solver) iterate(x, r []float64, target float64, iteration *int) error {
	if floats.Norm(r, math.Inf(1)) <= target {
		return nil
	}

	z, err := s.precond.Apply(r)
	if err != nil {
		return err
	}
	p := append([]float64(nil), z...)
	rz := floats.Dot(r, z)

	for {
		if *iteration >= s.cfg.MaxIterations {
			return errs.NotConverged("residual %g after %d iterations", floats.Norm(r, math.Inf(1)), *iteration)
		}
		*iteration++

		q := s.reduce(s.op.ApplyKernel(p))
		pq := floats.Dot(p, q)
		if !(pq > 0) || !(rz > 0) {
			return errs.NotConverged("conjugate gradients broke down at iteration %d", *iteration)
		}
		alpha := rz / pq
		floats.AddScaled(x, alpha, p)
		floats.AddScaled(r, -alpha, q)

		norm := floats.Norm(r, math.Inf(1))
		s.logger.Debug("iteration", zap.Int("iteration", *iteration), zap.Float64("residual", norm))
		if s.progress != nil {
			s.progress(*iteration, s.cfg.MaxIterations, "solving")
		}
		if norm <= target {
			return nil
		}

		if z, err = s.precond.Apply(r); err != nil {
			return err
		}
		rzNext := floats.Dot(r, z)
		beta := rzNext / rz
		rz = rzNext
		floats.Scale(beta, p)
		floats.Add(p, z)
	}
}

// reduce maps a full-length vector y to the residual of the reduced
// system: y_i - sum_k L_k(c_i) y_ref[k] off the reference points and zero
// on them.
func (s *Solver) reduce(y []float64) []float64 {
	out := make([]float64, len(y))
	m := len(s.reference)
	for i := range y {
		if s.isRef[i] {
			continue
		}
		out[i] = y[i]
		for k := 0; k < m; k++ {
			out[i] -= s.lagrangeAt.At(i, k) * y[s.reference[k]]
		}
	}
	return out
}

func (s *Solver) rawResidual(values, w []float64) []float64 {
	raw := s.op.ApplyKernel(w)
	floats.SubTo(raw, values, raw)
	return raw
}

// coefficients returns the monomial coefficients of the polynomial that
// matches the raw residual at the reference points.
func (s *Solver) coefficients(raw []float64) []float64 {
	c := make([]float64, len(s.reference))
	for k, i := range s.reference {
		c[k] = raw[i]
	}
	return s.lagrange.ToMonomial(c)
}
