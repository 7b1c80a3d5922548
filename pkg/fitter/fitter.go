// Package fitter chooses the centers of an interpolant and computes their
// weights. The direct strategy uses every point; the incremental and
// inequality strategies grow an active set from a minimal seed until
// every remaining point is satisfied.
package fitter

import (
	"math"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"rbfinterp/pkg/config"
	"rbfinterp/pkg/errs"
	"rbfinterp/pkg/evaluator"
	"rbfinterp/pkg/geometry"
	"rbfinterp/pkg/logging"
	"rbfinterp/pkg/rbf"
	"rbfinterp/pkg/solver"
)

// Result is the outcome of a fit: indices into the fitted points and the
// weight vector (RBF weights in center order, then monomial coefficients).
type Result struct {
	Centers []int
	Weights []float64
}

// Fitter runs the fitting strategies for one model.
type Fitter struct {
	model    rbf.Model
	solver   config.SolverConfig
	growth   config.FitterConfig
	logger   *zap.Logger
	progress solver.ProgressCallback
}

// New creates a fitter. A nil cfg means config.DefaultConfig() and a nil
// logger discards everything.
func New(model rbf.Model, cfg *config.Config, logger *zap.Logger) *Fitter {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Fitter{
		model:  model,
		solver: cfg.Solver,
		growth: cfg.Fitter,
		logger: logging.OrNop(logger),
	}
}

// SetProgressCallback forwards solver iterations to callback.
func (f *Fitter) SetProgressCallback(callback solver.ProgressCallback) {
	f.progress = callback
}

// CheckSupported fails with not-supported when the model carries a
// nugget, which the active-set strategies cannot honor.
func CheckSupported(model rbf.Model) error {
	if model.Nugget() > 0 {
		return errs.NotSupported("active-set fitting requires a zero nugget, got %g", model.Nugget())
	}
	return nil
}

// CheckArguments validates the sizes and the tolerance of a fit.
func CheckArguments(model rbf.Model, points geometry.Points, values []float64, tolerance float64) error {
	if minPoints := max(1, model.PolyBasisSize()); len(points) < minPoints {
		return errs.InvalidArgument("need at least %d points, got %d", minPoints, len(points))
	}
	if len(values) != len(points) {
		return errs.InvalidArgument("got %d values for %d points", len(values), len(points))
	}
	if !(tolerance > 0) {
		return errs.InvalidArgument("absolute tolerance must be positive, got %g", tolerance)
	}
	return nil
}

// CheckBounds validates the bound vectors of an inequality fit.
func CheckBounds(points geometry.Points, lower, upper []float64) error {
	if len(lower) != len(points) || len(upper) != len(points) {
		return errs.InvalidArgument("got %d lower and %d upper bounds for %d points", len(lower), len(upper), len(points))
	}
	return nil
}

// Direct uses every point as a center and solves once.
func (f *Fitter) Direct(points geometry.Points, values []float64, tolerance float64) (Result, error) {
	if err := CheckArguments(f.model, points, values, tolerance); err != nil {
		return Result{}, err
	}

	weights, err := f.solve(points, values, tolerance)
	if err != nil {
		return Result{}, err
	}
	centers := lo.Range(len(points))
	f.logger.Info("direct fit done", zap.Int("centers", len(centers)))
	return Result{Centers: centers, Weights: weights}, nil
}

func (f *Fitter) solve(centers geometry.Points, values []float64, tolerance float64) ([]float64, error) {
	s, err := solver.New(f.model, centers, f.solver, f.logger)
	if err != nil {
		return nil, err
	}
	s.SetProgressCallback(f.progress)
	return s.Solve(values, tolerance)
}

// evaluate computes the fitted values at points with the direct strategy.
func (f *Fitter) evaluate(centers geometry.Points, weights []float64, points geometry.Points) ([]float64, error) {
	e, err := evaluator.New(f.model, centers, geometry.BBoxFromPoints(centers))
	if err != nil {
		return nil, err
	}
	e.SetNumWorkers(f.solver.NumWorkers)
	if err := e.SetWeights(weights); err != nil {
		return nil, err
	}
	return e.EvaluatePointsDirect(points), nil
}

// pointsToAdd is the size of the next augmentation.
func (f *Fitter) pointsToAdd(numCenters int) int {
	return max(f.growth.MinPointsToAdd, int(math.Ceil(f.growth.GrowthRatio*float64(numCenters))))
}
