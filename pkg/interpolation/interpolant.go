// Package interpolation provides the Interpolant, the entry point for
// fitting RBF interpolants to scattered 3-D data and evaluating them.
package interpolation

import (
	"go.uber.org/zap"

	"rbfinterp/pkg/config"
	"rbfinterp/pkg/errs"
	"rbfinterp/pkg/evaluator"
	"rbfinterp/pkg/fitter"
	"rbfinterp/pkg/geometry"
	"rbfinterp/pkg/logging"
	"rbfinterp/pkg/rbf"
)

// ProgressCallback is a function that reports progress during fitting
type ProgressCallback func(completed, total int, message string)

// Interpolant owns a model, the centers and weights of its last
// successful fit, and an evaluator cached for the most recent query box.
// It is empty until a fit succeeds. An Interpolant must not be fitted and
// evaluated concurrently.
type Interpolant struct {
	model  rbf.Model
	cfg    *config.Config
	logger *zap.Logger

	progressCallback ProgressCallback // Optional callback for progress reporting

	centerIndices []int
	centers       geometry.Points
	centersBBox   geometry.BBox
	weights       []float64

	evaluator *evaluator.Evaluator
}

// Option configures an Interpolant
type Option func(*Interpolant)

// WithConfig sets the solver and fitter configuration
func WithConfig(cfg *config.Config) Option {
	return func(ip *Interpolant) {
		if cfg != nil {
			ip.cfg = cfg
		}
	}
}

// WithLogger sets the logger; fit summaries go to Info, solver
// iterations to Debug
func WithLogger(logger *zap.Logger) Option {
	return func(ip *Interpolant) {
		ip.logger = logging.OrNop(logger)
	}
}

// New creates an empty interpolant for model
func New(model rbf.Model, opts ...Option) *Interpolant {
	ip := &Interpolant{
		model:       model,
		cfg:         config.DefaultConfig(),
		logger:      zap.NewNop(),
		centersBBox: geometry.EmptyBBox(),
	}
	for _, opt := range opts {
		opt(ip)
	}
	return ip
}

// SetProgressCallback sets a callback function to report solver progress.
// The callback receives the number of completed iterations, the iteration
// budget, and a message string.
//
// Example usage:
//
//	ip := interpolation.New(model)
//	ip.SetProgressCallback(func(completed, total int, message string) {
//		fmt.Printf("\r%s: %d/%d", message, completed, total)
//	})
//	err := ip.Fit(points, values, 1e-6)
func (ip *Interpolant) SetProgressCallback(callback ProgressCallback) {
	ip.progressCallback = callback
}

func (ip *Interpolant) Model() rbf.Model { return ip.model }

// Centers returns the center coordinates of the last fit.
func (ip *Interpolant) Centers() geometry.Points { return ip.centers }

// CenterIndices returns the indices of the centers into the points of the
// last fit.
func (ip *Interpolant) CenterIndices() []int { return ip.centerIndices }

// CentersBBox returns the bounding box of the centers, or an empty box.
func (ip *Interpolant) CentersBBox() geometry.BBox { return ip.centersBBox }

// Weights returns the RBF weights followed by the monomial coefficients.
func (ip *Interpolant) Weights() []float64 { return ip.weights }

// IsEmpty reports whether the interpolant holds no fit.
func (ip *Interpolant) IsEmpty() bool { return ip.weights == nil }

// Fit uses every point as a center.
func (ip *Interpolant) Fit(points geometry.Points, values []float64, tolerance float64) error {
	if err := fitter.CheckArguments(ip.model, points, values, tolerance); err != nil {
		return err
	}
	ip.clear()

	res, err := ip.newFitter().Direct(points, values, tolerance)
	if err != nil {
		return err
	}
	ip.store(points, res)
	return nil
}

// FitIncrementally grows the center set from a minimal seed until every
// point is reproduced within tolerance. It requires a zero nugget.
func (ip *Interpolant) FitIncrementally(points geometry.Points, values []float64, tolerance float64) error {
	if err := fitter.CheckSupported(ip.model); err != nil {
		return err
	}
	if err := fitter.CheckArguments(ip.model, points, values, tolerance); err != nil {
		return err
	}
	ip.clear()

	res, err := ip.newFitter().Incremental(points, values, tolerance)
	if err != nil {
		return err
	}
	ip.store(points, res)
	return nil
}

// FitInequality fits equality constraints (non-NaN values) and bound
// constraints (NaN values with lower and/or upper bounds) within
// tolerance. It requires a zero nugget.
func (ip *Interpolant) FitInequality(points geometry.Points, values, lower, upper []float64, tolerance float64) error {
	if err := fitter.CheckSupported(ip.model); err != nil {
		return err
	}
	if err := fitter.CheckArguments(ip.model, points, values, tolerance); err != nil {
		return err
	}
	if err := fitter.CheckBounds(points, lower, upper); err != nil {
		return err
	}
	ip.clear()

	res, err := ip.newFitter().Inequality(points, values, lower, upper, tolerance)
	if err != nil {
		return err
	}
	ip.store(points, res)
	return nil
}

// EvaluatePoints returns the interpolant's values at points, in order.
// The evaluator is rebuilt when points fall outside the box it covers.
func (ip *Interpolant) EvaluatePoints(points geometry.Points) ([]float64, error) {
	if ip.IsEmpty() {
		return nil, errs.InvalidArgument("interpolant is empty")
	}

	bbox := ip.centersBBox.Union(geometry.BBoxFromPoints(points))
	if ip.evaluator == nil || !ip.evaluator.BBox().ContainsBBox(bbox) {
		e, err := evaluator.New(ip.model, ip.centers, bbox)
		if err != nil {
			return nil, err
		}
		e.SetNumWorkers(ip.cfg.Solver.NumWorkers)
		if err := e.SetWeights(ip.weights); err != nil {
			return nil, err
		}
		ip.evaluator = e
		ip.logger.Debug("evaluator rebuilt", zap.Int("centers", len(ip.centers)))
	}
	return ip.evaluator.EvaluatePoints(points)
}

func (ip *Interpolant) newFitter() *fitter.Fitter {
	f := fitter.New(ip.model, ip.cfg, ip.logger)
	if ip.progressCallback != nil {
		f.SetProgressCallback(func(completed, total int, message string) {
			ip.progressCallback(completed, total, message)
		})
	}
	return f
}

// clear drops the previous fit. A fit that fails after this point leaves
// the interpolant empty.
func (ip *Interpolant) clear() {
	ip.centerIndices = nil
	ip.centers = nil
	ip.centersBBox = geometry.EmptyBBox()
	ip.weights = nil
	ip.evaluator = nil
}

func (ip *Interpolant) store(points geometry.Points, res fitter.Result) {
	ip.centerIndices = res.Centers
	ip.centers = points.Take(res.Centers)
	ip.centersBBox = geometry.BBoxFromPoints(ip.centers)
	ip.weights = res.Weights
	ip.logger.Info("fit stored",
		zap.Int("points", len(points)),
		zap.Int("centers", len(ip.centers)))
}
