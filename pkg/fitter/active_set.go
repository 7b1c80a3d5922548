package fitter

import (
	"math"
	"sort"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"rbfinterp/pkg/errs"
	"rbfinterp/pkg/geometry"
	"rbfinterp/pkg/polynomial"
)

// State is a step of the active-set loop.
type State int

const (
	Seed State = iota
	Solve
	EvaluateResidual
	Augment
	Converged
	Exhausted
)

func (s State) String() string {
	switch s {
	case Seed:
		return "seed"
	case Solve:
		return "solve"
	case EvaluateResidual:
		return "evaluate-residual"
	case Augment:
		return "augment"
	case Converged:
		return "converged"
	case Exhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// violation is a candidate point that is not yet satisfied.
type violation struct {
	index  int
	target float64
	amount float64
}

// constraint describes what the active-set loop fits.
type constraint struct {
	// candidates are the points that may become centers.
	candidates []int

	// seedTarget is the value a seed center is fitted to.
	seedTarget func(i int) float64

	// check reports whether the fitted value at point i is unsatisfied,
	// the target it gets as a center and by how much it misses.
	check func(i int, fitted float64) (target, amount float64, violated bool)
}

// seed picks a minimal unisolvent set among the candidates, or the first
// preferred candidate when the model has no polynomial part.
func (f *Fitter) seed(points geometry.Points, candidates, preferred []int) ([]int, error) {
	if f.model.PolyBasisSize() > 0 {
		return polynomial.SelectUnisolvent(f.model.PolyDegree(), points, candidates)
	}
	for _, group := range [][]int{preferred, candidates} {
		if len(group) > 0 {
			return []int{group[0]}, nil
		}
	}
	return nil, errs.InvalidArgument("no point can serve as a center")
}

// grow runs Seed -> Solve -> EvaluateResidual -> Augment until the
// candidates outside the center set are satisfied (Converged) or none are
// left (Exhausted).
func (f *Fitter) grow(points geometry.Points, seed []int, c constraint, tolerance float64) (Result, error) {
	inSet := make([]bool, len(points))
	var centers []int
	var targets, weights []float64
	var violations []violation

	state := Seed
	for {
		f.logger.Debug("active set", zap.Stringer("state", state), zap.Int("centers", len(centers)))

		switch state {
		case Seed:
			for _, i := range seed {
				inSet[i] = true
				centers = append(centers, i)
				targets = append(targets, c.seedTarget(i))
			}
			state = Solve

		case Solve:
			var err error
			if weights, err = f.solve(points.Take(centers), targets, tolerance); err != nil {
				return Result{}, err
			}
			state = EvaluateResidual

		case EvaluateResidual:
			var remaining []int
			for _, i := range c.candidates {
				if !inSet[i] {
					remaining = append(remaining, i)
				}
			}
			if len(remaining) == 0 {
				state = Exhausted
				break
			}

			fitted, err := f.evaluate(points.Take(centers), weights, points.Take(remaining))
			if err != nil {
				return Result{}, err
			}
			violations = violations[:0]
			for k, i := range remaining {
				if target, amount, violated := c.check(i, fitted[k]); violated {
					violations = append(violations, violation{index: i, target: target, amount: amount})
				}
			}
			state = Augment
			if len(violations) == 0 {
				state = Converged
			}

		case Augment:
			sort.SliceStable(violations, func(a, b int) bool {
				return violations[a].amount > violations[b].amount
			})
			amounts := make([]float64, len(violations))
			for k, v := range violations {
				amounts[k] = v.amount
			}
			f.logger.Debug("violations",
				zap.Int("count", len(violations)),
				zap.Float64("max", amounts[0]),
				zap.Float64("mean", stat.Mean(amounts, nil)))

			for _, v := range violations[:min(len(violations), f.pointsToAdd(len(centers)))] {
				inSet[v.index] = true
				centers = append(centers, v.index)
				targets = append(targets, v.target)
			}
			state = Solve

		case Converged, Exhausted:
			f.logger.Info("active-set fit done",
				zap.Stringer("state", state),
				zap.Int("centers", len(centers)),
				zap.Int("points", len(points)))
			return Result{Centers: centers, Weights: weights}, nil
		}
	}
}

// Incremental fits values by greedily adding the worst-fitted points.
// Every point outside the returned center set is within tolerance.
func (f *Fitter) Incremental(points geometry.Points, values []float64, tolerance float64) (Result, error) {
	if err := CheckSupported(f.model); err != nil {
		return Result{}, err
	}
	if err := CheckArguments(f.model, points, values, tolerance); err != nil {
		return Result{}, err
	}

	all := lo.Range(len(points))
	seed, err := f.seed(points, all, nil)
	if err != nil {
		return Result{}, err
	}

	return f.grow(points, seed, constraint{
		candidates: all,
		seedTarget: func(i int) float64 { return values[i] },
		check: func(i int, fitted float64) (float64, float64, bool) {
			amount := math.Abs(fitted - values[i])
			return values[i], amount, amount > tolerance
		},
	}, tolerance)
}

// Inequality fits a mix of equality constraints (non-NaN values) and
// bound constraints (NaN value, lower and/or upper bound; NaN bounds are
// absent). Points without any constraint never become centers.
func (f *Fitter) Inequality(points geometry.Points, values, lower, upper []float64, tolerance float64) (Result, error) {
	if err := CheckSupported(f.model); err != nil {
		return Result{}, err
	}
	if err := CheckArguments(f.model, points, values, tolerance); err != nil {
		return Result{}, err
	}
	if err := CheckBounds(points, lower, upper); err != nil {
		return Result{}, err
	}

	// candidates must stay non-nil: a nil slice means every point to
	// SelectUnisolvent.
	candidates := make([]int, 0, len(points))
	var equalities []int
	for i := range points {
		switch {
		case !math.IsNaN(values[i]):
			equalities = append(equalities, i)
			candidates = append(candidates, i)
		case !math.IsNaN(lower[i]) || !math.IsNaN(upper[i]):
			candidates = append(candidates, i)
		}
	}
	seed, err := f.seed(points, candidates, equalities)
	if err != nil {
		return Result{}, err
	}

	return f.grow(points, seed, constraint{
		candidates: candidates,
		seedTarget: func(i int) float64 {
			return seedTarget(values[i], lower[i], upper[i])
		},
		check: func(i int, fitted float64) (float64, float64, bool) {
			return checkBounds(values[i], lower[i], upper[i], fitted, tolerance)
		},
	}, tolerance)
}

// seedTarget is the value, else the midpoint of both bounds, else the
// single bound.
func seedTarget(value, lower, upper float64) float64 {
	switch {
	case !math.IsNaN(value):
		return value
	case !math.IsNaN(lower) && !math.IsNaN(upper):
		return (lower + upper) / 2
	case !math.IsNaN(lower):
		return lower
	default:
		return upper
	}
}

func checkBounds(value, lower, upper, fitted, tolerance float64) (target, amount float64, violated bool) {
	if !math.IsNaN(value) {
		amount = math.Abs(fitted - value)
		return value, amount, amount > tolerance
	}
	if !math.IsNaN(lower) && fitted < lower-tolerance {
		return lower, lower - fitted, true
	}
	if !math.IsNaN(upper) && fitted > upper+tolerance {
		return upper, fitted - upper, true
	}
	return 0, 0, false
}
