// Package rbf provides the radial basis function kernels and the Model
// that combines a kernel with a polynomial trend and a nugget.
package rbf

import (
	"math"
	"strings"

	"rbfinterp/pkg/errs"
)

// Kernel is a radial basis function. Adding a kernel means providing this
// capability set.
type Kernel interface {
	// Name identifies the kernel family, e.g. "biharmonic3d".
	Name() string

	// Evaluate returns the kernel value used in the interpolation system
	// for two points at distance r.
	Evaluate(r float64) float64

	// EvaluateUntransformed returns the pre-sill profile consumed by
	// variogram fitting: semivariance(h) = sill - EvaluateUntransformed(h).
	EvaluateUntransformed(r float64) float64

	Parameters() []float64
	ParameterLowerBounds() []float64
	ParameterUpperBounds() []float64

	// WithParameters returns a copy of the kernel with the given
	// parameters. It fails if the count is wrong or a value is out of bounds.
	WithParameters(params []float64) (Kernel, error)

	// CPDOrder is the order of conditional positive definiteness. A
	// polynomial trend of degree >= CPDOrder()-1 makes the system solvable.
	CPDOrder() int

	// SupportRadius is the distance beyond which Evaluate is exactly zero,
	// or +Inf for globally supported kernels.
	SupportRadius() float64
}

// NewKernel builds a kernel by name with the given parameters.
func NewKernel(name string, params []float64) (Kernel, error) {
	var k Kernel
	switch strings.ToLower(name) {
	case "biharmonic3d", "biharmonic":
		k = Biharmonic3D{Slope: 1}
	case "triharmonic3d", "triharmonic":
		k = Triharmonic3D{Slope: 1}
	case "cov_exponential", "exponential":
		k = CovExponential{PartialSill: 1, Range: 1}
	case "cov_gaussian", "gaussian":
		k = CovGaussian{PartialSill: 1, Range: 1}
	case "cov_spherical", "spherical":
		k = CovSpherical{PartialSill: 1, Range: 1}
	default:
		return nil, errs.InvalidArgument("unknown kernel %q", name)
	}
	if params == nil {
		return k, nil
	}
	return k.WithParameters(params)
}

// checkParameters validates a parameter vector against bounds.
func checkParameters(k Kernel, params []float64) error {
	lb := k.ParameterLowerBounds()
	ub := k.ParameterUpperBounds()
	if len(params) != len(lb) {
		return errs.InvalidArgument("%s expects %d parameters, got %d", k.Name(), len(lb), len(params))
	}
	for i, p := range params {
		if math.IsNaN(p) || p < lb[i] || p > ub[i] {
			return errs.InvalidArgument("%s parameter %d = %g outside [%g, %g]", k.Name(), i, p, lb[i], ub[i])
		}
	}
	return nil
}
