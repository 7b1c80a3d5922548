package rbf

import (
	"math"

	"rbfinterp/pkg/errs"
)

// Dimension is the spatial dimension of every model.
const Dimension = 3

// Model combines an RBF kernel with a polynomial trend of a given degree
// (-1 for none) and a nugget. It is an immutable value: the With* methods
// return modified copies.
type Model struct {
	kernel Kernel
	degree int
	nugget float64
}

// NewModel creates a model with a zero nugget. The kernel's CPD order is
// not checked against the degree; choosing a compatible pair is the
// caller's responsibility.
func NewModel(kernel Kernel, degree int) (Model, error) {
	if kernel == nil {
		return Model{}, errs.InvalidArgument("kernel must not be nil")
	}
	if degree < -1 {
		return Model{}, errs.InvalidArgument("polynomial degree must be >= -1, got %d", degree)
	}
	return Model{kernel: kernel, degree: degree}, nil
}

// WithNugget returns a copy of the model with the given nugget.
func (m Model) WithNugget(nugget float64) (Model, error) {
	if !(nugget >= 0) || math.IsInf(nugget, 0) {
		return Model{}, errs.InvalidArgument("nugget must be finite and >= 0, got %g", nugget)
	}
	m.nugget = nugget
	return m, nil
}

func (m Model) Kernel() Kernel     { return m.kernel }
func (m Model) PolyDimension() int { return Dimension }
func (m Model) PolyDegree() int    { return m.degree }
func (m Model) Nugget() float64    { return m.nugget }
func (m Model) PolyBasisSize() int { return PolyBasisSize(Dimension, m.degree) }

// PolyBasisSize returns the number of monomials of total degree <= degree
// in dimension variables, or 0 when degree < 0.
func PolyBasisSize(dimension, degree int) int {
	if degree < 0 {
		return 0
	}
	// C(degree+dimension, dimension)
	size := 1
	for i := 1; i <= dimension; i++ {
		size = size * (degree + i) / i
	}
	return size
}

// Parameters returns the nugget followed by the kernel parameters. This is
// the vector an external variogram fitter optimizes.
func (m Model) Parameters() []float64 {
	return append([]float64{m.nugget}, m.kernel.Parameters()...)
}

// ParameterLowerBounds returns the lower bounds matching Parameters.
func (m Model) ParameterLowerBounds() []float64 {
	return append([]float64{0}, m.kernel.ParameterLowerBounds()...)
}

// ParameterUpperBounds returns the upper bounds matching Parameters.
func (m Model) ParameterUpperBounds() []float64 {
	return append([]float64{math.Inf(1)}, m.kernel.ParameterUpperBounds()...)
}

// WithParameters returns a copy of the model with the nugget and kernel
// parameters replaced.
func (m Model) WithParameters(params []float64) (Model, error) {
	if len(params) == 0 {
		return Model{}, errs.InvalidArgument("parameter vector is empty")
	}
	kernel, err := m.kernel.WithParameters(params[1:])
	if err != nil {
		return Model{}, err
	}
	m.kernel = kernel
	return m.WithNugget(params[0])
}
