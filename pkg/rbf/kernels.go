package rbf

import (
	"math"

	"rbfinterp/pkg/errs"
)

var inf = math.Inf(1)

// Biharmonic3D is the 3-D biharmonic spline -slope*r. It is conditionally
// positive definite of order 1 and needs a polynomial degree >= 0.
type Biharmonic3D struct {
	Slope float64
}

func (k Biharmonic3D) Name() string               { return "biharmonic3d" }
func (k Biharmonic3D) Evaluate(r float64) float64 { return k.EvaluateUntransformed(r) }
func (k Biharmonic3D) EvaluateUntransformed(r float64) float64 {
	return -k.Slope * r
}
func (k Biharmonic3D) Parameters() []float64           { return []float64{k.Slope} }
func (k Biharmonic3D) ParameterLowerBounds() []float64 { return []float64{0} }
func (k Biharmonic3D) ParameterUpperBounds() []float64 { return []float64{inf} }
func (k Biharmonic3D) CPDOrder() int                   { return 1 }
func (k Biharmonic3D) SupportRadius() float64          { return inf }

func (k Biharmonic3D) WithParameters(params []float64) (Kernel, error) {
	if err := checkParameters(k, params); err != nil {
		return nil, err
	}
	return Biharmonic3D{Slope: params[0]}, nil
}

// Triharmonic3D is the 3-D triharmonic spline slope*r^3. It is
// conditionally positive definite of order 2 and needs a degree >= 1.
type Triharmonic3D struct {
	Slope float64
}

func (k Triharmonic3D) Name() string               { return "triharmonic3d" }
func (k Triharmonic3D) Evaluate(r float64) float64 { return k.EvaluateUntransformed(r) }
func (k Triharmonic3D) EvaluateUntransformed(r float64) float64 {
	return k.Slope * r * r * r
}
func (k Triharmonic3D) Parameters() []float64           { return []float64{k.Slope} }
func (k Triharmonic3D) ParameterLowerBounds() []float64 { return []float64{0} }
func (k Triharmonic3D) ParameterUpperBounds() []float64 { return []float64{inf} }
func (k Triharmonic3D) CPDOrder() int                   { return 2 }
func (k Triharmonic3D) SupportRadius() float64          { return inf }

func (k Triharmonic3D) WithParameters(params []float64) (Kernel, error) {
	if err := checkParameters(k, params); err != nil {
		return nil, err
	}
	return Triharmonic3D{Slope: params[0]}, nil
}

// CovExponential is the exponential covariance psill*exp(-3r/range),
// reaching ~95% of the sill at the practical range.
type CovExponential struct {
	PartialSill float64
	Range       float64
}

func (k CovExponential) Name() string               { return "cov_exponential" }
func (k CovExponential) Evaluate(r float64) float64 { return k.EvaluateUntransformed(r) }
func (k CovExponential) EvaluateUntransformed(r float64) float64 {
	return k.PartialSill * math.Exp(-3*r/k.Range)
}
func (k CovExponential) Parameters() []float64           { return []float64{k.PartialSill, k.Range} }
func (k CovExponential) ParameterLowerBounds() []float64 { return []float64{0, 0} }
func (k CovExponential) ParameterUpperBounds() []float64 { return []float64{inf, inf} }
func (k CovExponential) CPDOrder() int                   { return 0 }
func (k CovExponential) SupportRadius() float64          { return inf }

func (k CovExponential) WithParameters(params []float64) (Kernel, error) {
	if err := checkCovariance(k, params); err != nil {
		return nil, err
	}
	return CovExponential{PartialSill: params[0], Range: params[1]}, nil
}

// CovGaussian is the Gaussian covariance psill*exp(-3r^2/range^2). The
// resulting systems are badly conditioned for dense data; prefer the
// other kernels unless the field is very smooth.
type CovGaussian struct {
	PartialSill float64
	Range       float64
}

func (k CovGaussian) Name() string               { return "cov_gaussian" }
func (k CovGaussian) Evaluate(r float64) float64 { return k.EvaluateUntransformed(r) }
func (k CovGaussian) EvaluateUntransformed(r float64) float64 {
	return k.PartialSill * math.Exp(-3*r*r/(k.Range*k.Range))
}
func (k CovGaussian) Parameters() []float64           { return []float64{k.PartialSill, k.Range} }
func (k CovGaussian) ParameterLowerBounds() []float64 { return []float64{0, 0} }
func (k CovGaussian) ParameterUpperBounds() []float64 { return []float64{inf, inf} }
func (k CovGaussian) CPDOrder() int                   { return 0 }
func (k CovGaussian) SupportRadius() float64          { return inf }

func (k CovGaussian) WithParameters(params []float64) (Kernel, error) {
	if err := checkCovariance(k, params); err != nil {
		return nil, err
	}
	return CovGaussian{PartialSill: params[0], Range: params[1]}, nil
}

// CovSpherical is the spherical covariance. It vanishes beyond the range,
// which lets the evaluator skip distant center cells.
type CovSpherical struct {
	PartialSill float64
	Range       float64
}

func (k CovSpherical) Name() string               { return "cov_spherical" }
func (k CovSpherical) Evaluate(r float64) float64 { return k.EvaluateUntransformed(r) }
func (k CovSpherical) EvaluateUntransformed(r float64) float64 {
	if r >= k.Range {
		return 0
	}
	x := r / k.Range
	return k.PartialSill * (1 - 1.5*x + 0.5*x*x*x)
}
func (k CovSpherical) Parameters() []float64           { return []float64{k.PartialSill, k.Range} }
func (k CovSpherical) ParameterLowerBounds() []float64 { return []float64{0, 0} }
func (k CovSpherical) ParameterUpperBounds() []float64 { return []float64{inf, inf} }
func (k CovSpherical) CPDOrder() int                   { return 0 }
func (k CovSpherical) SupportRadius() float64          { return k.Range }

func (k CovSpherical) WithParameters(params []float64) (Kernel, error) {
	if err := checkCovariance(k, params); err != nil {
		return nil, err
	}
	return CovSpherical{PartialSill: params[0], Range: params[1]}, nil
}

func checkCovariance(k Kernel, params []float64) error {
	if err := checkParameters(k, params); err != nil {
		return err
	}
	if params[1] <= 0 {
		return errs.InvalidArgument("%s range must be positive, got %g", k.Name(), params[1])
	}
	return nil
}
