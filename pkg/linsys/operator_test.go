package linsys

import (
	"math"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"rbfinterp/pkg/errs"
	"rbfinterp/pkg/geometry"
	"rbfinterp/pkg/rbf"
)

func testModel(t *testing.T, degree int, nugget float64) rbf.Model {
	t.Helper()
	model, err := rbf.NewModel(rbf.Biharmonic3D{Slope: 1}, degree)
	require.NoError(t, err)
	model, err = model.WithNugget(nugget)
	require.NoError(t, err)
	return model
}

func randomVector(rng *rand.Rand, n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = rng.NormFloat64()
	}
	return v
}

func randomCenters(rng *rand.Rand, n int) geometry.Points {
	points := make(geometry.Points, n)
	for i := range points {
		points[i] = geometry.Point{X: rng.Float64(), Y: rng.Float64(), Z: rng.Float64()}
	}
	return points
}

// TestApplyMatchesDefinition compares Apply against an explicit row sum
func TestApplyMatchesDefinition(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	centers := randomCenters(rng, 150)
	model := testModel(t, 1, 0.1)
	op := NewOperator(model, centers, 4)
	require.Equal(t, 154, op.Size())

	x := randomVector(rng, op.Size())
	got, err := op.Apply(x)
	require.NoError(t, err)

	for _, i := range []int{0, 17, 149} {
		expected := 0.1 * x[i]
		for j, c := range centers {
			expected -= centers[i].Sub(c).Norm() * x[j]
		}
		c := centers[i]
		expected += x[150] + c.X*x[151] + c.Y*x[152] + c.Z*x[153]
		assert.InDelta(t, expected, got[i], 1e-10)
	}

	var sumW, sumXW float64
	for i, c := range centers {
		sumW += x[i]
		sumXW += c.X * x[i]
	}
	assert.InDelta(t, sumW, got[150], 1e-10)
	assert.InDelta(t, sumXW, got[151], 1e-10)
}

func TestApplyIsSymmetric(t *testing.T) {
	rng := rand.New(rand.NewSource(12))
	op := NewOperator(testModel(t, 2, 0), randomCenters(rng, 90), 3)

	x := randomVector(rng, op.Size())
	y := randomVector(rng, op.Size())
	ax, err := op.Apply(x)
	require.NoError(t, err)
	ay, err := op.Apply(y)
	require.NoError(t, err)

	assert.InDelta(t, floats.Dot(y, ax), floats.Dot(x, ay), 1e-9)
}

func TestResiduals(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	op := NewOperator(testModel(t, 0, 0), randomCenters(rng, 20), 1)

	x := randomVector(rng, op.Size())
	ax, err := op.Apply(x)
	require.NoError(t, err)

	main, ortho, err := op.Residuals(x, ax[:op.N()])
	require.NoError(t, err)
	assert.InDelta(t, 0, main, 1e-12)
	// ortho is a max-norm, so it matches |P^T w| whatever the sign.
	assert.InDelta(t, floats.Norm(ax[op.N():], math.Inf(1)), ortho, 1e-12)

	// Negating x flips the sign of P^T w but not the residual norms.
	neg := append([]float64(nil), x...)
	floats.Scale(-1, neg)
	negAx, err := op.Apply(neg)
	require.NoError(t, err)
	negMain, negOrtho, err := op.Residuals(neg, negAx[:op.N()])
	require.NoError(t, err)
	assert.InDelta(t, 0, negMain, 1e-12)
	assert.InDelta(t, ortho, negOrtho, 1e-12)
	assert.Greater(t, ortho, 0.0)

	_, _, err = op.Residuals(x, ax)
	assert.True(t, errors.Is(err, errs.ErrInvalidArgument))
	_, err = op.Apply(x[:3])
	assert.True(t, errors.Is(err, errs.ErrInvalidArgument))
}

func TestNoPolynomial(t *testing.T) {
	rng := rand.New(rand.NewSource(14))
	model, err := rbf.NewModel(rbf.CovGaussian{PartialSill: 1, Range: 0.5}, -1)
	require.NoError(t, err)
	op := NewOperator(model, randomCenters(rng, 10), 0)
	assert.Equal(t, 0, op.M())
	assert.Empty(t, op.MonomialsT(randomVector(rng, 10)))
}
