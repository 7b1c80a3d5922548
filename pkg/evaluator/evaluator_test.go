package evaluator

import (
	"math"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rbfinterp/pkg/errs"
	"rbfinterp/pkg/geometry"
	"rbfinterp/pkg/rbf"
)

func randomPoints(rng *rand.Rand, n int, scale float64) geometry.Points {
	points := make(geometry.Points, n)
	for i := range points {
		points[i] = geometry.Point{X: rng.Float64(), Y: rng.Float64(), Z: rng.Float64()}.Mul(scale)
	}
	return points
}

// TestDirectAndAcceleratedAgree checks both strategies for a global and a
// compactly supported kernel
func TestDirectAndAcceleratedAgree(t *testing.T) {
	tests := []struct {
		name   string
		kernel rbf.Kernel
		degree int
	}{
		{"biharmonic", rbf.Biharmonic3D{Slope: 1}, 1},
		{"spherical", rbf.CovSpherical{PartialSill: 2, Range: 0.15}, 0},
		{"spherical without trend", rbf.CovSpherical{PartialSill: 1, Range: 0.3}, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng := rand.New(rand.NewSource(21))
			model, err := rbf.NewModel(tt.kernel, tt.degree)
			require.NoError(t, err)

			centers := randomPoints(rng, 2000, 1)
			queries := randomPoints(rng, 500, 1)
			bbox := geometry.BBoxFromPoints(centers).Union(geometry.BBoxFromPoints(queries))

			e, err := New(model, centers, bbox)
			require.NoError(t, err)
			e.SetNumWorkers(3)

			weights := make([]float64, len(centers)+model.PolyBasisSize())
			for i := range weights {
				weights[i] = rng.NormFloat64()
			}
			require.NoError(t, e.SetWeights(weights))

			direct := e.EvaluatePointsDirect(queries)
			accelerated, err := e.EvaluatePoints(queries)
			require.NoError(t, err)
			require.Len(t, accelerated, len(queries))

			for i := range queries {
				tol := 1e-8 * math.Max(1, math.Abs(direct[i]))
				assert.InDelta(t, direct[i], accelerated[i], tol, "query %d", i)
			}
		})
	}
}

// TestGlobalKernelsEvaluatePairwise checks that kernels without a finite
// support radius take the pairwise path
func TestGlobalKernelsEvaluatePairwise(t *testing.T) {
	rng := rand.New(rand.NewSource(22))
	model, err := rbf.NewModel(rbf.Triharmonic3D{Slope: 1}, 1)
	require.NoError(t, err)
	require.True(t, math.IsInf(model.Kernel().SupportRadius(), 1))

	centers := randomPoints(rng, 300, 1)
	queries := randomPoints(rng, 100, 1)
	e, err := New(model, centers, geometry.BBoxFromPoints(centers).Union(geometry.BBoxFromPoints(queries)))
	require.NoError(t, err)

	weights := make([]float64, len(centers)+model.PolyBasisSize())
	for i := range weights {
		weights[i] = rng.NormFloat64()
	}
	require.NoError(t, e.SetWeights(weights))

	got, err := e.EvaluatePoints(queries)
	require.NoError(t, err)
	assert.Equal(t, e.EvaluatePointsDirect(queries), got)
}

func TestPolynomialTail(t *testing.T) {
	model, err := rbf.NewModel(rbf.Triharmonic3D{Slope: 1}, 1)
	require.NoError(t, err)
	centers := geometry.Points{{}, {X: 1, Y: 1, Z: 1}}
	e, err := New(model, centers, geometry.BBoxFromPoints(centers))
	require.NoError(t, err)

	// Zero RBF weights leave only 1 + 2x - y + 3z.
	require.NoError(t, e.SetWeights([]float64{0, 0, 1, 2, -1, 3}))
	values, err := e.EvaluatePoints(geometry.Points{{X: 0.5, Y: 0.5, Z: 0.5}, {X: 1, Y: 0, Z: 0}})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{3, 3}, values, 1e-12)
}

func TestEvaluatorErrors(t *testing.T) {
	model, err := rbf.NewModel(rbf.Biharmonic3D{Slope: 1}, 0)
	require.NoError(t, err)
	centers := geometry.Points{{}, {X: 1}}

	_, err = New(model, centers, geometry.BBoxFromPoints(centers[:1]))
	assert.True(t, errors.Is(err, errs.ErrInvalidArgument))

	e, err := New(model, centers, geometry.BBoxFromPoints(centers))
	require.NoError(t, err)

	err = e.SetWeights([]float64{1, 2})
	assert.True(t, errors.Is(err, errs.ErrInvalidArgument))

	_, err = e.EvaluatePoints(geometry.Points{{X: 2}})
	assert.True(t, errors.Is(err, errs.ErrInvalidArgument))

	// The direct strategy has no bbox restriction.
	require.NoError(t, e.SetWeights([]float64{1, -1, 0.5}))
	assert.InDeltaSlice(t, []float64{-2 + 1 + 0.5}, e.EvaluatePointsDirect(geometry.Points{{X: 2}}), 1e-12)
}
