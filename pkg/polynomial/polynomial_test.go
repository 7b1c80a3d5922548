package polynomial

import (
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rbfinterp/pkg/errs"
	"rbfinterp/pkg/geometry"
)

func randomPoints(rng *rand.Rand, n int) geometry.Points {
	points := make(geometry.Points, n)
	for i := range points {
		points[i] = geometry.Point{X: rng.Float64(), Y: rng.Float64(), Z: rng.Float64()}
	}
	return points
}

func TestMonomialOrdering(t *testing.T) {
	b := NewMonomialBasis(2)
	require.Equal(t, 10, b.Size())
	expected := [][3]int{
		{0, 0, 0},
		{1, 0, 0}, {0, 1, 0}, {0, 0, 1},
		{2, 0, 0}, {1, 1, 0}, {1, 0, 1}, {0, 2, 0}, {0, 1, 1}, {0, 0, 2},
	}
	for j, e := range expected {
		assert.Equal(t, e, b.Exponents(j), "monomial %d", j)
	}

	values := make([]float64, b.Size())
	b.EvaluatePoint(geometry.Point{X: 2, Y: 3, Z: 5}, values)
	assert.Equal(t, []float64{1, 2, 3, 5, 4, 6, 10, 9, 15, 25}, values)

	assert.Equal(t, 0, NewMonomialBasis(-1).Size())
	assert.Nil(t, NewMonomialBasis(-1).EvaluatePoints(geometry.Points{{}}))
	assert.Equal(t, 20, BasisSize(3))
}

// TestLagrangeDelta verifies L_k(p_i) = delta_ik at the reference points
func TestLagrangeDelta(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for degree := 0; degree <= 2; degree++ {
		points := randomPoints(rng, BasisSize(degree))
		l, err := NewLagrangeBasis(degree, points)
		require.NoError(t, err)

		e := l.EvaluatePoints(points)
		for i := range points {
			for k := range points {
				expected := 0.0
				if i == k {
					expected = 1
				}
				assert.InDelta(t, expected, e.At(i, k), 1e-9, "degree %d (%d, %d)", degree, i, k)
			}
		}
	}
}

// TestLagrangeToMonomial checks that both representations describe the
// same polynomial
func TestLagrangeToMonomial(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	degree := 2
	l, err := NewLagrangeBasis(degree, randomPoints(rng, BasisSize(degree)))
	require.NoError(t, err)

	c := make([]float64, l.Size())
	for i := range c {
		c[i] = rng.NormFloat64()
	}

	field := randomPoints(rng, 7)
	lagr := l.EvaluatePoints(field)

	ev := NewEvaluator(degree)
	require.NoError(t, ev.SetWeights(l.ToMonomial(c)))
	ev.SetFieldPoints(field)
	got := ev.Evaluate()

	for i := range field {
		expected := 0.0
		for k := range c {
			expected += c[k] * lagr.At(i, k)
		}
		assert.InDelta(t, expected, got[i], 1e-8)
	}
}

func TestLagrangeRejectsBadInput(t *testing.T) {
	_, err := NewLagrangeBasis(1, geometry.Points{{}, {X: 1}})
	assert.True(t, errors.Is(err, errs.ErrInvalidArgument))

	coplanar := geometry.Points{{}, {X: 1}, {Y: 1}, {X: 1, Y: 1}}
	_, err = NewLagrangeBasis(1, coplanar)
	assert.True(t, errors.Is(err, errs.ErrInvalidArgument))

	l, err := NewLagrangeBasis(-1, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, l.Size())
	assert.Empty(t, l.ToMonomial(nil))
}

func TestSelectUnisolvent(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	points := randomPoints(rng, 50)

	for degree := -1; degree <= 2; degree++ {
		idx, err := SelectUnisolvent(degree, points, nil)
		require.NoError(t, err)
		require.Len(t, idx, BasisSize(degree))

		seen := map[int]bool{}
		for _, i := range idx {
			assert.False(t, seen[i], "duplicate index %d", i)
			seen[i] = true
		}

		_, err = NewLagrangeBasis(degree, points.Take(idx))
		assert.NoError(t, err, "degree %d", degree)
	}

	// Candidates restrict the choice.
	idx, err := SelectUnisolvent(1, points, []int{40, 41, 42, 43, 44, 45})
	require.NoError(t, err)
	for _, i := range idx {
		assert.GreaterOrEqual(t, i, 40)
	}

	// Points on a plane cannot carry a linear trend in 3-D.
	plane := make(geometry.Points, 20)
	for i := range plane {
		plane[i] = geometry.Point{X: rng.Float64(), Y: rng.Float64(), Z: 0.5}
	}
	_, err = SelectUnisolvent(1, plane, nil)
	assert.True(t, errors.Is(err, errs.ErrInvalidArgument))

	_, err = SelectUnisolvent(1, points, []int{1, 2})
	assert.True(t, errors.Is(err, errs.ErrInvalidArgument))
}

func TestEvaluatorWeightLength(t *testing.T) {
	ev := NewEvaluator(1)
	err := ev.SetWeights([]float64{1, 2})
	assert.True(t, errors.Is(err, errs.ErrInvalidArgument))

	require.NoError(t, ev.SetWeights([]float64{1, 2, 3, 4}))
	ev.SetFieldPoints(geometry.Points{{X: 1, Y: 1, Z: 1}, {}})
	assert.Equal(t, []float64{10, 1}, ev.Evaluate())
}
