package models

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rbfinterp/pkg/errs"
	"rbfinterp/pkg/geometry"
)

func TestReadDataset(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		points    int
		hasValues bool
		hasBounds bool
	}{
		{"query with header", "x,y,z\n0,0,0\n1,2,3\n", 2, false, false},
		{"values", "0,0,0,1.5\n1,1,1,-2\n# comment\n2,2,2,0\n", 3, true, false},
		{"bounds", "x,y,z,value,lower,upper\n0,0,0,,0,1\n1,1,1,2,,\n", 2, true, true},
		{"empty", "", 0, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ReadDataset(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Len(t, d.Points, tt.points)
			assert.Equal(t, tt.hasValues, d.Values != nil)
			assert.Equal(t, tt.hasBounds, d.HasBounds())
		})
	}

	d, err := ReadDataset(strings.NewReader("0,0,0,,0,1\n1,1,1,2,,\n"))
	require.NoError(t, err)
	assert.True(t, math.IsNaN(d.Values[0]))
	assert.Equal(t, 2.0, d.Values[1])
	assert.True(t, math.IsNaN(d.Upper[1]))
	assert.Equal(t, geometry.Point{X: 1, Y: 1, Z: 1}, d.Points[1])
}

func TestReadDatasetErrors(t *testing.T) {
	_, err := ReadDataset(strings.NewReader("0,0\n"))
	assert.True(t, errors.Is(err, errs.ErrInvalidArgument))

	_, err = ReadDataset(strings.NewReader("0,0,0\n1,abc,2\n"))
	assert.True(t, errors.Is(err, errs.ErrInvalidArgument))

	// Ragged rows are rejected by the CSV reader.
	_, err = ReadDataset(strings.NewReader("0,0,0\n1,1,1,1\n"))
	assert.Error(t, err)

	_, err = LoadDataset(filepath.Join(t.TempDir(), "missing.csv"))
	assert.True(t, errors.Is(err, errs.ErrIO))
}

func TestWriteAndLoadPredictions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	points := geometry.Points{{X: 0.5, Y: -1, Z: 2}, {X: 1e-3, Y: 0, Z: 7}}
	values := []float64{0.25, -3}
	require.NoError(t, WritePredictions(path, points, values))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "x,y,z,value\n"))

	d, err := LoadDataset(path)
	require.NoError(t, err)
	assert.Equal(t, points, d.Points)
	assert.Equal(t, values, d.Values)

	err = WritePredictions(path, points, values[:1])
	assert.True(t, errors.Is(err, errs.ErrInvalidArgument))
}
