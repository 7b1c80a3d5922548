package visualization

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rbfinterp/pkg/errs"
	"rbfinterp/pkg/geometry"
)

func unitBox() geometry.BBox {
	return geometry.BBox{Min: geometry.Point{}, Max: geometry.Point{X: 1, Y: 2, Z: 4}}
}

// sumField returns x + y + z at each point
func sumField(points geometry.Points) ([]float64, error) {
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.X + p.Y + p.Z
	}
	return values, nil
}

func TestSampleVolume(t *testing.T) {
	vol, err := SampleVolume(sumField, unitBox(), 3, 5, 2)
	require.NoError(t, err)
	assert.Len(t, vol.Values, 3*5*2)

	// Corners of the lattice are the corners of the box.
	assert.InDelta(t, 0.0, vol.at(0, 0, 0), 1e-12)
	assert.InDelta(t, 7.0, vol.at(2, 4, 1), 1e-12)
	assert.InDelta(t, 0.5+1+4, vol.at(1, 2, 1), 1e-12)

	flat, err := SampleVolume(sumField, unitBox(), 1, 1, 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.5+1+2, flat.Values[0], 1e-12)

	_, err = SampleVolume(sumField, unitBox(), 0, 1, 1)
	assert.True(t, errors.Is(err, errs.ErrInvalidArgument))
	_, err = SampleVolume(sumField, geometry.EmptyBBox(), 1, 1, 1)
	assert.True(t, errors.Is(err, errs.ErrInvalidArgument))

	failing := func(geometry.Points) ([]float64, error) { return nil, errs.InvalidArgument("empty") }
	_, err = SampleVolume(failing, unitBox(), 2, 2, 2)
	assert.Error(t, err)
}

func TestExtractSlice(t *testing.T) {
	width, height, depth := 4, 3, 5
	vol, err := SampleVolume(sumField, unitBox(), width, height, depth)
	require.NoError(t, err)
	viewer := NewViewer(vol)

	tests := []struct {
		axis          string
		position      int
		width, height int
	}{
		{"x", 1, depth, height},
		{"y", 2, width, depth},
		{"z", 4, width, height},
		{"Z", 0, width, height},
	}
	for _, tt := range tests {
		t.Run(tt.axis, func(t *testing.T) {
			img, err := viewer.ExtractSlice(tt.axis, tt.position)
			require.NoError(t, err)
			assert.Equal(t, tt.width, img.Bounds().Dx())
			assert.Equal(t, tt.height, img.Bounds().Dy())
		})
	}

	// The minimum maps to black and the maximum to white.
	img, err := viewer.ExtractSlice("z", 0)
	require.NoError(t, err)
	assert.Equal(t, uint16(0), img.Gray16At(0, 0).Y)
	img, err = viewer.ExtractSlice("z", depth-1)
	require.NoError(t, err)
	assert.Equal(t, uint16(65535), img.Gray16At(width-1, height-1).Y)

	_, err = viewer.ExtractSlice("w", 0)
	assert.True(t, errors.Is(err, errs.ErrInvalidArgument))
	_, err = viewer.ExtractSlice("z", depth)
	assert.True(t, errors.Is(err, errs.ErrInvalidArgument))
	_, err = viewer.ExtractSlice("x", -1)
	assert.True(t, errors.Is(err, errs.ErrInvalidArgument))
}

func TestConstantVolumeIsMidGray(t *testing.T) {
	constant := func(points geometry.Points) ([]float64, error) {
		return make([]float64, len(points)), nil
	}
	vol, err := SampleVolume(constant, unitBox(), 2, 2, 2)
	require.NoError(t, err)

	img, err := NewViewer(vol).ExtractSlice("z", 0)
	require.NoError(t, err)
	assert.Equal(t, uint16(32767), img.Gray16At(1, 1).Y)
}

func TestSaveSliceSequence(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping file I/O test in short mode")
	}

	vol, err := SampleVolume(sumField, unitBox(), 5, 5, 3)
	require.NoError(t, err)
	viewer := NewViewer(vol)

	outputDir := filepath.Join(t.TempDir(), "slices")
	require.NoError(t, viewer.SaveSliceSequence("z", outputDir))
	for z := 0; z < 3; z++ {
		_, err := os.Stat(filepath.Join(outputDir, fmt.Sprintf("slice_z_%03d.jpg", z)))
		assert.NoError(t, err)
	}

	err = viewer.SaveSliceSequence("invalid", outputDir)
	assert.True(t, errors.Is(err, errs.ErrInvalidArgument))
}
