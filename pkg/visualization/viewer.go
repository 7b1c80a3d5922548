// Package visualization renders axis-aligned slices of an interpolant
// sampled on a regular lattice.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"gonum.org/v1/gonum/floats"

	"rbfinterp/pkg/errs"
	"rbfinterp/pkg/geometry"
)

// EvaluateFunc returns values at points, in order.
type EvaluateFunc func(points geometry.Points) ([]float64, error)

// Volume holds values on a width x height x depth lattice spanning a box,
// x fastest.
type Volume struct {
	Values []float64
	Width  int
	Height int
	Depth  int
	BBox   geometry.BBox
}

// SampleVolume evaluates fn at the nodes of a lattice spanning bbox.
// An axis with one node samples the box center.
func SampleVolume(fn EvaluateFunc, bbox geometry.BBox, width, height, depth int) (*Volume, error) {
	if width <= 0 || height <= 0 || depth <= 0 {
		return nil, errs.InvalidArgument("lattice %dx%dx%d must be positive", width, height, depth)
	}
	if bbox.IsEmpty() {
		return nil, errs.InvalidArgument("cannot sample an empty box")
	}

	xs := axisNodes(bbox.Min.X, bbox.Max.X, width)
	ys := axisNodes(bbox.Min.Y, bbox.Max.Y, height)
	zs := axisNodes(bbox.Min.Z, bbox.Max.Z, depth)

	points := make(geometry.Points, 0, width*height*depth)
	for _, z := range zs {
		for _, y := range ys {
			for _, x := range xs {
				points = append(points, geometry.Point{X: x, Y: y, Z: z})
			}
		}
	}

	values, err := fn(points)
	if err != nil {
		return nil, err
	}
	return &Volume{Values: values, Width: width, Height: height, Depth: depth, BBox: bbox}, nil
}

func axisNodes(lo, hi float64, n int) []float64 {
	if n == 1 {
		return []float64{(lo + hi) / 2}
	}
	nodes := make([]float64, n)
	floats.Span(nodes, lo, hi)
	return nodes
}

func (v *Volume) at(x, y, z int) float64 {
	return v.Values[z*v.Width*v.Height+y*v.Width+x]
}

// Viewer maps volume values to 16-bit gray levels, the volume minimum to
// black and its maximum to white.
type Viewer struct {
	volume *Volume
	lo, hi float64
}

// NewViewer creates a viewer scaled to the value range of volume
func NewViewer(volume *Volume) *Viewer {
	v := &Viewer{volume: volume}
	if len(volume.Values) > 0 {
		v.lo, v.hi = floats.Min(volume.Values), floats.Max(volume.Values)
	}
	return v
}

func (v *Viewer) gray(value float64) color.Gray16 {
	scaled := 0.5
	if v.hi > v.lo {
		scaled = (value - v.lo) / (v.hi - v.lo)
	}
	return color.Gray16{Y: uint16(math.Max(0, math.Min(65535, scaled*65535)))}
}

func (v *Viewer) axisLength(axis string) (int, error) {
	switch axis {
	case "x", "X":
		return v.volume.Width, nil
	case "y", "Y":
		return v.volume.Height, nil
	case "z", "Z":
		return v.volume.Depth, nil
	default:
		return 0, errs.InvalidArgument("invalid axis %q (must be x, y, or z)", axis)
	}
}

// ExtractSlice renders the lattice plane at position along axis. X slices
// are depth x height images, Y slices width x depth, Z slices width x
// height.
func (v *Viewer) ExtractSlice(axis string, position int) (*image.Gray16, error) {
	n, err := v.axisLength(axis)
	if err != nil {
		return nil, err
	}
	if position < 0 || position >= n {
		return nil, errs.InvalidArgument("position %d outside [0, %d) along %s", position, n, axis)
	}

	vol := v.volume
	var img *image.Gray16
	switch axis {
	case "x", "X":
		img = image.NewGray16(image.Rect(0, 0, vol.Depth, vol.Height))
		for y := 0; y < vol.Height; y++ {
			for z := 0; z < vol.Depth; z++ {
				img.SetGray16(z, y, v.gray(vol.at(position, y, z)))
			}
		}
	case "y", "Y":
		img = image.NewGray16(image.Rect(0, 0, vol.Width, vol.Depth))
		for z := 0; z < vol.Depth; z++ {
			for x := 0; x < vol.Width; x++ {
				img.SetGray16(x, z, v.gray(vol.at(x, position, z)))
			}
		}
	default:
		img = image.NewGray16(image.Rect(0, 0, vol.Width, vol.Height))
		for y := 0; y < vol.Height; y++ {
			for x := 0; x < vol.Width; x++ {
				img.SetGray16(x, y, v.gray(vol.at(x, y, position)))
			}
		}
	}
	return img, nil
}

// SaveSlice saves an extracted slice as an image whose format follows the
// filename extension. Rows are flipped so the second slice axis points up.
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	if err := imaging.Save(imaging.FlipV(img), filename, imaging.JPEGQuality(90)); err != nil {
		return errs.IO(err, "error saving %s", filename)
	}
	return nil
}

// SaveSliceSequence saves every slice along axis to outputDir as
// slice_<axis>_<position>.jpg.
func (v *Viewer) SaveSliceSequence(axis string, outputDir string) error {
	n, err := v.axisLength(axis)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return errs.IO(err, "error creating %s", outputDir)
	}

	for pos := 0; pos < n; pos++ {
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return err
		}
		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.jpg", axis, pos))
		if err := v.SaveSlice(img, filename); err != nil {
			return err
		}
	}
	return nil
}
