// Package models holds the data exchanged by the rbfinterp command: the
// scattered samples read from CSV and the predictions written back.
package models

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"rbfinterp/pkg/errs"
	"rbfinterp/pkg/geometry"
)

// Dataset represents a set of scattered samples
type Dataset struct {
	// Points are the sample locations
	Points geometry.Points

	// Values are the sample values, NaN where a point only carries bounds.
	// Nil for query files.
	Values []float64

	// Lower and Upper are the bounds for inequality fitting, NaN where
	// absent. Nil when the file has no bound columns.
	Lower []float64
	Upper []float64
}

// HasBounds reports whether the dataset carries bound columns
func (d *Dataset) HasBounds() bool {
	return d.Lower != nil
}

// LoadDataset reads a CSV file with columns x,y,z[,value[,lower,upper]].
// A leading header row is skipped; empty cells read as NaN.
func LoadDataset(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.IO(err, "error opening %s", path)
	}
	defer f.Close()

	d, err := ReadDataset(f)
	if err != nil {
		return nil, errs.IO(err, "error reading %s", path)
	}
	return d, nil
}

// ReadDataset parses CSV records from r; see LoadDataset.
func ReadDataset(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) > 0 && isHeader(records[0]) {
		records = records[1:]
	}

	d := &Dataset{}
	if len(records) == 0 {
		return d, nil
	}
	columns := len(records[0])
	switch columns {
	case 3:
	case 4:
		d.Values = make([]float64, 0, len(records))
	case 6:
		d.Values = make([]float64, 0, len(records))
		d.Lower = make([]float64, 0, len(records))
		d.Upper = make([]float64, 0, len(records))
	default:
		return nil, errs.InvalidArgument("expected 3, 4 or 6 columns, got %d", columns)
	}

	d.Points = make(geometry.Points, 0, len(records))
	for line, record := range records {
		row := make([]float64, len(record))
		for i, field := range record {
			if row[i], err = parseField(field); err != nil {
				return nil, errs.InvalidArgument("record %d column %d: %v", line+1, i+1, err)
			}
		}
		d.Points = append(d.Points, geometry.Point{X: row[0], Y: row[1], Z: row[2]})
		if columns >= 4 {
			d.Values = append(d.Values, row[3])
		}
		if columns == 6 {
			d.Lower = append(d.Lower, row[4])
			d.Upper = append(d.Upper, row[5])
		}
	}
	return d, nil
}

// WritePredictions writes x,y,z,value rows to path.
func WritePredictions(path string, points geometry.Points, values []float64) error {
	if len(points) != len(values) {
		return errs.InvalidArgument("got %d values for %d points", len(values), len(points))
	}

	f, err := os.Create(path)
	if err != nil {
		return errs.IO(err, "error creating %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"x", "y", "z", "value"}); err != nil {
		return errs.IO(err, "error writing %s", path)
	}
	for i, p := range points {
		record := []string{formatFloat(p.X), formatFloat(p.Y), formatFloat(p.Z), formatFloat(values[i])}
		if err := w.Write(record); err != nil {
			return errs.IO(err, "error writing %s", path)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errs.IO(err, "error writing %s", path)
	}
	return nil
}

func isHeader(record []string) bool {
	_, err := parseField(record[0])
	return err != nil
}

func parseField(field string) (float64, error) {
	field = strings.TrimSpace(field)
	if field == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(field, 64)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
