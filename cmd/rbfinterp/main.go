package main

import (
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"rbfinterp/internal/models"
	"rbfinterp/pkg/config"
	"rbfinterp/pkg/geometry"
	"rbfinterp/pkg/interpolation"
	"rbfinterp/pkg/logging"
	"rbfinterp/pkg/rbf"
	"rbfinterp/pkg/visualization"
)

const (
	modeDirect      = "direct"
	modeIncremental = "incremental"
	modeInequality  = "inequality"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatalf("rbfinterp: %v", err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "rbfinterp",
		Usage: "fit RBF interpolants to scattered 3-D samples and evaluate them",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML solver and fitter configuration (defaults when missing)",
				Value:   "rbfinterp.yaml",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "log solver iterations and fitter state changes",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "fit",
				Usage:     "fit samples and write predictions at query points",
				UsageText: "rbfinterp fit --points samples.csv --queries grid.csv [options]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "points",
						Usage:    "CSV of x,y,z,value (or x,y,z,value,lower,upper for inequality fits)",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "queries",
						Usage: "CSV of x,y,z query points; the sample points are used when empty",
					},
					&cli.StringFlag{
						Name:  "output",
						Usage: "predictions CSV",
						Value: "predictions.csv",
					},
					&cli.StringFlag{
						Name:  "kernel",
						Usage: "biharmonic, triharmonic, exponential, gaussian or spherical",
						Value: "biharmonic",
					},
					&cli.Float64SliceFlag{
						Name:  "params",
						Usage: "kernel parameters (slope, or partial sill and range)",
					},
					&cli.IntFlag{
						Name:  "degree",
						Usage: "polynomial degree, -1 for none",
						Value: 1,
					},
					&cli.Float64Flag{
						Name:  "nugget",
						Usage: "smoothing nugget (direct fits only)",
					},
					&cli.Float64Flag{
						Name:  "tolerance",
						Usage: "absolute fitting tolerance",
						Value: 1e-6,
					},
					&cli.StringFlag{
						Name:  "mode",
						Usage: "direct, incremental or inequality",
						Value: modeDirect,
					},
					&cli.BoolFlag{
						Name:  "extract-slices",
						Usage: "render slices of the interpolant along all axes",
					},
					&cli.StringFlag{
						Name:  "slices-dir",
						Usage: "directory to save extracted slices",
						Value: "slices",
					},
					&cli.IntFlag{
						Name:  "resolution",
						Usage: "lattice nodes per axis for extracted slices",
						Value: 64,
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "worker goroutines, overrides the configuration when positive",
					},
				},
				Action: fitAction,
			},
			{
				Name:  "init-config",
				Usage: "write the default configuration file",
				Action: func(c *cli.Context) error {
					path := c.String("config")
					if err := config.CreateDefaultConfigFile(path); err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "default configuration written to %s\n", path)
					return nil
				},
			},
		},
	}
}

func fitAction(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return err
	}
	if workers := c.Int("workers"); workers > 0 {
		cfg.Solver.NumWorkers = workers
	}
	verbose := cfg.Output.Verbose || c.Bool("verbose")

	logger, err := logging.NewLogger("rbfinterp", verbose)
	if err != nil {
		return errors.Wrap(err, "error creating logger")
	}
	defer func() { _ = logger.Sync() }()

	model, err := buildModel(c)
	if err != nil {
		return err
	}

	samples, err := models.LoadDataset(c.String("points"))
	if err != nil {
		return err
	}
	if samples.Values == nil {
		return errors.Errorf("%s has no value column", c.String("points"))
	}

	queries := samples.Points
	if path := c.String("queries"); path != "" {
		q, err := models.LoadDataset(path)
		if err != nil {
			return err
		}
		queries = q.Points
	}

	ip := interpolation.New(model, interpolation.WithConfig(cfg), interpolation.WithLogger(logger))
	if verbose {
		ip.SetProgressCallback(func(completed, total int, message string) {
			fmt.Fprintf(c.App.ErrWriter, "\r%s: %d/%d", message, completed, total)
		})
	}

	mode := c.String("mode")
	tolerance := c.Float64("tolerance")
	logger.Info("fitting",
		zap.String("mode", mode),
		zap.String("kernel", model.Kernel().Name()),
		zap.Int("degree", model.PolyDegree()),
		zap.Int("points", len(samples.Points)))

	startTime := time.Now()
	switch mode {
	case modeDirect:
		err = ip.Fit(samples.Points, samples.Values, tolerance)
	case modeIncremental:
		err = ip.FitIncrementally(samples.Points, samples.Values, tolerance)
	case modeInequality:
		if !samples.HasBounds() {
			return errors.Errorf("%s has no lower and upper columns", c.String("points"))
		}
		err = ip.FitInequality(samples.Points, samples.Values, samples.Lower, samples.Upper, tolerance)
	default:
		return errors.Errorf("unknown mode %q", mode)
	}
	if verbose {
		fmt.Fprintln(c.App.ErrWriter)
	}
	if err != nil {
		return errors.Wrap(err, "fit failed")
	}
	fitTime := time.Since(startTime)

	predictions, err := ip.EvaluatePoints(queries)
	if err != nil {
		return errors.Wrap(err, "evaluation failed")
	}
	if err := models.WritePredictions(c.String("output"), queries, predictions); err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "Fit completed in %.2f seconds with %d of %d points as centers\n",
		fitTime.Seconds(), len(ip.Centers()), len(samples.Points))
	fmt.Fprintf(c.App.Writer, "Predictions for %d points saved to: %s\n", len(queries), c.String("output"))

	if err := reportResiduals(c, ip, samples.Points, samples.Values); err != nil {
		return err
	}
	if c.Bool("extract-slices") {
		return extractSlices(c, ip, geometry.BBoxFromPoints(samples.Points))
	}
	return nil
}

// extractSlices samples the interpolant over bbox and saves JPEG slices
// along each axis under --slices-dir.
func extractSlices(c *cli.Context, ip *interpolation.Interpolant, bbox geometry.BBox) error {
	n := c.Int("resolution")
	volume, err := visualization.SampleVolume(ip.EvaluatePoints, bbox, n, n, n)
	if err != nil {
		return errors.Wrap(err, "sampling failed")
	}
	viewer := visualization.NewViewer(volume)

	fmt.Fprintln(c.App.Writer, "\nExtracting slices along all axes...")
	for _, axis := range []string{"x", "y", "z"} {
		axisDir := filepath.Join(c.String("slices-dir"), axis)
		fmt.Fprintf(c.App.Writer, "Saving %s-axis slices to: %s\n", axis, axisDir)
		if err := viewer.SaveSliceSequence(axis, axisDir); err != nil {
			log.Printf("Warning: Failed to save %s-axis slices: %v", axis, err)
		}
	}
	return nil
}

func buildModel(c *cli.Context) (rbf.Model, error) {
	params := c.Float64Slice("params")
	if len(params) == 0 {
		params = nil
	}
	kernel, err := rbf.NewKernel(c.String("kernel"), params)
	if err != nil {
		return rbf.Model{}, err
	}
	model, err := rbf.NewModel(kernel, c.Int("degree"))
	if err != nil {
		return rbf.Model{}, err
	}
	return model.WithNugget(c.Float64("nugget"))
}

// reportResiduals prints statistics of |fitted - value| over the samples
// that carry a value.
func reportResiduals(c *cli.Context, ip *interpolation.Interpolant, points geometry.Points, values []float64) error {
	indices := lo.Filter(lo.Range(len(values)), func(i, _ int) bool {
		return !math.IsNaN(values[i])
	})
	if len(indices) == 0 {
		return nil
	}

	fitted, err := ip.EvaluatePoints(points.Take(indices))
	if err != nil {
		return errors.Wrap(err, "residual evaluation failed")
	}
	residuals := make([]float64, len(indices))
	for k, i := range indices {
		residuals[k] = math.Abs(fitted[k] - values[i])
	}
	mean, std := stat.MeanStdDev(residuals, nil)

	fmt.Fprintf(c.App.Writer, "\nResiduals at %d samples:\n", len(residuals))
	fmt.Fprintf(c.App.Writer, "- Max: %.3e\n", floats.Max(residuals))
	fmt.Fprintf(c.App.Writer, "- Mean: %.3e\n", mean)
	fmt.Fprintf(c.App.Writer, "- Std dev: %.3e\n", std)
	return nil
}
