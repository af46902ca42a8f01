package plotting

import (
	"errors"
	"fmt"

	"github.com/cepro/hybridcontroller/repository"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Series is one named line against time.
type Series struct {
	Name string
	X    []float64
	Y    []float64
}

// FromSamples builds a series from a recorded column.
func FromSamples(name string, samples []repository.Sample) Series {
	s := Series{Name: name, X: make([]float64, len(samples)), Y: make([]float64, len(samples))}
	for i, sample := range samples {
		s.X[i] = sample.Time
		s.Y[i] = sample.Value
	}
	return s
}

// Columns draws each series as a line on a shared time axis and saves the figure to `path`. The image format is taken
// from the file extension.
func Columns(path, title string, series ...Series) error {
	if len(series) == 0 {
		return errors.New("nothing to plot")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Time [s]"
	p.Add(plotter.NewGrid())

	for i, s := range series {
		if len(s.X) != len(s.Y) {
			return fmt.Errorf("series %q has %d x values and %d y values", s.Name, len(s.X), len(s.Y))
		}
		points := make(plotter.XYs, len(s.X))
		for j := range s.X {
			points[j].X = s.X[j]
			points[j].Y = s.Y[j]
		}

		line, err := plotter.NewLine(points)
		if err != nil {
			return fmt.Errorf("series %q: %w", s.Name, err)
		}
		line.Color = plotutil.Color(i)
		line.Dashes = plotutil.Dashes(i)
		p.Add(line)
		p.Legend.Add(s.Name, line)
	}
	p.Legend.Top = true

	err := p.Save(10*vg.Inch, 4*vg.Inch, path)
	if err != nil {
		return fmt.Errorf("save plot: %w", err)
	}
	return nil
}
