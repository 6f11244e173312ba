// Package chart exports presenter payloads as PNG line charts.
package chart

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"

	"haak-weather/internal/modules/weather/presenter"
	"haak-weather/internal/modules/weather/transform"
	"haak-weather/internal/modules/weather/units"
)

// ErrTooFewPoints is returned for windows holding fewer than two samples.
var ErrTooFewPoints = errors.New("chart needs at least two points")

type Options struct {
	Width  int
	Height int
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = 1280
	}
	if o.Height <= 0 {
		o.Height = 720
	}
	return o
}

var titles = map[transform.Metric]string{
	transform.Humidity:    "Humidity",
	transform.Luminosity:  "Luminosity",
	transform.Temperature: "Temperature",
	transform.Pressure:    "Pressure",
}

// Render draws metric m of payload as a PNG into w.
func Render(w io.Writer, payload *presenter.RenderPayload, m transform.Metric, reg *units.Registry, opts Options) error {
	if payload == nil {
		return errors.New("chart: nil payload")
	}
	if _, ok := titles[m]; !ok {
		return fmt.Errorf("%w: %q", transform.ErrUnknownMetric, m)
	}
	points := payload.Series.Points(m)
	if len(points) < 2 {
		return fmt.Errorf("%s: %w (have %d)", m, ErrTooFewPoints, len(points))
	}
	if reg == nil {
		reg = units.NewRegistry()
	}
	f, err := transform.NewFormatter(reg, payload.Units)
	if err != nil {
		return err
	}
	opts = opts.withDefaults()

	x := make([]time.Time, len(points))
	y := make([]float64, len(points))
	for i, p := range points {
		x[i] = time.UnixMilli(p.X).UTC()
		y[i] = p.Y
	}

	valueFormat := fmt.Sprintf("%%.%df", transform.Places(m))
	yAxis := gochart.YAxis{
		Name: fmt.Sprintf("%s (%s)", titles[m], f.Suffix(m)),
		ValueFormatter: func(v interface{}) string {
			return gochart.FloatValueFormatterWithFormat(v, valueFormat)
		},
	}
	// A zero-height range does not render.
	if lo, hi := bounds(y); lo == hi {
		yAxis.Range = &gochart.ContinuousRange{Min: lo - 1, Max: hi + 1}
	}

	graph := gochart.Chart{
		Title:  titles[m],
		Width:  opts.Width,
		Height: opts.Height,
		XAxis: gochart.XAxis{
			ValueFormatter: gochart.TimeValueFormatter,
		},
		YAxis: yAxis,
		Series: []gochart.Series{
			gochart.TimeSeries{
				Name:    titles[m],
				XValues: x,
				YValues: y,
			},
		},
	}
	return graph.Render(gochart.PNG, w)
}

// RenderAll writes <dir>/<metric>.png for every metric and returns the
// written paths in metric order.
func RenderAll(dir string, payload *presenter.RenderPayload, reg *units.Registry, opts Options) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("chart dir: %w", err)
	}
	var paths []string
	for _, m := range transform.Metrics() {
		path := filepath.Join(dir, string(m)+".png")
		if err := renderFile(path, payload, m, reg, opts); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func renderFile(path string, payload *presenter.RenderPayload, m transform.Metric, reg *units.Registry, opts Options) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); err == nil {
			err = closeErr
		}
	}()
	return Render(file, payload, m, reg, opts)
}

func bounds(values []float64) (lo, hi float64) {
	lo, hi = values[0], values[0]
	for _, v := range values[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return lo, hi
}
