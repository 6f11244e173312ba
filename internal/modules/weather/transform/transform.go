// Package transform projects a window of records into per-metric plot points
// and formats latest values for display.
package transform

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"haak-weather/internal/modules/weather/series"
	"haak-weather/internal/modules/weather/units"
)

var (
	// ErrEmptySlice means a latest value was requested from no records. The
	// store refuses empty loads, so seeing this is a bug upstream.
	ErrEmptySlice    = errors.New("empty slice")
	ErrUnknownMetric = errors.New("unknown metric")
	ErrNotFinite     = errors.New("value is not finite")
)

type Metric string

const (
	Humidity    Metric = "humidity"
	Luminosity  Metric = "luminosity"
	Temperature Metric = "temperature"
	Pressure    Metric = "pressure"
)

func Metrics() []Metric {
	return []Metric{Humidity, Luminosity, Temperature, Pressure}
}

// PlotPoint is X in Unix milliseconds and Y in display units.
type PlotPoint struct {
	X int64   `json:"x"`
	Y float64 `json:"y"`
}

type Series struct {
	Humidity    []PlotPoint `json:"humidity"`
	Luminosity  []PlotPoint `json:"luminosity"`
	Temperature []PlotPoint `json:"temperature"`
	Pressure    []PlotPoint `json:"pressure"`
}

// Points returns the sequence for m, or nil for an unknown metric.
func (s Series) Points(m Metric) []PlotPoint {
	switch m {
	case Humidity:
		return s.Humidity
	case Luminosity:
		return s.Luminosity
	case Temperature:
		return s.Temperature
	case Pressure:
		return s.Pressure
	default:
		return nil
	}
}

// Project builds one point per record for every metric, in input order.
func Project(records []series.Record) Series {
	out := Series{
		Humidity:    make([]PlotPoint, len(records)),
		Luminosity:  make([]PlotPoint, len(records)),
		Temperature: make([]PlotPoint, len(records)),
		Pressure:    make([]PlotPoint, len(records)),
	}
	for i, rec := range records {
		x := rec.Timestamp.UnixMilli()
		out.Humidity[i] = PlotPoint{X: x, Y: rec.Humidity}
		out.Luminosity[i] = PlotPoint{X: x, Y: rec.Luminosity}
		out.Temperature[i] = PlotPoint{X: x, Y: rec.Temperature}
		out.Pressure[i] = PlotPoint{X: x, Y: rec.Pressure}
	}
	return out
}

func value(rec series.Record, m Metric) (float64, error) {
	switch m {
	case Humidity:
		return rec.Humidity, nil
	case Luminosity:
		return rec.Luminosity, nil
	case Temperature:
		return rec.Temperature, nil
	case Pressure:
		return rec.Pressure, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMetric, m)
	}
}

// Latest returns the value of m in the last record.
func Latest(records []series.Record, m Metric) (float64, error) {
	if len(records) == 0 {
		return 0, fmt.Errorf("latest %s: %w", m, ErrEmptySlice)
	}
	return value(records[len(records)-1], m)
}

// Formatter renders values as display strings for one unit selection.
type Formatter struct {
	temperatureSymbol string
	pressureSymbol    string
}

func NewFormatter(reg *units.Registry, sel units.Selection) (Formatter, error) {
	ts, err := reg.Symbol(units.Temperature, sel.Temperature)
	if err != nil {
		return Formatter{}, err
	}
	ps, err := reg.Symbol(units.Pressure, sel.Pressure)
	if err != nil {
		return Formatter{}, err
	}
	return Formatter{temperatureSymbol: ts, pressureSymbol: ps}, nil
}

// Places returns how many decimals m is displayed with.
func Places(m Metric) int32 {
	if m == Pressure {
		return 3
	}
	return 2
}

// Suffix returns the unit suffix appended to m's formatted values.
func (f Formatter) Suffix(m Metric) string {
	switch m {
	case Temperature:
		return f.temperatureSymbol
	case Pressure:
		return f.pressureSymbol
	default:
		return "%"
	}
}

func (f Formatter) Format(m Metric, v float64) (string, error) {
	switch m {
	case Humidity, Luminosity, Temperature, Pressure:
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMetric, m)
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return "", fmt.Errorf("%s: %w (%v)", m, ErrNotFinite, v)
	}
	return decimal.NewFromFloat(v).StringFixed(Places(m)) + f.Suffix(m), nil
}
