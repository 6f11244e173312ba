// Package units maps measurement kinds and unit names to display symbols and
// converts canonical readings (°C, hPa) into the unit a client asked for.
package units

import (
	"errors"
	"fmt"
	"math"
)

type Kind string

const (
	Temperature Kind = "temperature"
	Pressure    Kind = "pressure"
)

const (
	Celsius    = "Celsius"
	Kelvin     = "Kelvin"
	Fahrenheit = "Fahrenheit"

	Atmosphere = "Atmosphere"
	Millibar   = "Millibar"
	Bar        = "Bar"
	PSI        = "PSI"
	Mercury    = "Mercury"
)

var (
	ErrUnknownUnit = errors.New("unknown unit")
	// ErrNotFinite means a conversion overflowed to ±Inf or produced NaN.
	ErrNotFinite = errors.New("value is not finite")
)

type Unit struct {
	Name   string
	Symbol string
}

// Selection is the pair of units a series was requested in.
type Selection struct {
	Temperature string `json:"temperature"`
	Pressure    string `json:"pressure"`
}

func DefaultSelection() Selection {
	return Selection{Temperature: Celsius, Pressure: Bar}
}

// Registry is read-only after construction and safe for concurrent use.
type Registry struct {
	units map[Kind]map[string]Unit
}

func NewRegistry() *Registry {
	return &Registry{units: map[Kind]map[string]Unit{
		Temperature: {
			Celsius:    {Name: Celsius, Symbol: "°C"},
			Kelvin:     {Name: Kelvin, Symbol: "K"},
			Fahrenheit: {Name: Fahrenheit, Symbol: "°F"},
		},
		Pressure: {
			Atmosphere: {Name: Atmosphere, Symbol: "atm"},
			Millibar:   {Name: Millibar, Symbol: "mbar"},
			Bar:        {Name: Bar, Symbol: "bar"},
			PSI:        {Name: PSI, Symbol: "psi"},
			Mercury:    {Name: Mercury, Symbol: "mmHg"},
		},
	}}
}

func (r *Registry) Lookup(kind Kind, name string) (Unit, error) {
	byName, ok := r.units[kind]
	if !ok {
		return Unit{}, fmt.Errorf("%w: kind %q", ErrUnknownUnit, kind)
	}
	u, ok := byName[name]
	if !ok {
		return Unit{}, fmt.Errorf("%w: %s %q", ErrUnknownUnit, kind, name)
	}
	return u, nil
}

func (r *Registry) Symbol(kind Kind, name string) (string, error) {
	u, err := r.Lookup(kind, name)
	if err != nil {
		return "", err
	}
	return u.Symbol, nil
}

// Validate reports whether both units of sel are registered.
func (r *Registry) Validate(sel Selection) error {
	if _, err := r.Lookup(Temperature, sel.Temperature); err != nil {
		return err
	}
	if _, err := r.Lookup(Pressure, sel.Pressure); err != nil {
		return err
	}
	return nil
}

// ConvertTemperature converts a Celsius reading into the named unit.
func ConvertTemperature(celsius float64, name string) (float64, error) {
	var out float64
	switch name {
	case Celsius:
		out = celsius
	case Kelvin:
		out = celsius + 273.15
	case Fahrenheit:
		out = celsius*9/5 + 32
	default:
		return 0, fmt.Errorf("%w: %s %q", ErrUnknownUnit, Temperature, name)
	}
	return finite(out, Temperature, name)
}

// ConvertPressure converts a hectopascal reading into the named unit.
func ConvertPressure(hpa float64, name string) (float64, error) {
	var out float64
	switch name {
	case Millibar:
		out = hpa
	case Bar:
		out = hpa / 1000
	case Atmosphere:
		out = hpa / 1013.25
	case PSI:
		out = hpa * 0.0145037738
	case Mercury:
		out = hpa * 0.750061683
	default:
		return 0, fmt.Errorf("%w: %s %q", ErrUnknownUnit, Pressure, name)
	}
	return finite(out, Pressure, name)
}

func finite(v float64, kind Kind, name string) (float64, error) {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("%w: %s in %s", ErrNotFinite, kind, name)
	}
	return v, nil
}
