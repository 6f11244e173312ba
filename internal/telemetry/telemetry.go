// Package telemetry defines the message stations publish over MQTT.
package telemetry

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var ErrInvalid = errors.New("invalid telemetry")

// Temperature bounds in °C. Nothing reads below absolute zero, and no
// outdoor station sensor reports above MaxTemperatureC.
const (
	AbsoluteZeroC   = -273.15
	MaxTemperatureC = 200
)

// Telemetry is one station message. Metrics are optional; a station without
// a light sensor omits lux.
type Telemetry struct {
	StationID   string    `json:"station_id"`
	Timestamp   time.Time `json:"timestamp"`
	Temperature *float64  `json:"temperature_c,omitempty"`
	Humidity    *float64  `json:"humidity_pct,omitempty"`
	Pressure    *float64  `json:"pressure_hpa,omitempty"`
	Lux         *float64  `json:"lux,omitempty"`
	Battery     *float64  `json:"battery_v,omitempty"`
	Sequence    *int      `json:"sequence,omitempty"`
}

func (t Telemetry) Validate() error {
	if t.StationID == "" {
		return fmt.Errorf("%w: station_id is required", ErrInvalid)
	}
	if t.Timestamp.IsZero() {
		return fmt.Errorf("%w: timestamp is required", ErrInvalid)
	}
	for _, m := range []struct {
		name string
		v    *float64
	}{
		{"temperature_c", t.Temperature},
		{"humidity_pct", t.Humidity},
		{"pressure_hpa", t.Pressure},
		{"lux", t.Lux},
		{"battery_v", t.Battery},
	} {
		if m.v != nil && (math.IsInf(*m.v, 0) || math.IsNaN(*m.v)) {
			return fmt.Errorf("%w: %s is not finite", ErrInvalid, m.name)
		}
	}
	if t.Temperature != nil && (*t.Temperature < AbsoluteZeroC || *t.Temperature > MaxTemperatureC) {
		return fmt.Errorf("%w: temperature_c out of range: %f (must be %.2f-%d)", ErrInvalid, *t.Temperature, AbsoluteZeroC, MaxTemperatureC)
	}
	if t.Humidity != nil && (*t.Humidity < 0 || *t.Humidity > 100) {
		return fmt.Errorf("%w: humidity_pct out of range: %f (must be 0-100)", ErrInvalid, *t.Humidity)
	}
	if t.Pressure != nil && *t.Pressure <= 0 {
		return fmt.Errorf("%w: pressure_hpa must be positive: %f", ErrInvalid, *t.Pressure)
	}
	if t.Lux != nil && *t.Lux < 0 {
		return fmt.Errorf("%w: lux must not be negative: %f", ErrInvalid, *t.Lux)
	}
	if t.Temperature == nil && t.Humidity == nil && t.Pressure == nil && t.Lux == nil {
		return fmt.Errorf("%w: at least one sensor reading (temperature, humidity, pressure or lux) is required", ErrInvalid)
	}
	return nil
}
