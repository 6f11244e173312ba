package types

import "time"

type Station struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Reading is one stored row in canonical units. Missing metrics are nil.
type Reading struct {
	StationID    string    `json:"stationId"`
	Time         time.Time `json:"time"`
	TemperatureC *float64  `json:"temperatureC,omitempty"`
	HumidityPct  *float64  `json:"humidityPct,omitempty"`
	PressureHpa  *float64  `json:"pressureHpa,omitempty"`
	Lux          *float64  `json:"lux,omitempty"`
}

// SeriesRow is a reading with every metric present.
type SeriesRow struct {
	Time         time.Time
	TemperatureC float64
	HumidityPct  float64
	PressureHpa  float64
	Lux          float64
}

type ReadingsPage struct {
	StationID string    `json:"stationId"`
	From      time.Time `json:"from"`
	To        time.Time `json:"to"`
	Limit     int       `json:"limit"`
	Offset    int       `json:"offset"`
	Total     int       `json:"total"`
	Readings  []Reading `json:"readings"`
}
