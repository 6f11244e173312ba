package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"haak-weather/internal/modules/weather/repository"
	"haak-weather/internal/modules/weather/series"
	"haak-weather/internal/modules/weather/types"
	"haak-weather/internal/modules/weather/units"
	"haak-weather/internal/modules/weather/window"
	"haak-weather/internal/mqtt"
	"haak-weather/internal/telemetry"
)

// History is how far back the data source looks.
const History = window.MaxCustomHours * time.Hour

var ErrNoStations = errors.New("no stations registered")

type Service struct {
	repository repository.WeatherRepository
	registry   *units.Registry
	logger     *slog.Logger
	now        func() time.Time
}

func NewService(repo repository.WeatherRepository, registry *units.Registry, logger *slog.Logger) *Service {
	if registry == nil {
		registry = units.NewRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repository: repo, registry: registry, logger: logger, now: time.Now}
}

// Register attaches the ingest handler to the subscriber.
func (s *Service) Register(subscriber mqtt.MQTTSubscriber) {
	subscriber.SetMessageHandler(s.Ingest)
}

// Ingest stores one telemetry message.
func (s *Service) Ingest(t telemetry.Telemetry) error {
	s.logger.Debug("processing telemetry message",
		"station_id", t.StationID,
		"timestamp", t.Timestamp,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := s.repository.InsertReading(ctx, types.Reading{
		StationID:    t.StationID,
		Time:         t.Timestamp,
		TemperatureC: t.Temperature,
		HumidityPct:  t.Humidity,
		PressureHpa:  t.Pressure,
		Lux:          t.Lux,
	})
	if err != nil {
		s.logger.Error("failed to insert reading", "station_id", t.StationID, "error", err)
		return err
	}
	return nil
}

// Records returns the newest complete samples of the last 90 days for
// stationID, converted into sel. An empty stationID selects the first
// station by name.
func (s *Service) Records(ctx context.Context, stationID string, sel units.Selection) ([]series.Record, error) {
	if err := s.registry.Validate(sel); err != nil {
		return nil, err
	}

	if stationID == "" {
		stations, err := s.repository.GetStations(ctx)
		if err != nil {
			return nil, fmt.Errorf("list stations: %w", err)
		}
		if len(stations) == 0 {
			return nil, ErrNoStations
		}
		stationID = stations[0].ID
	}

	limit, _ := window.PresetCount(window.QuarterYear)
	rows, err := s.repository.GetSeries(ctx, stationID, s.now().Add(-History), limit)
	if err != nil {
		return nil, fmt.Errorf("series for station %s: %w", stationID, err)
	}

	out := make([]series.Record, len(rows))
	for i, row := range rows {
		temp, err := units.ConvertTemperature(row.TemperatureC, sel.Temperature)
		if err != nil {
			return nil, err
		}
		pres, err := units.ConvertPressure(row.PressureHpa, sel.Pressure)
		if err != nil {
			return nil, err
		}
		out[i] = series.Record{
			Timestamp:   row.Time,
			Humidity:    row.HumidityPct,
			Luminosity:  row.Lux,
			Temperature: temp,
			Pressure:    pres,
		}
	}
	return out, nil
}

// DataSource feeds presenters in the same process from one station.
type DataSource struct {
	service   *Service
	stationID string
}

func (s *Service) DataSource(stationID string) DataSource {
	return DataSource{service: s, stationID: stationID}
}

func (d DataSource) Fetch(ctx context.Context, sel units.Selection) ([]series.Record, error) {
	records, err := d.service.Records(ctx, d.stationID, sel)
	if errors.Is(err, ErrNoStations) {
		return []series.Record{}, nil
	}
	return records, err
}
