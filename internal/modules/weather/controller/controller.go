package controller

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"haak-weather/internal/modules/weather/repository"
	"haak-weather/internal/modules/weather/series"
	"haak-weather/internal/modules/weather/units"
)

type WeatherController interface {
	RegisterRoutes(mux *http.ServeMux)
}

// SeriesSource serves GET /api/v1/data.
type SeriesSource interface {
	Records(ctx context.Context, stationID string, sel units.Selection) ([]series.Record, error)
}

type weatherControllerImpl struct {
	repository repository.WeatherRepository
	source     SeriesSource
	sessions   *Sessions
	registry   *units.Registry
	logger     *slog.Logger
	now        func() time.Time
}

func NewWeatherController(
	repository repository.WeatherRepository,
	source SeriesSource,
	sessions *Sessions,
	registry *units.Registry,
	logger *slog.Logger,
) WeatherController {
	if registry == nil {
		registry = units.NewRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &weatherControllerImpl{
		repository: repository,
		source:     source,
		sessions:   sessions,
		registry:   registry,
		logger:     logger,
		now:        time.Now,
	}
}

func (c *weatherControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", c.handleDashboard)
	mux.HandleFunc("GET /partials/summary", c.handleSummaryPartial)
	mux.HandleFunc("GET /partials/history", c.handleHistoryPartial)

	mux.HandleFunc("GET /api/v1/stations", c.handleStations)
	mux.HandleFunc("GET /api/v1/stations/{id}/latest", c.handleLatest)
	mux.HandleFunc("GET /api/v1/stations/{id}/readings", c.handleReadings)
	mux.HandleFunc("GET /api/v1/data", c.handleData)
	mux.HandleFunc("GET /api/v1/units", c.handleUnits)

	mux.HandleFunc("GET /api/v1/view", c.handleView)
	mux.HandleFunc("POST /api/v1/view/window", c.handleSetWindow)
	mux.HandleFunc("POST /api/v1/view/reload", c.handleReload)
	mux.HandleFunc("POST /api/v1/view/units", c.handleSetUnits)

	mux.HandleFunc("GET /api/v1/settings", c.handleGetSettings)
	mux.HandleFunc("POST /api/v1/settings", c.handleSaveSettings)
}
