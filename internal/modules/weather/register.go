package weather

import (
	"database/sql"
	"log/slog"
	"net/http"

	"haak-weather/internal/config"
	"haak-weather/internal/modules/weather/controller"
	"haak-weather/internal/modules/weather/presenter"
	"haak-weather/internal/modules/weather/repository"
	"haak-weather/internal/modules/weather/service"
	"haak-weather/internal/modules/weather/units"
	"haak-weather/internal/mqtt"
)

// Feature exposes the parts of the weather module the app keeps running.
type Feature struct {
	Service  *service.Service
	Sessions *controller.Sessions
}

func RegisterFeature(mux *http.ServeMux, db *sql.DB, subscriber mqtt.MQTTSubscriber, cfg config.Config, logger *slog.Logger) Feature {
	registry := units.NewRegistry()
	weatherRepository := repository.NewRepository(db, logger.With("component", "repository"))
	weatherService := service.NewService(weatherRepository, registry, logger.With("component", "service"))
	weatherService.Register(subscriber)

	presenterLogger := logger.With("component", "presenter")
	sessions := controller.NewSessions(func(stationID string, settings controller.Settings) *presenter.Presenter {
		return presenter.New(weatherService.DataSource(stationID), settings.Units(), presenter.Options{
			Registry: registry,
			Logger:   presenterLogger.With("station_id", stationID),
			Window:   settings.Timeframe,
		})
	}, cfg.SessionIdleTimeout, cfg.SessionMax, logger.With("component", "sessions"))

	weatherController := controller.NewWeatherController(weatherRepository, weatherService, sessions, registry, logger.With("component", "controller"))
	weatherController.RegisterRoutes(mux)

	return Feature{Service: weatherService, Sessions: sessions}
}
