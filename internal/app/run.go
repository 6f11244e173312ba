package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"haak-weather/internal/config"
	"haak-weather/internal/db"
	"haak-weather/internal/httpapi"
	"haak-weather/internal/migrate"
	"haak-weather/internal/modules/weather"
	weatherviews "haak-weather/internal/modules/weather/views"
	"haak-weather/internal/mqtt"
)

func Run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	logger.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"sqliteDriver", cfg.SQLiteDriver,
		"sqlitePath", cfg.SQLitePath,
		"sqliteMaxOpenConns", cfg.SQLiteMaxOpenConns,
		"sqliteMaxIdleConns", cfg.SQLiteMaxIdleConns,
		"sqliteConnMaxLifetime", cfg.SQLiteConnMaxLifetime,
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
		"mqttTopic", cfg.MQTTTopic,
		"sessionIdleTimeout", cfg.SessionIdleTimeout,
		"sessionMax", cfg.SessionMax,
	)
	dbConn, err := db.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(dbConn); closeErr != nil {
			logger.Error("db close", "error", closeErr)
		}
	}()

	if err := migrate.Run(dbConn, logger.With("component", "migrate")); err != nil {
		return err
	}
	logger.Info("database ready")

	if err := weatherviews.LoadTemplates(); err != nil {
		return err
	}

	// The handler must be set before Connect: the broker may deliver queued
	// messages right after CONNACK.
	mqttSubscriber := mqtt.NewSubscriber(cfg, logger)
	mux := httpapi.NewMux(dbConn, mqttSubscriber, logger.With("component", "healthz"))
	feature := weather.RegisterFeature(mux, dbConn, mqttSubscriber, cfg, logger)

	connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
	err = mqttSubscriber.Connect(connectCtx)
	connectCancel()
	if err != nil {
		// HTTP and /healthz keep working without a broker.
		logger.Warn("mqtt connection failed (continuing without mqtt)", "error", err)
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go feature.Sessions.Run(sweepCtx, sweepInterval(cfg.SessionIdleTimeout))

	srv := httpapi.NewServer(cfg, mux, logger.With("component", "http"))

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("mqtt disconnecting")
	mqttSubscriber.Disconnect()

	logger.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}

// sweepInterval checks for idle sessions a few times per timeout, at most
// once a second.
func sweepInterval(idle time.Duration) time.Duration {
	return max(idle/4, time.Second)
}
