package httpapi

import (
	"database/sql"
	"log/slog"
	"net/http"

	"haak-weather/internal/metrics"
)

func NewMux(db *sql.DB, broker brokerStatus, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, db, broker, logger)
	mux.Handle("GET /metrics", metrics.Handler())
	return mux
}
