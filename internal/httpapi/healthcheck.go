package httpapi

import (
	"database/sql"
	"log/slog"
	"net/http"

	"haak-weather/internal/utils"
)

// brokerStatus reports whether the telemetry subscriber is connected.
type brokerStatus interface {
	IsConnected() bool
}

type healthchecker struct {
	db     *sql.DB
	broker brokerStatus
	logger *slog.Logger
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	MQTT     string `json:"mqtt"`
}

// handleHealthz fails only when the database is unreachable; the broker state
// is reported as is.
func (h *healthchecker) handleHealthz(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Database: "ok", MQTT: "disconnected"}
	if h.broker != nil && h.broker.IsConnected() {
		resp.MQTT = "connected"
	}

	var ok int
	if err := h.db.QueryRowContext(r.Context(), `SELECT 1`).Scan(&ok); err != nil {
		h.logger.Error("failed to check database connectivity", "error", err)
		resp.Status, resp.Database = "error", "unreachable"
		utils.WriteJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	utils.WriteJSON(w, http.StatusOK, resp)
}

func registerHealthcheck(mux *http.ServeMux, db *sql.DB, broker brokerStatus, logger *slog.Logger) {
	h := &healthchecker{db: db, broker: broker, logger: logger}
	mux.HandleFunc("GET /healthz", h.handleHealthz)
}
