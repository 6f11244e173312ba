package controller

import (
	"errors"
	"net/http"

	"haak-weather/internal/modules/weather/presenter"
	"haak-weather/internal/modules/weather/series"
	"haak-weather/internal/modules/weather/transform"
	"haak-weather/internal/modules/weather/units"
	"haak-weather/internal/modules/weather/window"
	"haak-weather/internal/utils"
)

// viewStatus maps presenter, window and unit errors to an HTTP status.
func viewStatus(err error) int {
	switch {
	case errors.Is(err, window.ErrNotANumber),
		errors.Is(err, window.ErrOutOfRange),
		errors.Is(err, units.ErrUnknownUnit):
		return http.StatusBadRequest
	case errors.Is(err, presenter.ErrNotReady),
		errors.Is(err, presenter.ErrReloadInProgress):
		return http.StatusConflict
	case errors.Is(err, series.ErrEmptyResponse):
		return http.StatusNotFound
	case errors.Is(err, transform.ErrEmptySlice):
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}

func viewErrorMessage(err error) string {
	switch viewStatus(err) {
	case http.StatusNotFound:
		return "no readings available"
	case http.StatusBadGateway:
		return "failed to load series"
	case http.StatusInternalServerError:
		return "failed to build view"
	default:
		return err.Error()
	}
}

func (c *weatherControllerImpl) writeViewError(w http.ResponseWriter, op string, err error) {
	status := viewStatus(err)
	if status >= http.StatusInternalServerError {
		c.logger.Error("view: "+op+" failed", "error", err)
	}
	utils.WriteError(w, status, viewErrorMessage(err))
}

func (c *weatherControllerImpl) handleView(w http.ResponseWriter, r *http.Request) {
	stationID, ok := c.stationOr404(w, r)
	if !ok {
		return
	}
	p := c.sessions.Presenter(w, r, stationID)
	payload, err := c.ensureLoaded(r.Context(), p)
	if err != nil {
		c.writeViewError(w, "load", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, payload)
}

func (c *weatherControllerImpl) handleSetWindow(w http.ResponseWriter, r *http.Request) {
	stationID, ok := c.stationOr404(w, r)
	if !ok {
		return
	}
	var req windowRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	spec, err := req.spec()
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	p := c.sessions.Presenter(w, r, stationID)
	payload, err := p.SetWindow(spec)
	if err != nil {
		c.writeViewError(w, "set window", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, payload)
}

func (c *weatherControllerImpl) handleReload(w http.ResponseWriter, r *http.Request) {
	stationID, ok := c.stationOr404(w, r)
	if !ok {
		return
	}
	p := c.sessions.Presenter(w, r, stationID)
	payload, err := p.Reload(r.Context())
	if err != nil {
		c.writeViewError(w, "reload", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, payload)
}

func (c *weatherControllerImpl) handleSetUnits(w http.ResponseWriter, r *http.Request) {
	stationID, ok := c.stationOr404(w, r)
	if !ok {
		return
	}
	var sel units.Selection
	if err := utils.DecodeJSON(w, r, &sel); err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	p := c.sessions.Presenter(w, r, stationID)
	payload, err := p.SetUnits(r.Context(), sel)
	if err != nil {
		c.writeViewError(w, "set units", err)
		return
	}
	// Other stations pick the units up when they are next opened.
	c.sessions.UpdateSettings(w, r, stationID, func(s *Settings) {
		s.Temperature, s.Pressure = sel.Temperature, sel.Pressure
	})
	utils.WriteJSON(w, http.StatusOK, payload)
}
