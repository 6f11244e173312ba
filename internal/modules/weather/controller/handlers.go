package controller

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"haak-weather/internal/modules/weather/presenter"
	"haak-weather/internal/modules/weather/repository"
	"haak-weather/internal/modules/weather/service"
	"haak-weather/internal/modules/weather/transform"
	"haak-weather/internal/modules/weather/types"
	"haak-weather/internal/modules/weather/units"
	"haak-weather/internal/modules/weather/views"
	"haak-weather/internal/modules/weather/window"
	"haak-weather/internal/utils"
)

const unknownStationName = "Unknown Station"

var metricLabels = map[transform.Metric]string{
	transform.Humidity:    "Humidity",
	transform.Luminosity:  "Luminosity",
	transform.Temperature: "Temperature",
	transform.Pressure:    "Pressure",
}

// selectStation resolves the station_id query parameter against stations.
// An empty id selects the first station; an unknown id keeps the id with a
// placeholder name.
func selectStation(stations []types.Station, id string) types.Station {
	if id == "" {
		if len(stations) == 0 {
			return types.Station{}
		}
		return stations[0]
	}
	for _, s := range stations {
		if s.ID == id {
			return s
		}
	}
	return types.Station{ID: id, Name: unknownStationName}
}

// ensureLoaded performs the first fetch for a fresh presenter.
func (c *weatherControllerImpl) ensureLoaded(ctx context.Context, p *presenter.Presenter) (*presenter.RenderPayload, error) {
	if payload, ok := p.Payload(); ok {
		return payload, nil
	}
	return p.Reload(ctx)
}

func (c *weatherControllerImpl) handleDashboard(w http.ResponseWriter, r *http.Request) {
	stations, err := c.repository.GetStations(r.Context())
	if err != nil {
		c.logger.Error("dashboard: get stations failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load stations")
		return
	}
	station := selectStation(stations, r.URL.Query().Get("station_id"))
	if station.Name == unknownStationName {
		c.logger.Warn("dashboard: unknown station_id", "station_id", station.ID)
	}

	p := c.sessions.Presenter(w, r, station.ID)
	payload, loadErr := c.ensureLoaded(r.Context(), p)
	if spec, ok := windowFromQuery(r); ok && loadErr == nil {
		payload, loadErr = p.SetWindow(spec)
		if loadErr != nil {
			payload, _ = p.Payload()
		}
	}

	opts := make([]views.StationOption, 0, len(stations))
	for _, s := range stations {
		opts = append(opts, views.StationOption{ID: s.ID, Name: s.Name})
	}

	sel := p.Units()
	data := &views.DashboardData{
		Stations:          opts,
		SelectedStationID: station.ID,
		Presets:           c.presetOptions(payload),
		TemperatureUnits:  c.unitOptions(units.Temperature, sel.Temperature),
		PressureUnits:     c.unitOptions(units.Pressure, sel.Pressure),
		CustomHours:       customHours(payload),
		Summary:           c.summaryData(station, payload, loadErr),
	}
	if err := utils.WriteHTML(w, func(out io.Writer) error { return views.RenderDashboard(out, data) }); err != nil {
		c.logger.Error("dashboard template render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render page")
	}
}

func (c *weatherControllerImpl) handleSummaryPartial(w http.ResponseWriter, r *http.Request) {
	stations, err := c.repository.GetStations(r.Context())
	if err != nil {
		c.logger.Error("summary: get stations failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load stations")
		return
	}
	station := selectStation(stations, r.URL.Query().Get("station_id"))

	p := c.sessions.Presenter(w, r, station.ID)
	payload, loadErr := c.ensureLoaded(r.Context(), p)

	data := c.summaryData(station, payload, loadErr)
	if err := utils.WriteHTML(w, func(out io.Writer) error { return views.RenderSummaryPartial(out, &data) }); err != nil {
		c.logger.Error("summary partial render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render")
	}
}

func (c *weatherControllerImpl) summaryData(station types.Station, payload *presenter.RenderPayload, loadErr error) views.SummaryData {
	data := views.SummaryData{StationName: station.Name}
	if loadErr != nil {
		data.Error = viewErrorMessage(loadErr)
		if !errors.Is(loadErr, presenter.ErrNotReady) {
			c.logger.Warn("summary: series unavailable", "station_id", station.ID, "error", loadErr)
		}
	}
	if payload == nil {
		return data
	}
	values := map[transform.Metric]string{
		transform.Humidity:    payload.Summary.Humidity,
		transform.Luminosity:  payload.Summary.Luminosity,
		transform.Temperature: payload.Summary.Temperature,
		transform.Pressure:    payload.Summary.Pressure,
	}
	for _, m := range transform.Metrics() {
		data.Cards = append(data.Cards, views.MetricCard{Metric: string(m), Label: metricLabels[m], Value: values[m]})
	}
	data.Points = payload.Points
	data.From = payload.From
	data.To = payload.To
	data.WindowLabel = windowLabel(payload.SampleCount)
	return data
}

func (c *weatherControllerImpl) presetOptions(payload *presenter.RenderPayload) []views.PresetOption {
	active := -1
	if payload != nil {
		active = payload.SampleCount
	}
	presets := window.Presets()
	out := make([]views.PresetOption, 0, len(presets))
	for _, p := range presets {
		n, _ := window.PresetCount(p)
		out = append(out, views.PresetOption{Name: string(p), Label: presetLabels[p], Active: n == active})
	}
	return out
}

func (c *weatherControllerImpl) unitOptions(kind units.Kind, selected string) []views.UnitOption {
	names := unitNames[kind]
	out := make([]views.UnitOption, 0, len(names))
	for _, name := range names {
		sym, err := c.registry.Symbol(kind, name)
		if err != nil {
			continue
		}
		out = append(out, views.UnitOption{Name: name, Symbol: sym, Selected: name == selected})
	}
	return out
}

var unitNames = map[units.Kind][]string{
	units.Temperature: {units.Celsius, units.Kelvin, units.Fahrenheit},
	units.Pressure:    {units.Atmosphere, units.Millibar, units.Bar, units.PSI, units.Mercury},
}

// customHours pre-fills the custom window input when no preset is active.
func customHours(payload *presenter.RenderPayload) string {
	if payload == nil {
		return ""
	}
	for _, p := range window.Presets() {
		if n, _ := window.PresetCount(p); n == payload.SampleCount {
			return ""
		}
	}
	return strconv.FormatFloat(float64(payload.SampleCount)/window.SamplesPerHour, 'f', -1, 64)
}

func (c *weatherControllerImpl) handleStations(w http.ResponseWriter, r *http.Request) {
	stations, err := c.repository.GetStations(r.Context())
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.WriteJSON(w, http.StatusOK, stations)
}

func (c *weatherControllerImpl) handleLatest(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		utils.WriteError(w, http.StatusBadRequest, "missing station id")
		return
	}

	limit, err := parseLatestQuery(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	latest, err := c.repository.GetLatestReadings(r.Context(), id, limit)
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.WriteJSON(w, http.StatusOK, latest)
}

func (c *weatherControllerImpl) handleReadings(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		utils.WriteError(w, http.StatusBadRequest, "missing station id")
		return
	}

	from, to, limit, err := parseReadingsQuery(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if to.IsZero() {
		to = c.now().UTC()
	}

	readings, err := c.repository.GetReadings(r.Context(), id, from, to, limit, 0)
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.WriteJSON(w, http.StatusOK, readings)
}

func (c *weatherControllerImpl) handleData(w http.ResponseWriter, r *http.Request) {
	sel := parseUnitsQuery(r, units.DefaultSelection())
	records, err := c.source.Records(r.Context(), r.URL.Query().Get("station_id"), sel)
	switch {
	case errors.Is(err, units.ErrUnknownUnit):
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, service.ErrNoStations):
		utils.WriteJSON(w, http.StatusOK, []struct{}{})
		return
	case err != nil:
		c.logger.Error("data: load series failed", "units", sel, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load series")
		return
	}
	utils.WriteJSON(w, http.StatusOK, records)
}

type unitsResponse struct {
	Temperature []views.UnitOption `json:"temperature"`
	Pressure    []views.UnitOption `json:"pressure"`
}

func (c *weatherControllerImpl) handleUnits(w http.ResponseWriter, r *http.Request) {
	def := units.DefaultSelection()
	utils.WriteJSON(w, http.StatusOK, unitsResponse{
		Temperature: c.unitOptions(units.Temperature, def.Temperature),
		Pressure:    c.unitOptions(units.Pressure, def.Pressure),
	})
}

func (c *weatherControllerImpl) handleHistoryPartial(w http.ResponseWriter, r *http.Request) {
	stations, err := c.repository.GetStations(r.Context())
	if err != nil {
		c.logger.Error("history: get stations failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load stations")
		return
	}

	rangeKey := r.URL.Query().Get("range")
	rangeInfo, ok := resolveHistoryRange(rangeKey)
	if !ok {
		c.logger.Warn("history: invalid range", "range", rangeKey)
	}
	if rangeKey == "" || !ok {
		rangeKey = defaultHistoryRangeKey
	}

	page := parseHistoryPage(r)
	station := selectStation(stations, r.URL.Query().Get("station_id"))
	if station.ID == "" {
		c.renderHistory(w, &views.HistoryData{
			RangeLabel:  rangeInfo.Label,
			RangeKey:    rangeKey,
			CurrentPage: 1,
			TotalPages:  1,
			PrevPage:    1,
			NextPage:    2,
			PageItems:   []views.PaginationItem{{Page: 1}},
		})
		return
	}

	now := c.now().UTC()
	from := now.Add(-rangeInfo.Duration)

	count, err := c.repository.GetReadingsCount(r.Context(), station.ID, from, now)
	if err != nil {
		c.logger.Error("history: get readings count failed", "station_id", station.ID, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load readings")
		return
	}
	totalPages := max((count+historyPageSize-1)/historyPageSize, 1)

	readings, err := c.repository.GetReadings(r.Context(), station.ID, from, now, historyPageSize, (page-1)*historyPageSize)
	if err != nil {
		c.logger.Error("history: get readings failed", "station_id", station.ID, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load readings")
		return
	}

	sel := c.sessions.Presenter(w, r, station.ID).Units()
	rows, err := c.readingRows(readings, sel)
	if err != nil {
		c.logger.Error("history: format readings failed", "units", sel, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render")
		return
	}

	c.renderHistory(w, &views.HistoryData{
		StationName: station.Name,
		StationID:   station.ID,
		RangeLabel:  rangeInfo.Label,
		RangeKey:    rangeKey,
		Readings:    rows,
		CurrentPage: page,
		TotalPages:  totalPages,
		HasPrev:     page > 1,
		HasNext:     page < totalPages,
		PrevPage:    page - 1,
		NextPage:    page + 1,
		PageItems:   buildHistoryPageItems(totalPages, page),
	})
}

func (c *weatherControllerImpl) renderHistory(w http.ResponseWriter, data *views.HistoryData) {
	if err := utils.WriteHTML(w, func(out io.Writer) error { return views.RenderHistoryPartial(out, data) }); err != nil {
		c.logger.Error("history partial render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render")
	}
}

// readingRows formats stored readings in sel. Missing values render as "-".
func (c *weatherControllerImpl) readingRows(readings []types.Reading, sel units.Selection) ([]views.ReadingRow, error) {
	f, err := transform.NewFormatter(c.registry, sel)
	if err != nil {
		return nil, err
	}
	format := func(m transform.Metric, v *float64, convert func(float64, string) (float64, error), unit string) (string, error) {
		if v == nil {
			return "-", nil
		}
		x := *v
		if convert != nil {
			var err error
			if x, err = convert(x, unit); err != nil {
				return "", err
			}
		}
		return f.Format(m, x)
	}

	rows := make([]views.ReadingRow, 0, len(readings))
	for _, rd := range readings {
		row := views.ReadingRow{Time: rd.Time}
		if row.Temperature, err = format(transform.Temperature, rd.TemperatureC, units.ConvertTemperature, sel.Temperature); err != nil {
			return nil, err
		}
		if row.Humidity, err = format(transform.Humidity, rd.HumidityPct, nil, ""); err != nil {
			return nil, err
		}
		if row.Pressure, err = format(transform.Pressure, rd.PressureHpa, units.ConvertPressure, sel.Pressure); err != nil {
			return nil, err
		}
		if row.Lux, err = format(transform.Luminosity, rd.Lux, nil, ""); err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// stationOr404 resolves the station_id query for the JSON view API.
func (c *weatherControllerImpl) stationOr404(w http.ResponseWriter, r *http.Request) (string, bool) {
	stations, err := c.repository.GetStations(r.Context())
	if err != nil {
		c.logger.Error("view: get stations failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load stations")
		return "", false
	}
	station := selectStation(stations, r.URL.Query().Get("station_id"))
	if station.Name == unknownStationName {
		utils.WriteError(w, http.StatusNotFound, repository.ErrStationNotFound.Error())
		return "", false
	}
	return station.ID, true
}
