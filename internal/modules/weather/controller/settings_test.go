package controller

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"haak-weather/internal/modules/weather/units"
	"haak-weather/internal/modules/weather/window"
)

func decodeSettings(t *testing.T, rec *httptest.ResponseRecorder) Settings {
	t.Helper()
	var s Settings
	if err := json.Unmarshal(rec.Body.Bytes(), &s); err != nil {
		t.Fatalf("decode settings: %v; body = %q", err, rec.Body.String())
	}
	return s
}

func Test_settingsApplyToEveryStation(t *testing.T) {
	fetcher := &fakeFetcher{records: tenMinuteRecords(2000)}
	mux, _ := newTestController(&mockRepo{stations: twoStations}, &fakeSource{}, fetcher)
	c := &client{t: t, mux: mux}

	rec := c.do(http.MethodGet, "/api/v1/settings", "")
	if got := decodeSettings(t, rec); rec.Code != http.StatusOK || got != DefaultSettings() {
		t.Fatalf("initial settings: status %d %+v; want %+v", rec.Code, got, DefaultSettings())
	}

	rec = c.do(http.MethodPost, "/api/v1/settings", `{"temperature":"Kelvin","pressure":"PSI","timeframe":"Week"}`)
	want := Settings{Temperature: units.Kelvin, Pressure: units.PSI, Timeframe: window.Week}
	if got := decodeSettings(t, rec); rec.Code != http.StatusOK || got != want {
		t.Fatalf("save: status %d %+v; want %+v", rec.Code, got, want)
	}

	for _, target := range []string{"/api/v1/view", "/api/v1/view?station_id=2"} {
		rec = c.do(http.MethodGet, target, "")
		p := decodePayload(t, rec)
		if rec.Code != http.StatusOK || p.SampleCount != 1009 || p.Units != want.Units() {
			t.Errorf("%s: status %d count %d units %+v; want 1009 in %+v", target, rec.Code, p.SampleCount, p.Units, want.Units())
		}
	}
}

func Test_settingsSaveRebuildsPresenters(t *testing.T) {
	fetcher := &fakeFetcher{records: tenMinuteRecords(200)}
	mux, _ := newTestController(&mockRepo{stations: twoStations}, &fakeSource{}, fetcher)
	c := &client{t: t, mux: mux}

	if rec := c.do(http.MethodGet, "/api/v1/view", ""); rec.Code != http.StatusOK {
		t.Fatalf("view: status %d", rec.Code)
	}
	c.do(http.MethodPost, "/api/v1/settings", `{"temperature":"Celsius","pressure":"Bar","timeframe":"Day"}`)

	rec := c.do(http.MethodGet, "/api/v1/view", "")
	if p := decodePayload(t, rec); p.SampleCount != 145 {
		t.Errorf("count after save = %d; want the Day preset 145", p.SampleCount)
	}
	if n := fetcher.callCount(); n != 2 {
		t.Errorf("fetches = %d; want 2", n)
	}
}

func Test_settingsFollowViewUnits(t *testing.T) {
	fetcher := &fakeFetcher{records: tenMinuteRecords(200)}
	mux, _ := newTestController(&mockRepo{stations: twoStations}, &fakeSource{}, fetcher)
	c := &client{t: t, mux: mux}

	c.do(http.MethodGet, "/api/v1/view?station_id=2", "")
	c.do(http.MethodGet, "/api/v1/view", "")
	rec := c.do(http.MethodPost, "/api/v1/view/units", `{"temperature":"Fahrenheit","pressure":"Mercury"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("units: status %d", rec.Code)
	}

	rec = c.do(http.MethodGet, "/api/v1/view?station_id=2", "")
	if p := decodePayload(t, rec); p.Units.Temperature != units.Fahrenheit || p.Units.Pressure != units.Mercury {
		t.Errorf("other station units = %+v; want Fahrenheit/Mercury", p.Units)
	}

	got := decodeSettings(t, c.do(http.MethodGet, "/api/v1/settings", ""))
	if got.Temperature != units.Fahrenheit || got.Pressure != units.Mercury || got.Timeframe != window.QuarterYear {
		t.Errorf("settings = %+v", got)
	}
}

func Test_settingsRejectInvalid(t *testing.T) {
	bodies := map[string]string{
		"empty body":          "",
		"unknown temperature": `{"temperature":"Rankine","pressure":"Bar","timeframe":"Week"}`,
		"unknown pressure":    `{"temperature":"Celsius","pressure":"Torr","timeframe":"Week"}`,
		"unknown timeframe":   `{"temperature":"Celsius","pressure":"Bar","timeframe":"Decade"}`,
		"missing timeframe":   `{"temperature":"Celsius","pressure":"Bar"}`,
		"theme":               `{"temperature":"Celsius","pressure":"Bar","timeframe":"Week","theme":"Dark"}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			mux, _ := newTestController(&mockRepo{}, &fakeSource{}, &fakeFetcher{})
			c := &client{t: t, mux: mux}

			rec := c.do(http.MethodPost, "/api/v1/settings", body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d; want %d", rec.Code, http.StatusBadRequest)
			}
			if got := decodeSettings(t, c.do(http.MethodGet, "/api/v1/settings", "")); got != DefaultSettings() {
				t.Errorf("settings changed to %+v", got)
			}
		})
	}
}

func Test_validateSettings(t *testing.T) {
	reg := units.NewRegistry()
	for _, p := range window.Presets() {
		s := DefaultSettings()
		s.Timeframe = p
		if err := validateSettings(reg, s); err != nil {
			t.Errorf("timeframe %s: %v", p, err)
		}
	}
	if err := validateSettings(reg, Settings{Temperature: units.Kelvin, Pressure: units.Atmosphere}); err == nil {
		t.Error("empty timeframe accepted")
	}
}
