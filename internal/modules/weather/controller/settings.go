package controller

import (
	"errors"
	"fmt"
	"net/http"

	"haak-weather/internal/modules/weather/units"
	"haak-weather/internal/modules/weather/window"
	"haak-weather/internal/utils"
)

// ErrInvalidSettings is returned when settings name an unknown unit or preset.
var ErrInvalidSettings = errors.New("invalid settings")

// Settings are the display preferences a session's presenters start from.
// Timeframe is the window applied after a presenter's first load.
type Settings struct {
	Temperature string        `json:"temperature"`
	Pressure    string        `json:"pressure"`
	Timeframe   window.Preset `json:"timeframe"`
}

// DefaultSettings returns the settings a new session starts with.
func DefaultSettings() Settings {
	sel := units.DefaultSelection()
	return Settings{Temperature: sel.Temperature, Pressure: sel.Pressure, Timeframe: window.DefaultPreset}
}

// Units returns the unit selection part of the settings.
func (s Settings) Units() units.Selection {
	return units.Selection{Temperature: s.Temperature, Pressure: s.Pressure}
}

// validateSettings accepts registered units and any window preset.
func validateSettings(reg *units.Registry, s Settings) error {
	if err := reg.Validate(s.Units()); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	if _, ok := window.PresetCount(s.Timeframe); !ok {
		return fmt.Errorf("%w: %w %q", ErrInvalidSettings, window.ErrInvalidPreset, s.Timeframe)
	}
	return nil
}

func (c *weatherControllerImpl) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, c.sessions.Settings(w, r))
}

// handleSaveSettings replaces the session settings. Presenters built from the
// old settings are dropped and start again from the new ones.
func (c *weatherControllerImpl) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var next Settings
	if err := utils.DecodeJSON(w, r, &next); err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateSettings(c.registry, next); err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	saved := c.sessions.UpdateSettings(w, r, "", func(s *Settings) { *s = next })
	utils.WriteJSON(w, http.StatusOK, saved)
}
