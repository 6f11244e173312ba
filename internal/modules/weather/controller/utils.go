package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"haak-weather/internal/modules/weather/units"
	"haak-weather/internal/modules/weather/views"
	"haak-weather/internal/modules/weather/window"
)

const (
	defaultHistoryRangeKey = "24h"
	historyPageSize        = 20
)

type historyRange struct {
	Duration time.Duration
	Label    string
}

var historyRanges = map[string]historyRange{
	"1h":  {Duration: time.Hour, Label: "Last 1 hour"},
	"6h":  {Duration: 6 * time.Hour, Label: "Last 6 hours"},
	"24h": {Duration: 24 * time.Hour, Label: "Last 24 hours"},
	"7d":  {Duration: 7 * 24 * time.Hour, Label: "Last 7 days"},
}

var presetLabels = map[window.Preset]string{
	window.QuarterYear: "90 days",
	window.Month:       "30 days",
	window.Week:        "7 days",
	window.Day:         "24 hours",
}

func parseReadingsQuery(r *http.Request) (from time.Time, to time.Time, limit int, err error) {
	q := r.URL.Query()

	if s := q.Get("from"); s != "" {
		from, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, time.Time{}, 0, errors.New("invalid 'from' (expected RFC3339)")
		}
	}
	if s := q.Get("to"); s != "" {
		to, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, time.Time{}, 0, errors.New("invalid 'to' (expected RFC3339)")
		}
	}
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return time.Time{}, time.Time{}, 0, errors.New("'from' must be <= 'to'")
	}

	limit, err = parseLimit(q.Get("limit"))
	if err != nil {
		return time.Time{}, time.Time{}, 0, err
	}
	return from, to, limit, nil
}

func parseLatestQuery(r *http.Request) (limit int, err error) {
	return parseLimit(r.URL.Query().Get("limit"))
}

func parseLimit(s string) (int, error) {
	if s == "" {
		return 100, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.New("invalid 'limit' (expected integer)")
	}
	if n <= 0 {
		return 0, errors.New("'limit' must be > 0")
	}
	if n > 1000 {
		return 0, errors.New("'limit' must be <= 1000")
	}
	return n, nil
}

// parseUnitsQuery reads temperature and pressure, defaulting each to fallback.
func parseUnitsQuery(r *http.Request, fallback units.Selection) units.Selection {
	q := r.URL.Query()
	sel := fallback
	if s := strings.TrimSpace(q.Get("temperature")); s != "" {
		sel.Temperature = s
	}
	if s := strings.TrimSpace(q.Get("pressure")); s != "" {
		sel.Pressure = s
	}
	return sel
}

func resolveHistoryRange(key string) (historyRange, bool) {
	if key == "" {
		return historyRanges[defaultHistoryRangeKey], true
	}
	info, ok := historyRanges[key]
	if ok {
		return info, true
	}
	return historyRanges[defaultHistoryRangeKey], false
}

// parseHistoryPage returns the 1-based page number (default 1, min 1).
func parseHistoryPage(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// windowRequest is the body of POST /api/v1/view/window. Hours may be sent
// as a JSON string (raw user input) or a number.
type windowRequest struct {
	Preset *string         `json:"preset"`
	Hours  json.RawMessage `json:"hours"`
}

func (w windowRequest) spec() (window.Spec, error) {
	switch {
	case w.Preset != nil && w.Hours != nil:
		return window.Spec{}, errors.New("send either 'preset' or 'hours', not both")
	case w.Preset != nil:
		return window.PresetSpec(*w.Preset), nil
	case w.Hours != nil:
		var text string
		if err := json.Unmarshal(w.Hours, &text); err == nil {
			return window.CustomSpec(text), nil
		}
		return window.CustomSpec(strings.TrimSpace(string(w.Hours))), nil
	default:
		return window.Spec{}, errors.New("'preset' or 'hours' is required")
	}
}

// windowFromQuery supports ?preset= and ?hours= on dashboard links.
func windowFromQuery(r *http.Request) (window.Spec, bool) {
	q := r.URL.Query()
	if p := q.Get("preset"); p != "" {
		return window.PresetSpec(p), true
	}
	if h, ok := q["hours"]; ok {
		return window.CustomSpec(strings.Join(h, "")), true
	}
	return window.Spec{}, false
}

func windowLabel(count int) string {
	for _, p := range window.Presets() {
		if n, _ := window.PresetCount(p); n == count {
			return presetLabels[p]
		}
	}
	return fmt.Sprintf("%s hours", strconv.FormatFloat(float64(count)/window.SamplesPerHour, 'f', -1, 64))
}

// buildHistoryPageItems returns page numbers and ellipses for the pagination bar.
func buildHistoryPageItems(totalPages, currentPage int) []views.PaginationItem {
	if totalPages <= 0 {
		return nil
	}
	const span = 2
	show := map[int]bool{1: true, totalPages: true}
	for p := currentPage - span; p <= currentPage+span; p++ {
		if p >= 1 && p <= totalPages {
			show[p] = true
		}
	}
	var items []views.PaginationItem
	prev := 0
	for p := 1; p <= totalPages; p++ {
		if !show[p] {
			continue
		}
		if prev != 0 && p > prev+1 {
			items = append(items, views.PaginationItem{Ellipsis: true})
		}
		items = append(items, views.PaginationItem{Page: p})
		prev = p
	}
	return items
}
