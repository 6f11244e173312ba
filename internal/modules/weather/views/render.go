package views

import (
	"embed"
	"errors"
	"html/template"
	"io"
	"io/fs"
	"time"
)

//go:embed templates
var viewsFS embed.FS

var dashboardTmpl *template.Template

var errNotLoaded = errors.New("dashboard template not loaded: call views.LoadTemplates during startup")

var funcs = template.FuncMap{
	"clock": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.UTC().Format("2006-01-02 15:04 MST")
	},
}

// loadTemplatesFromFS parses every template under dir. Tests use it to
// simulate broken template sets.
func loadTemplatesFromFS(fsys fs.FS, dir string) error {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return err
	}
	tmpl, err := template.New("views").Funcs(funcs).ParseFS(sub, "*.html", "partials/*.html")
	if err != nil {
		return err
	}
	dashboardTmpl = tmpl
	return nil
}

// LoadTemplates loads the embedded templates. Call it during startup and do
// not serve requests if it fails.
func LoadTemplates() error {
	return loadTemplatesFromFS(viewsFS, "templates")
}

type StationOption struct {
	ID   string
	Name string
}

type PresetOption struct {
	Name   string
	Label  string
	Active bool
}

type UnitOption struct {
	Name     string
	Symbol   string
	Selected bool
}

// MetricCard is one formatted latest value.
type MetricCard struct {
	Metric string
	Label  string
	Value  string
}

type SummaryData struct {
	StationName string
	Cards       []MetricCard
	Points      int
	From        time.Time
	To          time.Time
	WindowLabel string
	Error       string
}

type DashboardData struct {
	Stations          []StationOption
	SelectedStationID string
	Presets           []PresetOption
	TemperatureUnits  []UnitOption
	PressureUnits     []UnitOption
	CustomHours       string
	Summary           SummaryData
}

// ReadingRow is a history table row with every value already formatted.
type ReadingRow struct {
	Time        time.Time
	Temperature string
	Humidity    string
	Pressure    string
	Lux         string
}

// PaginationItem is either a page number or an ellipsis.
type PaginationItem struct {
	Page     int
	Ellipsis bool
}

type HistoryData struct {
	StationName string
	StationID   string
	RangeLabel  string
	RangeKey    string
	Readings    []ReadingRow
	CurrentPage int
	TotalPages  int
	HasPrev     bool
	HasNext     bool
	PrevPage    int
	NextPage    int
	PageItems   []PaginationItem
}

func render(w io.Writer, name string, data any) error {
	if dashboardTmpl == nil {
		return errNotLoaded
	}
	return dashboardTmpl.ExecuteTemplate(w, name, data)
}

func RenderDashboard(w io.Writer, data *DashboardData) error {
	return render(w, "dashboard.html", data)
}

// RenderSummaryPartial renders only the summary panel for in-place refresh.
func RenderSummaryPartial(w io.Writer, data *SummaryData) error {
	return render(w, "partials/summary.html", data)
}

func RenderHistoryPartial(w io.Writer, data *HistoryData) error {
	return render(w, "partials/history.html", data)
}
