package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"haak-weather/internal/modules/weather/presenter"
	"haak-weather/internal/modules/weather/transform"
	"haak-weather/internal/modules/weather/units"
)

func newSummaryCommand(app *viewer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print the latest values and the range of the current window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := app.load(cmd.Context())
			if err != nil {
				return err
			}
			return writeSummary(cmd.OutOrStdout(), payload, app.registry)
		},
	}
	addWindowFlags(cmd)
	return cmd
}

var metricTitles = map[transform.Metric]string{
	transform.Humidity:    "Humidity",
	transform.Luminosity:  "Luminosity",
	transform.Temperature: "Temperature",
	transform.Pressure:    "Pressure",
}

func writeSummary(w io.Writer, payload *presenter.RenderPayload, reg *units.Registry) error {
	f, err := transform.NewFormatter(reg, payload.Units)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Window: %d of %d samples, %s to %s\n",
		payload.Points, payload.SampleCount,
		payload.From.Format(time.DateTime), payload.To.Format(time.DateTime))

	rows := make([][]string, 0, len(transform.Metrics()))
	for _, m := range transform.Metrics() {
		lo, hi := pointRange(payload.Series.Points(m))
		low, err := f.Format(m, lo)
		if err != nil {
			return err
		}
		high, err := f.Format(m, hi)
		if err != nil {
			return err
		}
		rows = append(rows, []string{metricTitles[m], latestText(payload.Summary, m), low, high})
	}

	table := tablewriter.NewWriter(w)
	defer func() { _ = table.Close() }()
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	table.Header([]string{"Metric", "Latest", "Min", "Max"})
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}

func latestText(s presenter.Summary, m transform.Metric) string {
	switch m {
	case transform.Humidity:
		return s.Humidity
	case transform.Luminosity:
		return s.Luminosity
	case transform.Temperature:
		return s.Temperature
	case transform.Pressure:
		return s.Pressure
	}
	return ""
}

// pointRange returns the smallest and largest Y, or zeros for no points.
func pointRange(points []transform.PlotPoint) (lo, hi float64) {
	if len(points) == 0 {
		return 0, 0
	}
	lo, hi = points[0].Y, points[0].Y
	for _, p := range points[1:] {
		lo = min(lo, p.Y)
		hi = max(hi, p.Y)
	}
	return lo, hi
}
