// Package cli implements the haak-viewer command line client.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"haak-weather/internal/config"
	"haak-weather/internal/logging"
	"haak-weather/internal/modules/weather/client"
	"haak-weather/internal/modules/weather/presenter"
	"haak-weather/internal/modules/weather/units"
	"haak-weather/internal/modules/weather/window"
)

const appName = "haak-viewer"

// viewer holds what every subcommand shares once flags are parsed.
type viewer struct {
	version  string
	v        *viper.Viper
	registry *units.Registry
	logger   *slog.Logger
}

// NewRootCommand builds the command tree. Settings come from flags, then
// HAAK_* environment variables, then flag defaults.
func NewRootCommand(version string) *cobra.Command {
	app := &viewer{
		version:  version,
		v:        viper.New(),
		registry: units.NewRegistry(),
	}
	app.v.SetEnvPrefix("HAAK")
	app.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	app.v.AutomaticEnv()

	root := &cobra.Command{
		Use:           appName,
		Short:         "Inspect haak weather series from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := app.v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			level, err := config.ParseLogLevel(app.v.GetString("log-level"))
			if err != nil {
				return err
			}
			app.logger = logging.New(logging.Options{
				AppName: appName,
				Version: version,
				Env:     "cli",
				Level:   level,
				Output:  cmd.ErrOrStderr(),
			})
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.String("server", "http://localhost:8080", "Base URL of the haak server")
	flags.String("station", "", "Station id (defaults to the server's first station)")
	flags.String("temperature", units.Celsius, "Temperature unit")
	flags.String("pressure", units.Bar, "Pressure unit")
	flags.Duration("timeout", 30*time.Second, "Request timeout")
	flags.String("log-level", "warn", "Log level (debug, info, warn, error)")

	root.AddCommand(newSummaryCommand(app))
	root.AddCommand(newRenderCommand(app))
	root.AddCommand(newVersionCommand(app))
	return root
}

// Execute runs the viewer and returns the process exit code.
func Execute(ctx context.Context, version string, args []string) int {
	root := NewRootCommand(version)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "error:", err)
		return 1
	}
	return 0
}

func addWindowFlags(cmd *cobra.Command) {
	cmd.Flags().String("preset", "", "Window preset ("+presetNames()+")")
	cmd.Flags().String("hours", "", "Custom window in hours")
	cmd.MarkFlagsMutuallyExclusive("preset", "hours")
}

func presetNames() string {
	names := make([]string, 0, len(window.Presets()))
	for _, p := range window.Presets() {
		names = append(names, string(p))
	}
	return strings.Join(names, ", ")
}

// windowSpec returns the requested window, or nil for the default one.
func (a *viewer) windowSpec() (*window.Spec, error) {
	preset, hours := a.v.GetString("preset"), a.v.GetString("hours")
	switch {
	case preset != "" && hours != "":
		return nil, errors.New("--preset and --hours are mutually exclusive")
	case preset != "":
		if _, ok := window.PresetCount(window.Preset(preset)); !ok {
			return nil, fmt.Errorf("%w %q (want one of %s)", window.ErrInvalidPreset, preset, presetNames())
		}
		spec := window.PresetSpec(preset)
		return &spec, nil
	case hours != "":
		spec := window.CustomSpec(hours)
		return &spec, nil
	}
	return nil, nil
}

func (a *viewer) selection() units.Selection {
	return units.Selection{
		Temperature: a.v.GetString("temperature"),
		Pressure:    a.v.GetString("pressure"),
	}
}

// load fetches the series once and applies the requested window.
func (a *viewer) load(ctx context.Context) (*presenter.RenderPayload, error) {
	sel := a.selection()
	if err := a.registry.Validate(sel); err != nil {
		return nil, err
	}
	spec, err := a.windowSpec()
	if err != nil {
		return nil, err
	}

	timeout := a.v.GetDuration("timeout")
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	fetcher := client.NewHTTPFetcher(a.v.GetString("server"), client.Options{
		StationID: a.v.GetString("station"),
		UserAgent: appName + "/" + a.version,
		Client:    &http.Client{Timeout: timeout},
	})
	p := presenter.New(fetcher, sel, presenter.Options{Registry: a.registry, Logger: a.logger})

	payload, err := p.Reload(ctx)
	if err != nil {
		return nil, err
	}
	if spec != nil {
		if payload, err = p.SetWindow(*spec); err != nil {
			return nil, fmt.Errorf("window %s: %w", spec, err)
		}
	}
	a.logger.Debug("series loaded", "samples", payload.SampleCount, "points", payload.Points)
	return payload, nil
}
