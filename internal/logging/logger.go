package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"

	"haak-weather/internal/config"
)

type Options struct {
	AppName string
	Version string
	Env     string
	Level   slog.Level
	// Output defaults to os.Stdout.
	Output io.Writer
}

// New returns a colored tint logger for dev builds and a JSON logger
// otherwise.
func New(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	if opts.Version == "dev" {
		h := tint.NewHandler(out, &tint.Options{
			Level:      opts.Level,
			AddSource:  true,
			TimeFormat: time.Kitchen,
		})
		return slog.New(h).With("app", opts.AppName)
	}

	h := slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: opts.Level,
	})
	return slog.New(h).With(
		"app", opts.AppName,
		"version", opts.Version,
		"env", opts.Env,
	)
}

func FromConfig(cfg config.Config, version string, appName string) *slog.Logger {
	return New(Options{
		AppName: appName,
		Version: version,
		Env:     cfg.AppEnv,
		Level:   cfg.LogLevel,
	})
}
