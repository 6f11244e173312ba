// Package presenter owns the dashboard's window state. It fetches a series
// once, then re-slices the cached history for every window change and hands
// out immutable render payloads.
package presenter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"haak-weather/internal/metrics"
	"haak-weather/internal/modules/weather/series"
	"haak-weather/internal/modules/weather/transform"
	"haak-weather/internal/modules/weather/units"
	"haak-weather/internal/modules/weather/window"
)

var (
	ErrNotReady         = errors.New("presenter not ready: no series loaded")
	ErrReloadInProgress = errors.New("reload in progress")
)

type State int

const (
	Uninitialized State = iota
	Ready
)

func (s State) String() string {
	if s == Ready {
		return "ready"
	}
	return "uninitialized"
}

// Fetcher retrieves the full series in the given units. Implementations must
// not retry internally; failures are reported to the Reload caller.
type Fetcher interface {
	Fetch(ctx context.Context, sel units.Selection) ([]series.Record, error)
}

type Latest struct {
	Humidity    float64 `json:"humidity"`
	Luminosity  float64 `json:"luminosity"`
	Temperature float64 `json:"temperature"`
	Pressure    float64 `json:"pressure"`
}

// Summary holds the formatted latest values, e.g. "21.50°C".
type Summary struct {
	Humidity    string `json:"humidity"`
	Luminosity  string `json:"luminosity"`
	Temperature string `json:"temperature"`
	Pressure    string `json:"pressure"`
}

// RenderPayload is rebuilt on every change and never modified afterwards.
type RenderPayload struct {
	SampleCount int              `json:"sampleCount"`
	Points      int              `json:"points"`
	Units       units.Selection  `json:"units"`
	From        time.Time        `json:"from"`
	To          time.Time        `json:"to"`
	Series      transform.Series `json:"series"`
	Latest      Latest           `json:"latest"`
	Summary     Summary          `json:"summary"`
	GeneratedAt time.Time        `json:"generatedAt"`
}

type Options struct {
	Registry *units.Registry
	Logger   *slog.Logger
	Now      func() time.Time
	// Window is applied after the first load; empty means window.DefaultPreset.
	Window window.Preset
}

type Presenter struct {
	fetcher  Fetcher
	registry *units.Registry
	logger   *slog.Logger
	now      func() time.Time
	store    *series.Store

	mu       sync.Mutex
	state    State
	units    units.Selection
	resolver window.Resolver
	payload  *RenderPayload
	inflight int
}

func New(fetcher Fetcher, sel units.Selection, opts Options) *Presenter {
	if opts.Registry == nil {
		opts.Registry = units.NewRegistry()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	resolver := window.NewResolver()
	if opts.Window != "" {
		if _, err := resolver.ResolvePreset(string(opts.Window)); err != nil {
			opts.Logger.Warn("ignoring unknown initial window", "preset", opts.Window)
		}
	}
	return &Presenter{
		fetcher:  fetcher,
		registry: opts.Registry,
		logger:   opts.Logger,
		now:      opts.Now,
		store:    series.NewStore(),
		units:    sel,
		resolver: *resolver,
	}
}

func (p *Presenter) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Presenter) Units() units.Selection {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.units
}

// Payload returns the current payload; ok is false until the first load.
func (p *Presenter) Payload() (*RenderPayload, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.payload, p.payload != nil
}

// Reload fetches the series again in the current units and reapplies the
// last window. On failure the previous payload stays current.
func (p *Presenter) Reload(ctx context.Context) (*RenderPayload, error) {
	return p.reload(ctx, p.Units())
}

// SetUnits refetches the series in sel and reapplies the last window.
func (p *Presenter) SetUnits(ctx context.Context, sel units.Selection) (*RenderPayload, error) {
	if err := p.registry.Validate(sel); err != nil {
		return nil, err
	}
	return p.reload(ctx, sel)
}

func (p *Presenter) reload(ctx context.Context, sel units.Selection) (*RenderPayload, error) {
	p.mu.Lock()
	p.inflight++
	p.mu.Unlock()

	records, fetchErr := p.fetcher.Fetch(ctx, sel)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.inflight--

	if fetchErr != nil {
		metrics.ObserveReload("fetch_error")
		p.logger.Warn("series fetch failed", "units", sel, "error", fetchErr)
		return nil, fmt.Errorf("fetch series: %w", fetchErr)
	}
	// Built against a fresh store so a failure leaves the published one intact.
	next := series.NewStore()
	if err := next.Load(records, sel); err != nil {
		if errors.Is(err, series.ErrEmptyResponse) {
			metrics.ObserveReload("empty")
			p.logger.Warn("series fetch returned no records", "units", sel)
		} else {
			metrics.ObserveReload("invalid")
			p.logger.Warn("series fetch returned unusable records", "units", sel, "error", err)
		}
		return nil, err
	}
	payload, err := p.build(next, p.resolver.Last())
	if err != nil {
		metrics.ObserveReload("build_error")
		return nil, err
	}

	// Last writer wins when reloads overlap.
	p.store = next
	p.units = sel
	p.payload = payload
	if p.state == Uninitialized {
		p.logger.Info("presenter ready", "records", len(records), "units", sel)
	}
	p.state = Ready
	metrics.ObserveReload("ok")
	p.logger.Debug("series loaded", "records", len(records), "window", payload.SampleCount)
	return payload, nil
}

// SetWindow applies a new window to the cached series without fetching.
//
// Unknown presets and empty custom input leave everything unchanged and
// return the current payload without an error. Invalid custom input returns
// window.ErrNotANumber or window.ErrOutOfRange, also leaving state unchanged.
func (p *Presenter) SetWindow(spec window.Spec) (*RenderPayload, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	kind := "preset"
	if spec.Custom {
		kind = "custom"
	}

	if p.state != Ready {
		return nil, ErrNotReady
	}
	if p.inflight > 0 {
		metrics.ObserveWindowChange(kind, "reload_in_progress")
		return nil, ErrReloadInProgress
	}

	next := p.resolver
	count, err := next.Resolve(spec)
	switch {
	case errors.Is(err, window.ErrInvalidPreset):
		metrics.ObserveWindowChange(kind, "ignored")
		p.logger.Warn("ignoring unknown window preset", "spec", spec.String())
		return p.payload, nil
	case errors.Is(err, window.ErrNoOp):
		metrics.ObserveWindowChange(kind, "noop")
		return p.payload, nil
	case err != nil:
		metrics.ObserveWindowChange(kind, "rejected")
		return nil, err
	}

	payload, err := p.build(p.store, count)
	if err != nil {
		metrics.ObserveWindowChange(kind, "build_error")
		return nil, err
	}
	p.resolver = next
	p.payload = payload
	metrics.ObserveWindowChange(kind, "ok")
	return payload, nil
}

func (p *Presenter) build(store *series.Store, count int) (*RenderPayload, error) {
	sel := store.Units()
	formatter, err := transform.NewFormatter(p.registry, sel)
	if err != nil {
		return nil, err
	}

	// A sub-sample custom window still shows the newest record.
	records := store.Slice(max(count, 1))

	latest, err := latestValues(records)
	if err != nil {
		p.logger.Error("render payload invariant violated", "count", count, "size", store.Size(), "error", err)
		return nil, err
	}
	summary, err := summarize(formatter, latest)
	if err != nil {
		return nil, err
	}

	return &RenderPayload{
		SampleCount: count,
		Points:      len(records),
		Units:       sel,
		From:        records[0].Timestamp,
		To:          records[len(records)-1].Timestamp,
		Series:      transform.Project(records),
		Latest:      latest,
		Summary:     summary,
		GeneratedAt: p.now().UTC(),
	}, nil
}

func latestValues(records []series.Record) (Latest, error) {
	var out Latest
	targets := map[transform.Metric]*float64{
		transform.Humidity:    &out.Humidity,
		transform.Luminosity:  &out.Luminosity,
		transform.Temperature: &out.Temperature,
		transform.Pressure:    &out.Pressure,
	}
	for m, dst := range targets {
		v, err := transform.Latest(records, m)
		if err != nil {
			return Latest{}, err
		}
		*dst = v
	}
	return out, nil
}

func summarize(f transform.Formatter, l Latest) (Summary, error) {
	var out Summary
	fields := []struct {
		metric transform.Metric
		value  float64
		dst    *string
	}{
		{transform.Humidity, l.Humidity, &out.Humidity},
		{transform.Luminosity, l.Luminosity, &out.Luminosity},
		{transform.Temperature, l.Temperature, &out.Temperature},
		{transform.Pressure, l.Pressure, &out.Pressure},
	}
	for _, fld := range fields {
		s, err := f.Format(fld.metric, fld.value)
		if err != nil {
			return Summary{}, err
		}
		*fld.dst = s
	}
	return out, nil
}
