// Package window turns a requested time span into a count of the most recent
// samples to show.
package window

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// SamplesPerHour follows from the fixed 10 minute sampling interval.
const SamplesPerHour = 6

// MaxCustomHours is the exclusive upper bound for custom windows (90 days).
const MaxCustomHours = 2160

var (
	ErrInvalidPreset = errors.New("invalid preset")
	ErrNotANumber    = errors.New("not a number")
	ErrOutOfRange    = errors.New("out of range")

	// ErrNoOp means the request carried no input, e.g. a cancelled prompt.
	// Callers leave the window unchanged and do not report it.
	ErrNoOp = errors.New("no window requested")
)

// Preset names one of the fixed window lengths.
type Preset string

const (
	QuarterYear Preset = "QuarterYear"
	Month       Preset = "Month"
	Week        Preset = "Week"
	Day         Preset = "Day"
)

// DefaultPreset is the window applied after the first successful load.
const DefaultPreset = QuarterYear

// Counts are hours*6 + 1 so both ends of the span are included.
var presetCounts = map[Preset]int{
	QuarterYear: 2160*SamplesPerHour + 1,
	Month:       720*SamplesPerHour + 1,
	Week:        168*SamplesPerHour + 1,
	Day:         24*SamplesPerHour + 1,
}

// Presets lists the presets from longest to shortest.
func Presets() []Preset {
	return []Preset{QuarterYear, Month, Week, Day}
}

// PresetCount returns the fixed sample count for p.
func PresetCount(p Preset) (int, bool) {
	n, ok := presetCounts[p]
	return n, ok
}

// Spec is a window request: either a named preset or a custom number of hours
// as typed by the user.
type Spec struct {
	Preset Preset
	Hours  string
	Custom bool
}

// PresetSpec requests the named preset. The name is checked when resolved.
func PresetSpec(name string) Spec {
	return Spec{Preset: Preset(name)}
}

// CustomSpec requests a custom window of hours, as typed by the user.
func CustomSpec(hours string) Spec {
	return Spec{Hours: hours, Custom: true}
}

func (s Spec) String() string {
	if s.Custom {
		return "custom:" + s.Hours
	}
	return "preset:" + string(s.Preset)
}

// Resolver validates window requests and remembers the last accepted count.
// It belongs to a single presentation controller and is not safe for
// concurrent use on its own.
type Resolver struct {
	last int
}

// NewResolver starts at the DefaultPreset count.
func NewResolver() *Resolver {
	return &Resolver{last: presetCounts[DefaultPreset]}
}

// Last returns the most recently resolved sample count.
func (r *Resolver) Last() int {
	return r.last
}

// Resolve dispatches spec to ResolvePreset or ResolveCustom.
func (r *Resolver) Resolve(spec Spec) (int, error) {
	if spec.Custom {
		return r.ResolveCustom(spec.Hours)
	}
	return r.ResolvePreset(string(spec.Preset))
}

// ResolvePreset returns the fixed count for name and records it as the last
// count. Unknown names return ErrInvalidPreset and leave Last unchanged.
func (r *Resolver) ResolvePreset(name string) (int, error) {
	n, ok := presetCounts[Preset(name)]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPreset, name)
	}
	r.last = n
	return n, nil
}

// ResolveCustom parses hours as a float and returns floor(hours*6). Valid
// input lies strictly between 0 and MaxCustomHours.
func (r *Resolver) ResolveCustom(hours string) (int, error) {
	text := strings.TrimSpace(hours)
	if text == "" {
		return 0, ErrNoOp
	}
	h, err := strconv.ParseFloat(text, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return 0, fmt.Errorf("%w: %q hours", ErrOutOfRange, text)
		}
		return 0, fmt.Errorf("%w: %q", ErrNotANumber, text)
	}
	if math.IsNaN(h) {
		return 0, fmt.Errorf("%w: %q", ErrNotANumber, text)
	}
	if h <= 0 || h >= MaxCustomHours {
		return 0, fmt.Errorf("%w: %v hours (must be > 0 and < %d)", ErrOutOfRange, h, MaxCustomHours)
	}
	n := int(math.Floor(h * SamplesPerHour))
	r.last = n
	return n, nil
}
