// Package series holds the fetched history a presenter slices windows from.
package series

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sync/atomic"
	"time"

	"haak-weather/internal/modules/weather/units"
)

// ErrEmptyResponse is returned by Load when the fetched series has no records.
var ErrEmptyResponse = errors.New("empty response: no records")

// ErrNotFinite is returned by Load when a record holds ±Inf or NaN.
var ErrNotFinite = errors.New("record value is not finite")

// Record is one sample. Temperature and Pressure are in the units the series
// was fetched with.
type Record struct {
	Timestamp   time.Time `json:"time"`
	Humidity    float64   `json:"humidity"`
	Luminosity  float64   `json:"lux"`
	Temperature float64   `json:"temperature"`
	Pressure    float64   `json:"pressure"`
}

type snapshot struct {
	records []Record
	units   units.Selection
}

// Store keeps the full fetched history. Readers always see one complete
// snapshot; Load swaps the handle and never edits a published slice.
type Store struct {
	current atomic.Pointer[snapshot]
}

// NewStore returns an empty store; Loaded reports false until the first Load.
func NewStore() *Store {
	return &Store{}
}

// Load replaces the stored series. Records must be ordered oldest first; they
// are copied and never re-sorted. Empty input and records holding ±Inf or
// NaN are rejected, and on error the previous content is kept.
func (s *Store) Load(records []Record, sel units.Selection) error {
	if len(records) == 0 {
		return ErrEmptyResponse
	}
	for i, rec := range records {
		if !rec.finite() {
			return fmt.Errorf("record %d at %s: %w", i, rec.Timestamp.Format(time.RFC3339), ErrNotFinite)
		}
	}
	s.current.Store(&snapshot{
		records: slices.Clone(records),
		units:   sel,
	})
	return nil
}

// Loaded reports whether a series has been stored.
func (s *Store) Loaded() bool {
	return s.current.Load() != nil
}

// Size returns the number of stored records.
func (s *Store) Size() int {
	snap := s.current.Load()
	if snap == nil {
		return 0
	}
	return len(snap.records)
}

// Units returns the selection the stored series was fetched in.
func (s *Store) Units() units.Selection {
	snap := s.current.Load()
	if snap == nil {
		return units.Selection{}
	}
	return snap.units
}

// Slice returns the most recent min(n, Size()) records in original order.
// Asking for more than is stored returns everything.
//
// The result shares memory with the stored snapshot and must be treated as
// read-only. Appending is safe; assigning to an element is not.
func (s *Store) Slice(n int) []Record {
	snap := s.current.Load()
	if snap == nil || n <= 0 {
		return []Record{}
	}
	size := len(snap.records)
	if n > size {
		n = size
	}
	// capped so an append by the caller cannot reach into the snapshot
	return snap.records[size-n : size : size]
}

func (r Record) finite() bool {
	for _, v := range [...]float64{r.Humidity, r.Luminosity, r.Temperature, r.Pressure} {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return false
		}
	}
	return true
}
