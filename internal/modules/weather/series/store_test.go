package series

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"haak-weather/internal/modules/weather/units"
)

func makeRecords(n int) []Record {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]Record, n)
	for i := range out {
		out[i] = Record{
			Timestamp:   start.Add(time.Duration(i) * 10 * time.Minute),
			Humidity:    float64(i),
			Luminosity:  float64(i) * 2,
			Temperature: float64(i) * 0.5,
			Pressure:    1 + float64(i)/1000,
		}
	}
	return out
}

func TestStore_Empty(t *testing.T) {
	s := NewStore()

	assert.False(t, s.Loaded())
	assert.Equal(t, 0, s.Size())
	assert.Empty(t, s.Slice(10))
	assert.Equal(t, units.Selection{}, s.Units())
}

func TestStore_LoadRejectsEmpty(t *testing.T) {
	s := NewStore()

	err := s.Load(nil, units.DefaultSelection())
	require.ErrorIs(t, err, ErrEmptyResponse)
	assert.False(t, s.Loaded())
}

func TestStore_LoadEmptyKeepsPrevious(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Load(makeRecords(3), units.DefaultSelection()))

	err := s.Load([]Record{}, units.Selection{Temperature: units.Kelvin, Pressure: units.PSI})
	require.ErrorIs(t, err, ErrEmptyResponse)

	assert.Equal(t, 3, s.Size())
	assert.Equal(t, units.DefaultSelection(), s.Units())
}

func TestStore_LoadReplaces(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Load(makeRecords(3), units.DefaultSelection()))

	sel := units.Selection{Temperature: units.Fahrenheit, Pressure: units.Mercury}
	require.NoError(t, s.Load(makeRecords(7), sel))

	assert.Equal(t, 7, s.Size())
	assert.Equal(t, sel, s.Units())
}

func TestStore_LoadCopiesInput(t *testing.T) {
	s := NewStore()
	in := makeRecords(2)
	require.NoError(t, s.Load(in, units.DefaultSelection()))

	in[1].Temperature = 999

	got := s.Slice(1)
	require.Len(t, got, 1)
	assert.Equal(t, 0.5, got[0].Temperature)
}

func TestStore_Slice(t *testing.T) {
	s := NewStore()
	records := makeRecords(50)
	require.NoError(t, s.Load(records, units.DefaultSelection()))

	tests := []struct {
		name string
		n    int
		want int
	}{
		{name: "zero", n: 0, want: 0},
		{name: "negative", n: -3, want: 0},
		{name: "one", n: 1, want: 1},
		{name: "partial", n: 20, want: 20},
		{name: "exact", n: 50, want: 50},
		{name: "more than stored", n: 145, want: 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Slice(tt.n)
			require.Len(t, got, tt.want)
			assert.Equal(t, records[len(records)-tt.want:], got)
		})
	}
}

func TestStore_SliceAppendDoesNotLeak(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Load(makeRecords(5), units.DefaultSelection()))

	grown := append(s.Slice(2), Record{Temperature: -1})
	grown[0].Temperature = -1

	assert.Equal(t, 1.5, s.Slice(2)[0].Temperature)
}

func TestStore_SliceUnaffectedByLaterLoad(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Load(makeRecords(4), units.DefaultSelection()))

	before := s.Slice(4)
	require.NoError(t, s.Load(makeRecords(1), units.DefaultSelection()))

	assert.Len(t, before, 4)
	assert.Equal(t, 1, s.Size())
}

func TestStore_LoadRejectsNonFinite(t *testing.T) {
	tests := []struct {
		name string
		edit func(*Record)
	}{
		{name: "inf temperature", edit: func(r *Record) { r.Temperature = math.Inf(1) }},
		{name: "negative inf pressure", edit: func(r *Record) { r.Pressure = math.Inf(-1) }},
		{name: "nan humidity", edit: func(r *Record) { r.Humidity = math.NaN() }},
		{name: "nan luminosity", edit: func(r *Record) { r.Luminosity = math.NaN() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			require.NoError(t, s.Load(makeRecords(2), units.DefaultSelection()))

			bad := makeRecords(3)
			tt.edit(&bad[1])
			assert.ErrorIs(t, s.Load(bad, units.DefaultSelection()), ErrNotFinite)
			assert.Equal(t, 2, s.Size(), "previous content must be kept")
		})
	}
}
