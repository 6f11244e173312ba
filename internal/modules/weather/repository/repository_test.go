package repository

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"haak-weather/internal/migrate"
	"haak-weather/internal/modules/weather/types"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// one connection so every query sees the same in-memory database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() {
		if closeErr := db.Close(); closeErr != nil {
			t.Errorf("close db: %v", closeErr)
		}
	})
	if err := migrate.Run(db, quiet); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func mustExec(t *testing.T, db *sql.DB, query string) {
	t.Helper()
	if _, err := db.Exec(query); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}

func ptr(v float64) *float64 { return &v }

func temps(readings []types.Reading) []float64 {
	out := make([]float64, len(readings))
	for i, r := range readings {
		if r.TemperatureC != nil {
			out[i] = *r.TemperatureC
		}
	}
	return out
}

func equalFloats(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestGetStations_Empty(t *testing.T) {
	repo := NewRepository(setupTestDB(t), quiet)

	stations, err := repo.GetStations(context.Background())
	if err != nil {
		t.Fatalf("GetStations: %v", err)
	}
	if len(stations) != 0 {
		t.Fatalf("GetStations: got %d stations, want 0", len(stations))
	}
}

func TestGetStations_WithData(t *testing.T) {
	db := setupTestDB(t)
	mustExec(t, db, `INSERT INTO stations (id, name) VALUES (2, 'Beta'), (1, 'Alpha')`)
	repo := NewRepository(db, quiet)

	stations, err := repo.GetStations(context.Background())
	if err != nil {
		t.Fatalf("GetStations: %v", err)
	}
	if len(stations) != 2 {
		t.Fatalf("GetStations: got %d stations, want 2", len(stations))
	}
	// Ordered by name: Alpha, Beta
	if stations[0].ID != "1" || stations[0].Name != "Alpha" {
		t.Errorf("first station: got id=%q name=%q, want id=1 name=Alpha", stations[0].ID, stations[0].Name)
	}
	if stations[1].ID != "2" || stations[1].Name != "Beta" {
		t.Errorf("second station: got id=%q name=%q, want id=2 name=Beta", stations[1].ID, stations[1].Name)
	}
}

func TestGetStationByName(t *testing.T) {
	db := setupTestDB(t)
	mustExec(t, db, `INSERT INTO stations (id, name) VALUES (7, 'garden')`)
	repo := NewRepository(db, quiet)

	s, err := repo.GetStationByName(context.Background(), "garden")
	if err != nil {
		t.Fatalf("GetStationByName: %v", err)
	}
	if s.ID != "7" || s.Name != "garden" {
		t.Errorf("got %+v, want id=7 name=garden", s)
	}

	_, err = repo.GetStationByName(context.Background(), "attic")
	if !errors.Is(err, ErrStationNotFound) {
		t.Errorf("unknown station error = %v, want ErrStationNotFound", err)
	}
}

func TestGetLatestReadings_NewestFirstWithLimit(t *testing.T) {
	db := setupTestDB(t)
	mustExec(t, db, `INSERT INTO stations (id, name) VALUES (1, 'Central')`)
	mustExec(t, db, `
		INSERT INTO readings (station_id, ts, temperature_c) VALUES
		(1, '2025-02-01T12:00:00.000Z', 10.0),
		(1, '2025-02-01T13:00:00.000Z', 11.5),
		(1, '2025-02-01T14:00:00.000Z', 12.0)
	`)
	repo := NewRepository(db, quiet)

	readings, err := repo.GetLatestReadings(context.Background(), "1", 100)
	if err != nil {
		t.Fatalf("GetLatestReadings: %v", err)
	}
	if got := temps(readings); !equalFloats(got, []float64{12, 11.5, 10}) {
		t.Errorf("GetLatestReadings order: got %v, want [12 11.5 10]", got)
	}
	for i := range readings {
		if readings[i].StationID != "1" {
			t.Errorf("reading[%d].StationID = %q, want 1", i, readings[i].StationID)
		}
	}

	readings, err = repo.GetLatestReadings(context.Background(), "1", 2)
	if err != nil {
		t.Fatalf("GetLatestReadings(limit=2): %v", err)
	}
	if got := temps(readings); !equalFloats(got, []float64{12, 11.5}) {
		t.Errorf("GetLatestReadings(limit=2): got %v, want [12 11.5]", got)
	}
}

func TestGetLatestReadings_UnknownStation(t *testing.T) {
	repo := NewRepository(setupTestDB(t), quiet)

	readings, err := repo.GetLatestReadings(context.Background(), "999", 100)
	if err != nil {
		t.Fatalf("GetLatestReadings: %v", err)
	}
	if len(readings) != 0 {
		t.Fatalf("GetLatestReadings(999): got %d readings, want 0", len(readings))
	}
}

func TestGetReadings_RangeLimitOffset(t *testing.T) {
	db := setupTestDB(t)
	mustExec(t, db, `INSERT INTO stations (id, name) VALUES (1, 'S1')`)
	mustExec(t, db, `
		INSERT INTO readings (station_id, ts, temperature_c) VALUES
		(1, '2025-02-01T10:00:00.000Z', 8.0),
		(1, '2025-02-01T11:00:00.000Z', 9.0),
		(1, '2025-02-01T12:00:00.000Z', 10.0),
		(1, '2025-02-01T13:00:00.000Z', 11.0),
		(1, '2025-02-01T14:00:00.000Z', 12.0)
	`)
	repo := NewRepository(db, quiet)
	ctx := context.Background()

	from := time.Date(2025, 2, 1, 11, 0, 0, 0, time.UTC)
	to := time.Date(2025, 2, 1, 13, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		limit, offset int
		want          []float64
	}{
		{name: "inclusive range newest first", limit: 10, offset: 0, want: []float64{11, 10, 9}},
		{name: "limit", limit: 2, offset: 0, want: []float64{11, 10}},
		{name: "offset", limit: 2, offset: 2, want: []float64{9}},
		{name: "offset past end", limit: 2, offset: 5, want: []float64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			readings, err := repo.GetReadings(ctx, "1", from, to, tt.limit, tt.offset)
			if err != nil {
				t.Fatalf("GetReadings: %v", err)
			}
			if got := temps(readings); !equalFloats(got, tt.want) {
				t.Errorf("GetReadings: got %v, want %v", got, tt.want)
			}
		})
	}

	n, err := repo.GetReadingsCount(ctx, "1", from, to)
	if err != nil {
		t.Fatalf("GetReadingsCount: %v", err)
	}
	if n != 3 {
		t.Errorf("GetReadingsCount = %d, want 3", n)
	}
}

func TestGetReadings_NullMetricsStayNil(t *testing.T) {
	db := setupTestDB(t)
	mustExec(t, db, `INSERT INTO stations (id, name) VALUES (1, 'S1')`)
	mustExec(t, db, `
		INSERT INTO readings (station_id, ts, temperature_c, humidity_pct, pressure_hpa, lux) VALUES
		(1, '2025-02-01T10:00:00.000Z', 8.0, 65.0, 1013.25, 120.0),
		(1, '2025-02-01T11:00:00.000Z', 9.0, NULL, 1012.0, NULL)
	`)
	repo := NewRepository(db, quiet)

	from := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 2, 2, 0, 0, 0, 0, time.UTC)
	readings, err := repo.GetReadings(context.Background(), "1", from, to, 10, 0)
	if err != nil {
		t.Fatalf("GetReadings: %v", err)
	}
	if len(readings) != 2 {
		t.Fatalf("GetReadings: got %d readings, want 2", len(readings))
	}
	if readings[0].HumidityPct != nil || readings[0].Lux != nil {
		t.Errorf("11:00 reading: got humidity=%v lux=%v, want nil", readings[0].HumidityPct, readings[0].Lux)
	}
	if readings[0].PressureHpa == nil || *readings[0].PressureHpa != 1012.0 {
		t.Errorf("11:00 reading pressure = %v, want 1012", readings[0].PressureHpa)
	}
	if readings[1].Lux == nil || *readings[1].Lux != 120.0 {
		t.Errorf("10:00 reading lux = %v, want 120", readings[1].Lux)
	}
	if !readings[1].Time.Equal(time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("10:00 reading time = %v", readings[1].Time)
	}
}

func TestGetSeries_CompleteRowsOldestFirst(t *testing.T) {
	db := setupTestDB(t)
	mustExec(t, db, `INSERT INTO stations (id, name) VALUES (1, 'S1')`)
	mustExec(t, db, `
		INSERT INTO readings (station_id, ts, temperature_c, humidity_pct, pressure_hpa, lux) VALUES
		(1, '2025-01-01T00:00:00.000Z', 1.0, 50, 1000, 10),
		(1, '2025-02-01T10:00:00.000Z', 2.0, 50, 1000, 10),
		(1, '2025-02-01T10:10:00.000Z', 3.0, 50, 1000, NULL),
		(1, '2025-02-01T10:20:00.000Z', 4.0, 50, 1000, 10),
		(1, '2025-02-01T10:30:00.000Z', 5.0, 50, 1000, 10)
	`)
	repo := NewRepository(db, quiet)
	ctx := context.Background()
	from := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	rows, err := repo.GetSeries(ctx, "1", from, 10)
	if err != nil {
		t.Fatalf("GetSeries: %v", err)
	}
	var got []float64
	for _, r := range rows {
		got = append(got, r.TemperatureC)
	}
	if !equalFloats(got, []float64{2, 4, 5}) {
		t.Errorf("GetSeries: got %v, want [2 4 5]", got)
	}

	rows, err = repo.GetSeries(ctx, "1", from, 2)
	if err != nil {
		t.Fatalf("GetSeries(limit=2): %v", err)
	}
	if len(rows) != 2 || rows[0].TemperatureC != 4 || rows[1].TemperatureC != 5 {
		t.Errorf("GetSeries(limit=2) kept the wrong end: %+v", rows)
	}
}

func TestInsertReading_RegistersStationByName(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db, quiet)
	ctx := context.Background()
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	err := repo.InsertReading(ctx, types.Reading{
		StationID: "balcony", Time: ts,
		TemperatureC: ptr(21.5), HumidityPct: ptr(40), PressureHpa: ptr(1011), Lux: ptr(300),
	})
	if err != nil {
		t.Fatalf("InsertReading: %v", err)
	}

	s, err := repo.GetStationByName(ctx, "balcony")
	if err != nil {
		t.Fatalf("GetStationByName: %v", err)
	}
	rows, err := repo.GetSeries(ctx, s.ID, ts.Add(-time.Hour), 10)
	if err != nil {
		t.Fatalf("GetSeries: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("GetSeries: got %d rows, want 1", len(rows))
	}
	want := types.SeriesRow{Time: ts, TemperatureC: 21.5, HumidityPct: 40, PressureHpa: 1011, Lux: 300}
	if rows[0] != want {
		t.Errorf("row = %+v, want %+v", rows[0], want)
	}
}

func TestInsertReading_MergesPartialReadings(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db, quiet)
	ctx := context.Background()
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := repo.InsertReading(ctx, types.Reading{StationID: "roof", Time: ts, TemperatureC: ptr(5), HumidityPct: ptr(80)}); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := repo.InsertReading(ctx, types.Reading{StationID: "roof", Time: ts, PressureHpa: ptr(990), Lux: ptr(0)}); err != nil {
		t.Fatalf("second insert: %v", err)
	}

	s, err := repo.GetStationByName(ctx, "roof")
	if err != nil {
		t.Fatalf("GetStationByName: %v", err)
	}
	rows, err := repo.GetSeries(ctx, s.ID, ts.Add(-time.Minute), 10)
	if err != nil {
		t.Fatalf("GetSeries: %v", err)
	}
	if len(rows) != 1 || rows[0].TemperatureC != 5 || rows[0].PressureHpa != 990 {
		t.Fatalf("merged row = %+v", rows)
	}
}

func TestInsertReading_Errors(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db, quiet)
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		reading types.Reading
		want    error
	}{
		{name: "humidity above 100", reading: types.Reading{StationID: "s", Time: ts, HumidityPct: ptr(101)}},
		{name: "negative pressure", reading: types.Reading{StationID: "s", Time: ts, PressureHpa: ptr(-1)}},
		{name: "negative lux", reading: types.Reading{StationID: "s", Time: ts, Lux: ptr(-0.5)}},
		{name: "unknown numeric station", reading: types.Reading{StationID: "42", Time: ts, TemperatureC: ptr(1)}, want: ErrStationNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.InsertReading(context.Background(), tt.reading)
			if err == nil {
				t.Fatal("InsertReading error = nil, want non-nil")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("InsertReading error = %v, want %v", err, tt.want)
			}
		})
	}
}
