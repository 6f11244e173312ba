package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"haak-weather/internal/modules/weather/types"
)

//go:embed sql/get-stations.sql
var getStationsSQL string

//go:embed sql/get-station-by-name.sql
var getStationByNameSQL string

//go:embed sql/get-station-id-by-name.sql
var getStationIDByNameSQL string

//go:embed sql/insert-station.sql
var insertStationSQL string

//go:embed sql/get-latest-reading.sql
var getLatestReadingSQL string

//go:embed sql/get-readings.sql
var getReadingsSQL string

//go:embed sql/get-readings-count.sql
var getReadingsCountSQL string

//go:embed sql/get-series.sql
var getSeriesSQL string

//go:embed sql/insert-reading.sql
var insertReadingSQL string

// tsLayout has a fixed width so stored timestamps sort lexically.
const tsLayout = "2006-01-02T15:04:05.000Z"

var ErrStationNotFound = errors.New("station not found")

type WeatherRepository interface {
	GetStations(ctx context.Context) ([]types.Station, error)
	GetStationByName(ctx context.Context, name string) (types.Station, error)
	GetLatestReadings(ctx context.Context, stationID string, limit int) ([]types.Reading, error)
	GetReadings(ctx context.Context, stationID string, from time.Time, to time.Time, limit int, offset int) ([]types.Reading, error)
	GetReadingsCount(ctx context.Context, stationID string, from time.Time, to time.Time) (int, error)
	// GetSeries returns up to limit of the newest complete rows since from,
	// oldest first.
	GetSeries(ctx context.Context, stationID string, from time.Time, limit int) ([]types.SeriesRow, error)
	InsertReading(ctx context.Context, r types.Reading) error
}

type repositoryImpl struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewRepository(db *sql.DB, logger *slog.Logger) WeatherRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &repositoryImpl{db: db, logger: logger}
}

func formatTS(t time.Time) string {
	return t.UTC().Format(tsLayout)
}

func parseTS(ts string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", ts, err)
	}
	return t.UTC(), nil
}

func (r *repositoryImpl) closeRows(rows *sql.Rows, what string) {
	if err := rows.Close(); err != nil {
		r.logger.Error("close rows", "query", what, "error", err)
	}
}

func (r *repositoryImpl) GetStations(ctx context.Context) ([]types.Station, error) {
	rows, err := r.db.QueryContext(ctx, getStationsSQL)
	if err != nil {
		return nil, err
	}
	defer r.closeRows(rows, "stations")

	out := []types.Station{}
	for rows.Next() {
		var s types.Station
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *repositoryImpl) GetStationByName(ctx context.Context, name string) (types.Station, error) {
	var s types.Station
	err := r.db.QueryRowContext(ctx, getStationByNameSQL, name).Scan(&s.ID, &s.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Station{}, fmt.Errorf("%w: %q", ErrStationNotFound, name)
	}
	return s, err
}

func (r *repositoryImpl) GetLatestReadings(ctx context.Context, stationID string, limit int) ([]types.Reading, error) {
	rows, err := r.db.QueryContext(ctx, getLatestReadingSQL, stationID, limit)
	if err != nil {
		return nil, err
	}
	defer r.closeRows(rows, "latest readings")
	return scanReadings(rows)
}

func (r *repositoryImpl) GetReadings(ctx context.Context, stationID string, from time.Time, to time.Time, limit int, offset int) ([]types.Reading, error) {
	rows, err := r.db.QueryContext(ctx, getReadingsSQL, stationID, formatTS(from), formatTS(to), limit, offset)
	if err != nil {
		return nil, err
	}
	defer r.closeRows(rows, "readings")
	return scanReadings(rows)
}

func (r *repositoryImpl) GetReadingsCount(ctx context.Context, stationID string, from time.Time, to time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, getReadingsCountSQL, stationID, formatTS(from), formatTS(to)).Scan(&n)
	return n, err
}

func (r *repositoryImpl) GetSeries(ctx context.Context, stationID string, from time.Time, limit int) ([]types.SeriesRow, error) {
	rows, err := r.db.QueryContext(ctx, getSeriesSQL, stationID, formatTS(from), limit)
	if err != nil {
		return nil, err
	}
	defer r.closeRows(rows, "series")

	out := []types.SeriesRow{}
	for rows.Next() {
		var (
			row types.SeriesRow
			ts  string
		)
		if err := rows.Scan(&ts, &row.TemperatureC, &row.HumidityPct, &row.PressureHpa, &row.Lux); err != nil {
			return nil, err
		}
		if row.Time, err = parseTS(ts); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func scanReadings(rows *sql.Rows) ([]types.Reading, error) {
	out := []types.Reading{}
	for rows.Next() {
		var (
			rec                  types.Reading
			ts                   string
			temp, hum, pres, lux sql.NullFloat64
		)
		if err := rows.Scan(&rec.StationID, &ts, &temp, &hum, &pres, &lux); err != nil {
			return nil, err
		}
		t, err := parseTS(ts)
		if err != nil {
			return nil, err
		}
		rec.Time = t
		rec.TemperatureC = nullable(temp)
		rec.HumidityPct = nullable(hum)
		rec.PressureHpa = nullable(pres)
		rec.Lux = nullable(lux)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func nullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func value(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

// InsertReading stores r, creating the station on first sight when it is
// given by name. A numeric StationID must refer to an existing station.
// Rows for an existing (station, ts) are merged, keeping previously stored
// metrics the new reading lacks.
func (r *repositoryImpl) InsertReading(ctx context.Context, rd types.Reading) error {
	if rd.HumidityPct != nil && (*rd.HumidityPct < 0 || *rd.HumidityPct > 100) {
		return fmt.Errorf("humidity_pct out of range: %f (must be 0-100)", *rd.HumidityPct)
	}
	if rd.PressureHpa != nil && *rd.PressureHpa <= 0 {
		return fmt.Errorf("pressure_hpa must be positive: %f", *rd.PressureHpa)
	}
	if rd.Lux != nil && *rd.Lux < 0 {
		return fmt.Errorf("lux must not be negative: %f", *rd.Lux)
	}

	stationID, err := r.resolveStation(ctx, rd.StationID)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, insertReadingSQL,
		stationID, formatTS(rd.Time),
		value(rd.TemperatureC), value(rd.HumidityPct), value(rd.PressureHpa), value(rd.Lux),
	)
	if err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}
	return nil
}

func (r *repositoryImpl) resolveStation(ctx context.Context, station string) (int64, error) {
	if id, err := strconv.ParseInt(station, 10, 64); err == nil {
		var name string
		err := r.db.QueryRowContext(ctx, `SELECT name FROM stations WHERE id = ?`, id).Scan(&name)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%w: id %d", ErrStationNotFound, id)
		}
		if err != nil {
			return 0, fmt.Errorf("lookup station %d: %w", id, err)
		}
		return id, nil
	}

	if _, err := r.db.ExecContext(ctx, insertStationSQL, station); err != nil {
		return 0, fmt.Errorf("register station %q: %w", station, err)
	}
	var id int64
	if err := r.db.QueryRowContext(ctx, getStationIDByNameSQL, station).Scan(&id); err != nil {
		return 0, fmt.Errorf("lookup station %q: %w", station, err)
	}
	return id, nil
}
