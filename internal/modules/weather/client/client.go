// Package client fetches series from a remote haak server.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"haak-weather/internal/modules/weather/series"
	"haak-weather/internal/modules/weather/units"
)

const DataPath = "/api/v1/data"

// maxErrorBody caps how much of a failed response is read for the message.
const maxErrorBody = 4 << 10

var ErrIncompleteRecord = errors.New("incomplete record")

// StatusError is returned for any non-200 response.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("data source returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("data source returned %d: %s", e.StatusCode, e.Message)
}

type wireRecord struct {
	Time        *time.Time `json:"time"`
	Humidity    *float64   `json:"humidity"`
	Lux         *float64   `json:"lux"`
	Temperature *float64   `json:"temperature"`
	Pressure    *float64   `json:"pressure"`
}

type HTTPFetcher struct {
	baseURL   string
	stationID string
	userAgent string
	client    *http.Client
}

type Options struct {
	StationID string
	UserAgent string
	// Client defaults to an http.Client with a 30s timeout.
	Client *http.Client
}

func NewHTTPFetcher(baseURL string, opts Options) *HTTPFetcher {
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "haak-viewer"
	}
	return &HTTPFetcher{
		baseURL:   strings.TrimRight(baseURL, "/"),
		stationID: opts.StationID,
		userAgent: opts.UserAgent,
		client:    opts.Client,
	}
}

// Fetch performs a single request; it never retries.
func (f *HTTPFetcher) Fetch(ctx context.Context, sel units.Selection) ([]series.Record, error) {
	q := url.Values{}
	q.Set("temperature", sel.Temperature)
	q.Set("pressure", sel.Pressure)
	if f.stationID != "" {
		q.Set("station_id", f.stationID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+DataPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", DataPath, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var wire []wireRecord
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("decode series: %w", err)
	}

	out := make([]series.Record, len(wire))
	for i, w := range wire {
		if w.Time == nil || w.Humidity == nil || w.Lux == nil || w.Temperature == nil || w.Pressure == nil {
			return nil, fmt.Errorf("record %d: %w", i, ErrIncompleteRecord)
		}
		out[i] = series.Record{
			Timestamp:   w.Time.UTC(),
			Humidity:    *w.Humidity,
			Luminosity:  *w.Lux,
			Temperature: *w.Temperature,
			Pressure:    *w.Pressure,
		}
	}
	return out, nil
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var payload struct {
		Message string `json:"message"`
	}
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &payload) == nil && payload.Message != "" {
		msg = payload.Message
	}
	return &StatusError{StatusCode: resp.StatusCode, Message: msg}
}
