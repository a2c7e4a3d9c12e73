// Follow - Live Location Tracking and Trail Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/follow

package follow

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/follow/internal/config"
)

const testKey = "device_key-1"

const reportsBody = `[
  {"id":"0f8fad5b-d9cb-469f-a165-70867728950e","timestamp":"2026-05-04T10:30:00Z","submit_timestamp":null,
   "latitude":47.6,"longitude":-122.3,"altitude":20,"speed":4.5,"bearing":180,"accuracy":5},
  {"id":"7c9e6679-7425-40de-944b-e07fc1f90ae7","timestamp":"2026-05-04T10:30:05Z","submit_timestamp":"2026-05-04T10:30:06Z",
   "latitude":47.61,"longitude":-122.31,"altitude":21,"speed":5,"bearing":181,"accuracy":4},
  {"id":"16fd2706-8baf-433b-82eb-8c7fada847da","timestamp":"2026-05-04T10:30:10Z","submit_timestamp":null,
   "latitude":123.0,"longitude":-122.32,"altitude":22,"speed":5,"bearing":182,"accuracy":4}
]`

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(&config.UpstreamConfig{URL: server.URL + "/", Timeout: 5 * time.Second})
	client.retryBaseDelay = time.Millisecond
	return client, server
}

func TestNewClient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		cfg         config.UpstreamConfig
		wantURL     string
		wantLimiter bool
		wantBurst   int
	}{
		{"trailing slash trimmed", config.UpstreamConfig{URL: "http://follow:3000/"}, "http://follow:3000", false, 0},
		{"paced", config.UpstreamConfig{URL: "http://follow", RequestsPerSecond: 5, Burst: 3}, "http://follow", true, 3},
		{"burst floor", config.UpstreamConfig{URL: "http://follow", RequestsPerSecond: 5}, "http://follow", true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := NewClient(&tt.cfg)
			if c.BaseURL() != tt.wantURL {
				t.Errorf("BaseURL() = %q, want %q", c.BaseURL(), tt.wantURL)
			}
			if (c.limiter != nil) != tt.wantLimiter {
				t.Fatalf("limiter present = %v, want %v", c.limiter != nil, tt.wantLimiter)
			}
			if tt.wantLimiter && c.limiter.Burst() != tt.wantBurst {
				t.Errorf("Burst() = %d, want %d", c.limiter.Burst(), tt.wantBurst)
			}
		})
	}
}

func TestReportParams_Normalized(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in        ReportParams
		wantLimit int
		wantOrder Order
	}{
		{ReportParams{}, DefaultLimit, OrderDesc},
		{ReportParams{Limit: 1000, Order: OrderAsc}, 1000, OrderAsc},
		{ReportParams{Limit: 50000}, MaxLimit, OrderDesc},
		{ReportParams{Limit: -3, Order: "sideways"}, DefaultLimit, OrderDesc},
	}
	for _, tt := range tests {
		got := tt.in.Normalized()
		if got.Limit != tt.wantLimit || got.Order != tt.wantOrder {
			t.Errorf("Normalized(%+v) = %d/%s, want %d/%s", tt.in, got.Limit, got.Order, tt.wantLimit, tt.wantOrder)
		}
	}
}

func TestClient_Device(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/devices/" + testKey:
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"id":"d-1","api_key":%q}`, testKey)
		default:
			http.NotFound(w, r)
		}
	})

	device, err := client.Device(context.Background(), testKey)
	if err != nil {
		t.Fatalf("Device() error = %v", err)
	}
	if device.ID != "d-1" || device.APIKey != testKey {
		t.Errorf("Device() = %+v", device)
	}

	_, err = client.Device(context.Background(), "missing")
	if !errors.Is(err, ErrUnknownDevice) {
		t.Errorf("Device(missing) error = %v, want ErrUnknownDevice", err)
	}
}

func TestClient_Count(t *testing.T) {
	t.Parallel()

	since := time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/devices/"+testKey+"/reports/count" {
			http.NotFound(w, r)
			return
		}
		if got := r.URL.Query().Get("since"); got != "2026-05-04T08:00:00Z" {
			t.Errorf("since = %q", got)
		}
		if r.URL.Query().Has("until") {
			t.Error("zero until should be omitted")
		}
		_, _ = w.Write([]byte(`{"count":42}`))
	})

	n, err := client.Count(context.Background(), testKey, since, time.Time{})
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 42 {
		t.Errorf("Count() = %d, want 42", n)
	}
}

func TestClient_Reports_DropsInvalid(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("limit") != "1000" || q.Get("order") != "asc" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(reportsBody))
	})

	reports, err := client.Reports(context.Background(), testKey, ReportParams{Limit: 1000, Order: OrderAsc})
	if err != nil {
		t.Fatalf("Reports() error = %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("got %d reports, want 2 (latitude 123 dropped)", len(reports))
	}
	if reports[0].SubmitTimestamp != nil {
		t.Error("null submit_timestamp should decode to nil")
	}
	if reports[1].SubmitTimestamp == nil || reports[1].Speed != 5 {
		t.Errorf("second report = %+v", reports[1])
	}
}

func TestClient_Report(t *testing.T) {
	t.Parallel()

	const id = "0f8fad5b-d9cb-469f-a165-70867728950e"
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/devices/"+testKey+"/reports/"+id {
			body := strings.TrimSpace(reportsBody)
			body = body[1:strings.Index(body, "},")+1]
			_, _ = w.Write([]byte(body))
			return
		}
		http.NotFound(w, r)
	})

	report, err := client.Report(context.Background(), testKey, id)
	if err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	if report.ID != id || report.Altitude != 20 {
		t.Errorf("Report() = %+v", report)
	}

	_, err = client.Report(context.Background(), testKey, "nope")
	if !errors.Is(err, ErrReportNotFound) {
		t.Errorf("Report(nope) error = %v, want ErrReportNotFound", err)
	}
}

func TestClient_ServerError(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "database unavailable", http.StatusInternalServerError)
	})

	_, err := client.Count(context.Background(), testKey, time.Time{}, time.Time{})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "status 500") || !strings.Contains(err.Error(), "database unavailable") {
		t.Errorf("error = %v", err)
	}
}

func TestClient_RetriesOn429(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"count":7}`))
	})

	n, err := client.Count(context.Background(), testKey, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 7 || calls.Load() != 3 {
		t.Errorf("count = %d after %d calls, want 7 after 3", n, calls.Load())
	}
}

func TestClient_RateLimitExhausted(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	})
	client.maxRetries = 2

	_, err := client.Count(context.Background(), testKey, time.Time{}, time.Time{})
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("error = %v, want ErrRateLimited", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestClient_ContextCanceledDuringBackoff(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.Count(ctx, testKey, time.Time{}, time.Time{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want deadline exceeded", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("backoff ignored context cancellation")
	}
}

func TestReadBodyForError(t *testing.T) {
	t.Parallel()

	short := readBodyForError(strings.NewReader("oops"))
	if string(short) != "oops" {
		t.Errorf("short body = %q", short)
	}

	long := readBodyForError(strings.NewReader(strings.Repeat("x", maxErrorBodySize+10)))
	if !strings.HasSuffix(string(long), "(truncated)") {
		t.Error("long body should be marked truncated")
	}
}

func TestResultLabel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want string
	}{
		{nil, "success"},
		{ErrUnknownDevice, "not_found"},
		{fmt.Errorf("wrapped: %w", ErrReportNotFound), "not_found"},
		{ErrRateLimited, "rate_limited"},
		{context.Canceled, "canceled"},
		{errors.New("boom"), "error"},
	}
	for _, tt := range tests {
		if got := resultLabel(tt.err); got != tt.want {
			t.Errorf("resultLabel(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}
