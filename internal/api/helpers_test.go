// Follow - Live Location Tracking and Trail Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/follow

package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/follow/internal/config"
	"github.com/tomtom215/follow/internal/follow"
	"github.com/tomtom215/follow/internal/models"
	"github.com/tomtom215/follow/internal/track"
	"github.com/tomtom215/follow/internal/tracker"
	ws "github.com/tomtom215/follow/internal/websocket"
)

const (
	knownDevice   = "known"
	allowedOrigin = "http://allowed.test"
)

// fakeUpstream serves the follow backend API for one known device.
type fakeUpstream struct {
	mu       sync.Mutex
	reports  []models.Report
	requests atomic.Int32
}

func newFakeUpstream(n int) *fakeUpstream {
	base := time.Now().Add(-10 * time.Minute)
	f := &fakeUpstream{}
	for i := 0; i < n; i++ {
		f.reports = append(f.reports, models.Report{
			ID:        uuid.NewString(),
			Timestamp: base.Add(time.Duration(i) * 10 * time.Second),
			Latitude:  47.6 + float64(i)*0.001,
			Longitude: -122.3,
			Speed:     0,
			Altitude:  20,
		})
	}
	return f
}

func (f *fakeUpstream) after(since time.Time) []models.Report {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Report
	for _, r := range f.reports {
		if since.IsZero() || r.Timestamp.After(since) {
			out = append(out, r)
		}
	}
	return out
}

func (f *fakeUpstream) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /devices/{key}", func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)
		if r.PathValue("key") != knownDevice {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(models.Device{ID: "1", APIKey: knownDevice})
	})
	mux.HandleFunc("GET /api/v1/devices/{key}/reports/count", func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)
		since, _ := time.Parse(time.RFC3339Nano, r.URL.Query().Get("since"))
		_ = json.NewEncoder(w).Encode(models.ReportCount{Count: len(f.after(since))})
	})
	mux.HandleFunc("GET /api/v1/devices/{key}/reports", func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)
		q := r.URL.Query()
		since, _ := time.Parse(time.RFC3339Nano, q.Get("since"))
		out := f.after(since)
		if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit < len(out) {
			out = out[:limit]
		}
		if out == nil {
			out = []models.Report{}
		}
		_ = json.NewEncoder(w).Encode(out)
	})
	return mux
}

type testEnv struct {
	router   http.Handler
	handler  *Handler
	manager  *tracker.Manager
	hub      *ws.Hub
	upstream *fakeUpstream
}

func testConfig() *config.Config {
	return &config.Config{
		Tracker: config.TrackerConfig{
			PollInterval:   50 * time.Millisecond,
			PruneInterval:  time.Minute,
			PageSize:       100,
			PruneThreshold: 2 * time.Hour,
			TripSplitGap:   2 * time.Minute,
			MaxDevices:     10,
			IdleTimeout:    time.Hour,
		},
		API: config.APIConfig{MaxSamples: 100, CacheTTL: time.Minute},
		Security: config.SecurityConfig{
			CORSOrigins:     []string{allowedOrigin},
			RateLimitReqs:   1000,
			RateLimitWindow: time.Minute,
		},
		Frontend: config.FrontendConfig{MapsAPIKey: "maps-key"},
	}
}

// newTestEnv builds the full stack against a fake backend. mutate may
// adjust the config before anything is built.
func newTestEnv(t *testing.T, start bool, mutate func(*config.Config)) *testEnv {
	t.Helper()

	cfg := testConfig()
	if mutate != nil {
		mutate(cfg)
	}

	upstream := newFakeUpstream(5)
	server := httptest.NewServer(upstream.handler())
	t.Cleanup(server.Close)

	client := follow.NewClient(&config.UpstreamConfig{URL: server.URL, Timeout: 5 * time.Second})
	manager := tracker.NewManager(client, &cfg.Tracker)

	h := NewHandler(cfg, track.DefaultPalette(), manager, nil, "test")
	hub := ws.NewHub(h.RenderDevice)
	h.SetHub(hub)
	manager.SetOnUpdate(hub.NotifyDevice)
	manager.SetKeepAlive(hub.HasSubscribers)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = hub.RunWithContext(ctx) }()
	if start {
		if err := manager.Start(ctx); err != nil {
			t.Fatalf("manager.Start: %v", err)
		}
	}
	t.Cleanup(func() {
		manager.Stop()
		cancel()
		h.Close()
	})

	return &testEnv{
		router:   NewRouter(h, NewChiMiddleware(ChiMiddlewareConfigFrom(&cfg.Security))),
		handler:  h,
		manager:  manager,
		hub:      hub,
		upstream: upstream,
	}
}

type envelope struct {
	Status   string           `json:"status"`
	Data     json.RawMessage  `json:"data"`
	Metadata models.Metadata  `json:"metadata"`
	Error    *models.APIError `json:"error"`
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		var raw []byte
		switch b := body.(type) {
		case string:
			raw = []byte(b)
		default:
			var err error
			if raw, err = json.Marshal(b); err != nil {
				t.Fatalf("marshal body: %v", err)
			}
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "192.0.2.1:1234"
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode %s %s: %v\n%s", method, path, err, rec.Body.String())
		}
	}
	return rec, env
}

func decodeData(t *testing.T, env envelope, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("decode data: %v\n%s", err, env.Data)
	}
}

// waitForReports polls the status endpoint until n reports are stored.
func (e *testEnv) waitForReports(t *testing.T, key string, n int) models.TrackerStatus {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		rec, env := e.do(t, http.MethodGet, "/api/v1/devices/"+key+"/status", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status code = %d: %s", rec.Code, rec.Body.String())
		}
		var status models.TrackerStatus
		decodeData(t, env, &status)
		if status.FetchedReports == n {
			return status
		}
		if time.Now().After(deadline) {
			t.Fatalf("fetched_reports = %d, want %d (state %s)", status.FetchedReports, n, status.State)
		}
		time.Sleep(20 * time.Millisecond)
	}
}
