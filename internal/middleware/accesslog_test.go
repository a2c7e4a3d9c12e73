// Follow - Live Location Tracking and Trail Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/follow

package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/follow/internal/logging"
)

// withCapturedLog swaps the global logger for the duration of the test.
// Tests using it must not run in parallel.
func withCapturedLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := logging.Logger()
	logging.SetLogger(logging.NewTestLogger(&buf))
	t.Cleanup(func() { logging.SetLogger(prev) })
	return &buf
}

func TestAccessLog_ServerError(t *testing.T) {
	buf := withCapturedLog(t)

	handler := RequestID(AccessLog(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/devices/abc/segments", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	for _, want := range []string{`"level":"error"`, `"status":502`, `"request_id":"req-1"`, `"message":"http request"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %s: %s", want, out)
		}
	}
}

func TestAccessLog_SlowRequest(t *testing.T) {
	buf := withCapturedLog(t)

	handler := AccessLog(time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(5 * time.Millisecond)
		_, _ = w.Write([]byte("ok"))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/slow", nil))

	out := buf.String()
	if !strings.Contains(out, `"level":"warn"`) || !strings.Contains(out, `"bytes":2`) {
		t.Errorf("expected slow warning, got: %s", out)
	}
}

func TestAccessLog_DefaultThreshold(t *testing.T) {
	buf := withCapturedLog(t)

	handler := AccessLog(0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fast", nil))

	if strings.Contains(buf.String(), `"level":"warn"`) {
		t.Errorf("fast request logged as slow: %s", buf.String())
	}
}
