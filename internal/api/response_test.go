// Follow - Live Location Tracking and Trail Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/follow

package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/follow/internal/models"
	"github.com/tomtom215/follow/internal/track"
)

func TestSanitizeLogValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"line\nbreak", `line\x0abreak`},
		{"tab\there", `tab\x09here`},
		{"del\x7f", `del\x7f`},
	}
	for _, tt := range tests {
		if got := sanitizeLogValue(tt.in); got != tt.want {
			t.Errorf("sanitizeLogValue(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestETagMatches(t *testing.T) {
	t.Parallel()

	etag := generateETag([]byte("payload"))
	if !strings.HasPrefix(etag, `"`) || !strings.HasSuffix(etag, `"`) {
		t.Fatalf("etag %s is not quoted", etag)
	}
	if generateETag([]byte("payload")) != etag || generateETag([]byte("other")) == etag {
		t.Error("ETag must depend only on the payload")
	}

	tests := []struct {
		header string
		want   bool
	}{
		{"", false},
		{etag, true},
		{"W/" + etag, true},
		{`"nope", ` + etag, true},
		{"*", true},
		{`"nope"`, false},
	}
	for _, tt := range tests {
		if got := etagMatches(tt.header, etag); got != tt.want {
			t.Errorf("etagMatches(%q) = %v, want %v", tt.header, got, tt.want)
		}
	}
}

func TestRespondJSON_NotModifiedOnlyForGet(t *testing.T) {
	t.Parallel()

	resp := &models.APIResponse{Status: "success", Data: "x", Metadata: models.Metadata{Timestamp: time.Unix(0, 0)}}

	first := httptest.NewRecorder()
	respondJSON(first, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusOK, resp)
	etag := first.Header().Get("ETag")

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("If-None-Match", etag)
	rec := httptest.NewRecorder()
	respondJSON(rec, req, http.StatusOK, resp)
	if rec.Code != http.StatusOK {
		t.Errorf("POST with matching ETag = %d, want 200", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q", rec.Header().Get("Content-Type"))
	}
}

func TestValidateRequest(t *testing.T) {
	t.Parallel()

	if apiErr := validateRequest(&models.HorizonRequest{PruneThresholdMS: 1000}); apiErr != nil {
		t.Errorf("valid request rejected: %+v", apiErr)
	}
	apiErr := validateRequest(&models.HorizonRequest{PruneThresholdMS: -5})
	if apiErr == nil || apiErr.Code != ErrCodeValidation {
		t.Fatalf("apiErr = %+v", apiErr)
	}
	if apiErr.Details["field"] != "prune_threshold_ms" {
		t.Errorf("details = %v", apiErr.Details)
	}
}

func TestSegmentsCacheKey(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 12, 0, 1, 0, time.UTC)
	later := now.Add(ageBucket)

	if segmentsCacheKey("k", track.ModeSpeed, 1, now) != segmentsCacheKey("k", track.ModeSpeed, 1, later) {
		t.Error("speed keys must not depend on the clock")
	}
	if segmentsCacheKey("k", track.ModeAge, 1, now) == segmentsCacheKey("k", track.ModeAge, 1, later) {
		t.Error("time mode keys must roll over with the bucket")
	}
	if segmentsCacheKey("k", track.ModeSpeed, 1, now) == segmentsCacheKey("k", track.ModeSpeed, 2, now) {
		t.Error("keys must change with the store version")
	}
	if !strings.HasPrefix(segmentsCacheKey("k", track.ModeElevation, 1, now), segmentsCachePrefix("k")) {
		t.Error("keys must share the device prefix")
	}
}
