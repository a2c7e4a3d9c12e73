// Follow - Live Location Tracking and Trail Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/follow

package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/follow/internal/models"
)

func validReport() models.Report {
	return models.Report{
		ID:        "0f8fad5b-d9cb-469f-a165-70867728950e",
		Timestamp: time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC),
		Latitude:  47.6,
		Longitude: -122.3,
		Speed:     4,
		Bearing:   180,
		Accuracy:  5,
	}
}

func TestGetValidator_Singleton(t *testing.T) {
	t.Parallel()

	if GetValidator() != GetValidator() {
		t.Error("GetValidator() should return the same instance")
	}
}

func TestValidateStruct_Report(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		mutate    func(r *models.Report)
		wantField string
		wantTag   string
	}{
		{"valid", func(*models.Report) {}, "", ""},
		{"bearing at 360", func(r *models.Report) { r.Bearing = 360 }, "", ""},
		{"latitude too high", func(r *models.Report) { r.Latitude = 91 }, "latitude", "latitude"},
		{"longitude too low", func(r *models.Report) { r.Longitude = -181 }, "longitude", "longitude"},
		{"negative speed", func(r *models.Report) { r.Speed = -0.1 }, "speed", "gte"},
		{"bearing past 360", func(r *models.Report) { r.Bearing = 361 }, "bearing", "lte"},
		{"negative accuracy", func(r *models.Report) { r.Accuracy = -1 }, "accuracy", "gte"},
		{"missing id", func(r *models.Report) { r.ID = "" }, "id", "required"},
		{"id not a uuid", func(r *models.Report) { r.ID = "report-1" }, "id", "uuid"},
		{"zero timestamp", func(r *models.Report) { r.Timestamp = time.Time{} }, "timestamp", "required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := validReport()
			tt.mutate(&r)
			verr := ValidateStruct(&r)
			if tt.wantField == "" {
				if verr != nil {
					t.Fatalf("unexpected validation error: %v", verr)
				}
				return
			}
			if verr == nil {
				t.Fatal("expected validation error")
			}
			errs := verr.Errors()
			if len(errs) != 1 {
				t.Fatalf("got %d errors, want 1: %v", len(errs), verr)
			}
			if errs[0].Field != tt.wantField || errs[0].Tag != tt.wantTag {
				t.Errorf("error field/tag = %s/%s, want %s/%s", errs[0].Field, errs[0].Tag, tt.wantField, tt.wantTag)
			}
		})
	}
}

func TestValidateStruct_SegmentsRequest(t *testing.T) {
	t.Parallel()

	req := models.SegmentsRequest{
		Mode: "velocity",
		Samples: []models.SampleRequest{
			{ID: "a", Timestamp: time.Unix(1, 0), Latitude: 100},
		},
	}
	verr := ValidateStruct(&req)
	if verr == nil {
		t.Fatal("expected validation errors")
	}
	if len(verr.Errors()) != 2 {
		t.Fatalf("got %d errors, want 2: %v", len(verr.Errors()), verr)
	}

	apiErr := verr.ToAPIError()
	if apiErr.Code != CodeValidation {
		t.Errorf("Code = %s", apiErr.Code)
	}
	if !strings.Contains(apiErr.Message, "mode must be one of") || !strings.Contains(apiErr.Message, "latitude") {
		t.Errorf("Message = %q", apiErr.Message)
	}
	if _, ok := apiErr.Details["fields"]; !ok {
		t.Error("multi-error details should list fields")
	}
}

func TestToAPIError_Single(t *testing.T) {
	t.Parallel()

	req := models.HorizonRequest{PruneThresholdMS: 0}
	verr := ValidateStruct(&req)
	if verr == nil {
		t.Fatal("expected validation error")
	}
	apiErr := verr.ToAPIError()
	if apiErr.Message != "prune_threshold_ms is required" {
		t.Errorf("Message = %q", apiErr.Message)
	}
	if apiErr.Details["field"] != "prune_threshold_ms" {
		t.Errorf("Details = %v", apiErr.Details)
	}
}

func TestValidateStruct_HorizonCap(t *testing.T) {
	t.Parallel()

	if verr := ValidateStruct(&models.HorizonRequest{PruneThresholdMS: models.MaxPruneThresholdMS}); verr != nil {
		t.Errorf("one-year horizon rejected: %v", verr)
	}
	if verr := ValidateStruct(&models.SegmentsRequest{Mode: "time", Samples: []models.SampleRequest{}, PruneThresholdMS: models.MaxPruneThresholdMS}); verr != nil {
		t.Errorf("one-year segments horizon rejected: %v", verr)
	}

	verr := ValidateStruct(&models.HorizonRequest{PruneThresholdMS: models.MaxPruneThresholdMS + 1})
	if verr == nil {
		t.Fatal("expected an error past one year")
	}
	fe := verr.Errors()[0]
	if fe.Tag != "lte" || fe.Field != "prune_threshold_ms" {
		t.Errorf("error = %+v", fe)
	}
	if msg := verr.ToAPIError().Message; msg != "prune_threshold_ms must be 31536000000 or less" {
		t.Errorf("Message = %q", msg)
	}

	if ValidateStruct(&models.SegmentsRequest{Mode: "time", Samples: []models.SampleRequest{}, PruneThresholdMS: 1e13}) == nil {
		t.Error("segments request with a 1e13 ms horizon should fail")
	}
}

func TestValidateDeviceKey(t *testing.T) {
	t.Parallel()

	for _, key := range []string{"abc", "A1_b-2", strings.Repeat("k", 128)} {
		if verr := ValidateDeviceKey(key); verr != nil {
			t.Errorf("ValidateDeviceKey(%q) = %v, want nil", key, verr)
		}
	}
	for _, key := range []string{"", "has space", "../etc", strings.Repeat("k", 129)} {
		verr := ValidateDeviceKey(key)
		if verr == nil {
			t.Errorf("ValidateDeviceKey(%q) = nil, want error", key)
			continue
		}
		if verr.Errors()[0].Field != "key" {
			t.Errorf("field = %q, want key", verr.Errors()[0].Field)
		}
	}
}
