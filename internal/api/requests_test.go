// Itinerarium - Location History Ingest and Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itinerarium

package api

import (
	"strings"
	"testing"
)

func TestUploadBeginRequestValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		req     UploadBeginRequest
		wantErr bool
	}{
		{"valid owner", UploadBeginRequest{Owner: "alice"}, false},
		{"valid with filename", UploadBeginRequest{Owner: "alice", Filename: "timeline.json"}, false},
		{"missing owner", UploadBeginRequest{}, true},
		{"owner with space", UploadBeginRequest{Owner: "bad owner"}, true},
		{"owner with newline", UploadBeginRequest{Owner: "bad\nowner"}, true},
		{"owner at byte limit", UploadBeginRequest{Owner: strings.Repeat("a", 128)}, false},
		{"owner over byte limit", UploadBeginRequest{Owner: strings.Repeat("a", 129)}, true},
		{"filename over limit", UploadBeginRequest{Owner: "alice", Filename: strings.Repeat("x", 513)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateRequest(&tt.req)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateRequest() error = %+v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMapPointsRequestValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		req     MapPointsRequest
		wantErr bool
	}{
		{"defaults", MapPointsRequest{}, false},
		{"all owners with zoom", MapPointsRequest{Zoom: 12}, false},
		{"scoped owner", MapPointsRequest{Owner: "alice", Zoom: 22, Limit: 500}, false},
		{"zoom below range", MapPointsRequest{Zoom: -1}, true},
		{"zoom above range", MapPointsRequest{Zoom: 23}, true},
		{"negative limit", MapPointsRequest{Limit: -1}, true},
		{"limit above ceiling", MapPointsRequest{Limit: 1000001}, true},
		{"owner with control byte", MapPointsRequest{Owner: "a\tb"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateRequest(&tt.req)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateRequest() error = %+v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestExportGeoJSONRequestValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		req     ExportGeoJSONRequest
		wantErr bool
	}{
		{"defaults", ExportGeoJSONRequest{}, false},
		{"window and rate", ExportGeoJSONRequest{Owner: "alice", Days: 30, SampleRate: 0.5}, false},
		{"full rate", ExportGeoJSONRequest{SampleRate: 1.0}, false},
		{"days above range", ExportGeoJSONRequest{Days: 3651}, true},
		{"negative days", ExportGeoJSONRequest{Days: -1}, true},
		{"rate below range", ExportGeoJSONRequest{SampleRate: 0.05}, true},
		{"rate above range", ExportGeoJSONRequest{SampleRate: 1.5}, true},
		{"negative limit", ExportGeoJSONRequest{Limit: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateRequest(&tt.req)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateRequest() error = %+v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOwnerPathRequestValidation(t *testing.T) {
	t.Parallel()

	if err := validateRequest(&OwnerPathRequest{Owner: "alice"}); err != nil {
		t.Errorf("Valid owner rejected: %+v", err)
	}
	if err := validateRequest(&OwnerPathRequest{}); err == nil {
		t.Error("Empty owner should be rejected")
	}
	if err := validateRequest(&OwnerPathRequest{Owner: "a b"}); err == nil {
		t.Error("Owner with whitespace should be rejected")
	}
}
