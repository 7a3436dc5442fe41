package main

import (
	"strings"
	"testing"
)

func TestParseRow(t *testing.T) {
	loc, err := parseRow([]string{"Vila Snagov", "44.70", "26.15", "true", `{"an_constructie":1992}`})
	if err != nil {
		t.Fatalf("parseRow failed: %v", err)
	}
	if loc.Name() != "Vila Snagov" {
		t.Errorf("expected name 'Vila Snagov', got %q", loc.Name())
	}
	if !loc.Active() {
		t.Error("expected active location")
	}
	coord, ok := loc.Coordinate()
	if !ok {
		t.Fatal("expected a coordinate")
	}
	if coord.Lat != 44.70 || coord.Lon != 26.15 {
		t.Errorf("unexpected coordinate: %+v", coord)
	}
}

func TestParseRow_NoCoordinate(t *testing.T) {
	loc, err := parseRow([]string{"Apartament Pipera", "", "", "false", "{}"})
	if err != nil {
		t.Fatalf("parseRow failed: %v", err)
	}
	if _, ok := loc.Coordinate(); ok {
		t.Error("expected no coordinate")
	}
	if loc.Active() {
		t.Error("expected inactive location")
	}
}

func TestParseRow_EmptyPayloadDefaults(t *testing.T) {
	loc, err := parseRow([]string{"Casa Veche", "", "", "true", ""})
	if err != nil {
		t.Fatalf("parseRow failed: %v", err)
	}
	if string(loc.Payload()) != "{}" {
		t.Errorf("expected empty payload to default to {}, got %s", loc.Payload())
	}
}

func TestParseRow_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		rec     []string
		wantErr string
	}{
		{"lat without lon", []string{"X", "44.4", "", "true", "{}"}, "incomplete coordinate"},
		{"lon without lat", []string{"X", "", "26.1", "true", "{}"}, "incomplete coordinate"},
		{"bad latitude", []string{"X", "north", "26.1", "true", "{}"}, "invalid latitude"},
		{"bad longitude", []string{"X", "44.4", "east", "true", "{}"}, "invalid longitude"},
		{"bad active flag", []string{"X", "", "", "maybe", "{}"}, "invalid active flag"},
		{"out of range", []string{"X", "95.0", "26.1", "true", "{}"}, "invalid coordinates"},
		{"empty name", []string{"", "", "", "true", "{}"}, "name is required"},
		{"bad payload", []string{"X", "", "", "true", "{not json"}, "valid JSON"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseRow(tt.rec)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
