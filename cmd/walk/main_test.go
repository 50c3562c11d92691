package main

import (
	"testing"
	"time"

	"github.com/saaj376/StreetSafe/internal/geo"
)

func TestLoadWalkConfigDefaults(t *testing.T) {
	cfg := loadWalkConfig()
	if cfg.APIBaseURL == "" {
		t.Fatalf("expected default base url")
	}
	if cfg.MonitorInterval <= 0 || cfg.SOSInterval <= 0 {
		t.Fatalf("expected positive cadences, got %+v", cfg)
	}
}

func TestScriptedWalkInterpolates(t *testing.T) {
	start := geo.Coordinate{Lat: 13.05, Lng: 80.25}
	end := geo.Coordinate{Lat: 13.07, Lng: 80.26}
	script := scriptedWalk(start, end, 10, time.Millisecond)

	if len(script.Fixes) != 11 {
		t.Fatalf("expected 11 fixes, got %d", len(script.Fixes))
	}
	if script.Fixes[0].Coord != start {
		t.Fatalf("walk must start at the origin")
	}
	if script.Fixes[10].Coord != end {
		t.Fatalf("walk must end at the destination")
	}
	mid := script.Fixes[5].Coord
	if mid.Lat <= start.Lat || mid.Lat >= end.Lat {
		t.Fatalf("midpoint must sit between the endpoints, got %+v", mid)
	}
}
