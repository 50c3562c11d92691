package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/saaj376/StreetSafe/internal/fault"
	"github.com/saaj376/StreetSafe/internal/geo"
)

var (
	testStart = geo.Coordinate{Lat: 13.0500, Lng: 80.2500}
	testEnd   = geo.Coordinate{Lat: 13.0700, Lng: 80.2600}
)

func routeBody(coords int) map[string]any {
	cs := make([]geo.Coordinate, 0, coords)
	for i := 0; i < coords; i++ {
		cs = append(cs, geo.Coordinate{Lat: 13.05 + float64(i)*0.001, Lng: 80.25})
	}
	return map[string]any{
		"coordinates":         cs,
		"segments":            []SegmentRef{{SegmentID: 1, LengthM: 120, Score: 0.7}},
		"total_length":        2300.0,
		"avg_safety_score":    0.72,
		"estimated_time_mins": 27.6,
	}
}

func TestRouteBothCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/route" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["route_type"] != "both" {
			t.Fatalf("unexpected route_type %v", req["route_type"])
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"fastest": routeBody(4),
			"safest":  routeBody(6),
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	candidates, err := c.Route(context.Background(), testStart, testEnd, ModeBoth)
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}
	if candidates[0].Kind != "fastest" || candidates[1].Kind != "safest" {
		t.Fatalf("unexpected kinds: %v %v", candidates[0].Kind, candidates[1].Kind)
	}
	if candidates[0].DistanceM <= 0 || len(candidates[0].Coordinates) < 2 {
		t.Fatalf("degenerate candidate: %+v", candidates[0])
	}
}

func TestRouteSingleWaypointDiscarded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"fastest": routeBody(1),
			"safest":  routeBody(3),
		})
	}))
	defer srv.Close()

	candidates, err := New(srv.URL, "").Route(context.Background(), testStart, testEnd, ModeBoth)
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if len(candidates) != 1 || candidates[0].Kind != "safest" {
		t.Fatalf("expected only the safest candidate, got %+v", candidates)
	}
}

func TestRouteNoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{})
	}))
	defer srv.Close()

	_, err := New(srv.URL, "").Route(context.Background(), testStart, testEnd, ModeSafest)
	if !errors.Is(err, fault.ErrNoRouteFound) {
		t.Fatalf("expected no route found, got %v", err)
	}
}

func TestRouteInvalidEndpointsSkipsNetwork(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	if _, err := c.Route(context.Background(), testStart, testStart, ModeBoth); !fault.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := c.Route(context.Background(), testStart, testEnd, RouteMode("stealth")); !fault.IsValidation(err) {
		t.Fatalf("expected validation error for bad mode, got %v", err)
	}
	if calls.Load() != 0 {
		t.Fatalf("validation failures must not hit the network")
	}
}

func TestRouteConnectivity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	_, err := New(srv.URL, "").Route(context.Background(), testStart, testEnd, ModeBoth)
	if !fault.IsConnectivity(err) {
		t.Fatalf("expected connectivity error, got %v", err)
	}
}

func TestSafetyCheckAlert(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/safety/check" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(AlertEvent{
			Type:           AlertConstruction,
			Message:        "construction ahead",
			ActionRequired: true,
			Details:        map[string]any{"distance_m": 120.0},
		})
	}))
	defer srv.Close()

	ev, err := New(srv.URL, "").SafetyCheck(context.Background(), testStart, []geo.Coordinate{testStart, testEnd}, ModeSafest)
	if err != nil {
		t.Fatalf("safety check: %v", err)
	}
	if ev.None() || !ev.Known() || !ev.ActionRequired {
		t.Fatalf("unexpected alert: %+v", ev)
	}
}

func TestUnknownAlertDegrades(t *testing.T) {
	ev := AlertEvent{Type: "quantum_anomaly", Details: map[string]any{"raw": 1}}
	if ev.None() || ev.Known() {
		t.Fatalf("unknown alert should be surfaced as unknown, not dropped")
	}
}

func TestSOSLifecycle(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/sos/activate", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer user-token" {
			t.Fatalf("missing bearer header")
		}
		_ = json.NewEncoder(w).Encode(SOSGrant{Token: "tok-1", GuardianURL: "http://x/guardian/tok-1"})
	})
	mux.HandleFunc("/api/sos/update", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/guardian/tok-1", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(GuardianSnapshot{Status: StatusLive, Lat: 13.05, Lng: 80.25})
	})
	mux.HandleFunc("/api/sos/deactivate", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(srv.URL, "user-token")
	grant, err := c.ActivateSOS(context.Background(), testStart)
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if grant.Token != "tok-1" {
		t.Fatalf("unexpected token %q", grant.Token)
	}
	if err := c.UpdateSOS(context.Background(), grant.Token, testStart, false); err != nil {
		t.Fatalf("update: %v", err)
	}
	snap, err := c.SOSStatus(context.Background(), grant.Token)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if snap.Status != StatusLive || snap.Location() != testStart {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if err := c.DeactivateSOS(context.Background(), grant.Token); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
}

func TestSOSStatusTokenNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := New(srv.URL, "").SOSStatus(context.Background(), "missing")
	if !errors.Is(err, fault.ErrTokenNotFound) {
		t.Fatalf("expected token not found, got %v", err)
	}
}

func TestSubmitFeedbackRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rating must be between 1 and 5", http.StatusBadRequest)
	}))
	defer srv.Close()

	err := New(srv.URL, "").SubmitFeedback(context.Background(), 7, 9, nil, "walker")
	if !fault.IsRemoteRejection(err) {
		t.Fatalf("expected remote rejection, got %v", err)
	}
}

func TestHeatmap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/heatmap" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"type":"FeatureCollection","features":[]}`))
	}))
	defer srv.Close()

	raw, err := New(srv.URL, "").Heatmap(context.Background())
	if err != nil {
		t.Fatalf("heatmap: %v", err)
	}
	var fc struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &fc); err != nil || fc.Type != "FeatureCollection" {
		t.Fatalf("unexpected heatmap payload: %s", raw)
	}
}
