package client

import (
	"time"

	"github.com/saaj376/StreetSafe/internal/geo"
)

// RouteMode selects which candidate routes the routing service computes.
type RouteMode string

const (
	ModeFastest RouteMode = "fastest"
	ModeSafest  RouteMode = "safest"
	ModeBoth    RouteMode = "both"
)

func (m RouteMode) Valid() bool {
	return m == ModeFastest || m == ModeSafest || m == ModeBoth
}

// SegmentRef identifies one scored unit of road traversed by a route.
type SegmentRef struct {
	SegmentID int64   `json:"segment_id"`
	LengthM   float64 `json:"length"`
	Score     float64 `json:"score"`
}

// RouteCandidate is one scored, routable path labeled by optimization kind.
type RouteCandidate struct {
	Kind              string           `json:"kind"`
	Coordinates       []geo.Coordinate `json:"coordinates"`
	DistanceM         float64          `json:"total_length"`
	EstimatedTimeMins float64          `json:"estimated_time_mins"`
	AvgSafetyScore    float64          `json:"avg_safety_score"`
	Segments          []SegmentRef     `json:"segments"`
}

// Known alert types the monitor understands; anything else degrades to an
// unknown alert that still carries its raw details.
const (
	AlertConstruction = "construction"
	AlertUnsafeArea   = "unsafe_area"
	AlertPoorLighting = "poor_lighting"
	AlertCrowdReport  = "crowd_report"
)

// AlertEvent is one safety-check verdict for the current position against
// the planned route.
type AlertEvent struct {
	Type           string         `json:"alert_type"`
	Message        string         `json:"message"`
	ActionRequired bool           `json:"action_required"`
	Details        map[string]any `json:"details,omitempty"`
}

// None reports the "no new condition" verdict.
func (a AlertEvent) None() bool { return a.Type == "" }

// Known reports whether the alert type is part of the closed set this build
// understands. Unknown alerts are still surfaced with their details.
func (a AlertEvent) Known() bool {
	switch a.Type {
	case AlertConstruction, AlertUnsafeArea, AlertPoorLighting, AlertCrowdReport:
		return true
	}
	return false
}

// SOSGrant is the result of activating an SOS session.
type SOSGrant struct {
	Token       string `json:"token"`
	GuardianURL string `json:"guardian_url"`
}

// GuardianSnapshot is a point-in-time, read-only view of an SOS session.
type GuardianSnapshot struct {
	Status       string    `json:"status"`
	Lat          float64   `json:"lat"`
	Lng          float64   `json:"lng"`
	IsStationary bool      `json:"is_stationary"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (s GuardianSnapshot) Location() geo.Coordinate {
	return geo.Coordinate{Lat: s.Lat, Lng: s.Lng}
}

const (
	StatusLive  = "live"
	StatusEnded = "ended"
)
