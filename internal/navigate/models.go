package navigate

import (
	"context"

	"github.com/saaj376/StreetSafe/internal/client"
	"github.com/saaj376/StreetSafe/internal/geo"
)

// State is the navigation session lifecycle position.
type State string

const (
	StateIdle       State = "idle"
	StateRouting    State = "routing"
	StateNavigating State = "navigating"
	StateMonitoring State = "monitoring"
	StateRerouting  State = "rerouting"
	StateArrived    State = "arrived"
	StateCancelled  State = "cancelled"
)

// Terminal reports whether the session can make no further transitions.
func (s State) Terminal() bool {
	return s == StateArrived || s == StateCancelled
}

// Router is the slice of the backend the navigation session depends on.
// *client.Client satisfies it.
type Router interface {
	Health(ctx context.Context) error
	Route(ctx context.Context, start, end geo.Coordinate, mode client.RouteMode) ([]client.RouteCandidate, error)
	SafetyCheck(ctx context.Context, cur geo.Coordinate, planned []geo.Coordinate, mode client.RouteMode) (client.AlertEvent, error)
	Reroute(ctx context.Context, cur geo.Coordinate, planned []geo.Coordinate, mode client.RouteMode) (client.RouteCandidate, error)
}

// Locator samples the latest cached geoposition fix.
type Locator interface {
	Latest() (geo.Coordinate, bool)
}

// Narrator receives the session's voice side effects.
type Narrator interface {
	Announce(text string)
	Clear()
}
