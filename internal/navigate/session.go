// Package navigate owns the navigation session state machine: route
// acquisition, the periodic on-route safety monitor, rerouting and the
// journey lifecycle from idle to arrival or cancellation.
package navigate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/saaj376/StreetSafe/internal/client"
	"github.com/saaj376/StreetSafe/internal/fault"
	"github.com/saaj376/StreetSafe/internal/geo"
)

// ErrSuperseded marks an async completion that arrived after the session
// moved on; the caller discards the result.
var ErrSuperseded = errors.New("request superseded")

const (
	defaultMonitorInterval = 10 * time.Second
	checkTimeout           = 8 * time.Second
)

type Session struct {
	api      Router
	loc      Locator
	voice    Narrator
	log      *logrus.Entry
	interval time.Duration

	mu         sync.Mutex
	state      State
	start, end geo.Coordinate
	mode       client.RouteMode
	candidates []client.RouteCandidate
	active     *client.RouteCandidate
	lastAlert  *client.AlertEvent
	gen        uint64
	checking   bool
	stopMon    chan struct{}
	alerts     chan client.AlertEvent
}

// NewSession builds an idle session. interval <= 0 uses the 10 s default.
func NewSession(api Router, loc Locator, voice Narrator, interval time.Duration) *Session {
	if interval <= 0 {
		interval = defaultMonitorInterval
	}
	return &Session{
		api:      api,
		loc:      loc,
		voice:    voice,
		log:      logrus.WithField("component", "navigate"),
		interval: interval,
		state:    StateIdle,
		alerts:   make(chan client.AlertEvent, 8),
	}
}

// Start runs Idle -> Routing -> Navigating -> Monitoring. The connectivity
// probe gates the transition: a known-bad backend rejects the request
// without attempting the route call.
func (s *Session) Start(ctx context.Context, start, end geo.Coordinate, mode client.RouteMode) error {
	if err := geo.ValidateEndpoints(start, end); err != nil {
		return fault.Wrap(fault.Validation, "invalid endpoints", err)
	}

	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return fault.New(fault.Validation, "session already started")
	}
	s.state = StateRouting
	s.start, s.end, s.mode = start, end, mode
	gen := s.gen
	s.mu.Unlock()

	if err := s.api.Health(ctx); err != nil {
		s.revertToIdle(gen)
		return err
	}

	candidates, err := s.api.Route(ctx, start, end, mode)

	s.mu.Lock()
	if s.gen != gen || s.state != StateRouting {
		s.mu.Unlock()
		return ErrSuperseded
	}
	if err != nil {
		s.state = StateIdle
		s.mu.Unlock()
		return err
	}

	s.candidates = candidates
	s.active = pickCandidate(mode, candidates)
	s.lastAlert = nil
	s.state = StateNavigating
	intro := introAnnouncement(s.active)

	// Monitoring begins as soon as a route is being followed.
	s.state = StateMonitoring
	stop := make(chan struct{})
	s.stopMon = stop
	s.mu.Unlock()

	s.voice.Announce(intro)
	go s.monitor(gen, stop)

	s.log.WithFields(logrus.Fields{
		"mode":       mode,
		"candidates": len(candidates),
		"distance_m": s.active.DistanceM,
	}).Info("navigation started")
	return nil
}

func (s *Session) revertToIdle(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen == gen && s.state == StateRouting {
		s.state = StateIdle
	}
}

// pickCandidate chooses the route to follow: the safest when available,
// otherwise the first returned.
func pickCandidate(mode client.RouteMode, candidates []client.RouteCandidate) *client.RouteCandidate {
	want := string(client.ModeSafest)
	if mode == client.ModeFastest {
		want = string(client.ModeFastest)
	}
	for i := range candidates {
		if candidates[i].Kind == want {
			return &candidates[i]
		}
	}
	return &candidates[0]
}

func introAnnouncement(route *client.RouteCandidate) string {
	heading := geo.Octant(geo.BearingDeg(route.Coordinates[0], route.Coordinates[1]))
	return fmt.Sprintf("Route found: %.1f kilometers, about %.0f minutes. Head %s.",
		route.DistanceM/1000, route.EstimatedTimeMins, heading)
}

func (s *Session) monitor(gen uint64, stop <-chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.tick(gen)
		}
	}
}

// tick issues at most one safety check. A tick that fires while a check is
// still outstanding is skipped, not queued; a tick without both a fix and a
// route is a no-op.
func (s *Session) tick(gen uint64) {
	s.mu.Lock()
	if s.gen != gen || s.state != StateMonitoring || s.checking {
		s.mu.Unlock()
		return
	}
	cur, ok := s.loc.Latest()
	if !ok || s.active == nil || len(s.active.Coordinates) == 0 {
		s.mu.Unlock()
		return
	}
	s.checking = true
	planned := s.active.Coordinates
	mode := s.mode
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	ev, err := s.api.SafetyCheck(ctx, cur, planned, mode)
	cancel()

	s.mu.Lock()
	s.checking = false
	if s.gen != gen || s.state != StateMonitoring {
		s.mu.Unlock()
		return
	}
	if err != nil {
		s.mu.Unlock()
		// Transient failures retry on the next tick.
		s.log.WithError(err).Warn("safety check failed")
		return
	}
	if ev.None() {
		s.mu.Unlock()
		return
	}
	evCopy := ev
	s.lastAlert = &evCopy
	s.mu.Unlock()

	select {
	case s.alerts <- ev:
	default:
	}
	s.log.WithFields(logrus.Fields{
		"alert_type":      ev.Type,
		"action_required": ev.ActionRequired,
	}).Warn("safety alert")
}

// Reroute requests a fresh route from the current position to the original
// destination. On success the active route is replaced and the alert
// cleared; on failure both remain and monitoring continues.
func (s *Session) Reroute(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateMonitoring {
		s.mu.Unlock()
		return fault.New(fault.Validation, "reroute only valid while monitoring")
	}
	cur, ok := s.loc.Latest()
	if !ok {
		s.mu.Unlock()
		return fault.ErrLocationUnavailable
	}
	s.state = StateRerouting
	gen := s.gen
	planned := s.active.Coordinates
	mode := s.mode
	s.mu.Unlock()

	cand, err := s.api.Reroute(ctx, cur, planned, mode)

	s.mu.Lock()
	if s.gen != gen || s.state != StateRerouting {
		s.mu.Unlock()
		return ErrSuperseded
	}
	s.state = StateMonitoring
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.active = &cand
	s.lastAlert = nil
	s.mu.Unlock()

	s.voice.Announce("Rerouted. Follow the updated path.")
	s.log.WithField("distance_m", cand.DistanceM).Info("route replaced")
	return nil
}

// Arrive ends the journey and returns the traversed segments for rating.
func (s *Session) Arrive() ([]client.SegmentRef, error) {
	s.mu.Lock()
	if s.state != StateMonitoring {
		s.mu.Unlock()
		return nil, fault.New(fault.Validation, "end journey only valid while monitoring")
	}
	s.gen++
	s.stopMonitorLocked()
	s.state = StateArrived
	segments := make([]client.SegmentRef, len(s.active.Segments))
	copy(segments, s.active.Segments)
	s.mu.Unlock()

	s.voice.Announce("You have arrived. Journey complete.")
	s.log.WithField("segments", len(segments)).Info("journey complete")
	return segments, nil
}

// Cancel tears the session down from any non-terminal state: timers stop,
// in-flight correlation is invalidated and the voice queue is cleared.
func (s *Session) Cancel() {
	s.mu.Lock()
	if s.state.Terminal() {
		s.mu.Unlock()
		return
	}
	s.gen++
	s.stopMonitorLocked()
	s.state = StateCancelled
	s.mu.Unlock()

	s.voice.Clear()
	s.log.Info("navigation cancelled")
}

func (s *Session) stopMonitorLocked() {
	if s.stopMon != nil {
		close(s.stopMon)
		s.stopMon = nil
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastAlert returns the most recent stored alert, if any.
func (s *Session) LastAlert() (client.AlertEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastAlert == nil {
		return client.AlertEvent{}, false
	}
	return *s.lastAlert, true
}

// ActiveRoute returns the route currently being followed.
func (s *Session) ActiveRoute() (client.RouteCandidate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return client.RouteCandidate{}, false
	}
	return *s.active, true
}

// Candidates returns every candidate from the last acquisition, so both
// the fastest and safest options can be rendered distinguishably.
func (s *Session) Candidates() []client.RouteCandidate {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]client.RouteCandidate, len(s.candidates))
	copy(out, s.candidates)
	return out
}

// Alerts delivers surfaced safety alerts; slow consumers drop, not block.
func (s *Session) Alerts() <-chan client.AlertEvent {
	return s.alerts
}
