// Package position models the device geoposition boundary. Fixes are
// push-based: a source invokes the callback whenever it has a new fix or an
// error, at whatever rate the device produces them.
package position

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/saaj376/StreetSafe/internal/geo"
)

var (
	ErrPermissionDenied = errors.New("geolocation permission denied")
	ErrUnavailable      = errors.New("geolocation unavailable")
)

// Fix is one geoposition callback payload: either a coordinate or an error.
type Fix struct {
	Coord geo.Coordinate
	At    time.Time
	Err   error
}

// Source pushes fixes until ctx is done.
type Source interface {
	Watch(ctx context.Context, fn func(Fix))
}

// Tracker subscribes to a Source and caches the latest good fix so the
// timer loops can sample it without assuming one fix per tick.
type Tracker struct {
	src Source

	mu     sync.Mutex
	coord  geo.Coordinate
	at     time.Time
	ok     bool
	denied bool
}

func NewTracker(src Source) *Tracker {
	return &Tracker{src: src}
}

// Run consumes the source until ctx is done. Call it from its own goroutine.
func (t *Tracker) Run(ctx context.Context) {
	t.src.Watch(ctx, func(fix Fix) {
		t.mu.Lock()
		defer t.mu.Unlock()
		if fix.Err != nil {
			if errors.Is(fix.Err, ErrPermissionDenied) {
				t.denied = true
				t.ok = false
			}
			return
		}
		t.denied = false
		t.coord = fix.Coord
		t.at = fix.At
		t.ok = true
	})
}

// Latest returns the most recent good fix, if any.
func (t *Tracker) Latest() (geo.Coordinate, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.coord, t.ok
}

// Denied reports whether the last callback was a permission denial.
func (t *Tracker) Denied() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.denied
}

// Static always reports the same coordinate, once.
type Static struct {
	Coord geo.Coordinate
}

func (s Static) Watch(ctx context.Context, fn func(Fix)) {
	fn(Fix{Coord: s.Coord, At: time.Now()})
	<-ctx.Done()
}

// Scripted replays a fixed sequence of fixes at an interval, then holds.
type Scripted struct {
	Fixes    []Fix
	Interval time.Duration
}

func (s Scripted) Watch(ctx context.Context, fn func(Fix)) {
	interval := s.Interval
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}
	for _, fix := range s.Fixes {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if fix.At.IsZero() {
			fix.At = time.Now()
		}
		fn(fix)

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
	<-ctx.Done()
}
