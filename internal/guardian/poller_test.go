package guardian

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/saaj376/StreetSafe/internal/client"
	"github.com/saaj376/StreetSafe/internal/fault"
)

type scriptedStatus struct {
	mu      sync.Mutex
	results []func() (client.GuardianSnapshot, error)
	calls   int
}

func (s *scriptedStatus) SOSStatus(_ context.Context, _ string) (client.GuardianSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.calls
	s.calls++
	if idx >= len(s.results) {
		idx = len(s.results) - 1
	}
	return s.results[idx]()
}

func live(lat, lng float64) func() (client.GuardianSnapshot, error) {
	return func() (client.GuardianSnapshot, error) {
		return client.GuardianSnapshot{Status: client.StatusLive, Lat: lat, Lng: lng}, nil
	}
}

func failing() (client.GuardianSnapshot, error) {
	return client.GuardianSnapshot{}, fault.New(fault.Connectivity, "backend unreachable")
}

func TestPollerDeliversSnapshots(t *testing.T) {
	api := &scriptedStatus{results: []func() (client.GuardianSnapshot, error){live(13.05, 80.25)}}
	p := NewPoller(api, "tok-1", 5*time.Millisecond)
	p.Start()
	defer p.Stop()

	select {
	case update := <-p.Updates():
		if update.Unavailable {
			t.Fatalf("unexpected unavailable update: %v", update.Err)
		}
		if update.Snapshot.Status != client.StatusLive || update.Snapshot.Lat != 13.05 {
			t.Fatalf("unexpected snapshot %+v", update.Snapshot)
		}
	case <-time.After(time.Second):
		t.Fatalf("no update delivered")
	}
}

func TestPollerSelfHeals(t *testing.T) {
	api := &scriptedStatus{results: []func() (client.GuardianSnapshot, error){
		failing,
		live(13.06, 80.26),
	}}
	p := NewPoller(api, "tok-1", 5*time.Millisecond)
	p.Start()
	defer p.Stop()

	sawUnavailable := false
	deadline := time.After(2 * time.Second)
	for {
		select {
		case update := <-p.Updates():
			if update.Unavailable {
				sawUnavailable = true
				continue
			}
			if !sawUnavailable {
				t.Fatalf("expected the failed tick to surface first")
			}
			if update.Snapshot.Status != client.StatusLive {
				t.Fatalf("unexpected snapshot %+v", update.Snapshot)
			}
			return
		case <-deadline:
			t.Fatalf("poller never recovered")
		}
	}
}

func TestPollerStopsCleanly(t *testing.T) {
	api := &scriptedStatus{results: []func() (client.GuardianSnapshot, error){live(13.05, 80.25)}}
	p := NewPoller(api, "tok-1", 5*time.Millisecond)
	p.Start()

	select {
	case <-p.Updates():
	case <-time.After(time.Second):
		t.Fatalf("no update before stop")
	}
	p.Stop()
	p.Stop() // idempotent

	api.mu.Lock()
	calls := api.calls
	api.mu.Unlock()
	time.Sleep(40 * time.Millisecond)
	api.mu.Lock()
	after := api.calls
	api.mu.Unlock()
	// One in-flight poll may complete after Stop; no steady ticking remains.
	if after > calls+1 {
		t.Fatalf("poller kept ticking after stop: %d -> %d", calls, after)
	}
}
