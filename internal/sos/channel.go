// Package sos owns the emergency channel: one-action activation, the
// out-of-band distress message, best-effort live-location broadcast and
// terminal deactivation. It runs with or without an active navigation
// session and its broadcast timer is never shared with the monitor's.
package sos

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/saaj376/StreetSafe/internal/client"
	"github.com/saaj376/StreetSafe/internal/fault"
	"github.com/saaj376/StreetSafe/internal/geo"
)

type State string

const (
	StateInactive     State = "inactive"
	StateActive       State = "active"
	StateBroadcasting State = "broadcasting"
	StateDeactivated  State = "deactivated"
)

// API is the slice of the backend the channel depends on. *client.Client
// satisfies it. A nil API runs the client-side token variant: tokens are
// minted locally and no guardian URL is advertised.
type API interface {
	ActivateSOS(ctx context.Context, cur geo.Coordinate) (client.SOSGrant, error)
	UpdateSOS(ctx context.Context, token string, cur geo.Coordinate, stationary bool) error
	DeactivateSOS(ctx context.Context, token string) error
}

// Messenger delivers the one-shot out-of-band distress message.
type Messenger interface {
	SendDistress(ctx context.Context, cur geo.Coordinate, guardianURL string) error
}

// Locator samples the latest cached geoposition fix.
type Locator interface {
	Latest() (geo.Coordinate, bool)
}

const (
	defaultBroadcastInterval = 5 * time.Second
	pushTimeout              = 8 * time.Second

	// Two consecutive fixes within this distance mark the user stationary.
	stationaryThresholdM = 15

	tapWindow  = 2 * time.Second
	tapsToFire = 3
)

type Channel struct {
	api       API
	messenger Messenger
	loc       Locator
	log       *logrus.Entry
	interval  time.Duration

	mu          sync.Mutex
	state       State
	token       string
	guardianURL string
	activatedAt time.Time
	lastFix     geo.Coordinate
	hasFix      bool
	stationary  bool
	stopCast    chan struct{}
	taps        []time.Time
}

// NewChannel builds an inactive channel. interval <= 0 uses the 5 s default.
func NewChannel(api API, messenger Messenger, loc Locator, interval time.Duration) *Channel {
	if interval <= 0 {
		interval = defaultBroadcastInterval
	}
	return &Channel{
		api:       api,
		messenger: messenger,
		loc:       loc,
		log:       logrus.WithField("component", "sos"),
		interval:  interval,
		state:     StateInactive,
	}
}

// Activate obtains a fresh token, fires the distress message once and
// starts the broadcast timer. Requires a known current location.
func (c *Channel) Activate(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.state == StateActive || c.state == StateBroadcasting {
		c.mu.Unlock()
		return "", fault.New(fault.Validation, "sos already active")
	}
	cur, ok := c.loc.Latest()
	if !ok {
		c.mu.Unlock()
		return "", fault.ErrLocationUnavailable
	}
	c.mu.Unlock()

	var grant client.SOSGrant
	if c.api != nil {
		var err error
		grant, err = c.api.ActivateSOS(ctx, cur)
		if err != nil {
			return "", err
		}
	} else {
		grant = client.SOSGrant{Token: uuid.NewString()}
	}

	c.mu.Lock()
	if c.state == StateActive || c.state == StateBroadcasting {
		c.mu.Unlock()
		// A concurrent activation won the race while the lock was
		// released for the network call; release the extra grant so the
		// server session does not linger.
		if c.api != nil {
			go func() {
				rctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
				defer cancel()
				if err := c.api.DeactivateSOS(rctx, grant.Token); err != nil {
					c.log.WithError(err).Warn("surplus grant release failed")
				}
			}()
		}
		return "", fault.New(fault.Validation, "sos already active")
	}
	c.token = grant.Token
	c.guardianURL = grant.GuardianURL
	c.activatedAt = time.Now()
	c.lastFix = cur
	c.hasFix = true
	c.stationary = false
	stop := make(chan struct{})
	c.stopCast = stop
	c.state = StateBroadcasting
	c.mu.Unlock()

	// Fire-and-once; delivery is not polled for confirmation.
	if c.messenger != nil {
		if err := c.messenger.SendDistress(ctx, cur, grant.GuardianURL); err != nil {
			c.log.WithError(err).Warn("distress message failed")
		}
	}

	go c.broadcast(grant.Token, stop)

	c.log.WithField("token", grant.Token).Warn("sos activated")
	return grant.Token, nil
}

// broadcast re-samples the position on every tick and pushes a best-effort
// location update tagged with the session token. Failed pushes never stop
// the timer.
func (c *Channel) broadcast(token string, stop <-chan struct{}) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.push(token)
		}
	}
}

func (c *Channel) push(token string) {
	cur, ok := c.loc.Latest()
	if !ok {
		return
	}

	c.mu.Lock()
	if c.state != StateBroadcasting || c.token != token {
		c.mu.Unlock()
		return
	}
	stationary := c.hasFix && geo.DistanceM(c.lastFix, cur) <= stationaryThresholdM
	c.lastFix = cur
	c.hasFix = true
	c.stationary = stationary
	c.mu.Unlock()

	if c.api == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	err := c.api.UpdateSOS(ctx, token, cur, stationary)
	cancel()
	if err != nil {
		c.log.WithError(err).Warn("location push failed")
	}
}

// Deactivate stops the broadcast and invalidates the token server-side.
// The broadcast timer dies immediately, but the token is only cleared
// once the server acknowledges, so a failed invalidation can be retried.
// On success the transition is terminal: reactivating afterwards always
// mints a brand-new token.
func (c *Channel) Deactivate(ctx context.Context) error {
	c.mu.Lock()
	if c.token == "" {
		c.mu.Unlock()
		return fault.New(fault.Validation, "no active sos session")
	}
	token := c.token
	if c.stopCast != nil {
		close(c.stopCast)
		c.stopCast = nil
	}
	c.state = StateActive
	c.mu.Unlock()

	if c.api != nil {
		if err := c.api.DeactivateSOS(ctx, token); err != nil {
			return err
		}
	}

	c.mu.Lock()
	c.token = ""
	c.guardianURL = ""
	c.state = StateDeactivated
	c.mu.Unlock()

	c.log.WithField("token", token).Info("sos deactivated")
	return nil
}

// Tap records one trigger of the rapid-activation gesture. Three taps
// inside the window activate the channel; the window resets after it
// elapses whether or not activation fired.
func (c *Channel) Tap(ctx context.Context, now time.Time) (bool, error) {
	c.mu.Lock()
	kept := c.taps[:0]
	for _, at := range c.taps {
		if now.Sub(at) <= tapWindow {
			kept = append(kept, at)
		}
	}
	c.taps = append(kept, now)
	fire := len(c.taps) >= tapsToFire
	if fire {
		c.taps = nil
	}
	c.mu.Unlock()

	if !fire {
		return false, nil
	}
	_, err := c.Activate(ctx)
	return true, err
}

func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Channel) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *Channel) GuardianURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.guardianURL
}

func (c *Channel) IsStationary() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stationary
}
