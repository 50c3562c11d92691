// Package guardian resolves an SOS token into live status for a third
// party who did not activate the session. Strictly read-only: nothing on
// this path can mutate the SOS session.
package guardian

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/saaj376/StreetSafe/internal/client"
)

// StatusAPI is the read path into the SOS status service. *client.Client
// satisfies it.
type StatusAPI interface {
	SOSStatus(ctx context.Context, token string) (client.GuardianSnapshot, error)
}

// Update is one poll outcome. Unavailable marks a failed tick ("tracking
// unavailable"); the loop keeps polling so a transient failure self-heals.
type Update struct {
	Snapshot    client.GuardianSnapshot
	Unavailable bool
	Err         error
}

const (
	defaultPollInterval = 3 * time.Second
	pollTimeout         = 8 * time.Second
)

type Poller struct {
	api      StatusAPI
	token    string
	interval time.Duration
	log      *logrus.Entry

	updates  chan Update
	stop     chan struct{}
	stopOnce sync.Once
	started  bool
	mu       sync.Mutex
}

// NewPoller builds a poller for one token. interval <= 0 uses 3 s.
func NewPoller(api StatusAPI, token string, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Poller{
		api:      api,
		token:    token,
		interval: interval,
		log:      logrus.WithField("component", "guardian"),
		updates:  make(chan Update, 8),
		stop:     make(chan struct{}),
	}
}

// Start launches the poll loop. Safe to call once per poller.
func (p *Poller) Start() {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()
	go p.loop()
}

// Stop tears down the poll timer. Idempotent.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
}

// Updates delivers poll outcomes; slow consumers drop, not block.
func (p *Poller) Updates() <-chan Update {
	return p.updates
}

func (p *Poller) loop() {
	p.poll()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.poll()
		}
	}
}

func (p *Poller) poll() {
	ctx, cancel := context.WithTimeout(context.Background(), pollTimeout)
	snap, err := p.api.SOSStatus(ctx, p.token)
	cancel()

	var update Update
	if err != nil {
		p.log.WithError(err).Warn("status poll failed")
		update = Update{Unavailable: true, Err: err}
	} else {
		update = Update{Snapshot: snap}
	}

	select {
	case p.updates <- update:
	default:
	}
}
