// Package voice serializes navigation narration into a single spoken
// queue. Announcements never overlap and are spoken in submission order; a
// cleared queue also interrupts whatever is being spoken.
package voice

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Speaker renders one utterance. Implementations wrap a TTS engine; the
// context is cancelled when the utterance should stop immediately.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

type Announcer struct {
	speaker Speaker
	log     *logrus.Entry

	mu      sync.Mutex
	queue   []string
	cancel  context.CancelFunc
	closed  bool
	wake    chan struct{}
	stop    chan struct{}
	stopped chan struct{}
}

func NewAnnouncer(speaker Speaker) *Announcer {
	a := &Announcer{
		speaker: speaker,
		log:     logrus.WithField("component", "voice"),
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go a.run()
	return a
}

// Announce queues one utterance. Fire-and-forget; ordering is guaranteed.
func (a *Announcer) Announce(text string) {
	if text == "" {
		return
	}
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.queue = append(a.queue, text)
	a.mu.Unlock()

	select {
	case a.wake <- struct{}{}:
	default:
	}
}

// Clear drops all queued announcements and halts the one in progress.
func (a *Announcer) Clear() {
	a.mu.Lock()
	a.queue = nil
	cancel := a.cancel
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Close clears the queue and stops the consumer goroutine.
func (a *Announcer) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	a.mu.Unlock()

	a.Clear()
	close(a.stop)
	<-a.stopped
}

func (a *Announcer) run() {
	defer close(a.stopped)
	for {
		select {
		case <-a.stop:
			return
		case <-a.wake:
		}
		a.drain()
	}
}

func (a *Announcer) drain() {
	for {
		a.mu.Lock()
		if len(a.queue) == 0 {
			a.mu.Unlock()
			return
		}
		text := a.queue[0]
		a.queue = a.queue[1:]
		ctx, cancel := context.WithCancel(context.Background())
		a.cancel = cancel
		a.mu.Unlock()

		err := a.speaker.Speak(ctx, text)

		a.mu.Lock()
		a.cancel = nil
		a.mu.Unlock()
		cancel()

		if err != nil && ctx.Err() == nil {
			a.log.WithError(err).Warn("utterance failed")
		}

		select {
		case <-a.stop:
			return
		default:
		}
	}
}
