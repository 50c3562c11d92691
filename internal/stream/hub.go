// Package stream fans live SOS location pings out to connected guardian
// watchers, locally and across instances through redis pub/sub.
package stream

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type Hub struct {
	redis    *redis.Client
	watchers map[string]map[*Watcher]struct{}
	mu       sync.RWMutex
}

type Watcher struct {
	Token string
	Send  chan []byte
}

func NewHub(redisClient *redis.Client) *Hub {
	h := &Hub{
		redis:    redisClient,
		watchers: map[string]map[*Watcher]struct{}{},
	}

	if redisClient != nil {
		go h.subscribeRedis()
	}
	return h
}

func (h *Hub) Register(token string) *Watcher {
	w := &Watcher{
		Token: token,
		Send:  make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.watchers[token] == nil {
		h.watchers[token] = map[*Watcher]struct{}{}
	}
	h.watchers[token][w] = struct{}{}
	return w
}

func (h *Hub) Unregister(w *Watcher) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if tokenWatchers, ok := h.watchers[w.Token]; ok {
		delete(tokenWatchers, w)
		if len(tokenWatchers) == 0 {
			delete(h.watchers, w.Token)
		}
	}
	close(w.Send)
}

func (h *Hub) Broadcast(token string, payload []byte) {
	h.mu.RLock()
	watchers := h.watchers[token]
	h.mu.RUnlock()

	for w := range watchers {
		select {
		case w.Send <- payload:
		default:
		}
	}

	if h.redis != nil {
		err := h.redis.Publish(context.Background(), redisChannel(token), payload).Err()
		if err != nil {
			logrus.WithError(err).Warn("redis publish error")
		}
	}
}

func (h *Hub) subscribeRedis() {
	ctx := context.Background()
	pubsub := h.redis.Subscribe(ctx, "sos:*:locations")
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		token := tokenFromChannel(msg.Channel)
		h.mu.RLock()
		watchers := h.watchers[token]
		h.mu.RUnlock()
		for w := range watchers {
			select {
			case w.Send <- []byte(msg.Payload):
			default:
			}
		}
	}
}

func redisChannel(token string) string {
	return "sos:" + token + ":locations"
}

func tokenFromChannel(ch string) string {
	// sos:{token}:locations
	const prefix = "sos:"
	const suffix = ":locations"
	if len(ch) <= len(prefix)+len(suffix) {
		return ""
	}
	return ch[len(prefix) : len(ch)-len(suffix)]
}
