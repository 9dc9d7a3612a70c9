package pipeline

import (
	"log/slog"
	"sync"

	"hatewatch/telemetry"
)

// subscriberBuffer is the per-subscriber channel capacity. A subscriber that
// falls this far behind is dropped rather than allowed to stall the fan-out.
const subscriberBuffer = 64

// Subscriber is one open push channel to a client. It has no identity beyond
// its connection lifetime.
type Subscriber struct {
	ch        chan ScoredComment
	closeOnce sync.Once
}

// Events returns the receive side of the subscriber's channel. The channel is
// closed when the subscriber is removed from the hub.
func (s *Subscriber) Events() <-chan ScoredComment { return s.ch }

// Hub owns the subscriber set and fans out scored comments to every current
// subscriber. All access to the set goes through Subscribe, Unsubscribe, and
// Publish; there is no ambient shared state.
type Hub struct {
	mu   sync.Mutex
	subs map[*Subscriber]struct{}
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[*Subscriber]struct{})}
}

// Subscribe registers a new push channel and returns its subscriber handle.
func (h *Hub) Subscribe() *Subscriber {
	s := &Subscriber{ch: make(chan ScoredComment, subscriberBuffer)}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	n := len(h.subs)
	h.mu.Unlock()
	telemetry.SetSubscribers(n)
	slog.Debug("subscriber connected", slog.Int("subscribers", n), slog.String("component", "hub"))
	return s
}

// Unsubscribe removes a subscriber and closes its channel. It is idempotent
// and safe to call on an already-removed subscriber.
func (h *Hub) Unsubscribe(s *Subscriber) {
	if s == nil {
		return
	}
	h.mu.Lock()
	if _, ok := h.subs[s]; ok {
		delete(h.subs, s)
		s.closeOnce.Do(func() { close(s.ch) })
	}
	n := len(h.subs)
	h.mu.Unlock()
	telemetry.SetSubscribers(n)
}

// Publish sends a scored comment to every currently-registered subscriber.
// Sends never block: a subscriber whose buffer is full is removed and the
// broadcast continues to the rest.
func (h *Hub) Publish(c ScoredComment) {
	h.mu.Lock()
	for s := range h.subs {
		select {
		case s.ch <- c:
		default:
			delete(h.subs, s)
			s.closeOnce.Do(func() { close(s.ch) })
			slog.Warn("dropping stalled subscriber", slog.Int("subscribers", len(h.subs)), slog.String("component", "hub"))
		}
	}
	n := len(h.subs)
	h.mu.Unlock()
	telemetry.SetSubscribers(n)
	telemetry.IncBroadcast()
}

// Len returns the current subscriber count.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
