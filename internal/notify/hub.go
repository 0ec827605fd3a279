// Package notify fans change events out to connected observers. Delivery is
// best-effort and at-most-once per connected channel per event; a slow or
// dead observer is disconnected rather than allowed to stall the mutation
// that triggered the event.
package notify

import (
	"log/slog"
	"sync"
)

// Event is a change notification delivered to observers of a user.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Hub maps user identities to their currently-connected observer channels.
// Connect, Disconnect and Publish are safe to call from independent
// goroutines. The hub has explicit lifecycle: create at service start, Close
// at shutdown.
type Hub struct {
	mu     sync.Mutex
	conns  map[string]map[chan Event]struct{}
	closed bool
}

// NewHub creates an empty connection registry.
func NewHub() *Hub {
	return &Hub{conns: make(map[string]map[chan Event]struct{})}
}

// Connect registers a channel as an observer of the user. The channel should
// be buffered; an observer whose buffer fills up is treated as dead. If the
// hub is already closed the channel is closed immediately.
func (h *Hub) Connect(userID string, ch chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(ch)
		return
	}
	set, ok := h.conns[userID]
	if !ok {
		set = make(map[chan Event]struct{})
		h.conns[userID] = set
	}
	set[ch] = struct{}{}
	connectedChannels.Inc()
}

// Disconnect removes a channel from the user's observer set, pruning the
// user entry when the set becomes empty. The caller keeps ownership of the
// channel; Disconnect does not close it.
func (h *Hub) Disconnect(userID string, ch chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(userID, ch, false)
}

// Publish delivers the event to every currently-connected channel of every
// listed user. Duplicate user IDs are deduplicated, so each channel sees the
// event at most once per call. Delivery never blocks: a channel that cannot
// accept the event is disconnected and closed silently, and delivery to the
// remaining channels continues.
func (h *Hub) Publish(userIDs []string, event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}

	seen := make(map[string]struct{}, len(userIDs))
	for _, userID := range userIDs {
		if _, dup := seen[userID]; dup {
			continue
		}
		seen[userID] = struct{}{}

		var dead []chan Event
		for ch := range h.conns[userID] {
			select {
			case ch <- event:
				eventsDelivered.Inc()
			default:
				dead = append(dead, ch)
			}
		}
		for _, ch := range dead {
			eventsDropped.Inc()
			slog.Debug("dropping dead observer channel", "user_id", userID, "event", event.Type)
			h.remove(userID, ch, true)
		}
	}
}

// Close tears the registry down, closing every connected channel. Publishes
// after Close are no-ops and later Connects get a closed channel back.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for userID, set := range h.conns {
		for ch := range set {
			close(ch)
			connectedChannels.Dec()
		}
		delete(h.conns, userID)
	}
}

// remove must be called with h.mu held.
func (h *Hub) remove(userID string, ch chan Event, closeCh bool) {
	set, ok := h.conns[userID]
	if !ok {
		return
	}
	if _, ok := set[ch]; !ok {
		return
	}
	delete(set, ch)
	if len(set) == 0 {
		delete(h.conns, userID)
	}
	if closeCh {
		close(ch)
	}
	connectedChannels.Dec()
}
