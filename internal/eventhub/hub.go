// Package eventhub fans discovery and pairing events out to observers.
// It is the single notification channel for state changes; components
// publish, observers subscribe, nobody polls scattered flags.
package eventhub

import (
	"sync"
	"time"
)

// EventType names a state change.
type EventType string

const (
	EventPeerDiscovered EventType = "peer_discovered"
	EventPeerUpdated    EventType = "peer_updated"
	EventPeerOffline    EventType = "peer_offline"
	EventPeerRemoved    EventType = "peer_removed"

	EventPairingStatus EventType = "pairing_status"
	EventPairingResult EventType = "pairing_result"
)

// Event is a single notification. Payload is event-specific and must be
// JSON-serializable for the websocket bridge.
type Event struct {
	Type    EventType `json:"type"`
	At      time.Time `json:"at"`
	Payload any       `json:"payload,omitempty"`
}

// Subscriber receives events on a buffered channel. A slow subscriber loses
// events rather than blocking publishers.
type Subscriber struct {
	ch chan Event
}

// Events returns the subscriber's channel. It is closed on Unsubscribe.
func (s *Subscriber) Events() <-chan Event { return s.ch }

// Hub is a concurrency-safe publish/subscribe fanout.
type Hub struct {
	mu   sync.RWMutex
	subs map[*Subscriber]struct{}
}

func New() *Hub {
	return &Hub{subs: make(map[*Subscriber]struct{})}
}

// Subscribe registers a new observer with the given channel buffer.
func (h *Hub) Subscribe(buffer int) *Subscriber {
	if buffer <= 0 {
		buffer = 16
	}
	sub := &Subscriber{ch: make(chan Event, buffer)}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[sub] = struct{}{}
	return sub
}

// Unsubscribe removes the observer and closes its channel.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[sub]; !ok {
		return
	}
	delete(h.subs, sub)
	close(sub.ch)
}

// Publish delivers the event to every subscriber without blocking: a full
// subscriber buffer drops the event for that subscriber only.
func (h *Hub) Publish(t EventType, payload any) {
	ev := Event{Type: t, At: time.Now().UTC(), Payload: payload}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs {
		select {
		case sub.ch <- ev:
		default:
		}
	}
}
