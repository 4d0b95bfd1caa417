// Package events is the in-process invalidation channel: a registry of
// per-board subscribers that get told "this board changed, re-fetch". It
// carries no payload beyond the acting user, is at-most-once, and keeps no
// backlog — a viewer that is not subscribed at publish time simply misses the
// event and re-fetches on its next connect.
package events

import "sync"

// Event signals that a board changed. ActorID identifies the user whose
// mutation caused it, so that user's own streams can be skipped.
type Event struct {
	BoardUID string `json:"boardUid"`
	ActorID  string `json:"actorId"`
}

type subscriber struct {
	id int
	fn func(Event)
}

// Hub fans invalidation events out to subscribers of one board. It holds
// process-wide mutable state and must be constructed once at startup and
// injected; there is no package-level instance. Fan-out does not cross
// processes — multi-process deployments need an external broker.
type Hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[string][]subscriber
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string][]subscriber)}
}

// Subscribe registers fn for events on boardUID and returns an unsubscribe
// function. Unsubscribing is synchronous and idempotent; after it returns, fn
// will not be invoked again.
func (h *Hub) Subscribe(boardUID string, fn func(Event)) (unsubscribe func()) {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.subs[boardUID] = append(h.subs[boardUID], subscriber{id: id, fn: fn})
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		subs := h.subs[boardUID]
		for i, s := range subs {
			if s.id == id {
				h.subs[boardUID] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		if len(h.subs[boardUID]) == 0 {
			delete(h.subs, boardUID)
		}
	}
}

// Publish delivers ev to every current subscriber of boardUID. Callbacks run
// inline on the caller's goroutine, so the event is visible to all
// subscribers before Publish returns. Subscribers must not block.
func (h *Hub) Publish(boardUID string, ev Event) {
	h.mu.Lock()
	subs := append([]subscriber(nil), h.subs[boardUID]...)
	h.mu.Unlock()

	for _, s := range subs {
		s.fn(ev)
	}
}

// SubscriberCount reports how many streams are attached to a board.
func (h *Hub) SubscriberCount(boardUID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[boardUID])
}
