package events

import (
	"sync"
	"testing"
)

func TestPublishReachesOnlyBoardSubscribers(t *testing.T) {
	hub := NewHub()

	var got []Event
	unsubA := hub.Subscribe("board-a", func(ev Event) { got = append(got, ev) })
	defer unsubA()
	unsubB := hub.Subscribe("board-b", func(ev Event) {
		t.Fatalf("board-b subscriber must not see board-a events")
	})
	defer unsubB()

	hub.Publish("board-a", Event{BoardUID: "board-a", ActorID: "user-1"})

	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	if got[0].ActorID != "user-1" {
		t.Fatalf("expected actor user-1, got %s", got[0].ActorID)
	}
}

func TestPublishIsSynchronous(t *testing.T) {
	hub := NewHub()

	delivered := false
	unsub := hub.Subscribe("board-a", func(Event) { delivered = true })
	defer unsub()

	hub.Publish("board-a", Event{BoardUID: "board-a"})
	if !delivered {
		t.Fatalf("publish must complete fan-out before returning")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	hub := NewHub()

	count := 0
	unsub := hub.Subscribe("board-a", func(Event) { count++ })

	hub.Publish("board-a", Event{BoardUID: "board-a"})
	unsub()
	hub.Publish("board-a", Event{BoardUID: "board-a"})

	if count != 1 {
		t.Fatalf("expected exactly 1 delivery, got %d", count)
	}
	if n := hub.SubscriberCount("board-a"); n != 0 {
		t.Fatalf("expected registry released, got %d subscribers", n)
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	hub := NewHub()

	unsubFirst := hub.Subscribe("board-a", func(Event) {})
	second := 0
	unsubSecond := hub.Subscribe("board-a", func(Event) { second++ })
	defer unsubSecond()

	unsubFirst()
	unsubFirst()

	hub.Publish("board-a", Event{BoardUID: "board-a"})
	if second != 1 {
		t.Fatalf("double unsubscribe must not drop other subscribers, got %d", second)
	}
}

func TestConcurrentSubscribePublish(t *testing.T) {
	hub := NewHub()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var mu sync.Mutex
			seen := 0
			unsub := hub.Subscribe("board-a", func(Event) {
				mu.Lock()
				seen++
				mu.Unlock()
			})
			hub.Publish("board-a", Event{BoardUID: "board-a"})
			unsub()
		}()
	}
	wg.Wait()

	if n := hub.SubscriberCount("board-a"); n != 0 {
		t.Fatalf("expected all subscriptions released, got %d", n)
	}
}
