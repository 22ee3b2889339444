package auth

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType names a session change.
type EventType string

const (
	EventSignedUp  EventType = "signed_up"
	EventSignedIn  EventType = "signed_in"
	EventSignedOut EventType = "signed_out"
)

// SessionEvent is delivered to subscribers after a session change.
type SessionEvent struct {
	Type   EventType
	UserID uuid.UUID
	At     time.Time
}

type broadcaster struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(SessionEvent)
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: map[int]func(SessionEvent){}}
}

func (b *broadcaster) subscribe(fn func(SessionEvent)) func() {
	if fn == nil {
		return func() {}
	}
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// publish calls subscribers outside the lock so a callback may unsubscribe.
func (b *broadcaster) publish(event SessionEvent) {
	b.mu.Lock()
	fns := make([]func(SessionEvent), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.Unlock()
	for _, fn := range fns {
		fn(event)
	}
}
