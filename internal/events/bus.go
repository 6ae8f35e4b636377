package events

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// DefaultBufferSize is the per-subscriber channel capacity used when a
// caller does not specify one. Sized generously enough that a healthy
// subscriber never sees a drop under normal load; a stalled one fills it and
// starts losing events, by design.
const DefaultBufferSize = 1024

// Bus is the Event Port: a single sender, many independent subscriber
// channels. Publish never blocks the caller — a full subscriber channel
// drops the event and logs a warning rather than applying backpressure to
// the matching path.
//
// Grounded on the teacher's internal/net/messages.go Report broadcast shape
// (one origin, many connections reading off a channel each), adapted from a
// single shared outbound channel per connection to an explicit Subscribe/
// Publish fan-out since the teacher's server owned exactly one subscriber
// per TCP connection and never needed to broadcast one event to many.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[int]*subscriber
	nextID      int
}

type subscriber struct {
	ch     chan Event
	closed bool
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[int]*subscriber)}
}

// Subscription is a handle returned by Subscribe. Events arrives on C;
// Unsubscribe must be called when the consumer is done to release the
// channel.
type Subscription struct {
	id  int
	bus *Bus
	C   <-chan Event
}

// Unsubscribe stops delivery to this subscription and closes its channel.
func (s *Subscription) Unsubscribe() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	if sub, ok := s.bus.subscribers[s.id]; ok {
		sub.closed = true
		close(sub.ch)
		delete(s.bus.subscribers, s.id)
	}
}

// Subscribe registers a new subscriber with a bounded buffer of the given
// capacity (DefaultBufferSize if capacity <= 0).
func (b *Bus) Subscribe(capacity int) *Subscription {
	if capacity <= 0 {
		capacity = DefaultBufferSize
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	sub := &subscriber{ch: make(chan Event, capacity)}
	b.subscribers[id] = sub

	return &Subscription{id: id, bus: b, C: sub.ch}
}

// Publish delivers ev to every current subscriber. Per-market ordering (the
// core's only ordering guarantee across events) is preserved because
// Publish is called synchronously, in order, by the single goroutine that
// owns the market's book lock for the operation that produced ev — the bus
// itself imposes no additional ordering or synchronization delay.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, sub := range b.subscribers {
		select {
		case sub.ch <- ev:
		default:
			log.Warn().
				Int("subscriber_id", id).
				Str("market_id", ev.MarketID()).
				Msg("event port: subscriber buffer full, dropping event")
		}
	}
}

// Subscribers reports the current subscriber count, for diagnostics.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
