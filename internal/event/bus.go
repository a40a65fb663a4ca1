package event

import (
	"sync"
	"sync/atomic"

	"github.com/doridoridoriand/fastping/internal/log"
)

// Sink receives events from probe workers. Publish must never block.
type Sink interface {
	Publish(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Publish(e Event) { f(e) }

// Subscription is one consumer's buffered view of the bus.
type Subscription struct {
	name    string
	ch      chan Event
	dropped atomic.Uint64
}

// Events returns the channel the subscriber reads from. It is closed by Bus.Close.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Dropped reports how many events this subscriber missed because its buffer was full.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Name returns the label given at Subscribe time.
func (s *Subscription) Name() string {
	return s.name
}

// Bus fans events out to subscribers. A full subscriber buffer drops the event
// for that subscriber only, so a slow consumer never stalls a worker.
type Bus struct {
	mu      sync.RWMutex
	subs    []*Subscription
	closed  bool
	dropped atomic.Uint64
	logger  *log.Logger
}

// NewBus constructs an empty bus.
func NewBus(logger *log.Logger) *Bus {
	if logger == nil {
		logger = log.Nop()
	}
	return &Bus{logger: logger}
}

// Subscribe registers a consumer with the given buffer size.
func (b *Bus) Subscribe(name string, buffer int) *Subscription {
	if buffer < 1 {
		buffer = 1
	}
	sub := &Subscription{name: name, ch: make(chan Event, buffer)}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(sub.ch)
		return sub
	}
	b.subs = append(b.subs, sub)
	return sub
}

// Publish delivers e to every subscriber without blocking.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, sub := range b.subs {
		select {
		case sub.ch <- e:
		default:
			sub.dropped.Add(1)
			b.dropped.Add(1)
			b.logger.Debug("event dropped", map[string]interface{}{
				"subscriber": sub.name,
				"target":     e.Target,
				"kind":       e.Kind.String(),
			})
		}
	}
}

// Dropped reports the total number of dropped deliveries across subscribers.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// Close closes every subscriber channel. Later publishes are ignored.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, sub := range b.subs {
		close(sub.ch)
	}
	b.subs = nil
}
