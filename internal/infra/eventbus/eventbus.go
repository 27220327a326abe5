// Package eventbus provides an in-memory publish/subscribe bus. The audit
// service publishes settled invocations here so consumers (activity feeds,
// tests) can observe dispatch without coupling to it.
//
// Publish never blocks: a subscriber that falls behind loses events, and the
// bus counts the drops. There is no persistence.
package eventbus

import (
	"sync"
	"sync/atomic"
)

// Event is a single published message.
type Event struct {
	Topic   string
	Payload any
}

// EventBus is the interface for publishing and subscribing to topics.
type EventBus interface {
	Publish(topic string, payload any)
	Subscribe(topic string) <-chan Event
}

const subscriberBuffer = 100

// Bus is the in-memory implementation of EventBus.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]chan Event
	dropped     atomic.Uint64
}

// New returns an empty in-memory Bus.
func New() *Bus {
	return &Bus{subscribers: make(map[string][]chan Event)}
}

// Subscribe registers a subscriber for topic and returns its channel. The
// caller must keep draining it; a full buffer makes Publish drop events for
// this subscriber.
func (b *Bus) Subscribe(topic string) <-chan Event {
	ch := make(chan Event, subscriberBuffer)
	b.mu.Lock()
	b.subscribers[topic] = append(b.subscribers[topic], ch)
	b.mu.Unlock()
	return ch
}

// Publish delivers payload to every subscriber of topic without blocking.
func (b *Bus) Publish(topic string, payload any) {
	evt := Event{Topic: topic, Payload: payload}
	b.mu.RLock()
	subs := b.subscribers[topic]
	b.mu.RUnlock()

	for _, ch := range subs {
		select {
		case ch <- evt:
		default:
			b.dropped.Add(1)
		}
	}
}

// Dropped reports how many events were discarded because a subscriber's
// buffer was full.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}
