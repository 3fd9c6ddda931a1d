package bridge

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// EventKind identifies the event variants the network worker emits.
type EventKind string

const (
	EventStateChanged  EventKind = "StateChanged"
	EventStreamStarted EventKind = "StreamStarted"
	EventChunkReceived EventKind = "ChunkReceived"
	EventStreamEnded   EventKind = "StreamEnded"
	EventStreamFailed  EventKind = "StreamFailed"
)

// Event is the worker-to-consumer notification. Which fields are set depends
// on Kind: StateChanged carries State, stream events carry RequestID, chunks
// carry Seq/Content, failures carry Code/Message.
type Event struct {
	Kind      EventKind
	State     string
	RequestID string
	Seq       int
	Content   string
	Code      string
	Message   string
}

// subscriber holds one consumer channel.
type subscriber struct {
	ch     chan Event
	name   string
	active bool
}

// Bridge hands events from the network worker to consumer contexts without
// the consumer ever touching worker-owned objects. Publishing is safe from
// any goroutine; consumers pump their channel at their own pace.
type Bridge struct {
	subscribers map[string]*subscriber
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
	logEvents   bool
}

// sendTimeout bounds a publish to a stalled consumer so the worker is never
// wedged forever behind a channel nobody drains.
const sendTimeout = 5 * time.Second

func New() *Bridge {
	ctx, cancel := context.WithCancel(context.Background())
	return &Bridge{
		subscribers: make(map[string]*subscriber),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Subscribe registers a named consumer and returns its event channel.
func (b *Bridge) Subscribe(name string, bufferSize int) (<-chan Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[name]; exists {
		return nil, fmt.Errorf("subscriber %s already registered", name)
	}

	ch := make(chan Event, bufferSize)
	b.subscribers[name] = &subscriber{ch: ch, name: name, active: true}
	log.Printf("Bridge: subscribed %s with buffer size %d", name, bufferSize)
	return ch, nil
}

// Unsubscribe removes a consumer and closes its channel.
func (b *Bridge) Unsubscribe(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, exists := b.subscribers[name]; exists {
		sub.active = false
		close(sub.ch)
		delete(b.subscribers, name)
		log.Printf("Bridge: unsubscribed %s", name)
	}
}

// Publish delivers an event to every active subscriber. It is safe to call
// from the network worker goroutine. A subscriber that fails to drain within
// sendTimeout loses the event; other subscribers are unaffected.
func (b *Bridge) Publish(ev Event) error {
	select {
	case <-b.ctx.Done():
		return fmt.Errorf("bridge is shutting down")
	default:
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.logEvents {
		log.Printf("Bridge: %s requestId=%s", ev.Kind, ev.RequestID)
	}

	var lost []string
	for name, sub := range b.subscribers {
		if !sub.active {
			continue
		}
		select {
		case sub.ch <- ev:
		case <-time.After(sendTimeout):
			lost = append(lost, name)
		case <-b.ctx.Done():
			return fmt.Errorf("bridge is shutting down")
		}
	}

	if len(lost) > 0 {
		log.Printf("Bridge: dropped %s for stalled subscribers %v", ev.Kind, lost)
	}
	return nil
}

// SetEventLogging enables or disables per-event logging.
func (b *Bridge) SetEventLogging(enabled bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logEvents = enabled
}

// PendingEvents returns per-subscriber channel depths.
func (b *Bridge) PendingEvents() map[string]int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	stats := make(map[string]int)
	for name, sub := range b.subscribers {
		if sub.active {
			stats[name] = len(sub.ch)
		}
	}
	return stats
}

// Shutdown closes all subscriber channels; further publishes fail.
func (b *Bridge) Shutdown() {
	b.cancel()

	b.mu.Lock()
	defer b.mu.Unlock()

	for name, sub := range b.subscribers {
		if sub.active {
			sub.active = false
			close(sub.ch)
			log.Printf("Bridge: closed channel for %s", name)
		}
	}
	b.subscribers = make(map[string]*subscriber)
}

// Drain empties a subscriber channel and returns how many events it held.
func Drain(ch <-chan Event) int {
	count := 0
	for {
		select {
		case <-ch:
			count++
		default:
			return count
		}
	}
}
