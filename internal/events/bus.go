package events

import (
	crand "crypto/rand"
	"encoding/hex"
	"sync"
	"sync/atomic"

	"github.com/banshee-data/collision.report/internal/timeutil"
)

const (
	// publishBuffer absorbs bursts from monitoring loops between dispatch
	// turns.
	publishBuffer = 256

	// subscriberBuffer gives each subscriber slack before deliveries drop.
	subscriberBuffer = 16
)

// subscriber is one registered event consumer. An empty streamID receives
// every event; otherwise only events for that stream.
type subscriber struct {
	ch       chan Event
	streamID string
}

// Bus fans published events out to subscribers. A single dispatch goroutine
// drains the publish queue, so subscribers observe events for any one stream
// in publish order. Slow subscribers lose events rather than stalling the
// publishers.
type Bus struct {
	clock timeutil.Clock

	publish chan Event
	done    chan struct{}

	subscriberMu sync.Mutex
	subscribers  map[string]*subscriber
	closed       bool

	droppedPublishes  atomic.Uint64
	droppedDeliveries atomic.Uint64
}

// NewBus creates a bus and starts its dispatch goroutine.
func NewBus(clock timeutil.Clock) *Bus {
	b := &Bus{
		clock:       clock,
		publish:     make(chan Event, publishBuffer),
		done:        make(chan struct{}),
		subscribers: make(map[string]*subscriber),
	}
	go b.dispatch()
	return b
}

// randomID generates a random subscriber ID (8 byte random hex encoded value)
func randomID() string {
	b := make([]byte, 8)
	crand.Read(b)
	return hex.EncodeToString(b)
}

// SubscribeGlobal registers a subscriber receiving every event.
func (b *Bus) SubscribeGlobal() (string, <-chan Event) {
	return b.subscribe("")
}

// SubscribeStream registers a subscriber receiving only events for one
// stream.
func (b *Bus) SubscribeStream(streamID string) (string, <-chan Event) {
	return b.subscribe(streamID)
}

func (b *Bus) subscribe(streamID string) (string, <-chan Event) {
	id := randomID()
	ch := make(chan Event, subscriberBuffer)

	b.subscriberMu.Lock()
	defer b.subscriberMu.Unlock()
	if b.closed {
		close(ch)
		return id, ch
	}
	b.subscribers[id] = &subscriber{ch: ch, streamID: streamID}
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Bus) Unsubscribe(id string) {
	b.subscriberMu.Lock()
	defer b.subscriberMu.Unlock()
	if sub, ok := b.subscribers[id]; ok {
		close(sub.ch)
		delete(b.subscribers, id)
	}
}

// Publish enqueues an event for dispatch, stamping its time if unset. It
// never blocks: with the queue full the event is dropped and counted.
func (b *Bus) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = b.clock.Now().UTC()
	}

	select {
	case <-b.done:
	case b.publish <- ev:
	default:
		b.droppedPublishes.Add(1)
	}
}

func (b *Bus) dispatch() {
	for {
		select {
		case <-b.done:
			return
		case ev := <-b.publish:
			b.deliver(ev)
		}
	}
}

func (b *Bus) deliver(ev Event) {
	b.subscriberMu.Lock()
	defer b.subscriberMu.Unlock()
	for _, sub := range b.subscribers {
		if sub.streamID != "" && sub.streamID != ev.StreamID {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			// Full subscriber buffer; skip so the dispatch loop never blocks.
			b.droppedDeliveries.Add(1)
		}
	}
}

// Close stops dispatch and closes every subscriber channel. Publishing after
// Close is a no-op.
func (b *Bus) Close() {
	b.subscriberMu.Lock()
	defer b.subscriberMu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.done)
	for id, sub := range b.subscribers {
		close(sub.ch)
		delete(b.subscribers, id)
	}
}

// Stats reports subscriber and drop counters for debug surfaces.
type Stats struct {
	Subscribers       int    `json:"subscribers"`
	DroppedPublishes  uint64 `json:"dropped_publishes"`
	DroppedDeliveries uint64 `json:"dropped_deliveries"`
}

// Stats returns a snapshot of the bus counters.
func (b *Bus) Stats() Stats {
	b.subscriberMu.Lock()
	defer b.subscriberMu.Unlock()
	return Stats{
		Subscribers:       len(b.subscribers),
		DroppedPublishes:  b.droppedPublishes.Load(),
		DroppedDeliveries: b.droppedDeliveries.Load(),
	}
}
