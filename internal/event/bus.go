package event

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/docgate/docgate/internal/logging"
)

// EventType represents the type of event.
type EventType string

const (
	CallStarted    EventType = "call.started"
	CallDelta      EventType = "call.delta"
	CallCompleted  EventType = "call.completed"
	CallFailed     EventType = "call.failed"
	ConfigReloaded EventType = "config.reloaded"
)

// Topic is the watermill topic every event is mirrored to as JSON.
const Topic = "docgate.events"

// MetadataType is the message metadata key holding the event type.
const MetadataType = "type"

// MirrorQueueSize bounds the messages waiting for the watermill mirror.
// Messages beyond it are dropped.
const MirrorQueueSize = 1024

// Event represents an event to be published.
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

// Subscriber is a function that receives events.
type Subscriber func(event Event)

type subscriberEntry struct {
	id uint64
	fn Subscriber
}

// Bus delivers events two ways: typed values to in-process subscribers
// registered with Subscribe, and JSON messages on Topic for consumers of
// the watermill GoChannel, such as the SSE event stream.
//
// Publishing never waits for GoChannel consumers: messages are queued
// and a single goroutine forwards them in order. A consumer that stops
// acking stalls only the forwarder, and the queue drops what overflows.
type Bus struct {
	mu sync.RWMutex

	pubsub  *gochannel.GoChannel
	queue   chan *message.Message
	done    chan struct{}
	dropped atomic.Uint64

	subscribers map[EventType][]subscriberEntry
	global      []subscriberEntry

	nextID uint64
	closed bool
}

// NewBus creates a new event bus instance.
func NewBus() *Bus {
	b := &Bus{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{
				OutputChannelBuffer:            100,
				Persistent:                     false,
				BlockPublishUntilSubscriberAck: true,
			},
			watermill.NopLogger{},
		),
		queue:       make(chan *message.Message, MirrorQueueSize),
		done:        make(chan struct{}),
		subscribers: make(map[EventType][]subscriberEntry),
	}
	go b.forward()
	return b
}

// forward publishes queued messages one at a time. GoChannel waits for
// the acks of each message before the next is sent, which keeps order.
func (b *Bus) forward() {
	defer close(b.done)
	for msg := range b.queue {
		_ = b.pubsub.Publish(Topic, msg)
	}
}

func (b *Bus) newID() uint64 {
	return atomic.AddUint64(&b.nextID, 1)
}

// Subscribe registers a subscriber for a specific event type.
// Returns an unsubscribe function.
func (b *Bus) Subscribe(eventType EventType, fn Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return func() {}
	}

	id := b.newID()
	b.subscribers[eventType] = append(b.subscribers[eventType], subscriberEntry{id: id, fn: fn})

	return func() {
		b.unsubscribe(eventType, id)
	}
}

// SubscribeAll registers a subscriber for all events.
// Returns an unsubscribe function.
func (b *Bus) SubscribeAll(fn Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return func() {}
	}

	id := b.newID()
	b.global = append(b.global, subscriberEntry{id: id, fn: fn})

	return func() {
		b.unsubscribeGlobal(id)
	}
}

func (b *Bus) unsubscribe(eventType EventType, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subscribers[eventType]
	for i, entry := range subs {
		if entry.id == id {
			b.subscribers[eventType] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
}

func (b *Bus) unsubscribeGlobal(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, entry := range b.global {
		if entry.id == id {
			b.global = append(b.global[:i], b.global[i+1:]...)
			break
		}
	}
}

// collect returns the subscribers for eventType, or false once closed.
func (b *Bus) collect(eventType EventType) ([]Subscriber, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, false
	}

	subs := make([]Subscriber, 0, len(b.subscribers[eventType])+len(b.global))
	for _, entry := range b.subscribers[eventType] {
		subs = append(subs, entry.fn)
	}
	for _, entry := range b.global {
		subs = append(subs, entry.fn)
	}
	return subs, true
}

// Publish sends an event to all subscribers asynchronously.
// Each subscriber is called in its own goroutine to prevent blocking.
func (b *Bus) Publish(event Event) {
	subs, ok := b.collect(event.Type)
	if !ok {
		return
	}
	b.mirror(event)

	for _, sub := range subs {
		go sub(event)
	}
}

// PublishSync sends an event to all subscribers synchronously.
// All subscribers are called in the current goroutine before returning.
func (b *Bus) PublishSync(event Event) {
	subs, ok := b.collect(event.Type)
	if !ok {
		return
	}
	b.mirror(event)

	for _, sub := range subs {
		sub(event)
	}
}

// mirror queues the event for the watermill topic without blocking.
// GoChannel drops messages when nobody is subscribed.
func (b *Bus) mirror(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	msg := message.NewMessage(watermill.NewULID(), payload)
	msg.Metadata.Set(MetadataType, string(event.Type))

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	select {
	case b.queue <- msg:
	default:
		if n := b.dropped.Add(1); n%100 == 1 {
			logging.Warn().
				Str("type", string(event.Type)).
				Uint64("dropped", n).
				Msg("Event consumer is not keeping up, dropping messages")
		}
	}
}

// Dropped returns how many messages the mirror queue has dropped.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// Messages subscribes to the JSON mirror of every event. The channel
// closes when ctx is done or the bus is closed. Messages arrive in
// publish order; the next one is sent after every consumer acked the
// previous one, so ack on receipt.
func (b *Bus) Messages(ctx context.Context) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, Topic)
}

// Close closes the bus and all its subscribers.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.subscribers = make(map[EventType][]subscriberEntry)
	b.global = nil
	close(b.queue)
	b.mu.Unlock()

	err := b.pubsub.Close()
	<-b.done
	return err
}

// PubSub returns the underlying watermill GoChannel.
func (b *Bus) PubSub() *gochannel.GoChannel {
	return b.pubsub
}
