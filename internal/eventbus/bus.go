package eventbus

import (
	"sync"
	"time"
)

// Topic names a class of notification.
type Topic string

const (
	TopicPreview     Topic = "preview"
	TopicConnection  Topic = "connection"
	TopicImport      Topic = "import"
	TopicDestination Topic = "destination"
	TopicMapping     Topic = "mapping"
	TopicSubfolder   Topic = "subfolder"
	TopicProject     Topic = "project"
	TopicObjects     Topic = "objects"
)

// Event is one published notification. Payload is topic specific.
type Event struct {
	Sequence  uint64
	Timestamp time.Time
	Topic     Topic
	Payload   any
}

// Bus is a topic-keyed observer registry.
type Bus struct {
	mu       sync.Mutex
	capacity int
	buffer   []Event
	nextSeq  uint64
	nextSub  int
	subs     map[int]*Subscription
}

// Subscription receives events for its topics on C until Close.
type Subscription struct {
	C <-chan Event

	bus     *Bus
	id      int
	ch      chan Event
	topics  map[Topic]struct{}
	dropped uint64
	closed  bool
}

// New constructs a bus that remembers the last capacity events.
func New(capacity int) *Bus {
	if capacity <= 0 {
		capacity = 128
	}
	return &Bus{capacity: capacity, subs: make(map[int]*Subscription)}
}

// Subscribe registers interest in topics. An empty topic list receives
// everything. buffer bounds the subscription channel.
func (b *Bus) Subscribe(buffer int, topics ...Topic) *Subscription {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)
	sub := &Subscription{C: ch, bus: b, ch: ch}
	if len(topics) > 0 {
		sub.topics = make(map[Topic]struct{}, len(topics))
		for _, t := range topics {
			sub.topics[t] = struct{}{}
		}
	}
	b.mu.Lock()
	b.nextSub++
	sub.id = b.nextSub
	b.subs[sub.id] = sub
	b.mu.Unlock()
	return sub
}

// Publish stamps and delivers an event without blocking and returns its
// sequence number.
func (b *Bus) Publish(topic Topic, payload any) uint64 {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextSeq++
	evt := Event{Sequence: b.nextSeq, Timestamp: time.Now().UTC(), Topic: topic, Payload: payload}
	if len(b.buffer) == b.capacity {
		copy(b.buffer, b.buffer[1:])
		b.buffer = b.buffer[:b.capacity-1]
	}
	b.buffer = append(b.buffer, evt)

	for _, sub := range b.subs {
		if !sub.wants(topic) {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
			sub.dropped++
		}
	}
	return evt.Sequence
}

// Tail returns buffered events with a sequence greater than since.
func (b *Bus) Tail(since uint64) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Event, 0, len(b.buffer))
	for _, evt := range b.buffer {
		if evt.Sequence > since {
			out = append(out, evt)
		}
	}
	return out
}

func (s *Subscription) wants(topic Topic) bool {
	if s.topics == nil {
		return true
	}
	_, ok := s.topics[topic]
	return ok
}

// Dropped reports how many events were discarded because C was full.
func (s *Subscription) Dropped() uint64 {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	return s.dropped
}

// Close unregisters the subscription and closes C. It is safe to call twice.
func (s *Subscription) Close() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	delete(s.bus.subs, s.id)
	close(s.ch)
}
