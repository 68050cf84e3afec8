package bus

import (
	"context"
	"sync"
)

// Topic routes events to subscribers. It is a channel, user or guild id, or All.
type Topic string

// All receives every event published on the bus.
const All Topic = "all"

// Bus is a broadcast fan-out keyed by topic. Every live subscriber of a topic gets every
// event published after it subscribed, in publish order. Publish never blocks on a subscriber.
type Bus[T any] struct {
	mu     sync.Mutex
	topics map[Topic][]*Subscription[T]
	closed bool
}

// New creates an empty bus.
func New[T any]() *Bus[T] {
	return &Bus[T]{topics: make(map[Topic][]*Subscription[T])}
}

// Subscribe registers a subscriber for topic. Subscribing after Close yields a closed subscription.
func (b *Bus[T]) Subscribe(topic Topic) *Subscription[T] {
	sub := &Subscription[T]{bus: b, topic: topic, queue: NewQueue[T](0)}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		sub.queue.Close()
		return sub
	}
	b.topics[topic] = append(b.topics[topic], sub)
	return sub
}

// Publish delivers event to subscribers of topic and of All. It returns the number of
// subscribers reached.
func (b *Bus[T]) Publish(topic Topic, event T) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0
	}

	n := 0
	for _, sub := range b.topics[topic] {
		if sub.queue.Push(event) {
			n++
		}
	}
	if topic != All {
		for _, sub := range b.topics[All] {
			if sub.queue.Push(event) {
				n++
			}
		}
	}
	return n
}

// Close closes every subscription. Subscribers drain what is already queued.
func (b *Bus[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for topic, subs := range b.topics {
		for _, sub := range subs {
			sub.queue.Close()
		}
		delete(b.topics, topic)
	}
}

func (b *Bus[T]) remove(sub *Subscription[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.topics[sub.topic]
	for i, s := range subs {
		if s != sub {
			continue
		}
		copy(subs[i:], subs[i+1:])
		subs[len(subs)-1] = nil
		subs = subs[:len(subs)-1]
		break
	}
	if len(subs) == 0 {
		delete(b.topics, sub.topic)
		return
	}
	b.topics[sub.topic] = subs
}

// Subscription is one consumer's view of a topic.
type Subscription[T any] struct {
	bus   *Bus[T]
	topic Topic
	queue *Queue[T]
	once  sync.Once
}

// Topic returns the subscribed topic.
func (s *Subscription[T]) Topic() Topic {
	return s.topic
}

// Next blocks for the next event. It returns ErrQueueClosed after Close once drained.
func (s *Subscription[T]) Next(ctx context.Context) (T, error) {
	return s.queue.Pop(ctx)
}

// TryNext returns the next event if one is queued.
func (s *Subscription[T]) TryNext() (T, bool) {
	return s.queue.TryPop()
}

// Run calls handler for each event until ctx is done or the subscription is closed.
func (s *Subscription[T]) Run(ctx context.Context, handler func(T)) {
	s.queue.Run(ctx, handler)
}

// Len returns the number of undelivered events.
func (s *Subscription[T]) Len() int {
	return s.queue.Len()
}

// Close detaches the subscription. Other subscribers are unaffected.
func (s *Subscription[T]) Close() {
	s.once.Do(func() {
		s.bus.remove(s)
		s.queue.Close()
	})
}
