package broadcast

import "sync"

const initialQueueSize = 16

// Subscription is a handle to a registered handler.
type Subscription struct {
	once   sync.Once
	cancel func()
}

// Unsubscribe stops further delivery to this handler. It does not wait for
// an in-flight handler call to return. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.cancel == nil {
		return
	}
	s.once.Do(s.cancel)
}

type subscriber[T any] struct {
	queue *queue[T]
	fn    func(T)
}

func (s *subscriber[T]) run() {
	for {
		v, ok := s.queue.pop()
		if !ok {
			return
		}
		s.fn(v)
	}
}

// Broadcaster fans every published value out to the subscribers registered
// at publish time. There is no history: a value published with no
// subscribers is lost.
type Broadcaster[T any] struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]*subscriber[T]
	closed bool
}

// New creates an empty Broadcaster.
func New[T any]() *Broadcaster[T] {
	return &Broadcaster[T]{
		subs: make(map[uint64]*subscriber[T]),
	}
}

// Subscribe registers fn for every value published from now on.
func (b *Broadcaster[T]) Subscribe(fn func(T)) *Subscription {
	return b.subscribe(fn)
}

// subscribe registers fn, queueing initial ahead of any later publish.
func (b *Broadcaster[T]) subscribe(fn func(T), initial ...T) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed || fn == nil {
		return &Subscription{}
	}

	s := &subscriber[T]{
		queue: newQueue[T](initialQueueSize),
		fn:    fn,
	}
	for _, v := range initial {
		s.queue.push(v)
	}

	b.nextID++
	id := b.nextID
	b.subs[id] = s
	go s.run()

	return &Subscription{cancel: func() { b.remove(id) }}
}

func (b *Broadcaster[T]) remove(id uint64) {
	b.mu.Lock()
	s, ok := b.subs[id]
	delete(b.subs, id)
	b.mu.Unlock()

	if ok {
		s.queue.close()
	}
}

// Publish queues v for every current subscriber.
func (b *Broadcaster[T]) Publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, s := range b.subs {
		s.queue.push(v)
	}
}

// Len returns the number of current subscribers.
func (b *Broadcaster[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close drops every subscriber. Later subscriptions are inert.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	subs := b.subs
	b.subs = make(map[uint64]*subscriber[T])
	b.closed = true
	b.mu.Unlock()

	for _, s := range subs {
		s.queue.close()
	}
}

// Latest is a Broadcaster that remembers the most recent value and replays
// it to every new subscriber before any later value.
type Latest[T comparable] struct {
	mu    sync.Mutex
	value T
	fan   *Broadcaster[T]
}

// NewLatest creates a Latest holding initial.
func NewLatest[T comparable](initial T) *Latest[T] {
	return &Latest[T]{
		value: initial,
		fan:   New[T](),
	}
}

// Set publishes v if it differs from the current value. Reports whether a
// transition was published.
func (l *Latest[T]) Set(v T) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if v == l.value {
		return false
	}
	l.value = v
	l.fan.Publish(v)
	return true
}

// Get returns the current value.
func (l *Latest[T]) Get() T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.value
}

// Subscribe delivers the current value to fn, then every later one.
func (l *Latest[T]) Subscribe(fn func(T)) *Subscription {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fan.subscribe(fn, l.value)
}

// Len returns the number of current subscribers.
func (l *Latest[T]) Len() int {
	return l.fan.Len()
}

// Close drops every subscriber.
func (l *Latest[T]) Close() {
	l.fan.Close()
}
