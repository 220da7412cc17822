package broadcast

import (
	"sync"
	"testing"
	"time"
)

// collector records delivered values and signals on every delivery.
type collector[T any] struct {
	mu     sync.Mutex
	values []T
	notify chan struct{}
}

func newCollector[T any]() *collector[T] {
	return &collector[T]{notify: make(chan struct{}, 1024)}
}

func (c *collector[T]) add(v T) {
	c.mu.Lock()
	c.values = append(c.values, v)
	c.mu.Unlock()
	c.notify <- struct{}{}
}

func (c *collector[T]) waitFor(t *testing.T, n int) []T {
	t.Helper()
	timeout := time.After(time.Second)
	for {
		c.mu.Lock()
		if len(c.values) >= n {
			out := append([]T(nil), c.values...)
			c.mu.Unlock()
			return out
		}
		c.mu.Unlock()

		select {
		case <-c.notify:
		case <-timeout:
			t.Fatalf("timeout waiting for %d values, got %d", n, len(c.snapshot()))
		}
	}
}

func (c *collector[T]) snapshot() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]T(nil), c.values...)
}

func TestBroadcaster_FanOut(t *testing.T) {
	b := New[int]()
	c1 := newCollector[int]()
	c2 := newCollector[int]()

	b.Subscribe(c1.add)
	b.Subscribe(c2.add)

	for i := 1; i <= 3; i++ {
		b.Publish(i)
	}

	for _, c := range []*collector[int]{c1, c2} {
		got := c.waitFor(t, 3)
		for i, want := range []int{1, 2, 3} {
			if got[i] != want {
				t.Errorf("value %d = %d, want %d", i, got[i], want)
			}
		}
	}
}

func TestBroadcaster_NoReplayForLateSubscriber(t *testing.T) {
	b := New[string]()
	b.Publish("lost")

	c := newCollector[string]()
	b.Subscribe(c.add)
	b.Publish("seen")

	c.waitFor(t, 1)
	time.Sleep(20 * time.Millisecond)
	got := c.snapshot()
	if len(got) != 1 || got[0] != "seen" {
		t.Errorf("got %v, want [seen]", got)
	}
}

func TestBroadcaster_Unsubscribe(t *testing.T) {
	b := New[int]()
	kept := newCollector[int]()
	dropped := newCollector[int]()

	b.Subscribe(kept.add)
	sub := b.Subscribe(dropped.add)

	b.Publish(1)
	dropped.waitFor(t, 1)

	sub.Unsubscribe()
	sub.Unsubscribe()

	if b.Len() != 1 {
		t.Errorf("Len() = %d, want 1", b.Len())
	}

	b.Publish(2)
	kept.waitFor(t, 2)

	time.Sleep(20 * time.Millisecond)
	if got := dropped.snapshot(); len(got) != 1 {
		t.Errorf("unsubscribed handler got %v, want only [1]", got)
	}
}

func TestBroadcaster_SlowSubscriberDoesNotBlock(t *testing.T) {
	b := New[int]()
	release := make(chan struct{})
	defer close(release)

	b.Subscribe(func(int) { <-release })
	fast := newCollector[int]()
	b.Subscribe(fast.add)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			b.Publish(i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
	fast.waitFor(t, 100)
}

func TestBroadcaster_HandlerCanUnsubscribeItself(t *testing.T) {
	b := New[int]()
	c := newCollector[int]()

	var sub *Subscription
	ready := make(chan struct{})
	sub = b.Subscribe(func(v int) {
		<-ready
		c.add(v)
		sub.Unsubscribe()
	})
	close(ready)

	b.Publish(1)
	c.waitFor(t, 1)
	b.Publish(2)

	time.Sleep(20 * time.Millisecond)
	if got := c.snapshot(); len(got) != 1 {
		t.Errorf("got %v, want [1]", got)
	}
}

func TestBroadcaster_Close(t *testing.T) {
	b := New[int]()
	c := newCollector[int]()
	b.Subscribe(c.add)

	b.Close()
	b.Publish(1)

	sub := b.Subscribe(c.add)
	sub.Unsubscribe()

	time.Sleep(20 * time.Millisecond)
	if got := c.snapshot(); len(got) != 0 {
		t.Errorf("got %v after Close, want nothing", got)
	}
	if b.Len() != 0 {
		t.Errorf("Len() = %d after Close, want 0", b.Len())
	}
}

func TestLatest_ReplaysCurrentValue(t *testing.T) {
	l := NewLatest("init")

	early := newCollector[string]()
	l.Subscribe(early.add)

	l.Set("connected")

	late := newCollector[string]()
	l.Subscribe(late.add)

	l.Set("disconnected")

	want := map[*collector[string]][]string{
		early: {"init", "connected", "disconnected"},
		late:  {"connected", "disconnected"},
	}
	for c, w := range want {
		got := c.waitFor(t, len(w))
		for i := range w {
			if got[i] != w[i] {
				t.Errorf("got %v, want %v", got, w)
				break
			}
		}
	}
}

func TestLatest_SkipsRepeatedValue(t *testing.T) {
	l := NewLatest(0)
	c := newCollector[int]()
	l.Subscribe(c.add)

	if l.Set(0) {
		t.Error("Set(current) reported a transition")
	}
	if !l.Set(1) {
		t.Error("Set(new) reported no transition")
	}
	l.Set(1)
	l.Set(2)

	c.waitFor(t, 3)
	time.Sleep(20 * time.Millisecond)
	got := c.snapshot()
	want := []int{0, 1, 2}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got %v, want %v", got, want)
		}
	}
	if l.Get() != 2 {
		t.Errorf("Get() = %d, want 2", l.Get())
	}
}
