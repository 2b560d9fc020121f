package sim

import (
	"log/slog"
	"sync"
)

// Listener is notified after every completed tick.
type Listener func()

type subscription struct {
	id int
	fn Listener
}

// Bus fans tick notifications out to listeners in subscription order.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   []subscription
	log    *slog.Logger
}

// NewBus creates an empty bus logging listener failures to log.
func NewBus(log *slog.Logger) *Bus {
	if log == nil {
		log = slog.Default()
	}
	return &Bus{log: log}
}

// Subscribe registers fn and returns a function removing it. The returned
// function is safe to call more than once.
func (b *Bus) Subscribe(fn Listener) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs = append(b.subs, subscription{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus) remove(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Len returns the number of registered listeners.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Notify calls every listener registered at the time of the call. A
// panicking listener is logged and skipped.
func (b *Bus) Notify() {
	b.mu.Lock()
	subs := append([]subscription(nil), b.subs...)
	b.mu.Unlock()

	for _, s := range subs {
		if b.subscribed(s.id) {
			b.invoke(s)
		}
	}
}

// subscribed reports whether id is still registered, so a listener removed by
// an earlier listener in the same round is not called.
func (b *Bus) subscribed(id int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.subs {
		if s.id == id {
			return true
		}
	}
	return false
}

func (b *Bus) invoke(s subscription) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("listener panicked", "subscription", s.id, "panic", r)
		}
	}()
	s.fn()
}
