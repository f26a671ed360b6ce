package catalog

import (
	"maps"
	"slices"
	"sync"
)

// Observable holds a value and notifies subscribers whenever it is replaced.
// Notifications are delivered synchronously and in subscription order.
// A subscriber must not call Set or Subscribe on the same Observable from
// inside its callback; Get and the unsubscribe func are fine.
type Observable[T any] struct {
	pub sync.Mutex

	mu    sync.RWMutex
	value T
	next  uint64
	subs  map[uint64]func(T)
}

func NewObservable[T any](initial T) *Observable[T] {
	return &Observable[T]{value: initial, subs: map[uint64]func(T){}}
}

func (o *Observable[T]) Get() T {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.value
}

// Set replaces the value and notifies every subscriber with it.
func (o *Observable[T]) Set(v T) {
	o.pub.Lock()
	defer o.pub.Unlock()

	o.mu.Lock()
	o.value = v
	fns := o.subscribers()
	o.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

// Subscribe registers fn, calls it once with the current value and returns
// a func that removes the subscription. Calling it more than once is a no-op.
func (o *Observable[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	o.pub.Lock()
	defer o.pub.Unlock()

	o.mu.Lock()
	id := o.next
	o.next++
	o.subs[id] = fn
	v := o.value
	o.mu.Unlock()

	fn(v)

	return func() {
		o.mu.Lock()
		delete(o.subs, id)
		o.mu.Unlock()
	}
}

// Subscribers reports how many callbacks are registered.
func (o *Observable[T]) Subscribers() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.subs)
}

// caller holds o.mu
func (o *Observable[T]) subscribers() []func(T) {
	ids := slices.Sorted(maps.Keys(o.subs))
	fns := make([]func(T), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, o.subs[id])
	}
	return fns
}
