package presence

import "sync"

// CallbackList is a small thread-safe collection of subscriber callbacks.
// Add returns a cancel function that removes the registration; Each invokes
// a visitor for every callback registered at the time of the call. Dispatch
// order is unspecified.
//
// Fetcher implementations can embed one CallbackList per event to satisfy
// the OnPresence/OnNote contract; the Core uses it for its outward events.
type CallbackList[T any] struct {
	mu   sync.Mutex
	next int
	fns  map[int]T
}

// Add registers a callback and returns a function that removes it.
// Cancelling twice is a no-op.
func (l *CallbackList[T]) Add(fn T) (cancel func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = make(map[int]T)
	}
	id := l.next
	l.next++
	l.fns[id] = fn
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.fns, id)
	}
}

// Each calls visit for every registered callback. The callback set is
// snapshotted first, so callbacks may register or cancel listeners without
// deadlocking the list.
func (l *CallbackList[T]) Each(visit func(T)) {
	l.mu.Lock()
	snapshot := make([]T, 0, len(l.fns))
	for _, fn := range l.fns {
		snapshot = append(snapshot, fn)
	}
	l.mu.Unlock()

	for _, fn := range snapshot {
		visit(fn)
	}
}

// Len returns the number of registered callbacks.
func (l *CallbackList[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.fns)
}
