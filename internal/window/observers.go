package window

import "sync"

// Observers is a set of handlers notified in subscription order.
type Observers[T any] struct {
	mu       sync.Mutex
	nextID   int
	handlers []handler[T]
}

type handler[T any] struct {
	id int
	fn func(T)
}

// Subscribe registers fn and returns a function that removes it. The returned
// function is safe to call more than once.
func (o *Observers[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.nextID++
	id := o.nextID
	o.handlers = append(o.handlers, handler[T]{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { o.remove(id) })
	}
}

// Notify calls every handler with v. Handlers run outside the lock, so a
// handler may subscribe or unsubscribe without deadlocking.
func (o *Observers[T]) Notify(v T) {
	o.mu.Lock()
	snapshot := make([]handler[T], len(o.handlers))
	copy(snapshot, o.handlers)
	o.mu.Unlock()

	for _, h := range snapshot {
		h.fn(v)
	}
}

// Len reports the number of registered handlers.
func (o *Observers[T]) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.handlers)
}

func (o *Observers[T]) remove(id int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for i, h := range o.handlers {
		if h.id == id {
			o.handlers = append(o.handlers[:i:i], o.handlers[i+1:]...)
			return
		}
	}
}
