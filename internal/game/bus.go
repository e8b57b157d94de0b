package game

import "sync"

type subscriber struct {
	id uint64
	fn func(Event)
}

// Bus fans host events out to subscribers. Publish runs handlers
// synchronously on the caller's goroutine, so events published from one
// goroutine are handled in the order they were published.
type Bus struct {
	mu     sync.RWMutex
	subs   map[Kind][]subscriber
	nextID uint64
}

func NewBus() *Bus {
	return &Bus{subs: make(map[Kind][]subscriber)}
}

// Subscribe registers fn for events of type T. The returned function removes
// the subscription and is safe to call more than once.
func Subscribe[T Event](b *Bus, fn func(T)) (unsubscribe func()) {
	var zero T
	kind := zero.Kind()

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[kind] = append(b.subs[kind], subscriber{
		id: id,
		fn: func(e Event) {
			if ev, ok := e.(T); ok {
				fn(ev)
			}
		},
	})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(kind, id) })
	}
}

func (b *Bus) remove(kind Kind, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[kind]
	for i, s := range subs {
		if s.id == id {
			// Copy so in-flight Publish calls keep their own slice.
			next := make([]subscriber, 0, len(subs)-1)
			next = append(next, subs[:i]...)
			next = append(next, subs[i+1:]...)
			b.subs[kind] = next
			return
		}
	}
}

// Publish delivers e to every subscriber of its kind.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	subs := b.subs[e.Kind()]
	b.mu.RUnlock()

	for _, s := range subs {
		s.fn(e)
	}
}

// Subscribers returns how many handlers are registered for kind.
func (b *Bus) Subscribers(kind Kind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[kind])
}
