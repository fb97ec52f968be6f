package supabase

import (
	"sync"

	"supatodo/internal/service"
)

// broker fans session change events out to subscribers.
type broker struct {
	mu   sync.Mutex
	next int
	subs map[int]func(service.Event)
}

func newBroker() *broker {
	return &broker{subs: make(map[int]func(service.Event))}
}

func (b *broker) subscribe(fn func(service.Event)) func() {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// publish calls every subscriber outside the lock, so a subscriber may
// unsubscribe from within its callback.
func (b *broker) publish(e service.Event) {
	b.mu.Lock()
	fns := make([]func(service.Event), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(e)
	}
}
