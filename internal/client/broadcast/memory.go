package broadcast

import (
	"context"
	"sync"
)

// MemoryBus fans events out to subscribers in the same process.
type MemoryBus struct {
	mu   sync.Mutex
	subs map[chan Event]<-chan struct{}
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[chan Event]<-chan struct{})}
}

func (b *MemoryBus) Publish(ctx context.Context, e Event) error {
	b.mu.Lock()
	targets := make(map[chan Event]<-chan struct{}, len(b.subs))
	for ch, done := range b.subs {
		targets[ch] = done
	}
	b.mu.Unlock()

	for ch, done := range targets {
		select {
		case ch <- e:
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context) (<-chan Event, error) {
	in := make(chan Event, subscriberBuffer)
	out := make(chan Event, subscriberBuffer)

	b.mu.Lock()
	b.subs[in] = ctx.Done()
	b.mu.Unlock()

	go func() {
		defer close(out)
		defer func() {
			b.mu.Lock()
			delete(b.subs, in)
			b.mu.Unlock()
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case e := <-in:
				select {
				case out <- e:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
