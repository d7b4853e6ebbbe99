package feed

import (
	"context"
	"sync"

	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/domain"
	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/ports"
)

const subscriberBuffer = 64

// MemoryFeed fans events out to subscribers of the same process.
type MemoryFeed struct {
	mu   sync.Mutex
	subs map[*memorySubscriber]struct{}
}

var _ ports.ChangeFeed = (*MemoryFeed)(nil)

// memorySubscriber remembers the kinds whose events did not fit in out.
// Its pump later delivers one OpUpdated event per such kind.
type memorySubscriber struct {
	out   chan domain.ChangeEvent
	wake  chan struct{}
	dirty map[domain.Kind]struct{}
}

func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{subs: make(map[*memorySubscriber]struct{})}
}

// Publish never blocks. When a subscriber is behind, events are coalesced
// per kind rather than dropped.
func (f *MemoryFeed) Publish(_ context.Context, evt domain.ChangeEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for sub := range f.subs {
		if _, pending := sub.dirty[evt.Kind]; !pending {
			select {
			case sub.out <- evt:
				continue
			default:
			}
		}
		sub.dirty[evt.Kind] = struct{}{}
		select {
		case sub.wake <- struct{}{}:
		default:
		}
	}
	return nil
}

func (f *MemoryFeed) Subscribe(ctx context.Context) (<-chan domain.ChangeEvent, error) {
	sub := &memorySubscriber{
		out:   make(chan domain.ChangeEvent, subscriberBuffer),
		wake:  make(chan struct{}, 1),
		dirty: make(map[domain.Kind]struct{}),
	}
	f.mu.Lock()
	f.subs[sub] = struct{}{}
	f.mu.Unlock()

	go f.pump(ctx, sub)
	return sub.out, nil
}

// pump owns sub.out once the subscriber is registered: it flushes coalesced
// kinds and is the only goroutine that closes the channel.
func (f *MemoryFeed) pump(ctx context.Context, sub *memorySubscriber) {
	defer func() {
		f.mu.Lock()
		delete(f.subs, sub)
		close(sub.out)
		f.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.wake:
		}

		// Swap the set before sending so a publish racing the flush marks
		// its kind again instead of being absorbed.
		f.mu.Lock()
		dirty := sub.dirty
		sub.dirty = make(map[domain.Kind]struct{})
		f.mu.Unlock()

		for kind := range dirty {
			forward(ctx, sub.out, domain.ChangeEvent{Kind: kind, Op: domain.OpUpdated})
			if ctx.Err() != nil {
				return
			}
		}
	}
}
