package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/domain"
	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/ports"
)

// LiveViewService keeps every open dashboard view in sync with the store.
// A single goroutine consumes the change feed; each subscription refreshes
// on its own goroutine so one slow query never holds up the others.
type LiveViewService struct {
	store    ports.RecordStore
	feed     ports.ChangeFeed
	observer ports.Observer
	now      func() time.Time

	mu   sync.Mutex
	subs map[string]*subscription
}

var _ ports.LiveViewService = (*LiveViewService)(nil)

func NewLiveViewService(store ports.RecordStore, feed ports.ChangeFeed, observer ports.Observer) *LiveViewService {
	if observer == nil {
		observer = ports.NopObserver{}
	}
	return &LiveViewService{
		store:    store,
		feed:     feed,
		observer: observer,
		now:      func() time.Time { return time.Now().UTC() },
		subs:     make(map[string]*subscription),
	}
}

// Start subscribes to the change feed and dispatches events until ctx is
// cancelled. It returns once the feed subscription is in place.
func (s *LiveViewService) Start(ctx context.Context) error {
	events, err := s.feed.Subscribe(ctx)
	if err != nil {
		return errors.Wrap(err, "subscribe to change feed")
	}
	go func() {
		for evt := range events {
			s.dispatch(evt)
		}
		log.Println("live views: change feed closed")
	}()
	return nil
}

// Subscribe opens a view and delivers its initial snapshot before returning.
// An existing subscription for the same view and query is torn down first.
func (s *LiveViewService) Subscribe(ctx context.Context, req ports.ViewRequest) (ports.Subscription, error) {
	sub := &subscription{
		key:     req.ViewID + "|" + req.Query.Key(),
		req:     req,
		out:     make(chan domain.Snapshot, 1),
		refresh: make(chan struct{}, 1),
		done:    make(chan struct{}),
		owner:   s,
	}

	s.mu.Lock()
	prev := s.subs[sub.key]
	s.subs[sub.key] = sub
	s.mu.Unlock()
	if prev != nil {
		prev.Unsubscribe()
	}
	s.observer.SubscriptionOpened(req.Query.Kind)

	// Events that arrive while the initial snapshot loads leave a pending
	// refresh behind, so nothing is missed.
	snap, err := s.snapshot(context.WithoutCancel(ctx), req)
	if err != nil {
		sub.Unsubscribe()
		return nil, err
	}
	sub.deliver(snap)

	go sub.run()
	go func() {
		select {
		case <-ctx.Done():
			sub.Unsubscribe()
		case <-sub.done:
		}
	}()
	return sub, nil
}

// Active reports the number of open subscriptions.
func (s *LiveViewService) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func (s *LiveViewService) dispatch(evt domain.ChangeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		if sub.interestedIn(evt) {
			sub.poke()
		}
	}
}

func (s *LiveViewService) snapshot(ctx context.Context, req ports.ViewRequest) (domain.Snapshot, error) {
	records, err := s.store.Query(ctx, req.Query)
	if err != nil {
		return domain.Snapshot{}, errors.Wrapf(err, "snapshot %s", req.Query.Kind)
	}
	domain.SortRecords(records, req.Query.Order)
	if req.Transform != nil {
		records = req.Transform(records)
	}
	if records == nil {
		records = []domain.Record{}
	}
	return domain.Snapshot{Kind: req.Query.Kind, Records: records, At: s.now()}, nil
}

func (s *LiveViewService) remove(sub *subscription) {
	s.mu.Lock()
	if s.subs[sub.key] == sub {
		delete(s.subs, sub.key)
	}
	s.mu.Unlock()
	s.observer.SubscriptionClosed(sub.req.Query.Kind)
}

type subscription struct {
	key     string
	req     ports.ViewRequest
	owner   *LiveViewService
	refresh chan struct{}
	done    chan struct{}

	mu     sync.Mutex
	out    chan domain.Snapshot
	closed bool
	once   sync.Once
}

func (sub *subscription) Snapshots() <-chan domain.Snapshot {
	return sub.out
}

func (sub *subscription) Unsubscribe() {
	sub.once.Do(func() {
		sub.mu.Lock()
		sub.closed = true
		close(sub.done)
		close(sub.out)
		sub.mu.Unlock()
		sub.owner.remove(sub)
	})
}

func (sub *subscription) interestedIn(evt domain.ChangeEvent) bool {
	q := sub.req.Query
	if evt.Kind != q.Kind {
		return false
	}
	// Deletions may not know the owner; refresh to be safe.
	return q.OwnerID == "" || evt.OwnerID == "" || evt.OwnerID == q.OwnerID
}

func (sub *subscription) poke() {
	select {
	case sub.refresh <- struct{}{}:
	default:
	}
}

func (sub *subscription) run() {
	for {
		select {
		case <-sub.done:
			return
		case <-sub.refresh:
			snap, err := sub.owner.snapshot(context.Background(), sub.req)
			if err != nil {
				log.Printf("live views: refresh of %s failed: %v", sub.key, err)
				continue
			}
			sub.deliver(snap)
		}
	}
}

// deliver replaces any snapshot the reader has not picked up yet.
func (sub *subscription) deliver(snap domain.Snapshot) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.closed {
		return
	}
	select {
	case <-sub.out:
	default:
	}
	sub.out <- snap
}
