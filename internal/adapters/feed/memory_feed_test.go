package feed

import (
	"context"
	"testing"
	"time"

	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/domain"
)

func TestMemoryFeed_FanOut(t *testing.T) {
	f := NewMemoryFeed()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, _ := f.Subscribe(ctx)
	b, _ := f.Subscribe(ctx)

	evt := domain.ChangeEvent{Kind: domain.KindOutpass, RecordID: "r1", Op: domain.OpCreated}
	if err := f.Publish(ctx, evt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for name, ch := range map[string]<-chan domain.ChangeEvent{"a": a, "b": b} {
		select {
		case got := <-ch:
			if got != evt {
				t.Errorf("%s: expected %+v, got %+v", name, evt, got)
			}
		case <-time.After(time.Second):
			t.Errorf("%s: no event received", name)
		}
	}
}

func TestMemoryFeed_PublishNeverBlocks(t *testing.T) {
	f := NewMemoryFeed()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, _ = f.Subscribe(ctx)

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*3; i++ {
			_ = f.Publish(ctx, domain.ChangeEvent{Kind: domain.KindNotice})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
}

func TestMemoryFeed_CancelClosesSubscription(t *testing.T) {
	f := NewMemoryFeed()
	ctx, cancel := context.WithCancel(context.Background())
	ch, _ := f.Subscribe(ctx)

	cancel()
	select {
	case _, open := <-ch:
		if open {
			t.Error("expected channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("subscription not closed after cancel")
	}

	// Publishing after the subscriber left must not panic.
	_ = f.Publish(context.Background(), domain.ChangeEvent{Kind: domain.KindNotice})
}

func TestForward_GivesUpOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		forward(ctx, make(chan domain.ChangeEvent), domain.ChangeEvent{Kind: domain.KindNotice})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("forward blocked after cancel")
	}
}

func TestMemoryFeed_SlowSubscriberStillSeesEveryKind(t *testing.T) {
	f := NewMemoryFeed()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, _ := f.Subscribe(ctx)

	for i := 0; i < subscriberBuffer; i++ {
		_ = f.Publish(ctx, domain.ChangeEvent{Kind: domain.KindNotice, RecordID: "n"})
	}
	// The buffer is full; these must be coalesced, not lost.
	_ = f.Publish(ctx, domain.ChangeEvent{Kind: domain.KindOutpass, RecordID: "o1"})
	_ = f.Publish(ctx, domain.ChangeEvent{Kind: domain.KindOutpass, RecordID: "o2"})

	seen := map[domain.Kind]int{}
	timeout := time.After(2 * time.Second)
	for seen[domain.KindOutpass] == 0 {
		select {
		case evt := <-ch:
			seen[evt.Kind]++
		case <-timeout:
			t.Fatalf("outpass change never delivered, got %v", seen)
		}
	}
	if seen[domain.KindNotice] != subscriberBuffer {
		t.Errorf("expected %d notice events before the outpass refresh, got %d", subscriberBuffer, seen[domain.KindNotice])
	}

	// Once drained, events flow directly again.
	evt := domain.ChangeEvent{Kind: domain.KindComplaint, RecordID: "c1", Op: domain.OpCreated}
	_ = f.Publish(ctx, evt)
	for {
		select {
		case got := <-ch:
			if got.Kind == domain.KindOutpass && got.Op == domain.OpUpdated {
				continue // a second coalesced refresh may still be queued
			}
			if got != evt {
				t.Errorf("expected %+v, got %+v", evt, got)
			}
			return
		case <-time.After(time.Second):
			t.Fatal("event not delivered after drain")
		}
	}
}
