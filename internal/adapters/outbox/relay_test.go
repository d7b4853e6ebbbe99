package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/domain"
	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/ports"
	"github.com/AchilleasB/hostel-portal/portal-service/internal/mocks"
)

func transitionPayload(t *testing.T, evt ports.TransitionEvent) []byte {
	t.Helper()
	b, err := json.Marshal(evt)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func TestRelay_PublishTransition(t *testing.T) {
	publisher := mocks.NewMockTransitionPublisher()
	relay := NewRelay(nil, "", publisher)

	evt := ports.TransitionEvent{
		RecordID: "op-1",
		Kind:     domain.KindOutpass,
		From:     domain.StatusPendingCap,
		To:       domain.StatusApprovedCap,
		Actor:    "admin@militaryhostel.com",
		OwnerID:  "u1",
		At:       time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := relay.publish(context.Background(), ports.TransitionEventType, transitionPayload(t, evt)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	events := publisher.GetPublishedEvents()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	got := events[0]
	if got.RecordID != evt.RecordID || got.Kind != evt.Kind || got.To != evt.To || got.OwnerID != evt.OwnerID || !got.At.Equal(evt.At) {
		t.Errorf("expected %+v, got %+v", evt, got)
	}
}

func TestRelay_SkipsOtherEventTypes(t *testing.T) {
	publisher := mocks.NewMockTransitionPublisher()
	relay := NewRelay(nil, "", publisher)

	if err := relay.publish(context.Background(), "user.deleted", []byte(`{}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if publisher.GetPublishCount() != 0 {
		t.Error("expected nothing to be published")
	}
}

func TestRelay_BadPayloads(t *testing.T) {
	publisher := mocks.NewMockTransitionPublisher()
	relay := NewRelay(nil, "", publisher)

	payloads := map[string][]byte{
		"not json":       []byte(`{`),
		"missing record": transitionPayload(t, ports.TransitionEvent{Kind: domain.KindOutpass, To: domain.StatusApprovedCap}),
		"missing status": transitionPayload(t, ports.TransitionEvent{RecordID: "x", Kind: domain.KindOutpass}),
	}
	for name, payload := range payloads {
		t.Run(name, func(t *testing.T) {
			err := relay.publish(context.Background(), ports.TransitionEventType, payload)
			if !errors.Is(err, errBadPayload) {
				t.Errorf("expected errBadPayload, got %v", err)
			}
		})
	}
	if publisher.GetPublishCount() != 0 {
		t.Error("bad payloads must not reach the broker")
	}
}

func TestRelay_PublisherErrorIsRetryable(t *testing.T) {
	publisher := mocks.NewMockTransitionPublisher()
	publisher.PublishError = context.DeadlineExceeded
	relay := NewRelay(nil, "", publisher)

	evt := ports.TransitionEvent{RecordID: "c1", Kind: domain.KindComplaint, To: domain.StatusSeen}
	err := relay.publish(context.Background(), ports.TransitionEventType, transitionPayload(t, evt))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected publisher error, got %v", err)
	}
	if errors.Is(err, errBadPayload) {
		t.Error("broker failures must not be treated as bad data")
	}
}

func TestRelay_HealthState(t *testing.T) {
	relay := NewRelay(nil, "", mocks.NewMockTransitionPublisher())

	if !relay.IsHealthy() || !relay.IsReady() {
		t.Fatal("new relay should be healthy and ready")
	}
	if err := relay.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}

	relay.disconnected()
	if relay.IsHealthy() || relay.IsReady() {
		t.Error("expected relay to report unhealthy while reconnecting")
	}
	if err := relay.Ping(context.Background()); !errors.Is(err, ErrNotReady) {
		t.Errorf("expected ErrNotReady, got %v", err)
	}

	relay.succeeded()
	if !relay.IsHealthy() {
		t.Error("relaying an event should restore health")
	}

	relay.mu.Lock()
	relay.lastSuccess = time.Now().Add(-2 * staleAfter)
	relay.mu.Unlock()
	if relay.IsReady() {
		t.Error("stale relay must not report ready")
	}
	if !relay.IsHealthy() {
		t.Error("staleness alone does not make the relay unhealthy")
	}
}
