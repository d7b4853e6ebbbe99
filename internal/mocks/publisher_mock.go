package mocks

import (
	"context"
	"sync"

	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/ports"
)

// MockTransitionPublisher implements ports.TransitionEventPublisher so the
// outbox relay can be tested without RabbitMQ.
type MockTransitionPublisher struct {
	mu sync.RWMutex

	PublishedEvents []ports.TransitionEvent

	// Error injection
	PublishError error

	PublishCallCount int
}

var _ ports.TransitionEventPublisher = (*MockTransitionPublisher)(nil)

func NewMockTransitionPublisher() *MockTransitionPublisher {
	return &MockTransitionPublisher{
		PublishedEvents: make([]ports.TransitionEvent, 0),
	}
}

func (m *MockTransitionPublisher) PublishTransition(ctx context.Context, evt ports.TransitionEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.PublishCallCount++

	if m.PublishError != nil {
		return m.PublishError
	}

	m.PublishedEvents = append(m.PublishedEvents, evt)
	return nil
}

// GetPublishedEvents returns a copy of every event published so far.
func (m *MockTransitionPublisher) GetPublishedEvents() []ports.TransitionEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]ports.TransitionEvent, len(m.PublishedEvents))
	copy(events, m.PublishedEvents)
	return events
}

func (m *MockTransitionPublisher) GetPublishCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.PublishCallCount
}
