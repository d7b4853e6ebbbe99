package ports

import "github.com/AchilleasB/hostel-portal/portal-service/internal/core/domain"

// Observer receives workflow and live view activity for instrumentation.
type Observer interface {
	RecordSubmitted(kind domain.Kind)
	RecordTransitioned(kind domain.Kind, to domain.Status)
	SubscriptionOpened(kind domain.Kind)
	SubscriptionClosed(kind domain.Kind)
}

// NopObserver discards everything.
type NopObserver struct{}

func (NopObserver) RecordSubmitted(domain.Kind)                   {}
func (NopObserver) RecordTransitioned(domain.Kind, domain.Status) {}
func (NopObserver) SubscriptionOpened(domain.Kind)                {}
func (NopObserver) SubscriptionClosed(domain.Kind)                {}
