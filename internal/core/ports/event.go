package ports

import (
	"context"
	"time"

	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/domain"
)

// TransitionEventType tags outbox rows written for status transitions.
const TransitionEventType = "record.transitioned"

// TransitionEvent is written to the outbox for every status transition and
// relayed to the message broker.
type TransitionEvent struct {
	RecordID string        `json:"record_id"`
	Kind     domain.Kind   `json:"kind"`
	From     domain.Status `json:"from"`
	To       domain.Status `json:"to"`
	Actor    string        `json:"actor"`
	OwnerID  string        `json:"owner_id,omitempty"`
	At       time.Time     `json:"at"`
}

type TransitionEventPublisher interface {
	PublishTransition(ctx context.Context, evt TransitionEvent) error
}

// ChangeFeed carries change notifications between writers and live views,
// possibly across processes.
type ChangeFeed interface {
	Publish(ctx context.Context, evt domain.ChangeEvent) error
	// Subscribe delivers every event published after it returns until ctx
	// is cancelled, then closes the channel.
	Subscribe(ctx context.Context) (<-chan domain.ChangeEvent, error)
}
