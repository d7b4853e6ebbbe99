package feed

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/domain"
	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/ports"
)

const (
	changeChannelName            = "record_changes"
	listenerMinReconnectInterval = 10 * time.Second
	listenerMaxReconnectInterval = time.Minute
	listenerPingInterval         = 90 * time.Second
)

// PostgresFeed carries change events over LISTEN/NOTIFY so every API
// replica sharing the database sees every write.
type PostgresFeed struct {
	db    *sql.DB
	dbURL string
}

var _ ports.ChangeFeed = (*PostgresFeed)(nil)

func NewPostgresFeed(db *sql.DB, dbURL string) *PostgresFeed {
	return &PostgresFeed{db: db, dbURL: dbURL}
}

func (f *PostgresFeed) Publish(ctx context.Context, evt domain.ChangeEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return errors.Wrap(err, "encode change event")
	}
	if _, err := f.db.ExecContext(ctx, `SELECT pg_notify($1, $2)`, changeChannelName, string(payload)); err != nil {
		return errors.Wrap(err, "notify change")
	}
	return nil
}

func (f *PostgresFeed) Subscribe(ctx context.Context) (<-chan domain.ChangeEvent, error) {
	reportProblem := func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.Printf("change feed: listener error: %v", err)
		}
	}
	listener := pq.NewListener(f.dbURL, listenerMinReconnectInterval, listenerMaxReconnectInterval, reportProblem)
	if err := listener.Listen(changeChannelName); err != nil {
		listener.Close()
		return nil, errors.Wrapf(err, "listen on %s", changeChannelName)
	}
	log.Printf("change feed: listening on '%s'", changeChannelName)

	out := make(chan domain.ChangeEvent, subscriberBuffer)
	go func() {
		defer close(out)
		defer listener.Close()

		ticker := time.NewTicker(listenerPingInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				go listener.Ping()
			case n := <-listener.Notify:
				if n == nil {
					// Reconnected: notifications sent meanwhile are gone, so
					// every view refreshes.
					for _, evt := range refreshAll() {
						forward(ctx, out, evt)
					}
					continue
				}
				var evt domain.ChangeEvent
				if err := json.Unmarshal([]byte(n.Extra), &evt); err != nil {
					log.Printf("change feed: dropping malformed notification: %v", err)
					continue
				}
				forward(ctx, out, evt)
			}
		}
	}()
	return out, nil
}

// refreshAll returns one update per kind, which makes every live view
// re-query.
func refreshAll() []domain.ChangeEvent {
	kinds := domain.AllKinds()
	events := make([]domain.ChangeEvent, 0, len(kinds))
	for _, kind := range kinds {
		events = append(events, domain.ChangeEvent{Kind: kind, Op: domain.OpUpdated})
	}
	return events
}

func forward(ctx context.Context, out chan<- domain.ChangeEvent, evt domain.ChangeEvent) {
	select {
	case out <- evt:
	case <-ctx.Done():
	}
}
