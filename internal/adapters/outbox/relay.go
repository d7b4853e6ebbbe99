package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/sony/gobreaker"

	"github.com/AchilleasB/hostel-portal/portal-service/internal/config"
	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/ports"
)

const (
	// PostgreSQL NOTIFY/LISTEN configuration
	listenerMinReconnectInterval = 10 * time.Second
	listenerMaxReconnectInterval = time.Minute
	outboxChannelName            = "outbox_channel"

	eventProcessTimeout = 30 * time.Second
	sweepTimeout        = 60 * time.Second
	sweepInterval       = 90 * time.Second

	staleAfter    = 5 * time.Minute
	maxSweepBatch = 100
)

const (
	claimOneSQL = `
		SELECT id, event_type, payload
		FROM outbox_events
		WHERE id = $1 AND processed_at IS NULL
		FOR UPDATE SKIP LOCKED`

	claimBatchSQL = `
		SELECT id, event_type, payload
		FROM outbox_events
		WHERE processed_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED`

	markProcessedSQL = `UPDATE outbox_events SET processed_at = NOW() WHERE id = $1`
)

// errBadPayload marks outbox rows that can never be published.
var errBadPayload = errors.New("invalid outbox payload")

// ErrNotReady is reported by Ping while the relay cannot make progress.
var ErrNotReady = errors.New("outbox relay not ready")

type outboxRow struct {
	ID        string
	EventType string
	Payload   []byte
}

// Relay drains outbox_events into the transition publisher. It wakes on
// NOTIFY for each new row and sweeps periodically for anything it missed.
type Relay struct {
	db        *sql.DB
	dbURL     string
	publisher ports.TransitionEventPublisher
	dbCB      *gobreaker.CircuitBreaker

	mu          sync.RWMutex
	lastSuccess time.Time
	connected   bool
}

func NewRelay(db *sql.DB, dbURL string, publisher ports.TransitionEventPublisher) *Relay {
	return &Relay{
		db:          db,
		dbURL:       dbURL,
		publisher:   publisher,
		dbCB:        config.NewCircuitBreaker("Relay-PostgreSQL"),
		lastSuccess: time.Now(),
		connected:   true,
	}
}

// IsHealthy is false while the listener is reconnecting. An open breaker is
// degraded, not dead.
func (r *Relay) IsHealthy() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.connected
}

// IsReady additionally requires a closed breaker and recent progress.
func (r *Relay) IsReady() bool {
	if r.dbCB.State() == gobreaker.StateOpen {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.connected && time.Since(r.lastSuccess) <= staleAfter
}

// Ping adapts IsReady to a readiness probe dependency.
func (r *Relay) Ping(context.Context) error {
	if !r.IsReady() {
		return ErrNotReady
	}
	return nil
}

func (r *Relay) succeeded() {
	r.mu.Lock()
	r.lastSuccess = time.Now()
	r.connected = true
	r.mu.Unlock()
}

func (r *Relay) disconnected() {
	r.mu.Lock()
	r.connected = false
	r.mu.Unlock()
}

// Start blocks, relaying events until ctx is cancelled.
func (r *Relay) Start(ctx context.Context) error {
	listener := pq.NewListener(r.dbURL, listenerMinReconnectInterval, listenerMaxReconnectInterval,
		func(_ pq.ListenerEventType, err error) {
			if err != nil {
				log.Printf("outbox relay: listener error: %v", err)
			}
		})
	defer listener.Close()

	if err := listener.Listen(outboxChannelName); err != nil {
		return errors.Wrapf(err, "listen on %s", outboxChannelName)
	}
	log.Printf("outbox relay: listening on '%s'", outboxChannelName)

	// Rows written while the relay was down.
	r.sweep(ctx)

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("outbox relay: shutting down...")
			return ctx.Err()

		case n := <-listener.Notify:
			if n == nil {
				log.Println("outbox relay: connection lost, reconnecting")
				r.disconnected()
				continue
			}
			if err := r.relayOne(ctx, n.Extra); err != nil {
				log.Printf("outbox relay: event %s: %v", n.Extra, err)
				continue
			}
			r.succeeded()

		case <-ticker.C:
			go listener.Ping()
			r.sweep(ctx)
		}
	}
}

func (r *Relay) sweep(ctx context.Context) {
	if err := r.relayPending(ctx); err != nil {
		log.Printf("outbox relay: sweep failed: %v", err)
		return
	}
	r.succeeded()
}

// publish decodes one outbox row and hands it to the broker. Rows of other
// event types are acknowledged without publishing.
func (r *Relay) publish(ctx context.Context, eventType string, payload []byte) error {
	if eventType != ports.TransitionEventType {
		return nil
	}
	var evt ports.TransitionEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		return errors.Wrap(errBadPayload, err.Error())
	}
	if evt.RecordID == "" || evt.Kind == "" || evt.To == "" {
		return errors.Wrap(errBadPayload, "missing record, kind or target status")
	}
	return r.publisher.PublishTransition(ctx, evt)
}

// settle publishes row and marks it processed within tx. Rows that can
// never be published are marked too, so they are not retried forever.
func (r *Relay) settle(ctx context.Context, tx *sql.Tx, row outboxRow) error {
	if err := r.publish(ctx, row.EventType, row.Payload); err != nil {
		if !errors.Is(err, errBadPayload) {
			return err
		}
		log.Printf("outbox relay: discarding %s: %v", row.ID, err)
	}
	_, err := tx.ExecContext(ctx, markProcessedSQL, row.ID)
	return err
}

func (r *Relay) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	_, err := r.dbCB.Execute(func() (interface{}, error) {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, err
		}
		defer tx.Rollback()

		if err := fn(tx); err != nil {
			return nil, err
		}
		return nil, tx.Commit()
	})
	return err
}

// relayOne handles the row named by a notification. A row already claimed
// or processed by another relay is skipped.
func (r *Relay) relayOne(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, eventProcessTimeout)
	defer cancel()

	return r.inTx(ctx, func(tx *sql.Tx) error {
		var row outboxRow
		err := tx.QueryRowContext(ctx, claimOneSQL, id).Scan(&row.ID, &row.EventType, &row.Payload)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		return r.settle(ctx, tx, row)
	})
}

// relayPending drains up to maxSweepBatch unprocessed rows, oldest first.
// A broker failure leaves its row for the next sweep.
func (r *Relay) relayPending(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	return r.inTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, claimBatchSQL, maxSweepBatch)
		if err != nil {
			return err
		}
		var pending []outboxRow
		for rows.Next() {
			var row outboxRow
			if err := rows.Scan(&row.ID, &row.EventType, &row.Payload); err != nil {
				rows.Close()
				return err
			}
			pending = append(pending, row)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, row := range pending {
			if err := r.settle(ctx, tx, row); err != nil {
				if errors.Is(err, ctx.Err()) {
					return err
				}
				log.Printf("outbox relay: %s left for retry: %v", row.ID, err)
			}
		}
		if len(pending) > 0 {
			log.Printf("outbox relay: swept %d events", len(pending))
		}
		return nil
	})
}
