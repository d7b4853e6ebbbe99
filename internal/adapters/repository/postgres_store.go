package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/sony/gobreaker"

	"github.com/AchilleasB/hostel-portal/portal-service/internal/config"
	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/domain"
	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/ports"
)

const recordColumns = `kind, id, owner_id, owner_email, status, fields, history, created_at, updated_at, seen_at`

// PostgresStore keeps every record kind in one JSONB-backed table.
type PostgresStore struct {
	db *sql.DB
	cb *gobreaker.CircuitBreaker
}

var _ ports.RecordStore = (*PostgresStore)(nil)

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		db: db,
		cb: config.NewCircuitBreaker("PostgreSQL", domain.ErrNotFound, domain.ErrConflict),
	}
}

func (s *PostgresStore) Create(ctx context.Context, rec domain.Record) (*domain.Record, error) {
	fields, history, err := encodeDocument(rec)
	if err != nil {
		return nil, err
	}
	out, err := s.execute(func() (interface{}, error) {
		row := s.db.QueryRowContext(ctx, `
			INSERT INTO records (kind, id, owner_id, owner_email, status, fields, history)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING `+recordColumns,
			rec.Kind, rec.ID, rec.OwnerID, rec.OwnerEmail, rec.Status, string(fields), string(history))
		return scanRecord(row)
	})
	if err != nil {
		return nil, err
	}
	return out.(*domain.Record), nil
}

func (s *PostgresStore) Get(ctx context.Context, kind domain.Kind, id string) (*domain.Record, error) {
	out, err := s.execute(func() (interface{}, error) {
		row := s.db.QueryRowContext(ctx,
			`SELECT `+recordColumns+` FROM records WHERE kind = $1 AND id = $2`, kind, id)
		return scanRecord(row)
	})
	if err != nil {
		return nil, err
	}
	return out.(*domain.Record), nil
}

func (s *PostgresStore) Query(ctx context.Context, q domain.Query) ([]domain.Record, error) {
	order := "DESC"
	if q.Order == domain.OldestFirst {
		order = "ASC"
	}
	out, err := s.execute(func() (interface{}, error) {
		rows, err := s.db.QueryContext(ctx, `
			SELECT `+recordColumns+`
			FROM records
			WHERE kind = $1 AND ($2::text = '' OR owner_id = $2)
			ORDER BY created_at `+order+`, id `+order,
			q.Kind, q.OwnerID)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		records := []domain.Record{}
		for rows.Next() {
			rec, err := scanRecord(rows)
			if err != nil {
				return nil, err
			}
			records = append(records, *rec)
		}
		return records, rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out.([]domain.Record), nil
}

// UpdateStatus runs the conditional update and the outbox insert in one
// transaction so a transition is never published without being stored.
func (s *PostgresStore) UpdateStatus(ctx context.Context, upd domain.StatusUpdate, outboxPayload []byte) (*domain.Record, error) {
	change, err := json.Marshal([]domain.StatusChange{upd.Change})
	if err != nil {
		return nil, errors.Wrap(err, "encode status change")
	}

	out, err := s.execute(func() (interface{}, error) {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, err
		}
		defer tx.Rollback()

		row := tx.QueryRowContext(ctx, `
			UPDATE records
			SET status = $3,
			    history = history || $4::jsonb,
			    updated_at = $5,
			    seen_at = CASE WHEN $6 THEN $5 ELSE seen_at END
			WHERE kind = $1 AND id = $2 AND status = $7
			RETURNING `+recordColumns,
			upd.Kind, upd.ID, upd.Change.To, string(change), upd.Change.At, upd.MarkSeen, upd.Expected)
		rec, err := scanRecord(row)
		if errors.Is(err, domain.ErrNotFound) {
			var exists bool
			if err := tx.QueryRowContext(ctx,
				`SELECT EXISTS (SELECT 1 FROM records WHERE kind = $1 AND id = $2)`,
				upd.Kind, upd.ID).Scan(&exists); err != nil {
				return nil, err
			}
			if exists {
				return nil, domain.ErrConflict
			}
			return nil, domain.ErrNotFound
		}
		if err != nil {
			return nil, err
		}

		if outboxPayload != nil {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO outbox_events (id, event_type, payload) VALUES ($1, $2, $3)`,
				uuid.NewString(), ports.TransitionEventType, string(outboxPayload)); err != nil {
				return nil, err
			}
		}
		return rec, tx.Commit()
	})
	if err != nil {
		return nil, err
	}
	return out.(*domain.Record), nil
}

func (s *PostgresStore) UpdateFields(ctx context.Context, kind domain.Kind, id string, set map[string]string, unset []string) error {
	if set == nil {
		set = map[string]string{}
	}
	patch, err := json.Marshal(set)
	if err != nil {
		return errors.Wrap(err, "encode fields")
	}
	if unset == nil {
		unset = []string{}
	}

	_, err = s.execute(func() (interface{}, error) {
		res, err := s.db.ExecContext(ctx, `
			UPDATE records
			SET fields = (fields || $3::jsonb) - $4::text[]
			WHERE kind = $1 AND id = $2`,
			kind, id, string(patch), pq.Array(unset))
		if err != nil {
			return nil, err
		}
		return nil, affectedOne(res)
	})
	return err
}

func (s *PostgresStore) Delete(ctx context.Context, kind domain.Kind, id string) error {
	_, err := s.execute(func() (interface{}, error) {
		res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE kind = $1 AND id = $2`, kind, id)
		if err != nil {
			return nil, err
		}
		return nil, affectedOne(res)
	})
	return err
}

func (s *PostgresStore) execute(fn func() (interface{}, error)) (interface{}, error) {
	return breakerCall(s.cb, fn)
}

// breakerCall runs fn behind cb and maps driver failures and an open circuit
// to ErrStoreUnavailable.
func breakerCall(cb *gobreaker.CircuitBreaker, fn func() (interface{}, error)) (interface{}, error) {
	out, err := cb.Execute(fn)
	switch {
	case err == nil:
		return out, nil
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrConflict):
		return nil, err
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, errors.Wrap(domain.ErrStoreUnavailable, err.Error())
	default:
		return nil, unavailable(err)
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*domain.Record, error) {
	var (
		rec       domain.Record
		fields    []byte
		history   []byte
		updatedAt sql.NullTime
		seenAt    sql.NullTime
	)
	err := row.Scan(&rec.Kind, &rec.ID, &rec.OwnerID, &rec.OwnerEmail, &rec.Status,
		&fields, &history, &rec.CreatedAt, &updatedAt, &seenAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(fields, &rec.Fields); err != nil {
		return nil, errors.Wrap(err, "decode fields")
	}
	if err := json.Unmarshal(history, &rec.History); err != nil {
		return nil, errors.Wrap(err, "decode history")
	}
	if len(rec.History) == 0 {
		rec.History = nil
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = nullTime(updatedAt)
	rec.SeenAt = nullTime(seenAt)
	return &rec, nil
}

// encodeDocument marshals the JSONB columns. Callers bind the result as
// text since lib/pq sends []byte as bytea.
func encodeDocument(rec domain.Record) (fields, history []byte, err error) {
	if rec.Fields == nil {
		rec.Fields = map[string]string{}
	}
	if rec.History == nil {
		rec.History = []domain.StatusChange{}
	}
	if fields, err = json.Marshal(rec.Fields); err != nil {
		return nil, nil, errors.Wrap(err, "encode fields")
	}
	if history, err = json.Marshal(rec.History); err != nil {
		return nil, nil, errors.Wrap(err, "encode history")
	}
	return fields, history, nil
}

func affectedOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	u := t.Time.UTC()
	return &u
}
