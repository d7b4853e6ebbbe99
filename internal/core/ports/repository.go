package ports

import (
	"context"

	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/domain"
)

// RecordStore is the document store every record kind is persisted in.
// Creation and update timestamps are assigned by the store.
type RecordStore interface {
	Create(ctx context.Context, rec domain.Record) (*domain.Record, error)
	Get(ctx context.Context, kind domain.Kind, id string) (*domain.Record, error)
	Query(ctx context.Context, q domain.Query) ([]domain.Record, error)
	// UpdateStatus applies upd only while the stored status equals
	// upd.Expected and writes outboxPayload in the same unit of work.
	// It returns domain.ErrConflict when the status moved underneath.
	UpdateStatus(ctx context.Context, upd domain.StatusUpdate, outboxPayload []byte) (*domain.Record, error)
	// UpdateFields merges set into the record's fields and drops the keys in
	// unset. Status and history are left alone.
	UpdateFields(ctx context.Context, kind domain.Kind, id string, set map[string]string, unset []string) error
	Delete(ctx context.Context, kind domain.Kind, id string) error
}

type IdentityStore interface {
	CreateIdentity(ctx context.Context, creds domain.Credentials) error
	FindByEmail(ctx context.Context, email string) (*domain.Credentials, error)
	// DeleteIdentity removes the credentials of uid. Returns ErrNotFound when
	// there are none.
	DeleteIdentity(ctx context.Context, uid string) error
}
