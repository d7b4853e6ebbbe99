package repository

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/sony/gobreaker"

	"github.com/AchilleasB/hostel-portal/portal-service/internal/config"
	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/domain"
	"github.com/AchilleasB/hostel-portal/portal-service/internal/core/ports"
)

const uniqueViolation = "23505"

type IdentityRepository struct {
	db *sql.DB
	cb *gobreaker.CircuitBreaker
}

var _ ports.IdentityStore = (*IdentityRepository)(nil)

func NewIdentityRepository(db *sql.DB) *IdentityRepository {
	return &IdentityRepository{
		db: db,
		cb: config.NewCircuitBreaker("PostgreSQL-Identities", domain.ErrNotFound, domain.ErrConflict),
	}
}

func (r *IdentityRepository) FindByEmail(ctx context.Context, email string) (*domain.Credentials, error) {
	out, err := r.execute(func() (interface{}, error) {
		var creds domain.Credentials
		err := r.db.QueryRowContext(
			ctx,
			"SELECT uid, email, password_hash, created_at FROM identities WHERE email = $1",
			email,
		).Scan(&creds.UID, &creds.Email, &creds.PasswordHash, &creds.CreatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return &creds, err
	})
	if err != nil {
		return nil, err
	}
	return out.(*domain.Credentials), nil
}

func (r *IdentityRepository) CreateIdentity(ctx context.Context, creds domain.Credentials) error {
	_, err := r.execute(func() (interface{}, error) {
		_, err := r.db.ExecContext(ctx,
			"INSERT INTO identities (uid, email, password_hash, created_at) VALUES ($1, $2, $3, $4)",
			creds.UID,
			creds.Email,
			creds.PasswordHash,
			creds.CreatedAt,
		)
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, errors.Wrapf(domain.ErrConflict, "identity %s", creds.Email)
		}
		return nil, err
	})
	return err
}

func (r *IdentityRepository) DeleteIdentity(ctx context.Context, uid string) error {
	_, err := r.execute(func() (interface{}, error) {
		res, err := r.db.ExecContext(ctx, "DELETE FROM identities WHERE uid = $1", uid)
		if err != nil {
			return nil, err
		}
		return nil, affectedOne(res)
	})
	return err
}

func (r *IdentityRepository) execute(fn func() (interface{}, error)) (interface{}, error) {
	return breakerCall(r.cb, fn)
}

// unavailable marks a driver failure as ErrStoreUnavailable while keeping the
// cause in the message.
func unavailable(err error) error {
	return errors.Wrap(domain.ErrStoreUnavailable, err.Error())
}
