package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned by Load when nothing is stored under the key.
var ErrNotFound = errors.New("identity record not found")

// IdentityRepository persists the serialized identity record of a session.
// Payloads are opaque bytes; sealing and encoding happen in the session layer.
type IdentityRepository interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, payload []byte) error
	Delete(ctx context.Context, key string) error
}

type postgresIdentityRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresIdentityRepository returns a Postgres-backed implementation.
func NewPostgresIdentityRepository(pool *pgxpool.Pool) IdentityRepository {
	return &postgresIdentityRepository{pool: pool}
}

func (r *postgresIdentityRepository) Load(ctx context.Context, key string) ([]byte, error) {
	const query = `
        SELECT payload FROM portal_identities WHERE storage_key=$1`

	var payload []byte
	if err := r.pool.QueryRow(ctx, query, key).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return payload, nil
}

func (r *postgresIdentityRepository) Save(ctx context.Context, key string, payload []byte) error {
	const query = `
        INSERT INTO portal_identities (storage_key, payload)
        VALUES ($1, $2)
        ON CONFLICT (storage_key) DO UPDATE SET payload=EXCLUDED.payload, updated_at=NOW()`

	_, err := r.pool.Exec(ctx, query, key, payload)
	return err
}

func (r *postgresIdentityRepository) Delete(ctx context.Context, key string) error {
	const query = `
        DELETE FROM portal_identities WHERE storage_key=$1`

	_, err := r.pool.Exec(ctx, query, key)
	return err
}
