package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// RegistrationStoreRepository is the PostgreSQL key/value store for ledgers.
type RegistrationStoreRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewRegistrationStoreRepository constructs the repository.
func NewRegistrationStoreRepository(db *sqlx.DB) *RegistrationStoreRepository {
	return &RegistrationStoreRepository{db: db, now: time.Now}
}

// Get returns the value for key and whether it was present.
func (r *RegistrationStoreRepository) Get(ctx context.Context, key string) (string, bool, error) {
	const query = `SELECT value FROM registration_kv WHERE key = $1`
	var value string
	if err := r.db.GetContext(ctx, &value, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get registration key: %w", err)
	}
	return value, true, nil
}

// Set upserts value under key.
func (r *RegistrationStoreRepository) Set(ctx context.Context, key, value string) error {
	const query = `INSERT INTO registration_kv (key, value, updated_at) VALUES ($1, $2, $3)
        ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.ExecContext(ctx, query, key, value, r.now().UTC()); err != nil {
		return fmt.Errorf("set registration key: %w", err)
	}
	return nil
}
