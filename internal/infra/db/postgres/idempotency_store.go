package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"vendibook/internal/app/middleware"
)

// IdempotencyStore keeps command results; rows older than ttl read as absent.
type IdempotencyStore struct {
	db  *sqlx.DB
	ttl time.Duration
}

func NewIdempotencyStore(db *sqlx.DB, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{db: db, ttl: ttl}
}

type idempotencyRow struct {
	Key        string    `db:"key"`
	Command    string    `db:"command"`
	Payload    []byte    `db:"payload"`
	OccurredAt time.Time `db:"occurred_at"`
	CreatedAt  time.Time `db:"created_at"`
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	var row idempotencyRow
	err := s.db.GetContext(ctx, &row, `SELECT key, command, payload, occurred_at, created_at FROM idempotency WHERE key = $1`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return middleware.IdempotencyRecord{}, false, nil
	}
	if err != nil {
		return middleware.IdempotencyRecord{}, false, err
	}
	if s.ttl > 0 && time.Since(row.CreatedAt) > s.ttl {
		return middleware.IdempotencyRecord{}, false, nil
	}
	return middleware.IdempotencyRecord{
		Key:        row.Key,
		Command:    row.Command,
		Payload:    row.Payload,
		OccurredAt: row.OccurredAt.UTC(),
	}, true, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO idempotency (key, command, payload, occurred_at, created_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (key) DO NOTHING`,
		rec.Key, rec.Command, rec.Payload, rec.OccurredAt)
	return err
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
