package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	appoutbox "vendibook/internal/app/outbox"
	"vendibook/internal/infra/outbox"
)

// OutboxStore inserts records through the transaction of the unit of work in
// the context, so they commit or roll back with the aggregate change.
type OutboxStore struct {
	db *sqlx.DB
}

func NewOutboxStore(db *sqlx.DB) *OutboxStore {
	return &OutboxStore{db: db}
}

func (s *OutboxStore) Add(ctx context.Context, record appoutbox.EventRecord) error {
	headers, err := json.Marshal(record.Headers)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	_, err = conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO outbox (id, name, payload, occurred_at, aggregate, headers, state, next_attempt_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		record.ID, record.Name, record.Payload, record.OccurredAt, record.Aggregate, headers, outbox.StateNew, now, now)
	return err
}

// Flush is a no-op: records become visible when the transaction commits.
func (s *OutboxStore) Flush(context.Context) error {
	return nil
}

type outboxRow struct {
	ID         string    `db:"id"`
	Name       string    `db:"name"`
	Payload    []byte    `db:"payload"`
	OccurredAt time.Time `db:"occurred_at"`
	Aggregate  string    `db:"aggregate"`
	Headers    []byte    `db:"headers"`
	Attempts   int       `db:"attempts"`
}

// Claim locks the oldest due record with SKIP LOCKED so several relays can run.
func (s *OutboxStore) Claim(ctx context.Context, workerID string) (*outbox.Message, error) {
	var row outboxRow
	err := s.db.GetContext(ctx, &row, `
		UPDATE outbox SET state = $1, claimed_by = $2, claimed_at = now()
		WHERE id = (
			SELECT id FROM outbox
			WHERE state IN ($3, $4) AND next_attempt_at <= now()
			ORDER BY created_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, name, payload, occurred_at, aggregate, headers, attempts`,
		outbox.StateClaimed, workerID, outbox.StateNew, outbox.StateFailed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	msg := &outbox.Message{
		ID:         row.ID,
		Name:       row.Name,
		Payload:    row.Payload,
		OccurredAt: row.OccurredAt.UTC(),
		Aggregate:  row.Aggregate,
		Attempts:   row.Attempts,
	}
	if err := json.Unmarshal(row.Headers, &msg.Headers); err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *OutboxStore) MarkSent(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE outbox SET state = $2, sent_at = now() WHERE id = $1`, id, outbox.StateSent)
	return err
}

func (s *OutboxStore) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE outbox SET state = $2, next_attempt_at = $3, last_error = $4, attempts = attempts + 1
		WHERE id = $1`, id, outbox.StateFailed, next, errMsg)
	return err
}

var (
	_ appoutbox.Outbox = (*OutboxStore)(nil)
	_ outbox.Store     = (*OutboxStore)(nil)
)
