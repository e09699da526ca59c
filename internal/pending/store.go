// Package pending is the durable local queue of not-yet-acknowledged
// mutations. Actions are immutable once enqueued, never reordered, and
// removed only after the remote call they represent succeeds.
package pending

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PendingAction is one queued mutation. Kind is a tag over the payload:
// CREATE_ORDER carries a model.OrderDraft, PROCESS_PAYMENT a
// model.PaymentDraft. The coordinator decodes exhaustively on Kind.
type PendingAction struct {
	ID             int64           `json:"id"`
	Kind           string          `json:"kind"`
	IdempotencyKey uuid.UUID       `json:"idempotencyKey"`
	Payload        json.RawMessage `json:"payload"`
	Attempts       int32           `json:"attempts"`
	LastError      string          `json:"lastError,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// DeadLetter is an action set aside after repeated application-class
// rejections, removed from the retry path so it cannot block the queue.
type DeadLetter struct {
	ActionID       int64           `json:"actionId"`
	Kind           string          `json:"kind"`
	IdempotencyKey uuid.UUID       `json:"idempotencyKey"`
	Payload        json.RawMessage `json:"payload"`
	Attempts       int32           `json:"attempts"`
	Cause          string          `json:"cause"`
	FailedAt       time.Time       `json:"failedAt"`
}

// Store is the durable queue contract. ListPending returns insertion order;
// Remove is idempotent. No client-side deduplication: retried user actions
// enqueue duplicates, disarmed server-side by the idempotency key.
type Store interface {
	Enqueue(ctx context.Context, kind string, key uuid.UUID, payload any) (PendingAction, error)
	ListPending(ctx context.Context) ([]PendingAction, error)
	Remove(ctx context.Context, id int64) error
	MarkAttempt(ctx context.Context, id int64, cause string) (int32, error)
	MoveToDeadLetters(ctx context.Context, id int64, cause string) error
	ListDeadLetters(ctx context.Context) ([]DeadLetter, error)
}

// DBTX is the subset of pgx methods the store needs. Satisfied by
// *pgxpool.Pool, pgx.Tx, and pgxmock.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgStore persists the queue in the station's local Postgres.
type PgStore struct {
	db DBTX
}

func NewPgStore(db DBTX) *PgStore {
	return &PgStore{db: db}
}

func (s *PgStore) Enqueue(ctx context.Context, kind string, key uuid.UUID, payload any) (PendingAction, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return PendingAction{}, fmt.Errorf("encode payload: %w", err)
	}

	var a PendingAction
	err = s.db.QueryRow(ctx,
		`INSERT INTO pending_actions (kind, idempotency_key, payload)
		 VALUES ($1, $2, $3)
		 RETURNING id, kind, idempotency_key, payload, attempts, created_at`,
		kind, key, raw,
	).Scan(&a.ID, &a.Kind, &a.IdempotencyKey, &a.Payload, &a.Attempts, &a.CreatedAt)
	if err != nil {
		return PendingAction{}, fmt.Errorf("enqueue %s: %w", kind, err)
	}
	return a, nil
}

func (s *PgStore) ListPending(ctx context.Context) ([]PendingAction, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, kind, idempotency_key, payload, attempts, COALESCE(last_error, ''), created_at
		 FROM pending_actions
		 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	defer rows.Close()

	var actions []PendingAction
	for rows.Next() {
		var a PendingAction
		if err := rows.Scan(&a.ID, &a.Kind, &a.IdempotencyKey, &a.Payload, &a.Attempts, &a.LastError, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending action: %w", err)
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

func (s *PgStore) Remove(ctx context.Context, id int64) error {
	// Removing an id that is already gone is a no-op.
	if _, err := s.db.Exec(ctx, `DELETE FROM pending_actions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("remove action %d: %w", id, err)
	}
	return nil
}

func (s *PgStore) MarkAttempt(ctx context.Context, id int64, cause string) (int32, error) {
	var attempts int32
	err := s.db.QueryRow(ctx,
		`UPDATE pending_actions
		 SET attempts = attempts + 1, last_error = $2
		 WHERE id = $1
		 RETURNING attempts`,
		id, cause,
	).Scan(&attempts)
	if err != nil {
		return 0, fmt.Errorf("mark attempt on action %d: %w", id, err)
	}
	return attempts, nil
}

func (s *PgStore) MoveToDeadLetters(ctx context.Context, id int64, cause string) error {
	// Single statement so the move is atomic: the action can never exist in
	// both the retry path and the dead-letter set.
	_, err := s.db.Exec(ctx,
		`WITH moved AS (
		     DELETE FROM pending_actions WHERE id = $1
		     RETURNING id, kind, idempotency_key, payload, attempts
		 )
		 INSERT INTO dead_letters (action_id, kind, idempotency_key, payload, attempts, cause)
		 SELECT id, kind, idempotency_key, payload, attempts, $2 FROM moved`,
		id, cause)
	if err != nil {
		return fmt.Errorf("dead-letter action %d: %w", id, err)
	}
	return nil
}

func (s *PgStore) ListDeadLetters(ctx context.Context) ([]DeadLetter, error) {
	rows, err := s.db.Query(ctx,
		`SELECT action_id, kind, idempotency_key, payload, attempts, cause, failed_at
		 FROM dead_letters
		 ORDER BY failed_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list dead letters: %w", err)
	}
	defer rows.Close()

	var letters []DeadLetter
	for rows.Next() {
		var d DeadLetter
		if err := rows.Scan(&d.ActionID, &d.Kind, &d.IdempotencyKey, &d.Payload, &d.Attempts, &d.Cause, &d.FailedAt); err != nil {
			return nil, fmt.Errorf("scan dead letter: %w", err)
		}
		letters = append(letters, d)
	}
	return letters, rows.Err()
}
