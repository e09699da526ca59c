package pending

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/khanabook/pos-station/internal/model"
)

// OfflineOrder is the local record of an order draft that was saved while
// offline, kept alongside the queue so the operator can see what is waiting
// and so a replayed draft can be marked synced.
type OfflineOrder struct {
	ID             int64            `json:"id"`
	IdempotencyKey uuid.UUID        `json:"idempotencyKey"`
	Draft          model.OrderDraft `json:"draft"`
	Synced         bool             `json:"synced"`
	CreatedAt      time.Time        `json:"createdAt"`
}

// DraftLog records offline order drafts. Keyed by the same idempotency key
// as the queued CREATE_ORDER action so the coordinator can mark the draft
// synced when the replay succeeds.
type DraftLog interface {
	Record(ctx context.Context, key uuid.UUID, draft model.OrderDraft) (OfflineOrder, error)
	MarkSynced(ctx context.Context, key uuid.UUID) error
	ListUnsynced(ctx context.Context) ([]OfflineOrder, error)
}

// PgDraftLog persists offline order drafts in the station's local Postgres.
type PgDraftLog struct {
	db DBTX
}

func NewPgDraftLog(db DBTX) *PgDraftLog {
	return &PgDraftLog{db: db}
}

func (l *PgDraftLog) Record(ctx context.Context, key uuid.UUID, draft model.OrderDraft) (OfflineOrder, error) {
	raw, err := json.Marshal(draft)
	if err != nil {
		return OfflineOrder{}, fmt.Errorf("encode draft: %w", err)
	}

	o := OfflineOrder{IdempotencyKey: key, Draft: draft}
	err = l.db.QueryRow(ctx,
		`INSERT INTO offline_orders (idempotency_key, draft)
		 VALUES ($1, $2)
		 RETURNING id, synced, created_at`,
		key, raw,
	).Scan(&o.ID, &o.Synced, &o.CreatedAt)
	if err != nil {
		return OfflineOrder{}, fmt.Errorf("record offline order: %w", err)
	}
	return o, nil
}

func (l *PgDraftLog) MarkSynced(ctx context.Context, key uuid.UUID) error {
	if _, err := l.db.Exec(ctx,
		`UPDATE offline_orders SET synced = TRUE WHERE idempotency_key = $1`, key); err != nil {
		return fmt.Errorf("mark offline order synced: %w", err)
	}
	return nil
}

func (l *PgDraftLog) ListUnsynced(ctx context.Context) ([]OfflineOrder, error) {
	rows, err := l.db.Query(ctx,
		`SELECT id, idempotency_key, draft, synced, created_at
		 FROM offline_orders
		 WHERE NOT synced
		 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list unsynced orders: %w", err)
	}
	defer rows.Close()

	var orders []OfflineOrder
	for rows.Next() {
		var o OfflineOrder
		var raw []byte
		if err := rows.Scan(&o.ID, &o.IdempotencyKey, &raw, &o.Synced, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan offline order: %w", err)
		}
		if err := json.Unmarshal(raw, &o.Draft); err != nil {
			return nil, fmt.Errorf("decode offline draft %d: %w", o.ID, err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
