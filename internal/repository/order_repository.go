package repository

import (
	"context"
	"database/sql"

	"github.com/onsale/ticketing/internal/model"
)

// OrderRepo provides data access to the orders table. Orders are
// written once and never updated; the unique keys on idempotency_key
// and seat_id are the backbone of idempotent finalize and the 1:1
// seat-to-order mapping.
type OrderRepo struct {
	db *sql.DB
}

// NewOrderRepo returns a new OrderRepo bound to the provided database.
func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

const orderColumns = `id, order_no, event_id, seat_id, holder_id, amount_cents, idempotency_key, created_at`

// GetByIdempotencyKeyTx returns the order previously created for the
// key, or nil when none exists. Absence is not an error here: the
// finalizer uses nil as the signal to proceed with confirmation.
func (r *OrderRepo) GetByIdempotencyKeyTx(ctx context.Context, tx *sql.Tx, key string) (*model.Order, error) {
	const q = `SELECT ` + orderColumns + ` FROM orders WHERE idempotency_key = ?`
	var o model.Order
	err := tx.QueryRowContext(ctx, q, key).Scan(
		&o.ID, &o.OrderNo, &o.EventID, &o.SeatID, &o.HolderID, &o.AmountCents, &o.IdempotencyKey, &o.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// CreateTx inserts a new order within the provided transaction and
// fills in the generated ID. A unique key collision (same idempotency
// key or same seat racing in from a concurrent retry) surfaces as
// ErrDuplicateOrder so the caller can re-read and return the winner.
func (r *OrderRepo) CreateTx(ctx context.Context, tx *sql.Tx, o *model.Order) error {
	const q = `INSERT INTO orders (order_no, event_id, seat_id, holder_id, amount_cents, idempotency_key, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q,
		o.OrderNo, o.EventID, o.SeatID, o.HolderID, o.AmountCents, o.IdempotencyKey,
		o.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		if isDuplicateEntry(err) {
			return ErrDuplicateOrder
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = uint64(id)
	return nil
}
