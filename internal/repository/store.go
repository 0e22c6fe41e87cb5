package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/onsale/ticketing/internal/model"
)

// Store bundles the seat, hold and order repositories behind a single
// transactional facade. Callers group multi-row operations with WithTx;
// the open transaction travels in the context so the reservation engine
// and the order finalizer can share one transaction without threading
// *sql.Tx through their signatures.
type Store struct {
	db     *sql.DB
	seats  *SeatRepo
	holds  *HoldRepo
	orders *OrderRepo
}

// NewStore constructs a Store over the shared DB handle.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:     db,
		seats:  NewSeatRepo(db),
		holds:  NewHoldRepo(db),
		orders: NewOrderRepo(db),
	}
}

type txKey struct{}

// WithTx runs fn inside a database transaction, committing when fn
// returns nil and rolling back otherwise. When the context already
// carries a transaction, fn simply joins it – nesting WithTx is how the
// finalizer wraps a confirm and an order insert into one atomic unit.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok && tx != nil {
		return fn(ctx)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// txFrom extracts the transaction WithTx placed in the context. Store
// methods below are only meaningful inside WithTx; calling them outside
// one is a programming error and panics immediately rather than
// silently running without atomicity.
func txFrom(ctx context.Context) *sql.Tx {
	tx, ok := ctx.Value(txKey{}).(*sql.Tx)
	if !ok || tx == nil {
		panic("repository: store method called outside WithTx")
	}
	return tx
}

// GetSeat fetches one seat within the current transaction.
func (s *Store) GetSeat(ctx context.Context, eventID, seatID uint64) (model.Seat, error) {
	return s.seats.GetByEventAndIDTx(ctx, txFrom(ctx), eventID, seatID)
}

// CompareAndSetSeatStatus applies a conditional status transition within
// the current transaction.
func (s *Store) CompareAndSetSeatStatus(ctx context.Context, eventID, seatID uint64, expected, next string, version uint64) (CASResult, error) {
	return s.seats.CompareAndSetStatusTx(ctx, txFrom(ctx), eventID, seatID, expected, next, version)
}

// HoldBySeat returns the live hold for a seat within the current
// transaction.
func (s *Store) HoldBySeat(ctx context.Context, seatID uint64) (model.Hold, error) {
	return s.holds.GetBySeatTx(ctx, txFrom(ctx), seatID)
}

// CreateHold inserts a hold within the current transaction.
func (s *Store) CreateHold(ctx context.Context, h *model.Hold) error {
	return s.holds.CreateTx(ctx, txFrom(ctx), h)
}

// DeleteHold removes a hold within the current transaction.
func (s *Store) DeleteHold(ctx context.Context, holdID uint64) error {
	return s.holds.DeleteTx(ctx, txFrom(ctx), holdID)
}

// ExpiredHolds lists the event's expired holds within the current
// transaction.
func (s *Store) ExpiredHolds(ctx context.Context, eventID uint64, now time.Time) ([]model.Hold, error) {
	return s.holds.ListExpiredTx(ctx, txFrom(ctx), eventID, now)
}

// OrderByIdempotencyKey returns the order for the key within the
// current transaction, or nil when none exists.
func (s *Store) OrderByIdempotencyKey(ctx context.Context, key string) (*model.Order, error) {
	return s.orders.GetByIdempotencyKeyTx(ctx, txFrom(ctx), key)
}

// CreateOrder inserts an order within the current transaction.
func (s *Store) CreateOrder(ctx context.Context, o *model.Order) error {
	return s.orders.CreateTx(ctx, txFrom(ctx), o)
}

// CreateSeats bulk-inserts seat inventory within the current
// transaction.
func (s *Store) CreateSeats(ctx context.Context, seats []model.Seat) error {
	return s.seats.CreateBulkTx(ctx, txFrom(ctx), seats)
}
