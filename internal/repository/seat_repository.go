package repository // repository for seat persistence and conditional writes

import (
	"context"
	"database/sql"

	"github.com/onsale/ticketing/internal/model"
)

// CASResult reports the outcome of a conditional seat status write.
type CASResult int

const (
	// CASOK means exactly one row matched and the transition was applied.
	CASOK CASResult = iota
	// CASStaleVersion means the seat is in the expected status but its
	// version moved on; the caller's view of the seat is outdated.
	CASStaleVersion
	// CASConflictingStatus means the seat is no longer in the expected
	// status; someone else completed a transition first.
	CASConflictingStatus
)

// SeatRepo encapsulates database operations for the seats table. All
// status changes go through CompareAndSetStatusTx; nothing in this
// service blind-writes seat_status.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo constructs a SeatRepo given a DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo { return &SeatRepo{db: db} }

const seatColumns = `id, event_id, seat_code, grade, price_cents, seat_status, version, created_at, updated_at`

func scanSeat(row *sql.Row) (model.Seat, error) {
	var s model.Seat
	err := row.Scan(&s.ID, &s.EventID, &s.SeatCode, &s.Grade, &s.PriceCents,
		&s.Status, &s.Version, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.Seat{}, ErrSeatNotFound
	}
	if err != nil {
		return model.Seat{}, err
	}
	return s, nil
}

// GetByEventAndIDTx fetches one seat within the provided transaction.
// Returns ErrSeatNotFound when the seat does not exist for the event.
func (r *SeatRepo) GetByEventAndIDTx(ctx context.Context, tx *sql.Tx, eventID, seatID uint64) (model.Seat, error) {
	const q = `SELECT ` + seatColumns + ` FROM seats WHERE id = ? AND event_id = ?`
	return scanSeat(tx.QueryRowContext(ctx, q, seatID, eventID))
}

// ListByEvent returns every seat for an event ordered by grade and code,
// for the public seat map.
func (r *SeatRepo) ListByEvent(ctx context.Context, eventID uint64) ([]model.Seat, error) {
	const q = `SELECT ` + seatColumns + ` FROM seats
	           WHERE event_id = ? ORDER BY grade, seat_code`
	rows, err := r.db.QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var seats []model.Seat
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(&s.ID, &s.EventID, &s.SeatCode, &s.Grade, &s.PriceCents,
			&s.Status, &s.Version, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		seats = append(seats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return seats, nil
}

// CompareAndSetStatusTx applies the status transition expected->next to
// one seat, conditioned on both the current status and the current
// version. On success the version is incremented in the same statement;
// the new version (expectedVersion+1) becomes the fencing token for any
// hold created against this transition.
//
// When zero rows match, the seat is re-read to disambiguate: a missing
// row yields ErrSeatNotFound, a different status yields
// CASConflictingStatus, and a moved version yields CASStaleVersion.
// Both non-OK results mean the caller lost a race and should treat the
// seat as unavailable; neither is an error.
func (r *SeatRepo) CompareAndSetStatusTx(ctx context.Context, tx *sql.Tx, eventID, seatID uint64, expected, next string, expectedVersion uint64) (CASResult, error) {
	const q = `UPDATE seats
	           SET seat_status = ?, version = version + 1, updated_at = UTC_TIMESTAMP()
	           WHERE id = ? AND event_id = ? AND seat_status = ? AND version = ?`
	res, err := tx.ExecContext(ctx, q, next, seatID, eventID, expected, expectedVersion)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		return CASOK, nil
	}
	seat, err := r.GetByEventAndIDTx(ctx, tx, eventID, seatID)
	if err != nil {
		return 0, err // includes ErrSeatNotFound
	}
	if seat.Status != expected {
		return CASConflictingStatus, nil
	}
	return CASStaleVersion, nil
}

// CreateBulkTx inserts multiple seat records in one statement. Only
// event_id, seat_code, grade, price_cents and seat_status are inserted;
// version starts at zero and timestamps default in the DB. Passing an
// empty slice has no effect and returns nil. A unique key collision on
// (event_id, grade, seat_code) surfaces as ErrSeatExists.
func (r *SeatRepo) CreateBulkTx(ctx context.Context, tx *sql.Tx, seats []model.Seat) error {
	if len(seats) == 0 {
		return nil
	}
	query := `INSERT INTO seats (event_id, seat_code, grade, price_cents, seat_status) VALUES `
	args := make([]interface{}, 0, len(seats)*5)
	for i, s := range seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?)"
		args = append(args, s.EventID, s.SeatCode, s.Grade, s.PriceCents, model.SeatStatusAvailable)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	if isDuplicateEntry(err) {
		return ErrSeatExists
	}
	return err
}
