package repository

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/onsale/ticketing/internal/model"
)

// mysqlDuplicateEntry is the server error number for a unique key
// violation (ER_DUP_ENTRY).
const mysqlDuplicateEntry = 1062

func isDuplicateEntry(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

// HoldRepo provides data access to the seat_holds table. All methods
// operate on a caller-owned transaction and in UTC – expiration
// comparisons must be performed in UTC.
type HoldRepo struct {
	db *sql.DB
}

// NewHoldRepo returns a new HoldRepo bound to the provided database.
func NewHoldRepo(db *sql.DB) *HoldRepo { return &HoldRepo{db: db} }

// randomToken generates a random hexadecimal string of n bytes (2n hex
// characters) for the hold_token column. The underlying call to
// crypto/rand ensures cryptographically secure random bytes.
func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// CreateTx inserts a new hold within the provided transaction and fills
// in the generated ID and token. The unique key on seat_id turns a
// concurrent second hold into ErrHoldConflict rather than a silent
// double-booking.
func (r *HoldRepo) CreateTx(ctx context.Context, tx *sql.Tx, h *model.Hold) error {
	token, err := randomToken(32)
	if err != nil {
		return err
	}
	h.HoldToken = token
	const q = `INSERT INTO seat_holds (event_id, seat_id, holder_id, hold_token, fencing_token, expires_at)
	           VALUES (?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q,
		h.EventID, h.SeatID, h.HolderID, h.HoldToken, h.FencingToken,
		h.ExpiresAt.UTC().Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		if isDuplicateEntry(err) {
			return ErrHoldConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	h.ID = uint64(id)
	return nil
}

// GetBySeatTx returns the live hold for a seat, or ErrHoldNotFound when
// the seat carries none. At most one row can exist per seat.
func (r *HoldRepo) GetBySeatTx(ctx context.Context, tx *sql.Tx, seatID uint64) (model.Hold, error) {
	const q = `SELECT id, event_id, seat_id, holder_id, hold_token, fencing_token, expires_at, created_at
	           FROM seat_holds WHERE seat_id = ?`
	var h model.Hold
	err := tx.QueryRowContext(ctx, q, seatID).Scan(
		&h.ID, &h.EventID, &h.SeatID, &h.HolderID, &h.HoldToken, &h.FencingToken, &h.ExpiresAt, &h.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return model.Hold{}, ErrHoldNotFound
	}
	if err != nil {
		return model.Hold{}, err
	}
	return h, nil
}

// DeleteTx removes a hold row by primary key. Deleting an already
// removed hold affects zero rows and is not an error, which keeps
// release and sweep idempotent.
func (r *HoldRepo) DeleteTx(ctx context.Context, tx *sql.Tx, holdID uint64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM seat_holds WHERE id = ?`, holdID)
	return err
}

// ListExpiredTx returns every hold for the event whose deadline is at or
// before now. The sweep job walks this set and releases each seat
// conditioned on its fencing token.
func (r *HoldRepo) ListExpiredTx(ctx context.Context, tx *sql.Tx, eventID uint64, now time.Time) ([]model.Hold, error) {
	const q = `SELECT id, event_id, seat_id, holder_id, hold_token, fencing_token, expires_at, created_at
	           FROM seat_holds WHERE event_id = ? AND expires_at <= ?`
	rows, err := tx.QueryContext(ctx, q, eventID, now.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var holds []model.Hold
	for rows.Next() {
		var h model.Hold
		if err := rows.Scan(&h.ID, &h.EventID, &h.SeatID, &h.HolderID, &h.HoldToken,
			&h.FencingToken, &h.ExpiresAt, &h.CreatedAt); err != nil {
			return nil, err
		}
		holds = append(holds, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return holds, nil
}
