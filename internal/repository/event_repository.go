package repository // repository for event catalog reads

import (
	"context"
	"database/sql"

	"github.com/onsale/ticketing/internal/model"
)

// EventRepo provides read access to the events table. Event CRUD is
// owned by the external catalog service; this service only reads status
// and the sale window.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo constructs an EventRepo given a DB handle.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// GetByID fetches a single event. Returns ErrEventNotFound when no row
// exists.
func (r *EventRepo) GetByID(ctx context.Context, eventID uint64) (model.Event, error) {
	const q = `SELECT id, name, status, opens_at, closes_at, created_at
	           FROM events WHERE id = ?`
	var ev model.Event
	err := r.db.QueryRowContext(ctx, q, eventID).Scan(
		&ev.ID, &ev.Name, &ev.Status, &ev.OpensAt, &ev.ClosesAt, &ev.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return model.Event{}, ErrEventNotFound
	}
	if err != nil {
		return model.Event{}, err
	}
	return ev, nil
}

// IsOpen reports whether the event currently accepts admission and seat
// holds. Satisfies the admission queue's EventGate.
func (r *EventRepo) IsOpen(ctx context.Context, eventID uint64) (bool, error) {
	ev, err := r.GetByID(ctx, eventID)
	if err != nil {
		return false, err
	}
	return ev.IsOpen(), nil
}

// ListOpen returns every event currently in the OPEN state. The
// maintenance jobs iterate this set when sweeping holds and promoting
// queues.
func (r *EventRepo) ListOpen(ctx context.Context) ([]model.Event, error) {
	const q = `SELECT id, name, status, opens_at, closes_at, created_at
	           FROM events WHERE status = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, model.EventStatusOpen)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var events []model.Event
	for rows.Next() {
		var ev model.Event
		if err := rows.Scan(&ev.ID, &ev.Name, &ev.Status, &ev.OpensAt, &ev.ClosesAt, &ev.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}
