package model

import "time"

// Order records the purchase of exactly one seat by one buyer.  It is
// created from a confirmed hold and is immutable afterwards: amount,
// seat and buyer references are fixed at creation.  The unique keys on
// idempotency_key and seat_id enforce, respectively, idempotent finalize
// and the 1:1 seat-to-order mapping.
//
// Fields:
//  ID             – primary key identifier.
//  OrderNo        – external order number (UUID) shown to the buyer.
//  EventID        – event the seat belongs to.
//  SeatID         – seat consumed by this order.
//  HolderID       – buyer who confirmed the hold.
//  AmountCents    – price captured from the seat row at confirm time.
//  IdempotencyKey – client-supplied key; retries of the same logical
//                   request return this same order.
//  CreatedAt      – creation timestamp.
type Order struct {
	ID             uint64    // orders.id
	OrderNo        string    // orders.order_no
	EventID        uint64    // orders.event_id
	SeatID         uint64    // orders.seat_id
	HolderID       uint64    // orders.holder_id
	AmountCents    uint32    // orders.amount_cents
	IdempotencyKey string    // orders.idempotency_key
	CreatedAt      time.Time // orders.created_at
}
