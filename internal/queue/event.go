// Package queue defines message payloads exchanged over the message broker.
package queue

// OrderIssuedEvent is published when a hold is finalized into an order.
// It carries enough information for downstream consumers to log, notify,
// or trigger analytics without querying the primary database.
type OrderIssuedEvent struct {
	OrderNo     string `json:"order_no"`
	EventID     uint64 `json:"event_id"`
	SeatID      uint64 `json:"seat_id"`
	SeatCode    string `json:"seat_code"`
	Grade       string `json:"grade"`
	HolderID    uint64 `json:"holder_id"`
	AmountCents uint32 `json:"amount_cents"`
	IssuedAt    string `json:"issued_at"`
}
