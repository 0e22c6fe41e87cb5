// Package order converts confirmed holds into persisted orders,
// idempotently: retrying a finalize with the same idempotency key
// returns the same order and never creates a second one.
package order

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"

	"github.com/onsale/ticketing/internal/clock"
	"github.com/onsale/ticketing/internal/model"
	"github.com/onsale/ticketing/internal/repository"
	"github.com/onsale/ticketing/internal/reservation"
)

// ErrIdempotencyKeyRequired is returned when the client omits the key.
var ErrIdempotencyKeyRequired = errors.New("idempotency key required")

// Repository is the transactional storage the finalizer runs on. It is
// satisfied by repository.Store; the engine's confirm joins the same
// transaction through the shared context.
type Repository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	OrderByIdempotencyKey(ctx context.Context, key string) (*model.Order, error)
	CreateOrder(ctx context.Context, o *model.Order) error
}

// Confirmer is the slice of the reservation engine the finalizer needs.
type Confirmer interface {
	Confirm(ctx context.Context, seatID, holderID, fencingToken uint64) (model.Seat, error)
}

// Publisher emits the order.issued event after a successful finalize.
// Publishing is best effort and never fails the request.
type Publisher interface {
	PublishOrderIssued(ctx context.Context, o model.Order, seat model.Seat) error
}

// Finalizer turns a confirmed hold into an order plus issued ticket.
type Finalizer struct {
	repo      Repository
	confirmer Confirmer
	publisher Publisher
	clk       clock.Clock
}

// NewFinalizer constructs a Finalizer. publisher may be nil when no
// broker is configured (dev, tests).
func NewFinalizer(repo Repository, confirmer Confirmer, publisher Publisher, clk clock.Clock) *Finalizer {
	return &Finalizer{repo: repo, confirmer: confirmer, publisher: publisher, clk: clk}
}

// FinalizeInput carries one finalize request.
type FinalizeInput struct {
	SeatID         uint64
	HolderID       uint64
	FencingToken   uint64
	IdempotencyKey string
}

// Finalize confirms the hold and persists the order in one transaction.
// The idempotency check and the order write are a single atomic unit:
// the unique constraint on idempotency_key makes the database the final
// arbiter when concurrent retries race past the initial lookup.
func (f *Finalizer) Finalize(ctx context.Context, in FinalizeInput) (model.Order, error) {
	if in.IdempotencyKey == "" {
		return model.Order{}, ErrIdempotencyKeyRequired
	}

	var result model.Order
	var seat model.Seat
	replay := false

	err := f.repo.WithTx(ctx, func(ctx context.Context) error {
		existing, err := f.repo.OrderByIdempotencyKey(ctx, in.IdempotencyKey)
		if err != nil {
			return err
		}
		if existing != nil {
			result, replay = *existing, true
			return nil
		}

		seat, err = f.confirmer.Confirm(ctx, in.SeatID, in.HolderID, in.FencingToken)
		if err != nil {
			return err // ErrHoldExpired / ErrHoldNotOwned pass through
		}

		order := model.Order{
			OrderNo:        uuid.NewString(),
			EventID:        seat.EventID,
			SeatID:         seat.ID,
			HolderID:       in.HolderID,
			AmountCents:    seat.PriceCents,
			IdempotencyKey: in.IdempotencyKey,
			CreatedAt:      f.clk.Now(),
		}
		if err := f.repo.CreateOrder(ctx, &order); err != nil {
			// A concurrent retry with the same key won the insert; the
			// confirm above would then have failed, so this arm only
			// fires for a duplicate key. Return the winner's order.
			if errors.Is(err, repository.ErrDuplicateOrder) {
				existing, rerr := f.repo.OrderByIdempotencyKey(ctx, in.IdempotencyKey)
				if rerr != nil {
					return rerr
				}
				if existing != nil {
					result, replay = *existing, true
					return nil
				}
			}
			return err
		}

		result = order
		return nil
	})
	if err != nil {
		return model.Order{}, err
	}

	if !replay && f.publisher != nil {
		if err := f.publisher.PublishOrderIssued(ctx, result, seat); err != nil {
			log.Printf("order: publish order.issued failed for order %s: %v", result.OrderNo, err)
		}
	}
	return result, nil
}

var _ Confirmer = (*reservation.Engine)(nil)
