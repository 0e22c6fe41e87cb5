// Package reservation implements the seat lifecycle state machine:
// AVAILABLE -> HELD -> ISSUED, with HELD -> AVAILABLE on release or
// expiry. Every transition is a conditional write against the seat's
// version, so concurrent attempts on one seat resolve to exactly one
// winner and losers observe a clean failure, never corruption.
package reservation

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/onsale/ticketing/internal/clock"
	"github.com/onsale/ticketing/internal/model"
	"github.com/onsale/ticketing/internal/repository"
)

// Repository is the transactional storage the engine runs on. The
// production implementation is repository.Store; tests use an
// in-memory fake with the same CAS semantics.
type Repository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetSeat(ctx context.Context, eventID, seatID uint64) (model.Seat, error)
	CompareAndSetSeatStatus(ctx context.Context, eventID, seatID uint64, expected, next string, version uint64) (repository.CASResult, error)
	HoldBySeat(ctx context.Context, seatID uint64) (model.Hold, error)
	CreateHold(ctx context.Context, h *model.Hold) error
	DeleteHold(ctx context.Context, holdID uint64) error
	ExpiredHolds(ctx context.Context, eventID uint64, now time.Time) ([]model.Hold, error)
}

// Admitter is the slice of the admission queue the engine needs: the
// gate check before a hold attempt, and the consume mark after one
// succeeds.
type Admitter interface {
	IsAdmitted(ctx context.Context, eventID, holderID uint64) (bool, error)
	Consume(ctx context.Context, eventID, holderID uint64) error
}

// Engine governs seat state transitions.
type Engine struct {
	repo     Repository
	admitter Admitter
	clk      clock.Clock
	holdTTL  time.Duration
}

const defaultHoldTTL = 5 * time.Minute

// NewEngine constructs an Engine.
func NewEngine(repo Repository, admitter Admitter, clk clock.Clock, opts ...Option) *Engine {
	e := &Engine{repo: repo, admitter: admitter, clk: clk, holdTTL: defaultHoldTTL}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Option configures an Engine.
type Option func(*Engine)

// WithHoldTTL overrides the default TTL for new holds.
func WithHoldTTL(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.holdTTL = d
		}
	}
}

// TryHold attempts to claim a seat for the holder. The caller must have
// a live admitted session for the event. Losing the race for a seat is
// a normal, cheap outcome reported as ErrSeatUnavailable – there is no
// per-seat wait queue and no retry loop here.
func (e *Engine) TryHold(ctx context.Context, eventID, seatID, holderID uint64) (model.Hold, error) {
	admitted, err := e.admitter.IsAdmitted(ctx, eventID, holderID)
	if err != nil {
		return model.Hold{}, err
	}
	if !admitted {
		return model.Hold{}, ErrAdmissionRequired
	}

	now := e.clk.Now()
	var hold model.Hold

	err = e.repo.WithTx(ctx, func(ctx context.Context) error {
		seat, err := e.repo.GetSeat(ctx, eventID, seatID)
		if err != nil {
			if errors.Is(err, repository.ErrSeatNotFound) {
				return ErrSeatNotFound
			}
			return err
		}
		if seat.Status != model.SeatStatusAvailable {
			return ErrSeatUnavailable
		}

		res, err := e.repo.CompareAndSetSeatStatus(ctx, eventID, seatID,
			model.SeatStatusAvailable, model.SeatStatusHeld, seat.Version)
		if err != nil {
			if errors.Is(err, repository.ErrSeatNotFound) {
				return ErrSeatNotFound
			}
			return err
		}
		if res != repository.CASOK {
			// Lost the race; whoever won owns the seat now.
			return ErrSeatUnavailable
		}

		hold = model.Hold{
			EventID:      eventID,
			SeatID:       seatID,
			HolderID:     holderID,
			FencingToken: seat.Version + 1, // version after the CAS
			ExpiresAt:    now.Add(e.holdTTL),
		}
		if err := e.repo.CreateHold(ctx, &hold); err != nil {
			if errors.Is(err, repository.ErrHoldConflict) {
				return ErrSeatUnavailable
			}
			return err
		}
		return nil
	})
	if err != nil {
		return model.Hold{}, err
	}

	// Mark the admission session consumed. Best effort: the hold is
	// already durable, and the session expires on its own regardless.
	if err := e.admitter.Consume(ctx, eventID, holderID); err != nil {
		log.Printf("reservation: consume admission failed for holder %d event %d: %v", holderID, eventID, err)
	}
	return hold, nil
}

// Confirm transitions a held seat to ISSUED on behalf of its owner.
// It must run inside a caller-owned WithTx so the order finalizer can
// make the confirm and the order insert one atomic unit. Returns the
// seat as of the transition for price capture.
func (e *Engine) Confirm(ctx context.Context, seatID, holderID, fencingToken uint64) (model.Seat, error) {
	hold, err := e.repo.HoldBySeat(ctx, seatID)
	if err != nil {
		if errors.Is(err, repository.ErrHoldNotFound) {
			// No live hold: either never held or already swept. The
			// caller's token is stale either way.
			return model.Seat{}, ErrHoldNotOwned
		}
		return model.Seat{}, err
	}
	if hold.HolderID != holderID || hold.FencingToken != fencingToken {
		return model.Seat{}, ErrHoldNotOwned
	}
	if hold.Expired(e.clk.Now()) {
		// Dead the moment the deadline passes, swept or not.
		return model.Seat{}, ErrHoldExpired
	}

	res, err := e.repo.CompareAndSetSeatStatus(ctx, hold.EventID, seatID,
		model.SeatStatusHeld, model.SeatStatusIssued, hold.FencingToken)
	if err != nil {
		return model.Seat{}, err
	}
	if res != repository.CASOK {
		// The seat moved on without its hold row; the token is from a
		// superseded writer.
		return model.Seat{}, ErrHoldNotOwned
	}
	if err := e.repo.DeleteHold(ctx, hold.ID); err != nil {
		return model.Seat{}, err
	}
	return e.repo.GetSeat(ctx, hold.EventID, seatID)
}

// Release is the explicit cancel path: the owner gives the seat back
// before the hold expires. Releasing a seat whose hold is already gone
// is an idempotent no-op; a holder/token mismatch is rejected so a
// stale session cannot release somebody else's hold.
func (e *Engine) Release(ctx context.Context, seatID, holderID, fencingToken uint64) error {
	return e.repo.WithTx(ctx, func(ctx context.Context) error {
		hold, err := e.repo.HoldBySeat(ctx, seatID)
		if err != nil {
			if errors.Is(err, repository.ErrHoldNotFound) {
				return nil // already gone
			}
			return err
		}
		if hold.HolderID != holderID || hold.FencingToken != fencingToken {
			return ErrHoldNotOwned
		}

		res, err := e.repo.CompareAndSetSeatStatus(ctx, hold.EventID, seatID,
			model.SeatStatusHeld, model.SeatStatusAvailable, hold.FencingToken)
		if err != nil {
			return err
		}
		if res != repository.CASOK {
			// Seat already transitioned elsewhere; just drop the hold.
			log.Printf("reservation: release seat %d skipped seat transition (cas=%d)", seatID, res)
		}
		return e.repo.DeleteHold(ctx, hold.ID)
	})
}

// SweepExpired reclaims every expired hold for the event, returning the
// seats to AVAILABLE. Invoked only under the scheduler guard, but safe
// to re-run anywhere: each reclaim is conditioned on the hold's fencing
// token, so a seat that already moved on is left alone and only the
// dead hold row is removed.
func (e *Engine) SweepExpired(ctx context.Context, eventID uint64) (int, error) {
	now := e.clk.Now()
	swept := 0
	err := e.repo.WithTx(ctx, func(ctx context.Context) error {
		holds, err := e.repo.ExpiredHolds(ctx, eventID, now)
		if err != nil {
			return err
		}
		for _, h := range holds {
			res, err := e.repo.CompareAndSetSeatStatus(ctx, eventID, h.SeatID,
				model.SeatStatusHeld, model.SeatStatusAvailable, h.FencingToken)
			if err != nil {
				return err
			}
			if err := e.repo.DeleteHold(ctx, h.ID); err != nil {
				return err
			}
			if res == repository.CASOK {
				swept++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return swept, nil
}
