package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/onsale/ticketing/internal/model"
	"github.com/onsale/ticketing/internal/repository"
)

var validGrades = map[string]bool{
	model.GradeVIP: true,
	model.GradeR:   true,
	model.GradeS:   true,
	model.GradeA:   true,
}

// EventLookup resolves an event by ID. *repository.EventRepo satisfies it.
type EventLookup interface {
	GetByID(ctx context.Context, eventID uint64) (model.Event, error)
}

// SeatLoader persists seat inventory transactionally.
// *repository.Store satisfies it.
type SeatLoader interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	CreateSeats(ctx context.Context, seats []model.Seat) error
}

// AdminSeatHandler lets operators load seat inventory for an event
// before the sale opens. Requires the ADMIN role.
type AdminSeatHandler struct {
	Events EventLookup
	Store  SeatLoader
}

// NewAdminSeatHandler constructs an AdminSeatHandler.
func NewAdminSeatHandler(events EventLookup, store SeatLoader) *AdminSeatHandler {
	if events == nil || store == nil {
		panic("nil dependency passed to NewAdminSeatHandler")
	}
	return &AdminSeatHandler{Events: events, Store: store}
}

// BulkCreate handles POST /v1/admin/events/:id/seats. The body carries
// a JSON array of {seat_code, grade, price_cents}. Seats can only be
// loaded while the event is not yet OPEN; prices are immutable after
// that.
func (h *AdminSeatHandler) BulkCreate(c echo.Context) error {
	eventID, err := eventIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	ctx := c.Request().Context()

	ev, err := h.Events.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if ev.Status != model.EventStatusReady {
		return c.JSON(http.StatusConflict, echo.Map{"error": "inventory is frozen once the sale opens"})
	}

	var body struct {
		Seats []struct {
			SeatCode   string `json:"seat_code"`
			Grade      string `json:"grade"`
			PriceCents uint32 `json:"price_cents"`
		} `json:"seats"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if len(body.Seats) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seats is required"})
	}

	seats := make([]model.Seat, 0, len(body.Seats))
	for _, s := range body.Seats {
		if s.SeatCode == "" || !validGrades[s.Grade] {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "each seat needs a seat_code and a valid grade"})
		}
		seats = append(seats, model.Seat{
			EventID:    eventID,
			SeatCode:   s.SeatCode,
			Grade:      s.Grade,
			PriceCents: s.PriceCents,
		})
	}

	err = h.Store.WithTx(ctx, func(ctx context.Context) error {
		return h.Store.CreateSeats(ctx, seats)
	})
	if err != nil {
		if errors.Is(err, repository.ErrSeatExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "seat already exists for this event"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create seats"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"created": len(seats)})
}
