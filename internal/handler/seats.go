package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/onsale/ticketing/internal/repository"
)

// SeatHandler serves the public seat map for an event. The map is a
// read-only snapshot; it can be slightly stale (and the route is
// response-cached), because the authoritative availability check is the
// conditional write in the hold path, never this view.
type SeatHandler struct {
	Events *repository.EventRepo
	Seats  *repository.SeatRepo
}

// NewSeatHandler constructs a SeatHandler.
func NewSeatHandler(events *repository.EventRepo, seats *repository.SeatRepo) *SeatHandler {
	if events == nil || seats == nil {
		panic("nil repository passed to NewSeatHandler")
	}
	return &SeatHandler{Events: events, Seats: seats}
}

// List handles GET /v1/events/:id/seats.
func (h *SeatHandler) List(c echo.Context) error {
	eventID, err := eventIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	ctx := c.Request().Context()
	if _, err := h.Events.GetByID(ctx, eventID); err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	seats, err := h.Seats.ListByEvent(ctx, eventID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	out := make([]echo.Map, 0, len(seats))
	for _, s := range seats {
		out = append(out, echo.Map{
			"seat_id":     s.ID,
			"seat_code":   s.SeatCode,
			"grade":       s.Grade,
			"price_cents": s.PriceCents,
			"status":      s.Status,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"event_id": eventID, "seats": out})
}
