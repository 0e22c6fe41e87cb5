package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/onsale/ticketing/internal/reservation"
)

// ReservationHandler exposes seat hold and release. Confirmation lives
// on OrderHandler since it is an order-creating operation.
type ReservationHandler struct {
	Engine *reservation.Engine
}

// NewReservationHandler constructs a ReservationHandler.
func NewReservationHandler(e *reservation.Engine) *ReservationHandler {
	if e == nil {
		panic("nil engine passed to NewReservationHandler")
	}
	return &ReservationHandler{Engine: e}
}

func seatIDParam(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("seatId"), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid seat id")
	}
	return id, nil
}

// Hold handles POST /v1/events/:id/seats/:seatId/hold. It attempts to
// claim the seat for the caller. Losing a race is reported as 409 with
// "seat unavailable"; the client picks another seat rather than
// retrying this one.
func (h *ReservationHandler) Hold(c echo.Context) error {
	holderID, err := getHolderID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, err := eventIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	seatID, err := seatIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid seat id"})
	}

	hold, err := h.Engine.TryHold(c.Request().Context(), eventID, seatID, holderID)
	switch {
	case err == nil:
		return c.JSON(http.StatusCreated, echo.Map{
			"held":          true,
			"seat_id":       hold.SeatID,
			"hold_token":    hold.HoldToken,
			"fencing_token": hold.FencingToken,
			"expires_at":    hold.ExpiresAt.UTC().Format(time.RFC3339),
		})
	case errors.Is(err, reservation.ErrAdmissionRequired):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "admission required"})
	case errors.Is(err, reservation.ErrSeatNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "seat not found"})
	case errors.Is(err, reservation.ErrSeatUnavailable):
		return c.JSON(http.StatusConflict, echo.Map{"error": "seat unavailable"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
}

// Release handles DELETE /v1/events/:id/seats/:seatId/hold. The body
// carries the fencing token proving the caller owns the hold. Releasing
// an already-gone hold succeeds (idempotent).
func (h *ReservationHandler) Release(c echo.Context) error {
	holderID, err := getHolderID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	seatID, err := seatIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid seat id"})
	}
	var body struct {
		FencingToken uint64 `json:"fencing_token"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	err = h.Engine.Release(c.Request().Context(), seatID, holderID, body.FencingToken)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, echo.Map{"released": true})
	case errors.Is(err, reservation.ErrHoldNotOwned):
		return c.JSON(http.StatusConflict, echo.Map{"error": "hold not owned"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
}
