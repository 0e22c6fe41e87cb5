package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/onsale/ticketing/internal/model"
	"github.com/onsale/ticketing/internal/order"
	"github.com/onsale/ticketing/internal/reservation"
)

// OrderHandler exposes hold confirmation, the operation that turns a
// held seat into a persisted order and issued ticket.
type OrderHandler struct {
	Finalizer *order.Finalizer
}

// NewOrderHandler constructs an OrderHandler.
func NewOrderHandler(f *order.Finalizer) *OrderHandler {
	if f == nil {
		panic("nil finalizer passed to NewOrderHandler")
	}
	return &OrderHandler{Finalizer: f}
}

// Create handles POST /v1/orders. The idempotency key must be stable
// across retries of the same logical purchase: a replay returns the
// original order unchanged.
func (h *OrderHandler) Create(c echo.Context) error {
	holderID, err := getHolderID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		SeatID         uint64 `json:"seat_id"`
		FencingToken   uint64 `json:"fencing_token"`
		IdempotencyKey string `json:"idempotency_key"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.SeatID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_id is required"})
	}

	o, err := h.Finalizer.Finalize(c.Request().Context(), order.FinalizeInput{
		SeatID:         body.SeatID,
		HolderID:       holderID,
		FencingToken:   body.FencingToken,
		IdempotencyKey: body.IdempotencyKey,
	})
	switch {
	case err == nil:
		return c.JSON(http.StatusCreated, orderJSON(o))
	case errors.Is(err, order.ErrIdempotencyKeyRequired):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "idempotency_key is required"})
	case errors.Is(err, reservation.ErrHoldExpired):
		return c.JSON(http.StatusConflict, echo.Map{"error": "hold expired; reselect a seat"})
	case errors.Is(err, reservation.ErrHoldNotOwned):
		return c.JSON(http.StatusConflict, echo.Map{"error": "hold not owned; reselect a seat"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
}

func orderJSON(o model.Order) echo.Map {
	return echo.Map{
		"order_no":     o.OrderNo,
		"event_id":     o.EventID,
		"seat_id":      o.SeatID,
		"amount_cents": o.AmountCents,
		"created_at":   o.CreatedAt.UTC().Format(time.RFC3339),
	}
}
