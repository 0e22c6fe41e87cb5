package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/onsale/ticketing/internal/admission"
	"github.com/onsale/ticketing/internal/repository"
)

// AdmissionHandler exposes the per-event admission queue: join, poll,
// leave. All methods assume JWT authentication has already run.
type AdmissionHandler struct {
	Queue *admission.Queue
}

// NewAdmissionHandler constructs an AdmissionHandler.
func NewAdmissionHandler(q *admission.Queue) *AdmissionHandler {
	if q == nil {
		panic("nil queue passed to NewAdmissionHandler")
	}
	return &AdmissionHandler{Queue: q}
}

func eventIDParam(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid event id")
	}
	return id, nil
}

// Enqueue handles POST /v1/events/:id/queue. It registers the caller in
// the event's admission queue and returns their ticket. Enqueue never
// rejects for load: a caller always gets a position, admitted
// immediately when a slot is free.
func (h *AdmissionHandler) Enqueue(c echo.Context) error {
	holderID, err := getHolderID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, err := eventIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	ticket, err := h.Queue.Enqueue(c.Request().Context(), eventID, holderID)
	switch {
	case err == nil:
		return c.JSON(http.StatusAccepted, ticket)
	case errors.Is(err, admission.ErrEventNotOpen):
		return c.JSON(http.StatusConflict, echo.Map{"error": "event not open for sale"})
	case errors.Is(err, repository.ErrEventNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
	default:
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "queue unavailable"})
	}
}

// Status handles GET /v1/events/:id/queue. Clients poll this; there is
// no server push. An unknown or lapsed holder polls as EXPIRED and
// should re-enqueue.
func (h *AdmissionHandler) Status(c echo.Context) error {
	holderID, err := getHolderID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, err := eventIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	ticket, err := h.Queue.Status(c.Request().Context(), eventID, holderID)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "queue unavailable"})
	}
	return c.JSON(http.StatusOK, ticket)
}

// Leave handles DELETE /v1/events/:id/queue. It removes the caller from
// the queue, or frees their admission slot if they were admitted.
// Leaving when already gone is a no-op.
func (h *AdmissionHandler) Leave(c echo.Context) error {
	holderID, err := getHolderID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventID, err := eventIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	if err := h.Queue.Release(c.Request().Context(), eventID, holderID); err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "queue unavailable"})
	}
	return c.JSON(http.StatusOK, echo.Map{"released": true})
}
