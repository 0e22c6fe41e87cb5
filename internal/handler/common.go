package handler

import (
	"errors"

	"github.com/labstack/echo/v4"
)

// getHolderID extracts the authenticated holder's ID that JWTAuth
// stored in the context. Handlers treat a missing or malformed value as
// an unauthenticated request.
func getHolderID(c echo.Context) (uint64, error) {
	v := c.Get("holder_id")
	id, ok := v.(uint64)
	if !ok || id == 0 {
		return 0, errors.New("holder id missing from context")
	}
	return id, nil
}
