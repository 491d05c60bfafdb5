package handler // handler defines http handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/patriziopezzilli/tcgarena-reservation/internal/engine"
)

// requesterID extracts the authenticated requester identity placed in the
// context by the JWT middleware.
func requesterID(c echo.Context) (string, error) {
	if s, ok := c.Get("user_id").(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("missing user_id in context")
}

// engineError translates an engine error into the HTTP response the two
// client actors expect.  Transient contention (Busy) advertises a retry;
// everything else is permanent from the caller's point of view.
func engineError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, engine.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, engine.ErrInsufficientStock):
		return c.JSON(http.StatusConflict, echo.Map{"error": "insufficient stock"})
	case errors.Is(err, engine.ErrAlreadyValidated):
		return c.JSON(http.StatusConflict, echo.Map{"error": "already validated"})
	case errors.Is(err, engine.ErrInvalidState):
		return c.JSON(http.StatusConflict, echo.Map{"error": "invalid reservation state"})
	case errors.Is(err, engine.ErrExpired):
		return c.JSON(http.StatusGone, echo.Map{"error": "reservation expired"})
	case errors.Is(err, engine.ErrCodeMismatch):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "code mismatch"})
	case errors.Is(err, engine.ErrInvalidQuantity):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "quantity must be at least 1"})
	case errors.Is(err, engine.ErrBusy):
		c.Response().Header().Set("Retry-After", "1")
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "busy, retry"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
