package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/patriziopezzilli/tcgarena-reservation/internal/engine"
	"github.com/patriziopezzilli/tcgarena-reservation/internal/queue"
	queue_publisher "github.com/patriziopezzilli/tcgarena-reservation/internal/service"
)

// MerchantHandler exposes the terminal-facing half of the engine: checking
// a presented pickup code and completing the handover.  The MERCHANT role
// check runs in middleware.
type MerchantHandler struct {
	Engine *engine.Engine
}

// NewMerchantHandler constructs a MerchantHandler.  The engine must be
// non-nil.
func NewMerchantHandler(eng *engine.Engine) *MerchantHandler {
	if eng == nil {
		panic("nil engine passed to NewMerchantHandler")
	}
	return &MerchantHandler{Engine: eng}
}

// ValidateReservation handles POST /v1/reservations/:id/validate.  The
// body carries the code scanned or typed at the counter.  A lapsed
// reservation answers 410 even if no sweep has run; a second validation
// answers 409 so a leaked code cannot be replayed.  Stock stays held, the
// items have not changed hands yet.
func (h *MerchantHandler) ValidateReservation(c echo.Context) error {
	var body struct {
		Code string `json:"code"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.Code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code is required"})
	}
	r, err := h.Engine.Validate(c.Request().Context(), c.Param("id"), body.Code)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"validated_at": r.ValidatedAt.Format(time.RFC3339),
	})
}

// CompletePickup handles POST /v1/reservations/:id/pickup.  The reserved
// units leave inventory for good: total and held drop together, so the
// item's availability is unchanged.
func (h *MerchantHandler) CompletePickup(c echo.Context) error {
	r, err := h.Engine.CompletePickup(c.Request().Context(), c.Param("id"))
	if err != nil {
		return engineError(c, err)
	}
	_ = queue_publisher.PublishReservationEvent(c.Request().Context(), lifecycleEvent(queue.EventReservationPickedUp, r))
	return c.JSON(http.StatusOK, echo.Map{
		"picked_up_at": r.PickedUpAt.Format(time.RFC3339),
	})
}
