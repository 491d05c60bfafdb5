package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/patriziopezzilli/tcgarena-reservation/internal/engine"
	"github.com/patriziopezzilli/tcgarena-reservation/internal/model"
	"github.com/patriziopezzilli/tcgarena-reservation/internal/queue"
	queue_publisher "github.com/patriziopezzilli/tcgarena-reservation/internal/service"
)

// CustomerHandler exposes the customer-facing half of the reservation
// engine: placing and cancelling holds and reading availability and
// reservation status.  JWT authentication and the CUSTOMER role check run
// in middleware before any of these methods; methods return 401 only when
// the identity cannot be extracted from the context.
type CustomerHandler struct {
	Engine *engine.Engine
}

// NewCustomerHandler constructs a CustomerHandler.  The engine must be
// non-nil.
func NewCustomerHandler(eng *engine.Engine) *CustomerHandler {
	if eng == nil {
		panic("nil engine passed to NewCustomerHandler")
	}
	return &CustomerHandler{Engine: eng}
}

// reservationView is the JSON shape returned for a reservation.  The
// pickup code is included: it belongs to the reserving customer, who needs
// it on-device to render the QR image at the counter.
type reservationView struct {
	ID           string  `json:"id"`
	ItemID       string  `json:"item_id"`
	ShopID       string  `json:"shop_id"`
	Quantity     int     `json:"quantity"`
	Status       string  `json:"status"`
	Code         string  `json:"code"`
	CreatedAt    string  `json:"created_at"`
	ExpiresAt    string  `json:"expires_at"`
	ValidatedAt  *string `json:"validated_at,omitempty"`
	PickedUpAt   *string `json:"picked_up_at,omitempty"`
	CancelledAt  *string `json:"cancelled_at,omitempty"`
	CancelReason *string `json:"cancel_reason,omitempty"`
}

func viewOf(r *model.Reservation) reservationView {
	return reservationView{
		ID:           r.ID,
		ItemID:       r.ItemID,
		ShopID:       r.ShopID,
		Quantity:     r.Quantity,
		Status:       string(r.Status),
		Code:         r.Code,
		CreatedAt:    r.CreatedAt.Format(time.RFC3339),
		ExpiresAt:    r.ExpiresAt.Format(time.RFC3339),
		ValidatedAt:  iso(r.ValidatedAt),
		PickedUpAt:   iso(r.PickedUpAt),
		CancelledAt:  iso(r.CancelledAt),
		CancelReason: r.CancelReason,
	}
}

func iso(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

// CreateReservation handles POST /v1/reservations.  The request body must
// contain the item identifier and a positive quantity.  On success it
// returns 201 with the reservation identifier, the single-use pickup code
// and the expiry timestamp; when available stock does not cover the
// request it returns 409 without creating any partial hold.
func (h *CustomerHandler) CreateReservation(c echo.Context) error {
	uid, err := requesterID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		ItemID   string `json:"item_id"`
		Quantity int    `json:"quantity"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.ItemID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "item_id is required"})
	}
	r, err := h.Engine.Create(c.Request().Context(), body.ItemID, uid, body.Quantity)
	if err != nil {
		return engineError(c, err)
	}
	// Best effort; the reservation is committed regardless.
	_ = queue_publisher.PublishReservationEvent(c.Request().Context(), lifecycleEvent(queue.EventReservationCreated, r))
	return c.JSON(http.StatusCreated, echo.Map{
		"reservation_id": r.ID,
		"code":           r.Code,
		"expires_at":     r.ExpiresAt.Format(time.RFC3339),
	})
}

// CancelReservation handles POST /v1/reservations/:id/cancel.  The body
// may carry an optional free-text reason.  The held quantity returns to
// available stock; a reservation whose window already lapsed is expired
// instead and reported as 410.
func (h *CustomerHandler) CancelReservation(c echo.Context) error {
	uid, err := requesterID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id := c.Param("id")
	// Ownership check first so another user's reservation reads as absent.
	if _, err := h.Engine.GetForRequester(c.Request().Context(), id, uid); err != nil {
		return engineError(c, err)
	}
	var body struct {
		Reason string `json:"reason"`
	}
	_ = c.Bind(&body) // empty body is fine
	r, err := h.Engine.Cancel(c.Request().Context(), id, body.Reason)
	if err != nil {
		return engineError(c, err)
	}
	_ = queue_publisher.PublishReservationEvent(c.Request().Context(), lifecycleEvent(queue.EventReservationCancelled, r))
	return c.JSON(http.StatusOK, echo.Map{
		"cancelled_at": r.CancelledAt.Format(time.RFC3339),
	})
}

// GetReservation handles GET /v1/reservations/:id.  The customer client
// polls this to refresh the countdown and status; all timestamps are
// server-authoritative, the client never computes expiry locally.
func (h *CustomerHandler) GetReservation(c echo.Context) error {
	uid, err := requesterID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	r, err := h.Engine.GetForRequester(c.Request().Context(), c.Param("id"), uid)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, viewOf(r))
}

// ListReservations handles GET /v1/reservations.  It returns the caller's
// reservation history newest first, terminal states included.
func (h *CustomerHandler) ListReservations(c echo.Context) error {
	uid, err := requesterID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	rs, err := h.Engine.ListForRequester(c.Request().Context(), uid)
	if err != nil {
		return engineError(c, err)
	}
	views := make([]reservationView, 0, len(rs))
	for _, r := range rs {
		views = append(views, viewOf(r))
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": views})
}

// GetAvailability handles GET /v1/items/:id/availability.  Available is
// always derived server-side as total minus held.
func (h *CustomerHandler) GetAvailability(c echo.Context) error {
	item, err := h.Engine.Availability(c.Request().Context(), c.Param("id"))
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"item_id":   item.ID,
		"shop_id":   item.ShopID,
		"total":     item.Total,
		"held":      item.Held,
		"available": item.Available(),
	})
}

// lifecycleEvent builds the broker payload for a reservation transition.
func lifecycleEvent(eventType string, r *model.Reservation) queue.ReservationEvent {
	return queue.ReservationEvent{
		Type:          eventType,
		ReservationID: r.ID,
		ItemID:        r.ItemID,
		ShopID:        r.ShopID,
		RequesterID:   r.RequesterID,
		Quantity:      r.Quantity,
		Status:        string(r.Status),
		ExpiresAt:     r.ExpiresAt.UTC().Format(time.RFC3339),
		OccurredAt:    time.Now().UTC().Format(time.RFC3339),
	}
}
