package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patriziopezzilli/tcgarena-reservation/internal/engine"
	"github.com/patriziopezzilli/tcgarena-reservation/internal/memstore"
	"github.com/patriziopezzilli/tcgarena-reservation/internal/model"
)

func newHandlers(t *testing.T) (*CustomerHandler, *MerchantHandler, *memstore.Store) {
	t.Helper()
	ledger := memstore.NewLedger()
	store := memstore.NewStore()
	err := ledger.Upsert(context.Background(), &model.StockItem{ID: "item-1", ShopID: "shop-1", Total: 3})
	require.NoError(t, err)
	eng := engine.New(ledger, store, 30*time.Minute, time.Second)
	return NewCustomerHandler(eng), NewMerchantHandler(eng), store
}

// request builds an echo context for a handler call, with the identity the
// JWT middleware would have placed in it.
func request(method, target, body, userID string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if userID != "" {
		c.Set("user_id", userID)
	}
	return c, rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func createReservation(t *testing.T, customer *CustomerHandler, userID string, qty int) (id, code string) {
	t.Helper()
	body, _ := json.Marshal(map[string]any{"item_id": "item-1", "quantity": qty})
	c, rec := request(http.MethodPost, "/v1/reservations", string(body), userID)
	require.NoError(t, customer.CreateReservation(c))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	out := decode(t, rec)
	return out["reservation_id"].(string), out["code"].(string)
}

func TestCreateReservationEndpoint(t *testing.T) {
	customer, _, _ := newHandlers(t)

	c, rec := request(http.MethodPost, "/v1/reservations", `{"item_id":"item-1","quantity":2}`, "user-1")
	require.NoError(t, customer.CreateReservation(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	out := decode(t, rec)
	assert.NotEmpty(t, out["reservation_id"])
	assert.Len(t, out["code"], 16)
	expires, err := time.Parse(time.RFC3339, out["expires_at"].(string))
	require.NoError(t, err)
	assert.True(t, expires.After(time.Now()))
}

func TestCreateReservationRejections(t *testing.T) {
	customer, _, _ := newHandlers(t)

	cases := []struct {
		name   string
		body   string
		userID string
		status int
	}{
		{"no identity", `{"item_id":"item-1","quantity":1}`, "", http.StatusUnauthorized},
		{"missing item", `{"quantity":1}`, "user-1", http.StatusBadRequest},
		{"zero quantity", `{"item_id":"item-1","quantity":0}`, "user-1", http.StatusBadRequest},
		{"unknown item", `{"item_id":"ghost","quantity":1}`, "user-1", http.StatusNotFound},
		{"over stock", `{"item_id":"item-1","quantity":4}`, "user-1", http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := request(http.MethodPost, "/v1/reservations", tc.body, tc.userID)
			require.NoError(t, customer.CreateReservation(c))
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
		})
	}
}

func TestAvailabilityEndpoint(t *testing.T) {
	customer, _, _ := newHandlers(t)
	createReservation(t, customer, "user-1", 2)

	c, rec := request(http.MethodGet, "/v1/items/item-1/availability", "", "user-1")
	c.SetParamNames("id")
	c.SetParamValues("item-1")
	require.NoError(t, customer.GetAvailability(c))
	require.Equal(t, http.StatusOK, rec.Code)

	out := decode(t, rec)
	assert.Equal(t, float64(3), out["total"])
	assert.Equal(t, float64(2), out["held"])
	assert.Equal(t, float64(1), out["available"])
}

func TestCancelEndpointRestoresStockAndScopesOwner(t *testing.T) {
	customer, _, _ := newHandlers(t)
	id, _ := createReservation(t, customer, "user-1", 2)

	// A different customer cannot even see the reservation.
	c, rec := request(http.MethodPost, "/v1/reservations/"+id+"/cancel", `{"reason":"nope"}`, "user-2")
	c.SetParamNames("id")
	c.SetParamValues(id)
	require.NoError(t, customer.CancelReservation(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	c, rec = request(http.MethodPost, "/v1/reservations/"+id+"/cancel", `{"reason":"found a better price"}`, "user-1")
	c.SetParamNames("id")
	c.SetParamValues(id)
	require.NoError(t, customer.CancelReservation(c))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode(t, rec)["cancelled_at"])

	c, rec = request(http.MethodGet, "/v1/items/item-1/availability", "", "user-1")
	c.SetParamNames("id")
	c.SetParamValues("item-1")
	require.NoError(t, customer.GetAvailability(c))
	assert.Equal(t, float64(3), decode(t, rec)["available"])
}

func TestGetAndListReservationEndpoints(t *testing.T) {
	customer, _, _ := newHandlers(t)
	id, code := createReservation(t, customer, "user-1", 1)

	c, rec := request(http.MethodGet, "/v1/reservations/"+id, "", "user-1")
	c.SetParamNames("id")
	c.SetParamValues(id)
	require.NoError(t, customer.GetReservation(c))
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, id, out["id"])
	assert.Equal(t, code, out["code"])
	assert.Equal(t, string(model.StatusPending), out["status"])

	c, rec = request(http.MethodGet, "/v1/reservations", "", "user-1")
	require.NoError(t, customer.ListReservations(c))
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode(t, rec)["reservations"].([]any)
	assert.Len(t, list, 1)

	c, rec = request(http.MethodGet, "/v1/reservations", "", "user-2")
	require.NoError(t, customer.ListReservations(c))
	assert.Empty(t, decode(t, rec)["reservations"])
}

func TestValidateAndPickupEndpoints(t *testing.T) {
	customer, merchant, _ := newHandlers(t)
	id, code := createReservation(t, customer, "user-1", 1)

	// Wrong code first.
	c, rec := request(http.MethodPost, "/v1/merchant/reservations/"+id+"/validate", `{"code":"WRONGCODEWRONGCO"}`, "merchant-1")
	c.SetParamNames("id")
	c.SetParamValues(id)
	require.NoError(t, merchant.ValidateReservation(c))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// Pickup before validation is refused.
	c, rec = request(http.MethodPost, "/v1/merchant/reservations/"+id+"/pickup", "", "merchant-1")
	c.SetParamNames("id")
	c.SetParamValues(id)
	require.NoError(t, merchant.CompletePickup(c))
	assert.Equal(t, http.StatusConflict, rec.Code)

	body, _ := json.Marshal(map[string]string{"code": code})
	c, rec = request(http.MethodPost, "/v1/merchant/reservations/"+id+"/validate", string(body), "merchant-1")
	c.SetParamNames("id")
	c.SetParamValues(id)
	require.NoError(t, merchant.ValidateReservation(c))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode(t, rec)["validated_at"])

	// Replay answers 409.
	c, rec = request(http.MethodPost, "/v1/merchant/reservations/"+id+"/validate", string(body), "merchant-1")
	c.SetParamNames("id")
	c.SetParamValues(id)
	require.NoError(t, merchant.ValidateReservation(c))
	assert.Equal(t, http.StatusConflict, rec.Code)

	c, rec = request(http.MethodPost, "/v1/merchant/reservations/"+id+"/pickup", "", "merchant-1")
	c.SetParamNames("id")
	c.SetParamValues(id)
	require.NoError(t, merchant.CompletePickup(c))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode(t, rec)["picked_up_at"])
}

func TestValidateExpiredEndpointAnswersGone(t *testing.T) {
	customer, merchant, store := newHandlers(t)
	id, code := createReservation(t, customer, "user-1", 1)

	r, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	r.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	require.NoError(t, store.Update(context.Background(), r))

	body, _ := json.Marshal(map[string]string{"code": code})
	c, rec := request(http.MethodPost, "/v1/merchant/reservations/"+id+"/validate", string(body), "merchant-1")
	c.SetParamNames("id")
	c.SetParamValues(id)
	require.NoError(t, merchant.ValidateReservation(c))
	assert.Equal(t, http.StatusGone, rec.Code)
}

func TestValidateEndpointRequiresCode(t *testing.T) {
	customer, merchant, _ := newHandlers(t)
	id, _ := createReservation(t, customer, "user-1", 1)

	c, rec := request(http.MethodPost, "/v1/merchant/reservations/"+id+"/validate", `{}`, "merchant-1")
	c.SetParamNames("id")
	c.SetParamValues(id)
	require.NoError(t, merchant.ValidateReservation(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
