package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusPending, StatusValidated, true},
		{StatusPending, StatusExpired, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusPickedUp, false},
		{StatusValidated, StatusPickedUp, true},
		{StatusValidated, StatusCancelled, true},
		{StatusValidated, StatusExpired, false},
		{StatusValidated, StatusPending, false},
		{StatusPickedUp, StatusCancelled, false},
		{StatusPickedUp, StatusPending, false},
		{StatusExpired, StatusValidated, false},
		{StatusExpired, StatusPending, false},
		{StatusCancelled, StatusPending, false},
		{StatusCancelled, StatusValidated, false},
	}
	for _, tc := range cases {
		got := tc.from.CanTransitionTo(tc.to)
		assert.Equal(t, tc.allowed, got, "%s -> %s", tc.from, tc.to)
	}
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusValidated.Terminal())
	assert.True(t, StatusPickedUp.Terminal())
	assert.True(t, StatusExpired.Terminal())
	assert.True(t, StatusCancelled.Terminal())
}

func TestStatusHolding(t *testing.T) {
	assert.True(t, StatusPending.Holding())
	assert.True(t, StatusValidated.Holding())
	assert.False(t, StatusPickedUp.Holding())
	assert.False(t, StatusExpired.Holding())
	assert.False(t, StatusCancelled.Holding())
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusValidated, StatusPickedUp, StatusExpired, StatusCancelled} {
		assert.True(t, s.Valid(), "%s", s)
	}
	assert.False(t, Status("NOPE").Valid())
	assert.False(t, Status("").Valid())
}

func TestReservationExpiredBy(t *testing.T) {
	now := time.Now().UTC()
	r := Reservation{ExpiresAt: now}
	assert.False(t, r.ExpiredBy(now), "the boundary instant is still live")
	assert.False(t, r.ExpiredBy(now.Add(-time.Second)))
	assert.True(t, r.ExpiredBy(now.Add(time.Second)))
}

func TestStockItemAvailable(t *testing.T) {
	s := StockItem{Total: 10, Held: 3}
	assert.Equal(t, 7, s.Available())

	s = StockItem{Total: 2, Held: 2}
	assert.Equal(t, 0, s.Available())
}
