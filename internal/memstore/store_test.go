package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patriziopezzilli/tcgarena-reservation/internal/engine"
	"github.com/patriziopezzilli/tcgarena-reservation/internal/model"
)

func newReservation(id, itemID, requesterID, code string, status model.Status, expiresAt time.Time) *model.Reservation {
	return &model.Reservation{
		ID:          id,
		ItemID:      itemID,
		RequesterID: requesterID,
		ShopID:      "shop-1",
		Quantity:    1,
		Status:      status,
		Code:        code,
		CreatedAt:   time.Now().UTC(),
		ExpiresAt:   expiresAt,
	}
}

func TestStoreCreateAndGet(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	r := newReservation("r1", "i1", "u1", "CODE1", model.StatusPending, time.Now().UTC().Add(time.Hour))

	require.NoError(t, s.Create(ctx, r))
	got, err := s.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)
	assert.Equal(t, r.Code, got.Code)

	_, err = s.Get(ctx, "r2")
	assert.ErrorIs(t, err, engine.ErrNotFound)
}

func TestStoreGetReturnsCopy(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, newReservation("r1", "i1", "u1", "CODE1", model.StatusPending, time.Now().UTC())))

	got, err := s.Get(ctx, "r1")
	require.NoError(t, err)
	got.Status = model.StatusCancelled

	again, err := s.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, again.Status)
}

func TestStoreRejectsLiveCodeReuse(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	expires := time.Now().UTC().Add(time.Hour)

	require.NoError(t, s.Create(ctx, newReservation("r1", "i1", "u1", "SHARED", model.StatusPending, expires)))
	err := s.Create(ctx, newReservation("r2", "i1", "u2", "SHARED", model.StatusPending, expires))
	assert.ErrorIs(t, err, engine.ErrCodeConflict)
}

func TestStoreAllowsCodeReuseAfterTerminal(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	expires := time.Now().UTC().Add(time.Hour)

	first := newReservation("r1", "i1", "u1", "SHARED", model.StatusPending, expires)
	require.NoError(t, s.Create(ctx, first))

	first.Status = model.StatusCancelled
	require.NoError(t, s.Update(ctx, first))

	// The code space only has to be unique among live holds.
	err := s.Create(ctx, newReservation("r2", "i1", "u2", "SHARED", model.StatusPending, expires))
	assert.NoError(t, err)
}

func TestStoreUpdateUnknown(t *testing.T) {
	s := NewStore()
	err := s.Update(context.Background(), newReservation("ghost", "i1", "u1", "C", model.StatusPending, time.Now().UTC()))
	assert.ErrorIs(t, err, engine.ErrNotFound)
}

func TestStoreListExpiredOrderAndLimit(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.Create(ctx, newReservation("late", "i1", "u1", "C1", model.StatusPending, now.Add(-time.Minute))))
	require.NoError(t, s.Create(ctx, newReservation("early", "i1", "u2", "C2", model.StatusPending, now.Add(-time.Hour))))
	require.NoError(t, s.Create(ctx, newReservation("fresh", "i1", "u3", "C3", model.StatusPending, now.Add(time.Hour))))
	require.NoError(t, s.Create(ctx, newReservation("done", "i1", "u4", "C4", model.StatusValidated, now.Add(-time.Hour))))

	out, err := s.ListExpired(ctx, now, 0)
	require.NoError(t, err)
	require.Len(t, out, 2, "only lapsed PENDING qualifies")
	assert.Equal(t, "early", out[0].ID, "oldest expiry first")
	assert.Equal(t, "late", out[1].ID)

	out, err = s.ListExpired(ctx, now, 1)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "early", out[0].ID)
}

func TestStoreListExpiredByItem(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.Create(ctx, newReservation("a", "i1", "u1", "C1", model.StatusPending, now.Add(-time.Minute))))
	require.NoError(t, s.Create(ctx, newReservation("b", "i2", "u2", "C2", model.StatusPending, now.Add(-time.Minute))))

	out, err := s.ListExpiredByItem(ctx, "i1", now)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "a", out[0].ID)
}

func TestStoreListByRequesterNewestFirst(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	base := time.Now().UTC()

	older := newReservation("old", "i1", "u1", "C1", model.StatusPending, base.Add(time.Hour))
	older.CreatedAt = base.Add(-time.Hour)
	newer := newReservation("new", "i1", "u1", "C2", model.StatusPending, base.Add(time.Hour))
	newer.CreatedAt = base
	other := newReservation("theirs", "i1", "u2", "C3", model.StatusPending, base.Add(time.Hour))

	require.NoError(t, s.Create(ctx, older))
	require.NoError(t, s.Create(ctx, newer))
	require.NoError(t, s.Create(ctx, other))

	out, err := s.ListByRequester(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "new", out[0].ID)
	assert.Equal(t, "old", out[1].ID)

	out, err = s.ListByRequester(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, out)
}
