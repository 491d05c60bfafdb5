package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/patriziopezzilli/tcgarena-reservation/internal/engine"
	"github.com/patriziopezzilli/tcgarena-reservation/internal/model"
)

// Store is an in-memory reservation store.  Reservations are kept forever
// (terminal states included) to match the audit/history semantics of the
// durable store.  A secondary index by pickup code backs the
// duplicate-code rejection that the engine's generation retry relies on.
type Store struct {
	mu     sync.RWMutex
	byID   map[string]*model.Reservation
	byCode map[string]string // code -> reservation ID
}

// NewStore returns an empty in-memory reservation store.
func NewStore() *Store {
	return &Store{
		byID:   make(map[string]*model.Reservation),
		byCode: make(map[string]string),
	}
}

// Create inserts a new reservation.  A pickup code already carried by a
// live (holding) reservation is rejected with ErrCodeConflict so the
// engine can regenerate.
func (s *Store) Create(_ context.Context, r *model.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if other, ok := s.byCode[r.Code]; ok {
		if existing := s.byID[other]; existing != nil && existing.Status.Holding() {
			return engine.ErrCodeConflict
		}
	}
	cp := *r
	s.byID[cp.ID] = &cp
	s.byCode[cp.Code] = cp.ID
	return nil
}

// Get returns a copy of the reservation.
func (s *Store) Get(_ context.Context, id string) (*model.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byID[id]
	if !ok {
		return nil, engine.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

// Update persists status and timestamp changes for an existing row.
func (s *Store) Update(_ context.Context, r *model.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[r.ID]; !ok {
		return engine.ErrNotFound
	}
	cp := *r
	s.byID[cp.ID] = &cp
	return nil
}

// ListExpired returns up to limit lapsed PENDING reservations, oldest
// expiry first.
func (s *Store) ListExpired(_ context.Context, now time.Time, limit int) ([]*model.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Reservation
	for _, r := range s.byID {
		if r.Status == model.StatusPending && now.After(r.ExpiresAt) {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ListExpiredByItem returns all lapsed PENDING reservations for one item.
func (s *Store) ListExpiredByItem(_ context.Context, itemID string, now time.Time) ([]*model.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Reservation
	for _, r := range s.byID {
		if r.ItemID == itemID && r.Status == model.StatusPending && now.After(r.ExpiresAt) {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	return out, nil
}

// ListByRequester returns the requester's reservations, newest first.
func (s *Store) ListByRequester(_ context.Context, requesterID string) ([]*model.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Reservation, 0)
	for _, r := range s.byID {
		if r.RequesterID == requesterID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
