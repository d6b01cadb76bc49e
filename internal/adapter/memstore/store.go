// Package memstore keeps fundraisers in process memory. It serves development
// and tests; data is lost on restart.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"fundraiser/internal/domain"
)

type donorKey struct {
	fundraiser uuid.UUID
	donor      domain.Identity
}

// Store implements domain.FundraiserStore. A single mutex serializes every
// Update, which matches the call-at-a-time execution model of a ledger.
type Store struct {
	mu        sync.RWMutex
	order     []uuid.UUID
	items     map[uuid.UUID]*domain.Fundraiser
	donations map[donorKey][]domain.DonationRecord
	events    map[uuid.UUID][]domain.Event
}

// New returns an empty store.
func New() *Store {
	return &Store{
		items:     make(map[uuid.UUID]*domain.Fundraiser),
		donations: make(map[donorKey][]domain.DonationRecord),
		events:    make(map[uuid.UUID][]domain.Event),
	}
}

func (s *Store) Create(ctx context.Context, f *domain.Fundraiser) error {
	if f == nil {
		return fmt.Errorf("memstore: fundraiser is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[f.ID]; exists {
		return fmt.Errorf("memstore: fundraiser %s already exists", f.ID)
	}
	s.items[f.ID] = f.Clone()
	s.order = append(s.order, f.ID)
	return nil
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (*domain.Fundraiser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return f.Clone(), nil
}

func (s *Store) List(ctx context.Context, offset, limit int) ([]domain.Fundraiser, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := len(s.order)
	if offset >= total {
		return []domain.Fundraiser{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	out := make([]domain.Fundraiser, 0, end-offset)
	for _, id := range s.order[offset:end] {
		out = append(out, *s.items[id].Clone())
	}
	return out, total, nil
}

func (s *Store) Update(ctx context.Context, id uuid.UUID, fn func(tx domain.FundraiserTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.items[id]
	if !ok {
		return domain.ErrNotFound
	}
	tx := &memTx{
		working: current.Clone(),
		nextSeq: int64(len(s.events[id])) + 1,
	}
	if err := fn(tx); err != nil {
		return err
	}
	// Commit: nothing below can fail.
	s.items[id] = tx.working
	for _, staged := range tx.donations {
		key := donorKey{fundraiser: id, donor: staged.donor}
		s.donations[key] = append(s.donations[key], staged.rec)
	}
	s.events[id] = append(s.events[id], tx.events...)
	return nil
}

func (s *Store) DonationCount(ctx context.Context, id uuid.UUID, donor domain.Identity) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.items[id]; !ok {
		return 0, domain.ErrNotFound
	}
	return uint64(len(s.donations[donorKey{fundraiser: id, donor: donor}])), nil
}

func (s *Store) Donations(ctx context.Context, id uuid.UUID, donor domain.Identity, offset, limit int) ([]domain.DonationRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.items[id]; !ok {
		return nil, domain.ErrNotFound
	}
	history := s.donations[donorKey{fundraiser: id, donor: donor}]
	return page(history, offset, limit), nil
}

func (s *Store) Events(ctx context.Context, id uuid.UUID, offset, limit int) ([]domain.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.items[id]; !ok {
		return nil, domain.ErrNotFound
	}
	return page(s.events[id], offset, limit), nil
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	out := make([]T, end-offset)
	copy(out, items[offset:end])
	return out
}

type stagedDonation struct {
	donor domain.Identity
	rec   domain.DonationRecord
}

type memTx struct {
	working   *domain.Fundraiser
	donations []stagedDonation
	events    []domain.Event
	nextSeq   int64
}

func (t *memTx) Fundraiser() *domain.Fundraiser { return t.working }

func (t *memTx) AppendDonation(ctx context.Context, donor domain.Identity, rec domain.DonationRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.donations = append(t.donations, stagedDonation{donor: donor, rec: rec})
	return nil
}

func (t *memTx) AppendEvent(ctx context.Context, ev *domain.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ev.Seq = t.nextSeq
	t.nextSeq++
	t.events = append(t.events, *ev)
	return nil
}

var _ domain.FundraiserStore = (*Store)(nil)
