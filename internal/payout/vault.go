package payout

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"fundraiser/internal/domain"
)

// Vault keeps external balances in memory. Transfers are idempotent on
// Transfer.ID so a retried withdrawal never pays twice.
type Vault struct {
	mu       sync.Mutex
	balances map[domain.Identity]domain.Amount
	applied  map[uuid.UUID]struct{}
	failNext error
}

// NewVault returns an empty vault.
func NewVault() *Vault {
	return &Vault{
		balances: make(map[domain.Identity]domain.Amount),
		applied:  make(map[uuid.UUID]struct{}),
	}
}

func (v *Vault) Transfer(ctx context.Context, t domain.Transfer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.failNext != nil {
		err := v.failNext
		v.failNext = nil
		return err
	}
	if _, done := v.applied[t.ID]; done {
		return nil
	}
	to := domain.CanonicalIdentity(string(t.To))
	next, err := v.balances[to].Add(t.Amount)
	if err != nil {
		return fmt.Errorf("payout: credit %s: %w", to, err)
	}
	v.balances[to] = next
	v.applied[t.ID] = struct{}{}
	return nil
}

// BalanceOf returns the external balance of id.
func (v *Vault) BalanceOf(id domain.Identity) domain.Amount {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.balances[domain.CanonicalIdentity(string(id))]
}

// FailNext makes the next Transfer return err without moving funds.
func (v *Vault) FailNext(err error) {
	v.mu.Lock()
	v.failNext = err
	v.mu.Unlock()
}

var _ domain.Transferrer = (*Vault)(nil)
