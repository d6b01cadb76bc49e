package domain

import (
	"time"

	"github.com/google/uuid"
)

// DonationRecord is one accepted donation. Records are never mutated.
type DonationRecord struct {
	Amount    Amount `json:"amount"`
	Timestamp uint64 `json:"timestamp"`
}

// Fundraiser is the persisted state of a single ledger.
type Fundraiser struct {
	ID             uuid.UUID
	Name           string
	URL            string
	ImageURL       string
	Description    string
	Owner          Identity
	Beneficiary    Identity
	DonationsCount uint64
	TotalDonations Amount
	Balance        Amount
	TotalWithdrawn Amount
	LastTimestamp  uint64
	CreatedAt      time.Time
}

// Clone returns a copy safe to mutate independently.
func (f *Fundraiser) Clone() *Fundraiser {
	if f == nil {
		return nil
	}
	c := *f
	return &c
}
