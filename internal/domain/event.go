package domain

import "github.com/google/uuid"

// EventKind enumerates the audit events a ledger emits.
type EventKind string

const (
	EventDonationReceived   EventKind = "DonationReceived"
	EventWithdraw           EventKind = "Withdraw"
	EventBeneficiaryChanged EventKind = "BeneficiaryChanged"
)

// Event is one entry of a ledger's append-only log. Seq is assigned by the
// store and is strictly increasing per fundraiser.
type Event struct {
	ID           uuid.UUID `json:"id"`
	FundraiserID uuid.UUID `json:"fundraiser_id"`
	Seq          int64     `json:"seq"`
	Kind         EventKind `json:"kind"`
	Donor        Identity  `json:"donor,omitempty"`
	Beneficiary  Identity  `json:"beneficiary,omitempty"`
	Amount       Amount    `json:"amount"`
	Timestamp    uint64    `json:"timestamp"`
}
