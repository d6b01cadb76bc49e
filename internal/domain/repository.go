package domain

import (
	"context"

	"github.com/google/uuid"
)

// FundraiserStore persists ledgers, their donor histories and their event logs.
type FundraiserStore interface {
	Create(ctx context.Context, f *Fundraiser) error
	Get(ctx context.Context, id uuid.UUID) (*Fundraiser, error)
	// List returns a page in creation order together with the total count.
	List(ctx context.Context, offset, limit int) ([]Fundraiser, int, error)
	// Update runs fn against a locked working copy of the fundraiser. The copy,
	// staged donations and staged events are committed together only when fn
	// returns nil; any error discards all of them.
	Update(ctx context.Context, id uuid.UUID, fn func(tx FundraiserTx) error) error
	DonationCount(ctx context.Context, id uuid.UUID, donor Identity) (uint64, error)
	// Donations returns a page of a donor's history in insertion order.
	Donations(ctx context.Context, id uuid.UUID, donor Identity, offset, limit int) ([]DonationRecord, error)
	Events(ctx context.Context, id uuid.UUID, offset, limit int) ([]Event, error)
}

// FundraiserTx is the unit of work handed to FundraiserStore.Update.
type FundraiserTx interface {
	Fundraiser() *Fundraiser
	AppendDonation(ctx context.Context, donor Identity, rec DonationRecord) error
	// AppendEvent stages ev and assigns its Seq.
	AppendEvent(ctx context.Context, ev *Event) error
}

// Transfer describes one outbound movement of the held balance.
type Transfer struct {
	ID           uuid.UUID
	FundraiserID uuid.UUID
	To           Identity
	Amount       Amount
}

// Transferrer is the value-transfer primitive. Transfer either moves the full
// amount or returns an error having moved nothing.
type Transferrer interface {
	Transfer(ctx context.Context, t Transfer) error
}

// EventSink observes committed ledger events.
type EventSink interface {
	Publish(ctx context.Context, ev Event)
}
