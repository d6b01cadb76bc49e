package ledger

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/google/uuid"

	"fundraiser/internal/domain"
)

// Ledger is one fundraiser. Every mutation runs as a single store
// transaction; rejected calls leave the persisted state untouched and emit
// nothing.
type Ledger struct {
	svc *Service
	id  uuid.UUID
}

// ID returns the fundraiser id.
func (l *Ledger) ID() uuid.UUID { return l.id }

// Snapshot returns the current persisted state.
func (l *Ledger) Snapshot(ctx context.Context) (*domain.Fundraiser, error) {
	f, err := l.svc.store.Get(ctx, l.id)
	if err != nil {
		return nil, fmt.Errorf("ledger: load %s: %w", l.id, err)
	}
	return f, nil
}

func (l *Ledger) Name(ctx context.Context) (string, error) {
	f, err := l.Snapshot(ctx)
	if err != nil {
		return "", err
	}
	return f.Name, nil
}

func (l *Ledger) URL(ctx context.Context) (string, error) {
	f, err := l.Snapshot(ctx)
	if err != nil {
		return "", err
	}
	return f.URL, nil
}

func (l *Ledger) ImageURL(ctx context.Context) (string, error) {
	f, err := l.Snapshot(ctx)
	if err != nil {
		return "", err
	}
	return f.ImageURL, nil
}

func (l *Ledger) Description(ctx context.Context) (string, error) {
	f, err := l.Snapshot(ctx)
	if err != nil {
		return "", err
	}
	return f.Description, nil
}

func (l *Ledger) Owner(ctx context.Context) (domain.Identity, error) {
	f, err := l.Snapshot(ctx)
	if err != nil {
		return "", err
	}
	return f.Owner, nil
}

func (l *Ledger) Beneficiary(ctx context.Context) (domain.Identity, error) {
	f, err := l.Snapshot(ctx)
	if err != nil {
		return "", err
	}
	return f.Beneficiary, nil
}

func (l *Ledger) DonationsCount(ctx context.Context) (uint64, error) {
	f, err := l.Snapshot(ctx)
	if err != nil {
		return 0, err
	}
	return f.DonationsCount, nil
}

func (l *Ledger) TotalDonations(ctx context.Context) (domain.Amount, error) {
	f, err := l.Snapshot(ctx)
	if err != nil {
		return domain.Amount{}, err
	}
	return f.TotalDonations, nil
}

// Balance returns the held balance not yet withdrawn.
func (l *Ledger) Balance(ctx context.Context) (domain.Amount, error) {
	f, err := l.Snapshot(ctx)
	if err != nil {
		return domain.Amount{}, err
	}
	return f.Balance, nil
}

// MyDonationsCount returns how many donations caller has made.
func (l *Ledger) MyDonationsCount(ctx context.Context, caller domain.Identity) (uint64, error) {
	n, err := l.svc.store.DonationCount(ctx, l.id, domain.CanonicalIdentity(string(caller)))
	if err != nil {
		return 0, fmt.Errorf("ledger: donation count: %w", err)
	}
	return n, nil
}

// MyDonations returns the caller's full history as parallel slices in call
// order. Large histories are read from the store in batches.
func (l *Ledger) MyDonations(ctx context.Context, caller domain.Identity) ([]domain.Amount, []uint64, error) {
	donor := domain.CanonicalIdentity(string(caller))
	amounts := []domain.Amount{}
	timestamps := []uint64{}
	for offset := 0; ; offset += historyBatch {
		batch, err := l.svc.store.Donations(ctx, l.id, donor, offset, historyBatch)
		if err != nil {
			return nil, nil, fmt.Errorf("ledger: donations: %w", err)
		}
		for _, rec := range batch {
			amounts = append(amounts, rec.Amount)
			timestamps = append(timestamps, rec.Timestamp)
		}
		if len(batch) < historyBatch {
			return amounts, timestamps, nil
		}
	}
}

// MyDonationsPage returns one page of the caller's history.
func (l *Ledger) MyDonationsPage(ctx context.Context, caller domain.Identity, offset, limit int) ([]domain.DonationRecord, error) {
	offset, limit, err := normalizePage(offset, limit, MaxHistoryLimit)
	if err != nil {
		return nil, err
	}
	recs, err := l.svc.store.Donations(ctx, l.id, domain.CanonicalIdentity(string(caller)), offset, limit)
	if err != nil {
		return nil, fmt.Errorf("ledger: donations: %w", err)
	}
	return recs, nil
}

// Events returns a page of the ledger's audit log in emission order.
func (l *Ledger) Events(ctx context.Context, offset, limit int) ([]domain.Event, error) {
	offset, limit, err := normalizePage(offset, limit, MaxHistoryLimit)
	if err != nil {
		return nil, err
	}
	evs, err := l.svc.store.Events(ctx, l.id, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("ledger: events: %w", err)
	}
	return evs, nil
}

// Donate records amount from caller. Any identity may donate.
func (l *Ledger) Donate(ctx context.Context, caller domain.Identity, amount domain.Amount) (domain.DonationRecord, error) {
	const op = "donate"
	donor, err := domain.ParseIdentity(string(caller))
	if err != nil {
		return domain.DonationRecord{}, l.reject(op, caller, err)
	}
	if amount.IsZero() && l.svc.policy.RejectNonPositive {
		return domain.DonationRecord{}, l.reject(op, donor, domain.ErrInvalidAmount)
	}

	var (
		rec       domain.DonationRecord
		committed domain.Event
	)
	err = l.svc.store.Update(ctx, l.id, func(tx domain.FundraiserTx) error {
		f := tx.Fundraiser()
		if f.DonationsCount == math.MaxUint64 {
			return domain.ErrAmountOverflow
		}
		total, err := f.TotalDonations.Add(amount)
		if err != nil {
			return err
		}
		balance, err := f.Balance.Add(amount)
		if err != nil {
			return err
		}
		ts := l.svc.stamp(f)
		rec = domain.DonationRecord{Amount: amount, Timestamp: ts}
		if err := tx.AppendDonation(ctx, donor, rec); err != nil {
			return err
		}
		f.DonationsCount++
		f.TotalDonations = total
		f.Balance = balance

		committed = domain.Event{
			ID:           uuid.New(),
			FundraiserID: l.id,
			Kind:         domain.EventDonationReceived,
			Donor:        donor,
			Amount:       amount,
			Timestamp:    ts,
		}
		return tx.AppendEvent(ctx, &committed)
	})
	if err != nil {
		return domain.DonationRecord{}, l.reject(op, donor, err)
	}

	l.svc.recorder.DonationAccepted()
	l.svc.logger.Info().
		Str("fundraiser_id", l.id.String()).
		Str("donor", donor.String()).
		Str("amount", amount.String()).
		Uint64("timestamp", rec.Timestamp).
		Msg("donation received")
	l.svc.emit(ctx, committed)
	return rec, nil
}

// SetBeneficiary replaces the payout target. Only the owner may call it.
func (l *Ledger) SetBeneficiary(ctx context.Context, caller, beneficiary domain.Identity) error {
	const op = "set_beneficiary"
	who := domain.CanonicalIdentity(string(caller))
	next := domain.CanonicalIdentity(string(beneficiary))

	var committed domain.Event
	err := l.svc.store.Update(ctx, l.id, func(tx domain.FundraiserTx) error {
		f := tx.Fundraiser()
		if who.IsZero() || !who.Equal(f.Owner) {
			return domain.ErrUnauthorized
		}
		if next.IsZero() {
			return domain.ErrZeroIdentity
		}
		ts := l.svc.stamp(f)
		f.Beneficiary = next
		committed = domain.Event{
			ID:           uuid.New(),
			FundraiserID: l.id,
			Kind:         domain.EventBeneficiaryChanged,
			Beneficiary:  next,
			Timestamp:    ts,
		}
		return tx.AppendEvent(ctx, &committed)
	})
	if err != nil {
		return l.reject(op, who, err)
	}

	l.svc.logger.Info().
		Str("fundraiser_id", l.id.String()).
		Str("beneficiary", next.String()).
		Msg("beneficiary changed")
	l.svc.emit(ctx, committed)
	return nil
}

// Withdraw moves the entire held balance to the current beneficiary and
// returns the amount moved. Only the owner may call it. A zero balance is
// still transferred and still logged. When the transfer fails the balance is
// kept and domain.ErrTransferFailed is returned.
func (l *Ledger) Withdraw(ctx context.Context, caller domain.Identity) (domain.Amount, error) {
	const op = "withdraw"
	who := domain.CanonicalIdentity(string(caller))

	var committed domain.Event
	err := l.svc.store.Update(ctx, l.id, func(tx domain.FundraiserTx) error {
		f := tx.Fundraiser()
		if who.IsZero() || !who.Equal(f.Owner) {
			return domain.ErrUnauthorized
		}
		amount := f.Balance
		withdrawn, err := f.TotalWithdrawn.Add(amount)
		if err != nil {
			return err
		}
		ts := l.svc.stamp(f)
		f.Balance = domain.ZeroAmount
		f.TotalWithdrawn = withdrawn

		committed = domain.Event{
			ID:           uuid.New(),
			FundraiserID: l.id,
			Kind:         domain.EventWithdraw,
			Beneficiary:  f.Beneficiary,
			Amount:       amount,
			Timestamp:    ts,
		}
		if err := tx.AppendEvent(ctx, &committed); err != nil {
			return err
		}
		// The transfer is the last step so a failure discards everything above.
		transfer := domain.Transfer{
			ID:           withdrawalTransferID(l.id, committed.Seq),
			FundraiserID: l.id,
			To:           f.Beneficiary,
			Amount:       amount,
		}
		if err := l.svc.payout.Transfer(ctx, transfer); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrTransferFailed, err)
		}
		return nil
	})
	if err != nil {
		return domain.Amount{}, l.reject(op, who, err)
	}

	l.svc.recorder.WithdrawalCompleted()
	l.svc.logger.Info().
		Str("fundraiser_id", l.id.String()).
		Str("beneficiary", committed.Beneficiary.String()).
		Str("amount", committed.Amount.String()).
		Msg("withdrawal completed")
	l.svc.emit(ctx, committed)
	return committed.Amount, nil
}

// withdrawalTransferID is stable across retries of the same withdrawal: a
// rolled back attempt frees its sequence number and the retry reuses it.
func withdrawalTransferID(fundraiser uuid.UUID, seq int64) uuid.UUID {
	return uuid.NewSHA1(fundraiser, []byte("withdraw:"+strconv.FormatInt(seq, 10)))
}

func (l *Ledger) reject(op string, caller domain.Identity, err error) error {
	reason := reasonOf(err)
	l.svc.recorder.Rejected(op, reason)
	l.svc.logger.Warn().
		Err(err).
		Str("fundraiser_id", l.id.String()).
		Str("op", op).
		Str("caller", caller.String()).
		Str("reason", reason).
		Msg("ledger call rejected")
	return fmt.Errorf("ledger: %s: %w", op, err)
}
