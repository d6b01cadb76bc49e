package repo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"fundraiser/internal/domain"
	"fundraiser/internal/infra"
	"fundraiser/internal/sqlinline"
)

// FundraiserRepositoryPG implements domain.FundraiserStore using PostgreSQL.
type FundraiserRepositoryPG struct {
	db infra.TxRunner
}

// NewFundraiserRepository creates a new fundraiser repo.
func NewFundraiserRepository(db infra.TxRunner) *FundraiserRepositoryPG {
	return &FundraiserRepositoryPG{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

// Create inserts a fresh fundraiser. Counters start at their column defaults.
func (r *FundraiserRepositoryPG) Create(ctx context.Context, f *domain.Fundraiser) error {
	if f == nil {
		return fmt.Errorf("repo: fundraiser is required")
	}
	_, err := r.db.Exec(ctx, sqlinline.QInsertFundraiser,
		f.ID, f.Name, f.URL, f.ImageURL, f.Description,
		f.Owner.String(), f.Beneficiary.String(),
		int64(f.LastTimestamp), f.CreatedAt)
	if err != nil {
		return fmt.Errorf("repo: insert fundraiser: %w", err)
	}
	return nil
}

// Get loads a single fundraiser.
func (r *FundraiserRepositoryPG) Get(ctx context.Context, id uuid.UUID) (*domain.Fundraiser, error) {
	f, err := scanFundraiser(r.db.QueryRow(ctx, sqlinline.QSelectFundraiser, id))
	if err != nil {
		return nil, notFound(err)
	}
	return f, nil
}

// List returns fundraisers in creation order along with the total count.
func (r *FundraiserRepositoryPG) List(ctx context.Context, offset, limit int) ([]domain.Fundraiser, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, sqlinline.QCountFundraisers).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repo: count fundraisers: %w", err)
	}

	rows, err := r.db.Query(ctx, sqlinline.QListFundraisers, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("repo: list fundraisers: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Fundraiser, 0, limit)
	for rows.Next() {
		f, err := scanFundraiser(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repo: list fundraisers: %w", err)
	}
	return items, total, nil
}

// Update locks the fundraiser row for the whole callback. Donations and
// events are written as they are appended and the transaction is rolled back
// if fn fails, so nothing persists.
func (r *FundraiserRepositoryPG) Update(ctx context.Context, id uuid.UUID, fn func(tx domain.FundraiserTx) error) error {
	return r.db.InTx(ctx, func(q infra.SQLExecutor) error {
		f, err := scanFundraiser(q.QueryRow(ctx, sqlinline.QSelectFundraiserForUpdate, id))
		if err != nil {
			return notFound(err)
		}
		var nextSeq int64
		if err := q.QueryRow(ctx, sqlinline.QNextEventSeq, id).Scan(&nextSeq); err != nil {
			return fmt.Errorf("repo: next event seq: %w", err)
		}

		tx := &pgTx{q: q, f: f, nextSeq: nextSeq, written: stateKey(f)}
		if err := fn(tx); err != nil {
			return err
		}
		return tx.writeState(ctx)
	})
}

// DonationCount returns the length of donor's history.
func (r *FundraiserRepositoryPG) DonationCount(ctx context.Context, id uuid.UUID, donor domain.Identity) (uint64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, sqlinline.QCountDonorDonations, id, donor.String()).Scan(&n); err != nil {
		return 0, fmt.Errorf("repo: count donations: %w", err)
	}
	return uint64(n), nil
}

// Donations returns a page of donor's history in insertion order.
func (r *FundraiserRepositoryPG) Donations(ctx context.Context, id uuid.UUID, donor domain.Identity, offset, limit int) ([]domain.DonationRecord, error) {
	rows, err := r.db.Query(ctx, sqlinline.QListDonorDonations, id, donor.String(), offset, limit)
	if err != nil {
		return nil, fmt.Errorf("repo: list donations: %w", err)
	}
	defer rows.Close()

	items := make([]domain.DonationRecord, 0, limit)
	for rows.Next() {
		var (
			amount string
			ts     int64
		)
		if err := rows.Scan(&amount, &ts); err != nil {
			return nil, fmt.Errorf("repo: scan donation: %w", err)
		}
		a, err := domain.ParseAmount(amount)
		if err != nil {
			return nil, fmt.Errorf("repo: donation amount %q: %w", amount, err)
		}
		items = append(items, domain.DonationRecord{Amount: a, Timestamp: uint64(ts)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo: list donations: %w", err)
	}
	return items, nil
}

// Events returns a page of the fundraiser's log ordered by seq.
func (r *FundraiserRepositoryPG) Events(ctx context.Context, id uuid.UUID, offset, limit int) ([]domain.Event, error) {
	rows, err := r.db.Query(ctx, sqlinline.QListEvents, id, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("repo: list events: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Event, 0, limit)
	for rows.Next() {
		var (
			ev          domain.Event
			kind        string
			donor       string
			beneficiary string
			amount      string
			ts          int64
		)
		if err := rows.Scan(&ev.ID, &ev.Seq, &kind, &donor, &beneficiary, &amount, &ts); err != nil {
			return nil, fmt.Errorf("repo: scan event: %w", err)
		}
		a, err := domain.ParseAmount(amount)
		if err != nil {
			return nil, fmt.Errorf("repo: event amount %q: %w", amount, err)
		}
		ev.FundraiserID = id
		ev.Kind = domain.EventKind(kind)
		ev.Donor = domain.Identity(donor)
		ev.Beneficiary = domain.Identity(beneficiary)
		ev.Amount = a
		ev.Timestamp = uint64(ts)
		items = append(items, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo: list events: %w", err)
	}
	return items, nil
}

// pgTx writes through an open transaction. The fundraiser row is written
// before each event insert and once more on commit if it changed since.
type pgTx struct {
	q       infra.SQLExecutor
	f       *domain.Fundraiser
	nextSeq int64
	written string
}

func (t *pgTx) Fundraiser() *domain.Fundraiser { return t.f }

func (t *pgTx) AppendDonation(ctx context.Context, donor domain.Identity, rec domain.DonationRecord) error {
	_, err := t.q.Exec(ctx, sqlinline.QInsertDonation, t.f.ID, donor.String(), rec.Amount.String(), int64(rec.Timestamp))
	if err != nil {
		return fmt.Errorf("repo: insert donation: %w", err)
	}
	return nil
}

func (t *pgTx) AppendEvent(ctx context.Context, ev *domain.Event) error {
	if ev == nil {
		return fmt.Errorf("repo: event is required")
	}
	if err := t.writeState(ctx); err != nil {
		return err
	}
	ev.Seq = t.nextSeq
	_, err := t.q.Exec(ctx, sqlinline.QInsertEvent,
		ev.ID, t.f.ID, ev.Seq, string(ev.Kind),
		ev.Donor.String(), ev.Beneficiary.String(),
		ev.Amount.String(), int64(ev.Timestamp))
	if err != nil {
		return fmt.Errorf("repo: insert event: %w", err)
	}
	t.nextSeq++
	return nil
}

func (t *pgTx) writeState(ctx context.Context) error {
	key := stateKey(t.f)
	if key == t.written {
		return nil
	}
	_, err := t.q.Exec(ctx, sqlinline.QUpdateFundraiserState,
		t.f.ID, t.f.Beneficiary.String(),
		strconv.FormatUint(t.f.DonationsCount, 10),
		t.f.TotalDonations.String(), t.f.Balance.String(), t.f.TotalWithdrawn.String(),
		int64(t.f.LastTimestamp))
	if err != nil {
		return fmt.Errorf("repo: update fundraiser: %w", err)
	}
	t.written = key
	return nil
}

func stateKey(f *domain.Fundraiser) string {
	return fmt.Sprintf("%s|%d|%s|%s|%s|%d",
		f.Beneficiary, f.DonationsCount,
		f.TotalDonations, f.Balance, f.TotalWithdrawn,
		f.LastTimestamp)
}

func scanFundraiser(row scanner) (*domain.Fundraiser, error) {
	var (
		f                                domain.Fundraiser
		owner, beneficiary               string
		count, total, balance, withdrawn string
		lastTimestamp                    int64
		createdAt                        time.Time
	)
	if err := row.Scan(
		&f.ID, &f.Name, &f.URL, &f.ImageURL, &f.Description, &owner, &beneficiary,
		&count, &total, &balance, &withdrawn, &lastTimestamp, &createdAt,
	); err != nil {
		return nil, err
	}

	n, err := strconv.ParseUint(count, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("repo: donations_count %q: %w", count, err)
	}
	amounts := []struct {
		dst *domain.Amount
		src string
	}{
		{&f.TotalDonations, total},
		{&f.Balance, balance},
		{&f.TotalWithdrawn, withdrawn},
	}
	for _, a := range amounts {
		v, err := domain.ParseAmount(a.src)
		if err != nil {
			return nil, fmt.Errorf("repo: amount %q: %w", a.src, err)
		}
		*a.dst = v
	}

	f.Owner = domain.Identity(owner)
	f.Beneficiary = domain.Identity(beneficiary)
	f.DonationsCount = n
	f.LastTimestamp = uint64(lastTimestamp)
	f.CreatedAt = createdAt
	return &f, nil
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	return fmt.Errorf("repo: load fundraiser: %w", err)
}
