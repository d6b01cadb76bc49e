// Package ledger implements the fundraiser state machine: donations, per-donor
// history, owner-gated beneficiary changes and withdrawals.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"fundraiser/internal/domain"
)

const (
	// MaxListLimit caps a single page of List.
	MaxListLimit = 20

	// MaxHistoryLimit caps a single page of MyDonationsPage and Events.
	MaxHistoryLimit = 100

	historyBatch = 500
)

// Policy holds tunable acceptance rules.
type Policy struct {
	// RejectNonPositive makes Donate fail with domain.ErrInvalidAmount for a
	// zero amount. Negative amounts cannot be represented by domain.Amount.
	RejectNonPositive bool
}

// DefaultPolicy rejects zero-value donations.
var DefaultPolicy = Policy{RejectNonPositive: true}

// Recorder receives outcome counts for instrumentation.
type Recorder interface {
	DonationAccepted()
	WithdrawalCompleted()
	Rejected(op, reason string)
}

type nopRecorder struct{}

func (nopRecorder) DonationAccepted() {}

func (nopRecorder) WithdrawalCompleted() {}

func (nopRecorder) Rejected(string, string) {}

// Options configures a Service. Zero fields fall back to defaults.
type Options struct {
	Clock    Clock
	Policy   *Policy
	Sink     domain.EventSink
	Recorder Recorder
	Logger   *zerolog.Logger
}

// Service creates, lists and opens ledgers backed by one store.
type Service struct {
	store    domain.FundraiserStore
	payout   domain.Transferrer
	clock    Clock
	policy   Policy
	sink     domain.EventSink
	recorder Recorder
	logger   zerolog.Logger
}

// NewService wires a Service. store and payout are required.
func NewService(store domain.FundraiserStore, payout domain.Transferrer, opts Options) (*Service, error) {
	if store == nil {
		return nil, errors.New("ledger: store is required")
	}
	if payout == nil {
		return nil, errors.New("ledger: transferrer is required")
	}
	s := &Service{
		store:    store,
		payout:   payout,
		clock:    opts.Clock,
		policy:   DefaultPolicy,
		sink:     opts.Sink,
		recorder: opts.Recorder,
		logger:   zerolog.Nop(),
	}
	if s.clock == nil {
		s.clock = SystemClock
	}
	if opts.Policy != nil {
		s.policy = *opts.Policy
	}
	if s.recorder == nil {
		s.recorder = nopRecorder{}
	}
	if opts.Logger != nil {
		s.logger = opts.Logger.With().Str("component", "ledger").Logger()
	}
	return s, nil
}

// CreateParams are the construction-time fields of a ledger.
type CreateParams struct {
	Name        string
	URL         string
	ImageURL    string
	Description string
	Beneficiary domain.Identity
	Owner       domain.Identity
}

// Create instantiates a new ledger. Descriptive fields are stored verbatim.
func (s *Service) Create(ctx context.Context, p CreateParams) (*Ledger, error) {
	owner, err := domain.ParseIdentity(string(p.Owner))
	if err != nil {
		return nil, fmt.Errorf("ledger: owner: %w", err)
	}
	beneficiary, err := domain.ParseIdentity(string(p.Beneficiary))
	if err != nil {
		return nil, fmt.Errorf("ledger: beneficiary: %w", err)
	}
	now := s.clock.Now()
	f := &domain.Fundraiser{
		ID:            uuid.New(),
		Name:          p.Name,
		URL:           p.URL,
		ImageURL:      p.ImageURL,
		Description:   p.Description,
		Owner:         owner,
		Beneficiary:   beneficiary,
		LastTimestamp: unixSeconds(now),
		CreatedAt:     now.UTC(),
	}
	if err := s.store.Create(ctx, f); err != nil {
		return nil, fmt.Errorf("ledger: create: %w", err)
	}
	s.logger.Info().
		Str("fundraiser_id", f.ID.String()).
		Str("owner", owner.String()).
		Str("beneficiary", beneficiary.String()).
		Msg("fundraiser created")
	return &Ledger{svc: s, id: f.ID}, nil
}

// Open returns the ledger with the given id or domain.ErrNotFound.
func (s *Service) Open(ctx context.Context, id uuid.UUID) (*Ledger, error) {
	if _, err := s.store.Get(ctx, id); err != nil {
		return nil, fmt.Errorf("ledger: open %s: %w", id, err)
	}
	return &Ledger{svc: s, id: id}, nil
}

// List returns fundraisers in creation order and the total count. A zero
// limit means MaxListLimit; larger limits are capped.
func (s *Service) List(ctx context.Context, offset, limit int) ([]domain.Fundraiser, int, error) {
	offset, limit, err := normalizePage(offset, limit, MaxListLimit)
	if err != nil {
		return nil, 0, err
	}
	items, total, err := s.store.List(ctx, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("ledger: list: %w", err)
	}
	return items, total, nil
}

func (s *Service) emit(ctx context.Context, ev domain.Event) {
	if s.sink == nil {
		return
	}
	s.sink.Publish(ctx, ev)
}

// stamp returns the timestamp for a mutation on f, never earlier than the
// previous one, and records it on f.
func (s *Service) stamp(f *domain.Fundraiser) uint64 {
	ts := unixSeconds(s.clock.Now())
	if ts < f.LastTimestamp {
		ts = f.LastTimestamp
	}
	f.LastTimestamp = ts
	return ts
}

func normalizePage(offset, limit, max int) (int, int, error) {
	if offset < 0 || limit < 0 {
		return 0, 0, domain.ErrInvalidPage
	}
	if limit == 0 || limit > max {
		limit = max
	}
	return offset, limit, nil
}

func reasonOf(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, domain.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, domain.ErrAmountOverflow):
		return "overflow"
	case errors.Is(err, domain.ErrZeroIdentity):
		return "zero_identity"
	case errors.Is(err, domain.ErrTransferFailed):
		return "transfer_failed"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

func unixSeconds(t time.Time) uint64 {
	sec := t.Unix()
	if sec < 0 {
		return 0
	}
	return uint64(sec)
}
