package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"fundraiser/internal/adapter/memstore"
	"fundraiser/internal/domain"
	"fundraiser/internal/payout"
)

const (
	owner       domain.Identity = "0x00000000000000000000000000000000000000a1"
	beneficiary domain.Identity = "0x00000000000000000000000000000000000000b2"
	donor       domain.Identity = "0x00000000000000000000000000000000000000d3"
	stranger    domain.Identity = "0x00000000000000000000000000000000000000e4"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type captureSink struct {
	mu     sync.Mutex
	events []domain.Event
}

func (s *captureSink) Publish(_ context.Context, ev domain.Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
}

func (s *captureSink) kinds(kind domain.EventKind) []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Event
	for _, ev := range s.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

type countingRecorder struct {
	mu        sync.Mutex
	donations int
	withdraws int
	rejected  map[string]int
}

func (r *countingRecorder) DonationAccepted() {
	r.mu.Lock()
	r.donations++
	r.mu.Unlock()
}

func (r *countingRecorder) WithdrawalCompleted() {
	r.mu.Lock()
	r.withdraws++
	r.mu.Unlock()
}

func (r *countingRecorder) Rejected(op, reason string) {
	r.mu.Lock()
	if r.rejected == nil {
		r.rejected = map[string]int{}
	}
	r.rejected[op+":"+reason]++
	r.mu.Unlock()
}

type fixture struct {
	svc      *Service
	vault    *payout.Vault
	clock    *fakeClock
	sink     *captureSink
	recorder *countingRecorder
}

func newFixture(t *testing.T, policy *Policy) *fixture {
	t.Helper()
	f := &fixture{
		vault:    payout.NewVault(),
		clock:    &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
		sink:     &captureSink{},
		recorder: &countingRecorder{},
	}
	svc, err := NewService(memstore.New(), f.vault, Options{
		Clock:    f.clock,
		Policy:   policy,
		Sink:     f.sink,
		Recorder: f.recorder,
	})
	if err != nil {
		t.Fatalf("NewService() error: %v", err)
	}
	f.svc = svc
	return f
}

func (f *fixture) create(t *testing.T) *Ledger {
	t.Helper()
	l, err := f.svc.Create(context.Background(), CreateParams{
		Name:        "Beneficiary Name",
		URL:         "beneficiaryname.org",
		ImageURL:    "https://placekitten.com/600/350",
		Description: "Beneficiary description",
		Beneficiary: beneficiary,
		Owner:       owner,
	})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	return l
}

func ether(t *testing.T, s string) domain.Amount {
	t.Helper()
	a, err := domain.ParseUnits(s, 18)
	if err != nil {
		t.Fatalf("ParseUnits(%q): %v", s, err)
	}
	return a
}

func TestCreateStoresInitialValues(t *testing.T) {
	f := newFixture(t, nil)
	l := f.create(t)
	ctx := context.Background()

	checks := []struct {
		name string
		get  func() (string, error)
		want string
	}{
		{"name", func() (string, error) { return l.Name(ctx) }, "Beneficiary Name"},
		{"url", func() (string, error) { return l.URL(ctx) }, "beneficiaryname.org"},
		{"image url", func() (string, error) { return l.ImageURL(ctx) }, "https://placekitten.com/600/350"},
		{"description", func() (string, error) { return l.Description(ctx) }, "Beneficiary description"},
		{"beneficiary", identityGetter(ctx, l.Beneficiary), beneficiary.String()},
		{"owner", identityGetter(ctx, l.Owner), owner.String()},
	}
	for _, c := range checks {
		t.Run(c.name, func(t *testing.T) {
			got, err := c.get()
			if err != nil {
				t.Fatalf("%s: %v", c.name, err)
			}
			if got != c.want {
				t.Fatalf("%s = %q, want %q", c.name, got, c.want)
			}
		})
	}
}

func identityGetter(ctx context.Context, get func(context.Context) (domain.Identity, error)) func() (string, error) {
	return func() (string, error) {
		id, err := get(ctx)
		return id.String(), err
	}
}

func TestCreateRejectsZeroIdentities(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.Create(context.Background(), CreateParams{Name: "x", Owner: "", Beneficiary: beneficiary})
	if !errors.Is(err, domain.ErrZeroIdentity) {
		t.Fatalf("Create() with empty owner error = %v", err)
	}
	_, err = f.svc.Create(context.Background(), CreateParams{Name: "x", Owner: owner, Beneficiary: "0x0000"})
	if !errors.Is(err, domain.ErrZeroIdentity) {
		t.Fatalf("Create() with zero beneficiary error = %v", err)
	}
}

func TestSetBeneficiary(t *testing.T) {
	f := newFixture(t, nil)
	l := f.create(t)
	ctx := context.Background()
	newBeneficiary := domain.Identity("0x00000000000000000000000000000000000000f5")

	if err := l.SetBeneficiary(ctx, owner, newBeneficiary); err != nil {
		t.Fatalf("SetBeneficiary(owner) error: %v", err)
	}
	got, err := l.Beneficiary(ctx)
	if err != nil {
		t.Fatalf("Beneficiary() error: %v", err)
	}
	if got != newBeneficiary {
		t.Fatalf("beneficiary = %s, want %s", got, newBeneficiary)
	}
	if n := len(f.sink.kinds(domain.EventBeneficiaryChanged)); n != 1 {
		t.Fatalf("BeneficiaryChanged events = %d, want 1", n)
	}
}

func TestSetBeneficiaryRejectsNonOwner(t *testing.T) {
	f := newFixture(t, nil)
	l := f.create(t)
	ctx := context.Background()

	err := l.SetBeneficiary(ctx, stranger, stranger)
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("SetBeneficiary(stranger) error = %v, want unauthorized", err)
	}
	got, _ := l.Beneficiary(ctx)
	if got != beneficiary {
		t.Fatalf("beneficiary changed to %s", got)
	}
	if n := len(f.sink.events); n != 0 {
		t.Fatalf("rejected call emitted %d events", n)
	}
	if f.recorder.rejected["set_beneficiary:unauthorized"] != 1 {
		t.Fatalf("rejection not recorded: %v", f.recorder.rejected)
	}
}

func TestSetBeneficiaryRejectsZeroIdentity(t *testing.T) {
	f := newFixture(t, nil)
	l := f.create(t)
	if err := l.SetBeneficiary(context.Background(), owner, ""); !errors.Is(err, domain.ErrZeroIdentity) {
		t.Fatalf("SetBeneficiary(zero) error = %v", err)
	}
}

func TestOwnerMatchIgnoresCase(t *testing.T) {
	f := newFixture(t, nil)
	l, err := f.svc.Create(context.Background(), CreateParams{Name: "x", Owner: "0xABCDEF", Beneficiary: beneficiary})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if err := l.SetBeneficiary(context.Background(), "0xabcdef", stranger); err != nil {
		t.Fatalf("SetBeneficiary() with folded owner error: %v", err)
	}
}

func TestDonateTwiceFromSameDonor(t *testing.T) {
	f := newFixture(t, nil)
	l := f.create(t)
	ctx := context.Background()
	value := ether(t, "0.0289")

	for i := 0; i < 2; i++ {
		if _, err := l.Donate(ctx, donor, value); err != nil {
			t.Fatalf("Donate() #%d error: %v", i+1, err)
		}
	}

	count, err := l.MyDonationsCount(ctx, donor)
	if err != nil {
		t.Fatalf("MyDonationsCount() error: %v", err)
	}
	if count != 2 {
		t.Fatalf("MyDonationsCount() = %d, want 2", count)
	}
	amounts, timestamps, err := l.MyDonations(ctx, donor)
	if err != nil {
		t.Fatalf("MyDonations() error: %v", err)
	}
	if len(amounts) != 2 || len(timestamps) != 2 {
		t.Fatalf("MyDonations() lengths = %d/%d, want 2/2", len(amounts), len(timestamps))
	}
	for i, a := range amounts {
		if a.FormatUnits(18) != "0.0289" {
			t.Fatalf("amounts[%d] = %s ether, want 0.0289", i, a.FormatUnits(18))
		}
		if timestamps[i] == 0 {
			t.Fatalf("timestamps[%d] is zero", i)
		}
	}
}

func TestMyDonationsKeepsCallOrder(t *testing.T) {
	f := newFixture(t, nil)
	l := f.create(t)
	ctx := context.Background()

	// All three share a timestamp; order must follow the calls.
	want := []uint64{3, 1, 2}
	for _, n := range want {
		if _, err := l.Donate(ctx, donor, domain.NewAmount(n)); err != nil {
			t.Fatalf("Donate(%d) error: %v", n, err)
		}
	}
	amounts, timestamps, err := l.MyDonations(ctx, donor)
	if err != nil {
		t.Fatalf("MyDonations() error: %v", err)
	}
	for i, n := range want {
		if !amounts[i].Equal(domain.NewAmount(n)) {
			t.Fatalf("amounts[%d] = %s, want %d", i, amounts[i], n)
		}
		if timestamps[i] != timestamps[0] {
			t.Fatalf("timestamps differ: %v", timestamps)
		}
	}
}

func TestMyDonationsIsScopedToCaller(t *testing.T) {
	f := newFixture(t, nil)
	l := f.create(t)
	ctx := context.Background()

	if _, err := l.Donate(ctx, donor, domain.NewAmount(10)); err != nil {
		t.Fatalf("Donate() error: %v", err)
	}
	count, err := l.MyDonationsCount(ctx, stranger)
	if err != nil {
		t.Fatalf("MyDonationsCount() error: %v", err)
	}
	if count != 0 {
		t.Fatalf("stranger count = %d, want 0", count)
	}
	amounts, timestamps, err := l.MyDonations(ctx, stranger)
	if err != nil {
		t.Fatalf("MyDonations() error: %v", err)
	}
	if len(amounts) != 0 || len(timestamps) != 0 {
		t.Fatalf("stranger history not empty: %v %v", amounts, timestamps)
	}
}

func TestDonateUpdatesAggregates(t *testing.T) {
	f := newFixture(t, nil)
	l := f.create(t)
	ctx := context.Background()

	beforeCount, _ := l.DonationsCount(ctx)
	beforeTotal, _ := l.TotalDonations(ctx)

	amounts := []uint64{5, 7, 11}
	donors := []domain.Identity{donor, stranger, donor}
	for i, n := range amounts {
		if _, err := l.Donate(ctx, donors[i], domain.NewAmount(n)); err != nil {
			t.Fatalf("Donate() error: %v", err)
		}
	}

	count, _ := l.DonationsCount(ctx)
	if count != beforeCount+3 {
		t.Fatalf("DonationsCount() = %d, want %d", count, beforeCount+3)
	}
	total, _ := l.TotalDonations(ctx)
	want, _ := beforeTotal.Add(domain.NewAmount(23))
	if !total.Equal(want) {
		t.Fatalf("TotalDonations() = %s, want %s", total, want)
	}
	balance, _ := l.Balance(ctx)
	if !balance.Equal(want) {
		t.Fatalf("Balance() = %s, want %s", balance, want)
	}
}

func TestDonateEmitsOneEventPerCall(t *testing.T) {
	f := newFixture(t, nil)
	l := f.create(t)
	value := ether(t, "0.0289")

	rec, err := l.Donate(context.Background(), donor, value)
	if err != nil {
		t.Fatalf("Donate() error: %v", err)
	}
	evs := f.sink.kinds(domain.EventDonationReceived)
	if len(evs) != 1 {
		t.Fatalf("DonationReceived events = %d, want 1", len(evs))
	}
	ev := evs[0]
	if ev.Donor != donor || !ev.Amount.Equal(value) || ev.Timestamp != rec.Timestamp {
		t.Fatalf("unexpected event %+v", ev)
	}
	if ev.Seq != 1 {
		t.Fatalf("event seq = %d, want 1", ev.Seq)
	}
}

func TestDonateZeroAmountPolicy(t *testing.T) {
	t.Run("rejected by default", func(t *testing.T) {
		f := newFixture(t, nil)
		l := f.create(t)
		_, err := l.Donate(context.Background(), donor, domain.ZeroAmount)
		if !errors.Is(err, domain.ErrInvalidAmount) {
			t.Fatalf("Donate(0) error = %v, want invalid amount", err)
		}
		count, _ := l.DonationsCount(context.Background())
		if count != 0 || len(f.sink.events) != 0 {
			t.Fatalf("rejected donation changed state: count=%d events=%d", count, len(f.sink.events))
		}
	})
	t.Run("accepted when allowed", func(t *testing.T) {
		f := newFixture(t, &Policy{RejectNonPositive: false})
		l := f.create(t)
		if _, err := l.Donate(context.Background(), donor, domain.ZeroAmount); err != nil {
			t.Fatalf("Donate(0) error: %v", err)
		}
		n, _ := l.MyDonationsCount(context.Background(), donor)
		if n != 1 {
			t.Fatalf("MyDonationsCount() = %d, want 1", n)
		}
	})
}

func TestDonateOverflowLeavesStateUnchanged(t *testing.T) {
	f := newFixture(t, nil)
	l := f.create(t)
	ctx := context.Background()
	max := domain.MustParseAmount("340282366920938463463374607431768211455")

	if _, err := l.Donate(ctx, donor, max); err != nil {
		t.Fatalf("Donate(max) error: %v", err)
	}
	if _, err := l.Donate(ctx, donor, domain.NewAmount(1)); !errors.Is(err, domain.ErrAmountOverflow) {
		t.Fatalf("Donate() past max error = %v, want overflow", err)
	}
	n, _ := l.MyDonationsCount(ctx, donor)
	if n != 1 {
		t.Fatalf("MyDonationsCount() = %d, want 1", n)
	}
	total, _ := l.TotalDonations(ctx)
	if !total.Equal(max) {
		t.Fatalf("TotalDonations() = %s, want max", total)
	}
}

func TestTimestampsNeverGoBackwards(t *testing.T) {
	f := newFixture(t, nil)
	l := f.create(t)
	ctx := context.Background()

	first, err := l.Donate(ctx, donor, domain.NewAmount(1))
	if err != nil {
		t.Fatalf("Donate() error: %v", err)
	}
	f.clock.Set(f.clock.Now().Add(-time.Hour))
	second, err := l.Donate(ctx, donor, domain.NewAmount(1))
	if err != nil {
		t.Fatalf("Donate() error: %v", err)
	}
	if second.Timestamp < first.Timestamp {
		t.Fatalf("timestamp went backwards: %d < %d", second.Timestamp, first.Timestamp)
	}
}

func TestWithdrawRejectsNonOwner(t *testing.T) {
	f := newFixture(t, nil)
	l := f.create(t)
	ctx := context.Background()
	if _, err := l.Donate(ctx, donor, ether(t, "0.1")); err != nil {
		t.Fatalf("Donate() error: %v", err)
	}

	_, err := l.Withdraw(ctx, stranger)
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("Withdraw(stranger) error = %v, want unauthorized", err)
	}
	balance, _ := l.Balance(ctx)
	if !balance.Equal(ether(t, "0.1")) {
		t.Fatalf("balance changed to %s", balance)
	}
	if n := len(f.sink.kinds(domain.EventWithdraw)); n != 0 {
		t.Fatalf("Withdraw events = %d, want 0", n)
	}
}

func TestWithdrawTransfersBalanceToBeneficiary(t *testing.T) {
	f := newFixture(t, nil)
	l := f.create(t)
	ctx := context.Background()
	value := ether(t, "0.1")

	if _, err := l.Donate(ctx, donor, value); err != nil {
		t.Fatalf("Donate() error: %v", err)
	}
	before := f.vault.BalanceOf(beneficiary)

	moved, err := l.Withdraw(ctx, owner)
	if err != nil {
		t.Fatalf("Withdraw(owner) error: %v", err)
	}
	if !moved.Equal(value) {
		t.Fatalf("Withdraw() moved %s, want %s", moved, value)
	}
	balance, _ := l.Balance(ctx)
	if !balance.IsZero() {
		t.Fatalf("balance after withdraw = %s, want 0", balance)
	}
	after := f.vault.BalanceOf(beneficiary)
	want, _ := before.Add(value)
	if !after.Equal(want) {
		t.Fatalf("beneficiary balance = %s, want %s", after, want)
	}
	evs := f.sink.kinds(domain.EventWithdraw)
	if len(evs) != 1 {
		t.Fatalf("Withdraw events = %d, want 1", len(evs))
	}
	if !evs[0].Amount.Equal(value) {
		t.Fatalf("Withdraw event amount = %s, want %s", evs[0].Amount, value)
	}

	// Lifetime counters are not touched by withdrawals.
	total, _ := l.TotalDonations(ctx)
	count, _ := l.DonationsCount(ctx)
	if !total.Equal(value) || count != 1 {
		t.Fatalf("counters changed: total=%s count=%d", total, count)
	}
}

func TestWithdrawZeroBalanceStillEmits(t *testing.T) {
	f := newFixture(t, nil)
	l := f.create(t)
	moved, err := l.Withdraw(context.Background(), owner)
	if err != nil {
		t.Fatalf("Withdraw() error: %v", err)
	}
	if !moved.IsZero() {
		t.Fatalf("Withdraw() moved %s, want 0", moved)
	}
	if n := len(f.sink.kinds(domain.EventWithdraw)); n != 1 {
		t.Fatalf("Withdraw events = %d, want 1", n)
	}
}

func TestWithdrawGoesToCurrentBeneficiary(t *testing.T) {
	f := newFixture(t, nil)
	l := f.create(t)
	ctx := context.Background()
	if _, err := l.Donate(ctx, donor, domain.NewAmount(40)); err != nil {
		t.Fatalf("Donate() error: %v", err)
	}
	if err := l.SetBeneficiary(ctx, owner, stranger); err != nil {
		t.Fatalf("SetBeneficiary() error: %v", err)
	}
	if _, err := l.Withdraw(ctx, owner); err != nil {
		t.Fatalf("Withdraw() error: %v", err)
	}
	if got := f.vault.BalanceOf(stranger); !got.Equal(domain.NewAmount(40)) {
		t.Fatalf("new beneficiary received %s, want 40", got)
	}
	if got := f.vault.BalanceOf(beneficiary); !got.IsZero() {
		t.Fatalf("old beneficiary received %s", got)
	}
}

func TestWithdrawTransferFailureRollsBack(t *testing.T) {
	f := newFixture(t, nil)
	l := f.create(t)
	ctx := context.Background()
	if _, err := l.Donate(ctx, donor, domain.NewAmount(40)); err != nil {
		t.Fatalf("Donate() error: %v", err)
	}
	f.vault.FailNext(errors.New("processor down"))

	_, err := l.Withdraw(ctx, owner)
	if !errors.Is(err, domain.ErrTransferFailed) {
		t.Fatalf("Withdraw() error = %v, want transfer failed", err)
	}
	balance, _ := l.Balance(ctx)
	if !balance.Equal(domain.NewAmount(40)) {
		t.Fatalf("balance after failed transfer = %s, want 40", balance)
	}
	if n := len(f.sink.kinds(domain.EventWithdraw)); n != 0 {
		t.Fatalf("failed withdraw emitted %d events", n)
	}
	evs, err := l.Events(ctx, 0, 0)
	if err != nil {
		t.Fatalf("Events() error: %v", err)
	}
	if len(evs) != 1 || evs[0].Kind != domain.EventDonationReceived {
		t.Fatalf("event log after failed withdraw = %+v", evs)
	}

	// A retry after the processor recovers succeeds.
	if _, err := l.Withdraw(ctx, owner); err != nil {
		t.Fatalf("Withdraw() retry error: %v", err)
	}
	if got := f.vault.BalanceOf(beneficiary); !got.Equal(domain.NewAmount(40)) {
		t.Fatalf("beneficiary balance = %s, want 40", got)
	}
}

// flakyTransferrer fails the first failures calls and records every id it sees.
type flakyTransferrer struct {
	mu       sync.Mutex
	failures int
	ids      []uuid.UUID
}

func (f *flakyTransferrer) Transfer(_ context.Context, t domain.Transfer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = append(f.ids, t.ID)
	if f.failures > 0 {
		f.failures--
		return errors.New("timeout")
	}
	return nil
}

func TestWithdrawRetryReusesTransferID(t *testing.T) {
	tr := &flakyTransferrer{failures: 2}
	svc, err := NewService(memstore.New(), tr, Options{})
	if err != nil {
		t.Fatalf("NewService() error: %v", err)
	}
	ctx := context.Background()
	l, err := svc.Create(ctx, CreateParams{Name: "n", Beneficiary: beneficiary, Owner: owner})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if _, err := l.Donate(ctx, donor, domain.NewAmount(7)); err != nil {
		t.Fatalf("Donate() error: %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := l.Withdraw(ctx, owner); !errors.Is(err, domain.ErrTransferFailed) {
			t.Fatalf("Withdraw() attempt %d error = %v, want transfer failed", i, err)
		}
	}
	if _, err := l.Withdraw(ctx, owner); err != nil {
		t.Fatalf("Withdraw() retry error: %v", err)
	}
	if len(tr.ids) != 3 {
		t.Fatalf("transfer attempts = %d, want 3", len(tr.ids))
	}
	for i, id := range tr.ids {
		if id != tr.ids[0] {
			t.Fatalf("attempt %d transfer id = %s, want %s", i, id, tr.ids[0])
		}
	}

	// The next withdrawal is a different payout.
	if _, err := l.Withdraw(ctx, owner); err != nil {
		t.Fatalf("second Withdraw() error: %v", err)
	}
	if tr.ids[3] == tr.ids[0] {
		t.Fatalf("second withdrawal reused transfer id %s", tr.ids[0])
	}
}

func TestBalanceMatchesDonationsMinusWithdrawals(t *testing.T) {
	f := newFixture(t, nil)
	l := f.create(t)
	ctx := context.Background()

	for _, n := range []uint64{10, 20} {
		if _, err := l.Donate(ctx, donor, domain.NewAmount(n)); err != nil {
			t.Fatalf("Donate() error: %v", err)
		}
	}
	if _, err := l.Withdraw(ctx, owner); err != nil {
		t.Fatalf("Withdraw() error: %v", err)
	}
	if _, err := l.Donate(ctx, stranger, domain.NewAmount(5)); err != nil {
		t.Fatalf("Donate() error: %v", err)
	}
	snap, err := l.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot() error: %v", err)
	}
	if !snap.TotalDonations.Equal(domain.NewAmount(35)) || !snap.TotalWithdrawn.Equal(domain.NewAmount(30)) || !snap.Balance.Equal(domain.NewAmount(5)) {
		t.Fatalf("unexpected snapshot: total=%s withdrawn=%s balance=%s", snap.TotalDonations, snap.TotalWithdrawn, snap.Balance)
	}
}

func TestConcurrentDonationsAreSerialized(t *testing.T) {
	f := newFixture(t, nil)
	l := f.create(t)
	ctx := context.Background()

	const workers, each = 8, 25
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < each; i++ {
				if _, err := l.Donate(ctx, donor, domain.NewAmount(2)); err != nil {
					t.Errorf("Donate() error: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	count, _ := l.DonationsCount(ctx)
	if count != workers*each {
		t.Fatalf("DonationsCount() = %d, want %d", count, workers*each)
	}
	total, _ := l.TotalDonations(ctx)
	if !total.Equal(domain.NewAmount(2 * workers * each)) {
		t.Fatalf("TotalDonations() = %s", total)
	}
	mine, _ := l.MyDonationsCount(ctx, donor)
	if mine != workers*each {
		t.Fatalf("MyDonationsCount() = %d", mine)
	}
	if n := len(f.recorder.rejected); n != 0 {
		t.Fatalf("unexpected rejections: %v", f.recorder.rejected)
	}
}

func TestMyDonationsPage(t *testing.T) {
	f := newFixture(t, nil)
	l := f.create(t)
	ctx := context.Background()
	for n := uint64(1); n <= 5; n++ {
		if _, err := l.Donate(ctx, donor, domain.NewAmount(n)); err != nil {
			t.Fatalf("Donate() error: %v", err)
		}
	}
	page, err := l.MyDonationsPage(ctx, donor, 1, 2)
	if err != nil {
		t.Fatalf("MyDonationsPage() error: %v", err)
	}
	if len(page) != 2 || !page[0].Amount.Equal(domain.NewAmount(2)) || !page[1].Amount.Equal(domain.NewAmount(3)) {
		t.Fatalf("unexpected page: %+v", page)
	}
	if _, err := l.MyDonationsPage(ctx, donor, -1, 2); !errors.Is(err, domain.ErrInvalidPage) {
		t.Fatalf("negative offset error = %v", err)
	}
}

func TestServiceListAndOpen(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	var ids []uuid.UUID
	for i := 0; i < 25; i++ {
		ids = append(ids, f.create(t).ID())
	}

	page, total, err := f.svc.List(ctx, 0, 50)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if total != 25 {
		t.Fatalf("total = %d, want 25", total)
	}
	if len(page) != MaxListLimit {
		t.Fatalf("page len = %d, want %d", len(page), MaxListLimit)
	}
	if page[0].ID != ids[0] {
		t.Fatalf("list not in creation order")
	}
	rest, _, err := f.svc.List(ctx, 20, 10)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(rest) != 5 || rest[4].ID != ids[24] {
		t.Fatalf("unexpected tail page len=%d", len(rest))
	}
	empty, _, err := f.svc.List(ctx, 30, 10)
	if err != nil || len(empty) != 0 {
		t.Fatalf("List() past end = %d items, %v", len(empty), err)
	}

	if _, err := f.svc.Open(ctx, ids[3]); err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if _, err := f.svc.Open(ctx, uuid.New()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Open(unknown) error = %v, want not found", err)
	}
}
