package repayment

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"microloan-bazaar/internal/adapter/repository/memory"
	"microloan-bazaar/internal/domain/access"
	domainLoan "microloan-bazaar/internal/domain/loan"
	"microloan-bazaar/internal/domain/schedule"
	"microloan-bazaar/internal/domain/uow"
	"microloan-bazaar/internal/fhe"
	"microloan-bazaar/internal/metrics"
	"microloan-bazaar/internal/testutil"
	evaluc "microloan-bazaar/internal/usecase/evaluation"
	fundinguc "microloan-bazaar/internal/usecase/funding"
	loanuc "microloan-bazaar/internal/usecase/loan"
)

// -------- helpers --------

var (
	borrowerID = strings.Repeat("ab", 16)
	analystID  = strings.Repeat("cd", 16)
	officerID  = strings.Repeat("0f", 16)
	agentID    = strings.Repeat("aa", 16)
	lenderID   = strings.Repeat("11", 16)
)

type fixture struct {
	loans  *loanuc.Usecase
	evals  *evaluc.Usecase
	fund   *fundinguc.Usecase
	repay  *Usecase
	store  *memory.Store
	engine *fhe.MemoryEngine
	rec    *testutil.RecorderNotifier
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	engine := fhe.NewMemoryEngine()
	rec := &testutil.RecorderNotifier{}
	m := metrics.New(prometheus.NewRegistry())
	store.GrantRole(analystID, access.RoleCreditAnalyst)
	store.GrantRole(officerID, access.RoleLoanOfficer)
	store.GrantRole(agentID, access.RoleCollectionAgent)
	f := &fixture{
		loans:  loanuc.NewUsecase(store, engine, rec, m),
		evals:  evaluc.NewUsecase(store, engine, rec, m),
		fund:   fundinguc.NewUsecase(store, engine, rec, m),
		repay:  NewUsecase(store, engine, rec, m),
		store:  store,
		engine: engine,
		rec:    rec,
		now:    time.Now().UTC(),
	}
	f.repay.Now = func() time.Time { return f.now }
	return f
}

// activeLoan walks one loan all the way to active: 6 installments of 1680
// against a 10 080 total repayment at 1200 bps.
func (f *fixture) activeLoan(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	dto, err := f.loans.Submit(ctx, loanuc.SubmitInput{
		BorrowerID:     borrowerID,
		Amount:         f.engine.EncryptInput(borrowerID, 10_000, fhe.Bits64),
		Term:           f.engine.EncryptInput(borrowerID, 180, fhe.Bits32),
		CreditScore:    f.engine.EncryptInput(borrowerID, 620, fhe.Bits32),
		Revenue:        f.engine.EncryptInput(borrowerID, 4_000, fhe.Bits32),
		PaymentHistory: f.engine.EncryptInput(borrowerID, 12, fhe.Bits16),
		PastDefaults:   f.engine.EncryptInput(borrowerID, 0, fhe.Bits8),
		CommunityScore: f.engine.EncryptInput(borrowerID, 8, fhe.Bits8),
		Purpose:        "expansion",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := f.evals.Request(ctx, analystID, dto.LoanID); err != nil {
		t.Fatalf("Request: %v", err)
	}
	if _, err := f.evals.Complete(ctx, analystID, dto.LoanID, evaluc.CompleteInput{
		CreditScore:      700,
		RiskTier:         "low",
		ApprovedAmount:   9_000,
		InterestRateBps:  1_200,
		ApprovedTermDays: 180,
		TotalRepayment:   10_080,
	}); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if _, err := f.fund.Contribute(ctx, lenderID, dto.LoanID, f.engine.EncryptInput(lenderID, 9_000, fhe.Bits64)); err != nil {
		t.Fatalf("Contribute: %v", err)
	}
	if _, err := f.fund.Disburse(ctx, officerID, dto.LoanID); err != nil {
		t.Fatalf("Disburse: %v", err)
	}
	return dto.LoanID
}

func (f *fixture) pay(t *testing.T, loanID string, amount uint64) *PaymentDTO {
	t.Helper()
	dto, err := f.repay.MakePayment(context.Background(), borrowerID, loanID, f.engine.EncryptInput(borrowerID, amount, fhe.Bits64))
	if err != nil {
		t.Fatalf("MakePayment: %v", err)
	}
	return dto
}

// -------- tests --------

func TestMakePayment_OnlyBorrower(t *testing.T) {
	f := newFixture(t)
	loanID := f.activeLoan(t)

	_, err := f.repay.MakePayment(context.Background(), lenderID, loanID, f.engine.EncryptInput(lenderID, 1_680, fhe.Bits64))
	if !errors.Is(err, domainLoan.ErrNotBorrower) {
		t.Fatalf("err = %v, want ErrNotBorrower", err)
	}
}

func TestMakePayment_ThroughCompletion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	loanID := f.activeLoan(t)

	first := f.pay(t, loanID, 1_680)
	if first.Seq != 1 || first.LoanStatus != string(domainLoan.StatusRepaying) {
		t.Fatalf("first payment = %+v", first)
	}
	if first.IsLate {
		t.Fatal("on-time payment flagged late")
	}

	for i := 2; i <= 5; i++ {
		if p := f.pay(t, loanID, 1_680); p.Seq != uint32(i) {
			t.Fatalf("seq = %d, want %d", p.Seq, i)
		}
	}

	last := f.pay(t, loanID, 1_680)
	if last.LoanStatus != string(domainLoan.StatusCompleted) {
		t.Fatalf("final status = %s, want completed", last.LoanStatus)
	}

	s, err := f.repay.GetSchedule(ctx, loanID)
	if err != nil {
		t.Fatalf("GetSchedule: %v", err)
	}
	if !s.IsComplete || s.InstallmentsPaid != 6 || s.PaymentCount != 6 {
		t.Fatalf("schedule = %+v", s)
	}

	stats, err := f.loans.GetMarketplaceStats(ctx)
	if err != nil {
		t.Fatalf("GetMarketplaceStats: %v", err)
	}
	if stats.Completed != 1 || stats.Defaulted != 0 {
		t.Fatalf("stats = %+v", stats)
	}

	// the borrower's encrypted repaid total saw every installment
	var repaid uint64
	err = f.store.WithinTx(ctx, func(r uow.Repos) error {
		p, err := r.Profiles.GetBorrower(ctx, borrowerID)
		if err != nil {
			return err
		}
		repaid, err = f.engine.Reveal(fhe.LedgerPrincipal, p.TotalRepaidCipher)
		return err
	})
	if err != nil {
		t.Fatalf("reveal repaid: %v", err)
	}
	if repaid != 10_080 {
		t.Fatalf("total repaid = %d, want 10080", repaid)
	}
}

func TestMakePayment_RemainingBalanceFloorsAtZero(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	loanID := f.activeLoan(t)

	// one oversized payment larger than the whole obligation
	f.pay(t, loanID, 50_000)

	var remaining uint64
	err := f.store.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domainLoan.Loan) error {
		s, err := r.Schedules.GetByLoanID(ctx, l.ID)
		if err != nil {
			return err
		}
		remaining, err = f.engine.Reveal(fhe.LedgerPrincipal, s.RemainingBalanceCipher)
		return err
	})
	if err != nil {
		t.Fatalf("reveal remaining: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("remaining balance = %d, want 0 (no unsigned wrap)", remaining)
	}
}

func TestMakePayment_LateFlag(t *testing.T) {
	f := newFixture(t)
	loanID := f.activeLoan(t)

	// due in 30 days; travel 40 days out, past the 3-day late threshold
	f.now = f.now.Add(40 * 24 * time.Hour)
	p := f.pay(t, loanID, 1_680)
	if !p.IsLate {
		t.Fatal("payment 10 days past due not flagged late")
	}
	if p.DaysLate < 9 || p.DaysLate > 10 {
		t.Fatalf("DaysLate = %d, want ~10", p.DaysLate)
	}
}

func TestMarkAsDefaulted_GracePeriod(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	loanID := f.activeLoan(t)

	if _, err := f.repay.MarkAsDefaulted(ctx, agentID, loanID); !errors.Is(err, schedule.ErrGracePeriodActive) {
		t.Fatalf("err = %v, want ErrGracePeriodActive before due date", err)
	}

	// 10 days past due is still inside the 15-day grace period
	f.now = f.now.Add(40 * 24 * time.Hour)
	if _, err := f.repay.MarkAsDefaulted(ctx, agentID, loanID); !errors.Is(err, schedule.ErrGracePeriodActive) {
		t.Fatalf("err = %v, want ErrGracePeriodActive inside grace", err)
	}

	// nothing must have changed on the failed attempts
	l, err := f.loans.Get(ctx, loanID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if l.Status != string(domainLoan.StatusActive) {
		t.Fatalf("status = %s after failed default, want active", l.Status)
	}

	// 16 days past the 30-day due date clears the grace period
	f.now = f.now.Add(6 * 24 * time.Hour)
	out, err := f.repay.MarkAsDefaulted(ctx, agentID, loanID)
	if err != nil {
		t.Fatalf("MarkAsDefaulted: %v", err)
	}
	if out.Status != string(domainLoan.StatusDefaulted) {
		t.Fatalf("status = %s, want defaulted", out.Status)
	}

	stats, err := f.loans.GetMarketplaceStats(ctx)
	if err != nil {
		t.Fatalf("GetMarketplaceStats: %v", err)
	}
	if stats.Defaulted != 1 || stats.Rejected != 0 {
		t.Fatalf("stats = %+v, want defaulted=1 rejected=0", stats)
	}
}

func TestMarkAsDefaulted_RequiresAgent(t *testing.T) {
	f := newFixture(t)
	loanID := f.activeLoan(t)
	f.now = f.now.Add(60 * 24 * time.Hour)

	if _, err := f.repay.MarkAsDefaulted(context.Background(), officerID, loanID); !errors.Is(err, access.ErrNotCollectionAgent) {
		t.Fatalf("err = %v, want ErrNotCollectionAgent", err)
	}
}

func TestMakePayment_AfterDefault(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	loanID := f.activeLoan(t)

	f.now = f.now.Add(60 * 24 * time.Hour)
	if _, err := f.repay.MarkAsDefaulted(ctx, agentID, loanID); err != nil {
		t.Fatalf("MarkAsDefaulted: %v", err)
	}

	_, err := f.repay.MakePayment(ctx, borrowerID, loanID, f.engine.EncryptInput(borrowerID, 1_680, fhe.Bits64))
	if !errors.Is(err, domainLoan.ErrInvalidStatus) {
		t.Fatalf("err = %v, want ErrInvalidStatus on defaulted loan", err)
	}
}
