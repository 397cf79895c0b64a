package loan

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"microloan-bazaar/internal/adapter/repository/memory"
	domainLoan "microloan-bazaar/internal/domain/loan"
	"microloan-bazaar/internal/fhe"
	"microloan-bazaar/internal/metrics"
	"microloan-bazaar/internal/testutil"
)

// -------- helpers --------

type fixture struct {
	uc     *Usecase
	store  *memory.Store
	engine *fhe.MemoryEngine
	rec    *testutil.RecorderNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	engine := fhe.NewMemoryEngine()
	rec := &testutil.RecorderNotifier{}
	m := metrics.New(prometheus.NewRegistry())
	return &fixture{
		uc:     NewUsecase(store, engine, rec, m),
		store:  store,
		engine: engine,
		rec:    rec,
	}
}

var borrowerID = strings.Repeat("ab", 16)

func submitInput(e *fhe.MemoryEngine, borrower string) SubmitInput {
	return SubmitInput{
		BorrowerID:     borrower,
		Amount:         e.EncryptInput(borrower, 10_000, fhe.Bits64),
		Term:           e.EncryptInput(borrower, 180, fhe.Bits32),
		CreditScore:    e.EncryptInput(borrower, 600, fhe.Bits32),
		Revenue:        e.EncryptInput(borrower, 4_000, fhe.Bits32),
		PaymentHistory: e.EncryptInput(borrower, 12, fhe.Bits16),
		PastDefaults:   e.EncryptInput(borrower, 1, fhe.Bits8),
		CommunityScore: e.EncryptInput(borrower, 8, fhe.Bits8),
		Purpose:        "working_capital",
	}
}

// -------- tests --------

func TestSubmit_CreatesLoanAndProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	dto, err := f.uc.Submit(ctx, submitInput(f.engine, borrowerID))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if dto.Status != string(domainLoan.StatusSubmitted) {
		t.Fatalf("status = %s, want submitted", dto.Status)
	}
	if len(dto.LoanID) != 32 {
		t.Fatalf("loan id %q not 32 chars", dto.LoanID)
	}
	if !dto.IsActive {
		t.Fatal("new loan should be active")
	}

	p, err := f.uc.GetBorrowerProfile(ctx, borrowerID)
	if err != nil {
		t.Fatalf("GetBorrowerProfile: %v", err)
	}
	if p.LoanCount != 1 || len(p.LoanIDs) != 1 || p.LoanIDs[0] != dto.LoanID {
		t.Fatalf("profile = %+v, want one loan %s", p, dto.LoanID)
	}

	s, err := f.uc.GetMarketplaceStats(ctx)
	if err != nil {
		t.Fatalf("GetMarketplaceStats: %v", err)
	}
	if s.TotalLoans != 1 {
		t.Fatalf("TotalLoans = %d, want 1", s.TotalLoans)
	}

	from, to := f.rec.LastTransition()
	if from != "draft" || to != "submitted" {
		t.Fatalf("notified %s->%s, want draft->submitted", from, to)
	}
}

func TestSubmit_SecondLoanAppendsProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.uc.Submit(ctx, submitInput(f.engine, borrowerID))
	if err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	second, err := f.uc.Submit(ctx, submitInput(f.engine, borrowerID))
	if err != nil {
		t.Fatalf("second Submit: %v", err)
	}

	p, err := f.uc.GetBorrowerProfile(ctx, borrowerID)
	if err != nil {
		t.Fatalf("GetBorrowerProfile: %v", err)
	}
	if p.LoanCount != 2 {
		t.Fatalf("LoanCount = %d, want 2", p.LoanCount)
	}
	if p.LoanIDs[0] != first.LoanID || p.LoanIDs[1] != second.LoanID {
		t.Fatalf("LoanIDs = %v", p.LoanIDs)
	}
}

func TestSubmit_InvalidPurpose(t *testing.T) {
	f := newFixture(t)
	in := submitInput(f.engine, borrowerID)
	in.Purpose = "yacht"
	if _, err := f.uc.Submit(context.Background(), in); !errors.Is(err, domainLoan.ErrInvalidPurpose) {
		t.Fatalf("err = %v, want ErrInvalidPurpose", err)
	}
}

func TestSubmit_InvalidProofLeavesNothingBehind(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := submitInput(f.engine, borrowerID)
	in.PastDefaults.Proof = "deadbeef"
	if _, err := f.uc.Submit(ctx, in); !errors.Is(err, fhe.ErrInvalidProof) {
		t.Fatalf("err = %v, want ErrInvalidProof", err)
	}

	// the whole transaction must have rolled back
	if _, err := f.uc.GetBorrowerProfile(ctx, borrowerID); err == nil {
		t.Fatal("profile exists after failed submit")
	}
	s, err := f.uc.GetMarketplaceStats(ctx)
	if err != nil {
		t.Fatalf("GetMarketplaceStats: %v", err)
	}
	if s.TotalLoans != 0 {
		t.Fatalf("TotalLoans = %d after failed submit, want 0", s.TotalLoans)
	}
}

func TestGet_NotFound(t *testing.T) {
	f := newFixture(t)
	if _, err := f.uc.Get(context.Background(), strings.Repeat("00", 16)); !errors.Is(err, domainLoan.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestProjections_StableAcrossReads(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	dto, err := f.uc.Submit(ctx, submitInput(f.engine, borrowerID))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	a, err := f.uc.Get(ctx, dto.LoanID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	b, err := f.uc.Get(ctx, dto.LoanID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if *a != *b {
		t.Fatalf("repeated reads differ: %+v vs %+v", a, b)
	}
}
