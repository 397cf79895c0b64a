package mysql

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"microloan-bazaar/internal/domain/access"
	loanDomain "microloan-bazaar/internal/domain/loan"
	poolDomain "microloan-bazaar/internal/domain/pool"
	profileDomain "microloan-bazaar/internal/domain/profile"
	schedDomain "microloan-bazaar/internal/domain/schedule"
	"microloan-bazaar/internal/domain/uow"
	"microloan-bazaar/pkg/id"
)

// The schema has no mysql-only column types, so tests migrate the real
// entities into an in-memory sqlite database.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		// same setting as prod; Grant relies on ErrDuplicatedKey translation
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func makeLoan(loanID, borrowerID string) *loanDomain.Loan {
	return &loanDomain.Loan{
		LoanID:       loanID,
		BorrowerID:   borrowerID,
		AmountCipher: "aabb",
		Purpose:      loanDomain.PurposeInventory,
		Status:       loanDomain.StatusSubmitted,
		SubmittedAt:  time.Now().UTC(),
		IsActive:     true,
	}
}

func TestLoanRepository_CreateAndGet(t *testing.T) {
	db := openTestDB(t)
	repo := NewLoanRepository(db)
	ctx := context.Background()

	loanID := id.NewID32()
	l := makeLoan(loanID, id.NewID32())
	if err := repo.Create(ctx, l); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if l.ID == 0 {
		t.Fatal("Create did not set auto-increment ID")
	}

	got, err := repo.GetByLoanID(ctx, loanID)
	if err != nil {
		t.Fatalf("GetByLoanID: %v", err)
	}
	if got.LoanID != loanID || got.Status != loanDomain.StatusSubmitted || got.AmountCipher != "aabb" {
		t.Fatalf("got %+v", got)
	}

	if _, err := repo.GetByLoanID(ctx, id.NewID32()); !errors.Is(err, loanDomain.ErrNotFound) {
		t.Fatalf("missing loan err = %v, want ErrNotFound", err)
	}
}

func TestLoanRepository_SaveAndList(t *testing.T) {
	db := openTestDB(t)
	repo := NewLoanRepository(db)
	ctx := context.Background()

	borrower := id.NewID32()
	a := makeLoan(id.NewID32(), borrower)
	b := makeLoan(id.NewID32(), borrower)
	other := makeLoan(id.NewID32(), id.NewID32())
	for _, l := range []*loanDomain.Loan{a, b, other} {
		if err := repo.Create(ctx, l); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	a.SetStatus(loanDomain.StatusApproved, time.Now().UTC())
	if err := repo.Save(ctx, a); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := repo.GetByLoanID(ctx, a.LoanID)
	if err != nil {
		t.Fatalf("GetByLoanID: %v", err)
	}
	if got.Status != loanDomain.StatusApproved || got.StatusChangeCount != 1 {
		t.Fatalf("after save: %+v", got)
	}

	list, err := repo.ListByBorrowerID(ctx, borrower)
	if err != nil {
		t.Fatalf("ListByBorrowerID: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
}

func TestPoolRepository_Contributions(t *testing.T) {
	db := openTestDB(t)
	repo := NewPoolRepository(db)
	ctx := context.Background()

	if err := repo.Create(ctx, &poolDomain.FundingPool{LoanID: 7, TotalPooledCipher: "t0", TotalInterestCipher: "i0"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	lender := id.NewID32()
	if _, err := repo.GetContribution(ctx, 7, lender); !errors.Is(err, poolDomain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := repo.CreateContribution(ctx, &poolDomain.Contribution{LoanID: 7, LenderID: lender, Cipher: "c1", FirstContributedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("CreateContribution: %v", err)
	}

	c, err := repo.GetContribution(ctx, 7, lender)
	if err != nil {
		t.Fatalf("GetContribution: %v", err)
	}
	c.Cipher = "c2"
	if err := repo.SaveContribution(ctx, c); err != nil {
		t.Fatalf("SaveContribution: %v", err)
	}

	list, err := repo.ListContributions(ctx, 7)
	if err != nil {
		t.Fatalf("ListContributions: %v", err)
	}
	if len(list) != 1 || list[0].Cipher != "c2" {
		t.Fatalf("list = %+v", list)
	}
}

func TestScheduleRepository_Payments(t *testing.T) {
	db := openTestDB(t)
	repo := NewScheduleRepository(db)
	ctx := context.Background()

	s := &schedDomain.RepaymentSchedule{LoanID: 3, InstallmentCount: 4, NextPaymentDue: time.Now().UTC()}
	if err := repo.Create(ctx, s); err != nil {
		t.Fatalf("Create: %v", err)
	}

	for seq := uint32(1); seq <= 2; seq++ {
		if err := repo.AppendPayment(ctx, &schedDomain.PaymentRecord{LoanID: 3, Seq: seq, AmountCipher: "a", PaidAt: time.Now().UTC()}); err != nil {
			t.Fatalf("AppendPayment: %v", err)
		}
	}
	n, err := repo.CountPayments(ctx, 3)
	if err != nil {
		t.Fatalf("CountPayments: %v", err)
	}
	if n != 2 {
		t.Fatalf("count = %d, want 2", n)
	}
	list, err := repo.ListPayments(ctx, 3)
	if err != nil {
		t.Fatalf("ListPayments: %v", err)
	}
	if len(list) != 2 || list[0].Seq != 1 || list[1].Seq != 2 {
		t.Fatalf("list = %+v", list)
	}
}

func TestProfileRepository_Roundtrip(t *testing.T) {
	db := openTestDB(t)
	repo := NewProfileRepository(db)
	ctx := context.Background()

	borrower := id.NewID32()
	if _, err := repo.GetBorrower(ctx, borrower); !errors.Is(err, profileDomain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	p := &profileDomain.BorrowerProfile{BorrowerID: borrower, LoanCount: 1, LoanIDs: []string{"l1"}}
	p.Touch(time.Now().UTC())
	if err := repo.CreateBorrower(ctx, p); err != nil {
		t.Fatalf("CreateBorrower: %v", err)
	}

	p.LoanCount = 2
	p.LoanIDs = append(p.LoanIDs, "l2")
	if err := repo.SaveBorrower(ctx, p); err != nil {
		t.Fatalf("SaveBorrower: %v", err)
	}

	got, err := repo.GetBorrower(ctx, borrower)
	if err != nil {
		t.Fatalf("GetBorrower: %v", err)
	}
	if got.LoanCount != 2 || len(got.LoanIDs) != 2 || got.LoanIDs[1] != "l2" {
		t.Fatalf("got %+v", got)
	}
}

func TestRoleRepository_GrantRevoke(t *testing.T) {
	db := openTestDB(t)
	repo := NewRoleRepository(db)
	ctx := context.Background()

	principal := id.NewID32()
	ok, err := repo.HasRole(ctx, principal, access.RoleLoanOfficer)
	if err != nil {
		t.Fatalf("HasRole: %v", err)
	}
	if ok {
		t.Fatal("role present before grant")
	}

	if err := repo.Grant(ctx, principal, access.RoleLoanOfficer); err != nil {
		t.Fatalf("Grant: %v", err)
	}
	ok, err = repo.HasRole(ctx, principal, access.RoleLoanOfficer)
	if err != nil {
		t.Fatalf("HasRole: %v", err)
	}
	if !ok {
		t.Fatal("role missing after grant")
	}

	if err := repo.Revoke(ctx, principal, access.RoleLoanOfficer); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	ok, _ = repo.HasRole(ctx, principal, access.RoleLoanOfficer)
	if ok {
		t.Fatal("role survived revoke")
	}
}

func TestRoleRepository_GrantTwiceIsNoOp(t *testing.T) {
	db := openTestDB(t)
	repo := NewRoleRepository(db)
	ctx := context.Background()

	principal := id.NewID32()
	if err := repo.Grant(ctx, principal, access.RoleCreditAnalyst); err != nil {
		t.Fatalf("Grant: %v", err)
	}
	if err := repo.Grant(ctx, principal, access.RoleCreditAnalyst); err != nil {
		t.Fatalf("second Grant should be a no-op, got %v", err)
	}

	var n int64
	if err := db.Model(&access.Grant{}).
		Where("principal_id = ? AND role = ?", principal, access.RoleCreditAnalyst).
		Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("grant rows = %d, want 1", n)
	}
}

func TestEnsureDefaults_Idempotent(t *testing.T) {
	db := openTestDB(t)
	if err := EnsureDefaults(db); err != nil {
		t.Fatalf("EnsureDefaults: %v", err)
	}
	if err := EnsureDefaults(db); err != nil {
		t.Fatalf("EnsureDefaults again: %v", err)
	}

	p, err := NewPolicyRepository(db).Get(context.Background())
	if err != nil {
		t.Fatalf("policy Get: %v", err)
	}
	if p.MinCreditScore != 550 || p.MaxLoanAmount != 100_000 {
		t.Fatalf("seeded policy = %+v", p)
	}
}

func TestUoW_RollsBackOnError(t *testing.T) {
	db := openTestDB(t)
	u := NewGormUoW(db)
	ctx := context.Background()

	loanID := id.NewID32()
	boom := errors.New("boom")
	err := u.WithinTx(ctx, func(r uow.Repos) error {
		if err := r.Loans.Create(ctx, makeLoan(loanID, id.NewID32())); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	if _, err := NewLoanRepository(db).GetByLoanID(ctx, loanID); !errors.Is(err, loanDomain.ErrNotFound) {
		t.Fatalf("loan visible after rollback: %v", err)
	}
}

func TestUoW_WithinLoanTx(t *testing.T) {
	db := openTestDB(t)
	u := NewGormUoW(db)
	ctx := context.Background()

	loanID := id.NewID32()
	if err := NewLoanRepository(db).Create(ctx, makeLoan(loanID, id.NewID32())); err != nil {
		t.Fatalf("Create: %v", err)
	}

	err := u.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *loanDomain.Loan) error {
		l.SetStatus(loanDomain.StatusApproved, time.Now().UTC())
		return r.Loans.Save(ctx, l)
	})
	if err != nil {
		t.Fatalf("WithinLoanTx: %v", err)
	}

	got, err := NewLoanRepository(db).GetByLoanID(ctx, loanID)
	if err != nil {
		t.Fatalf("GetByLoanID: %v", err)
	}
	if got.Status != loanDomain.StatusApproved {
		t.Fatalf("status = %s, want approved", got.Status)
	}

	if err := u.WithinLoanTx(ctx, id.NewID32(), func(uow.Repos, *loanDomain.Loan) error { return nil }); !errors.Is(err, loanDomain.ErrNotFound) {
		t.Fatalf("missing loan err = %v, want ErrNotFound", err)
	}
}
