package funding

import (
	"context"
	"errors"
	"fmt"
	"time"

	domainLoan "microloan-bazaar/internal/domain/loan"
	"microloan-bazaar/internal/domain/pool"
	"microloan-bazaar/internal/domain/profile"
	"microloan-bazaar/internal/domain/schedule"
	"microloan-bazaar/internal/domain/uow"
	"microloan-bazaar/internal/fhe"
	"microloan-bazaar/internal/metrics"
	"microloan-bazaar/internal/notify"
	"microloan-bazaar/internal/usecase/guard"
)

type Usecase struct {
	uow      uow.UnitOfWork
	engine   fhe.Engine
	notifier notify.Notifier
	metrics  *metrics.Metrics
}

func NewUsecase(u uow.UnitOfWork, e fhe.Engine, n notify.Notifier, m *metrics.Metrics) *Usecase {
	return &Usecase{uow: u, engine: e, notifier: n, metrics: m}
}

type PoolDTO struct {
	LoanID        string `json:"loan_id"`
	LenderCount   uint32 `json:"lender_count"`
	IsFunded      bool   `json:"is_funded"`
	IsDistributed bool   `json:"is_distributed"`
}

// Contribute folds one lender's encrypted amount into the pool. The running
// total is a homomorphic sum; the serialized transaction model makes the
// order of concurrent lenders irrelevant. A repeat contribution updates the
// lender's row and leaves LenderCount alone.
func (u *Usecase) Contribute(ctx context.Context, lenderID, loanID string, amount fhe.ExternalCiphertext) (*PoolDTO, error) {
	var dto *PoolDTO
	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domainLoan.Loan) error {
		if l.Status != domainLoan.StatusApproved {
			return fmt.Errorf("%w: %s", domainLoan.ErrInvalidStatus, l.Status)
		}

		amt, err := u.engine.FromExternal(ctx, amount, fhe.Bits64)
		if err != nil {
			return err
		}
		if err := u.engine.Grant(ctx, fhe.LedgerPrincipal, amt); err != nil {
			return err
		}

		p, err := r.Pools.GetByLoanID(ctx, l.ID)
		if err != nil {
			return err
		}
		if p.TotalPooledCipher, err = u.engine.Add(ctx, p.TotalPooledCipher, amt); err != nil {
			return err
		}

		now := time.Now().UTC()
		c, err := r.Pools.GetContribution(ctx, l.ID, lenderID)
		switch {
		case errors.Is(err, pool.ErrNotFound):
			p.LenderCount++
			if err := r.Pools.CreateContribution(ctx, &pool.Contribution{
				LoanID:             l.ID,
				LenderID:           lenderID,
				Cipher:             amt,
				FirstContributedAt: now,
			}); err != nil {
				return err
			}
			if err := u.touchLender(ctx, r, lenderID, l.LoanID, amt, now, true); err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if c.Cipher, err = u.engine.Add(ctx, c.Cipher, amt); err != nil {
				return err
			}
			if err := r.Pools.SaveContribution(ctx, c); err != nil {
				return err
			}
			if err := u.touchLender(ctx, r, lenderID, l.LoanID, amt, now, false); err != nil {
				return err
			}
		}

		if err := r.Pools.Save(ctx, p); err != nil {
			return err
		}
		u.metrics.Contributions.Inc()
		dto = &PoolDTO{LoanID: l.LoanID, LenderCount: p.LenderCount, IsFunded: p.IsFunded, IsDistributed: p.IsDistributed}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

func (u *Usecase) touchLender(ctx context.Context, r uow.Repos, lenderID, loanID string, amt fhe.Handle, now time.Time, firstForLoan bool) error {
	p, err := r.Profiles.GetLender(ctx, lenderID)
	switch {
	case errors.Is(err, profile.ErrNotFound):
		zero, terr := u.engine.Trivial(ctx, 0, fhe.Bits64)
		if terr != nil {
			return terr
		}
		p = &profile.LenderProfile{
			LenderID:             lenderID,
			TotalFundedCipher:    zero,
			InterestEarnedCipher: zero,
		}
		if err := r.Profiles.CreateLender(ctx, p); err != nil {
			return err
		}
	case err != nil:
		return err
	}
	p.Touch(now)
	if firstForLoan {
		p.FundedCount++
		p.FundedLoanIDs = append(p.FundedLoanIDs, loanID)
	}
	if p.TotalFundedCipher, err = u.engine.Add(ctx, p.TotalFundedCipher, amt); err != nil {
		return err
	}
	return r.Profiles.SaveLender(ctx, p)
}

type DisburseResult struct {
	LoanID           string    `json:"loan_id"`
	Status           string    `json:"status"`
	InstallmentCount uint32    `json:"installment_count"`
	NextPaymentDue   time.Time `json:"next_payment_due"`
}

// Disburse moves an approved loan to active and materializes its repayment
// schedule. Whether the pool actually covers the approved amount is the
// officer's responsibility to verify off-chain; the encrypted total is not
// compared here.
func (u *Usecase) Disburse(ctx context.Context, officerID, loanID string) (*DisburseResult, error) {
	var out *DisburseResult
	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domainLoan.Loan) error {
		if err := guard.LoanOfficer(ctx, r, officerID); err != nil {
			return err
		}
		if l.Status != domainLoan.StatusApproved {
			return fmt.Errorf("%w: %s", domainLoan.ErrInvalidStatus, l.Status)
		}
		ev, err := r.Evaluations.GetByLoanID(ctx, l.ID)
		if err != nil {
			return err
		}
		p, err := r.Pools.GetByLoanID(ctx, l.ID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		p.IsFunded = true
		if err := r.Pools.Save(ctx, p); err != nil {
			return err
		}

		// term days integer-divided into 30-day installments, minimum one
		count := ev.ApprovedTermDays / 30
		if count == 0 {
			count = 1
		}
		countCipher, err := u.engine.Trivial(ctx, uint64(count), fhe.Bits32)
		if err != nil {
			return err
		}
		divisor, err := u.engine.Trivial(ctx, uint64(count), fhe.Bits64)
		if err != nil {
			return err
		}
		perInstallment, err := u.engine.Div(ctx, ev.TotalRepaymentCipher, divisor)
		if err != nil {
			return err
		}
		zero64, err := u.engine.Trivial(ctx, 0, fhe.Bits64)
		if err != nil {
			return err
		}
		zero32, err := u.engine.Trivial(ctx, 0, fhe.Bits32)
		if err != nil {
			return err
		}
		s := &schedule.RepaymentSchedule{
			LoanID:                  l.ID,
			InstallmentCount:        count,
			InstallmentCountCipher:  countCipher,
			InstallmentAmountCipher: perInstallment,
			TotalPaidCipher:         zero64,
			MissedPaymentsCipher:    zero32,
			RemainingBalanceCipher:  ev.TotalRepaymentCipher,
			NextPaymentDue:          now.Add(schedule.InstallmentInterval),
		}
		if err := r.Schedules.Create(ctx, s); err != nil {
			return err
		}

		l.DisbursedAt = &now
		u.transition(ctx, l, domainLoan.StatusDisbursed, now)
		u.transition(ctx, l, domainLoan.StatusActive, now)
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}

		if err := u.creditBorrowed(ctx, r, l.BorrowerID, ev.ApprovedAmountCipher, now); err != nil {
			return err
		}

		m, err := r.Stats.Get(ctx)
		if err != nil {
			return err
		}
		m.Issued++
		if m.VolumeProcessedCipher, err = fhe.EnsureZero(ctx, u.engine, m.VolumeProcessedCipher, fhe.Bits64); err != nil {
			return err
		}
		if m.VolumeProcessedCipher, err = u.engine.Add(ctx, m.VolumeProcessedCipher, ev.ApprovedAmountCipher); err != nil {
			return err
		}
		if err := r.Stats.Save(ctx, m); err != nil {
			return err
		}

		u.metrics.LoansIssued.Inc()
		out = &DisburseResult{
			LoanID:           l.LoanID,
			Status:           string(l.Status),
			InstallmentCount: count,
			NextPaymentDue:   s.NextPaymentDue,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (u *Usecase) creditBorrowed(ctx context.Context, r uow.Repos, borrowerID string, amount fhe.Handle, now time.Time) error {
	p, err := r.Profiles.GetBorrower(ctx, borrowerID)
	if err != nil {
		return err
	}
	p.Touch(now)
	if p.TotalBorrowedCipher, err = fhe.EnsureZero(ctx, u.engine, p.TotalBorrowedCipher, fhe.Bits64); err != nil {
		return err
	}
	if p.TotalBorrowedCipher, err = u.engine.Add(ctx, p.TotalBorrowedCipher, amount); err != nil {
		return err
	}
	return r.Profiles.SaveBorrower(ctx, p)
}

// DistributeInterest pro-rates the pool's accumulated interest across the
// contributing lenders, each share computed as encrypted
// totalInterest * contribution / totalPooled.
func (u *Usecase) DistributeInterest(ctx context.Context, officerID, loanID string) (*PoolDTO, error) {
	var dto *PoolDTO
	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domainLoan.Loan) error {
		if err := guard.LoanOfficer(ctx, r, officerID); err != nil {
			return err
		}
		if l.Status != domainLoan.StatusCompleted {
			return fmt.Errorf("%w: %s", domainLoan.ErrInvalidStatus, l.Status)
		}
		p, err := r.Pools.GetByLoanID(ctx, l.ID)
		if err != nil {
			return err
		}
		if p.IsDistributed {
			return pool.ErrAlreadyDistributed
		}
		contributions, err := r.Pools.ListContributions(ctx, l.ID)
		if err != nil {
			return err
		}
		if len(contributions) == 0 {
			return pool.ErrNothingToDistribute
		}

		for i := range contributions {
			c := &contributions[i]
			scaled, err := u.engine.Mul(ctx, p.TotalInterestCipher, c.Cipher)
			if err != nil {
				return err
			}
			share, err := u.engine.Div(ctx, scaled, p.TotalPooledCipher)
			if err != nil {
				return err
			}
			if err := u.engine.Grant(ctx, c.LenderID, share); err != nil {
				return err
			}
			if err := u.creditInterest(ctx, r, c.LenderID, share); err != nil {
				return err
			}
		}

		p.IsDistributed = true
		if err := r.Pools.Save(ctx, p); err != nil {
			return err
		}
		dto = &PoolDTO{LoanID: l.LoanID, LenderCount: p.LenderCount, IsFunded: p.IsFunded, IsDistributed: p.IsDistributed}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

func (u *Usecase) creditInterest(ctx context.Context, r uow.Repos, lenderID string, share fhe.Handle) error {
	p, err := r.Profiles.GetLender(ctx, lenderID)
	if err != nil {
		return err
	}
	if p.InterestEarnedCipher, err = fhe.EnsureZero(ctx, u.engine, p.InterestEarnedCipher, fhe.Bits64); err != nil {
		return err
	}
	if p.InterestEarnedCipher, err = u.engine.Add(ctx, p.InterestEarnedCipher, share); err != nil {
		return err
	}
	return r.Profiles.SaveLender(ctx, p)
}

func (u *Usecase) GetPool(ctx context.Context, loanID string) (*PoolDTO, error) {
	var dto *PoolDTO
	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domainLoan.Loan) error {
		p, err := r.Pools.GetByLoanID(ctx, l.ID)
		if err != nil {
			return err
		}
		dto = &PoolDTO{LoanID: l.LoanID, LenderCount: p.LenderCount, IsFunded: p.IsFunded, IsDistributed: p.IsDistributed}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

func (u *Usecase) transition(ctx context.Context, l *domainLoan.Loan, to domainLoan.Status, at time.Time) {
	from := l.Status
	l.SetStatus(to, at)
	u.notifier.LoanStatusChanged(ctx, notify.StatusChange{
		LoanID: l.LoanID,
		From:   string(from),
		To:     string(to),
		At:     at,
	})
}
