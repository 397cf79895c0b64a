package repayment

import (
	"context"
	"fmt"
	"time"

	domainLoan "microloan-bazaar/internal/domain/loan"
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

	// Now is swappable so grace-period tests can travel in time.
	Now func() time.Time
}

func NewUsecase(u uow.UnitOfWork, e fhe.Engine, n notify.Notifier, m *metrics.Metrics) *Usecase {
	return &Usecase{uow: u, engine: e, notifier: n, metrics: m, Now: func() time.Time { return time.Now().UTC() }}
}

type PaymentDTO struct {
	LoanID           string    `json:"loan_id"`
	Seq              uint32    `json:"seq"`
	PaidAt           time.Time `json:"paid_at"`
	IsLate           bool      `json:"is_late"`
	DaysLate         uint32    `json:"days_late"`
	InstallmentsPaid uint32    `json:"installments_paid"`
	InstallmentCount uint32    `json:"installment_count"`
	LoanStatus       string    `json:"loan_status"`
}

// MakePayment records one borrower installment. Amounts move only through
// encrypted adds/subs; the plaintext installments-paid shadow is what decides
// repaying vs completed, the one branch the design allows on plaintext.
func (u *Usecase) MakePayment(ctx context.Context, borrowerID, loanID string, amount fhe.ExternalCiphertext) (*PaymentDTO, error) {
	var dto *PaymentDTO
	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domainLoan.Loan) error {
		if l.BorrowerID != borrowerID {
			return domainLoan.ErrNotBorrower
		}
		if l.Status != domainLoan.StatusActive && l.Status != domainLoan.StatusRepaying {
			return fmt.Errorf("%w: %s", domainLoan.ErrInvalidStatus, l.Status)
		}

		s, err := r.Schedules.GetByLoanID(ctx, l.ID)
		if err != nil {
			return err
		}
		if s.IsComplete || s.IsDefaulted {
			return schedule.ErrScheduleTerminated
		}
		pol, err := r.Policies.Get(ctx)
		if err != nil {
			return err
		}
		ev, err := r.Evaluations.GetByLoanID(ctx, l.ID)
		if err != nil {
			return err
		}

		amt, err := u.engine.FromExternal(ctx, amount, fhe.Bits64)
		if err != nil {
			return err
		}
		if err := u.engine.Grant(ctx, fhe.LedgerPrincipal, amt); err != nil {
			return err
		}

		now := u.Now()
		// late only past the threshold, but daysLate counts from the due
		// date itself, so the first late payment reports >= threshold days
		isLate := now.After(s.NextPaymentDue.Add(pol.LateThreshold()))
		var daysLate uint32
		if isLate {
			daysLate = uint32(now.Sub(s.NextPaymentDue) / (24 * time.Hour))
		}

		seq := s.InstallmentsPaid + 1
		seqCipher, err := u.engine.Trivial(ctx, uint64(seq), fhe.Bits32)
		if err != nil {
			return err
		}
		interest, principal, err := u.splitPayment(ctx, amt, ev.InterestRateBps)
		if err != nil {
			return err
		}
		if err := r.Schedules.AppendPayment(ctx, &schedule.PaymentRecord{
			LoanID:                  l.ID,
			Seq:                     seq,
			AmountCipher:            amt,
			InstallmentNumberCipher: seqCipher,
			PrincipalCipher:         principal,
			InterestCipher:          interest,
			PaidAt:                  now,
			IsLate:                  isLate,
			DaysLate:                daysLate,
		}); err != nil {
			return err
		}

		if s.TotalPaidCipher, err = u.engine.Add(ctx, s.TotalPaidCipher, amt); err != nil {
			return err
		}
		if s.RemainingBalanceCipher, err = u.subFloorZero(ctx, s.RemainingBalanceCipher, amt); err != nil {
			return err
		}
		s.InstallmentsPaid = seq
		s.NextPaymentDue = s.NextPaymentDue.Add(schedule.InstallmentInterval)
		s.LastPaymentAt = &now

		// interest flows into the pool for later distribution
		p, err := r.Pools.GetByLoanID(ctx, l.ID)
		if err != nil {
			return err
		}
		if p.TotalInterestCipher, err = u.engine.Add(ctx, p.TotalInterestCipher, interest); err != nil {
			return err
		}
		if err := r.Pools.Save(ctx, p); err != nil {
			return err
		}

		if s.InstallmentsPaid >= s.InstallmentCount {
			s.IsComplete = true
			u.transition(ctx, l, domainLoan.StatusCompleted, now)
			if err := u.creditRepaid(ctx, r, l.BorrowerID, s.TotalPaidCipher, now); err != nil {
				return err
			}
			m, err := r.Stats.Get(ctx)
			if err != nil {
				return err
			}
			m.Completed++
			if m.InterestCollectedCipher, err = fhe.EnsureZero(ctx, u.engine, m.InterestCollectedCipher, fhe.Bits64); err != nil {
				return err
			}
			if m.InterestCollectedCipher, err = u.engine.Add(ctx, m.InterestCollectedCipher, p.TotalInterestCipher); err != nil {
				return err
			}
			if err := r.Stats.Save(ctx, m); err != nil {
				return err
			}
			u.metrics.LoansCompleted.Inc()
		} else if l.Status == domainLoan.StatusActive {
			u.transition(ctx, l, domainLoan.StatusRepaying, now)
		}

		if err := r.Schedules.Save(ctx, s); err != nil {
			return err
		}
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}

		u.metrics.Payments.Inc()
		dto = &PaymentDTO{
			LoanID:           l.LoanID,
			Seq:              seq,
			PaidAt:           now,
			IsLate:           isLate,
			DaysLate:         daysLate,
			InstallmentsPaid: s.InstallmentsPaid,
			InstallmentCount: s.InstallmentCount,
			LoanStatus:       string(l.Status),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// splitPayment carves the interest portion out of a payment:
// interest = amount * rate / (10000 + rate), principal = amount - interest.
// The rate is public (it was decrypted at evaluation completion); the
// amounts never are.
func (u *Usecase) splitPayment(ctx context.Context, amt fhe.Handle, rateBps uint32) (interest, principal fhe.Handle, err error) {
	rate, err := u.engine.Trivial(ctx, uint64(rateBps), fhe.Bits64)
	if err != nil {
		return "", "", err
	}
	scale, err := u.engine.Trivial(ctx, uint64(10_000+rateBps), fhe.Bits64)
	if err != nil {
		return "", "", err
	}
	scaled, err := u.engine.Mul(ctx, amt, rate)
	if err != nil {
		return "", "", err
	}
	if interest, err = u.engine.Div(ctx, scaled, scale); err != nil {
		return "", "", err
	}
	if principal, err = u.engine.Sub(ctx, amt, interest); err != nil {
		return "", "", err
	}
	return interest, principal, nil
}

// subFloorZero computes a-b clamped at zero without ever seeing either value.
func (u *Usecase) subFloorZero(ctx context.Context, a, b fhe.Handle) (fhe.Handle, error) {
	covered, err := u.engine.CompareGE(ctx, a, b)
	if err != nil {
		return "", err
	}
	diff, err := u.engine.Sub(ctx, a, b)
	if err != nil {
		return "", err
	}
	zero, err := u.engine.Trivial(ctx, 0, fhe.Bits64)
	if err != nil {
		return "", err
	}
	return u.engine.Select(ctx, covered, diff, zero)
}

func (u *Usecase) creditRepaid(ctx context.Context, r uow.Repos, borrowerID string, totalPaid fhe.Handle, now time.Time) error {
	p, err := r.Profiles.GetBorrower(ctx, borrowerID)
	if err != nil {
		return err
	}
	p.Touch(now)
	if p.TotalRepaidCipher, err = fhe.EnsureZero(ctx, u.engine, p.TotalRepaidCipher, fhe.Bits64); err != nil {
		return err
	}
	if p.TotalRepaidCipher, err = u.engine.Add(ctx, p.TotalRepaidCipher, totalPaid); err != nil {
		return err
	}
	return r.Profiles.SaveBorrower(ctx, p)
}

type DefaultResult struct {
	LoanID      string    `json:"loan_id"`
	Status      string    `json:"status"`
	DefaultedAt time.Time `json:"defaulted_at"`
}

// MarkAsDefaulted declares a default once the grace period after the missed
// due date has fully elapsed. Before that the attempt fails with a timing
// error and nothing changes.
func (u *Usecase) MarkAsDefaulted(ctx context.Context, agentID, loanID string) (*DefaultResult, error) {
	var out *DefaultResult
	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domainLoan.Loan) error {
		if err := guard.CollectionAgent(ctx, r, agentID); err != nil {
			return err
		}
		if l.Status != domainLoan.StatusActive && l.Status != domainLoan.StatusRepaying {
			return fmt.Errorf("%w: %s", domainLoan.ErrInvalidStatus, l.Status)
		}
		s, err := r.Schedules.GetByLoanID(ctx, l.ID)
		if err != nil {
			return err
		}
		pol, err := r.Policies.Get(ctx)
		if err != nil {
			return err
		}

		now := u.Now()
		if !s.DefaultEligible(now, pol.GracePeriod()) {
			return schedule.ErrGracePeriodActive
		}

		one, err := u.engine.Trivial(ctx, 1, fhe.Bits32)
		if err != nil {
			return err
		}
		if s.MissedPaymentsCipher, err = u.engine.Add(ctx, s.MissedPaymentsCipher, one); err != nil {
			return err
		}
		s.IsDefaulted = true
		if err := r.Schedules.Save(ctx, s); err != nil {
			return err
		}

		u.transition(ctx, l, domainLoan.StatusDefaulted, now)
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}

		m, err := r.Stats.Get(ctx)
		if err != nil {
			return err
		}
		m.Defaulted++
		if err := r.Stats.Save(ctx, m); err != nil {
			return err
		}

		u.metrics.LoansDefaulted.Inc()
		out = &DefaultResult{LoanID: l.LoanID, Status: string(l.Status), DefaultedAt: now}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

type ScheduleDTO struct {
	LoanID           string     `json:"loan_id"`
	InstallmentCount uint32     `json:"installment_count"`
	InstallmentsPaid uint32     `json:"installments_paid"`
	NextPaymentDue   time.Time  `json:"next_payment_due"`
	LastPaymentAt    *time.Time `json:"last_payment_at,omitempty"`
	IsComplete       bool       `json:"is_complete"`
	IsDefaulted      bool       `json:"is_defaulted"`
	PaymentCount     int64      `json:"payment_count"`
}

func (u *Usecase) GetSchedule(ctx context.Context, loanID string) (*ScheduleDTO, error) {
	var dto *ScheduleDTO
	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domainLoan.Loan) error {
		s, err := r.Schedules.GetByLoanID(ctx, l.ID)
		if err != nil {
			return err
		}
		n, err := r.Schedules.CountPayments(ctx, l.ID)
		if err != nil {
			return err
		}
		dto = &ScheduleDTO{
			LoanID:           l.LoanID,
			InstallmentCount: s.InstallmentCount,
			InstallmentsPaid: s.InstallmentsPaid,
			NextPaymentDue:   s.NextPaymentDue,
			LastPaymentAt:    s.LastPaymentAt,
			IsComplete:       s.IsComplete,
			IsDefaulted:      s.IsDefaulted,
			PaymentCount:     n,
		}
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
