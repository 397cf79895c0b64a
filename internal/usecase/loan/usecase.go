package loan

import (
	"context"
	"errors"
	"fmt"
	"time"

	domainLoan "microloan-bazaar/internal/domain/loan"
	"microloan-bazaar/internal/domain/profile"
	"microloan-bazaar/internal/domain/uow"
	"microloan-bazaar/internal/fhe"
	"microloan-bazaar/internal/metrics"
	"microloan-bazaar/internal/notify"
	"microloan-bazaar/pkg/id"
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

// Submit verifies all seven ciphertext proofs, creates the loan in
// `submitted`, and creates or updates the borrower profile — one atomic
// transaction, nothing persists if any proof fails.
func (u *Usecase) Submit(ctx context.Context, in SubmitInput) (*LoanDTO, error) {
	if len(in.BorrowerID) != 32 {
		return nil, fmt.Errorf("invalid borrower id %q", in.BorrowerID)
	}
	purpose, err := domainLoan.ParsePurpose(in.Purpose)
	if err != nil {
		return nil, err
	}

	var dto *LoanDTO
	err = u.uow.WithinTx(ctx, func(r uow.Repos) error {
		now := time.Now().UTC()

		l := &domainLoan.Loan{
			LoanID:      id.NewID32(),
			BorrowerID:  in.BorrowerID,
			Purpose:     purpose,
			Status:      domainLoan.StatusDraft,
			SubmittedAt: now,
			IsActive:    true,
		}

		// Proofs first: an invalid one aborts before any mutation.
		type field struct {
			ext   fhe.ExternalCiphertext
			width fhe.Width
			dst   *fhe.Handle
		}
		fields := []field{
			{in.Amount, fhe.Bits64, &l.AmountCipher},
			{in.Term, fhe.Bits32, &l.TermCipher},
			{in.CreditScore, fhe.Bits32, &l.CreditScoreCipher},
			{in.Revenue, fhe.Bits32, &l.RevenueCipher},
			{in.PaymentHistory, fhe.Bits16, &l.PaymentHistoryCipher},
			{in.PastDefaults, fhe.Bits8, &l.PastDefaultsCipher},
			{in.CommunityScore, fhe.Bits8, &l.CommunityScoreCipher},
		}
		for _, f := range fields {
			h, err := u.engine.FromExternal(ctx, f.ext, f.width)
			if err != nil {
				return err
			}
			if err := u.engine.Grant(ctx, fhe.LedgerPrincipal, h); err != nil {
				return err
			}
			*f.dst = h
		}

		l.SetStatus(domainLoan.StatusSubmitted, now)
		if err := r.Loans.Create(ctx, l); err != nil {
			return err
		}

		if err := u.touchBorrower(ctx, r, in.BorrowerID, l.LoanID, now); err != nil {
			return err
		}

		m, err := r.Stats.Get(ctx)
		if err != nil {
			return err
		}
		m.TotalLoans++
		if err := r.Stats.Save(ctx, m); err != nil {
			return err
		}

		u.notifier.LoanStatusChanged(ctx, notify.StatusChange{
			LoanID: l.LoanID,
			From:   string(domainLoan.StatusDraft),
			To:     string(domainLoan.StatusSubmitted),
			At:     now,
		})
		u.metrics.LoansSubmitted.Inc()

		dto = toDTO(l)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

func (u *Usecase) touchBorrower(ctx context.Context, r uow.Repos, borrowerID, loanID string, now time.Time) error {
	p, err := r.Profiles.GetBorrower(ctx, borrowerID)
	switch {
	case errors.Is(err, profile.ErrNotFound):
		zero, terr := u.engine.Trivial(ctx, 0, fhe.Bits64)
		if terr != nil {
			return terr
		}
		p = &profile.BorrowerProfile{
			BorrowerID:          borrowerID,
			TotalBorrowedCipher: zero,
			TotalRepaidCipher:   zero,
		}
		p.Touch(now)
		p.LoanCount = 1
		p.LoanIDs = []string{loanID}
		return r.Profiles.CreateBorrower(ctx, p)
	case err != nil:
		return err
	}
	p.Touch(now)
	p.LoanCount++
	p.LoanIDs = append(p.LoanIDs, loanID)
	return r.Profiles.SaveBorrower(ctx, p)
}

func (u *Usecase) Get(ctx context.Context, loanID string) (*LoanDTO, error) {
	var dto *LoanDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		l, err := r.Loans.GetByLoanID(ctx, loanID)
		if err != nil {
			return err
		}
		dto = toDTO(l)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

func (u *Usecase) GetBorrowerProfile(ctx context.Context, borrowerID string) (*BorrowerProfileDTO, error) {
	var dto *BorrowerProfileDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		p, err := r.Profiles.GetBorrower(ctx, borrowerID)
		if err != nil {
			return err
		}
		dto = &BorrowerProfileDTO{
			BorrowerID:      p.BorrowerID,
			LoanCount:       p.LoanCount,
			LoanIDs:         p.LoanIDs,
			FirstActivityAt: p.FirstActivityAt,
			LastActivityAt:  p.LastActivityAt,
			ActivityCount:   p.ActivityCount,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

func (u *Usecase) GetLenderProfile(ctx context.Context, lenderID string) (*LenderProfileDTO, error) {
	var dto *LenderProfileDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		p, err := r.Profiles.GetLender(ctx, lenderID)
		if err != nil {
			return err
		}
		dto = &LenderProfileDTO{
			LenderID:      p.LenderID,
			FundedCount:   p.FundedCount,
			FundedLoanIDs: p.FundedLoanIDs,
			FirstFundedAt: p.FirstFundedAt,
			LastFundedAt:  p.LastFundedAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

func (u *Usecase) GetMarketplaceStats(ctx context.Context) (*MarketplaceStatsDTO, error) {
	var dto *MarketplaceStatsDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		m, err := r.Stats.Get(ctx)
		if err != nil {
			return err
		}
		dto = &MarketplaceStatsDTO{
			TotalLoans: m.TotalLoans,
			Issued:     m.Issued,
			Completed:  m.Completed,
			Defaulted:  m.Defaulted,
			Rejected:   m.Rejected,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

func toDTO(l *domainLoan.Loan) *LoanDTO {
	return &LoanDTO{
		LoanID:             l.LoanID,
		BorrowerID:         l.BorrowerID,
		Purpose:            string(l.Purpose),
		Status:             string(l.Status),
		SubmittedAt:        l.SubmittedAt,
		ApprovedAt:         l.ApprovedAt,
		DisbursedAt:        l.DisbursedAt,
		LastStatusChangeAt: l.LastStatusChangeAt,
		StatusChangeCount:  l.StatusChangeCount,
		IsActive:           l.IsActive,
	}
}
