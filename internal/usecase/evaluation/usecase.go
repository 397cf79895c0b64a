package evaluation

import (
	"context"
	"fmt"
	"time"

	domainEval "microloan-bazaar/internal/domain/evaluation"
	domainLoan "microloan-bazaar/internal/domain/loan"
	"microloan-bazaar/internal/domain/pool"
	"microloan-bazaar/internal/domain/uow"
	"microloan-bazaar/internal/fhe"
	"microloan-bazaar/internal/metrics"
	"microloan-bazaar/internal/notify"
	"microloan-bazaar/internal/usecase/guard"
)

// Scoring constants: both bonuses and the per-default penalty are applied
// inside the encrypted domain only.
const (
	communityBonusThreshold = 7
	communityBonus          = 50
	historyBonusThreshold   = 10
	historyBonus            = 30
	defaultPenalty          = 100
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

type RequestResult struct {
	LoanID      string `json:"loan_id"`
	RequestID   string `json:"request_id"`
	EvaluatedBy string `json:"evaluated_by"`
}

// Request computes the adjusted credit score over ciphertexts, grants the
// ledger and the requesting analyst decrypt access, and asks the oracle for
// the plaintext. The loan moves submitted -> credit_check -> risk_assessment
// and stays frozen there until Complete arrives as a separate transaction.
func (u *Usecase) Request(ctx context.Context, analystID, loanID string) (*RequestResult, error) {
	var out *RequestResult
	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domainLoan.Loan) error {
		if err := guard.CreditAnalyst(ctx, r, analystID); err != nil {
			return err
		}
		if l.Status != domainLoan.StatusSubmitted {
			return fmt.Errorf("%w: %s", domainLoan.ErrInvalidStatus, l.Status)
		}

		adjusted, err := u.adjustedScore(ctx, l)
		if err != nil {
			return err
		}
		if err := u.engine.Grant(ctx, fhe.LedgerPrincipal, adjusted); err != nil {
			return err
		}
		if err := u.engine.Grant(ctx, analystID, adjusted); err != nil {
			return err
		}
		requestID, err := u.engine.RequestDecryption(ctx, []fhe.Handle{adjusted})
		if err != nil {
			return err
		}

		ev := &domainEval.Evaluation{
			LoanID:              l.ID,
			AdjustedScoreCipher: adjusted,
			RequestID:           requestID,
			EvaluatedBy:         analystID,
		}
		if err := r.Evaluations.Create(ctx, ev); err != nil {
			return err
		}

		now := time.Now().UTC()
		u.transition(ctx, l, domainLoan.StatusCreditCheck, now)
		u.transition(ctx, l, domainLoan.StatusRiskAssessment, now)
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}

		out = &RequestResult{LoanID: l.LoanID, RequestID: requestID, EvaluatedBy: analystID}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// adjustedScore = creditScore
//   - communityScore >= 7 ? +50 : +0
//   - paymentHistory >= 10 ? +30 : +0
//   - pastDefaults * 100 (clamped so the euint32 cannot underflow)
//
// Every comparison and branch runs through the engine; no plaintext is
// inspected anywhere along the way.
func (u *Usecase) adjustedScore(ctx context.Context, l *domainLoan.Loan) (fhe.Handle, error) {
	eng := u.engine

	communityMin, err := eng.Trivial(ctx, communityBonusThreshold, fhe.Bits8)
	if err != nil {
		return "", err
	}
	hasCommunityBonus, err := eng.CompareGE(ctx, l.CommunityScoreCipher, communityMin)
	if err != nil {
		return "", err
	}
	communityAdd, err := eng.Trivial(ctx, communityBonus, fhe.Bits32)
	if err != nil {
		return "", err
	}
	zero32, err := eng.Trivial(ctx, 0, fhe.Bits32)
	if err != nil {
		return "", err
	}
	bonus1, err := eng.Select(ctx, hasCommunityBonus, communityAdd, zero32)
	if err != nil {
		return "", err
	}

	historyMin, err := eng.Trivial(ctx, historyBonusThreshold, fhe.Bits16)
	if err != nil {
		return "", err
	}
	hasHistoryBonus, err := eng.CompareGE(ctx, l.PaymentHistoryCipher, historyMin)
	if err != nil {
		return "", err
	}
	historyAdd, err := eng.Trivial(ctx, historyBonus, fhe.Bits32)
	if err != nil {
		return "", err
	}
	bonus2, err := eng.Select(ctx, hasHistoryBonus, historyAdd, zero32)
	if err != nil {
		return "", err
	}

	sum, err := eng.Add(ctx, l.CreditScoreCipher, bonus1)
	if err != nil {
		return "", err
	}
	sum, err = eng.Add(ctx, sum, bonus2)
	if err != nil {
		return "", err
	}

	perDefault, err := eng.Trivial(ctx, defaultPenalty, fhe.Bits32)
	if err != nil {
		return "", err
	}
	penalty, err := eng.Mul(ctx, l.PastDefaultsCipher, perDefault)
	if err != nil {
		return "", err
	}

	// clamp at zero: adjusted = sum >= penalty ? sum - penalty : 0
	aboveFloor, err := eng.CompareGE(ctx, sum, penalty)
	if err != nil {
		return "", err
	}
	diff, err := eng.Sub(ctx, sum, penalty)
	if err != nil {
		return "", err
	}
	return eng.Select(ctx, aboveFloor, diff, zero32)
}

// CompleteInput is the analyst-supplied plaintext outcome. The thresholding
// and pricing decision happens off-chain against the decrypted adjusted
// score; this core only records it and applies the approve/reject policy.
type CompleteInput struct {
	CreditScore      uint32 `json:"credit_score"`
	RiskTier         string `json:"risk_tier"`
	ApprovedAmount   uint64 `json:"approved_amount"`
	InterestRateBps  uint32 `json:"interest_rate_bps"`
	ApprovedTermDays uint32 `json:"approved_term_days"`
	TotalRepayment   uint64 `json:"total_repayment"`
}

type EvaluationDTO struct {
	LoanID           string    `json:"loan_id"`
	CreditScore      uint32    `json:"credit_score"`
	RiskTier         string    `json:"risk_tier"`
	ApprovedAmount   uint64    `json:"approved_amount"`
	InterestRateBps  uint32    `json:"interest_rate_bps"`
	ApprovedTermDays uint32    `json:"approved_term_days"`
	TotalRepayment   uint64    `json:"total_repayment"`
	RequestID        string    `json:"request_id"`
	IsComplete       bool      `json:"is_complete"`
	IsDecrypted      bool      `json:"is_decrypted"`
	EvaluatedBy      string    `json:"evaluated_by"`
	EvaluatedAt      time.Time `json:"evaluated_at"`
}

// Complete records the evaluation outcome. Rejection (tier rejected or a
// zero approved amount) is terminal; anything else approves the loan and
// opens its funding pool.
func (u *Usecase) Complete(ctx context.Context, analystID, loanID string, in CompleteInput) (*EvaluationDTO, error) {
	tier, err := domainEval.ParseRiskTier(in.RiskTier)
	if err != nil {
		return nil, err
	}

	var dto *EvaluationDTO
	err = u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domainLoan.Loan) error {
		if err := guard.CreditAnalyst(ctx, r, analystID); err != nil {
			return err
		}
		if l.Status != domainLoan.StatusRiskAssessment {
			return fmt.Errorf("%w: %s", domainLoan.ErrInvalidStatus, l.Status)
		}
		ev, err := r.Evaluations.GetByLoanID(ctx, l.ID)
		if err != nil {
			return err
		}
		if ev.IsComplete {
			return domainEval.ErrAlreadyComplete
		}

		now := time.Now().UTC()
		if err := u.sealResult(ctx, ev, tier, in, analystID, now); err != nil {
			return err
		}
		if err := r.Evaluations.Save(ctx, ev); err != nil {
			return err
		}

		rejected := tier == domainEval.TierRejected || in.ApprovedAmount == 0
		if rejected {
			u.transition(ctx, l, domainLoan.StatusRejected, now)
			m, err := r.Stats.Get(ctx)
			if err != nil {
				return err
			}
			m.Rejected++
			if err := r.Stats.Save(ctx, m); err != nil {
				return err
			}
			u.metrics.LoansRejected.Inc()
		} else {
			l.ApprovedAt = &now
			u.transition(ctx, l, domainLoan.StatusApproved, now)
			zero, err := u.engine.Trivial(ctx, 0, fhe.Bits64)
			if err != nil {
				return err
			}
			if err := r.Pools.Create(ctx, &pool.FundingPool{
				LoanID:              l.ID,
				TotalPooledCipher:   zero,
				TotalInterestCipher: zero,
			}); err != nil {
				return err
			}
			u.metrics.LoansApproved.Inc()
		}
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}

		dto = toDTO(l.LoanID, ev)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// sealResult writes both the ciphertext copies (trivial encryptions of the
// recorded outcome, so later encrypted arithmetic can use them) and the
// decrypted shadow. Once IsDecrypted flips true these fields never change.
func (u *Usecase) sealResult(ctx context.Context, ev *domainEval.Evaluation, tier domainEval.RiskTier, in CompleteInput, analystID string, now time.Time) error {
	eng := u.engine
	var err error
	if ev.RiskTierCipher, err = eng.Trivial(ctx, tier.Ordinal(), fhe.Bits8); err != nil {
		return err
	}
	if ev.ApprovedAmountCipher, err = eng.Trivial(ctx, in.ApprovedAmount, fhe.Bits64); err != nil {
		return err
	}
	if ev.InterestRateCipher, err = eng.Trivial(ctx, uint64(in.InterestRateBps), fhe.Bits32); err != nil {
		return err
	}
	if ev.ApprovedTermCipher, err = eng.Trivial(ctx, uint64(in.ApprovedTermDays), fhe.Bits32); err != nil {
		return err
	}
	if ev.TotalRepaymentCipher, err = eng.Trivial(ctx, in.TotalRepayment, fhe.Bits64); err != nil {
		return err
	}

	ev.CreditScore = in.CreditScore
	ev.RiskTier = tier
	ev.ApprovedAmount = in.ApprovedAmount
	ev.InterestRateBps = in.InterestRateBps
	ev.ApprovedTermDays = in.ApprovedTermDays
	ev.TotalRepayment = in.TotalRepayment
	ev.IsComplete = true
	ev.IsDecrypted = true
	ev.EvaluatedBy = analystID
	ev.EvaluatedAt = now
	return nil
}

func (u *Usecase) Get(ctx context.Context, loanID string) (*EvaluationDTO, error) {
	var dto *EvaluationDTO
	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domainLoan.Loan) error {
		ev, err := r.Evaluations.GetByLoanID(ctx, l.ID)
		if err != nil {
			return err
		}
		dto = toDTO(l.LoanID, ev)
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

func toDTO(loanID string, ev *domainEval.Evaluation) *EvaluationDTO {
	dto := &EvaluationDTO{
		LoanID:      loanID,
		RequestID:   ev.RequestID,
		IsComplete:  ev.IsComplete,
		IsDecrypted: ev.IsDecrypted,
		EvaluatedBy: ev.EvaluatedBy,
		EvaluatedAt: ev.EvaluatedAt,
	}
	// The shadow is meaningless until the completion transaction decrypts
	// it; do not leak intermediate zero values as if they were results.
	if ev.IsDecrypted {
		dto.CreditScore = ev.CreditScore
		dto.RiskTier = string(ev.RiskTier)
		dto.ApprovedAmount = ev.ApprovedAmount
		dto.InterestRateBps = ev.InterestRateBps
		dto.ApprovedTermDays = ev.ApprovedTermDays
		dto.TotalRepayment = ev.TotalRepayment
	}
	return dto
}
