package policy

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrInvalidBounds = errors.New("invalid policy bounds")

// Policy is the single global marketplace configuration row, replaced
// wholesale by the owner after validation.
type Policy struct {
	ID uint32 `gorm:"primaryKey;column:id" json:"-"`

	MinCreditScore     uint32 `json:"min_credit_score"`
	MaxInterestRateBps uint32 `json:"max_interest_rate_bps"`
	MinInterestRateBps uint32 `json:"min_interest_rate_bps"`
	MaxLoanAmount      uint64 `json:"max_loan_amount"`
	MinLoanAmount      uint64 `json:"min_loan_amount"`
	MaxLoanTermDays    uint32 `json:"max_loan_term_days"`
	MinLoanTermDays    uint32 `json:"min_loan_term_days"`

	DefaultGracePeriodDays   uint32 `json:"default_grace_period_days"`
	LatePaymentThresholdDays uint32 `json:"late_payment_threshold_days"`
	PlatformFeeBps           uint32 `json:"platform_fee_bps"`

	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Policy) TableName() string { return "marketplace_policies" }

// Default returns the marketplace launch bounds.
func Default() Policy {
	return Policy{
		ID:                       1,
		MinCreditScore:           550,
		MaxInterestRateBps:       3600,
		MinInterestRateBps:       500,
		MaxLoanAmount:            100_000,
		MinLoanAmount:            1_000,
		MaxLoanTermDays:          730,
		MinLoanTermDays:          30,
		DefaultGracePeriodDays:   15,
		LatePaymentThresholdDays: 3,
		PlatformFeeBps:           100,
	}
}

func (p Policy) Validate() error {
	if p.MinCreditScore == 0 {
		return fmt.Errorf("%w: credit score", ErrInvalidBounds)
	}
	if p.MinInterestRateBps == 0 || p.MaxInterestRateBps <= p.MinInterestRateBps {
		return fmt.Errorf("%w: interest rates", ErrInvalidBounds)
	}
	if p.MinLoanAmount == 0 || p.MaxLoanAmount <= p.MinLoanAmount {
		return fmt.Errorf("%w: loan amounts", ErrInvalidBounds)
	}
	if p.MinLoanTermDays == 0 || p.MaxLoanTermDays <= p.MinLoanTermDays {
		return fmt.Errorf("%w: loan terms", ErrInvalidBounds)
	}
	if p.DefaultGracePeriodDays == 0 {
		return fmt.Errorf("%w: grace period", ErrInvalidBounds)
	}
	if p.LatePaymentThresholdDays == 0 {
		return fmt.Errorf("%w: late payment threshold", ErrInvalidBounds)
	}
	if p.PlatformFeeBps > 10_000 {
		return fmt.Errorf("%w: platform fee", ErrInvalidBounds)
	}
	return nil
}

func (p Policy) GracePeriod() time.Duration {
	return time.Duration(p.DefaultGracePeriodDays) * 24 * time.Hour
}

func (p Policy) LateThreshold() time.Duration {
	return time.Duration(p.LatePaymentThresholdDays) * 24 * time.Hour
}

type Repository interface {
	Get(ctx context.Context) (*Policy, error)
	Save(ctx context.Context, p *Policy) error
}
