package evaluation

import (
	"errors"
	"time"

	"microloan-bazaar/internal/fhe"
)

type RiskTier string

const (
	TierMinimal  RiskTier = "minimal"
	TierLow      RiskTier = "low"
	TierModerate RiskTier = "moderate"
	TierHigh     RiskTier = "high"
	TierVeryHigh RiskTier = "very_high"
	TierRejected RiskTier = "rejected"
)

func ParseRiskTier(s string) (RiskTier, error) {
	switch t := RiskTier(s); t {
	case TierMinimal, TierLow, TierModerate, TierHigh, TierVeryHigh, TierRejected:
		return t, nil
	}
	return "", ErrInvalidRiskTier
}

// Ordinal is the wire encoding of a tier inside a ciphertext.
func (t RiskTier) Ordinal() uint64 {
	switch t {
	case TierMinimal:
		return 0
	case TierLow:
		return 1
	case TierModerate:
		return 2
	case TierHigh:
		return 3
	case TierVeryHigh:
		return 4
	default:
		return 5
	}
}

var (
	ErrNotFound        = errors.New("evaluation not found")
	ErrInvalidRiskTier = errors.New("invalid risk tier")
	ErrAlreadyComplete = errors.New("evaluation already complete")
)

// Evaluation is 1:1 with a loan. The cipher columns are filled at request
// time (adjusted score) and completion time (pricing); the plaintext shadow
// is meaningless until IsDecrypted and immutable afterwards.
type Evaluation struct {
	ID     uint64 `gorm:"primaryKey;column:id" json:"-"`
	LoanID uint64 `gorm:"column:loan_id;not null;uniqueIndex:ux_evaluations_loan" json:"-"`

	AdjustedScoreCipher  fhe.Handle `gorm:"size:64;column:adjusted_score_cipher" json:"-"`
	RiskTierCipher       fhe.Handle `gorm:"size:64;column:risk_tier_cipher" json:"-"`
	ApprovedAmountCipher fhe.Handle `gorm:"size:64;column:approved_amount_cipher" json:"-"`
	InterestRateCipher   fhe.Handle `gorm:"size:64;column:interest_rate_cipher" json:"-"`
	ApprovedTermCipher   fhe.Handle `gorm:"size:64;column:approved_term_cipher" json:"-"`
	TotalRepaymentCipher fhe.Handle `gorm:"size:64;column:total_repayment_cipher" json:"-"`

	// Decrypted shadow, populated by the completion transaction.
	CreditScore      uint32   `json:"credit_score"`
	RiskTier         RiskTier `gorm:"size:16" json:"risk_tier"`
	ApprovedAmount   uint64   `json:"approved_amount"`
	InterestRateBps  uint32   `json:"interest_rate_bps"`
	ApprovedTermDays uint32   `json:"approved_term_days"`
	TotalRepayment   uint64   `json:"total_repayment"`

	// RequestID correlates the adjusted-score decryption request with the
	// off-chain oracle's eventual response.
	RequestID   string `gorm:"size:36;column:request_id" json:"request_id"`
	IsComplete  bool   `json:"is_complete"`
	IsDecrypted bool   `json:"is_decrypted"`

	EvaluatedBy string    `gorm:"size:32" json:"evaluated_by"`
	EvaluatedAt time.Time `json:"evaluated_at"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"-"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"-"`
}

func (Evaluation) TableName() string { return "evaluations" }
