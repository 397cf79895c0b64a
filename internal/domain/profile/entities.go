package profile

import (
	"errors"
	"time"

	"microloan-bazaar/internal/fhe"
)

var ErrNotFound = errors.New("profile not found")

// BorrowerProfile aggregates one borrower's activity across loans. Cipher
// columns carry the confidential totals; the plaintext bookkeeping is the
// activity trail read projections rely on. Created lazily on first
// submission, never deleted.
type BorrowerProfile struct {
	ID         uint64 `gorm:"primaryKey;column:id" json:"-"`
	BorrowerID string `gorm:"size:32;uniqueIndex:ux_borrower_profiles_id" json:"borrower_id"`

	TotalBorrowedCipher   fhe.Handle `gorm:"size:64;column:total_borrowed_cipher" json:"-"`
	TotalRepaidCipher     fhe.Handle `gorm:"size:64;column:total_repaid_cipher" json:"-"`
	ReputationScoreCipher fhe.Handle `gorm:"size:64;column:reputation_score_cipher" json:"-"`

	LoanCount uint32   `json:"loan_count"`
	LoanIDs   []string `gorm:"serializer:json;column:loan_ids" json:"loan_ids"`

	FirstActivityAt time.Time `json:"first_activity_at"`
	LastActivityAt  time.Time `json:"last_activity_at"`
	ActivityCount   uint32    `json:"activity_count"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"-"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"-"`
}

func (BorrowerProfile) TableName() string { return "borrower_profiles" }

// Touch records one more interaction for an existing or fresh profile.
func (p *BorrowerProfile) Touch(at time.Time) {
	if p.FirstActivityAt.IsZero() {
		p.FirstActivityAt = at
	}
	p.LastActivityAt = at
	p.ActivityCount++
}

// LenderProfile mirrors BorrowerProfile for the funding side.
type LenderProfile struct {
	ID       uint64 `gorm:"primaryKey;column:id" json:"-"`
	LenderID string `gorm:"size:32;uniqueIndex:ux_lender_profiles_id" json:"lender_id"`

	TotalFundedCipher    fhe.Handle `gorm:"size:64;column:total_funded_cipher" json:"-"`
	InterestEarnedCipher fhe.Handle `gorm:"size:64;column:interest_earned_cipher" json:"-"`

	FundedCount   uint32   `json:"funded_count"`
	FundedLoanIDs []string `gorm:"serializer:json;column:funded_loan_ids" json:"funded_loan_ids"`

	FirstFundedAt time.Time `json:"first_funded_at"`
	LastFundedAt  time.Time `json:"last_funded_at"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"-"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"-"`
}

func (LenderProfile) TableName() string { return "lender_profiles" }

func (p *LenderProfile) Touch(at time.Time) {
	if p.FirstFundedAt.IsZero() {
		p.FirstFundedAt = at
	}
	p.LastFundedAt = at
}
