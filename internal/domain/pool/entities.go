package pool

import (
	"errors"
	"time"

	"microloan-bazaar/internal/fhe"
)

var (
	ErrNotFound            = errors.New("funding pool not found")
	ErrAlreadyDistributed  = errors.New("pool interest already distributed")
	ErrNothingToDistribute = errors.New("pool has no contributions")
)

// FundingPool accumulates encrypted lender contributions for one loan.
// LenderCount is deliberately plaintext (participation is public, amounts
// are not); the totals are homomorphic sums the core cannot inspect.
type FundingPool struct {
	ID     uint64 `gorm:"primaryKey;column:id" json:"-"`
	LoanID uint64 `gorm:"column:loan_id;not null;uniqueIndex:ux_pools_loan" json:"-"`

	LenderCount         uint32     `json:"lender_count"`
	TotalPooledCipher   fhe.Handle `gorm:"size:64;column:total_pooled_cipher" json:"-"`
	TotalInterestCipher fhe.Handle `gorm:"size:64;column:total_interest_cipher" json:"-"`

	IsFunded      bool `json:"is_funded"`
	IsDistributed bool `json:"is_distributed"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"-"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"-"`
}

func (FundingPool) TableName() string { return "funding_pools" }

// Contribution is one lender's running (encrypted) stake in one pool.
// A repeat contribution updates the row; it never duplicates it.
type Contribution struct {
	ID       uint64     `gorm:"primaryKey;column:id" json:"-"`
	LoanID   uint64     `gorm:"column:loan_id;not null;uniqueIndex:ux_contributions_loan_lender" json:"-"`
	LenderID string     `gorm:"size:32;uniqueIndex:ux_contributions_loan_lender" json:"lender_id"`
	Cipher   fhe.Handle `gorm:"size:64;column:amount_cipher" json:"-"`

	FirstContributedAt time.Time `json:"first_contributed_at"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"-"`
}

func (Contribution) TableName() string { return "pool_contributions" }
