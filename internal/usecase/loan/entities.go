package loan

import (
	"time"

	"microloan-bazaar/internal/fhe"
)

// SubmitInput carries the seven client-encrypted application fields. Every
// ciphertext arrives with its own validity proof; all seven must verify
// before anything is written.
type SubmitInput struct {
	BorrowerID     string                 `json:"borrower_id"`
	Amount         fhe.ExternalCiphertext `json:"amount"`
	Term           fhe.ExternalCiphertext `json:"term"`
	CreditScore    fhe.ExternalCiphertext `json:"credit_score"`
	Revenue        fhe.ExternalCiphertext `json:"revenue"`
	PaymentHistory fhe.ExternalCiphertext `json:"payment_history"`
	PastDefaults   fhe.ExternalCiphertext `json:"past_defaults"`
	CommunityScore fhe.ExternalCiphertext `json:"community_score"`
	Purpose        string                 `json:"purpose"`
}

type LoanDTO struct {
	LoanID             string     `json:"loan_id"`
	BorrowerID         string     `json:"borrower_id"`
	Purpose            string     `json:"purpose"`
	Status             string     `json:"status"`
	SubmittedAt        time.Time  `json:"submitted_at"`
	ApprovedAt         *time.Time `json:"approved_at,omitempty"`
	DisbursedAt        *time.Time `json:"disbursed_at,omitempty"`
	LastStatusChangeAt time.Time  `json:"last_status_change_at"`
	StatusChangeCount  uint32     `json:"status_change_count"`
	IsActive           bool       `json:"is_active"`
}

type BorrowerProfileDTO struct {
	BorrowerID      string    `json:"borrower_id"`
	LoanCount       uint32    `json:"loan_count"`
	LoanIDs         []string  `json:"loan_ids"`
	FirstActivityAt time.Time `json:"first_activity_at"`
	LastActivityAt  time.Time `json:"last_activity_at"`
	ActivityCount   uint32    `json:"activity_count"`
}

type LenderProfileDTO struct {
	LenderID      string    `json:"lender_id"`
	FundedCount   uint32    `json:"funded_count"`
	FundedLoanIDs []string  `json:"funded_loan_ids"`
	FirstFundedAt time.Time `json:"first_funded_at"`
	LastFundedAt  time.Time `json:"last_funded_at"`
}

type MarketplaceStatsDTO struct {
	TotalLoans uint64 `json:"total_loans"`
	Issued     uint64 `json:"issued"`
	Completed  uint64 `json:"completed"`
	Defaulted  uint64 `json:"defaulted"`
	Rejected   uint64 `json:"rejected"`
}
