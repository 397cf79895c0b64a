package loan

import (
	"errors"
	"time"

	"microloan-bazaar/internal/fhe"
)

type Status string

const (
	StatusDraft          Status = "draft"
	StatusSubmitted      Status = "submitted"
	StatusCreditCheck    Status = "credit_check"
	StatusRiskAssessment Status = "risk_assessment"
	StatusApproved       Status = "approved"
	StatusDisbursed      Status = "disbursed"
	StatusActive         Status = "active"
	StatusRepaying       Status = "repaying"
	StatusCompleted      Status = "completed"
	StatusDefaulted      Status = "defaulted"
	StatusRejected       Status = "rejected"
)

// Terminal reports whether a loan can never leave this status again.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusDefaulted || s == StatusRejected
}

type Purpose string

const (
	PurposeWorkingCapital Purpose = "working_capital"
	PurposeInventory      Purpose = "inventory"
	PurposeEquipment      Purpose = "equipment"
	PurposeExpansion      Purpose = "expansion"
	PurposeEmergency      Purpose = "emergency"
)

func ParsePurpose(s string) (Purpose, error) {
	switch p := Purpose(s); p {
	case PurposeWorkingCapital, PurposeInventory, PurposeEquipment, PurposeExpansion, PurposeEmergency:
		return p, nil
	}
	return "", ErrInvalidPurpose
}

var (
	ErrNotFound       = errors.New("loan not found")
	ErrInvalidStatus  = errors.New("invalid loan status for operation")
	ErrInvalidPurpose = errors.New("invalid loan purpose")
	ErrNotBorrower    = errors.New("caller is not the loan's borrower")
)

type Loan struct {
	ID         uint64 `gorm:"primaryKey;column:id" json:"-"`
	LoanID     string `gorm:"size:32;uniqueIndex:ux_loans_loan_id" json:"loan_id"`
	BorrowerID string `gorm:"size:32;index:idx_loans_borrower" json:"borrower_id"`

	// The seven application ciphertexts. Opaque handles; the plaintext
	// amounts, scores and histories never touch this process.
	AmountCipher         fhe.Handle `gorm:"size:64;column:amount_cipher" json:"-"`
	TermCipher           fhe.Handle `gorm:"size:64;column:term_cipher" json:"-"`
	CreditScoreCipher    fhe.Handle `gorm:"size:64;column:credit_score_cipher" json:"-"`
	RevenueCipher        fhe.Handle `gorm:"size:64;column:revenue_cipher" json:"-"`
	PaymentHistoryCipher fhe.Handle `gorm:"size:64;column:payment_history_cipher" json:"-"`
	PastDefaultsCipher   fhe.Handle `gorm:"size:64;column:past_defaults_cipher" json:"-"`
	CommunityScoreCipher fhe.Handle `gorm:"size:64;column:community_score_cipher" json:"-"`

	Purpose Purpose `gorm:"size:20" json:"purpose"`
	Status  Status  `gorm:"size:20;default:'draft';index" json:"status"`

	SubmittedAt        time.Time  `json:"submitted_at"`
	ApprovedAt         *time.Time `json:"approved_at,omitempty"`
	DisbursedAt        *time.Time `json:"disbursed_at,omitempty"`
	LastStatusChangeAt time.Time  `json:"last_status_change_at"`
	StatusChangeCount  uint32     `json:"status_change_count"`
	IsActive           bool       `json:"is_active"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Loan) TableName() string { return "loans" }

// SetStatus applies one transition: bumps the change counter, stamps the
// change time and drops the active flag on terminal statuses. Guards live
// in the usecases; this only records an already-validated move.
func (l *Loan) SetStatus(s Status, at time.Time) {
	l.Status = s
	l.LastStatusChangeAt = at
	l.StatusChangeCount++
	if s.Terminal() {
		l.IsActive = false
	}
}
