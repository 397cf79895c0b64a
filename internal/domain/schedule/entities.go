package schedule

import (
	"errors"
	"time"

	"microloan-bazaar/internal/fhe"
)

var (
	ErrNotFound           = errors.New("repayment schedule not found")
	ErrGracePeriodActive  = errors.New("default grace period has not expired")
	ErrScheduleTerminated = errors.New("schedule already complete or defaulted")
)

// InstallmentInterval is the fixed spacing between installments.
const InstallmentInterval = 30 * 24 * time.Hour

// RepaymentSchedule tracks one loan's installments. The monetary columns are
// ciphertext; InstallmentCount and InstallmentsPaid are the one deliberate
// plaintext shadow, because completion logic has to branch on them while the
// amounts stay confidential.
type RepaymentSchedule struct {
	ID     uint64 `gorm:"primaryKey;column:id" json:"-"`
	LoanID uint64 `gorm:"column:loan_id;not null;uniqueIndex:ux_schedules_loan" json:"-"`

	InstallmentCount uint32 `json:"installment_count"`
	InstallmentsPaid uint32 `json:"installments_paid"`

	InstallmentCountCipher  fhe.Handle `gorm:"size:64;column:installment_count_cipher" json:"-"`
	InstallmentAmountCipher fhe.Handle `gorm:"size:64;column:installment_amount_cipher" json:"-"`
	TotalPaidCipher         fhe.Handle `gorm:"size:64;column:total_paid_cipher" json:"-"`
	MissedPaymentsCipher    fhe.Handle `gorm:"size:64;column:missed_payments_cipher" json:"-"`
	RemainingBalanceCipher  fhe.Handle `gorm:"size:64;column:remaining_balance_cipher" json:"-"`

	NextPaymentDue time.Time  `json:"next_payment_due"`
	LastPaymentAt  *time.Time `json:"last_payment_at,omitempty"`

	IsComplete  bool `json:"is_complete"`
	IsDefaulted bool `json:"is_defaulted"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"-"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"-"`
}

func (RepaymentSchedule) TableName() string { return "repayment_schedules" }

// DefaultEligible is the checkDefault predicate: true once now has passed
// the due date plus the policy grace period.
func (s *RepaymentSchedule) DefaultEligible(now time.Time, gracePeriod time.Duration) bool {
	return now.After(s.NextPaymentDue.Add(gracePeriod))
}

// PaymentRecord is an append-only entry in a loan's payment history.
// Seq is the plaintext payment sequence number; amounts and the
// principal/interest split stay encrypted.
type PaymentRecord struct {
	ID     uint64 `gorm:"primaryKey;column:id" json:"-"`
	LoanID uint64 `gorm:"column:loan_id;not null;index:idx_payments_loan" json:"-"`
	Seq    uint32 `json:"seq"`

	AmountCipher            fhe.Handle `gorm:"size:64;column:amount_cipher" json:"-"`
	InstallmentNumberCipher fhe.Handle `gorm:"size:64;column:installment_number_cipher" json:"-"`
	PrincipalCipher         fhe.Handle `gorm:"size:64;column:principal_cipher" json:"-"`
	InterestCipher          fhe.Handle `gorm:"size:64;column:interest_cipher" json:"-"`

	PaidAt   time.Time `json:"paid_at"`
	IsLate   bool      `json:"is_late"`
	DaysLate uint32    `json:"days_late"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"-"`
}

func (PaymentRecord) TableName() string { return "payment_records" }
