package schedule

import "context"

type Repository interface {
	Create(ctx context.Context, s *RepaymentSchedule) error
	GetByLoanID(ctx context.Context, loanPK uint64) (*RepaymentSchedule, error)
	Save(ctx context.Context, s *RepaymentSchedule) error

	AppendPayment(ctx context.Context, p *PaymentRecord) error
	CountPayments(ctx context.Context, loanPK uint64) (int64, error)
	ListPayments(ctx context.Context, loanPK uint64) ([]PaymentRecord, error)
}
