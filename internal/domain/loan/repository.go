package loan

import "context"

type Repository interface {
	Create(ctx context.Context, l *Loan) error
	GetByLoanID(ctx context.Context, loanID string) (*Loan, error)
	// GetByLoanIDForUpdate locks the loan row for the current transaction.
	GetByLoanIDForUpdate(ctx context.Context, loanID string) (*Loan, error)
	Save(ctx context.Context, l *Loan) error
	ListByBorrowerID(ctx context.Context, borrowerID string) ([]Loan, error)
}
