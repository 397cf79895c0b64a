package evaluation

import "context"

type Repository interface {
	Create(ctx context.Context, e *Evaluation) error
	// GetByLoanID looks up by the loan's numeric PK.
	GetByLoanID(ctx context.Context, loanPK uint64) (*Evaluation, error)
	Save(ctx context.Context, e *Evaluation) error
}
