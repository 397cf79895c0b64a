package pool

import "context"

type Repository interface {
	Create(ctx context.Context, p *FundingPool) error
	GetByLoanID(ctx context.Context, loanPK uint64) (*FundingPool, error)
	Save(ctx context.Context, p *FundingPool) error

	GetContribution(ctx context.Context, loanPK uint64, lenderID string) (*Contribution, error)
	CreateContribution(ctx context.Context, c *Contribution) error
	SaveContribution(ctx context.Context, c *Contribution) error
	ListContributions(ctx context.Context, loanPK uint64) ([]Contribution, error)
}
