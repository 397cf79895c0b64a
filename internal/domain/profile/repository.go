package profile

import "context"

type Repository interface {
	GetBorrower(ctx context.Context, borrowerID string) (*BorrowerProfile, error)
	CreateBorrower(ctx context.Context, p *BorrowerProfile) error
	SaveBorrower(ctx context.Context, p *BorrowerProfile) error

	GetLender(ctx context.Context, lenderID string) (*LenderProfile, error)
	CreateLender(ctx context.Context, p *LenderProfile) error
	SaveLender(ctx context.Context, p *LenderProfile) error
}
