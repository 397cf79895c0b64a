package mysql

import (
	"context"
	"errors"

	poolDomain "microloan-bazaar/internal/domain/pool"

	"gorm.io/gorm"
)

type PoolRepository struct{ db *gorm.DB }

func NewPoolRepository(db *gorm.DB) *PoolRepository { return &PoolRepository{db: db} }

func (r *PoolRepository) Create(ctx context.Context, p *poolDomain.FundingPool) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PoolRepository) GetByLoanID(ctx context.Context, loanPK uint64) (*poolDomain.FundingPool, error) {
	var out poolDomain.FundingPool
	res := r.db.WithContext(ctx).Where("loan_id = ?", loanPK).First(&out)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return nil, poolDomain.ErrNotFound
	}
	return &out, res.Error
}

func (r *PoolRepository) Save(ctx context.Context, p *poolDomain.FundingPool) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *PoolRepository) GetContribution(ctx context.Context, loanPK uint64, lenderID string) (*poolDomain.Contribution, error) {
	var out poolDomain.Contribution
	res := r.db.WithContext(ctx).
		Where("loan_id = ? AND lender_id = ?", loanPK, lenderID).
		First(&out)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return nil, poolDomain.ErrNotFound
	}
	return &out, res.Error
}

func (r *PoolRepository) CreateContribution(ctx context.Context, c *poolDomain.Contribution) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *PoolRepository) SaveContribution(ctx context.Context, c *poolDomain.Contribution) error {
	return r.db.WithContext(ctx).Save(c).Error
}

func (r *PoolRepository) ListContributions(ctx context.Context, loanPK uint64) ([]poolDomain.Contribution, error) {
	var out []poolDomain.Contribution
	res := r.db.WithContext(ctx).
		Where("loan_id = ?", loanPK).
		Order("id ASC").
		Find(&out)
	return out, res.Error
}
