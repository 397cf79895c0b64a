package mysql

import (
	"context"
	"errors"

	profileDomain "microloan-bazaar/internal/domain/profile"

	"gorm.io/gorm"
)

type ProfileRepository struct{ db *gorm.DB }

func NewProfileRepository(db *gorm.DB) *ProfileRepository { return &ProfileRepository{db: db} }

func (r *ProfileRepository) GetBorrower(ctx context.Context, borrowerID string) (*profileDomain.BorrowerProfile, error) {
	var out profileDomain.BorrowerProfile
	res := r.db.WithContext(ctx).Where("borrower_id = ?", borrowerID).First(&out)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return nil, profileDomain.ErrNotFound
	}
	return &out, res.Error
}

func (r *ProfileRepository) CreateBorrower(ctx context.Context, p *profileDomain.BorrowerProfile) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *ProfileRepository) SaveBorrower(ctx context.Context, p *profileDomain.BorrowerProfile) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *ProfileRepository) GetLender(ctx context.Context, lenderID string) (*profileDomain.LenderProfile, error) {
	var out profileDomain.LenderProfile
	res := r.db.WithContext(ctx).Where("lender_id = ?", lenderID).First(&out)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return nil, profileDomain.ErrNotFound
	}
	return &out, res.Error
}

func (r *ProfileRepository) CreateLender(ctx context.Context, p *profileDomain.LenderProfile) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *ProfileRepository) SaveLender(ctx context.Context, p *profileDomain.LenderProfile) error {
	return r.db.WithContext(ctx).Save(p).Error
}
