package mysql

import (
	"context"
	"errors"

	evalDomain "microloan-bazaar/internal/domain/evaluation"

	"gorm.io/gorm"
)

type EvaluationRepository struct{ db *gorm.DB }

func NewEvaluationRepository(db *gorm.DB) *EvaluationRepository {
	return &EvaluationRepository{db: db}
}

func (r *EvaluationRepository) Create(ctx context.Context, e *evalDomain.Evaluation) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *EvaluationRepository) GetByLoanID(ctx context.Context, loanPK uint64) (*evalDomain.Evaluation, error) {
	var out evalDomain.Evaluation
	res := r.db.WithContext(ctx).Where("loan_id = ?", loanPK).First(&out)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return nil, evalDomain.ErrNotFound
	}
	return &out, res.Error
}

func (r *EvaluationRepository) Save(ctx context.Context, e *evalDomain.Evaluation) error {
	return r.db.WithContext(ctx).Save(e).Error
}
