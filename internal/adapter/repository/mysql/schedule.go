package mysql

import (
	"context"
	"errors"

	schedDomain "microloan-bazaar/internal/domain/schedule"

	"gorm.io/gorm"
)

type ScheduleRepository struct{ db *gorm.DB }

func NewScheduleRepository(db *gorm.DB) *ScheduleRepository { return &ScheduleRepository{db: db} }

func (r *ScheduleRepository) Create(ctx context.Context, s *schedDomain.RepaymentSchedule) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *ScheduleRepository) GetByLoanID(ctx context.Context, loanPK uint64) (*schedDomain.RepaymentSchedule, error) {
	var out schedDomain.RepaymentSchedule
	res := r.db.WithContext(ctx).Where("loan_id = ?", loanPK).First(&out)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return nil, schedDomain.ErrNotFound
	}
	return &out, res.Error
}

func (r *ScheduleRepository) Save(ctx context.Context, s *schedDomain.RepaymentSchedule) error {
	return r.db.WithContext(ctx).Save(s).Error
}

func (r *ScheduleRepository) AppendPayment(ctx context.Context, p *schedDomain.PaymentRecord) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *ScheduleRepository) CountPayments(ctx context.Context, loanPK uint64) (int64, error) {
	var n int64
	res := r.db.WithContext(ctx).
		Model(&schedDomain.PaymentRecord{}).
		Where("loan_id = ?", loanPK).
		Count(&n)
	return n, res.Error
}

func (r *ScheduleRepository) ListPayments(ctx context.Context, loanPK uint64) ([]schedDomain.PaymentRecord, error) {
	var out []schedDomain.PaymentRecord
	res := r.db.WithContext(ctx).
		Where("loan_id = ?", loanPK).
		Order("seq ASC").
		Find(&out)
	return out, res.Error
}
