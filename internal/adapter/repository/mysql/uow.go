package mysql

import (
	"context"
	"errors"

	"microloan-bazaar/internal/domain/access"
	"microloan-bazaar/internal/domain/evaluation"
	"microloan-bazaar/internal/domain/loan"
	"microloan-bazaar/internal/domain/policy"
	"microloan-bazaar/internal/domain/pool"
	"microloan-bazaar/internal/domain/profile"
	"microloan-bazaar/internal/domain/schedule"
	"microloan-bazaar/internal/domain/stats"
	"microloan-bazaar/internal/domain/uow"

	"gorm.io/gorm"
)

type GormUoW struct{ db *gorm.DB }

func NewGormUoW(db *gorm.DB) *GormUoW { return &GormUoW{db: db} }

func repos(tx *gorm.DB) uow.Repos {
	return uow.Repos{
		Loans:       &LoanRepository{db: tx},
		Evaluations: &EvaluationRepository{db: tx},
		Pools:       &PoolRepository{db: tx},
		Schedules:   &ScheduleRepository{db: tx},
		Profiles:    &ProfileRepository{db: tx},
		Policies:    &PolicyRepository{db: tx},
		Roles:       &RoleRepository{db: tx},
		Stats:       &StatsRepository{db: tx},
	}
}

func (u *GormUoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(repos(tx))
	})
}

func (u *GormUoW) WithinLoanTx(ctx context.Context, loanID string, fn func(r uow.Repos, l *loan.Loan) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := repos(tx)
		// lock the loan row up-front to prevent races
		l, err := r.Loans.GetByLoanIDForUpdate(ctx, loanID)
		if err != nil {
			return err
		}
		return fn(r, l)
	})
}

// Migrate creates every table the ledger persists.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&loan.Loan{},
		&evaluation.Evaluation{},
		&pool.FundingPool{},
		&pool.Contribution{},
		&schedule.RepaymentSchedule{},
		&schedule.PaymentRecord{},
		&profile.BorrowerProfile{},
		&profile.LenderProfile{},
		&policy.Policy{},
		&access.Grant{},
		&stats.Marketplace{},
	)
}

// EnsureDefaults seeds the single policy and stats rows on first boot.
func EnsureDefaults(db *gorm.DB) error {
	var p policy.Policy
	err := db.Where("id = ?", 1).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		def := policy.Default()
		if err := db.Create(&def).Error; err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	var m stats.Marketplace
	err = db.Where("id = ?", 1).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.Create(&stats.Marketplace{ID: 1}).Error
	}
	return err
}
