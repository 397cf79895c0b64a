package uow

import (
	"context"

	"microloan-bazaar/internal/domain/access"
	"microloan-bazaar/internal/domain/evaluation"
	"microloan-bazaar/internal/domain/loan"
	"microloan-bazaar/internal/domain/policy"
	"microloan-bazaar/internal/domain/pool"
	"microloan-bazaar/internal/domain/profile"
	"microloan-bazaar/internal/domain/schedule"
	"microloan-bazaar/internal/domain/stats"
)

// Repos is every repository bound to one transaction.
type Repos struct {
	Loans       loan.Repository
	Evaluations evaluation.Repository
	Pools       pool.Repository
	Schedules   schedule.Repository
	Profiles    profile.Repository
	Policies    policy.Repository
	Roles       access.Repository
	Stats       stats.Repository
}

// UnitOfWork gives every mutating operation the serialized all-or-nothing
// transaction the ledger substrate guarantees: any error aborts with no
// state change.
type UnitOfWork interface {
	// plain tx
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// convenience: lock the loan row first, then pass it in
	WithinLoanTx(ctx context.Context, loanID string, fn func(r Repos, l *loan.Loan) error) error
}
