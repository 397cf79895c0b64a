// Package memory holds an in-process implementation of every repository and
// the unit of work. Transactions are serialized under one mutex and rolled
// back by snapshot, which is exactly the all-or-nothing model the ledger
// substrate provides; usecase tests run against it.
package memory

import (
	"context"
	"sync"

	"microloan-bazaar/internal/domain/access"
	"microloan-bazaar/internal/domain/evaluation"
	"microloan-bazaar/internal/domain/loan"
	"microloan-bazaar/internal/domain/policy"
	"microloan-bazaar/internal/domain/pool"
	"microloan-bazaar/internal/domain/profile"
	"microloan-bazaar/internal/domain/schedule"
	"microloan-bazaar/internal/domain/stats"
	"microloan-bazaar/internal/domain/uow"
)

type state struct {
	nextPK    uint64
	loans     map[uint64]loan.Loan
	loanPKs   map[string]uint64
	evals     map[uint64]evaluation.Evaluation
	pools     map[uint64]pool.FundingPool
	contribs  map[uint64]map[string]pool.Contribution
	schedules map[uint64]schedule.RepaymentSchedule
	payments  map[uint64][]schedule.PaymentRecord
	borrowers map[string]profile.BorrowerProfile
	lenders   map[string]profile.LenderProfile
	policy    policy.Policy
	stats     stats.Marketplace
	roles     map[string]map[access.Role]bool
}

func newState() *state {
	return &state{
		nextPK:    1,
		loans:     map[uint64]loan.Loan{},
		loanPKs:   map[string]uint64{},
		evals:     map[uint64]evaluation.Evaluation{},
		pools:     map[uint64]pool.FundingPool{},
		contribs:  map[uint64]map[string]pool.Contribution{},
		schedules: map[uint64]schedule.RepaymentSchedule{},
		payments:  map[uint64][]schedule.PaymentRecord{},
		borrowers: map[string]profile.BorrowerProfile{},
		lenders:   map[string]profile.LenderProfile{},
		policy:    policy.Default(),
		stats:     stats.Marketplace{ID: 1},
		roles:     map[string]map[access.Role]bool{},
	}
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func (s *state) clone() *state {
	c := newState()
	c.nextPK = s.nextPK
	for k, v := range s.loans {
		c.loans[k] = v
	}
	for k, v := range s.loanPKs {
		c.loanPKs[k] = v
	}
	for k, v := range s.evals {
		c.evals[k] = v
	}
	for k, v := range s.pools {
		c.pools[k] = v
	}
	for k, m := range s.contribs {
		inner := map[string]pool.Contribution{}
		for lk, lv := range m {
			inner[lk] = lv
		}
		c.contribs[k] = inner
	}
	for k, v := range s.schedules {
		c.schedules[k] = v
	}
	for k, v := range s.payments {
		c.payments[k] = append([]schedule.PaymentRecord(nil), v...)
	}
	for k, v := range s.borrowers {
		v.LoanIDs = cloneStrings(v.LoanIDs)
		c.borrowers[k] = v
	}
	for k, v := range s.lenders {
		v.FundedLoanIDs = cloneStrings(v.FundedLoanIDs)
		c.lenders[k] = v
	}
	c.policy = s.policy
	c.stats = s.stats
	for k, m := range s.roles {
		inner := map[access.Role]bool{}
		for rk, rv := range m {
			inner[rk] = rv
		}
		c.roles[k] = inner
	}
	return c
}

type Store struct {
	mu sync.Mutex
	st *state
}

func NewStore() *Store { return &Store{st: newState()} }

func (s *Store) repos() uow.Repos {
	return uow.Repos{
		Loans:       &loanRepo{s},
		Evaluations: &evalRepo{s},
		Pools:       &poolRepo{s},
		Schedules:   &scheduleRepo{s},
		Profiles:    &profileRepo{s},
		Policies:    &policyRepo{s},
		Roles:       &roleRepo{s},
		Stats:       &statsRepo{s},
	}
}

func (s *Store) WithinTx(_ context.Context, fn func(r uow.Repos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.st.clone()
	if err := fn(s.repos()); err != nil {
		s.st = snap
		return err
	}
	return nil
}

func (s *Store) WithinLoanTx(ctx context.Context, loanID string, fn func(r uow.Repos, l *loan.Loan) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.st.clone()
	pk, ok := s.st.loanPKs[loanID]
	if !ok {
		return loan.ErrNotFound
	}
	l := s.st.loans[pk]
	if err := fn(s.repos(), &l); err != nil {
		s.st = snap
		return err
	}
	return nil
}

// Seed helpers used by tests that need roles or policy tweaks in place.

func (s *Store) GrantRole(principalID string, role access.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st.roles[principalID] == nil {
		s.st.roles[principalID] = map[access.Role]bool{}
	}
	s.st.roles[principalID][role] = true
}

func (s *Store) SetPolicy(p policy.Policy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = 1
	s.st.policy = p
}
