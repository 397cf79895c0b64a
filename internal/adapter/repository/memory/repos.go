package memory

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

type loanRepo struct{ s *Store }

func (r *loanRepo) Create(_ context.Context, l *loan.Loan) error {
	st := r.s.st
	l.ID = st.nextPK
	st.nextPK++
	st.loans[l.ID] = *l
	st.loanPKs[l.LoanID] = l.ID
	return nil
}

func (r *loanRepo) GetByLoanID(_ context.Context, loanID string) (*loan.Loan, error) {
	pk, ok := r.s.st.loanPKs[loanID]
	if !ok {
		return nil, loan.ErrNotFound
	}
	l := r.s.st.loans[pk]
	return &l, nil
}

// No row locks in memory; WithinTx already serializes every transaction.
func (r *loanRepo) GetByLoanIDForUpdate(ctx context.Context, loanID string) (*loan.Loan, error) {
	return r.GetByLoanID(ctx, loanID)
}

func (r *loanRepo) Save(_ context.Context, l *loan.Loan) error {
	r.s.st.loans[l.ID] = *l
	return nil
}

func (r *loanRepo) ListByBorrowerID(_ context.Context, borrowerID string) ([]loan.Loan, error) {
	var out []loan.Loan
	for pk := uint64(1); pk < r.s.st.nextPK; pk++ {
		if l, ok := r.s.st.loans[pk]; ok && l.BorrowerID == borrowerID {
			out = append(out, l)
		}
	}
	return out, nil
}

type evalRepo struct{ s *Store }

func (r *evalRepo) Create(_ context.Context, e *evaluation.Evaluation) error {
	e.ID = r.s.st.nextPK
	r.s.st.nextPK++
	r.s.st.evals[e.LoanID] = *e
	return nil
}

func (r *evalRepo) GetByLoanID(_ context.Context, loanPK uint64) (*evaluation.Evaluation, error) {
	e, ok := r.s.st.evals[loanPK]
	if !ok {
		return nil, evaluation.ErrNotFound
	}
	return &e, nil
}

func (r *evalRepo) Save(_ context.Context, e *evaluation.Evaluation) error {
	r.s.st.evals[e.LoanID] = *e
	return nil
}

type poolRepo struct{ s *Store }

func (r *poolRepo) Create(_ context.Context, p *pool.FundingPool) error {
	p.ID = r.s.st.nextPK
	r.s.st.nextPK++
	r.s.st.pools[p.LoanID] = *p
	return nil
}

func (r *poolRepo) GetByLoanID(_ context.Context, loanPK uint64) (*pool.FundingPool, error) {
	p, ok := r.s.st.pools[loanPK]
	if !ok {
		return nil, pool.ErrNotFound
	}
	return &p, nil
}

func (r *poolRepo) Save(_ context.Context, p *pool.FundingPool) error {
	r.s.st.pools[p.LoanID] = *p
	return nil
}

func (r *poolRepo) GetContribution(_ context.Context, loanPK uint64, lenderID string) (*pool.Contribution, error) {
	c, ok := r.s.st.contribs[loanPK][lenderID]
	if !ok {
		return nil, pool.ErrNotFound
	}
	return &c, nil
}

func (r *poolRepo) CreateContribution(_ context.Context, c *pool.Contribution) error {
	c.ID = r.s.st.nextPK
	r.s.st.nextPK++
	if r.s.st.contribs[c.LoanID] == nil {
		r.s.st.contribs[c.LoanID] = map[string]pool.Contribution{}
	}
	r.s.st.contribs[c.LoanID][c.LenderID] = *c
	return nil
}

func (r *poolRepo) SaveContribution(_ context.Context, c *pool.Contribution) error {
	r.s.st.contribs[c.LoanID][c.LenderID] = *c
	return nil
}

func (r *poolRepo) ListContributions(_ context.Context, loanPK uint64) ([]pool.Contribution, error) {
	m := r.s.st.contribs[loanPK]
	out := make([]pool.Contribution, 0, len(m))
	// Stable order by insertion PK so interest shares come out deterministic.
	for pk := uint64(1); pk < r.s.st.nextPK; pk++ {
		for _, c := range m {
			if c.ID == pk {
				out = append(out, c)
			}
		}
	}
	return out, nil
}

type scheduleRepo struct{ s *Store }

func (r *scheduleRepo) Create(_ context.Context, sc *schedule.RepaymentSchedule) error {
	sc.ID = r.s.st.nextPK
	r.s.st.nextPK++
	r.s.st.schedules[sc.LoanID] = *sc
	return nil
}

func (r *scheduleRepo) GetByLoanID(_ context.Context, loanPK uint64) (*schedule.RepaymentSchedule, error) {
	sc, ok := r.s.st.schedules[loanPK]
	if !ok {
		return nil, schedule.ErrNotFound
	}
	return &sc, nil
}

func (r *scheduleRepo) Save(_ context.Context, sc *schedule.RepaymentSchedule) error {
	r.s.st.schedules[sc.LoanID] = *sc
	return nil
}

func (r *scheduleRepo) AppendPayment(_ context.Context, p *schedule.PaymentRecord) error {
	p.ID = r.s.st.nextPK
	r.s.st.nextPK++
	r.s.st.payments[p.LoanID] = append(r.s.st.payments[p.LoanID], *p)
	return nil
}

func (r *scheduleRepo) CountPayments(_ context.Context, loanPK uint64) (int64, error) {
	return int64(len(r.s.st.payments[loanPK])), nil
}

func (r *scheduleRepo) ListPayments(_ context.Context, loanPK uint64) ([]schedule.PaymentRecord, error) {
	return append([]schedule.PaymentRecord(nil), r.s.st.payments[loanPK]...), nil
}

type profileRepo struct{ s *Store }

func (r *profileRepo) GetBorrower(_ context.Context, borrowerID string) (*profile.BorrowerProfile, error) {
	p, ok := r.s.st.borrowers[borrowerID]
	if !ok {
		return nil, profile.ErrNotFound
	}
	p.LoanIDs = cloneStrings(p.LoanIDs)
	return &p, nil
}

func (r *profileRepo) CreateBorrower(_ context.Context, p *profile.BorrowerProfile) error {
	p.ID = r.s.st.nextPK
	r.s.st.nextPK++
	r.s.st.borrowers[p.BorrowerID] = *p
	return nil
}

func (r *profileRepo) SaveBorrower(_ context.Context, p *profile.BorrowerProfile) error {
	r.s.st.borrowers[p.BorrowerID] = *p
	return nil
}

func (r *profileRepo) GetLender(_ context.Context, lenderID string) (*profile.LenderProfile, error) {
	p, ok := r.s.st.lenders[lenderID]
	if !ok {
		return nil, profile.ErrNotFound
	}
	p.FundedLoanIDs = cloneStrings(p.FundedLoanIDs)
	return &p, nil
}

func (r *profileRepo) CreateLender(_ context.Context, p *profile.LenderProfile) error {
	p.ID = r.s.st.nextPK
	r.s.st.nextPK++
	r.s.st.lenders[p.LenderID] = *p
	return nil
}

func (r *profileRepo) SaveLender(_ context.Context, p *profile.LenderProfile) error {
	r.s.st.lenders[p.LenderID] = *p
	return nil
}

type policyRepo struct{ s *Store }

func (r *policyRepo) Get(_ context.Context) (*policy.Policy, error) {
	p := r.s.st.policy
	return &p, nil
}

func (r *policyRepo) Save(_ context.Context, p *policy.Policy) error {
	p.ID = 1
	r.s.st.policy = *p
	return nil
}

type roleRepo struct{ s *Store }

func (r *roleRepo) HasRole(_ context.Context, principalID string, role access.Role) (bool, error) {
	return r.s.st.roles[principalID][role], nil
}

func (r *roleRepo) Grant(_ context.Context, principalID string, role access.Role) error {
	if r.s.st.roles[principalID] == nil {
		r.s.st.roles[principalID] = map[access.Role]bool{}
	}
	r.s.st.roles[principalID][role] = true
	return nil
}

func (r *roleRepo) Revoke(_ context.Context, principalID string, role access.Role) error {
	delete(r.s.st.roles[principalID], role)
	return nil
}

type statsRepo struct{ s *Store }

func (r *statsRepo) Get(_ context.Context) (*stats.Marketplace, error) {
	m := r.s.st.stats
	return &m, nil
}

func (r *statsRepo) Save(_ context.Context, m *stats.Marketplace) error {
	m.ID = 1
	r.s.st.stats = *m
	return nil
}
