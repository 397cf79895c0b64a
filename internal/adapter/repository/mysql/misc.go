package mysql

import (
	"context"
	"errors"

	accessDomain "microloan-bazaar/internal/domain/access"
	policyDomain "microloan-bazaar/internal/domain/policy"
	statsDomain "microloan-bazaar/internal/domain/stats"

	"gorm.io/gorm"
)

// PolicyRepository serves the single global policy row (id 1).
type PolicyRepository struct{ db *gorm.DB }

func NewPolicyRepository(db *gorm.DB) *PolicyRepository { return &PolicyRepository{db: db} }

func (r *PolicyRepository) Get(ctx context.Context) (*policyDomain.Policy, error) {
	var out policyDomain.Policy
	res := r.db.WithContext(ctx).Where("id = ?", 1).First(&out)
	return &out, res.Error
}

func (r *PolicyRepository) Save(ctx context.Context, p *policyDomain.Policy) error {
	p.ID = 1
	return r.db.WithContext(ctx).Save(p).Error
}

type RoleRepository struct{ db *gorm.DB }

func NewRoleRepository(db *gorm.DB) *RoleRepository { return &RoleRepository{db: db} }

func (r *RoleRepository) HasRole(ctx context.Context, principalID string, role accessDomain.Role) (bool, error) {
	var n int64
	res := r.db.WithContext(ctx).
		Model(&accessDomain.Grant{}).
		Where("principal_id = ? AND role = ?", principalID, role).
		Count(&n)
	return n > 0, res.Error
}

func (r *RoleRepository) Grant(ctx context.Context, principalID string, role accessDomain.Role) error {
	err := r.db.WithContext(ctx).Create(&accessDomain.Grant{PrincipalID: principalID, Role: role}).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		// granting twice is a no-op
		return nil
	}
	return err
}

func (r *RoleRepository) Revoke(ctx context.Context, principalID string, role accessDomain.Role) error {
	return r.db.WithContext(ctx).
		Where("principal_id = ? AND role = ?", principalID, role).
		Delete(&accessDomain.Grant{}).Error
}

type StatsRepository struct{ db *gorm.DB }

func NewStatsRepository(db *gorm.DB) *StatsRepository { return &StatsRepository{db: db} }

func (r *StatsRepository) Get(ctx context.Context) (*statsDomain.Marketplace, error) {
	var out statsDomain.Marketplace
	res := r.db.WithContext(ctx).Where("id = ?", 1).First(&out)
	return &out, res.Error
}

func (r *StatsRepository) Save(ctx context.Context, m *statsDomain.Marketplace) error {
	m.ID = 1
	return r.db.WithContext(ctx).Save(m).Error
}
