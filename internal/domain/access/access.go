package access

import (
	"context"
	"errors"
	"time"
)

type Role string

const (
	RoleCreditAnalyst   Role = "credit_analyst"
	RoleLoanOfficer     Role = "loan_officer"
	RoleCollectionAgent Role = "collection_agent"
)

func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleCreditAnalyst, RoleLoanOfficer, RoleCollectionAgent:
		return r, nil
	}
	return "", ErrUnknownRole
}

var (
	ErrUnknownRole        = errors.New("unknown role")
	ErrNotOwner           = errors.New("caller is not the owner")
	ErrNotCreditAnalyst   = errors.New("caller is not a credit analyst")
	ErrNotLoanOfficer     = errors.New("caller is not a loan officer")
	ErrNotCollectionAgent = errors.New("caller is not a collection agent")
)

// Grant is one principal holding one role. The owner is not a row here; it
// is a single configured principal.
type Grant struct {
	ID          uint64    `gorm:"primaryKey;column:id" json:"-"`
	PrincipalID string    `gorm:"size:32;uniqueIndex:ux_role_grants_principal_role" json:"principal_id"`
	Role        Role      `gorm:"size:20;uniqueIndex:ux_role_grants_principal_role" json:"role"`
	GrantedAt   time.Time `gorm:"autoCreateTime" json:"granted_at"`
}

func (Grant) TableName() string { return "role_grants" }

type Repository interface {
	HasRole(ctx context.Context, principalID string, role Role) (bool, error)
	Grant(ctx context.Context, principalID string, role Role) error
	Revoke(ctx context.Context, principalID string, role Role) error
}
