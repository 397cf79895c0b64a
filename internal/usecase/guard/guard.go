// Package guard holds the capability checks run before every state-mutating
// entry point. Roles are ambient flags on principals, checked inside the
// same transaction as the mutation they gate.
package guard

import (
	"context"

	"microloan-bazaar/internal/domain/access"
	"microloan-bazaar/internal/domain/uow"
)

func role(ctx context.Context, r uow.Repos, principalID string, want access.Role, denied error) error {
	ok, err := r.Roles.HasRole(ctx, principalID, want)
	if err != nil {
		return err
	}
	if !ok {
		return denied
	}
	return nil
}

func CreditAnalyst(ctx context.Context, r uow.Repos, principalID string) error {
	return role(ctx, r, principalID, access.RoleCreditAnalyst, access.ErrNotCreditAnalyst)
}

func LoanOfficer(ctx context.Context, r uow.Repos, principalID string) error {
	return role(ctx, r, principalID, access.RoleLoanOfficer, access.ErrNotLoanOfficer)
}

func CollectionAgent(ctx context.Context, r uow.Repos, principalID string) error {
	return role(ctx, r, principalID, access.RoleCollectionAgent, access.ErrNotCollectionAgent)
}

// Owner checks against the configured owner principal; the owner is not a
// role row.
func Owner(principalID, ownerID string) error {
	if principalID != ownerID {
		return access.ErrNotOwner
	}
	return nil
}
