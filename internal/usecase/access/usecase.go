package access

import (
	"context"
	"time"

	domainAccess "microloan-bazaar/internal/domain/access"
	"microloan-bazaar/internal/domain/policy"
	"microloan-bazaar/internal/domain/uow"
	"microloan-bazaar/internal/notify"
	"microloan-bazaar/internal/usecase/guard"
)

// Usecase covers the owner-only surface: role grants and the global policy.
type Usecase struct {
	uow      uow.UnitOfWork
	notifier notify.Notifier
	ownerID  string
}

func NewUsecase(u uow.UnitOfWork, n notify.Notifier, ownerID string) *Usecase {
	return &Usecase{uow: u, notifier: n, ownerID: ownerID}
}

func (u *Usecase) GrantRole(ctx context.Context, callerID, principalID, role string) error {
	if err := guard.Owner(callerID, u.ownerID); err != nil {
		return err
	}
	r, err := domainAccess.ParseRole(role)
	if err != nil {
		return err
	}
	return u.uow.WithinTx(ctx, func(repos uow.Repos) error {
		if err := repos.Roles.Grant(ctx, principalID, r); err != nil {
			return err
		}
		u.notifier.RoleChanged(ctx, notify.RoleChange{
			PrincipalID: principalID,
			Role:        string(r),
			Granted:     true,
			At:          time.Now().UTC(),
		})
		return nil
	})
}

func (u *Usecase) RevokeRole(ctx context.Context, callerID, principalID, role string) error {
	if err := guard.Owner(callerID, u.ownerID); err != nil {
		return err
	}
	r, err := domainAccess.ParseRole(role)
	if err != nil {
		return err
	}
	return u.uow.WithinTx(ctx, func(repos uow.Repos) error {
		if err := repos.Roles.Revoke(ctx, principalID, r); err != nil {
			return err
		}
		u.notifier.RoleChanged(ctx, notify.RoleChange{
			PrincipalID: principalID,
			Role:        string(r),
			Granted:     false,
			At:          time.Now().UTC(),
		})
		return nil
	})
}

// UpdatePolicy replaces the global bounds wholesale after validation.
func (u *Usecase) UpdatePolicy(ctx context.Context, callerID string, next policy.Policy) (*policy.Policy, error) {
	if err := guard.Owner(callerID, u.ownerID); err != nil {
		return nil, err
	}
	if err := next.Validate(); err != nil {
		return nil, err
	}
	var saved *policy.Policy
	err := u.uow.WithinTx(ctx, func(repos uow.Repos) error {
		cur, err := repos.Policies.Get(ctx)
		if err != nil {
			return err
		}
		next.ID = cur.ID
		if err := repos.Policies.Save(ctx, &next); err != nil {
			return err
		}
		saved = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (u *Usecase) GetPolicy(ctx context.Context) (*policy.Policy, error) {
	var out *policy.Policy
	err := u.uow.WithinTx(ctx, func(repos uow.Repos) error {
		p, err := repos.Policies.Get(ctx)
		if err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
