package service

import (
	"context"
	"errors"

	"recordshare/internal/registry/models"
	id "recordshare/pkg/domain"
	dErrors "recordshare/pkg/domain-errors"
	audit "recordshare/pkg/platform/audit"
	"recordshare/pkg/platform/sentinel"
	"recordshare/pkg/principal"
)

// Register binds the caller to role. An address registers exactly once.
//
// Errors: CodeUnauthorized for an unverified caller, CodeInvalidRole when role
// is not Owner or Consumer, CodeAlreadyRegistered when the caller already has
// a role.
func (s *Service) Register(ctx context.Context, caller principal.Principal, role models.Role) (_ *models.Identity, err error) {
	ctx, done := s.observe(ctx, "register", caller.Address())
	defer done(&err)

	if err := caller.Require(); err != nil {
		return nil, err
	}
	if !role.Registrable() {
		return nil, dErrors.New(dErrors.CodeInvalidRole, "role must be owner or consumer")
	}

	address := caller.Address()
	identity := &models.Identity{
		Address:      address,
		Role:         role,
		RegisteredAt: now(ctx),
	}
	txErr := s.tx.RunInTx(ctx, address.String(), func(ctx context.Context) error {
		current, err := s.roleOf(ctx, address)
		if err != nil {
			return err
		}
		if current != models.RoleUnregistered {
			return dErrors.New(dErrors.CodeAlreadyRegistered, "address is already registered")
		}
		if err := s.store.CreateIdentity(ctx, identity); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return dErrors.New(dErrors.CodeAlreadyRegistered, "address is already registered")
			}
			return err
		}
		return s.emit(ctx, audit.Event{
			Action: audit.EventIdentityRegistered,
			Actor:  address.String(),
			Detail: role.String(),
		})
	})
	if txErr != nil {
		return nil, wrapTx(txErr, "failed to register identity")
	}

	s.cacheRole(ctx, address, role)
	if s.metrics != nil {
		s.metrics.IncRegistration(role.String())
	}
	s.logger.InfoContext(ctx, "identity registered",
		"address", address.String(),
		"role", role.String(),
	)
	return identity, nil
}

// GetRole returns the role bound to address, RoleUnregistered if none. It is
// public and never fails for domain reasons. Concurrent lookups of the same
// address share one store read.
func (s *Service) GetRole(ctx context.Context, address id.Address) (_ models.Role, err error) {
	ctx, done := s.observe(ctx, "get_role", "")
	defer done(&err)

	// The shared read outlives any single caller; each caller stops waiting
	// on its own context.
	shared := context.WithoutCancel(ctx)
	ch := s.roleLookups.DoChan(address.String(), func() (any, error) {
		return s.roleOf(shared, address)
	})
	select {
	case <-ctx.Done():
		return models.RoleUnregistered, wrapTx(ctx.Err(), "role lookup aborted")
	case res := <-ch:
		if res.Err != nil {
			return models.RoleUnregistered, res.Err
		}
		return res.Val.(models.Role), nil
	}
}

// GetIdentity returns the identity for address. Unknown addresses yield an
// Identity with RoleUnregistered and a zero RegisteredAt rather than an error.
func (s *Service) GetIdentity(ctx context.Context, address id.Address) (_ *models.Identity, err error) {
	ctx, done := s.observe(ctx, "get_identity", "")
	defer done(&err)

	identity, err := s.store.FindIdentity(ctx, address)
	if errors.Is(err, sentinel.ErrNotFound) {
		return &models.Identity{Address: address, Role: models.RoleUnregistered}, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read identity")
	}
	return identity, nil
}
