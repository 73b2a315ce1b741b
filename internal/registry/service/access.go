package service

import (
	"context"

	"recordshare/internal/registry/models"
	id "recordshare/pkg/domain"
	dErrors "recordshare/pkg/domain-errors"
	audit "recordshare/pkg/platform/audit"
	"recordshare/pkg/principal"
)

// Grant lets consumer read the caller's ledger. Granting an existing edge is a
// no-op and keeps the consumer's position in both indices.
//
// Errors: CodeNotOwner when the caller is not a registered Owner,
// CodeUnknownConsumer when consumer is not a registered Consumer.
func (s *Service) Grant(ctx context.Context, caller principal.Principal, consumer id.Address) (err error) {
	ctx, done := s.observe(ctx, "grant", caller.Address())
	defer done(&err)

	if err := caller.Require(); err != nil {
		return err
	}

	owner := caller.Address()
	var created bool
	txErr := s.tx.RunInTx(ctx, owner.String(), func(ctx context.Context) error {
		if err := s.requireOwner(ctx, owner); err != nil {
			return err
		}
		role, err := s.roleOf(ctx, consumer)
		if err != nil {
			return err
		}
		if role != models.RoleConsumer {
			return dErrors.New(dErrors.CodeUnknownConsumer, "grantee is not a registered consumer")
		}
		created, err = s.store.PutGrant(ctx, models.AccessGrant{
			Owner:     owner,
			Consumer:  consumer,
			GrantedAt: now(ctx),
		})
		if err != nil || !created {
			return err
		}
		return s.emit(ctx, audit.Event{
			Action:  audit.EventAccessGranted,
			Actor:   owner.String(),
			Subject: consumer.String(),
		})
	})
	if txErr != nil {
		return wrapTx(txErr, "failed to grant access")
	}

	if s.metrics != nil {
		s.metrics.IncGrantChange("grant", created)
	}
	if created {
		s.logger.InfoContext(ctx, "access granted",
			"owner", owner.String(),
			"consumer", consumer.String(),
		)
	} else {
		s.logger.DebugContext(ctx, "grant already present",
			"owner", owner.String(),
			"consumer", consumer.String(),
		)
	}
	return nil
}

// Revoke removes consumer's access to the caller's ledger. Revoking an absent
// edge, including one to an unregistered address, is a no-op.
//
// Errors: CodeNotOwner when the caller is not a registered Owner.
func (s *Service) Revoke(ctx context.Context, caller principal.Principal, consumer id.Address) (err error) {
	ctx, done := s.observe(ctx, "revoke", caller.Address())
	defer done(&err)

	if err := caller.Require(); err != nil {
		return err
	}

	owner := caller.Address()
	var removed bool
	txErr := s.tx.RunInTx(ctx, owner.String(), func(ctx context.Context) error {
		if err := s.requireOwner(ctx, owner); err != nil {
			return err
		}
		var err error
		removed, err = s.store.DeleteGrant(ctx, owner, consumer)
		if err != nil || !removed {
			return err
		}
		return s.emit(ctx, audit.Event{
			Action:  audit.EventAccessRevoked,
			Actor:   owner.String(),
			Subject: consumer.String(),
		})
	})
	if txErr != nil {
		return wrapTx(txErr, "failed to revoke access")
	}

	if s.metrics != nil {
		s.metrics.IncGrantChange("revoke", removed)
	}
	if removed {
		s.logger.InfoContext(ctx, "access revoked",
			"owner", owner.String(),
			"consumer", consumer.String(),
		)
	}
	return nil
}

// ListConsumersOf returns the consumers owner has granted, in grant order.
func (s *Service) ListConsumersOf(ctx context.Context, owner id.Address) (_ []id.Address, err error) {
	ctx, done := s.observe(ctx, "list_consumers", "")
	defer done(&err)

	consumers, err := s.store.ListConsumers(ctx, owner)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list consumers")
	}
	return consumers, nil
}

// ListOwnersGranting returns the owners that granted consumer, in grant order.
func (s *Service) ListOwnersGranting(ctx context.Context, consumer id.Address) (_ []id.Address, err error) {
	ctx, done := s.observe(ctx, "list_owners", "")
	defer done(&err)

	owners, err := s.store.ListOwners(ctx, consumer)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list owners")
	}
	return owners, nil
}
