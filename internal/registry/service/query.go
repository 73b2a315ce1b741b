package service

import (
	"context"

	"recordshare/internal/registry/models"
	id "recordshare/pkg/domain"
	dErrors "recordshare/pkg/domain-errors"
	audit "recordshare/pkg/platform/audit"
	"recordshare/pkg/principal"
)

// Caller-scoped queries. Each one reads on behalf of the verified caller only.

// GetOwnDocuments returns the caller's own ledger.
func (s *Service) GetOwnDocuments(ctx context.Context, caller principal.Principal) ([]models.DocumentRecord, error) {
	if err := caller.Require(); err != nil {
		return nil, err
	}
	return s.ListDocuments(ctx, caller.Address())
}

// GetDocumentsAsConsumer returns owner's ledger if owner has granted the
// caller. The grant check and the ledger read share one snapshot.
//
// Errors: CodeAccessDenied when no grant exists.
func (s *Service) GetDocumentsAsConsumer(ctx context.Context, caller principal.Principal, owner id.Address) (_ []models.DocumentRecord, err error) {
	ctx, done := s.observe(ctx, "documents_as_consumer", caller.Address())
	defer done(&err)

	if err := caller.Require(); err != nil {
		return nil, err
	}

	consumer := caller.Address()
	docs, granted, err := s.store.DocumentsForConsumer(ctx, owner, consumer)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read documents")
	}
	if !granted {
		s.denied(ctx, owner, consumer)
		return nil, dErrors.New(dErrors.CodeAccessDenied, "owner has not granted access")
	}
	return docs, nil
}

// GetMyConsumers returns the consumers the caller has granted.
func (s *Service) GetMyConsumers(ctx context.Context, caller principal.Principal) ([]id.Address, error) {
	if err := caller.Require(); err != nil {
		return nil, err
	}
	return s.ListConsumersOf(ctx, caller.Address())
}

// GetMyOwners returns the owners that granted the caller.
func (s *Service) GetMyOwners(ctx context.Context, caller principal.Principal) ([]id.Address, error) {
	if err := caller.Require(); err != nil {
		return nil, err
	}
	return s.ListOwnersGranting(ctx, caller.Address())
}

// denied records a refused read. The refusal stands even if the audit write
// fails.
func (s *Service) denied(ctx context.Context, owner, consumer id.Address) {
	if s.metrics != nil {
		s.metrics.IncAccessDenied()
	}
	s.logger.WarnContext(ctx, "access denied",
		"owner", owner.String(),
		"consumer", consumer.String(),
	)
	if err := s.emit(ctx, audit.Event{
		Action:  audit.EventAccessDenied,
		Actor:   consumer.String(),
		Subject: owner.String(),
	}); err != nil {
		s.logger.ErrorContext(ctx, "failed to record access denial",
			"owner", owner.String(),
			"error", err,
		)
	}
}
