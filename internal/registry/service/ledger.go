package service

import (
	"context"

	"recordshare/internal/registry/models"
	id "recordshare/pkg/domain"
	dErrors "recordshare/pkg/domain-errors"
	audit "recordshare/pkg/platform/audit"
	"recordshare/pkg/principal"
)

// AddDocument appends a record to the caller's ledger and returns it with its
// assigned index. Indices start at 0 and have no gaps.
//
// Errors: CodeNotOwner when the caller is not a registered Owner,
// CodeInvalidPointer when the pointer is empty after trimming.
func (s *Service) AddDocument(ctx context.Context, caller principal.Principal, contentPointer string) (_ *models.DocumentRecord, err error) {
	ctx, done := s.observe(ctx, "add_document", caller.Address())
	defer done(&err)

	if err := caller.Require(); err != nil {
		return nil, err
	}

	owner := caller.Address()
	record := &models.DocumentRecord{
		Owner:     owner,
		CreatedAt: now(ctx),
		Active:    true,
	}
	txErr := s.tx.RunInTx(ctx, owner.String(), func(ctx context.Context) error {
		if err := s.requireOwner(ctx, owner); err != nil {
			return err
		}
		pointer, err := models.NormalizeContentPointer(contentPointer)
		if err != nil {
			return err
		}
		record.ContentPointer = pointer
		if err := s.store.AppendDocument(ctx, record); err != nil {
			return err
		}
		return s.emit(ctx, audit.Event{
			Action:  audit.EventDocumentAdded,
			Actor:   owner.String(),
			Subject: record.ContentPointer,
		})
	})
	if txErr != nil {
		return nil, wrapTx(txErr, "failed to add document")
	}

	if s.metrics != nil {
		s.metrics.IncDocumentsAdded()
	}
	s.logger.InfoContext(ctx, "document added",
		"owner", owner.String(),
		"index", record.Index,
	)
	return record, nil
}

// ListDocuments returns owner's ledger in index order. Addresses with no
// records, including unregistered ones, yield an empty slice.
//
// This is an in-process API; the HTTP surface only exposes ledgers through
// the caller-scoped queries.
func (s *Service) ListDocuments(ctx context.Context, owner id.Address) (_ []models.DocumentRecord, err error) {
	ctx, done := s.observe(ctx, "list_documents", "")
	defer done(&err)

	docs, err := s.store.ListDocuments(ctx, owner)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list documents")
	}
	return docs, nil
}

func (s *Service) requireOwner(ctx context.Context, address id.Address) error {
	role, err := s.roleOf(ctx, address)
	if err != nil {
		return err
	}
	if role != models.RoleOwner {
		return dErrors.New(dErrors.CodeNotOwner, "caller is not a registered owner")
	}
	return nil
}
