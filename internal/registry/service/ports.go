package service

import (
	"context"

	"recordshare/internal/registry/models"
	id "recordshare/pkg/domain"
	audit "recordshare/pkg/platform/audit"
)

// Store is the registry's persistence port. Every method is atomic on its own;
// check-then-act sequences are made atomic by running them inside TxRunner.
// SQL implementations join the transaction carried in ctx.
type Store interface {
	// FindIdentity returns sentinel.ErrNotFound for addresses never registered.
	FindIdentity(ctx context.Context, address id.Address) (*models.Identity, error)
	// CreateIdentity returns sentinel.ErrAlreadyUsed if the address exists.
	CreateIdentity(ctx context.Context, identity *models.Identity) error

	// AppendDocument assigns the next index for doc.Owner and a CreatedAt
	// strictly after the owner's previous record (see models.NextCreatedAt,
	// with doc.CreatedAt as "now"), then stores a copy.
	AppendDocument(ctx context.Context, doc *models.DocumentRecord) error
	// ListDocuments returns the owner's records in index order; never
	// ErrNotFound.
	ListDocuments(ctx context.Context, owner id.Address) ([]models.DocumentRecord, error)

	// PutGrant inserts the edge; created is false when it already existed.
	PutGrant(ctx context.Context, grant models.AccessGrant) (created bool, err error)
	// DeleteGrant removes the edge; removed is false when it did not exist.
	DeleteGrant(ctx context.Context, owner, consumer id.Address) (removed bool, err error)
	// ListConsumers returns consumers granted by owner in grant order.
	ListConsumers(ctx context.Context, owner id.Address) ([]id.Address, error)
	// ListOwners returns owners granting consumer in grant order.
	ListOwners(ctx context.Context, consumer id.Address) ([]id.Address, error)
	// DocumentsForConsumer checks the (owner, consumer) edge and reads the
	// owner's records from one consistent snapshot.
	DocumentsForConsumer(ctx context.Context, owner, consumer id.Address) (docs []models.DocumentRecord, granted bool, err error)
}

// TxRunner runs fn as one atomic unit. Runs sharing a key are serialized.
type TxRunner interface {
	RunInTx(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// RoleCache caches registered roles. Roles never change once set, so entries
// need no invalidation; implementations must never be handed Unregistered.
type RoleCache interface {
	Get(ctx context.Context, address id.Address) (models.Role, bool, error)
	Set(ctx context.Context, address id.Address, role models.Role) error
}

// AuditPublisher records registry events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}
