// Package sqlstore persists the registry in PostgreSQL or SQLite. Statements
// use $n placeholders and ON CONFLICT, which both engines accept, and join the
// transaction carried in ctx when there is one.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"recordshare/internal/registry/models"
	id "recordshare/pkg/domain"
	"recordshare/pkg/platform/sentinel"
	txcontext "recordshare/pkg/platform/tx"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) FindIdentity(ctx context.Context, address id.Address) (*models.Identity, error) {
	var (
		code         int
		registeredAt time.Time
	)
	err := txcontext.Executor(ctx, s.db).QueryRowContext(ctx, `
		SELECT role, registered_at FROM identities WHERE address = $1
	`, address.String()).Scan(&code, &registeredAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find identity: %w", err)
	}
	role, ok := models.RoleFromCode(code)
	if !ok || role == models.RoleUnregistered {
		return nil, fmt.Errorf("identity %s has invalid stored role %d", address, code)
	}
	return &models.Identity{
		Address:      address,
		Role:         role,
		RegisteredAt: registeredAt.UTC(),
	}, nil
}

func (s *Store) CreateIdentity(ctx context.Context, identity *models.Identity) error {
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO identities (address, role, registered_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (address) DO NOTHING
	`, identity.Address.String(), int(identity.Role), identity.RegisteredAt.UTC())
	if err != nil {
		return fmt.Errorf("insert identity: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert identity: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("identity %s: %w", identity.Address, sentinel.ErrAlreadyUsed)
	}
	return nil
}

// AppendDocument reads the ledger tail and inserts the next record in one
// transaction. The (owner, idx) primary key rejects a concurrent append that
// raced past the registry's per-owner lock.
func (s *Store) AppendDocument(ctx context.Context, doc *models.DocumentRecord) error {
	return s.inTx(ctx, func(ctx context.Context, q txcontext.Querier) error {
		var (
			lastIdx int
			lastAt  time.Time
		)
		err := q.QueryRowContext(ctx, `
			SELECT idx, created_at FROM documents
			WHERE owner = $1
			ORDER BY idx DESC
			LIMIT 1
		`, doc.Owner.String()).Scan(&lastIdx, &lastAt)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			lastIdx, lastAt = -1, time.Time{}
		case err != nil:
			return fmt.Errorf("read ledger tail: %w", err)
		}

		next := *doc
		next.Index = lastIdx + 1
		next.CreatedAt = models.NextCreatedAt(lastAt, doc.CreatedAt)
		if _, err := q.ExecContext(ctx, `
			INSERT INTO documents (owner, idx, content_pointer, created_at, active)
			VALUES ($1, $2, $3, $4, $5)
		`, next.Owner.String(), next.Index, next.ContentPointer, next.CreatedAt, next.Active); err != nil {
			return fmt.Errorf("insert document: %w", err)
		}
		*doc = next
		return nil
	})
}

func (s *Store) ListDocuments(ctx context.Context, owner id.Address) ([]models.DocumentRecord, error) {
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, `
		SELECT idx, content_pointer, created_at, active
		FROM documents
		WHERE owner = $1
		ORDER BY idx
	`, owner.String())
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []models.DocumentRecord
	for rows.Next() {
		doc := models.DocumentRecord{Owner: owner}
		if err := rows.Scan(&doc.Index, &doc.ContentPointer, &doc.CreatedAt, &doc.Active); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		doc.CreatedAt = doc.CreatedAt.UTC()
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

func (s *Store) PutGrant(ctx context.Context, grant models.AccessGrant) (bool, error) {
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO access_grants (owner, consumer, granted_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (owner, consumer) DO NOTHING
	`, grant.Owner.String(), grant.Consumer.String(), grant.GrantedAt.UTC())
	if err != nil {
		return false, fmt.Errorf("insert grant: %w", err)
	}
	return affected(res, "insert grant")
}

func (s *Store) DeleteGrant(ctx context.Context, owner, consumer id.Address) (bool, error) {
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `
		DELETE FROM access_grants WHERE owner = $1 AND consumer = $2
	`, owner.String(), consumer.String())
	if err != nil {
		return false, fmt.Errorf("delete grant: %w", err)
	}
	return affected(res, "delete grant")
}

func (s *Store) ListConsumers(ctx context.Context, owner id.Address) ([]id.Address, error) {
	return s.addresses(ctx, `
		SELECT consumer FROM access_grants WHERE owner = $1 ORDER BY seq
	`, owner)
}

func (s *Store) ListOwners(ctx context.Context, consumer id.Address) ([]id.Address, error) {
	return s.addresses(ctx, `
		SELECT owner FROM access_grants WHERE consumer = $1 ORDER BY seq
	`, consumer)
}

// DocumentsForConsumer answers in a single statement so the grant check and
// the ledger read share one snapshot. No rows means no grant; a single row of
// NULLs means a grant over an empty ledger.
func (s *Store) DocumentsForConsumer(ctx context.Context, owner, consumer id.Address) ([]models.DocumentRecord, bool, error) {
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, `
		SELECT d.idx, d.content_pointer, d.created_at, d.active
		FROM access_grants g
		LEFT JOIN documents d ON d.owner = g.owner
		WHERE g.owner = $1 AND g.consumer = $2
		ORDER BY d.idx
	`, owner.String(), consumer.String())
	if err != nil {
		return nil, false, fmt.Errorf("read consumer documents: %w", err)
	}
	defer rows.Close()

	var (
		docs    []models.DocumentRecord
		granted bool
	)
	for rows.Next() {
		granted = true
		var (
			idx       sql.NullInt64
			pointer   sql.NullString
			createdAt sql.NullTime
			active    sql.NullBool
		)
		if err := rows.Scan(&idx, &pointer, &createdAt, &active); err != nil {
			return nil, false, fmt.Errorf("scan consumer document: %w", err)
		}
		if !idx.Valid {
			continue
		}
		docs = append(docs, models.DocumentRecord{
			Index:          int(idx.Int64),
			Owner:          owner,
			ContentPointer: pointer.String,
			CreatedAt:      createdAt.Time.UTC(),
			Active:         active.Bool,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate consumer documents: %w", err)
	}
	return docs, granted, nil
}

func (s *Store) addresses(ctx context.Context, query string, arg id.Address) ([]id.Address, error) {
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, query, arg.String())
	if err != nil {
		return nil, fmt.Errorf("list grants: %w", err)
	}
	defer rows.Close()

	var out []id.Address
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, fmt.Errorf("scan grant: %w", err)
		}
		out = append(out, id.Address(a))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate grants: %w", err)
	}
	return out, nil
}

// inTx runs fn on the transaction in ctx, or on a new one.
func (s *Store) inTx(ctx context.Context, fn func(ctx context.Context, q txcontext.Querier) error) error {
	return txcontext.Run(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, tx)
	})
}

func affected(res sql.Result, op string) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n > 0, nil
}
