package main

import (
	"context"
	"database/sql"
	"time"

	"recordshare/internal/platform/config"
	dErrors "recordshare/pkg/domain-errors"
	txcontext "recordshare/pkg/platform/tx"
)

const defaultRegistryTxTimeout = 5 * time.Second

// registrySQLTx runs registry check-then-act sequences in one database
// transaction. On PostgreSQL a transaction-scoped advisory lock on the key
// serializes work per caller across server instances. SQLite has a single
// writer, and database.Open makes its transactions BEGIN IMMEDIATE.
type registrySQLTx struct {
	db      *sql.DB
	driver  string
	timeout time.Duration
}

func newRegistrySQLTx(db *sql.DB, driver string, timeout time.Duration) *registrySQLTx {
	return &registrySQLTx{db: db, driver: driver, timeout: timeout}
}

func (t *registrySQLTx) RunInTx(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultRegistryTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	return txcontext.Run(ctx, t.db, func(ctx context.Context, tx *sql.Tx) error {
		if t.driver == config.DriverPostgres {
			if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
				return err
			}
		}
		return fn(ctx)
	})
}
