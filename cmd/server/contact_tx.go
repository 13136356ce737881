package main

import (
	"context"
	"database/sql"
	"time"

	contactservice "contactlink/internal/contact/service"
	contactstore "contactlink/internal/contact/store"
	dErrors "contactlink/pkg/domain-errors"
	txcontext "contactlink/pkg/platform/tx"
)

const defaultContactTxTimeout = 5 * time.Second

// contactPostgresTx runs cluster mutations inside one SQL transaction. The
// open transaction is also placed in the callback's context so the audit
// outbox store joins it; a rollback therefore erases the mutation and its
// audit entries together.
type contactPostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newContactPostgresTx(db *sql.DB) *contactPostgresTx {
	return &contactPostgresTx{db: db}
}

func (t *contactPostgresTx) RunInTx(ctx context.Context, fn func(txCtx context.Context, store contactservice.Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultContactTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, tx), contactstore.NewPostgresTx(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	return nil
}
