package store

import (
	"context"
	"database/sql"
	"fmt"

	txcontext "redwatch/pkg/platform/tx"
)

// TxRunner batches a unit of work into one transaction. The consumer wraps a
// whole page in it so all per-page mutations commit together.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// PageTx returns a TxRunner over the given database. Store methods called with
// the wrapped context join the transaction via the tx-in-context helper.
func PageTx(db *sql.DB) TxRunner {
	return func(ctx context.Context, fn func(ctx context.Context) error) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin page tx: %w", err)
		}
		if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit page tx: %w", err)
		}
		return nil
	}
}

// WithSavepoint runs fn inside a savepoint when ctx carries a transaction.
// A failed statement inside a Postgres transaction aborts every statement
// after it; rolling back to the savepoint instead confines the damage to fn,
// so one bad notice cannot take the rest of the page's mutations down with
// it. Without a transaction in ctx, fn runs directly.
func WithSavepoint(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, ok := txcontext.From(ctx)
	if !ok {
		return fn(ctx)
	}
	if _, err := tx.ExecContext(ctx, "SAVEPOINT notice_step"); err != nil {
		return fmt.Errorf("savepoint: %w", err)
	}
	if err := fn(ctx); err != nil {
		if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT notice_step"); rbErr != nil {
			return fmt.Errorf("%w (savepoint rollback: %v)", err, rbErr)
		}
		return err
	}
	if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT notice_step"); err != nil {
		return fmt.Errorf("release savepoint: %w", err)
	}
	return nil
}

// NoTx runs the work directly; in-memory stores have no transactions.
func NoTx() TxRunner {
	return func(ctx context.Context, fn func(ctx context.Context) error) error {
		return fn(ctx)
	}
}
