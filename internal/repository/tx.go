package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Transactor runs a unit of work against stores bound to one transaction.
type Transactor interface {
	InTx(ctx context.Context, fn func(users UserRepository, tokens RefreshTokenRepository) error) error
}

type transactor struct {
	db DB
}

// NewTransactor returns a Postgres-backed Transactor.
func NewTransactor(db DB) Transactor {
	return &transactor{db: db}
}

// InTx commits when fn returns nil and rolls back otherwise.
func (t *transactor) InTx(ctx context.Context, fn func(users UserRepository, tokens RefreshTokenRepository) error) error {
	return withTx(ctx, t.db, "tx", func(tx pgx.Tx) error {
		return fn(&userRepository{db: tx}, &refreshTokenRepository{db: tx})
	})
}

func withTx(ctx context.Context, db DB, name string, fn func(tx pgx.Tx) error) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin %s: %w", name, err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit %s: %w", name, err)
	}
	return nil
}
