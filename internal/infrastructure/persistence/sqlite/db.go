// Package sqlite carries the unit-of-work for the workflow repositories. A
// write transaction travels in the context so every repository call made by
// one transition commits or rolls back together.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/service-workflow/internal/application/port"
)

type contextKey string

const txContextKey contextKey = "tx"

// Executor covers both *sql.DB and *sql.Tx
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// DB implements port.TransactionManager on top of a sqlite handle
type DB struct {
	*sql.DB
	logger *zap.Logger
}

// NewDB creates a transaction manager for sqlDB
func NewDB(sqlDB *sql.DB, logger *zap.Logger) *DB {
	return &DB{DB: sqlDB, logger: logger}
}

// WithTransaction runs fn inside one transaction. A call made while ctx
// already carries a transaction joins it instead of opening another.
func (db *DB) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if txFrom(ctx) != nil {
		return fn(ctx)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		db.logger.Error("Failed to begin transaction", zap.Error(err))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if p := recover(); p != nil {
			_ = tx.Rollback()
			db.logger.Error("Transition panicked, transaction rolled back", zap.Any("panic", p))
			panic(p)
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			db.logger.Error("Failed to roll back transaction", zap.Error(rbErr))
		}
	}()

	if err = fn(context.WithValue(ctx, txContextKey, tx)); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		db.logger.Error("Failed to commit transaction", zap.Error(err))
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return nil
}

// Conn returns the transaction carried by ctx, or db outside a transaction
func Conn(ctx context.Context, db *sql.DB) Executor {
	if tx := txFrom(ctx); tx != nil {
		return tx
	}
	return db
}

func txFrom(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txContextKey).(*sql.Tx)
	return tx
}

var _ port.TransactionManager = (*DB)(nil)
