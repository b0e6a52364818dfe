package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/upb/todo-app/repositories"
	"go.uber.org/zap"
)

// Queryer is the subset of *sql.DB and *sql.Tx the repositories run statements on
type Queryer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type txKey struct{}

// TxManager opens transactions on the connection pool
type TxManager struct {
	db     *DB
	logger *zap.Logger
}

func NewTransactionManager(db *DB, logger *zap.Logger) repositories.TransactionManager {
	return &TxManager{db: db, logger: logger}
}

func (m *TxManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	sqlTx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &Tx{sqlTx: sqlTx, ctx: ctx, logger: m.logger}, nil
}

// InTransaction calls fn with ctx carrying the open transaction, so
// repositories that are not bound with WithTx still join it. Any error or
// panic from fn rolls back.
func (m *TxManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) (err error) {
	tx, err := m.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil {
			m.logger.Error("rollback failed", zap.Error(rbErr), zap.NamedError("cause", err))
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, tx), tx); err != nil {
		return err
	}
	return tx.Commit()
}

// Tx is a repositories.Transaction backed by *sql.Tx
type Tx struct {
	sqlTx  *sql.Tx
	ctx    context.Context
	logger *zap.Logger
}

func (t *Tx) Commit() error {
	if err := t.sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	t.logger.Debug("transaction committed")
	return nil
}

// Rollback is a no-op once the transaction has finished
func (t *Tx) Rollback() error {
	err := t.sqlTx.Rollback()
	switch {
	case err == nil:
		t.logger.Debug("transaction rolled back")
		return nil
	case errors.Is(err, sql.ErrTxDone):
		return nil
	default:
		return fmt.Errorf("rollback transaction: %w", err)
	}
}

func (t *Tx) Context() context.Context {
	return t.ctx
}

// queryer picks, in order: the transaction a repository was bound to, one
// carried by ctx, then the pool.
func queryer(ctx context.Context, db *DB, bound *sql.Tx) Queryer {
	if bound != nil {
		return bound
	}
	if tx, ok := ctx.Value(txKey{}).(*Tx); ok {
		return tx.sqlTx
	}
	return db.DB
}

// sqlTxOf unwraps a transaction opened by TxManager. Foreign implementations yield nil.
func sqlTxOf(tx repositories.Transaction) *sql.Tx {
	if t, ok := tx.(*Tx); ok {
		return t.sqlTx
	}
	return nil
}
