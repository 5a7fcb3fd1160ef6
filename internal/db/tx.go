package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/aayushkdev/vellorun-backend/internal/pkg/dbctx"
)

// Querier is the subset of pgx shared by pools, connections and transactions.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Pool is satisfied by *pgxpool.Pool and by pgxmock pools in tests.
type Pool interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Conn picks the transaction carried by dbc, falling back to pool.
func Conn(pool Querier, dbc dbctx.Context) Querier {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return pool
}

// TxRunner runs fn inside a transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(dbc dbctx.Context) error) error
}

var _ TxRunner = (*TxManager)(nil)

type TxManager struct {
	pool   Pool
	logger *zap.Logger
}

func NewTxManager(pool Pool, logger *zap.Logger) *TxManager {
	return &TxManager{pool: pool, logger: logger}
}

// WithTx commits when fn returns nil and rolls back otherwise.
func (m *TxManager) WithTx(ctx context.Context, fn func(dbc dbctx.Context) error) (err error) {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		m.logger.Error("Failed to begin transaction", zap.Error(err))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				m.logger.Warn("Failed to rollback transaction", zap.Error(rbErr))
			}
		}
	}()

	if err = fn(dbctx.Context{Ctx: ctx, Tx: tx}); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		m.logger.Error("Failed to commit transaction", zap.Error(err))
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

const foreignKeyViolation = "23503"

// IsForeignKeyViolation reports whether err carries SQLSTATE 23503, which
// means a referenced row does not exist.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation
}
