package database

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aayushkdev/vellorun-backend/internal/pkg/dbctx"
)

func TestTxManager_WithTx(t *testing.T) {
	ctx := context.Background()

	t.Run("commits on success", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()

		mockPool.ExpectBegin()
		mockPool.ExpectExec("UPDATE places").WithArgs(int64(1)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mockPool.ExpectCommit()

		m := NewTxManager(mockPool, zap.NewNop())
		err = m.WithTx(ctx, func(dbc dbctx.Context) error {
			require.NotNil(t, dbc.Tx)
			_, execErr := Conn(mockPool, dbc).Exec(dbc.Ctx, "UPDATE places SET visits = visits + 1 WHERE id = $1", int64(1))
			return execErr
		})
		assert.NoError(t, err)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("rolls back when the callback fails", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()

		mockPool.ExpectBegin()
		mockPool.ExpectRollback()

		boom := errors.New("boom")
		m := NewTxManager(mockPool, zap.NewNop())
		err = m.WithTx(ctx, func(dbc dbctx.Context) error { return boom })
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("begin failure is returned", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()

		mockPool.ExpectBegin().WillReturnError(errors.New("pool closed"))

		m := NewTxManager(mockPool, zap.NewNop())
		called := false
		err = m.WithTx(ctx, func(dbc dbctx.Context) error { called = true; return nil })
		assert.Error(t, err)
		assert.False(t, called)
	})
}

func TestConn_PrefersTransaction(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	assert.Equal(t, Querier(mockPool), Conn(mockPool, dbctx.From(context.Background())))
}

func TestIsForeignKeyViolation(t *testing.T) {
	assert.True(t, IsForeignKeyViolation(&pgconn.PgError{Code: "23503"}))
	assert.True(t, IsForeignKeyViolation(fmt.Errorf("create suggestion: %w", &pgconn.PgError{Code: "23503"})))
	assert.False(t, IsForeignKeyViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsForeignKeyViolation(errors.New("plain")))
	assert.False(t, IsForeignKeyViolation(nil))
}
