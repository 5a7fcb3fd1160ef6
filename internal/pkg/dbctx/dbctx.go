package dbctx

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Context bundles a request context with an optional pgx transaction.
// Repositories run on Tx when it is set and on their pool otherwise.
type Context struct {
	Ctx context.Context
	Tx  pgx.Tx
}

// From wraps a plain context without a transaction.
func From(ctx context.Context) Context {
	return Context{Ctx: ctx}
}
