// Package dbtest holds helpers shared by repository and service tests.
package dbtest

import (
	"context"

	"github.com/aayushkdev/vellorun-backend/internal/app/models"
	"github.com/aayushkdev/vellorun-backend/internal/pkg/dbctx"
)

// FakeTx runs fn without a transaction and counts the calls.
type FakeTx struct {
	Calls int
}

func (f *FakeTx) WithTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	f.Calls++
	return fn(dbctx.Context{Ctx: ctx})
}

// PlaceRow returns p as values ordered like database.PlaceColumnNames.
func PlaceRow(p models.Place) []any {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	return []any{
		p.ID, p.CreatedBy, p.Name, p.Type, p.Description, p.CategoryID, p.CategoryName,
		p.CoordX, p.CoordY, p.Visits, p.Level, p.XPReward, p.Approved, tags, p.CreatedAt, p.UpdatedAt,
	}
}
