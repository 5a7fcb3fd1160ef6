package contributions

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aayushkdev/vellorun-backend/internal/app/models"
	"github.com/aayushkdev/vellorun-backend/internal/pkg/dbctx"
)

func row(id int64, by uuid.UUID, status models.PlaceSuggestionStatus, placeID *int64) []any {
	now := time.Now()
	return []any{id, by, "Rooftop", models.PlaceTypeOutside, "", (*int64)(nil), 1.0, 2.0, []string(nil),
		status, "", placeID, now, now}
}

func TestRepository_ListFilters(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()
	uid := uuid.New()

	pool.ExpectQuery(`SELECT .+ FROM place_suggestions WHERE suggested_by = \$1 AND status = \$2 ORDER BY created_at DESC, id DESC LIMIT 20`).
		WithArgs(uid, "pending").
		WillReturnRows(pgxmock.NewRows(columnNames).AddRow(row(1, uid, models.StatusPending, nil)...))

	got, err := NewRepository(pool, zap.NewNop()).List(dbctx.From(context.Background()),
		models.PlaceSuggestionFilter{SuggestedBy: &uid, Status: models.StatusPending, Limit: 20})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{}, got[0].Tags)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestRepository_SetStatus(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()
	uid := uuid.New()
	placeID := int64(40)

	pool.ExpectQuery(`UPDATE place_suggestions\s+SET status = \$2, admin_notes = \$3, created_place_id = COALESCE\(\$4, created_place_id\)`).
		WithArgs(int64(1), "implemented", "done", &placeID).
		WillReturnRows(pgxmock.NewRows(columnNames).AddRow(row(1, uid, models.StatusImplemented, &placeID)...))
	pool.ExpectQuery(`UPDATE place_suggestions`).
		WithArgs(int64(2), "rejected", "", (*int64)(nil)).
		WillReturnRows(pgxmock.NewRows(columnNames))

	repo := NewRepository(pool, zap.NewNop())
	got, err := repo.SetStatus(dbctx.From(context.Background()), 1, models.StatusImplemented, "done", &placeID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusImplemented, got.Status)
	assert.Equal(t, &placeID, got.CreatedPlaceID)

	_, err = repo.SetStatus(dbctx.From(context.Background()), 2, models.StatusRejected, "", nil)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestRepository_UpdateReturnsRow(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()
	uid := uuid.New()
	name := "Sky deck"

	pool.ExpectQuery(`UPDATE place_suggestions SET name = \$1, updated_at = NOW\(\) WHERE id = \$2 RETURNING`).
		WithArgs(name, int64(1)).
		WillReturnRows(pgxmock.NewRows(columnNames).AddRow(row(1, uid, models.StatusPending, nil)...))

	_, err = NewRepository(pool, zap.NewNop()).Update(dbctx.From(context.Background()), 1,
		models.UpdatePlaceSuggestionRequest{Name: &name})
	require.NoError(t, err)
	assert.NoError(t, pool.ExpectationsWereMet())
}
