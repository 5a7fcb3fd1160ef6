package visits

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aayushkdev/vellorun-backend/internal/app/models"
	database "github.com/aayushkdev/vellorun-backend/internal/db"
	"github.com/aayushkdev/vellorun-backend/internal/db/dbtest"
	"github.com/aayushkdev/vellorun-backend/internal/pkg/dbctx"
)

func TestRepository_InsertVisit(t *testing.T) {
	userID := uuid.New()
	dbc := dbctx.Context{Ctx: context.Background()}

	tests := []struct {
		name    string
		expect  func(pgxmock.PgxPoolIface)
		want    bool
		wantErr bool
	}{
		{
			name: "inserted",
			expect: func(m pgxmock.PgxPoolIface) {
				m.ExpectExec(`INSERT INTO visits .+ON CONFLICT ON CONSTRAINT uq_visits_user_place DO NOTHING`).
					WithArgs(userID, int64(3)).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
			},
			want: true,
		},
		{
			name: "conflict ignored",
			expect: func(m pgxmock.PgxPoolIface) {
				m.ExpectExec(`INSERT INTO visits`).
					WithArgs(userID, int64(3)).
					WillReturnResult(pgxmock.NewResult("INSERT", 0))
			},
			want: false,
		},
		{
			name: "unique violation is not swallowed",
			expect: func(m pgxmock.PgxPoolIface) {
				m.ExpectExec(`INSERT INTO visits`).
					WithArgs(userID, int64(3)).
					WillReturnError(&pgconn.PgError{Code: "23505"})
			},
			wantErr: true,
		},
		{
			name: "other errors surface",
			expect: func(m pgxmock.PgxPoolIface) {
				m.ExpectExec(`INSERT INTO visits`).
					WithArgs(userID, int64(3)).
					WillReturnError(&pgconn.PgError{Code: "23503"})
			},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pool, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer pool.Close()
			tc.expect(pool)

			got, err := NewRepository(pool, zap.NewNop()).InsertVisit(dbc, userID, 3)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.want, got)
			}
			assert.NoError(t, pool.ExpectationsWereMet())
		})
	}
}

func TestRepository_GetPlace(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()
	dbc := dbctx.Context{Ctx: context.Background()}

	place := models.Place{ID: 3, Name: "Library", Type: models.PlaceTypeInside, Level: 1, XPReward: 20, Approved: true, Tags: []string{"quiet"}}
	pool.ExpectQuery(`FROM places p LEFT JOIN categories c ON c.id = p.category_id WHERE p.id = \$1`).
		WithArgs(int64(3)).
		WillReturnRows(pgxmock.NewRows(database.PlaceColumnNames).AddRow(dbtest.PlaceRow(place)...))
	pool.ExpectQuery(`WHERE p.id = \$1`).
		WithArgs(int64(4)).
		WillReturnRows(pgxmock.NewRows(database.PlaceColumnNames))

	repo := NewRepository(pool, zap.NewNop())
	got, err := repo.GetPlace(dbc, 3)
	require.NoError(t, err)
	assert.Equal(t, "Library", got.Name)
	assert.Equal(t, []string{"quiet"}, got.Tags)

	_, err = repo.GetPlace(dbc, 4)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestRepository_LockProgress(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()
	userID := uuid.New()

	pool.ExpectQuery(`SELECT xp, level, badges FROM users WHERE id = \$1 FOR UPDATE`).
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{"xp", "level", "badges"}).AddRow(120, 2, []string(nil)))

	got, err := NewRepository(pool, zap.NewNop()).LockProgress(dbctx.Context{Ctx: context.Background()}, userID)
	require.NoError(t, err)
	assert.Equal(t, &Progress{XP: 120, Level: 2, Badges: []string{}}, got)
}
