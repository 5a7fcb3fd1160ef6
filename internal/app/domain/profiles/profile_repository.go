package profiles

import (
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/aayushkdev/vellorun-backend/internal/app/models"
	database "github.com/aayushkdev/vellorun-backend/internal/db"
	"github.com/aayushkdev/vellorun-backend/internal/pkg/dbctx"
)

const userColumns = `id, email, username, avatar, xp, level, badges, visible, online,
	coord_x, coord_y, is_admin, created_at, updated_at`

var userColumnNames = []string{
	"id", "email", "username", "avatar", "xp", "level", "badges", "visible", "online",
	"coord_x", "coord_y", "is_admin", "created_at", "updated_at",
}

var _ Repository = (*RepositoryImpl)(nil)

type Repository interface {
	// EnsureUser creates the user on first sight and refreshes the fields
	// owned by the identity provider afterwards.
	EnsureUser(dbc dbctx.Context, identity models.Identity) (*models.User, error)
	GetUser(dbc dbctx.Context, id uuid.UUID) (*models.User, error)
	UpdateProfile(dbc dbctx.Context, id uuid.UUID, params models.UpdateProfileParams) (*models.User, error)
	VisitCount(dbc dbctx.Context, id uuid.UUID) (int, error)
	SavedPlaceCount(dbc dbctx.Context, id uuid.UUID) (int, error)
}

type RepositoryImpl struct {
	logger *zap.Logger
	pgpool database.Querier
	psql   sq.StatementBuilderType
}

func NewRepository(pgpool database.Querier, logger *zap.Logger) *RepositoryImpl {
	return &RepositoryImpl{
		logger: logger,
		pgpool: pgpool,
		psql:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *RepositoryImpl) conn(dbc dbctx.Context) database.Querier {
	return database.Conn(r.pgpool, dbc)
}

func scanUser(row database.Scanner) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.Avatar, &u.XP, &u.Level, &u.Badges, &u.Visible,
		&u.Online, &u.CoordX, &u.CoordY, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if u.Badges == nil {
		u.Badges = []string{}
	}
	return &u, nil
}

func (r *RepositoryImpl) user(dbc dbctx.Context, id uuid.UUID, query string, args ...any) (*models.User, error) {
	u, err := scanUser(r.conn(dbc).QueryRow(dbc.Ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", id, models.ErrNotFound)
		}
		r.logger.Error("Failed to load user", zap.String("userID", id.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return u, nil
}

func (r *RepositoryImpl) EnsureUser(dbc dbctx.Context, identity models.Identity) (*models.User, error) {
	query := `
        INSERT INTO users (id, email, username, is_admin)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (id) DO UPDATE
        SET email = EXCLUDED.email,
            is_admin = EXCLUDED.is_admin,
            username = CASE WHEN users.username = '' THEN EXCLUDED.username ELSE users.username END
        RETURNING ` + userColumns
	return r.user(dbc, identity.UserID, query, identity.UserID, identity.Email, identity.Username, identity.IsAdmin)
}

func (r *RepositoryImpl) GetUser(dbc dbctx.Context, id uuid.UUID) (*models.User, error) {
	return r.user(dbc, id, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *RepositoryImpl) UpdateProfile(dbc dbctx.Context, id uuid.UUID, p models.UpdateProfileParams) (*models.User, error) {
	builder := r.psql.Update("users").Where(sq.Eq{"id": id})
	changed := false
	set := func(col string, v any) {
		builder = builder.Set(col, v)
		changed = true
	}
	if p.Username != nil {
		set("username", *p.Username)
	}
	if p.Avatar != nil {
		set("avatar", *p.Avatar)
	}
	if p.Visible != nil {
		set("visible", *p.Visible)
	}
	if p.Online != nil {
		set("online", *p.Online)
	}
	if p.CoordX != nil {
		set("coord_x", *p.CoordX)
	}
	if p.CoordY != nil {
		set("coord_y", *p.CoordY)
	}
	if !changed {
		return r.GetUser(dbc, id)
	}

	query, args, err := builder.Set("updated_at", sq.Expr("NOW()")).Suffix("RETURNING " + userColumns).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build profile update: %w", err)
	}
	return r.user(dbc, id, query, args...)
}

func (r *RepositoryImpl) count(dbc dbctx.Context, query string, id uuid.UUID) (int, error) {
	var n int
	if err := r.conn(dbc).QueryRow(dbc.Ctx, query, id).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count: %w", err)
	}
	return n, nil
}

func (r *RepositoryImpl) VisitCount(dbc dbctx.Context, id uuid.UUID) (int, error) {
	return r.count(dbc, `SELECT COUNT(*) FROM visits WHERE user_id = $1`, id)
}

func (r *RepositoryImpl) SavedPlaceCount(dbc dbctx.Context, id uuid.UUID) (int, error) {
	return r.count(dbc, `SELECT COUNT(*) FROM saved_places WHERE user_id = $1`, id)
}
