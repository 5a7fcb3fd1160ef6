package contributions

import (
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/aayushkdev/vellorun-backend/internal/app/models"
	database "github.com/aayushkdev/vellorun-backend/internal/db"
	"github.com/aayushkdev/vellorun-backend/internal/pkg/dbctx"
)

const columns = `id, suggested_by, name, type, description, category_id, coord_x, coord_y, tags,
	status, admin_notes, created_place_id, created_at, updated_at`

// columnNames lists the result columns of columns, in order.
var columnNames = []string{
	"id", "suggested_by", "name", "type", "description", "category_id", "coord_x", "coord_y", "tags",
	"status", "admin_notes", "created_place_id", "created_at", "updated_at",
}

var _ Repository = (*RepositoryImpl)(nil)

type Repository interface {
	Create(dbc dbctx.Context, ps models.PlaceSuggestion) (*models.PlaceSuggestion, error)
	Get(dbc dbctx.Context, id int64) (*models.PlaceSuggestion, error)
	// GetForUpdate locks the row until the surrounding transaction ends.
	GetForUpdate(dbc dbctx.Context, id int64) (*models.PlaceSuggestion, error)
	List(dbc dbctx.Context, filter models.PlaceSuggestionFilter) ([]models.PlaceSuggestion, error)
	Update(dbc dbctx.Context, id int64, req models.UpdatePlaceSuggestionRequest) (*models.PlaceSuggestion, error)
	Delete(dbc dbctx.Context, id int64) error
	SetStatus(dbc dbctx.Context, id int64, status models.PlaceSuggestionStatus, notes string, createdPlaceID *int64) (*models.PlaceSuggestion, error)
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

func scan(row database.Scanner) (*models.PlaceSuggestion, error) {
	var ps models.PlaceSuggestion
	err := row.Scan(&ps.ID, &ps.SuggestedBy, &ps.Name, &ps.Type, &ps.Description, &ps.CategoryID,
		&ps.CoordX, &ps.CoordY, &ps.Tags, &ps.Status, &ps.AdminNotes, &ps.CreatedPlaceID,
		&ps.CreatedAt, &ps.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if ps.Tags == nil {
		ps.Tags = []string{}
	}
	return &ps, nil
}

func (r *RepositoryImpl) one(dbc dbctx.Context, id int64, query string, args ...any) (*models.PlaceSuggestion, error) {
	ps, err := scan(r.conn(dbc).QueryRow(dbc.Ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("place suggestion %d: %w", id, models.ErrNotFound)
		}
		r.logger.Error("Failed to load place suggestion", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to load place suggestion: %w", err)
	}
	return ps, nil
}

func (r *RepositoryImpl) Create(dbc dbctx.Context, ps models.PlaceSuggestion) (*models.PlaceSuggestion, error) {
	tags := ps.Tags
	if tags == nil {
		tags = []string{}
	}
	query := `
        INSERT INTO place_suggestions (suggested_by, name, type, description, category_id, coord_x, coord_y, tags)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING ` + columns
	created, err := scan(r.conn(dbc).QueryRow(dbc.Ctx, query,
		ps.SuggestedBy, ps.Name, string(ps.Type), ps.Description, ps.CategoryID, ps.CoordX, ps.CoordY, tags))
	if err != nil {
		r.logger.Error("Failed to create place suggestion", zap.String("name", ps.Name), zap.Error(err))
		return nil, fmt.Errorf("failed to create place suggestion: %w", err)
	}
	return created, nil
}

func (r *RepositoryImpl) Get(dbc dbctx.Context, id int64) (*models.PlaceSuggestion, error) {
	return r.one(dbc, id, `SELECT `+columns+` FROM place_suggestions WHERE id = $1`, id)
}

func (r *RepositoryImpl) GetForUpdate(dbc dbctx.Context, id int64) (*models.PlaceSuggestion, error) {
	return r.one(dbc, id, `SELECT `+columns+` FROM place_suggestions WHERE id = $1 FOR UPDATE`, id)
}

func (r *RepositoryImpl) List(dbc dbctx.Context, f models.PlaceSuggestionFilter) ([]models.PlaceSuggestion, error) {
	builder := r.psql.Select(columns).From("place_suggestions").OrderBy("created_at DESC", "id DESC")
	if f.SuggestedBy != nil {
		builder = builder.Where(sq.Eq{"suggested_by": *f.SuggestedBy})
	}
	if f.Status != "" {
		builder = builder.Where(sq.Eq{"status": string(f.Status)})
	}
	if f.Limit > 0 {
		builder = builder.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		builder = builder.Offset(uint64(f.Offset))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build place suggestion query: %w", err)
	}
	rows, err := r.conn(dbc).Query(dbc.Ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list place suggestions", zap.Error(err))
		return nil, fmt.Errorf("failed to list place suggestions: %w", err)
	}
	defer rows.Close()

	out := []models.PlaceSuggestion{}
	for rows.Next() {
		ps, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan place suggestion: %w", err)
		}
		out = append(out, *ps)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating place suggestions: %w", err)
	}
	return out, nil
}

func (r *RepositoryImpl) Update(dbc dbctx.Context, id int64, req models.UpdatePlaceSuggestionRequest) (*models.PlaceSuggestion, error) {
	builder := r.psql.Update("place_suggestions").Where(sq.Eq{"id": id})
	changed := false
	set := func(col string, v any) {
		builder = builder.Set(col, v)
		changed = true
	}
	if req.Name != nil {
		set("name", *req.Name)
	}
	if req.Type != nil {
		set("type", string(*req.Type))
	}
	if req.Description != nil {
		set("description", *req.Description)
	}
	if req.CategoryID != nil {
		set("category_id", *req.CategoryID)
	}
	if req.CoordX != nil {
		set("coord_x", *req.CoordX)
	}
	if req.CoordY != nil {
		set("coord_y", *req.CoordY)
	}
	if req.Tags != nil {
		set("tags", req.Tags)
	}
	if !changed {
		return r.Get(dbc, id)
	}

	query, args, err := builder.Set("updated_at", sq.Expr("NOW()")).Suffix("RETURNING " + columns).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build place suggestion update: %w", err)
	}
	return r.one(dbc, id, query, args...)
}

func (r *RepositoryImpl) Delete(dbc dbctx.Context, id int64) error {
	tag, err := r.conn(dbc).Exec(dbc.Ctx, `DELETE FROM place_suggestions WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete place suggestion", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete place suggestion: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("place suggestion %d: %w", id, models.ErrNotFound)
	}
	return nil
}

// SetStatus records an admin decision. A nil createdPlaceID keeps the
// current value.
func (r *RepositoryImpl) SetStatus(dbc dbctx.Context, id int64, status models.PlaceSuggestionStatus, notes string, createdPlaceID *int64) (*models.PlaceSuggestion, error) {
	query := `
        UPDATE place_suggestions
        SET status = $2, admin_notes = $3, created_place_id = COALESCE($4, created_place_id), updated_at = NOW()
        WHERE id = $1
        RETURNING ` + columns
	return r.one(dbc, id, query, id, string(status), notes, createdPlaceID)
}
