package places

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

var _ Repository = (*RepositoryImpl)(nil)

type Repository interface {
	List(dbc dbctx.Context, filter models.PlaceFilter) ([]models.Place, error)
	Get(dbc dbctx.Context, id int64) (*models.Place, error)
	Create(dbc dbctx.Context, p models.Place) (*models.Place, error)
	Update(dbc dbctx.Context, id int64, req models.UpdatePlaceRequest) (*models.Place, error)
	Delete(dbc dbctx.Context, id int64) error
	SetApproved(dbc dbctx.Context, id int64) error

	ListCategories(dbc dbctx.Context) ([]models.Category, error)
	GetCategory(dbc dbctx.Context, id int64) (*models.Category, error)

	// SavePlace reports false when the place was already saved.
	SavePlace(dbc dbctx.Context, userID uuid.UUID, placeID int64) (bool, error)
	// UnsavePlace reports false when nothing was removed.
	UnsavePlace(dbc dbctx.Context, userID uuid.UUID, placeID int64) (bool, error)
	SavedPlaces(dbc dbctx.Context, userID uuid.UUID) ([]models.SavedPlace, error)
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

func (r *RepositoryImpl) List(dbc dbctx.Context, f models.PlaceFilter) ([]models.Place, error) {
	builder := r.psql.Select(database.PlaceColumns).From(database.PlaceFrom).OrderBy("p.id")

	if f.Type != "" {
		builder = builder.Where(sq.Eq{"p.type": string(f.Type)})
	}
	if f.Name != "" {
		builder = builder.Where(sq.ILike{"p.name": "%" + f.Name + "%"})
	}
	if f.Visits != nil {
		builder = builder.Where(sq.Eq{"p.visits": *f.Visits})
	}
	if f.VisitsGTE != nil {
		builder = builder.Where(sq.GtOrEq{"p.visits": *f.VisitsGTE})
	}
	if f.VisitsLTE != nil {
		builder = builder.Where(sq.LtOrEq{"p.visits": *f.VisitsLTE})
	}
	if f.CategoryID != nil {
		builder = builder.Where(sq.Eq{"p.category_id": *f.CategoryID})
	}
	if f.CoordX != nil {
		builder = builder.Where(sq.Eq{"p.coord_x": *f.CoordX})
	}
	if f.CoordY != nil {
		builder = builder.Where(sq.Eq{"p.coord_y": *f.CoordY})
	}
	if f.ApprovedOnly {
		if f.VisibleTo != nil {
			builder = builder.Where(sq.Or{sq.Eq{"p.approved": true}, sq.Eq{"p.created_by": *f.VisibleTo}})
		} else {
			builder = builder.Where(sq.Eq{"p.approved": true})
		}
	}
	if f.Limit > 0 {
		builder = builder.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		builder = builder.Offset(uint64(f.Offset))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build place list query: %w", err)
	}

	rows, err := r.conn(dbc).Query(dbc.Ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list places", zap.Error(err))
		return nil, fmt.Errorf("failed to list places: %w", err)
	}
	defer rows.Close()

	places := []models.Place{}
	for rows.Next() {
		p, err := database.ScanPlace(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan place: %w", err)
		}
		places = append(places, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating place rows: %w", err)
	}
	return places, nil
}

func (r *RepositoryImpl) Get(dbc dbctx.Context, id int64) (*models.Place, error) {
	query := `SELECT ` + database.PlaceColumns + ` FROM ` + database.PlaceFrom + ` WHERE p.id = $1`
	p, err := database.ScanPlace(r.conn(dbc).QueryRow(dbc.Ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("place %d: %w", id, models.ErrNotFound)
		}
		r.logger.Error("Failed to get place", zap.Int64("placeID", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get place: %w", err)
	}

	images, err := r.images(dbc, id)
	if err != nil {
		return nil, err
	}
	p.Images = images
	return &p, nil
}

func (r *RepositoryImpl) images(dbc dbctx.Context, placeID int64) ([]string, error) {
	rows, err := r.conn(dbc).Query(dbc.Ctx, `SELECT image_url FROM place_images WHERE place_id = $1 ORDER BY id`, placeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load place images: %w", err)
	}
	images, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan place images: %w", err)
	}
	return images, nil
}

// Create inserts the place and its images. Callers wanting atomicity pass a
// transaction in dbc.
func (r *RepositoryImpl) Create(dbc dbctx.Context, p models.Place) (*models.Place, error) {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}

	var id int64
	err := r.conn(dbc).QueryRow(dbc.Ctx, `
        INSERT INTO places (created_by, name, type, description, category_id, coord_x, coord_y, level, xp_reward, approved, tags)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING id`,
		p.CreatedBy, p.Name, string(p.Type), p.Description, p.CategoryID, p.CoordX, p.CoordY,
		p.Level, p.XPReward, p.Approved, tags,
	).Scan(&id)
	if err != nil {
		r.logger.Error("Failed to create place", zap.String("name", p.Name), zap.Error(err))
		return nil, fmt.Errorf("failed to create place: %w", err)
	}

	for _, url := range p.Images {
		if _, err := r.conn(dbc).Exec(dbc.Ctx,
			`INSERT INTO place_images (place_id, image_url) VALUES ($1, $2)`, id, url); err != nil {
			return nil, fmt.Errorf("failed to add place image: %w", err)
		}
	}
	return r.Get(dbc, id)
}

func (r *RepositoryImpl) Update(dbc dbctx.Context, id int64, req models.UpdatePlaceRequest) (*models.Place, error) {
	builder := r.psql.Update("places").Where(sq.Eq{"id": id})
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
	if req.Level != nil {
		set("level", *req.Level)
	}
	if req.XPReward != nil {
		set("xp_reward", *req.XPReward)
	}
	if req.Tags != nil {
		set("tags", req.Tags)
	}
	if !changed {
		return r.Get(dbc, id)
	}
	builder = builder.Set("updated_at", sq.Expr("NOW()"))

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build place update: %w", err)
	}
	tag, err := r.conn(dbc).Exec(dbc.Ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to update place", zap.Int64("placeID", id), zap.Error(err))
		return nil, fmt.Errorf("failed to update place: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("place %d: %w", id, models.ErrNotFound)
	}
	return r.Get(dbc, id)
}

func (r *RepositoryImpl) Delete(dbc dbctx.Context, id int64) error {
	tag, err := r.conn(dbc).Exec(dbc.Ctx, `DELETE FROM places WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete place", zap.Int64("placeID", id), zap.Error(err))
		return fmt.Errorf("failed to delete place: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("place %d: %w", id, models.ErrNotFound)
	}
	return nil
}

func (r *RepositoryImpl) SetApproved(dbc dbctx.Context, id int64) error {
	tag, err := r.conn(dbc).Exec(dbc.Ctx, `UPDATE places SET approved = TRUE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to approve place: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("place %d: %w", id, models.ErrNotFound)
	}
	return nil
}

func (r *RepositoryImpl) ListCategories(dbc dbctx.Context) ([]models.Category, error) {
	rows, err := r.conn(dbc).Query(dbc.Ctx,
		`SELECT id, name, icon, description, sort_order FROM categories ORDER BY sort_order, name`)
	if err != nil {
		r.logger.Error("Failed to list categories", zap.Error(err))
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	categories, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Category, error) {
		var c models.Category
		err := row.Scan(&c.ID, &c.Name, &c.Icon, &c.Description, &c.SortOrder)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan categories: %w", err)
	}
	return categories, nil
}

func (r *RepositoryImpl) GetCategory(dbc dbctx.Context, id int64) (*models.Category, error) {
	var c models.Category
	err := r.conn(dbc).QueryRow(dbc.Ctx,
		`SELECT id, name, icon, description, sort_order FROM categories WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.Icon, &c.Description, &c.SortOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("category %d: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &c, nil
}

func (r *RepositoryImpl) SavePlace(dbc dbctx.Context, userID uuid.UUID, placeID int64) (bool, error) {
	tag, err := r.conn(dbc).Exec(dbc.Ctx, `
        INSERT INTO saved_places (user_id, place_id) VALUES ($1, $2)
        ON CONFLICT ON CONSTRAINT uq_saved_places_user_place DO NOTHING`, userID, placeID)
	if err != nil {
		r.logger.Error("Failed to save place", zap.Int64("placeID", placeID), zap.Error(err))
		return false, fmt.Errorf("failed to save place: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *RepositoryImpl) UnsavePlace(dbc dbctx.Context, userID uuid.UUID, placeID int64) (bool, error) {
	tag, err := r.conn(dbc).Exec(dbc.Ctx,
		`DELETE FROM saved_places WHERE user_id = $1 AND place_id = $2`, userID, placeID)
	if err != nil {
		return false, fmt.Errorf("failed to unsave place: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *RepositoryImpl) SavedPlaces(dbc dbctx.Context, userID uuid.UUID) ([]models.SavedPlace, error) {
	query := `SELECT s.id, s.user_id, s.saved_at, ` + database.PlaceColumns + `
        FROM saved_places s
        JOIN places p ON p.id = s.place_id
        LEFT JOIN categories c ON c.id = p.category_id
        WHERE s.user_id = $1
        ORDER BY s.saved_at DESC`

	rows, err := r.conn(dbc).Query(dbc.Ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to list saved places", zap.Error(err))
		return nil, fmt.Errorf("failed to list saved places: %w", err)
	}
	defer rows.Close()

	saved := []models.SavedPlace{}
	for rows.Next() {
		var sp models.SavedPlace
		p := &sp.Place
		err := rows.Scan(&sp.ID, &sp.UserID, &sp.SavedAt,
			&p.ID, &p.CreatedBy, &p.Name, &p.Type, &p.Description, &p.CategoryID, &p.CategoryName,
			&p.CoordX, &p.CoordY, &p.Visits, &p.Level, &p.XPReward, &p.Approved, &p.Tags, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan saved place: %w", err)
		}
		if p.Tags == nil {
			p.Tags = []string{}
		}
		saved = append(saved, sp)
	}
	return saved, rows.Err()
}
