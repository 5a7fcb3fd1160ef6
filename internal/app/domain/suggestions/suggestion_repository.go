package suggestions

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

// Repository persists suggestions and the per user interaction records.
type Repository interface {
	UserLevel(dbc dbctx.Context, userID uuid.UUID) (int, error)

	// BestCandidate returns nil when nothing qualifies.
	BestCandidate(dbc dbctx.Context, userID uuid.UUID, level int) (*models.Suggestion, error)
	MarkShown(dbc dbctx.Context, userID uuid.UUID, suggestionID int64) (*models.UserSuggestion, error)
	EnsureUserSuggestion(dbc dbctx.Context, userID uuid.UUID, suggestionID int64) (*models.UserSuggestion, error)
	GetUserSuggestion(dbc dbctx.Context, userID uuid.UUID, suggestionID int64) (*models.UserSuggestion, error)
	SetDismissed(dbc dbctx.Context, userID uuid.UUID, suggestionID int64) (*models.UserSuggestion, error)
	SetFollowed(dbc dbctx.Context, userID uuid.UUID, suggestionID int64) (*models.UserSuggestion, error)

	ApprovedPlacesAtLevel(dbc dbctx.Context, level int) ([]models.Place, error)
	UnvisitedPlaces(dbc dbctx.Context, userID uuid.UUID, maxLevel int, categoryID *int64) ([]models.Place, error)
	GetCategory(dbc dbctx.Context, id int64) (*models.Category, error)

	ActiveForPlace(dbc dbctx.Context, placeID int64, trigger models.TriggerType, maxLevel int) ([]models.Suggestion, error)
	FindForPlace(dbc dbctx.Context, placeID int64, trigger models.TriggerType, typeID *int64) (*models.Suggestion, error)
	EnsureType(dbc dbctx.Context, name, description string) (int64, error)

	Create(dbc dbctx.Context, s models.Suggestion) (*models.Suggestion, error)
	Update(dbc dbctx.Context, id int64, req models.UpdateSuggestionRequest) (*models.Suggestion, error)
	GetByID(dbc dbctx.Context, id int64) (*models.Suggestion, error)
	List(dbc dbctx.Context, filter ListFilter) ([]models.Suggestion, error)
}

// ListFilter narrows the admin listing.
type ListFilter struct {
	Active      *bool
	TriggerType models.TriggerType
	PlaceID     *int64
	Limit       uint64
	Offset      uint64
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

const suggestionColumns = `s.id, s.place_id, p.name, s.type_id, s.message, s.trigger_type, s.min_user_level, s.priority, s.active, s.created_at`

const userSuggestionColumns = `id, user_id, suggestion_id, is_shown, is_dismissed, is_followed, created_at, shown_at, dismissed_at, followed_at`

func scanSuggestion(row database.Scanner) (models.Suggestion, error) {
	var s models.Suggestion
	err := row.Scan(&s.ID, &s.PlaceID, &s.PlaceName, &s.TypeID, &s.Message, &s.TriggerType,
		&s.MinUserLevel, &s.Priority, &s.Active, &s.CreatedAt)
	return s, err
}

func scanUserSuggestion(row database.Scanner) (models.UserSuggestion, error) {
	var us models.UserSuggestion
	err := row.Scan(&us.ID, &us.UserID, &us.SuggestionID, &us.Shown, &us.Dismissed, &us.Followed,
		&us.CreatedAt, &us.ShownAt, &us.DismissedAt, &us.FollowedAt)
	return us, err
}

func (r *RepositoryImpl) UserLevel(dbc dbctx.Context, userID uuid.UUID) (int, error) {
	var level int
	err := r.conn(dbc).QueryRow(dbc.Ctx, `SELECT level FROM users WHERE id = $1`, userID).Scan(&level)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("user %s: %w", userID, models.ErrNotFound)
		}
		r.logger.Error("Failed to load user level", zap.Error(err))
		return 0, fmt.Errorf("failed to load user level: %w", err)
	}
	return level, nil
}

// BestCandidate ranks by priority, breaking ties on the lowest id.
func (r *RepositoryImpl) BestCandidate(dbc dbctx.Context, userID uuid.UUID, level int) (*models.Suggestion, error) {
	query := `
        SELECT ` + suggestionColumns + `
        FROM suggestions s
        JOIN places p ON p.id = s.place_id
        WHERE s.active = TRUE
          AND s.min_user_level <= $2
          AND NOT EXISTS (SELECT 1 FROM visits v WHERE v.user_id = $1 AND v.place_id = s.place_id)
          AND NOT EXISTS (
              SELECT 1 FROM user_suggestions us
              WHERE us.user_id = $1 AND us.suggestion_id = s.id AND us.is_dismissed = TRUE
          )
        ORDER BY s.priority DESC, s.id ASC
        LIMIT 1`

	s, err := scanSuggestion(r.conn(dbc).QueryRow(dbc.Ctx, query, userID, level))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to select best suggestion", zap.Error(err))
		return nil, fmt.Errorf("failed to select best suggestion: %w", err)
	}
	return &s, nil
}

func (r *RepositoryImpl) MarkShown(dbc dbctx.Context, userID uuid.UUID, suggestionID int64) (*models.UserSuggestion, error) {
	query := `
        INSERT INTO user_suggestions (user_id, suggestion_id, is_shown, shown_at)
        VALUES ($1, $2, TRUE, NOW())
        ON CONFLICT (user_id, suggestion_id)
        DO UPDATE SET is_shown = TRUE, shown_at = NOW()
        RETURNING ` + userSuggestionColumns

	us, err := scanUserSuggestion(r.conn(dbc).QueryRow(dbc.Ctx, query, userID, suggestionID))
	if err != nil {
		r.logger.Error("Failed to mark suggestion shown", zap.Int64("suggestion_id", suggestionID), zap.Error(err))
		return nil, fmt.Errorf("failed to mark suggestion shown: %w", err)
	}
	return &us, nil
}

// EnsureUserSuggestion gets or creates the record, leaving existing flags untouched.
func (r *RepositoryImpl) EnsureUserSuggestion(dbc dbctx.Context, userID uuid.UUID, suggestionID int64) (*models.UserSuggestion, error) {
	query := `
        INSERT INTO user_suggestions (user_id, suggestion_id, is_shown)
        VALUES ($1, $2, FALSE)
        ON CONFLICT (user_id, suggestion_id)
        DO UPDATE SET user_id = EXCLUDED.user_id
        RETURNING ` + userSuggestionColumns

	us, err := scanUserSuggestion(r.conn(dbc).QueryRow(dbc.Ctx, query, userID, suggestionID))
	if err != nil {
		r.logger.Error("Failed to ensure user suggestion", zap.Int64("suggestion_id", suggestionID), zap.Error(err))
		return nil, fmt.Errorf("failed to ensure user suggestion: %w", err)
	}
	return &us, nil
}

func (r *RepositoryImpl) GetUserSuggestion(dbc dbctx.Context, userID uuid.UUID, suggestionID int64) (*models.UserSuggestion, error) {
	query := `SELECT ` + userSuggestionColumns + ` FROM user_suggestions WHERE user_id = $1 AND suggestion_id = $2`

	us, err := scanUserSuggestion(r.conn(dbc).QueryRow(dbc.Ctx, query, userID, suggestionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user suggestion %d: %w", suggestionID, models.ErrNotFound)
		}
		r.logger.Error("Failed to get user suggestion", zap.Error(err))
		return nil, fmt.Errorf("failed to get user suggestion: %w", err)
	}
	return &us, nil
}

func (r *RepositoryImpl) setFlag(dbc dbctx.Context, userID uuid.UUID, suggestionID int64, set string) (*models.UserSuggestion, error) {
	query := `UPDATE user_suggestions SET ` + set + ` WHERE user_id = $1 AND suggestion_id = $2 RETURNING ` + userSuggestionColumns

	us, err := scanUserSuggestion(r.conn(dbc).QueryRow(dbc.Ctx, query, userID, suggestionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user suggestion %d: %w", suggestionID, models.ErrNotFound)
		}
		r.logger.Error("Failed to update user suggestion", zap.Error(err))
		return nil, fmt.Errorf("failed to update user suggestion: %w", err)
	}
	return &us, nil
}

func (r *RepositoryImpl) SetDismissed(dbc dbctx.Context, userID uuid.UUID, suggestionID int64) (*models.UserSuggestion, error) {
	return r.setFlag(dbc, userID, suggestionID, "is_dismissed = TRUE, dismissed_at = COALESCE(dismissed_at, NOW())")
}

func (r *RepositoryImpl) SetFollowed(dbc dbctx.Context, userID uuid.UUID, suggestionID int64) (*models.UserSuggestion, error) {
	return r.setFlag(dbc, userID, suggestionID, "is_followed = TRUE, followed_at = COALESCE(followed_at, NOW())")
}

func (r *RepositoryImpl) queryPlaces(dbc dbctx.Context, query string, args ...any) ([]models.Place, error) {
	rows, err := r.conn(dbc).Query(dbc.Ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query places", zap.Error(err))
		return nil, fmt.Errorf("failed to query places: %w", err)
	}
	defer rows.Close()

	places := []models.Place{}
	for rows.Next() {
		p, err := database.ScanPlace(rows)
		if err != nil {
			r.logger.Error("Failed to scan place", zap.Error(err))
			return nil, fmt.Errorf("failed to scan place: %w", err)
		}
		places = append(places, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating place rows: %w", err)
	}
	return places, nil
}

func (r *RepositoryImpl) ApprovedPlacesAtLevel(dbc dbctx.Context, level int) ([]models.Place, error) {
	query := `SELECT ` + database.PlaceColumns + ` FROM ` + database.PlaceFrom + `
        WHERE p.approved = TRUE AND p.level = $1
        ORDER BY p.id`
	return r.queryPlaces(dbc, query, level)
}

// UnvisitedPlaces lists approved places unlocked at maxLevel that the user
// has not visited, optionally within one category.
func (r *RepositoryImpl) UnvisitedPlaces(dbc dbctx.Context, userID uuid.UUID, maxLevel int, categoryID *int64) ([]models.Place, error) {
	builder := r.psql.
		Select(database.PlaceColumns).
		From(database.PlaceFrom).
		Where(sq.Eq{"p.approved": true}).
		Where(sq.LtOrEq{"p.level": maxLevel}).
		Where("NOT EXISTS (SELECT 1 FROM visits v WHERE v.place_id = p.id AND v.user_id = ?)", userID).
		OrderBy("p.id")
	if categoryID != nil {
		builder = builder.Where(sq.Eq{"p.category_id": *categoryID})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build unvisited places query: %w", err)
	}
	return r.queryPlaces(dbc, query, args...)
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

func (r *RepositoryImpl) querySuggestions(dbc dbctx.Context, query string, args ...any) ([]models.Suggestion, error) {
	rows, err := r.conn(dbc).Query(dbc.Ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query suggestions", zap.Error(err))
		return nil, fmt.Errorf("failed to query suggestions: %w", err)
	}
	defer rows.Close()

	out := []models.Suggestion{}
	for rows.Next() {
		s, err := scanSuggestion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan suggestion: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating suggestion rows: %w", err)
	}
	return out, nil
}

func (r *RepositoryImpl) ActiveForPlace(dbc dbctx.Context, placeID int64, trigger models.TriggerType, maxLevel int) ([]models.Suggestion, error) {
	query := `SELECT ` + suggestionColumns + `
        FROM suggestions s JOIN places p ON p.id = s.place_id
        WHERE s.place_id = $1 AND s.trigger_type = $2 AND s.min_user_level <= $3 AND s.active = TRUE
        ORDER BY s.id`
	return r.querySuggestions(dbc, query, placeID, string(trigger), maxLevel)
}

// FindForPlace returns the oldest suggestion for the place with the given
// trigger and type, or nil.
func (r *RepositoryImpl) FindForPlace(dbc dbctx.Context, placeID int64, trigger models.TriggerType, typeID *int64) (*models.Suggestion, error) {
	query := `SELECT ` + suggestionColumns + `
        FROM suggestions s JOIN places p ON p.id = s.place_id
        WHERE s.place_id = $1 AND s.trigger_type = $2 AND s.type_id IS NOT DISTINCT FROM $3
        ORDER BY s.id
        LIMIT 1`

	s, err := scanSuggestion(r.conn(dbc).QueryRow(dbc.Ctx, query, placeID, string(trigger), typeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find suggestion: %w", err)
	}
	return &s, nil
}

func (r *RepositoryImpl) EnsureType(dbc dbctx.Context, name, description string) (int64, error) {
	var id int64
	err := r.conn(dbc).QueryRow(dbc.Ctx, `
        INSERT INTO suggestion_types (name, description) VALUES ($1, $2)
        ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
        RETURNING id`, name, description).Scan(&id)
	if err != nil {
		r.logger.Error("Failed to ensure suggestion type", zap.String("name", name), zap.Error(err))
		return 0, fmt.Errorf("failed to ensure suggestion type %q: %w", name, err)
	}
	return id, nil
}

func (r *RepositoryImpl) Create(dbc dbctx.Context, s models.Suggestion) (*models.Suggestion, error) {
	query := `
        WITH inserted AS (
            INSERT INTO suggestions (place_id, type_id, message, trigger_type, min_user_level, priority, active)
            VALUES ($1, $2, $3, $4, $5, $6, $7)
            RETURNING *
        )
        SELECT ` + suggestionColumns + ` FROM inserted s JOIN places p ON p.id = s.place_id`

	created, err := scanSuggestion(r.conn(dbc).QueryRow(dbc.Ctx, query,
		s.PlaceID, s.TypeID, s.Message, string(s.TriggerType), s.MinUserLevel, s.Priority, s.Active))
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, fmt.Errorf("place %d: %w", s.PlaceID, models.ErrNotFound)
		}
		r.logger.Error("Failed to create suggestion", zap.Int64("place_id", s.PlaceID), zap.Error(err))
		return nil, fmt.Errorf("failed to create suggestion: %w", err)
	}
	return &created, nil
}

func (r *RepositoryImpl) Update(dbc dbctx.Context, id int64, req models.UpdateSuggestionRequest) (*models.Suggestion, error) {
	builder := r.psql.Update("suggestions").Where(sq.Eq{"id": id})
	changed := false
	if req.Message != nil {
		builder = builder.Set("message", *req.Message)
		changed = true
	}
	if req.MinUserLevel != nil {
		builder = builder.Set("min_user_level", *req.MinUserLevel)
		changed = true
	}
	if req.Priority != nil {
		builder = builder.Set("priority", *req.Priority)
		changed = true
	}
	if req.Active != nil {
		builder = builder.Set("active", *req.Active)
		changed = true
	}
	if !changed {
		return r.GetByID(dbc, id)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build suggestion update: %w", err)
	}
	tag, err := r.conn(dbc).Exec(dbc.Ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to update suggestion", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to update suggestion: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("suggestion %d: %w", id, models.ErrNotFound)
	}
	return r.GetByID(dbc, id)
}

func (r *RepositoryImpl) GetByID(dbc dbctx.Context, id int64) (*models.Suggestion, error) {
	query := `SELECT ` + suggestionColumns + ` FROM suggestions s JOIN places p ON p.id = s.place_id WHERE s.id = $1`
	s, err := scanSuggestion(r.conn(dbc).QueryRow(dbc.Ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("suggestion %d: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get suggestion: %w", err)
	}
	return &s, nil
}

func (r *RepositoryImpl) List(dbc dbctx.Context, filter ListFilter) ([]models.Suggestion, error) {
	builder := r.psql.
		Select(suggestionColumns).
		From("suggestions s").
		Join("places p ON p.id = s.place_id").
		OrderBy("s.priority DESC", "s.id ASC")
	if filter.Active != nil {
		builder = builder.Where(sq.Eq{"s.active": *filter.Active})
	}
	if filter.TriggerType != "" {
		builder = builder.Where(sq.Eq{"s.trigger_type": string(filter.TriggerType)})
	}
	if filter.PlaceID != nil {
		builder = builder.Where(sq.Eq{"s.place_id": *filter.PlaceID})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		builder = builder.Offset(filter.Offset)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build suggestion list query: %w", err)
	}
	return r.querySuggestions(dbc, query, args...)
}
