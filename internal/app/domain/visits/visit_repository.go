package visits

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/aayushkdev/vellorun-backend/internal/app/domain/badges"
	"github.com/aayushkdev/vellorun-backend/internal/app/models"
	database "github.com/aayushkdev/vellorun-backend/internal/db"
	"github.com/aayushkdev/vellorun-backend/internal/pkg/dbctx"
)

var _ Repository = (*RepositoryImpl)(nil)

// Progress is the gamification state stored on the user row.
type Progress struct {
	XP     int
	Level  int
	Badges []string
}

type Repository interface {
	GetPlace(dbc dbctx.Context, placeID int64) (*models.Place, error)
	VisitExists(dbc dbctx.Context, userID uuid.UUID, placeID int64) (bool, error)
	// InsertVisit reports false when the visit already existed.
	InsertVisit(dbc dbctx.Context, userID uuid.UUID, placeID int64) (bool, error)
	IncrementPlaceVisits(dbc dbctx.Context, placeID int64) (int, error)
	// LockProgress reads the user's progress with a row lock.
	LockProgress(dbc dbctx.Context, userID uuid.UUID) (*Progress, error)
	SaveProgress(dbc dbctx.Context, userID uuid.UUID, p Progress) error
	VisitedPlaces(dbc dbctx.Context, userID uuid.UUID) ([]badges.VisitedPlace, error)
	History(dbc dbctx.Context, userID uuid.UUID) ([]models.Visit, error)
}

type RepositoryImpl struct {
	logger *zap.Logger
	pgpool database.Querier
}

func NewRepository(pgpool database.Querier, logger *zap.Logger) *RepositoryImpl {
	return &RepositoryImpl{logger: logger, pgpool: pgpool}
}

func (r *RepositoryImpl) conn(dbc dbctx.Context) database.Querier {
	return database.Conn(r.pgpool, dbc)
}

func (r *RepositoryImpl) GetPlace(dbc dbctx.Context, placeID int64) (*models.Place, error) {
	query := `SELECT ` + database.PlaceColumns + ` FROM ` + database.PlaceFrom + ` WHERE p.id = $1`
	p, err := database.ScanPlace(r.conn(dbc).QueryRow(dbc.Ctx, query, placeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("place %d: %w", placeID, models.ErrNotFound)
		}
		r.logger.Error("Failed to load place", zap.Int64("placeID", placeID), zap.Error(err))
		return nil, fmt.Errorf("failed to load place: %w", err)
	}
	return &p, nil
}

func (r *RepositoryImpl) VisitExists(dbc dbctx.Context, userID uuid.UUID, placeID int64) (bool, error) {
	var exists bool
	err := r.conn(dbc).QueryRow(dbc.Ctx,
		`SELECT EXISTS (SELECT 1 FROM visits WHERE user_id = $1 AND place_id = $2)`, userID, placeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check visit: %w", err)
	}
	return exists, nil
}

// InsertVisit reports false when the (user, place) row already exists. A
// concurrent first visit shows up as zero rows affected, never as 23505, so
// the surrounding transaction stays usable.
func (r *RepositoryImpl) InsertVisit(dbc dbctx.Context, userID uuid.UUID, placeID int64) (bool, error) {
	tag, err := r.conn(dbc).Exec(dbc.Ctx, `
        INSERT INTO visits (user_id, place_id, visited_at) VALUES ($1, $2, NOW())
        ON CONFLICT ON CONSTRAINT uq_visits_user_place DO NOTHING`, userID, placeID)
	if err != nil {
		r.logger.Error("Failed to insert visit", zap.Int64("placeID", placeID), zap.Error(err))
		return false, fmt.Errorf("failed to insert visit: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *RepositoryImpl) IncrementPlaceVisits(dbc dbctx.Context, placeID int64) (int, error) {
	var visits int
	err := r.conn(dbc).QueryRow(dbc.Ctx,
		`UPDATE places SET visits = visits + 1, updated_at = NOW() WHERE id = $1 RETURNING visits`, placeID).Scan(&visits)
	if err != nil {
		return 0, fmt.Errorf("failed to increment place visits: %w", err)
	}
	return visits, nil
}

func (r *RepositoryImpl) LockProgress(dbc dbctx.Context, userID uuid.UUID) (*Progress, error) {
	var p Progress
	err := r.conn(dbc).QueryRow(dbc.Ctx,
		`SELECT xp, level, badges FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&p.XP, &p.Level, &p.Badges)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", userID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to lock user progress: %w", err)
	}
	if p.Badges == nil {
		p.Badges = []string{}
	}
	return &p, nil
}

func (r *RepositoryImpl) SaveProgress(dbc dbctx.Context, userID uuid.UUID, p Progress) error {
	tag, err := r.conn(dbc).Exec(dbc.Ctx,
		`UPDATE users SET xp = $2, level = $3, badges = $4, updated_at = NOW() WHERE id = $1`,
		userID, p.XP, p.Level, p.Badges)
	if err != nil {
		r.logger.Error("Failed to save progress", zap.String("userID", userID.String()), zap.Error(err))
		return fmt.Errorf("failed to save progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", userID, models.ErrNotFound)
	}
	return nil
}

func (r *RepositoryImpl) VisitedPlaces(dbc dbctx.Context, userID uuid.UUID) ([]badges.VisitedPlace, error) {
	rows, err := r.conn(dbc).Query(dbc.Ctx, `
        SELECT p.id, p.description, COALESCE(c.name, '')
        FROM visits v
        JOIN places p ON p.id = v.place_id
        LEFT JOIN categories c ON c.id = p.category_id
        WHERE v.user_id = $1
        ORDER BY v.visited_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load visited places: %w", err)
	}
	defer rows.Close()

	visited := []badges.VisitedPlace{}
	for rows.Next() {
		var v badges.VisitedPlace
		if err := rows.Scan(&v.PlaceID, &v.Description, &v.Category); err != nil {
			return nil, fmt.Errorf("failed to scan visited place: %w", err)
		}
		visited = append(visited, v)
	}
	return visited, rows.Err()
}

func (r *RepositoryImpl) History(dbc dbctx.Context, userID uuid.UUID) ([]models.Visit, error) {
	rows, err := r.conn(dbc).Query(dbc.Ctx, `
        SELECT v.id, v.user_id, v.place_id, p.name, v.visited_at
        FROM visits v JOIN places p ON p.id = v.place_id
        WHERE v.user_id = $1
        ORDER BY v.visited_at DESC`, userID)
	if err != nil {
		r.logger.Error("Failed to load visit history", zap.Error(err))
		return nil, fmt.Errorf("failed to load visit history: %w", err)
	}
	defer rows.Close()

	history := []models.Visit{}
	for rows.Next() {
		var v models.Visit
		if err := rows.Scan(&v.ID, &v.UserID, &v.PlaceID, &v.PlaceName, &v.VisitedAt); err != nil {
			return nil, fmt.Errorf("failed to scan visit: %w", err)
		}
		history = append(history, v)
	}
	return history, rows.Err()
}
