package recommend

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aayushkdev/vellorun-backend/internal/app/models"
	database "github.com/aayushkdev/vellorun-backend/internal/db"
	"github.com/aayushkdev/vellorun-backend/internal/pkg/dbctx"
)

var _ Repository = (*RepositoryImpl)(nil)

type Repository interface {
	// Candidates lists approved places unlocked for the user that they have
	// not visited, most visited first.
	Candidates(dbc dbctx.Context, userID uuid.UUID) ([]models.Place, error)
	// CountCategories returns how many of ids exist.
	CountCategories(dbc dbctx.Context, ids []int64) (int, error)
}

type RepositoryImpl struct {
	logger *zap.Logger
	pgpool database.Querier
}

func NewRepository(pgpool database.Querier, logger *zap.Logger) *RepositoryImpl {
	return &RepositoryImpl{logger: logger, pgpool: pgpool}
}

func (r *RepositoryImpl) Candidates(dbc dbctx.Context, userID uuid.UUID) ([]models.Place, error) {
	query := `SELECT ` + database.PlaceColumns + ` FROM ` + database.PlaceFrom + `
        WHERE p.approved = TRUE
          AND p.level <= (SELECT u.level FROM users u WHERE u.id = $1)
          AND NOT EXISTS (SELECT 1 FROM visits v WHERE v.place_id = p.id AND v.user_id = $1)
        ORDER BY p.visits DESC, p.id ASC`

	rows, err := database.Conn(r.pgpool, dbc).Query(dbc.Ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to query recommendation candidates", zap.Error(err))
		return nil, fmt.Errorf("failed to query recommendation candidates: %w", err)
	}
	defer rows.Close()

	places := []models.Place{}
	for rows.Next() {
		p, err := database.ScanPlace(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		places = append(places, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating candidate rows: %w", err)
	}
	return places, nil
}

func (r *RepositoryImpl) CountCategories(dbc dbctx.Context, ids []int64) (int, error) {
	var n int
	err := database.Conn(r.pgpool, dbc).QueryRow(dbc.Ctx,
		`SELECT COUNT(*) FROM categories WHERE id = ANY($1)`, ids).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count categories: %w", err)
	}
	return n, nil
}
