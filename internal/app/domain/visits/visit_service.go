package visits

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/aayushkdev/vellorun-backend/internal/app/domain/badges"
	"github.com/aayushkdev/vellorun-backend/internal/app/domain/progression"
	"github.com/aayushkdev/vellorun-backend/internal/app/models"
	"github.com/aayushkdev/vellorun-backend/internal/app/observability/metrics"
	database "github.com/aayushkdev/vellorun-backend/internal/db"
	"github.com/aayushkdev/vellorun-backend/internal/pkg/dbctx"
)

const (
	msgVisited        = "Place visited successfully"
	msgAlreadyVisited = "You have already visited this place"
)

// LevelUpNotifier creates suggestions for places unlocked at a level. It runs
// on the visit's transaction.
type LevelUpNotifier interface {
	TriggerLevelUp(dbc dbctx.Context, userID uuid.UUID, newLevel int) ([]models.UserSuggestion, error)
}

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	Visit(ctx context.Context, userID uuid.UUID, placeID int64) (*models.VisitResult, error)
	History(ctx context.Context, userID uuid.UUID) ([]models.Visit, error)
}

type ServiceImpl struct {
	logger   *zap.Logger
	repo     Repository
	tx       database.TxRunner
	levels   progression.Table
	deriver  *badges.Deriver
	notifier LevelUpNotifier
}

func NewService(repo Repository, tx database.TxRunner, levels progression.Table, deriver *badges.Deriver, notifier LevelUpNotifier, logger *zap.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:   logger,
		repo:     repo,
		tx:       tx,
		levels:   levels,
		deriver:  deriver,
		notifier: notifier,
	}
}

// Visit records a first visit and applies its rewards atomically. A repeated
// visit changes nothing and reports the current state.
func (s *ServiceImpl) Visit(ctx context.Context, userID uuid.UUID, placeID int64) (*models.VisitResult, error) {
	ctx, span := otel.Tracer("VisitService").Start(ctx, "Visit", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.Int64("place.id", placeID),
	))
	defer span.End()

	l := s.logger.With(zap.String("method", "Visit"), zap.String("userID", userID.String()), zap.Int64("placeID", placeID))
	l.Debug("Recording visit")

	var (
		result  *models.VisitResult
		crossed []int
		gained  int
	)
	err := s.tx.WithTx(ctx, func(dbc dbctx.Context) error {
		place, err := s.repo.GetPlace(dbc, placeID)
		if err != nil {
			return err
		}

		exists, err := s.repo.VisitExists(dbc, userID, placeID)
		if err != nil {
			return err
		}
		if !exists {
			inserted, err := s.repo.InsertVisit(dbc, userID, placeID)
			if err != nil {
				return err
			}
			exists = !inserted
		}

		progress, err := s.repo.LockProgress(dbc, userID)
		if err != nil {
			return err
		}
		if exists {
			result = &models.VisitResult{
				Place:          place.Name,
				PlaceID:        place.ID,
				XP:             progress.XP,
				Level:          progress.Level,
				Visits:         place.Visits,
				Badges:         progress.Badges,
				AlreadyVisited: true,
				Message:        msgAlreadyVisited,
			}
			return nil
		}

		visits, err := s.repo.IncrementPlaceVisits(dbc, placeID)
		if err != nil {
			return err
		}

		gained = place.XPReward
		xp := progress.XP + gained
		level, changed := s.levels.Advance(progress.Level, xp)
		if changed {
			crossed = progression.LevelsCrossed(progress.Level, level)
			for _, lv := range crossed {
				if _, err := s.notifier.TriggerLevelUp(dbc, userID, lv); err != nil {
					return err
				}
			}
		}

		visited, err := s.repo.VisitedPlaces(dbc, userID)
		if err != nil {
			return err
		}
		earned := s.deriver.Derive(visited)

		if err := s.repo.SaveProgress(dbc, userID, Progress{XP: xp, Level: level, Badges: earned}); err != nil {
			return err
		}

		result = &models.VisitResult{
			Place:     place.Name,
			PlaceID:   place.ID,
			XP:        xp,
			Level:     level,
			Visits:    visits,
			Badges:    earned,
			LeveledUp: changed,
			Message:   msgVisited,
		}
		return nil
	})
	if err != nil {
		l.Error("Failed to record visit", zap.Any("error", err))
		if !errors.Is(err, models.ErrNotFound) {
			metrics.Get().DBQueryErrorsTotal.Add(ctx, 1)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to record visit")
		return nil, fmt.Errorf("error recording visit: %w", err)
	}

	if !result.AlreadyVisited {
		m := metrics.Get()
		m.VisitsRecordedTotal.Add(ctx, 1)
		m.XPAwardedTotal.Add(ctx, int64(gained))
		if len(crossed) > 0 {
			m.LevelUpsTotal.Add(ctx, int64(len(crossed)))
		}
	}

	span.SetAttributes(
		attribute.Bool("visit.already_visited", result.AlreadyVisited),
		attribute.Bool("visit.leveled_up", result.LeveledUp),
	)
	l.Info("Visit processed",
		zap.Bool("alreadyVisited", result.AlreadyVisited),
		zap.Int("xp", result.XP),
		zap.Int("level", result.Level),
		zap.Ints("levelsCrossed", crossed))
	span.SetStatus(codes.Ok, "Visit processed")
	return result, nil
}

func (s *ServiceImpl) History(ctx context.Context, userID uuid.UUID) ([]models.Visit, error) {
	ctx, span := otel.Tracer("VisitService").Start(ctx, "History", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	l := s.logger.With(zap.String("method", "History"), zap.String("userID", userID.String()))
	l.Debug("Fetching visit history")

	history, err := s.repo.History(dbctx.From(ctx), userID)
	if err != nil {
		l.Error("Failed to fetch visit history", zap.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to fetch visit history")
		return nil, fmt.Errorf("error fetching visit history: %w", err)
	}

	l.Info("Visit history fetched", zap.Int("count", len(history)))
	span.SetStatus(codes.Ok, "Visit history fetched")
	return history, nil
}
