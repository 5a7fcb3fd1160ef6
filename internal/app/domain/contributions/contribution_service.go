package contributions

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/aayushkdev/vellorun-backend/internal/app/models"
	database "github.com/aayushkdev/vellorun-backend/internal/db"
	"github.com/aayushkdev/vellorun-backend/internal/pkg/dbctx"
	"github.com/aayushkdev/vellorun-backend/internal/pkg/sanitize"
)

// PlaceCreator stores the place produced by implementing a suggestion.
type PlaceCreator interface {
	Create(dbc dbctx.Context, p models.Place) (*models.Place, error)
}

// NewPlaceNotifier announces a freshly implemented place.
type NewPlaceNotifier interface {
	NotifyNewPlace(dbc dbctx.Context, place models.Place) (*models.Suggestion, error)
}

var targetStatus = map[models.ProcessAction]models.PlaceSuggestionStatus{
	models.ProcessApprove:   models.StatusApproved,
	models.ProcessReject:    models.StatusRejected,
	models.ProcessImplement: models.StatusImplemented,
}

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	Submit(ctx context.Context, caller models.Identity, req models.CreatePlaceSuggestionRequest) (*models.PlaceSuggestion, error)
	List(ctx context.Context, caller models.Identity, filter models.PlaceSuggestionFilter) ([]models.PlaceSuggestion, error)
	Get(ctx context.Context, caller models.Identity, id int64) (*models.PlaceSuggestion, error)
	Update(ctx context.Context, caller models.Identity, id int64, req models.UpdatePlaceSuggestionRequest) (*models.PlaceSuggestion, error)
	Delete(ctx context.Context, caller models.Identity, id int64) error
	Process(ctx context.Context, caller models.Identity, id int64, req models.ProcessPlaceSuggestionRequest) (*models.ProcessResult, error)
}

type ServiceImpl struct {
	logger   *zap.Logger
	repo     Repository
	tx       database.TxRunner
	places   PlaceCreator
	notifier NewPlaceNotifier
}

func NewService(repo Repository, tx database.TxRunner, places PlaceCreator, notifier NewPlaceNotifier, logger *zap.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:   logger,
		repo:     repo,
		tx:       tx,
		places:   places,
		notifier: notifier,
	}
}

func (s *ServiceImpl) fail(l *zap.Logger, span trace.Span, msg string, err error) error {
	switch {
	case errors.Is(err, models.ErrNotFound), errors.Is(err, models.ErrForbidden),
		errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrConflict),
		errors.Is(err, models.ErrTerminalState):
		l.Warn(msg, zap.Error(err))
	default:
		l.Error(msg, zap.Any("error", err))
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	return err
}

// owned loads a suggestion the caller may see. Other users' suggestions are
// reported as missing.
func (s *ServiceImpl) owned(dbc dbctx.Context, caller models.Identity, id int64) (*models.PlaceSuggestion, error) {
	ps, err := s.repo.Get(dbc, id)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin && ps.SuggestedBy != caller.UserID {
		return nil, fmt.Errorf("place suggestion %d: %w", id, models.ErrNotFound)
	}
	return ps, nil
}

// editable loads a suggestion the caller may still change.
func (s *ServiceImpl) editable(dbc dbctx.Context, caller models.Identity, id int64) (*models.PlaceSuggestion, error) {
	ps, err := s.owned(dbc, caller, id)
	if err != nil {
		return nil, err
	}
	if ps.Status != models.StatusPending {
		return nil, fmt.Errorf("%w: place suggestion is %s, only pending ones can change", models.ErrConflict, ps.Status)
	}
	return ps, nil
}

func (s *ServiceImpl) Submit(ctx context.Context, caller models.Identity, req models.CreatePlaceSuggestionRequest) (*models.PlaceSuggestion, error) {
	ctx, span := otel.Tracer("ContributionService").Start(ctx, "Submit", trace.WithAttributes(
		attribute.String("user.id", caller.UserID.String()),
		attribute.String("place.name", req.Name),
	))
	defer span.End()
	l := s.logger.With(zap.String("method", "Submit"))
	l.Debug("Submitting place suggestion", zap.String("name", req.Name))

	name := sanitize.StripHTML(req.Name)
	if name == "" {
		return nil, s.fail(l, span, "Invalid place suggestion", fmt.Errorf("%w: name is required", models.ErrValidation))
	}
	if !req.Type.Valid() {
		return nil, s.fail(l, span, "Invalid place suggestion", fmt.Errorf("%w: type must be inside or outside", models.ErrValidation))
	}

	ps, err := s.repo.Create(dbctx.From(ctx), models.PlaceSuggestion{
		SuggestedBy: caller.UserID,
		Name:        name,
		Type:        req.Type,
		Description: sanitize.StripHTML(req.Description),
		CategoryID:  req.CategoryID,
		CoordX:      req.CoordX,
		CoordY:      req.CoordY,
		Tags:        sanitize.Tags(req.Tags),
	})
	if err != nil {
		return nil, s.fail(l, span, "Failed to submit place suggestion", fmt.Errorf("error submitting place suggestion: %w", err))
	}

	l.Info("Place suggestion submitted", zap.Int64("id", ps.ID))
	span.SetStatus(codes.Ok, "Place suggestion submitted")
	return ps, nil
}

// List returns the caller's own suggestions. Admins see everyone's unless
// they filter by author.
func (s *ServiceImpl) List(ctx context.Context, caller models.Identity, filter models.PlaceSuggestionFilter) ([]models.PlaceSuggestion, error) {
	ctx, span := otel.Tracer("ContributionService").Start(ctx, "List", trace.WithAttributes(
		attribute.String("user.id", caller.UserID.String()),
		attribute.String("status", string(filter.Status)),
	))
	defer span.End()
	l := s.logger.With(zap.String("method", "List"))

	if filter.Status != "" && !filter.Status.Valid() {
		return nil, s.fail(l, span, "Invalid status filter", fmt.Errorf("%w: unknown status %q", models.ErrValidation, filter.Status))
	}
	if !caller.IsAdmin {
		uid := caller.UserID
		filter.SuggestedBy = &uid
	}

	out, err := s.repo.List(dbctx.From(ctx), filter)
	if err != nil {
		return nil, s.fail(l, span, "Failed to list place suggestions", fmt.Errorf("error listing place suggestions: %w", err))
	}

	span.SetStatus(codes.Ok, "Place suggestions listed")
	return out, nil
}

func (s *ServiceImpl) Get(ctx context.Context, caller models.Identity, id int64) (*models.PlaceSuggestion, error) {
	ctx, span := otel.Tracer("ContributionService").Start(ctx, "Get", trace.WithAttributes(attribute.Int64("place_suggestion.id", id)))
	defer span.End()
	l := s.logger.With(zap.String("method", "Get"))

	ps, err := s.owned(dbctx.From(ctx), caller, id)
	if err != nil {
		return nil, s.fail(l, span, "Failed to fetch place suggestion", err)
	}
	span.SetStatus(codes.Ok, "Place suggestion fetched")
	return ps, nil
}

func (s *ServiceImpl) Update(ctx context.Context, caller models.Identity, id int64, req models.UpdatePlaceSuggestionRequest) (*models.PlaceSuggestion, error) {
	ctx, span := otel.Tracer("ContributionService").Start(ctx, "Update", trace.WithAttributes(attribute.Int64("place_suggestion.id", id)))
	defer span.End()
	l := s.logger.With(zap.String("method", "Update"))
	l.Debug("Updating place suggestion", zap.Int64("id", id))

	if req.Type != nil && !req.Type.Valid() {
		return nil, s.fail(l, span, "Invalid place suggestion", fmt.Errorf("%w: type must be inside or outside", models.ErrValidation))
	}
	if req.Name != nil {
		name := sanitize.StripHTML(*req.Name)
		if name == "" {
			return nil, s.fail(l, span, "Invalid place suggestion", fmt.Errorf("%w: name must not be empty", models.ErrValidation))
		}
		req.Name = &name
	}
	if req.Description != nil {
		desc := sanitize.StripHTML(*req.Description)
		req.Description = &desc
	}
	if req.Tags != nil {
		req.Tags = sanitize.Tags(req.Tags)
	}

	var updated *models.PlaceSuggestion
	err := s.tx.WithTx(ctx, func(dbc dbctx.Context) error {
		if _, err := s.editable(dbc, caller, id); err != nil {
			return err
		}
		var err error
		updated, err = s.repo.Update(dbc, id, req)
		return err
	})
	if err != nil {
		return nil, s.fail(l, span, "Failed to update place suggestion", err)
	}

	l.Info("Place suggestion updated", zap.Int64("id", id))
	span.SetStatus(codes.Ok, "Place suggestion updated")
	return updated, nil
}

func (s *ServiceImpl) Delete(ctx context.Context, caller models.Identity, id int64) error {
	ctx, span := otel.Tracer("ContributionService").Start(ctx, "Delete", trace.WithAttributes(attribute.Int64("place_suggestion.id", id)))
	defer span.End()
	l := s.logger.With(zap.String("method", "Delete"))

	err := s.tx.WithTx(ctx, func(dbc dbctx.Context) error {
		if _, err := s.editable(dbc, caller, id); err != nil {
			return err
		}
		return s.repo.Delete(dbc, id)
	})
	if err != nil {
		return s.fail(l, span, "Failed to delete place suggestion", err)
	}

	l.Info("Place suggestion deleted", zap.Int64("id", id))
	span.SetStatus(codes.Ok, "Place suggestion deleted")
	return nil
}

// Process applies an admin decision. Implemented suggestions are final;
// repeating the current status changes nothing.
func (s *ServiceImpl) Process(ctx context.Context, caller models.Identity, id int64, req models.ProcessPlaceSuggestionRequest) (*models.ProcessResult, error) {
	ctx, span := otel.Tracer("ContributionService").Start(ctx, "Process", trace.WithAttributes(
		attribute.Int64("place_suggestion.id", id),
		attribute.String("action", string(req.Action)),
	))
	defer span.End()
	l := s.logger.With(zap.String("method", "Process"), zap.Int64("id", id))
	l.Debug("Processing place suggestion", zap.String("action", string(req.Action)))

	if !caller.IsAdmin {
		return nil, s.fail(l, span, "Process refused", fmt.Errorf("%w: admin only", models.ErrForbidden))
	}
	target, ok := targetStatus[req.Action]
	if !ok {
		return nil, s.fail(l, span, "Invalid action", fmt.Errorf("%w: action must be approve, reject or implement", models.ErrValidation))
	}
	notes := sanitize.StripHTML(req.AdminNotes)

	result := &models.ProcessResult{}
	err := s.tx.WithTx(ctx, func(dbc dbctx.Context) error {
		ps, err := s.repo.GetForUpdate(dbc, id)
		if err != nil {
			return err
		}
		if ps.Status == models.StatusImplemented {
			return fmt.Errorf("place suggestion %d is implemented: %w", id, models.ErrTerminalState)
		}
		if ps.Status == target {
			result.PlaceSuggestion = *ps
			result.Message = fmt.Sprintf("Place suggestion already %s", target)
			return nil
		}

		var createdID *int64
		if target == models.StatusImplemented {
			suggester := ps.SuggestedBy
			place, err := s.places.Create(dbc, models.Place{
				CreatedBy:   &suggester,
				Name:        ps.Name,
				Type:        ps.Type,
				Description: ps.Description,
				CategoryID:  ps.CategoryID,
				CoordX:      ps.CoordX,
				CoordY:      ps.CoordY,
				Level:       1,
				XPReward:    models.DefaultXPReward,
				Approved:    true,
				Tags:        ps.Tags,
			})
			if err != nil {
				return fmt.Errorf("error creating place: %w", err)
			}
			if _, err := s.notifier.NotifyNewPlace(dbc, *place); err != nil {
				return fmt.Errorf("error announcing place: %w", err)
			}
			createdID = &place.ID
			result.Place = place
		}

		updated, err := s.repo.SetStatus(dbc, id, target, notes, createdID)
		if err != nil {
			return err
		}
		result.PlaceSuggestion = *updated
		result.Changed = true
		result.Message = fmt.Sprintf("Place suggestion %s", target)
		return nil
	})
	if err != nil {
		return nil, s.fail(l, span, "Failed to process place suggestion", err)
	}

	l.Info("Place suggestion processed", zap.String("status", string(result.PlaceSuggestion.Status)), zap.Bool("changed", result.Changed))
	span.SetStatus(codes.Ok, result.Message)
	return result, nil
}
