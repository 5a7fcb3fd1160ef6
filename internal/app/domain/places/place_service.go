package places

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/aayushkdev/vellorun-backend/internal/app/models"
	database "github.com/aayushkdev/vellorun-backend/internal/db"
	"github.com/aayushkdev/vellorun-backend/internal/pkg/cache"
	"github.com/aayushkdev/vellorun-backend/internal/pkg/dbctx"
	"github.com/aayushkdev/vellorun-backend/internal/pkg/sanitize"
)

const categoriesKey = "all"

// NewPlaceNotifier announces places that just became visible on the map.
type NewPlaceNotifier interface {
	NotifyNewPlace(dbc dbctx.Context, place models.Place) (*models.Suggestion, error)
}

var _ Service = (*ServiceImpl)(nil)

// Service exposes the place catalogue. A nil identity means an anonymous
// caller.
type Service interface {
	List(ctx context.Context, caller *models.Identity, filter models.PlaceFilter) ([]models.Place, error)
	Get(ctx context.Context, caller *models.Identity, id int64) (*models.Place, error)
	Create(ctx context.Context, caller models.Identity, req models.CreatePlaceRequest) (*models.Place, error)
	Update(ctx context.Context, caller models.Identity, id int64, req models.UpdatePlaceRequest) (*models.Place, error)
	Delete(ctx context.Context, caller models.Identity, id int64) error
	Approve(ctx context.Context, caller models.Identity, id int64) (*models.Place, error)

	Categories(ctx context.Context) ([]models.Category, error)
	Category(ctx context.Context, id int64) (*models.Category, error)
	CategoryPlaces(ctx context.Context, caller *models.Identity, id int64) ([]models.Place, error)

	Save(ctx context.Context, userID uuid.UUID, placeID int64) (*models.SaveResult, error)
	Unsave(ctx context.Context, userID uuid.UUID, placeID int64) error
	SavedPlaces(ctx context.Context, userID uuid.UUID) ([]models.SavedPlace, error)
}

type ServiceImpl struct {
	logger   *zap.Logger
	repo     Repository
	tx       database.TxRunner
	notifier NewPlaceNotifier
	cache    *cache.CacheManager
}

func NewService(repo Repository, tx database.TxRunner, notifier NewPlaceNotifier, cm *cache.CacheManager, logger *zap.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:   logger,
		repo:     repo,
		tx:       tx,
		notifier: notifier,
		cache:    cm,
	}
}

func (s *ServiceImpl) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span, *zap.Logger) {
	ctx, span := otel.Tracer("PlaceService").Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, span, s.logger.With(zap.String("method", name))
}

func fail(l *zap.Logger, span trace.Span, msg string, err error) error {
	if errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrForbidden) || errors.Is(err, models.ErrValidation) {
		l.Warn(msg, zap.Error(err))
	} else {
		l.Error(msg, zap.Any("error", err))
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	return err
}

func requireAdmin(caller models.Identity) error {
	if !caller.IsAdmin {
		return fmt.Errorf("%w: admin only", models.ErrForbidden)
	}
	return nil
}

// visible reports whether caller may see p.
func visible(caller *models.Identity, p *models.Place) bool {
	if p.Approved {
		return true
	}
	if caller == nil {
		return false
	}
	return caller.IsAdmin || (p.CreatedBy != nil && *p.CreatedBy == caller.UserID)
}

func scope(caller *models.Identity, filter models.PlaceFilter) models.PlaceFilter {
	switch {
	case caller == nil:
		filter.ApprovedOnly = true
		filter.VisibleTo = nil
	case caller.IsAdmin:
		filter.ApprovedOnly = false
	default:
		filter.ApprovedOnly = true
		uid := caller.UserID
		filter.VisibleTo = &uid
	}
	return filter
}

func (s *ServiceImpl) List(ctx context.Context, caller *models.Identity, filter models.PlaceFilter) ([]models.Place, error) {
	ctx, span, l := s.startSpan(ctx, "List", attribute.String("filter.name", filter.Name))
	defer span.End()
	l.Debug("Listing places")

	places, err := s.repo.List(dbctx.From(ctx), scope(caller, filter))
	if err != nil {
		return nil, fail(l, span, "Failed to list places", fmt.Errorf("error listing places: %w", err))
	}

	l.Info("Places listed", zap.Int("count", len(places)))
	span.SetStatus(codes.Ok, "Places listed")
	return places, nil
}

func (s *ServiceImpl) Get(ctx context.Context, caller *models.Identity, id int64) (*models.Place, error) {
	ctx, span, l := s.startSpan(ctx, "Get", attribute.Int64("place.id", id))
	defer span.End()
	l.Debug("Fetching place", zap.Int64("placeID", id))

	place, err := s.repo.Get(dbctx.From(ctx), id)
	if err != nil {
		return nil, fail(l, span, "Failed to fetch place", err)
	}
	if !visible(caller, place) {
		return nil, fail(l, span, "Place not visible to caller", fmt.Errorf("place %d: %w", id, models.ErrNotFound))
	}

	span.SetStatus(codes.Ok, "Place fetched")
	return place, nil
}

// Create stores a place. Places from regular users wait for approval;
// admins may publish directly, which announces the place.
func (s *ServiceImpl) Create(ctx context.Context, caller models.Identity, req models.CreatePlaceRequest) (*models.Place, error) {
	ctx, span, l := s.startSpan(ctx, "Create",
		attribute.String("user.id", caller.UserID.String()),
		attribute.String("place.name", req.Name))
	defer span.End()
	l.Debug("Creating place")

	name := sanitize.StripHTML(req.Name)
	if name == "" {
		return nil, fail(l, span, "Invalid place", fmt.Errorf("%w: name is required", models.ErrValidation))
	}
	if !req.Type.Valid() {
		return nil, fail(l, span, "Invalid place", fmt.Errorf("%w: type must be inside or outside", models.ErrValidation))
	}

	uid := caller.UserID
	place := models.Place{
		CreatedBy:   &uid,
		Name:        name,
		Type:        req.Type,
		Description: sanitize.StripHTML(req.Description),
		CategoryID:  req.CategoryID,
		CoordX:      req.CoordX,
		CoordY:      req.CoordY,
		Level:       max(req.Level, 1),
		XPReward:    req.XPReward,
		Approved:    caller.IsAdmin && req.Approved,
		Tags:        sanitize.Tags(req.Tags),
		Images:      req.Images,
	}
	if place.XPReward == 0 {
		place.XPReward = models.DefaultXPReward
	}

	var created *models.Place
	err := s.tx.WithTx(ctx, func(dbc dbctx.Context) error {
		var err error
		created, err = s.repo.Create(dbc, place)
		if err != nil {
			return err
		}
		if created.Approved {
			_, err = s.notifier.NotifyNewPlace(dbc, *created)
		}
		return err
	})
	if err != nil {
		return nil, fail(l, span, "Failed to create place", fmt.Errorf("error creating place: %w", err))
	}

	l.Info("Place created", zap.Int64("placeID", created.ID), zap.Bool("approved", created.Approved))
	span.SetStatus(codes.Ok, "Place created")
	return created, nil
}

func (s *ServiceImpl) Update(ctx context.Context, caller models.Identity, id int64, req models.UpdatePlaceRequest) (*models.Place, error) {
	ctx, span, l := s.startSpan(ctx, "Update", attribute.Int64("place.id", id))
	defer span.End()
	l.Debug("Updating place", zap.Int64("placeID", id))

	if err := requireAdmin(caller); err != nil {
		return nil, fail(l, span, "Update refused", err)
	}
	if req.Type != nil && !req.Type.Valid() {
		return nil, fail(l, span, "Invalid place", fmt.Errorf("%w: type must be inside or outside", models.ErrValidation))
	}
	if req.Level != nil && *req.Level < 1 {
		return nil, fail(l, span, "Invalid place", fmt.Errorf("%w: level must be at least 1", models.ErrValidation))
	}
	if req.XPReward != nil && *req.XPReward < 0 {
		return nil, fail(l, span, "Invalid place", fmt.Errorf("%w: xp_reward must not be negative", models.ErrValidation))
	}
	if req.Name != nil {
		name := sanitize.StripHTML(*req.Name)
		req.Name = &name
	}
	if req.Description != nil {
		desc := sanitize.StripHTML(*req.Description)
		req.Description = &desc
	}
	if req.Tags != nil {
		req.Tags = sanitize.Tags(req.Tags)
	}

	updated, err := s.repo.Update(dbctx.From(ctx), id, req)
	if err != nil {
		return nil, fail(l, span, "Failed to update place", fmt.Errorf("error updating place: %w", err))
	}

	l.Info("Place updated", zap.Int64("placeID", id))
	span.SetStatus(codes.Ok, "Place updated")
	return updated, nil
}

func (s *ServiceImpl) Delete(ctx context.Context, caller models.Identity, id int64) error {
	ctx, span, l := s.startSpan(ctx, "Delete", attribute.Int64("place.id", id))
	defer span.End()
	l.Debug("Deleting place", zap.Int64("placeID", id))

	if err := requireAdmin(caller); err != nil {
		return fail(l, span, "Delete refused", err)
	}
	if err := s.repo.Delete(dbctx.From(ctx), id); err != nil {
		return fail(l, span, "Failed to delete place", fmt.Errorf("error deleting place: %w", err))
	}

	l.Info("Place deleted", zap.Int64("placeID", id))
	span.SetStatus(codes.Ok, "Place deleted")
	return nil
}

// Approve publishes a place and announces it. Approving twice is a no-op.
func (s *ServiceImpl) Approve(ctx context.Context, caller models.Identity, id int64) (*models.Place, error) {
	ctx, span, l := s.startSpan(ctx, "Approve", attribute.Int64("place.id", id))
	defer span.End()
	l.Debug("Approving place", zap.Int64("placeID", id))

	if err := requireAdmin(caller); err != nil {
		return nil, fail(l, span, "Approve refused", err)
	}

	var place *models.Place
	err := s.tx.WithTx(ctx, func(dbc dbctx.Context) error {
		var err error
		place, err = s.repo.Get(dbc, id)
		if err != nil || place.Approved {
			return err
		}
		if err := s.repo.SetApproved(dbc, id); err != nil {
			return err
		}
		place.Approved = true
		_, err = s.notifier.NotifyNewPlace(dbc, *place)
		return err
	})
	if err != nil {
		return nil, fail(l, span, "Failed to approve place", fmt.Errorf("error approving place: %w", err))
	}

	l.Info("Place approved", zap.Int64("placeID", id))
	span.SetStatus(codes.Ok, "Place approved")
	return place, nil
}

func (s *ServiceImpl) Categories(ctx context.Context) ([]models.Category, error) {
	ctx, span, l := s.startSpan(ctx, "Categories")
	defer span.End()

	if cached, ok := s.cache.Categories.Get(categoriesKey); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		span.SetStatus(codes.Ok, "Categories served from cache")
		return cached, nil
	}

	categories, err := s.repo.ListCategories(dbctx.From(ctx))
	if err != nil {
		return nil, fail(l, span, "Failed to list categories", fmt.Errorf("error listing categories: %w", err))
	}
	s.cache.Categories.Set(categoriesKey, categories)

	l.Info("Categories loaded", zap.Int("count", len(categories)))
	span.SetStatus(codes.Ok, "Categories loaded")
	return categories, nil
}

func (s *ServiceImpl) Category(ctx context.Context, id int64) (*models.Category, error) {
	ctx, span, l := s.startSpan(ctx, "Category", attribute.Int64("category.id", id))
	defer span.End()

	key := strconv.FormatInt(id, 10)
	if c, ok := s.cache.Category.Get(key); ok {
		span.SetStatus(codes.Ok, "Category served from cache")
		return &c, nil
	}
	c, err := s.repo.GetCategory(dbctx.From(ctx), id)
	if err != nil {
		return nil, fail(l, span, "Failed to fetch category", err)
	}
	s.cache.Category.Set(key, *c)

	span.SetStatus(codes.Ok, "Category fetched")
	return c, nil
}

func (s *ServiceImpl) CategoryPlaces(ctx context.Context, caller *models.Identity, id int64) ([]models.Place, error) {
	if _, err := s.Category(ctx, id); err != nil {
		return nil, err
	}
	return s.List(ctx, caller, models.PlaceFilter{CategoryID: &id})
}

// Save bookmarks a visible place. Saving twice is reported, not rejected.
func (s *ServiceImpl) Save(ctx context.Context, userID uuid.UUID, placeID int64) (*models.SaveResult, error) {
	ctx, span, l := s.startSpan(ctx, "Save",
		attribute.String("user.id", userID.String()),
		attribute.Int64("place.id", placeID))
	defer span.End()
	l.Debug("Saving place", zap.Int64("placeID", placeID))

	dbc := dbctx.From(ctx)
	place, err := s.repo.Get(dbc, placeID)
	if err != nil {
		return nil, fail(l, span, "Failed to save place", err)
	}
	if !visible(&models.Identity{UserID: userID}, place) {
		return nil, fail(l, span, "Place not visible to caller", fmt.Errorf("place %d: %w", placeID, models.ErrNotFound))
	}

	inserted, err := s.repo.SavePlace(dbc, userID, placeID)
	if err != nil {
		return nil, fail(l, span, "Failed to save place", fmt.Errorf("error saving place: %w", err))
	}

	result := &models.SaveResult{PlaceID: placeID, AlreadySaved: !inserted, Message: "Place saved"}
	if !inserted {
		result.Message = "Place already saved"
	}
	l.Info("Place saved", zap.Bool("alreadySaved", result.AlreadySaved))
	span.SetStatus(codes.Ok, result.Message)
	return result, nil
}

func (s *ServiceImpl) Unsave(ctx context.Context, userID uuid.UUID, placeID int64) error {
	ctx, span, l := s.startSpan(ctx, "Unsave",
		attribute.String("user.id", userID.String()),
		attribute.Int64("place.id", placeID))
	defer span.End()

	removed, err := s.repo.UnsavePlace(dbctx.From(ctx), userID, placeID)
	if err != nil {
		return fail(l, span, "Failed to unsave place", fmt.Errorf("error unsaving place: %w", err))
	}
	if !removed {
		return fail(l, span, "Place was not saved", fmt.Errorf("saved place %d: %w", placeID, models.ErrNotFound))
	}

	l.Info("Place unsaved", zap.Int64("placeID", placeID))
	span.SetStatus(codes.Ok, "Place unsaved")
	return nil
}

func (s *ServiceImpl) SavedPlaces(ctx context.Context, userID uuid.UUID) ([]models.SavedPlace, error) {
	ctx, span, l := s.startSpan(ctx, "SavedPlaces", attribute.String("user.id", userID.String()))
	defer span.End()

	saved, err := s.repo.SavedPlaces(dbctx.From(ctx), userID)
	if err != nil {
		return nil, fail(l, span, "Failed to list saved places", fmt.Errorf("error listing saved places: %w", err))
	}

	span.SetStatus(codes.Ok, "Saved places listed")
	return saved, nil
}
