package suggestions

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/aayushkdev/vellorun-backend/internal/app/models"
	"github.com/aayushkdev/vellorun-backend/internal/app/observability/metrics"
	database "github.com/aayushkdev/vellorun-backend/internal/db"
	"github.com/aayushkdev/vellorun-backend/internal/pkg/cache"
	"github.com/aayushkdev/vellorun-backend/internal/pkg/dbctx"
)

const (
	levelUpPriority     = 5
	newPlacePriority    = 4
	explorationPriority = 3

	// CategorySampleSize caps the places returned by the category mode.
	CategorySampleSize = 3
)

var _ Service = (*ServiceImpl)(nil)

// Service ranks suggestions for a user and records how the user responds.
type Service interface {
	BestSuggestion(ctx context.Context, userID uuid.UUID) (*models.UserSuggestion, error)
	Explore(ctx context.Context, userID uuid.UUID) (*models.UserSuggestion, error)
	SuggestByCategory(ctx context.Context, userID uuid.UUID, categoryID int64) (*models.CategorySuggestions, error)
	Trigger(ctx context.Context, userID uuid.UUID, req models.TriggerRequest) (*models.TriggerResult, error)
	Act(ctx context.Context, userID uuid.UUID, req models.SuggestionActionRequest) (*models.SuggestionActionResult, error)

	// TriggerLevelUp and NotifyNewPlace run on the caller's transaction.
	TriggerLevelUp(dbc dbctx.Context, userID uuid.UUID, newLevel int) ([]models.UserSuggestion, error)
	NotifyNewPlace(dbc dbctx.Context, place models.Place) (*models.Suggestion, error)

	Create(ctx context.Context, req models.CreateSuggestionRequest) (*models.Suggestion, error)
	Update(ctx context.Context, id int64, req models.UpdateSuggestionRequest) (*models.Suggestion, error)
	List(ctx context.Context, filter ListFilter) ([]models.Suggestion, error)
}

type triggerHandler func(ctx context.Context, userID uuid.UUID, req models.TriggerRequest) (*models.TriggerResult, error)

type ServiceImpl struct {
	logger   *zap.Logger
	repo     Repository
	tx       database.TxRunner
	picker   Picker
	cache    *cache.CacheManager
	triggers map[models.TriggerType]triggerHandler
}

func NewService(repo Repository, tx database.TxRunner, picker Picker, cm *cache.CacheManager, logger *zap.Logger) *ServiceImpl {
	s := &ServiceImpl{
		logger: logger,
		repo:   repo,
		tx:     tx,
		picker: picker,
		cache:  cm,
	}
	s.triggers = map[models.TriggerType]triggerHandler{
		models.TriggerInactivity: s.triggerExploration,
		models.TriggerLevelUp:    s.triggerLevelUpNow,
		models.TriggerCategory:   s.triggerCategory,
	}
	return s
}

// BestSuggestion returns the highest priority suggestion the user can act on
// and records that it was shown.
func (s *ServiceImpl) BestSuggestion(ctx context.Context, userID uuid.UUID) (*models.UserSuggestion, error) {
	ctx, span := otel.Tracer("SuggestionService").Start(ctx, "BestSuggestion", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	l := s.logger.With(zap.String("method", "BestSuggestion"), zap.String("userID", userID.String()))
	l.Debug("Selecting best suggestion")

	var shown *models.UserSuggestion
	err := s.tx.WithTx(ctx, func(dbc dbctx.Context) error {
		level, err := s.repo.UserLevel(dbc, userID)
		if err != nil {
			return err
		}
		best, err := s.repo.BestCandidate(dbc, userID, level)
		if err != nil {
			return err
		}
		if best == nil {
			return models.ErrNoSuggestion
		}
		shown, err = s.repo.MarkShown(dbc, userID, best.ID)
		if err != nil {
			return err
		}
		shown.Suggestion = best
		return nil
	})
	if errors.Is(err, models.ErrNoSuggestion) {
		l.Info("No suggestion available")
		span.SetStatus(codes.Ok, "No suggestion available")
		return nil, err
	}
	if err != nil {
		l.Error("Failed to select best suggestion", zap.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to select best suggestion")
		return nil, fmt.Errorf("error selecting best suggestion: %w", err)
	}

	metrics.Get().SuggestionsShownTotal.Add(ctx, 1)
	span.SetAttributes(attribute.Int64("suggestion.id", shown.SuggestionID))
	l.Info("Best suggestion shown", zap.Int64("suggestionID", shown.SuggestionID))
	span.SetStatus(codes.Ok, "Best suggestion shown")
	return shown, nil
}

// TriggerLevelUp surfaces the places unlocked at newLevel. Existing level up
// suggestions are reused; a place without one gets a default suggestion.
func (s *ServiceImpl) TriggerLevelUp(dbc dbctx.Context, userID uuid.UUID, newLevel int) ([]models.UserSuggestion, error) {
	ctx, span := otel.Tracer("SuggestionService").Start(dbc.Ctx, "TriggerLevelUp", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.Int("level", newLevel),
	))
	defer span.End()
	dbc.Ctx = ctx

	l := s.logger.With(zap.String("method", "TriggerLevelUp"), zap.String("userID", userID.String()), zap.Int("level", newLevel))
	l.Debug("Creating level up suggestions")

	fail := func(err error) ([]models.UserSuggestion, error) {
		l.Error("Failed to create level up suggestions", zap.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create level up suggestions")
		return nil, fmt.Errorf("error creating level up suggestions: %w", err)
	}

	places, err := s.repo.ApprovedPlacesAtLevel(dbc, newLevel)
	if err != nil {
		return fail(err)
	}

	out := []models.UserSuggestion{}
	for _, place := range places {
		existing, err := s.repo.ActiveForPlace(dbc, place.ID, models.TriggerLevelUp, newLevel)
		if err != nil {
			return fail(err)
		}
		if len(existing) == 0 {
			created, err := s.createDefault(dbc, place, models.SuggestionTypeLevelUp, models.TriggerLevelUp,
				fmt.Sprintf("%s unlocked! Plan your outing now!", place.Name), newLevel, levelUpPriority)
			if err != nil {
				return fail(err)
			}
			existing = []models.Suggestion{*created}
		}
		for i := range existing {
			us, err := s.repo.EnsureUserSuggestion(dbc, userID, existing[i].ID)
			if err != nil {
				return fail(err)
			}
			us.Suggestion = &existing[i]
			out = append(out, *us)
		}
	}

	l.Info("Level up suggestions ready", zap.Int("places", len(places)), zap.Int("count", len(out)))
	span.SetStatus(codes.Ok, "Level up suggestions ready")
	return out, nil
}

// Explore nudges the user toward one random unlocked place they have not
// visited yet.
func (s *ServiceImpl) Explore(ctx context.Context, userID uuid.UUID) (*models.UserSuggestion, error) {
	ctx, span := otel.Tracer("SuggestionService").Start(ctx, "Explore", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	l := s.logger.With(zap.String("method", "Explore"), zap.String("userID", userID.String()))
	l.Debug("Picking exploration suggestion")

	var result *models.UserSuggestion
	err := s.tx.WithTx(ctx, func(dbc dbctx.Context) error {
		level, err := s.repo.UserLevel(dbc, userID)
		if err != nil {
			return err
		}
		places, err := s.repo.UnvisitedPlaces(dbc, userID, level, nil)
		if err != nil {
			return err
		}
		if len(places) == 0 {
			return models.ErrNoSuggestion
		}
		place := places[s.picker.Pick(len(places))]

		typeID, err := s.typeID(dbc, models.SuggestionTypeExploration)
		if err != nil {
			return err
		}
		suggestion, err := s.repo.FindForPlace(dbc, place.ID, models.TriggerInactivity, &typeID)
		if err != nil {
			return err
		}
		if suggestion == nil {
			suggestion, err = s.repo.Create(dbc, models.Suggestion{
				PlaceID:      place.ID,
				TypeID:       &typeID,
				Message:      fmt.Sprintf("You haven't checked out %s yet. Wanna go there?", place.Name),
				TriggerType:  models.TriggerInactivity,
				MinUserLevel: place.Level,
				Priority:     explorationPriority,
				Active:       true,
			})
			if err != nil {
				return err
			}
		}
		result, err = s.repo.EnsureUserSuggestion(dbc, userID, suggestion.ID)
		if err != nil {
			return err
		}
		result.Suggestion = suggestion
		return nil
	})
	if errors.Is(err, models.ErrNoSuggestion) {
		l.Info("Nothing left to explore")
		span.SetStatus(codes.Ok, "Nothing left to explore")
		return nil, err
	}
	if err != nil {
		l.Error("Failed to create exploration suggestion", zap.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create exploration suggestion")
		return nil, fmt.Errorf("error creating exploration suggestion: %w", err)
	}

	l.Info("Exploration suggestion ready", zap.Int64("suggestionID", result.SuggestionID))
	span.SetStatus(codes.Ok, "Exploration suggestion ready")
	return result, nil
}

// SuggestByCategory samples unvisited places of one category. Nothing is
// recorded for the user.
func (s *ServiceImpl) SuggestByCategory(ctx context.Context, userID uuid.UUID, categoryID int64) (*models.CategorySuggestions, error) {
	ctx, span := otel.Tracer("SuggestionService").Start(ctx, "SuggestByCategory", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.Int64("category.id", categoryID),
	))
	defer span.End()

	l := s.logger.With(zap.String("method", "SuggestByCategory"), zap.String("userID", userID.String()), zap.Int64("categoryID", categoryID))
	l.Debug("Sampling places by category")

	dbc := dbctx.From(ctx)
	fail := func(err error) (*models.CategorySuggestions, error) {
		l.Error("Failed to suggest places by category", zap.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to suggest places by category")
		return nil, fmt.Errorf("error suggesting places by category: %w", err)
	}

	category, err := s.category(dbc, categoryID)
	if err != nil {
		return fail(err)
	}
	level, err := s.repo.UserLevel(dbc, userID)
	if err != nil {
		return fail(err)
	}
	places, err := s.repo.UnvisitedPlaces(dbc, userID, level, &categoryID)
	if err != nil {
		return fail(err)
	}

	result := &models.CategorySuggestions{Category: *category, Places: []models.Place{}}
	for _, i := range s.picker.Sample(len(places), CategorySampleSize) {
		result.Places = append(result.Places, places[i])
	}
	if len(result.Places) == 0 {
		result.Message = fmt.Sprintf("You've explored every place in %s!", category.Name)
	}

	l.Info("Category places sampled", zap.Int("count", len(result.Places)))
	span.SetStatus(codes.Ok, "Category places sampled")
	return result, nil
}

// NotifyNewPlace announces a newly approved place unless it already has a
// new place suggestion.
func (s *ServiceImpl) NotifyNewPlace(dbc dbctx.Context, place models.Place) (*models.Suggestion, error) {
	ctx, span := otel.Tracer("SuggestionService").Start(dbc.Ctx, "NotifyNewPlace", trace.WithAttributes(
		attribute.Int64("place.id", place.ID),
	))
	defer span.End()
	dbc.Ctx = ctx

	l := s.logger.With(zap.String("method", "NotifyNewPlace"), zap.Int64("placeID", place.ID))
	l.Debug("Announcing new place")

	fail := func(err error) (*models.Suggestion, error) {
		l.Error("Failed to announce new place", zap.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to announce new place")
		return nil, fmt.Errorf("error announcing new place: %w", err)
	}

	typeID, err := s.typeID(dbc, models.SuggestionTypeNewPlace)
	if err != nil {
		return fail(err)
	}
	existing, err := s.repo.FindForPlace(dbc, place.ID, models.TriggerNewPlace, &typeID)
	if err != nil {
		return fail(err)
	}
	if existing != nil {
		l.Info("New place suggestion already exists", zap.Int64("suggestionID", existing.ID))
		span.SetStatus(codes.Ok, "New place suggestion already exists")
		return existing, nil
	}

	created, err := s.repo.Create(dbc, models.Suggestion{
		PlaceID:      place.ID,
		TypeID:       &typeID,
		Message:      fmt.Sprintf("New on the map: %s. Be the first to visit!", place.Name),
		TriggerType:  models.TriggerNewPlace,
		MinUserLevel: max(place.Level, 1),
		Priority:     newPlacePriority,
		Active:       true,
	})
	if err != nil {
		return fail(err)
	}

	l.Info("New place announced", zap.Int64("suggestionID", created.ID))
	span.SetStatus(codes.Ok, "New place announced")
	return created, nil
}

// Trigger fires one trigger on demand for the user.
func (s *ServiceImpl) Trigger(ctx context.Context, userID uuid.UUID, req models.TriggerRequest) (*models.TriggerResult, error) {
	ctx, span := otel.Tracer("SuggestionService").Start(ctx, "Trigger", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("trigger", string(req.Trigger)),
	))
	defer span.End()

	l := s.logger.With(zap.String("method", "Trigger"), zap.String("userID", userID.String()), zap.String("trigger", string(req.Trigger)))
	l.Debug("Firing trigger")

	handler, ok := s.triggers[req.Trigger]
	if !ok {
		err := fmt.Errorf("%w: trigger %q cannot be fired on demand", models.ErrValidation, req.Trigger)
		l.Warn("Unsupported trigger", zap.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Unsupported trigger")
		return nil, err
	}

	result, err := handler(ctx, userID, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Trigger failed")
		return nil, err
	}

	span.SetStatus(codes.Ok, "Trigger fired")
	return result, nil
}

func (s *ServiceImpl) triggerExploration(ctx context.Context, userID uuid.UUID, _ models.TriggerRequest) (*models.TriggerResult, error) {
	us, err := s.Explore(ctx, userID)
	if errors.Is(err, models.ErrNoSuggestion) {
		return &models.TriggerResult{Trigger: models.TriggerInactivity, Message: "You've visited every place available at your level!"}, nil
	}
	if err != nil {
		return nil, err
	}
	return &models.TriggerResult{
		Trigger:         models.TriggerInactivity,
		UserSuggestions: []models.UserSuggestion{*us},
		Message:         us.Suggestion.Message,
	}, nil
}

func (s *ServiceImpl) triggerLevelUpNow(ctx context.Context, userID uuid.UUID, _ models.TriggerRequest) (*models.TriggerResult, error) {
	result := &models.TriggerResult{Trigger: models.TriggerLevelUp}
	err := s.tx.WithTx(ctx, func(dbc dbctx.Context) error {
		level, err := s.repo.UserLevel(dbc, userID)
		if err != nil {
			return err
		}
		result.UserSuggestions, err = s.TriggerLevelUp(dbc, userID, level)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("error firing level up trigger: %w", err)
	}
	if len(result.UserSuggestions) == 0 {
		result.Message = "No new places unlocked at your level"
	}
	return result, nil
}

func (s *ServiceImpl) triggerCategory(ctx context.Context, userID uuid.UUID, req models.TriggerRequest) (*models.TriggerResult, error) {
	if req.CategoryID == nil {
		return nil, fmt.Errorf("%w: category_id is required for the category trigger", models.ErrValidation)
	}
	found, err := s.SuggestByCategory(ctx, userID, *req.CategoryID)
	if err != nil {
		return nil, err
	}
	return &models.TriggerResult{Trigger: models.TriggerCategory, Places: found.Places, Message: found.Message}, nil
}

// Act applies a dismiss or follow. Repeating an action succeeds without
// changing anything.
func (s *ServiceImpl) Act(ctx context.Context, userID uuid.UUID, req models.SuggestionActionRequest) (*models.SuggestionActionResult, error) {
	ctx, span := otel.Tracer("SuggestionService").Start(ctx, "Act", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.Int64("suggestion.id", req.SuggestionID),
		attribute.String("action", string(req.Action)),
	))
	defer span.End()

	l := s.logger.With(zap.String("method", "Act"), zap.String("userID", userID.String()),
		zap.Int64("suggestionID", req.SuggestionID), zap.String("action", string(req.Action)))
	l.Debug("Applying suggestion action")

	fail := func(err error) (*models.SuggestionActionResult, error) {
		l.Error("Failed to apply suggestion action", zap.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to apply suggestion action")
		return nil, err
	}

	if req.Action != models.ActionDismiss && req.Action != models.ActionFollow {
		return fail(fmt.Errorf("%w: invalid action %q", models.ErrValidation, req.Action))
	}

	dbc := dbctx.From(ctx)
	current, err := s.repo.GetUserSuggestion(dbc, userID, req.SuggestionID)
	if err != nil {
		return fail(err)
	}

	var (
		already bool
		set     func(dbctx.Context, uuid.UUID, int64) (*models.UserSuggestion, error)
		verb    string
	)
	switch req.Action {
	case models.ActionDismiss:
		already, set, verb = current.Dismissed, s.repo.SetDismissed, "dismissed"
	case models.ActionFollow:
		already, set, verb = current.Followed, s.repo.SetFollowed, "followed"
	}

	if already {
		l.Info("Suggestion action already applied")
		span.SetStatus(codes.Ok, "Suggestion action already applied")
		return &models.SuggestionActionResult{
			UserSuggestion: *current,
			Changed:        false,
			Message:        "Suggestion already " + verb,
		}, nil
	}

	updated, err := set(dbc, userID, req.SuggestionID)
	if err != nil {
		return fail(fmt.Errorf("error applying suggestion action: %w", err))
	}

	metrics.Get().SuggestionActionsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("action", string(req.Action))))
	l.Info("Suggestion action applied")
	span.SetStatus(codes.Ok, "Suggestion action applied")
	return &models.SuggestionActionResult{
		UserSuggestion: *updated,
		Changed:        true,
		Message:        "Suggestion " + verb,
	}, nil
}

func (s *ServiceImpl) Create(ctx context.Context, req models.CreateSuggestionRequest) (*models.Suggestion, error) {
	ctx, span := otel.Tracer("SuggestionService").Start(ctx, "Create", trace.WithAttributes(
		attribute.Int64("place.id", req.PlaceID),
		attribute.String("trigger", string(req.TriggerType)),
	))
	defer span.End()

	l := s.logger.With(zap.String("method", "Create"), zap.Int64("placeID", req.PlaceID))
	l.Debug("Creating suggestion")

	if !req.TriggerType.Valid() {
		err := fmt.Errorf("%w: unknown trigger type %q", models.ErrValidation, req.TriggerType)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid trigger type")
		return nil, err
	}

	suggestion := models.Suggestion{
		PlaceID:      req.PlaceID,
		TypeID:       req.TypeID,
		Message:      req.Message,
		TriggerType:  req.TriggerType,
		MinUserLevel: max(req.MinUserLevel, 1),
		Priority:     req.Priority,
		Active:       req.Active == nil || *req.Active,
	}

	created, err := s.repo.Create(dbctx.From(ctx), suggestion)
	if err != nil {
		l.Error("Failed to create suggestion", zap.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create suggestion")
		return nil, fmt.Errorf("error creating suggestion: %w", err)
	}

	l.Info("Suggestion created", zap.Int64("suggestionID", created.ID))
	span.SetStatus(codes.Ok, "Suggestion created")
	return created, nil
}

func (s *ServiceImpl) Update(ctx context.Context, id int64, req models.UpdateSuggestionRequest) (*models.Suggestion, error) {
	ctx, span := otel.Tracer("SuggestionService").Start(ctx, "Update", trace.WithAttributes(
		attribute.Int64("suggestion.id", id),
	))
	defer span.End()

	l := s.logger.With(zap.String("method", "Update"), zap.Int64("suggestionID", id))
	l.Debug("Updating suggestion")

	if req.MinUserLevel != nil && *req.MinUserLevel < 1 {
		err := fmt.Errorf("%w: min_user_level must be at least 1", models.ErrValidation)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid min_user_level")
		return nil, err
	}

	updated, err := s.repo.Update(dbctx.From(ctx), id, req)
	if err != nil {
		l.Error("Failed to update suggestion", zap.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to update suggestion")
		return nil, fmt.Errorf("error updating suggestion: %w", err)
	}

	l.Info("Suggestion updated")
	span.SetStatus(codes.Ok, "Suggestion updated")
	return updated, nil
}

func (s *ServiceImpl) List(ctx context.Context, filter ListFilter) ([]models.Suggestion, error) {
	ctx, span := otel.Tracer("SuggestionService").Start(ctx, "List")
	defer span.End()

	l := s.logger.With(zap.String("method", "List"))
	l.Debug("Listing suggestions")

	if filter.TriggerType != "" && !filter.TriggerType.Valid() {
		err := fmt.Errorf("%w: unknown trigger type %q", models.ErrValidation, filter.TriggerType)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid trigger type")
		return nil, err
	}

	list, err := s.repo.List(dbctx.From(ctx), filter)
	if err != nil {
		l.Error("Failed to list suggestions", zap.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list suggestions")
		return nil, fmt.Errorf("error listing suggestions: %w", err)
	}

	l.Info("Suggestions listed", zap.Int("count", len(list)))
	span.SetStatus(codes.Ok, "Suggestions listed")
	return list, nil
}

func (s *ServiceImpl) createDefault(dbc dbctx.Context, place models.Place, typeName string, trigger models.TriggerType, message string, gate, priority int) (*models.Suggestion, error) {
	typeID, err := s.typeID(dbc, typeName)
	if err != nil {
		return nil, err
	}
	return s.repo.Create(dbc, models.Suggestion{
		PlaceID:      place.ID,
		TypeID:       &typeID,
		Message:      message,
		TriggerType:  trigger,
		MinUserLevel: gate,
		Priority:     priority,
		Active:       true,
	})
}

var typeDescriptions = map[string]string{
	models.SuggestionTypeNewPlace:    "A place was just added to the map",
	models.SuggestionTypeLevelUp:     "Places unlocked by reaching a new level",
	models.SuggestionTypeExploration: "Unvisited places the user has not checked out yet",
	models.SuggestionTypeCategory:    "Places from a chosen category",
}

func (s *ServiceImpl) typeID(dbc dbctx.Context, name string) (int64, error) {
	if t, ok := s.cache.SuggestionType.Get(name); ok {
		return t.ID, nil
	}
	id, err := s.repo.EnsureType(dbc, name, typeDescriptions[name])
	if err != nil {
		return 0, err
	}
	s.cache.SuggestionType.Set(name, models.SuggestionType{ID: id, Name: name, Description: typeDescriptions[name]})
	return id, nil
}

func (s *ServiceImpl) category(dbc dbctx.Context, id int64) (*models.Category, error) {
	key := strconv.FormatInt(id, 10)
	if c, ok := s.cache.Category.Get(key); ok {
		return &c, nil
	}
	c, err := s.repo.GetCategory(dbc, id)
	if err != nil {
		return nil, err
	}
	s.cache.Category.Set(key, *c)
	return c, nil
}
