package profiles

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aayushkdev/vellorun-backend/internal/app/domain/progression"
	"github.com/aayushkdev/vellorun-backend/internal/app/models"
	"github.com/aayushkdev/vellorun-backend/internal/pkg/cache"
	"github.com/aayushkdev/vellorun-backend/internal/pkg/dbctx"
	"github.com/aayushkdev/vellorun-backend/internal/pkg/sanitize"
)

const maxUsernameRunes = 150

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	EnsureUser(ctx context.Context, identity models.Identity) error
	Profile(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	Update(ctx context.Context, userID uuid.UUID, params models.UpdateProfileParams) (*models.Profile, error)
}

type ServiceImpl struct {
	logger *zap.Logger
	repo   Repository
	levels progression.Table
	cache  *cache.CacheManager
}

func NewService(repo Repository, levels progression.Table, cm *cache.CacheManager, logger *zap.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger: logger,
		repo:   repo,
		levels: levels,
		cache:  cm,
	}
}

// EnsureUser upserts the caller. Identities seen recently with the same
// claims are skipped.
func (s *ServiceImpl) EnsureUser(ctx context.Context, identity models.Identity) error {
	key := identity.UserID.String()
	if known, ok := s.cache.KnownUsers.Get(key); ok && known == identity {
		return nil
	}

	ctx, span := otel.Tracer("ProfileService").Start(ctx, "EnsureUser", trace.WithAttributes(
		attribute.String("user.id", key),
	))
	defer span.End()

	if _, err := s.repo.EnsureUser(dbctx.From(ctx), identity); err != nil {
		s.logger.Error("Failed to ensure user", zap.String("userID", key), zap.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to ensure user")
		return fmt.Errorf("error ensuring user: %w", err)
	}
	s.cache.KnownUsers.Set(key, identity)
	span.SetStatus(codes.Ok, "User ensured")
	return nil
}

func (s *ServiceImpl) Profile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	ctx, span := otel.Tracer("ProfileService").Start(ctx, "Profile", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()
	l := s.logger.With(zap.String("method", "Profile"), zap.String("userID", userID.String()))
	l.Debug("Loading profile")

	var (
		user   *models.User
		visits int
		saved  int
	)
	g, gctx := errgroup.WithContext(ctx)
	dbc := dbctx.From(gctx)
	g.Go(func() error {
		var err error
		user, err = s.repo.GetUser(dbc, userID)
		return err
	})
	g.Go(func() error {
		var err error
		visits, err = s.repo.VisitCount(dbc, userID)
		return err
	})
	g.Go(func() error {
		var err error
		saved, err = s.repo.SavedPlaceCount(dbc, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			l.Warn("Profile not found")
		} else {
			l.Error("Failed to load profile", zap.Any("error", err))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to load profile")
		return nil, fmt.Errorf("error loading profile: %w", err)
	}

	profile := s.build(user)
	profile.VisitCount = visits
	profile.SavedPlaceCount = saved

	span.SetStatus(codes.Ok, "Profile loaded")
	return profile, nil
}

func (s *ServiceImpl) build(user *models.User) *models.Profile {
	p := &models.Profile{User: *user}
	if next, ok := s.levels.NextThreshold(user.Level); ok {
		p.NextLevelXP = &next
	}
	return p
}

// Update changes the self-service profile fields. XP, level and badges are
// not reachable from here.
func (s *ServiceImpl) Update(ctx context.Context, userID uuid.UUID, params models.UpdateProfileParams) (*models.Profile, error) {
	ctx, span := otel.Tracer("ProfileService").Start(ctx, "Update", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()
	l := s.logger.With(zap.String("method", "Update"), zap.String("userID", userID.String()))

	fail := func(msg string, err error) (*models.Profile, error) {
		if errors.Is(err, models.ErrValidation) || errors.Is(err, models.ErrNotFound) {
			l.Warn(msg, zap.Error(err))
		} else {
			l.Error(msg, zap.Any("error", err))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, msg)
		return nil, err
	}

	if params.Username != nil {
		name := sanitize.StripHTML(*params.Username)
		if name == "" || utf8.RuneCountInString(name) > maxUsernameRunes {
			return fail("Invalid username", fmt.Errorf("%w: username must be 1-%d characters", models.ErrValidation, maxUsernameRunes))
		}
		params.Username = &name
	}
	if params.Avatar != nil && *params.Avatar < 0 {
		return fail("Invalid avatar", fmt.Errorf("%w: avatar must not be negative", models.ErrValidation))
	}

	user, err := s.repo.UpdateProfile(dbctx.From(ctx), userID, params)
	if err != nil {
		return fail("Failed to update profile", fmt.Errorf("error updating profile: %w", err))
	}

	l.Info("Profile updated")
	span.SetStatus(codes.Ok, "Profile updated")
	return s.Profile(ctx, user.ID)
}
