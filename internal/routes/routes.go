package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/aayushkdev/vellorun-backend/internal/app/domain/auth"
	"github.com/aayushkdev/vellorun-backend/internal/app/domain/badges"
	"github.com/aayushkdev/vellorun-backend/internal/app/domain/contributions"
	"github.com/aayushkdev/vellorun-backend/internal/app/domain/places"
	"github.com/aayushkdev/vellorun-backend/internal/app/domain/profiles"
	"github.com/aayushkdev/vellorun-backend/internal/app/domain/progression"
	"github.com/aayushkdev/vellorun-backend/internal/app/domain/recommend"
	"github.com/aayushkdev/vellorun-backend/internal/app/domain/suggestions"
	"github.com/aayushkdev/vellorun-backend/internal/app/domain/visits"
	database "github.com/aayushkdev/vellorun-backend/internal/db"
	"github.com/aayushkdev/vellorun-backend/internal/pkg/cache"
	"github.com/aayushkdev/vellorun-backend/internal/pkg/config"
)

// Dependencies are the long lived resources the handlers are built from.
type Dependencies struct {
	Pool      *pgxpool.Pool
	Config    *config.Config
	Cache     *cache.CacheManager
	Completer recommend.Completer
	Logger    *zap.Logger
}

type AppHandlers struct {
	Places        *places.Handler
	Contributions *contributions.Handler
	Profiles      *profiles.Handler
	Visits        *visits.Handler
	Suggestions   *suggestions.Handler
	Recommend     *recommend.Handler
	DevTokens     *auth.TokenHandler

	tokens   *auth.TokenService
	profiles profiles.Service
	health   gin.HandlerFunc
}

func Setup(r *gin.Engine, deps Dependencies) {
	setupRouter(r, setupDependencies(deps), deps.Config)
}

func setupDependencies(deps Dependencies) *AppHandlers {
	log := deps.Logger
	cfg := deps.Config
	tx := database.NewTxManager(deps.Pool, log)

	// Create repositories
	placesRepo := places.NewRepository(deps.Pool, log)
	contributionsRepo := contributions.NewRepository(deps.Pool, log)
	profilesRepo := profiles.NewRepository(deps.Pool, log)
	visitsRepo := visits.NewRepository(deps.Pool, log)
	suggestionsRepo := suggestions.NewRepository(deps.Pool, log)
	recommendRepo := recommend.NewRepository(deps.Pool, log)

	// Create services
	suggestionsService := suggestions.NewService(suggestionsRepo, tx, suggestions.NewRandPicker(cfg.SuggestionSeed), deps.Cache, log)
	placesService := places.NewService(placesRepo, tx, suggestionsService, deps.Cache, log)
	contributionsService := contributions.NewService(contributionsRepo, tx, placesRepo, suggestionsService, log)
	profilesService := profiles.NewService(profilesRepo, progression.DefaultTable, deps.Cache, log)
	visitsService := visits.NewService(visitsRepo, tx, progression.DefaultTable, badges.NewDeriver(), suggestionsService, log)
	recommendService := recommend.NewService(recommendRepo, deps.Completer, cfg.Recommender.Model, cfg.Recommender.Timeout, log)

	tokens := auth.NewTokenService(cfg.JWT.SecretKey, cfg.JWT.TokenTTL, log)

	return &AppHandlers{
		Places:        places.NewHandler(placesService, log),
		Contributions: contributions.NewHandler(contributionsService, log),
		Profiles:      profiles.NewHandler(profilesService, log),
		Visits:        visits.NewHandler(visitsService, log),
		Suggestions:   suggestions.NewHandler(suggestionsService, log),
		Recommend:     recommend.NewHandler(recommendService, log),
		DevTokens:     auth.NewTokenHandler(tokens, log),
		tokens:        tokens,
		profiles:      profilesService,
		health:        healthHandler(deps.Pool, deps.Cache),
	}
}

func healthHandler(pool *pgxpool.Pool, cm *cache.CacheManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status, db := http.StatusOK, "ok"
		if err := pool.Ping(ctx); err != nil {
			status, db = http.StatusServiceUnavailable, "unreachable"
		}
		c.JSON(status, gin.H{
			"status":   http.StatusText(status),
			"database": db,
			"cache":    cm.GetAllMetrics(),
			"time":     time.Now().UTC(),
		})
	}
}

func setupRouter(r *gin.Engine, h *AppHandlers, cfg *config.Config) {
	r.GET("/health", h.health)

	requireAuth := h.tokens.Middleware(h.profiles, false)
	optionalAuth := h.tokens.Middleware(h.profiles, true)
	adminOnly := auth.RequireAdmin()

	if cfg.JWT.DevTokens {
		dev := r.Group("/dev")
		dev.POST("/token", h.DevTokens.GenerateToken)
		dev.GET("/verify", requireAuth, h.DevTokens.VerifyToken)
	}

	api := r.Group("/api/v1")

	// Public reads
	public := api.Group("", optionalAuth)
	{
		public.GET("/places", h.Places.List)
		public.GET("/places/:id", h.Places.Get)
		public.GET("/categories", h.Places.Categories)
		public.GET("/categories/:id", h.Places.Category)
		public.GET("/categories/:id/places", h.Places.CategoryPlaces)
	}

	authed := api.Group("", requireAuth)
	{
		authed.GET("/user/profile", h.Profiles.GetProfile)
		authed.PATCH("/user/profile", h.Profiles.UpdateProfile)
		authed.GET("/user/visits", h.Visits.History)
		authed.GET("/user/saved-places", h.Places.SavedPlaces)

		authed.POST("/places", h.Places.Create)
		authed.POST("/places/:id/save", h.Places.Save)
		authed.DELETE("/places/:id/save", h.Places.Unsave)

		authed.POST("/visit", h.Visits.Visit)

		authed.GET("/suggestions", h.Suggestions.GetBest)
		authed.POST("/suggestions", h.Suggestions.Act)
		authed.POST("/suggestions/trigger", h.Suggestions.Trigger)
		authed.GET("/suggest-by-category", h.Suggestions.ByCategory)

		authed.GET("/place-suggestions", h.Contributions.List)
		authed.POST("/place-suggestions", h.Contributions.Submit)
		authed.GET("/place-suggestions/:id", h.Contributions.Get)
		authed.PATCH("/place-suggestions/:id", h.Contributions.Update)
		authed.DELETE("/place-suggestions/:id", h.Contributions.Delete)

		authed.POST("/recommendations", h.Recommend.Recommend)
	}

	admin := api.Group("", requireAuth, adminOnly)
	{
		admin.PATCH("/places/:id", h.Places.Update)
		admin.DELETE("/places/:id", h.Places.Delete)
		admin.POST("/places/:id/approve", h.Places.Approve)
		admin.POST("/place-suggestions/:id/process", h.Contributions.Process)

		admin.GET("/admin/suggestions", h.Suggestions.AdminList)
		admin.POST("/admin/suggestions", h.Suggestions.AdminCreate)
		admin.PATCH("/admin/suggestions/:id", h.Suggestions.AdminUpdate)
	}
}
