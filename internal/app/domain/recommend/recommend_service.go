package recommend

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"

	"github.com/aayushkdev/vellorun-backend/internal/app/models"
	"github.com/aayushkdev/vellorun-backend/internal/app/observability/metrics"
	"github.com/aayushkdev/vellorun-backend/internal/pkg/dbctx"
)

const DefaultCount = 3

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	Recommend(ctx context.Context, userID uuid.UUID, req models.RecommendRequest) (*models.Recommendation, error)
}

type ServiceImpl struct {
	logger    *zap.Logger
	repo      Repository
	completer Completer
	model     string
	timeout   time.Duration
}

// NewService wires the recommender. A nil completer makes every call fail
// with an UpstreamError.
func NewService(repo Repository, completer Completer, model string, timeout time.Duration, logger *zap.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:    logger,
		repo:      repo,
		completer: completer,
		model:     model,
		timeout:   timeout,
	}
}

func (s *ServiceImpl) Recommend(ctx context.Context, userID uuid.UUID, req models.RecommendRequest) (*models.Recommendation, error) {
	ctx, span := otel.Tracer("RecommendService").Start(ctx, "Recommend", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.Int("count", req.Count),
		attribute.Int("categories", len(req.CategoryIDs)),
		attribute.Int("tags", len(req.Tags)),
	))
	defer span.End()

	l := s.logger.With(zap.String("method", "Recommend"), zap.String("userID", userID.String()))
	l.Debug("Requesting recommendations")

	fail := func(msg string, err error) (*models.Recommendation, error) {
		l.Error(msg, zap.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, msg)
		return nil, err
	}

	count := req.Count
	if count <= 0 {
		count = DefaultCount
	}
	categoryIDs := slices.Compact(slices.Sorted(slices.Values(req.CategoryIDs)))

	var places []models.Place
	dbc := dbctx.From(ctx)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		places, err = s.repo.Candidates(dbctx.Context{Ctx: gctx, Tx: dbc.Tx}, userID)
		return err
	})
	if len(categoryIDs) > 0 {
		g.Go(func() error {
			n, err := s.repo.CountCategories(dbctx.Context{Ctx: gctx, Tx: dbc.Tx}, categoryIDs)
			if err != nil {
				return err
			}
			if n != len(categoryIDs) {
				return fmt.Errorf("%w: unknown category id", models.ErrValidation)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fail("Failed to load recommendation candidates", fmt.Errorf("error loading candidates: %w", err))
	}

	if len(places) == 0 {
		l.Info("No candidates to recommend")
		span.SetStatus(codes.Ok, "No candidates")
		return &models.Recommendation{Places: []models.RecommendedPlace{}, Message: "No places left to recommend at your level"}, nil
	}

	candidates, byID := flagRelevance(places, categoryIDs, req.Tags)

	if s.completer == nil {
		return fail("Recommender not configured", &UpstreamError{Err: errors.New("no language model is configured")})
	}

	prompt := BuildPrompt(candidates, count)
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	reply, err := s.completer.Complete(callCtx, prompt, s.model)
	elapsed := time.Since(start).Seconds()
	m := metrics.Get()
	m.RecommendationDuration.Record(ctx, elapsed, metric.WithAttributes(attribute.String("model", s.model)))
	if err != nil {
		m.RecommendationErrorTotal.Add(ctx, 1)
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("request timed out after %s", s.timeout)
		}
		return fail("Upstream recommendation call failed", &UpstreamError{Err: err})
	}

	result := &models.Recommendation{Places: []models.RecommendedPlace{}, Model: s.model}
	seen := map[int64]bool{}
	for _, id := range ParseIDs(reply) {
		if len(result.Places) == count {
			break
		}
		c, ok := byID[id]
		if !ok || seen[id] || !slices.Contains(prompt.CandidateIDs, id) {
			continue
		}
		seen[id] = true
		result.Places = append(result.Places, c)
	}
	if len(result.Places) == 0 {
		m.RecommendationErrorTotal.Add(ctx, 1)
		return fail("Unusable upstream reply", &UpstreamError{Err: fmt.Errorf("no known place ids in reply %q", truncate(reply, 80))})
	}

	l.Info("Recommendations ready", zap.Int("count", len(result.Places)), zap.Float64("upstream_seconds", elapsed))
	span.SetStatus(codes.Ok, "Recommendations ready")
	return result, nil
}

// flagRelevance marks places matching a requested category or tag. Tags are
// compared case-folded against place tags and the category name.
func flagRelevance(places []models.Place, categoryIDs []int64, tags []string) ([]Candidate, map[int64]models.RecommendedPlace) {
	fold := cases.Fold()
	wanted := make(map[string]bool, len(tags))
	for _, t := range tags {
		if t != "" {
			wanted[fold.String(t)] = true
		}
	}

	candidates := make([]Candidate, 0, len(places))
	byID := make(map[int64]models.RecommendedPlace, len(places))
	for _, p := range places {
		relevant := p.CategoryID != nil && slices.Contains(categoryIDs, *p.CategoryID)
		if !relevant && len(wanted) > 0 {
			relevant = wanted[fold.String(p.CategoryName)]
			for _, t := range p.Tags {
				if relevant {
					break
				}
				relevant = wanted[fold.String(t)]
			}
		}
		candidates = append(candidates, Candidate{ID: p.ID, Name: p.Name, Description: p.Description, Relevant: relevant})
		byID[p.ID] = models.RecommendedPlace{Place: p, Relevant: relevant}
	}
	return candidates, byID
}
