package visibility

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/FACorreiaa/fogline/internal/app/domain/claims"
	"github.com/FACorreiaa/fogline/internal/app/models"
	"github.com/FACorreiaa/fogline/internal/observability/metrics"
	"github.com/FACorreiaa/fogline/internal/pkg/config"
)

var _ Service = (*ServiceImpl)(nil)

// Service defines the business logic contract for visibility aggregation and
// fog complement.
type Service interface {
	// ComputeVisible returns the union of all visibility sources for the
	// user's live position. Without a home claim the result is either an
	// error or an explicit degraded bubble, depending on configuration.
	ComputeVisible(ctx context.Context, userID uuid.UUID, q models.VisibilityQuery) (*models.VisibilityResult, error)
	// ComputeFog returns the reference region minus the visible union. A nil
	// box means the whole world.
	ComputeFog(ctx context.Context, userID uuid.UUID, q models.VisibilityQuery, box *models.BoundingBox) (*models.FogResult, error)
}

// worldBox is the default fog reference region.
var worldBox = models.BoundingBox{MinLon: -180, MinLat: -90, MaxLon: 180, MaxLat: 90}

type ServiceImpl struct {
	logger      *zap.Logger
	repo        Repository
	claims      claims.Repository
	cfg         config.VisibilityConfig
	resultCache *cache.Cache
}

func NewService(repo Repository, claimRepo claims.Repository, cfg config.VisibilityConfig, logger *zap.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:      logger,
		repo:        repo,
		claims:      claimRepo,
		cfg:         cfg,
		resultCache: cache.New(cfg.ResultTTL, 2*cfg.ResultTTL),
	}
}

func validCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

func (s *ServiceImpl) validateQuery(q models.VisibilityQuery) error {
	if !validCoordinates(q.Lat, q.Lon) {
		return fmt.Errorf("coordinates (%f, %f) out of range: %w", q.Lat, q.Lon, models.ErrValidation)
	}
	if q.RadiusM <= 0 {
		return fmt.Errorf("radius must be positive: %w", models.ErrValidation)
	}
	return nil
}

// hasHomeClaim reports whether the user holds a claim, translating the
// lookup's NotFound into false.
func (s *ServiceImpl) hasHomeClaim(ctx context.Context, userID uuid.UUID) (bool, error) {
	_, err := s.claims.GetClaimByOwner(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *ServiceImpl) ComputeVisible(ctx context.Context, userID uuid.UUID, q models.VisibilityQuery) (*models.VisibilityResult, error) {
	ctx, span := otel.Tracer("VisibilityService").Start(ctx, "ComputeVisible", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.Float64("query.radius_m", q.RadiusM),
	))
	defer span.End()

	l := s.logger.With(zap.String("method", "ComputeVisible"), zap.String("userID", userID.String()))

	if err := s.validateQuery(q); err != nil {
		span.SetStatus(codes.Error, "Invalid query")
		return nil, err
	}

	cacheKey := fmt.Sprintf("vis:%s:%.6f:%.6f:%.1f", userID.String(), q.Lat, q.Lon, q.RadiusM)
	if cached, found := s.resultCache.Get(cacheKey); found {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		span.SetStatus(codes.Ok, "Served from cache")
		return cached.(*models.VisibilityResult), nil
	}

	hasHome, err := s.hasHomeClaim(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Claim lookup failed")
		return nil, err
	}

	var result *models.VisibilityResult
	if hasHome {
		result, err = s.repo.VisibleUnion(ctx, userID, q.Lat, q.Lon, q.RadiusM)
	} else if s.cfg.LiveFallback {
		l.Debug("No home claim, serving degraded live bubble")
		result, err = s.repo.LiveBubble(ctx, q.Lat, q.Lon, q.RadiusM)
	} else {
		span.SetStatus(codes.Error, "Home not claimed")
		return nil, fmt.Errorf("visibility requires a home claim: %w: %w",
			models.ErrPrecondition, models.ErrHomeNotClaimed)
	}
	if err != nil {
		l.Error("Failed to compute visibility", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Computation failed")
		return nil, err
	}

	s.resultCache.Set(cacheKey, result, cache.DefaultExpiration)
	metrics.Get().VisibilityRequests.Add(ctx, 1)
	span.SetAttributes(attribute.Int("visibility.source_count", result.SourceCount))
	span.SetStatus(codes.Ok, "Visibility computed")
	return result, nil
}

func (s *ServiceImpl) ComputeFog(ctx context.Context, userID uuid.UUID, q models.VisibilityQuery, box *models.BoundingBox) (*models.FogResult, error) {
	ctx, span := otel.Tracer("VisibilityService").Start(ctx, "ComputeFog", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	l := s.logger.With(zap.String("method", "ComputeFog"), zap.String("userID", userID.String()))

	if err := s.validateQuery(q); err != nil {
		span.SetStatus(codes.Error, "Invalid query")
		return nil, err
	}

	region := worldBox
	if box != nil {
		if !box.Valid() {
			span.SetStatus(codes.Error, "Invalid bounding box")
			return nil, fmt.Errorf("%w: %w", models.ErrValidation, models.ErrInvalidBoundingBox)
		}
		region = *box
	}

	hasHome, err := s.hasHomeClaim(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Claim lookup failed")
		return nil, err
	}

	var result *models.FogResult
	if hasHome {
		result, err = s.repo.FogOfWar(ctx, userID, q.Lat, q.Lon, q.RadiusM, region)
	} else if s.cfg.LiveFallback {
		l.Debug("No home claim, serving degraded live-only fog")
		result, err = s.repo.FogLiveOnly(ctx, q.Lat, q.Lon, q.RadiusM, region)
	} else {
		span.SetStatus(codes.Error, "Home not claimed")
		return nil, fmt.Errorf("fog requires a home claim: %w: %w",
			models.ErrPrecondition, models.ErrHomeNotClaimed)
	}
	if err != nil {
		l.Error("Failed to compute fog", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Computation failed")
		return nil, err
	}

	metrics.Get().FogRequests.Add(ctx, 1)
	span.SetAttributes(attribute.Int("visibility.source_count", result.VisibleSources))
	span.SetStatus(codes.Ok, "Fog computed")
	return result, nil
}
