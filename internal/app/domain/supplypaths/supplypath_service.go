package supplypaths

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
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/fogline/internal/app/domain/claims"
	"github.com/FACorreiaa/fogline/internal/app/domain/connections"
	"github.com/FACorreiaa/fogline/internal/app/models"
	"github.com/FACorreiaa/fogline/internal/observability/metrics"
)

var _ Service = (*ServiceImpl)(nil)

// Service defines the business logic contract for the supply-path ledger.
type Service interface {
	// TouchPath refreshes the corridor towards friendID. The caller must be
	// mutually connected to the friend, both must hold home claims, and the
	// live position must be within touch range of the friend's home.
	TouchPath(ctx context.Context, userID, friendID uuid.UUID, liveLat, liveLon float64) (*models.SupplyPath, error)
	ActivePaths(ctx context.Context, userID uuid.UUID) ([]models.SupplyPath, error)
}

type ServiceImpl struct {
	logger      *zap.Logger
	repo        Repository
	claims      claims.Repository
	connections connections.Repository
}

func NewService(repo Repository, claimRepo claims.Repository, connRepo connections.Repository, logger *zap.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:      logger,
		repo:        repo,
		claims:      claimRepo,
		connections: connRepo,
	}
}

func validCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

func (s *ServiceImpl) TouchPath(ctx context.Context, userID, friendID uuid.UUID, liveLat, liveLon float64) (*models.SupplyPath, error) {
	ctx, span := otel.Tracer("SupplyPathService").Start(ctx, "TouchPath", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("friend.id", friendID.String()),
	))
	defer span.End()

	l := s.logger.With(zap.String("method", "TouchPath"),
		zap.String("userID", userID.String()), zap.String("friendID", friendID.String()))

	if userID == friendID {
		span.SetStatus(codes.Error, "Self touch")
		return nil, fmt.Errorf("%w: %w", models.ErrValidation, models.ErrSelfConnection)
	}
	if !validCoordinates(liveLat, liveLon) {
		span.SetStatus(codes.Error, "Coordinates out of range")
		return nil, fmt.Errorf("coordinates (%f, %f) out of range: %w", liveLat, liveLon, models.ErrValidation)
	}

	accepted, err := s.connections.IsMutuallyAccepted(ctx, userID, friendID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Connection check failed")
		return nil, err
	}
	if !accepted {
		span.SetStatus(codes.Error, "Not connected")
		return nil, fmt.Errorf("%w: %w", models.ErrPrecondition, models.ErrNotConnected)
	}

	var userHome, friendHome *models.Claim
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		userHome, err = s.claims.GetClaimByOwner(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		friendHome, err = s.claims.GetClaimByOwner(gctx, friendID)
		return err
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			span.SetStatus(codes.Error, "Home not claimed")
			return nil, fmt.Errorf("both users need home claims: %w: %w",
				models.ErrPrecondition, models.ErrHomeNotClaimed)
		}
		l.Error("Failed to resolve home claims", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Claim lookup failed")
		return nil, err
	}

	within, err := s.repo.IsWithinTouchRange(ctx, liveLat, liveLon, friendHome.Latitude, friendHome.Longitude)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Proximity check failed")
		return nil, err
	}
	if !within {
		span.SetStatus(codes.Error, "Too far from friend's home")
		return nil, fmt.Errorf("live point beyond %.0fm of friend's home: %w: %w",
			models.TouchProximityM, models.ErrConflict, models.ErrTooFarFromFriend)
	}

	path, err := s.repo.Upsert(ctx, userID, friendID, userHome, friendHome)
	if err != nil {
		l.Error("Failed to touch supply path", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Upsert failed")
		return nil, err
	}

	metrics.Get().SupplyPathTouchesTotal.Add(ctx, 1)
	l.Info("Supply path refreshed", zap.String("pathID", path.ID.String()), zap.Int("health", path.Health))
	span.SetStatus(codes.Ok, "Path touched")
	return path, nil
}

func (s *ServiceImpl) ActivePaths(ctx context.Context, userID uuid.UUID) ([]models.SupplyPath, error) {
	ctx, span := otel.Tracer("SupplyPathService").Start(ctx, "ActivePaths", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	paths, err := s.repo.ActivePaths(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list active paths")
		return nil, err
	}

	span.SetStatus(codes.Ok, "Active paths listed")
	return paths, nil
}
