package claims

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/FACorreiaa/fogline/internal/app/models"
	"github.com/FACorreiaa/fogline/internal/observability/metrics"
)

var _ Service = (*ServiceImpl)(nil)

// Service defines the business logic contract for the claim registry.
type Service interface {
	CreateClaim(ctx context.Context, ownerID uuid.UUID, lat, lon float64, label string) (*models.Claim, error)
	GetClaimByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Claim, error)
	FindNear(ctx context.Context, lat, lon, radiusM float64, limit int) ([]models.NearbyClaim, error)
}

type ServiceImpl struct {
	logger *zap.Logger
	repo   Repository
}

func NewService(repo Repository, logger *zap.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger: logger,
		repo:   repo,
	}
}

func validCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

func (s *ServiceImpl) CreateClaim(ctx context.Context, ownerID uuid.UUID, lat, lon float64, label string) (*models.Claim, error) {
	ctx, span := otel.Tracer("ClaimService").Start(ctx, "CreateClaim", trace.WithAttributes(
		attribute.String("user.id", ownerID.String()),
	))
	defer span.End()

	l := s.logger.With(zap.String("method", "CreateClaim"), zap.String("ownerID", ownerID.String()))

	if !validCoordinates(lat, lon) {
		span.SetStatus(codes.Error, "Coordinates out of range")
		return nil, fmt.Errorf("coordinates (%f, %f) out of range: %w", lat, lon, models.ErrValidation)
	}

	label = strings.TrimSpace(norm.NFC.String(label))
	if label == "" {
		span.SetStatus(codes.Error, "Empty address label")
		return nil, fmt.Errorf("address label cannot be empty: %w", models.ErrValidation)
	}

	claim, err := s.repo.CreateClaim(ctx, ownerID, lat, lon, label)
	if err != nil {
		l.Error("Failed to create claim", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create claim")
		return nil, err
	}

	metrics.Get().ClaimsCreatedTotal.Add(ctx, 1)
	l.Info("Claim created", zap.String("claimID", claim.ID.String()))
	span.SetStatus(codes.Ok, "Claim created")
	return claim, nil
}

func (s *ServiceImpl) GetClaimByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Claim, error) {
	ctx, span := otel.Tracer("ClaimService").Start(ctx, "GetClaimByOwner", trace.WithAttributes(
		attribute.String("user.id", ownerID.String()),
	))
	defer span.End()

	claim, err := s.repo.GetClaimByOwner(ctx, ownerID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to fetch claim")
		return nil, err
	}

	span.SetStatus(codes.Ok, "Claim fetched")
	return claim, nil
}

func (s *ServiceImpl) FindNear(ctx context.Context, lat, lon, radiusM float64, limit int) ([]models.NearbyClaim, error) {
	ctx, span := otel.Tracer("ClaimService").Start(ctx, "FindNear", trace.WithAttributes(
		attribute.Float64("query.radius_m", radiusM),
	))
	defer span.End()

	if !validCoordinates(lat, lon) {
		span.SetStatus(codes.Error, "Coordinates out of range")
		return nil, fmt.Errorf("coordinates (%f, %f) out of range: %w", lat, lon, models.ErrValidation)
	}
	if radiusM <= 0 {
		span.SetStatus(codes.Error, "Non-positive radius")
		return nil, fmt.Errorf("radius must be positive: %w", models.ErrValidation)
	}

	nearby, err := s.repo.FindNear(ctx, lat, lon, radiusM, limit)
	if err != nil {
		s.logger.Error("Failed to find nearby claims", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to find nearby claims")
		return nil, err
	}

	span.SetStatus(codes.Ok, "Nearby claims fetched")
	return nearby, nil
}
