package connections

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/FACorreiaa/fogline/internal/app/models"
	"github.com/FACorreiaa/fogline/internal/observability/metrics"
)

var _ Service = (*ServiceImpl)(nil)

// Service defines the business logic contract for the connection graph.
type Service interface {
	RequestConnection(ctx context.Context, requesterID, addresseeID uuid.UUID) (*models.Connection, error)
	ApproveConnection(ctx context.Context, connectionID, approverID uuid.UUID) (*models.Connection, error)
	IsMutuallyAccepted(ctx context.Context, userA, userB uuid.UUID) (bool, error)
	ListConnections(ctx context.Context, userID uuid.UUID) ([]models.Connection, error)
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

func (s *ServiceImpl) RequestConnection(ctx context.Context, requesterID, addresseeID uuid.UUID) (*models.Connection, error) {
	ctx, span := otel.Tracer("ConnectionService").Start(ctx, "RequestConnection", trace.WithAttributes(
		attribute.String("requester.id", requesterID.String()),
		attribute.String("addressee.id", addresseeID.String()),
	))
	defer span.End()

	l := s.logger.With(zap.String("method", "RequestConnection"),
		zap.String("requesterID", requesterID.String()), zap.String("addresseeID", addresseeID.String()))

	if requesterID == addresseeID {
		span.SetStatus(codes.Error, "Self connection")
		return nil, fmt.Errorf("%w: %w", models.ErrValidation, models.ErrSelfConnection)
	}

	conn, err := s.repo.CreateRequest(ctx, requesterID, addresseeID)
	if err != nil {
		l.Error("Failed to request connection", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to request connection")
		return nil, err
	}

	metrics.Get().ConnectionsTotal.Add(ctx, 1)
	l.Info("Connection requested", zap.String("connectionID", conn.ID.String()))
	span.SetStatus(codes.Ok, "Connection requested")
	return conn, nil
}

func (s *ServiceImpl) ApproveConnection(ctx context.Context, connectionID, approverID uuid.UUID) (*models.Connection, error) {
	ctx, span := otel.Tracer("ConnectionService").Start(ctx, "ApproveConnection", trace.WithAttributes(
		attribute.String("connection.id", connectionID.String()),
	))
	defer span.End()

	conn, err := s.repo.Approve(ctx, connectionID, approverID)
	if err != nil {
		s.logger.Error("Failed to approve connection",
			zap.String("connectionID", connectionID.String()), zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to approve connection")
		return nil, err
	}

	span.SetStatus(codes.Ok, "Connection approved")
	return conn, nil
}

func (s *ServiceImpl) IsMutuallyAccepted(ctx context.Context, userA, userB uuid.UUID) (bool, error) {
	ctx, span := otel.Tracer("ConnectionService").Start(ctx, "IsMutuallyAccepted")
	defer span.End()

	accepted, err := s.repo.IsMutuallyAccepted(ctx, userA, userB)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to check connection")
		return false, err
	}

	span.SetStatus(codes.Ok, "Checked")
	return accepted, nil
}

func (s *ServiceImpl) ListConnections(ctx context.Context, userID uuid.UUID) ([]models.Connection, error) {
	ctx, span := otel.Tracer("ConnectionService").Start(ctx, "ListConnections", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	conns, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list connections")
		return nil, err
	}

	span.SetStatus(codes.Ok, "Connections listed")
	return conns, nil
}
