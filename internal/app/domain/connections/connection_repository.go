package connections

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/FACorreiaa/fogline/internal/app/models"
	database "github.com/FACorreiaa/fogline/internal/db"
)

var _ Repository = (*RepositoryImpl)(nil)

// Repository defines the contract for friend-edge persistence.
type Repository interface {
	CreateRequest(ctx context.Context, requesterID, addresseeID uuid.UUID) (*models.Connection, error)
	// Approve flips the edge to accepted when approverID is its addressee.
	// Re-approving an accepted edge returns the same accepted state.
	Approve(ctx context.Context, connectionID, approverID uuid.UUID) (*models.Connection, error)
	// IsMutuallyAccepted treats the pair as unordered: an accepted edge in
	// either direction counts. This is the only predicate the visibility
	// aggregator and supply-path ledger consult.
	IsMutuallyAccepted(ctx context.Context, userA, userB uuid.UUID) (bool, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Connection, error)
}

type RepositoryImpl struct {
	logger *zap.Logger
	pgpool database.PGXPool
}

func NewRepositoryImpl(pgpool database.PGXPool, logger *zap.Logger) *RepositoryImpl {
	return &RepositoryImpl{
		logger: logger,
		pgpool: pgpool,
	}
}

func (r *RepositoryImpl) CreateRequest(ctx context.Context, requesterID, addresseeID uuid.UUID) (*models.Connection, error) {
	ctx, span := otel.Tracer("ConnectionRepo").Start(ctx, "CreateRequest", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "connections"),
	))
	defer span.End()

	l := r.logger.With(zap.String("method", "CreateRequest"),
		zap.String("requesterID", requesterID.String()), zap.String("addresseeID", addresseeID.String()))

	var conn models.Connection
	err := r.pgpool.QueryRow(ctx, `
        INSERT INTO connections (requester_id, addressee_id, status)
        VALUES ($1, $2, $3)
        RETURNING id, requester_id, addressee_id, status, created_at`,
		requesterID, addresseeID, models.ConnectionPending).Scan(
		&conn.ID,
		&conn.RequesterID,
		&conn.AddresseeID,
		&conn.Status,
		&conn.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			l.Warn("Duplicate connection request", zap.Error(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "Duplicate request")
			return nil, fmt.Errorf("connection already requested: %w", models.ErrConflict)
		}
		l.Error("Failed to insert connection request", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB INSERT failed")
		return nil, fmt.Errorf("database error creating connection request: %w", err)
	}

	l.Info("Connection requested", zap.String("connectionID", conn.ID.String()))
	span.SetStatus(codes.Ok, "Request created")
	return &conn, nil
}

func (r *RepositoryImpl) Approve(ctx context.Context, connectionID, approverID uuid.UUID) (*models.Connection, error) {
	ctx, span := otel.Tracer("ConnectionRepo").Start(ctx, "Approve", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "connections"),
		attribute.String("db.connection.id", connectionID.String()),
	))
	defer span.End()

	l := r.logger.With(zap.String("method", "Approve"), zap.String("connectionID", connectionID.String()))

	// Matching on addressee_id keeps unknown-edge and wrong-approver
	// indistinguishable to the caller.
	var conn models.Connection
	err := r.pgpool.QueryRow(ctx, `
        UPDATE connections
        SET status = $3
        WHERE id = $1 AND addressee_id = $2 AND status IN ($4, $3)
        RETURNING id, requester_id, addressee_id, status, created_at`,
		connectionID, approverID, models.ConnectionAccepted, models.ConnectionPending).Scan(
		&conn.ID,
		&conn.RequesterID,
		&conn.AddresseeID,
		&conn.Status,
		&conn.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			l.Warn("Connection not found or approver is not the addressee")
			span.SetStatus(codes.Error, "Not found")
			return nil, fmt.Errorf("connection %s not approvable by %s: %w",
				connectionID.String(), approverID.String(), models.ErrNotFound)
		}
		l.Error("Failed to approve connection", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		return nil, fmt.Errorf("database error approving connection: %w", err)
	}

	l.Info("Connection approved")
	span.SetStatus(codes.Ok, "Approved")
	return &conn, nil
}

func (r *RepositoryImpl) IsMutuallyAccepted(ctx context.Context, userA, userB uuid.UUID) (bool, error) {
	ctx, span := otel.Tracer("ConnectionRepo").Start(ctx, "IsMutuallyAccepted", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "connections"),
	))
	defer span.End()

	var accepted bool
	err := r.pgpool.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM connections
            WHERE status = $3
              AND ((requester_id = $1 AND addressee_id = $2)
                OR (requester_id = $2 AND addressee_id = $1))
        )`, userA, userB, models.ConnectionAccepted).Scan(&accepted)
	if err != nil {
		r.logger.Error("Failed to check mutual acceptance", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return false, fmt.Errorf("database error checking connection: %w", err)
	}

	span.SetStatus(codes.Ok, "Checked")
	return accepted, nil
}

func (r *RepositoryImpl) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Connection, error) {
	ctx, span := otel.Tracer("ConnectionRepo").Start(ctx, "ListForUser", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "connections"),
		attribute.String("db.user.id", userID.String()),
	))
	defer span.End()

	rows, err := r.pgpool.Query(ctx, `
        SELECT id, requester_id, addressee_id, status, created_at
        FROM connections
        WHERE requester_id = $1 OR addressee_id = $1
        ORDER BY created_at DESC`, userID)
	if err != nil {
		r.logger.Error("Failed to query connections", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error fetching connections: %w", err)
	}
	defer rows.Close()

	var conns []models.Connection
	for rows.Next() {
		var conn models.Connection
		err := rows.Scan(&conn.ID, &conn.RequesterID, &conn.AddresseeID, &conn.Status, &conn.CreatedAt)
		if err != nil {
			r.logger.Error("Failed to scan connection row", zap.Error(err))
			span.RecordError(err)
			return nil, fmt.Errorf("database error scanning connection: %w", err)
		}
		conns = append(conns, conn)
	}
	if err = rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("database error reading connections: %w", err)
	}

	span.SetStatus(codes.Ok, "Connections fetched")
	return conns, nil
}
