package claims

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/FACorreiaa/fogline/internal/app/models"
	database "github.com/FACorreiaa/fogline/internal/db"
	"github.com/FACorreiaa/fogline/internal/observability/metrics"
)

var _ Repository = (*RepositoryImpl)(nil)

// Repository defines the contract for home-claim persistence.
type Repository interface {
	// CreateClaim inserts a claim unless another claim lies within the
	// exclusion radius or the owner already holds one.
	CreateClaim(ctx context.Context, ownerID uuid.UUID, lat, lon float64, label string) (*models.Claim, error)
	// GetClaimByOwner is the canonical home lookup used by every other
	// component.
	GetClaimByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Claim, error)
	// FindNear returns claims within radiusM meters of the point, closest
	// first, capped at models.FindNearMaxResults.
	FindNear(ctx context.Context, lat, lon, radiusM float64, limit int) ([]models.NearbyClaim, error)
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

func (r *RepositoryImpl) CreateClaim(ctx context.Context, ownerID uuid.UUID, lat, lon float64, label string) (*models.Claim, error) {
	ctx, span := otel.Tracer("ClaimRepo").Start(ctx, "CreateClaim", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "claims"),
		attribute.String("db.user.id", ownerID.String()),
	))
	defer span.End()

	l := r.logger.With(zap.String("method", "CreateClaim"), zap.String("ownerID", ownerID.String()))
	l.Debug("Creating home claim", zap.Float64("lat", lat), zap.Float64("lon", lon))

	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		l.Error("Failed to begin transaction", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "BEGIN failed")
		return nil, fmt.Errorf("database error creating claim: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Serialize the exclusivity check against concurrent claim inserts from
	// any worker process. Claim creation is a rare write, so a single
	// store-level advisory lock is sufficient.
	if _, err = tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext('claims_exclusivity'))`); err != nil {
		l.Error("Failed to take claim advisory lock", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Advisory lock failed")
		return nil, fmt.Errorf("database error creating claim: %w", err)
	}

	var taken bool
	err = tx.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM claims
            WHERE ST_DWithin(location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3)
        )`, lon, lat, models.ClaimExclusionRadiusM).Scan(&taken)
	if err != nil {
		l.Error("Failed to check claim exclusivity", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Exclusivity check failed")
		return nil, fmt.Errorf("database error creating claim: %w", err)
	}
	if taken {
		span.SetStatus(codes.Error, "Location already claimed")
		return nil, fmt.Errorf("point within %.0fm of an existing claim: %w: %w",
			models.ClaimExclusionRadiusM, models.ErrConflict, models.ErrLocationClaimed)
	}

	var claim models.Claim
	err = tx.QueryRow(ctx, `
        INSERT INTO claims (owner_id, address_label, location)
        VALUES ($1, $2, ST_SetSRID(ST_MakePoint($3, $4), 4326)::geography)
        RETURNING id, owner_id, address_label,
                  ST_Y(location::geometry), ST_X(location::geometry), created_at`,
		ownerID, label, lon, lat).Scan(
		&claim.ID,
		&claim.OwnerID,
		&claim.AddressLabel,
		&claim.Latitude,
		&claim.Longitude,
		&claim.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			l.Warn("Owner already has a claim", zap.Error(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "Duplicate owner claim")
			return nil, fmt.Errorf("user %s already claimed a home: %w: %w",
				ownerID.String(), models.ErrConflict, models.ErrOwnerHasClaim)
		}
		l.Error("Failed to insert claim", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB INSERT failed")
		return nil, fmt.Errorf("database error creating claim: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		l.Error("Failed to commit claim", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "COMMIT failed")
		return nil, fmt.Errorf("database error creating claim: %w", err)
	}

	l.Info("Home claim created", zap.String("claimID", claim.ID.String()))
	span.SetAttributes(attribute.String("db.claim.id", claim.ID.String()))
	span.SetStatus(codes.Ok, "Claim created")
	return &claim, nil
}

func (r *RepositoryImpl) GetClaimByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Claim, error) {
	ctx, span := otel.Tracer("ClaimRepo").Start(ctx, "GetClaimByOwner", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "claims"),
		attribute.String("db.user.id", ownerID.String()),
	))
	defer span.End()

	var claim models.Claim
	err := r.pgpool.QueryRow(ctx, `
        SELECT id, owner_id, address_label,
               ST_Y(location::geometry), ST_X(location::geometry), created_at
        FROM claims
        WHERE owner_id = $1`, ownerID).Scan(
		&claim.ID,
		&claim.OwnerID,
		&claim.AddressLabel,
		&claim.Latitude,
		&claim.Longitude,
		&claim.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "Claim not found")
			return nil, fmt.Errorf("no claim for owner %s: %w", ownerID.String(), models.ErrNotFound)
		}
		r.logger.Error("Failed to fetch claim", zap.String("ownerID", ownerID.String()), zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error fetching claim: %w", err)
	}

	span.SetStatus(codes.Ok, "Claim fetched")
	return &claim, nil
}

func (r *RepositoryImpl) FindNear(ctx context.Context, lat, lon, radiusM float64, limit int) ([]models.NearbyClaim, error) {
	ctx, span := otel.Tracer("ClaimRepo").Start(ctx, "FindNear", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "claims"),
		attribute.Float64("query.radius_m", radiusM),
	))
	defer span.End()

	l := r.logger.With(zap.String("method", "FindNear"))

	if limit <= 0 || limit > models.FindNearMaxResults {
		limit = models.FindNearMaxResults
	}

	query, args, err := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Select("id", "owner_id", "address_label",
			"ST_Y(location::geometry) AS lat",
			"ST_X(location::geometry) AS lon",
			"created_at").
		Column(sq.Expr("ST_Distance(location, ST_SetSRID(ST_MakePoint(?, ?), 4326)::geography) AS distance_m", lon, lat)).
		From("claims").
		Where(sq.Expr("ST_DWithin(location, ST_SetSRID(ST_MakePoint(?, ?), 4326)::geography, ?)", lon, lat, radiusM)).
		OrderBy("distance_m ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Query build failed")
		return nil, fmt.Errorf("building find-near query: %w", err)
	}

	start := time.Now()
	rows, err := r.pgpool.Query(ctx, query, args...)
	if err != nil {
		l.Error("Failed to query nearby claims", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error finding nearby claims: %w", err)
	}
	defer rows.Close()
	metrics.Get().DBQueryDurationSeconds.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("query", "claims_find_near")))

	var nearby []models.NearbyClaim
	for rows.Next() {
		var c models.NearbyClaim
		err := rows.Scan(
			&c.ID, &c.OwnerID, &c.AddressLabel,
			&c.Latitude, &c.Longitude, &c.CreatedAt, &c.DistanceM,
		)
		if err != nil {
			l.Error("Failed to scan nearby claim row", zap.Error(err))
			span.RecordError(err)
			return nil, fmt.Errorf("database error scanning nearby claim: %w", err)
		}
		nearby = append(nearby, c)
	}
	if err = rows.Err(); err != nil {
		l.Error("Error iterating nearby claim rows", zap.Error(err))
		span.RecordError(err)
		return nil, fmt.Errorf("database error reading nearby claims: %w", err)
	}

	span.SetStatus(codes.Ok, "Nearby claims fetched")
	return nearby, nil
}
