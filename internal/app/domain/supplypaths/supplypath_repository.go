package supplypaths

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
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

// Repository defines the contract for supply-path persistence.
type Repository interface {
	// Upsert refreshes the corridor for the ordered (userID, friendID) pair:
	// geometry rebuilt from the two homes, health reset to full, last_touch
	// set to now. Concurrent touches resolve last-writer-wins at the store.
	Upsert(ctx context.Context, userID, friendID uuid.UUID, userHome, friendHome *models.Claim) (*models.SupplyPath, error)
	// IsWithinTouchRange reports whether the live point lies within the touch
	// proximity of the target point, geodesic.
	IsWithinTouchRange(ctx context.Context, liveLat, liveLon, targetLat, targetLon float64) (bool, error)
	// ActivePaths returns the user's paths with health > 0, geometry as
	// GeoJSON.
	ActivePaths(ctx context.Context, userID uuid.UUID) ([]models.SupplyPath, error)
	// DecayAll decrements health on every live path and returns how many rows
	// were touched.
	DecayAll(ctx context.Context) (int64, error)
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

func (r *RepositoryImpl) Upsert(ctx context.Context, userID, friendID uuid.UUID, userHome, friendHome *models.Claim) (*models.SupplyPath, error) {
	ctx, span := otel.Tracer("SupplyPathRepo").Start(ctx, "Upsert", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "supply_paths"),
		attribute.String("db.user.id", userID.String()),
	))
	defer span.End()

	l := r.logger.With(zap.String("method", "Upsert"),
		zap.String("userID", userID.String()), zap.String("friendID", friendID.String()))

	var path models.SupplyPath
	err := r.pgpool.QueryRow(ctx, `
        INSERT INTO supply_paths (user_id, friend_id, geom, health, last_touch)
        VALUES ($1, $2,
                ST_Buffer(
                    ST_MakeLine(
                        ST_SetSRID(ST_MakePoint($3, $4), 4326),
                        ST_SetSRID(ST_MakePoint($5, $6), 4326)
                    )::geography, $7),
                $8, NOW())
        ON CONFLICT (user_id, friend_id) DO UPDATE
        SET geom = EXCLUDED.geom, health = EXCLUDED.health, last_touch = NOW()
        RETURNING id, user_id, friend_id, health, last_touch`,
		userID, friendID,
		userHome.Longitude, userHome.Latitude,
		friendHome.Longitude, friendHome.Latitude,
		models.PathCorridorRadiusM, models.SupplyPathMaxHealth).Scan(
		&path.ID,
		&path.UserID,
		&path.FriendID,
		&path.Health,
		&path.LastTouch,
	)
	if err != nil {
		l.Error("Failed to upsert supply path", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB upsert failed")
		return nil, fmt.Errorf("database error touching supply path: %w", err)
	}

	l.Info("Supply path touched", zap.String("pathID", path.ID.String()))
	span.SetStatus(codes.Ok, "Path upserted")
	return &path, nil
}

func (r *RepositoryImpl) IsWithinTouchRange(ctx context.Context, liveLat, liveLon, targetLat, targetLon float64) (bool, error) {
	ctx, span := otel.Tracer("SupplyPathRepo").Start(ctx, "IsWithinTouchRange", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
	))
	defer span.End()

	var within bool
	err := r.pgpool.QueryRow(ctx, `
        SELECT ST_DWithin(
            ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography,
            ST_SetSRID(ST_MakePoint($3, $4), 4326)::geography,
            $5)`,
		liveLon, liveLat, targetLon, targetLat, models.TouchProximityM).Scan(&within)
	if err != nil {
		r.logger.Error("Failed to compute touch proximity", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return false, fmt.Errorf("database error checking touch proximity: %w", err)
	}

	span.SetStatus(codes.Ok, "Proximity checked")
	return within, nil
}

func (r *RepositoryImpl) ActivePaths(ctx context.Context, userID uuid.UUID) ([]models.SupplyPath, error) {
	ctx, span := otel.Tracer("SupplyPathRepo").Start(ctx, "ActivePaths", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "supply_paths"),
		attribute.String("db.user.id", userID.String()),
	))
	defer span.End()

	rows, err := r.pgpool.Query(ctx, `
        SELECT id, user_id, friend_id, health, last_touch, ST_AsGeoJSON(geom::geometry)
        FROM supply_paths
        WHERE user_id = $1 AND health > 0
        ORDER BY last_touch DESC`, userID)
	if err != nil {
		r.logger.Error("Failed to query active supply paths", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error fetching supply paths: %w", err)
	}
	defer rows.Close()

	var paths []models.SupplyPath
	for rows.Next() {
		var p models.SupplyPath
		err := rows.Scan(&p.ID, &p.UserID, &p.FriendID, &p.Health, &p.LastTouch, &p.GeomJSON)
		if err != nil {
			r.logger.Error("Failed to scan supply path row", zap.Error(err))
			span.RecordError(err)
			return nil, fmt.Errorf("database error scanning supply path: %w", err)
		}
		paths = append(paths, p)
	}
	if err = rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("database error reading supply paths: %w", err)
	}

	span.SetStatus(codes.Ok, "Active paths fetched")
	return paths, nil
}

func (r *RepositoryImpl) DecayAll(ctx context.Context) (int64, error) {
	ctx, span := otel.Tracer("SupplyPathRepo").Start(ctx, "DecayAll", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "supply_paths"),
	))
	defer span.End()

	start := time.Now()
	tag, err := r.pgpool.Exec(ctx, `UPDATE supply_paths SET health = health - 1 WHERE health > 0`)
	if err != nil {
		r.logger.Error("Failed to decay supply paths", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		return 0, fmt.Errorf("database error decaying supply paths: %w", err)
	}
	metrics.Get().DBQueryDurationSeconds.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("query", "supply_paths_decay")))

	span.SetAttributes(attribute.Int64("db.rows_affected", tag.RowsAffected()))
	span.SetStatus(codes.Ok, "Paths decayed")
	return tag.RowsAffected(), nil
}
