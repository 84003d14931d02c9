package visibility

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

// Repository computes visibility unions and fog complements in the spatial
// store. All geometry math happens in PostGIS; Go only carries GeoJSON out.
type Repository interface {
	// VisibleUnion merges every visibility source for the user: the live
	// bubble, the own home buffer, accepted friends' home buffers and active
	// supply corridors. SourceCount is exact.
	VisibleUnion(ctx context.Context, userID uuid.UUID, lat, lon, radiusM float64) (*models.VisibilityResult, error)
	// LiveBubble is the degraded single-source result used when the caller
	// has no home claim and fallback mode is enabled.
	LiveBubble(ctx context.Context, lat, lon, radiusM float64) (*models.VisibilityResult, error)
	// FogOfWar subtracts the user's visible union from the reference box.
	FogOfWar(ctx context.Context, userID uuid.UUID, lat, lon, radiusM float64, box models.BoundingBox) (*models.FogResult, error)
	// FogLiveOnly subtracts only the live bubble from the reference box.
	FogLiveOnly(ctx context.Context, lat, lon, radiusM float64, box models.BoundingBox) (*models.FogResult, error)
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

// sourcesCTE gathers the four source families as planar geometries.
// Buffers are built in geography so radii are geodesic meters, then cast back
// for union and difference. Placeholders: $1 user, $2 lon, $3 lat, $4 radius,
// $5 home buffer radius.
const sourcesCTE = `
    sources AS (
        SELECT ST_Buffer(ST_SetSRID(ST_MakePoint($2, $3), 4326)::geography, $4)::geometry AS geom
        UNION ALL
        SELECT ST_Buffer(c.location, $5)::geometry
        FROM claims c
        WHERE c.owner_id = $1
        UNION ALL
        SELECT ST_Buffer(c.location, $5)::geometry
        FROM claims c
        JOIN connections cn
          ON cn.status = 'accepted'
         AND ((cn.requester_id = $1 AND cn.addressee_id = c.owner_id)
           OR (cn.addressee_id = $1 AND cn.requester_id = c.owner_id))
        UNION ALL
        SELECT sp.geom::geometry
        FROM supply_paths sp
        WHERE sp.user_id = $1 AND sp.health > 0
    )`

func (r *RepositoryImpl) VisibleUnion(ctx context.Context, userID uuid.UUID, lat, lon, radiusM float64) (*models.VisibilityResult, error) {
	ctx, span := otel.Tracer("VisibilityRepo").Start(ctx, "VisibleUnion", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.user.id", userID.String()),
		attribute.Float64("query.radius_m", radiusM),
	))
	defer span.End()

	start := time.Now()
	var result models.VisibilityResult
	err := r.pgpool.QueryRow(ctx, `
        WITH `+sourcesCTE+`
        SELECT ST_AsGeoJSON(ST_Union(geom)), COUNT(*)
        FROM sources`,
		userID, lon, lat, radiusM, models.HomeBufferRadiusM).Scan(
		&result.VisibleGeoJSON,
		&result.SourceCount,
	)
	metrics.Get().DBQueryDurationSeconds.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("query", "visibility_union")))
	if err != nil {
		r.logger.Error("Failed to compute visible union",
			zap.String("userID", userID.String()), zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error computing visibility: %w", err)
	}

	span.SetAttributes(attribute.Int("visibility.source_count", result.SourceCount))
	span.SetStatus(codes.Ok, "Union computed")
	return &result, nil
}

func (r *RepositoryImpl) LiveBubble(ctx context.Context, lat, lon, radiusM float64) (*models.VisibilityResult, error) {
	ctx, span := otel.Tracer("VisibilityRepo").Start(ctx, "LiveBubble", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.Float64("query.radius_m", radiusM),
	))
	defer span.End()

	result := models.VisibilityResult{SourceCount: 1}
	err := r.pgpool.QueryRow(ctx, `
        SELECT ST_AsGeoJSON(ST_Buffer(ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3)::geometry)`,
		lon, lat, radiusM).Scan(&result.VisibleGeoJSON)
	if err != nil {
		r.logger.Error("Failed to compute live bubble", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error computing live bubble: %w", err)
	}

	span.SetStatus(codes.Ok, "Bubble computed")
	return &result, nil
}

func (r *RepositoryImpl) FogOfWar(ctx context.Context, userID uuid.UUID, lat, lon, radiusM float64, box models.BoundingBox) (*models.FogResult, error) {
	ctx, span := otel.Tracer("VisibilityRepo").Start(ctx, "FogOfWar", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.user.id", userID.String()),
	))
	defer span.End()

	// ST_Union over zero rows is NULL; coalesce so an empty source set yields
	// the full region as fog.
	start := time.Now()
	var result models.FogResult
	err := r.pgpool.QueryRow(ctx, `
        WITH `+sourcesCTE+`,
        visible AS (
            SELECT COALESCE(ST_Union(geom), ST_GeomFromText('GEOMETRYCOLLECTION EMPTY', 4326)) AS geom,
                   COUNT(*) AS n
            FROM sources
        )
        SELECT ST_AsGeoJSON(ST_Difference(ST_MakeEnvelope($6, $7, $8, $9, 4326), visible.geom)), visible.n
        FROM visible`,
		userID, lon, lat, radiusM, models.HomeBufferRadiusM,
		box.MinLon, box.MinLat, box.MaxLon, box.MaxLat).Scan(
		&result.FogGeoJSON,
		&result.VisibleSources,
	)
	metrics.Get().DBQueryDurationSeconds.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("query", "fog_of_war")))
	if err != nil {
		r.logger.Error("Failed to compute fog of war",
			zap.String("userID", userID.String()), zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error computing fog: %w", err)
	}

	span.SetAttributes(attribute.Int("visibility.source_count", result.VisibleSources))
	span.SetStatus(codes.Ok, "Fog computed")
	return &result, nil
}

func (r *RepositoryImpl) FogLiveOnly(ctx context.Context, lat, lon, radiusM float64, box models.BoundingBox) (*models.FogResult, error) {
	ctx, span := otel.Tracer("VisibilityRepo").Start(ctx, "FogLiveOnly", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
	))
	defer span.End()

	result := models.FogResult{VisibleSources: 1}
	err := r.pgpool.QueryRow(ctx, `
        SELECT ST_AsGeoJSON(ST_Difference(
            ST_MakeEnvelope($4, $5, $6, $7, 4326),
            ST_Buffer(ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3)::geometry))`,
		lon, lat, radiusM,
		box.MinLon, box.MinLat, box.MaxLon, box.MaxLat).Scan(&result.FogGeoJSON)
	if err != nil {
		r.logger.Error("Failed to compute live-only fog", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error computing fog: %w", err)
	}

	span.SetStatus(codes.Ok, "Fog computed")
	return &result, nil
}
