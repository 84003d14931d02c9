package auth

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

// Repository defines the contract for user persistence.
type Repository interface {
	CreateUser(ctx context.Context, handle, email, passwordHash string) (*models.User, error)
	// GetUserByUsername matches on handle or email.
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, update models.ProfileUpdate) (*models.User, error)
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

const userColumns = `id, handle, email, password_hash, bio, avatar_url, verified, created_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Handle, &u.Email, &u.PasswordHash,
		&u.Bio, &u.AvatarURL, &u.Verified, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *RepositoryImpl) CreateUser(ctx context.Context, handle, email, passwordHash string) (*models.User, error) {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "CreateUser", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	l := r.logger.With(zap.String("method", "CreateUser"), zap.String("handle", handle))

	user, err := scanUser(r.pgpool.QueryRow(ctx, `
        INSERT INTO users (handle, email, password_hash)
        VALUES ($1, $2, $3)
        RETURNING `+userColumns,
		handle, email, passwordHash))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			l.Warn("Handle or email already registered", zap.Error(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "Duplicate user")
			return nil, fmt.Errorf("handle or email already registered: %w", models.ErrConflict)
		}
		l.Error("Failed to insert user", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB INSERT failed")
		return nil, fmt.Errorf("database error creating user: %w", err)
	}

	l.Info("User created", zap.String("userID", user.ID.String()))
	span.SetStatus(codes.Ok, "User created")
	return user, nil
}

func (r *RepositoryImpl) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "GetUserByUsername", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	user, err := scanUser(r.pgpool.QueryRow(ctx, `
        SELECT `+userColumns+`
        FROM users
        WHERE handle = $1 OR email = $1`, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "User not found")
			return nil, fmt.Errorf("user %q not found: %w", username, models.ErrNotFound)
		}
		r.logger.Error("Failed to fetch user by username", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error fetching user: %w", err)
	}

	span.SetStatus(codes.Ok, "User fetched")
	return user, nil
}

func (r *RepositoryImpl) GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "GetUserByID", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "users"),
		attribute.String("db.user.id", userID.String()),
	))
	defer span.End()

	user, err := scanUser(r.pgpool.QueryRow(ctx, `
        SELECT `+userColumns+`
        FROM users
        WHERE id = $1`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "User not found")
			return nil, fmt.Errorf("user %s not found: %w", userID.String(), models.ErrNotFound)
		}
		r.logger.Error("Failed to fetch user by id", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error fetching user: %w", err)
	}

	span.SetStatus(codes.Ok, "User fetched")
	return user, nil
}

func (r *RepositoryImpl) UpdateProfile(ctx context.Context, userID uuid.UUID, update models.ProfileUpdate) (*models.User, error) {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "UpdateProfile", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "users"),
		attribute.String("db.user.id", userID.String()),
	))
	defer span.End()

	user, err := scanUser(r.pgpool.QueryRow(ctx, `
        UPDATE users
        SET bio = COALESCE($2, bio), avatar_url = COALESCE($3, avatar_url)
        WHERE id = $1
        RETURNING `+userColumns,
		userID, update.Bio, update.AvatarURL))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "User not found")
			return nil, fmt.Errorf("user %s not found: %w", userID.String(), models.ErrNotFound)
		}
		r.logger.Error("Failed to update profile", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		return nil, fmt.Errorf("database error updating profile: %w", err)
	}

	span.SetStatus(codes.Ok, "Profile updated")
	return user, nil
}
