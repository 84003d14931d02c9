package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/FACorreiaa/fogline/internal/app/models"
	"github.com/FACorreiaa/fogline/internal/pkg/config"
)

var _ Service = (*ServiceImpl)(nil)

// Service defines the business logic contract for registration and login.
type Service interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.User, error)
	// Login returns a signed access token for valid credentials.
	Login(ctx context.Context, req models.LoginRequest) (*models.TokenResponse, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, update models.ProfileUpdate) (*models.User, error)
}

type ServiceImpl struct {
	logger *zap.Logger
	repo   Repository
	cfg    config.AuthConfig
}

func NewService(repo Repository, cfg config.AuthConfig, logger *zap.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger: logger,
		repo:   repo,
		cfg:    cfg,
	}
}

func (s *ServiceImpl) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "Register", trace.WithAttributes(
		attribute.String("user.handle", req.Handle),
	))
	defer span.End()

	l := s.logger.With(zap.String("method", "Register"), zap.String("handle", req.Handle))

	handle := strings.TrimSpace(req.Handle)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if handle == "" || email == "" {
		span.SetStatus(codes.Error, "Empty handle or email")
		return nil, fmt.Errorf("handle and email cannot be empty: %w", models.ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		l.Error("Failed to hash password", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Hashing failed")
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user, err := s.repo.CreateUser(ctx, handle, email, string(hash))
	if err != nil {
		l.Error("Failed to register user", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Registration failed")
		return nil, err
	}

	l.Info("User registered", zap.String("userID", user.ID.String()))
	span.SetStatus(codes.Ok, "User registered")
	return user, nil
}

func (s *ServiceImpl) Login(ctx context.Context, req models.LoginRequest) (*models.TokenResponse, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "Login")
	defer span.End()

	l := s.logger.With(zap.String("method", "Login"))

	user, err := s.repo.GetUserByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			span.SetStatus(codes.Error, "Unknown user")
			return nil, fmt.Errorf("invalid credentials: %w", models.ErrUnauthenticated)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "User lookup failed")
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		l.Warn("Password mismatch", zap.String("userID", user.ID.String()))
		span.SetStatus(codes.Error, "Password mismatch")
		return nil, fmt.Errorf("invalid credentials: %w", models.ErrUnauthenticated)
	}

	token, err := GenerateToken(user.ID, s.cfg.JWTSecret, s.cfg.TokenExpiration)
	if err != nil {
		l.Error("Failed to issue token", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Token issue failed")
		return nil, err
	}

	l.Info("User logged in", zap.String("userID", user.ID.String()))
	span.SetStatus(codes.Ok, "Logged in")
	return &models.TokenResponse{AccessToken: token, TokenType: "bearer"}, nil
}

func (s *ServiceImpl) GetProfile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "GetProfile", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Profile lookup failed")
		return nil, err
	}

	span.SetStatus(codes.Ok, "Profile fetched")
	return user, nil
}

func (s *ServiceImpl) UpdateProfile(ctx context.Context, userID uuid.UUID, update models.ProfileUpdate) (*models.User, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "UpdateProfile", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	user, err := s.repo.UpdateProfile(ctx, userID, update)
	if err != nil {
		s.logger.Error("Failed to update profile",
			zap.String("userID", userID.String()), zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Profile update failed")
		return nil, err
	}

	span.SetStatus(codes.Ok, "Profile updated")
	return user, nil
}
