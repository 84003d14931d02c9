package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/FACorreiaa/fogline/internal/app/models"
	"github.com/FACorreiaa/fogline/internal/pkg/config"
)

type MockAuthRepo struct {
	mock.Mock
}

func (m *MockAuthRepo) CreateUser(ctx context.Context, handle, email, passwordHash string) (*models.User, error) {
	args := m.Called(ctx, handle, email, passwordHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockAuthRepo) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockAuthRepo) GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockAuthRepo) UpdateProfile(ctx context.Context, userID uuid.UUID, update models.ProfileUpdate) (*models.User, error) {
	args := m.Called(ctx, userID, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{JWTSecret: "test-secret", TokenExpiration: time.Hour}
}

func TestRegister_HashesPassword(t *testing.T) {
	repo := new(MockAuthRepo)
	service := NewService(repo, testAuthConfig(), zap.NewNop())

	repo.On("CreateUser", mock.Anything, "scout", "scout@example.com",
		mock.MatchedBy(func(hash string) bool {
			return bcrypt.CompareHashAndPassword([]byte(hash), []byte("hunter2hunter2")) == nil
		})).
		Return(&models.User{ID: uuid.New(), Handle: "scout", Email: "scout@example.com"}, nil)

	user, err := service.Register(context.Background(), models.RegisterRequest{
		Handle:   "scout",
		Email:    "Scout@Example.com",
		Password: "hunter2hunter2",
	})
	require.NoError(t, err)
	assert.Equal(t, "scout", user.Handle)
	repo.AssertExpectations(t)
}

func TestRegister_DuplicateHandleIsConflict(t *testing.T) {
	repo := new(MockAuthRepo)
	service := NewService(repo, testAuthConfig(), zap.NewNop())

	repo.On("CreateUser", mock.Anything, "scout", "scout@example.com", mock.Anything).
		Return(nil, models.ErrConflict)

	_, err := service.Register(context.Background(), models.RegisterRequest{
		Handle:   "scout",
		Email:    "scout@example.com",
		Password: "hunter2hunter2",
	})
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestLogin_IssuesTokenForValidCredentials(t *testing.T) {
	repo := new(MockAuthRepo)
	service := NewService(repo, testAuthConfig(), zap.NewNop())

	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2hunter2"), bcrypt.MinCost)
	require.NoError(t, err)
	repo.On("GetUserByUsername", mock.Anything, "scout").
		Return(&models.User{ID: uuid.New(), Handle: "scout", PasswordHash: string(hash)}, nil)

	token, err := service.Login(context.Background(), models.LoginRequest{
		Username: "scout",
		Password: "hunter2hunter2",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, token.AccessToken)
	assert.Equal(t, "bearer", token.TokenType)
}

func TestLogin_WrongPassword(t *testing.T) {
	repo := new(MockAuthRepo)
	service := NewService(repo, testAuthConfig(), zap.NewNop())

	hash, err := bcrypt.GenerateFromPassword([]byte("correct-password"), bcrypt.MinCost)
	require.NoError(t, err)
	repo.On("GetUserByUsername", mock.Anything, "scout").
		Return(&models.User{ID: uuid.New(), Handle: "scout", PasswordHash: string(hash)}, nil)

	_, err = service.Login(context.Background(), models.LoginRequest{
		Username: "scout",
		Password: "wrong-password",
	})
	assert.ErrorIs(t, err, models.ErrUnauthenticated)
}

func TestLogin_UnknownUserHidesExistence(t *testing.T) {
	repo := new(MockAuthRepo)
	service := NewService(repo, testAuthConfig(), zap.NewNop())

	repo.On("GetUserByUsername", mock.Anything, "ghost").Return(nil, models.ErrNotFound)

	_, err := service.Login(context.Background(), models.LoginRequest{
		Username: "ghost",
		Password: "whatever",
	})
	assert.ErrorIs(t, err, models.ErrUnauthenticated)
	assert.NotErrorIs(t, err, models.ErrNotFound)
}
