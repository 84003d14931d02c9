package supplypaths

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FACorreiaa/fogline/internal/app/models"
)

type MockPathRepo struct {
	mock.Mock
}

func (m *MockPathRepo) Upsert(ctx context.Context, userID, friendID uuid.UUID, userHome, friendHome *models.Claim) (*models.SupplyPath, error) {
	args := m.Called(ctx, userID, friendID, userHome, friendHome)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SupplyPath), args.Error(1)
}

func (m *MockPathRepo) IsWithinTouchRange(ctx context.Context, liveLat, liveLon, targetLat, targetLon float64) (bool, error) {
	args := m.Called(ctx, liveLat, liveLon, targetLat, targetLon)
	return args.Bool(0), args.Error(1)
}

func (m *MockPathRepo) ActivePaths(ctx context.Context, userID uuid.UUID) ([]models.SupplyPath, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SupplyPath), args.Error(1)
}

func (m *MockPathRepo) DecayAll(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type MockClaimRepo struct {
	mock.Mock
}

func (m *MockClaimRepo) CreateClaim(ctx context.Context, ownerID uuid.UUID, lat, lon float64, label string) (*models.Claim, error) {
	args := m.Called(ctx, ownerID, lat, lon, label)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Claim), args.Error(1)
}

func (m *MockClaimRepo) GetClaimByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Claim, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Claim), args.Error(1)
}

func (m *MockClaimRepo) FindNear(ctx context.Context, lat, lon, radiusM float64, limit int) ([]models.NearbyClaim, error) {
	args := m.Called(ctx, lat, lon, radiusM, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.NearbyClaim), args.Error(1)
}

type MockConnectionRepo struct {
	mock.Mock
}

func (m *MockConnectionRepo) CreateRequest(ctx context.Context, requesterID, addresseeID uuid.UUID) (*models.Connection, error) {
	args := m.Called(ctx, requesterID, addresseeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Connection), args.Error(1)
}

func (m *MockConnectionRepo) Approve(ctx context.Context, connectionID, approverID uuid.UUID) (*models.Connection, error) {
	args := m.Called(ctx, connectionID, approverID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Connection), args.Error(1)
}

func (m *MockConnectionRepo) IsMutuallyAccepted(ctx context.Context, userA, userB uuid.UUID) (bool, error) {
	args := m.Called(ctx, userA, userB)
	return args.Bool(0), args.Error(1)
}

func (m *MockConnectionRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Connection, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Connection), args.Error(1)
}

func newTouchFixture() (userID, friendID uuid.UUID, userHome, friendHome *models.Claim) {
	userID, friendID = uuid.New(), uuid.New()
	userHome = &models.Claim{ID: uuid.New(), OwnerID: userID, Latitude: 40.0, Longitude: -8.0}
	friendHome = &models.Claim{ID: uuid.New(), OwnerID: friendID, Latitude: 40.001, Longitude: -8.001}
	return
}

func TestTouchPath_RejectsSelf(t *testing.T) {
	service := NewService(new(MockPathRepo), new(MockClaimRepo), new(MockConnectionRepo), zap.NewNop())
	userID := uuid.New()

	_, err := service.TouchPath(context.Background(), userID, userID, 40.0, -8.0)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestTouchPath_RequiresMutualAcceptance(t *testing.T) {
	pathRepo := new(MockPathRepo)
	claimRepo := new(MockClaimRepo)
	connRepo := new(MockConnectionRepo)
	service := NewService(pathRepo, claimRepo, connRepo, zap.NewNop())
	userID, friendID, _, _ := newTouchFixture()

	connRepo.On("IsMutuallyAccepted", mock.Anything, userID, friendID).Return(false, nil)

	_, err := service.TouchPath(context.Background(), userID, friendID, 40.0, -8.0)
	assert.ErrorIs(t, err, models.ErrPrecondition)
	assert.ErrorIs(t, err, models.ErrNotConnected)
	pathRepo.AssertNotCalled(t, "Upsert")
}

func TestTouchPath_RequiresBothHomeClaims(t *testing.T) {
	pathRepo := new(MockPathRepo)
	claimRepo := new(MockClaimRepo)
	connRepo := new(MockConnectionRepo)
	service := NewService(pathRepo, claimRepo, connRepo, zap.NewNop())
	userID, friendID, userHome, _ := newTouchFixture()

	connRepo.On("IsMutuallyAccepted", mock.Anything, userID, friendID).Return(true, nil)
	claimRepo.On("GetClaimByOwner", mock.Anything, userID).Return(userHome, nil)
	claimRepo.On("GetClaimByOwner", mock.Anything, friendID).Return(nil, models.ErrNotFound)

	_, err := service.TouchPath(context.Background(), userID, friendID, 40.0, -8.0)
	assert.ErrorIs(t, err, models.ErrPrecondition)
	assert.ErrorIs(t, err, models.ErrHomeNotClaimed)
	pathRepo.AssertNotCalled(t, "Upsert")
}

func TestTouchPath_RejectsDistantLivePoint(t *testing.T) {
	pathRepo := new(MockPathRepo)
	claimRepo := new(MockClaimRepo)
	connRepo := new(MockConnectionRepo)
	service := NewService(pathRepo, claimRepo, connRepo, zap.NewNop())
	userID, friendID, userHome, friendHome := newTouchFixture()

	connRepo.On("IsMutuallyAccepted", mock.Anything, userID, friendID).Return(true, nil)
	claimRepo.On("GetClaimByOwner", mock.Anything, userID).Return(userHome, nil)
	claimRepo.On("GetClaimByOwner", mock.Anything, friendID).Return(friendHome, nil)
	pathRepo.On("IsWithinTouchRange", mock.Anything, 41.0, -8.0, friendHome.Latitude, friendHome.Longitude).
		Return(false, nil)

	_, err := service.TouchPath(context.Background(), userID, friendID, 41.0, -8.0)
	assert.ErrorIs(t, err, models.ErrConflict)
	assert.ErrorIs(t, err, models.ErrTooFarFromFriend)
	pathRepo.AssertNotCalled(t, "Upsert")
}

func TestTouchPath_RefreshesCorridorToFullHealth(t *testing.T) {
	pathRepo := new(MockPathRepo)
	claimRepo := new(MockClaimRepo)
	connRepo := new(MockConnectionRepo)
	service := NewService(pathRepo, claimRepo, connRepo, zap.NewNop())
	userID, friendID, userHome, friendHome := newTouchFixture()

	connRepo.On("IsMutuallyAccepted", mock.Anything, userID, friendID).Return(true, nil)
	claimRepo.On("GetClaimByOwner", mock.Anything, userID).Return(userHome, nil)
	claimRepo.On("GetClaimByOwner", mock.Anything, friendID).Return(friendHome, nil)
	pathRepo.On("IsWithinTouchRange", mock.Anything, 40.0011, -8.0009, friendHome.Latitude, friendHome.Longitude).
		Return(true, nil)
	pathRepo.On("Upsert", mock.Anything, userID, friendID, userHome, friendHome).
		Return(&models.SupplyPath{
			ID:        uuid.New(),
			UserID:    userID,
			FriendID:  friendID,
			Health:    models.SupplyPathMaxHealth,
			LastTouch: time.Now(),
		}, nil)

	path, err := service.TouchPath(context.Background(), userID, friendID, 40.0011, -8.0009)
	require.NoError(t, err)
	assert.Equal(t, models.SupplyPathMaxHealth, path.Health)
	pathRepo.AssertExpectations(t)
}

func TestDecayWorker_AgesPathsUntilStopped(t *testing.T) {
	pathRepo := new(MockPathRepo)
	pathRepo.On("DecayAll", mock.Anything).Return(int64(3), nil)

	worker := NewDecayWorker(pathRepo, 10*time.Millisecond, zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 55*time.Millisecond)
	defer cancel()

	worker.Run(ctx)
	pathRepo.AssertCalled(t, "DecayAll", mock.Anything)
}

func TestActivePaths_OnlyLiveOnes(t *testing.T) {
	pathRepo := new(MockPathRepo)
	service := NewService(pathRepo, new(MockClaimRepo), new(MockConnectionRepo), zap.NewNop())
	userID := uuid.New()

	pathRepo.On("ActivePaths", mock.Anything, userID).
		Return([]models.SupplyPath{{ID: uuid.New(), UserID: userID, Health: 12}}, nil)

	paths, err := service.ActivePaths(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Positive(t, paths[0].Health)
}
