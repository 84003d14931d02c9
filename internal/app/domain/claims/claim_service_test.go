package claims

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FACorreiaa/fogline/internal/app/models"
)

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

func TestCreateClaim_RejectsOutOfRangeCoordinates(t *testing.T) {
	repo := new(MockClaimRepo)
	service := NewService(repo, zap.NewNop())

	cases := []struct {
		name     string
		lat, lon float64
	}{
		{"latitude too high", 91, 0},
		{"latitude too low", -90.5, 0},
		{"longitude too high", 0, 180.1},
		{"longitude too low", 0, -181},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.CreateClaim(context.Background(), uuid.New(), tc.lat, tc.lon, "home")
			assert.ErrorIs(t, err, models.ErrValidation)
		})
	}
	repo.AssertNotCalled(t, "CreateClaim")
}

func TestCreateClaim_RejectsEmptyLabel(t *testing.T) {
	repo := new(MockClaimRepo)
	service := NewService(repo, zap.NewNop())

	_, err := service.CreateClaim(context.Background(), uuid.New(), 40.0, -8.0, "   ")
	assert.ErrorIs(t, err, models.ErrValidation)
	repo.AssertNotCalled(t, "CreateClaim")
}

func TestCreateClaim_NormalizesLabel(t *testing.T) {
	repo := new(MockClaimRepo)
	service := NewService(repo, zap.NewNop())
	ownerID := uuid.New()

	// "Café" decomposed should reach the repo composed as "Café".
	repo.On("CreateClaim", mock.Anything, ownerID, 40.0, -8.0, "Café").
		Return(&models.Claim{ID: uuid.New(), OwnerID: ownerID}, nil)

	_, err := service.CreateClaim(context.Background(), ownerID, 40.0, -8.0, "  Café  ")
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestCreateClaim_PropagatesConflicts(t *testing.T) {
	repo := new(MockClaimRepo)
	service := NewService(repo, zap.NewNop())
	ownerID := uuid.New()

	repo.On("CreateClaim", mock.Anything, ownerID, 40.0, -8.0, "home").
		Return(nil, models.ErrLocationClaimed)

	_, err := service.CreateClaim(context.Background(), ownerID, 40.0, -8.0, "home")
	assert.ErrorIs(t, err, models.ErrLocationClaimed)
}

func TestGetClaimByOwner_NotFound(t *testing.T) {
	repo := new(MockClaimRepo)
	service := NewService(repo, zap.NewNop())
	ownerID := uuid.New()

	repo.On("GetClaimByOwner", mock.Anything, ownerID).Return(nil, models.ErrNotFound)

	_, err := service.GetClaimByOwner(context.Background(), ownerID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestFindNear_RejectsNonPositiveRadius(t *testing.T) {
	repo := new(MockClaimRepo)
	service := NewService(repo, zap.NewNop())

	_, err := service.FindNear(context.Background(), 40.0, -8.0, 0, 10)
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = service.FindNear(context.Background(), 40.0, -8.0, -5, 10)
	assert.ErrorIs(t, err, models.ErrValidation)

	repo.AssertNotCalled(t, "FindNear")
}

func TestFindNear_ReturnsClosestFirst(t *testing.T) {
	repo := new(MockClaimRepo)
	service := NewService(repo, zap.NewNop())

	near := []models.NearbyClaim{
		{Claim: models.Claim{ID: uuid.New()}, DistanceM: 12.5},
		{Claim: models.Claim{ID: uuid.New()}, DistanceM: 80.1},
	}
	repo.On("FindNear", mock.Anything, 40.0, -8.0, 500.0, 10).Return(near, nil)

	got, err := service.FindNear(context.Background(), 40.0, -8.0, 500.0, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Less(t, got[0].DistanceM, got[1].DistanceM)
}
