package visibility

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
	"github.com/FACorreiaa/fogline/internal/pkg/config"
)

type MockVisibilityRepo struct {
	mock.Mock
}

func (m *MockVisibilityRepo) VisibleUnion(ctx context.Context, userID uuid.UUID, lat, lon, radiusM float64) (*models.VisibilityResult, error) {
	args := m.Called(ctx, userID, lat, lon, radiusM)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.VisibilityResult), args.Error(1)
}

func (m *MockVisibilityRepo) LiveBubble(ctx context.Context, lat, lon, radiusM float64) (*models.VisibilityResult, error) {
	args := m.Called(ctx, lat, lon, radiusM)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.VisibilityResult), args.Error(1)
}

func (m *MockVisibilityRepo) FogOfWar(ctx context.Context, userID uuid.UUID, lat, lon, radiusM float64, box models.BoundingBox) (*models.FogResult, error) {
	args := m.Called(ctx, userID, lat, lon, radiusM, box)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FogResult), args.Error(1)
}

func (m *MockVisibilityRepo) FogLiveOnly(ctx context.Context, lat, lon, radiusM float64, box models.BoundingBox) (*models.FogResult, error) {
	args := m.Called(ctx, lat, lon, radiusM, box)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FogResult), args.Error(1)
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

func strictConfig() config.VisibilityConfig {
	return config.VisibilityConfig{LiveFallback: false, ResultTTL: time.Minute}
}

func fallbackConfig() config.VisibilityConfig {
	return config.VisibilityConfig{LiveFallback: true, ResultTTL: time.Minute}
}

func homeClaim(ownerID uuid.UUID) *models.Claim {
	return &models.Claim{ID: uuid.New(), OwnerID: ownerID, Latitude: 40.0, Longitude: -8.0}
}

func TestComputeVisible_RejectsBadQuery(t *testing.T) {
	service := NewService(new(MockVisibilityRepo), new(MockClaimRepo), strictConfig(), zap.NewNop())

	_, err := service.ComputeVisible(context.Background(), uuid.New(),
		models.VisibilityQuery{Lat: 95, Lon: 0, RadiusM: 100})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = service.ComputeVisible(context.Background(), uuid.New(),
		models.VisibilityQuery{Lat: 40, Lon: -8, RadiusM: 0})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestComputeVisible_StrictModeRequiresHome(t *testing.T) {
	repo := new(MockVisibilityRepo)
	claimRepo := new(MockClaimRepo)
	service := NewService(repo, claimRepo, strictConfig(), zap.NewNop())
	userID := uuid.New()

	claimRepo.On("GetClaimByOwner", mock.Anything, userID).Return(nil, models.ErrNotFound)

	_, err := service.ComputeVisible(context.Background(), userID,
		models.VisibilityQuery{Lat: 40, Lon: -8, RadiusM: 250})
	assert.ErrorIs(t, err, models.ErrPrecondition)
	assert.ErrorIs(t, err, models.ErrHomeNotClaimed)
	repo.AssertNotCalled(t, "VisibleUnion")
	repo.AssertNotCalled(t, "LiveBubble")
}

func TestComputeVisible_FallbackServesSingleBubble(t *testing.T) {
	repo := new(MockVisibilityRepo)
	claimRepo := new(MockClaimRepo)
	service := NewService(repo, claimRepo, fallbackConfig(), zap.NewNop())
	userID := uuid.New()

	claimRepo.On("GetClaimByOwner", mock.Anything, userID).Return(nil, models.ErrNotFound)
	repo.On("LiveBubble", mock.Anything, 40.0, -8.0, 250.0).
		Return(&models.VisibilityResult{VisibleGeoJSON: `{"type":"Polygon"}`, SourceCount: 1}, nil)

	result, err := service.ComputeVisible(context.Background(), userID,
		models.VisibilityQuery{Lat: 40, Lon: -8, RadiusM: 250})
	require.NoError(t, err)
	assert.Equal(t, 1, result.SourceCount)
	repo.AssertNotCalled(t, "VisibleUnion")
}

func TestComputeVisible_CountsEverySource(t *testing.T) {
	repo := new(MockVisibilityRepo)
	claimRepo := new(MockClaimRepo)
	service := NewService(repo, claimRepo, strictConfig(), zap.NewNop())
	userID := uuid.New()

	claimRepo.On("GetClaimByOwner", mock.Anything, userID).Return(homeClaim(userID), nil)
	// live bubble + own home + 2 friend homes + 1 corridor
	repo.On("VisibleUnion", mock.Anything, userID, 40.0, -8.0, 250.0).
		Return(&models.VisibilityResult{VisibleGeoJSON: `{"type":"MultiPolygon"}`, SourceCount: 5}, nil)

	result, err := service.ComputeVisible(context.Background(), userID,
		models.VisibilityQuery{Lat: 40, Lon: -8, RadiusM: 250})
	require.NoError(t, err)
	assert.Equal(t, 5, result.SourceCount)
}

func TestComputeVisible_CachesWithinTTL(t *testing.T) {
	repo := new(MockVisibilityRepo)
	claimRepo := new(MockClaimRepo)
	service := NewService(repo, claimRepo, strictConfig(), zap.NewNop())
	userID := uuid.New()

	claimRepo.On("GetClaimByOwner", mock.Anything, userID).Return(homeClaim(userID), nil).Once()
	repo.On("VisibleUnion", mock.Anything, userID, 40.0, -8.0, 250.0).
		Return(&models.VisibilityResult{VisibleGeoJSON: `{"type":"Polygon"}`, SourceCount: 2}, nil).Once()

	q := models.VisibilityQuery{Lat: 40, Lon: -8, RadiusM: 250}
	first, err := service.ComputeVisible(context.Background(), userID, q)
	require.NoError(t, err)

	second, err := service.ComputeVisible(context.Background(), userID, q)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	repo.AssertNumberOfCalls(t, "VisibleUnion", 1)
}

func TestComputeFog_RejectsInvalidBoundingBox(t *testing.T) {
	service := NewService(new(MockVisibilityRepo), new(MockClaimRepo), strictConfig(), zap.NewNop())
	q := models.VisibilityQuery{Lat: 40, Lon: -8, RadiusM: 250}

	cases := []struct {
		name string
		box  models.BoundingBox
	}{
		{"min lon equals max lon", models.BoundingBox{MinLon: 1, MinLat: 0, MaxLon: 1, MaxLat: 2}},
		{"min lat above max lat", models.BoundingBox{MinLon: 0, MinLat: 3, MaxLon: 1, MaxLat: 2}},
		{"out of world range", models.BoundingBox{MinLon: -200, MinLat: 0, MaxLon: 1, MaxLat: 2}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.ComputeFog(context.Background(), uuid.New(), q, &tc.box)
			assert.ErrorIs(t, err, models.ErrValidation)
			assert.ErrorIs(t, err, models.ErrInvalidBoundingBox)
		})
	}
}

func TestComputeFog_DefaultsToWorldRegion(t *testing.T) {
	repo := new(MockVisibilityRepo)
	claimRepo := new(MockClaimRepo)
	service := NewService(repo, claimRepo, strictConfig(), zap.NewNop())
	userID := uuid.New()

	claimRepo.On("GetClaimByOwner", mock.Anything, userID).Return(homeClaim(userID), nil)
	repo.On("FogOfWar", mock.Anything, userID, 40.0, -8.0, 250.0, worldBox).
		Return(&models.FogResult{FogGeoJSON: `{"type":"Polygon"}`, VisibleSources: 3}, nil)

	result, err := service.ComputeFog(context.Background(), userID,
		models.VisibilityQuery{Lat: 40, Lon: -8, RadiusM: 250}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, result.VisibleSources)
	repo.AssertExpectations(t)
}

func TestComputeFog_EmptyFogIsValid(t *testing.T) {
	repo := new(MockVisibilityRepo)
	claimRepo := new(MockClaimRepo)
	service := NewService(repo, claimRepo, strictConfig(), zap.NewNop())
	userID := uuid.New()
	box := models.BoundingBox{MinLon: -8.01, MinLat: 39.99, MaxLon: -7.99, MaxLat: 40.01}

	claimRepo.On("GetClaimByOwner", mock.Anything, userID).Return(homeClaim(userID), nil)
	// Visibility covers the whole box; the fog collection is empty.
	repo.On("FogOfWar", mock.Anything, userID, 40.0, -8.0, 5000.0, box).
		Return(&models.FogResult{FogGeoJSON: `{"type":"GeometryCollection","geometries":[]}`, VisibleSources: 2}, nil)

	result, err := service.ComputeFog(context.Background(), userID,
		models.VisibilityQuery{Lat: 40, Lon: -8, RadiusM: 5000}, &box)
	require.NoError(t, err)
	assert.Equal(t, 2, result.VisibleSources)
	assert.NotEmpty(t, result.FogGeoJSON)
}

func TestComputeFog_StrictModeRequiresHome(t *testing.T) {
	repo := new(MockVisibilityRepo)
	claimRepo := new(MockClaimRepo)
	service := NewService(repo, claimRepo, strictConfig(), zap.NewNop())
	userID := uuid.New()

	claimRepo.On("GetClaimByOwner", mock.Anything, userID).Return(nil, models.ErrNotFound)

	_, err := service.ComputeFog(context.Background(), userID,
		models.VisibilityQuery{Lat: 40, Lon: -8, RadiusM: 250}, nil)
	assert.ErrorIs(t, err, models.ErrHomeNotClaimed)
	repo.AssertNotCalled(t, "FogOfWar")
}
