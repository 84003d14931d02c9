package models

import (
	"time"

	"github.com/google/uuid"
)

// ClaimExclusionRadiusM is the minimum geodesic distance between any two
// claimed home points. The registry rejects a claim closer than this to an
// existing one.
const ClaimExclusionRadiusM = 20.0

// FindNearMaxResults caps FindNear responses regardless of the requested limit.
const FindNearMaxResults = 200

// Claim is a user's exclusive registered home location. One per owner,
// immutable location once created.
type Claim struct {
	ID           uuid.UUID `json:"id"`
	OwnerID      uuid.UUID `json:"owner_id"`
	AddressLabel string    `json:"address_label"`
	Latitude     float64   `json:"lat"`
	Longitude    float64   `json:"lon"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreateClaimRequest carries no "required" binding on the coordinates:
// lat 0 and lon 0 are legal values and gin's required tag rejects zeros.
// The service does the range validation.
type CreateClaimRequest struct {
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
	AddressLabel string  `json:"address_label" binding:"required,max=255"`
}

// NearbyClaim is a Claim plus its geodesic distance to the query point.
type NearbyClaim struct {
	Claim
	DistanceM float64 `json:"distance_m"`
}
