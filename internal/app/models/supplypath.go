package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SupplyPathMaxHealth is the remaining-days counter a touch resets to.
	SupplyPathMaxHealth = 30

	// TouchProximityM is how close (geodesic) the live position must be to
	// the friend's home for a touch to count.
	TouchProximityM = 50.0

	// PathCorridorRadiusM is the half-width of the stored supply corridor
	// buffered around the line between the two homes.
	PathCorridorRadiusM = 20.0
)

// SupplyPath is a decaying directed corridor between the owner's home and a
// friend's home. Health is decremented externally by the decay worker; a path
// with health <= 0 is logically expired and excluded from aggregation.
type SupplyPath struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	FriendID  uuid.UUID `json:"friend_id"`
	Health    int       `json:"health"`
	LastTouch time.Time `json:"last_touch"`
	// GeomJSON is the corridor polygon as GeoJSON, filled on reads that
	// need the geometry.
	GeomJSON string `json:"geom,omitempty"`
}

// TouchPathRequest coordinates carry no "required" binding: zero is a legal
// coordinate and gin's required tag rejects zero values. The service range
// checks them.
type TouchPathRequest struct {
	FriendID uuid.UUID `json:"friend_id" binding:"required"`
	Lat      float64   `json:"lat"`
	Lon      float64   `json:"lon"`
}
