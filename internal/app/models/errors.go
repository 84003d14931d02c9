package models

import "errors"

// Domain specific errors. Handlers translate these to HTTP statuses,
// repositories translate store failures (unique violations etc.) into them.
var (
	ErrNotFound        = errors.New("requested item not found")
	ErrConflict        = errors.New("item already exists or conflict")
	ErrUnauthenticated = errors.New("authentication required or invalid credentials")
	ErrForbidden       = errors.New("action forbidden")
	ErrBadRequest      = errors.New("bad request")
	ErrValidation      = errors.New("validation failed")
	ErrPrecondition    = errors.New("precondition failed")

	// Named causes, always wrapped together with one of the kinds above.
	ErrSelfConnection     = errors.New("cannot connect to self")
	ErrNotConnected       = errors.New("users are not mutually connected")
	ErrHomeNotClaimed     = errors.New("home not claimed")
	ErrLocationClaimed    = errors.New("location already claimed")
	ErrOwnerHasClaim      = errors.New("owner already has a claim")
	ErrTooFarFromFriend   = errors.New("too far from friend's home")
	ErrInvalidBoundingBox = errors.New("invalid bounding box")
)
