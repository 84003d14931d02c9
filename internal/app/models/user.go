package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the identity anchor. The core references users by id only;
// profile fields are glue around the auth boundary.
type User struct {
	ID           uuid.UUID `json:"id"`
	Handle       string    `json:"handle"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Bio          *string   `json:"bio,omitempty"`
	AvatarURL    *string   `json:"avatar_url,omitempty"`
	Verified     bool      `json:"verified"`
	CreatedAt    time.Time `json:"created_at"`
}

type RegisterRequest struct {
	Handle   string `json:"handle" binding:"required,min=3,max=30"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	// Username matches either handle or email.
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type ProfileUpdate struct {
	Bio       *string `json:"bio"`
	AvatarURL *string `json:"avatar_url"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
