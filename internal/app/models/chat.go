package models

import (
	"time"

	"github.com/google/uuid"
)

// ChatRoom groups members for message fan-out. Membership requires an
// accepted connection to the creator.
type ChatRoom struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	IsGroup   bool      `json:"is_group"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateRoomRequest struct {
	Name      string      `json:"name" binding:"required,max=100"`
	IsGroup   bool        `json:"is_group"`
	MemberIDs []uuid.UUID `json:"member_ids"`
}

type Message struct {
	ID             uuid.UUID `json:"id"`
	RoomID         uuid.UUID `json:"room_id"`
	SenderID       uuid.UUID `json:"sender_id"`
	Body           string    `json:"body"`
	AttachmentURL  *string   `json:"attachment_url,omitempty"`
	AttachmentType *string   `json:"attachment_type,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type SendMessageRequest struct {
	RoomID         uuid.UUID `json:"room_id" binding:"required"`
	Body           string    `json:"body" binding:"required"`
	AttachmentURL  *string   `json:"attachment_url"`
	AttachmentType *string   `json:"attachment_type"`
}

// RoomStat ranks a room by its current live subscriber count.
type RoomStat struct {
	RoomID      string `json:"room_id"`
	Subscribers int    `json:"subscribers"`
}
