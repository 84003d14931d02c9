package models

import (
	"time"

	"github.com/google/uuid"
)

// ConnectionStatus is the lifecycle state of a friend-request edge.
// The only exposed transition is pending -> accepted; blocked is reserved
// in the schema but nothing transitions into it.
type ConnectionStatus string

const (
	ConnectionPending  ConnectionStatus = "pending"
	ConnectionAccepted ConnectionStatus = "accepted"
	ConnectionBlocked  ConnectionStatus = "blocked"
)

// Connection is a directed requester -> addressee edge. Usability for
// visibility is symmetric once accepted; the stored direction only records
// who asked.
type Connection struct {
	ID          uuid.UUID        `json:"id"`
	RequesterID uuid.UUID        `json:"requester_id"`
	AddresseeID uuid.UUID        `json:"addressee_id"`
	Status      ConnectionStatus `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
}

type RequestConnectionRequest struct {
	AddresseeID uuid.UUID `json:"addressee_id" binding:"required"`
}
