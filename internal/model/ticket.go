package model

import "time"

// TicketStatus is the lifecycle state of a support ticket.  Transitions
// between the three values are unconstrained.
type TicketStatus string

const (
	StatusOpen       TicketStatus = "Open"
	StatusInProgress TicketStatus = "In Progress"
	StatusClosed     TicketStatus = "Closed"
)

// TicketStatuses lists the accepted statuses in display order.
var TicketStatuses = []TicketStatus{StatusOpen, StatusInProgress, StatusClosed}

// Valid reports whether s is one of the accepted statuses.
func (s TicketStatus) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusClosed:
		return true
	}
	return false
}

// Ticket represents a ticket record as stored in the `tickets` table.
// CreatedAt and UpdatedAt are assigned by the store; either may be nil
// when the store has not set them.
//
// Fields:
//  ID          – store-generated identifier.
//  OwnerID     – subject of the verified caller that created the ticket.
//  Title       – trimmed title.
//  Description – trimmed description.
//  Status      – current status.
//  CreatedAt   – set once on insert.
//  UpdatedAt   – set on every status change, nil until the first one.
type Ticket struct {
	ID          string       // tickets.id
	OwnerID     string       // tickets.owner_id
	Title       string       // tickets.title
	Description string       // tickets.description
	Status      TicketStatus // tickets.status
	CreatedAt   *time.Time   // tickets.created_at
	UpdatedAt   *time.Time   // tickets.updated_at (nullable)
}

// TicketResponse is the API shape of a ticket.  Timestamps are ISO-8601
// strings in UTC.
type TicketResponse struct {
	ID          string       `json:"id"`
	OwnerID     string       `json:"ownerId"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Status      TicketStatus `json:"status"`
	CreatedAt   string       `json:"createdAt"`
	UpdatedAt   string       `json:"updatedAt,omitempty"`
}
