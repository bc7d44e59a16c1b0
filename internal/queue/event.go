// Package queue defines ticket event payloads exchanged over the message
// broker, the publisher used by the ticket service, and the audit consumer.
package queue

// Event types.
const (
	TicketCreated       = "ticket.created"
	TicketStatusChanged = "ticket.status_changed"
)

// TicketEventsQueue is the durable queue carrying every ticket event.
const TicketEventsQueue = "tickets.events"

// TicketEvent is published after a ticket is created or changes status.
// It carries enough information for the audit consumer without querying
// the store.
type TicketEvent struct {
	Type           string `json:"type"`
	TicketID       string `json:"ticket_id"`
	OwnerID        string `json:"owner_id"`
	Status         string `json:"status"`
	PreviousStatus string `json:"previous_status,omitempty"`
	OccurredAt     string `json:"occurred_at"`
}
