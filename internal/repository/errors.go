// Package repository implements ticket persistence.  The SQL-backed
// TicketRepo serves MySQL and SQLite; MemoryTicketRepo keeps tickets in
// process and is used by tests and the memory driver.  Both assign ticket
// IDs and timestamps themselves: callers never supply them.
package repository

import "errors"

// ErrTicketNotFound is returned when no ticket exists for the given ID.
// Handlers should translate this into an HTTP 404 response.
var ErrTicketNotFound = errors.New("ticket not found")
