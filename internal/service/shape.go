package service

import (
	"log/slog"
	"time"

	"github.com/iliyamo/support-tickets/internal/model"
)

// ISOTimeLayout renders timestamps as ISO-8601 in UTC with millisecond
// precision.
const ISOTimeLayout = "2006-01-02T15:04:05.000Z"

// FormatTime renders t using ISOTimeLayout.
func FormatTime(t time.Time) string { return t.UTC().Format(ISOTimeLayout) }

// ShapeTicket converts a stored ticket into its API shape.  A missing
// created_at is replaced by now so clients never see an empty timestamp;
// this means the store broke its invariant, so it is logged.
func ShapeTicket(t model.Ticket, now time.Time, logger *slog.Logger) model.TicketResponse {
	out := model.TicketResponse{
		ID:          t.ID,
		OwnerID:     t.OwnerID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
	}
	if t.CreatedAt != nil {
		out.CreatedAt = FormatTime(*t.CreatedAt)
	} else {
		if logger != nil {
			logger.Warn("ticket has no created_at, substituting current time", "ticket_id", t.ID)
		}
		out.CreatedAt = FormatTime(now)
	}
	if t.UpdatedAt != nil {
		out.UpdatedAt = FormatTime(*t.UpdatedAt)
	}
	return out
}
