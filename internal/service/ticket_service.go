// Package service holds the ticket business rules: input validation,
// ownership scoping and the status state machine.  Every operation either
// returns a shaped ticket or a single *Error.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/iliyamo/support-tickets/internal/model"
	"github.com/iliyamo/support-tickets/internal/queue"
	"github.com/iliyamo/support-tickets/internal/repository"
)

const (
	minTitleLen       = 5
	minDescriptionLen = 10
)

// Store is the ticket persistence the service depends on.  Implementations
// assign IDs and timestamps and return repository.ErrTicketNotFound for
// unknown IDs.
type Store interface {
	Add(ctx context.Context, t model.Ticket) (string, error)
	Get(ctx context.Context, id string) (model.Ticket, error)
	ListByOwner(ctx context.Context, ownerID string) ([]model.Ticket, error)
	UpdateStatus(ctx context.Context, id string, status model.TicketStatus) error
}

// EventPublisher receives ticket events after successful writes.
type EventPublisher interface {
	PublishTicketEvent(ctx context.Context, ev queue.TicketEvent) error
}

// TicketService implements the ticket operations on top of a Store.
type TicketService struct {
	store  Store
	now    func() time.Time
	logger *slog.Logger
	events EventPublisher
}

// Option configures a TicketService.
type Option func(*TicketService)

// WithClock sets the clock used when shaping records without created_at.
func WithClock(now func() time.Time) Option { return func(s *TicketService) { s.now = now } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(s *TicketService) { s.logger = l } }

// WithEventPublisher enables ticket event publishing.
func WithEventPublisher(p EventPublisher) Option { return func(s *TicketService) { s.events = p } }

// NewTicketService returns a service backed by store.  It panics on a nil
// store.
func NewTicketService(store Store, opts ...Option) *TicketService {
	if store == nil {
		panic("nil store passed to NewTicketService")
	}
	s := &TicketService{
		store:  store,
		now:    func() time.Time { return time.Now().UTC() },
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates the payload and stores a new Open ticket owned by the
// caller.
func (s *TicketService) Create(ctx context.Context, id model.Identity, title, description string) (model.TicketResponse, error) {
	if err := requireIdentity(id); err != nil {
		return model.TicketResponse{}, err
	}
	title, description, err := validateTicketInput(title, description)
	if err != nil {
		return model.TicketResponse{}, err
	}

	ticketID, err := s.store.Add(ctx, model.Ticket{
		OwnerID:     id.SubjectID,
		Title:       title,
		Description: description,
		Status:      model.StatusOpen,
	})
	if err != nil {
		return model.TicketResponse{}, s.internal(ctx, "create ticket", err)
	}
	stored, err := s.store.Get(ctx, ticketID)
	if err != nil {
		return model.TicketResponse{}, s.internal(ctx, "fetch created ticket", err)
	}

	s.publish(ctx, queue.TicketEvent{
		Type:     queue.TicketCreated,
		TicketID: stored.ID,
		OwnerID:  stored.OwnerID,
		Status:   string(stored.Status),
	})
	return ShapeTicket(stored, s.now(), s.logger), nil
}

// ListForOwner returns the caller's tickets, newest first.  Records with
// equal created_at keep the order the store returned them in.
func (s *TicketService) ListForOwner(ctx context.Context, id model.Identity) ([]model.TicketResponse, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	records, err := s.store.ListByOwner(ctx, id.SubjectID)
	if err != nil {
		return nil, s.internal(ctx, "list tickets", err)
	}

	now := s.now()
	type entry struct {
		at  time.Time
		out model.TicketResponse
	}
	entries := make([]entry, 0, len(records))
	for _, rec := range records {
		if rec.OwnerID != id.SubjectID {
			continue
		}
		at := now
		if rec.CreatedAt != nil {
			at = *rec.CreatedAt
		}
		entries = append(entries, entry{at: at, out: ShapeTicket(rec, now, s.logger)})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].at.After(entries[j].at) })

	out := make([]model.TicketResponse, len(entries))
	for i, e := range entries {
		out[i] = e.out
	}
	return out, nil
}

// GetByID returns the ticket if the caller owns it.  A missing ticket is
// NotFound; someone else's ticket is Forbidden.
func (s *TicketService) GetByID(ctx context.Context, id model.Identity, ticketID string) (model.TicketResponse, error) {
	if err := requireIdentity(id); err != nil {
		return model.TicketResponse{}, err
	}
	t, err := s.loadOwned(ctx, id, ticketID)
	if err != nil {
		return model.TicketResponse{}, err
	}
	return ShapeTicket(t, s.now(), s.logger), nil
}

// UpdateStatus moves the caller's ticket to status and returns the updated
// record.  The sequence is fetch, check, write, re-fetch with no
// conditional write, so two concurrent updates to one ticket are
// last-writer-wins and neither caller is told about the other.
func (s *TicketService) UpdateStatus(ctx context.Context, id model.Identity, ticketID string, status model.TicketStatus) (model.TicketResponse, error) {
	if err := requireIdentity(id); err != nil {
		return model.TicketResponse{}, err
	}
	if !status.Valid() {
		return model.TicketResponse{}, newError(InvalidArgument, "Status must be one of: "+statusList())
	}
	prev, err := s.loadOwned(ctx, id, ticketID)
	if err != nil {
		return model.TicketResponse{}, err
	}
	if err := s.store.UpdateStatus(ctx, ticketID, status); err != nil {
		if errors.Is(err, repository.ErrTicketNotFound) {
			return model.TicketResponse{}, newError(NotFound, "Ticket not found")
		}
		return model.TicketResponse{}, s.internal(ctx, "update ticket status", err)
	}
	updated, err := s.store.Get(ctx, ticketID)
	if err != nil {
		return model.TicketResponse{}, s.internal(ctx, "fetch updated ticket", err)
	}

	s.publish(ctx, queue.TicketEvent{
		Type:           queue.TicketStatusChanged,
		TicketID:       updated.ID,
		OwnerID:        updated.OwnerID,
		Status:         string(updated.Status),
		PreviousStatus: string(prev.Status),
	})
	return ShapeTicket(updated, s.now(), s.logger), nil
}

func (s *TicketService) loadOwned(ctx context.Context, id model.Identity, ticketID string) (model.Ticket, error) {
	t, err := s.store.Get(ctx, ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrTicketNotFound) {
			return model.Ticket{}, newError(NotFound, "Ticket not found")
		}
		return model.Ticket{}, s.internal(ctx, "fetch ticket", err)
	}
	if t.OwnerID != id.SubjectID {
		return model.Ticket{}, newError(Forbidden, "Forbidden: Access denied")
	}
	return t, nil
}

func (s *TicketService) internal(ctx context.Context, op string, err error) *Error {
	s.logger.ErrorContext(ctx, "ticket store failure", "op", op, "error", err)
	return internalError(err)
}

func (s *TicketService) publish(ctx context.Context, ev queue.TicketEvent) {
	if s.events == nil {
		return
	}
	ev.OccurredAt = FormatTime(s.now())
	if err := s.events.PublishTicketEvent(ctx, ev); err != nil {
		s.logger.WarnContext(ctx, "ticket event not published", "type", ev.Type, "ticket_id", ev.TicketID, "error", err)
	}
}

func requireIdentity(id model.Identity) error {
	if id.SubjectID == "" {
		return newError(Unauthenticated, "Unauthorized: No token provided")
	}
	return nil
}

// validateTicketInput trims title and description and checks their
// lengths in characters.
func validateTicketInput(title, description string) (string, string, error) {
	if title == "" || description == "" {
		return "", "", newError(InvalidArgument, "Title and description are required")
	}
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if utf8.RuneCountInString(title) < minTitleLen {
		return "", "", newError(InvalidArgument, "Title must be at least 5 characters")
	}
	if utf8.RuneCountInString(description) < minDescriptionLen {
		return "", "", newError(InvalidArgument, "Description must be at least 10 characters")
	}
	return title, description, nil
}

func statusList() string {
	names := make([]string, len(model.TicketStatuses))
	for i, st := range model.TicketStatuses {
		names[i] = string(st)
	}
	return strings.Join(names, ", ")
}
