package repository

import (
	"context"
	"sync"

	"github.com/iliyamo/support-tickets/internal/model"
)

// MemoryTicketRepo keeps tickets in process.  It is safe for concurrent use
// and returns copies, so callers never share state with the store.
type MemoryTicketRepo struct {
	mu      sync.RWMutex
	tickets map[string]model.Ticket
	order   []string // insertion order, used for listing
	opts    options
}

// NewMemoryTicketRepo returns an empty in-memory store.
func NewMemoryTicketRepo(opts ...Option) *MemoryTicketRepo {
	return &MemoryTicketRepo{
		tickets: make(map[string]model.Ticket),
		opts:    buildOptions(opts),
	}
}

func (r *MemoryTicketRepo) Add(ctx context.Context, t model.Ticket) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	now := r.opts.now().UTC().Truncate(timeResolution)
	t.ID = r.opts.newID()
	t.CreatedAt = &now
	t.UpdatedAt = nil

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tickets[t.ID] = t
	r.order = append(r.order, t.ID)
	return t.ID, nil
}

func (r *MemoryTicketRepo) Get(ctx context.Context, id string) (model.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return model.Ticket{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tickets[id]
	if !ok {
		return model.Ticket{}, ErrTicketNotFound
	}
	return t, nil
}

func (r *MemoryTicketRepo) ListByOwner(ctx context.Context, ownerID string) ([]model.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Ticket, 0)
	for _, id := range r.order {
		if t := r.tickets[id]; t.OwnerID == ownerID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *MemoryTicketRepo) UpdateStatus(ctx context.Context, id string, status model.TicketStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	now := r.opts.now().UTC().Truncate(timeResolution)

	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok {
		return ErrTicketNotFound
	}
	t.Status = status
	t.UpdatedAt = &now
	r.tickets[id] = t
	return nil
}

// Put stores t verbatim, bypassing ID and timestamp assignment.  It exists
// to seed records that violate store invariants, such as a missing
// created_at.
func (r *MemoryTicketRepo) Put(t model.Ticket) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[t.ID]; !ok {
		r.order = append(r.order, t.ID)
	}
	r.tickets[t.ID] = t
}
