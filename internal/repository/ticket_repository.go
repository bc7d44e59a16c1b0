package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/support-tickets/internal/model"
)

// TicketRepo persists tickets in the `tickets` table.  The same queries run
// on MySQL and SQLite; timestamps are stored as unix milliseconds so both
// drivers scan them identically.
type TicketRepo struct {
	db   *sql.DB
	opts options
}

// NewTicketRepo returns a TicketRepo bound to the given database.
func NewTicketRepo(db *sql.DB, opts ...Option) *TicketRepo {
	return &TicketRepo{db: db, opts: buildOptions(opts)}
}

// DB exposes the underlying connection pool.
func (r *TicketRepo) DB() *sql.DB { return r.db }

// Add inserts a ticket and returns its generated ID.  The ID and created_at
// are assigned here; any values set on t are ignored.
func (r *TicketRepo) Add(ctx context.Context, t model.Ticket) (string, error) {
	id := r.opts.newID()
	const q = `INSERT INTO tickets (id, owner_id, title, description, status, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q,
		id, t.OwnerID, t.Title, t.Description, string(t.Status), toMillis(r.opts.now()))
	if err != nil {
		return "", fmt.Errorf("insert ticket: %w", err)
	}
	return id, nil
}

// Get fetches a ticket by ID.  It returns ErrTicketNotFound when no row
// matches.
func (r *TicketRepo) Get(ctx context.Context, id string) (model.Ticket, error) {
	const q = `SELECT id, owner_id, title, description, status, created_at, updated_at FROM tickets WHERE id = ? LIMIT 1`
	t, err := scanTicket(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Ticket{}, ErrTicketNotFound
		}
		return model.Ticket{}, fmt.Errorf("get ticket %s: %w", id, err)
	}
	return t, nil
}

// ListByOwner returns all tickets owned by ownerID in storage order.
// Ordering by created_at is left to the caller.
func (r *TicketRepo) ListByOwner(ctx context.Context, ownerID string) ([]model.Ticket, error) {
	const q = `SELECT id, owner_id, title, description, status, created_at, updated_at FROM tickets WHERE owner_id = ?`
	rows, err := r.db.QueryContext(ctx, q, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	out := make([]model.Ticket, 0)
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	return out, nil
}

// UpdateStatus sets the status of a ticket and stamps updated_at with the
// server time.  The write is unconditional: concurrent updates to the same
// ticket are last-writer-wins.  It returns ErrTicketNotFound when no row
// has the given id.
func (r *TicketRepo) UpdateStatus(ctx context.Context, id string, status model.TicketStatus) error {
	const q = `UPDATE tickets SET status = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, string(status), toMillis(r.opts.now()), id)
	if err != nil {
		return fmt.Errorf("update ticket %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update ticket %s: %w", id, err)
	}
	if n == 0 {
		return ErrTicketNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner) (model.Ticket, error) {
	var (
		t         model.Ticket
		status    string
		createdAt sql.NullInt64
		updatedAt sql.NullInt64
	)
	if err := row.Scan(&t.ID, &t.OwnerID, &t.Title, &t.Description, &status, &createdAt, &updatedAt); err != nil {
		return model.Ticket{}, err
	}
	t.Status = model.TicketStatus(status)
	if createdAt.Valid {
		t.CreatedAt = fromMillis(createdAt.Int64)
	}
	if updatedAt.Valid {
		t.UpdatedAt = fromMillis(updatedAt.Int64)
	}
	return t, nil
}
