package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/support-tickets/internal/middleware"
	"github.com/iliyamo/support-tickets/internal/model"
	"github.com/iliyamo/support-tickets/internal/service"
)

// storeTimeout bounds the store work of a single request.
const storeTimeout = 5 * time.Second

// TicketHandler exposes the ticket service over HTTP.  All methods assume
// the Auth middleware has bound the caller identity; failures are returned
// to the HTTP error handler, which renders them.
type TicketHandler struct {
	Tickets *service.TicketService
}

// NewTicketHandler constructs a TicketHandler and panics on a nil service.
func NewTicketHandler(svc *service.TicketService) *TicketHandler {
	if svc == nil {
		panic("nil service passed to NewTicketHandler")
	}
	return &TicketHandler{Tickets: svc}
}

type createTicketReq struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type updateStatusReq struct {
	Status string `json:"status"`
}

// Create handles POST /api/tickets and returns 201 with the new ticket.
func (h *TicketHandler) Create(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	var req createTicketReq
	if err := bindJSON(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
	defer cancel()

	t, err := h.Tickets.Create(ctx, id, req.Title, req.Description)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, t)
}

// List handles GET /api/tickets and returns the caller's tickets, newest
// first.  An empty result is an empty JSON array.
func (h *TicketHandler) List(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
	defer cancel()

	tickets, err := h.Tickets.ListForOwner(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tickets)
}

// Get handles GET /api/tickets/:id.
func (h *TicketHandler) Get(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
	defer cancel()

	t, err := h.Tickets.GetByID(ctx, id, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

// UpdateStatus handles PATCH /api/tickets/:id/status.
func (h *TicketHandler) UpdateStatus(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	var req updateStatusReq
	if err := bindJSON(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
	defer cancel()

	t, err := h.Tickets.UpdateStatus(ctx, id, c.Param("id"), model.TicketStatus(req.Status))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

// bindJSON decodes a JSON request body into v.  A body not declared as
// JSON leaves v at its zero value, so validation reports the missing fields.
func bindJSON(c echo.Context, v any) error {
	ct := c.Request().Header.Get(echo.HeaderContentType)
	if !strings.HasPrefix(strings.ToLower(ct), echo.MIMEApplicationJSON) {
		return nil
	}
	return (&echo.DefaultBinder{}).BindBody(c, v)
}

func caller(c echo.Context) (model.Identity, error) {
	id, ok := middleware.IdentityFrom(c.Request().Context())
	if !ok {
		return model.Identity{}, &service.Error{Kind: service.Unauthenticated, Message: "Unauthorized: No token provided"}
	}
	return id, nil
}
