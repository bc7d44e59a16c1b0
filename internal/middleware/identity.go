package middleware

// identity.go carries the verified caller between the gate and handlers.
// The identity is stored both on the echo context (keys "user_id" and
// "email", read by the rate limiter) and on the request context.Context,
// which is what handlers pass down to the service.

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/support-tickets/internal/model"
)

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id model.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity bound by the Auth middleware.
func IdentityFrom(ctx context.Context) (model.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(model.Identity)
	return id, ok && id.SubjectID != ""
}

func bindIdentity(c echo.Context, id model.Identity) {
	c.Set("user_id", id.SubjectID)
	c.Set("email", id.Email)
	req := c.Request()
	c.SetRequest(req.WithContext(WithIdentity(req.Context(), id)))
}

// userID returns the subject of the authenticated caller, or "anon" when
// the request has not passed the Auth middleware.
func userID(c echo.Context) string {
	if v, ok := c.Get("user_id").(string); ok && v != "" {
		return v
	}
	return "anon"
}
