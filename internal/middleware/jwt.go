package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/support-tickets/internal/model"
)

// Verifier validates a bearer credential and resolves the caller.
type Verifier interface {
	VerifyToken(ctx context.Context, token string) (model.Identity, error)
}

// Auth returns an Echo middleware that requires an `Authorization: Bearer
// <token>` header, verifies the token and binds the resulting identity for
// the rest of the request.  A missing or malformed header is rejected
// without calling the verifier.  Verifier errors are logged and never
// returned to the client.
func Auth(v Verifier, logger *slog.Logger) echo.MiddlewareFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Unauthorized: No token provided"})
			}

			ctx := c.Request().Context()
			id, err := v.VerifyToken(ctx, raw)
			if err != nil || id.SubjectID == "" {
				logger.WarnContext(ctx, "token verification failed",
					"path", c.Path(), "remote_ip", c.RealIP(), "error", err)
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Unauthorized: Invalid token"})
			}

			bindIdentity(c, id)
			return next(c)
		}
	}
}

// bearerToken extracts the credential from an Authorization header value.
func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	return raw, raw != ""
}
