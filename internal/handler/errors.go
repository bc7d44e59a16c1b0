package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/support-tickets/internal/service"
)

// NewHTTPErrorHandler returns the catch-all error handler.  Every error
// that reaches it is rendered as {"error": "..."}: service errors by their
// kind, echo errors by their code, anything else as a 500.  Outside
// production, 500 responses also carry the cause in "message" and
// "details".
func NewHTTPErrorHandler(production bool, logger *slog.Logger) echo.HTTPErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, body, cause := renderError(err)
		if status >= http.StatusInternalServerError {
			logger.ErrorContext(c.Request().Context(), "request failed",
				"method", c.Request().Method, "path", c.Path(), "error", err)
			if !production && cause != nil {
				body["message"] = cause.Error()
				body["details"] = fmt.Sprintf("%+v", cause)
			}
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, body)
		}
		if werr != nil {
			logger.ErrorContext(c.Request().Context(), "write error response", "error", werr)
		}
	}
}

// renderError maps err to a status code, a client-safe body and the cause
// that may be disclosed outside production.
func renderError(err error) (int, echo.Map, error) {
	var se *service.Error
	if errors.As(err, &se) {
		cause := se.Err
		if se.Kind != service.Internal {
			cause = nil
		}
		return se.Kind.HTTPStatus(), echo.Map{"error": se.Message}, cause
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg, ok := he.Message.(string)
		if !ok || msg == "" {
			msg = http.StatusText(he.Code)
		}
		if he.Code >= http.StatusInternalServerError {
			return he.Code, echo.Map{"error": "Internal server error"}, he
		}
		return he.Code, echo.Map{"error": msg}, nil
	}

	return http.StatusInternalServerError, echo.Map{"error": "Internal server error"}, err
}
