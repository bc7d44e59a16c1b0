package router // package router defines how HTTP routes are registered for the API

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/support-tickets/internal/handler"
	"github.com/iliyamo/support-tickets/internal/middleware"
)

// Deps are the collaborators the HTTP server is assembled from.
type Deps struct {
	Tickets    *handler.TicketHandler
	Verifier   middleware.Verifier
	Limiter    echo.MiddlewareFunc // optional; mounted after Auth
	Logger     *slog.Logger
	Production bool
}

// New builds the Echo instance: panic recovery, CORS, request logging, the
// catch-all error handler and every route.
func New(d Deps) *echo.Echo {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.NewHTTPErrorHandler(d.Production, d.Logger)

	e.Use(echomw.Recover())
	e.Use(echomw.CORS())
	e.Use(requestLogger(d.Logger))

	RegisterRoutes(e)
	mws := []echo.MiddlewareFunc{middleware.Auth(d.Verifier, d.Logger)}
	if d.Limiter != nil {
		mws = append(mws, d.Limiter)
	}
	RegisterTickets(e, d.Tickets, mws...)
	return e
}

// RegisterRoutes registers routes that do not require authentication.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/health", handler.Health)
}

// RegisterTickets registers the ticket API under /api/tickets.  The given
// middleware (at least the Auth gate) wraps every route in the group.
func RegisterTickets(e *echo.Echo, h *handler.TicketHandler, mws ...echo.MiddlewareFunc) {
	g := e.Group("/api/tickets", mws...)
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PATCH("/:id/status", h.UpdateStatus)
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}
			logger.LogAttrs(c.Request().Context(), slog.LevelInfo, "request", attrs...)
			return nil
		},
	})
}
