package main // Entry point package

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/support-tickets/internal/config"
	"github.com/iliyamo/support-tickets/internal/database"
	"github.com/iliyamo/support-tickets/internal/handler"
	"github.com/iliyamo/support-tickets/internal/middleware"
	"github.com/iliyamo/support-tickets/internal/queue"
	"github.com/iliyamo/support-tickets/internal/repository"
	"github.com/iliyamo/support-tickets/internal/router"
	"github.com/iliyamo/support-tickets/internal/service"
	"github.com/iliyamo/support-tickets/internal/utils"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("could not load .env", "error", err)
	}
	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("open ticket store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	opts := []service.Option{service.WithLogger(logger)}
	if cfg.EventsEnabled {
		opts = append(opts, service.WithEventPublisher(queue.NewPublisher(cfg.BrokerURL)))
		consumer := queue.NewAuditConsumer(cfg.BrokerURL, cfg.AuditLogDir, logger)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("audit consumer stopped", "error", err)
			}
		}()
	}
	svc := service.NewTicketService(store, opts...)

	var limiter echo.MiddlewareFunc
	if cfg.RateLimit.Enabled {
		rdb := config.NewRedisClient()
		if rdb == nil {
			logger.Warn("redis unavailable, rate limiting disabled")
		} else {
			defer rdb.Close()
			limiter = middleware.NewTokenBucket(cfg.RateLimit, rdb, logger)
		}
	}

	e := router.New(router.Deps{
		Tickets:    handler.NewTicketHandler(svc),
		Verifier:   utils.NewJWTVerifier(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience),
		Limiter:    limiter,
		Logger:     logger,
		Production: cfg.IsProduction(),
	})

	addr := ":" + cfg.Port
	go func() {
		logger.Info("listening", "addr", addr, "env", cfg.Env, "store", cfg.StoreDriver)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
}

// openStore builds the ticket store selected by STORE_DRIVER and creates
// its schema.  The returned func releases the store.
func openStore(ctx context.Context, cfg config.Config) (service.Store, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		return repository.NewMemoryTicketRepo(), func() {}, nil
	case config.DriverMySQL:
		db, err := database.OpenMySQL(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			return nil, nil, err
		}
		if err := database.Migrate(ctx, db, database.MySQL); err != nil {
			db.Close()
			return nil, nil, err
		}
		return repository.NewTicketRepo(db), func() { db.Close() }, nil
	default:
		db, err := database.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if err := database.Migrate(ctx, db, database.SQLite); err != nil {
			db.Close()
			return nil, nil, err
		}
		return repository.NewTicketRepo(db), func() { db.Close() }, nil
	}
}
