package routes

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/zh-portal/zh_portal/internal/auth"
	"github.com/zh-portal/zh_portal/internal/config"
	"github.com/zh-portal/zh_portal/internal/identity"
	"github.com/zh-portal/zh_portal/internal/middleware"
	"github.com/zh-portal/zh_portal/internal/password"
)

// Deps aggregates shared dependencies required to wire routes. DB and SQLite
// are only consulted for their matching STORE_DRIVER; Cache enables request
// replay on register and the protected routes when set.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	SQLite *sql.DB
	Cache  *redis.Client
	Logger *slog.Logger

	// Store overrides the driver-selected store. Tests use it.
	Store identity.Store
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	store := d.Store
	if store == nil {
		var err error
		if store, err = newStore(context.Background(), d); err != nil {
			return err
		}
	}

	tokens, err := auth.NewTokens(auth.TokenConfig{
		Secret: []byte(d.Cfg.JWTSecret),
		TTL:    d.Cfg.TokenTTL,
		Issuer: d.Cfg.TokenIssuer,
	})
	if err != nil {
		return err
	}
	accounts := identity.NewService(store, password.NewBcrypt(d.Cfg.BcryptCost), d.Logger)
	sessions := auth.NewService(tokens, accounts, d.Logger)
	accountHandler := identity.NewHandler(accounts)
	authHandler := auth.NewHandler(sessions)

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.RequestLog(d.Logger))
	app.Use(middleware.SecureHeaders(d.Cfg.IsProduction()))

	RegisterHealthRoutes(app, store, d.Cache)

	api := app.Group("/api")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals(middleware.RequestIDHeader).(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Replay is never offered on login: a stored session must not be handed
	// to a second caller presenting the same key.
	replay := func(c *fiber.Ctx) error { return c.Next() }
	if d.Cache != nil {
		replay = middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger)
	}

	api.Post("/register", replay, accountHandler.Register)
	api.Post("/login", authHandler.Login)

	protected := api.Group("", middleware.JWTAuth(sessions), replay)
	protected.Get("/users", accountHandler.Users)
	protected.Get("/export", accountHandler.Export)
	protected.Get("/dashboard", accountHandler.Dashboard)
	protected.Post("/import", accountHandler.Import)
	protected.Get("/me", accountHandler.Me)

	return nil
}

func newStore(ctx context.Context, d Deps) (identity.Store, error) {
	switch d.Cfg.StoreDriver {
	case config.StoreFile, "":
		return identity.NewFileStore(d.Cfg.UsersFile, d.Logger), nil
	case config.StoreMemory:
		return identity.NewMemoryStore(), nil
	case config.StoreSQLite:
		if d.SQLite == nil {
			return nil, fmt.Errorf("sqlite store selected without a database handle")
		}
		return identity.NewSQLiteStore(ctx, d.SQLite)
	case config.StorePostgres:
		if d.DB == nil {
			return nil, fmt.Errorf("postgres store selected without a connection pool")
		}
		return identity.NewPostgresStore(ctx, d.DB)
	default:
		return nil, fmt.Errorf("unknown store driver %q", d.Cfg.StoreDriver)
	}
}
