package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/chitter-chat/chitter-server/internal/api"
	"github.com/chitter-chat/chitter-server/internal/chitter"
	"github.com/chitter-chat/chitter-server/internal/config"
	"github.com/chitter-chat/chitter-server/internal/credential"
	"github.com/chitter-chat/chitter-server/internal/httputil"
	"github.com/chitter-chat/chitter-server/internal/media"
	"github.com/chitter-chat/chitter-server/internal/memstore"
	"github.com/chitter-chat/chitter-server/internal/postgres"
	"github.com/chitter-chat/chitter-server/internal/sqlstore"
	"github.com/chitter-chat/chitter-server/internal/valkey"
)

// registrySweepInterval is how often MemRegistry reclaims expired invite/transfer codes when no Valkey connection
// backs the registry.
const registrySweepInterval = time.Hour

// server holds the shared dependencies used by route handlers and middleware.
type server struct {
	cfg     *config.Config
	service chitter.Service
	storage *media.LocalStorage
}

func main() {
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cfg.IsDevelopment() {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}

	log.Info().Str("env", cfg.ServerEnv).Str("database", cfg.Database).Msg("Starting Chitter Server")

	if cfg.CORSAllowOrigins == "*" {
		log.Warn().Msg("CORS_ALLOW_ORIGINS is set to a wildcard. Set an explicit origin when in production.")
	}

	ctx := context.Background()

	storage := media.NewLocalStorage(cfg.UploadDir, fmt.Sprintf("http://localhost:%d", cfg.Port))

	var registry credential.Registry
	if cfg.ValkeyURL != "" {
		client, err := valkey.Connect(ctx, cfg.ValkeyURL, 5*time.Second)
		if err != nil {
			return fmt.Errorf("connect valkey: %w", err)
		}
		registry = credential.NewRedisRegistry(client)
		log.Info().Msg("Valkey connected")
	} else {
		registry = credential.NewMemRegistry(registrySweepInterval, log.Logger)
		log.Info().Msg("No VALKEY_URL configured, using in-memory credential registry")
	}

	service, closeService, err := buildService(ctx, cfg, registry)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeService(ctx); err != nil {
			log.Error().Err(err).Msg("error closing chat service")
		}
	}()

	app := fiber.New(fiber.Config{
		AppName:   "Chitter",
		BodyLimit: cfg.BodyLimitBytes(),
		ErrorHandler: func(c fiber.Ctx, err error) error {
			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				return c.Status(fiberErr.Code).JSON(fiber.Map{"success": false, "error": chitter.UnknownServerError})
			}
			log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("unhandled error")
			return httputil.FailUnknown(c)
		},
	})

	app.Use(requestid.New())
	if cfg.LogHealthRequests {
		app.Use(httputil.RequestLogger(log.Logger))
	} else {
		app.Use(func(c fiber.Ctx) error {
			if c.Path() == "/api/v1/health" {
				return c.Next()
			}
			return httputil.RequestLogger(log.Logger)(c)
		})
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:  strings.Split(cfg.CORSAllowOrigins, ","),
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"X-Request-ID"},
	}))
	app.Use(limiter.New(limiter.Config{Max: 300, Expiration: time.Minute}))

	srv := &server{cfg: cfg, service: service, storage: storage}
	srv.registerRoutes(app)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info().Msg("Shutting down server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server shutdown error")
		}
	}()

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Info().Str("addr", addr).Msg("Server listening")

	if err := app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true}); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// buildService constructs the chitter.Service backend selected by cfg.Database: the in-memory ChitterMem when
// cfg.IsMemBackend(), otherwise a PostgresChitterDatabase against a migrated connection pool.
func buildService(ctx context.Context, cfg *config.Config, registry credential.Registry) (chitter.Service, func(context.Context) error, error) {
	if cfg.IsMemBackend() {
		loader := memstore.FileSnapshotStore{Path: cfg.MemSnapshotPath}
		saver := memstore.FileSnapshotStore{Path: cfg.MemSnapshotPath}
		cm, err := memstore.New(ctx, registry, loader, saver, log.Logger)
		if err != nil {
			return nil, nil, fmt.Errorf("create in-memory chat service: %w", err)
		}
		log.Info().Str("path", cfg.MemSnapshotPath).Msg("In-memory backend initialised")
		return cm, cm.Close, nil
	}

	pool, err := postgres.Connect(ctx, cfg.PostgresDSN(), cfg.DatabaseMaxConn, cfg.DatabaseMinConn)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	log.Info().Msg("PostgreSQL connected")

	if err := postgres.Migrate(cfg.PostgresDSN(), log.Logger); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}
	log.Info().Msg("Database migrations complete")

	db := sqlstore.New(pool, registry, log.Logger)
	return db, db.Close, nil
}

func (s *server) registerRoutes(app *fiber.App) {
	roomHandler := api.NewRoomHandler(s.service, log.Logger)
	userHandler := api.NewUserHandler(s.service, log.Logger)
	channelHandler := api.NewChannelHandler(s.service, log.Logger)
	messageHandler := api.NewMessageHandler(s.service, log.Logger)
	attachmentHandler := api.NewAttachmentHandler(s.service, s.storage, int64(s.cfg.MaxUploadSizeMB)<<20, log.Logger)
	healthHandler := api.NewHealthHandler()
	shutdownHandler := api.NewShutdownHandler(s.cfg.ShutdownToken, func() {
		go func() {
			time.Sleep(100 * time.Millisecond)
			_ = syscall.Kill(syscall.Getpid(), syscall.SIGTERM)
		}()
	})

	app.Get("/api/v1/health", healthHandler.Health)
	app.Post("/shutdown", shutdownHandler.Shutdown)

	app.Post("/api/v1/rooms", roomHandler.Create)
	app.Get("/api/v1/rooms/:roomID", roomHandler.Get)
	app.Patch("/api/v1/rooms/:roomID", roomHandler.Update)

	app.Post("/api/v1/invites", roomHandler.CreateInvite)
	app.Post("/api/v1/invites/:code/join", roomHandler.Join)

	app.Post("/api/v1/transfers", roomHandler.CreateTransfer)
	app.Post("/api/v1/transfers/:code", roomHandler.GetTransfer)

	app.Delete("/api/v1/users/:userID", userHandler.Remove)
	app.Patch("/api/v1/users/@me", userHandler.UpdateSelf)
	app.Put("/api/v1/users/:userID/role", userHandler.SetRole)
	app.Get("/api/v1/users", userHandler.List)
	app.Get("/api/v1/users/:userID", userHandler.Get)

	app.Post("/api/v1/channels", channelHandler.Create)
	app.Delete("/api/v1/channels/:channelID", channelHandler.Remove)
	app.Patch("/api/v1/channels/:channelID", channelHandler.Update)
	app.Get("/api/v1/channels", channelHandler.List)
	app.Get("/api/v1/channels/:channelID", channelHandler.Get)
	app.Put("/api/v1/channels/:channelID/members/:userID", channelHandler.AddMember)
	app.Delete("/api/v1/channels/:channelID/members/:userID", channelHandler.RemoveMember)

	app.Post("/api/v1/messages", messageHandler.Create)
	app.Get("/api/v1/messages", messageHandler.List)
	app.Patch("/api/v1/messages/:messageID", messageHandler.Edit)
	app.Delete("/api/v1/messages/:messageID", messageHandler.Remove)

	app.Post("/api/v1/attachments", attachmentHandler.Upload)
	app.Delete("/api/v1/attachments/:attachmentID", attachmentHandler.Remove)

	app.Get("/media/*", func(c fiber.Ctx) error {
		key := c.Params("*")
		if key == "" || strings.Contains(key, "..") {
			return fiber.ErrNotFound
		}
		rc, err := s.storage.Get(c.Context(), key)
		if err != nil {
			return fiber.ErrNotFound
		}
		defer func() { _ = rc.Close() }()
		c.Set("Cache-Control", "public, max-age=31536000, immutable")
		return c.SendStream(rc)
	})

	// Catch-all handler returns 404 for any request that does not match a defined route. Fiber v3 treats app.Use()
	// middleware as route matches, so without this terminal handler the router considers unmatched requests
	// "handled" and returns the default 200 status with an empty body.
	app.Use(func(_ fiber.Ctx) error {
		return fiber.ErrNotFound
	})
}
