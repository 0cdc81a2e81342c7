package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	discordBot "github.com/lorrc/ticket-broker/internal/adapters/primary/discord"
	httpAdapter "github.com/lorrc/ticket-broker/internal/adapters/primary/http"
	mw "github.com/lorrc/ticket-broker/internal/adapters/primary/http/middleware"
	"github.com/lorrc/ticket-broker/internal/adapters/primary/websocket"
	"github.com/lorrc/ticket-broker/internal/adapters/secondary/amqp"
	discordGateway "github.com/lorrc/ticket-broker/internal/adapters/secondary/discord"
	"github.com/lorrc/ticket-broker/internal/adapters/secondary/eventlog"
	"github.com/lorrc/ticket-broker/internal/adapters/secondary/memory"
	"github.com/lorrc/ticket-broker/internal/adapters/secondary/postgres"
	"github.com/lorrc/ticket-broker/internal/auth"
	"github.com/lorrc/ticket-broker/internal/config"
	"github.com/lorrc/ticket-broker/internal/core/ports"
	"github.com/lorrc/ticket-broker/internal/core/services"
	"github.com/lorrc/ticket-broker/internal/infrastructure/clock"
	"github.com/lorrc/ticket-broker/internal/infrastructure/logging"
	"github.com/lorrc/ticket-broker/internal/infrastructure/ratelimit"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Structured Logger
	logger := logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      os.Stdout,
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
	})
	slog.SetDefault(logger)

	logger.Info("starting service",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)
	logger.Debug("configuration loaded", "config", cfg.String())

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// 3. Optional audit log and event queue
	recorders := []ports.EventRecorder{eventlog.NewRecorder(logger)}
	healthChecks := map[string]httpAdapter.HealthChecker{}

	var (
		pool         *pgxpool.Pool
		eventService ports.EventService
	)
	if cfg.HasDatabase() {
		pool, err = postgres.NewPool(ctx, postgres.PoolConfig{
			URL:             cfg.Database.URL,
			MaxConns:        cfg.Database.MaxOpenConns,
			MinConns:        cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		})
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := postgres.Migrate(cfg.Database.URL); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		logger.Info("database connection established")

		events := services.NewEventService(postgres.NewTicketEventRepository(pool))
		eventService = events
		recorders = append(recorders, events)
		healthChecks["database"] = pool
	} else {
		logger.Warn("DATABASE_URL not set, audit log disabled")
	}

	var publisher *amqp.Publisher
	if cfg.HasAMQP() {
		publisher = amqp.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Queue, logger)
		defer publisher.Close()
		recorders = append(recorders, publisher)
		logger.Info("publishing lifecycle events", "queue", cfg.AMQP.Queue)
	}

	// 4. Real-time hub
	hub := websocket.NewHub(logger)
	go hub.Run(ctx)

	// 5. Discord session and the lifecycle core
	session, err := discordBot.NewSession(cfg.Discord.Token)
	if err != nil {
		logger.Error("failed to create discord session", "error", err)
		os.Exit(1)
	}

	lifecycle := services.NewLifecycleService(
		memory.NewTicketRegistry(),
		memory.NewNumberAllocator(),
		memory.NewPanelStore(),
		discordGateway.NewGateway(session, logger),
		hub,
		clock.Real(),
		logger,
		services.LifecycleConfig{
			CategoryName:   cfg.Ticket.CategoryName,
			CloseDelay:     cfg.Ticket.CloseDelay,
			GatewayTimeout: cfg.Ticket.GatewayTimeout,
		},
		recorders...,
	)

	bot, err := discordBot.NewBot(session, discordBot.BotConfig{
		AppID:     cfg.Discord.AppID,
		GuildID:   cfg.Discord.GuildID,
		Lifecycle: lifecycle,
		OpenLimiter: ratelimit.Config{
			RequestsPerSecond: cfg.Discord.OpenRPS,
			BurstSize:         cfg.Discord.OpenBurst,
			CleanupInterval:   time.Minute,
			TTL:               5 * time.Minute,
		},
		Logger: logger,
	})
	if err != nil {
		logger.Error("failed to create discord bot", "error", err)
		os.Exit(1)
	}
	if err := bot.Open(); err != nil {
		logger.Error("failed to connect to discord", "error", err)
		os.Exit(1)
	}
	if err := bot.RegisterCommands(); err != nil {
		logger.Error("failed to register slash commands", "error", err)
		os.Exit(1)
	}
	healthChecks["discord"] = httpAdapter.HealthCheckFunc(func(context.Context) error {
		if !session.DataReady {
			return errors.New("gateway not ready")
		}
		return nil
	})

	// 6. Security and rate limiting
	tokenManager := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTokenTTL)

	var httpLimiter *ratelimit.Keyed
	if cfg.RateLimit.Enabled {
		httpLimiter = ratelimit.NewKeyed(ratelimit.Config{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			BurstSize:         cfg.RateLimit.BurstSize,
			CleanupInterval:   time.Minute,
			TTL:               3 * time.Minute,
		})
		defer httpLimiter.Stop()
	}

	// 7. Handlers (Primary Adapters)
	errorHandler := httpAdapter.NewErrorHandler(logger)
	ticketHandler := httpAdapter.NewTicketHandler(lifecycle, errorHandler, logger)
	panelHandler := httpAdapter.NewPanelHandler(lifecycle, errorHandler, logger)
	eventHandler := httpAdapter.NewEventHandler(eventService, errorHandler, logger)
	wsHandler := httpAdapter.NewWebSocketHandler(hub, tokenManager, cfg, logger)
	healthHandler := httpAdapter.NewHealthHandler(cfg.App.Version, healthChecks)

	// 8. Setup Router
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.RecoveryLogger(logger))
	r.Use(mw.RequestLogger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.WebSocket.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if httpLimiter != nil {
		r.Use(mw.RateLimit(httpLimiter))
	}

	r.Get("/health", healthHandler.HandleHealth)
	r.Get("/health/live", healthHandler.HandleLiveness)
	r.Get("/health/ready", healthHandler.HandleReadiness)

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket route (Authentication is handled inside the handler)
		r.Get("/ws", wsHandler.ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(mw.JWTMiddleware(tokenManager))
			r.Route("/scopes/{scopeID}", func(r chi.Router) {
				ticketHandler.RegisterScopeRoutes(r)
				panelHandler.RegisterScopeRoutes(r)
				eventHandler.RegisterScopeRoutes(r)
			})
			r.Route("/tickets", ticketHandler.RegisterRoutes)
			r.Route("/resources", ticketHandler.RegisterResourceRoutes)
		})
	})

	// 9. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutdown signal received", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Stop taking new work before draining the lifecycle core.
	bot.SetShuttingDown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	if err := lifecycle.Shutdown(shutdownCtx); err != nil {
		logger.Error("lifecycle shutdown error", "error", err)
	}
	if err := bot.Close(); err != nil {
		logger.Error("discord shutdown error", "error", err)
	}
	stop()

	logger.Info("server shutdown complete")
}
