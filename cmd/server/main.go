package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tempohq/tempo/api/internal/cache"
	"github.com/tempohq/tempo/api/internal/config"
	"github.com/tempohq/tempo/api/internal/database"
	"github.com/tempohq/tempo/api/internal/gcal"
	"github.com/tempohq/tempo/api/internal/handler"
	"github.com/tempohq/tempo/api/internal/jobs"
	"github.com/tempohq/tempo/api/internal/middleware"
	"github.com/tempohq/tempo/api/internal/model"
	"github.com/tempohq/tempo/api/internal/repository"
	"github.com/tempohq/tempo/api/internal/service"
	"github.com/tempohq/tempo/api/pkg/jwt"
)

func main() {
	// Initialize structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize database connection
	db := database.NewSurrealDB(database.Config{
		Host:      cfg.Database.Host,
		Port:      cfg.Database.Port,
		User:      cfg.Database.User,
		Password:  cfg.Database.Password,
		Namespace: cfg.Database.Namespace,
		Database:  cfg.Database.Database,
	})

	ctx := context.Background()
	if err := db.Connect(ctx); err != nil {
		slog.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	slog.Info("connected to database",
		slog.String("host", cfg.Database.Host),
		slog.String("database", cfg.Database.Database),
	)

	// Initialize Redis. Optional: an empty address disables the listing
	// cache, rate limiting, and idempotency protection.
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = redisClient.Close() }()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			// Not fatal: every Redis consumer degrades gracefully.
			slog.Warn("redis unreachable at startup", slog.String("error", err.Error()))
		} else {
			slog.Info("connected to redis", slog.String("addr", cfg.Redis.Addr))
		}
	} else {
		slog.Info("redis disabled, running without cache, rate limiting, and idempotency")
	}

	// Initialize JWT service
	jwtService, err := jwt.NewService(jwt.Config{
		PrivateKeyPath: cfg.JWT.PrivateKeyPath,
		PublicKeyPath:  cfg.JWT.PublicKeyPath,
		Issuer:         cfg.JWT.Issuer,
		ExpirationMins: cfg.JWT.ExpirationMins,
	})
	if err != nil {
		slog.Error("failed to initialize JWT service", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize repositories
	eventRepo := repository.NewEventRepository(db)
	userRepo := repository.NewUserRepository(db)
	outboxRepo := repository.NewOutboxRepository(db)

	// Initialize the external calendar provider, if configured
	var calendarSync service.CalendarSync
	var calendarConnector *service.CalendarConnector
	if cfg.Google.IsConfigured() {
		calendarClient := gcal.NewClient(gcal.Config{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURL:  cfg.Google.RedirectURL,
		}, logger)
		calendarSync = calendarClient
		calendarConnector = service.NewCalendarConnector(calendarClient, userRepo, logger)
		slog.Info("google calendar sync enabled")
	}

	// Initialize services
	var listingCache service.ListingCache = noopCache{}
	if redisClient != nil {
		listingCache = cache.NewEventCache(redisClient, cfg.Cache.TTL, logger)
	}

	syncScheduler := service.NewSyncScheduler(outboxRepo, eventRepo, userRepo, calendarSync, logger)

	bookingService := service.NewBookingService(service.BookingServiceConfig{
		Repo:     eventRepo,
		Users:    userRepo,
		Overlap:  service.NewOverlapChecker(eventRepo),
		Cache:    listingCache,
		Notifier: service.NewLogNotifier(logger),
		Sync:     syncScheduler,
		Logger:   logger,
	})

	// Start background jobs
	outboxProcessor := jobs.NewCalendarOutboxProcessor(outboxRepo, syncScheduler,
		cfg.Outbox.Interval, cfg.Outbox.BatchSize, cfg.Outbox.MaxAttempts)
	outboxProcessor.Start()
	defer outboxProcessor.Stop()

	// Initialize handlers
	eventHandler := handler.NewEventHandler(bookingService)
	healthHandler := handler.NewHealthHandler(db, redisClient)

	// Create router and register routes
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("GET /health", healthHandler.Health)

	// Protected routes run Auth first, so rate limiting and idempotency key
	// by the authenticated user rather than the remote address. Both sit
	// inside the global Compress wrapper, which keeps the idempotency
	// recorder on the uncompressed response bytes.
	protected := []middleware.Middleware{middleware.Auth(jwtService)}
	if redisClient != nil {
		rateLimiter := middleware.NewRateLimiter(redisClient, middleware.RateLimitConfig{
			Rate:   cfg.RateLimit.Requests,
			Window: cfg.RateLimit.Window,
			Burst:  cfg.RateLimit.Burst,
		}, logger)
		idempotencyStore := middleware.NewIdempotencyStore(redisClient, middleware.IdempotencyConfig{
			TTL: cfg.Idempotency.TTL,
		}, logger)
		protected = append(protected,
			middleware.RateLimit(rateLimiter),
			middleware.Idempotency(idempotencyStore),
		)
	}
	route := func(h http.HandlerFunc) http.Handler {
		return middleware.Chain(h, protected...)
	}

	// Event endpoints (protected)
	mux.Handle("POST /v1/events", route(eventHandler.CreateEvent))
	mux.Handle("GET /v1/events", route(eventHandler.ListEvents))
	mux.Handle("GET /v1/events/{eventId}", route(eventHandler.GetEvent))
	mux.Handle("PATCH /v1/events/{eventId}", route(eventHandler.UpdateEvent))
	mux.Handle("DELETE /v1/events/{eventId}", route(eventHandler.CancelEvent))

	// Calendar connection endpoints (protected, only with a provider configured)
	if calendarConnector != nil {
		calendarHandler := handler.NewCalendarHandler(calendarConnector)
		mux.Handle("GET /v1/calendar/connect", route(calendarHandler.ConnectURL))
		mux.Handle("POST /v1/calendar/callback", route(calendarHandler.Callback))
	}

	// Apply global middleware
	wrapped := middleware.Chain(mux,
		middleware.RequestID,
		middleware.Logger,
		middleware.Recovery,
		middleware.CORS(cfg.Server.AllowedOrigins),
		middleware.Compress,
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      wrapped,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("starting server",
			slog.String("port", cfg.Server.Port),
			slog.String("env", cfg.Server.Env),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", slog.String("error", err.Error()))
	}

	slog.Info("server exited")
}

// noopCache stands in for the listing cache when Redis is disabled: every
// read is a miss, so listings always come from the database.
type noopCache struct{}

func (noopCache) GetListing(ctx context.Context, creatorID string, filters *model.EventFilters) ([]byte, bool) {
	return nil, false
}

func (noopCache) PutListing(ctx context.Context, creatorID string, filters *model.EventFilters, payload []byte) {
}

func (noopCache) Invalidate(ctx context.Context, creatorID string) {}
