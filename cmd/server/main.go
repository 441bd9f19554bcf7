package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/arjunmehta/ledger-service/internal/cache"
	"github.com/arjunmehta/ledger-service/internal/config"
	"github.com/arjunmehta/ledger-service/internal/handler"
	"github.com/arjunmehta/ledger-service/internal/middleware"
	"github.com/arjunmehta/ledger-service/internal/repository"
	"github.com/arjunmehta/ledger-service/internal/service"
)

func main() {
	// Initialise logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err.Error())
		os.Exit(1)
	}

	location, err := cfg.Location()
	if err != nil {
		logger.Error("invalid timezone", "timezone", cfg.Timezone, "error", err.Error())
		os.Exit(1)
	}

	// Connect to the database
	db, err := connectDB(cfg)
	if err != nil {
		logger.Error("failed to connect to database", "error", err.Error())
		os.Exit(1)
	}
	defer db.Close()

	logger.Info("connected to database successfully")

	// Pick the balance cache backend
	balanceCache, err := buildCache(cfg, logger)
	if err != nil {
		logger.Error("failed to initialise balance cache", "error", err.Error())
		os.Exit(1)
	}

	// Initialise repositories
	accountRepo := repository.NewAccountRepository(db)
	movementRepo := repository.NewMovementRepository(db)

	// Initialise services
	authService := service.NewAuthService(accountRepo, []byte(cfg.JWTSecret), logger)
	accountService := service.NewAccountService(accountRepo, balanceCache, logger)
	transferService := service.NewTransferService(db, accountRepo, movementRepo, balanceCache, logger)
	queryService := service.NewMovementQueryService(movementRepo, location, logger)

	// Seed the super admin on first boot
	seedCtx, cancelSeed := context.WithTimeout(context.Background(), 10*time.Second)
	if err := authService.SeedSuperAdmin(seedCtx, cfg.SuperAdminPassword); err != nil {
		cancelSeed()
		logger.Error("failed to seed super admin", "error", err.Error())
		os.Exit(1)
	}
	cancelSeed()

	// Initialise handlers
	authHandler := handler.NewAuthHandler(authService, logger)
	userHandler := handler.NewUserHandler(accountService, logger)
	transferHandler := handler.NewTransferHandler(transferService, queryService, accountService, logger)

	// Setup router
	router := mux.NewRouter()

	// Add health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	// Public routes
	authHandler.RegisterRoutes(router)

	// Authenticated routes
	authenticator := middleware.NewAuthenticator([]byte(cfg.JWTSecret), logger)
	api := router.NewRoute().Subrouter()
	api.Use(authenticator.Middleware)
	userHandler.RegisterRoutes(api)
	transferHandler.RegisterRoutes(api)

	// Add middleware for logging
	router.Use(loggingMiddleware(logger))

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a go routine
	go func() {
		logger.Info("starting server on port " + cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("failed to start server", "error", err.Error())
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	// Create context with timeout for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err.Error())
	}

	logger.Info("server exited gracefully")
}

// connectDB establishes a connection to the Postgres database
func connectDB(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(10 * time.Minute)

	// Verify connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

func buildCache(cfg *config.Config, logger *slog.Logger) (cache.BalanceCache, error) {
	switch cfg.CacheBackend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to ping redis: %w", err)
		}
		logger.Info("using redis balance cache", "addr", cfg.RedisAddr)
		return cache.NewRedisBalanceCache(client, cfg.CacheTTL), nil
	case "memory":
		logger.Info("using in-memory balance cache", "ttl", cfg.CacheTTL.String())
		return cache.NewMemoryBalanceCache(cfg.CacheTTL), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}

// loggingMiddleware logs incoming HTTP requests
func loggingMiddleware(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			logger.Info("incoming request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.statusCode,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
