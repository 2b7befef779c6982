package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"

	"projectadmin/internal/auth"
	"projectadmin/internal/config"
	"projectadmin/internal/consent"
	"projectadmin/internal/database"
	httpServer "projectadmin/internal/http"
	"projectadmin/internal/logging"
	"projectadmin/internal/metrics"
	"projectadmin/internal/ratelimit"
	"projectadmin/internal/user"
	"projectadmin/internal/web"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLogger(cfg.Server.IsDevelopment())
	logger.Info("starting application",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
	)

	// Apply pending schema migrations before accepting traffic
	if err := database.RunMigrations(cfg.Database.URL()); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	db, err := initDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	redisClient, err := initRedis(cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}
	defer redisClient.Close()

	// Repositories and stores
	userRepo := user.NewRepository(db)
	sessionStore := auth.NewRedisSessionStore(redisClient)
	rateLimiter := ratelimit.NewLimiter(redisClient, cfg.RateLimit.Window, cfg.RateLimit.MaxRequests)

	tokenService, err := auth.NewTokenService(cfg.Session.PasetoKey)
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}

	googleProvider := auth.NewGoogleProvider(auth.GoogleConfig{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RedirectURL:  cfg.RedirectURL(),
	})

	authService := auth.NewService(
		userRepo,
		sessionStore,
		tokenService,
		googleProvider,
		logger,
		cfg.Session.Duration,
		cfg.Session.RememberDuration,
	)

	renderer, err := web.NewRenderer()
	if err != nil {
		return fmt.Errorf("failed to initialize renderer: %w", err)
	}

	collector := metrics.NewCollector(prometheus.NewRegistry())

	authHandler := auth.NewHandler(
		authService,
		rateLimiter,
		collector,
		renderer,
		logger,
		!cfg.Server.IsDevelopment(), // isProduction
	)
	authMiddleware := auth.NewMiddleware(tokenService, sessionStore, cfg.Session.Duration, !cfg.Server.IsDevelopment())
	consentHandler := consent.NewHandler(!cfg.Server.IsDevelopment())

	router := httpServer.NewRouter(cfg, authHandler, authMiddleware, consentHandler, collector, logger)

	server := httpServer.NewServer(
		":"+cfg.Server.Port,
		router,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
		logger,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logger.Info("received shutdown signal", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// initDB initializes the database connection and returns a Bun DB instance
func initDB(cfg config.DatabaseConfig) (*bun.DB, error) {
	sqlDB, err := sql.Open("postgres", cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	return database.NewBunDB(sqlDB), nil
}

// initRedis initializes the Redis connection and returns a Redis client
func initRedis(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}
