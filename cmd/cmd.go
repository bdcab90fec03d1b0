package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"framez-backend/internal/config"
	"framez-backend/internal/feed"
	"framez-backend/internal/handlers"
	"framez-backend/internal/identity"
	"framez-backend/internal/media"
	"framez-backend/internal/metrics"
	"framez-backend/internal/middleware"
	"framez-backend/internal/push"
	"framez-backend/internal/repository"
	"framez-backend/internal/store"
	"framez-backend/migrations"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Run() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	// Wire the document store and account storage. An empty database
	// host selects the embedded in-memory mode.
	var (
		documentStore store.Store
		accounts      identity.Accounts
	)
	if cfg.Database.Host != "" {
		db, err := pgxpool.New(context.Background(), cfg.Database.DSN())
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer db.Close()

		if err := db.Ping(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("Failed to ping database")
		}
		log.Info().Msg("Database connection established")

		if err := runMigrations(db); err != nil {
			log.Fatal().Err(err).Msg("Failed to run migrations")
		}

		pgStore := store.NewPostgres(context.Background(), db)
		defer pgStore.Close()
		documentStore = pgStore
		accounts = repository.NewAccountRepository(db)
	} else {
		log.Warn().Msg("No database configured, using embedded in-memory store")
		documentStore = store.NewMemory()
		accounts = identity.NewMemoryAccounts()
	}

	// Revoked-token set: Redis when configured, in-process otherwise.
	var tokens identity.Tokens
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Fatal().Err(err).Msg("Failed to ping redis")
		}
		tokens = identity.NewRedisTokens(redisClient)
	} else {
		log.Warn().Msg("No redis configured, using in-process token revocation")
		tokens = identity.NewMemoryTokens()
	}

	identityService := identity.NewService(accounts, tokens, cfg.JWT.Secret)

	// Server-wide live mirror backing the REST feed reads.
	mirror := feed.NewMirror(documentStore, nil)
	defer mirror.Close()

	var uploader *media.Uploader
	if cfg.AWS.S3Bucket != "" {
		uploader, err = media.NewUploader(
			context.Background(),
			cfg.AWS.Region,
			cfg.AWS.S3Bucket,
			cfg.AWS.AccessKey,
			cfg.AWS.SecretKey,
			cfg.AWS.Endpoint,
			cfg.AWS.PublicURL,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create media uploader")
		}
	}

	var notifier *push.Notifier
	if cfg.APNS.CertFile != "" {
		notifier, err = push.NewNotifier(documentStore, cfg.APNS.CertFile, cfg.APNS.CertPassword, cfg.APNS.Topic, cfg.APNS.Production)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create push notifier")
		}
		defer notifier.Close()
	}

	hub := handlers.NewHub()

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(identityService, documentStore)
	postHandler := handlers.NewPostHandler(documentStore, identityService, mirror, notifier, hub)
	mediaHandler := handlers.NewMediaHandler(uploader)
	deviceHandler := handlers.NewDeviceHandler(documentStore)
	wsHandler := handlers.NewWebSocketHandler(hub, identityService, documentStore, notifier)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware)

	// Routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/auth/signup", authHandler.SignUp)
		r.Post("/auth/signin", authHandler.SignIn)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(identityService))
			r.Post("/auth/signout", authHandler.SignOut)
			r.Get("/feed", postHandler.GetFeed)
			r.Get("/users/{user_id}/posts", postHandler.GetUserPosts)
			r.Post("/posts", postHandler.CreatePost)
			r.Delete("/posts/{post_id}", postHandler.DeletePost)
			r.Post("/media/upload", mediaHandler.Upload)
			r.Post("/devices", deviceHandler.RegisterDevice)
		})
	})

	// WebSocket route
	r.Get("/ws", wsHandler.HandleWebSocket)

	// Metrics
	r.Handle("/metrics", promhttp.Handler())

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// runMigrations applies the embedded schema through goose.
func runMigrations(db *pgxpool.Pool) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(db)
	defer sqlDB.Close()

	if err := goose.Up(sqlDB, "."); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
