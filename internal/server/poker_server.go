package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anhbaysgalan1/holdem/internal/auth"
	"github.com/anhbaysgalan1/holdem/internal/config"
	"github.com/anhbaysgalan1/holdem/internal/database"
	"github.com/anhbaysgalan1/holdem/internal/engine"
	"github.com/anhbaysgalan1/holdem/internal/engine/repositories"
	"github.com/anhbaysgalan1/holdem/internal/handlers"
	custommiddleware "github.com/anhbaysgalan1/holdem/internal/middleware"
	"github.com/anhbaysgalan1/holdem/internal/services"
	"github.com/anhbaysgalan1/holdem/server"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-redis/redis/v8"
)

const (
	accountIssuer = "holdem"
	sessionIssuer = "holdem-table"

	janitorInterval = time.Minute
	shutdownTimeout = 30 * time.Second
)

type PokerServer struct {
	config         *config.Config
	db             *database.DB
	redis          *redis.Client
	sessionStore   auth.SessionStore
	jwtManager     *auth.JWTManager
	authMiddleware *auth.AuthMiddleware
	authService    *services.AuthService
	tableService   *services.TableService
	registry       *engine.Registry
	snapshotCache  *repositories.RedisCache
	sessions       *auth.SessionManager
	hub            *server.Hub

	apiRateLimiter     *custommiddleware.RateLimiter
	authRateLimiter    *custommiddleware.RateLimiter
	messageRateLimiter *custommiddleware.RateLimiter

	server *http.Server
	cancel context.CancelFunc
}

func NewPokerServer() (*PokerServer, error) {
	// Load configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Setup database
	db, err := database.NewConnection(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Run migrations
	if err := db.AutoMigrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	rdb, err := connectRedis(cfg)
	if err != nil {
		return nil, err
	}

	return newPokerServer(cfg, db, rdb)
}

// newPokerServer assembles the server around open connections. rdb may be
// nil.
func newPokerServer(cfg *config.Config, db *database.DB, rdb *redis.Client) (*PokerServer, error) {
	store, err := newSessionStore(cfg, rdb)
	if err != nil {
		return nil, err
	}

	// Account tokens and table-session credentials are signed separately
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, accountIssuer, cfg.TokenTTL)
	sessionJWT := auth.NewJWTManager(cfg.SessionJWTSecret, sessionIssuer, cfg.SessionTTL)
	sessions := auth.NewSessionManager(sessionJWT, store, auth.SessionConfig{
		IdleTTL:       cfg.SessionIdleTTL,
		SweepInterval: cfg.SessionSweepInterval,
	})

	// Setup services
	authService := services.NewAuthService(db, jwtManager, cfg.StartingChips)
	userService := services.NewUserService(db)
	tableService := services.NewTableService(db, repositories.NewHistoryStore(db.DB))

	// Live tables do not survive a restart
	if n, err := tableService.CloseAllOpen(context.Background()); err != nil {
		return nil, err
	} else if n > 0 {
		slog.Info("Closed stale table records", "count", n)
	}

	messageRateLimiter := custommiddleware.NewMessageRateLimiter()
	registry := engine.NewRegistry()
	opts := server.HubOptions{
		Registry:  registry,
		Sessions:  sessions,
		Directory: userService,
		History:   tableService,
		Archive:   tableService,
		Limiter:   messageRateLimiter,
	}
	var snapshotCache *repositories.RedisCache
	if rdb != nil {
		snapshotCache = repositories.NewRedisCache(rdb)
		opts.Cache = snapshotCache
	}

	return &PokerServer{
		config:             cfg,
		db:                 db,
		redis:              rdb,
		sessionStore:       store,
		jwtManager:         jwtManager,
		authMiddleware:     auth.NewAuthMiddleware(jwtManager),
		authService:        authService,
		tableService:       tableService,
		registry:           registry,
		snapshotCache:      snapshotCache,
		sessions:           sessions,
		hub:                server.NewHub(opts),
		apiRateLimiter:     custommiddleware.NewAPIRateLimiter(),
		authRateLimiter:    custommiddleware.NewAuthRateLimiter(),
		messageRateLimiter: messageRateLimiter,
	}, nil
}

func connectRedis(cfg *config.Config) (*redis.Client, error) {
	if cfg.RedisURL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	if cfg.RedisPassword != "" {
		opts.Password = cfg.RedisPassword
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	slog.Info("Connected to redis", "addr", opts.Addr)
	return client, nil
}

func newSessionStore(cfg *config.Config, rdb *redis.Client) (auth.SessionStore, error) {
	switch cfg.SessionStore {
	case config.SessionStoreRedis:
		slog.Info("Using redis session store")
		return repositories.NewRedisSessionStore(rdb, cfg.SessionIdleTTL), nil
	case config.SessionStoreSQLite:
		store, err := auth.NewSQLiteStore(cfg.SessionSQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open session store: %w", err)
		}
		slog.Info("Using sqlite session store", "path", cfg.SessionSQLitePath)
		return store, nil
	default:
		slog.Info("Using in-memory session store")
		return auth.NewMemoryStore(), nil
	}
}

func (s *PokerServer) Start() error {
	// Setup router
	router := s.setupRouter()

	// Create HTTP server
	s.server = &http.Server{
		Addr:    ":" + s.config.Port,
		Handler: router,
	}

	s.startBackground()

	// Start server in goroutine
	go func() {
		slog.Info("Starting poker server", "port", s.config.Port)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server...")
	return s.Shutdown()
}

// startBackground runs the websocket hub, the idle table janitor and the
// session sweep until Shutdown.
func (s *PokerServer) startBackground() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	go s.hub.Run(ctx)
	go s.hub.RunJanitor(ctx, janitorInterval, s.config.TableIdleTTL)
	s.sessions.Start(ctx)
}

func (s *PokerServer) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Shutdown HTTP server
	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			slog.Error("Server forced to shutdown", "error", err)
		}
	}

	// Stop the hub, janitor and session sweep
	if s.cancel != nil {
		s.cancel()
	}
	s.sessions.Close()

	if closer, ok := s.sessionStore.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			slog.Error("Failed to close session store", "error", err)
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			slog.Error("Failed to close redis connection", "error", err)
		}
	}

	// Close database connection
	if err := s.db.Close(); err != nil {
		slog.Error("Failed to close database connection", "error", err)
	}

	// Close rate limiters
	s.apiRateLimiter.Close()
	s.authRateLimiter.Close()
	s.messageRateLimiter.Close()

	slog.Info("Server shutdown complete")
	return nil
}

func (s *PokerServer) setupRouter() chi.Router {
	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(auth.SecurityHeaders)
	r.Use(s.apiRateLimiter.RateLimit)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// WebSocket endpoint; browsers pass the account token as ?token=
	r.With(s.authMiddleware.RequireAuth).Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		server.ServeWs(s.hub, w, r)
	})

	r.Route("/api/v1", func(r chi.Router) {
		authHandler := handlers.NewAuthHandler(s.authService)
		tableHandler := handlers.NewTableHandler(s.registry, s.tableService, s.hub, s.config.DefaultMinimumBet)
		if s.snapshotCache != nil {
			tableHandler.UseSnapshotCache(s.snapshotCache)
		}

		// Public auth routes with stricter rate limiting
		r.Group(func(r chi.Router) {
			r.Use(s.authRateLimiter.RateLimit)
			r.Mount("/auth", authHandler.Routes())
		})

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware.RequireAuth)
			r.Mount("/user", authHandler.ProtectedRoutes())
		})

		r.Mount("/tables", tableHandler.Routes(s.authMiddleware))
	})

	return r
}
