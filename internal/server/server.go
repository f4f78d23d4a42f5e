package server

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"storefront/internal/config"
	custommiddleware "storefront/internal/middleware"
	"storefront/internal/repository"
	"storefront/internal/transport"
	"storefront/internal/uploads"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	db     *sql.DB
	redis  *redis.Client
}

func NewServer(cfg *config.Config, logger *zap.Logger, db *sql.DB) (*Server, error) {
	// Create router
	router := chi.NewRouter()

	// Add basic middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(nil, cfg.Server.Env != "production"))

	// Health check endpoint
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	uploadStore, err := uploads.New(cfg.Uploads.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to init upload store: %w", err)
	}

	// Initialize repository and handlers
	catalogRepo := repository.NewCatalogRepository(db)
	catalogHandler := transport.NewCatalogHandler(catalogRepo, uploadStore, logger)

	// Mutating routes require a bearer token
	authMiddleware := custommiddleware.AuthMiddleware(cfg.Auth.JWTSecret, logger)

	// Optional redis-backed rate limiting on mutations
	var redisClient *redis.Client
	var extra []func(http.Handler) http.Handler
	if cfg.Catalog.RatePerMinute > 0 {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		extra = append(extra, custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
			RequestsPerWindow: cfg.Catalog.RatePerMinute,
			Window:            time.Minute,
			KeyPrefix:         "catalog_rate_limit",
		}, logger))
	}

	// Register routes
	catalogHandler.RegisterRoutes(router, authMiddleware, extra...)

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config: cfg,
		logger: logger,
		db:     db,
		redis:  redisClient,
	}

	return server, nil
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}

	// Close database connection
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
